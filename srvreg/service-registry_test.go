package srvreg

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/repository"
	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/shipment"
	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/workflow"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopPublisher struct{}

func (nopPublisher) Publish(string, interface{}) {}

func newTestRegistry(t *testing.T) *ServiceRegistry {
	t.Helper()
	store, err := repository.OpenBadger("", true, cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	engine := workflow.New(store, store, nopPublisher{}, cmtlog.NewNopLogger())
	sr := NewServiceRegistry(engine, store, cmtlog.NewNopLogger())
	sr.RegisterDefaultServices()
	return sr
}

func call(sr *ServiceRegistry, method, path, userID, role, body string) *Response {
	req := &Request{
		Method: method,
		Path:   path,
		Headers: map[string]string{
			"X-User-Id":   userID,
			"X-User-Role": role,
		},
		Body: compactJSON(body),
		ctx:  context.Background(),
	}
	return req.GenerateResponse(sr)
}

func decode(t *testing.T, resp *Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(resp.Body), v), resp.Body)
}

func TestMatchPath(t *testing.T) {
	assert.True(t, matchPath("/asn/:id", "/asn/12"))
	assert.True(t, matchPath("/asn/:id/fees/decision", "/asn/12/fees/decision"))
	assert.False(t, matchPath("/asn/:id/fees", "/asn/12/fees/decision"))
	assert.False(t, matchPath("/asn/:id/discrepancy/resolve", "/asn/12/fees/decision"))
	assert.False(t, matchPath("/asn/:id", "/asn/"))
}

func TestGetHandlerForPath(t *testing.T) {
	sr := newTestRegistry(t)

	_, ok := sr.GetHandlerForPath("get", "/asn")
	assert.True(t, ok)
	_, ok = sr.GetHandlerForPath("GET", "/asn/")
	assert.True(t, ok)
	_, ok = sr.GetHandlerForPath("POST", "/asn/7/discrepancy/resolve")
	assert.True(t, ok)
	_, ok = sr.GetHandlerForPath("PUT", "/asn/7")
	assert.False(t, ok)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	sr := newTestRegistry(t)
	assert.Equal(t, http.StatusNotFound, call(sr, "GET", "/asn/7/nothing", "u", "Admin", "").StatusCode)
	assert.Equal(t, http.StatusMethodNotAllowed, call(sr, "PUT", "/asn/7", "u", "Admin", "").StatusCode)
}

func TestStatusForCode(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, StatusForCode(shipment.CodeUnauthorized))
	assert.Equal(t, http.StatusConflict, StatusForCode(shipment.CodeInvalidTransition))
	assert.Equal(t, http.StatusConflict, StatusForCode(shipment.CodeConflict))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusForCode(shipment.CodeValidation))
	assert.Equal(t, http.StatusNotFound, StatusForCode(shipment.CodeNotFound))
	assert.Equal(t, http.StatusInternalServerError, StatusForCode(shipment.CodeStorage))
}

func TestShipmentLifecycleOverRegistry(t *testing.T) {
	sr := newTestRegistry(t)

	resp := call(sr, "POST", "/inventory", "u-admin", "Admin", `{"sku":"LAP-14","name":"Laptop","serialized":true}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, resp.Body)
	var item shipment.InventoryItem
	decode(t, resp, &item)

	resp = call(sr, "POST", "/asn", "u-admin", "Admin", fmt.Sprintf(`{
		"supplier": "Northwind",
		"purchase_order_ref": "PO-9",
		"broker": {"user_id": "u-broker", "name": "Bo"},
		"line_items": [{"inventory_item_id": %d, "expected_quantity": 2}]
	}`, item.ID))
	require.Equal(t, http.StatusCreated, resp.StatusCode, resp.Body)
	var s shipment.Shipment
	decode(t, resp, &s)
	base := fmt.Sprintf("/asn/%d", s.ID)

	resp = call(sr, "POST", base+"/fees", "u-broker", "broker", `{"duties":"10.00","shipping":5,"storage":0}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)

	// warehouse may not decide fees
	resp = call(sr, "POST", base+"/fees/decision", "u-wh", "Warehouse", `{"decision":"approve"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	var errBody errorBody
	decode(t, resp, &errBody)
	assert.Equal(t, shipment.CodeUnauthorized, errBody.Code)

	resp = call(sr, "POST", base+"/fees/decision", "u-fin", "Finance", `{"decision":"maybe"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = call(sr, "POST", base+"/fees/decision", "u-fin", "Finance", `{"decision":"approve","note":"ok"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	resp = call(sr, "POST", base+"/payment", "u-broker", "Broker", `{"attachment_ref":"r.pdf"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	resp = call(sr, "POST", base+"/arrive", "u-wh", "Warehouse", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	decode(t, resp, &s)

	resp = call(sr, "POST", base+"/receive", "u-wh", "Warehouse", fmt.Sprintf(
		`{"lines":[{"line_item_id":%d,"received_quantity":2,"received_serials":["A"]}]}`, s.LineItems[0].ID))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	decode(t, resp, &errBody)
	assert.Equal(t, shipment.ReasonQuantityMismatch, errBody.Reason)

	resp = call(sr, "POST", base+"/receive", "u-wh", "Warehouse", fmt.Sprintf(
		`{"lines":[{"line_item_id":%d,"received_quantity":1,"received_serials":["A"]}]}`, s.LineItems[0].ID))
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	decode(t, resp, &s)
	assert.Equal(t, shipment.PhysicalDiscrepancyReview, s.PhysicalStatus)

	resp = call(sr, "POST", base+"/discrepancy/resolve", "u-wh", "Warehouse", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	resp = call(sr, "POST", base+"/complete", "u-mgr", "Manager", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	decode(t, resp, &s)
	assert.Equal(t, shipment.PhysicalComplete, s.PhysicalStatus)

	resp = call(sr, "POST", base+"/arrive", "u-wh", "Warehouse", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = call(sr, "GET", fmt.Sprintf("/inventory/%d/movements", item.ID), "u-wh", "Warehouse", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	var moves []shipment.Movement
	decode(t, resp, &moves)
	require.Len(t, moves, 1)
	assert.Equal(t, []string{"A"}, moves[0].Serials)

	resp = call(sr, "GET", "/asn", "u-fin", "Finance", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []shipment.Shipment
	decode(t, resp, &list)
	assert.Len(t, list, 1)
}

func TestRequestErrors(t *testing.T) {
	sr := newTestRegistry(t)

	assert.Equal(t, http.StatusNotFound, call(sr, "GET", "/asn/404", "u", "Admin", "").StatusCode)
	assert.Equal(t, http.StatusUnprocessableEntity, call(sr, "GET", "/asn/abc", "u", "Admin", "").StatusCode)
	assert.Equal(t, http.StatusForbidden, call(sr, "GET", "/asn", "", "", "").StatusCode)
	assert.Equal(t, http.StatusForbidden, call(sr, "GET", "/asn", "u", "Janitor", "").StatusCode)
	assert.Equal(t, http.StatusUnprocessableEntity, call(sr, "POST", "/asn", "u", "Admin", `{"unknown":1}`).StatusCode)
	assert.Equal(t, http.StatusForbidden, call(sr, "POST", "/inventory", "u", "Warehouse", `{"sku":"X","name":"Y"}`).StatusCode)
	assert.Equal(t, http.StatusUnprocessableEntity, call(sr, "POST", "/inventory", "u", "Admin", `{"sku":"X"}`).StatusCode)
}

func TestActorFromHeaders(t *testing.T) {
	req := &Request{Headers: map[string]string{"X-User-Id": " u-1 ", "X-User-Role": "finance", "X-User-Name": "Fin"}}
	assert.Equal(t, shipment.Actor{UserID: "u-1", Name: "Fin", Role: shipment.RoleFinance}, req.Actor())
}

func TestDecideFeesRefusesOtherRolesFirst(t *testing.T) {
	sr := newTestRegistry(t)

	for _, role := range []string{"Warehouse", "Broker", "Admin"} {
		resp := call(sr, "POST", "/asn/1/fees/decision", "u-x", role, `{"decision":"maybe"}`)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, role)
		resp = call(sr, "POST", "/asn/abc/fees/decision", "u-x", role, `{"decision":"approve"}`)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, role)
	}
	resp := call(sr, "POST", "/asn/1/fees/decision", "u-x", "Warehouse", `not json`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = call(sr, "POST", "/asn/1/fees/decision", "u-fin", "Finance", `{"decision":"maybe"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestConvertRequestBodyLimit(t *testing.T) {
	r := httptest.NewRequest("POST", "/asn", strings.NewReader(strings.Repeat("a", MaxBodyBytes)))
	req, err := ConvertHttpRequestToServiceRequest(r, "rid")
	require.NoError(t, err)
	assert.Len(t, req.Body, MaxBodyBytes)

	r = httptest.NewRequest("POST", "/asn", strings.NewReader(strings.Repeat("a", MaxBodyBytes+1)))
	_, err = ConvertHttpRequestToServiceRequest(r, "rid")
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestCreateInventoryItemSerialSeeds(t *testing.T) {
	sr := newTestRegistry(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"serials short of on_hand", `{"sku":"LAP-1","name":"Laptop","serialized":true,"on_hand":2,"serials":["A"]}`, http.StatusUnprocessableEntity},
		{"repeated serial", `{"sku":"LAP-2","name":"Laptop","serialized":true,"on_hand":2,"serials":["A","A"]}`, http.StatusUnprocessableEntity},
		{"serials on bulk item", `{"sku":"CBL-1","name":"Cable","on_hand":1,"serials":["A"]}`, http.StatusUnprocessableEntity},
		{"negative on_hand", `{"sku":"CBL-2","name":"Cable","on_hand":-1}`, http.StatusUnprocessableEntity},
		{"seeded", `{"sku":"LAP-3","name":"Laptop","serialized":true,"on_hand":2,"serials":["A","B"]}`, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := call(sr, "POST", "/inventory", "u-admin", "Admin", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, resp.Body)
		})
	}
}
