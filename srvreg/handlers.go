package srvreg

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/shipment"
	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/workflow"
)

var defaultHeaders = map[string]string{"Content-Type": "application/json"}

// errorBody is the JSON shape of every failed request
type errorBody struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// StatusForCode maps a workflow error code to its HTTP status
func StatusForCode(code string) int {
	switch code {
	case shipment.CodeUnauthorized:
		return http.StatusForbidden
	case shipment.CodeInvalidTransition, shipment.CodeConflict:
		return http.StatusConflict
	case shipment.CodeValidation:
		return http.StatusUnprocessableEntity
	case shipment.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func jsonResponse(status int, v interface{}) *Response {
	b, err := json.Marshal(v)
	if err != nil {
		return messageResponse(http.StatusInternalServerError, "Failed to encode response")
	}
	return &Response{StatusCode: status, Headers: defaultHeaders, Body: string(b)}
}

func messageResponse(status int, message string) *Response {
	b, _ := json.Marshal(errorBody{Error: message})
	return &Response{StatusCode: status, Headers: defaultHeaders, Body: string(b)}
}

// errorResponse renders a workflow error. Storage details stay in the log.
func errorResponse(err error) (*Response, error) {
	werr := shipment.AsError(err)
	body := errorBody{Error: werr.Message, Code: werr.Code, Reason: werr.Reason, Detail: werr.Detail}
	if werr.Code == shipment.CodeStorage {
		body.Detail = ""
	}
	return jsonResponse(StatusForCode(werr.Code), body), werr
}

func badRequest(err error) (*Response, error) {
	return errorResponse(shipment.Validation("Invalid body format: " + err.Error()))
}

// pathID returns the numeric segment at index n of the request path
func pathID(req *Request, n int) (int64, error) {
	pathParts := strings.Split(strings.TrimSuffix(req.Path, "/"), "/")
	if len(pathParts) <= n {
		return 0, shipment.Validation("Invalid path format")
	}
	id, err := strconv.ParseInt(pathParts[n], 10, 64)
	if err != nil || id <= 0 {
		return 0, shipment.Validation(fmt.Sprintf("invalid id %q", pathParts[n]))
	}
	return id, nil
}

// decodeBody unmarshals the request body, treating an empty body as {}
func decodeBody(req *Request, v interface{}) error {
	if req.Body == "" {
		return nil
	}
	dec := json.NewDecoder(strings.NewReader(req.Body))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (sr *ServiceRegistry) ListShipmentsHandler(req *Request) (*Response, error) {
	list, err := sr.engine.ListShipments(req.Context(), req.Actor())
	if err != nil {
		return errorResponse(err)
	}
	if list == nil {
		list = []*shipment.Shipment{}
	}
	return jsonResponse(http.StatusOK, list), nil
}

func (sr *ServiceRegistry) CreateShipmentHandler(req *Request) (*Response, error) {
	var body shipment.NewShipment
	if err := decodeBody(req, &body); err != nil {
		return badRequest(err)
	}
	s, err := sr.engine.CreateShipment(req.Context(), req.Actor(), body)
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(http.StatusCreated, s), nil
}

func (sr *ServiceRegistry) GetShipmentHandler(req *Request) (*Response, error) {
	id, err := pathID(req, 2)
	if err != nil {
		return errorResponse(err)
	}
	s, err := sr.engine.GetShipment(req.Context(), req.Actor(), id)
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(http.StatusOK, s), nil
}

func (sr *ServiceRegistry) DeleteShipmentHandler(req *Request) (*Response, error) {
	id, err := pathID(req, 2)
	if err != nil {
		return errorResponse(err)
	}
	if err := sr.engine.DeleteShipment(req.Context(), req.Actor(), id); err != nil {
		return errorResponse(err)
	}
	return jsonResponse(http.StatusOK, map[string]interface{}{"message": "Shipment deleted", "id": id}), nil
}

func (sr *ServiceRegistry) AssignBrokerHandler(req *Request) (*Response, error) {
	id, err := pathID(req, 2)
	if err != nil {
		return errorResponse(err)
	}
	var body shipment.Broker
	if err := decodeBody(req, &body); err != nil {
		return badRequest(err)
	}
	s, err := sr.engine.AssignBroker(req.Context(), req.Actor(), id, body)
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(http.StatusOK, s), nil
}

func (sr *ServiceRegistry) SubmitFeesHandler(req *Request) (*Response, error) {
	id, err := pathID(req, 2)
	if err != nil {
		return errorResponse(err)
	}
	var body shipment.FeeBreakdown
	if err := decodeBody(req, &body); err != nil {
		return badRequest(err)
	}
	s, err := sr.engine.SubmitFees(req.Context(), req.Actor(), id, body)
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(http.StatusOK, s), nil
}

type decideFeesHandlerBody struct {
	Decision string `json:"decision"`
	Note     string `json:"note"`
}

func (sr *ServiceRegistry) DecideFeesHandler(req *Request) (*Response, error) {
	// non-Finance callers are refused whatever the path or body holds
	if err := shipment.RequireRole(req.Actor(), workflow.OpDecideFees, shipment.RolesDecideFees...); err != nil {
		return errorResponse(err)
	}
	id, err := pathID(req, 2)
	if err != nil {
		return errorResponse(err)
	}
	var body decideFeesHandlerBody
	if err := decodeBody(req, &body); err != nil {
		return badRequest(err)
	}
	var approve bool
	switch strings.ToLower(strings.TrimSpace(body.Decision)) {
	case "approve", "approved":
		approve = true
	case "reject", "rejected":
		approve = false
	default:
		return errorResponse(shipment.Validation(`decision must be "approve" or "reject"`))
	}
	s, err := sr.engine.DecideFees(req.Context(), req.Actor(), id, approve, body.Note)
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(http.StatusOK, s), nil
}

type confirmPaymentHandlerBody struct {
	AttachmentRef string `json:"attachment_ref"`
}

func (sr *ServiceRegistry) ConfirmPaymentHandler(req *Request) (*Response, error) {
	id, err := pathID(req, 2)
	if err != nil {
		return errorResponse(err)
	}
	var body confirmPaymentHandlerBody
	if err := decodeBody(req, &body); err != nil {
		return badRequest(err)
	}
	s, err := sr.engine.ConfirmPayment(req.Context(), req.Actor(), id, body.AttachmentRef)
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(http.StatusOK, s), nil
}

func (sr *ServiceRegistry) MarkArrivedHandler(req *Request) (*Response, error) {
	return sr.physicalHandler(req, sr.engine.MarkArrived)
}

func (sr *ServiceRegistry) BeginProcessingHandler(req *Request) (*Response, error) {
	return sr.physicalHandler(req, sr.engine.BeginProcessing)
}

func (sr *ServiceRegistry) ResolveDiscrepancyHandler(req *Request) (*Response, error) {
	return sr.physicalHandler(req, sr.engine.ResolveDiscrepancy)
}

func (sr *ServiceRegistry) CompleteShipmentHandler(req *Request) (*Response, error) {
	return sr.physicalHandler(req, sr.engine.CompleteShipment)
}

type physicalOp func(ctx context.Context, actor shipment.Actor, id int64) (*shipment.Shipment, error)

// physicalHandler serves the body-less physical transitions
func (sr *ServiceRegistry) physicalHandler(req *Request, op physicalOp) (*Response, error) {
	id, err := pathID(req, 2)
	if err != nil {
		return errorResponse(err)
	}
	s, err := op(req.Context(), req.Actor(), id)
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(http.StatusOK, s), nil
}

type receiveShipmentHandlerBody struct {
	Lines []workflow.ReceivedLine `json:"lines"`
}

func (sr *ServiceRegistry) ReceiveShipmentHandler(req *Request) (*Response, error) {
	id, err := pathID(req, 2)
	if err != nil {
		return errorResponse(err)
	}
	var body receiveShipmentHandlerBody
	if err := decodeBody(req, &body); err != nil {
		return badRequest(err)
	}
	s, err := sr.engine.ReceiveShipment(req.Context(), req.Actor(), id, body.Lines)
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(http.StatusOK, s), nil
}

const opCreateInventoryItem = "CreateInventoryItem"

func (sr *ServiceRegistry) CreateInventoryItemHandler(req *Request) (*Response, error) {
	actor := req.Actor()
	if err := shipment.RequireRole(actor, opCreateInventoryItem, shipment.RolesAdminister...); err != nil {
		return errorResponse(err)
	}
	var body shipment.InventoryItem
	if err := decodeBody(req, &body); err != nil {
		return badRequest(err)
	}
	body.SKU = strings.TrimSpace(body.SKU)
	body.Name = strings.TrimSpace(body.Name)
	if body.SKU == "" || body.Name == "" {
		return errorResponse(shipment.Validation("sku and name are required"))
	}
	item, err := sr.inventory.CreateItem(req.Context(), &body)
	if err != nil {
		return errorResponse(err)
	}
	sr.logger.Info("inventory item created", "item_id", item.ID, "sku", item.SKU, "actor", actor.UserID)
	return jsonResponse(http.StatusCreated, item), nil
}

func (sr *ServiceRegistry) GetInventoryItemHandler(req *Request) (*Response, error) {
	if err := requireAuthenticated(req.Actor()); err != nil {
		return errorResponse(err)
	}
	id, err := pathID(req, 2)
	if err != nil {
		return errorResponse(err)
	}
	item, err := sr.inventory.GetItem(req.Context(), id)
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(http.StatusOK, item), nil
}

func (sr *ServiceRegistry) ListMovementsHandler(req *Request) (*Response, error) {
	if err := requireAuthenticated(req.Actor()); err != nil {
		return errorResponse(err)
	}
	id, err := pathID(req, 2)
	if err != nil {
		return errorResponse(err)
	}
	if _, err := sr.inventory.GetItem(req.Context(), id); err != nil {
		return errorResponse(err)
	}
	moves, err := sr.inventory.Movements(req.Context(), id)
	if err != nil {
		return errorResponse(err)
	}
	if moves == nil {
		moves = []shipment.Movement{}
	}
	return jsonResponse(http.StatusOK, moves), nil
}

func requireAuthenticated(actor shipment.Actor) error {
	if actor.UserID == "" || actor.Role == "" {
		return shipment.Unauthorized("an authenticated user is required")
	}
	return nil
}
