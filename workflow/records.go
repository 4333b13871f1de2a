package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/realtime"
	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/shipment"
	"github.com/shopspring/decimal"
)

const (
	OpCreateShipment = "CreateShipment"
	OpDeleteShipment = "DeleteShipment"
	OpGetShipment    = "GetShipment"
	OpListShipments  = "ListShipments"
)

var anyRole = []shipment.Role{
	shipment.RoleBroker, shipment.RoleFinance, shipment.RoleWarehouse, shipment.RoleManager, shipment.RoleAdmin,
}

// CreateShipment stores a new ASN in {initial physical status, PendingSubmission}
func (e *Engine) CreateShipment(ctx context.Context, actor shipment.Actor, n shipment.NewShipment) (*shipment.Shipment, error) {
	start := time.Now()
	if err := shipment.RequireRole(actor, OpCreateShipment, shipment.RolesAdminister...); err != nil {
		return nil, e.reject(OpCreateShipment, actor, 0, start, err)
	}
	if err := n.Validate(); err != nil {
		return nil, e.reject(OpCreateShipment, actor, 0, start, err)
	}
	for _, l := range n.Lines {
		if _, err := e.inventory.GetItem(ctx, l.InventoryItemID); err != nil {
			return nil, e.reject(OpCreateShipment, actor, 0, start, err)
		}
	}

	at := e.now().UTC()
	s := &shipment.Shipment{
		Supplier:              strings.TrimSpace(n.Supplier),
		Carrier:               strings.TrimSpace(n.Carrier),
		PurchaseOrderRef:      strings.TrimSpace(n.PurchaseOrderRef),
		Department:            strings.TrimSpace(n.Department),
		ExpectedArrival:       n.ExpectedArrival.UTC(),
		PhysicalStatus:        n.PhysicalStatus,
		FeeStatus:             shipment.FeePendingSubmission,
		TotalFee:              decimal.Zero,
		FeeStatusHistory:      []shipment.FeeStatusEntry{},
		PhysicalStatusHistory: []shipment.PhysicalStatusEntry{},
		Version:               1,
		CreatedAt:             at,
		UpdatedAt:             at,
	}
	if n.Broker != nil {
		b := *n.Broker
		s.Broker = &b
	}
	for _, l := range n.Lines {
		s.LineItems = append(s.LineItems, shipment.LineItem{
			InventoryItemID:  l.InventoryItemID,
			ExpectedQuantity: l.ExpectedQuantity,
		})
	}

	created, err := e.store.CreateShipment(ctx, s)
	if err != nil {
		return nil, e.reject(OpCreateShipment, actor, 0, start, err)
	}

	unlock := e.lockRecord(created.ID)
	e.publisher.Publish(realtime.EventCreated, created)
	unlock()

	e.accept(OpCreateShipment, actor, created, start)
	return created, nil
}

// DeleteShipment removes a record that has not left its initial state
func (e *Engine) DeleteShipment(ctx context.Context, actor shipment.Actor, id int64) error {
	start := time.Now()
	if err := shipment.RequireRole(actor, OpDeleteShipment, shipment.RolesDelete...); err != nil {
		return e.reject(OpDeleteShipment, actor, id, start, err)
	}
	cur, err := e.store.LoadShipment(ctx, id)
	if err != nil {
		return e.reject(OpDeleteShipment, actor, id, start, err)
	}
	if cur.FeeStatus != shipment.FeePendingSubmission || !cur.PhysicalStatus.Initial() {
		return e.reject(OpDeleteShipment, actor, id, start, shipment.InvalidTransition(fmt.Sprintf(
			"only shipments in their initial state can be deleted (fee %s, physical %s)", cur.FeeStatus, cur.PhysicalStatus)))
	}

	unlock := e.lockRecord(id)
	defer unlock()
	if err := e.store.DeleteShipment(ctx, id, cur.Precondition()); err != nil {
		return e.reject(OpDeleteShipment, actor, id, start, err)
	}
	e.publisher.Publish(realtime.EventDeleted, map[string]int64{"id": id})
	e.accept(OpDeleteShipment, actor, cur, start)
	return nil
}

func (e *Engine) GetShipment(ctx context.Context, actor shipment.Actor, id int64) (*shipment.Shipment, error) {
	start := time.Now()
	if err := shipment.RequireRole(actor, OpGetShipment, anyRole...); err != nil {
		return nil, e.reject(OpGetShipment, actor, id, start, err)
	}
	s, err := e.store.LoadShipment(ctx, id)
	if err != nil {
		return nil, e.reject(OpGetShipment, actor, id, start, err)
	}
	return s, nil
}

func (e *Engine) ListShipments(ctx context.Context, actor shipment.Actor) ([]*shipment.Shipment, error) {
	start := time.Now()
	if err := shipment.RequireRole(actor, OpListShipments, anyRole...); err != nil {
		return nil, e.reject(OpListShipments, actor, 0, start, err)
	}
	list, err := e.store.ListShipments(ctx)
	if err != nil {
		return nil, e.reject(OpListShipments, actor, 0, start, err)
	}
	return list, nil
}
