package workflow

import (
	"context"
	"time"

	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/shipment"
)

const (
	OpMarkArrived        = "MarkArrived"
	OpBeginProcessing    = "BeginProcessing"
	OpResolveDiscrepancy = "ResolveDiscrepancy"
	OpCompleteShipment   = "CompleteShipment"
)

func (e *Engine) MarkArrived(ctx context.Context, actor shipment.Actor, id int64) (*shipment.Shipment, error) {
	return e.advance(ctx, OpMarkArrived, actor, id, shipment.PhysicalOpMarkArrived, shipment.RolesWarehouse)
}

func (e *Engine) BeginProcessing(ctx context.Context, actor shipment.Actor, id int64) (*shipment.Shipment, error) {
	return e.advance(ctx, OpBeginProcessing, actor, id, shipment.PhysicalOpBeginProcessing, shipment.RolesWarehouse)
}

// ResolveDiscrepancy acknowledges a discrepancy and returns to Processing
func (e *Engine) ResolveDiscrepancy(ctx context.Context, actor shipment.Actor, id int64) (*shipment.Shipment, error) {
	return e.advance(ctx, OpResolveDiscrepancy, actor, id, shipment.PhysicalOpResolve, shipment.RolesWarehouse)
}

// CompleteShipment closes the shipment once every line has a recorded receipt
func (e *Engine) CompleteShipment(ctx context.Context, actor shipment.Actor, id int64) (*shipment.Shipment, error) {
	start := time.Now()
	if err := shipment.RequireRole(actor, OpCompleteShipment, shipment.RolesComplete...); err != nil {
		return nil, e.reject(OpCompleteShipment, actor, id, start, err)
	}
	return e.apply(ctx, OpCompleteShipment, actor, id, func(s *shipment.Shipment, at time.Time) ([]shipment.Receipt, error) {
		to, err := shipment.AdvancePhysical(s, shipment.PhysicalOpComplete)
		if err != nil {
			return nil, err
		}
		if !s.AllLinesReceived() {
			return nil, shipment.InvalidTransition("every line item needs a recorded receipt before the shipment can be completed")
		}
		s.AppendPhysicalStatus(to, actor, e.newID(), at)
		return nil, nil
	})
}

// advance is the shared body of the physical operations that only need the
// role check, the payment guard and the transition table.
func (e *Engine) advance(ctx context.Context, op string, actor shipment.Actor, id int64, pop shipment.PhysicalOp, roles []shipment.Role) (*shipment.Shipment, error) {
	start := time.Now()
	if err := shipment.RequireRole(actor, op, roles...); err != nil {
		return nil, e.reject(op, actor, id, start, err)
	}
	return e.apply(ctx, op, actor, id, func(s *shipment.Shipment, at time.Time) ([]shipment.Receipt, error) {
		to, err := shipment.AdvancePhysical(s, pop)
		if err != nil {
			return nil, err
		}
		s.AppendPhysicalStatus(to, actor, e.newID(), at)
		return nil, nil
	})
}
