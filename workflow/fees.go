package workflow

import (
	"context"
	"strings"
	"time"

	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/shipment"
)

const (
	OpSubmitFees     = "SubmitFees"
	OpDecideFees     = "DecideFees"
	OpConfirmPayment = "ConfirmPayment"
	OpAssignBroker   = "AssignBroker"
)

// SubmitFees moves PendingSubmission or Rejected to PendingApproval. Only the
// broker assigned to the shipment may submit.
func (e *Engine) SubmitFees(ctx context.Context, actor shipment.Actor, id int64, fees shipment.FeeBreakdown) (*shipment.Shipment, error) {
	return e.apply(ctx, OpSubmitFees, actor, id, func(s *shipment.Shipment, at time.Time) ([]shipment.Receipt, error) {
		if err := shipment.RequireAssignedBroker(actor, OpSubmitFees, s); err != nil {
			return nil, err
		}
		to, err := shipment.NextFeeStatus(s.FeeStatus, shipment.FeeOpSubmit)
		if err != nil {
			return nil, err
		}
		if err := fees.Validate(); err != nil {
			return nil, err
		}
		s.SetFees(fees)
		s.AppendFeeStatus(to, actor, "", e.newID(), at)
		return nil, nil
	})
}

// DecideFees approves or rejects a pending fee submission
func (e *Engine) DecideFees(ctx context.Context, actor shipment.Actor, id int64, approve bool, note string) (*shipment.Shipment, error) {
	start := time.Now()
	if err := shipment.RequireRole(actor, OpDecideFees, shipment.RolesDecideFees...); err != nil {
		return nil, e.reject(OpDecideFees, actor, id, start, err)
	}
	op := shipment.FeeOpReject
	if approve {
		op = shipment.FeeOpApprove
	}
	return e.apply(ctx, OpDecideFees, actor, id, func(s *shipment.Shipment, at time.Time) ([]shipment.Receipt, error) {
		to, err := shipment.NextFeeStatus(s.FeeStatus, op)
		if err != nil {
			return nil, err
		}
		s.AppendFeeStatus(to, actor, strings.TrimSpace(note), e.newID(), at)
		return nil, nil
	})
}

// ConfirmPayment records that the approved fees were paid. attachmentRef is
// an opaque reference to an uploaded receipt and may be empty.
func (e *Engine) ConfirmPayment(ctx context.Context, actor shipment.Actor, id int64, attachmentRef string) (*shipment.Shipment, error) {
	return e.apply(ctx, OpConfirmPayment, actor, id, func(s *shipment.Shipment, at time.Time) ([]shipment.Receipt, error) {
		if err := shipment.RequireAssignedBroker(actor, OpConfirmPayment, s); err != nil {
			return nil, err
		}
		to, err := shipment.NextFeeStatus(s.FeeStatus, shipment.FeeOpConfirmPayment)
		if err != nil {
			return nil, err
		}
		if ref := strings.TrimSpace(attachmentRef); ref != "" {
			s.PaymentAttachmentRef = ref
		}
		s.AppendFeeStatus(to, actor, "", e.newID(), at)
		return nil, nil
	})
}

// AssignBroker sets the broker while fees are still open for submission
func (e *Engine) AssignBroker(ctx context.Context, actor shipment.Actor, id int64, broker shipment.Broker) (*shipment.Shipment, error) {
	start := time.Now()
	if err := shipment.RequireRole(actor, OpAssignBroker, shipment.RolesAdminister...); err != nil {
		return nil, e.reject(OpAssignBroker, actor, id, start, err)
	}
	return e.apply(ctx, OpAssignBroker, actor, id, func(s *shipment.Shipment, at time.Time) ([]shipment.Receipt, error) {
		if s.FeeStatus != shipment.FeePendingSubmission && s.FeeStatus != shipment.FeeRejected {
			return nil, shipment.InvalidTransition("broker can only be assigned while fees are " +
				string(shipment.FeePendingSubmission) + " or " + string(shipment.FeeRejected))
		}
		broker.UserID = strings.TrimSpace(broker.UserID)
		if broker.UserID == "" {
			return nil, shipment.Validation("broker user id is required")
		}
		broker.Name = strings.TrimSpace(broker.Name)
		s.Broker = &broker
		return nil, nil
	})
}
