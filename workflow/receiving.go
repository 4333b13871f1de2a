package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/shipment"
)

const OpReceiveShipment = "ReceiveShipment"

// ReceivedLine is one line of a receiving submission. Serials are required
// for serialized items and must be absent for bulk items.
type ReceivedLine struct {
	LineItemID int64    `json:"line_item_id"`
	Quantity   int      `json:"received_quantity"`
	Serials    []string `json:"received_serials,omitempty"`
}

// ReceiveShipment records received quantities and serials, applies them to
// inventory and moves the shipment to Processing, or to DiscrepancyReview if
// any touched line's cumulative quantity differs from what was expected.
// Every line is validated before anything is written; the inventory effects
// and the record update commit together or not at all.
func (e *Engine) ReceiveShipment(ctx context.Context, actor shipment.Actor, id int64, lines []ReceivedLine) (*shipment.Shipment, error) {
	start := time.Now()
	if err := shipment.RequireRole(actor, OpReceiveShipment, shipment.RolesWarehouse...); err != nil {
		return nil, e.reject(OpReceiveShipment, actor, id, start, err)
	}
	return e.apply(ctx, OpReceiveShipment, actor, id, func(s *shipment.Shipment, at time.Time) ([]shipment.Receipt, error) {
		if !shipment.CanAdvancePhysical(s) {
			return nil, shipment.InvalidTransition(fmt.Sprintf(
				"receiving requires fee status %s, current fee status is %s", shipment.FeePaymentConfirmed, s.FeeStatus))
		}
		if s.PhysicalStatus != shipment.PhysicalAtWarehouse && s.PhysicalStatus != shipment.PhysicalProcessing {
			return nil, shipment.InvalidTransition(fmt.Sprintf(
				"receiving is not allowed while physical status is %s", s.PhysicalStatus))
		}

		normalized, err := e.validateReceipt(ctx, s, lines)
		if err != nil {
			return nil, err
		}

		receipts := make([]shipment.Receipt, 0, len(normalized))
		discrepant := false
		for _, rl := range normalized {
			li, _ := s.LineItem(rl.LineItemID)
			li.ReceivedQuantity += rl.Quantity
			li.ReceivedSerials = append(li.ReceivedSerials, rl.Serials...)
			li.Receipts++
			received := at
			li.LastReceivedAt = &received
			if li.ReceivedQuantity != li.ExpectedQuantity {
				discrepant = true
			}
			if rl.Quantity == 0 {
				continue
			}
			receipts = append(receipts, shipment.Receipt{
				ItemID:        li.InventoryItemID,
				ShipmentID:    s.ID,
				LineItemID:    li.ID,
				QuantityDelta: rl.Quantity,
				Serials:       rl.Serials,
				ActorID:       actor.UserID,
				At:            at,
			})
		}

		op := shipment.PhysicalOpReceiveClean
		if discrepant {
			op = shipment.PhysicalOpReceiveDiscrepant
		}
		to, err := shipment.AdvancePhysical(s, op)
		if err != nil {
			return nil, err
		}
		s.AppendPhysicalStatus(to, actor, e.newID(), at)
		return receipts, nil
	})
}

// validateReceipt checks every submitted line against the record and the
// inventory item it targets, returning the lines with trimmed serials.
func (e *Engine) validateReceipt(ctx context.Context, s *shipment.Shipment, lines []ReceivedLine) ([]ReceivedLine, error) {
	if len(lines) == 0 {
		return nil, shipment.Validation("at least one received line is required")
	}

	seenLines := make(map[int64]bool, len(lines))
	seenSerials := make(map[string]bool)
	out := make([]ReceivedLine, 0, len(lines))

	for _, rl := range lines {
		li, ok := s.LineItem(rl.LineItemID)
		if !ok {
			return nil, shipment.NotFound(fmt.Sprintf("line item %d not found on shipment %d", rl.LineItemID, s.ID))
		}
		if seenLines[rl.LineItemID] {
			return nil, shipment.Validation(fmt.Sprintf("line item %d submitted more than once", rl.LineItemID))
		}
		seenLines[rl.LineItemID] = true
		if rl.Quantity < 0 {
			return nil, shipment.Validation(fmt.Sprintf("line item %d: received quantity must not be negative", rl.LineItemID))
		}

		item, err := e.inventory.GetItem(ctx, li.InventoryItemID)
		if err != nil {
			return nil, err
		}

		if !item.Serialized {
			if len(rl.Serials) > 0 {
				return nil, shipment.Validation(fmt.Sprintf(
					"line item %d: inventory item %d is not serialized", rl.LineItemID, item.ID))
			}
			out = append(out, ReceivedLine{LineItemID: rl.LineItemID, Quantity: rl.Quantity})
			continue
		}

		if len(rl.Serials) != rl.Quantity {
			return nil, shipment.QuantityMismatch(fmt.Sprintf(
				"line item %d: %d serials for received quantity %d", rl.LineItemID, len(rl.Serials), rl.Quantity))
		}
		already := make(map[string]bool, len(li.ReceivedSerials))
		for _, sn := range li.ReceivedSerials {
			already[sn] = true
		}
		serials := make([]string, 0, len(rl.Serials))
		for _, raw := range rl.Serials {
			sn := strings.TrimSpace(raw)
			if sn == "" {
				return nil, shipment.QuantityMismatch(fmt.Sprintf("line item %d: empty serial number", rl.LineItemID))
			}
			if seenSerials[sn] {
				return nil, shipment.QuantityMismatch(fmt.Sprintf("line item %d: serial %q repeated in submission", rl.LineItemID, sn))
			}
			if already[sn] {
				return nil, shipment.QuantityMismatch(fmt.Sprintf("line item %d: serial %q was already received", rl.LineItemID, sn))
			}
			seenSerials[sn] = true
			serials = append(serials, sn)
		}
		out = append(out, ReceivedLine{LineItemID: rl.LineItemID, Quantity: rl.Quantity, Serials: serials})
	}
	return out, nil
}
