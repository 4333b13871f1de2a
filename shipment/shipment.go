package shipment

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Broker is the identity assigned to handle customs and shipping fees
type Broker struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// FeeBreakdown holds the three fee components of a shipment
type FeeBreakdown struct {
	Duties   decimal.Decimal `json:"duties"`
	Shipping decimal.Decimal `json:"shipping"`
	Storage  decimal.Decimal `json:"storage"`
}

// Total is the sum of the three components
func (f FeeBreakdown) Total() decimal.Decimal {
	return f.Duties.Add(f.Shipping).Add(f.Storage)
}

// Validate requires every component to be non-negative and at least one positive
func (f FeeBreakdown) Validate() error {
	components := []struct {
		name  string
		value decimal.Decimal
	}{
		{"duties", f.Duties},
		{"shipping", f.Shipping},
		{"storage", f.Storage},
	}
	positive := false
	for _, c := range components {
		if c.value.IsNegative() {
			return Validation(fmt.Sprintf("%s fee must not be negative, got %s", c.name, c.value.StringFixed(2)))
		}
		if c.value.IsPositive() {
			positive = true
		}
	}
	if !positive {
		return Validation("at least one fee component must be greater than zero")
	}
	return nil
}

// FeeStatusEntry is one append-only record of a fee transition
type FeeStatusEntry struct {
	ID             string    `json:"id"`
	Status         FeeStatus `json:"status"`
	PreviousStatus FeeStatus `json:"previous_status"`
	ActorID        string    `json:"actor_id"`
	ActorRole      Role      `json:"actor_role"`
	Note           string    `json:"note,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// PhysicalStatusEntry is one append-only record of a physical transition
type PhysicalStatusEntry struct {
	ID             string         `json:"id"`
	Status         PhysicalStatus `json:"status"`
	PreviousStatus PhysicalStatus `json:"previous_status"`
	ActorID        string         `json:"actor_id"`
	ActorRole      Role           `json:"actor_role"`
	Timestamp      time.Time      `json:"timestamp"`
}

// LineItem is one inventory item expected on the shipment, with what has been
// received against it so far.
type LineItem struct {
	ID               int64      `json:"id"`
	ShipmentID       int64      `json:"shipment_id"`
	InventoryItemID  int64      `json:"inventory_item_id"`
	ExpectedQuantity int        `json:"expected_quantity"`
	ReceivedQuantity int        `json:"received_quantity"`
	ReceivedSerials  []string   `json:"received_serials,omitempty"`
	Receipts         int        `json:"receipts"`
	LastReceivedAt   *time.Time `json:"last_received_at,omitempty"`
}

// Received reports whether at least one receipt has been recorded for the line
func (l LineItem) Received() bool {
	return l.Receipts > 0
}

// Discrepant reports whether the received quantity differs from expectation
func (l LineItem) Discrepant() bool {
	return l.Received() && l.ReceivedQuantity != l.ExpectedQuantity
}

// Shipment is the Advance Shipping Notice record
type Shipment struct {
	ID                    int64                 `json:"id"`
	Supplier              string                `json:"supplier"`
	Carrier               string                `json:"carrier"`
	PurchaseOrderRef      string                `json:"purchase_order_ref"`
	Department            string                `json:"department"`
	ExpectedArrival       time.Time             `json:"expected_arrival"`
	PhysicalStatus        PhysicalStatus        `json:"physical_status"`
	FeeStatus             FeeStatus             `json:"fee_status"`
	Broker                *Broker               `json:"broker,omitempty"`
	Fees                  FeeBreakdown          `json:"fees"`
	TotalFee              decimal.Decimal       `json:"total_fee"`
	FeeStatusHistory      []FeeStatusEntry      `json:"fee_status_history"`
	PhysicalStatusHistory []PhysicalStatusEntry `json:"physical_status_history"`
	PaymentAttachmentRef  string                `json:"payment_attachment_ref,omitempty"`
	LineItems             []LineItem            `json:"line_items"`
	Version               int64                 `json:"version"`
	CreatedAt             time.Time             `json:"created_at"`
	UpdatedAt             time.Time             `json:"updated_at"`
}

// Precondition is the state a compare-and-swap write expects to find
type Precondition struct {
	Version        int64
	FeeStatus      FeeStatus
	PhysicalStatus PhysicalStatus
}

func (p Precondition) String() string {
	return fmt.Sprintf("v%d fee=%s physical=%s", p.Version, p.FeeStatus, p.PhysicalStatus)
}

// Precondition captures the current version and both statuses
func (s *Shipment) Precondition() Precondition {
	return Precondition{
		Version:        s.Version,
		FeeStatus:      s.FeeStatus,
		PhysicalStatus: s.PhysicalStatus,
	}
}

// Matches reports whether s is still in the state p was captured from
func (p Precondition) Matches(s *Shipment) bool {
	return s.Version == p.Version && s.FeeStatus == p.FeeStatus && s.PhysicalStatus == p.PhysicalStatus
}

// Clone returns a deep copy so a candidate next state never aliases the loaded one
func (s *Shipment) Clone() *Shipment {
	c := *s
	if s.Broker != nil {
		b := *s.Broker
		c.Broker = &b
	}
	c.FeeStatusHistory = append([]FeeStatusEntry(nil), s.FeeStatusHistory...)
	c.PhysicalStatusHistory = append([]PhysicalStatusEntry(nil), s.PhysicalStatusHistory...)
	c.LineItems = make([]LineItem, len(s.LineItems))
	for i, l := range s.LineItems {
		l.ReceivedSerials = append([]string(nil), l.ReceivedSerials...)
		if l.LastReceivedAt != nil {
			t := *l.LastReceivedAt
			l.LastReceivedAt = &t
		}
		c.LineItems[i] = l
	}
	return &c
}

// LineItem returns a pointer into s.LineItems for the given line id
func (s *Shipment) LineItem(id int64) (*LineItem, bool) {
	for i := range s.LineItems {
		if s.LineItems[i].ID == id {
			return &s.LineItems[i], true
		}
	}
	return nil, false
}

// AllLinesReceived reports whether every line item has a recorded receipt
func (s *Shipment) AllLinesReceived() bool {
	for _, l := range s.LineItems {
		if !l.Received() {
			return false
		}
	}
	return true
}

// HasDiscrepancy reports whether any received line differs from expectation
func (s *Shipment) HasDiscrepancy() bool {
	for _, l := range s.LineItems {
		if l.Discrepant() {
			return true
		}
	}
	return false
}

// SetFees stores the breakdown and keeps TotalFee in sync
func (s *Shipment) SetFees(f FeeBreakdown) {
	s.Fees = f
	s.TotalFee = f.Total()
}

// AppendFeeStatus moves the fee status and records exactly one history entry.
// Timestamps never go backwards even if the wall clock does.
func (s *Shipment) AppendFeeStatus(to FeeStatus, actor Actor, note, entryID string, at time.Time) {
	if n := len(s.FeeStatusHistory); n > 0 && at.Before(s.FeeStatusHistory[n-1].Timestamp) {
		at = s.FeeStatusHistory[n-1].Timestamp
	}
	s.FeeStatusHistory = append(s.FeeStatusHistory, FeeStatusEntry{
		ID:             entryID,
		Status:         to,
		PreviousStatus: s.FeeStatus,
		ActorID:        actor.UserID,
		ActorRole:      actor.Role,
		Note:           note,
		Timestamp:      at,
	})
	s.FeeStatus = to
}

// AppendPhysicalStatus moves the physical status and records one history entry.
// A self-transition (Processing -> Processing) is not recorded.
func (s *Shipment) AppendPhysicalStatus(to PhysicalStatus, actor Actor, entryID string, at time.Time) {
	if to == s.PhysicalStatus {
		return
	}
	if n := len(s.PhysicalStatusHistory); n > 0 && at.Before(s.PhysicalStatusHistory[n-1].Timestamp) {
		at = s.PhysicalStatusHistory[n-1].Timestamp
	}
	s.PhysicalStatusHistory = append(s.PhysicalStatusHistory, PhysicalStatusEntry{
		ID:             entryID,
		Status:         to,
		PreviousStatus: s.PhysicalStatus,
		ActorID:        actor.UserID,
		ActorRole:      actor.Role,
		Timestamp:      at,
	})
	s.PhysicalStatus = to
}

// NewShipment describes a record to be created
type NewShipment struct {
	Supplier         string         `json:"supplier"`
	Carrier          string         `json:"carrier"`
	PurchaseOrderRef string         `json:"purchase_order_ref"`
	Department       string         `json:"department"`
	ExpectedArrival  time.Time      `json:"expected_arrival"`
	PhysicalStatus   PhysicalStatus `json:"physical_status"`
	Broker           *Broker        `json:"broker,omitempty"`
	Lines            []NewLineItem  `json:"line_items"`
}

// NewLineItem is one expected inventory item on a new shipment
type NewLineItem struct {
	InventoryItemID  int64 `json:"inventory_item_id"`
	ExpectedQuantity int   `json:"expected_quantity"`
}

// Validate checks required fields and that each inventory item appears once
func (n *NewShipment) Validate() error {
	if strings.TrimSpace(n.Supplier) == "" {
		return Validation("supplier is required")
	}
	if strings.TrimSpace(n.PurchaseOrderRef) == "" {
		return Validation("purchase order reference is required")
	}
	if n.PhysicalStatus == "" {
		n.PhysicalStatus = PhysicalOnTime
	}
	if !n.PhysicalStatus.Initial() {
		return Validation(fmt.Sprintf("a shipment cannot be created in physical status %s", n.PhysicalStatus))
	}
	if n.Broker != nil && n.Broker.UserID == "" {
		return Validation("broker user id is required when a broker is given")
	}
	if len(n.Lines) == 0 {
		return Validation("at least one line item is required")
	}
	seen := make(map[int64]bool, len(n.Lines))
	for _, l := range n.Lines {
		if l.InventoryItemID <= 0 {
			return Validation("line item inventory item id is required")
		}
		if seen[l.InventoryItemID] {
			return Validation(fmt.Sprintf("inventory item %d appears on more than one line", l.InventoryItemID))
		}
		seen[l.InventoryItemID] = true
		if l.ExpectedQuantity <= 0 {
			return Validation(fmt.Sprintf("expected quantity for inventory item %d must be positive", l.InventoryItemID))
		}
	}
	return nil
}
