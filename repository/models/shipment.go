package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Shipment represents an Advance Shipping Notice
type Shipment struct {
	ID                   int64           `gorm:"column:shipment_id;primaryKey;autoIncrement"`
	Supplier             string          `gorm:"column:supplier;type:varchar(100);not null"`
	Carrier              string          `gorm:"column:carrier;type:varchar(100)"`
	PurchaseOrderRef     string          `gorm:"column:purchase_order_ref;type:varchar(50);index;not null"`
	Department           string          `gorm:"column:department;type:varchar(50)"`
	ExpectedArrival      time.Time       `gorm:"column:expected_arrival"`
	PhysicalStatus       string          `gorm:"column:physical_status;type:varchar(20);index;not null"`
	FeeStatus            string          `gorm:"column:fee_status;type:varchar(20);index;not null"`
	BrokerUserID         *string         `gorm:"column:broker_user_id;type:varchar(50);index"`
	BrokerName           string          `gorm:"column:broker_name;type:varchar(100)"`
	Duties               decimal.Decimal `gorm:"column:duties;type:decimal(14,2);not null;default:0"`
	ShippingFee          decimal.Decimal `gorm:"column:shipping_fee;type:decimal(14,2);not null;default:0"`
	StorageFee           decimal.Decimal `gorm:"column:storage_fee;type:decimal(14,2);not null;default:0"`
	TotalFee             decimal.Decimal `gorm:"column:total_fee;type:decimal(14,2);not null;default:0"`
	PaymentAttachmentRef string          `gorm:"column:payment_attachment_ref;type:varchar(255)"`
	Version              int64           `gorm:"column:version;not null;default:1"`
	CreatedAt            time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time       `gorm:"column:updated_at"`

	// Relationships
	LineItems             []LineItem            `gorm:"foreignKey:ShipmentID"`
	FeeStatusHistory      []FeeStatusEntry      `gorm:"foreignKey:ShipmentID"`
	PhysicalStatusHistory []PhysicalStatusEntry `gorm:"foreignKey:ShipmentID"`
}

// LineItem is one expected inventory item on a shipment
type LineItem struct {
	ID               int64      `gorm:"column:line_item_id;primaryKey;autoIncrement"`
	ShipmentID       int64      `gorm:"column:shipment_id;not null;uniqueIndex:idx_line_item_shipment_item"`
	InventoryItemID  int64      `gorm:"column:inventory_item_id;not null;uniqueIndex:idx_line_item_shipment_item"`
	ExpectedQuantity int        `gorm:"column:expected_qty;not null"`
	ReceivedQuantity int        `gorm:"column:received_qty;not null;default:0"`
	ReceivedSerials  []string   `gorm:"column:received_serials;type:jsonb;serializer:json"`
	Receipts         int        `gorm:"column:receipts;not null;default:0"`
	LastReceivedAt   *time.Time `gorm:"column:last_received_at"`
}

// FeeStatusEntry is an append-only fee transition record
type FeeStatusEntry struct {
	ID             string    `gorm:"column:fee_status_entry_id;primaryKey;type:varchar(36)"`
	ShipmentID     int64     `gorm:"column:shipment_id;not null;index"`
	Seq            int       `gorm:"column:seq;not null"`
	Status         string    `gorm:"column:status;type:varchar(20);not null"`
	PreviousStatus string    `gorm:"column:previous_status;type:varchar(20);not null"`
	ActorID        string    `gorm:"column:actor_id;type:varchar(50);not null"`
	ActorRole      string    `gorm:"column:actor_role;type:varchar(20);not null"`
	Note           string    `gorm:"column:note;type:text"`
	Timestamp      time.Time `gorm:"column:timestamp;not null"`
}

// PhysicalStatusEntry is an append-only physical transition record
type PhysicalStatusEntry struct {
	ID             string    `gorm:"column:physical_status_entry_id;primaryKey;type:varchar(36)"`
	ShipmentID     int64     `gorm:"column:shipment_id;not null;index"`
	Seq            int       `gorm:"column:seq;not null"`
	Status         string    `gorm:"column:status;type:varchar(20);not null"`
	PreviousStatus string    `gorm:"column:previous_status;type:varchar(20);not null"`
	ActorID        string    `gorm:"column:actor_id;type:varchar(50);not null"`
	ActorRole      string    `gorm:"column:actor_role;type:varchar(20);not null"`
	Timestamp      time.Time `gorm:"column:timestamp;not null"`
}
