package models

import "time"

// InventoryItem represents a stock-keeping unit that shipments receive into
type InventoryItem struct {
	ID         int64     `gorm:"column:inventory_item_id;primaryKey;autoIncrement"`
	SKU        string    `gorm:"column:sku;type:varchar(50);uniqueIndex;not null"`
	Name       string    `gorm:"column:name;type:varchar(100);not null"`
	Serialized bool      `gorm:"column:is_serialized;default:false"`
	OnHand     int       `gorm:"column:on_hand;not null;default:0"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`

	// Relationships
	Serials []InventorySerial `gorm:"foreignKey:ItemID"`
}

// InventorySerial registers one serial number; unique per item
type InventorySerial struct {
	ID         int64     `gorm:"column:inventory_serial_id;primaryKey;autoIncrement"`
	ItemID     int64     `gorm:"column:inventory_item_id;not null;uniqueIndex:idx_serial_item_number"`
	Serial     string    `gorm:"column:serial;type:varchar(100);not null;uniqueIndex:idx_serial_item_number"`
	ShipmentID int64     `gorm:"column:shipment_id;index"`
	ReceivedAt time.Time `gorm:"column:received_at;not null"`
}

// InventoryMovement is the audit trail of every applied receipt
type InventoryMovement struct {
	ID            string    `gorm:"column:inventory_movement_id;primaryKey;type:varchar(36)"`
	ItemID        int64     `gorm:"column:inventory_item_id;not null;index"`
	ShipmentID    int64     `gorm:"column:shipment_id;index"`
	QuantityDelta int       `gorm:"column:qty_delta;not null"`
	Serials       []string  `gorm:"column:serials;type:jsonb;serializer:json"`
	ActorID       string    `gorm:"column:actor_id;type:varchar(50)"`
	Timestamp     time.Time `gorm:"column:timestamp;not null"`
}
