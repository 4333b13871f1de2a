package shipment

import "time"

// InventoryItem is the stock record a shipment line receives into
type InventoryItem struct {
	ID         int64     `json:"id"`
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	Serialized bool      `json:"serialized"`
	OnHand     int       `json:"on_hand"`
	Serials    []string  `json:"serials,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Receipt is one line's inventory effect of a ReceiveShipment call
type Receipt struct {
	ItemID        int64     `json:"item_id"`
	ShipmentID    int64     `json:"shipment_id"`
	LineItemID    int64     `json:"line_item_id"`
	QuantityDelta int       `json:"quantity_delta"`
	Serials       []string  `json:"serials,omitempty"`
	ActorID       string    `json:"actor_id"`
	At            time.Time `json:"at"`
}

// Movement is the audit entry written for every applied receipt
type Movement struct {
	ID            string    `json:"id"`
	ItemID        int64     `json:"item_id"`
	ShipmentID    int64     `json:"shipment_id"`
	QuantityDelta int       `json:"quantity_delta"`
	Serials       []string  `json:"serials,omitempty"`
	ActorID       string    `json:"actor_id"`
	Timestamp     time.Time `json:"timestamp"`
}
