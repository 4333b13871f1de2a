package repository

import (
	"fmt"
	"strings"

	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/shipment"
)

// checkReceipt validates a receipt against the item kind before any write
func checkReceipt(serialized bool, rc shipment.Receipt) error {
	if rc.QuantityDelta < 0 {
		return shipment.Validation(fmt.Sprintf("inventory item %d: quantity delta must not be negative", rc.ItemID))
	}
	if !serialized {
		if len(rc.Serials) > 0 {
			return shipment.Validation(fmt.Sprintf("inventory item %d is not serialized", rc.ItemID))
		}
		return nil
	}
	if len(rc.Serials) != rc.QuantityDelta {
		return shipment.QuantityMismatch(fmt.Sprintf(
			"inventory item %d: %d serials for quantity %d", rc.ItemID, len(rc.Serials), rc.QuantityDelta))
	}
	seen := make(map[string]bool, len(rc.Serials))
	for _, sn := range rc.Serials {
		if strings.TrimSpace(sn) == "" {
			return shipment.QuantityMismatch(fmt.Sprintf("inventory item %d: empty serial number", rc.ItemID))
		}
		if seen[sn] {
			return shipment.QuantityMismatch(fmt.Sprintf("inventory item %d: serial %q repeated", rc.ItemID, sn))
		}
		seen[sn] = true
	}
	return nil
}

func duplicateSerial(itemID int64, serial string) error {
	return shipment.Validation(fmt.Sprintf("serial %q is already registered for inventory item %d", serial, itemID))
}

// checkNewItem holds seeded stock to the rules receipts follow: serialized
// items carry one distinct serial per unit on hand.
func checkNewItem(item *shipment.InventoryItem) error {
	if item.OnHand < 0 {
		return shipment.Validation(fmt.Sprintf("inventory item %q: on_hand must not be negative", item.SKU))
	}
	if !item.Serialized {
		if len(item.Serials) > 0 {
			return shipment.Validation(fmt.Sprintf("inventory item %q is not serialized", item.SKU))
		}
		return nil
	}
	if len(item.Serials) != item.OnHand {
		return shipment.QuantityMismatch(fmt.Sprintf(
			"inventory item %q: %d serials for on_hand %d", item.SKU, len(item.Serials), item.OnHand))
	}
	seen := make(map[string]bool, len(item.Serials))
	for _, sn := range item.Serials {
		if strings.TrimSpace(sn) == "" {
			return shipment.QuantityMismatch(fmt.Sprintf("inventory item %q: empty serial number", item.SKU))
		}
		if seen[sn] {
			return shipment.QuantityMismatch(fmt.Sprintf("inventory item %q: serial %q repeated", item.SKU, sn))
		}
		seen[sn] = true
	}
	return nil
}
