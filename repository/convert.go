package repository

import (
	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/repository/models"
	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/shipment"
)

func shipmentToModel(s *shipment.Shipment) *models.Shipment {
	m := &models.Shipment{
		ID:                   s.ID,
		Supplier:             s.Supplier,
		Carrier:              s.Carrier,
		PurchaseOrderRef:     s.PurchaseOrderRef,
		Department:           s.Department,
		ExpectedArrival:      s.ExpectedArrival,
		PhysicalStatus:       string(s.PhysicalStatus),
		FeeStatus:            string(s.FeeStatus),
		Duties:               s.Fees.Duties,
		ShippingFee:          s.Fees.Shipping,
		StorageFee:           s.Fees.Storage,
		TotalFee:             s.TotalFee,
		PaymentAttachmentRef: s.PaymentAttachmentRef,
		Version:              s.Version,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
	if s.Broker != nil {
		id := s.Broker.UserID
		m.BrokerUserID = &id
		m.BrokerName = s.Broker.Name
	}
	for _, l := range s.LineItems {
		m.LineItems = append(m.LineItems, lineItemToModel(s.ID, l))
	}
	m.FeeStatusHistory = feeHistoryToModel(s.ID, s.FeeStatusHistory)
	m.PhysicalStatusHistory = physicalHistoryToModel(s.ID, s.PhysicalStatusHistory)
	return m
}

func lineItemToModel(shipmentID int64, l shipment.LineItem) models.LineItem {
	return models.LineItem{
		ID:               l.ID,
		ShipmentID:       shipmentID,
		InventoryItemID:  l.InventoryItemID,
		ExpectedQuantity: l.ExpectedQuantity,
		ReceivedQuantity: l.ReceivedQuantity,
		ReceivedSerials:  l.ReceivedSerials,
		Receipts:         l.Receipts,
		LastReceivedAt:   l.LastReceivedAt,
	}
}

func feeHistoryToModel(shipmentID int64, entries []shipment.FeeStatusEntry) []models.FeeStatusEntry {
	out := make([]models.FeeStatusEntry, 0, len(entries))
	for i, e := range entries {
		out = append(out, models.FeeStatusEntry{
			ID:             e.ID,
			ShipmentID:     shipmentID,
			Seq:            i,
			Status:         string(e.Status),
			PreviousStatus: string(e.PreviousStatus),
			ActorID:        e.ActorID,
			ActorRole:      string(e.ActorRole),
			Note:           e.Note,
			Timestamp:      e.Timestamp,
		})
	}
	return out
}

func physicalHistoryToModel(shipmentID int64, entries []shipment.PhysicalStatusEntry) []models.PhysicalStatusEntry {
	out := make([]models.PhysicalStatusEntry, 0, len(entries))
	for i, e := range entries {
		out = append(out, models.PhysicalStatusEntry{
			ID:             e.ID,
			ShipmentID:     shipmentID,
			Seq:            i,
			Status:         string(e.Status),
			PreviousStatus: string(e.PreviousStatus),
			ActorID:        e.ActorID,
			ActorRole:      string(e.ActorRole),
			Timestamp:      e.Timestamp,
		})
	}
	return out
}

// shipmentFromModel expects associations preloaded in Seq / id order
func shipmentFromModel(m *models.Shipment) *shipment.Shipment {
	s := &shipment.Shipment{
		ID:               m.ID,
		Supplier:         m.Supplier,
		Carrier:          m.Carrier,
		PurchaseOrderRef: m.PurchaseOrderRef,
		Department:       m.Department,
		ExpectedArrival:  m.ExpectedArrival,
		PhysicalStatus:   shipment.PhysicalStatus(m.PhysicalStatus),
		FeeStatus:        shipment.FeeStatus(m.FeeStatus),
		Fees: shipment.FeeBreakdown{
			Duties:   m.Duties,
			Shipping: m.ShippingFee,
			Storage:  m.StorageFee,
		},
		TotalFee:              m.TotalFee,
		PaymentAttachmentRef:  m.PaymentAttachmentRef,
		Version:               m.Version,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
		FeeStatusHistory:      make([]shipment.FeeStatusEntry, 0, len(m.FeeStatusHistory)),
		PhysicalStatusHistory: make([]shipment.PhysicalStatusEntry, 0, len(m.PhysicalStatusHistory)),
		LineItems:             make([]shipment.LineItem, 0, len(m.LineItems)),
	}
	if m.BrokerUserID != nil {
		s.Broker = &shipment.Broker{UserID: *m.BrokerUserID, Name: m.BrokerName}
	}
	for _, l := range m.LineItems {
		s.LineItems = append(s.LineItems, shipment.LineItem{
			ID:               l.ID,
			ShipmentID:       l.ShipmentID,
			InventoryItemID:  l.InventoryItemID,
			ExpectedQuantity: l.ExpectedQuantity,
			ReceivedQuantity: l.ReceivedQuantity,
			ReceivedSerials:  l.ReceivedSerials,
			Receipts:         l.Receipts,
			LastReceivedAt:   l.LastReceivedAt,
		})
	}
	for _, e := range m.FeeStatusHistory {
		s.FeeStatusHistory = append(s.FeeStatusHistory, shipment.FeeStatusEntry{
			ID:             e.ID,
			Status:         shipment.FeeStatus(e.Status),
			PreviousStatus: shipment.FeeStatus(e.PreviousStatus),
			ActorID:        e.ActorID,
			ActorRole:      shipment.Role(e.ActorRole),
			Note:           e.Note,
			Timestamp:      e.Timestamp,
		})
	}
	for _, e := range m.PhysicalStatusHistory {
		s.PhysicalStatusHistory = append(s.PhysicalStatusHistory, shipment.PhysicalStatusEntry{
			ID:             e.ID,
			Status:         shipment.PhysicalStatus(e.Status),
			PreviousStatus: shipment.PhysicalStatus(e.PreviousStatus),
			ActorID:        e.ActorID,
			ActorRole:      shipment.Role(e.ActorRole),
			Timestamp:      e.Timestamp,
		})
	}
	return s
}

func itemFromModel(m *models.InventoryItem) *shipment.InventoryItem {
	item := &shipment.InventoryItem{
		ID:         m.ID,
		SKU:        m.SKU,
		Name:       m.Name,
		Serialized: m.Serialized,
		OnHand:     m.OnHand,
		UpdatedAt:  m.UpdatedAt,
	}
	for _, s := range m.Serials {
		item.Serials = append(item.Serials, s.Serial)
	}
	return item
}
