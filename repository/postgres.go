package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/repository/models"
	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/shipment"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresStore persists shipments and inventory in PostgreSQL through gorm.
// Transitions are conditional updates on (version, fee_status, physical_status).
type PostgresStore struct {
	db     *gorm.DB
	logger cmtlog.Logger
}

func NewPostgresStore(db *gorm.DB, logger cmtlog.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger.With("module", "repository", "driver", "postgres")}
}

// ConnectPostgres opens the database, retrying while it comes up
func ConnectPostgres(ctx context.Context, dsn string, attempts int, logger cmtlog.Logger) (*PostgresStore, error) {
	var lastErr error
	for i := range attempts {
		logger.Info("Connecting to Postgres", "attempt", i+1)
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			logger.Info("Connected to Postgres")
			return NewPostgresStore(db, logger), nil
		}
		lastErr = err
		logger.Error("Connection attempt failed", "attempt", i+1, "err", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return nil, fmt.Errorf("connecting to postgres after %d attempts: %w", attempts, lastErr)
}

// Migrate creates or updates the schema
func (r *PostgresStore) Migrate() error {
	err := r.db.AutoMigrate(
		&models.InventoryItem{},
		&models.InventorySerial{},
		&models.InventoryMovement{},
		&models.Shipment{},
		&models.LineItem{},
		&models.FeeStatusEntry{},
		&models.PhysicalStatusEntry{},
	)
	if err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	r.logger.Info("Database migration completed successfully")
	return nil
}

func (r *PostgresStore) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func preloadShipment(db *gorm.DB) *gorm.DB {
	return db.
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("line_item_id") }).
		Preload("FeeStatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("seq") }).
		Preload("PhysicalStatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("seq") })
}

func (r *PostgresStore) loadShipment(tx *gorm.DB, id int64) (*shipment.Shipment, error) {
	var row models.Shipment
	err := preloadShipment(tx).Where("shipment_id = ?", id).First(&row).Error
	if err != nil {
		return nil, toWorkflowError(err, fmt.Sprintf("shipment %d does not exist", id))
	}
	return shipmentFromModel(&row), nil
}

// LoadShipment returns the shipment with line items and both histories
func (r *PostgresStore) LoadShipment(ctx context.Context, id int64) (*shipment.Shipment, error) {
	return r.loadShipment(r.db.WithContext(ctx), id)
}

// ListShipments returns every shipment, newest first
func (r *PostgresStore) ListShipments(ctx context.Context) ([]*shipment.Shipment, error) {
	var rows []models.Shipment
	err := preloadShipment(r.db.WithContext(ctx)).Order("shipment_id DESC").Find(&rows).Error
	if err != nil {
		return nil, toWorkflowError(err, "")
	}
	out := make([]*shipment.Shipment, 0, len(rows))
	for i := range rows {
		out = append(out, shipmentFromModel(&rows[i]))
	}
	return out, nil
}

// CreateShipment inserts the shipment and its line items in one transaction
func (r *PostgresStore) CreateShipment(ctx context.Context, s *shipment.Shipment) (*shipment.Shipment, error) {
	row := shipmentToModel(s)
	row.ID = 0
	if row.Version == 0 {
		row.Version = 1
	}
	for i := range row.LineItems {
		row.LineItems[i].ID = 0
	}

	dbTx := r.db.WithContext(ctx).Begin()
	if err := dbTx.Create(row).Error; err != nil {
		dbTx.Rollback()
		return nil, toWorkflowError(err, "")
	}
	created, err := r.loadShipment(dbTx, row.ID)
	if err != nil {
		dbTx.Rollback()
		return nil, err
	}
	if err := dbTx.Commit().Error; err != nil {
		return nil, toWorkflowError(err, "")
	}
	return created, nil
}

// SaveShipmentTransition writes next only if the stored row still matches
// prior, appends new history entries and applies receipts, all in one
// transaction.
func (r *PostgresStore) SaveShipmentTransition(
	ctx context.Context,
	id int64,
	prior shipment.Precondition,
	next *shipment.Shipment,
	receipts ...shipment.Receipt,
) (*shipment.Shipment, error) {
	row := shipmentToModel(next)
	updates := map[string]interface{}{
		"supplier":               row.Supplier,
		"carrier":                row.Carrier,
		"purchase_order_ref":     row.PurchaseOrderRef,
		"department":             row.Department,
		"expected_arrival":       row.ExpectedArrival,
		"physical_status":        row.PhysicalStatus,
		"fee_status":             row.FeeStatus,
		"broker_user_id":         row.BrokerUserID,
		"broker_name":            row.BrokerName,
		"duties":                 row.Duties,
		"shipping_fee":           row.ShippingFee,
		"storage_fee":            row.StorageFee,
		"total_fee":              row.TotalFee,
		"payment_attachment_ref": row.PaymentAttachmentRef,
		"version":                prior.Version + 1,
		"updated_at":             row.UpdatedAt,
	}

	dbTx := r.db.WithContext(ctx).Begin()

	res := dbTx.Model(&models.Shipment{}).
		Where("shipment_id = ? AND version = ? AND fee_status = ? AND physical_status = ?",
			id, prior.Version, string(prior.FeeStatus), string(prior.PhysicalStatus)).
		Updates(updates)
	if res.Error != nil {
		dbTx.Rollback()
		return nil, toWorkflowError(res.Error, "")
	}
	if res.RowsAffected == 0 {
		dbTx.Rollback()
		return nil, r.missingOrConflict(ctx, id, prior)
	}

	for i := range row.LineItems {
		line := row.LineItems[i]
		err := dbTx.Model(&line).
			Select("received_qty", "received_serials", "receipts", "last_received_at").
			Updates(&line).Error
		if err != nil {
			dbTx.Rollback()
			return nil, toWorkflowError(err, "")
		}
	}

	if len(row.FeeStatusHistory) > 0 {
		if err := dbTx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row.FeeStatusHistory).Error; err != nil {
			dbTx.Rollback()
			return nil, toWorkflowError(err, "")
		}
	}
	if len(row.PhysicalStatusHistory) > 0 {
		if err := dbTx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row.PhysicalStatusHistory).Error; err != nil {
			dbTx.Rollback()
			return nil, toWorkflowError(err, "")
		}
	}

	for _, rc := range receipts {
		if err := r.applyReceipt(dbTx, rc); err != nil {
			dbTx.Rollback()
			return nil, err
		}
	}

	saved, err := r.loadShipment(dbTx, id)
	if err != nil {
		dbTx.Rollback()
		return nil, err
	}
	if err := dbTx.Commit().Error; err != nil {
		return nil, toWorkflowError(err, "")
	}
	return saved, nil
}

func (r *PostgresStore) missingOrConflict(ctx context.Context, id int64, prior shipment.Precondition) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Shipment{}).Where("shipment_id = ?", id).Count(&count).Error; err != nil {
		return toWorkflowError(err, "")
	}
	if count == 0 {
		return shipment.NotFound(fmt.Sprintf("shipment %d does not exist", id))
	}
	e := shipment.Conflict("shipment was modified concurrently, re-fetch and retry")
	e.Detail = "expected " + prior.String()
	return e
}

// DeleteShipment removes the shipment and its line items if it still matches prior
func (r *PostgresStore) DeleteShipment(ctx context.Context, id int64, prior shipment.Precondition) error {
	dbTx := r.db.WithContext(ctx).Begin()

	var row models.Shipment
	err := dbTx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("shipment_id = ?", id).First(&row).Error
	if err != nil {
		dbTx.Rollback()
		return toWorkflowError(err, fmt.Sprintf("shipment %d does not exist", id))
	}
	if row.Version != prior.Version || row.FeeStatus != string(prior.FeeStatus) || row.PhysicalStatus != string(prior.PhysicalStatus) {
		dbTx.Rollback()
		return shipment.Conflict("shipment was modified concurrently, re-fetch and retry")
	}

	steps := []interface{}{
		&models.LineItem{},
		&models.FeeStatusEntry{},
		&models.PhysicalStatusEntry{},
	}
	for _, m := range steps {
		if err := dbTx.Where("shipment_id = ?", id).Delete(m).Error; err != nil {
			dbTx.Rollback()
			return toWorkflowError(err, "")
		}
	}
	if err := dbTx.Where("shipment_id = ?", id).Delete(&models.Shipment{}).Error; err != nil {
		dbTx.Rollback()
		return toWorkflowError(err, "")
	}
	if err := dbTx.Commit().Error; err != nil {
		return toWorkflowError(err, "")
	}
	return nil
}

// CreateItem registers an inventory item
func (r *PostgresStore) CreateItem(ctx context.Context, item *shipment.InventoryItem) (*shipment.InventoryItem, error) {
	if err := checkNewItem(item); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	row := models.InventoryItem{
		SKU:        item.SKU,
		Name:       item.Name,
		Serialized: item.Serialized,
		OnHand:     item.OnHand,
		UpdatedAt:  now,
	}
	for _, sn := range item.Serials {
		row.Serials = append(row.Serials, models.InventorySerial{Serial: sn, ReceivedAt: now})
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, toWorkflowError(err, "")
	}
	return itemFromModel(&row), nil
}

// GetItem returns an inventory item with its registered serials
func (r *PostgresStore) GetItem(ctx context.Context, id int64) (*shipment.InventoryItem, error) {
	var row models.InventoryItem
	err := r.db.WithContext(ctx).
		Preload("Serials", func(db *gorm.DB) *gorm.DB { return db.Order("inventory_serial_id") }).
		Where("inventory_item_id = ?", id).
		First(&row).Error
	if err != nil {
		return nil, toWorkflowError(err, fmt.Sprintf("inventory item %d does not exist", id))
	}
	return itemFromModel(&row), nil
}

// ApplyReceipt applies one receipt in its own transaction
func (r *PostgresStore) ApplyReceipt(ctx context.Context, rc shipment.Receipt) error {
	dbTx := r.db.WithContext(ctx).Begin()
	if err := r.applyReceipt(dbTx, rc); err != nil {
		dbTx.Rollback()
		return err
	}
	if err := dbTx.Commit().Error; err != nil {
		return toWorkflowError(err, "")
	}
	return nil
}

func (r *PostgresStore) applyReceipt(tx *gorm.DB, rc shipment.Receipt) error {
	var item models.InventoryItem
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("inventory_item_id = ?", rc.ItemID).First(&item).Error
	if err != nil {
		return toWorkflowError(err, fmt.Sprintf("inventory item %d does not exist", rc.ItemID))
	}
	if err := checkReceipt(item.Serialized, rc); err != nil {
		return err
	}

	if len(rc.Serials) > 0 {
		serials := make([]models.InventorySerial, 0, len(rc.Serials))
		for _, sn := range rc.Serials {
			serials = append(serials, models.InventorySerial{
				ItemID:     rc.ItemID,
				Serial:     sn,
				ShipmentID: rc.ShipmentID,
				ReceivedAt: rc.At,
			})
		}
		if err := tx.Create(&serials).Error; err != nil {
			return toWorkflowError(err, "")
		}
	}

	err = tx.Model(&models.InventoryItem{}).
		Where("inventory_item_id = ?", rc.ItemID).
		Updates(map[string]interface{}{
			"on_hand":    gorm.Expr("on_hand + ?", rc.QuantityDelta),
			"updated_at": rc.At,
		}).Error
	if err != nil {
		return toWorkflowError(err, "")
	}

	movement := models.InventoryMovement{
		ID:            uuid.NewString(),
		ItemID:        rc.ItemID,
		ShipmentID:    rc.ShipmentID,
		QuantityDelta: rc.QuantityDelta,
		Serials:       rc.Serials,
		ActorID:       rc.ActorID,
		Timestamp:     rc.At,
	}
	if err := tx.Create(&movement).Error; err != nil {
		return toWorkflowError(err, "")
	}
	return nil
}

// Movements lists the movements recorded for an item, oldest first
func (r *PostgresStore) Movements(ctx context.Context, itemID int64) ([]shipment.Movement, error) {
	var rows []models.InventoryMovement
	err := r.db.WithContext(ctx).Where("inventory_item_id = ?", itemID).Order("timestamp, inventory_movement_id").Find(&rows).Error
	if err != nil {
		return nil, toWorkflowError(err, "")
	}
	out := make([]shipment.Movement, 0, len(rows))
	for _, m := range rows {
		out = append(out, shipment.Movement{
			ID:            m.ID,
			ItemID:        m.ItemID,
			ShipmentID:    m.ShipmentID,
			QuantityDelta: m.QuantityDelta,
			Serials:       m.Serials,
			ActorID:       m.ActorID,
			Timestamp:     m.Timestamp,
		})
	}
	return out, nil
}
