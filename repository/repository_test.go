package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/shipment"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/dgraph-io/badger/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestToWorkflowError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want *shipment.Error
	}{
		{"gorm not found", gorm.ErrRecordNotFound, shipment.ErrNotFound},
		{"badger not found", fmt.Errorf("get: %w", badger.ErrKeyNotFound), shipment.ErrNotFound},
		{"badger conflict", badger.ErrConflict, shipment.ErrConflict},
		{"unique violation", &pgconn.PgError{Code: PgErrUniqueViolation, ConstraintName: "idx_serial_item_number"}, shipment.ErrValidation},
		{"foreign key", &pgconn.PgError{Code: PgErrForeignKeyViolation}, shipment.ErrValidation},
		{"serialization", &pgconn.PgError{Code: PgErrSerializationFailure}, shipment.ErrConflict},
		{"deadlock", &pgconn.PgError{Code: PgErrDeadlockDetected}, shipment.ErrConflict},
		{"other pg", &pgconn.PgError{Code: "53300"}, shipment.ErrStorage},
		{"plain", errors.New("connection reset"), shipment.ErrStorage},
		{"typed passes through", shipment.QuantityMismatch("x"), shipment.ErrQuantityMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toWorkflowError(tt.err, "missing")
			require.Error(t, got)
			assert.True(t, errors.Is(got, tt.want), "got %v", got)
		})
	}
	assert.NoError(t, toWorkflowError(nil, ""))
}

func TestToWorkflowErrorKeepsDriverDetail(t *testing.T) {
	err := toWorkflowError(&pgconn.PgError{Code: PgErrUniqueViolation, Message: "dup", Detail: "Key (serial)=(SN-1)"}, "")
	var repoErr *RepositoryError
	require.True(t, errors.As(err, &repoErr))
	assert.Equal(t, PgErrUniqueViolation, repoErr.Code)
}

func TestCheckReceipt(t *testing.T) {
	assert.NoError(t, checkReceipt(false, shipment.Receipt{QuantityDelta: 4}))
	assert.NoError(t, checkReceipt(true, shipment.Receipt{QuantityDelta: 2, Serials: []string{"A", "B"}}))
	assert.True(t, errors.Is(checkReceipt(false, shipment.Receipt{QuantityDelta: 1, Serials: []string{"A"}}), shipment.ErrValidation))
	assert.True(t, errors.Is(checkReceipt(true, shipment.Receipt{QuantityDelta: 2, Serials: []string{"A", "A"}}), shipment.ErrQuantityMismatch))
	assert.True(t, errors.Is(checkReceipt(true, shipment.Receipt{QuantityDelta: 1, Serials: []string{" "}}), shipment.ErrQuantityMismatch))
	assert.True(t, errors.Is(checkReceipt(true, shipment.Receipt{QuantityDelta: 1}), shipment.ErrQuantityMismatch))
	assert.True(t, errors.Is(checkReceipt(false, shipment.Receipt{QuantityDelta: -1}), shipment.ErrValidation))
}

func TestCheckNewItem(t *testing.T) {
	tests := []struct {
		name string
		item shipment.InventoryItem
		want error
	}{
		{"bulk", shipment.InventoryItem{SKU: "CBL", OnHand: 4}, nil},
		{"serialized seeded", shipment.InventoryItem{SKU: "LAP", Serialized: true, OnHand: 2, Serials: []string{"A", "B"}}, nil},
		{"serialized empty", shipment.InventoryItem{SKU: "LAP", Serialized: true}, nil},
		{"negative on hand", shipment.InventoryItem{SKU: "CBL", OnHand: -1}, shipment.ErrValidation},
		{"serials on bulk", shipment.InventoryItem{SKU: "CBL", OnHand: 1, Serials: []string{"A"}}, shipment.ErrValidation},
		{"count mismatch", shipment.InventoryItem{SKU: "LAP", Serialized: true, OnHand: 2, Serials: []string{"A"}}, shipment.ErrQuantityMismatch},
		{"repeated serial", shipment.InventoryItem{SKU: "LAP", Serialized: true, OnHand: 2, Serials: []string{"A", "A"}}, shipment.ErrQuantityMismatch},
		{"blank serial", shipment.InventoryItem{SKU: "LAP", Serialized: true, OnHand: 1, Serials: []string{" "}}, shipment.ErrQuantityMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkNewItem(&tt.item)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

// TestPostgresStore runs against a live database when ASN_TEST_POSTGRES_DSN is set
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("ASN_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ASN_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := ConnectPostgres(ctx, dsn, 1, cmtlog.NewNopLogger())
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Migrate())

	sku := fmt.Sprintf("TEST-%d", time.Now().UnixNano())
	item, err := s.CreateItem(ctx, &shipment.InventoryItem{SKU: sku, Name: "Test laptop", Serialized: true})
	require.NoError(t, err)

	created, err := s.CreateShipment(ctx, newRecord(item.ID))
	require.NoError(t, err)
	require.Len(t, created.LineItems, 1)

	next := created.Clone()
	next.LineItems[0].ReceivedQuantity = 1
	next.LineItems[0].ReceivedSerials = []string{sku + "-SN1"}
	next.LineItems[0].Receipts = 1
	rc := shipment.Receipt{ItemID: item.ID, ShipmentID: created.ID, QuantityDelta: 1, Serials: []string{sku + "-SN1"}, At: time.Now().UTC()}
	saved, err := s.SaveShipmentTransition(ctx, created.ID, created.Precondition(), next, rc)
	require.NoError(t, err)
	assert.EqualValues(t, 2, saved.Version)
	assert.Equal(t, 1, saved.LineItems[0].ReceivedQuantity)

	_, err = s.SaveShipmentTransition(ctx, created.ID, created.Precondition(), next)
	assert.True(t, errors.Is(err, shipment.ErrConflict))

	// the serial is registered now, so the same receipt must abort
	_, err = s.SaveShipmentTransition(ctx, created.ID, saved.Precondition(), saved.Clone(), rc)
	assert.True(t, errors.Is(err, shipment.ErrValidation))

	got, err := s.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.OnHand)

	moves, err := s.Movements(ctx, item.ID)
	require.NoError(t, err)
	assert.Len(t, moves, 1)
}
