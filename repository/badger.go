package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/shipment"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

var (
	prefixShipment = []byte("shipment/")
	prefixItem     = []byte("item/")
	prefixSerial   = []byte("serial/")
	prefixMovement = []byte("movement/")
)

func shipmentKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixShipment, id))
}

func itemKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixItem, id))
}

func serialKey(itemID int64, serial string) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", prefixSerial, itemID, serial))
}

func movementPrefix(itemID int64) []byte {
	return []byte(fmt.Sprintf("%s%020d/", prefixMovement, itemID))
}

func movementKey(itemID int64, at time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", movementPrefix(itemID), at.UnixNano(), id))
}

// BadgerStore keeps shipments and inventory in an embedded badger database.
// Every mutation runs in one badger transaction; optimistic conflicts between
// concurrent transactions surface as CONFLICT.
type BadgerStore struct {
	db          *badger.DB
	shipmentSeq *badger.Sequence
	lineSeq     *badger.Sequence
	itemSeq     *badger.Sequence
	logger      cmtlog.Logger
}

// OpenBadger opens (or creates) the database at path, or an in-memory one
func OpenBadger(path string, inMemory bool, logger cmtlog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger: %w", err)
	}
	s, err := NewBadgerStore(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func NewBadgerStore(db *badger.DB, logger cmtlog.Logger) (*BadgerStore, error) {
	s := &BadgerStore{db: db, logger: logger.With("module", "repository", "driver", "badger")}
	var err error
	if s.shipmentSeq, err = db.GetSequence([]byte("seq/shipment"), 100); err != nil {
		return nil, fmt.Errorf("shipment sequence: %w", err)
	}
	if s.lineSeq, err = db.GetSequence([]byte("seq/line_item"), 100); err != nil {
		return nil, fmt.Errorf("line item sequence: %w", err)
	}
	if s.itemSeq, err = db.GetSequence([]byte("seq/inventory_item"), 100); err != nil {
		return nil, fmt.Errorf("inventory item sequence: %w", err)
	}
	return s, nil
}

// Close releases the id sequences and closes the database
func (s *BadgerStore) Close() error {
	for _, seq := range []*badger.Sequence{s.shipmentSeq, s.lineSeq, s.itemSeq} {
		if err := seq.Release(); err != nil {
			s.logger.Error("releasing sequence", "err", err)
		}
	}
	return s.db.Close()
}

// nextID skips zero so ids are always positive
func nextID(seq *badger.Sequence) (int64, error) {
	for {
		n, err := seq.Next()
		if err != nil {
			return 0, err
		}
		if n > 0 {
			return int64(n), nil
		}
	}
}

func getJSON(txn *badger.Txn, key []byte, v interface{}) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, b)
}

func getShipment(txn *badger.Txn, id int64) (*shipment.Shipment, error) {
	var s shipment.Shipment
	if err := getJSON(txn, shipmentKey(id), &s); err != nil {
		return nil, toWorkflowError(err, fmt.Sprintf("shipment %d does not exist", id))
	}
	return &s, nil
}

func getItem(txn *badger.Txn, id int64) (*shipment.InventoryItem, error) {
	var item shipment.InventoryItem
	if err := getJSON(txn, itemKey(id), &item); err != nil {
		return nil, toWorkflowError(err, fmt.Sprintf("inventory item %d does not exist", id))
	}
	return &item, nil
}

// update runs fn in a read-write transaction and maps badger errors
func (s *BadgerStore) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return shipment.Storage("request cancelled", err)
	}
	return toWorkflowError(s.db.Update(fn), "")
}

func (s *BadgerStore) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return shipment.Storage("request cancelled", err)
	}
	return toWorkflowError(s.db.View(fn), "")
}

func (s *BadgerStore) CreateShipment(ctx context.Context, rec *shipment.Shipment) (*shipment.Shipment, error) {
	created := rec.Clone()
	id, err := nextID(s.shipmentSeq)
	if err != nil {
		return nil, shipment.Storage("allocating shipment id", err)
	}
	created.ID = id
	if created.Version == 0 {
		created.Version = 1
	}
	for i := range created.LineItems {
		lineID, err := nextID(s.lineSeq)
		if err != nil {
			return nil, shipment.Storage("allocating line item id", err)
		}
		created.LineItems[i].ID = lineID
		created.LineItems[i].ShipmentID = id
	}

	err = s.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, shipmentKey(id), created)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *BadgerStore) LoadShipment(ctx context.Context, id int64) (*shipment.Shipment, error) {
	var out *shipment.Shipment
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		out, err = getShipment(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListShipments returns every shipment, newest first
func (s *BadgerStore) ListShipments(ctx context.Context) ([]*shipment.Shipment, error) {
	var out []*shipment.Shipment
	err := s.view(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefixShipment
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefixShipment); it.ValidForPrefix(prefixShipment); it.Next() {
			var rec shipment.Shipment
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			out = append(out, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *BadgerStore) SaveShipmentTransition(
	ctx context.Context,
	id int64,
	prior shipment.Precondition,
	next *shipment.Shipment,
	receipts ...shipment.Receipt,
) (*shipment.Shipment, error) {
	var saved *shipment.Shipment
	err := s.update(ctx, func(txn *badger.Txn) error {
		cur, err := getShipment(txn, id)
		if err != nil {
			return err
		}
		if !prior.Matches(cur) {
			e := shipment.Conflict("shipment was modified concurrently, re-fetch and retry")
			e.Detail = "expected " + prior.String()
			return e
		}
		for _, rc := range receipts {
			if err := applyReceipt(txn, rc); err != nil {
				return err
			}
		}
		saved = next.Clone()
		saved.ID = id
		saved.Version = prior.Version + 1
		saved.CreatedAt = cur.CreatedAt
		return setJSON(txn, shipmentKey(id), saved)
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *BadgerStore) DeleteShipment(ctx context.Context, id int64, prior shipment.Precondition) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		cur, err := getShipment(txn, id)
		if err != nil {
			return err
		}
		if !prior.Matches(cur) {
			return shipment.Conflict("shipment was modified concurrently, re-fetch and retry")
		}
		return txn.Delete(shipmentKey(id))
	})
}

// CreateItem registers an inventory item
func (s *BadgerStore) CreateItem(ctx context.Context, item *shipment.InventoryItem) (*shipment.InventoryItem, error) {
	if err := checkNewItem(item); err != nil {
		return nil, err
	}
	id, err := nextID(s.itemSeq)
	if err != nil {
		return nil, shipment.Storage("allocating inventory item id", err)
	}
	created := *item
	created.ID = id
	created.Serials = append([]string(nil), item.Serials...)
	created.UpdatedAt = time.Now().UTC()
	err = s.update(ctx, func(txn *badger.Txn) error {
		for _, sn := range created.Serials {
			if err := txn.Set(serialKey(id, sn), []byte("seed")); err != nil {
				return err
			}
		}
		return setJSON(txn, itemKey(id), &created)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *BadgerStore) GetItem(ctx context.Context, id int64) (*shipment.InventoryItem, error) {
	var out *shipment.InventoryItem
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		out, err = getItem(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyReceipt applies one receipt in its own transaction
func (s *BadgerStore) ApplyReceipt(ctx context.Context, rc shipment.Receipt) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		return applyReceipt(txn, rc)
	})
}

func applyReceipt(txn *badger.Txn, rc shipment.Receipt) error {
	item, err := getItem(txn, rc.ItemID)
	if err != nil {
		return err
	}
	if err := checkReceipt(item.Serialized, rc); err != nil {
		return err
	}

	movementID := uuid.NewString()
	for _, sn := range rc.Serials {
		key := serialKey(rc.ItemID, sn)
		_, err := txn.Get(key)
		if err == nil {
			return duplicateSerial(rc.ItemID, sn)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(key, []byte(movementID)); err != nil {
			return err
		}
	}

	item.OnHand += rc.QuantityDelta
	item.Serials = append(item.Serials, rc.Serials...)
	item.UpdatedAt = rc.At
	if err := setJSON(txn, itemKey(rc.ItemID), item); err != nil {
		return err
	}

	return setJSON(txn, movementKey(rc.ItemID, rc.At, movementID), shipment.Movement{
		ID:            movementID,
		ItemID:        rc.ItemID,
		ShipmentID:    rc.ShipmentID,
		QuantityDelta: rc.QuantityDelta,
		Serials:       rc.Serials,
		ActorID:       rc.ActorID,
		Timestamp:     rc.At,
	})
}

// Movements lists the movements recorded for an item, oldest first
func (s *BadgerStore) Movements(ctx context.Context, itemID int64) ([]shipment.Movement, error) {
	prefix := movementPrefix(itemID)
	var out []shipment.Movement
	err := s.view(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if !bytes.HasPrefix(it.Item().Key(), prefix) {
				break
			}
			var m shipment.Movement
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return err
			}
			out = append(out, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
