package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/metrics"
	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/realtime"
	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/shipment"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/google/uuid"
)

// Store is the persistence adapter. SaveShipmentTransition must write next
// only if the stored record still matches prior, and must apply receipts in
// the same atomic unit; a mismatch is reported as CONFLICT.
type Store interface {
	CreateShipment(ctx context.Context, s *shipment.Shipment) (*shipment.Shipment, error)
	LoadShipment(ctx context.Context, id int64) (*shipment.Shipment, error)
	ListShipments(ctx context.Context) ([]*shipment.Shipment, error)
	SaveShipmentTransition(ctx context.Context, id int64, prior shipment.Precondition, next *shipment.Shipment, receipts ...shipment.Receipt) (*shipment.Shipment, error)
	DeleteShipment(ctx context.Context, id int64, prior shipment.Precondition) error
}

// Inventory answers questions about the items a shipment receives into
type Inventory interface {
	GetItem(ctx context.Context, id int64) (*shipment.InventoryItem, error)
}

// Publisher receives exactly one event per accepted mutation
type Publisher interface {
	Publish(eventType string, payload interface{})
}

// recordLock serializes commit and publish for one record. refs counts the
// holders and waiters; the entry is dropped when it reaches zero.
type recordLock struct {
	mu   sync.Mutex
	refs int
}

// Engine owns the fee and physical state machines. Operations on different
// records run in parallel; for one record, commit and publish happen under
// that record's lock so events leave in commit order.
type Engine struct {
	store     Store
	inventory Inventory
	publisher Publisher
	logger    cmtlog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	newID     func() string

	locksMu sync.Mutex
	locks   map[int64]*recordLock
}

type Option func(*Engine)

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func New(store Store, inventory Inventory, publisher Publisher, logger cmtlog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		inventory: inventory,
		publisher: publisher,
		logger:    logger.With("module", "workflow"),
		now:       time.Now,
		newID:     uuid.NewString,
		locks:     make(map[int64]*recordLock),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// mutation edits a private copy of the loaded record. It performs the
// operation's remaining guards and returns the inventory receipts to apply
// with the write.
type mutation func(next *shipment.Shipment, at time.Time) ([]shipment.Receipt, error)

// apply runs load, guard, compare-and-swap and publish for one transition
func (e *Engine) apply(ctx context.Context, op string, actor shipment.Actor, id int64, mutate mutation) (*shipment.Shipment, error) {
	start := time.Now()

	cur, err := e.store.LoadShipment(ctx, id)
	if err != nil {
		return nil, e.reject(op, actor, id, start, err)
	}

	at := e.now().UTC()
	next := cur.Clone()
	receipts, err := mutate(next, at)
	if err != nil {
		return nil, e.reject(op, actor, id, start, err)
	}
	next.Version = cur.Version + 1
	next.UpdatedAt = at

	unlock := e.lockRecord(id)
	defer unlock()

	saved, err := e.store.SaveShipmentTransition(ctx, id, cur.Precondition(), next, receipts...)
	if err != nil {
		return nil, e.reject(op, actor, id, start, err)
	}
	e.publisher.Publish(realtime.EventUpdated, saved)
	e.accept(op, actor, saved, start)
	return saved, nil
}

func (e *Engine) lockRecord(id int64) func() {
	e.locksMu.Lock()
	l, ok := e.locks[id]
	if !ok {
		l = &recordLock{}
		e.locks[id] = l
	}
	l.refs++
	e.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.locks, id)
		}
		e.locksMu.Unlock()
	}
}

func (e *Engine) accept(op string, actor shipment.Actor, s *shipment.Shipment, start time.Time) {
	e.metrics.ObserveOperation(op, "OK", time.Since(start))
	e.logger.Info("operation accepted",
		"op", op,
		"shipment_id", s.ID,
		"actor", actor.UserID,
		"role", actor.Role,
		"fee_status", s.FeeStatus,
		"physical_status", s.PhysicalStatus,
		"version", s.Version,
	)
}

// reject normalizes err to a typed error, records it and returns it
func (e *Engine) reject(op string, actor shipment.Actor, id int64, start time.Time, err error) error {
	werr := shipment.AsError(err)
	e.metrics.ObserveOperation(op, werr.Code, time.Since(start))
	if werr.Code == shipment.CodeStorage {
		e.logger.Error("operation failed", "op", op, "shipment_id", id, "actor", actor.UserID, "err", werr)
	} else {
		e.logger.Debug("operation rejected", "op", op, "shipment_id", id, "actor", actor.UserID, "code", werr.Code, "err", werr.Message)
	}
	return werr
}
