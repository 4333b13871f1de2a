package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/metrics"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Config holds the hub's tuning knobs
type Config struct {
	KeepAliveInterval time.Duration
	QueueSize         int
	WriteTimeout      time.Duration
}

// DefaultConfig returns the values used when none are configured
func DefaultConfig() Config {
	return Config{
		KeepAliveInterval: 25 * time.Second,
		QueueSize:         64,
		WriteTimeout:      10 * time.Second,
	}
}

// Hub is the event broadcaster and client connection registry
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client

	cfg      Config
	upgrader websocket.Upgrader
	logger   cmtlog.Logger
	metrics  *metrics.Metrics
}

// NewHub creates a hub. Call Run to start the keep-alive loop.
func NewHub(cfg Config, logger cmtlog.Logger, m *metrics.Metrics) *Hub {
	def := DefaultConfig()
	if cfg.KeepAliveInterval <= 0 {
		cfg.KeepAliveInterval = def.KeepAliveInterval
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	return &Hub{
		clients: make(map[string]*Client),
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  logger.With("module", "realtime"),
		metrics: m,
	}
}

// Register adds a connection and queues an initial ping ahead of any event
func (h *Hub) Register(t Transport) *Client {
	c := newClient(uuid.NewString(), t, h.cfg.QueueSize)

	h.mu.Lock()
	h.clients[c.id] = c
	c.enqueue(frame{})
	h.mu.Unlock()

	go c.writeLoop(h)

	h.metrics.ConnectionOpened(t.Kind())
	h.logger.Info("client registered", "client", c.id, "transport", t.Kind(), "clients", h.Count())
	return c
}

// Unregister removes a connection. It is safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.unregister(c, "closed")
}

func (h *Hub) unregister(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	h.mu.Unlock()

	c.close()
	if !ok {
		return
	}
	if err := c.transport.Close(); err != nil {
		h.logger.Debug("closing transport", "client", c.id, "err", err)
	}
	h.metrics.ConnectionClosed(c.transport.Kind(), reason)
	h.logger.Info("client unregistered", "client", c.id, "reason", reason)
}

// Publish serializes the event once and queues it on every registered client.
// A client whose queue is full is dropped; the others are unaffected.
func (h *Hub) Publish(eventType string, payload interface{}) {
	ev, err := NewEvent(eventType, payload)
	if err != nil {
		h.logger.Error("dropping event", "type", eventType, "err", err)
		return
	}

	var slow []*Client
	h.mu.RLock()
	for _, c := range h.clients {
		if !c.enqueue(frame{event: &ev}) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.unregister(c, "slow_consumer")
	}
	h.metrics.EventPublished(eventType)
	h.logger.Debug("event published", "type", eventType, "dropped", len(slow))
}

// Count returns the number of registered clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c)
	}
	return out
}

// Ping queues a keep-alive on every client
func (h *Hub) Ping() {
	for _, c := range h.snapshot() {
		if !c.enqueue(frame{}) {
			h.unregister(c, "slow_consumer")
		}
	}
}

// Run sends keep-alives until ctx is cancelled, then unregisters every client
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.KeepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			for _, c := range h.snapshot() {
				h.unregister(c, "shutdown")
			}
			return
		case <-ticker.C:
			h.Ping()
		}
	}
}
