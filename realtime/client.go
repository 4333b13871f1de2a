package realtime

import "sync"

// Transport is the write side of one long-lived client connection. Only the
// client's own writer goroutine calls WriteEvent and WritePing; Close may be
// called from any goroutine.
type Transport interface {
	Kind() string
	WriteEvent(ev Event) error
	WritePing() error
	Close() error
}

// frame is a queued outbound write; a nil event is a keep-alive ping
type frame struct {
	event *Event
}

// Client is a registered connection with its own outbound queue, so a slow
// consumer never blocks delivery to the others.
type Client struct {
	id        string
	transport Transport
	queue     chan frame
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

func newClient(id string, t Transport, queueSize int) *Client {
	return &Client{
		id:        id,
		transport: t,
		queue:     make(chan frame, queueSize),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

func (c *Client) ID() string {
	return c.id
}

// Done is closed once the client has been unregistered
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Stopped is closed once the writer goroutine has exited and will not touch
// the transport again.
func (c *Client) Stopped() <-chan struct{} {
	return c.stopped
}

// enqueue never blocks; false means the queue is full or the client is gone
func (c *Client) enqueue(f frame) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.queue <- f:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) write(f frame) error {
	if f.event == nil {
		return c.transport.WritePing()
	}
	return c.transport.WriteEvent(*f.event)
}

// writeLoop drains the queue in order until the client is unregistered or a
// write fails.
func (c *Client) writeLoop(h *Hub) {
	defer close(c.stopped)
	for {
		select {
		case <-c.done:
			return
		case f := <-c.queue:
			if err := c.write(f); err != nil {
				h.logger.Debug("realtime write failed", "client", c.id, "transport", c.transport.Kind(), "err", err)
				h.unregister(c, "write_error")
				return
			}
		}
	}
}
