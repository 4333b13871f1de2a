package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/metrics"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu         sync.Mutex
	frames     []string
	failEvents bool
	closed     bool
}

func (f *fakeTransport) Kind() string { return "fake" }

func (f *fakeTransport) WriteEvent(ev Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEvents {
		return errors.New("broken pipe")
	}
	f.frames = append(f.frames, ev.Type+" "+string(ev.Payload))
	return nil
}

func (f *fakeTransport) WritePing() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, "ping")
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.frames...)
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// blockingTransport never completes a write until it is closed
type blockingTransport struct {
	release chan struct{}
	once    sync.Once
}

func (b *blockingTransport) Kind() string { return "blocking" }

func (b *blockingTransport) WriteEvent(Event) error {
	<-b.release
	return errors.New("closed")
}

func (b *blockingTransport) WritePing() error {
	<-b.release
	return errors.New("closed")
}

func (b *blockingTransport) Close() error {
	b.once.Do(func() { close(b.release) })
	return nil
}

func newTestHub(cfg Config, m *metrics.Metrics) *Hub {
	return NewHub(cfg, cmtlog.NewNopLogger(), m)
}

func TestRegisterSendsPingFirst(t *testing.T) {
	hub := newTestHub(DefaultConfig(), nil)
	ft := &fakeTransport{}
	hub.Register(ft)
	hub.Publish(EventCreated, map[string]int64{"id": 1})

	require.Eventually(t, func() bool { return len(ft.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	frames := ft.snapshot()
	assert.Equal(t, "ping", frames[0])
	assert.Equal(t, `asn_created {"id":1}`, frames[1])
}

func TestPublishIsolatesFailingConnection(t *testing.T) {
	m := metrics.New()
	hub := newTestHub(DefaultConfig(), m)

	t1 := &fakeTransport{}
	t2 := &fakeTransport{failEvents: true}
	t3 := &fakeTransport{}
	hub.Register(t1)
	c2 := hub.Register(t2)
	hub.Register(t3)
	require.Equal(t, 3, hub.Count())

	hub.Publish(EventUpdated, map[string]int64{"id": 42})

	delivered := func(ft *fakeTransport) bool {
		for _, f := range ft.snapshot() {
			if f == `asn_updated {"id":42}` {
				return true
			}
		}
		return false
	}
	require.Eventually(t, func() bool { return delivered(t1) && delivered(t3) }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return hub.Count() == 2 }, time.Second, 5*time.Millisecond)

	select {
	case <-c2.Stopped():
	case <-time.After(time.Second):
		t.Fatal("failing client should be unregistered")
	}
	assert.True(t, t2.isClosed())
	assert.False(t, t1.isClosed())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConnectionsDroppedTotal.WithLabelValues("write_error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ConnectionsActive.WithLabelValues("fake")))
}

func TestUnregisterIsIdempotent(t *testing.T) {
	m := metrics.New()
	hub := newTestHub(DefaultConfig(), m)
	ft := &fakeTransport{}
	c := hub.Register(ft)

	hub.Unregister(c)
	hub.Unregister(c)

	assert.Equal(t, 0, hub.Count())
	<-c.Stopped()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConnectionsDroppedTotal.WithLabelValues("closed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ConnectionsActive.WithLabelValues("fake")))
}

func TestSlowConsumerIsDropped(t *testing.T) {
	hub := newTestHub(Config{QueueSize: 1}, nil)
	bt := &blockingTransport{release: make(chan struct{})}
	c := hub.Register(bt)

	for i := 0; i < 4; i++ {
		hub.Publish(EventUpdated, map[string]int{"id": i})
	}

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("slow client was not dropped")
	}
	<-c.Stopped()
	assert.Equal(t, 0, hub.Count())
}

func TestPublishPreservesOrderPerConnection(t *testing.T) {
	hub := newTestHub(Config{QueueSize: 256}, nil)
	ft := &fakeTransport{}
	hub.Register(ft)

	const n = 100
	for i := 0; i < n; i++ {
		hub.Publish(EventUpdated, map[string]int{"id": 5, "version": i})
	}

	require.Eventually(t, func() bool { return len(ft.snapshot()) == n+1 }, time.Second, 5*time.Millisecond)
	for i, f := range ft.snapshot()[1:] {
		assert.Equal(t, fmt.Sprintf(`asn_updated {"id":5,"version":%d}`, i), f)
	}
}

func TestConcurrentRegisterAndPublish(t *testing.T) {
	hub := newTestHub(Config{QueueSize: 1024}, nil)
	var wg sync.WaitGroup
	clients := make(chan *Client, 50)

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			clients <- hub.Register(&fakeTransport{})
		}()
		go func(i int) {
			defer wg.Done()
			hub.Publish(EventUpdated, map[string]int{"id": i})
		}(i)
	}
	wg.Wait()
	close(clients)

	assert.Equal(t, 50, hub.Count())
	for c := range clients {
		hub.Unregister(c)
	}
	assert.Equal(t, 0, hub.Count())
}

func TestRunSendsKeepAlivesAndClosesOnShutdown(t *testing.T) {
	hub := newTestHub(Config{KeepAliveInterval: 10 * time.Millisecond}, nil)
	ft := &fakeTransport{}
	c := hub.Register(ft)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(ft.snapshot()) >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 0, hub.Count())
	<-c.Done()
	assert.True(t, ft.isClosed())
}

func TestNewEventRejectsUnencodablePayload(t *testing.T) {
	_, err := NewEvent(EventUpdated, make(chan int))
	assert.Error(t, err)

	ev, err := NewEvent(EventDeleted, map[string]int64{"id": 3})
	require.NoError(t, err)
	var body map[string]int64
	require.NoError(t, json.Unmarshal(ev.Payload, &body))
	assert.Equal(t, int64(3), body["id"])
}
