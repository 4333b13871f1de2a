package realtime

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSSE(t *testing.T) {
	ev, err := NewEvent(EventUpdated, map[string]interface{}{"id": 9, "fee_status": "Approved"})
	require.NoError(t, err)
	assert.Equal(t, "event: asn_updated\ndata: {\"fee_status\":\"Approved\",\"id\":9}\n\n", string(FormatSSE(ev)))
}

func TestServeSSEStreamsEvents(t *testing.T) {
	hub := newTestHub(DefaultConfig(), nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeSSE))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": ping\n", line)
	require.Equal(t, 1, hub.Count())

	hub.Publish(EventDeleted, map[string]int64{"id": 12})

	var frame strings.Builder
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if line == "\n" && frame.Len() > 0 {
			break
		}
		if line == "\n" {
			continue
		}
		frame.WriteString(line)
	}
	assert.Equal(t, "event: asn_deleted\ndata: {\"id\":12}\n", frame.String())

	cancel()
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServeSSERejectsPost(t *testing.T) {
	hub := newTestHub(DefaultConfig(), nil)
	rec := httptest.NewRecorder()
	hub.ServeSSE(rec, httptest.NewRequest(http.MethodPost, "/events", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, 0, hub.Count())
}

func TestServeWSDeliversJSONFrames(t *testing.T) {
	hub := newTestHub(DefaultConfig(), nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)
	hub.Publish(EventCreated, map[string]interface{}{"id": 3, "supplier": "Acme"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev struct {
		Type    string                 `json:"type"`
		Payload map[string]interface{} `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventCreated, ev.Type)
	assert.Equal(t, "Acme", ev.Payload["supplier"])
	assert.Equal(t, float64(3), ev.Payload["id"])

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}
