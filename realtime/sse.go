package realtime

import (
	"errors"
	"net/http"
	"time"
)

type sseTransport struct {
	w            http.ResponseWriter
	rc           *http.ResponseController
	writeTimeout time.Duration
}

func (t *sseTransport) Kind() string { return "sse" }

func (t *sseTransport) WriteEvent(ev Event) error {
	return t.write(FormatSSE(ev))
}

func (t *sseTransport) WritePing() error {
	return t.write(ssePing)
}

func (t *sseTransport) write(b []byte) error {
	if err := t.rc.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	if _, err := t.w.Write(b); err != nil {
		return err
	}
	return t.rc.Flush()
}

// Close is a no-op; the stream ends when ServeSSE returns
func (t *sseTransport) Close() error { return nil }

// ServeSSE holds the request open as a server-sent-events stream until the
// client disconnects or the hub drops it.
func (h *Hub) ServeSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.Error("streaming unsupported", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := h.Register(&sseTransport{w: w, rc: rc, writeTimeout: h.cfg.WriteTimeout})
	select {
	case <-r.Context().Done():
	case <-c.Done():
	}
	h.Unregister(c)
	<-c.Stopped()
}
