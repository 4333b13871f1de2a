package realtime

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const maxInboundMessageSize = 512

type wsTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (t *wsTransport) Kind() string { return "ws" }

func (t *wsTransport) WriteEvent(ev Event) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return err
	}
	return t.conn.WriteJSON(ev)
}

func (t *wsTransport) WritePing() error {
	return t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(t.writeTimeout))
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

// ServeWS upgrades the request and registers the socket. Frames are JSON
// objects {"type": ..., "payload": ...}. Inbound messages are discarded; the
// read loop only exists to process pongs and notice disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	pongWait := 2*h.cfg.KeepAliveInterval + h.cfg.WriteTimeout
	conn.SetReadLimit(maxInboundMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c := h.Register(&wsTransport{conn: conn, writeTimeout: h.cfg.WriteTimeout})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket closed", "client", c.ID(), "err", err)
			}
			break
		}
	}
	h.Unregister(c)
	<-c.Stopped()
}
