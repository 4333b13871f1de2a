package realtime

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Event types pushed to connected clients
const (
	EventCreated = "asn_created"
	EventUpdated = "asn_updated"
	EventDeleted = "asn_deleted"
)

// Event is one serialized change notification. Payload is always the complete
// record (or {"id": n} for deletes), never a diff.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent serializes payload once so every connection receives the same bytes
func NewEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encoding %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Payload: raw}, nil
}

// FormatSSE renders the event as a server-sent-events frame
func FormatSSE(ev Event) []byte {
	var buf bytes.Buffer
	buf.Grow(len(ev.Type) + len(ev.Payload) + 16)
	buf.WriteString("event: ")
	buf.WriteString(ev.Type)
	buf.WriteString("\ndata: ")
	buf.Write(ev.Payload)
	buf.WriteString("\n\n")
	return buf.Bytes()
}

// ssePing is a comment line; EventSource clients ignore it
var ssePing = []byte(": ping\n\n")
