package relay

// Publisher receives every accepted mutation as a typed event
type Publisher interface {
	Publish(eventType string, payload interface{})
}

// Fanout forwards each event to every publisher in order
type Fanout []Publisher

func (f Fanout) Publish(eventType string, payload interface{}) {
	for _, p := range f {
		p.Publish(eventType, payload)
	}
}
