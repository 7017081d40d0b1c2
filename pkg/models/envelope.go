package models

// EventType tags the wire envelope variant. Payloads are decoded once at the
// transport boundary; the core only ever sees the tagged form.
type EventType string

const (
	EventChat  EventType = "chat"
	EventJoin  EventType = "join"
	EventLeave EventType = "leave"
	EventEvict EventType = "evict"
)

// Envelope is the single wire shape delivered to live connections.
type Envelope struct {
	Type   EventType `json:"type"`
	Scope  Scope     `json:"scope"`
	Author string    `json:"author"`
	Body   string    `json:"body,omitempty"`
	SentAt int64     `json:"sent_at"`
}
