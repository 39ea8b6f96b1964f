package services

import "legalflow/observability"

// Event is pushed to connected browsers of one office.
type Event struct {
	Type     string      `json:"type"`
	OfficeID string      `json:"-"`
	Data     interface{} `json:"data"`
}

// Event types
const (
	EventMessageReceived     = "message.received"
	EventMessageSent         = "message.sent"
	EventConversationUpdated = "conversation.updated"
)

// Publisher fans events out to subscribers. Publish must not block.
type Publisher interface {
	Publish(event Event)
}

type discardPublisher struct{}

func (discardPublisher) Publish(Event) {}

// Events receives realtime notifications. The server replaces it with the
// websocket hub at startup.
var Events Publisher = discardPublisher{}

// Metrics collects service level counters. Nil disables them.
var Metrics *observability.Metrics
