package domain

import "time"

type EventType string

const (
	EventQuotes    EventType = "quotes"
	EventPortfolio EventType = "portfolio"
)

// Event is a realtime notification. An empty AccountID addresses every
// connected client.
type Event struct {
	Type      EventType `json:"type"`
	AccountID string    `json:"accountId,omitempty"`
	Payload   any       `json:"payload"`
	At        time.Time `json:"at"`
}
