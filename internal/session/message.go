package session

import "time"

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one turn in a conversation. Messages are append-only: once a
// message enters the display history it is never mutated or removed.
type Message struct {
	SessionID      string    `json:"session_id"`
	Sender         Sender    `json:"sender"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	IsGreeting  bool `json:"is_greeting"`
	IsEmergency bool `json:"is_emergency"`
	// RelatedAlertID links an emergency response to its alert record. It is
	// persisted and available to the review workflow but kept out of the
	// public chat payload.
	RelatedAlertID string `json:"-"`
}
