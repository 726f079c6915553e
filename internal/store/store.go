// Package store is the persistence boundary: durable storage of conversation
// messages and safety alerts. Every operation is independently fallible and
// there is no cross-operation transaction; a message can land while its alert
// does not, and the callers treat both writes as best-effort.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/hocduong/assistant/internal/session"
)

// ErrNotFound is returned when an alert id does not exist.
var ErrNotFound = errors.New("store: not found")

// AlertStatus is the review-workflow state of an alert.
type AlertStatus string

const (
	StatusNew        AlertStatus = "New"
	StatusInProgress AlertStatus = "InProgress"
	StatusResolved   AlertStatus = "Resolved"
)

// ValidStatus reports whether s is one of the known review states.
// Any transition between valid states is allowed, including reopening.
func ValidStatus(s AlertStatus) bool {
	switch s {
	case StatusNew, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// Alert is a flagged safety event awaiting human review.
type Alert struct {
	ID        string      `json:"id"`
	SessionID string      `json:"chat_session_id"`
	Reason    string      `json:"reason"`
	Snippet   string      `json:"snippet"`
	Priority  int         `json:"priority"`
	Status    AlertStatus `json:"status"`
	Assignee  string      `json:"assignee,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Stats are the dashboard counters.
type Stats struct {
	WeeklyConversations int `json:"weekly_conversations"`
	NewAlerts           int `json:"new_alerts"`
}

// Gateway is the logical persistence contract the engine and the review
// workflow depend on.
type Gateway interface {
	// SaveMessage durably stores one conversation turn.
	SaveMessage(ctx context.Context, userID string, msg session.Message) error
	// CreateAlert stores a new alert and returns its identifier.
	CreateAlert(ctx context.Context, alert Alert) (string, error)
	// UpdateAlertStatus moves an alert through the review workflow.
	UpdateAlertStatus(ctx context.Context, alertID string, status AlertStatus, assignee string) error

	GetAlert(ctx context.Context, alertID string) (Alert, error)
	ListAlerts(ctx context.Context, status AlertStatus) ([]Alert, error)
	ListMessages(ctx context.Context, sessionID string) ([]session.Message, error)
	GetStats(ctx context.Context) (Stats, error)
}
