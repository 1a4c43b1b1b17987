package model

import (
	"time"

	"github.com/google/uuid"
)

// Severity classifies a user-facing notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is the user-facing content produced from one accepted message.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	Topic     string    `json:"topic"`
	Action    string    `json:"action"`
	Severity  Severity  `json:"severity"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"` // server timestamp of the source message
	CreatedAt time.Time `json:"created_at"`
}
