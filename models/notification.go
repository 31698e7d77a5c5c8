package models

import (
	"database/sql"
	"time"
)

// NotificationType enumerates the user-facing alert kinds the core emits.
type NotificationType string

const (
	NotificationStatusChanged     NotificationType = "COMPLAINT_STATUS_CHANGED"
	NotificationComplaintResolved NotificationType = "COMPLAINT_RESOLVED"
	NotificationComplaintClosed   NotificationType = "COMPLAINT_CLOSED"
	NotificationComplaintAssigned NotificationType = "COMPLAINT_ASSIGNED"
	NotificationComplaintReopened NotificationType = "COMPLAINT_REOPENED"
	NotificationRatingRequest     NotificationType = "RATING_REQUEST"
	NotificationEscalationAlert   NotificationType = "ESCALATION_ALERT"
	NotificationResolutionDisputed NotificationType = "RESOLUTION_DISPUTED"
	NotificationDisputeReceived   NotificationType = "DISPUTE_RECEIVED"
	NotificationDisputeApproved   NotificationType = "DISPUTE_APPROVED"
	NotificationDisputeRejected   NotificationType = "DISPUTE_REJECTED"
)

// Notification is a user-facing awareness alert. Unlike the audit log it is
// mutable: the recipient marks it read. ReadAt is non-null iff IsRead.
type Notification struct {
	NotificationID int64            `db:"notification_id" json:"notification_id"`
	UserID         int64            `db:"user_id" json:"user_id"`
	Type           NotificationType `db:"type" json:"type"`
	Title          string           `db:"title" json:"title"`
	Message        string           `db:"message" json:"message"`
	ComplaintID    sql.NullInt64    `db:"complaint_id" json:"complaint_id"`
	Link           sql.NullString   `db:"link" json:"link"`
	IsRead         bool             `db:"is_read" json:"is_read"`
	ReadAt         sql.NullTime     `db:"read_at" json:"read_at"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
}

// NotificationRequest is one unit of dispatch work: persist the row, then
// hand it to the sender. Requests travel through the in-process queue so
// delivery never runs inside a business transaction.
type NotificationRequest struct {
	UserID      int64            `json:"user_id"`
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	ComplaintID *int64           `json:"complaint_id,omitempty"`
	Link        *string          `json:"link,omitempty"`
}

// NotificationConfig holds dispatch pipeline settings.
type NotificationConfig struct {
	// Bounded queue between business transactions and the worker.
	// When full the oldest pending request is dropped.
	QueueSize int

	// Retry of the persist step on transient failure.
	MaxRetries        int
	InitialRetryDelay time.Duration
	MaxRetryDelay     time.Duration

	// Grace period for draining queued requests during shutdown.
	DrainTimeout time.Duration
}

// DefaultNotificationConfig returns the default dispatch pipeline settings.
func DefaultNotificationConfig() *NotificationConfig {
	return &NotificationConfig{
		QueueSize:         256,
		MaxRetries:        3,
		InitialRetryDelay: 500 * time.Millisecond,
		MaxRetryDelay:     10 * time.Second,
		DrainTimeout:      5 * time.Second,
	}
}
