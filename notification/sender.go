package notification

import (
	"context"
	"log"

	"samadhan/models"
)

// Sender announces a persisted notification to the outside world. The
// Notification row is the durable record; senders are best-effort and
// external channels (email, SMS, WhatsApp) live behind other services.
type Sender interface {
	Send(ctx context.Context, n *models.Notification) error
	Name() string
	Validate(n *models.Notification) error
}

// LogSender writes notifications to the process log. It is the default
// sender in every deployment; channel gateways replace it per environment.
type LogSender struct{}

// NewLogSender creates a log sender.
func NewLogSender() *LogSender {
	return &LogSender{}
}

// Name returns the sender name.
func (s *LogSender) Name() string {
	return "log"
}

// Validate checks the notification has a recipient and a message.
func (s *LogSender) Validate(n *models.Notification) error {
	if n.UserID == 0 {
		return ErrInvalidRecipient
	}
	if n.Message == "" {
		return ErrEmptyMessage
	}
	return nil
}

// Send logs the notification.
func (s *LogSender) Send(ctx context.Context, n *models.Notification) error {
	if err := s.Validate(n); err != nil {
		return err
	}
	complaint := int64(0)
	if n.ComplaintID.Valid {
		complaint = n.ComplaintID.Int64
	}
	log.Printf("[NOTIFY] user=%d type=%s complaint=%d title=%q", n.UserID, n.Type, complaint, n.Title)
	return nil
}

// Errors
var (
	ErrInvalidRecipient = &NotificationError{Message: "invalid recipient"}
	ErrEmptyMessage     = &NotificationError{Message: "empty message"}
)

// NotificationError represents a notification delivery error.
type NotificationError struct {
	Message string
	Err     error
}

func (e *NotificationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}
