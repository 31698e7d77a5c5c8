package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"

	"samadhan/models"
	"samadhan/notification"
	"samadhan/repository"
	"samadhan/telemetry"
)

// NotificationService runs the dispatch pipeline: business code queues
// requests after its transaction commits, the background worker drains the
// queue, and Deliver persists the row and hands it to the sender. The queue
// is bounded; under pressure the oldest pending request is dropped, never
// the caller blocked.
type NotificationService struct {
	store  repository.Store
	sender notification.Sender
	config *models.NotificationConfig
	queue  chan *models.NotificationRequest
	clock  func() time.Time
}

// NewNotificationService creates a notification service with a bounded queue.
func NewNotificationService(
	store repository.Store,
	sender notification.Sender,
	config *models.NotificationConfig,
) *NotificationService {
	if config == nil {
		config = models.DefaultNotificationConfig()
	}
	if sender == nil {
		sender = notification.NewLogSender()
	}
	return &NotificationService{
		store:  store,
		sender: sender,
		config: config,
		queue:  make(chan *models.NotificationRequest, config.QueueSize),
		clock:  time.Now,
	}
}

// Queue exposes the pending requests to the worker.
func (s *NotificationService) Queue() <-chan *models.NotificationRequest {
	return s.queue
}

// Dispatch queues a notification request without blocking. When the queue is
// full the oldest pending request is dropped to make room; a loss only delays
// awareness, the audit log still carries the underlying event.
func (s *NotificationService) Dispatch(req *models.NotificationRequest) {
	if req == nil {
		return
	}
	select {
	case s.queue <- req:
		return
	default:
	}

	select {
	case dropped := <-s.queue:
		telemetry.RecordQueueDrop(context.Background())
		log.Printf("[NOTIFY] queue full, dropped pending %s for user %d", dropped.Type, dropped.UserID)
	default:
	}

	select {
	case s.queue <- req:
	default:
		// Lost the race with other producers. Drop the new request.
		telemetry.RecordQueueDrop(context.Background())
		log.Printf("[NOTIFY] queue full, dropped %s for user %d", req.Type, req.UserID)
	}
}

// DispatchAll queues a batch of requests.
func (s *NotificationService) DispatchAll(reqs []*models.NotificationRequest) {
	for _, req := range reqs {
		s.Dispatch(req)
	}
}

// Deliver persists the notification row and announces it through the sender.
// The persist step retries transient failures with exponential backoff; the
// send step is best-effort since the row is already durable.
func (s *NotificationService) Deliver(ctx context.Context, req *models.NotificationRequest) error {
	n := &models.Notification{
		UserID:    req.UserID,
		Type:      req.Type,
		Title:     req.Title,
		Message:   req.Message,
		CreatedAt: s.clock(),
	}
	if req.ComplaintID != nil {
		n.ComplaintID = sql.NullInt64{Int64: *req.ComplaintID, Valid: true}
	}
	if req.Link != nil {
		n.Link = sql.NullString{String: *req.Link, Valid: true}
	}

	persist := func() error {
		err := s.store.Notifications().Create(ctx, n)
		if err == nil {
			return nil
		}
		if errors.Is(err, models.ErrTransientIO) {
			return err
		}
		return backoff.Permanent(err)
	}
	if err := backoff.Retry(persist, s.persistBackoff(ctx)); err != nil {
		telemetry.RecordNotification(ctx, string(req.Type), false)
		return fmt.Errorf("failed to persist notification for user %d: %w", req.UserID, err)
	}

	if err := s.sender.Send(ctx, n); err != nil {
		log.Printf("[NOTIFY] sender %s failed for notification %d: %v", s.sender.Name(), n.NotificationID, err)
		telemetry.RecordNotification(ctx, string(req.Type), false)
		return nil
	}
	telemetry.RecordNotification(ctx, string(req.Type), true)
	return nil
}

func (s *NotificationService) persistBackoff(ctx context.Context) backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.config.InitialRetryDelay
	policy.MaxInterval = s.config.MaxRetryDelay
	policy.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.config.MaxRetries)), ctx)
}

// NotificationsFor returns a user's notifications, newest first.
func (s *NotificationService) NotificationsFor(ctx context.Context, userID int64, unreadOnly bool) ([]models.Notification, error) {
	if unreadOnly {
		return s.store.Notifications().FindUnreadByUser(ctx, userID)
	}
	return s.store.Notifications().FindByUser(ctx, userID)
}

// UnreadCount returns the number of unread notifications for a user.
func (s *NotificationService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return s.store.Notifications().CountUnread(ctx, userID)
}

// MarkRead marks one notification read. Scoped to the owning user so one
// citizen cannot clear another's alerts.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID int64) error {
	return s.store.Notifications().MarkRead(ctx, notificationID, userID)
}

// MarkAllRead marks all of a user's notifications read and returns how many
// rows changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.store.Notifications().MarkAllRead(ctx, userID)
}

// MarkReadForComplaint marks the user's notifications about one complaint read.
func (s *NotificationService) MarkReadForComplaint(ctx context.Context, userID, complaintID int64) (int64, error) {
	return s.store.Notifications().MarkReadForComplaint(ctx, userID, complaintID)
}
