package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samadhan/models"
	"samadhan/repository"
)

// captureSender records every notification handed to it.
type captureSender struct {
	mu   sync.Mutex
	sent []models.Notification
	fail error
}

func (s *captureSender) Name() string { return "capture" }

func (s *captureSender) Validate(n *models.Notification) error { return nil }

func (s *captureSender) Send(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.sent = append(s.sent, *n)
	return nil
}

func (s *captureSender) delivered() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Notification(nil), s.sent...)
}

func smallQueueConfig(size int) *models.NotificationConfig {
	return &models.NotificationConfig{
		QueueSize:         size,
		MaxRetries:        3,
		InitialRetryDelay: time.Millisecond,
		MaxRetryDelay:     5 * time.Millisecond,
		DrainTimeout:      time.Second,
	}
}

func TestDispatchDropsTheOldestWhenTheQueueIsFull(t *testing.T) {
	svc := NewNotificationService(newFakeStore(), &captureSender{}, smallQueueConfig(2))

	for i := int64(1); i <= 3; i++ {
		svc.Dispatch(&models.NotificationRequest{
			UserID:  i,
			Type:    models.NotificationStatusChanged,
			Title:   "t",
			Message: fmt.Sprintf("message %d", i),
		})
	}

	var remaining []*models.NotificationRequest
	for {
		select {
		case req := <-svc.Queue():
			remaining = append(remaining, req)
		default:
			require.Len(t, remaining, 2)
			assert.Equal(t, int64(2), remaining[0].UserID)
			assert.Equal(t, int64(3), remaining[1].UserID)
			return
		}
	}
}

func TestDispatchIgnoresNilRequests(t *testing.T) {
	svc := NewNotificationService(newFakeStore(), &captureSender{}, smallQueueConfig(2))
	svc.Dispatch(nil)

	select {
	case <-svc.Queue():
		t.Fatal("nothing should have been queued")
	default:
	}
}

func TestDeliverPersistsTheRowAndAnnouncesIt(t *testing.T) {
	store := newFakeStore()
	sender := &captureSender{}
	svc := NewNotificationService(store, sender, smallQueueConfig(8))
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return now }

	err := svc.Deliver(context.Background(), &models.NotificationRequest{
		UserID:      101,
		Type:        models.NotificationComplaintResolved,
		Title:       "Complaint resolved",
		Message:     "Complaint GRV-TEST-00001 has been marked resolved.",
		ComplaintID: ptr(int64(1)),
	})
	require.NoError(t, err)

	rows, err := store.Notifications().FindByUser(context.Background(), 101)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.NotificationComplaintResolved, rows[0].Type)
	assert.True(t, rows[0].ComplaintID.Valid)
	assert.False(t, rows[0].IsRead)
	assert.True(t, rows[0].CreatedAt.Equal(now))

	sent := sender.delivered()
	require.Len(t, sent, 1)
	assert.Equal(t, rows[0].NotificationID, sent[0].NotificationID)
}

// flakyNotificationStore fails the first N notification inserts with a
// transient error, then recovers.
type flakyNotificationStore struct {
	repository.Store
	failures int
	attempts int
}

func (s *flakyNotificationStore) Notifications() repository.NotificationRepository {
	return &flakyNotifications{NotificationRepository: s.Store.Notifications(), store: s}
}

type flakyNotifications struct {
	repository.NotificationRepository
	store *flakyNotificationStore
}

func (r *flakyNotifications) Create(ctx context.Context, n *models.Notification) error {
	r.store.attempts++
	if r.store.attempts <= r.store.failures {
		return fmt.Errorf("connection reset by peer: %w", models.ErrTransientIO)
	}
	return r.NotificationRepository.Create(ctx, n)
}

func TestDeliverRetriesTransientPersistFailures(t *testing.T) {
	store := &flakyNotificationStore{Store: newFakeStore(), failures: 2}
	sender := &captureSender{}
	svc := NewNotificationService(store, sender, smallQueueConfig(8))

	err := svc.Deliver(context.Background(), &models.NotificationRequest{
		UserID:  101,
		Type:    models.NotificationStatusChanged,
		Title:   "t",
		Message: "m",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, store.attempts)
	assert.Len(t, sender.delivered(), 1)
}

// deadNotificationStore fails every notification insert with a permanent
// error.
type deadNotificationStore struct {
	repository.Store
	attempts int
}

func (s *deadNotificationStore) Notifications() repository.NotificationRepository {
	return &deadNotifications{store: s}
}

type deadNotifications struct {
	repository.NotificationRepository
	store *deadNotificationStore
}

func (r *deadNotifications) Create(ctx context.Context, n *models.Notification) error {
	r.store.attempts++
	return errors.New("table notifications does not exist")
}

func TestDeliverDoesNotRetryPermanentPersistFailures(t *testing.T) {
	store := &deadNotificationStore{Store: newFakeStore()}
	sender := &captureSender{}
	svc := NewNotificationService(store, sender, smallQueueConfig(8))

	err := svc.Deliver(context.Background(), &models.NotificationRequest{
		UserID:  101,
		Type:    models.NotificationStatusChanged,
		Title:   "t",
		Message: "m",
	})
	require.Error(t, err)
	assert.Equal(t, 1, store.attempts)
	assert.Empty(t, sender.delivered())
}

func TestSenderFailureDoesNotFailDelivery(t *testing.T) {
	store := newFakeStore()
	sender := &captureSender{fail: errors.New("gateway unreachable")}
	svc := NewNotificationService(store, sender, smallQueueConfig(8))

	err := svc.Deliver(context.Background(), &models.NotificationRequest{
		UserID:  101,
		Type:    models.NotificationStatusChanged,
		Title:   "t",
		Message: "m",
	})
	require.NoError(t, err)

	// The row is durable even though the announcement was lost.
	rows, err := store.Notifications().FindByUser(context.Background(), 101)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestReadStateIsScopedToTheOwner(t *testing.T) {
	store := newFakeStore()
	svc := NewNotificationService(store, &captureSender{}, smallQueueConfig(8))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Deliver(ctx, &models.NotificationRequest{
			UserID:      101,
			Type:        models.NotificationStatusChanged,
			Title:       "t",
			Message:     fmt.Sprintf("m%d", i),
			ComplaintID: ptr(int64(1)),
		}))
	}
	require.NoError(t, svc.Deliver(ctx, &models.NotificationRequest{
		UserID:  102,
		Type:    models.NotificationStatusChanged,
		Title:   "t",
		Message: "other user",
	}))

	count, err := svc.UnreadCount(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	mine, err := svc.NotificationsFor(ctx, 101, false)
	require.NoError(t, err)
	require.Len(t, mine, 3)

	// Another user cannot mark my notification read.
	err = svc.MarkRead(ctx, mine[0].NotificationID, 102)
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, svc.MarkRead(ctx, mine[0].NotificationID, 101))
	unread, err := svc.NotificationsFor(ctx, 101, true)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	marked, err := svc.MarkAllRead(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, int64(2), marked)

	count, err = svc.UnreadCount(ctx, 102)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMarkReadForComplaintClearsOnlyThatThread(t *testing.T) {
	store := newFakeStore()
	svc := NewNotificationService(store, &captureSender{}, smallQueueConfig(8))
	ctx := context.Background()

	require.NoError(t, svc.Deliver(ctx, &models.NotificationRequest{
		UserID: 101, Type: models.NotificationStatusChanged, Title: "t", Message: "a", ComplaintID: ptr(int64(1)),
	}))
	require.NoError(t, svc.Deliver(ctx, &models.NotificationRequest{
		UserID: 101, Type: models.NotificationStatusChanged, Title: "t", Message: "b", ComplaintID: ptr(int64(2)),
	}))

	marked, err := svc.MarkReadForComplaint(ctx, 101, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)

	count, err := svc.UnreadCount(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
