package repository

import (
	"context"
	"fmt"
	"time"

	"samadhan/models"
)

// MySQLNotificationRepository handles database operations for notifications.
type MySQLNotificationRepository struct {
	q DBTX
}

const notificationColumns = `
	notification_id, user_id, type, title, message, complaint_id, link,
	is_read, read_at, created_at`

// Create inserts a notification row and assigns its id.
func (r *MySQLNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO notifications (
			user_id, type, title, message, complaint_id, link, is_read, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.q.ExecContext(ctx, query,
		n.UserID, n.Type, n.Title, n.Message, n.ComplaintID, n.Link, n.IsRead, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get notification ID: %w", err)
	}
	n.NotificationID = id
	return nil
}

func (r *MySQLNotificationRepository) queryNotifications(ctx context.Context, query string, args ...any) ([]models.Notification, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		err := rows.Scan(
			&n.NotificationID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.ComplaintID, &n.Link,
			&n.IsRead, &n.ReadAt, &n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return notifications, nil
}

// FindByUser returns all notifications for a user, newest first.
func (r *MySQLNotificationRepository) FindByUser(ctx context.Context, userID int64) ([]models.Notification, error) {
	query := `SELECT` + notificationColumns + `
		FROM notifications WHERE user_id = ? ORDER BY created_at DESC, notification_id DESC`
	return r.queryNotifications(ctx, query, userID)
}

// FindUnreadByUser returns unread notifications for a user, newest first.
func (r *MySQLNotificationRepository) FindUnreadByUser(ctx context.Context, userID int64) ([]models.Notification, error) {
	query := `SELECT` + notificationColumns + `
		FROM notifications WHERE user_id = ? AND is_read = FALSE ORDER BY created_at DESC, notification_id DESC`
	return r.queryNotifications(ctx, query, userID)
}

// CountUnread returns the number of unread notifications for a user.
func (r *MySQLNotificationRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = FALSE`
	if err := r.q.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one notification read. The row must belong to userID;
// otherwise ErrNotFound. Marking an already-read row again is a no-op
// success and keeps the original read_at.
func (r *MySQLNotificationRepository) MarkRead(ctx context.Context, notificationID, userID int64) error {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = COALESCE(read_at, ?)
		WHERE notification_id = ? AND user_id = ?
	`
	result, err := r.q.ExecContext(ctx, query, time.Now().UTC(), notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return requireRow(result, "notification", notificationID)
}

// MarkAllRead marks every unread notification of the user read and returns
// how many rows changed.
func (r *MySQLNotificationRepository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	query := `UPDATE notifications SET is_read = TRUE, read_at = ? WHERE user_id = ? AND is_read = FALSE`
	result, err := r.q.ExecContext(ctx, query, time.Now().UTC(), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}

// MarkReadForComplaint marks the user's unread notifications about one
// complaint read and returns how many rows changed.
func (r *MySQLNotificationRepository) MarkReadForComplaint(ctx context.Context, userID, complaintID int64) (int64, error) {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = ?
		WHERE user_id = ? AND complaint_id = ? AND is_read = FALSE
	`
	result, err := r.q.ExecContext(ctx, query, time.Now().UTC(), userID, complaintID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark complaint notifications read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}
