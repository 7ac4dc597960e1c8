package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/meeting-coordinator/internal/persistence"
)

// NotificationRepository implements persistence.NotificationRepository using SQLite.
type NotificationRepository struct {
	helper *QueryHelper
}

// NewNotificationRepository creates a new SQLite notification repository.
func NewNotificationRepository(pool *ConnectionPool) *NotificationRepository {
	return &NotificationRepository{helper: NewQueryHelper(pool)}
}

// CreateNotification inserts a notification record.
func (r *NotificationRepository) CreateNotification(ctx context.Context, notification persistence.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, type, title, message, link, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	read := 0
	if notification.Read {
		read = 1
	}
	_, err := r.helper.Exec(ctx, query,
		notification.ID,
		notification.UserID,
		notification.Type,
		notification.Title,
		notification.Message,
		nullableString(notification.Link),
		read,
		formatTime(notification.CreatedAt),
	)
	return mapSQLiteError(err)
}

// ListNotificationsForUser returns a user's notifications, newest first.
func (r *NotificationRepository) ListNotificationsForUser(ctx context.Context, userID string, unreadOnly bool) ([]persistence.Notification, error) {
	query := `
		SELECT id, user_id, type, title, message, link, read, created_at
		FROM notifications
		WHERE user_id = ?
	`
	if unreadOnly {
		query += ` AND read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.helper.Query(ctx, query, userID)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var notifications []persistence.Notification
	for rows.Next() {
		var notification persistence.Notification
		var link sql.NullString
		var read int
		var createdAt string

		err := rows.Scan(
			&notification.ID,
			&notification.UserID,
			&notification.Type,
			&notification.Title,
			&notification.Message,
			&link,
			&read,
			&createdAt,
		)
		if err != nil {
			return nil, mapSQLiteError(err)
		}

		notification.Link = stringFromNull(link)
		notification.Read = read != 0
		if notification.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
			return nil, err
		}
		notifications = append(notifications, notification)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError(err)
	}
	return notifications, nil
}

// MarkNotificationRead marks a single notification read, owner scoped.
func (r *NotificationRepository) MarkNotificationRead(ctx context.Context, id, userID string) error {
	query := `UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`
	result, err := r.helper.Exec(ctx, query, id, userID)
	if err != nil {
		return mapSQLiteError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// MarkAllNotificationsRead marks every unread notification for a user read.
func (r *NotificationRepository) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	query := `UPDATE notifications SET read = 1 WHERE user_id = ? AND read = 0`
	if _, err := r.helper.Exec(ctx, query, userID); err != nil {
		return mapSQLiteError(err)
	}
	return nil
}
