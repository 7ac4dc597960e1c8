package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/meeting-coordinator/internal/persistence"
)

// Notification type labels persisted with each record.
const (
	NotificationPermissionRequest = "permission_request"
	NotificationPermissionGranted = "permission_granted"
	NotificationPermissionDenied  = "permission_denied"
	NotificationMeetingScheduled  = "meeting_scheduled"
)

// NotificationSink accepts fire-and-forget notifications from the core
// services. Failures are logged by the implementation, never propagated.
type NotificationSink interface {
	Notify(ctx context.Context, userID, kind, title, message, link string)
}

// NotificationRepository captures the persistence operations needed by the
// notification service.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification persistence.Notification) error
	ListNotificationsForUser(ctx context.Context, userID string, unreadOnly bool) ([]persistence.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) error
}

// NotificationService persists and lists in-app notifications.
type NotificationService struct {
	notifications NotificationRepository
	idGenerator   func() string
	now           func() time.Time
	logger        *slog.Logger
}

// NewNotificationService wires dependencies for the notification service.
func NewNotificationService(notifications NotificationRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *NotificationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &NotificationService{
		notifications: notifications,
		idGenerator:   idGenerator,
		now:           now,
		logger:        defaultLogger(logger),
	}
}

// Notify records a notification for the user. Errors are logged and dropped
// so callers never fail on a notification write.
func (s *NotificationService) Notify(ctx context.Context, userID, kind, title, message, link string) {
	logger := serviceLogger(ctx, s.logger, "notification", "notify", "user_id", userID, "kind", kind)

	notification := persistence.Notification{
		ID:        s.idGenerator(),
		UserID:    userID,
		Type:      kind,
		Title:     title,
		Message:   message,
		CreatedAt: s.now(),
	}
	if link != "" {
		notification.Link = &link
	}

	if err := s.notifications.CreateNotification(ctx, notification); err != nil {
		logger.Warn("failed to record notification", "error", err)
	}
}

// List returns the principal's notifications, optionally unread only.
func (s *NotificationService) List(ctx context.Context, principal Principal, unreadOnly bool) ([]Notification, error) {
	records, err := s.notifications.ListNotificationsForUser(ctx, principal.UserID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	notifications := make([]Notification, 0, len(records))
	for _, record := range records {
		notifications = append(notifications, toNotification(record))
	}
	return notifications, nil
}

// MarkRead marks one of the principal's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, principal Principal, notificationID string) error {
	err := s.notifications.MarkNotificationRead(ctx, notificationID, principal.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead marks every unread notification of the principal as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, principal Principal) error {
	if err := s.notifications.MarkAllNotificationsRead(ctx, principal.UserID); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

func toNotification(record persistence.Notification) Notification {
	notification := Notification{
		ID:        record.ID,
		Type:      record.Type,
		Title:     record.Title,
		Message:   record.Message,
		Read:      record.Read,
		CreatedAt: record.CreatedAt,
	}
	if record.Link != nil {
		notification.Link = *record.Link
	}
	return notification
}
