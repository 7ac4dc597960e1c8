package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/meeting-coordinator/internal/persistence"
)

type notificationRepoStub struct {
	notifications []persistence.Notification
	createErr     error
}

func (s *notificationRepoStub) CreateNotification(_ context.Context, notification persistence.Notification) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.notifications = append(s.notifications, notification)
	return nil
}

func (s *notificationRepoStub) ListNotificationsForUser(_ context.Context, userID string, unreadOnly bool) ([]persistence.Notification, error) {
	var out []persistence.Notification
	for _, n := range s.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *notificationRepoStub) MarkNotificationRead(_ context.Context, id, userID string) error {
	for i, n := range s.notifications {
		if n.ID == id && n.UserID == userID {
			s.notifications[i].Read = true
			return nil
		}
	}
	return persistence.ErrNotFound
}

func (s *notificationRepoStub) MarkAllNotificationsRead(_ context.Context, userID string) error {
	for i, n := range s.notifications {
		if n.UserID == userID {
			s.notifications[i].Read = true
		}
	}
	return nil
}

func TestNotificationService_NotifyAndList(t *testing.T) {
	t.Parallel()

	repo := &notificationRepoStub{}
	now := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	svc := NewNotificationService(repo, sequentialIDs("note"), fixedNow(now), nil)

	svc.Notify(context.Background(), "u1", NotificationPermissionRequest, "Calendar access requested", "bob asked", "/permissions/requests")
	svc.Notify(context.Background(), "u1", NotificationMeetingScheduled, "Meeting scheduled", "standup", "")
	svc.Notify(context.Background(), "u2", NotificationPermissionGranted, "Calendar access granted", "", "")

	notifications, err := svc.List(context.Background(), Principal{UserID: "u1"}, false)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(notifications) != 2 {
		t.Fatalf("expected two notifications for u1, got %v", notifications)
	}
	if notifications[0].Link != "/permissions/requests" {
		t.Fatalf("expected link to survive, got %q", notifications[0].Link)
	}
	if notifications[1].Link != "" {
		t.Fatalf("expected empty link, got %q", notifications[1].Link)
	}
}

func TestNotificationService_Notify_SwallowsWriteFailure(t *testing.T) {
	t.Parallel()

	repo := &notificationRepoStub{createErr: errors.New("disk full")}
	svc := NewNotificationService(repo, sequentialIDs("note"), nil, nil)

	// Must not panic or surface the error.
	svc.Notify(context.Background(), "u1", NotificationPermissionRequest, "t", "m", "")
	if len(repo.notifications) != 0 {
		t.Fatal("nothing should be stored on failure")
	}
}

func TestNotificationService_MarkRead(t *testing.T) {
	t.Parallel()

	repo := &notificationRepoStub{notifications: []persistence.Notification{
		{ID: "n1", UserID: "u1", Type: NotificationPermissionRequest},
		{ID: "n2", UserID: "u1", Type: NotificationMeetingScheduled},
	}}
	svc := NewNotificationService(repo, nil, nil, nil)

	if err := svc.MarkRead(context.Background(), Principal{UserID: "other"}, "n1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another user's notification, got %v", err)
	}
	if err := svc.MarkRead(context.Background(), Principal{UserID: "u1"}, "n1"); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}

	unread, err := svc.List(context.Background(), Principal{UserID: "u1"}, true)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(unread) != 1 || unread[0].ID != "n2" {
		t.Fatalf("expected only n2 unread, got %v", unread)
	}

	if err := svc.MarkAllRead(context.Background(), Principal{UserID: "u1"}); err != nil {
		t.Fatalf("MarkAllRead failed: %v", err)
	}
	unread, err = svc.List(context.Background(), Principal{UserID: "u1"}, true)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(unread) != 0 {
		t.Fatalf("expected no unread notifications, got %v", unread)
	}
}
