package persistence

import (
	"context"
	"time"
)

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUsersByEmails(ctx context.Context, emails []string) ([]User, error)
}

// CredentialRepository stores external-calendar OAuth credentials per user.
type CredentialRepository interface {
	GetCredential(ctx context.Context, userID, provider string) (OAuthCredential, error)
	UpsertCredential(ctx context.Context, credential OAuthCredential) error
	DeleteCredential(ctx context.Context, userID, provider string) error
}

// RuleRepository stores recurring weekly availability rules.
type RuleRepository interface {
	CreateRule(ctx context.Context, rule AvailabilityRule) error
	ListRulesForUser(ctx context.Context, userID string) ([]AvailabilityRule, error)
	DeleteRule(ctx context.Context, id, userID string) error
	DeleteRulesForUser(ctx context.Context, userID string) error
}

// BlockedTimeRepository stores ad-hoc unavailability overrides.
type BlockedTimeRepository interface {
	CreateBlockedTime(ctx context.Context, blocked BlockedTime) error
	ListBlockedTimesForUser(ctx context.Context, userID string) ([]BlockedTime, error)
	ListBlockedTimesInRange(ctx context.Context, userID string, start, end time.Time) ([]BlockedTime, error)
	DeleteBlockedTime(ctx context.Context, id, userID string) error
}

// PermissionRepository stores calendar access grants.
type PermissionRepository interface {
	CreatePermission(ctx context.Context, permission CalendarPermission) error
	// HasActivePermission reports whether an active, non-expired grant exists
	// from the grantor to the grantee user id or the grantee domain.
	HasActivePermission(ctx context.Context, grantorID, granteeID, granteeDomain string, reference time.Time) (bool, error)
	ListPermissionsByGrantor(ctx context.Context, grantorID string) ([]CalendarPermission, error)
	ListPermissionsForGrantee(ctx context.Context, granteeID, granteeDomain string, reference time.Time) ([]CalendarPermission, error)
	RevokePermission(ctx context.Context, id, grantorID string, revokedAt time.Time) error
	// ListFrequentContacts returns registered users the subject has granted
	// access to or requested access from, most recent interaction first.
	ListFrequentContacts(ctx context.Context, userID string, limit int) ([]FrequentContact, error)
}

// RequestRepository stores pending permission requests.
type RequestRepository interface {
	CreateRequest(ctx context.Context, request PermissionRequest) error
	GetRequest(ctx context.Context, id string) (PermissionRequest, error)
	UpdateRequestStatus(ctx context.Context, id, status string, respondedAt time.Time) error
	ListPendingForRecipient(ctx context.Context, recipientID string) ([]PermissionRequest, error)
	ListByRequester(ctx context.Context, requesterID string) ([]PermissionRequest, error)
	FindPendingBetween(ctx context.Context, requesterID, recipientID string) (PermissionRequest, error)
	FindPendingForEmail(ctx context.Context, requesterID, recipientEmail string) (PermissionRequest, error)
	// RebindEmailRequests attaches pending requests addressed to an email with
	// no account to the newly registered user, returning the rebound rows.
	RebindEmailRequests(ctx context.Context, recipientEmail, newRecipientID string, boundAt time.Time) ([]PermissionRequest, error)
}

// MeetingRepository stores scheduled meetings and their participant edges.
type MeetingRepository interface {
	CreateMeeting(ctx context.Context, meeting Meeting) error
	GetMeeting(ctx context.Context, id string) (Meeting, error)
	ListMeetingsByCoordinator(ctx context.Context, coordinatorID string) ([]Meeting, error)
}

// NotificationRepository stores in-app notification records.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification Notification) error
	ListNotificationsForUser(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) error
}
