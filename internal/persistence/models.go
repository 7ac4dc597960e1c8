package persistence

import "time"

// User represents a calendar owner account.
type User struct {
	ID            string
	Email         string
	DisplayName   string
	PasswordHash  *string
	Timezone      string
	BufferMinutes int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OAuthCredential stores the external-calendar tokens linked to a user.
type OAuthCredential struct {
	ID           string
	UserID       string
	Provider     string
	AccessToken  string
	RefreshToken *string
	Expiry       *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AvailabilityRule represents a recurring weekly availability window.
// StartTime and EndTime are wall-clock "HH:MM" values with no date component.
type AvailabilityRule struct {
	ID        string
	UserID    string
	DayOfWeek int
	StartTime string
	EndTime   string
	Timezone  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BlockedTime represents an ad-hoc unavailability override.
type BlockedTime struct {
	ID        string
	UserID    string
	Start     time.Time
	End       time.Time
	Reason    *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Permission type and status values persisted for calendar permissions.
const (
	PermissionTypeOnce   = "once"
	PermissionTypeUser   = "user"
	PermissionTypeDomain = "domain"

	PermissionStatusActive  = "active"
	PermissionStatusRevoked = "revoked"
)

// CalendarPermission is a directed authorization edge from a grantor to a
// grantee user or a grantee domain. Exactly one of GranteeID and
// GranteeDomain is set.
type CalendarPermission struct {
	ID            string
	GrantorID     string
	GranteeID     *string
	GranteeDomain *string
	Type          string
	Status        string
	ExpiresAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Permission request status values.
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusDenied   = "denied"
	RequestStatusExpired  = "expired"
)

// PermissionRequest is a pending ask for calendar access. RecipientEmail is
// set instead of RecipientID when the target has not signed up yet.
type PermissionRequest struct {
	ID             string
	RequesterID    string
	RecipientID    *string
	RecipientEmail *string
	MeetingContext *string
	Status         string
	RespondedAt    *time.Time
	ExpiresAt      time.Time
	CreatedAt      time.Time
}

// FrequentContact is a registered user the subject has interacted with
// through grants or requests, with the most recent interaction time.
type FrequentContact struct {
	Email           string
	DisplayName     string
	LastInteraction time.Time
}

// Meeting is a coordinator-owned scheduled interval with participant edges.
type Meeting struct {
	ID             string
	CoordinatorID  string
	Title          string
	Description    *string
	Start          time.Time
	End            time.Time
	ParticipantIDs []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Notification is a persisted in-app notification record.
type Notification struct {
	ID        string
	UserID    string
	Type      string
	Title     string
	Message   string
	Link      *string
	Read      bool
	CreatedAt time.Time
}
