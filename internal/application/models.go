package application

import (
	"strings"
	"time"

	"github.com/example/meeting-coordinator/internal/availability"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
	Email  string
}

// User is the caller-facing account view. The password hash never leaves the
// persistence layer.
type User struct {
	ID            string
	Email         string
	DisplayName   string
	Timezone      string
	BufferMinutes int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RegisterParams wraps the data required to register a new account.
type RegisterParams struct {
	Email       string
	DisplayName string
	Password    string
	Timezone    string
}

// SettingsInput carries the mutable scheduling preferences of a user.
type SettingsInput struct {
	Timezone      string
	BufferMinutes int
}

// RuleInput captures caller provided availability rule fields.
type RuleInput struct {
	DayOfWeek int
	StartTime string
	EndTime   string
	Timezone  string
}

// Rule is a persisted weekly availability window.
type Rule struct {
	ID        string
	DayOfWeek int
	StartTime string
	EndTime   string
	Timezone  string
	CreatedAt time.Time
}

// BlockedTimeInput captures caller provided blocked time fields.
type BlockedTimeInput struct {
	Start  time.Time
	End    time.Time
	Reason string
}

// BlockedTime is a persisted ad-hoc unavailability override.
type BlockedTime struct {
	ID        string
	Start     time.Time
	End       time.Time
	Reason    string
	CreatedAt time.Time
}

// Grant is the closed set of calendar access grant shapes. Exactly one
// concrete type backs each persisted permission row.
type Grant interface {
	isGrant()
}

// OnceGrant is a single-use grant that lapses at ExpiresAt.
type OnceGrant struct {
	ExpiresAt time.Time
}

// UserGrant is a durable grant to one specific user.
type UserGrant struct{}

// DomainGrant is a durable grant to every user of an email domain.
type DomainGrant struct {
	Domain string
}

func (OnceGrant) isGrant()   {}
func (UserGrant) isGrant()   {}
func (DomainGrant) isGrant() {}

// Permission is a caller-facing view of a calendar access grant.
type Permission struct {
	ID            string
	GrantorID     string
	GranteeID     string
	GranteeDomain string
	Type          string
	Status        string
	ExpiresAt     *time.Time
	CreatedAt     time.Time
}

// CreateRequestParams wraps the data required to file a permission request.
type CreateRequestParams struct {
	RecipientEmail string
	MeetingContext string
}

// Request is a caller-facing view of a permission request.
type Request struct {
	ID             string
	RequesterID    string
	RecipientID    string
	RecipientEmail string
	MeetingContext string
	Status         string
	ExpiresAt      time.Time
	CreatedAt      time.Time
}

// Contact is a person the principal has previously interacted with, offered
// as an autocomplete hint when addressing grants or searches.
type Contact struct {
	Email       string
	DisplayName string
}

// Participant status values reported by FindMeetingTimes.
const (
	// ParticipantReady means the participant's busy data was fetched and
	// included in the slot search.
	ParticipantReady = "ready"
	// ParticipantNoCalendar means the participant has no usable calendar
	// connection; they are excluded from the search.
	ParticipantNoCalendar = "no_calendar"
	// ParticipantPendingApproval means an earlier access request is still
	// awaiting the participant's answer.
	ParticipantPendingApproval = "pending_approval"
	// ParticipantRequestSent means an access request was filed during this
	// call because no grant covered the coordinator.
	ParticipantRequestSent = "request_sent"
	// ParticipantUnregistered means the email has no account yet; a request
	// was filed that will bind when they sign up.
	ParticipantUnregistered = "unregistered"
)

// ParticipantStatus reports how one requested participant was handled.
type ParticipantStatus struct {
	Email  string
	UserID string
	Status string
}

// FindTimesParams wraps the inputs of a common slot search.
type FindTimesParams struct {
	ParticipantEmails []string
	SearchStart       time.Time
	SearchEnd         time.Time
	Duration          time.Duration
	MeetingContext    string
}

// FindTimesResult carries the found slots and the per-participant outcome.
type FindTimesResult struct {
	Slots        []availability.Interval
	Participants []ParticipantStatus
}

// MeetingInput captures caller provided meeting fields.
type MeetingInput struct {
	Title             string
	Description       string
	Start             time.Time
	End               time.Time
	ParticipantEmails []string
}

// Meeting is a caller-facing view of a scheduled meeting.
type Meeting struct {
	ID             string
	CoordinatorID  string
	Title          string
	Description    string
	Start          time.Time
	End            time.Time
	ParticipantIDs []string
	CreatedAt      time.Time
}

// Notification is a caller-facing view of an in-app notification.
type Notification struct {
	ID        string
	Type      string
	Title     string
	Message   string
	Link      string
	Read      bool
	CreatedAt time.Time
}

// domainOf returns the lowercased right-hand side of an email address.
func domainOf(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}
