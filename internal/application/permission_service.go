package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/meeting-coordinator/internal/persistence"
)

// personalEmailDomains are consumer mail providers that may never receive a
// domain grant. A grant to gmail.com would open the calendar to every Gmail
// account in existence.
var personalEmailDomains = map[string]struct{}{
	"gmail.com":      {},
	"yahoo.com":      {},
	"hotmail.com":    {},
	"outlook.com":    {},
	"icloud.com":     {},
	"aol.com":        {},
	"protonmail.com": {},
	"mail.com":       {},
	"zoho.com":       {},
	"yandex.com":     {},
	"live.com":       {},
	"me.com":         {},
	"msn.com":        {},
}

// PermissionRepository captures the persistence operations needed by the
// permission service.
type PermissionRepository interface {
	CreatePermission(ctx context.Context, permission persistence.CalendarPermission) error
	HasActivePermission(ctx context.Context, grantorID, granteeID, granteeDomain string, reference time.Time) (bool, error)
	ListPermissionsByGrantor(ctx context.Context, grantorID string) ([]persistence.CalendarPermission, error)
	ListPermissionsForGrantee(ctx context.Context, granteeID, granteeDomain string, reference time.Time) ([]persistence.CalendarPermission, error)
	RevokePermission(ctx context.Context, id, grantorID string, revokedAt time.Time) error
	ListFrequentContacts(ctx context.Context, userID string, limit int) ([]persistence.FrequentContact, error)
}

// RequestRepository captures the persistence operations needed for the
// permission request lifecycle.
type RequestRepository interface {
	CreateRequest(ctx context.Context, request persistence.PermissionRequest) error
	GetRequest(ctx context.Context, id string) (persistence.PermissionRequest, error)
	UpdateRequestStatus(ctx context.Context, id, status string, respondedAt time.Time) error
	ListPendingForRecipient(ctx context.Context, recipientID string) ([]persistence.PermissionRequest, error)
	ListByRequester(ctx context.Context, requesterID string) ([]persistence.PermissionRequest, error)
	FindPendingBetween(ctx context.Context, requesterID, recipientID string) (persistence.PermissionRequest, error)
	FindPendingForEmail(ctx context.Context, requesterID, recipientEmail string) (persistence.PermissionRequest, error)
	RebindEmailRequests(ctx context.Context, recipientEmail, newRecipientID string, boundAt time.Time) ([]persistence.PermissionRequest, error)
}

// UserReader resolves users by id or email for permission checks.
type UserReader interface {
	GetUser(ctx context.Context, id string) (persistence.User, error)
	GetUserByEmail(ctx context.Context, email string) (persistence.User, error)
}

// PermissionService implements the three-tier calendar access model: one-time
// grants with an expiry, durable per-user grants, and durable domain grants.
type PermissionService struct {
	permissions PermissionRepository
	requests    RequestRepository
	users       UserReader
	notifier    NotificationSink
	onceTTL     time.Duration
	emailReqTTL time.Duration
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewPermissionService wires dependencies for the permission service.
func NewPermissionService(permissions PermissionRepository, requests RequestRepository, users UserReader, notifier NotificationSink, onceTTL, emailReqTTL time.Duration, idGenerator func() string, now func() time.Time, logger *slog.Logger) *PermissionService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if onceTTL <= 0 {
		onceTTL = 7 * 24 * time.Hour
	}
	if emailReqTTL <= 0 {
		emailReqTTL = 30 * 24 * time.Hour
	}
	return &PermissionService{
		permissions: permissions,
		requests:    requests,
		users:       users,
		notifier:    notifier,
		onceTTL:     onceTTL,
		emailReqTTL: emailReqTTL,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// HasPermission reports whether the requester may read the owner's busy
// intervals. Owners always read their own calendar.
func (s *PermissionService) HasPermission(ctx context.Context, ownerID, requesterID string) (bool, error) {
	if ownerID == requesterID {
		return true, nil
	}

	requester, err := s.users.GetUser(ctx, requesterID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load requester: %w", err)
	}

	has, err := s.permissions.HasActivePermission(ctx, ownerID, requesterID, domainOf(requester.Email), s.now())
	if err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}
	return has, nil
}

// GrantToUser creates a durable grant letting the addressed user read the
// principal's calendar.
func (s *PermissionService) GrantToUser(ctx context.Context, principal Principal, granteeEmail string) (Permission, error) {
	logger := serviceLogger(ctx, s.logger, "permission", "grant_user", "grantor_id", principal.UserID)

	email := strings.ToLower(strings.TrimSpace(granteeEmail))
	if email == "" {
		vErr := &ValidationError{}
		vErr.add("grantee_email", "grantee email is required")
		return Permission{}, vErr
	}
	if email == strings.ToLower(principal.Email) {
		return Permission{}, ErrSelfGrant
	}

	grantee, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Permission{}, ErrNotFound
		}
		return Permission{}, fmt.Errorf("failed to load grantee: %w", err)
	}
	if grantee.ID == principal.UserID {
		return Permission{}, ErrSelfGrant
	}

	already, err := s.permissions.HasActivePermission(ctx, principal.UserID, grantee.ID, domainOf(grantee.Email), s.now())
	if err != nil {
		return Permission{}, fmt.Errorf("failed to check existing grants: %w", err)
	}
	if already {
		return Permission{}, ErrAlreadyExists
	}

	permission, err := s.createGrant(ctx, principal.UserID, grantee.ID, UserGrant{})
	if err != nil {
		return Permission{}, err
	}

	s.notify(ctx, grantee.ID, NotificationPermissionGranted,
		"Calendar access granted",
		fmt.Sprintf("%s granted you access to their calendar", principal.Email),
		"/permissions")

	logger.Info("user grant created", "permission_id", permission.ID, "grantee_id", grantee.ID)
	return permission, nil
}

// GrantToDomain creates a durable grant letting every user of an email domain
// read the principal's calendar. Consumer mail provider domains are rejected.
func (s *PermissionService) GrantToDomain(ctx context.Context, principal Principal, domain string) (Permission, error) {
	logger := serviceLogger(ctx, s.logger, "permission", "grant_domain", "grantor_id", principal.UserID)

	normalized := strings.ToLower(strings.TrimSpace(domain))
	vErr := &ValidationError{}
	if normalized == "" {
		vErr.add("domain", "domain is required")
	} else if strings.ContainsAny(normalized, "@ ") || !strings.Contains(normalized, ".") {
		vErr.add("domain", "domain is invalid")
	}
	if vErr.HasErrors() {
		return Permission{}, vErr
	}
	if _, blocked := personalEmailDomains[normalized]; blocked {
		return Permission{}, ErrPersonalDomain
	}

	already, err := s.permissions.HasActivePermission(ctx, principal.UserID, "", normalized, s.now())
	if err != nil {
		return Permission{}, fmt.Errorf("failed to check existing grants: %w", err)
	}
	if already {
		return Permission{}, ErrAlreadyExists
	}

	permission, err := s.createGrant(ctx, principal.UserID, "", DomainGrant{Domain: normalized})
	if err != nil {
		return Permission{}, err
	}

	logger.Info("domain grant created", "permission_id", permission.ID, "domain", normalized)
	return permission, nil
}

// createGrant persists one permission row for the grant variant. The switch
// is exhaustive over the closed Grant set.
func (s *PermissionService) createGrant(ctx context.Context, grantorID, granteeID string, grant Grant) (Permission, error) {
	now := s.now()
	record := persistence.CalendarPermission{
		ID:        s.idGenerator(),
		GrantorID: grantorID,
		Status:    persistence.PermissionStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch g := grant.(type) {
	case OnceGrant:
		record.Type = persistence.PermissionTypeOnce
		record.GranteeID = &granteeID
		expiry := g.ExpiresAt
		record.ExpiresAt = &expiry
	case UserGrant:
		record.Type = persistence.PermissionTypeUser
		record.GranteeID = &granteeID
	case DomainGrant:
		record.Type = persistence.PermissionTypeDomain
		domain := g.Domain
		record.GranteeDomain = &domain
	default:
		return Permission{}, fmt.Errorf("unknown grant variant %T", grant)
	}

	if err := s.permissions.CreatePermission(ctx, record); err != nil {
		return Permission{}, fmt.Errorf("failed to create permission: %w", err)
	}
	return toPermission(record), nil
}

// CreateRequest files a permission request against a registered user or a
// bare email address. Email-addressed requests carry a longer expiry and emit
// no notification since there is no account to notify yet.
func (s *PermissionService) CreateRequest(ctx context.Context, principal Principal, params CreateRequestParams) (Request, error) {
	logger := serviceLogger(ctx, s.logger, "permission", "create_request", "requester_id", principal.UserID)

	email := strings.ToLower(strings.TrimSpace(params.RecipientEmail))
	vErr := &ValidationError{}
	if email == "" {
		vErr.add("recipient_email", "recipient email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		vErr.add("recipient_email", "recipient email is invalid")
	}
	if vErr.HasErrors() {
		return Request{}, vErr
	}
	if email == strings.ToLower(principal.Email) {
		return Request{}, ErrSelfGrant
	}

	now := s.now()
	record := persistence.PermissionRequest{
		ID:          s.idGenerator(),
		RequesterID: principal.UserID,
		Status:      persistence.RequestStatusPending,
		CreatedAt:   now,
	}
	if params.MeetingContext != "" {
		meetingContext := params.MeetingContext
		record.MeetingContext = &meetingContext
	}

	recipient, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		already, err := s.permissions.HasActivePermission(ctx, recipient.ID, principal.UserID, domainOf(principal.Email), now)
		if err != nil {
			return Request{}, fmt.Errorf("failed to check existing grants: %w", err)
		}
		if already {
			return Request{}, ErrAlreadyExists
		}
		if _, err := s.requests.FindPendingBetween(ctx, principal.UserID, recipient.ID); err == nil {
			return Request{}, ErrAlreadyExists
		} else if !errors.Is(err, persistence.ErrNotFound) {
			return Request{}, fmt.Errorf("failed to check pending requests: %w", err)
		}

		recipientID := recipient.ID
		record.RecipientID = &recipientID
		record.ExpiresAt = now.Add(s.onceTTL)

	case errors.Is(err, persistence.ErrNotFound):
		if _, err := s.requests.FindPendingForEmail(ctx, principal.UserID, email); err == nil {
			return Request{}, ErrAlreadyExists
		} else if !errors.Is(err, persistence.ErrNotFound) {
			return Request{}, fmt.Errorf("failed to check pending requests: %w", err)
		}

		recipientEmail := email
		record.RecipientEmail = &recipientEmail
		record.ExpiresAt = now.Add(s.emailReqTTL)

	default:
		return Request{}, fmt.Errorf("failed to look up recipient: %w", err)
	}

	if err := s.requests.CreateRequest(ctx, record); err != nil {
		return Request{}, fmt.Errorf("failed to create request: %w", err)
	}

	if record.RecipientID != nil {
		s.notify(ctx, *record.RecipientID, NotificationPermissionRequest,
			"Calendar access requested",
			fmt.Sprintf("%s requested access to your calendar", principal.Email),
			"/permissions/requests")
	}

	logger.Info("request created", "request_id", record.ID)
	return toRequest(record), nil
}

// ApproveRequest answers a pending request by issuing a one-time grant to the
// requester. Only the recipient may approve, and an expired request is closed
// instead of honored.
func (s *PermissionService) ApproveRequest(ctx context.Context, principal Principal, requestID string) (Permission, error) {
	logger := serviceLogger(ctx, s.logger, "permission", "approve_request", "request_id", requestID)

	record, err := s.loadActionableRequest(ctx, principal, requestID)
	if err != nil {
		return Permission{}, err
	}

	now := s.now()
	permission, err := s.createGrant(ctx, principal.UserID, record.RequesterID, OnceGrant{ExpiresAt: now.Add(s.onceTTL)})
	if err != nil {
		return Permission{}, err
	}

	if err := s.requests.UpdateRequestStatus(ctx, record.ID, persistence.RequestStatusApproved, now); err != nil {
		return Permission{}, fmt.Errorf("failed to update request: %w", err)
	}

	s.notify(ctx, record.RequesterID, NotificationPermissionGranted,
		"Calendar access approved",
		fmt.Sprintf("%s approved your calendar access request", principal.Email),
		"/permissions")

	logger.Info("request approved", "permission_id", permission.ID)
	return permission, nil
}

// DenyRequest answers a pending request without issuing a grant.
func (s *PermissionService) DenyRequest(ctx context.Context, principal Principal, requestID string) error {
	logger := serviceLogger(ctx, s.logger, "permission", "deny_request", "request_id", requestID)

	record, err := s.loadActionableRequest(ctx, principal, requestID)
	if err != nil {
		return err
	}

	if err := s.requests.UpdateRequestStatus(ctx, record.ID, persistence.RequestStatusDenied, s.now()); err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}

	s.notify(ctx, record.RequesterID, NotificationPermissionDenied,
		"Calendar access denied",
		fmt.Sprintf("%s denied your calendar access request", principal.Email),
		"/permissions/requests")

	logger.Info("request denied")
	return nil
}

// loadActionableRequest fetches a request and verifies the principal may act
// on it. Expired requests are lazily transitioned and reported closed.
func (s *PermissionService) loadActionableRequest(ctx context.Context, principal Principal, requestID string) (persistence.PermissionRequest, error) {
	record, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.PermissionRequest{}, ErrNotFound
		}
		return persistence.PermissionRequest{}, fmt.Errorf("failed to load request: %w", err)
	}

	if record.RecipientID == nil || *record.RecipientID != principal.UserID {
		return persistence.PermissionRequest{}, ErrUnauthorized
	}
	if record.Status != persistence.RequestStatusPending {
		return persistence.PermissionRequest{}, ErrRequestClosed
	}
	if !record.ExpiresAt.After(s.now()) {
		if err := s.requests.UpdateRequestStatus(ctx, record.ID, persistence.RequestStatusExpired, s.now()); err != nil {
			return persistence.PermissionRequest{}, fmt.Errorf("failed to expire request: %w", err)
		}
		return persistence.PermissionRequest{}, ErrRequestClosed
	}
	return record, nil
}

// Revoke marks one of the principal's grants revoked.
func (s *PermissionService) Revoke(ctx context.Context, principal Principal, permissionID string) error {
	logger := serviceLogger(ctx, s.logger, "permission", "revoke", "permission_id", permissionID)

	err := s.permissions.RevokePermission(ctx, permissionID, principal.UserID, s.now())
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to revoke permission: %w", err)
	}

	logger.Info("permission revoked")
	return nil
}

// ListGrants returns the principal's active outgoing grants.
func (s *PermissionService) ListGrants(ctx context.Context, principal Principal) ([]Permission, error) {
	records, err := s.permissions.ListPermissionsByGrantor(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	return toPermissions(records), nil
}

// ListGrantedToMe returns the live grants that let the principal read other
// calendars, whether addressed to them directly or to their email domain.
func (s *PermissionService) ListGrantedToMe(ctx context.Context, principal Principal) ([]Permission, error) {
	records, err := s.permissions.ListPermissionsForGrantee(ctx, principal.UserID, domainOf(principal.Email), s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	return toPermissions(records), nil
}

// frequentContactLimit caps how many contacts FrequentContacts returns.
const frequentContactLimit = 20

// FrequentContacts returns people the principal has granted access to or
// requested access from, most recent interaction first.
func (s *PermissionService) FrequentContacts(ctx context.Context, principal Principal) ([]Contact, error) {
	records, err := s.permissions.ListFrequentContacts(ctx, principal.UserID, frequentContactLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}

	contacts := make([]Contact, 0, len(records))
	for _, record := range records {
		contacts = append(contacts, Contact{Email: record.Email, DisplayName: record.DisplayName})
	}
	return contacts, nil
}

// ListPendingRequests returns the principal's inbound pending requests.
// Requests past their expiry are filtered out and lazily marked expired.
func (s *PermissionService) ListPendingRequests(ctx context.Context, principal Principal) ([]Request, error) {
	logger := serviceLogger(ctx, s.logger, "permission", "list_pending", "user_id", principal.UserID)

	records, err := s.requests.ListPendingForRecipient(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}

	now := s.now()
	requests := make([]Request, 0, len(records))
	for _, record := range records {
		if !record.ExpiresAt.After(now) {
			if err := s.requests.UpdateRequestStatus(ctx, record.ID, persistence.RequestStatusExpired, now); err != nil {
				logger.Warn("failed to expire request", "request_id", record.ID, "error", err)
			}
			continue
		}
		requests = append(requests, toRequest(record))
	}
	return requests, nil
}

// ListSentRequests returns every request the principal has filed.
func (s *PermissionService) ListSentRequests(ctx context.Context, principal Principal) ([]Request, error) {
	records, err := s.requests.ListByRequester(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}

	requests := make([]Request, 0, len(records))
	for _, record := range records {
		requests = append(requests, toRequest(record))
	}
	return requests, nil
}

// ResolvePendingOnSignup rebinds pending email-addressed requests to a newly
// registered user and notifies them once per rebound request.
func (s *PermissionService) ResolvePendingOnSignup(ctx context.Context, userID, email string) error {
	logger := serviceLogger(ctx, s.logger, "permission", "resolve_on_signup", "user_id", userID)

	rebound, err := s.requests.RebindEmailRequests(ctx, email, userID, s.now())
	if err != nil {
		return fmt.Errorf("failed to rebind requests: %w", err)
	}

	for _, record := range rebound {
		requester, err := s.users.GetUser(ctx, record.RequesterID)
		requesterLabel := record.RequesterID
		if err == nil {
			requesterLabel = requester.Email
		}
		s.notify(ctx, userID, NotificationPermissionRequest,
			"Calendar access requested",
			fmt.Sprintf("%s requested access to your calendar", requesterLabel),
			"/permissions/requests")
	}

	if len(rebound) > 0 {
		logger.Info("pending requests rebound", "count", len(rebound))
	}
	return nil
}

func (s *PermissionService) notify(ctx context.Context, userID, kind, title, message, link string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, userID, kind, title, message, link)
}

func toPermission(record persistence.CalendarPermission) Permission {
	permission := Permission{
		ID:        record.ID,
		GrantorID: record.GrantorID,
		Type:      record.Type,
		Status:    record.Status,
		ExpiresAt: record.ExpiresAt,
		CreatedAt: record.CreatedAt,
	}
	if record.GranteeID != nil {
		permission.GranteeID = *record.GranteeID
	}
	if record.GranteeDomain != nil {
		permission.GranteeDomain = *record.GranteeDomain
	}
	return permission
}

func toPermissions(records []persistence.CalendarPermission) []Permission {
	permissions := make([]Permission, 0, len(records))
	for _, record := range records {
		permissions = append(permissions, toPermission(record))
	}
	return permissions
}

func toRequest(record persistence.PermissionRequest) Request {
	request := Request{
		ID:          record.ID,
		RequesterID: record.RequesterID,
		Status:      record.Status,
		ExpiresAt:   record.ExpiresAt,
		CreatedAt:   record.CreatedAt,
	}
	if record.RecipientID != nil {
		request.RecipientID = *record.RecipientID
	}
	if record.RecipientEmail != nil {
		request.RecipientEmail = *record.RecipientEmail
	}
	if record.MeetingContext != nil {
		request.MeetingContext = *record.MeetingContext
	}
	return request
}
