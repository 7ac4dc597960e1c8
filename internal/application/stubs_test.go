package application

import (
	"context"
	"fmt"
	"time"

	"github.com/example/meeting-coordinator/internal/availability"
	"github.com/example/meeting-coordinator/internal/persistence"
)

type userRepoStub struct {
	users     map[string]persistence.User
	createErr error
	updateErr error
	updated   []persistence.User
}

func newUserRepoStub(users ...persistence.User) *userRepoStub {
	stub := &userRepoStub{users: make(map[string]persistence.User)}
	for _, user := range users {
		stub.users[user.ID] = user
	}
	return stub
}

func (s *userRepoStub) CreateUser(_ context.Context, user persistence.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return persistence.ErrDuplicate
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *userRepoStub) UpdateUser(_ context.Context, user persistence.User) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.users[user.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.users[user.ID] = user
	s.updated = append(s.updated, user)
	return nil
}

func (s *userRepoStub) GetUser(_ context.Context, id string) (persistence.User, error) {
	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

func (s *userRepoStub) GetUserByEmail(_ context.Context, email string) (persistence.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

func (s *userRepoStub) GetUsersByEmails(_ context.Context, emails []string) ([]persistence.User, error) {
	var found []persistence.User
	for _, email := range emails {
		for _, user := range s.users {
			if user.Email == email {
				found = append(found, user)
			}
		}
	}
	return found, nil
}

type ruleRepoStub struct {
	rules     []persistence.AvailabilityRule
	createErr error
}

func (s *ruleRepoStub) CreateRule(_ context.Context, rule persistence.AvailabilityRule) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.rules = append(s.rules, rule)
	return nil
}

func (s *ruleRepoStub) ListRulesForUser(_ context.Context, userID string) ([]persistence.AvailabilityRule, error) {
	var out []persistence.AvailabilityRule
	for _, rule := range s.rules {
		if rule.UserID == userID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (s *ruleRepoStub) DeleteRule(_ context.Context, id, userID string) error {
	for i, rule := range s.rules {
		if rule.ID == id && rule.UserID == userID {
			s.rules = append(s.rules[:i], s.rules[i+1:]...)
			return nil
		}
	}
	return persistence.ErrNotFound
}

func (s *ruleRepoStub) DeleteRulesForUser(_ context.Context, userID string) error {
	var kept []persistence.AvailabilityRule
	for _, rule := range s.rules {
		if rule.UserID != userID {
			kept = append(kept, rule)
		}
	}
	s.rules = kept
	return nil
}

type blockedRepoStub struct {
	blocked []persistence.BlockedTime
}

func (s *blockedRepoStub) CreateBlockedTime(_ context.Context, blocked persistence.BlockedTime) error {
	s.blocked = append(s.blocked, blocked)
	return nil
}

func (s *blockedRepoStub) ListBlockedTimesForUser(_ context.Context, userID string) ([]persistence.BlockedTime, error) {
	var out []persistence.BlockedTime
	for _, block := range s.blocked {
		if block.UserID == userID {
			out = append(out, block)
		}
	}
	return out, nil
}

func (s *blockedRepoStub) ListBlockedTimesInRange(_ context.Context, userID string, start, end time.Time) ([]persistence.BlockedTime, error) {
	var out []persistence.BlockedTime
	for _, block := range s.blocked {
		if block.UserID == userID && block.Start.Before(end) && block.End.After(start) {
			out = append(out, block)
		}
	}
	return out, nil
}

func (s *blockedRepoStub) DeleteBlockedTime(_ context.Context, id, userID string) error {
	for i, block := range s.blocked {
		if block.ID == id && block.UserID == userID {
			s.blocked = append(s.blocked[:i], s.blocked[i+1:]...)
			return nil
		}
	}
	return persistence.ErrNotFound
}

type permissionRepoStub struct {
	permissions []persistence.CalendarPermission
	contacts    []persistence.FrequentContact
	createErr   error
}

func (s *permissionRepoStub) CreatePermission(_ context.Context, permission persistence.CalendarPermission) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.permissions = append(s.permissions, permission)
	return nil
}

func (s *permissionRepoStub) HasActivePermission(_ context.Context, grantorID, granteeID, granteeDomain string, reference time.Time) (bool, error) {
	for _, p := range s.permissions {
		if p.GrantorID != grantorID || p.Status != persistence.PermissionStatusActive {
			continue
		}
		if p.ExpiresAt != nil && !p.ExpiresAt.After(reference) {
			continue
		}
		if p.GranteeID != nil && *p.GranteeID == granteeID {
			return true, nil
		}
		if p.GranteeDomain != nil && *p.GranteeDomain == granteeDomain {
			return true, nil
		}
	}
	return false, nil
}

func (s *permissionRepoStub) ListPermissionsByGrantor(_ context.Context, grantorID string) ([]persistence.CalendarPermission, error) {
	var out []persistence.CalendarPermission
	for _, p := range s.permissions {
		if p.GrantorID == grantorID && p.Status == persistence.PermissionStatusActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *permissionRepoStub) ListPermissionsForGrantee(_ context.Context, granteeID, granteeDomain string, reference time.Time) ([]persistence.CalendarPermission, error) {
	var out []persistence.CalendarPermission
	for _, p := range s.permissions {
		if p.Status != persistence.PermissionStatusActive {
			continue
		}
		if p.ExpiresAt != nil && !p.ExpiresAt.After(reference) {
			continue
		}
		if (p.GranteeID != nil && *p.GranteeID == granteeID) || (p.GranteeDomain != nil && *p.GranteeDomain == granteeDomain) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *permissionRepoStub) ListFrequentContacts(_ context.Context, _ string, limit int) ([]persistence.FrequentContact, error) {
	if len(s.contacts) > limit {
		return s.contacts[:limit], nil
	}
	return s.contacts, nil
}

func (s *permissionRepoStub) RevokePermission(_ context.Context, id, grantorID string, revokedAt time.Time) error {
	for i, p := range s.permissions {
		if p.ID == id && p.GrantorID == grantorID && p.Status == persistence.PermissionStatusActive {
			s.permissions[i].Status = persistence.PermissionStatusRevoked
			s.permissions[i].UpdatedAt = revokedAt
			return nil
		}
	}
	return persistence.ErrNotFound
}

type requestRepoStub struct {
	requests []persistence.PermissionRequest
}

func (s *requestRepoStub) CreateRequest(_ context.Context, request persistence.PermissionRequest) error {
	s.requests = append(s.requests, request)
	return nil
}

func (s *requestRepoStub) GetRequest(_ context.Context, id string) (persistence.PermissionRequest, error) {
	for _, r := range s.requests {
		if r.ID == id {
			return r, nil
		}
	}
	return persistence.PermissionRequest{}, persistence.ErrNotFound
}

func (s *requestRepoStub) UpdateRequestStatus(_ context.Context, id, status string, respondedAt time.Time) error {
	for i, r := range s.requests {
		if r.ID == id {
			s.requests[i].Status = status
			s.requests[i].RespondedAt = &respondedAt
			return nil
		}
	}
	return persistence.ErrNotFound
}

func (s *requestRepoStub) ListPendingForRecipient(_ context.Context, recipientID string) ([]persistence.PermissionRequest, error) {
	var out []persistence.PermissionRequest
	for _, r := range s.requests {
		if r.RecipientID != nil && *r.RecipientID == recipientID && r.Status == persistence.RequestStatusPending {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *requestRepoStub) ListByRequester(_ context.Context, requesterID string) ([]persistence.PermissionRequest, error) {
	var out []persistence.PermissionRequest
	for _, r := range s.requests {
		if r.RequesterID == requesterID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *requestRepoStub) FindPendingBetween(_ context.Context, requesterID, recipientID string) (persistence.PermissionRequest, error) {
	for _, r := range s.requests {
		if r.RequesterID == requesterID && r.RecipientID != nil && *r.RecipientID == recipientID && r.Status == persistence.RequestStatusPending {
			return r, nil
		}
	}
	return persistence.PermissionRequest{}, persistence.ErrNotFound
}

func (s *requestRepoStub) FindPendingForEmail(_ context.Context, requesterID, recipientEmail string) (persistence.PermissionRequest, error) {
	for _, r := range s.requests {
		if r.RequesterID == requesterID && r.RecipientEmail != nil && *r.RecipientEmail == recipientEmail && r.Status == persistence.RequestStatusPending {
			return r, nil
		}
	}
	return persistence.PermissionRequest{}, persistence.ErrNotFound
}

func (s *requestRepoStub) RebindEmailRequests(_ context.Context, recipientEmail, newRecipientID string, boundAt time.Time) ([]persistence.PermissionRequest, error) {
	var rebound []persistence.PermissionRequest
	for i, r := range s.requests {
		if r.RecipientEmail != nil && *r.RecipientEmail == recipientEmail && r.Status == persistence.RequestStatusPending && r.ExpiresAt.After(boundAt) {
			recipientID := newRecipientID
			s.requests[i].RecipientID = &recipientID
			s.requests[i].RecipientEmail = nil
			rebound = append(rebound, s.requests[i])
		}
	}
	return rebound, nil
}

type meetingRepoStub struct {
	meetings  []persistence.Meeting
	createErr error
}

func (s *meetingRepoStub) CreateMeeting(_ context.Context, meeting persistence.Meeting) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.meetings = append(s.meetings, meeting)
	return nil
}

func (s *meetingRepoStub) GetMeeting(_ context.Context, id string) (persistence.Meeting, error) {
	for _, m := range s.meetings {
		if m.ID == id {
			return m, nil
		}
	}
	return persistence.Meeting{}, persistence.ErrNotFound
}

func (s *meetingRepoStub) ListMeetingsByCoordinator(_ context.Context, coordinatorID string) ([]persistence.Meeting, error) {
	var out []persistence.Meeting
	for _, m := range s.meetings {
		if m.CoordinatorID == coordinatorID {
			out = append(out, m)
		}
	}
	return out, nil
}

type notifierStub struct {
	notified []notifiedCall
}

type notifiedCall struct {
	userID string
	kind   string
	title  string
}

func (s *notifierStub) Notify(_ context.Context, userID, kind, title, _, _ string) {
	s.notified = append(s.notified, notifiedCall{userID: userID, kind: kind, title: title})
}

type busyStub struct {
	busy map[string][]availability.Interval
	errs map[string]error
}

func (s *busyStub) FetchBusy(_ context.Context, userID string, _, _ time.Time, buffer time.Duration) ([]availability.Interval, error) {
	if err, ok := s.errs[userID]; ok {
		return nil, err
	}
	return availability.ExpandAll(s.busy[userID], buffer), nil
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
