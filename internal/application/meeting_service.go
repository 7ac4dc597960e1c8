package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/example/meeting-coordinator/internal/availability"
	"github.com/example/meeting-coordinator/internal/persistence"
)

// MeetingRepository captures the persistence operations for meetings.
type MeetingRepository interface {
	CreateMeeting(ctx context.Context, meeting persistence.Meeting) error
	GetMeeting(ctx context.Context, id string) (persistence.Meeting, error)
	ListMeetingsByCoordinator(ctx context.Context, coordinatorID string) ([]persistence.Meeting, error)
}

// ParticipantResolver looks up registered users by email in bulk.
type ParticipantResolver interface {
	GetUser(ctx context.Context, id string) (persistence.User, error)
	GetUsersByEmails(ctx context.Context, emails []string) ([]persistence.User, error)
}

// AccessResolver gates calendar reads and files requests for missing grants.
type AccessResolver interface {
	HasPermission(ctx context.Context, ownerID, requesterID string) (bool, error)
	CreateRequest(ctx context.Context, principal Principal, params CreateRequestParams) (Request, error)
}

// MeetingService drives the find-a-meeting-time flow and stores chosen
// meetings.
type MeetingService struct {
	meetings    MeetingRepository
	users       ParticipantResolver
	rules       RuleRepository
	blocked     BlockedTimeRepository
	busy        BusyFetcher
	access      AccessResolver
	notifier    NotificationSink
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewMeetingService wires dependencies for the meeting service.
func NewMeetingService(meetings MeetingRepository, users ParticipantResolver, rules RuleRepository, blocked BlockedTimeRepository, busy BusyFetcher, access AccessResolver, notifier NotificationSink, idGenerator func() string, now func() time.Time, logger *slog.Logger) *MeetingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &MeetingService{
		meetings:    meetings,
		users:       users,
		rules:       rules,
		blocked:     blocked,
		busy:        busy,
		access:      access,
		notifier:    notifier,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// FindMeetingTimes resolves the requested participants, gates each one on
// calendar permission, fetches busy data concurrently for the authorized
// set, and runs the common slot search over everyone whose data arrived.
// Participants whose fetch fails are excluded rather than failing the call.
func (s *MeetingService) FindMeetingTimes(ctx context.Context, principal Principal, params FindTimesParams) (FindTimesResult, error) {
	logger := serviceLogger(ctx, s.logger, "meeting", "find_times", "coordinator_id", principal.UserID)

	vErr := &ValidationError{}
	if len(params.ParticipantEmails) == 0 {
		vErr.add("participant_emails", "at least one participant is required")
	}
	if params.Duration <= 0 {
		vErr.add("duration", "duration must be positive")
	}
	if !params.SearchEnd.After(params.SearchStart) {
		vErr.add("search_end", "search end must be after search start")
	}
	if vErr.HasErrors() {
		return FindTimesResult{}, vErr
	}

	coordinator, err := s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return FindTimesResult{}, ErrNotFound
		}
		return FindTimesResult{}, fmt.Errorf("failed to load coordinator: %w", err)
	}

	emails := normalizeEmails(params.ParticipantEmails, coordinator.Email)
	registered, err := s.users.GetUsersByEmails(ctx, emails)
	if err != nil {
		return FindTimesResult{}, fmt.Errorf("failed to resolve participants: %w", err)
	}
	byEmail := make(map[string]persistence.User, len(registered))
	for _, user := range registered {
		byEmail[user.Email] = user
	}

	result := FindTimesResult{}
	// The coordinator always searches with their own calendar included.
	authorized := []persistence.User{coordinator}

	for _, email := range emails {
		user, ok := byEmail[email]
		if !ok {
			status := s.requestAccess(ctx, logger, principal, email, params.MeetingContext, ParticipantUnregistered)
			result.Participants = append(result.Participants, ParticipantStatus{Email: email, Status: status})
			continue
		}

		allowed, err := s.access.HasPermission(ctx, user.ID, principal.UserID)
		if err != nil {
			return FindTimesResult{}, fmt.Errorf("failed to check permission: %w", err)
		}
		if !allowed {
			status := s.requestAccess(ctx, logger, principal, email, params.MeetingContext, ParticipantRequestSent)
			result.Participants = append(result.Participants, ParticipantStatus{Email: email, UserID: user.ID, Status: status})
			continue
		}

		authorized = append(authorized, user)
		result.Participants = append(result.Participants, ParticipantStatus{Email: email, UserID: user.ID, Status: ParticipantReady})
	}

	participants := s.gatherFreeBusy(ctx, logger, authorized, params.SearchStart, params.SearchEnd, result.Participants)

	loc, err := time.LoadLocation(coordinator.Timezone)
	if err != nil {
		loc = time.UTC
	}
	engine := availability.NewEngine(loc, s.now)
	slots, err := engine.FindCommonSlots(participants, params.SearchStart, params.SearchEnd, params.Duration)
	if err != nil {
		if errors.Is(err, availability.ErrNoParticipants) {
			// Every participant dropped out; report statuses with no slots.
			return result, nil
		}
		return FindTimesResult{}, err
	}

	result.Slots = slots
	logger.Info("slot search completed", "participants", len(participants), "slots", len(slots))
	return result, nil
}

// requestAccess files a permission request for a participant the coordinator
// cannot read yet. An already-pending request downgrades the status instead
// of erroring.
func (s *MeetingService) requestAccess(ctx context.Context, logger *slog.Logger, principal Principal, email, meetingContext, createdStatus string) string {
	_, err := s.access.CreateRequest(ctx, principal, CreateRequestParams{
		RecipientEmail: email,
		MeetingContext: meetingContext,
	})
	switch {
	case err == nil:
		return createdStatus
	case errors.Is(err, ErrAlreadyExists):
		return ParticipantPendingApproval
	default:
		logger.Warn("failed to file access request", "email", email, "error", err)
		return ParticipantPendingApproval
	}
}

// gatherFreeBusy fans out one fetch per authorized user and folds failures
// into exclusion, flipping the participant's reported status to no_calendar.
func (s *MeetingService) gatherFreeBusy(ctx context.Context, logger *slog.Logger, authorized []persistence.User, start, end time.Time, statuses []ParticipantStatus) []availability.Participant {
	type fetchResult struct {
		user persistence.User
		busy []availability.Interval
		err  error
	}

	results := make([]fetchResult, len(authorized))
	var wg sync.WaitGroup
	for i, user := range authorized {
		wg.Add(1)
		go func(i int, user persistence.User) {
			defer wg.Done()
			busy, err := s.busy.FetchBusy(ctx, user.ID, start, end, time.Duration(user.BufferMinutes)*time.Minute)
			results[i] = fetchResult{user: user, busy: busy, err: err}
		}(i, user)
	}
	wg.Wait()

	participants := make([]availability.Participant, 0, len(results))
	for _, r := range results {
		if r.err != nil {
			logger.Warn("excluding participant after fetch failure", "user_id", r.user.ID, "kind", ErrorKind(r.err))
			markNoCalendar(statuses, r.user.ID)
			continue
		}

		busy := r.busy
		if blocked, err := s.blocked.ListBlockedTimesInRange(ctx, r.user.ID, start, end); err == nil {
			for _, block := range blocked {
				busy = append(busy, availability.Interval{Start: block.Start, End: block.End})
			}
		} else {
			logger.Warn("blocked time lookup failed", "user_id", r.user.ID, "error", err)
		}

		ruleSet := availability.Unrestricted()
		if records, err := s.rules.ListRulesForUser(ctx, r.user.ID); err == nil {
			ruleSet = ruleSetFromRecords(records)
		} else {
			logger.Warn("rule lookup failed", "user_id", r.user.ID, "error", err)
		}

		participants = append(participants, availability.Participant{
			UserID: r.user.ID,
			Busy:   busy,
			Rules:  ruleSet,
		})
	}
	return participants
}

func markNoCalendar(statuses []ParticipantStatus, userID string) {
	for i := range statuses {
		if statuses[i].UserID == userID {
			statuses[i].Status = ParticipantNoCalendar
			return
		}
	}
}

// CreateMeeting stores a chosen slot as a meeting with participant edges and
// notifies each participant.
func (s *MeetingService) CreateMeeting(ctx context.Context, principal Principal, input MeetingInput) (Meeting, error) {
	logger := serviceLogger(ctx, s.logger, "meeting", "create", "coordinator_id", principal.UserID)

	vErr := &ValidationError{}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		vErr.add("title", "title is required")
	}
	if !input.End.After(input.Start) {
		vErr.add("end", "end must be after start")
	}
	if len(input.ParticipantEmails) == 0 {
		vErr.add("participant_emails", "at least one participant is required")
	}
	if vErr.HasErrors() {
		return Meeting{}, vErr
	}

	emails := normalizeEmails(input.ParticipantEmails, principal.Email)
	registered, err := s.users.GetUsersByEmails(ctx, emails)
	if err != nil {
		return Meeting{}, fmt.Errorf("failed to resolve participants: %w", err)
	}
	if len(registered) != len(emails) {
		found := make(map[string]struct{}, len(registered))
		for _, user := range registered {
			found[user.Email] = struct{}{}
		}
		for _, email := range emails {
			if _, ok := found[email]; !ok {
				vErr.add("participant_emails", fmt.Sprintf("%s is not a registered user", email))
			}
		}
		return Meeting{}, vErr
	}

	now := s.now()
	record := persistence.Meeting{
		ID:            s.idGenerator(),
		CoordinatorID: principal.UserID,
		Title:         title,
		Start:         input.Start,
		End:           input.End,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if description := strings.TrimSpace(input.Description); description != "" {
		record.Description = &description
	}
	for _, user := range registered {
		record.ParticipantIDs = append(record.ParticipantIDs, user.ID)
	}

	if err := s.meetings.CreateMeeting(ctx, record); err != nil {
		return Meeting{}, fmt.Errorf("failed to create meeting: %w", err)
	}

	if s.notifier != nil {
		for _, user := range registered {
			s.notifier.Notify(ctx, user.ID, NotificationMeetingScheduled,
				"Meeting scheduled",
				fmt.Sprintf("%s scheduled %q with you", principal.Email, title),
				"/meetings/"+record.ID)
		}
	}

	logger.Info("meeting created", "meeting_id", record.ID, "participants", len(record.ParticipantIDs))
	return toMeeting(record), nil
}

// ListMeetings returns the principal's meetings ordered by start time.
func (s *MeetingService) ListMeetings(ctx context.Context, principal Principal) ([]Meeting, error) {
	records, err := s.meetings.ListMeetingsByCoordinator(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}

	meetings := make([]Meeting, 0, len(records))
	for _, record := range records {
		meetings = append(meetings, toMeeting(record))
	}
	return meetings, nil
}

// normalizeEmails lowercases, trims, dedupes, and drops the coordinator's
// own address from a participant list. Order of first appearance is kept.
func normalizeEmails(emails []string, selfEmail string) []string {
	self := strings.ToLower(strings.TrimSpace(selfEmail))
	seen := make(map[string]struct{}, len(emails))
	normalized := make([]string, 0, len(emails))
	for _, email := range emails {
		e := strings.ToLower(strings.TrimSpace(email))
		if e == "" || e == self {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		normalized = append(normalized, e)
	}
	return normalized
}

func toMeeting(record persistence.Meeting) Meeting {
	meeting := Meeting{
		ID:             record.ID,
		CoordinatorID:  record.CoordinatorID,
		Title:          record.Title,
		Start:          record.Start,
		End:            record.End,
		ParticipantIDs: record.ParticipantIDs,
		CreatedAt:      record.CreatedAt,
	}
	if record.Description != nil {
		meeting.Description = *record.Description
	}
	return meeting
}
