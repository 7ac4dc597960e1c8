package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/meeting-coordinator/internal/availability"
	"github.com/example/meeting-coordinator/internal/persistence"
)

// RuleRepository captures the persistence operations for availability rules.
type RuleRepository interface {
	CreateRule(ctx context.Context, rule persistence.AvailabilityRule) error
	ListRulesForUser(ctx context.Context, userID string) ([]persistence.AvailabilityRule, error)
	DeleteRule(ctx context.Context, id, userID string) error
	DeleteRulesForUser(ctx context.Context, userID string) error
}

// BlockedTimeRepository captures the persistence operations for blocked times.
type BlockedTimeRepository interface {
	CreateBlockedTime(ctx context.Context, blocked persistence.BlockedTime) error
	ListBlockedTimesForUser(ctx context.Context, userID string) ([]persistence.BlockedTime, error)
	ListBlockedTimesInRange(ctx context.Context, userID string, start, end time.Time) ([]persistence.BlockedTime, error)
	DeleteBlockedTime(ctx context.Context, id, userID string) error
}

// BusyFetcher returns a user's buffered busy intervals for a range.
type BusyFetcher interface {
	FetchBusy(ctx context.Context, userID string, timeMin, timeMax time.Time, buffer time.Duration) ([]availability.Interval, error)
}

// AvailabilityService manages rules and blocked times and answers
// self-availability queries.
type AvailabilityService struct {
	rules       RuleRepository
	blocked     BlockedTimeRepository
	users       UserReader
	busy        BusyFetcher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewAvailabilityService wires dependencies for the availability service.
func NewAvailabilityService(rules RuleRepository, blocked BlockedTimeRepository, users UserReader, busy BusyFetcher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AvailabilityService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AvailabilityService{
		rules:       rules,
		blocked:     blocked,
		users:       users,
		busy:        busy,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// AddRule validates and persists a weekly availability rule for the principal.
func (s *AvailabilityService) AddRule(ctx context.Context, principal Principal, input RuleInput) (Rule, error) {
	logger := serviceLogger(ctx, s.logger, "availability", "add_rule", "user_id", principal.UserID)

	vErr := &ValidationError{}
	if input.DayOfWeek < 0 || input.DayOfWeek > 6 {
		vErr.add("day_of_week", "day of week must be between 0 and 6")
	}
	startMinute, startErr := availability.ParseClock(input.StartTime)
	if startErr != nil {
		vErr.add("start_time", "start time must be HH:MM")
	}
	endMinute, endErr := availability.ParseClock(input.EndTime)
	if endErr != nil {
		vErr.add("end_time", "end time must be HH:MM")
	}
	if startErr == nil && endErr == nil && startMinute >= endMinute {
		vErr.add("end_time", "end time must be after start time")
	}
	timezone := strings.TrimSpace(input.Timezone)
	if timezone == "" {
		vErr.add("timezone", "timezone is required")
	} else if _, err := time.LoadLocation(timezone); err != nil {
		vErr.add("timezone", "timezone is not a valid IANA zone")
	}
	if vErr.HasErrors() {
		return Rule{}, vErr
	}

	now := s.now()
	record := persistence.AvailabilityRule{
		ID:        s.idGenerator(),
		UserID:    principal.UserID,
		DayOfWeek: input.DayOfWeek,
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
		Timezone:  timezone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.rules.CreateRule(ctx, record); err != nil {
		return Rule{}, fmt.Errorf("failed to create rule: %w", err)
	}

	logger.Info("rule created", "rule_id", record.ID, "day", record.DayOfWeek)
	return toRule(record), nil
}

// ListRules returns the principal's rules ordered by weekday and start time.
func (s *AvailabilityService) ListRules(ctx context.Context, principal Principal) ([]Rule, error) {
	records, err := s.rules.ListRulesForUser(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	rules := make([]Rule, 0, len(records))
	for _, record := range records {
		rules = append(rules, toRule(record))
	}
	return rules, nil
}

// DeleteRule removes one of the principal's rules.
func (s *AvailabilityService) DeleteRule(ctx context.Context, principal Principal, ruleID string) error {
	err := s.rules.DeleteRule(ctx, ruleID, principal.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return nil
}

// DeleteAllRules removes every rule of the principal. An intentionally
// emptied rule set still means unrestricted availability.
func (s *AvailabilityService) DeleteAllRules(ctx context.Context, principal Principal) error {
	if err := s.rules.DeleteRulesForUser(ctx, principal.UserID); err != nil {
		return fmt.Errorf("failed to delete rules: %w", err)
	}
	return nil
}

// AddBlockedTime validates and persists an ad-hoc unavailability override.
func (s *AvailabilityService) AddBlockedTime(ctx context.Context, principal Principal, input BlockedTimeInput) (BlockedTime, error) {
	logger := serviceLogger(ctx, s.logger, "availability", "add_blocked", "user_id", principal.UserID)

	vErr := &ValidationError{}
	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if !input.Start.IsZero() && !input.End.IsZero() && !input.End.After(input.Start) {
		vErr.add("end", "end must be after start")
	}
	if vErr.HasErrors() {
		return BlockedTime{}, vErr
	}

	now := s.now()
	record := persistence.BlockedTime{
		ID:        s.idGenerator(),
		UserID:    principal.UserID,
		Start:     input.Start,
		End:       input.End,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if reason := strings.TrimSpace(input.Reason); reason != "" {
		record.Reason = &reason
	}
	if err := s.blocked.CreateBlockedTime(ctx, record); err != nil {
		return BlockedTime{}, fmt.Errorf("failed to create blocked time: %w", err)
	}

	logger.Info("blocked time created", "blocked_id", record.ID)
	return toBlockedTime(record), nil
}

// ListBlockedTimes returns the principal's blocked times.
func (s *AvailabilityService) ListBlockedTimes(ctx context.Context, principal Principal) ([]BlockedTime, error) {
	records, err := s.blocked.ListBlockedTimesForUser(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked times: %w", err)
	}

	blocked := make([]BlockedTime, 0, len(records))
	for _, record := range records {
		blocked = append(blocked, toBlockedTime(record))
	}
	return blocked, nil
}

// DeleteBlockedTime removes one of the principal's blocked times.
func (s *AvailabilityService) DeleteBlockedTime(ctx context.Context, principal Principal, blockedID string) error {
	err := s.blocked.DeleteBlockedTime(ctx, blockedID, principal.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete blocked time: %w", err)
	}
	return nil
}

// AvailabilityRange returns the principal's own busy picture for a range:
// buffered calendar intervals plus blocked times. Calendar fetch problems
// yield an empty busy list rather than an error so the view still renders.
func (s *AvailabilityService) AvailabilityRange(ctx context.Context, principal Principal, start, end time.Time) ([]availability.Interval, error) {
	logger := serviceLogger(ctx, s.logger, "availability", "range", "user_id", principal.UserID)

	vErr := &ValidationError{}
	if !end.After(start) {
		vErr.add("end", "end must be after start")
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	user, err := s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	busy, err := s.busy.FetchBusy(ctx, user.ID, start, end, time.Duration(user.BufferMinutes)*time.Minute)
	if err != nil {
		logger.Warn("calendar fetch failed", "error", err, "kind", ErrorKind(err))
		busy = nil
	}

	blocked, err := s.blocked.ListBlockedTimesInRange(ctx, user.ID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked times: %w", err)
	}
	for _, block := range blocked {
		busy = append(busy, availability.Interval{Start: block.Start, End: block.End})
	}
	return busy, nil
}

// SuggestedTimes proposes a handful of open times for the principal. It is
// best effort and never fails on calendar problems.
func (s *AvailabilityService) SuggestedTimes(ctx context.Context, principal Principal) ([]time.Time, error) {
	logger := serviceLogger(ctx, s.logger, "availability", "suggest", "user_id", principal.UserID)

	user, err := s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		loc = time.UTC
	}

	ruleSet, err := s.ruleSetForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	scanEnd := now.AddDate(0, 0, 15)
	busy, err := s.busy.FetchBusy(ctx, user.ID, now, scanEnd, time.Duration(user.BufferMinutes)*time.Minute)
	if err != nil {
		logger.Warn("calendar fetch failed, suggesting without busy data", "error", err, "kind", ErrorKind(err))
		busy = nil
	}

	blocked, err := s.blocked.ListBlockedTimesInRange(ctx, user.ID, now, scanEnd)
	if err != nil {
		logger.Warn("blocked time lookup failed", "error", err)
	} else {
		for _, block := range blocked {
			busy = append(busy, availability.Interval{Start: block.Start, End: block.End})
		}
	}

	return availability.SuggestTimes(busy, ruleSet, loc, now), nil
}

// ruleSetForUser loads a user's rules into the evaluator's typed set. No
// stored rows means unrestricted.
func (s *AvailabilityService) ruleSetForUser(ctx context.Context, userID string) (availability.RuleSet, error) {
	records, err := s.rules.ListRulesForUser(ctx, userID)
	if err != nil {
		return availability.RuleSet{}, fmt.Errorf("failed to list rules: %w", err)
	}
	return ruleSetFromRecords(records), nil
}

// ruleSetFromRecords converts stored rule rows into the evaluator's typed
// set. No rows means unrestricted.
func ruleSetFromRecords(records []persistence.AvailabilityRule) availability.RuleSet {
	if len(records) == 0 {
		return availability.Unrestricted()
	}

	rules := make([]availability.WeeklyRule, 0, len(records))
	for _, record := range records {
		rule, err := availability.NewWeeklyRule(time.Weekday(record.DayOfWeek), record.StartTime, record.EndTime)
		if err != nil {
			// Stored rules are validated on write; skip rather than fail.
			continue
		}
		rules = append(rules, rule)
	}
	return availability.NewRuleSet(rules)
}

func toRule(record persistence.AvailabilityRule) Rule {
	return Rule{
		ID:        record.ID,
		DayOfWeek: record.DayOfWeek,
		StartTime: record.StartTime,
		EndTime:   record.EndTime,
		Timezone:  record.Timezone,
		CreatedAt: record.CreatedAt,
	}
}

func toBlockedTime(record persistence.BlockedTime) BlockedTime {
	blocked := BlockedTime{
		ID:        record.ID,
		Start:     record.Start,
		End:       record.End,
		CreatedAt: record.CreatedAt,
	}
	if record.Reason != nil {
		blocked.Reason = *record.Reason
	}
	return blocked
}
