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

const defaultTimezone = "America/New_York"

// defaultRuleWindows is the Mon-Fri working-hours bootstrap applied on signup.
var defaultRuleWindows = []struct {
	day   int
	start string
	end   string
}{
	{1, "09:00", "17:00"},
	{2, "09:00", "17:00"},
	{3, "09:00", "17:00"},
	{4, "09:00", "17:00"},
	{5, "09:00", "17:00"},
}

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, user persistence.User) error
	UpdateUser(ctx context.Context, user persistence.User) error
	GetUser(ctx context.Context, id string) (persistence.User, error)
	GetUserByEmail(ctx context.Context, email string) (persistence.User, error)
}

// RuleWriter captures the rule bootstrap operations needed on signup.
type RuleWriter interface {
	CreateRule(ctx context.Context, rule persistence.AvailabilityRule) error
}

// SignupResolver rebinds pending email-addressed permission requests when
// their target registers.
type SignupResolver interface {
	ResolvePendingOnSignup(ctx context.Context, userID, email string) error
}

// UserService orchestrates validation and persistence for accounts.
type UserService struct {
	users         UserRepository
	rules         RuleWriter
	resolver      SignupResolver
	defaultBuffer int
	idGenerator   func() string
	now           func() time.Time
	logger        *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, rules RuleWriter, resolver SignupResolver, defaultBuffer int, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{
		users:         users,
		rules:         rules,
		resolver:      resolver,
		defaultBuffer: defaultBuffer,
		idGenerator:   idGenerator,
		now:           now,
		logger:        defaultLogger(logger),
	}
}

// Register validates input, creates the account with a hashed password,
// bootstraps default weekday rules, and rebinds any pending requests that
// were addressed to the new user's email.
func (s *UserService) Register(ctx context.Context, params RegisterParams) (User, error) {
	logger := serviceLogger(ctx, s.logger, "user", "register")

	normalized := RegisterParams{
		Email:       strings.ToLower(strings.TrimSpace(params.Email)),
		DisplayName: strings.TrimSpace(params.DisplayName),
		Password:    params.Password,
		Timezone:    strings.TrimSpace(params.Timezone),
	}
	if normalized.Timezone == "" {
		normalized.Timezone = defaultTimezone
	}

	vErr := &ValidationError{}
	if normalized.Email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(normalized.Email); err != nil {
		vErr.add("email", "email is invalid")
	}
	if normalized.DisplayName == "" {
		vErr.add("display_name", "display name is required")
	}
	if len(normalized.Password) < 8 {
		vErr.add("password", "password must be at least 8 characters")
	}
	if _, err := time.LoadLocation(normalized.Timezone); err != nil {
		vErr.add("timezone", "timezone is not a valid IANA zone")
	}
	if vErr.HasErrors() {
		return User{}, vErr
	}

	hash, err := HashPassword(normalized.Password)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	record := persistence.User{
		ID:            s.idGenerator(),
		Email:         normalized.Email,
		DisplayName:   normalized.DisplayName,
		PasswordHash:  &hash,
		Timezone:      normalized.Timezone,
		BufferMinutes: s.defaultBuffer,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.users.CreateUser(ctx, record); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			return User{}, ErrAlreadyExists
		}
		return User{}, fmt.Errorf("failed to create user: %w", err)
	}

	s.bootstrapDefaultRules(ctx, logger, record.ID, record.Timezone)

	if s.resolver != nil {
		if err := s.resolver.ResolvePendingOnSignup(ctx, record.ID, record.Email); err != nil {
			logger.Warn("failed to rebind pending requests", "user_id", record.ID, "error", err)
		}
	}

	logger.Info("user registered", "user_id", record.ID)
	return toUser(record), nil
}

// bootstrapDefaultRules writes the Mon-Fri 09:00-17:00 starter rules. A
// failure leaves the account usable (no rules means unrestricted), so it is
// logged rather than returned.
func (s *UserService) bootstrapDefaultRules(ctx context.Context, logger *slog.Logger, userID, timezone string) {
	if s.rules == nil {
		return
	}
	now := s.now()
	for _, window := range defaultRuleWindows {
		rule := persistence.AvailabilityRule{
			ID:        s.idGenerator(),
			UserID:    userID,
			DayOfWeek: window.day,
			StartTime: window.start,
			EndTime:   window.end,
			Timezone:  timezone,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.rules.CreateRule(ctx, rule); err != nil {
			logger.Warn("failed to create default rule", "user_id", userID, "day", window.day, "error", err)
			return
		}
	}
}

// GetProfile returns the principal's account view.
func (s *UserService) GetProfile(ctx context.Context, principal Principal) (User, error) {
	record, err := s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("failed to load user: %w", err)
	}
	return toUser(record), nil
}

// UpdateSettings changes the principal's timezone and buffer.
func (s *UserService) UpdateSettings(ctx context.Context, principal Principal, input SettingsInput) (User, error) {
	logger := serviceLogger(ctx, s.logger, "user", "update_settings", "user_id", principal.UserID)

	vErr := &ValidationError{}
	timezone := strings.TrimSpace(input.Timezone)
	if timezone == "" {
		vErr.add("timezone", "timezone is required")
	} else if _, err := time.LoadLocation(timezone); err != nil {
		vErr.add("timezone", "timezone is not a valid IANA zone")
	}
	if input.BufferMinutes < 0 {
		vErr.add("buffer_minutes", "buffer must not be negative")
	}
	if vErr.HasErrors() {
		return User{}, vErr
	}

	record, err := s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("failed to load user: %w", err)
	}

	record.Timezone = timezone
	record.BufferMinutes = input.BufferMinutes
	record.UpdatedAt = s.now()

	if err := s.users.UpdateUser(ctx, record); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("failed to update user: %w", err)
	}

	logger.Info("settings updated", "timezone", timezone, "buffer_minutes", input.BufferMinutes)
	return toUser(record), nil
}

func toUser(record persistence.User) User {
	return User{
		ID:            record.ID,
		Email:         record.Email,
		DisplayName:   record.DisplayName,
		Timezone:      record.Timezone,
		BufferMinutes: record.BufferMinutes,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}
