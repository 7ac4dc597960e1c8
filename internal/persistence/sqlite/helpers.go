package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Timestamps are stored as RFC3339 UTC strings.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(value, column string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	return t, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func timeFromNull(value sql.NullString, column string) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	t, err := parseTime(value.String, column)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func stringFromNull(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
