package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/meeting-coordinator/internal/persistence"
)

// RuleRepository implements persistence.RuleRepository using SQLite.
type RuleRepository struct {
	helper *QueryHelper
}

// NewRuleRepository creates a new SQLite availability rule repository.
func NewRuleRepository(pool *ConnectionPool) *RuleRepository {
	return &RuleRepository{helper: NewQueryHelper(pool)}
}

// CreateRule inserts a new weekly availability rule.
func (r *RuleRepository) CreateRule(ctx context.Context, rule persistence.AvailabilityRule) error {
	query := `
		INSERT INTO availability_rules (id, user_id, day_of_week, start_time, end_time, timezone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		rule.ID,
		rule.UserID,
		rule.DayOfWeek,
		rule.StartTime,
		rule.EndTime,
		rule.Timezone,
		formatTime(rule.CreatedAt),
		formatTime(rule.UpdatedAt),
	)
	return mapSQLiteError(err)
}

// ListRulesForUser returns a user's rules ordered by weekday then start time.
func (r *RuleRepository) ListRulesForUser(ctx context.Context, userID string) ([]persistence.AvailabilityRule, error) {
	query := `
		SELECT id, user_id, day_of_week, start_time, end_time, timezone, created_at, updated_at
		FROM availability_rules
		WHERE user_id = ?
		ORDER BY day_of_week ASC, start_time ASC
	`

	rows, err := r.helper.Query(ctx, query, userID)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var rules []persistence.AvailabilityRule
	for rows.Next() {
		var rule persistence.AvailabilityRule
		var createdAt, updatedAt string
		if err := rows.Scan(&rule.ID, &rule.UserID, &rule.DayOfWeek, &rule.StartTime, &rule.EndTime, &rule.Timezone, &createdAt, &updatedAt); err != nil {
			return nil, mapSQLiteError(err)
		}
		if rule.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
			return nil, err
		}
		if rule.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError(err)
	}
	return rules, nil
}

// DeleteRule removes one rule, restricted to its owner.
func (r *RuleRepository) DeleteRule(ctx context.Context, id, userID string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM availability_rules WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return mapSQLiteError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// DeleteRulesForUser removes all of a user's rules.
func (r *RuleRepository) DeleteRulesForUser(ctx context.Context, userID string) error {
	_, err := r.helper.Exec(ctx, `DELETE FROM availability_rules WHERE user_id = ?`, userID)
	return mapSQLiteError(err)
}

// BlockedTimeRepository implements persistence.BlockedTimeRepository using SQLite.
type BlockedTimeRepository struct {
	helper *QueryHelper
}

// NewBlockedTimeRepository creates a new SQLite blocked time repository.
func NewBlockedTimeRepository(pool *ConnectionPool) *BlockedTimeRepository {
	return &BlockedTimeRepository{helper: NewQueryHelper(pool)}
}

// CreateBlockedTime inserts a new blocked time.
func (r *BlockedTimeRepository) CreateBlockedTime(ctx context.Context, blocked persistence.BlockedTime) error {
	query := `
		INSERT INTO blocked_times (id, user_id, start_time, end_time, reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		blocked.ID,
		blocked.UserID,
		formatTime(blocked.Start),
		formatTime(blocked.End),
		nullableString(blocked.Reason),
		formatTime(blocked.CreatedAt),
		formatTime(blocked.UpdatedAt),
	)
	return mapSQLiteError(err)
}

// ListBlockedTimesForUser returns all of a user's blocked times ordered by start.
func (r *BlockedTimeRepository) ListBlockedTimesForUser(ctx context.Context, userID string) ([]persistence.BlockedTime, error) {
	query := `
		SELECT id, user_id, start_time, end_time, reason, created_at, updated_at
		FROM blocked_times
		WHERE user_id = ?
		ORDER BY start_time ASC
	`
	rows, err := r.helper.Query(ctx, query, userID)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()
	return collectBlockedTimes(rows)
}

// ListBlockedTimesInRange returns blocked times overlapping [start, end).
func (r *BlockedTimeRepository) ListBlockedTimesInRange(ctx context.Context, userID string, start, end time.Time) ([]persistence.BlockedTime, error) {
	query := `
		SELECT id, user_id, start_time, end_time, reason, created_at, updated_at
		FROM blocked_times
		WHERE user_id = ? AND start_time < ? AND end_time > ?
		ORDER BY start_time ASC
	`
	rows, err := r.helper.Query(ctx, query, userID, formatTime(end), formatTime(start))
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()
	return collectBlockedTimes(rows)
}

// DeleteBlockedTime removes one blocked time, restricted to its owner.
func (r *BlockedTimeRepository) DeleteBlockedTime(ctx context.Context, id, userID string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM blocked_times WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return mapSQLiteError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func collectBlockedTimes(rows *sql.Rows) ([]persistence.BlockedTime, error) {
	var blockedTimes []persistence.BlockedTime
	for rows.Next() {
		var blocked persistence.BlockedTime
		var reason sql.NullString
		var start, end, createdAt, updatedAt string
		if err := rows.Scan(&blocked.ID, &blocked.UserID, &start, &end, &reason, &createdAt, &updatedAt); err != nil {
			return nil, mapSQLiteError(err)
		}

		var err error
		if blocked.Start, err = parseTime(start, "start_time"); err != nil {
			return nil, err
		}
		if blocked.End, err = parseTime(end, "end_time"); err != nil {
			return nil, err
		}
		if blocked.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
			return nil, err
		}
		if blocked.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
			return nil, err
		}
		blocked.Reason = stringFromNull(reason)
		blockedTimes = append(blockedTimes, blocked)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError(err)
	}
	return blockedTimes, nil
}
