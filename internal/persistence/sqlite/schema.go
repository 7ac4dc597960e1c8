package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements holds the DDL applied by Migrate. Statements are idempotent
// so repeated startups are safe.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		password_hash TEXT,
		timezone TEXT NOT NULL DEFAULT 'America/New_York',
		buffer_minutes INTEGER NOT NULL DEFAULT 30 CHECK (buffer_minutes >= 0),
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS oauth_credentials (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		provider TEXT NOT NULL,
		access_token TEXT NOT NULL,
		refresh_token TEXT,
		expiry TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (user_id, provider)
	)`,
	`CREATE TABLE IF NOT EXISTS availability_rules (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		day_of_week INTEGER NOT NULL CHECK (day_of_week BETWEEN 0 AND 6),
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		timezone TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (start_time < end_time)
	)`,
	`CREATE TABLE IF NOT EXISTS blocked_times (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		reason TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (start_time < end_time)
	)`,
	`CREATE TABLE IF NOT EXISTS calendar_permissions (
		id TEXT PRIMARY KEY,
		grantor_id TEXT NOT NULL REFERENCES users(id),
		grantee_id TEXT REFERENCES users(id),
		grantee_domain TEXT,
		permission_type TEXT NOT NULL CHECK (permission_type IN ('once', 'user', 'domain')),
		status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'revoked')),
		expires_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK ((grantee_id IS NULL) != (grantee_domain IS NULL))
	)`,
	`CREATE TABLE IF NOT EXISTS permission_requests (
		id TEXT PRIMARY KEY,
		requester_id TEXT NOT NULL REFERENCES users(id),
		recipient_id TEXT REFERENCES users(id),
		recipient_email TEXT,
		meeting_context TEXT,
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'denied', 'expired')),
		responded_at TEXT,
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		CHECK ((recipient_id IS NULL) != (recipient_email IS NULL))
	)`,
	`CREATE TABLE IF NOT EXISTS meetings (
		id TEXT PRIMARY KEY,
		coordinator_id TEXT NOT NULL REFERENCES users(id),
		title TEXT NOT NULL,
		description TEXT,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (start_time < end_time)
	)`,
	`CREATE TABLE IF NOT EXISTS meeting_participants (
		meeting_id TEXT NOT NULL REFERENCES meetings(id),
		user_id TEXT NOT NULL REFERENCES users(id),
		created_at TEXT NOT NULL,
		PRIMARY KEY (meeting_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		link TEXT,
		read INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rules_user ON availability_rules(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_blocked_user ON blocked_times(user_id, start_time)`,
	`CREATE INDEX IF NOT EXISTS idx_permissions_grantor ON calendar_permissions(grantor_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_recipient ON permission_requests(recipient_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_email ON permission_requests(recipient_email, status)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, read)`,
}

// Migrate applies the schema inside a single transaction.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	return cp.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, stmt := range schemaStatements {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("failed to apply schema statement: %w", err)
			}
		}
		return nil
	})
}
