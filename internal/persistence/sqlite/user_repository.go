package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/meeting-coordinator/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite.
type UserRepository struct {
	helper *QueryHelper
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{helper: NewQueryHelper(pool)}
}

const userColumns = `id, email, display_name, password_hash, timezone, buffer_minutes, created_at, updated_at`

// CreateUser inserts a new user.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		user.ID,
		normalizeEmail(user.Email),
		user.DisplayName,
		nullableString(user.PasswordHash),
		user.Timezone,
		user.BufferMinutes,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	return mapSQLiteError(err)
}

// UpdateUser updates a user's mutable attributes.
func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) error {
	query := `
		UPDATE users
		SET email = ?, display_name = ?, password_hash = ?, timezone = ?, buffer_minutes = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.helper.Exec(ctx, query,
		normalizeEmail(user.Email),
		user.DisplayName,
		nullableString(user.PasswordHash),
		user.Timezone,
		user.BufferMinutes,
		formatTime(user.UpdatedAt),
		user.ID,
	)
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

// GetUser retrieves a user by id.
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by normalized email address.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	if email == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, normalizeEmail(email))
	return scanUser(row)
}

// GetUsersByEmails retrieves the users matching any of the supplied emails.
// Emails without accounts are simply absent from the result.
func (r *UserRepository) GetUsersByEmails(ctx context.Context, emails []string) ([]persistence.User, error) {
	if len(emails) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(emails))
	args := make([]any, len(emails))
	for i, email := range emails {
		placeholders[i] = "?"
		args[i] = normalizeEmail(email)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE email IN (` + strings.Join(placeholders, ", ") + `) ORDER BY email ASC`
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var users []persistence.User
	for rows.Next() {
		user, err := scanUserRows(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError(err)
	}
	return users, nil
}

func scanUser(row *sql.Row) (persistence.User, error) {
	var user persistence.User
	var passwordHash sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&passwordHash,
		&user.Timezone,
		&user.BufferMinutes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.User{}, mapSQLiteError(err)
	}
	return finishUser(user, passwordHash, createdAt, updatedAt)
}

func scanUserRows(rows *sql.Rows) (persistence.User, error) {
	var user persistence.User
	var passwordHash sql.NullString
	var createdAt, updatedAt string

	err := rows.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&passwordHash,
		&user.Timezone,
		&user.BufferMinutes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.User{}, mapSQLiteError(err)
	}
	return finishUser(user, passwordHash, createdAt, updatedAt)
}

func finishUser(user persistence.User, passwordHash sql.NullString, createdAt, updatedAt string) (persistence.User, error) {
	user.PasswordHash = stringFromNull(passwordHash)

	var err error
	if user.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}
