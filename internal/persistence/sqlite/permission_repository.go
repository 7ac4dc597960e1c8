package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/meeting-coordinator/internal/persistence"
)

// PermissionRepository implements persistence.PermissionRepository using SQLite.
type PermissionRepository struct {
	helper *QueryHelper
}

// NewPermissionRepository creates a new SQLite permission repository.
func NewPermissionRepository(pool *ConnectionPool) *PermissionRepository {
	return &PermissionRepository{helper: NewQueryHelper(pool)}
}

const permissionColumns = `id, grantor_id, grantee_id, grantee_domain, permission_type, status, expires_at, created_at, updated_at`

// CreatePermission inserts a new grant.
func (r *PermissionRepository) CreatePermission(ctx context.Context, permission persistence.CalendarPermission) error {
	query := `
		INSERT INTO calendar_permissions (` + permissionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		permission.ID,
		permission.GrantorID,
		nullableString(permission.GranteeID),
		nullableString(permission.GranteeDomain),
		permission.Type,
		permission.Status,
		nullableTime(permission.ExpiresAt),
		formatTime(permission.CreatedAt),
		formatTime(permission.UpdatedAt),
	)
	return mapSQLiteError(err)
}

// HasActivePermission reports whether an active, non-expired grant lets the
// grantee (by user id or email domain) read the grantor's calendar.
func (r *PermissionRepository) HasActivePermission(ctx context.Context, grantorID, granteeID, granteeDomain string, reference time.Time) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM calendar_permissions
		WHERE grantor_id = ?
		AND status = 'active'
		AND (expires_at IS NULL OR expires_at > ?)
		AND (grantee_id = ? OR grantee_domain = ?)
	`

	var count int
	err := r.helper.QueryRow(ctx, query, grantorID, formatTime(reference), granteeID, granteeDomain).Scan(&count)
	if err != nil {
		return false, mapSQLiteError(err)
	}
	return count > 0, nil
}

// ListPermissionsByGrantor returns a grantor's active grants, newest first.
func (r *PermissionRepository) ListPermissionsByGrantor(ctx context.Context, grantorID string) ([]persistence.CalendarPermission, error) {
	query := `
		SELECT ` + permissionColumns + `
		FROM calendar_permissions
		WHERE grantor_id = ? AND status = 'active'
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.helper.Query(ctx, query, grantorID)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()
	return collectPermissions(rows)
}

// ListPermissionsForGrantee returns the active, non-expired grants that
// benefit the supplied user id or domain, newest first.
func (r *PermissionRepository) ListPermissionsForGrantee(ctx context.Context, granteeID, granteeDomain string, reference time.Time) ([]persistence.CalendarPermission, error) {
	query := `
		SELECT ` + permissionColumns + `
		FROM calendar_permissions
		WHERE status = 'active'
		AND (expires_at IS NULL OR expires_at > ?)
		AND (grantee_id = ? OR grantee_domain = ?)
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.helper.Query(ctx, query, formatTime(reference), granteeID, granteeDomain)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()
	return collectPermissions(rows)
}

// RevokePermission marks a grant revoked, restricted to the original grantor.
func (r *PermissionRepository) RevokePermission(ctx context.Context, id, grantorID string, revokedAt time.Time) error {
	query := `
		UPDATE calendar_permissions
		SET status = 'revoked', updated_at = ?
		WHERE id = ? AND grantor_id = ? AND status = 'active'
	`
	result, err := r.helper.Exec(ctx, query, formatTime(revokedAt), id, grantorID)
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

// ListFrequentContacts unions the registered grantees of the user's active
// grants with the registered recipients of the user's requests, keeping the
// most recent interaction per contact, newest first.
func (r *PermissionRepository) ListFrequentContacts(ctx context.Context, userID string, limit int) ([]persistence.FrequentContact, error) {
	query := `
		SELECT email, display_name, MAX(last_interaction) AS last_interaction
		FROM (
			SELECT u.email AS email, u.display_name AS display_name, cp.created_at AS last_interaction
			FROM calendar_permissions cp
			JOIN users u ON u.id = cp.grantee_id
			WHERE cp.grantor_id = ? AND cp.status = 'active'
			UNION ALL
			SELECT u.email, u.display_name, pr.created_at
			FROM permission_requests pr
			JOIN users u ON u.id = pr.recipient_id
			WHERE pr.requester_id = ?
		)
		GROUP BY email, display_name
		ORDER BY last_interaction DESC, email ASC
		LIMIT ?
	`
	rows, err := r.helper.Query(ctx, query, userID, userID, limit)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var contacts []persistence.FrequentContact
	for rows.Next() {
		var contact persistence.FrequentContact
		var lastInteraction string
		if err := rows.Scan(&contact.Email, &contact.DisplayName, &lastInteraction); err != nil {
			return nil, mapSQLiteError(err)
		}
		if contact.LastInteraction, err = parseTime(lastInteraction, "last_interaction"); err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError(err)
	}
	return contacts, nil
}

func collectPermissions(rows *sql.Rows) ([]persistence.CalendarPermission, error) {
	var permissions []persistence.CalendarPermission
	for rows.Next() {
		var permission persistence.CalendarPermission
		var granteeID, granteeDomain, expiresAt sql.NullString
		var createdAt, updatedAt string

		err := rows.Scan(
			&permission.ID,
			&permission.GrantorID,
			&granteeID,
			&granteeDomain,
			&permission.Type,
			&permission.Status,
			&expiresAt,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, mapSQLiteError(err)
		}

		permission.GranteeID = stringFromNull(granteeID)
		permission.GranteeDomain = stringFromNull(granteeDomain)
		if permission.ExpiresAt, err = timeFromNull(expiresAt, "expires_at"); err != nil {
			return nil, err
		}
		if permission.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
			return nil, err
		}
		if permission.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
			return nil, err
		}
		permissions = append(permissions, permission)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError(err)
	}
	return permissions, nil
}
