package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/meeting-coordinator/internal/persistence"
)

// RequestRepository implements persistence.RequestRepository using SQLite.
type RequestRepository struct {
	helper *QueryHelper
}

// NewRequestRepository creates a new SQLite permission request repository.
func NewRequestRepository(pool *ConnectionPool) *RequestRepository {
	return &RequestRepository{helper: NewQueryHelper(pool)}
}

const requestColumns = `id, requester_id, recipient_id, recipient_email, meeting_context, status, responded_at, expires_at, created_at`

// CreateRequest inserts a new permission request.
func (r *RequestRepository) CreateRequest(ctx context.Context, request persistence.PermissionRequest) error {
	query := `
		INSERT INTO permission_requests (` + requestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var email any
	if request.RecipientEmail != nil {
		email = normalizeEmail(*request.RecipientEmail)
	}
	_, err := r.helper.Exec(ctx, query,
		request.ID,
		request.RequesterID,
		nullableString(request.RecipientID),
		email,
		nullableString(request.MeetingContext),
		request.Status,
		nullableTime(request.RespondedAt),
		formatTime(request.ExpiresAt),
		formatTime(request.CreatedAt),
	)
	return mapSQLiteError(err)
}

// GetRequest fetches a permission request by id.
func (r *RequestRepository) GetRequest(ctx context.Context, id string) (persistence.PermissionRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM permission_requests WHERE id = ?`
	return r.scanRequest(r.helper.QueryRow(ctx, query, id))
}

// UpdateRequestStatus transitions a request out of the pending state.
func (r *RequestRepository) UpdateRequestStatus(ctx context.Context, id, status string, respondedAt time.Time) error {
	query := `
		UPDATE permission_requests
		SET status = ?, responded_at = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query, status, formatTime(respondedAt), id)
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

// ListPendingForRecipient returns a user's inbound pending requests, newest first.
func (r *RequestRepository) ListPendingForRecipient(ctx context.Context, recipientID string) ([]persistence.PermissionRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM permission_requests
		WHERE recipient_id = ? AND status = 'pending'
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.helper.Query(ctx, query, recipientID)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()
	return collectRequests(rows)
}

// ListByRequester returns all requests a user has sent, newest first.
func (r *RequestRepository) ListByRequester(ctx context.Context, requesterID string) ([]persistence.PermissionRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM permission_requests
		WHERE requester_id = ?
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.helper.Query(ctx, query, requesterID)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()
	return collectRequests(rows)
}

// FindPendingBetween returns the pending request from requester to recipient,
// or persistence.ErrNotFound when none exists.
func (r *RequestRepository) FindPendingBetween(ctx context.Context, requesterID, recipientID string) (persistence.PermissionRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM permission_requests
		WHERE requester_id = ? AND recipient_id = ? AND status = 'pending'
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.scanRequest(r.helper.QueryRow(ctx, query, requesterID, recipientID))
}

// FindPendingForEmail returns the pending request from requester to an
// unregistered email address, or persistence.ErrNotFound when none exists.
func (r *RequestRepository) FindPendingForEmail(ctx context.Context, requesterID, recipientEmail string) (persistence.PermissionRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM permission_requests
		WHERE requester_id = ? AND recipient_email = ? AND status = 'pending'
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.scanRequest(r.helper.QueryRow(ctx, query, requesterID, normalizeEmail(recipientEmail)))
}

// RebindEmailRequests attaches pending email-addressed requests to a newly
// registered user and returns the rebound rows so callers can notify.
func (r *RequestRepository) RebindEmailRequests(ctx context.Context, recipientEmail, newRecipientID string, boundAt time.Time) ([]persistence.PermissionRequest, error) {
	email := normalizeEmail(recipientEmail)
	var rebound []persistence.PermissionRequest

	err := r.helper.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		selectQuery := `
			SELECT id FROM permission_requests
			WHERE recipient_email = ? AND status = 'pending' AND expires_at > ?
			ORDER BY created_at ASC
		`
		rows, err := r.helper.QueryTx(tx, selectQuery, email, formatTime(boundAt))
		if err != nil {
			return mapSQLiteError(err)
		}
		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return mapSQLiteError(err)
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return mapSQLiteError(err)
		}
		rows.Close()

		updateQuery := `
			UPDATE permission_requests
			SET recipient_id = ?, recipient_email = NULL
			WHERE id = ?
		`
		for _, id := range ids {
			if _, err := r.helper.ExecTx(tx, updateQuery, newRecipientID, id); err != nil {
				return mapSQLiteError(err)
			}
			row := r.helper.QueryRowTx(tx, `SELECT `+requestColumns+` FROM permission_requests WHERE id = ?`, id)
			request, err := r.scanRequest(row)
			if err != nil {
				return err
			}
			rebound = append(rebound, request)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rebound, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *RequestRepository) scanRequest(row rowScanner) (persistence.PermissionRequest, error) {
	var request persistence.PermissionRequest
	var recipientID, recipientEmail, meetingContext, respondedAt sql.NullString
	var expiresAt, createdAt string

	err := row.Scan(
		&request.ID,
		&request.RequesterID,
		&recipientID,
		&recipientEmail,
		&meetingContext,
		&request.Status,
		&respondedAt,
		&expiresAt,
		&createdAt,
	)
	if err != nil {
		return persistence.PermissionRequest{}, mapSQLiteError(err)
	}

	request.RecipientID = stringFromNull(recipientID)
	request.RecipientEmail = stringFromNull(recipientEmail)
	request.MeetingContext = stringFromNull(meetingContext)
	if request.RespondedAt, err = timeFromNull(respondedAt, "responded_at"); err != nil {
		return persistence.PermissionRequest{}, err
	}
	if request.ExpiresAt, err = parseTime(expiresAt, "expires_at"); err != nil {
		return persistence.PermissionRequest{}, err
	}
	if request.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return persistence.PermissionRequest{}, err
	}
	return request, nil
}

func collectRequests(rows *sql.Rows) ([]persistence.PermissionRequest, error) {
	repo := &RequestRepository{}
	var requests []persistence.PermissionRequest
	for rows.Next() {
		request, err := repo.scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError(err)
	}
	return requests, nil
}
