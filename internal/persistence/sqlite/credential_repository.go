package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/meeting-coordinator/internal/persistence"
)

// CredentialRepository implements persistence.CredentialRepository using SQLite.
type CredentialRepository struct {
	helper *QueryHelper
}

// NewCredentialRepository creates a new SQLite credential repository.
func NewCredentialRepository(pool *ConnectionPool) *CredentialRepository {
	return &CredentialRepository{helper: NewQueryHelper(pool)}
}

// GetCredential retrieves the stored credential for a user and provider.
func (r *CredentialRepository) GetCredential(ctx context.Context, userID, provider string) (persistence.OAuthCredential, error) {
	query := `
		SELECT id, user_id, provider, access_token, refresh_token, expiry, created_at, updated_at
		FROM oauth_credentials
		WHERE user_id = ? AND provider = ?
	`

	var credential persistence.OAuthCredential
	var refreshToken, expiry sql.NullString
	var createdAt, updatedAt string

	err := r.helper.QueryRow(ctx, query, userID, provider).Scan(
		&credential.ID,
		&credential.UserID,
		&credential.Provider,
		&credential.AccessToken,
		&refreshToken,
		&expiry,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.OAuthCredential{}, mapSQLiteError(err)
	}

	credential.RefreshToken = stringFromNull(refreshToken)
	if credential.Expiry, err = timeFromNull(expiry, "expiry"); err != nil {
		return persistence.OAuthCredential{}, err
	}
	if credential.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return persistence.OAuthCredential{}, err
	}
	if credential.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
		return persistence.OAuthCredential{}, err
	}
	return credential, nil
}

// UpsertCredential inserts or replaces the credential for (user, provider).
// Token refresh relies on this to persist rotated tokens.
func (r *CredentialRepository) UpsertCredential(ctx context.Context, credential persistence.OAuthCredential) error {
	query := `
		INSERT INTO oauth_credentials (id, user_id, provider, access_token, refresh_token, expiry, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, provider)
		DO UPDATE SET access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expiry = excluded.expiry,
			updated_at = excluded.updated_at
	`

	_, err := r.helper.Exec(ctx, query,
		credential.ID,
		credential.UserID,
		credential.Provider,
		credential.AccessToken,
		nullableString(credential.RefreshToken),
		nullableTime(credential.Expiry),
		formatTime(credential.CreatedAt),
		formatTime(credential.UpdatedAt),
	)
	return mapSQLiteError(err)
}

// DeleteCredential removes the stored credential for a user and provider.
func (r *CredentialRepository) DeleteCredential(ctx context.Context, userID, provider string) error {
	_, err := r.helper.Exec(ctx, `DELETE FROM oauth_credentials WHERE user_id = ? AND provider = ?`, userID, provider)
	return mapSQLiteError(err)
}
