package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/example/meeting-coordinator/internal/persistence"
)

// TokenManager exchanges stored OAuth credentials for live access tokens,
// refreshing and persisting them when they expire. Refreshes for the same
// user are serialized so concurrent calendar fetches do not race the
// provider's single-use refresh tokens.
type TokenManager struct {
	config      *oauth2.Config
	credentials persistence.CredentialRepository
	provider    string
	now         func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTokenManager creates a token manager backed by the supplied repository.
func NewTokenManager(config *oauth2.Config, credentials persistence.CredentialRepository, provider string) *TokenManager {
	return &TokenManager{
		config:      config,
		credentials: credentials,
		provider:    provider,
		now:         time.Now,
		locks:       make(map[string]*sync.Mutex),
	}
}

// Token returns a valid access token for the user, refreshing if needed.
// Returns ErrNoCalendarConnected when no credential is stored and
// ErrAuthExpired when the refresh token is rejected.
func (tm *TokenManager) Token(ctx context.Context, userID string) (*oauth2.Token, error) {
	credential, err := tm.credentials.GetCredential(ctx, userID, tm.provider)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrNoCalendarConnected
		}
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}

	token := tokenFromCredential(credential)
	if tm.valid(token) {
		return token, nil
	}

	lock := tm.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	// Another goroutine may have refreshed while we waited for the lock.
	credential, err = tm.credentials.GetCredential(ctx, userID, tm.provider)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrNoCalendarConnected
		}
		return nil, fmt.Errorf("failed to reload credential: %w", err)
	}
	token = tokenFromCredential(credential)
	if tm.valid(token) {
		return token, nil
	}

	if credential.RefreshToken == nil || *credential.RefreshToken == "" {
		return nil, ErrAuthExpired
	}

	refreshed, err := tm.config.TokenSource(ctx, token).Token()
	if err != nil {
		return nil, ErrAuthExpired
	}

	credential.AccessToken = refreshed.AccessToken
	if refreshed.RefreshToken != "" {
		refresh := refreshed.RefreshToken
		credential.RefreshToken = &refresh
	}
	if !refreshed.Expiry.IsZero() {
		expiry := refreshed.Expiry.UTC()
		credential.Expiry = &expiry
	}
	credential.UpdatedAt = tm.now().UTC()

	if err := tm.credentials.UpsertCredential(ctx, credential); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed credential: %w", err)
	}
	return refreshed, nil
}

func (tm *TokenManager) valid(token *oauth2.Token) bool {
	if token.AccessToken == "" {
		return false
	}
	if token.Expiry.IsZero() {
		return true
	}
	// Refresh only once the stored expiry has actually passed, never early.
	return token.Expiry.After(tm.now())
}

func (tm *TokenManager) userLock(userID string) *sync.Mutex {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	lock, ok := tm.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		tm.locks[userID] = lock
	}
	return lock
}

func tokenFromCredential(credential persistence.OAuthCredential) *oauth2.Token {
	token := &oauth2.Token{AccessToken: credential.AccessToken}
	if credential.RefreshToken != nil {
		token.RefreshToken = *credential.RefreshToken
	}
	if credential.Expiry != nil {
		token.Expiry = *credential.Expiry
	}
	return token
}
