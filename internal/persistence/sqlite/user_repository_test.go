package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/meeting-coordinator/internal/persistence"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	pool := newTestPool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	hash := "argon2id$hash"
	user := persistence.User{
		ID:            "user-1",
		Email:         "alice@acme.example",
		DisplayName:   "Alice",
		PasswordHash:  &hash,
		Timezone:      "America/New_York",
		BufferMinutes: 30,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	fetched, err := repo.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if fetched.Email != user.Email || fetched.Timezone != "America/New_York" {
		t.Fatalf("unexpected user retrieved: %#v", fetched)
	}
	if fetched.PasswordHash == nil || *fetched.PasswordHash != hash {
		t.Fatalf("password hash not persisted: %#v", fetched.PasswordHash)
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	pool := newTestPool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	createTestUser(t, pool, "user-1", "alice@acme.example")

	now := time.Now().UTC()
	err := repo.CreateUser(ctx, persistence.User{
		ID:            "user-2",
		Email:         "alice@acme.example",
		DisplayName:   "Other Alice",
		Timezone:      "UTC",
		BufferMinutes: 30,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestUserRepository_GetUserByEmail_CaseInsensitive(t *testing.T) {
	pool := newTestPool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	createTestUser(t, pool, "user-1", "alice@acme.example")

	fetched, err := repo.GetUserByEmail(ctx, "  Alice@Acme.Example ")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if fetched.ID != "user-1" {
		t.Fatalf("expected user-1, got %s", fetched.ID)
	}
}

func TestUserRepository_GetUsersByEmails(t *testing.T) {
	pool := newTestPool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	createTestUser(t, pool, "user-1", "alice@acme.example")
	createTestUser(t, pool, "user-2", "bob@acme.example")

	users, err := repo.GetUsersByEmails(ctx, []string{"bob@acme.example", "alice@acme.example", "carol@acme.example"})
	if err != nil {
		t.Fatalf("GetUsersByEmails failed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	// Missing addresses are simply absent from the result.
	if users[0].Email != "alice@acme.example" || users[1].Email != "bob@acme.example" {
		t.Fatalf("unexpected ordering: %#v", users)
	}
}

func TestUserRepository_UpdateUser_NotFound(t *testing.T) {
	pool := newTestPool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	now := time.Now().UTC()
	err := repo.UpdateUser(ctx, persistence.User{
		ID:            "missing",
		Email:         "missing@acme.example",
		DisplayName:   "Nobody",
		Timezone:      "UTC",
		BufferMinutes: 15,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
