package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/meeting-coordinator/internal/persistence"
)

func TestRuleRepository_CreateAndList(t *testing.T) {
	pool := newTestPool(t)
	repo := NewRuleRepository(pool)
	ctx := context.Background()

	createTestUser(t, pool, "user-1", "user1@acme.example")

	now := time.Now().UTC().Truncate(time.Second)
	rules := []persistence.AvailabilityRule{
		{
			ID:        "rule-wed",
			UserID:    "user-1",
			DayOfWeek: 3,
			StartTime: "10:00",
			EndTime:   "16:00",
			Timezone:  "America/New_York",
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:        "rule-mon",
			UserID:    "user-1",
			DayOfWeek: 1,
			StartTime: "09:00",
			EndTime:   "17:00",
			Timezone:  "America/New_York",
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	for _, rule := range rules {
		if err := repo.CreateRule(ctx, rule); err != nil {
			t.Fatalf("CreateRule(%s) failed: %v", rule.ID, err)
		}
	}

	listed, err := repo.ListRulesForUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListRulesForUser failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(listed))
	}
	if listed[0].ID != "rule-mon" || listed[1].ID != "rule-wed" {
		t.Fatalf("expected day-of-week ordering, got %s then %s", listed[0].ID, listed[1].ID)
	}
}

func TestRuleRepository_CreateRule_InvertedWindow(t *testing.T) {
	pool := newTestPool(t)
	repo := NewRuleRepository(pool)
	ctx := context.Background()

	createTestUser(t, pool, "user-1", "user1@acme.example")

	now := time.Now().UTC().Truncate(time.Second)
	err := repo.CreateRule(ctx, persistence.AvailabilityRule{
		ID:        "rule-bad",
		UserID:    "user-1",
		DayOfWeek: 1,
		StartTime: "17:00",
		EndTime:   "09:00",
		Timezone:  "UTC",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
}

func TestRuleRepository_DeleteRule_OwnerScoped(t *testing.T) {
	pool := newTestPool(t)
	repo := NewRuleRepository(pool)
	ctx := context.Background()

	createTestUser(t, pool, "user-1", "user1@acme.example")
	createTestUser(t, pool, "user-2", "user2@acme.example")

	now := time.Now().UTC().Truncate(time.Second)
	err := repo.CreateRule(ctx, persistence.AvailabilityRule{
		ID:        "rule-1",
		UserID:    "user-1",
		DayOfWeek: 1,
		StartTime: "09:00",
		EndTime:   "17:00",
		Timezone:  "UTC",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateRule failed: %v", err)
	}

	if err := repo.DeleteRule(ctx, "rule-1", "user-2"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other user's rule, got %v", err)
	}
	if err := repo.DeleteRule(ctx, "rule-1", "user-1"); err != nil {
		t.Fatalf("DeleteRule failed: %v", err)
	}

	listed, err := repo.ListRulesForUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListRulesForUser failed: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected no rules after delete, got %d", len(listed))
	}
}

func TestBlockedTimeRepository_ListInRange(t *testing.T) {
	pool := newTestPool(t)
	repo := NewBlockedTimeRepository(pool)
	ctx := context.Background()

	createTestUser(t, pool, "user-1", "user1@acme.example")

	now := time.Now().UTC().Truncate(time.Second)
	base := now.Add(24 * time.Hour)
	reason := "Dentist"
	blocks := []persistence.BlockedTime{
		{
			ID:        "block-inside",
			UserID:    "user-1",
			Start:     base.Add(2 * time.Hour),
			End:       base.Add(3 * time.Hour),
			Reason:    &reason,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:        "block-straddling",
			UserID:    "user-1",
			Start:     base.Add(-time.Hour),
			End:       base.Add(time.Hour),
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:        "block-outside",
			UserID:    "user-1",
			Start:     base.Add(48 * time.Hour),
			End:       base.Add(49 * time.Hour),
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	for _, block := range blocks {
		if err := repo.CreateBlockedTime(ctx, block); err != nil {
			t.Fatalf("CreateBlockedTime(%s) failed: %v", block.ID, err)
		}
	}

	inRange, err := repo.ListBlockedTimesInRange(ctx, "user-1", base, base.Add(8*time.Hour))
	if err != nil {
		t.Fatalf("ListBlockedTimesInRange failed: %v", err)
	}
	if len(inRange) != 2 {
		t.Fatalf("expected 2 overlapping blocks, got %d", len(inRange))
	}
	for _, block := range inRange {
		if block.ID == "block-outside" {
			t.Fatal("block outside the range should not be returned")
		}
	}
}

func TestBlockedTimeRepository_DeleteOwnerScoped(t *testing.T) {
	pool := newTestPool(t)
	repo := NewBlockedTimeRepository(pool)
	ctx := context.Background()

	createTestUser(t, pool, "user-1", "user1@acme.example")
	createTestUser(t, pool, "user-2", "user2@acme.example")

	now := time.Now().UTC().Truncate(time.Second)
	err := repo.CreateBlockedTime(ctx, persistence.BlockedTime{
		ID:        "block-1",
		UserID:    "user-1",
		Start:     now.Add(time.Hour),
		End:       now.Add(2 * time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateBlockedTime failed: %v", err)
	}

	if err := repo.DeleteBlockedTime(ctx, "block-1", "user-2"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other user's block, got %v", err)
	}
	if err := repo.DeleteBlockedTime(ctx, "block-1", "user-1"); err != nil {
		t.Fatalf("DeleteBlockedTime failed: %v", err)
	}
}
