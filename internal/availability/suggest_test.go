package availability

import (
	"testing"
	"time"
)

func TestSuggestTimes_UnrestrictedUserGetsThreeDays(t *testing.T) {
	// Monday morning; scanning starts Tuesday.
	now := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)

	suggestions := SuggestTimes(nil, Unrestricted(), time.UTC, now)

	if len(suggestions) != 9 {
		t.Fatalf("expected 9 suggestions (3 days x 3 times), got %d", len(suggestions))
	}
	// First day is tomorrow, first preferred time is 10:00.
	first := time.Date(2024, time.January, 2, 10, 0, 0, 0, time.UTC)
	if !suggestions[0].Equal(first) {
		t.Fatalf("expected first suggestion %v, got %v", first, suggestions[0])
	}
	// Preference order within a day: 10:00, 14:00, 11:00.
	if !suggestions[1].Equal(first.Add(4 * time.Hour)) {
		t.Fatalf("expected second suggestion at 14:00, got %v", suggestions[1])
	}
	if !suggestions[2].Equal(first.Add(time.Hour)) {
		t.Fatalf("expected third suggestion at 11:00, got %v", suggestions[2])
	}
}

func TestSuggestTimes_SkipsDaysWithoutRules(t *testing.T) {
	// Only Wednesdays are available. 2024-01-01 is a Monday, so the first
	// three qualifying days are Jan 3, 10 and 17 - but the scan is capped at
	// 14 days, so only Jan 3 and Jan 10 are reachable.
	now := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)
	rules := NewRuleSet([]WeeklyRule{mustRule(t, time.Wednesday, "09:00", "17:00")})

	suggestions := SuggestTimes(nil, rules, time.UTC, now)

	if len(suggestions) != 6 {
		t.Fatalf("expected 6 suggestions across two Wednesdays, got %d", len(suggestions))
	}
	for _, s := range suggestions {
		if s.Weekday() != time.Wednesday {
			t.Fatalf("expected only Wednesday suggestions, got %v", s)
		}
	}
}

func TestSuggestTimes_BusyTimesAreAvoided(t *testing.T) {
	now := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)
	tuesday := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)

	// Block the top two preferences on the first day.
	busy := []Interval{
		{Start: tuesday.Add(10 * time.Hour), End: tuesday.Add(11 * time.Hour)},
		{Start: tuesday.Add(14 * time.Hour), End: tuesday.Add(15 * time.Hour)},
	}

	suggestions := SuggestTimes(busy, Unrestricted(), time.UTC, now)

	if len(suggestions) < 3 {
		t.Fatalf("expected suggestions, got %d", len(suggestions))
	}
	// 10:00 overlaps the first block and 14:00 the second; 11:00 is the first
	// acceptable preference. 15:00 and 09:00 complete the day.
	wantFirst := tuesday.Add(11 * time.Hour)
	if !suggestions[0].Equal(wantFirst) {
		t.Fatalf("expected first suggestion %v, got %v", wantFirst, suggestions[0])
	}
	for _, s := range suggestions {
		if AnyOverlaps(busy, Interval{Start: s, End: s.Add(time.Hour)}) {
			t.Fatalf("suggestion %v overlaps a busy interval", s)
		}
	}
}

func TestSuggestTimes_RespectsRuleWindows(t *testing.T) {
	now := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)
	// Narrow morning window: only 09:00 and 10:00 starts fit a 60-minute slot.
	rules := NewRuleSet([]WeeklyRule{
		mustRule(t, time.Tuesday, "09:00", "11:00"),
	})

	suggestions := SuggestTimes(nil, rules, time.UTC, now)

	// Two Tuesdays fall inside the 14-day scan, two valid starts each.
	if len(suggestions) != 4 {
		t.Fatalf("expected 4 suggestions, got %d: %v", len(suggestions), suggestions)
	}
	for i, s := range suggestions {
		// Preference order puts 10:00 before 09:00 within each day.
		wantHour := 10
		if i%2 == 1 {
			wantHour = 9
		}
		if s.Hour() != wantHour {
			t.Fatalf("suggestion %d: expected hour %d, got %v", i, wantHour, s)
		}
		if end := s.Add(time.Hour); !rules.Allows(s, end) {
			t.Fatalf("suggestion %v violates the rule window", s)
		}
	}
}

func TestSuggestTimes_NeverSuggestsThePast(t *testing.T) {
	// Late evening: tomorrow's slots are all still in the future, but verify
	// the guard against a clock far in the day.
	now := time.Date(2024, time.January, 2, 23, 0, 0, 0, time.UTC)

	suggestions := SuggestTimes(nil, Unrestricted(), time.UTC, now)
	for _, s := range suggestions {
		if !s.After(now) {
			t.Fatalf("suggestion %v is not after now %v", s, now)
		}
	}
}
