package availability

import "time"

const (
	// suggestionSlotLength is the fixed length tested for each preferred time.
	suggestionSlotLength = 60 * time.Minute

	// suggestionScanDays bounds how far forward the heuristic looks.
	suggestionScanDays = 14

	// suggestionTargetDays is the number of distinct days the heuristic tries
	// to fill before stopping.
	suggestionTargetDays = 3

	// suggestionsPerDay caps accepted times on a single day.
	suggestionsPerDay = 3
)

// preferredMinutes lists the wall-clock starts tested on each day, in order
// of preference.
var preferredMinutes = []int{
	10 * 60,
	14 * 60,
	11 * 60,
	15 * 60,
	9 * 60,
	16 * 60,
	13 * 60,
}

// SuggestTimes proposes reasonable meeting starts for a single user. It scans
// forward day by day starting tomorrow in the given location, testing a small
// fixed set of preferred clock times against the user's rules and busy
// intervals, and stops once three distinct days have each yielded at least
// one acceptable time. Days that yield nothing are skipped and do not count.
//
// This is a best-effort hint, deliberately lower fidelity than
// Engine.FindCommonSlots: it is neither exhaustive nor optimal.
func SuggestTimes(busy []Interval, rules RuleSet, loc *time.Location, now time.Time) []time.Time {
	if loc == nil {
		loc = time.UTC
	}

	local := now.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)

	suggestions := make([]time.Time, 0, suggestionTargetDays*suggestionsPerDay)
	daysWithSlots := 0

	for checked := 0; checked < suggestionScanDays && daysWithSlots < suggestionTargetDays; checked++ {
		if !rules.AllowsOnDay(day.Weekday()) {
			day = day.AddDate(0, 0, 1)
			continue
		}

		accepted := 0
		for _, startMinute := range preferredMinutes {
			if accepted >= suggestionsPerDay {
				break
			}

			start := day.Add(time.Duration(startMinute) * time.Minute)
			end := start.Add(suggestionSlotLength)

			if !start.After(now) {
				continue
			}
			if !rules.Allows(start, end) {
				continue
			}
			if AnyOverlaps(busy, Interval{Start: start, End: end}) {
				continue
			}

			suggestions = append(suggestions, start)
			accepted++
		}

		if accepted > 0 {
			daysWithSlots++
		}
		day = day.AddDate(0, 0, 1)
	}

	return suggestions
}
