package availability

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidClock indicates a wall-clock string could not be parsed.
var ErrInvalidClock = errors.New("availability: invalid wall-clock value")

// ErrInvalidRuleWindow indicates a rule's start does not precede its end.
// Cross-midnight rules are not supported; a window must open and close within
// the same day.
var ErrInvalidRuleWindow = errors.New("availability: rule start must precede rule end")

// WeeklyRule describes a recurring weekly window during which its owner is
// normally free. Boundaries are wall-clock minutes of day, independent of any
// date.
type WeeklyRule struct {
	Weekday     time.Weekday
	StartMinute int
	EndMinute   int
}

// NewWeeklyRule validates and constructs a weekly rule from wall-clock
// boundaries expressed as "HH:MM" strings.
func NewWeeklyRule(weekday time.Weekday, start, end string) (WeeklyRule, error) {
	startMinute, err := ParseClock(start)
	if err != nil {
		return WeeklyRule{}, err
	}
	endMinute, err := ParseClock(end)
	if err != nil {
		return WeeklyRule{}, err
	}
	if startMinute >= endMinute {
		return WeeklyRule{}, ErrInvalidRuleWindow
	}
	return WeeklyRule{Weekday: weekday, StartMinute: startMinute, EndMinute: endMinute}, nil
}

// ParseClock converts an "HH:MM" (or "HH:MM:SS") wall-clock string into
// minutes of day. Seconds are ignored.
func ParseClock(value string) (int, error) {
	var hour, minute, second int
	switch n, _ := fmt.Sscanf(value, "%d:%d:%d", &hour, &minute, &second); n {
	case 2, 3:
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	return hour*60 + minute, nil
}

// covers reports whether the full candidate minute range fits within the rule
// window. Partial overlap does not count.
func (r WeeklyRule) covers(startMinute, endMinute int) bool {
	return startMinute >= r.StartMinute && endMinute <= r.EndMinute
}

// RuleSet carries a user's weekly availability rules together with a signal
// distinguishing "never configured" from "configured but currently empty".
// Both states evaluate as unrestricted; the distinction is preserved so
// callers that care can tell them apart.
type RuleSet struct {
	configured bool
	rules      []WeeklyRule
}

// NewRuleSet builds a configured rule set from the supplied rules.
func NewRuleSet(rules []WeeklyRule) RuleSet {
	copied := make([]WeeklyRule, len(rules))
	copy(copied, rules)
	return RuleSet{configured: true, rules: copied}
}

// Unrestricted returns the rule set of a user who has never configured
// availability rules.
func Unrestricted() RuleSet {
	return RuleSet{}
}

// Configured reports whether the owner has ever set up rules.
func (rs RuleSet) Configured() bool {
	return rs.configured
}

// Rules returns a copy of the underlying rules.
func (rs RuleSet) Rules() []WeeklyRule {
	out := make([]WeeklyRule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Allows reports whether the candidate interval falls entirely inside at
// least one rule window for the candidate's weekday.
//
// An empty rule set means unrestricted availability, so every candidate is
// allowed. Once any rule exists, days without a rule are unavailable, and a
// candidate must be fully contained in a single window; windows on the same
// weekday are unioned.
func (rs RuleSet) Allows(candidateStart, candidateEnd time.Time) bool {
	if len(rs.rules) == 0 {
		return true
	}

	weekday := candidateStart.Weekday()
	startMinute := candidateStart.Hour()*60 + candidateStart.Minute()
	endMinute := candidateEnd.Hour()*60 + candidateEnd.Minute()

	for _, rule := range rs.rules {
		if rule.Weekday != weekday {
			continue
		}
		if rule.covers(startMinute, endMinute) {
			return true
		}
	}
	return false
}

// AllowsOnDay reports whether the rule set names any window at all for the
// supplied weekday. Unrestricted sets allow every day.
func (rs RuleSet) AllowsOnDay(weekday time.Weekday) bool {
	if len(rs.rules) == 0 {
		return true
	}
	for _, rule := range rs.rules {
		if rule.Weekday == weekday {
			return true
		}
	}
	return false
}
