package availability

import (
	"errors"
	"time"
)

const (
	// gridStep is the fixed scan granularity. Slot duration controls slot
	// length only, never the step between candidate starts.
	gridStep = 30 * time.Minute

	// maxSlotsPerDay caps how many accepted slots a single calendar date may
	// contribute to the result.
	maxSlotsPerDay = 5
)

// ErrNoParticipants indicates a common-slot search was attempted with an
// empty participant set. The caller is expected to resolve at least one
// authorized participant before searching.
var ErrNoParticipants = errors.New("availability: at least one participant is required")

// ErrInvalidSlotDuration indicates a non-positive slot duration.
var ErrInvalidSlotDuration = errors.New("availability: slot duration must be positive")

// Participant bundles one user's buffered busy intervals and weekly rules for
// a common-slot search. Busy intervals are expected to be pre-expanded by the
// user's buffer.
type Participant struct {
	UserID string
	Busy   []Interval
	Rules  RuleSet
}

// Engine finds mutually free meeting slots. Grid alignment, weekday
// evaluation and per-day grouping are computed in the engine's location.
type Engine struct {
	location *time.Location
	now      func() time.Time
}

// NewEngine constructs an Engine evaluating candidates in the provided
// location. A nil location defaults to UTC and a nil clock to time.Now.
func NewEngine(loc *time.Location, now func() time.Time) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{location: loc, now: now}
}

// FindCommonSlots returns every slot of exactly the requested duration inside
// [searchStart, searchEnd) that is free for all participants, ordered
// ascending by start, with at most five slots retained per calendar date.
//
// The scan starts at max(searchStart, now) rounded up to the next point on a
// fixed 30-minute grid and advances in 30-minute steps. A candidate is
// accepted only when, for every participant, no busy interval overlaps it and
// the participant's rule set allows it. Candidates that end at or before now
// are skipped.
func (e *Engine) FindCommonSlots(participants []Participant, searchStart, searchEnd time.Time, duration time.Duration) ([]Interval, error) {
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}
	if duration <= 0 {
		return nil, ErrInvalidSlotDuration
	}

	now := e.now()
	effectiveStart := searchStart
	if now.After(effectiveStart) {
		effectiveStart = now
	}
	current := alignToGrid(effectiveStart.In(e.location))

	slots := make([]Interval, 0)
	perDay := make(map[string]int)

	for current.Before(searchEnd) {
		slotEnd := current.Add(duration)
		if slotEnd.After(searchEnd) {
			break
		}
		if !slotEnd.After(now) {
			current = current.Add(gridStep)
			continue
		}

		dateKey := current.Format(time.DateOnly)
		if perDay[dateKey] >= maxSlotsPerDay {
			current = current.Add(gridStep)
			continue
		}

		if freeForAll(participants, current, slotEnd) {
			slots = append(slots, Interval{Start: current, End: slotEnd})
			perDay[dateKey]++
		}

		current = current.Add(gridStep)
	}

	return slots, nil
}

func freeForAll(participants []Participant, start, end time.Time) bool {
	candidate := Interval{Start: start, End: end}
	for _, participant := range participants {
		if AnyOverlaps(participant.Busy, candidate) {
			return false
		}
		if !participant.Rules.Allows(start, end) {
			return false
		}
	}
	return true
}

// alignToGrid rounds t up to the next :00 or :30 boundary. Times already on a
// boundary keep their position; sub-minute precision is dropped.
func alignToGrid(t time.Time) time.Time {
	truncated := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
	switch minute := truncated.Minute(); {
	case minute == 0:
		return truncated
	case minute <= 30:
		return truncated.Add(time.Duration(30-minute) * time.Minute)
	default:
		return truncated.Add(time.Duration(60-minute) * time.Minute)
	}
}
