package availability

import "time"

// Interval represents a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// IsValid reports whether the interval has a positive duration.
func (i Interval) IsValid() bool {
	return i.End.After(i.Start)
}

// Duration returns the length of the interval.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps reports whether two half-open intervals intersect. Touching
// boundaries do not count as an overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && i.End.After(other.Start)
}

// Contains reports whether the instant falls inside the interval.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// Expand widens the interval symmetrically by the supplied padding on both
// ends. A non-positive padding returns the interval unchanged.
func (i Interval) Expand(padding time.Duration) Interval {
	if padding <= 0 {
		return i
	}
	return Interval{Start: i.Start.Add(-padding), End: i.End.Add(padding)}
}

// ExpandAll applies Expand to every interval in the slice. Overlaps produced
// by the expansion are intentionally left in place; the overlap test treats
// them idempotently.
func ExpandAll(intervals []Interval, padding time.Duration) []Interval {
	if len(intervals) == 0 {
		return nil
	}
	out := make([]Interval, len(intervals))
	for idx, interval := range intervals {
		out[idx] = interval.Expand(padding)
	}
	return out
}

// AnyOverlaps reports whether the candidate intersects at least one of the
// supplied intervals.
func AnyOverlaps(intervals []Interval, candidate Interval) bool {
	for _, interval := range intervals {
		if candidate.Overlaps(interval) {
			return true
		}
	}
	return false
}
