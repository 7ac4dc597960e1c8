package calendar

import (
	"context"
	"time"

	"github.com/example/meeting-coordinator/internal/availability"
)

// BusyProvider turns raw calendar events into padded busy intervals.
type BusyProvider struct {
	source Source
}

// NewBusyProvider creates a provider over the supplied event source.
func NewBusyProvider(source Source) *BusyProvider {
	return &BusyProvider{source: source}
}

// FetchBusy returns the user's busy intervals within the range, each expanded
// by the buffer on both sides. Invalid events are dropped.
func (p *BusyProvider) FetchBusy(ctx context.Context, userID string, timeMin, timeMax time.Time, buffer time.Duration) ([]availability.Interval, error) {
	events, err := p.source.FetchEvents(ctx, userID, timeMin, timeMax)
	if err != nil {
		return nil, err
	}

	intervals := make([]availability.Interval, 0, len(events))
	for _, event := range events {
		interval := availability.Interval{Start: event.Start, End: event.End}
		if !interval.IsValid() {
			continue
		}
		intervals = append(intervals, interval)
	}
	return availability.ExpandAll(intervals, buffer), nil
}
