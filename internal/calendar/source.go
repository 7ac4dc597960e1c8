// Package calendar fetches busy events from external calendar providers and
// turns them into availability intervals.
package calendar

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoCalendarConnected indicates the user has no linked calendar account.
	ErrNoCalendarConnected = errors.New("calendar: no calendar connected")
	// ErrAuthExpired indicates the stored credential can no longer be refreshed.
	ErrAuthExpired = errors.New("calendar: authorization expired")
)

// BusyEvent is a single scheduled event on a user's external calendar.
type BusyEvent struct {
	Title string
	Start time.Time
	End   time.Time
}

// Source fetches a user's calendar events within a time range.
type Source interface {
	FetchEvents(ctx context.Context, userID string, timeMin, timeMax time.Time) ([]BusyEvent, error)
}
