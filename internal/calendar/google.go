package calendar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleSource fetches events from the Google Calendar API using per-user
// tokens managed by a TokenManager.
type GoogleSource struct {
	tokens *TokenManager
}

// NewGoogleSource creates a Google Calendar event source.
func NewGoogleSource(tokens *TokenManager) *GoogleSource {
	return &GoogleSource{tokens: tokens}
}

// FetchEvents lists the user's primary-calendar events within the range.
// All-day events and events marked free (transparent) are skipped.
func (s *GoogleSource) FetchEvents(ctx context.Context, userID string, timeMin, timeMax time.Time) ([]BusyEvent, error) {
	token, err := s.tokens.Token(ctx, userID)
	if err != nil {
		return nil, err
	}

	svc, err := gcal.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	call := svc.Events.List("primary").
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)

	events, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	var busy []BusyEvent
	for _, event := range events.Items {
		if event.Transparency == "transparent" {
			continue
		}
		if event.Start == nil || event.End == nil {
			continue
		}
		// All-day events carry Date instead of DateTime.
		if event.Start.DateTime == "" || event.End.DateTime == "" {
			continue
		}

		start, err := time.Parse(time.RFC3339, event.Start.DateTime)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, event.End.DateTime)
		if err != nil {
			continue
		}

		busy = append(busy, BusyEvent{
			Title: event.Summary,
			Start: start,
			End:   end,
		})
	}
	return busy, nil
}
