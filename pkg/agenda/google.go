package agenda

import (
	"context"
	"fmt"
	"os"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"samantha/pkg/config"
)

// GoogleCalendar lists events through the Calendar API using a service
// account.
type GoogleCalendar struct {
	svc *calendar.Service
	loc *time.Location
}

// NewGoogleCalendar builds a calendar client from service-account JSON.
// Credentials come from config either inline or as a file path.
func NewGoogleCalendar(ctx context.Context, cfg config.CalendarConfig, loc *time.Location) (*GoogleCalendar, error) {
	creds := []byte(cfg.CredentialsJSON)
	if len(creds) == 0 && cfg.CredentialsFile != "" {
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read calendar credentials: %w", err)
		}
		creds = b
	}
	if len(creds) == 0 {
		return nil, fmt.Errorf("no calendar credentials configured")
	}

	svc, err := calendar.NewService(ctx, option.WithCredentialsJSON(creds))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &GoogleCalendar{svc: svc, loc: loc}, nil
}

func (g *GoogleCalendar) ListEvents(ctx context.Context, calendarID string, windowDays int) ([]Event, error) {
	now := time.Now().UTC()
	res, err := g.svc.Events.List(calendarID).
		TimeMin(now.Format(time.RFC3339)).
		TimeMax(now.AddDate(0, 0, windowDays).Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list events for %s: %w", calendarID, err)
	}

	events := make([]Event, 0, len(res.Items))
	for _, item := range res.Items {
		if item.Start == nil {
			continue
		}
		ev := Event{Title: item.Summary}
		switch {
		case item.Start.DateTime != "":
			t, err := time.Parse(time.RFC3339, item.Start.DateTime)
			if err != nil {
				continue
			}
			ev.Start = t
		case item.Start.Date != "":
			t, err := time.ParseInLocation("2006-01-02", item.Start.Date, g.loc)
			if err != nil {
				continue
			}
			ev.Start = t
			ev.AllDay = true
		default:
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}
