// Package agenda renders the club's schedule as a flex bubble from one
// or two Google Calendars. The rendered bubble is memoized so a chat
// burst does not hammer the calendar API.
package agenda

import (
	"context"
	"strings"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"go.uber.org/zap"

	"samantha/pkg/logger"
	"samantha/pkg/ttlcache"
)

const (
	basicTTL    = 10 * time.Minute
	combinedTTL = 2 * time.Hour

	colorToday    = "#DD3333"
	colorTomorrow = "#6486E3"
	colorLater    = "#AAAAAA"

	noEventsText = "Tidak ada proker seminggu kedepan"
)

// Event is a single calendar entry. AllDay events carry a midnight
// Start and render without a time suffix.
type Event struct {
	Title  string
	Start  time.Time
	AllDay bool
}

// EventsLister fetches upcoming events for one calendar over a
// forward-looking window of whole days.
type EventsLister interface {
	ListEvents(ctx context.Context, calendarID string, windowDays int) ([]Event, error)
}

// Composer builds agenda bubbles. The basic view shows the general
// calendar only; the combined view appends the staff calendar below a
// separator.
type Composer struct {
	lister          EventsLister
	log             *logger.Logger
	loc             *time.Location
	basicCalendarID string
	staffCalendarID string

	basicCache    *ttlcache.Cache[int, messaging_api.FlexBubble]
	combinedCache *ttlcache.Cache[int, messaging_api.FlexBubble]

	now func() time.Time
}

func NewComposer(lister EventsLister, log *logger.Logger, loc *time.Location, basicCalendarID, staffCalendarID string) *Composer {
	return &Composer{
		lister:          lister,
		log:             log,
		loc:             loc,
		basicCalendarID: basicCalendarID,
		staffCalendarID: staffCalendarID,
		basicCache:      ttlcache.New[int, messaging_api.FlexBubble](basicTTL),
		combinedCache:   ttlcache.New[int, messaging_api.FlexBubble](combinedTTL),
		now:             time.Now,
	}
}

// Basic renders the general calendar's agenda over the next windowDays.
func (c *Composer) Basic(ctx context.Context, windowDays int) messaging_api.FlexBubble {
	if bubble, ok := c.basicCache.Get(windowDays); ok {
		return bubble
	}

	events := c.fetch(ctx, c.basicCalendarID, windowDays)

	contents := []messaging_api.FlexComponentInterface{
		&messaging_api.FlexText{
			Text:   "Agenda LFM",
			Weight: messaging_api.FlexTextWEIGHT_BOLD,
			Size:   "sm",
		},
	}
	contents = c.appendEventLines(contents, events)

	bubble := wrapBody(contents)
	c.basicCache.Set(windowDays, bubble)
	return bubble
}

// Combined renders the general agenda plus the staff calendar's section
// below a separator.
func (c *Composer) Combined(ctx context.Context, windowDays int) messaging_api.FlexBubble {
	if bubble, ok := c.combinedCache.Get(windowDays); ok {
		return bubble
	}

	events := c.fetch(ctx, c.basicCalendarID, windowDays)
	staffEvents := c.fetch(ctx, c.staffCalendarID, windowDays)

	contents := []messaging_api.FlexComponentInterface{
		&messaging_api.FlexText{
			Text:   "Agenda LFM",
			Weight: messaging_api.FlexTextWEIGHT_BOLD,
			Align:  messaging_api.FlexTextALIGN_CENTER,
			Size:   "sm",
		},
	}
	contents = c.appendEventLines(contents, events)

	contents = append(contents,
		&messaging_api.FlexSeparator{
			Color:  "#CCCCCC",
			Margin: "lg",
		},
		&messaging_api.FlexText{
			Text:   "Agenda Fungs",
			Weight: messaging_api.FlexTextWEIGHT_BOLD,
			Align:  messaging_api.FlexTextALIGN_CENTER,
			Size:   "sm",
		},
	)

	// TODO: the staff section repeats the general calendar's events
	// whenever the staff calendar is non-empty; confirm with the staff
	// calendar owners what this section was meant to show before
	// changing it.
	if len(staffEvents) > 0 {
		for _, ev := range events {
			contents = append(contents, c.eventLine(ev))
		}
	} else {
		contents = append(contents, noEventsLine())
	}

	bubble := wrapBody(contents)
	c.combinedCache.Set(windowDays, bubble)
	return bubble
}

func (c *Composer) fetch(ctx context.Context, calendarID string, windowDays int) []Event {
	events, err := c.lister.ListEvents(ctx, calendarID, windowDays)
	if err != nil {
		c.log.Warn("calendar fetch failed",
			zap.String("calendar_id", calendarID),
			zap.Error(err))
		return nil
	}
	return events
}

func (c *Composer) appendEventLines(contents []messaging_api.FlexComponentInterface, events []Event) []messaging_api.FlexComponentInterface {
	if len(events) == 0 {
		return append(contents, noEventsLine())
	}
	for _, ev := range events {
		contents = append(contents, c.eventLine(ev))
	}
	return contents
}

// eventLine renders one event as a date label, a colored urgency line
// and the title. " - " in titles becomes a line break so long composite
// titles stay readable in the narrow column.
func (c *Composer) eventLine(ev Event) *messaging_api.FlexBox {
	label := c.dateLabel(ev)

	lineColor := colorLater
	if strings.HasPrefix(label, "Today") {
		lineColor = colorToday
	} else if strings.HasPrefix(label, "Tomorrow") {
		lineColor = colorTomorrow
	}

	return &messaging_api.FlexBox{
		Layout:  messaging_api.FlexBoxLAYOUT_HORIZONTAL,
		Spacing: "sm",
		Contents: []messaging_api.FlexComponentInterface{
			&messaging_api.FlexText{
				Text:    label,
				Wrap:    true,
				Color:   "#999999",
				Gravity: messaging_api.FlexTextGRAVITY_CENTER,
				Size:    "xxs",
				Flex:    22,
			},
			&messaging_api.FlexBox{
				Layout: messaging_api.FlexBoxLAYOUT_VERTICAL,
				Width:  "6px",
				Contents: []messaging_api.FlexComponentInterface{
					&messaging_api.FlexBox{
						Layout: messaging_api.FlexBoxLAYOUT_HORIZONTAL,
						Flex:   8,
						Contents: []messaging_api.FlexComponentInterface{
							&messaging_api.FlexFiller{},
							&messaging_api.FlexBox{
								Layout:          messaging_api.FlexBoxLAYOUT_VERTICAL,
								Width:           "2px",
								BackgroundColor: lineColor,
								Contents: []messaging_api.FlexComponentInterface{
									&messaging_api.FlexFiller{},
								},
							},
							&messaging_api.FlexFiller{},
						},
					},
				},
			},
			&messaging_api.FlexText{
				Text:    strings.ReplaceAll(ev.Title, " - ", "\n"),
				Wrap:    true,
				Gravity: messaging_api.FlexTextGRAVITY_CENTER,
				Size:    "sm",
				Color:   "#444444",
				Flex:    70,
			},
		},
	}
}

func noEventsLine() *messaging_api.FlexBox {
	return &messaging_api.FlexBox{
		Layout:  messaging_api.FlexBoxLAYOUT_BASELINE,
		Spacing: "sm",
		Contents: []messaging_api.FlexComponentInterface{
			&messaging_api.FlexText{
				Text:  noEventsText,
				Wrap:  true,
				Size:  "sm",
				Color: "#444444",
			},
		},
	}
}

// dateLabel renders the relative date for an event: "Today",
// "Tomorrow", or abbreviated weekday plus day and month, each with a
// trailing clock line when the event has a start time.
func (c *Composer) dateLabel(ev Event) string {
	start := ev.Start.In(c.loc)
	days := daysUntil(c.now().In(c.loc), start)

	var label string
	switch {
	case days <= 0:
		label = "Today"
	case days == 1:
		label = "Tomorrow"
	default:
		label = start.Format("Mon") + "\n" + start.Format("02 Jan")
	}

	if !ev.AllDay && (start.Hour() != 0 || start.Minute() != 0) {
		label += "\n" + start.Format("15:04")
	}
	return label
}

func daysUntil(now, then time.Time) int {
	nowDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	thenDate := time.Date(then.Year(), then.Month(), then.Day(), 0, 0, 0, 0, then.Location())
	return int(thenDate.Sub(nowDate) / (24 * time.Hour))
}

func wrapBody(contents []messaging_api.FlexComponentInterface) messaging_api.FlexBubble {
	return messaging_api.FlexBubble{
		Body: &messaging_api.FlexBox{
			Layout:   messaging_api.FlexBoxLAYOUT_VERTICAL,
			Spacing:  "md",
			Contents: contents,
		},
	}
}
