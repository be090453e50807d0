// Package usage records command invocations and aggregates them for the
// help ordering and the dashboard analytics.
package usage

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"samantha/pkg/logger"
	"samantha/pkg/storage"
)

// Tracker records and aggregates command usage.
type Tracker struct {
	store *storage.Store
	log   *logger.Logger
	loc   *time.Location

	// now is overridable in tests.
	now func() time.Time
}

// New creates a tracker. Daily buckets are computed in loc.
func New(store *storage.Store, log *logger.Logger, loc *time.Location) *Tracker {
	if loc == nil {
		loc = time.UTC
	}
	return &Tracker{
		store: store,
		log:   log,
		loc:   loc,
		now:   time.Now,
	}
}

// Record appends a usage record. Failures are logged and swallowed so a
// broken analytics store never blocks a reply.
func (t *Tracker) Record(ctx context.Context, command, userID string) {
	rec := storage.UsageRecord{
		Timestamp: t.now(),
		UserID:    userID,
		Command:   strings.ToLower(command),
	}
	if err := t.store.RecordCall(ctx, rec); err != nil {
		t.log.Warn("Failed to record command usage",
			zap.String("command", command),
			zap.Error(err))
	}
}

// CommandCount is one row of a frequency report.
type CommandCount struct {
	Command string `json:"command"`
	Count   int    `json:"count"`
}

// FrequencyReport returns commands ordered by descending call count
// within the trailing window, ties broken by first-seen order.
func (t *Tracker) FrequencyReport(ctx context.Context, windowDays int) ([]CommandCount, error) {
	since := t.now().AddDate(0, 0, -windowDays)
	recs, err := t.store.CallsSince(ctx, since)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	for i, rec := range recs {
		name := strings.ToLower(rec.Command)
		if _, ok := firstSeen[name]; !ok {
			firstSeen[name] = i
		}
		counts[name]++
	}

	out := make([]CommandCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, CommandCount{Command: name, Count: n})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return firstSeen[out[i].Command] < firstSeen[out[j].Command]
	})
	return out, nil
}

// DayCount is one day of activity; Date is formatted YYYY-MM-DD.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DailyActivityReport returns call counts for each of the last
// windowDays days, oldest first. Days without calls appear with a zero
// count so charts render a contiguous axis.
func (t *Tracker) DailyActivityReport(ctx context.Context, windowDays int) ([]DayCount, error) {
	now := t.now().In(t.loc)
	since := now.AddDate(0, 0, -(windowDays - 1))
	startOfWindow := time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, t.loc)

	recs, err := t.store.CallsSince(ctx, startOfWindow)
	if err != nil {
		return nil, err
	}

	perDay := make(map[string]int)
	for _, rec := range recs {
		perDay[rec.Timestamp.In(t.loc).Format("2006-01-02")]++
	}

	out := make([]DayCount, 0, windowDays)
	for d := 0; d < windowDays; d++ {
		date := startOfWindow.AddDate(0, 0, d).Format("2006-01-02")
		out = append(out, DayCount{Date: date, Count: perDay[date]})
	}
	return out, nil
}
