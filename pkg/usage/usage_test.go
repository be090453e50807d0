package usage

import (
	"context"
	"testing"
	"time"

	"samantha/pkg/logger"
	"samantha/pkg/storage"
)

func newTracker(t *testing.T) (*Tracker, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	log, err := logger.New(logger.DefaultConfig())
	if err != nil {
		t.Fatalf("creating logger: %v", err)
	}
	return New(store, log, time.UTC), store
}

func TestFrequencyReport_OrderAndTies(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	seq := []string{"help", "agenda", "agenda", "nowshowing", "NowShowing"}
	for i, name := range seq {
		tr.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		tr.Record(ctx, name, "U1")
	}
	tr.now = func() time.Time { return base.Add(time.Hour) }

	report, err := tr.FrequencyReport(ctx, 90)
	if err != nil {
		t.Fatalf("FrequencyReport: %v", err)
	}

	if len(report) != 3 {
		t.Fatalf("got %d rows, want 3", len(report))
	}
	// agenda and nowshowing both have 2 calls; agenda was seen first.
	if report[0].Command != "agenda" || report[0].Count != 2 {
		t.Errorf("row 0 = %+v, want agenda/2", report[0])
	}
	if report[1].Command != "nowshowing" || report[1].Count != 2 {
		t.Errorf("row 1 = %+v, want nowshowing/2", report[1])
	}
	if report[2].Command != "help" || report[2].Count != 1 {
		t.Errorf("row 2 = %+v, want help/1", report[2])
	}
}

func TestFrequencyReport_WindowExcludesOldCalls(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now.AddDate(0, 0, -100) }
	tr.Record(ctx, "ancient", "U1")

	tr.now = func() time.Time { return now }
	tr.Record(ctx, "fresh", "U1")

	report, err := tr.FrequencyReport(ctx, 90)
	if err != nil {
		t.Fatalf("FrequencyReport: %v", err)
	}
	if len(report) != 1 || report[0].Command != "fresh" {
		t.Fatalf("report = %+v, want only fresh", report)
	}
}

func TestDailyActivityReport_ZeroFilled(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()

	now := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now.AddDate(0, 0, -2) }
	tr.Record(ctx, "agenda", "U1")
	tr.Record(ctx, "help", "U1")

	tr.now = func() time.Time { return now }
	tr.Record(ctx, "agenda", "U2")

	report, err := tr.DailyActivityReport(ctx, 5)
	if err != nil {
		t.Fatalf("DailyActivityReport: %v", err)
	}
	if len(report) != 5 {
		t.Fatalf("got %d days, want 5", len(report))
	}

	if report[0].Date != "2024-05-06" {
		t.Errorf("first day = %s, want 2024-05-06", report[0].Date)
	}
	if report[4].Date != "2024-05-10" {
		t.Errorf("last day = %s, want 2024-05-10", report[4].Date)
	}

	want := []int{0, 0, 2, 0, 1}
	for i, day := range report {
		if day.Count != want[i] {
			t.Errorf("day %s count = %d, want %d", day.Date, day.Count, want[i])
		}
	}
}

func TestRecord_FailureDoesNotPanic(t *testing.T) {
	tr, store := newTracker(t)
	_ = store.Close()

	// A closed store makes the insert fail; Record must swallow it.
	tr.Record(context.Background(), "agenda", "U1")
}
