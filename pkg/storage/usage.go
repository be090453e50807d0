package storage

import (
	"context"
	"fmt"
	"time"
)

// UsageRecord is one recorded command invocation. Append-only.
type UsageRecord struct {
	Timestamp time.Time
	UserID    string
	Command   string
}

// RecordCall appends a usage record.
func (s *Store) RecordCall(ctx context.Context, rec UsageRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_calls (timestamp, user_id, api_call) VALUES (?, ?, ?)`,
		rec.Timestamp.UTC().Format(timeFormat), rec.UserID, rec.Command,
	)
	if err != nil {
		return fmt.Errorf("record call %s: %w", rec.Command, err)
	}
	return nil
}

// CallsSince returns usage records with timestamp >= since, oldest first.
func (s *Store) CallsSince(ctx context.Context, since time.Time) ([]UsageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, user_id, api_call FROM api_calls WHERE timestamp >= ? ORDER BY id`,
		since.UTC().Format(timeFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("calls since %s: %w", since, err)
	}
	defer rows.Close()

	var out []UsageRecord
	for rows.Next() {
		var rec UsageRecord
		var ts string
		if err := rows.Scan(&ts, &rec.UserID, &rec.Command); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		rec.Timestamp, _ = time.Parse(timeFormat, ts)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CallLogEntry joins a usage record with the caller's display name for
// the dashboard call log.
type CallLogEntry struct {
	Timestamp   time.Time
	DisplayName string
	Command     string
}

// CallLog returns the full call history joined with follower names,
// newest first. Calls from unregistered identities are omitted by the
// join, matching the dashboard's presentation.
func (s *Store) CallLog(ctx context.Context) ([]CallLogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT api_calls.timestamp, followers.display_name, api_calls.api_call
		 FROM api_calls JOIN followers ON followers.user_id = api_calls.user_id
		 ORDER BY api_calls.id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("call log: %w", err)
	}
	defer rows.Close()

	var out []CallLogEntry
	for rows.Next() {
		var e CallLogEntry
		var ts string
		if err := rows.Scan(&ts, &e.DisplayName, &e.Command); err != nil {
			return nil, fmt.Errorf("scan call log: %w", err)
		}
		e.Timestamp, _ = time.Parse(timeFormat, ts)
		out = append(out, e)
	}
	return out, rows.Err()
}
