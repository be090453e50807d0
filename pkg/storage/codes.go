package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetCode returns the current value of a named code, read fresh on every
// call, or ErrNotFound.
func (s *Store) GetCode(ctx context.Context, item string) (string, error) {
	var code string
	err := s.db.QueryRowContext(ctx,
		`SELECT code FROM codes WHERE item = ?`, item,
	).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get code %s: %w", item, err)
	}
	return code, nil
}

// UpdateCode sets the value of a named code.
func (s *Store) UpdateCode(ctx context.Context, item, value string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE codes SET code = ? WHERE item = ?`, value, item,
	)
	if err != nil {
		return fmt.Errorf("update code %s: %w", item, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// PutCode inserts or replaces a code row. Used by seeding and tests.
func (s *Store) PutCode(ctx context.Context, item, value string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO codes (item, code) VALUES (?, ?)
		 ON CONFLICT(item) DO UPDATE SET code = excluded.code`,
		item, value,
	); err != nil {
		return fmt.Errorf("put code %s: %w", item, err)
	}
	return nil
}
