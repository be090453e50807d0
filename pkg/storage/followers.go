package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// User clearance tiers.
const (
	TypeUnregistered = 0
	TypeCrew         = 1
	TypeStaff        = 2
)

// Follower is a registered individual user.
type Follower struct {
	UserID      string
	DisplayName string
	PictureURL  string
	Type        int
}

// Group is a registered chat group.
type Group struct {
	GroupID   string
	GroupName string
	Type      int
}

// AddFollower inserts or refreshes a follower row.
func (s *Store) AddFollower(ctx context.Context, f *Follower) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO followers (user_id, display_name, picture_url, user_type)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   display_name = excluded.display_name,
		   picture_url = excluded.picture_url`,
		f.UserID, f.DisplayName, f.PictureURL, f.Type,
	)
	if err != nil {
		return fmt.Errorf("add follower %s: %w", f.UserID, err)
	}
	return nil
}

// RemoveFollower deletes a follower by user id.
func (s *Store) RemoveFollower(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM followers WHERE user_id = ?`, userID,
	); err != nil {
		return fmt.Errorf("remove follower %s: %w", userID, err)
	}
	return nil
}

// GetFollower returns a follower by user id, or ErrNotFound.
func (s *Store) GetFollower(ctx context.Context, userID string) (*Follower, error) {
	var f Follower
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, display_name, picture_url, user_type FROM followers WHERE user_id = ?`,
		userID,
	).Scan(&f.UserID, &f.DisplayName, &f.PictureURL, &f.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get follower %s: %w", userID, err)
	}
	return &f, nil
}

// ListFollowers returns all followers.
func (s *Store) ListFollowers(ctx context.Context) ([]Follower, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, display_name, picture_url, user_type FROM followers ORDER BY display_name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list followers: %w", err)
	}
	defer rows.Close()

	var out []Follower
	for rows.Next() {
		var f Follower
		if err := rows.Scan(&f.UserID, &f.DisplayName, &f.PictureURL, &f.Type); err != nil {
			return nil, fmt.Errorf("scan follower: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ToggleFollowerClearance flips a follower between crew and staff by
// display name. Unregistered followers are left alone.
func (s *Store) ToggleFollowerClearance(ctx context.Context, displayName string) (int, error) {
	var current int
	err := s.db.QueryRowContext(ctx,
		`SELECT user_type FROM followers WHERE display_name = ?`, displayName,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get follower type %s: %w", displayName, err)
	}

	var next int
	switch current {
	case TypeCrew:
		next = TypeStaff
	case TypeStaff:
		next = TypeCrew
	default:
		return current, nil
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE followers SET user_type = ? WHERE display_name = ?`, next, displayName,
	); err != nil {
		return 0, fmt.Errorf("toggle follower %s: %w", displayName, err)
	}
	return next, nil
}

// AddGroup registers a group once; re-registering is a no-op.
func (s *Store) AddGroup(ctx context.Context, groupID, groupName string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO groups (group_id, group_name, group_type) VALUES (?, ?, 0)
		 ON CONFLICT(group_id) DO NOTHING`,
		groupID, groupName,
	)
	if err != nil {
		return fmt.Errorf("add group %s: %w", groupID, err)
	}
	return nil
}

// GetGroup returns a registered group, or ErrNotFound.
func (s *Store) GetGroup(ctx context.Context, groupID string) (*Group, error) {
	var g Group
	err := s.db.QueryRowContext(ctx,
		`SELECT group_id, group_name, group_type FROM groups WHERE group_id = ?`,
		groupID,
	).Scan(&g.GroupID, &g.GroupName, &g.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get group %s: %w", groupID, err)
	}
	return &g, nil
}
