package command

import (
	"context"

	"samantha/pkg/storage"
)

// Source identifies who sent a command. Clearance comes from the
// followers table for direct chats and the groups table for group
// chats; unknown identities and rooms sit at the unregistered tier.
type Source interface {
	// UserID is the sending user, when the provider includes one.
	UserID() string

	// ClearanceLevel resolves the caller's tier against the store.
	// Lookup failures resolve to the unregistered tier.
	ClearanceLevel(ctx context.Context, store *storage.Store) int
}

// User is a direct one-on-one chat.
type User struct {
	ID string
}

func (u User) UserID() string { return u.ID }

func (u User) ClearanceLevel(ctx context.Context, store *storage.Store) int {
	follower, err := store.GetFollower(ctx, u.ID)
	if err != nil {
		return storage.TypeUnregistered
	}
	return follower.Type
}

// Group is a group chat; SenderID is the member who spoke.
type Group struct {
	ID       string
	SenderID string
}

func (g Group) UserID() string { return g.SenderID }

func (g Group) ClearanceLevel(ctx context.Context, store *storage.Store) int {
	group, err := store.GetGroup(ctx, g.ID)
	if err != nil {
		return storage.TypeUnregistered
	}
	return group.Type
}

// Room is a multi-person chat without group registration; it never
// gains clearance beyond the unregistered tier.
type Room struct {
	ID       string
	SenderID string
}

func (r Room) UserID() string { return r.SenderID }

func (r Room) ClearanceLevel(context.Context, *storage.Store) int {
	return storage.TypeUnregistered
}
