package verification

import (
	"context"
	"time"
)

// Code is a short-lived one-time code bound to (poll, email). Email is stored
// lowercased. A code is unusable once ExpiresAt passes even if the row still
// exists; the janitor deletes expired rows eventually.
type Code struct {
	ID        int64
	PollID    string
	Email     string
	Code      string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Store interface {
	// Replace removes any existing codes for (pollID, email) and inserts c,
	// so at most one code is active per pair.
	Replace(ctx context.Context, c *Code) error
	Find(ctx context.Context, pollID, email string) (*Code, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
