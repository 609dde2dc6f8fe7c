package kba

import (
	"context"
	"time"
)

// Store persists attempt records. Pure I/O; the lockout rules live in the
// service.
type Store interface {
	Get(ctx context.Context, identifier string) (*Attempt, error)
	// RecordFailure increments the counter for the identifier, creating
	// the record on first failure, and returns the post-increment state.
	RecordFailure(ctx context.Context, identifier, origin string, now time.Time) (*Attempt, error)
	// Update overwrites the full record (lockout application, lazy expiry
	// clearing, success reset).
	Update(ctx context.Context, record *Attempt) error
}
