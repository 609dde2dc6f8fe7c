package audit

import "context"

// Store persists audit entries. Append-only: implementations must not
// expose update or delete operations.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Entry, error)
}
