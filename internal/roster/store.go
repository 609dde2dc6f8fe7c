package roster

import "context"

// Store reads and seeds roster records. The system never updates a person;
// Put exists only for seeding and tests.
type Store interface {
	Get(ctx context.Context, medicaidID string) (*Person, error)
	Put(ctx context.Context, person Person) error
}
