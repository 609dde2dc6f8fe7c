package consent

import "context"

// Store persists consent records. The (user, provider) pair is the
// natural key; GetByUserAndProvider is how Toggle decides between update
// and create.
type Store interface {
	GetByUserAndProvider(ctx context.Context, userID, providerID string) (*Record, error)
	ListByUser(ctx context.Context, userID string) ([]Record, error)
	Create(ctx context.Context, record Record) error
	Update(ctx context.Context, record Record) error
}
