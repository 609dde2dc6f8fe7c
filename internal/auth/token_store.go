package auth

import (
	"context"
	"time"
)

// TokenStore persists pending verification tokens, keyed by digest.
// Implementations expire entries on their own schedule; the service still
// checks ExpiresAt so the two never disagree in the caller's favor.
type TokenStore interface {
	Save(ctx context.Context, token VerificationToken) error
	Get(ctx context.Context, digest string) (*VerificationToken, error)
	// MarkUsed stamps the redemption time. Returns the updated record, or
	// nil when the digest is unknown.
	MarkUsed(ctx context.Context, digest string, at time.Time) (*VerificationToken, error)
}
