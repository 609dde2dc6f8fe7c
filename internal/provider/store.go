package provider

import "context"

// Store persists provider records.
type Store interface {
	Get(ctx context.Context, id string) (*Provider, error)
	// ListActive returns only active providers; inactive providers are
	// invisible to the consent surface.
	ListActive(ctx context.Context) ([]Provider, error)
	Put(ctx context.Context, provider Provider) error
}
