// Package provider maintains the directory of data-sharing providers.
// Read-mostly: the consent registry joins against the active set.
package provider

import (
	"time"

	dErrors "consentd/pkg/domain-errors"
)

// Type categorizes a provider.
type Type string

const (
	TypeHealthcare       Type = "healthcare"
	TypeBehavioralHealth Type = "behavioral_health"
	TypeSocialCare       Type = "social_care"
)

// IsValid checks the type is one of the supported enum values.
func (t Type) IsValid() bool {
	switch t {
	case TypeHealthcare, TypeBehavioralHealth, TypeSocialCare:
		return true
	}
	return false
}

// Provider is one directory record.
type Provider struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Type      Type      `json:"type"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New validates a provider record at construction.
func New(id, name, address string, providerType Type) (Provider, error) {
	if id == "" {
		return Provider{}, dErrors.New(dErrors.CodeInvariantViolation, "provider id cannot be empty")
	}
	if name == "" {
		return Provider{}, dErrors.New(dErrors.CodeInvariantViolation, "provider name cannot be empty")
	}
	if !providerType.IsValid() {
		return Provider{}, dErrors.New(dErrors.CodeInvariantViolation, "invalid provider type")
	}
	now := time.Now()
	return Provider{
		ID:        id,
		Name:      name,
		Address:   address,
		Type:      providerType,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
