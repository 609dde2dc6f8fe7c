package audit

import (
	"time"

	dErrors "consentd/pkg/domain-errors"
)

// Category classifies audit entries by their primary purpose. This enables
// different retention policies and downstream routing.
type Category string

const (
	// CategoryCompliance covers entries with legal/regulatory significance:
	// consent changes, verified identity proofing. Long retention.
	CategoryCompliance Category = "compliance"
	// CategorySecurity covers entries that feed security monitoring:
	// failed verifications, lockouts, logins.
	CategorySecurity Category = "security"
	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations Category = "operations"
)

// Action is the enumerated verb recorded with every entry.
type Action string

const (
	ActionKBAVerified     Action = "kba_verified"
	ActionKBAFailed       Action = "kba_failed"
	ActionConsentGranted  Action = "consent_granted"
	ActionConsentRevoked  Action = "consent_revoked"
	ActionConsentUpdated  Action = "consent_updated"
	ActionLogin           Action = "login"
	ActionLogout          Action = "logout"
	ActionUserCreated     Action = "user_created"
	ActionProviderCreated Action = "provider_created"
	ActionProviderUpdated Action = "provider_updated"
)

// actionCategories maps each action to its category.
var actionCategories = map[Action]Category{
	ActionConsentGranted:  CategoryCompliance,
	ActionConsentRevoked:  CategoryCompliance,
	ActionConsentUpdated:  CategoryCompliance,
	ActionKBAVerified:     CategoryCompliance,
	ActionKBAFailed:       CategorySecurity,
	ActionLogin:           CategorySecurity,
	ActionLogout:          CategoryOperations,
	ActionUserCreated:     CategoryCompliance,
	ActionProviderCreated: CategoryOperations,
	ActionProviderUpdated: CategoryOperations,
}

// Category returns the category for this action. Unknown actions default
// to operations.
func (a Action) Category() Category {
	if cat, ok := actionCategories[a]; ok {
		return cat
	}
	return CategoryOperations
}

// IsValid checks the action is one of the enumerated verbs.
func (a Action) IsValid() bool {
	_, ok := actionCategories[a]
	return ok
}

// Entry is an immutable audit record. Once appended it is never mutated
// or deleted; no update operation exists anywhere in this package.
type Entry struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Action     Action         `json:"action"`
	ProviderID string         `json:"provider_id,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Origin     string         `json:"origin,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewEntry validates the required fields of an audit entry. ID and
// timestamp are stamped by the recorder.
func NewEntry(userID string, action Action) (Entry, error) {
	if userID == "" {
		return Entry{}, dErrors.New(dErrors.CodeInvariantViolation, "audit entry requires a user id")
	}
	if !action.IsValid() {
		return Entry{}, dErrors.New(dErrors.CodeInvariantViolation, "unknown audit action")
	}
	return Entry{UserID: userID, Action: action}, nil
}
