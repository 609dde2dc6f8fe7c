// Package consent maintains the per-(user, provider) data-sharing
// registry. The jurisdiction is opt-out: a pair with no stored record is
// treated as consented by default, so records exist only once a user has
// touched a provider.
package consent

import (
	"time"

	dErrors "consentd/pkg/domain-errors"
)

// DataType tags the categories of data a consent covers. An empty list
// means all categories.
type DataType string

const (
	DataTypeMedicalRecords       DataType = "medical_records"
	DataTypeLabResults           DataType = "lab_results"
	DataTypePrescriptions        DataType = "prescriptions"
	DataTypeBehavioralHealth     DataType = "behavioral_health"
	DataTypeSubstanceUseDisorder DataType = "substance_use_disorder"
	DataTypeSocialServices       DataType = "social_services"
)

var validDataTypes = map[DataType]struct{}{
	DataTypeMedicalRecords:       {},
	DataTypeLabResults:           {},
	DataTypePrescriptions:        {},
	DataTypeBehavioralHealth:     {},
	DataTypeSubstanceUseDisorder: {},
	DataTypeSocialServices:       {},
}

// IsValid checks the data type is one of the supported enum values.
func (d DataType) IsValid() bool {
	_, ok := validDataTypes[d]
	return ok
}

// Record is one stored consent decision for a (user, provider) pair.
// At most one record exists per pair; Toggle updates in place.
type Record struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	ProviderID string     `json:"provider_id"`
	Consented  bool       `json:"consented"`
	DataTypes  []DataType `json:"data_types,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Active reports whether the record grants consent at the given time. An
// expired grant behaves as revoked.
func (r Record) Active(now time.Time) bool {
	if !r.Consented {
		return false
	}
	if r.ExpiresAt != nil && !now.Before(*r.ExpiresAt) {
		return false
	}
	return true
}

// NewRecord validates a consent record at construction. ID and timestamps
// are stamped by the service.
func NewRecord(userID, providerID string, consented bool, dataTypes []DataType) (Record, error) {
	if userID == "" {
		return Record{}, dErrors.New(dErrors.CodeInvariantViolation, "consent record requires a user id")
	}
	if providerID == "" {
		return Record{}, dErrors.New(dErrors.CodeInvariantViolation, "consent record requires a provider id")
	}
	for _, dt := range dataTypes {
		if !dt.IsValid() {
			return Record{}, dErrors.New(dErrors.CodeInvalidInput, "unknown data type: "+string(dt))
		}
	}
	return Record{UserID: userID, ProviderID: providerID, Consented: consented, DataTypes: dataTypes}, nil
}

// ProviderConsent is the list view: every active provider joined with the
// user's effective consent state. ID, Name, and Address are the
// provider's, so the portal can render the list without a second lookup.
type ProviderConsent struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Address   string     `json:"address,omitempty"`
	Type      string     `json:"type"`
	Consented bool       `json:"consented"`
	IsDefault bool       `json:"is_default"`
	ConsentID string     `json:"consent_id,omitempty"`
	DataTypes []DataType `json:"data_types,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
