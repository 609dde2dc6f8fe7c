// Package roster holds the person ground truth used for knowledge-based
// verification. Records are pre-loaded and immutable from this system's
// perspective.
package roster

import (
	"time"

	dErrors "consentd/pkg/domain-errors"
)

// Address is the postal address on file for a person.
type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// Person is one roster record. MedicaidID is the globally unique lookup
// key. SSNLast4, DateOfBirth, and the address fields are the knowledge
// facts compared during verification and must never leave this package
// through the lookup path.
type Person struct {
	MedicaidID  string    `json:"medicaid_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	SSNLast4    string    `json:"ssn_last_4"`
	DateOfBirth string    `json:"date_of_birth"` // YYYY-MM-DD
	Address     Address   `json:"address"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Active      bool      `json:"active"`
	IsSynthetic bool      `json:"is_synthetic"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewPerson validates the invariants a roster record must satisfy before
// it is stored.
func NewPerson(medicaidID, firstName, lastName, ssnLast4, dob string) (Person, error) {
	if medicaidID == "" {
		return Person{}, dErrors.New(dErrors.CodeInvariantViolation, "medicaid id cannot be empty")
	}
	if len(ssnLast4) != 4 {
		return Person{}, dErrors.New(dErrors.CodeInvariantViolation, "ssn last 4 must be exactly 4 digits")
	}
	for _, r := range ssnLast4 {
		if r < '0' || r > '9' {
			return Person{}, dErrors.New(dErrors.CodeInvariantViolation, "ssn last 4 must be numeric")
		}
	}
	now := time.Now()
	return Person{
		MedicaidID:  medicaidID,
		FirstName:   firstName,
		LastName:    lastName,
		SSNLast4:    ssnLast4,
		DateOfBirth: dob,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
