// Package kba implements knowledge-based identity verification: the
// 2-of-4 field match against the roster plus the per-identifier attempt
// and lockout state machine.
package kba

import (
	"math"
	"strings"
	"time"

	"consentd/internal/roster"
)

// ProvidedFields is the partial record a caller supplies for
// verification. Empty strings mean "not supplied".
type ProvidedFields struct {
	SSNLast4    string `json:"ssn_last4,omitempty"`
	DateOfBirth string `json:"dob,omitempty"`
	Zip         string `json:"zip_code,omitempty"`
	Street      string `json:"street,omitempty"`
}

// Checked returns how many fields were supplied (0-4).
func (f ProvidedFields) Checked() int {
	count := 0
	for _, v := range []string{f.SSNLast4, f.DateOfBirth, f.Zip, f.Street} {
		if v != "" {
			count++
		}
	}
	return count
}

// MatchesAgainst counts supplied fields that equal the stored values.
// The street line compares case-insensitively; everything else is exact.
func (f ProvidedFields) MatchesAgainst(person *roster.Person) int {
	matches := 0
	if f.SSNLast4 != "" && f.SSNLast4 == person.SSNLast4 {
		matches++
	}
	if f.DateOfBirth != "" && f.DateOfBirth == person.DateOfBirth {
		matches++
	}
	if f.Zip != "" && f.Zip == person.Address.Zip {
		matches++
	}
	if f.Street != "" && strings.EqualFold(strings.TrimSpace(f.Street), strings.TrimSpace(person.Address.Street)) {
		matches++
	}
	return matches
}

// Attempt tracks verification failures for one claimed identifier. The
// record is keyed purely by the claimed identifier string, whether or not
// a person exists, to prevent enumeration abuse.
type Attempt struct {
	Identifier    string     `json:"identifier"`
	Count         int        `json:"count"`
	LockedUntil   *time.Time `json:"locked_until,omitempty"`
	LastAttemptAt time.Time  `json:"last_attempt_at"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	LastOrigin    string     `json:"last_origin,omitempty"`
}

// IsLockedAt reports whether the identifier is inside a lockout window.
func (a *Attempt) IsLockedAt(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// LockoutExpiredAt reports whether a lockout was set but has elapsed.
// Expired lockouts are cleared lazily on the next read.
func (a *Attempt) LockoutExpiredAt(now time.Time) bool {
	return a.LockedUntil != nil && !now.Before(*a.LockedUntil)
}

// ClearLockout resets the counter and removes the lockout.
func (a *Attempt) ClearLockout() {
	a.Count = 0
	a.LockedUntil = nil
}

// RemainingLockoutMinutes returns the minutes left in the window, rounded
// up so callers never see "0 minutes" while still locked.
func (a *Attempt) RemainingLockoutMinutes(now time.Time) int {
	if !a.IsLockedAt(now) {
		return 0
	}
	return int(math.Ceil(a.LockedUntil.Sub(now).Minutes()))
}

// Status is the outcome classification of a verification call.
type Status string

const (
	StatusVerified           Status = "verified"
	StatusFailed             Status = "failed"
	StatusNotFound           Status = "not_found"
	StatusLocked             Status = "locked"
	StatusInsufficientFields Status = "insufficient_fields"
)

// Profile is the non-sensitive view of a person returned on success.
// Knowledge fields never appear here.
type Profile struct {
	MedicaidID string `json:"medicaid_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// Result is the outcome of a verification call.
type Result struct {
	Status            Status     `json:"status"`
	Message           string     `json:"message"`
	RemainingAttempts int        `json:"remaining_attempts,omitempty"`
	RemainingMinutes  int        `json:"remaining_minutes,omitempty"`
	LockedUntil       *time.Time `json:"locked_until,omitempty"`
	Person            *Profile   `json:"person,omitempty"`
	FieldsChecked     int        `json:"-"`
	Matches           int        `json:"-"`
}

// Verified reports whether the outcome proved the identity.
func (r Result) Verified() bool { return r.Status == StatusVerified }

// LockoutStatus is the read-only pre-flight view of attempt state.
type LockoutStatus struct {
	Locked           bool       `json:"locked"`
	Attempts         int        `json:"attempts,omitempty"`
	RemainingMinutes int        `json:"remaining_minutes,omitempty"`
	LockedUntil      *time.Time `json:"locked_until,omitempty"`
}

// LookupResult is the minimal profile for UI confirmation before the real
// verification call. No sensitive fields.
type LookupResult struct {
	MedicaidID  string `json:"medicaid_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	IsSynthetic bool   `json:"is_synthetic"`
}
