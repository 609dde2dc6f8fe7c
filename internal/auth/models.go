// Package auth implements the verification-link login flow: a short-lived
// single-use token is mailed to the person on file, and redeeming it
// yields a bearer token for the consent portal.
package auth

import "time"

// VerificationToken is the stored side of a pending link. The raw token
// never touches storage; records are keyed by its SHA-256 digest.
type VerificationToken struct {
	Digest     string     `json:"digest"`
	UserID     string     `json:"user_id"`
	MedicaidID string     `json:"medicaid_id"`
	Email      string     `json:"email"`
	ExpiresAt  time.Time  `json:"expires_at"`
	UsedAt     *time.Time `json:"used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ExpiredAt reports whether the token is past its lifetime.
func (t VerificationToken) ExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Used reports whether the token was already redeemed.
func (t VerificationToken) Used() bool {
	return t.UsedAt != nil
}

// Session is the result of redeeming a verification token.
type Session struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	UserID      string `json:"user_id"`
	MedicaidID  string `json:"medicaid_id"`
	Email       string `json:"email"`
}
