// Package email derives display names and stable user IDs from email
// addresses. Roster records carry real names; these helpers cover
// addresses with no usable name on file.
package email

import (
	"strings"
	"unicode"
)

// localPart strips the domain from an address. Addresses without an @
// pass through whole.
func localPart(addr string) string {
	if at := strings.IndexByte(addr, '@'); at > 0 {
		return addr[:at]
	}
	return addr
}

func isSeparator(r rune) bool {
	return r == '.' || r == '_' || r == '-' || r == '+'
}

// DeriveNameFromEmail produces a first/last display name from the local
// part of an address. "jordan.rivers@x" becomes ("Jordan", "Rivers");
// single-word local parts get "User" as the last name.
func DeriveNameFromEmail(addr string) (string, string) {
	parts := strings.FieldsFunc(localPart(addr), isSeparator)
	if len(parts) == 0 {
		return "User", "User"
	}

	first := capitalize(parts[0])
	last := "User"
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}
	return first, last
}

// DeriveUserID builds a stable opaque user id from an email address.
func DeriveUserID(addr string) string {
	return "user-" + strings.ToLower(localPart(addr))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
