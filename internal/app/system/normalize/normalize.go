// Package normalize holds the canonical-form helpers applied to user
// input before it is stored or compared. Keeping them in one place
// means every store and handler normalizes the same way.
package normalize

import "strings"

// Email lowercases and trims an email address. Emails are stored and
// queried in this form only.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace but preserves case; display names
// keep the casing the user typed.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Username lowercases and trims a login username.
func Username(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Department trims surrounding whitespace. Case is preserved for display;
// case-insensitive comparison happens at classification time.
func Department(s string) string {
	return strings.TrimSpace(s)
}
