// Package htmlsanitize scrubs user-supplied text before storage. Profile
// bios may carry simple formatting; everything else is stripped to plain
// text.
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// richPolicy allows basic formatting for long-form fields like bios.
	richPolicy = func() *bluemonday.Policy {
		p := bluemonday.UGCPolicy()
		p.AllowElements("u", "s", "mark")
		return p
	}()

	// strictPolicy strips all markup.
	strictPolicy = bluemonday.StrictPolicy()
)

// Sanitize keeps safe formatting and removes scripts, event handlers, and
// unsafe URLs.
func Sanitize(s string) string {
	return richPolicy.Sanitize(s)
}

// StripTags reduces s to plain text.
func StripTags(s string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(s))
}
