// Package sanitize guards report-derived strings before they are compared,
// grouped, interpolated into URL paths, or handed to the browser. Report
// content originates from whatever client triggered the CSP violation and
// is never trusted.
package sanitize

import "strings"

var inputStripper = strings.NewReplacer(
	"<", "",
	">", "",
	"'", "",
	`"`, "",
)

var htmlEscaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// Input removes < > ' " from s and returns the rest unchanged. It is total
// and idempotent. Used before interpolating user-influenced values (report
// id, search query) into URLs or comparisons.
func Input(s string) string {
	return inputStripper.Replace(s)
}

// HTML escapes < > " ' to their entity forms for text rendering.
// & is intentionally left alone; callers apply it exactly once, just before
// a value is rendered.
func HTML(s string) string {
	return htmlEscaper.Replace(s)
}
