package ingest

import (
	"regexp"
	"strings"
)

var (
	// disallowed strips characters outside a conservative allow-list:
	// word characters, whitespace and basic punctuation.
	disallowed = regexp.MustCompile(`[^\w\s.,;:!?()'"%&+/-]`)

	// whitespace collapses runs of whitespace (including embedded line
	// breaks) to a single space.
	whitespace = regexp.MustCompile(`\s+`)
)

// Normalize flattens a document's combined text into a single clean line:
// disallowed characters are removed, consecutive whitespace collapses to
// one space, and surrounding whitespace is trimmed.
func Normalize(text string) string {
	text = disallowed.ReplaceAllString(text, "")
	text = whitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
