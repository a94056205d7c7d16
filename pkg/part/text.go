package part

import (
	"regexp"
	"strings"
)

var reportedPrefixPattern = regexp.MustCompile(`^\s*(?:[\w\- ]+\s+)?(?:tool|agent)\s+reported:?\s*`)

// SanitizeText strips the "<name> tool reported:" / "agent reported:" prefix
// some backends prepend to relayed content.
func SanitizeText(text string) string {
	return reportedPrefixPattern.ReplaceAllString(text, "")
}

// ProcessThoughtText removes planning markers from a thought snapshot and
// sanitizes the remainder.
func ProcessThoughtText(text string) string {
	text = strings.Replace(text, "/*PLANNING*/", "", 1)
	text = strings.Replace(text, "/*ACTION*/", "", 1)
	return SanitizeText(text)
}
