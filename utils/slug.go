package utils

import (
	"regexp"
	"strings"
)

var (
	slugSeparators = regexp.MustCompile(`[\s_]+`)
	slugInvalid    = regexp.MustCompile(`[^a-z0-9-]+`)
	slugHyphens    = regexp.MustCompile(`-{2,}`)
)

// Slugify lower-cases s, turns whitespace into hyphens and drops everything else that is not URL safe.
// The result may be empty.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugSeparators.ReplaceAllString(s, "-")
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
