package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richText  = bluemonday.UGCPolicy()
	plainText = bluemonday.StrictPolicy()
)

// SanitizeHTML cleans rich text content to prevent XSS attacks.
func SanitizeHTML(input string) string {
	return richText.Sanitize(input)
}

// StripTags removes all markup and returns trimmed plain text.
func StripTags(input string) string {
	return strings.TrimSpace(html.UnescapeString(plainText.Sanitize(input)))
}

// Summarize returns at most max runes of plain text taken from content.
func Summarize(content string, max int) string {
	text := strings.Join(strings.Fields(StripTags(content)), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return strings.TrimSpace(string(runes[:max]))
}
