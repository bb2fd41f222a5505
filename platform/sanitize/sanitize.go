// Package sanitize normalizes user-provided text before it is stored.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
	entityReplacer  = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&", "&quot;", "\"", "&#39;", "'")
)

// StripHTML removes all HTML tags from a string.
// Entities are decoded and the result is stripped again to catch encoded tags.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = entityReplacer.Replace(result)
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text strips HTML and collapses runs of whitespace.
func Text(s string) string {
	return whitespaceRegex.ReplaceAllString(StripHTML(s), " ")
}

// Notes strips HTML but keeps line breaks, for multi-line free text.
func Notes(s string) string {
	return StripHTML(s)
}

// TextPtr is Text for optional fields. Blank input becomes nil.
func TextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	result := Text(*s)
	if result == "" {
		return nil
	}
	return &result
}

// Email lowercases and trims an address. Comparison in the store is case-insensitive.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
