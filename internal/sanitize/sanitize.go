// Package sanitize cleans text arriving from outside: feed titles and chat
// message bodies.
package sanitize

import (
	"html"
	"regexp"
	"strings"
)

var (
	// tagRegex matches HTML/XML tags. Feed titles routinely carry markup
	// like <b> or CDATA leftovers.
	tagRegex = regexp.MustCompile(`(?s)<[^>]*>`)

	// spaceRegex collapses runs of whitespace, newlines included.
	spaceRegex = regexp.MustCompile(`\s+`)
)

// StripTags removes all markup tags from text.
func StripTags(text string) string {
	return tagRegex.ReplaceAllString(text, "")
}

// Title cleans one feed title: markup stripped, entities decoded,
// whitespace collapsed. This is the form that gets stored and embedded.
func Title(text string) string {
	text = StripTags(text)
	text = html.UnescapeString(text)
	return strings.TrimSpace(spaceRegex.ReplaceAllString(text, " "))
}

// Body cleans one chat message body. Markup is stripped but entity forms
// are kept as typed.
func Body(text string) string {
	text = StripTags(text)
	return strings.TrimSpace(spaceRegex.ReplaceAllString(text, " "))
}

// IsEmpty reports whether text carries no content once cleaned.
func IsEmpty(text string) bool {
	return Title(text) == ""
}
