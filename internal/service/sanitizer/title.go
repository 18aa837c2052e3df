// Package sanitizer strips markup from user-supplied entry titles. Bodies
// are deliberately stored verbatim; only titles go through here.
package sanitizer

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TitleSanitizer removes all HTML from entry titles.
//
// Thread-safe for concurrent use.
type TitleSanitizer struct {
	policy *bluemonday.Policy
}

// NewTitleSanitizer creates a sanitizer with a strict policy: titles are
// plain text, so every element and attribute is stripped.
func NewTitleSanitizer() *TitleSanitizer {
	return &TitleSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize strips markup, decodes the entities the policy escaped, and
// trims surrounding whitespace.
func (s *TitleSanitizer) Sanitize(title string) string {
	clean := s.policy.Sanitize(title)
	return strings.TrimSpace(html.UnescapeString(clean))
}
