// Package refrewrite maintains the inline entry-reference markup embedded
// in entry bodies. Bodies reference other entries with
//
//	<elog-reference id="ENTRY_ID">...</elog-reference>
//
// and this package is the only code that parses or rewrites that markup.
package refrewrite

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TagName is the element name of the reference markup.
const TagName = "elog-reference"

// Rewriter is a pure string-to-string transform over entry bodies. It is
// an interface so the HTML-fragment dependency stays swappable.
type Rewriter interface {
	// RewriteTag replaces every reference to oldID with newID. Running it
	// twice with the same pair is a no-op; unrelated markup is untouched.
	RewriteTag(html, oldID, newID string) (string, error)

	// ExtractIDs returns the ids referenced by the body markup, in
	// document order, duplicates removed.
	ExtractIDs(html string) ([]string, error)
}

type goqueryRewriter struct{}

// New creates the goquery-backed rewriter.
func New() Rewriter {
	return &goqueryRewriter{}
}

// RewriteTag replaces the id attribute of every reference element whose id
// equals oldID (case-insensitive) with newID, then re-serializes the
// fragment body.
func (g *goqueryRewriter) RewriteTag(html, oldID, newID string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse body fragment: %w", err)
	}

	doc.Find(TagName).Each(func(_ int, sel *goquery.Selection) {
		id, ok := sel.Attr("id")
		if ok && strings.EqualFold(id, oldID) {
			sel.SetAttr("id", newID)
		}
	})

	out, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("serialize body fragment: %w", err)
	}
	return out, nil
}

// ExtractIDs collects the id attributes of every reference element.
func (g *goqueryRewriter) ExtractIDs(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse body fragment: %w", err)
	}

	var ids []string
	seen := make(map[string]bool)
	doc.Find(TagName).Each(func(_ int, sel *goquery.Selection) {
		id, ok := sel.Attr("id")
		if ok && id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	})
	return ids, nil
}
