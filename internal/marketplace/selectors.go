package marketplace

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Selector-fallback helpers. Each field on a markup source is extracted by an
// ordered list of strategies; the first one yielding a non-empty value wins.
// This absorbs a marketplace changing its markup without a redesign.

// firstText returns the text of the first selector that matches a node with
// non-empty text.
func firstText(s *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		node := s.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if text := cleanText(node.Text()); text != "" {
			return text
		}
	}
	return ""
}

// firstAttr returns the first non-empty attribute value, trying every
// selector against every attribute name in order.
func firstAttr(s *goquery.Selection, selectors []string, attrs ...string) string {
	for _, sel := range selectors {
		node := s.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		for _, attr := range attrs {
			if v, ok := node.Attr(attr); ok {
				if v = strings.TrimSpace(v); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

// firstItems returns the matches of the first selector that yields at least
// one node. Used for locating result-item containers.
func firstItems(doc *goquery.Document, selectors ...string) *goquery.Selection {
	for _, sel := range selectors {
		items := doc.Find(sel)
		if items.Length() > 0 {
			return items
		}
	}
	return doc.Find(selectors[len(selectors)-1])
}

// JSON alias helpers: API sources name the same logical field differently
// between payload versions, so each field maps through an ordered alias list
// with the same first-non-empty policy.

// stringAlias returns the first alias key holding a non-empty scalar value.
func stringAlias(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := scalarString(obj[key]); s != "" {
			return s
		}
	}
	return ""
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
