package marketplace

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func parseDoc(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("parse markup: %v", err)
	}
	return doc
}

func TestFirstTextFallsThroughToLaterSelector(t *testing.T) {
	doc := parseDoc(t, `<div><span class="a"></span><span class="b">  hello   world </span></div>`)
	got := firstText(doc.Selection, ".a", ".b")
	if got != "hello world" {
		t.Fatalf("firstText = %q", got)
	}
}

func TestFirstTextSkipsEmptyMatches(t *testing.T) {
	doc := parseDoc(t, `<div><p class="x">   </p><p class="y">value</p></div>`)
	if got := firstText(doc.Selection, ".x", ".y"); got != "value" {
		t.Fatalf("firstText = %q", got)
	}
	if got := firstText(doc.Selection, ".missing"); got != "" {
		t.Fatalf("no match must be empty, got %q", got)
	}
}

func TestFirstAttrTriesAttributesInOrder(t *testing.T) {
	doc := parseDoc(t, `<img class="lazy" src="" data-src="https://cdn/x.jpg">`)
	got := firstAttr(doc.Selection, []string{"img.lazy"}, "src", "data-src")
	if got != "https://cdn/x.jpg" {
		t.Fatalf("firstAttr = %q", got)
	}
}

func TestFirstItemsPicksFirstMatchingSelector(t *testing.T) {
	doc := parseDoc(t, `<article class="product">1</article><article class="product">2</article>`)
	items := firstItems(doc, "article.prd", "article[class*='product']")
	if items.Length() != 2 {
		t.Fatalf("items = %d, want 2", items.Length())
	}
}

func TestStringAlias(t *testing.T) {
	obj := map[string]any{
		"title":  "",
		"name":   "  Galaxy A54 ",
		"rating": 4.3,
		"count":  float64(12),
	}
	if got := stringAlias(obj, "title", "name"); got != "Galaxy A54" {
		t.Fatalf("stringAlias = %q", got)
	}
	if got := stringAlias(obj, "rating"); got != "4.3" {
		t.Fatalf("float alias = %q", got)
	}
	if got := stringAlias(obj, "count"); got != "12" {
		t.Fatalf("integral float alias = %q", got)
	}
	if got := stringAlias(obj, "missing", "also_missing"); got != "" {
		t.Fatalf("missing keys must be empty, got %q", got)
	}
	if got := stringAlias(obj, "nested"); got != "" {
		t.Fatalf("non-scalar must be empty, got %q", got)
	}
}
