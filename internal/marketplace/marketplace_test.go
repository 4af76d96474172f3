package marketplace

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"souqsearch/pkg/types"
)

// fakeFetcher serves canned bodies keyed by URL and records every request.
type fakeFetcher struct {
	mu       sync.Mutex
	pages    map[string][]byte
	requests []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: make(map[string][]byte)}
}

func (f *fakeFetcher) set(url string, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[url] = []byte(body)
}

func (f *fakeFetcher) FetchPage(ctx context.Context, rawURL string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, rawURL)
	body, ok := f.pages[rawURL]
	if !ok {
		return nil, fmt.Errorf("no page for %s", rawURL)
	}
	return body, nil
}

func (f *fakeFetcher) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type denyAllGate struct{}

func (denyAllGate) AllowedURL(ctx context.Context, rawURL string) bool { return false }

func testDeps(f *fakeFetcher) Deps {
	return Deps{
		Fetcher: f,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func crawlOne(t *testing.T, a Adapter, query string, opts types.CrawlOptions) []types.RawListing {
	t.Helper()
	listings, errs := a.Crawl(context.Background(), query, opts)
	for _, err := range errs {
		t.Logf("crawl error: %v", err)
	}
	return listings
}

func TestCleanText(t *testing.T) {
	got := cleanText("  Samsung\n\tGalaxy   A54  ")
	if got != "Samsung Galaxy A54" {
		t.Fatalf("cleanText = %q", got)
	}
}

func TestAbsoluteURL(t *testing.T) {
	cases := []struct {
		base, href, want string
	}{
		{"https://example.com", "/item/1", "https://example.com/item/1"},
		{"https://example.com/", "/item/1", "https://example.com/item/1"},
		{"https://example.com", "//cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"https://example.com", "https://other.com/x", "https://other.com/x"},
		{"https://example.com", "  ", ""},
	}
	for _, tc := range cases {
		if got := absoluteURL(tc.base, tc.href); got != tc.want {
			t.Errorf("absoluteURL(%q, %q) = %q, want %q", tc.base, tc.href, got, tc.want)
		}
	}
}

func TestCapListings(t *testing.T) {
	in := []types.RawListing{{Title: "a"}, {Title: "b"}, {Title: "c"}}
	if got := capListings(in, 2); len(got) != 2 {
		t.Fatalf("cap 2: got %d", len(got))
	}
	if got := capListings(in, 0); len(got) != 3 {
		t.Fatalf("cap 0 must keep all: got %d", len(got))
	}
	if got := capListings(in, 10); len(got) != 3 {
		t.Fatalf("cap above length must keep all: got %d", len(got))
	}
}
