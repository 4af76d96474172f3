package crawler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"souqsearch/internal/marketplace"
	"souqsearch/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAdapter struct {
	name     string
	listings []types.RawListing
	errs     []error
	panics   bool
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) Crawl(ctx context.Context, query string, opts types.CrawlOptions) ([]types.RawListing, []error) {
	if a.panics {
		panic("selector blew up")
	}
	return a.listings, a.errs
}

func TestCrawlAllMergesAdapters(t *testing.T) {
	o := NewOrchestrator([]marketplace.Adapter{
		&fakeAdapter{name: "Amazon", listings: []types.RawListing{
			{Title: "phone a", ProductLink: "https://amazon.test/a"},
			{Title: "phone b", ProductLink: "https://amazon.test/b"},
		}},
		&fakeAdapter{name: "Jumia", listings: []types.RawListing{
			{Title: "phone c", ProductLink: "https://jumia.test/c"},
		}},
	}, testLogger())

	result := o.CrawlAll(context.Background(), "phone", types.CrawlOptions{})
	if len(result.Listings) != 3 {
		t.Fatalf("listings = %d, want 3", len(result.Listings))
	}
	if len(result.Errors) != 0 {
		t.Fatalf("errors = %v", result.Errors)
	}

	var titles []string
	for _, l := range result.Listings {
		titles = append(titles, l.Title)
	}
	sort.Strings(titles)
	want := []string{"phone a", "phone b", "phone c"}
	for i := range want {
		if titles[i] != want[i] {
			t.Fatalf("titles = %v, want %v", titles, want)
		}
	}
}

func TestCrawlAllIsolatesPanickingAdapter(t *testing.T) {
	o := NewOrchestrator([]marketplace.Adapter{
		&fakeAdapter{name: "Jumia", panics: true},
		&fakeAdapter{name: "Noon", listings: []types.RawListing{
			{Title: "phone", ProductLink: "https://noon.test/p"},
		}},
	}, testLogger())

	done := make(chan Result, 1)
	go func() { done <- o.CrawlAll(context.Background(), "phone", types.CrawlOptions{}) }()

	var result Result
	select {
	case result = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("CrawlAll hung after adapter panic")
	}

	if len(result.Listings) != 1 || result.Listings[0].Title != "phone" {
		t.Fatalf("surviving adapter output lost: %+v", result.Listings)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("errors = %v, want the recovered panic", result.Errors)
	}
}

func TestCrawlAllCollectsPartialErrors(t *testing.T) {
	o := NewOrchestrator([]marketplace.Adapter{
		&fakeAdapter{
			name:     "Amazon",
			listings: []types.RawListing{{Title: "a", ProductLink: "https://amazon.test/a"}},
			errs:     []error{errors.New("page 2: http 503")},
		},
	}, testLogger())

	result := o.CrawlAll(context.Background(), "phone", types.CrawlOptions{})
	if len(result.Listings) != 1 {
		t.Fatalf("listings = %d", len(result.Listings))
	}
	if len(result.Errors) != 1 {
		t.Fatalf("errors = %d, want 1", len(result.Errors))
	}
}

func TestCrawlAllDeduplicatesByCanonicalLink(t *testing.T) {
	o := NewOrchestrator([]marketplace.Adapter{
		&fakeAdapter{name: "Amazon", listings: []types.RawListing{
			{Title: "phone", ProductLink: "https://Amazon.test/dp/B01?tag=affiliate"},
			{Title: "phone again", ProductLink: "https://amazon.test/dp/B01#reviews"},
			{Title: "no link one"},
			{Title: "no link two"},
		}},
	}, testLogger())

	result := o.CrawlAll(context.Background(), "phone", types.CrawlOptions{})
	// Duplicate link collapses; linkless listings always survive.
	if len(result.Listings) != 3 {
		t.Fatalf("listings = %d, want 3", len(result.Listings))
	}
}

func TestCanonicalLink(t *testing.T) {
	cases := []struct{ a, b string }{
		{"https://Amazon.test/dp/B01?tag=x", "https://amazon.test/dp/B01"},
		{"HTTPS://jumia.test/item-1.html#top", "https://jumia.test/item-1.html"},
	}
	for _, tc := range cases {
		if canonicalLink(tc.a) != canonicalLink(tc.b) {
			t.Errorf("canonicalLink(%q) != canonicalLink(%q)", tc.a, tc.b)
		}
	}
	if canonicalLink("") != "" {
		t.Error("empty link must stay empty")
	}
	if canonicalLink("not a url") != "not a url" {
		t.Error("unparseable link must pass through")
	}
}

func TestHostLimiterEnforcesDelay(t *testing.T) {
	limiter := NewHostLimiter(50*time.Millisecond, RateLimiterSettings{})

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(context.Background(), "example.com"); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Fatalf("three waits finished in %v, delay not enforced", elapsed)
	}
}

func TestHostLimiterTracksHostsIndependently(t *testing.T) {
	limiter := NewHostLimiter(200*time.Millisecond, RateLimiterSettings{})

	if err := limiter.Wait(context.Background(), "a.example.com"); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	start := time.Now()
	if err := limiter.Wait(context.Background(), "b.example.com"); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("different host delayed %v", elapsed)
	}
}

func TestHostLimiterHonorsContextCancellation(t *testing.T) {
	limiter := NewHostLimiter(time.Minute, RateLimiterSettings{})
	if err := limiter.Wait(context.Background(), "example.com"); err != nil {
		t.Fatalf("first Wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, "example.com"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait = %v, want deadline exceeded", err)
	}
}

func TestHostLimiterNoopWithoutConfig(t *testing.T) {
	limiter := NewHostLimiter(0, RateLimiterSettings{})
	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := limiter.Wait(context.Background(), "example.com"); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("unconfigured limiter blocked for %v", elapsed)
	}
}
