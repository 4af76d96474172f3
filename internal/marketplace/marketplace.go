// Package marketplace holds the per-source adapters that translate one
// marketplace's response format (HTML markup or JSON API) into the common
// listing schema. Adapters never fail hard: network and parse problems
// degrade to partial results plus a list of observed errors.
package marketplace

import (
	"context"
	"log/slog"
	"strings"

	"souqsearch/internal/fetcher"
	"souqsearch/pkg/types"
)

// Adapter fetches and parses one marketplace into RawListings.
type Adapter interface {
	Name() string
	Crawl(ctx context.Context, query string, opts types.CrawlOptions) ([]types.RawListing, []error)
}

// RobotsGate decides whether a page fetch is permitted. A nil gate permits
// everything.
type RobotsGate interface {
	AllowedURL(ctx context.Context, rawURL string) bool
}

// Deps carries the shared collaborators injected into every adapter.
type Deps struct {
	Fetcher fetcher.PageFetcher
	Robots  RobotsGate
	Logger  *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d Deps) allowed(ctx context.Context, rawURL string) bool {
	if d.Robots == nil {
		return true
	}
	return d.Robots.AllowedURL(ctx, rawURL)
}

// cleanText collapses internal whitespace and trims the result.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// absoluteURL resolves scheme-relative and root-relative hrefs against the
// marketplace base URL.
func absoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "//"):
		return "https:" + href
	case strings.HasPrefix(href, "/"):
		return strings.TrimSuffix(base, "/") + href
	default:
		return href
	}
}

// capListings truncates to the per-adapter product cap when one is set.
func capListings(listings []types.RawListing, max int) []types.RawListing {
	if max > 0 && len(listings) > max {
		return listings[:max]
	}
	return listings
}
