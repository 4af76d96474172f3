// Package pipeline wires the full search flow: query understanding, the
// concurrent multi-marketplace crawl, listing normalization, persistence,
// and ranking.
package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"souqsearch/internal/crawler"
	"souqsearch/internal/normalize"
	"souqsearch/internal/query"
	"souqsearch/internal/rank"
	"souqsearch/internal/storage"
	"souqsearch/internal/textnorm"
	"souqsearch/pkg/types"
)

// ErrEmptyQuery is returned when the query normalizes to nothing, for
// example pure punctuation or only stopwords.
var ErrEmptyQuery = errors.New("query is empty after normalization")

// Pipeline runs searches end to end. Store may be nil when no persistence
// is configured.
type Pipeline struct {
	orchestrator *crawler.Orchestrator
	ranker       *rank.Engine
	store        *storage.Pipeline
	logger       *slog.Logger
}

func New(orchestrator *crawler.Orchestrator, ranker *rank.Engine, store *storage.Pipeline, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		orchestrator: orchestrator,
		ranker:       ranker,
		store:        store,
		logger:       logger,
	}
}

// Outcome reports one search run. CrawlErrors and a non-empty Ranked can
// coexist: adapters degrade to partial results.
type Outcome struct {
	Attributes  query.Attributes
	Collected   int
	Dropped     []normalize.Drop
	Ranked      []types.RankedListing
	CrawlErrors []error
}

// Search executes one query end to end.
func (p *Pipeline) Search(ctx context.Context, rawQuery string, opts types.CrawlOptions, topN int) (*Outcome, error) {
	tokens, lang := textnorm.Normalize(rawQuery)
	if len(tokens) == 0 {
		return nil, ErrEmptyQuery
	}

	attrs := query.Extract(tokens, rawQuery, lang)
	p.logger.Info("query understood",
		"lang", attrs.Lang, "product", attrs.Product, "brand", attrs.Brand,
		"color", attrs.Color, "quality", attrs.QualityLevel,
		"price_min", attrs.PriceRange.Min, "price_max", attrs.PriceRange.Max)

	crawled := p.orchestrator.CrawlAll(ctx, rawQuery, opts)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	normalized := normalize.Listings(crawled.Listings, p.logger)
	p.logger.Info("listings normalized",
		"collected", len(crawled.Listings), "kept", len(normalized.Kept), "dropped", len(normalized.Dropped))

	if err := p.persist(ctx, normalized.Kept); err != nil {
		p.logger.Error("persist failed", "error", err)
		crawled.Errors = append(crawled.Errors, err)
	}

	ranked := p.ranker.Rank(normalized.Kept, attrs, topN)

	return &Outcome{
		Attributes:  attrs,
		Collected:   len(crawled.Listings),
		Dropped:     normalized.Dropped,
		Ranked:      ranked,
		CrawlErrors: crawled.Errors,
	}, nil
}

func (p *Pipeline) persist(ctx context.Context, listings []types.NormalizedListing) error {
	if p.store == nil || len(listings) == 0 {
		return nil
	}
	records := make([]storage.Record, 0, len(listings))
	for _, l := range listings {
		records = append(records, storage.Record{
			Title:       l.Title,
			Price:       l.Price,
			Rating:      l.RatingNumeric,
			ImageURL:    l.ImageURL,
			ProductLink: l.ProductLink,
			Description: l.Description,
			SearchQuery: l.SearchQuery,
			Website:     l.Marketplace,
		})
	}
	return p.store.Persist(ctx, records)
}
