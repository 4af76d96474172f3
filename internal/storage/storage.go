// Package storage persists collected listings. Sinks receive normalized
// listings and write the tabular schema shared by every marketplace; the
// ranking scores are an in-memory concern and are never persisted.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Sink persists one batch of normalized listings.
type Sink interface {
	SaveListings(ctx context.Context, listings []Record) error
}

// Record is the persisted row shape. Price and rating are the normalized
// numeric values; everything else is carried through from the crawl.
type Record struct {
	Title       string
	Price       float64
	Rating      float64
	ImageURL    string
	ProductLink string
	Description string
	SearchQuery string
	Website     string
}

// Pipeline fans a batch out to every configured sink. A failing sink does
// not stop the others; errors are joined.
type Pipeline struct {
	sinks []Sink
}

// NewPipeline constructs a pipeline over the non-nil sinks. Returns nil
// when nothing is configured, which callers treat as "no persistence".
func NewPipeline(sinks ...Sink) *Pipeline {
	var active []Sink
	for _, s := range sinks {
		if s != nil {
			active = append(active, s)
		}
	}
	if len(active) == 0 {
		return nil
	}
	return &Pipeline{sinks: active}
}

// Persist writes the batch to every sink.
func (p *Pipeline) Persist(ctx context.Context, listings []Record) error {
	if p == nil || len(listings) == 0 {
		return nil
	}
	var err error
	for _, sink := range p.sinks {
		if serr := sink.SaveListings(ctx, listings); serr != nil {
			err = errors.Join(err, fmt.Errorf("sink %T: %w", sink, serr))
		}
	}
	return err
}
