package types

// RawListing is one product entry exactly as an adapter extracted it from a
// marketplace response. Adapters create it, tag it with their own identity,
// and never touch it again.
type RawListing struct {
	Title       string
	RawPrice    string
	RawRating   string
	ImageURL    string
	ProductLink string
	Description string
	Marketplace string
	SearchQuery string
}

// NormalizedListing is a RawListing whose price and rating survived cleaning.
// Price is in currency major units and always positive; RatingNumeric is
// clamped to [0, 5].
type NormalizedListing struct {
	RawListing
	Price         float64
	RatingNumeric float64
}

// RankedListing carries the ranking engine's scores alongside the listing.
// The score fields exist only in memory; the persisted tabular schema never
// includes them.
type RankedListing struct {
	NormalizedListing
	RuleScore       float64
	SimilarityScore float64
	FinalScore      float64
}

// CrawlOptions bounds a single adapter crawl. Zero MaxProducts means no
// per-adapter product cap.
type CrawlOptions struct {
	Pages             int
	MaxProducts       int
	Detailed          bool
	DetailConcurrency int
}
