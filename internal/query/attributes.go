// Package query turns a free-text shopping query into a structured attribute
// record. Matching is dictionary-driven: ordered keyword tables for brand,
// category, color and quality, regex patterns for price phrases and technical
// features. The extractor is pure; the same input always yields the same
// record.
package query

// PriceRange holds the price constraints extracted from a query. Target is
// set only by an "around X" phrase, which also derives Min and Max at ±20%.
type PriceRange struct {
	Min    float64
	Max    float64
	Target float64
}

// HasMin reports whether a lower price bound was extracted.
func (p PriceRange) HasMin() bool { return p.Min > 0 }

// HasMax reports whether an upper price bound was extracted.
func (p PriceRange) HasMax() bool { return p.Max > 0 }

// HasTarget reports whether an approximate target price was extracted.
func (p PriceRange) HasTarget() bool { return p.Target > 0 }

// Attributes is the structured record produced once per query. Fields are
// empty/zero when no table entry matched.
type Attributes struct {
	Lang         string
	Product      string
	Brand        string
	Color        string
	Size         int
	PriceRange   PriceRange
	Features     map[string]string
	QualityLevel string
	Tokens       []string
}
