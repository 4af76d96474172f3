// Package rank filters and scores normalized listings against the
// attributes extracted from the user's query. Filtering is conservative:
// each narrowing step commits only when it leaves at least one listing, so
// a over-specific query degrades to a broader result set instead of an
// empty one.
package rank

import (
	"log/slog"
	"math"
	"sort"
	"strings"

	"souqsearch/internal/config"
	"souqsearch/internal/query"
	"souqsearch/pkg/types"
)

// Engine ranks crawl batches. Safe for concurrent use; all state is
// read-only configuration.
type Engine struct {
	cfg    config.RankingConfig
	logger *slog.Logger
}

func NewEngine(cfg config.RankingConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Rank filters, scores, and orders listings, returning at most topN.
// Ordering is final score descending with price ascending as tie-break.
func (e *Engine) Rank(listings []types.NormalizedListing, attrs query.Attributes, topN int) []types.RankedListing {
	if len(listings) == 0 {
		return nil
	}

	candidates := e.filter(listings, attrs)
	if len(candidates) == 0 {
		return nil
	}

	ranked := make([]types.RankedListing, 0, len(candidates))
	for _, listing := range candidates {
		ranked = append(ranked, types.RankedListing{
			NormalizedListing: listing,
			RuleScore:         ruleScore(listing, attrs, e.cfg),
		})
	}

	if e.cfg.EnableSimilarity {
		applySimilarity(ranked, attrs.Tokens)
		for i := range ranked {
			ranked[i].FinalScore = round2(
				e.cfg.RuleWeight*ranked[i].RuleScore +
					e.cfg.SimilarityWeight*ranked[i].SimilarityScore*100)
		}
	} else {
		for i := range ranked {
			ranked[i].FinalScore = round2(ranked[i].RuleScore)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].FinalScore != ranked[j].FinalScore {
			return ranked[i].FinalScore > ranked[j].FinalScore
		}
		return ranked[i].Price < ranked[j].Price
	})

	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

// filter narrows the candidate set in stages. The category and brand stages
// commit only when they keep at least one listing; price bounds are hard.
// When everything is filtered away, the set restarts from the full batch
// with only the accessory and max-price constraints.
func (e *Engine) filter(listings []types.NormalizedListing, attrs query.Attributes) []types.NormalizedListing {
	result := listings

	_, device := deviceProducts[attrs.Product]
	if device {
		result = reject(result, func(l types.NormalizedListing) bool {
			return IsAccessory(l.Title)
		})
		e.logger.Debug("accessory filter applied", "remaining", len(result))
	}

	if pattern, ok := categoryPatterns[attrs.Product]; ok {
		if narrowed := keep(result, func(l types.NormalizedListing) bool {
			return pattern.MatchString(l.Title)
		}); len(narrowed) > 0 {
			result = narrowed
		}
	}

	if attrs.Brand != "" {
		if narrowed := keep(result, func(l types.NormalizedListing) bool {
			return containsFold(l.Title, attrs.Brand)
		}); len(narrowed) > 0 {
			result = narrowed
		}
	}

	if attrs.PriceRange.HasMax() {
		result = keep(result, func(l types.NormalizedListing) bool {
			return l.Price <= attrs.PriceRange.Max
		})
	}
	if attrs.PriceRange.HasMin() {
		result = keep(result, func(l types.NormalizedListing) bool {
			return l.Price >= attrs.PriceRange.Min
		})
	}

	if len(result) == 0 {
		e.logger.Debug("all listings filtered out, relaxing constraints")
		result = listings
		if device {
			result = reject(result, func(l types.NormalizedListing) bool {
				return IsAccessory(l.Title)
			})
		}
		if attrs.PriceRange.HasMax() {
			result = keep(result, func(l types.NormalizedListing) bool {
				return l.Price <= attrs.PriceRange.Max
			})
		}
	}
	return result
}

// IsAccessory reports whether the title describes an add-on rather than the
// product itself.
func IsAccessory(title string) bool {
	lower := strings.ToLower(title)
	for _, keyword := range accessoryKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// ruleScore computes the 100-point rule score: brand 30, price fit 25,
// features 20, rating 15, color 10, plus small type and quality bonuses.
func ruleScore(listing types.NormalizedListing, attrs query.Attributes, cfg config.RankingConfig) float64 {
	var score float64
	title := strings.ToLower(listing.Title)
	price := listing.Price

	if attrs.Brand != "" {
		if strings.Contains(title, strings.ToLower(attrs.Brand)) {
			score += 30
		} else {
			aliases, ok := brandAliases[strings.ToLower(attrs.Brand)]
			if !ok {
				aliases = []string{attrs.Brand}
			}
			for _, alias := range aliases {
				if strings.Contains(title, strings.ToLower(alias)) {
					score += 20
					break
				}
			}
		}
	}

	if price > 0 {
		if attrs.PriceRange.HasMax() && price <= attrs.PriceRange.Max {
			// Spending most of the budget usually means the better product.
			switch ratio := price / attrs.PriceRange.Max; {
			case ratio > 0.7:
				score += 25
			case ratio > 0.5:
				score += 20
			default:
				score += 15
			}
		}
		if attrs.PriceRange.HasMin() && price >= attrs.PriceRange.Min {
			score += 5
		}
		if attrs.PriceRange.HasTarget() {
			switch diff := math.Abs(price-attrs.PriceRange.Target) / attrs.PriceRange.Target; {
			case diff <= 0.1:
				score += 10
			case diff <= 0.2:
				score += 5
			}
		}
	}

	var featureScore float64
	for _, value := range attrs.Features {
		if strings.Contains(title, strings.ToLower(value)) {
			featureScore += 5
		}
	}
	score += math.Min(featureScore, 20)

	if listing.RatingNumeric > 0 {
		score += listing.RatingNumeric / 5 * 15
	}

	if attrs.Color != "" && strings.Contains(title, strings.ToLower(attrs.Color)) {
		score += 10
	}

	if attrs.Product != "" {
		keywords, ok := typeKeywords[attrs.Product]
		if !ok {
			keywords = []string{attrs.Product}
		}
		for _, keyword := range keywords {
			if strings.Contains(title, keyword) {
				score += 5
				break
			}
		}
	}

	switch attrs.QualityLevel {
	case "cheap":
		if price > 0 && price < cfg.CheapPriceCeiling {
			score += 5
		}
	case "premium":
		if price > cfg.PremiumPriceFloor {
			score += 5
		}
	}

	return round2(score)
}

func keep(listings []types.NormalizedListing, pred func(types.NormalizedListing) bool) []types.NormalizedListing {
	out := make([]types.NormalizedListing, 0, len(listings))
	for _, l := range listings {
		if pred(l) {
			out = append(out, l)
		}
	}
	return out
}

func reject(listings []types.NormalizedListing, pred func(types.NormalizedListing) bool) []types.NormalizedListing {
	return keep(listings, func(l types.NormalizedListing) bool { return !pred(l) })
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
