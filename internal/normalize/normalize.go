// Package normalize converts the raw scraped strings on a listing into
// numeric fields the ranking engine can work with. Listings whose price
// cannot be recovered are dropped; a missing rating only degrades to zero.
package normalize

import (
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"souqsearch/pkg/types"
)

// Prices outside this band are treated as scrape artifacts.
const (
	MinPrice = 0.01
	MaxPrice = 1_000_000
)

var (
	currencyTokens = regexp.MustCompile(`(?i)(EGP|ج\.م|جنيه|POUND|LE|£)`)
	digitsOnly     = regexp.MustCompile(`[^\d]`)
	firstNumber    = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// Drop records a listing excluded from ranking and why.
type Drop struct {
	Listing types.RawListing
	Reason  string
}

// Result splits a batch into listings fit for ranking and the discards.
type Result struct {
	Kept    []types.NormalizedListing
	Dropped []Drop
}

// Listings normalizes a batch. The marketplace name selects the price
// policy; everything else is uniform.
func Listings(raw []types.RawListing, logger *slog.Logger) Result {
	if logger == nil {
		logger = slog.Default()
	}
	var res Result
	for _, listing := range raw {
		price, ok := Price(listing.RawPrice, listing.Marketplace)
		if !ok {
			res.Dropped = append(res.Dropped, Drop{Listing: listing, Reason: "unusable price"})
			logger.Debug("dropped listing",
				"marketplace", listing.Marketplace, "title", listing.Title, "raw_price", listing.RawPrice)
			continue
		}
		res.Kept = append(res.Kept, types.NormalizedListing{
			RawListing:    listing,
			Price:         price,
			RatingNumeric: Rating(listing.RawRating),
		})
	}
	return res
}

// Price parses a raw price string into EGP. Amazon renders prices in minor
// units (29900 means 299.00), so its digits are divided by 100; the other
// marketplaces use plain decimal notation.
func Price(raw, marketplace string) (float64, bool) {
	if strings.EqualFold(marketplace, "Amazon") {
		return amazonPrice(raw)
	}
	return egpPrice(raw)
}

func egpPrice(raw string) (float64, bool) {
	text := strings.TrimSpace(currencyTokens.ReplaceAllString(raw, ""))
	if text == "" {
		return 0, false
	}

	// Keep only the first decimal point so "65.500.00" still parses.
	if parts := strings.Split(text, "."); len(parts) > 2 {
		text = parts[0] + "." + strings.Join(parts[1:], "")
	}
	text = strings.ReplaceAll(text, ",", "")
	text = strings.Join(strings.Fields(text), "")
	if text == "" || text == "." {
		return 0, false
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return boundPrice(value)
}

func amazonPrice(raw string) (float64, bool) {
	text := currencyTokens.ReplaceAllString(raw, "")
	text = digitsOnly.ReplaceAllString(text, "")
	if text == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return boundPrice(value / 100)
}

func boundPrice(value float64) (float64, bool) {
	if value < MinPrice || value > MaxPrice {
		return 0, false
	}
	return math.Round(value*100) / 100, true
}

// Rating extracts the first numeric token from strings like
// "4.5 out of 5 stars" and clamps it to [0, 5]. Missing ratings become 0.
func Rating(raw string) float64 {
	match := firstNumber.FindString(raw)
	if match == "" {
		return 0
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return math.Min(5, math.Max(0, value))
}
