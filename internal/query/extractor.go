package query

import (
	"strconv"
	"strings"
)

// Extract builds the attribute record for one query. Brand, category and
// color match the raw text first (keywords may contain spaces), then the
// token sequence; size matching depends on the extracted category.
func Extract(tokens []string, rawText, lang string) Attributes {
	attrs := Attributes{
		Lang:     lang,
		Features: map[string]string{},
		Tokens:   append([]string(nil), tokens...),
	}

	lower := strings.ToLower(rawText)

	attrs.Brand = matchKeyword(brandTable, lower, tokens)
	attrs.Product = matchKeyword(productTable, lower, tokens)
	attrs.Color = matchKeyword(colorTable, lower, tokens)
	attrs.Size = extractSize(tokens, attrs.Product)
	attrs.PriceRange = extractPriceRange(lower)
	attrs.Features = extractFeatures(lower)
	attrs.QualityLevel = matchKeyword(qualityTable, lower, nil)

	return attrs
}

// matchKeyword returns the first table entry with a keyword found in the raw
// text, falling back to exact token matches. Table order decides ties.
func matchKeyword(table []keywordEntry, lowerText string, tokens []string) string {
	for _, entry := range table {
		for _, kw := range entry.keywords {
			if strings.Contains(lowerText, strings.ToLower(kw)) {
				return entry.name
			}
		}
	}
	for _, token := range tokens {
		for _, entry := range table {
			for _, kw := range entry.keywords {
				if token == strings.ToLower(kw) {
					return entry.name
				}
			}
		}
	}
	return ""
}

// extractSize picks the first numeric token inside the category's plausible
// window. Categories without a window never get a size.
func extractSize(tokens []string, product string) int {
	window, ok := sizeWindows[product]
	if !ok {
		return 0
	}
	for _, token := range tokens {
		n, err := strconv.Atoi(token)
		if err != nil {
			continue
		}
		if n >= window.min && n <= window.max {
			return n
		}
	}
	return 0
}

func extractPriceRange(lowerText string) PriceRange {
	var pr PriceRange
	for _, pp := range pricePatterns {
		m := pp.pattern.FindStringSubmatch(lowerText)
		if m == nil {
			continue
		}
		switch pp.kind {
		case "max":
			pr.Max = mustFloat(m[1])
		case "min":
			pr.Min = mustFloat(m[1])
		case "range":
			pr.Min = mustFloat(m[1])
			pr.Max = mustFloat(m[2])
		case "target":
			target := mustFloat(m[1])
			pr.Target = target
			pr.Min = target * 0.8
			pr.Max = target * 1.2
		}
		// First matching phrase wins; later patterns are not evaluated.
		break
	}
	return pr
}

func extractFeatures(lowerText string) map[string]string {
	features := make(map[string]string)
	for _, fp := range featurePatterns {
		m := fp.pattern.FindStringSubmatch(lowerText)
		if m == nil {
			continue
		}
		value := m[0]
		if len(m) > 1 && m[1] != "" {
			value = m[1]
		}
		features[fp.key] = value
	}
	return features
}

func mustFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
