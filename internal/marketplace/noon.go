package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"souqsearch/pkg/types"
)

const (
	noonAPIBaseURL = "https://www.noon.com/_svc/catalog/api/v3/u/search/"
	noonSiteURL    = "https://www.noon.com/egypt-en"
	noonCDNBase    = "https://f.nooncdn.com/"
	noonPageLimit  = 50
)

var (
	noonSpecTerms = []*regexp.Regexp{
		regexp.MustCompile(`\b\d+gb\b`),
		regexp.MustCompile(`\bram\b`),
		regexp.MustCompile(`\bssd\b`),
		regexp.MustCompile(`\bhdd\b`),
		regexp.MustCompile(`\b\d+\b`),
	}
	noonImageExt = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|webp)$`)
)

// Noon queries the Noon catalog JSON API rather than scraping markup. The
// payload shape drifts between API versions, so scalar fields resolve
// through ordered alias lists.
type Noon struct {
	deps Deps
	api  string
}

func NewNoon(deps Deps) *Noon {
	return &Noon{deps: deps, api: noonAPIBaseURL}
}

// NewNoonWithAPI overrides the API endpoint, used in tests.
func NewNoonWithAPI(deps Deps, api string) *Noon {
	return &Noon{deps: deps, api: api}
}

func (n *Noon) Name() string { return "Noon" }

// Crawl pages through the search API. Each page first tries a simplified
// query (spec terms stripped, which improves recall on Noon), then the raw
// query when simplification returns nothing. Detailed enrichment is a no-op:
// the API payload already carries everything a product page would.
func (n *Noon) Crawl(ctx context.Context, query string, opts types.CrawlOptions) ([]types.RawListing, []error) {
	var (
		listings []types.RawListing
		errs     []error
	)
	log := n.deps.logger().With("marketplace", n.Name(), "query", query)
	simplified := simplifyNoonQuery(query)

	for page := 1; opts.Pages <= 0 || page <= opts.Pages; page++ {
		var hits []map[string]any
		for _, q := range queryAttempts(simplified, query) {
			pageHits, err := n.fetchHits(ctx, q, page)
			if err != nil {
				errs = append(errs, fmt.Errorf("noon: page %d q=%q: %w", page, q, err))
				continue
			}
			if len(pageHits) > 0 {
				hits = pageHits
				break
			}
		}
		if len(hits) == 0 {
			log.Debug("no hits, stopping pagination", "page", page)
			break
		}
		log.Debug("fetched API page", "page", page, "hits", len(hits))

		for _, hit := range hits {
			title := stringAlias(hit, "name", "title")
			if title == "" {
				continue
			}
			listings = append(listings, types.RawListing{
				Title:       title,
				RawPrice:    noonPrice(hit),
				RawRating:   stringAlias(hit, "rating", "reviews_average", "avg_rating", "average_rating"),
				ImageURL:    noonImage(hit),
				ProductLink: noonLink(hit),
				Marketplace: n.Name(),
				SearchQuery: query,
			})
			if opts.MaxProducts > 0 && len(listings) >= opts.MaxProducts {
				return listings, errs
			}
		}
	}
	return listings, errs
}

func (n *Noon) fetchHits(ctx context.Context, query string, page int) ([]map[string]any, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(noonPageLimit))
	params.Set("country", "eg")
	apiURL := n.api + "?" + params.Encode()

	if !n.deps.allowed(ctx, apiURL) {
		return nil, fmt.Errorf("robots disallow %s", apiURL)
	}
	body, err := n.deps.Fetcher.FetchPage(ctx, apiURL)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Hits []map[string]any `json:"hits"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return payload.Hits, nil
}

// simplifyNoonQuery strips spec terms (storage sizes, ram, bare numbers)
// that hurt recall on the Noon API.
func simplifyNoonQuery(query string) string {
	q := strings.ToLower(query)
	for _, re := range noonSpecTerms {
		q = re.ReplaceAllString(q, "")
	}
	return strings.Join(strings.Fields(q), " ")
}

func queryAttempts(simplified, raw string) []string {
	if simplified == "" || simplified == raw {
		return []string{raw}
	}
	return []string{simplified, raw}
}

// noonPrice tries nested {key: {value: N}} shapes before flat scalars.
func noonPrice(hit map[string]any) string {
	for _, key := range []string{"price", "sale_price", "offer_price"} {
		if obj, ok := hit[key].(map[string]any); ok {
			if s := scalarString(obj["value"]); s != "" {
				return s
			}
		}
	}
	return stringAlias(hit, "final_price", "price", "sale_price", "offer_price")
}

func noonImage(hit map[string]any) string {
	key := stringAlias(hit, "image_key", "imageKey", "image", "thumbnail", "product_image")
	if key == "" {
		switch images := hit["images"].(type) {
		case []any:
			if len(images) > 0 {
				switch first := images[0].(type) {
				case map[string]any:
					key = stringAlias(first, "key", "image_key", "url")
				case string:
					key = strings.TrimSpace(first)
				}
			}
		case map[string]any:
			key = stringAlias(images, "key", "image_key", "url")
		}
	}
	return noonImageURL(key)
}

// noonImageURL turns an image key into a CDN URL. Keys like "pnsku/..."
// are served under the /p/ path prefix; a missing file extension is
// repaired with .jpg.
func noonImageURL(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
		return key
	}
	key = strings.TrimPrefix(key, "/")

	var u string
	switch {
	case strings.HasPrefix(key, "pnsku/"),
		strings.HasPrefix(key, "pim/"),
		strings.HasPrefix(key, "pmd/"),
		strings.HasPrefix(key, "psku/"):
		u = noonCDNBase + "p/" + key
	default:
		u = noonCDNBase + key
	}
	if !noonImageExt.MatchString(u) {
		u += ".jpg"
	}
	return u
}

// noonLink builds the canonical product URL, {site}/{slug}/{sku}/p/, when
// the hit carries both a slug and a SKU.
func noonLink(hit map[string]any) string {
	sku := stringAlias(hit, "sku", "SKU", "product_sku")
	slug := stringAlias(hit, "url", "product_url", "path", "slug")

	if strings.HasPrefix(slug, "http://") || strings.HasPrefix(slug, "https://") {
		return slug
	}
	if slug != "" && sku != "" {
		slug = strings.TrimPrefix(slug, "/")
		if !strings.HasPrefix(slug, "egypt-en/") {
			slug = "egypt-en/" + slug
		}
		slug = strings.ReplaceAll(slug, "/p/", "")
		slug = strings.TrimSuffix(slug, "/p")
		return "https://www.noon.com/" + slug + "/" + sku + "/p/"
	}
	if slug != "" {
		return noonSiteURL + "/" + strings.TrimPrefix(slug, "/")
	}
	return ""
}
