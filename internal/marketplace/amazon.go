package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"souqsearch/pkg/types"
)

const amazonBaseURL = "https://www.amazon.eg"

// Amazon crawls Amazon Egypt search pages. It is a markup source: listings
// come from result-card HTML, with an optional second pass over product
// pages for descriptions and higher-quality images.
type Amazon struct {
	deps Deps
	base string
}

func NewAmazon(deps Deps) *Amazon {
	return &Amazon{deps: deps, base: amazonBaseURL}
}

// NewAmazonWithBase overrides the base URL, used in tests.
func NewAmazonWithBase(deps Deps, base string) *Amazon {
	return &Amazon{deps: deps, base: strings.TrimSuffix(base, "/")}
}

func (a *Amazon) Name() string { return "Amazon" }

// Crawl walks search pages until the page budget or product cap is hit.
// A page that fails to fetch or yields no result items ends pagination;
// listings gathered so far are still returned.
func (a *Amazon) Crawl(ctx context.Context, query string, opts types.CrawlOptions) ([]types.RawListing, []error) {
	var (
		listings []types.RawListing
		errs     []error
	)
	log := a.deps.logger().With("marketplace", a.Name(), "query", query)

	for page := 1; opts.Pages <= 0 || page <= opts.Pages; page++ {
		searchURL := fmt.Sprintf("%s/s?k=%s&page=%d", a.base, url.QueryEscape(query), page)
		if !a.deps.allowed(ctx, searchURL) {
			errs = append(errs, fmt.Errorf("amazon: robots disallow %s", searchURL))
			break
		}

		body, err := a.deps.Fetcher.FetchPage(ctx, searchURL)
		if err != nil {
			errs = append(errs, fmt.Errorf("amazon: page %d: %w", page, err))
			break
		}

		pageListings, err := a.parseSearchPage(body, query)
		if err != nil {
			errs = append(errs, fmt.Errorf("amazon: page %d: %w", page, err))
			break
		}
		if len(pageListings) == 0 {
			log.Debug("no result items, stopping pagination", "page", page)
			break
		}
		log.Debug("parsed search page", "page", page, "items", len(pageListings))

		listings = append(listings, pageListings...)
		if opts.MaxProducts > 0 && len(listings) >= opts.MaxProducts {
			break
		}
	}

	listings = capListings(listings, opts.MaxProducts)
	if opts.Detailed && len(listings) > 0 {
		errs = append(errs, a.enrich(ctx, listings, opts.DetailConcurrency)...)
	}
	return listings, errs
}

func (a *Amazon) parseSearchPage(body []byte, query string) ([]types.RawListing, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}

	var listings []types.RawListing
	doc.Find("div[data-component-type='s-search-result']").Each(func(_ int, item *goquery.Selection) {
		listing := types.RawListing{
			Marketplace: a.Name(),
			SearchQuery: query,
		}

		listing.Title = firstText(item,
			"h2.a-text-normal",
			"h2 span.a-text-normal",
			"h2 a.a-text-normal span",
			"h2",
			".s-title-instructions-style span",
		)
		if listing.Title == "" {
			listing.Title = cleanText(item.Find("h2 a, a.a-link-normal").First().Text())
		}
		if listing.Title == "" {
			return
		}

		listing.RawPrice = amazonPrice(item)
		listing.RawRating = firstText(item, "span.a-icon-alt")
		listing.ImageURL = absoluteURL(a.base,
			firstAttr(item, []string{"img.s-image"}, "src", "data-src", "data-lazy-src"))
		if href, ok := item.Find("h2 a, a.a-link-normal.s-no-outline").First().Attr("href"); ok {
			listing.ProductLink = absoluteURL(a.base, href)
		}

		listings = append(listings, listing)
	})
	return listings, nil
}

// amazonPrice assembles the fragmented whole/fraction/symbol spans Amazon
// renders, falling back to the combined price node.
func amazonPrice(item *goquery.Selection) string {
	whole := cleanText(item.Find("span.a-price-whole").First().Text())
	if whole == "" {
		return firstText(item, "span.a-price")
	}
	frac := cleanText(item.Find("span.a-price-fraction").First().Text())
	sym := cleanText(item.Find("span.a-price-symbol").First().Text())
	return strings.TrimSpace(whole + frac + " " + sym)
}

func (a *Amazon) enrich(ctx context.Context, listings []types.RawListing, concurrency int) []error {
	log := a.deps.logger().With("marketplace", a.Name())
	return runDetailPool(ctx, concurrency, len(listings), func(ctx context.Context, idx int) error {
		listing := &listings[idx]
		if listing.ProductLink == "" {
			return nil
		}
		if !a.deps.allowed(ctx, listing.ProductLink) {
			return fmt.Errorf("amazon: robots disallow %s", listing.ProductLink)
		}
		body, err := a.deps.Fetcher.FetchPage(ctx, listing.ProductLink)
		if err != nil {
			log.Debug("detail fetch failed, keeping search-page values", "url", listing.ProductLink, "error", err)
			return fmt.Errorf("amazon: detail %s: %w", listing.ProductLink, err)
		}
		a.mergeDetail(listing, body)
		return nil
	})
}

// mergeDetail overlays product-page fields onto the listing. Detail values
// win only when non-empty, so a sparse product page never erases data
// already captured from the search page.
func (a *Amazon) mergeDetail(listing *types.RawListing, body []byte) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return
	}
	root := doc.Selection

	if title := firstText(root, "#productTitle", "h1 span"); title != "" {
		listing.Title = title
	}
	if price := firstText(root, "#priceblock_ourprice", "#priceblock_dealprice", ".a-price .a-offscreen"); price != "" {
		listing.RawPrice = price
	}
	if rating := firstText(root, "span.a-icon-alt", "#acrPopover .a-icon-alt"); rating != "" {
		listing.RawRating = rating
	}
	listing.Description = amazonDescription(root)
	if img := amazonPrimaryImage(doc); img != "" {
		listing.ImageURL = absoluteURL(a.base, img)
	}
}

func amazonDescription(root *goquery.Selection) string {
	for _, sel := range []string{
		"#productDescription_feature_div #productDescription",
		"#productDescription",
		"#feature-bullets",
	} {
		node := root.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		node.Find("script, style").Remove()

		var bullets []string
		node.Find("ul li").Each(func(_ int, li *goquery.Selection) {
			if text := cleanText(li.Text()); text != "" {
				bullets = append(bullets, text)
			}
		})
		if len(bullets) > 0 {
			return strings.Join(bullets, " | ")
		}
		if text := cleanText(node.Text()); text != "" {
			return text
		}
	}
	return ""
}

func amazonPrimaryImage(doc *goquery.Document) string {
	if img := firstAttr(doc.Selection, []string{"img#landingImage"}, "src", "data-old-hires"); img != "" {
		return img
	}
	// data-a-dynamic-image holds a JSON map of URL to dimensions.
	if raw, ok := doc.Find("img[data-a-dynamic-image]").First().Attr("data-a-dynamic-image"); ok && raw != "" {
		var sizes map[string][]float64
		if err := json.Unmarshal([]byte(raw), &sizes); err == nil {
			for u := range sizes {
				return u
			}
		}
	}
	if img := firstAttr(doc.Selection, []string{"img.a-dynamic-image"}, "src", "data-old-hires"); img != "" {
		return img
	}
	if content, ok := doc.Find("meta[property='og:image']").First().Attr("content"); ok {
		return strings.TrimSpace(content)
	}
	return ""
}
