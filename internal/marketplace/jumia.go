package marketplace

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"souqsearch/pkg/types"
)

const jumiaBaseURL = "https://www.jumia.com.eg"

var jumiaLinkID = regexp.MustCompile(`[-\d]`)

// Jumia crawls Jumia Egypt catalog pages. Its markup churns between
// releases, so every field runs through a longer fallback chain than the
// other markup source.
type Jumia struct {
	deps Deps
	base string
}

func NewJumia(deps Deps) *Jumia {
	return &Jumia{deps: deps, base: jumiaBaseURL}
}

// NewJumiaWithBase overrides the base URL, used in tests.
func NewJumiaWithBase(deps Deps, base string) *Jumia {
	return &Jumia{deps: deps, base: strings.TrimSuffix(base, "/")}
}

func (j *Jumia) Name() string { return "Jumia" }

func (j *Jumia) Crawl(ctx context.Context, query string, opts types.CrawlOptions) ([]types.RawListing, []error) {
	var (
		listings []types.RawListing
		errs     []error
	)
	log := j.deps.logger().With("marketplace", j.Name(), "query", query)

	for page := 1; opts.Pages <= 0 || page <= opts.Pages; page++ {
		searchURL := fmt.Sprintf("%s/catalog/?q=%s&page=%d", j.base, url.QueryEscape(query), page)
		if !j.deps.allowed(ctx, searchURL) {
			errs = append(errs, fmt.Errorf("jumia: robots disallow %s", searchURL))
			break
		}

		body, err := j.deps.Fetcher.FetchPage(ctx, searchURL)
		if err != nil {
			errs = append(errs, fmt.Errorf("jumia: page %d: %w", page, err))
			break
		}

		pageListings, err := j.parseSearchPage(body, query)
		if err != nil {
			errs = append(errs, fmt.Errorf("jumia: page %d: %w", page, err))
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
		errs = append(errs, j.enrich(ctx, listings, opts.DetailConcurrency)...)
	}
	return listings, errs
}

func (j *Jumia) parseSearchPage(body []byte, query string) ([]types.RawListing, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}

	items := firstItems(doc,
		"article.prd",
		"article[class*='prd']",
		"article[class*='product']",
		"article[class*='card']",
	)

	var listings []types.RawListing
	items.Each(func(_ int, item *goquery.Selection) {
		listing := types.RawListing{
			Marketplace: j.Name(),
			SearchQuery: query,
		}

		listing.Title = firstText(item,
			"h3.name", "h2.name", "h3", ".name", "[data-name]", "a.name", ".prd-name")
		if listing.Title == "" {
			if name, ok := item.Find("[data-name]").First().Attr("data-name"); ok {
				listing.Title = cleanText(name)
			}
		}
		if listing.Title == "" {
			return
		}

		listing.RawPrice = firstText(item,
			".prc", ".price", "[data-price]", ".price-box", ".old", "[class*='price']")
		listing.RawRating = firstText(item,
			".rev", ".rating", "[data-rating]", "[class*='star']", ".stars")
		listing.ImageURL = j.imageURL(item)
		listing.ProductLink = j.productLink(item)

		listings = append(listings, listing)
	})
	return listings, nil
}

func (j *Jumia) imageURL(item *goquery.Selection) string {
	img := firstAttr(item,
		[]string{"img.img", "img", "picture img", "[data-src]", ".img-c"},
		"data-src", "src", "data-lazy-src", "data-original")
	if img == "" {
		return ""
	}
	// Strip sizing query parameters from CDN URLs.
	if i := strings.IndexByte(img, '?'); i >= 0 {
		img = img[:i]
	}
	return absoluteURL(j.base, img)
}

// productLink walks the link fallback chain and accepts the first href that
// matches a known product URL shape and carries a product identifier.
func (j *Jumia) productLink(item *goquery.Selection) string {
	selectors := []string{
		"a.core",
		"a[href*='/product/']",
		"a[href*='/catalog/']",
		"a[href*='jumia.com']",
		"a",
	}
	patterns := []string{"/product/", "/catalog/", "jumia.com", ".html"}

	for _, sel := range selectors {
		var found string
		item.Find(sel).EachWithBreak(func(_ int, link *goquery.Selection) bool {
			href, ok := link.Attr("href")
			if !ok || strings.TrimSpace(href) == "" {
				return true
			}
			match := false
			for _, p := range patterns {
				if strings.Contains(href, p) {
					match = true
					break
				}
			}
			if !match {
				return true
			}
			full := absoluteURL(j.base, href)
			if !strings.HasPrefix(full, "http") || !jumiaLinkID.MatchString(full) {
				return true
			}
			found = full
			return false
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func (j *Jumia) enrich(ctx context.Context, listings []types.RawListing, concurrency int) []error {
	log := j.deps.logger().With("marketplace", j.Name())
	return runDetailPool(ctx, concurrency, len(listings), func(ctx context.Context, idx int) error {
		listing := &listings[idx]
		if listing.ProductLink == "" {
			return nil
		}
		if !j.deps.allowed(ctx, listing.ProductLink) {
			return fmt.Errorf("jumia: robots disallow %s", listing.ProductLink)
		}
		body, err := j.deps.Fetcher.FetchPage(ctx, listing.ProductLink)
		if err != nil {
			log.Debug("detail fetch failed, keeping search-page values", "url", listing.ProductLink, "error", err)
			return fmt.Errorf("jumia: detail %s: %w", listing.ProductLink, err)
		}
		j.mergeDetail(listing, body)
		return nil
	})
}

func (j *Jumia) mergeDetail(listing *types.RawListing, body []byte) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return
	}
	root := doc.Selection

	if title := firstText(root, "h1", ".name", "[data-name]"); title != "" {
		listing.Title = title
	}
	if price := firstText(root, ".price", ".-b", "[data-price]", ".-fs16"); price != "" {
		listing.RawPrice = price
	}
	if rating := firstText(root, ".stars", ".rating", "[data-rating]"); rating != "" {
		listing.RawRating = rating
	}
	if desc := firstText(root, ".markup", ".description", "[data-description]"); desc != "" {
		listing.Description = desc
	}

	img := firstAttr(root,
		[]string{"img.-fw", "img[data-src]", ".sldr img", ".images img", "picture img"},
		"data-src", "src", "data-lazy-src")
	if img == "" {
		if content, ok := doc.Find("meta[property='og:image']").First().Attr("content"); ok {
			img = strings.TrimSpace(content)
		}
	}
	if img != "" {
		if i := strings.IndexByte(img, '?'); i >= 0 {
			img = img[:i]
		}
		listing.ImageURL = absoluteURL(j.base, img)
	}
}
