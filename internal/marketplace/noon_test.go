package marketplace

import (
	"testing"

	"souqsearch/pkg/types"
)

const noonAPI = "https://noon.test/search"

const noonHitsFixture = `{
  "hits": [
    {
      "name": "Samsung Galaxy A54 Dual SIM Awesome Black",
      "price": {"value": 9350.0, "currency": "EGP"},
      "rating": 4.4,
      "image_key": "pnsku/N53346103A/45/_/1695029817",
      "url": "samsung-galaxy-a54-awesome-black",
      "sku": "N53346103A"
    },
    {
      "title": "Galaxy A54 Clear Case",
      "final_price": "250",
      "reviews_average": "3.9",
      "images": ["v1/case-cover.png"],
      "product_url": "https://www.noon.com/egypt-en/galaxy-a54-clear-case/N999/p/"
    },
    {
      "price": {"value": 100}
    }
  ]
}`

func TestNoonParsesAPIHits(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.set(noonAPI+"?country=eg&limit=50&page=1&q=samsung+phone", noonHitsFixture)

	adapter := NewNoonWithAPI(testDeps(fetcher), noonAPI)
	listings := crawlOne(t, adapter, "samsung phone", types.CrawlOptions{Pages: 1})

	if len(listings) != 2 {
		t.Fatalf("listings = %d, want 2 (nameless hit skipped)", len(listings))
	}

	first := listings[0]
	if first.Title != "Samsung Galaxy A54 Dual SIM Awesome Black" {
		t.Errorf("title = %q", first.Title)
	}
	if first.RawPrice != "9350" {
		t.Errorf("nested price = %q", first.RawPrice)
	}
	if first.RawRating != "4.4" {
		t.Errorf("rating = %q", first.RawRating)
	}
	if first.ImageURL != "https://f.nooncdn.com/p/pnsku/N53346103A/45/_/1695029817.jpg" {
		t.Errorf("image = %q", first.ImageURL)
	}
	if first.ProductLink != "https://www.noon.com/egypt-en/samsung-galaxy-a54-awesome-black/N53346103A/p/" {
		t.Errorf("link = %q", first.ProductLink)
	}
	if first.Marketplace != "Noon" || first.SearchQuery != "samsung phone" {
		t.Errorf("provenance = %q / %q", first.Marketplace, first.SearchQuery)
	}

	second := listings[1]
	if second.RawPrice != "250" {
		t.Errorf("flat price alias = %q", second.RawPrice)
	}
	if second.RawRating != "3.9" {
		t.Errorf("rating alias = %q", second.RawRating)
	}
	if second.ImageURL != "https://f.nooncdn.com/v1/case-cover.png" {
		t.Errorf("images array fallback = %q", second.ImageURL)
	}
	if second.ProductLink != "https://www.noon.com/egypt-en/galaxy-a54-clear-case/N999/p/" {
		t.Errorf("absolute product_url must pass through: %q", second.ProductLink)
	}
}

func TestNoonTriesSimplifiedQueryFirst(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.set(noonAPI+"?country=eg&limit=50&page=1&q=samsung+phone", noonHitsFixture)

	adapter := NewNoonWithAPI(testDeps(fetcher), noonAPI)
	listings := crawlOne(t, adapter, "samsung phone 128gb", types.CrawlOptions{Pages: 1})

	if len(listings) == 0 {
		t.Fatal("expected hits from the simplified query")
	}
	if got := fetcher.requestCount(); got != 1 {
		t.Fatalf("requests = %d, want 1 (raw query not needed)", got)
	}
	// Provenance keeps the user's original query, not the simplified one.
	if listings[0].SearchQuery != "samsung phone 128gb" {
		t.Fatalf("search query = %q", listings[0].SearchQuery)
	}
}

func TestNoonFallsBackToRawQuery(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.set(noonAPI+"?country=eg&limit=50&page=1&q=samsung+phone", `{"hits": []}`)
	fetcher.set(noonAPI+"?country=eg&limit=50&page=1&q=samsung+phone+128gb", noonHitsFixture)

	adapter := NewNoonWithAPI(testDeps(fetcher), noonAPI)
	listings := crawlOne(t, adapter, "samsung phone 128gb", types.CrawlOptions{Pages: 1})

	if len(listings) != 2 {
		t.Fatalf("listings = %d, want 2 from the raw-query fallback", len(listings))
	}
	if got := fetcher.requestCount(); got != 2 {
		t.Fatalf("requests = %d, want 2", got)
	}
}

func TestNoonStopsAtMaxProducts(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.set(noonAPI+"?country=eg&limit=50&page=1&q=samsung+phone", noonHitsFixture)

	adapter := NewNoonWithAPI(testDeps(fetcher), noonAPI)
	listings := crawlOne(t, adapter, "samsung phone", types.CrawlOptions{Pages: 3, MaxProducts: 1})

	if len(listings) != 1 {
		t.Fatalf("listings = %d, want 1", len(listings))
	}
	if got := fetcher.requestCount(); got != 1 {
		t.Fatalf("requests = %d, want 1", got)
	}
}

func TestSimplifyNoonQuery(t *testing.T) {
	cases := []struct{ in, want string }{
		{"samsung phone 128gb", "samsung phone"},
		{"laptop 16gb ram ssd", "laptop"},
		{"dell laptop under 20000", "dell laptop under"},
		{"samsung phone", "samsung phone"},
	}
	for _, tc := range cases {
		if got := simplifyNoonQuery(tc.in); got != tc.want {
			t.Errorf("simplifyNoonQuery(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNoonImageURL(t *testing.T) {
	cases := []struct{ in, want string }{
		{"pnsku/N123/45/_/169", "https://f.nooncdn.com/p/pnsku/N123/45/_/169.jpg"},
		{"pim/abc.png", "https://f.nooncdn.com/p/pim/abc.png"},
		{"v1/media/key", "https://f.nooncdn.com/v1/media/key.jpg"},
		{"https://f.nooncdn.com/x.jpg", "https://f.nooncdn.com/x.jpg"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := noonImageURL(tc.in); got != tc.want {
			t.Errorf("noonImageURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
