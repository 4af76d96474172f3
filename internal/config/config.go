package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// KnownPlatforms lists the marketplace adapters that can be enabled.
var KnownPlatforms = []string{"Amazon", "Jumia", "Noon"}

// Config captures the full configuration required to run a product search.
type Config struct {
	Search    SearchConfig    `yaml:"search"`
	Crawl     CrawlConfig     `yaml:"crawl"`
	Worker    WorkerConfig    `yaml:"worker"`
	Robots    RobotsConfig    `yaml:"robots"`
	Rendering RenderingConfig `yaml:"rendering"`
	Ranking   RankingConfig   `yaml:"ranking"`
	Output    OutputConfig    `yaml:"output"`
	DB        SQLConfig       `yaml:"db"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SearchConfig bounds a single multi-marketplace search run.
type SearchConfig struct {
	Platforms   []string `yaml:"platforms"`
	Pages       int      `yaml:"pages"`
	MaxProducts int      `yaml:"max_products"`
	Detailed    bool     `yaml:"detailed"`
	TopN        int      `yaml:"top_n"`
}

// CrawlConfig controls transport behaviour shared by all adapters.
type CrawlConfig struct {
	UserAgent        string            `yaml:"user_agent"`
	Headers          map[string]string `yaml:"headers"`
	ProxyURL         string            `yaml:"proxy_url"`
	RequestTimeout   Duration          `yaml:"request_timeout"`
	MaxBodyBytes     int64             `yaml:"max_body_bytes"`
	MaxRetries       int               `yaml:"max_retries"`
	RetryBackoff     Duration          `yaml:"retry_backoff"`
	PerHostDelay     Duration          `yaml:"per_host_delay"`
	RateLimitPerHost RateLimitConfig   `yaml:"rate_limit_per_host"`
}

// WorkerConfig sizes the per-adapter detail-enrichment pool.
type WorkerConfig struct {
	DetailConcurrency int `yaml:"detail_concurrency"`
}

// RateLimitConfig applies a token bucket per host.
type RateLimitConfig struct {
	Requests int      `yaml:"requests"`
	Window   Duration `yaml:"window"`
}

// RobotsConfig configures robots.txt handling for markup sources.
type RobotsConfig struct {
	Respect   bool     `yaml:"respect"`
	Overrides []string `yaml:"overrides"`
	UserAgent string   `yaml:"user_agent"`
	CacheTTL  Duration `yaml:"cache_ttl"`
}

// RenderingConfig controls optional JavaScript rendering for markup sources.
type RenderingConfig struct {
	Enabled            bool     `yaml:"enabled"`
	Engine             string   `yaml:"engine"`
	Timeout            Duration `yaml:"timeout"`
	WaitForSelector    string   `yaml:"wait_for_selector"`
	ConcurrentSessions int      `yaml:"concurrent_sessions"`
	DisableHeadless    bool     `yaml:"disable_headless"`
}

// RankingConfig tunes the scoring phase.
type RankingConfig struct {
	EnableSimilarity  bool    `yaml:"enable_similarity"`
	RuleWeight        float64 `yaml:"rule_weight"`
	SimilarityWeight  float64 `yaml:"similarity_weight"`
	CheapPriceCeiling float64 `yaml:"cheap_price_ceiling"`
	PremiumPriceFloor float64 `yaml:"premium_price_floor"`
}

// OutputConfig selects where collected listings are written.
type OutputConfig struct {
	CSVPath string `yaml:"csv_path"`
	Append  bool   `yaml:"append"`
}

// SQLConfig describes an optional relational sink for collected listings.
type SQLConfig struct {
	Driver          string   `yaml:"driver"`
	DSN             string   `yaml:"dsn"`
	MaxOpenConns    int      `yaml:"max_open_conns"`
	MaxIdleConns    int      `yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
	AutoMigrate     bool     `yaml:"auto_migrate"`
	CreateIfMissing bool     `yaml:"create_if_missing"`
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Structured bool   `yaml:"structured"`
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		Search: SearchConfig{
			Platforms:   append([]string(nil), KnownPlatforms...),
			Pages:       1,
			MaxProducts: 30,
			Detailed:    false,
			TopN:        20,
		},
		Crawl: CrawlConfig{
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
				"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Headers:        map[string]string{},
			RequestTimeout: DurationFrom(15 * time.Second),
			MaxBodyBytes:   6 * 1024 * 1024,
			MaxRetries:     3,
			RetryBackoff:   DurationFrom(500 * time.Millisecond),
			PerHostDelay:   DurationFrom(300 * time.Millisecond),
		},
		Worker: WorkerConfig{
			DetailConcurrency: 8,
		},
		Robots: RobotsConfig{
			Respect:   false,
			Overrides: []string{},
			UserAgent: "souqsearch-bot/1.0",
			CacheTTL:  DurationFrom(6 * time.Hour),
		},
		Rendering: RenderingConfig{
			Enabled:            false,
			Engine:             "chromedp",
			Timeout:            DurationFrom(20 * time.Second),
			ConcurrentSessions: 2,
		},
		Ranking: RankingConfig{
			EnableSimilarity:  true,
			RuleWeight:        0.6,
			SimilarityWeight:  0.4,
			CheapPriceCeiling: 5000,
			PremiumPriceFloor: 15000,
		},
		Output: OutputConfig{
			CSVPath: "data/results.csv",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Structured: false,
		},
	}
}

// Load reads, merges, and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer fh.Close()
	return LoadFromReader(fh)
}

// LoadFromReader decodes configuration from an arbitrary reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decodeYAML(r, &cfg); err != nil {
		return nil, err
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// Validate enforces required invariants for the search configuration.
func (c Config) Validate() error {
	if len(c.Search.Platforms) == 0 {
		return errors.New("search.platforms must include at least one marketplace")
	}
	known := make(map[string]struct{}, len(KnownPlatforms))
	for _, p := range KnownPlatforms {
		known[strings.ToLower(p)] = struct{}{}
	}
	for _, p := range c.Search.Platforms {
		if _, ok := known[strings.ToLower(p)]; !ok {
			return fmt.Errorf("unknown platform %q (known: %s)", p, strings.Join(KnownPlatforms, ", "))
		}
	}
	if c.Search.Pages <= 0 {
		return fmt.Errorf("search.pages must be > 0 (got %d)", c.Search.Pages)
	}
	if c.Search.MaxProducts < 0 {
		return fmt.Errorf("search.max_products must be >= 0 (got %d)", c.Search.MaxProducts)
	}
	if c.Search.TopN <= 0 {
		return fmt.Errorf("search.top_n must be > 0 (got %d)", c.Search.TopN)
	}
	if c.Crawl.MaxRetries <= 0 {
		return fmt.Errorf("crawl.max_retries must be > 0 (got %d)", c.Crawl.MaxRetries)
	}
	if c.Crawl.MaxBodyBytes <= 0 {
		return fmt.Errorf("crawl.max_body_bytes must be > 0 (got %d)", c.Crawl.MaxBodyBytes)
	}
	if strings.TrimSpace(c.Crawl.UserAgent) == "" {
		return errors.New("crawl.user_agent must be set")
	}
	if c.Worker.DetailConcurrency <= 0 {
		return fmt.Errorf("worker.detail_concurrency must be > 0 (got %d)", c.Worker.DetailConcurrency)
	}
	if rl := c.Crawl.RateLimitPerHost; rl.Requests < 0 {
		return fmt.Errorf("crawl.rate_limit_per_host.requests must be >= 0 (got %d)", rl.Requests)
	}
	if c.Robots.Respect && strings.TrimSpace(c.Robots.UserAgent) == "" {
		return errors.New("robots.user_agent must be set when robots.respect is true")
	}
	if c.Rendering.Enabled {
		switch strings.ToLower(c.Rendering.Engine) {
		case "chromedp", "chrome", "none":
		default:
			return fmt.Errorf("unsupported rendering engine %q", c.Rendering.Engine)
		}
	}
	if c.Ranking.RuleWeight < 0 || c.Ranking.SimilarityWeight < 0 {
		return errors.New("ranking weights must be >= 0")
	}
	if c.Ranking.EnableSimilarity && c.Ranking.RuleWeight+c.Ranking.SimilarityWeight == 0 {
		return errors.New("ranking weights must not both be zero")
	}
	if c.DB.Driver != "" && c.DB.DSN == "" {
		return errors.New("db.dsn must be set when db.driver is set")
	}
	return nil
}

func (c *Config) normalise() {
	c.Crawl.UserAgent = strings.TrimSpace(c.Crawl.UserAgent)
	c.Robots.UserAgent = strings.TrimSpace(c.Robots.UserAgent)
	c.Output.CSVPath = strings.TrimSpace(c.Output.CSVPath)

	// Platform names match case-insensitively but are kept in canonical form.
	if len(c.Search.Platforms) > 0 {
		canonical := make(map[string]string, len(KnownPlatforms))
		for _, p := range KnownPlatforms {
			canonical[strings.ToLower(p)] = p
		}
		cleaned := make([]string, 0, len(c.Search.Platforms))
		seen := make(map[string]struct{}, len(c.Search.Platforms))
		for _, raw := range c.Search.Platforms {
			name := strings.ToLower(strings.TrimSpace(raw))
			if name == "" {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			if canon, ok := canonical[name]; ok {
				cleaned = append(cleaned, canon)
			} else {
				cleaned = append(cleaned, raw)
			}
		}
		c.Search.Platforms = cleaned
	}

	if len(c.Robots.Overrides) > 0 {
		unique := make(map[string]struct{}, len(c.Robots.Overrides))
		cleaned := make([]string, 0, len(c.Robots.Overrides))
		for _, raw := range c.Robots.Overrides {
			host := strings.ToLower(strings.TrimSpace(raw))
			if host == "" {
				continue
			}
			if _, exists := unique[host]; exists {
				continue
			}
			unique[host] = struct{}{}
			cleaned = append(cleaned, host)
		}
		sort.Strings(cleaned)
		c.Robots.Overrides = cleaned
	}
}

// Enabled reports whether per-host rate limiting is active.
func (r RateLimitConfig) Enabled() bool {
	return r.Requests > 0 && !r.Window.IsZero()
}
