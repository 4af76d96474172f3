package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"souqsearch/internal/config"
	"souqsearch/internal/crawler"
	"souqsearch/internal/fetcher"
	"souqsearch/internal/marketplace"
	"souqsearch/internal/pipeline"
	"souqsearch/internal/rank"
	"souqsearch/internal/robots"
	"souqsearch/internal/storage"
	"souqsearch/pkg/types"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	queryFlag := flag.String("query", "", "Product search query (required)")
	pagesFlag := flag.Int("pages", 0, "Pages to crawl per marketplace (overrides config)")
	maxProducts := flag.Int("max-products", -1, "Max products per marketplace, 0 = unlimited (overrides config)")
	detailed := flag.Bool("detailed", false, "Fetch product detail pages")
	platformsFlag := flag.String("platforms", "", "Comma-separated marketplaces to search (overrides config)")
	outputFlag := flag.String("output", "", "CSV output path (overrides config)")
	topNFlag := flag.Int("top-n", 0, "Number of ranked results to show (overrides config)")
	flag.Parse()

	if strings.TrimSpace(*queryFlag) == "" {
		fmt.Fprintln(os.Stderr, "missing required -query flag")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	applyOverrides(cfg, *pagesFlag, *maxProducts, *detailed, *platformsFlag, *outputFlag, *topNFlag)

	logger, err := crawler.BuildLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	outcome, cleanup, err := run(ctx, cfg, *queryFlag, logger)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		if errors.Is(err, pipeline.ErrEmptyQuery) {
			fmt.Fprintln(os.Stderr, "query is empty after normalization, nothing to search")
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "search failed: %v\n", err)
		os.Exit(1)
	}

	printOutcome(outcome, *queryFlag)
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			cfg := config.Default()
			return &cfg, nil
		}
		return nil, err
	}
	return config.Load(path)
}

func applyOverrides(cfg *config.Config, pages, maxProducts int, detailed bool, platforms, output string, topN int) {
	if pages > 0 {
		cfg.Search.Pages = pages
	}
	if maxProducts >= 0 {
		cfg.Search.MaxProducts = maxProducts
	}
	if detailed {
		cfg.Search.Detailed = true
	}
	if platforms != "" {
		cfg.Search.Platforms = strings.Split(platforms, ",")
	}
	if output != "" {
		cfg.Output.CSVPath = output
	}
	if topN > 0 {
		cfg.Search.TopN = topN
	}
}

func run(ctx context.Context, cfg *config.Config, query string, logger *slog.Logger) (*pipeline.Outcome, func(), error) {
	limiter := crawler.NewHostLimiter(cfg.Crawl.PerHostDelay.Duration, crawler.RateLimiterSettings{
		Requests: cfg.Crawl.RateLimitPerHost.Requests,
		Window:   cfg.Crawl.RateLimitPerHost.Window.Duration,
	})

	httpFetcher, err := fetcher.NewHTTPFetcher(fetcher.Options{
		UserAgent:    cfg.Crawl.UserAgent,
		Headers:      cfg.Crawl.Headers,
		Timeout:      cfg.Crawl.RequestTimeout.Duration,
		MaxBodyBytes: cfg.Crawl.MaxBodyBytes,
		ProxyURL:     cfg.Crawl.ProxyURL,
		MaxRetries:   cfg.Crawl.MaxRetries,
		RetryBackoff: cfg.Crawl.RetryBackoff.Duration,
	}, limiter, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("http fetcher: %w", err)
	}

	var renderer fetcher.Renderer
	if cfg.Rendering.Enabled {
		switch strings.ToLower(cfg.Rendering.Engine) {
		case "chromedp", "chrome":
			renderer = fetcher.NewChromedpRenderer(fetcher.RenderOptions{
				Timeout:            cfg.Rendering.Timeout.Duration,
				WaitForSelector:    cfg.Rendering.WaitForSelector,
				UserAgent:          cfg.Crawl.UserAgent,
				MaxBodyBytes:       cfg.Crawl.MaxBodyBytes,
				DisableHeadless:    cfg.Rendering.DisableHeadless,
				ConcurrentSessions: cfg.Rendering.ConcurrentSessions,
			}, logger)
		case "none":
			// Explicit opt-out even if enabled flag toggled.
		default:
			return nil, nil, fmt.Errorf("unsupported rendering engine %q", cfg.Rendering.Engine)
		}
	}
	composite := fetcher.NewComposite(httpFetcher, renderer, logger)

	deps := marketplace.Deps{
		Fetcher: composite,
		Logger:  logger,
	}
	if cfg.Robots.Respect {
		deps.Robots = robots.NewAgent(cfg.Robots, httpFetcher.Client())
	}

	adapters := make([]marketplace.Adapter, 0, len(cfg.Search.Platforms))
	for _, platform := range cfg.Search.Platforms {
		switch strings.ToLower(strings.TrimSpace(platform)) {
		case "amazon":
			adapters = append(adapters, marketplace.NewAmazon(deps))
		case "jumia":
			adapters = append(adapters, marketplace.NewJumia(deps))
		case "noon":
			adapters = append(adapters, marketplace.NewNoon(deps))
		default:
			return nil, nil, fmt.Errorf("unknown platform %q", platform)
		}
	}

	var sinks []storage.Sink
	var cleanup func()
	if cfg.Output.CSVPath != "" {
		sinks = append(sinks, storage.NewCSVWriter(cfg.Output.CSVPath, cfg.Output.Append))
	}
	if cfg.DB.Driver != "" && cfg.DB.DSN != "" {
		sqlWriter, err := storage.NewSQLWriter(cfg.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("sql writer: %w", err)
		}
		sinks = append(sinks, sqlWriter)
		cleanup = func() {
			if cerr := sqlWriter.Close(); cerr != nil {
				logger.Error("close sql writer", "error", cerr)
			}
		}
	}

	p := pipeline.New(
		crawler.NewOrchestrator(adapters, logger),
		rank.NewEngine(cfg.Ranking, logger),
		storage.NewPipeline(sinks...),
		logger,
	)

	opts := types.CrawlOptions{
		Pages:             cfg.Search.Pages,
		MaxProducts:       cfg.Search.MaxProducts,
		Detailed:          cfg.Search.Detailed,
		DetailConcurrency: cfg.Worker.DetailConcurrency,
	}
	outcome, err := p.Search(ctx, query, opts, cfg.Search.TopN)
	return outcome, cleanup, err
}

func printOutcome(outcome *pipeline.Outcome, query string) {
	fmt.Printf("query: %s\n", query)
	if attrs := outcome.Attributes; attrs.Product != "" || attrs.Brand != "" {
		fmt.Printf("understood: product=%s brand=%s color=%s quality=%s\n",
			attrs.Product, attrs.Brand, attrs.Color, attrs.QualityLevel)
	}
	fmt.Printf("collected %d listings (%d dropped during normalization, %d crawl errors)\n",
		outcome.Collected, len(outcome.Dropped), len(outcome.CrawlErrors))

	if len(outcome.Ranked) == 0 {
		fmt.Println("no results")
		return
	}
	fmt.Printf("top %d results:\n", len(outcome.Ranked))
	for i, item := range outcome.Ranked {
		fmt.Printf("%2d. [%6.2f] %s\n", i+1, item.FinalScore, item.Title)
		fmt.Printf("    %s | %.2f EGP | rating %.1f\n", item.Marketplace, item.Price, item.RatingNumeric)
		if item.ProductLink != "" {
			fmt.Printf("    %s\n", item.ProductLink)
		}
	}
}
