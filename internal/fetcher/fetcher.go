package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
)

// PageFetcher retrieves the raw body of a URL.
type PageFetcher interface {
	FetchPage(ctx context.Context, rawURL string) ([]byte, error)
}

// Pacer throttles outbound requests per host before each attempt.
type Pacer interface {
	Wait(ctx context.Context, host string) error
}

// Options controls HTTP fetching behaviour.
type Options struct {
	UserAgent    string
	Headers      map[string]string
	Accept       string
	Timeout      time.Duration
	MaxBodyBytes int64
	ProxyURL     string
	MaxRetries   int
	RetryBackoff time.Duration
}

// HTTPFetcher implements PageFetcher via a pooled http.Client with bounded
// retry and exponential backoff.
type HTTPFetcher struct {
	client       *http.Client
	userAgent    string
	accept       string
	extraHeaders map[string]string
	maxBodyBytes int64
	maxRetries   int
	baseBackoff  time.Duration
	pacer        Pacer
	logger       *slog.Logger
}

// StatusError reports a non-success HTTP status.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d for %s", e.Code, e.URL)
}

// NewHTTPFetcher constructs an HTTP fetcher using the provided options. The
// pacer may be nil when no politeness pacing is wanted.
func NewHTTPFetcher(opts Options, pacer Pacer, logger *slog.Logger) (*HTTPFetcher, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 6 * 1024 * 1024
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if strings.TrimSpace(opts.ProxyURL) != "" {
		proxyURL, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	client := &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
	}

	headers := make(map[string]string, len(opts.Headers))
	for k, v := range opts.Headers {
		headers[k] = v
	}

	accept := opts.Accept
	if accept == "" {
		accept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	}

	return &HTTPFetcher{
		client:       client,
		userAgent:    opts.UserAgent,
		accept:       accept,
		extraHeaders: headers,
		maxBodyBytes: opts.MaxBodyBytes,
		maxRetries:   opts.MaxRetries,
		baseBackoff:  opts.RetryBackoff,
		pacer:        pacer,
		logger:       logger,
	}, nil
}

// FetchPage downloads a URL, retrying timeouts and 5xx responses with
// exponential backoff. A 429 response waits an extended interval before the
// next attempt; any other 4xx is terminal. One exhausted URL never kills the
// caller's crawl, only the page it belongs to.
func (f *HTTPFetcher) FetchPage(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", rawURL, err)
	}

	delay := f.baseBackoff
	var lastErr error

	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		if f.pacer != nil {
			if err := f.pacer.Wait(ctx, parsed.Hostname()); err != nil {
				return nil, err
			}
		}

		body, err := f.do(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		wait := delay
		var statusErr *StatusError
		switch {
		case errors.As(err, &statusErr) && statusErr.Code == http.StatusTooManyRequests:
			// Rate limited: back off twice as long before the regular policy resumes.
			wait = delay * 2
			f.logger.Warn("rate limited", "url", rawURL, "wait", wait.String())
		case errors.As(err, &statusErr) && statusErr.Code >= 500:
			f.logger.Warn("server error, will retry", "url", rawURL, "status", statusErr.Code)
		case errors.As(err, &statusErr):
			// Other client errors do not recover by retrying.
			return nil, err
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			f.logger.Warn("fetch failed, will retry", "url", rawURL, "error", err)
		}

		if attempt == f.maxRetries {
			break
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return nil, err
		}
		delay *= 2
	}

	return nil, fmt.Errorf("fetch %s after %d attempts: %w", rawURL, f.maxRetries, lastErr)
}

func (f *HTTPFetcher) do(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", f.accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,ar;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	for k, v := range f.extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http fetch failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, URL: rawURL}
	}

	return f.readBody(resp)
}

func (f *HTTPFetcher) readBody(resp *http.Response) ([]byte, error) {
	if resp == nil || resp.Body == nil {
		return nil, errors.New("empty response body")
	}

	reader := io.Reader(resp.Body)
	closers := []io.Closer{resp.Body}

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		reader = gz
		closers = append(closers, gz)
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		reader = fl
		closers = append(closers, fl)
	}

	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	limited := io.LimitReader(reader, f.maxBodyBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, fmt.Errorf("response body exceeds limit of %d bytes", f.maxBodyBytes)
	}
	return body, nil
}

// Client exposes the underlying HTTP client for reuse (eg. robots.txt fetches).
func (f *HTTPFetcher) Client() *http.Client {
	if f == nil {
		return nil
	}
	return f.client
}

// Renderer executes JavaScript and returns the rendered DOM.
type Renderer interface {
	Render(ctx context.Context, rawURL string) ([]byte, error)
}

// Composite prefers a renderer when one is configured and falls back to the
// plain HTTP fetcher on render failure.
type Composite struct {
	defaultFetcher PageFetcher
	renderer       Renderer
	logger         *slog.Logger
}

// NewComposite builds a composite fetcher from HTTP and optional renderer
// components.
func NewComposite(httpFetcher PageFetcher, renderer Renderer, logger *slog.Logger) *Composite {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composite{defaultFetcher: httpFetcher, renderer: renderer, logger: logger}
}

// FetchPage delegates to the renderer when available, HTTP otherwise.
func (c *Composite) FetchPage(ctx context.Context, rawURL string) ([]byte, error) {
	if c.renderer != nil {
		body, err := c.renderer.Render(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		c.logger.Warn("renderer failed, falling back to HTTP fetch", "url", rawURL, "error", err)
	}
	return c.defaultFetcher.FetchPage(ctx, rawURL)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
