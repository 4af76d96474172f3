package fetcher

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestFetcher(t *testing.T, opts Options) *HTTPFetcher {
	t.Helper()
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = time.Millisecond
	}
	f, err := NewHTTPFetcher(opts, nil, testLogger())
	if err != nil {
		t.Fatalf("NewHTTPFetcher: %v", err)
	}
	return f
}

func TestFetchPageRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, "payload")
	}))
	defer srv.Close()

	f := newTestFetcher(t, Options{})
	body, err := f.FetchPage(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if string(body) != "payload" {
		t.Fatalf("body = %q, want payload", body)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestFetchPageClientErrorIsTerminal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher(t, Options{})
	_, err := f.FetchPage(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for 404")
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
		t.Fatalf("expected StatusError 404, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("404 must not be retried, got %d attempts", got)
	}
}

func TestFetchPageRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	f := newTestFetcher(t, Options{})
	body, err := f.FetchPage(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if string(body) != "ok" {
		t.Fatalf("body = %q", body)
	}
}

func TestFetchPageExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := newTestFetcher(t, Options{MaxRetries: 2})
	_, err := f.FetchPage(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestFetchPageDecodesGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		io.WriteString(gz, "<html>compressed</html>")
		gz.Close()
	}))
	defer srv.Close()

	f := newTestFetcher(t, Options{})
	body, err := f.FetchPage(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if string(body) != "<html>compressed</html>" {
		t.Fatalf("body = %q", body)
	}
}

func TestFetchPageEnforcesBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, strings.Repeat("x", 2048))
	}))
	defer srv.Close()

	f := newTestFetcher(t, Options{MaxBodyBytes: 1024, MaxRetries: 1})
	if _, err := f.FetchPage(context.Background(), srv.URL); err == nil {
		t.Fatal("expected body limit error")
	}
}

func TestFetchPageSendsHeaders(t *testing.T) {
	var gotUA, gotExtra string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotExtra = r.Header.Get("X-Test")
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	f := newTestFetcher(t, Options{
		UserAgent: "test-agent/1.0",
		Headers:   map[string]string{"X-Test": "yes"},
	})
	if _, err := f.FetchPage(context.Background(), srv.URL); err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if gotUA != "test-agent/1.0" {
		t.Fatalf("user agent = %q", gotUA)
	}
	if gotExtra != "yes" {
		t.Fatalf("extra header = %q", gotExtra)
	}
}

type pacerFunc func(ctx context.Context, host string) error

func (f pacerFunc) Wait(ctx context.Context, host string) error { return f(ctx, host) }

func TestFetchPageConsultsPacer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	var paced atomic.Int32
	f, err := NewHTTPFetcher(Options{MaxRetries: 1, RetryBackoff: time.Millisecond},
		pacerFunc(func(ctx context.Context, host string) error {
			paced.Add(1)
			return nil
		}), testLogger())
	if err != nil {
		t.Fatalf("NewHTTPFetcher: %v", err)
	}
	if _, err := f.FetchPage(context.Background(), srv.URL); err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if paced.Load() != 1 {
		t.Fatalf("pacer consulted %d times, want 1", paced.Load())
	}
}

type fakeRenderer struct {
	body []byte
	err  error
}

func (r fakeRenderer) Render(ctx context.Context, rawURL string) ([]byte, error) {
	return r.body, r.err
}

func TestCompositePrefersRenderer(t *testing.T) {
	c := NewComposite(nil, fakeRenderer{body: []byte("rendered")}, testLogger())
	body, err := c.FetchPage(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if string(body) != "rendered" {
		t.Fatalf("body = %q", body)
	}
}

func TestCompositeFallsBackToHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "plain")
	}))
	defer srv.Close()

	httpFetcher := newTestFetcher(t, Options{})
	c := NewComposite(httpFetcher, fakeRenderer{err: errors.New("no chrome")}, testLogger())
	body, err := c.FetchPage(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if string(body) != "plain" {
		t.Fatalf("body = %q", body)
	}
}
