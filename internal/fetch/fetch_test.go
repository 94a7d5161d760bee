package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/shopscan/shopscan/internal/breaker"
)

func newTestPipeline(t *testing.T, cfg Config) *Pipeline {
	t.Helper()
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 1000
		cfg.BurstSize = 1000
	}
	p, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Backoff sleeps are recorded, not performed.
	p.policy.Sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return p
}

func TestFetchParsesHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><h1 class="product-title">Walnut Desk</h1></body></html>`)
	}))
	defer server.Close()

	p := newTestPipeline(t, Config{})

	doc, err := p.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := doc.Find("h1.product-title").Text(); got != "Walnut Desk" {
		t.Errorf("parsed title = %q", got)
	}
}

func TestFetchRejectsNonHTML(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"not": "html"}`)
	}))
	defer server.Close()

	p := newTestPipeline(t, Config{MaxRetries: 3})

	_, err := p.Fetch(context.Background(), server.URL)
	var nonHTML *NonHTMLError
	if !errors.As(err, &nonHTML) {
		t.Fatalf("got %v, want NonHTMLError", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("server hit %d times, non-HTML content must not be retried", n)
	}
	// Content-type mismatches are content problems, not upstream-health
	// problems: the breaker must not have recorded a failure.
	if p.breaker.Failures() != 0 {
		t.Errorf("breaker failures = %d, want 0", p.breaker.Failures())
	}
}

func TestFetchNonRetryableStatus(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	p := newTestPipeline(t, Config{MaxRetries: 3})

	_, err := p.Fetch(context.Background(), server.URL)
	var status *StatusError
	if !errors.As(err, &status) {
		t.Fatalf("got %v, want StatusError", err)
	}
	if status.Status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", status.Status)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("server hit %d times, 404 must not be retried", n)
	}
	if p.breaker.Failures() != 0 {
		t.Errorf("breaker failures = %d, want 0 (4xx is terminal, not an outage)", p.breaker.Failures())
	}
}

func TestFetchRetriesTransientStatus(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>recovered</body></html>`)
	}))
	defer server.Close()

	p := newTestPipeline(t, Config{MaxRetries: 3})

	doc, err := p.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch after transient failures: %v", err)
	}
	if got := doc.Find("body").Text(); got != "recovered" {
		t.Errorf("body = %q", got)
	}
	if n := atomic.LoadInt32(&hits); n != 3 {
		t.Errorf("server hit %d times, want 3", n)
	}
}

func TestFetchExhaustsRetries(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	p := newTestPipeline(t, Config{MaxRetries: 2})

	_, err := p.Fetch(context.Background(), server.URL)
	var transient *TransientError
	if !errors.As(err, &transient) {
		t.Fatalf("got %v, want TransientError", err)
	}
	if n := atomic.LoadInt32(&hits); n != 3 {
		t.Errorf("server hit %d times, want max_retries+1 = 3", n)
	}
}

func TestBreakerOpensAndRejects(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p := newTestPipeline(t, Config{
		MaxRetries:       2,
		FailureThreshold: 3,
		RecoveryTimeout:  time.Minute,
	})

	// Three failing attempts (1 try + 2 retries) open the circuit.
	if _, err := p.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("expected failure")
	}
	if got := p.BreakerState(); got != breaker.StateOpen {
		t.Fatalf("breaker state = %v, want open", got)
	}

	before := atomic.LoadInt32(&hits)
	_, err := p.Fetch(context.Background(), server.URL)
	if !errors.Is(err, breaker.ErrOpen) {
		t.Fatalf("got %v, want breaker.ErrOpen", err)
	}
	if after := atomic.LoadInt32(&hits); after != before {
		t.Errorf("open circuit must not reach the server (hits %d -> %d)", before, after)
	}
}

func TestHeaderIdentity(t *testing.T) {
	var gotUA, gotLang, gotCustom string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		gotCustom = r.Header.Get("X-Shop-Token")
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html></html>")
	}))
	defer server.Close()

	p := newTestPipeline(t, Config{
		Headers: map[string]string{
			"X-Shop-Token":    "secret",
			"Accept-Language": "de-DE",
		},
	})

	if _, err := p.Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotUA != p.UserAgent() {
		t.Errorf("User-Agent = %q, want session identity %q", gotUA, p.UserAgent())
	}
	if gotLang != "de-DE" {
		t.Errorf("caller headers must override defaults, got %q", gotLang)
	}
	if gotCustom != "secret" {
		t.Errorf("custom header missing, got %q", gotCustom)
	}
}

func TestUserAgentStablePerSession(t *testing.T) {
	seen := map[string]bool{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen[r.Header.Get("User-Agent")] = true
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html></html>")
	}))
	defer server.Close()

	p := newTestPipeline(t, Config{})
	for i := 0; i < 5; i++ {
		if _, err := p.Fetch(context.Background(), fmt.Sprintf("%s/p/%d", server.URL, i)); err != nil {
			t.Fatalf("Fetch %d: %v", i, err)
		}
	}
	if len(seen) != 1 {
		t.Errorf("user agent rotated mid-session: %v", seen)
	}
}

func TestFetchCachesPages(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><title>cached</title></html>")
	}))
	defer server.Close()

	p := newTestPipeline(t, Config{CacheSize: 8, CacheTTL: time.Minute})

	for i := 0; i < 3; i++ {
		doc, err := p.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Fetch %d: %v", i, err)
		}
		if doc.Find("title").Text() != "cached" {
			t.Fatalf("unexpected document on fetch %d", i)
		}
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("server hit %d times, want 1 (cache)", n)
	}
}

func TestFetchTransportError(t *testing.T) {
	p := newTestPipeline(t, Config{MaxRetries: 1})

	httpmock.ActivateNonDefault(p.client)
	defer httpmock.DeactivateAndReset()

	calls := 0
	httpmock.RegisterResponder(http.MethodGet, "https://flaky.example.com/p/1",
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("connection reset by peer")
			}
			resp := httpmock.NewStringResponse(http.StatusOK, "<html><body>ok</body></html>")
			resp.Header.Set("Content-Type", "text/html")
			return resp, nil
		})

	doc, err := p.Fetch(context.Background(), "https://flaky.example.com/p/1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if doc.Find("body").Text() != "ok" {
		t.Error("unexpected document after transport retry")
	}
	if calls != 2 {
		t.Errorf("transport called %d times, want 2", calls)
	}
}

func TestInvalidProxyFailsFast(t *testing.T) {
	_, err := New(Config{Proxy: "http://[::1]:namedport"}, nil)
	if err == nil {
		t.Error("expected construction error for invalid proxy URL")
	}
}
