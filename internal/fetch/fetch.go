// Package fetch implements the resilient page-fetch pipeline: rate limiter,
// then retry-wrapped circuit breaker around a single HTTP GET, then a
// content-type gate and an HTML parse.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/shopscan/shopscan/internal/breaker"
	"github.com/shopscan/shopscan/internal/cache"
	"github.com/shopscan/shopscan/internal/metrics"
	"github.com/shopscan/shopscan/internal/ratelimit"
	"github.com/shopscan/shopscan/internal/retry"
	urlutil "github.com/shopscan/shopscan/internal/utils/url"
)

// Config carries the per-session knobs for a Pipeline. Zero values fall
// back to the component defaults.
type Config struct {
	RequestsPerSecond float64
	BurstSize         int
	Timeout           time.Duration
	MaxRetries        int
	BackoffFactor     float64
	FailureThreshold  int
	RecoveryTimeout   time.Duration

	// UserAgent overrides the per-session pick from the built-in pool.
	UserAgent string
	// Headers are applied after the defaults and may override any of them.
	Headers map[string]string
	// Proxy is an optional proxy URL applied to the transport.
	Proxy string

	// PageCache enables the TTL'd LRU in front of the limiter when both
	// are positive.
	CacheSize int
	CacheTTL  time.Duration
}

// Pipeline fetches and parses one page at a time for a single crawl
// session. It owns the session's rate limiter and circuit breaker, which
// are mutable state and must never be shared with another session.
type Pipeline struct {
	client    *http.Client
	limiter   *ratelimit.Limiter
	breaker   *breaker.Breaker
	policy    *retry.Policy
	userAgent string
	headers   map[string]string
	pages     *cache.PageCache
	metrics   *metrics.Metrics
}

// New builds a session pipeline. The returned error is reserved for
// configuration problems such as an unparseable proxy URL.
func New(cfg Config, m *metrics.Metrics) (*Pipeline, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = pickUserAgent()
	}

	var pages *cache.PageCache
	if cfg.CacheSize > 0 && cfg.CacheTTL > 0 {
		pages = cache.New(cfg.CacheSize, cfg.CacheTTL)
	}

	p := &Pipeline{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		limiter:   ratelimit.New(cfg.RequestsPerSecond, cfg.BurstSize),
		breaker:   breaker.New(cfg.FailureThreshold, cfg.RecoveryTimeout),
		policy:    retry.New(cfg.MaxRetries, cfg.BackoffFactor),
		userAgent: ua,
		headers:   cfg.Headers,
		pages:     pages,
		metrics:   m,
	}
	return p, nil
}

// Fetch retrieves url and parses it into a document tree. Failures carry
// the pipeline taxonomy: *TransientError once retries are exhausted,
// breaker.ErrOpen when the upstream is being protected, *NonHTMLError and
// *StatusError for terminal per-URL conditions.
func (p *Pipeline) Fetch(ctx context.Context, rawURL string) (*goquery.Document, error) {
	if err := urlutil.ValidateURL(rawURL); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if p.pages != nil {
		if body, ok := p.pages.Get(rawURL); ok {
			return goquery.NewDocumentFromReader(bytes.NewReader(body))
		}
	}

	start := time.Now()

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var body []byte
	attempts := 0
	err := p.policy.Do(ctx, func() error {
		if attempts++; attempts > 1 {
			p.metrics.IncRetries()
		}
		b, err := p.doGet(ctx, rawURL)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		p.metrics.ObserveFetch(outcomeLabel(err), time.Since(start))
		if errors.Is(err, breaker.ErrOpen) {
			p.metrics.IncBreakerRejections()
		}
		log.Warn().Str("url", rawURL).Err(err).Msg("fetch failed")
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		p.metrics.ObserveFetch("parse_error", time.Since(start))
		return nil, fmt.Errorf("parsing %s: %w", rawURL, err)
	}

	if p.pages != nil {
		p.pages.Set(rawURL, body)
	}
	p.metrics.ObserveFetch("ok", time.Since(start))
	log.Debug().
		Str("url", rawURL).
		Dur("elapsed", time.Since(start)).
		Int("bytes", len(body)).
		Msg("fetched page")
	return doc, nil
}

// doGet performs one attempt: the GET runs under the circuit breaker, so
// transport failures and 429/5xx responses count toward opening it, while
// non-retryable statuses and content-type mismatches are classified after
// the breaker has already recorded a success.
func (p *Pipeline) doGet(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	p.applyHeaders(req)

	var resp *http.Response
	err = p.breaker.Do(func() error {
		r, err := p.client.Do(req)
		if err != nil {
			return &TransientError{URL: rawURL, Err: err}
		}
		if r.StatusCode == http.StatusTooManyRequests || r.StatusCode >= 500 {
			drain(r)
			return &TransientError{URL: rawURL, Status: r.StatusCode}
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: rawURL, Status: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTMLContentType(contentType) {
		io.Copy(io.Discard, resp.Body)
		return nil, &NonHTMLError{URL: rawURL, ContentType: contentType}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientError{URL: rawURL, Err: err}
	}
	return body, nil
}

func (p *Pipeline) applyHeaders(req *http.Request) {
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("DNT", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	// Caller headers win over anything above, including User-Agent.
	for key, value := range p.headers {
		req.Header.Set(key, value)
	}
}

// UserAgent returns the identity chosen for this session.
func (p *Pipeline) UserAgent() string {
	return p.userAgent
}

// BreakerState exposes the circuit state for coarse-grained callers.
func (p *Pipeline) BreakerState() breaker.State {
	return p.breaker.State()
}

// RetryPolicy exposes the policy so owners can tune its sleep behavior.
func (p *Pipeline) RetryPolicy() *retry.Policy {
	return p.policy
}

func isHTMLContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, breaker.ErrOpen):
		return "circuit_open"
	default:
		var nonHTML *NonHTMLError
		var status *StatusError
		if errors.As(err, &nonHTML) {
			return "non_html"
		}
		if errors.As(err, &status) {
			return "http_status"
		}
		return "transient"
	}
}

func drain(r *http.Response) {
	io.Copy(io.Discard, r.Body)
	r.Body.Close()
}
