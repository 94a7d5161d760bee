package scraper

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shopscan/shopscan/internal/breaker"
	"github.com/shopscan/shopscan/internal/discover"
	"github.com/shopscan/shopscan/internal/extract"
	"github.com/shopscan/shopscan/internal/fetch"
	"github.com/shopscan/shopscan/internal/metrics"
	"github.com/shopscan/shopscan/pkg/models"
)

// Session ties the fetch pipeline, URL discovery and product extraction
// together for one crawl. Limiter and breaker state live inside the
// pipeline, so a Session must not be shared across independent crawls.
type Session struct {
	pipeline  *fetch.Pipeline
	discovery *discover.Discovery
	extractor *extract.Extractor
	metrics   *metrics.Metrics
}

// Progress is called after every attempted product URL in a category crawl.
type Progress func(done, total int)

func New(fetchCfg fetch.Config, extractCfg extract.Config, profiles map[string]models.SelectorProfile, m *metrics.Metrics) (*Session, error) {
	pipeline, err := fetch.New(fetchCfg, m)
	if err != nil {
		return nil, err
	}
	return &Session{
		pipeline:  pipeline,
		discovery: discover.New(pipeline),
		extractor: extract.New(extractCfg, profiles),
		metrics:   m,
	}, nil
}

// Pipeline exposes the session's fetch pipeline for callers that need the
// negotiated identity, e.g. the image downloader reusing the User-Agent.
func (s *Session) Pipeline() *fetch.Pipeline {
	return s.pipeline
}

// ScrapeProduct fetches a single product page and extracts its fields.
func (s *Session) ScrapeProduct(ctx context.Context, url string) (*models.Product, error) {
	doc, err := s.pipeline.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	product, err := s.extractor.Extract(doc, url)
	if err != nil {
		s.metrics.IncExtractionFailures()
		return nil, err
	}
	s.metrics.IncProducts()
	log.Info().Str("url", url).Str("name", product.Name).Msg("scraped product")
	return product, nil
}

// DiscoverProducts walks a paginated listing starting at startURL and
// returns the product URLs it finds, in first-seen order.
func (s *Session) DiscoverProducts(ctx context.Context, startURL, pattern string, maxPages int) ([]string, error) {
	return s.discovery.Discover(ctx, startURL, pattern, maxPages)
}

// ScrapeCategory discovers product URLs under startURL and scrapes each
// one. Individual product failures are skipped so one broken page cannot
// sink the batch; an open circuit breaker aborts the remainder, since
// every further fetch against the same host would be rejected anyway.
// The partial result is returned alongside the abort error.
func (s *Session) ScrapeCategory(ctx context.Context, startURL, pattern string, maxPages, maxProducts int, progress Progress) ([]*models.Product, error) {
	urls, err := s.DiscoverProducts(ctx, startURL, pattern, maxPages)
	if err != nil {
		return nil, err
	}
	if maxProducts > 0 && len(urls) > maxProducts {
		urls = urls[:maxProducts]
	}
	log.Info().Int("urls", len(urls)).Str("start", startURL).Msg("starting category crawl")
	return s.ScrapeURLs(ctx, urls, progress)
}

// ScrapeURLs scrapes an explicit list of product URLs with the same
// skip-and-continue semantics as ScrapeCategory.
func (s *Session) ScrapeURLs(ctx context.Context, urls []string, progress Progress) ([]*models.Product, error) {
	products := make([]*models.Product, 0, len(urls))
	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			return products, err
		}

		product, err := s.ScrapeProduct(ctx, u)
		if progress != nil {
			progress(i+1, len(urls))
		}
		if err != nil {
			if errors.Is(err, breaker.ErrOpen) {
				log.Error().Str("url", u).Msg("circuit breaker open, aborting crawl")
				return products, err
			}
			log.Warn().Str("url", u).Err(err).Msg("skipping product")
			continue
		}
		products = append(products, product)
	}
	return products, nil
}

// FetchPage retrieves an arbitrary page without product extraction, for
// raw page export.
func (s *Session) FetchPage(ctx context.Context, url string) (*models.Page, error) {
	doc, err := s.pipeline.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	html, err := doc.Html()
	if err != nil {
		return nil, err
	}
	return &models.Page{
		URL:       url,
		Title:     strings.TrimSpace(doc.Find("title").First().Text()),
		Content:   strings.TrimSpace(doc.Find("body").Text()),
		HTML:      html,
		FetchedAt: time.Now(),
	}, nil
}
