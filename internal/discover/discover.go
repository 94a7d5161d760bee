// Package discover walks paginated listing pages and collects candidate
// product URLs.
package discover

import (
	"context"
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/shopscan/shopscan/internal/fetch"
	urlutil "github.com/shopscan/shopscan/internal/utils/url"
)

// productLinkSelectors are generic "looks like a product link" patterns,
// tried in order on every listing page. The order is deliberate, from
// URL-shape heuristics to common markup classes; keep it as-is.
var productLinkSelectors = []string{
	`a[href*="/product/"]`,
	`a[href*="/item/"]`,
	`a[href*="/p/"]`,
	`a[href*="/catalogue/"]`,
	`.product-link`,
	`.product-item a`,
	`.product-card a`,
	`[data-product-id] a`,
	`h3 a`,
}

// nextPageSelectors locate the pagination link, most explicit first.
var nextPageSelectors = []string{
	`a[rel="next"]`,
	`a:contains("Next")`,
	`a:contains(">")`,
	`.pagination .next a`,
	`.pager-next a`,
}

// Discovery drives a fetch pipeline across a paginated listing.
type Discovery struct {
	pipeline *fetch.Pipeline
}

// New creates a Discovery over the given session pipeline.
func New(p *fetch.Pipeline) *Discovery {
	return &Discovery{pipeline: p}
}

// Discover crawls up to maxPages listing pages starting at startURL and
// returns the unique product URLs found, in first-seen order. A non-empty
// pattern keeps only URLs it matches (compiled as a regular expression, so
// plain substrings work too); an invalid pattern is a configuration error
// and fails immediately.
//
// A fetch failure mid-pagination ends the crawl and returns the partial
// result with a nil error: a crawl that found some URLs before failing is
// a successful partial crawl, not a failed one.
func (d *Discovery) Discover(ctx context.Context, startURL, pattern string, maxPages int) ([]string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := urlutil.ValidateURL(startURL); err != nil {
		return nil, err
	}
	if maxPages <= 0 {
		maxPages = 10
	}

	var re *regexp.Regexp
	if pattern != "" {
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
	}

	var found []string
	current := startURL
	for page := 0; page < maxPages; page++ {
		if ctx.Err() != nil {
			log.Warn().Str("url", current).Msg("discovery cancelled between pages")
			break
		}

		doc, err := d.pipeline.Fetch(ctx, current)
		if err != nil {
			log.Warn().
				Str("url", current).
				Int("page", page+1).
				Err(err).
				Msg("listing fetch failed, returning partial result")
			break
		}

		links := productLinks(doc, current, re)
		found = append(found, links...)
		log.Debug().
			Str("url", current).
			Int("page", page+1).
			Int("links", len(links)).
			Msg("scanned listing page")

		next := nextPage(doc, current)
		if next == "" {
			break
		}
		if next == current {
			// A self-referencing "next" link would loop forever.
			log.Debug().Str("url", current).Msg("pagination points at itself, stopping")
			break
		}
		current = next
	}

	unique := dedupe(found)
	log.Info().
		Str("start_url", startURL).
		Int("unique_urls", len(unique)).
		Msg("discovery finished")
	return unique, nil
}

// productLinks scans one page with the selector chain, resolving every
// candidate against the page's own URL. A page with zero matches is fine;
// pagination continues regardless.
func productLinks(doc *goquery.Document, pageURL string, re *regexp.Regexp) []string {
	var urls []string
	for _, selector := range productLinkSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			href, ok := s.Attr("href")
			if !ok || href == "" {
				return
			}
			abs := urlutil.ResolveURL(pageURL, href)
			if re != nil && !re.MatchString(abs) {
				return
			}
			urls = append(urls, abs)
		})
	}
	return urls
}

func nextPage(doc *goquery.Document, pageURL string) string {
	for _, selector := range nextPageSelectors {
		link := doc.Find(selector).First()
		if href, ok := link.Attr("href"); ok && href != "" {
			return urlutil.ResolveURL(pageURL, href)
		}
	}
	return ""
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	unique := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		unique = append(unique, u)
	}
	return unique
}
