// Package extract converts parsed product pages into Product records using
// ordered, site-aware selector fallback chains.
package extract

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	urlutil "github.com/shopscan/shopscan/internal/utils/url"
	"github.com/shopscan/shopscan/pkg/models"
)

// NoNameError reports a page where no selector in the name chain yielded
// valid text. A product without a name is not worth persisting, so this
// fails the entire extraction; every other field just degrades to absent.
type NoNameError struct {
	URL string
}

func (e *NoNameError) Error() string {
	return fmt.Sprintf("no product name found at %s", e.URL)
}

// Config bounds the extracted values.
type Config struct {
	DescriptionMaxLength int
	MaxImages            int
}

// Extractor runs the per-field extraction pipeline. Profiles are a
// read-only table keyed by normalized domain; when the page's domain has a
// profile defining a field, that selector is tried before the generic
// fallback chain for the field.
type Extractor struct {
	cfg      Config
	profiles map[string]models.SelectorProfile
}

// New creates an Extractor. Zero config values fall back to a 1000
// character description limit and 10 images.
func New(cfg Config, profiles map[string]models.SelectorProfile) *Extractor {
	if cfg.DescriptionMaxLength <= 0 {
		cfg.DescriptionMaxLength = 1000
	}
	if cfg.MaxImages <= 0 {
		cfg.MaxImages = 10
	}
	return &Extractor{cfg: cfg, profiles: profiles}
}

// Extract builds a Product from a parsed product page. pageURL must be the
// absolute URL the document was fetched from; it becomes the record's
// natural key and the base for resolving image links.
func (e *Extractor) Extract(doc *goquery.Document, pageURL string) (*models.Product, error) {
	profile := e.profileFor(pageURL)

	name := firstValidText(doc, e.chain(profile, models.FieldName, nameSelectors), 3)
	if name == "" {
		log.Warn().Str("url", pageURL).Msg("could not extract product name")
		return nil, &NoNameError{URL: pageURL}
	}

	product := &models.Product{
		Name:         name,
		URL:          pageURL,
		Price:        e.extractPrice(doc, profile),
		Description:  e.extractDescription(doc, profile),
		Rating:       e.extractRating(doc, profile),
		ReviewsCount: e.extractReviewsCount(doc, profile),
		Availability: firstValidText(doc, e.chain(profile, models.FieldAvailability, availabilitySelectors), 0),
		Brand:        firstValidText(doc, e.chain(profile, models.FieldBrand, brandSelectors), 0),
		Category:     firstValidText(doc, e.chain(profile, models.FieldCategory, categorySelectors), 0),
		ImageURLs:    e.extractImages(doc, profile, pageURL),
		ScrapedAt:    time.Now(),
	}

	log.Debug().
		Str("url", pageURL).
		Str("name", product.Name).
		Msg("extracted product")
	return product, nil
}

// chain prepends the profile's selector for field, when one exists, to the
// generic fallback chain.
func (e *Extractor) chain(profile models.SelectorProfile, field string, generic []string) []string {
	override, ok := profile[field]
	if !ok || override == "" {
		return generic
	}
	chain := make([]string, 0, len(generic)+1)
	chain = append(chain, override)
	return append(chain, generic...)
}

func (e *Extractor) profileFor(pageURL string) models.SelectorProfile {
	if len(e.profiles) == 0 {
		return nil
	}
	return e.profiles[urlutil.NormalizeDomain(pageURL)]
}

func (e *Extractor) extractPrice(doc *goquery.Document, profile models.SelectorProfile) *float64 {
	for _, selector := range e.chain(profile, models.FieldPrice, priceSelectors) {
		el := doc.Find(selector).First()
		if el.Length() == 0 {
			continue
		}
		// A machine-readable attribute beats whatever the text says.
		if attr, ok := el.Attr("data-price"); ok {
			if v, err := strconv.ParseFloat(strings.TrimSpace(attr), 64); err == nil && v >= 0 {
				return &v
			}
		}
		if v, ok := parsePrice(strings.TrimSpace(el.Text())); ok {
			return &v
		}
	}
	return nil
}

func (e *Extractor) extractDescription(doc *goquery.Document, profile models.SelectorProfile) string {
	text := firstValidText(doc, e.chain(profile, models.FieldDescription, descriptionSelectors), 10)
	return truncate(text, e.cfg.DescriptionMaxLength)
}

func (e *Extractor) extractRating(doc *goquery.Document, profile models.SelectorProfile) *float64 {
	for _, selector := range e.chain(profile, models.FieldRating, ratingSelectors) {
		el := doc.Find(selector).First()
		if el.Length() == 0 {
			continue
		}
		if attr, ok := el.Attr("data-rating"); ok {
			if v, err := strconv.ParseFloat(strings.TrimSpace(attr), 64); err == nil && v >= 0 && v <= 5 {
				return &v
			}
		}
		// Word ratings in class names ("star-rating Three") come before
		// free-text numbers, which are noisier.
		if class, ok := el.Attr("class"); ok {
			if v, ok := parseRatingWord(class); ok {
				return &v
			}
		}
		if v, ok := parseRatingText(strings.TrimSpace(el.Text())); ok {
			return &v
		}
	}
	return nil
}

func (e *Extractor) extractReviewsCount(doc *goquery.Document, profile models.SelectorProfile) *int {
	for _, selector := range e.chain(profile, models.FieldReviewsCount, reviewsCountSelectors) {
		el := doc.Find(selector).First()
		if el.Length() == 0 {
			continue
		}
		if v, ok := parseReviewCount(strings.TrimSpace(el.Text())); ok {
			return &v
		}
	}
	return nil
}

// extractImages collects src or lazy-load data-src attributes from every
// element the selector matches, not just the first, resolves them against
// the page URL, deduplicates, and caps the result.
func (e *Extractor) extractImages(doc *goquery.Document, profile models.SelectorProfile, pageURL string) []string {
	seen := make(map[string]struct{})
	var urls []string
	for _, selector := range e.chain(profile, models.FieldImages, imageSelectors) {
		doc.Find(selector).Each(func(_ int, img *goquery.Selection) {
			src, ok := img.Attr("src")
			if !ok || src == "" {
				src, ok = img.Attr("data-src")
				if !ok || src == "" {
					return
				}
			}
			abs := urlutil.ResolveURL(pageURL, src)
			if _, dup := seen[abs]; dup {
				return
			}
			seen[abs] = struct{}{}
			urls = append(urls, abs)
		})
	}
	if len(urls) > e.cfg.MaxImages {
		urls = urls[:e.cfg.MaxImages]
	}
	return urls
}

// firstValidText walks the chain and returns the trimmed text of the first
// element longer than minLen characters.
func firstValidText(doc *goquery.Document, selectors []string, minLen int) string {
	for _, selector := range selectors {
		el := doc.Find(selector).First()
		if el.Length() == 0 {
			continue
		}
		text := strings.TrimSpace(el.Text())
		if len(text) > minLen {
			return text
		}
	}
	return ""
}
