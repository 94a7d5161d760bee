package models

import "time"

// Product is the canonical record extracted from a single product page.
// It is constructed once per successful extraction and never mutated
// afterwards; the store upserts it by URL.
type Product struct {
	Name         string    `json:"name"`
	Price        *float64  `json:"price,omitempty"`
	URL          string    `json:"url"`
	Description  string    `json:"description,omitempty"`
	Rating       *float64  `json:"rating,omitempty"`
	ReviewsCount *int      `json:"reviews_count,omitempty"`
	Availability string    `json:"availability,omitempty"`
	Brand        string    `json:"brand,omitempty"`
	Category     string    `json:"category,omitempty"`
	ImageURLs    []string  `json:"image_urls,omitempty"`
	ScrapedAt    time.Time `json:"scraped_at"`
}

// Logical field names used by selector profiles and the extraction pipeline.
const (
	FieldName         = "name"
	FieldPrice        = "price"
	FieldDescription  = "description"
	FieldRating       = "rating"
	FieldReviewsCount = "reviews_count"
	FieldAvailability = "availability"
	FieldBrand        = "brand"
	FieldCategory     = "category"
	FieldImages       = "images"
)

// ProfileFields enumerates every field key a selector profile may define.
var ProfileFields = []string{
	FieldName,
	FieldPrice,
	FieldDescription,
	FieldRating,
	FieldReviewsCount,
	FieldAvailability,
	FieldBrand,
	FieldCategory,
	FieldImages,
}

// SelectorProfile maps a logical field name to a site-specific CSS selector.
// Profiles are keyed by normalized domain (lowercased, "www." stripped) and
// are read-only once loaded.
type SelectorProfile map[string]string

// Page holds the raw result of fetching an arbitrary URL, used by the
// page command and its export writers.
type Page struct {
	URL       string    `json:"url"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content,omitempty"`
	HTML      string    `json:"html,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}
