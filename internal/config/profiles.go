package config

import "github.com/shopscan/shopscan/pkg/models"

// BuiltinProfiles returns the selector overrides shipped for well-known
// storefronts, keyed by bare domain (no scheme, no www prefix). Each
// profile entry is tried before the generic fallback chain for its field.
func BuiltinProfiles() map[string]models.SelectorProfile {
	return map[string]models.SelectorProfile{
		"amazon.com": {
			models.FieldName:         "#productTitle",
			models.FieldPrice:        ".a-price-whole",
			models.FieldDescription:  "#feature-bullets ul",
			models.FieldRating:       ".a-icon-alt",
			models.FieldReviewsCount: "#acrCustomerReviewText",
			models.FieldAvailability: "#availability span",
			models.FieldBrand:        "#bylineInfo",
			models.FieldCategory:     ".a-breadcrumb",
			models.FieldImages:       "#altImages img",
		},
		"ebay.com": {
			models.FieldName:         "#it-ttl",
			models.FieldPrice:        ".notranslate",
			models.FieldDescription:  "#desc_div",
			models.FieldRating:       ".reviews .star-rating",
			models.FieldReviewsCount: ".reviews .review-count",
			models.FieldAvailability: "#qtySubTxt",
			models.FieldBrand:        "#x-ebay-brand",
			models.FieldCategory:     ".breadcrumb",
			models.FieldImages:       "#PicturePanel img",
		},
		"etsy.com": {
			models.FieldName:         `[data-testid="product-title"]`,
			models.FieldPrice:        `[data-testid="price"]`,
			models.FieldDescription:  `[data-testid="product-description"]`,
			models.FieldRating:       `[data-testid="rating"]`,
			models.FieldReviewsCount: `[data-testid="reviews-count"]`,
			models.FieldAvailability: `[data-testid="availability"]`,
			models.FieldBrand:        `[data-testid="shop-name"]`,
			models.FieldCategory:     ".breadcrumb",
			models.FieldImages:       `[data-testid="product-image"] img`,
		},
	}
}
