package extract

// Generic per-field fallback chains, ordered from most to least specific.
// Extraction reliability depends on these exact priorities: a site profile
// may prepend one selector per field, but the chains themselves must not
// be reordered or deduplicated.

var nameSelectors = []string{
	`h1[data-product-name]`,
	`h1.product-title`,
	`h1.product-name`,
	`.product-title h1`,
	`.product-name h1`,
	`h1`,
	`[data-testid="product-name"]`,
	`.pdp-title`,
}

var priceSelectors = []string{
	`[data-testid="price"]`,
	`.price-current`,
	`.price-now`,
	`.product-price`,
	`.price`,
	`.current-price`,
	`.sale-price`,
	`[data-price]`,
}

var descriptionSelectors = []string{
	`[data-testid="product-description"]`,
	`.product-description`,
	`.product-details`,
	`.product-info`,
	`.description`,
	`.product-overview`,
}

var ratingSelectors = []string{
	`[data-testid="rating"]`,
	`.rating-value`,
	`.star-rating`,
	`.rating`,
	`.review-rating`,
}

var reviewsCountSelectors = []string{
	`[data-testid="reviews-count"]`,
	`.reviews-count`,
	`.review-count`,
	`.rating-count`,
}

var availabilitySelectors = []string{
	`[data-testid="availability"]`,
	`.availability`,
	`.stock-status`,
	`.product-availability`,
}

var brandSelectors = []string{
	`[data-testid="brand"]`,
	`.brand`,
	`.product-brand`,
	`.manufacturer`,
}

var categorySelectors = []string{
	`[data-testid="category"]`,
	`.breadcrumb`,
	`.category`,
	`.product-category`,
}

var imageSelectors = []string{
	`.product-image img`,
	`.product-photos img`,
	`.product-gallery img`,
	`[data-testid="product-image"] img`,
}
