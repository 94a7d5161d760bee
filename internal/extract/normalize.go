package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	decimalRe  = regexp.MustCompile(`\d+(?:\.\d+)?`)
	integerRe  = regexp.MustCompile(`\d+`)
	starWordRe = regexp.MustCompile(`\b(One|Two|Three|Four|Five)\b`)

	// Thousands separators and the currency symbols seen in practice.
	priceCleaner = strings.NewReplacer(",", "", "$", "", "£", "", "€", "", "¥", "")
)

var starWords = map[string]float64{
	"One":   1,
	"Two":   2,
	"Three": 3,
	"Four":  4,
	"Five":  5,
}

// parsePrice strips separators and currency symbols from raw element text
// and takes the first numeric substring as the price.
func parsePrice(text string) (float64, bool) {
	cleaned := priceCleaner.Replace(text)
	match := decimalRe.FindString(cleaned)
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// parseRatingWord maps a One..Five word in an element's class attribute
// (e.g. "star-rating Three") to its numeric rating.
func parseRatingWord(classAttr string) (float64, bool) {
	match := starWordRe.FindString(classAttr)
	if match == "" {
		return 0, false
	}
	return starWords[match], true
}

// parseRatingText scans element text for the first number and accepts it
// only inside [0, 5]; anything outside that range is far more likely a
// price or an ID that happened to match.
func parseRatingText(text string) (float64, bool) {
	match := decimalRe.FindString(text)
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil || v < 0 || v > 5 {
		return 0, false
	}
	return v, true
}

// parseReviewCount strips thousands separators and takes the first integer
// substring.
func parseReviewCount(text string) (int, bool) {
	cleaned := strings.ReplaceAll(text, ",", "")
	match := integerRe.FindString(cleaned)
	if match == "" {
		return 0, false
	}
	v, err := strconv.Atoi(match)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// truncate limits s to max characters, not bytes, so multi-byte runes
// survive the cut.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
