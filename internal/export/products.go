package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopscan/shopscan/pkg/models"
)

var csvHeader = []string{
	"url", "name", "price", "rating", "reviews_count",
	"availability", "brand", "category", "image_urls", "scraped_at",
}

// WriteProductsCSV renders products as CSV with a fixed header row.
// Optional fields are left empty rather than zeroed so a missing price is
// distinguishable from a free product.
func WriteProductsCSV(w io.Writer, products []*models.Product) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, p := range products {
		row := []string{
			p.URL,
			p.Name,
			formatFloat(p.Price),
			formatFloat(p.Rating),
			formatInt(p.ReviewsCount),
			p.Availability,
			p.Brand,
			p.Category,
			strings.Join(p.ImageURLs, " "),
			p.ScrapedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteProductsNDJSON renders one JSON object per line, suitable for
// streaming into downstream tooling.
func WriteProductsNDJSON(w io.Writer, products []*models.Product) error {
	enc := json.NewEncoder(w)
	for _, p := range products {
		if err := enc.Encode(p); err != nil {
			return err
		}
	}
	return nil
}

// WriteProductsJSON renders the full slice as one indented JSON array.
func WriteProductsJSON(w io.Writer, products []*models.Product) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(products)
}

// SaveProducts writes products to path in the format implied by its
// extension: .csv, .ndjson or .json.
func SaveProducts(products []*models.Product, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	switch {
	case strings.HasSuffix(path, ".csv"):
		return WriteProductsCSV(file, products)
	case strings.HasSuffix(path, ".ndjson"), strings.HasSuffix(path, ".jsonl"):
		return WriteProductsNDJSON(file, products)
	case strings.HasSuffix(path, ".json"):
		return WriteProductsJSON(file, products)
	}
	return fmt.Errorf("unsupported export format: %s", path)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
