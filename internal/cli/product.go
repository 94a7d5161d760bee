package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shopscan/shopscan/internal/export"
	"github.com/shopscan/shopscan/internal/ui"
	headerutil "github.com/shopscan/shopscan/internal/utils/headers"
	"github.com/shopscan/shopscan/pkg/models"
)

var (
	productOutput  string
	productSave    bool
	productHeaders []string
)

var productCmd = &cobra.Command{
	Use:   "product <url>",
	Short: "Scrape a single product page",
	Example: `  # Scrape one product, print JSON
  shopscan product https://shop.example.com/product/walnut-desk

  # Add a custom header and persist the result
  shopscan product https://shop.example.com/product/walnut-desk -H "Accept-Language: de" --save`,
	Args: cobra.ExactArgs(1),
	RunE: runProduct,
}

func init() {
	rootCmd.AddCommand(productCmd)

	productCmd.Flags().StringVarP(&productOutput, "output", "o", "", "Write the product to a file (.json, .csv, .ndjson)")
	productCmd.Flags().BoolVar(&productSave, "save", false, "Persist the product to the configured database")
	productCmd.Flags().StringArrayVarP(&productHeaders, "header", "H", nil, `Custom headers (e.g., -H "Accept-Language: de")`)
}

func runProduct(cmd *cobra.Command, args []string) error {
	a := GetApp()
	ctx := cmd.Context()

	if len(productHeaders) > 0 {
		extra := headerutil.ParseHeaders(productHeaders)
		if a.Config.Headers == nil {
			a.Config.Headers = extra
		} else {
			for k, v := range extra {
				a.Config.Headers[k] = v
			}
		}
	}

	session, err := a.NewSession()
	if err != nil {
		return err
	}

	product, err := session.ScrapeProduct(ctx, args[0])
	if err != nil {
		return err
	}

	if productSave {
		st, err := a.EnsureStore(ctx)
		if err != nil {
			return err
		}
		if err := st.UpsertProduct(ctx, product); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, ui.Success("saved "+product.Name))
	}

	if productOutput != "" {
		if err := export.SaveProducts([]*models.Product{product}, productOutput); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, ui.Success("wrote "+productOutput))
		return nil
	}

	printProduct(product)
	return nil
}

func printProduct(p *models.Product) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(p)

	if len(p.ImageURLs) > 0 {
		fmt.Fprintln(os.Stderr, ui.Dim(fmt.Sprintf("%d images: %s",
			len(p.ImageURLs), strings.Join(p.ImageURLs[:1], ""))))
	}
}
