package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shopscan/shopscan/internal/export"
	"github.com/shopscan/shopscan/internal/ui"
	"github.com/shopscan/shopscan/pkg/models"
)

var (
	exportSearch string
	exportLimit  int
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export stored products to a file",
	Long: `Reads products from the configured database and writes them to the
given file. The format follows the file extension: .csv, .ndjson (one
JSON object per line) or .json.`,
	Example: `  shopscan export products.csv
  shopscan export desks.ndjson --search desk --limit 200`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportSearch, "search", "", "Only export products matching this term")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 1000, "Maximum number of products to export")
}

func runExport(cmd *cobra.Command, args []string) error {
	a := GetApp()
	ctx := cmd.Context()

	st, err := a.EnsureStore(ctx)
	if err != nil {
		return err
	}

	var products []*models.Product
	if exportSearch != "" {
		products, err = st.Search(ctx, exportSearch, exportLimit)
	} else {
		products, err = st.List(ctx, exportLimit, 0)
	}
	if err != nil {
		return err
	}
	if len(products) == 0 {
		return fmt.Errorf("no products to export")
	}

	if err := export.SaveProducts(products, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, ui.Success(fmt.Sprintf("exported %d products to %s", len(products), args[0])))
	return nil
}
