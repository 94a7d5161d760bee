package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shopscan/shopscan/internal/ui"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the stored product catalog",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	a := GetApp()
	ctx := cmd.Context()

	st, err := a.EnsureStore(ctx)
	if err != nil {
		return err
	}
	stats, err := st.Stats(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%d\n", ui.Bold("products"), stats.Products)
	fmt.Fprintf(w, "%s\t%d\n", ui.Bold("brands"), stats.Brands)
	if stats.AveragePrice != nil {
		fmt.Fprintf(w, "%s\t%.2f\n", ui.Bold("avg price"), *stats.AveragePrice)
	}
	if stats.AverageRating != nil {
		fmt.Fprintf(w, "%s\t%.2f\n", ui.Bold("avg rating"), *stats.AverageRating)
	}
	if stats.LastScrapedAt != nil {
		fmt.Fprintf(w, "%s\t%s\n", ui.Bold("last scraped"), stats.LastScrapedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}
