package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/shopscan/shopscan/internal/export"
	"github.com/shopscan/shopscan/internal/ui"
	"github.com/shopscan/shopscan/pkg/models"
)

var (
	crawlPattern     string
	crawlMaxPages    int
	crawlMaxProducts int
	crawlOutput      string
	crawlSave        bool
	crawlNoProgress  bool
	crawlFromFile    string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl <listing-url>",
	Short: "Discover and scrape every product under a category listing",
	Long: `Walks a paginated listing page, collects product URLs, and scrapes
each product. Broken product pages are skipped; if the target site keeps
failing and the circuit breaker opens, the crawl stops with the partial
result instead of hammering the site.

With --from-file, discovery is skipped and product URLs are read from the
given file instead, one per line.`,
	Example: `  # Crawl a category, print products as JSON
  shopscan crawl https://shop.example.com/desks

  # Keep only URLs matching a pattern, follow up to 5 listing pages
  shopscan crawl https://shop.example.com/desks --pattern "/product/" --max-pages 5

  # Write results to a file and persist them to Postgres
  shopscan crawl https://shop.example.com/desks -o desks.csv --save

  # Scrape a prepared list of product URLs
  shopscan crawl --from-file urls.txt --save`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().StringVarP(&crawlPattern, "pattern", "p", "", "Regex filter for discovered product URLs")
	crawlCmd.Flags().IntVar(&crawlMaxPages, "max-pages", 0, "Maximum listing pages to follow (default from config)")
	crawlCmd.Flags().IntVar(&crawlMaxProducts, "max-products", 0, "Stop after this many products (0 = no cap)")
	crawlCmd.Flags().StringVarP(&crawlOutput, "output", "o", "", "Write products to a file (.json, .csv, .ndjson)")
	crawlCmd.Flags().BoolVar(&crawlSave, "save", false, "Persist products to the configured database")
	crawlCmd.Flags().BoolVar(&crawlNoProgress, "no-progress", false, "Disable the progress bar")
	crawlCmd.Flags().StringVar(&crawlFromFile, "from-file", "", "Read product URLs from a file instead of discovering them")
}

// readURLFile returns the non-blank lines of the file at path.
func readURLFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var urls []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			urls = append(urls, line)
		}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("no URLs found in %s", path)
	}
	return urls, nil
}

func runCrawl(cmd *cobra.Command, args []string) error {
	a := GetApp()
	ctx := cmd.Context()

	if crawlFromFile == "" && len(args) == 0 {
		return fmt.Errorf("a listing URL or --from-file is required")
	}

	session, err := a.NewSession()
	if err != nil {
		return err
	}

	maxPages := crawlMaxPages
	if maxPages <= 0 {
		maxPages = a.Config.MaxPages
	}

	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if bar == nil && !crawlNoProgress {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("scraping"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		if bar != nil {
			bar.Set(done)
		}
	}

	var products []*models.Product
	var crawlErr error
	if crawlFromFile != "" {
		urls, err := readURLFile(crawlFromFile)
		if err != nil {
			return err
		}
		if crawlMaxProducts > 0 && len(urls) > crawlMaxProducts {
			urls = urls[:crawlMaxProducts]
		}
		products, crawlErr = session.ScrapeURLs(ctx, urls, progress)
	} else {
		products, crawlErr = session.ScrapeCategory(ctx, args[0], crawlPattern, maxPages, crawlMaxProducts, progress)
	}
	if bar != nil {
		bar.Finish()
	}
	if crawlErr != nil && len(products) == 0 {
		return crawlErr
	}
	if crawlErr != nil {
		log.Warn().Err(crawlErr).Int("products", len(products)).Msg("crawl ended early")
	}

	if crawlSave {
		st, err := a.EnsureStore(ctx)
		if err != nil {
			return err
		}
		if err := st.UpsertProducts(ctx, products); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, ui.Success(fmt.Sprintf("saved %d products", len(products))))
	}

	if crawlOutput != "" {
		if err := export.SaveProducts(products, crawlOutput); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, ui.Success("wrote "+crawlOutput))
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(products)
}
