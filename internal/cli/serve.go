package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/shopscan/shopscan/internal/web"
	"github.com/shopscan/shopscan/pkg/models"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard and JSON API",
	Long: `Starts an HTTP server exposing the stored products, crawl job
control and Prometheus metrics. Scrape jobs submitted over the API run in
the background; their products are persisted to the configured database.`,
	Example: `  shopscan serve --listen :8080 --database-url postgres://localhost/shopscan`,
	Args:    cobra.NoArgs,
	RunE:    runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "listen", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a := GetApp()
	ctx := cmd.Context()

	st, err := a.EnsureStore(ctx)
	if err != nil {
		return err
	}

	crawl := func(ctx context.Context, startURL, pattern string, maxPages int) ([]*models.Product, error) {
		// Each job gets a fresh session so breaker state from one site
		// never bleeds into another.
		session, err := a.NewSession()
		if err != nil {
			return nil, err
		}
		products, err := session.ScrapeCategory(ctx, startURL, pattern, maxPages, 0, nil)
		if len(products) > 0 {
			if dbErr := st.UpsertProducts(ctx, products); dbErr != nil && err == nil {
				err = dbErr
			}
		}
		return products, err
	}

	addr := serveAddr
	if addr == "" {
		addr = a.Config.ListenAddr
	}

	server := web.NewServer(addr, st, web.NewJobManager(crawl), a.Metrics)
	return server.ListenAndServe(ctx)
}
