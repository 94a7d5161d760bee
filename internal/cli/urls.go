package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	urlsPattern  string
	urlsMaxPages int
)

var urlsCmd = &cobra.Command{
	Use:   "urls <listing-url>",
	Short: "List product URLs discovered under a category listing",
	Long: `Walks a paginated listing and prints the product URLs it finds, one
per line, without fetching the product pages themselves. Useful for
checking what a crawl would cover before running it.`,
	Args: cobra.ExactArgs(1),
	RunE: runURLs,
}

func init() {
	rootCmd.AddCommand(urlsCmd)

	urlsCmd.Flags().StringVarP(&urlsPattern, "pattern", "p", "", "Regex filter for discovered product URLs")
	urlsCmd.Flags().IntVar(&urlsMaxPages, "max-pages", 0, "Maximum listing pages to follow (default from config)")
}

func runURLs(cmd *cobra.Command, args []string) error {
	a := GetApp()

	session, err := a.NewSession()
	if err != nil {
		return err
	}

	maxPages := urlsMaxPages
	if maxPages <= 0 {
		maxPages = a.Config.MaxPages
	}

	urls, err := session.DiscoverProducts(cmd.Context(), args[0], urlsPattern, maxPages)
	if err != nil {
		return err
	}
	for _, u := range urls {
		fmt.Println(u)
	}
	return nil
}
