package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shopscan/shopscan/internal/export"
	"github.com/shopscan/shopscan/internal/ui"
	"github.com/shopscan/shopscan/pkg/models"
)

var pageOutput string

var pageCmd = &cobra.Command{
	Use:   "page <url>",
	Short: "Fetch a single page and export its content",
	Long: `Fetches any page through the polite pipeline and exports it in the
format implied by the output extension: .md (Markdown conversion), .html
(sanitized excerpt) or .json (metadata plus text content). Without
--output, the page text is printed to stdout.`,
	Example: `  shopscan page https://shop.example.com/size-guide -o guide.md`,
	Args:    cobra.ExactArgs(1),
	RunE:    runPage,
}

func init() {
	rootCmd.AddCommand(pageCmd)

	pageCmd.Flags().StringVarP(&pageOutput, "output", "o", "", "Output file (.md, .html, .json)")
}

func runPage(cmd *cobra.Command, args []string) error {
	a := GetApp()

	session, err := a.NewSession()
	if err != nil {
		return err
	}

	page, err := session.FetchPage(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if pageOutput == "" {
		fmt.Println(page.Content)
		return nil
	}

	if err := savePage(page, pageOutput); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, ui.Success("wrote "+pageOutput))
	return nil
}

func savePage(page *models.Page, path string) error {
	switch {
	case strings.HasSuffix(path, ".md"):
		return export.SavePageMarkdown(page, path)
	case strings.HasSuffix(path, ".html"):
		return export.SavePageHTML(page, path)
	case strings.HasSuffix(path, ".json"):
		return export.SavePageJSON(page, path)
	}
	return fmt.Errorf("unsupported page format: %s", path)
}
