package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shopscan/shopscan/internal/downloader"
	"github.com/shopscan/shopscan/internal/ui"
)

var imagesDir string

var imagesCmd = &cobra.Command{
	Use:   "images <product-url>",
	Short: "Download the images of a product page",
	Long: `Scrapes a product page and downloads its gallery images into a local
directory, reusing the crawl session's browser identity for the image
requests.`,
	Example: `  shopscan images https://shop.example.com/product/walnut-desk -d ./desk-images`,
	Args:    cobra.ExactArgs(1),
	RunE:    runImages,
}

func init() {
	rootCmd.AddCommand(imagesCmd)

	imagesCmd.Flags().StringVarP(&imagesDir, "dir", "d", "images", "Directory to download images into")
}

func runImages(cmd *cobra.Command, args []string) error {
	a := GetApp()
	ctx := cmd.Context()

	session, err := a.NewSession()
	if err != nil {
		return err
	}

	product, err := session.ScrapeProduct(ctx, args[0])
	if err != nil {
		return err
	}
	if len(product.ImageURLs) == 0 {
		return fmt.Errorf("no images found on %s", args[0])
	}

	d := downloader.New(a.Config.HTTPTimeout, session.Pipeline().UserAgent(), a.Config.ImageConcurrency)
	results := d.DownloadAll(ctx, product.ImageURLs, imagesDir)

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintln(os.Stderr, ui.Error(fmt.Sprintf("%s: %v", r.URL, r.Err)))
			continue
		}
		fmt.Fprintln(os.Stderr, ui.Dim(fmt.Sprintf("%s (%d bytes)", r.FilePath, r.Size)))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", failed, len(results))
	}
	fmt.Fprintln(os.Stderr, ui.Success(fmt.Sprintf("downloaded %d images to %s", len(results), imagesDir)))
	return nil
}
