package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/shopscan/shopscan/internal/app"
	"github.com/shopscan/shopscan/internal/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "shopscan",
	Short: "A resilient product scraper for e-commerce sites",
	Long: `Shopscan crawls e-commerce sites politely and extracts structured
product data. Fetches run through a rate limiter, circuit breaker and
retry pipeline so a struggling site is backed off rather than hammered.`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	config.RegisterFlags(rootCmd)

	// Initialize the application lazily so -h/--help never needs one.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if GetApp() != nil {
			return nil
		}
		cfg, err := config.Load(cmd)
		if err != nil {
			return err
		}
		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		SetApp(a)
		return nil
	}

	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		a := GetApp()
		if a == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), a.Config.HTTPTimeout)
		defer cancel()
		_ = a.Close(ctx)
		SetApp(nil)
	}
}
