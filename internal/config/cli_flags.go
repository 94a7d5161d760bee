package config

import "github.com/spf13/cobra"

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress all output except errors")
	cmd.PersistentFlags().Bool("json-log", false, "Emit structured JSON logs")
	cmd.PersistentFlags().String("proxy", "", "HTTP/SOCKS5 proxy (e.g., http://localhost:8080)")
	cmd.PersistentFlags().String("timeout", "", "Hard timeout for requests (e.g., 30s)")
	cmd.PersistentFlags().Float64("rate", 0, "Requests per second against the target site")
	cmd.PersistentFlags().String("user-agent", "", "Custom user agent string")
	cmd.PersistentFlags().String("database-url", "", "Postgres DSN for persisting products")
	cmd.PersistentFlags().String("config", "", "Path to JSON configuration file")
}
