// crossasset compares macro-economic series against asset prices.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seenimoa/crossasset/internal/config"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "crossasset",
	Short: "Compare money supply, inflation and rates against asset prices",
	Long: `crossasset fetches macro series from FRED and asset prices from Yahoo
Finance, aligns them on one daily axis and answers how assets moved against
the money they are priced in: rebased charts, lead/lag correlation,
regression, an inflation leaderboard and purchasing power.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/crossasset.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(storiesCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(correlateCmd)
	rootCmd.AddCommand(rollingCmd)
	rootCmd.AddCommand(scatterCmd)
	rootCmd.AddCommand(sensitivityCmd)
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(powerCmd)
	rootCmd.AddCommand(serveCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("crossasset %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and upstream settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "═══════════════════════════════════════")
		fmt.Fprintln(out, "  crossasset: system status")
		fmt.Fprintln(out, "═══════════════════════════════════════")
		fmt.Fprintf(out, "  Version:       %s (%s)\n", version, commit)
		if cfg.File != "" {
			fmt.Fprintf(out, "  Config file:   %s\n", cfg.File)
		} else {
			fmt.Fprintln(out, "  Config file:   (defaults)")
		}
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  Upstreams:")
		fmt.Fprintf(out, "    FRED:          %s\n", cfg.Fetch.FredBaseURL)
		fmt.Fprintf(out, "    Yahoo:         %s\n", cfg.Fetch.YahooBaseURL)
		fmt.Fprintf(out, "    Timeout:       %s per series, %d retry\n", cfg.Fetch.Timeout, cfg.Fetch.Retries)
		fmt.Fprintf(out, "    Concurrency:   %d (rate limit %d/s)\n", cfg.Fetch.Concurrency, cfg.Fetch.RateLimit)
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  Cache:")
		fmt.Fprintf(out, "    TTL:           %s\n", cfg.Cache.TTL)
		if cfg.Cache.RedisAddr != "" {
			fmt.Fprintf(out, "    Redis:         %s (db %d)\n", cfg.Cache.RedisAddr, cfg.Cache.RedisDB)
		} else {
			fmt.Fprintln(out, "    Redis:         disabled")
		}
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  Catalog:")
		fmt.Fprintf(out, "    Macro series:  %d\n", len(cat.Macro))
		fmt.Fprintf(out, "    Assets:        %d\n", len(cat.Assets))
		fmt.Fprintf(out, "    Stories:       %d\n", len(cat.Stories))
		fmt.Fprintf(out, "    API Server:    %s\n", cfg.API.Addr())
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  Secrets:")
		for _, k := range config.CheckSecrets(cfg) {
			status := "not set"
			if k.IsSet {
				status = fmt.Sprintf("set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Fprintf(out, "    %-25s %s\n", k.Name+":", status)
		}

		fmt.Fprintln(out, "═══════════════════════════════════════")
		return nil
	},
}
