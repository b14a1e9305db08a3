// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the unitrad CLI: federated library
// searches against the Unitrad API, with local history, a mapping cache,
// batch runs, and a small HTTP front end.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/unitrad/internal/config"
	"github.com/pdiddy/unitrad/internal/httputil"
	"github.com/pdiddy/unitrad/internal/logging"
	"github.com/pdiddy/unitrad/internal/unitrad"
	"github.com/pdiddy/unitrad/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	cfg       types.Config
	logger    = slog.Default()
	logCloser io.Closer
)

// rootCmd is the base command for the unitrad CLI.
var rootCmd = &cobra.Command{
	Use:   "unitrad",
	Short: "Search Japanese library catalogs through Unitrad",
	Long: `unitrad runs federated searches across library systems through the
Unitrad API. Results arrive incrementally; the CLI shows progress while the
search runs and prints the merged result when it completes.

Searches are recorded in a local history database unless --no-history is
given. Settings come from unitrad.yaml (in the working directory or
~/.config/unitrad) and UNITRAD_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfgFile, _ := cmd.Flags().GetString("config")
		loaded, used, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			loaded.Logging.Level = lvl
		}
		cfg = loaded

		l, closer, err := logging.Setup(cfg.Logging, os.Stderr)
		if err != nil {
			return err
		}
		logger, logCloser = l, closer
		if used != "" {
			logger.Debug("using config file", "path", used)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./unitrad.yaml or ~/.config/unitrad/unitrad.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: DEBUG, INFO, WARN, ERROR (overrides config)")
}

// newClient builds the API client from the loaded configuration.
func newClient() *unitrad.Client {
	return unitrad.NewClient(cfg.HTTP, logger)
}

// sessionOptions applies the loaded configuration to a search session.
func sessionOptions() []unitrad.Option {
	return []unitrad.Option{
		unitrad.WithLogger(logger),
		unitrad.WithTimings(cfg.Session),
		unitrad.WithRetryPolicy(httputil.NewRetryPolicy(cfg.Retry)),
		unitrad.WithStateHandler(func(st unitrad.State) {
			if st == unitrad.StateStalled {
				logger.Warn("unitrad is not responding, still retrying")
			}
		}),
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
