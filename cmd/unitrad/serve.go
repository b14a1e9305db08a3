// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/unitrad/internal/mapcache"
	"github.com/pdiddy/unitrad/internal/serve"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local HTTP API",
	Long: `Serve answers GET /v1/books and GET /v1/mapping by running Unitrad
searches. Book requests wait until the configured source (serve.source) has
answered, then return the books held by the configured library
(serve.library, or the library query parameter).`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	scfg := cfg.Serve
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		scfg.Addr = addr
	}

	cache, err := mapcache.Open(cfg.Cache.Path)
	if err != nil {
		logger.Warn("mapping cache unavailable, using memory", "error", err)
		cache, _ = mapcache.Open("")
	}
	defer cache.Close()

	srv := serve.NewServer(newClient(), scfg,
		serve.WithLogger(logger),
		serve.WithMappingCache(cache, cfg.Cache.TTL),
		serve.WithSessionOptions(sessionOptions()...),
	)
	if err := srv.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	return srv.Stop()
}
