// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/unitrad/internal/mapcache"
	"github.com/pdiddy/unitrad/internal/unitrad"
)

var mappingCmd = &cobra.Command{
	Use:   "mapping <region>",
	Short: "Print the library mapping data for a region",
	Long: `Mapping fetches the static data that describes the library systems of a
region. Results are cached locally; use --refresh to bypass the cache.`,
	Args: cobra.ExactArgs(1),
	RunE: runMapping,
}

func init() {
	mappingCmd.Flags().Bool("refresh", false, "ignore the cached copy")
	rootCmd.AddCommand(mappingCmd)
}

func runMapping(cmd *cobra.Command, args []string) error {
	region := args[0]

	cache, err := mapcache.Open(cfg.Cache.Path)
	if err != nil {
		logger.Warn("mapping cache unavailable, using memory", "error", err)
		cache, _ = mapcache.Open("")
	}
	defer cache.Close()

	if refresh, _ := cmd.Flags().GetBool("refresh"); !refresh {
		if data, ok := cache.Get(region, cfg.Cache.TTL); ok {
			logger.Debug("mapping served from cache", "region", region)
			return printJSON(data)
		}
	}

	var data json.RawMessage
	unitrad.FetchMapping(cmd.Context(), newClient(), logger, region, func(raw json.RawMessage) {
		data = raw
		if err := cache.Put(region, raw); err != nil {
			logger.Warn("caching mapping failed", "region", region, "error", err)
		}
	})
	if data == nil {
		return fmt.Errorf("mapping for %q unavailable", region)
	}
	return printJSON(data)
}

func printJSON(data json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return fmt.Errorf("formatting mapping: %w", err)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(os.Stdout)
	return err
}
