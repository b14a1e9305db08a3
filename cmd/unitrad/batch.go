// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/unitrad/internal/batch"
	"github.com/pdiddy/unitrad/internal/history"
	"github.com/pdiddy/unitrad/internal/report"
	"github.com/pdiddy/unitrad/pkg/types"
)

var batchCmd = &cobra.Command{
	Use:   "batch <queries.yaml>",
	Short: "Run many searches from a YAML file",
	Long: `Batch reads a YAML list of queries, for example

  - title: 吾輩は猫である
    region: gifu
  - author: 村上春樹

and runs them concurrently (batch.concurrency at a time). One summary line
is printed per query, in file order.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().Int("concurrency", 0, "parallel searches (overrides config)")
	batchCmd.Flags().Bool("json", false, "output results as JSON")
	batchCmd.Flags().Bool("no-history", false, "do not record these searches in the history database")
	rootCmd.AddCommand(batchCmd)
}

// batchRecord is the JSON form of one batch result.
type batchRecord struct {
	Query    types.Query     `json:"query"`
	Snapshot *types.Snapshot `json:"snapshot,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	queries, err := report.ReadQueryList(args[0])
	if err != nil {
		return err
	}

	bcfg := cfg.Batch
	if n, _ := cmd.Flags().GetInt("concurrency"); n > 0 {
		bcfg.Concurrency = n
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := batch.Run(ctx, newClient(), queries, bcfg, sessionOptions()...)
	if err != nil {
		return err
	}

	if noHistory, _ := cmd.Flags().GetBool("no-history"); !noHistory {
		saveBatch(results)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		records := make([]batchRecord, len(results))
		for i, r := range results {
			records[i].Query = r.Query
			if r.Snapshot.UUID != "" {
				snap := r.Snapshot
				records[i].Snapshot = &snap
			}
			if r.Err != nil {
				records[i].Error = r.Err.Error()
			}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(records)
	}

	failed := 0
	for i, r := range results {
		status := fmt.Sprintf("%d books (v%d)", len(r.Snapshot.Books), r.Snapshot.Version)
		if r.Err != nil {
			failed++
			status = "error: " + r.Err.Error()
		}
		fmt.Printf("%3d  %-40s  %s\n", i+1, formatQuery(r.Query), status)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d queries failed", failed, len(results))
	}
	return nil
}

func saveBatch(results []batch.Result) {
	store, err := history.Open(cfg.History)
	if err != nil {
		logger.Warn("history disabled", "error", err)
		return
	}
	defer store.Close()

	for _, r := range results {
		if err := store.Save(context.Background(), r.Query, r.Snapshot); err != nil {
			logger.Warn("saving history failed", "uuid", r.Snapshot.UUID, "error", err)
		}
	}
}
