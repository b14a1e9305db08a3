// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pdiddy/unitrad/internal/history"
	"github.com/pdiddy/unitrad/internal/query"
	"github.com/pdiddy/unitrad/internal/report"
	"github.com/pdiddy/unitrad/internal/unitrad"
	"github.com/pdiddy/unitrad/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [free text]",
	Short: "Search library catalogs",
	Long: `Search sends a query to Unitrad and polls until every library system
has answered. Positional arguments are joined into the free-text field.
Press Ctrl-C to stop early and print what has arrived so far.

Use --save to write the query and results to a YAML file, and --load to
print a saved file without contacting the API.`,
	RunE: runSearch,
}

// queryFlags maps flag names to query fields.
var queryFlags = map[string]string{
	"free":       "free",
	"title":      "title",
	"author":     "author",
	"publisher":  "publisher",
	"isbn":       "isbn",
	"ndc":        "ndc",
	"year-start": "year_start",
	"year-end":   "year_end",
	"region":     types.RegionField,
}

func init() {
	searchCmd.Flags().String("free", "", "free-text search")
	searchCmd.Flags().String("title", "", "title")
	searchCmd.Flags().String("author", "", "author")
	searchCmd.Flags().String("publisher", "", "publisher")
	searchCmd.Flags().String("isbn", "", "ISBN")
	searchCmd.Flags().String("ndc", "", "Nippon Decimal Classification")
	searchCmd.Flags().String("year-start", "", "earliest publication year")
	searchCmd.Flags().String("year-end", "", "latest publication year")
	searchCmd.Flags().String("region", "", "region to search (e.g. gifu, tokyo)")
	searchCmd.Flags().Bool("json", false, "output the snapshot as JSON")
	searchCmd.Flags().String("filter", "", "show only books whose title or author fuzzily match")
	searchCmd.Flags().String("save", "", "write query and results to a YAML file")
	searchCmd.Flags().String("load", "", "print results from a saved YAML file instead of searching")
	searchCmd.Flags().Bool("no-history", false, "do not record this search in the history database")

	rootCmd.AddCommand(searchCmd)
}

func queryFromFlags(cmd *cobra.Command, args []string) types.Query {
	q := make(types.Query)
	for flag, field := range queryFlags {
		if v, _ := cmd.Flags().GetString(flag); v != "" {
			q[field] = v
		}
	}
	if len(args) > 0 && q["free"] == "" {
		q["free"] = strings.Join(args, " ")
	}
	return q
}

func runSearch(cmd *cobra.Command, args []string) error {
	if path, _ := cmd.Flags().GetString("load"); path != "" {
		qf, err := report.ReadQueryFile(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "query: %s (saved %s)\n", formatQuery(qf.Query), qf.Result.Timestamp.Format("2006-01-02 15:04"))
		return printSnapshot(cmd, qf.Snapshot())
	}

	q := queryFromFlags(cmd, args)
	if query.IsEmpty(q) {
		return fmt.Errorf("empty query: give free text or at least one search field")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store *history.Store
	if noHistory, _ := cmd.Flags().GetBool("no-history"); !noHistory {
		s, err := history.Open(cfg.History)
		if err != nil {
			logger.Warn("history disabled", "error", err)
		} else {
			store = s
			defer store.Close()
		}
	}

	tty := term.IsTerminal(int(os.Stderr.Fd()))
	onSnapshot := func(snap types.Snapshot) {
		if tty {
			fmt.Fprint(os.Stderr, "\r\033[K")
			report.Progress(os.Stderr, snap)
		}
	}

	sess, err := unitrad.Search(ctx, newClient(), q, onSnapshot, sessionOptions()...)
	if err != nil {
		return err
	}
	runErr := sess.Wait(context.Background())
	if tty {
		fmt.Fprintln(os.Stderr)
	}

	snap, ok := sess.Snapshot()
	if !ok {
		if runErr != nil {
			return runErr
		}
		return errors.New("no response from unitrad")
	}

	if store != nil {
		if err := store.Save(context.Background(), q, snap); err != nil {
			logger.Warn("saving history failed", "error", err)
		}
	}
	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := report.WriteQueryFile(path, q, snap); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "saved to %s\n", path)
	}

	if err := printSnapshot(cmd, snap); err != nil {
		return err
	}
	if errors.Is(runErr, unitrad.ErrCancelled) {
		fmt.Fprintln(os.Stderr, "search stopped before completion")
		return nil
	}
	return runErr
}

func printSnapshot(cmd *cobra.Command, snap types.Snapshot) error {
	filter, _ := cmd.Flags().GetString("filter")
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if filter != "" {
			snap.Books = report.FilterBooks(snap.Books, filter)
		}
		return report.FormatJSON(snap, os.Stdout)
	}
	report.FormatTable(snap, report.FilterBooks(snap.Books, filter), os.Stdout)
	return nil
}

// formatQuery renders q as "field=value" pairs in canonical field order.
func formatQuery(q types.Query) string {
	var parts []string
	for _, p := range query.Params(q) {
		parts = append(parts, p.Key+"="+p.Value)
	}
	return strings.Join(parts, " ")
}
