// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/unitrad/internal/history"
	"github.com/pdiddy/unitrad/internal/report"
	"github.com/pdiddy/unitrad/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List and search past searches",
	Long: `History shows searches recorded by earlier runs. With --show it prints
the books of one session; with --find it searches every stored book.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of rows")
	historyCmd.Flags().String("find", "", "search stored books for text")
	historyCmd.Flags().String("show", "", "print the books of the session with this uuid")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := history.Open(cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	limit, _ := cmd.Flags().GetInt("limit")

	if uuid, _ := cmd.Flags().GetString("show"); uuid != "" {
		books, err := store.Books(ctx, uuid)
		if err != nil {
			return err
		}
		report.FormatTable(types.Snapshot{UUID: uuid, Books: books}, books, os.Stdout)
		return nil
	}

	if term, _ := cmd.Flags().GetString("find"); term != "" {
		hits, err := store.Find(ctx, term, limit)
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		for _, h := range hits {
			fmt.Printf("%-36s  %4d  %-40s  %s\n",
				h.UUID, h.Index+1, report.Field(h.Book, "title"), formatQuery(h.Query))
		}
		return nil
	}

	records, err := store.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No searches recorded.")
		return nil
	}
	fmt.Printf("%-36s  %-16s  %5s  %4s  %s\n", "UUID", "Updated", "Books", "Ver", "Query")
	for _, r := range records {
		status := ""
		if r.Running {
			status = " (incomplete)"
		}
		fmt.Printf("%-36s  %-16s  %5d  %4d  %s%s\n",
			r.UUID, r.UpdatedAt.Local().Format("2006-01-02 15:04"), r.BookCount, r.Version,
			formatQuery(r.Query), status)
	}
	return nil
}
