package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/RowanDark/xorcrack/internal/history"
)

func runHistory(args []string) int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}

	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	dbPath := fs.String("db", cfg.History.Database, "SQLite database written by break --db")
	runFilter := fs.String("run", "", "only list entries from this run id")
	limit := fs.Int("limit", 20, "maximum entries to list (0 = all)")
	asJSON := fs.Bool("json", false, "print entries as JSON lines")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*dbPath) == "" {
		fmt.Fprintln(os.Stderr, "--db is required")
		return 2
	}
	if *limit < 0 {
		fmt.Fprintln(os.Stderr, "--limit must not be negative")
		return 2
	}

	store, err := history.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open history: %v\n", err)
		return 1
	}
	defer store.Close()

	entries, err := store.List(context.Background(), history.Filter{RunID: *runFilter, Limit: *limit})
	if err != nil {
		fmt.Fprintf(os.Stderr, "list history: %v\n", err)
		return 1
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		for _, e := range entries {
			if err := enc.Encode(e); err != nil {
				fmt.Fprintf(os.Stderr, "encode entry: %v\n", err)
				return 1
			}
		}
		return 0
	}
	if err := printHistory(os.Stdout, entries); err != nil {
		fmt.Fprintf(os.Stderr, "write history: %v\n", err)
		return 1
	}
	return 0
}

func printHistory(w io.Writer, entries []history.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tRUN\tBYTES\tKEY LEN\tKEY\tSCORE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%q\t%.6f\n",
			e.ID, e.CreatedAt.Format(time.RFC3339), e.RunID, e.CiphertextBytes, e.KeyLength, e.Key, e.Score)
	}
	return tw.Flush()
}
