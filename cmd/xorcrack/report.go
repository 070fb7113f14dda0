package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/RowanDark/xorcrack/internal/logging"
)

// runSummary aggregates the events of one run from an event log.
type runSummary struct {
	RunID     string
	Started   string
	Counts    map[string]int
	Errors    []string
	BestKey   string
	BestScore float64
	BestLen   int64
	HasBest   bool
}

func runReport(args []string) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	runFilter := fs.String("run", "", "only summarize this run id")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: xorcrack report [--run ID] EVENTS.jsonl")
		return 2
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "open event log: %v\n", err)
		return 1
	}
	defer f.Close()

	runs, err := summarizeEvents(f, strings.TrimSpace(*runFilter))
	if err != nil {
		fmt.Fprintf(os.Stderr, "read event log: %v\n", err)
		return 1
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "no matching events")
		return 1
	}
	printSummaries(os.Stdout, runs)
	return 0
}

// summarizeEvents groups event log lines by run id, in order of first
// appearance. Lines that are not JSON objects are rejected.
func summarizeEvents(r io.Reader, runFilter string) ([]*runSummary, error) {
	byRun := make(map[string]*runSummary)
	var order []*runSummary

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		if !gjson.ValidBytes(line) {
			return nil, fmt.Errorf("line %d: invalid JSON", lineNo)
		}
		ev := gjson.ParseBytes(line)
		runID := ev.Get("run_id").String()
		if runFilter != "" && runID != runFilter {
			continue
		}
		sum, ok := byRun[runID]
		if !ok {
			sum = &runSummary{RunID: runID, Counts: make(map[string]int)}
			byRun[runID] = sum
			order = append(order, sum)
		}

		eventType := ev.Get("event_type").String()
		sum.Counts[eventType]++
		switch logging.EventType(eventType) {
		case logging.EventRunStarted:
			sum.Started = ev.Get("timestamp").String()
		case logging.EventBestSelected:
			sum.HasBest = true
			sum.BestKey = ev.Get("metadata.key_hex").String()
			sum.BestScore = ev.Get("metadata.score").Float()
			sum.BestLen = ev.Get("metadata.key_length").Int()
		}
		if ev.Get("level").String() == string(logging.LevelError) {
			sum.Errors = append(sum.Errors, ev.Get("message").String())
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return order, nil
}

func printSummaries(w io.Writer, runs []*runSummary) {
	for i, sum := range runs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "run %s\n", sum.RunID)
		if sum.Started != "" {
			fmt.Fprintf(w, "  started: %s\n", sum.Started)
		}
		types := make([]string, 0, len(sum.Counts))
		for t := range sum.Counts {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			fmt.Fprintf(w, "  %s: %d\n", t, sum.Counts[t])
		}
		if sum.HasBest {
			fmt.Fprintf(w, "  best key: %s (length %d, score %.6f)\n", sum.BestKey, sum.BestLen, sum.BestScore)
		}
		for _, msg := range sum.Errors {
			fmt.Fprintf(w, "  error: %s\n", msg)
		}
	}
}
