package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/RowanDark/xorcrack/internal/crack"
)

func runScore(args []string) int {
	fs := flag.NewFlagSet("score", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	strategy := fs.String("strategy", string(crack.StrategyChiSquare), "scorer: chi-square or top-k")
	topK := fs.Int("topk", crack.DefaultTopK, "K for the top-k scorer")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *topK < 1 {
		fmt.Fprintln(os.Stderr, "--topk must be at least 1")
		return 2
	}
	strat, err := crack.ParseStrategy(*strategy)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	scorer, err := crack.NewScorer(strat, *topK)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	text, err := readInput(fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "score: %v\n", err)
		return 1
	}
	if len(text) == 0 {
		fmt.Fprintln(os.Stderr, "score: empty input")
		return 1
	}
	fmt.Fprintf(os.Stdout, "%s: %.6f\n", strat, scorer.Score(text))
	fmt.Fprintf(os.Stdout, "printable: %t\n", crack.Printable(text))
	fmt.Fprintf(os.Stdout, "top symbols: %q\n", crack.TopSymbols(text, *topK))
	return 0
}
