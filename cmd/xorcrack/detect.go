package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/RowanDark/xorcrack/internal/cipher"
	"github.com/RowanDark/xorcrack/internal/crack"
	"github.com/RowanDark/xorcrack/internal/logging"
	"github.com/RowanDark/xorcrack/internal/ranker"
)

func runDetect(args []string) int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}

	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	inEnc := fs.String("in", cipher.EncodingHex, "encoding of each line: hex, base64, base64url or raw")
	top := fs.Int("top", 1, "number of ranked lines to print")
	output := fs.String("out", ranker.DefaultOutputPath, "path to write the ranked JSONL output (empty to skip)")
	strategy := fs.String("strategy", cfg.Breaker.ColumnStrategy, "line scorer: chi-square or top-k")
	fast := fs.Bool("fast", cfg.Breaker.FastPath, "try the most-frequent-byte heuristic first")
	workers := fs.Int("workers", cfg.Breaker.Workers, "concurrent workers (0 = GOMAXPROCS)")
	telemetryFlags(fs, &cfg.Telemetry)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *top < 1 {
		fmt.Fprintln(os.Stderr, "--top must be at least 1")
		return 2
	}
	if strings.EqualFold(*inEnc, cipher.EncodingAuto) {
		fmt.Fprintln(os.Stderr, "--in must name an encoding; auto is not supported per line")
		return 2
	}

	strat, err := crack.ParseStrategy(*strategy)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	scorer, err := crack.NewScorer(strat, cfg.Breaker.TopK)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ctx := context.Background()
	sess, err := startSession(ctx, "detect", cfg.Telemetry)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ranked, err := detectLines(ctx, fs.Args(), *inEnc, scorer, crack.DetectOptions{
		FastPath: *fast,
		TopK:     cfg.Breaker.TopK,
		Workers:  *workers,
	}, sess)
	runID := sess.runID()
	if err == nil {
		if out := strings.TrimSpace(*output); out != "" {
			err = ranker.WriteJSONL(out, runID, ranked)
		}
	}
	sess.finish(ctx, err)
	if err != nil {
		fmt.Fprintf(os.Stderr, "detect: %v\n", err)
		return 1
	}

	for i, line := range ranked {
		if i == *top {
			break
		}
		fmt.Fprintf(os.Stdout, "#%d line %d key %#02x score %.6f: ", line.Rank, line.Index+1, line.Key, line.Score)
		if err := writePlaintext(os.Stdout, bytes.TrimRight(line.Plaintext, "\r\n")); err != nil {
			fmt.Fprintf(os.Stderr, "write plaintext: %v\n", err)
			return 1
		}
		fmt.Fprintln(os.Stdout)
	}
	return 0
}

func detectLines(ctx context.Context, paths []string, encoding string, scorer crack.Scorer, opts crack.DetectOptions, sess *session) ([]ranker.RankedLine, error) {
	raw, err := readInput(paths)
	if err != nil {
		return nil, err
	}
	var lines [][]byte
	for i, text := range strings.Split(string(raw), "\n") {
		text = strings.TrimRight(text, "\r")
		if strings.TrimSpace(text) == "" {
			lines = append(lines, nil)
			continue
		}
		line, err := cipher.Decode(ctx, []byte(text), encoding)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		lines = append(lines, line)
	}

	candidates, err := crack.DetectSingleByte(ctx, lines, scorer, opts)
	if err != nil {
		return nil, err
	}
	if sess.logger != nil {
		obs := logging.NewBreakObserver(sess.logger.WithComponent("detect"))
		for _, c := range candidates {
			obs.DetectLine(ctx, c)
		}
	}
	return ranker.Rank(candidates), nil
}
