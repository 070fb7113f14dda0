package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/RowanDark/xorcrack/internal/cipher"
	"github.com/RowanDark/xorcrack/internal/crack"
)

func runSingle(args []string) int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}

	fs := flag.NewFlagSet("single", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	inEnc := fs.String("in", cipher.EncodingAuto, "input encoding: auto, hex, base64, base64url or raw")
	strategy := fs.String("strategy", cfg.Breaker.ColumnStrategy, "scorer for the exhaustive search: chi-square or top-k")
	charset := fs.String("charset", cfg.Breaker.Charset, "key byte values to try: all or printable")
	topK := fs.Int("topk", cfg.Breaker.TopK, "K for the top-k scorer")
	fast := fs.Bool("fast", true, "try the most-frequent-byte heuristic first")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	strat, err := crack.ParseStrategy(*strategy)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	cs, err := crack.ParseCharset(*charset)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	scorer, err := crack.NewScorer(strat, *topK)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ctx := context.Background()
	sess, err := startSession(ctx, "single", cfg.Telemetry)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	raw, err := readInput(fs.Args())
	var ct []byte
	if err == nil {
		ct, err = cipher.Decode(ctx, raw, *inEnc)
	}
	var kb crack.KeyByte
	if err == nil {
		kb, err = crack.SolveSingleByte(ct, scorer,
			crack.WithCharset(cs),
			crack.WithFastPath(*fast),
			crack.WithOverlapScorer(crack.TopKScorer{K: *topK}),
		)
	}
	sess.finish(ctx, err)
	if err != nil {
		fmt.Fprintf(os.Stderr, "single: %v\n", err)
		return 1
	}

	plain := make([]byte, len(ct))
	crack.XORSingleByte(plain, ct, kb.Value)
	fmt.Fprintf(os.Stdout, "key: %#02x %q\n", kb.Value, kb.Value)
	if kb.FastPath {
		fmt.Fprintf(os.Stdout, "fast path: most frequent byte taken as %q\n", kb.Assumed)
	}
	fmt.Fprintf(os.Stdout, "score: %.6f\n\n", kb.Score)
	if err := writePlaintext(os.Stdout, plain); err != nil {
		fmt.Fprintf(os.Stderr, "write plaintext: %v\n", err)
		return 1
	}
	fmt.Fprintln(os.Stdout)
	return 0
}
