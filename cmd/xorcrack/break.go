package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/tidwall/sjson"

	"github.com/RowanDark/xorcrack/internal/cipher"
	"github.com/RowanDark/xorcrack/internal/config"
	"github.com/RowanDark/xorcrack/internal/crack"
	"github.com/RowanDark/xorcrack/internal/history"
)

// breakerFlags registers the breaker settings on fs with the resolved
// configuration as defaults, so only flags given on the command line
// override it.
func breakerFlags(fs *flag.FlagSet, b *config.BreakerConfig) {
	fs.IntVar(&b.MinKeyLength, "min", b.MinKeyLength, "smallest key length to consider")
	fs.IntVar(&b.MaxKeyLength, "max", b.MaxKeyLength, "largest key length to consider")
	fs.IntVar(&b.Candidates, "candidates", b.Candidates, "number of likeliest key lengths to decrypt")
	fs.StringVar(&b.Charset, "charset", b.Charset, "key byte values to try: all or printable")
	fs.StringVar(&b.Strategy, "strategy", b.Strategy, "whole-plaintext scorer: chi-square or top-k")
	fs.StringVar(&b.ColumnStrategy, "column-strategy", b.ColumnStrategy, "per-column scorer: chi-square or top-k")
	fs.IntVar(&b.TopK, "topk", b.TopK, "K for the top-k scorer")
	fs.IntVar(&b.BlockPairs, "pairs", b.BlockPairs, "block pairs averaged per key length (0 = all)")
	fs.IntVar(&b.Workers, "workers", b.Workers, "concurrent workers (0 = GOMAXPROCS)")
	fs.BoolVar(&b.FastPath, "fast", b.FastPath, "try the most-frequent-byte heuristic before the exhaustive search")
}

func telemetryFlags(fs *flag.FlagSet, tc *config.TelemetryConfig) {
	fs.StringVar(&tc.LogFile, "log", tc.LogFile, "append JSON events to this file")
	fs.StringVar(&tc.TraceFile, "trace", tc.TraceFile, "write finished spans to this JSONL file")
	fs.StringVar(&tc.MetricsFile, "metrics", tc.MetricsFile, "write a metrics snapshot to this file on exit")
}

func historyFlags(fs *flag.FlagSet, hc *config.HistoryConfig) {
	fs.StringVar(&hc.Database, "db", hc.Database, "record solved ciphertexts in this SQLite database")
	fs.BoolVar(&hc.Reuse, "reuse", hc.Reuse, "answer from the database when the ciphertext was solved before")
}

func runBreak(args []string) int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}

	fs := flag.NewFlagSet("break", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	inEnc := fs.String("in", cipher.EncodingAuto, "input encoding: auto, hex, base64, base64url or raw")
	keyLength := fs.Int("key-length", 0, "skip estimation and solve this key length only")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	columns := fs.Bool("columns", false, "include per-column solver details in JSON output")
	breakerFlags(fs, &cfg.Breaker)
	telemetryFlags(fs, &cfg.Telemetry)
	historyFlags(fs, &cfg.History)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	bc, err := cfg.ToBreakConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid settings: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sess, err := startSession(ctx, "break", cfg.Telemetry)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	bc.Observer = sess.observer()

	res, cached, err := breakInput(ctx, fs.Args(), *inEnc, *keyLength, bc, cfg.History, sess.runID())
	sess.finish(ctx, err)
	if err != nil {
		fmt.Fprintf(os.Stderr, "break: %v\n", err)
		return 1
	}

	if *asJSON {
		out, err := resultJSON(res, sess.runID(), *columns, cached)
		if err != nil {
			fmt.Fprintf(os.Stderr, "encode result: %v\n", err)
			return 1
		}
		fmt.Fprintln(os.Stdout, string(out))
		return 0
	}

	fmt.Fprintf(os.Stdout, "key length: %d\n", res.KeyLength)
	fmt.Fprintf(os.Stdout, "key: %q\n", res.Key)
	fmt.Fprintf(os.Stdout, "key hex: %s\n", hex.EncodeToString(res.Key))
	fmt.Fprintf(os.Stdout, "score: %.6f\n", res.Score)
	if cached {
		fmt.Fprintln(os.Stdout, "source: history")
	}
	fmt.Fprintln(os.Stdout)
	if err := writePlaintext(os.Stdout, res.Plaintext); err != nil {
		fmt.Fprintf(os.Stderr, "write plaintext: %v\n", err)
		return 1
	}
	if !strings.HasSuffix(string(res.Plaintext), "\n") {
		fmt.Fprintln(os.Stdout)
	}
	return 0
}

// breakInput decodes the input and breaks it, consulting and updating the
// history database when one is configured. The flag reports whether the
// result came from history.
func breakInput(ctx context.Context, paths []string, encoding string, keyLength int, bc crack.Config, hc config.HistoryConfig, runID string) (crack.Result, bool, error) {
	raw, err := readInput(paths)
	if err != nil {
		return crack.Result{}, false, err
	}
	ct, err := cipher.Decode(ctx, raw, encoding)
	if err != nil {
		return crack.Result{}, false, fmt.Errorf("decode input: %w", err)
	}

	var store *history.Store
	if path := strings.TrimSpace(hc.Database); path != "" {
		if store, err = history.Open(path); err != nil {
			return crack.Result{}, false, fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		if hc.Reuse && keyLength == 0 {
			entry, ok, err := store.Lookup(ctx, ct)
			if err != nil {
				return crack.Result{}, false, err
			}
			if ok {
				res, err := entry.Result(ct)
				return res, err == nil, err
			}
		}
	}

	b, err := crack.NewBreaker(bc)
	if err != nil {
		return crack.Result{}, false, err
	}
	var res crack.Result
	if keyLength > 0 {
		res, err = b.TryLength(ctx, ct, keyLength)
	} else {
		res, err = b.Break(ctx, ct)
	}
	if err != nil {
		return crack.Result{}, false, err
	}
	if store != nil {
		if _, err := store.Record(ctx, runID, ct, res, bc.Strategy); err != nil {
			return crack.Result{}, false, err
		}
	}
	return res, false, nil
}

// resultJSON renders res with the key and plaintext also given as text, and
// drops the per-column details unless asked for.
func resultJSON(res crack.Result, runID string, withColumns, cached bool) ([]byte, error) {
	out, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	if !withColumns {
		if out, err = sjson.DeleteBytes(out, "columns"); err != nil {
			return nil, err
		}
	}
	if out, err = sjson.SetBytes(out, "key_hex", hex.EncodeToString(res.Key)); err != nil {
		return nil, err
	}
	if crack.Printable(res.Key) {
		if out, err = sjson.SetBytes(out, "key_text", string(res.Key)); err != nil {
			return nil, err
		}
	}
	if crack.Printable(res.Plaintext) {
		if out, err = sjson.SetBytes(out, "plaintext_text", string(res.Plaintext)); err != nil {
			return nil, err
		}
	}
	if cached {
		if out, err = sjson.SetBytes(out, "cached", true); err != nil {
			return nil, err
		}
	}
	return sjson.SetBytes(out, "run_id", runID)
}
