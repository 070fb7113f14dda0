package crack

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/RowanDark/xorcrack/internal/cipher"
	"github.com/RowanDark/xorcrack/internal/observability/metrics"
	"github.com/RowanDark/xorcrack/internal/observability/tracing"
)

// DefaultMaxInputBytes bounds the ciphertext a Breaker accepts.
const DefaultMaxInputBytes = 16 << 20

// Config tunes a Breaker. Start from DefaultConfig.
type Config struct {
	MinKeyLength int
	MaxKeyLength int
	// Candidates is how many of the most likely key lengths are decrypted,
	// each together with its close-scoring divisors.
	Candidates int
	// Charset limits the key byte values tried per column.
	Charset Charset
	// Strategy scores whole candidate plaintexts.
	Strategy Strategy
	// ColumnStrategy scores single-byte XOR trials within a column.
	ColumnStrategy Strategy
	// TopK is K for the top-k overlap scorer, wherever it is used.
	TopK int
	// BlockPairs is the number of block pairs averaged per key length. Zero
	// averages every pair that fits; one compares only the first two blocks.
	BlockPairs int
	// Workers caps concurrent column and candidate work. Zero means
	// GOMAXPROCS.
	Workers int
	// FastPath tries the most-frequent-byte heuristic before the exhaustive
	// column search.
	FastPath bool
	// MaxInputBytes rejects larger ciphertexts. Zero disables the limit.
	MaxInputBytes int
	// Observer receives progress events. Nil disables them.
	Observer Observer
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MinKeyLength:   2,
		MaxKeyLength:   40,
		Candidates:     3,
		Charset:        CharsetAll,
		Strategy:       StrategyChiSquare,
		ColumnStrategy: StrategyChiSquare,
		TopK:           DefaultTopK,
		MaxInputBytes:  DefaultMaxInputBytes,
	}
}

// Validate reports the first out-of-range setting.
func (c Config) Validate() error {
	switch {
	case c.MinKeyLength < 1:
		return fmt.Errorf("%w: minimum key length must be at least 1, got %d", ErrInvalidConfig, c.MinKeyLength)
	case c.MaxKeyLength < c.MinKeyLength:
		return fmt.Errorf("%w: maximum key length %d below minimum %d", ErrInvalidConfig, c.MaxKeyLength, c.MinKeyLength)
	case c.Candidates < 1:
		return fmt.Errorf("%w: candidate key lengths must be at least 1, got %d", ErrInvalidConfig, c.Candidates)
	case c.TopK < 1:
		return fmt.Errorf("%w: top-k must be at least 1, got %d", ErrInvalidConfig, c.TopK)
	case c.BlockPairs < 0:
		return fmt.Errorf("%w: block pairs cannot be negative, got %d", ErrInvalidConfig, c.BlockPairs)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers cannot be negative, got %d", ErrInvalidConfig, c.Workers)
	case c.MaxInputBytes < 0:
		return fmt.Errorf("%w: max input bytes cannot be negative, got %d", ErrInvalidConfig, c.MaxInputBytes)
	}
	if _, err := ParseCharset(string(c.Charset)); err != nil {
		return err
	}
	if _, err := NewScorer(c.Strategy, c.TopK); err != nil {
		return err
	}
	if _, err := NewScorer(c.ColumnStrategy, c.TopK); err != nil {
		return err
	}
	return nil
}

// Result is the outcome of decrypting with one candidate key.
type Result struct {
	Key       []byte  `json:"key"`
	Plaintext []byte  `json:"plaintext"`
	Score     float64 `json:"score"`
	// KeyLength is len(Key). It can be a divisor of TriedLength when the
	// recovered key repeats itself.
	KeyLength   int       `json:"key_length"`
	TriedLength int       `json:"tried_length"`
	Columns     []KeyByte `json:"columns,omitempty"`
}

// Breaker recovers repeating-key XOR keys. It is safe for concurrent use.
type Breaker struct {
	cfg          Config
	columnScorer Scorer
	wholeScorer  Scorer
	solveOpts    []SolveOption
	observer     Observer
}

// NewBreaker validates cfg and builds a Breaker.
func NewBreaker(cfg Config) (*Breaker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	column, _ := NewScorer(cfg.ColumnStrategy, cfg.TopK)
	whole, _ := NewScorer(cfg.Strategy, cfg.TopK)
	obs := cfg.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	return &Breaker{
		cfg:          cfg,
		columnScorer: column,
		wholeScorer:  whole,
		solveOpts: []SolveOption{
			WithCharset(cfg.Charset),
			WithFastPath(cfg.FastPath),
			WithOverlapScorer(TopKScorer{K: cfg.TopK}),
		},
		observer: obs,
	}, nil
}

// Config returns the breaker's settings.
func (b *Breaker) Config() Config {
	return b.cfg
}

// Break runs the full recovery with cfg.
func Break(ctx context.Context, ct []byte, cfg Config) (Result, error) {
	b, err := NewBreaker(cfg)
	if err != nil {
		return Result{}, err
	}
	return b.Break(ctx, ct)
}

// Break estimates the likeliest key lengths, solves every column of each,
// and returns the decryption that scores best. Equal scores prefer the
// shorter key. The outcome does not depend on scheduling.
func (b *Breaker) Break(ctx context.Context, ct []byte) (Result, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "crack.break",
		attribute.Int("ciphertext_bytes", len(ct)),
		attribute.Int("min_key_length", b.cfg.MinKeyLength),
		attribute.Int("max_key_length", b.cfg.MaxKeyLength),
	)
	defer span.End()
	res, err := b.breakCiphertext(ctx, ct)
	metrics.ObserveStage(ctx, "break", time.Since(start))
	if err != nil {
		tracing.Fail(span, err)
		return Result{}, err
	}
	span.SetAttributes(attribute.Int("key_length", res.KeyLength), attribute.String("key_hex", hex.EncodeToString(res.Key)))
	tracing.Succeed(span)
	return res, nil
}

func (b *Breaker) breakCiphertext(ctx context.Context, ct []byte) (Result, error) {
	if err := b.checkInput(ct); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	lengths, err := b.estimate(ctx, ct)
	if err != nil {
		return Result{}, err
	}
	results, err := b.tryLengths(ctx, ct, lengths)
	if err != nil {
		return Result{}, err
	}

	best := results[0]
	for _, r := range results[1:] {
		if better(r, best) {
			best = r
		}
	}
	best = preferDivisor(best, results)
	b.observer.BestSelected(ctx, best)
	return best, nil
}

// TryLength decrypts with the key recovered for one fixed length, skipping
// estimation.
func (b *Breaker) TryLength(ctx context.Context, ct []byte, keyLength int) (Result, error) {
	if keyLength < 1 {
		return Result{}, fmt.Errorf("%w: key length must be at least 1, got %d", ErrInvalidConfig, keyLength)
	}
	if len(ct) == 0 {
		return Result{}, fmt.Errorf("%w: empty ciphertext", ErrInvalidInput)
	}
	if keyLength > len(ct) {
		return Result{}, fmt.Errorf("%w: key length %d exceeds %d bytes of ciphertext", ErrInvalidInput, keyLength, len(ct))
	}
	results, err := b.tryLengths(ctx, ct, []KeyLengthCandidate{{Length: keyLength}})
	if err != nil {
		return Result{}, err
	}
	return results[0], nil
}

func (b *Breaker) checkInput(ct []byte) error {
	switch {
	case len(ct) == 0:
		return fmt.Errorf("%w: empty ciphertext", ErrInvalidInput)
	case b.cfg.MaxInputBytes > 0 && len(ct) > b.cfg.MaxInputBytes:
		return fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrInvalidInput, len(ct), b.cfg.MaxInputBytes)
	case len(ct) < 2*b.cfg.MinKeyLength:
		return fmt.Errorf("%w: %d bytes is too short for key length %d", ErrInvalidInput, len(ct), b.cfg.MinKeyLength)
	}
	return nil
}

func (b *Breaker) estimate(ctx context.Context, ct []byte) ([]KeyLengthCandidate, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "crack.estimate")
	defer span.End()

	candidates, err := EstimateKeyLengths(ct, b.cfg.MinKeyLength, b.cfg.MaxKeyLength, WithBlockPairs(b.cfg.BlockPairs))
	metrics.ObserveStage(ctx, "estimate", time.Since(start))
	if err != nil {
		tracing.Fail(span, err)
		return nil, err
	}
	candidates = foldLengths(candidates, b.cfg.Candidates)
	span.SetAttributes(attribute.Int("candidates", len(candidates)))
	b.observer.LengthsEstimated(ctx, candidates)
	return candidates, nil
}

// foldTolerance is how much worse a divisor's distance may be than its
// multiple's before the multiple is folded onto it.
const foldTolerance = 1.10

// foldLengths expands the first n ranked estimates. Each length is preceded by
// its divisors whose distance is within foldTolerance of its own, smallest
// first, and lengths already listed are skipped. Multiples of the true period
// score nearly as well as the period itself, and the smallest qualifying
// divisor is not necessarily the period, so every qualifying divisor is tried.
func foldLengths(ranked []KeyLengthCandidate, n int) []KeyLengthCandidate {
	dist := make(map[int]float64, len(ranked))
	for _, c := range ranked {
		dist[c.Length] = c.Score
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	var out []KeyLengthCandidate
	seen := make(map[int]bool)
	for _, c := range ranked[:n] {
		for d := 1; d <= c.Length; d++ {
			ds, ok := dist[d]
			if !ok || c.Length%d != 0 || seen[d] {
				continue
			}
			if d < c.Length && ds > c.Score*foldTolerance {
				continue
			}
			seen[d] = true
			out = append(out, KeyLengthCandidate{Length: d, Score: ds})
		}
	}
	return out
}

type columnJob struct {
	trial  int
	column int
}

// tryLengths solves every column of every candidate length on the worker
// pool, then decrypts and scores each candidate. Results are returned in
// candidate order.
func (b *Breaker) tryLengths(ctx context.Context, ct []byte, lengths []KeyLengthCandidate) ([]Result, error) {
	cols := make([][][]byte, len(lengths))
	keys := make([][]KeyByte, len(lengths))
	var jobs []columnJob
	for t, cand := range lengths {
		c, err := Transpose(ct, cand.Length)
		if err != nil {
			return nil, err
		}
		cols[t] = c
		keys[t] = make([]KeyByte, cand.Length)
		for i := range c {
			jobs = append(jobs, columnJob{trial: t, column: i})
		}
	}

	start := time.Now()
	solveCtx, span := tracing.StartSpan(ctx, "crack.solve_columns", attribute.Int("columns", len(jobs)))
	workers := workerCount(b.cfg.Workers, len(jobs))
	metrics.SetWorkers(workers)
	err := runPool(solveCtx, workers, len(jobs), func(ctx context.Context, n int) error {
		job := jobs[n]
		kb, err := SolveSingleByte(cols[job.trial][job.column], b.columnScorer, b.solveOpts...)
		if err != nil {
			return fmt.Errorf("key length %d column %d: %w", lengths[job.trial].Length, job.column, err)
		}
		keys[job.trial][job.column] = kb
		metrics.RecordColumnSolved(kb.FastPath)
		b.observer.ColumnSolved(ctx, lengths[job.trial].Length, job.column, kb)
		return nil
	})
	metrics.ObserveStage(solveCtx, "solve_columns", time.Since(start))
	if err != nil {
		tracing.Fail(span, err)
		span.End()
		return nil, err
	}
	span.End()

	results := make([]Result, len(lengths))
	err = runPool(ctx, b.cfg.Workers, len(lengths), func(ctx context.Context, t int) error {
		start := time.Now()
		ctx, span := tracing.StartSpan(ctx, "crack.trial", attribute.Int("key_length", lengths[t].Length))
		defer span.End()

		key := make([]byte, len(keys[t]))
		for i, kb := range keys[t] {
			key[i] = kb.Value
		}
		plaintext, err := cipher.RepeatingXOR(ct, key)
		if err != nil {
			return err
		}
		key = minimalPeriod(key)
		results[t] = Result{
			Key:         key,
			Plaintext:   plaintext,
			Score:       b.wholeScorer.Score(plaintext),
			KeyLength:   len(key),
			TriedLength: lengths[t].Length,
			Columns:     keys[t],
		}
		span.SetAttributes(attribute.Float64("score", results[t].Score), attribute.Int("recovered_length", len(key)))
		metrics.RecordLengthTried()
		metrics.ObserveStage(ctx, "trial", time.Since(start))
		b.observer.CandidateScored(ctx, results[t])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// better orders results by score, then shorter key, then shorter tried length.
func better(a, b Result) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.KeyLength != b.KeyLength {
		return a.KeyLength < b.KeyLength
	}
	return a.TriedLength < b.TriedLength
}

// preferDivisor replaces best with the shortest result whose tried length
// divides best's and whose key, repeated, matches best's key in more than half
// of its positions. A multiple of the period solves fewer bytes per column, so
// its extra key bytes only fit noise in the plaintext score.
func preferDivisor(best Result, results []Result) Result {
	l := len(best.Columns)
	pick := best
	for _, r := range results {
		d := len(r.Columns)
		if d == 0 || d >= len(pick.Columns) || l%d != 0 {
			continue
		}
		agree := 0
		for i, kb := range best.Columns {
			if kb.Value == r.Columns[i%d].Value {
				agree++
			}
		}
		if 2*agree > l {
			pick = r
		}
	}
	return pick
}

// minimalPeriod returns the shortest prefix of key that repeats to form key.
// Repeating-key XOR under the prefix is identical to XOR under key.
func minimalPeriod(key []byte) []byte {
	for p := 1; p < len(key); p++ {
		if len(key)%p == 0 && bytes.Equal(key[p:], key[:len(key)-p]) {
			return key[:p:p]
		}
	}
	return key
}
