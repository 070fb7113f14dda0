package crack

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/RowanDark/xorcrack/internal/observability/tracing"
)

// LineCandidate is the best single-byte XOR decryption of one input line.
type LineCandidate struct {
	Index      int     `json:"index"`
	Ciphertext []byte  `json:"ciphertext"`
	Key        byte    `json:"key"`
	Plaintext  []byte  `json:"plaintext"`
	Score      float64 `json:"score"`
	FastPath   bool    `json:"fast_path,omitempty"`
}

// DetectOptions tunes DetectSingleByte.
type DetectOptions struct {
	Charset  Charset
	FastPath bool
	TopK     int
	Workers  int
}

// DetectSingleByte solves every non-empty line as single-byte XOR
// ciphertext. Candidates come back in line order; rank them by Score to find
// the line that was actually encrypted.
func DetectSingleByte(ctx context.Context, lines [][]byte, scorer Scorer, opts DetectOptions) ([]LineCandidate, error) {
	if scorer == nil {
		return nil, fmt.Errorf("%w: nil scorer", ErrInvalidConfig)
	}
	charset := opts.Charset
	if charset == "" {
		charset = CharsetAll
	}
	if _, err := ParseCharset(string(charset)); err != nil {
		return nil, err
	}
	solveOpts := []SolveOption{
		WithCharset(charset),
		WithFastPath(opts.FastPath),
		WithOverlapScorer(TopKScorer{K: opts.TopK}),
	}

	var indexes []int
	for i, line := range lines {
		if len(line) > 0 {
			indexes = append(indexes, i)
		}
	}
	if len(indexes) == 0 {
		return nil, fmt.Errorf("%w: no non-empty lines", ErrInvalidInput)
	}

	ctx, span := tracing.StartSpan(ctx, "crack.detect", attribute.Int("lines", len(indexes)))
	defer span.End()

	out := make([]LineCandidate, len(indexes))
	err := runPool(ctx, opts.Workers, len(indexes), func(ctx context.Context, n int) error {
		line := lines[indexes[n]]
		kb, err := SolveSingleByte(line, scorer, solveOpts...)
		if err != nil {
			return fmt.Errorf("line %d: %w", indexes[n], err)
		}
		plain := make([]byte, len(line))
		XORSingleByte(plain, line, kb.Value)
		out[n] = LineCandidate{
			Index:      indexes[n],
			Ciphertext: line,
			Key:        kb.Value,
			Plaintext:  plain,
			Score:      scorer.Score(plain),
			FastPath:   kb.FastPath,
		}
		return nil
	})
	if err != nil {
		tracing.Fail(span, err)
		return nil, err
	}
	return out, nil
}
