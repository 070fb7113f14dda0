package crack

import (
	"fmt"
	"strings"
)

// Charset restricts which key byte values the solver tries.
type Charset string

const (
	CharsetAll       Charset = "all"
	CharsetPrintable Charset = "printable"
)

// ParseCharset accepts "all" and "printable".
func ParseCharset(s string) (Charset, error) {
	switch Charset(strings.ToLower(strings.TrimSpace(s))) {
	case CharsetAll:
		return CharsetAll, nil
	case CharsetPrintable:
		return CharsetPrintable, nil
	default:
		return "", fmt.Errorf("%w: unknown key charset %q", ErrInvalidConfig, s)
	}
}

// Bounds returns the inclusive byte range of the charset.
func (c Charset) Bounds() (lo, hi byte) {
	if c == CharsetPrintable {
		return 32, 126
	}
	return 0, 255
}

// Contains reports whether b may be a key byte under the charset.
func (c Charset) Contains(b byte) bool {
	lo, hi := c.Bounds()
	return b >= lo && b <= hi
}

// KeyByte is the solver's answer for one column.
type KeyByte struct {
	Value byte    `json:"value"`
	Score float64 `json:"score"`
	// FastPath is set when the most-frequent-byte heuristic decided the
	// value; Assumed is then the plaintext byte the most frequent ciphertext
	// byte was taken to be.
	FastPath bool `json:"fast_path,omitempty"`
	Assumed  byte `json:"assumed,omitempty"`
}

// FastPathCandidates are the plaintext bytes tried for the most frequent
// ciphertext byte of a column.
var FastPathCandidates = []byte(" etaoi")

type solveOptions struct {
	charset  Charset
	fastPath bool
	overlap  Scorer
}

// SolveOption tunes SolveSingleByte.
type SolveOption func(*solveOptions)

// WithCharset limits the key bytes tried.
func WithCharset(c Charset) SolveOption {
	return func(o *solveOptions) {
		o.charset = c
	}
}

// WithFastPath assumes the most frequent ciphertext byte encrypts one of
// FastPathCandidates and scores only those keys with a top-k overlap scorer.
// The solver falls back to the exhaustive search when no candidate scores
// above zero or the best score is shared.
func WithFastPath(enabled bool) SolveOption {
	return func(o *solveOptions) {
		o.fastPath = enabled
	}
}

// WithOverlapScorer replaces the scorer used on the fast path.
func WithOverlapScorer(s Scorer) SolveOption {
	return func(o *solveOptions) {
		if s != nil {
			o.overlap = s
		}
	}
}

// SolveSingleByte finds the key byte that, XORed over col, yields the most
// English-like output according to scorer. Equal scores resolve to the lowest
// byte value.
func SolveSingleByte(col []byte, scorer Scorer, opts ...SolveOption) (KeyByte, error) {
	if len(col) == 0 {
		return KeyByte{}, ErrUnsolvableColumn
	}
	if scorer == nil {
		return KeyByte{}, fmt.Errorf("%w: nil scorer", ErrInvalidConfig)
	}
	o := solveOptions{charset: CharsetAll, overlap: TopKScorer{}}
	for _, opt := range opts {
		opt(&o)
	}

	buf := make([]byte, len(col))
	if o.fastPath {
		if kb, ok := solveFastPath(col, buf, o); ok {
			return kb, nil
		}
	}

	lo, hi := o.charset.Bounds()
	best := KeyByte{Value: lo, Score: MinScore}
	for k := int(lo); k <= int(hi); k++ {
		XORSingleByte(buf, col, byte(k))
		if s := scorer.Score(buf); s > best.Score {
			best = KeyByte{Value: byte(k), Score: s}
		}
	}
	return best, nil
}

func solveFastPath(col, buf []byte, o solveOptions) (KeyByte, bool) {
	top := TopSymbols(col, 1)[0]
	best := KeyByte{Score: MinScore, FastPath: true}
	tied := false
	for _, plain := range FastPathCandidates {
		key := top ^ plain
		if !o.charset.Contains(key) {
			continue
		}
		XORSingleByte(buf, col, key)
		s := o.overlap.Score(buf)
		switch {
		case s > best.Score:
			best.Value, best.Score, best.Assumed = key, s, plain
			tied = false
		case s == best.Score:
			tied = true
		}
	}
	if tied || !(best.Score > 0) {
		return KeyByte{}, false
	}
	return best, true
}

// XORSingleByte writes src XOR k into dst, which must be at least as long as
// src.
func XORSingleByte(dst, src []byte, k byte) {
	for i, c := range src {
		dst[i] = c ^ k
	}
}
