package crack

import (
	"fmt"
	"math/bits"
	"sort"
)

// KeyLengthCandidate is a proposed key length with its normalized edit
// distance. Lower scores are more likely.
type KeyLengthCandidate struct {
	Length int     `json:"length"`
	Score  float64 `json:"score"`
}

// HammingDistance counts the differing bits between two equal-length buffers.
func HammingDistance(a, b []byte) (int, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: hamming distance over unequal lengths %d and %d", ErrInvalidInput, len(a), len(b))
	}
	n := 0
	for i := range a {
		n += bits.OnesCount8(a[i] ^ b[i])
	}
	return n, nil
}

type estimateOptions struct {
	pairs int
}

// EstimateOption tunes EstimateKeyLengths.
type EstimateOption func(*estimateOptions)

// WithBlockPairs averages the normalized distance over up to n consecutive
// block pairs instead of only the first two blocks. n <= 0 uses every pair
// that fits; n == 1 compares blocks 0 and 1 only.
func WithBlockPairs(n int) EstimateOption {
	return func(o *estimateOptions) {
		o.pairs = n
	}
}

// EstimateKeyLengths scores every length in [minLen, maxLen] for which the
// ciphertext holds at least two full blocks and returns them ordered from most
// to least likely. Equal scores keep the shorter length first.
func EstimateKeyLengths(ct []byte, minLen, maxLen int, opts ...EstimateOption) ([]KeyLengthCandidate, error) {
	if minLen < 1 {
		return nil, fmt.Errorf("%w: minimum key length must be at least 1, got %d", ErrInvalidConfig, minLen)
	}
	if maxLen < minLen {
		return nil, fmt.Errorf("%w: maximum key length %d below minimum %d", ErrInvalidConfig, maxLen, minLen)
	}
	o := estimateOptions{pairs: 1}
	for _, opt := range opts {
		opt(&o)
	}

	var candidates []KeyLengthCandidate
	for l := minLen; l <= maxLen; l++ {
		score, ok := normalizedDistance(ct, l, o.pairs)
		if !ok {
			break
		}
		candidates = append(candidates, KeyLengthCandidate{Length: l, Score: score})
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %d bytes of ciphertext is too short for key length %d", ErrInvalidInput, len(ct), minLen)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score < candidates[j].Score
		}
		return candidates[i].Length < candidates[j].Length
	})
	return candidates, nil
}

func normalizedDistance(ct []byte, l, pairs int) (float64, bool) {
	blocks := len(ct) / l
	if blocks < 2 {
		return 0, false
	}
	n := blocks - 1
	if pairs > 0 && pairs < n {
		n = pairs
	}
	var total float64
	for p := 0; p < n; p++ {
		a := ct[p*l : (p+1)*l]
		b := ct[(p+1)*l : (p+2)*l]
		d, _ := HammingDistance(a, b)
		total += float64(d) / float64(l)
	}
	return total / float64(n), true
}
