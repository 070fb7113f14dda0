package crack

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// MinScore is the score given to empty input by every scorer. Any non-empty
// candidate outscores it.
var MinScore = math.Inf(-1)

// Scorer rates a candidate plaintext. Higher scores are more plausible as
// English text. Implementations must be safe for concurrent use.
type Scorer interface {
	Score(b []byte) float64
}

// Strategy names a scoring approach.
type Strategy string

const (
	StrategyTopK      Strategy = "top-k"
	StrategyChiSquare Strategy = "chi-square"
)

// ParseStrategy accepts the names used in configuration files and flags.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top-k", "topk", "top-k-overlap":
		return StrategyTopK, nil
	case "chi-square", "chisquare", "chi2":
		return StrategyChiSquare, nil
	default:
		return "", fmt.Errorf("%w: unknown scoring strategy %q", ErrInvalidConfig, s)
	}
}

// NewScorer builds the scorer for a strategy. topK only applies to StrategyTopK.
func NewScorer(strategy Strategy, topK int) (Scorer, error) {
	switch strategy {
	case StrategyTopK:
		if topK < 1 {
			return nil, fmt.Errorf("%w: top-k must be at least 1, got %d", ErrInvalidConfig, topK)
		}
		return TopKScorer{K: topK}, nil
	case StrategyChiSquare:
		return ChiSquareScorer{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown scoring strategy %q", ErrInvalidConfig, strategy)
	}
}

// englishFrequencies holds the expected share of each letter a-z, in percent
// of all letters.
var englishFrequencies = [26]float64{
	8.16, 1.49, 2.78, 4.25, 12.70, 2.22, 2.02, 6.09, 6.97, 0.15, 0.77, 4.03, 2.41,
	6.75, 7.51, 1.93, 0.10, 5.99, 6.44, 9.01, 2.76, 0.98, 2.36, 0.15, 1.97, 0.07,
}

const (
	// Expected share of all bytes that are letters, spaces and other
	// printable symbols. Line breaks and tabs are not modelled.
	letterShare = 0.80
	spaceShare  = 0.17
	otherShare  = 0.03

	nonPrintablePenalty = 10.0
)

// LetterFrequency returns the expected percentage of an ASCII letter among
// letters, ignoring case. Non-letters return 0.
func LetterFrequency(c byte) float64 {
	switch {
	case c >= 'a' && c <= 'z':
		return englishFrequencies[c-'a']
	case c >= 'A' && c <= 'Z':
		return englishFrequencies[c-'A']
	}
	return 0
}

// DefaultTopK is the number of most frequent symbols inspected by TopKScorer
// when K is unset.
const DefaultTopK = 5

// DefaultCommon is the set of symbols TopKScorer expects near the top of an
// English frequency ranking.
var DefaultCommon = []byte(" etaoiETAOI")

// TopKScorer ranks the symbols of a candidate by count and reports how many
// of the K most frequent are in Common. Counting is case-sensitive; ties in
// the ranking are broken by ascending byte value.
type TopKScorer struct {
	K      int
	Common []byte
}

// Score implements Scorer.
func (s TopKScorer) Score(b []byte) float64 {
	if len(b) == 0 {
		return MinScore
	}
	k := s.K
	if k <= 0 {
		k = DefaultTopK
	}
	common := s.Common
	if len(common) == 0 {
		common = DefaultCommon
	}
	var isCommon [256]bool
	for _, c := range common {
		isCommon[c] = true
	}

	top := TopSymbols(b, k)
	overlap := 0
	for _, c := range top {
		if isCommon[c] {
			overlap++
		}
	}
	return float64(overlap)
}

// TopSymbols returns up to n distinct bytes of b ordered by descending count,
// ties broken by ascending byte value.
func TopSymbols(b []byte, n int) []byte {
	var counts [256]int
	for _, c := range b {
		counts[c]++
	}
	symbols := make([]byte, 0, 256)
	for c := 0; c < 256; c++ {
		if counts[c] > 0 {
			symbols = append(symbols, byte(c))
		}
	}
	sort.SliceStable(symbols, func(i, j int) bool {
		return counts[symbols[i]] > counts[symbols[j]]
	})
	if n < 0 {
		n = 0
	}
	if n < len(symbols) {
		symbols = symbols[:n]
	}
	return symbols
}

// ChiSquareScorer compares observed letter, space and punctuation
// frequencies against English and returns the negated sum of squared deviations, so zero is a
// perfect fit. Bytes outside printable ASCII, other than tab and line breaks,
// carry a heavy penalty.
type ChiSquareScorer struct{}

// Score implements Scorer.
func (ChiSquareScorer) Score(b []byte) float64 {
	if len(b) == 0 {
		return MinScore
	}
	var letters [26]int
	spaces, other, bad := 0, 0, 0
	for _, c := range b {
		switch {
		case c >= 'a' && c <= 'z':
			letters[c-'a']++
		case c >= 'A' && c <= 'Z':
			letters[c-'A']++
		case c == ' ':
			spaces++
		case c == '\n' || c == '\r' || c == '\t':
		case c < 32 || c > 126:
			bad++
		default:
			other++
		}
	}

	n := float64(len(b))
	var deviation float64
	for i, pct := range englishFrequencies {
		d := float64(letters[i])/n - pct/100*letterShare
		deviation += d * d
	}
	d := float64(spaces)/n - spaceShare
	deviation += d * d
	d = float64(other)/n - otherShare
	deviation += d * d

	return -(deviation + nonPrintablePenalty*float64(bad)/n)
}

// Printable reports whether every byte of b is printable ASCII or a tab or
// line break.
func Printable(b []byte) bool {
	for _, c := range b {
		if (c < 32 || c > 126) && c != '\n' && c != '\r' && c != '\t' {
			return false
		}
	}
	return true
}
