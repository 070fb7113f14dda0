package ranker

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/RowanDark/xorcrack/internal/crack"
	"github.com/RowanDark/xorcrack/internal/env"
)

// RankedLine is a single-byte detection candidate annotated with its place in
// the ranking. The embedded LineCandidate is left untouched.
type RankedLine struct {
	crack.LineCandidate
	Rank           int    `json:"rank"`
	RunID          string `json:"run_id,omitempty"`
	Text           string `json:"text,omitempty"`
	Printable      bool   `json:"printable"`
	DuplicateCount int    `json:"duplicate_count"`
	Primary        bool   `json:"primary"`
}

const (
	defaultOutputDir = "."
	rankedFilename   = "ranked.jsonl"
)

// DefaultOutputPath is where ranked lines are written when no explicit --out
// flag is given. XORCRACK_OUT names a different directory.
var DefaultOutputPath = filepath.Join(defaultOutputDir, rankedFilename)

func init() {
	if val, ok := env.Lookup(env.Prefix+"OUT", env.LegacyPrefix+"OUT"); ok {
		if custom := strings.TrimSpace(val); custom != "" {
			DefaultOutputPath = filepath.Join(custom, rankedFilename)
		}
	}
}

// Rank orders detection candidates from most to least likely to be the
// encrypted line. Lines whose ciphertext repeats an earlier line are kept but
// marked non-primary and sink below every primary line. Among primaries,
// printable decryptions come first, then higher scores, then lower line
// indexes.
func Rank(candidates []crack.LineCandidate) []RankedLine {
	if len(candidates) == 0 {
		return nil
	}

	groups := make(map[string][]int)
	for idx, c := range candidates {
		key := hex.EncodeToString(c.Ciphertext)
		groups[key] = append(groups[key], idx)
	}

	ranked := make([]RankedLine, len(candidates))
	for _, indexes := range groups {
		first := indexes[0]
		for _, idx := range indexes[1:] {
			if candidates[idx].Index < candidates[first].Index {
				first = idx
			}
		}
		for _, idx := range indexes {
			c := candidates[idx]
			printable := crack.Printable(c.Plaintext)
			line := RankedLine{
				LineCandidate:  c,
				Printable:      printable,
				DuplicateCount: len(indexes),
				Primary:        idx == first,
			}
			if printable {
				line.Text = string(c.Plaintext)
			}
			ranked[idx] = line
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Primary != b.Primary {
			return a.Primary
		}
		if a.Printable != b.Printable {
			return a.Printable
		}
		if !almostEqual(a.Score, b.Score) {
			return a.Score > b.Score
		}
		return a.Index < b.Index
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// WriteJSONL persists ranked lines to a JSON Lines file at path, stamping
// each with runID.
func WriteJSONL(path, runID string, ranked []RankedLine) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("output path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ranked output: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)
	encoder.SetEscapeHTML(false)
	for _, entry := range ranked {
		entry.RunID = runID
		if err := encoder.Encode(entry); err != nil {
			return fmt.Errorf("encode ranked line: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush ranked output: %w", err)
	}
	return nil
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
