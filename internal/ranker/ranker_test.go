package ranker_test

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/RowanDark/xorcrack/internal/crack"
	"github.com/RowanDark/xorcrack/internal/ranker"
)

func TestRankOrdersLines(t *testing.T) {
	candidates := []crack.LineCandidate{
		{Index: 0, Ciphertext: []byte{0x01}, Plaintext: []byte{0x00, 0x9f}, Score: -0.01},
		{Index: 1, Ciphertext: []byte{0x02}, Plaintext: []byte("a fine line"), Score: -0.2},
		{Index: 2, Ciphertext: []byte{0x03}, Plaintext: []byte("the best line"), Score: -0.05},
		{Index: 3, Ciphertext: []byte{0x03}, Plaintext: []byte("the best line"), Score: -0.05},
		{Index: 4, Ciphertext: []byte{0x04}, Plaintext: []byte("equal score"), Score: -0.2},
	}
	ranked := ranker.Rank(candidates)

	if got, want := len(ranked), len(candidates); got != want {
		t.Fatalf("ranked length mismatch: got %d want %d", got, want)
	}

	wantOrder := []int{2, 1, 4, 0, 3}
	for i, want := range wantOrder {
		if ranked[i].Index != want {
			t.Fatalf("rank %d: got line %d want %d", i+1, ranked[i].Index, want)
		}
		if ranked[i].Rank != i+1 {
			t.Fatalf("rank field %d at position %d", ranked[i].Rank, i)
		}
	}

	dup := ranked[4]
	if dup.Primary || dup.DuplicateCount != 2 {
		t.Fatalf("repeated ciphertext should be a non-primary duplicate: %+v", dup)
	}
	if ranked[0].Text != "the best line" {
		t.Fatalf("printable text missing: %q", ranked[0].Text)
	}
	if ranked[3].Printable || ranked[3].Text != "" {
		t.Fatalf("non-printable line should carry no text: %+v", ranked[3])
	}
}

func TestRankEmpty(t *testing.T) {
	if got := ranker.Rank(nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestWriteJSONL(t *testing.T) {
	lines := [][]byte{[]byte("0123456789"), nil}
	target := []byte("Cooking MC's like a pound of bacon")
	enc := make([]byte, len(target))
	crack.XORSingleByte(enc, target, 'X')
	lines[1] = enc

	candidates, err := crack.DetectSingleByte(context.Background(), lines, crack.ChiSquareScorer{}, crack.DetectOptions{})
	if err != nil {
		t.Fatalf("DetectSingleByte: %v", err)
	}
	ranked := ranker.Rank(candidates)

	path := filepath.Join(t.TempDir(), "nested", "ranked.jsonl")
	if err := ranker.WriteJSONL(path, "01J0Y7AHAZ3ZKAB1Y7P5Z9Q4C0", ranked); err != nil {
		t.Fatalf("write ranked output: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open ranked output: %v", err)
	}
	defer file.Close()

	var decoded []ranker.RankedLine
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var line ranker.RankedLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("unmarshal ranked line: %v", err)
		}
		decoded = append(decoded, line)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(decoded))
	}
	if decoded[0].RunID != "01J0Y7AHAZ3ZKAB1Y7P5Z9Q4C0" {
		t.Fatalf("run id not stamped: %q", decoded[0].RunID)
	}
	if decoded[0].Text != string(target) {
		t.Fatalf("expected the encrypted line first, got %q", decoded[0].Text)
	}

	if err := ranker.WriteJSONL(" ", "", ranked); err == nil {
		t.Fatal("expected an error for an empty path")
	}
}
