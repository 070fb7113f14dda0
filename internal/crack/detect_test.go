package crack

import (
	"context"
	"errors"
	"sort"
	"testing"
)

func noiseLine(i, n int) []byte {
	line := make([]byte, n)
	for j := range line {
		line[j] = byte((i*31 + j*17 + 7) % 256)
	}
	return line
}

func TestDetectSingleByte(t *testing.T) {
	lines := make([][]byte, 8)
	for i := range lines {
		lines[i] = noiseLine(i, 40)
	}
	target := []byte(lighthouse[:40])
	lines[5] = make([]byte, len(target))
	XORSingleByte(lines[5], target, 0x35)
	lines = append(lines, nil)

	got, err := DetectSingleByte(context.Background(), lines, ChiSquareScorer{}, DetectOptions{Workers: 3})
	if err != nil {
		t.Fatalf("DetectSingleByte: %v", err)
	}
	if len(got) != 8 {
		t.Fatalf("expected 8 candidates (empty line skipped), got %d", len(got))
	}
	for i, c := range got {
		if c.Index != i {
			t.Fatalf("candidate %d has index %d, want line order", i, c.Index)
		}
	}

	sort.SliceStable(got, func(i, j int) bool { return got[i].Score > got[j].Score })
	best := got[0]
	if best.Index != 5 || best.Key != 0x35 {
		t.Fatalf("best line %d key %#x, want line 5 key 0x35", best.Index, best.Key)
	}
	if string(best.Plaintext) != string(target) {
		t.Fatalf("plaintext = %q", best.Plaintext)
	}
}

func TestDetectSingleByteErrors(t *testing.T) {
	if _, err := DetectSingleByte(context.Background(), [][]byte{nil, {}}, ChiSquareScorer{}, DetectOptions{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty lines, got %v", err)
	}
	if _, err := DetectSingleByte(context.Background(), [][]byte{[]byte("x")}, nil, DetectOptions{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for nil scorer, got %v", err)
	}
	if _, err := DetectSingleByte(context.Background(), [][]byte{[]byte("x")}, ChiSquareScorer{}, DetectOptions{Charset: "utf8"}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for bad charset, got %v", err)
	}
}
