package crack

import (
	"bytes"
	"errors"
	"testing"
)

func TestTranspose(t *testing.T) {
	cols, err := Transpose([]byte("abcdefgh"), 3)
	if err != nil {
		t.Fatalf("Transpose: %v", err)
	}
	want := []string{"adg", "beh", "cf"}
	for i, col := range cols {
		if string(col) != want[i] {
			t.Fatalf("column %d = %q, want %q", i, col, want[i])
		}
	}
}

func TestTransposeInterleaveRoundTrip(t *testing.T) {
	ct := []byte(lighthouse[:97])
	for l := 1; l <= len(ct)+3; l++ {
		cols, err := Transpose(ct, l)
		if err != nil {
			t.Fatalf("Transpose(%d): %v", l, err)
		}
		if len(cols) != l {
			t.Fatalf("Transpose(%d) returned %d columns", l, len(cols))
		}
		total := 0
		for i, col := range cols {
			total += len(col)
			if diff := len(cols[0]) - len(col); diff < 0 || diff > 1 {
				t.Fatalf("key length %d: column %d has %d bytes, column 0 has %d", l, i, len(col), len(cols[0]))
			}
		}
		if total != len(ct) {
			t.Fatalf("key length %d: columns hold %d bytes, want %d", l, total, len(ct))
		}
		if got := Interleave(cols); !bytes.Equal(got, ct) {
			t.Fatalf("key length %d: round trip mismatch", l)
		}
	}
}

func TestTransposeDoesNotAliasInput(t *testing.T) {
	ct := []byte("abcdef")
	cols, _ := Transpose(ct, 2)
	cols[0][0] = 'z'
	if ct[0] != 'a' {
		t.Fatal("Transpose columns alias the input")
	}
}

func TestTransposeInvalidLength(t *testing.T) {
	if _, err := Transpose([]byte("abc"), 0); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
