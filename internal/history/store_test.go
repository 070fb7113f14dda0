package history_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/RowanDark/xorcrack/internal/cipher"
	"github.com/RowanDark/xorcrack/internal/crack"
	"github.com/RowanDark/xorcrack/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "db", "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndLookup(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	plaintext := []byte("Burning 'em, if you ain't quick and nimble")
	ct, err := cipher.RepeatingXOR(plaintext, []byte("ICE"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	weak := crack.Result{Key: []byte("ICF"), KeyLength: 3, TriedLength: 3, Score: -0.9}
	strong := crack.Result{Key: []byte("ICE"), KeyLength: 3, TriedLength: 6, Score: -0.1}
	if _, err := store.Record(ctx, "run-a", ct, weak, crack.StrategyChiSquare); err != nil {
		t.Fatalf("record weak: %v", err)
	}
	recorded, err := store.Record(ctx, "run-b", ct, strong, crack.StrategyChiSquare)
	if err != nil {
		t.Fatalf("record strong: %v", err)
	}
	if recorded.ID == 0 || recorded.Digest != history.Digest(ct) {
		t.Fatalf("unexpected recorded entry %+v", recorded)
	}

	entry, ok, err := store.Lookup(ctx, ct)
	if err != nil || !ok {
		t.Fatalf("lookup: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(entry.Key, []byte("ICE")) || entry.RunID != "run-b" || entry.TriedLength != 6 {
		t.Fatalf("expected the best scoring entry, got %+v", entry)
	}
	if entry.CiphertextBytes != len(ct) || entry.Strategy != string(crack.StrategyChiSquare) {
		t.Fatalf("unexpected entry metadata %+v", entry)
	}
	if entry.CreatedAt.IsZero() {
		t.Fatal("created_at not stored")
	}

	res, err := entry.Result(ct)
	if err != nil {
		t.Fatalf("rebuild result: %v", err)
	}
	if !bytes.Equal(res.Plaintext, plaintext) || res.KeyLength != 3 || res.Score != -0.1 {
		t.Fatalf("unexpected rebuilt result %+v", res)
	}
	if _, err := entry.Result(plaintext); err == nil {
		t.Fatal("expected an error for a different ciphertext")
	}

	if _, ok, err := store.Lookup(ctx, []byte("never seen")); err != nil || ok {
		t.Fatalf("lookup of unknown ciphertext: ok=%v err=%v", ok, err)
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	res := crack.Result{Key: []byte{0x58}, KeyLength: 1, TriedLength: 1, Score: -0.2}
	for i, run := range []string{"run-a", "run-b", "run-a"} {
		if _, err := store.Record(ctx, run, []byte{byte(i), 1, 2, 3}, res, crack.StrategyTopK); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	tests := []struct {
		name    string
		filter  history.Filter
		wantIDs []int64
	}{
		{name: "all newest first", filter: history.Filter{}, wantIDs: []int64{3, 2, 1}},
		{name: "by run", filter: history.Filter{RunID: "run-a"}, wantIDs: []int64{3, 1}},
		{name: "limit", filter: history.Filter{Limit: 1}, wantIDs: []int64{3}},
		{name: "unknown run", filter: history.Filter{RunID: "run-z"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := store.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(entries) != len(tt.wantIDs) {
				t.Fatalf("got %d entries, want %d", len(entries), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if entries[i].ID != id {
					t.Fatalf("entry %d: id %d, want %d", i, entries[i].ID, id)
				}
			}
		})
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ct := []byte{0x1b, 0x37, 0x37}
	if _, err := store.Record(ctx, "run-a", ct, crack.Result{Key: []byte{0x58}, KeyLength: 1, TriedLength: 1}, crack.StrategyTopK); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	store, err = history.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	if _, ok, err := store.Lookup(ctx, ct); err != nil || !ok {
		t.Fatalf("entry lost across reopen: ok=%v err=%v", ok, err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := history.Open("  "); err == nil {
		t.Fatal("expected an error for an empty path")
	}
}
