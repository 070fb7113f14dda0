package logging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"

	"github.com/RowanDark/xorcrack/internal/crack"
)

func TestEventLoggerEmit(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := NewEventLogger("test", WithoutStderr(), WithWriter(buf))
	if err != nil {
		t.Fatalf("NewEventLogger: %v", err)
	}

	if err := logger.Emit(Event{EventType: EventRunStarted}); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	var decoded Event
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if decoded.Component != "test" {
		t.Fatalf("expected component 'test', got %q", decoded.Component)
	}
	if decoded.EventType != EventRunStarted {
		t.Fatalf("expected event type %q, got %q", EventRunStarted, decoded.EventType)
	}
	if decoded.Level != LevelInfo {
		t.Fatalf("expected default level info, got %q", decoded.Level)
	}
	if decoded.Timestamp.IsZero() {
		t.Fatalf("expected timestamp to be set")
	}
	if _, err := ulid.Parse(decoded.RunID); err != nil {
		t.Fatalf("run id %q is not a ULID: %v", decoded.RunID, err)
	}
	if decoded.RunID != logger.RunID() {
		t.Fatalf("run id %q, logger has %q", decoded.RunID, logger.RunID())
	}
}

func TestEventLoggerRequiresWriter(t *testing.T) {
	if _, err := NewEventLogger("test", WithoutStderr()); err == nil {
		t.Fatal("expected error without writers")
	}
	if _, err := NewEventLogger("test", WithRunID(" ")); err == nil {
		t.Fatal("expected error for blank run id")
	}
}

func TestEventLoggerNonFiniteMetadata(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := MustNewEventLogger("test", WithoutStderr(), WithWriter(buf))
	err := logger.Emit(Event{EventType: EventCandidateScored, Metadata: map[string]any{"score": math.Inf(-1)}})
	if err != nil {
		t.Fatalf("Emit with -Inf should not fail: %v", err)
	}
	if !strings.Contains(buf.String(), `"score":null`) {
		t.Fatalf("expected null score, got %s", buf.String())
	}
}

func TestWithComponentSharesRun(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := MustNewEventLogger("cli", WithoutStderr(), WithWriter(buf), WithRunID("01HZZZZZZZZZZZZZZZZZZZZZZZ"))
	child := logger.WithComponent("crack")
	if err := child.Emit(Event{EventType: EventRunFinished}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if err := child.Close(); err != nil {
		t.Fatalf("child close: %v", err)
	}

	var decoded Event
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if decoded.Component != "crack" || decoded.RunID != "01HZZZZZZZZZZZZZZZZZZZZZZZ" {
		t.Fatalf("unexpected event %+v", decoded)
	}
}

func TestWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	logger, err := NewEventLogger("test", WithoutStderr(), WithFile(path))
	if err != nil {
		t.Fatalf("NewEventLogger: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := logger.Emit(Event{EventType: EventColumnSolved}); err != nil {
			t.Fatalf("Emit: %v", err)
		}
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
	}
	if lines != 3 {
		t.Fatalf("expected 3 lines, got %d", lines)
	}
}

func TestBreakObserverRecordsRun(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := MustNewEventLogger("crack", WithoutStderr(), WithWriter(buf))

	cfg := crack.DefaultConfig()
	cfg.Observer = NewBreakObserver(logger)
	cfg.Workers = 2

	plain := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog while the cat sleeps. ", 6))
	ct := make([]byte, len(plain))
	key := []byte("ICE")
	for i := range plain {
		ct[i] = plain[i] ^ key[i%len(key)]
	}
	if _, err := crack.Break(context.Background(), ct, cfg); err != nil {
		t.Fatalf("Break: %v", err)
	}

	counts := map[EventType]int{}
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		counts[ev.EventType]++
	}
	if counts[EventKeySizeEstimated] != 1 {
		t.Errorf("keysize_estimated events = %d, want 1", counts[EventKeySizeEstimated])
	}
	if counts[EventBestSelected] != 1 {
		t.Errorf("best_selected events = %d, want 1", counts[EventBestSelected])
	}
	if counts[EventCandidateScored] < 1 || counts[EventColumnSolved] < 2 {
		t.Errorf("unexpected event counts %v", counts)
	}
}
