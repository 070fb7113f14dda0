package metrics

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteTextExportsMetrics(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	RecordRun("break", nil)
	RecordRun("break", errors.New("boom"))
	RecordColumnSolved(true)
	RecordColumnSolved(false)
	RecordColumnSolved(false)
	RecordLengthTried()
	SetWorkers(4)
	ObserveStage(context.Background(), "trial", 3*time.Millisecond)

	var buf bytes.Buffer
	if err := WriteText(&buf); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	body := buf.String()

	required := []string{
		"# HELP xorcrack_runs_total",
		`xorcrack_runs_total{command="break",result="ok"} 1`,
		`xorcrack_runs_total{command="break",result="error"} 1`,
		`xorcrack_columns_solved_total{path="exhaustive"} 2`,
		`xorcrack_columns_solved_total{path="fast"} 1`,
		"xorcrack_key_lengths_tried_total 1",
		"xorcrack_workers 4",
		"# TYPE xorcrack_stage_duration_seconds histogram",
		`xorcrack_stage_duration_seconds_bucket{stage="trial",le="0.001"} 0`,
		`xorcrack_stage_duration_seconds_bucket{stage="trial",le="0.005"} 1`,
		`xorcrack_stage_duration_seconds_bucket{stage="trial",le="+Inf"} 1`,
		`xorcrack_stage_duration_seconds_count{stage="trial"} 1`,
	}
	for _, metric := range required {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in output:\n%s", metric, body)
		}
	}
}

func TestCounterValueAndReset(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	RecordColumnSolved(true)
	if got := columnsSolved.value("fast"); got != 1 {
		t.Fatalf("fast = %v, want 1", got)
	}
	Reset()
	if got := columnsSolved.value("fast"); got != 0 {
		t.Fatalf("after reset fast = %v, want 0", got)
	}
}

func TestLabelArityPanics(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	tests := []struct {
		name string
		call func()
	}{
		{name: "add", call: func() { runs.add(1, "only-one") }},
		{name: "set", call: func() { workers.set(2, "extra") }},
		{name: "observe", call: func() { stageLatency.observe(context.Background(), 0.1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			func() {
				defer func() {
					if recover() == nil {
						t.Fatal("expected panic on wrong label count")
					}
				}()
				tt.call()
			}()

			// The family must stay usable after the panic.
			done := make(chan struct{})
			go func() {
				defer close(done)
				RecordRun("break", nil)
				SetWorkers(3)
				ObserveStage(context.Background(), "trial", time.Millisecond)
				Reset()
			}()
			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("metric family still locked after a label arity panic")
			}
		})
	}
}

func TestWriteFile(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	RecordLengthTried()

	path := filepath.Join(t.TempDir(), "out", "metrics.prom")
	if err := WriteFile(path); err != nil {
		t.Fatalf("write file: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "xorcrack_key_lengths_tried_total 1") {
		t.Fatalf("unexpected file contents:\n%s", data)
	}
}
