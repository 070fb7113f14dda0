package metrics

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/RowanDark/xorcrack/internal/observability/tracing"
)

type kind string

const (
	counter   kind = "counter"
	gauge     kind = "gauge"
	histogram kind = "histogram"
)

// stageBounds are the latency bucket upper bounds in seconds. Column solves
// take microseconds, whole breaks up to seconds.
var stageBounds = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// family is one named metric and its labelled series.
type family struct {
	name   string
	help   string
	kind   kind
	labels []string
	bounds []float64

	mu     sync.Mutex
	series map[string]*series
}

type series struct {
	labelValues []string
	value       float64

	// histogram only
	hits     []uint64
	sum      float64
	count    uint64
	traceID  string
	exemplar float64
}

var (
	runs          = newFamily(counter, "xorcrack_runs_total", "Commands executed, by command and result.", "command", "result")
	columnsSolved = newFamily(counter, "xorcrack_columns_solved_total", "Single-byte XOR columns solved, by search path.", "path")
	lengthsTried  = newFamily(counter, "xorcrack_key_lengths_tried_total", "Candidate key lengths decrypted and scored.")
	workers       = newFamily(gauge, "xorcrack_workers", "Worker goroutines used by the last break.")
	stageLatency  = newFamily(histogram, "xorcrack_stage_duration_seconds", "Time spent in each stage of key recovery.", "stage")

	families = []*family{runs, columnsSolved, lengthsTried, workers, stageLatency}
)

func newFamily(k kind, name, help string, labels ...string) *family {
	f := &family{name: name, help: help, kind: k, labels: labels, series: make(map[string]*series)}
	if k == histogram {
		f.bounds = stageBounds
	}
	return f
}

// lookup returns the series for values, creating it. f.mu must be held.
func (f *family) lookup(values []string) *series {
	if len(values) != len(f.labels) {
		panic(fmt.Sprintf("%s: expected %d label values, got %d", f.name, len(f.labels), len(values)))
	}
	key := strings.Join(values, "\x00")
	s, ok := f.series[key]
	if !ok {
		s = &series{labelValues: append([]string(nil), values...)}
		if f.kind == histogram {
			s.hits = make([]uint64, len(f.bounds)+1)
		}
		f.series[key] = s
	}
	return s
}

func (f *family) add(delta float64, values ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookup(values).value += delta
}

func (f *family) set(v float64, values ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookup(values).value = v
}

func (f *family) observe(ctx context.Context, sample float64, values ...string) {
	traceID := tracing.TraceIDFromContext(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.lookup(values)
	s.hits[sort.SearchFloat64s(f.bounds, sample)]++
	s.sum += sample
	s.count++
	if traceID != "" {
		s.traceID, s.exemplar = traceID, sample
	}
}

func (f *family) value(values ...string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookup(values).value
}

func (f *family) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.series = make(map[string]*series)
}

func (f *family) writeText(sb *strings.Builder) {
	fmt.Fprintf(sb, "# HELP %s %s\n# TYPE %s %s\n", f.name, f.help, f.name, f.kind)

	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.series))
	for k := range f.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		s := f.series[k]
		if f.kind != histogram {
			fmt.Fprintf(sb, "%s%s %g\n", f.name, f.labelSet(s, ""), s.value)
			continue
		}
		var cumulative uint64
		for i, upper := range f.bounds {
			cumulative += s.hits[i]
			le := `le="` + strconv.FormatFloat(upper, 'g', -1, 64) + `"`
			fmt.Fprintf(sb, "%s_bucket%s %d\n", f.name, f.labelSet(s, le), cumulative)
		}
		cumulative += s.hits[len(f.bounds)]
		fmt.Fprintf(sb, "%s_bucket%s %d\n", f.name, f.labelSet(s, `le="+Inf"`), cumulative)
		fmt.Fprintf(sb, "%s_sum%s %g", f.name, f.labelSet(s, ""), s.sum)
		if s.traceID != "" {
			fmt.Fprintf(sb, ` # {trace_id="%s"} %g`, escapeLabel(s.traceID), s.exemplar)
		}
		sb.WriteByte('\n')
		fmt.Fprintf(sb, "%s_count%s %d\n", f.name, f.labelSet(s, ""), s.count)
	}
}

// labelSet renders {name="value",...}, with extra appended verbatim.
func (f *family) labelSet(s *series, extra string) string {
	if len(f.labels) == 0 && extra == "" {
		return ""
	}
	pairs := make([]string, 0, len(f.labels)+1)
	for i, name := range f.labels {
		pairs = append(pairs, name+`="`+escapeLabel(s.labelValues[i])+`"`)
	}
	if extra != "" {
		pairs = append(pairs, extra)
	}
	return "{" + strings.Join(pairs, ",") + "}"
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, `"`, `\"`)

func escapeLabel(v string) string {
	return labelEscaper.Replace(v)
}

// WriteText writes every metric in the Prometheus text exposition format.
func WriteText(w io.Writer) error {
	var sb strings.Builder
	for _, f := range families {
		f.writeText(&sb)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteFile replaces path with the current metrics snapshot.
func WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteText(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Reset clears every recorded value.
func Reset() {
	for _, f := range families {
		f.reset()
	}
}

// RecordRun counts a finished command. err decides the result label.
func RecordRun(command string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	runs.add(1, command, result)
}

// RecordColumnSolved counts one solved column.
func RecordColumnSolved(fastPath bool) {
	path := "exhaustive"
	if fastPath {
		path = "fast"
	}
	columnsSolved.add(1, path)
}

// RecordLengthTried counts one candidate key length taken through decryption.
func RecordLengthTried() {
	lengthsTried.add(1)
}

// SetWorkers records the worker pool size.
func SetWorkers(n int) {
	workers.set(float64(n))
}

// ObserveStage records the duration of a recovery stage such as "estimate",
// "trial" or "break". A trace id on ctx becomes the exemplar.
func ObserveStage(ctx context.Context, stage string, dur time.Duration) {
	stageLatency.observe(ctx, dur.Seconds(), stage)
}
