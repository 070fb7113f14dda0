package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/RowanDark/xorcrack/internal/config"
	"github.com/RowanDark/xorcrack/internal/crack"
	"github.com/RowanDark/xorcrack/internal/logging"
	"github.com/RowanDark/xorcrack/internal/observability/metrics"
	"github.com/RowanDark/xorcrack/internal/observability/tracing"
)

// maxReadBytes bounds what readInput accepts from stdin or files.
const maxReadBytes = 64 << 20

func loadConfig() (config.Config, error) {
	if path := strings.TrimSpace(*configPath); path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// readInput concatenates the named files, or reads stdin when there are none
// or the only name is "-".
func readInput(paths []string) ([]byte, error) {
	if len(paths) == 0 || (len(paths) == 1 && paths[0] == "-") {
		return readLimited(os.Stdin, "stdin")
	}
	var out []byte
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		data, err := readLimited(f, path)
		f.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
	}
	return out, nil
}

func readLimited(r io.Reader, name string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxReadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) > maxReadBytes {
		return nil, fmt.Errorf("read %s: input exceeds %d bytes", name, maxReadBytes)
	}
	return data, nil
}

// writePlaintext writes recovered bytes as they are, unless w is a terminal,
// in which case bytes outside printable ASCII are escaped.
func writePlaintext(w io.Writer, b []byte) error {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, err := io.WriteString(w, escapeNonPrintable(b))
		return err
	}
	_, err := w.Write(b)
	return err
}

func escapeNonPrintable(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		switch {
		case c == '\n' || c == '\t':
			sb.WriteByte(c)
		case c < 32 || c > 126:
			fmt.Fprintf(&sb, "\\x%02x", c)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// session carries the per-command telemetry: an optional event log, tracing
// and a metrics snapshot written on finish.
type session struct {
	command     string
	id          string
	logger      *logging.EventLogger
	metricsPath string
	shutdown    func(context.Context) error
}

func startSession(ctx context.Context, command string, tc config.TelemetryConfig) (*session, error) {
	s := &session{command: command, metricsPath: strings.TrimSpace(tc.MetricsFile)}

	if path := strings.TrimSpace(tc.TraceFile); path != "" {
		shutdown, err := tracing.Setup(ctx, tracing.Config{SampleRatio: tc.TraceSampleRatio, FilePath: path})
		if err != nil {
			return nil, fmt.Errorf("set up tracing: %w", err)
		}
		s.shutdown = shutdown
	}

	if path := strings.TrimSpace(tc.LogFile); path != "" {
		logger, err := logging.NewEventLogger("xorcrack", logging.WithoutStderr(), logging.WithFile(path))
		if err != nil {
			s.close(ctx)
			return nil, fmt.Errorf("open event log: %w", err)
		}
		s.logger = logger
		s.id = logger.RunID()
		_ = logger.Emit(logging.Event{EventType: logging.EventRunStarted, Component: command})
	}
	if s.id == "" {
		s.id = logging.NewRunID()
	}
	return s, nil
}

// runID identifies the session's events, JSON output and history rows. Without
// an event log it is still minted so those can be correlated.
func (s *session) runID() string {
	return s.id
}

func (s *session) observer() crack.Observer {
	if s.logger == nil {
		return nil
	}
	return logging.NewBreakObserver(s.logger.WithComponent("crack"))
}

// finish records the outcome of the command and flushes telemetry.
func (s *session) finish(ctx context.Context, runErr error) {
	metrics.RecordRun(s.command, runErr)
	if s.logger != nil {
		ev := logging.Event{EventType: logging.EventRunFinished, Component: s.command}
		if runErr != nil {
			ev.Level = logging.LevelError
			ev.Message = runErr.Error()
		}
		_ = s.logger.Emit(ev)
	}
	if s.metricsPath != "" {
		if err := metrics.WriteFile(s.metricsPath); err != nil {
			fmt.Fprintf(os.Stderr, "write metrics: %v\n", err)
		}
	}
	s.close(ctx)
}

func (s *session) close(ctx context.Context) {
	if s.shutdown != nil {
		if err := s.shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "flush traces: %v\n", err)
		}
	}
	if s.logger != nil {
		_ = s.logger.Close()
	}
}
