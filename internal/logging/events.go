package logging

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type EventType string

const (
	EventRunStarted       EventType = "run_started"
	EventRunFinished      EventType = "run_finished"
	EventKeySizeEstimated EventType = "keysize_estimated"
	EventColumnSolved     EventType = "column_solved"
	EventCandidateScored  EventType = "candidate_scored"
	EventBestSelected     EventType = "best_selected"
	EventDetectLine       EventType = "detect_line"
)

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Event is one line of the JSON event log.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Component string         `json:"component"`
	RunID     string         `json:"run_id,omitempty"`
	TraceID   string         `json:"trace_id,omitempty"`
	EventType EventType      `json:"event_type"`
	Level     Level          `json:"level,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Message   string         `json:"message,omitempty"`
}

type Option func(*config) error

type config struct {
	writers          []io.Writer
	closers          []io.Closer
	useDefaultWriter bool
	runID            string
}

func defaultConfig() *config {
	return &config{writers: []io.Writer{os.Stderr}, useDefaultWriter: true}
}

// WithWriter adds a destination for events.
func WithWriter(w io.Writer) Option {
	return func(cfg *config) error {
		if w == nil {
			return errors.New("writer cannot be nil")
		}
		cfg.writers = append(cfg.writers, w)
		return nil
	}
}

// WithFile appends events to path, creating it if needed.
func WithFile(path string) Option {
	return func(cfg *config) error {
		if strings.TrimSpace(path) == "" {
			return errors.New("file path cannot be empty")
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return err
		}
		cfg.writers = append(cfg.writers, f)
		cfg.closers = append(cfg.closers, f)
		return nil
	}
}

// WithoutStderr drops the default stderr destination.
func WithoutStderr() Option {
	return func(cfg *config) error {
		cfg.useDefaultWriter = false
		filtered := cfg.writers[:0]
		for _, w := range cfg.writers {
			if w == os.Stderr {
				continue
			}
			filtered = append(filtered, w)
		}
		cfg.writers = filtered
		return nil
	}
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(cfg *config) error {
		if strings.TrimSpace(id) == "" {
			return errors.New("run id cannot be empty")
		}
		cfg.runID = id
		return nil
	}
}

// NewRunID returns a fresh, time-ordered run identifier.
func NewRunID() string {
	return ulid.Make().String()
}

type eventCore struct {
	mu      sync.Mutex
	encoder *json.Encoder
	closers []io.Closer
}

// EventLogger writes events as JSON lines. Every event carries the logger's
// component and run id. It is safe for concurrent use.
type EventLogger struct {
	component   string
	runID       string
	core        *eventCore
	ownsClosers bool
}

func NewEventLogger(component string, opts ...Option) (*EventLogger, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			for _, closer := range cfg.closers {
				_ = closer.Close()
			}
			return nil, err
		}
	}
	if !cfg.useDefaultWriter && len(cfg.writers) == 0 {
		return nil, errors.New("no writers configured for event logger")
	}
	if cfg.runID == "" {
		cfg.runID = NewRunID()
	}
	enc := json.NewEncoder(io.MultiWriter(cfg.writers...))
	enc.SetEscapeHTML(false)
	return &EventLogger{
		component:   component,
		runID:       cfg.runID,
		core:        &eventCore{encoder: enc, closers: cfg.closers},
		ownsClosers: true,
	}, nil
}

func MustNewEventLogger(component string, opts ...Option) *EventLogger {
	logger, err := NewEventLogger(component, opts...)
	if err != nil {
		panic(err)
	}
	return logger
}

// RunID returns the identifier stamped on every event.
func (l *EventLogger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

func (l *EventLogger) Close() error {
	if l == nil || !l.ownsClosers || l.core == nil {
		return nil
	}
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	var firstErr error
	for _, closer := range l.core.closers {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.core.closers = nil
	return firstErr
}

func (l *EventLogger) Emit(event Event) error {
	if l == nil || l.core == nil {
		return errors.New("nil event logger")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	} else {
		event.Timestamp = event.Timestamp.UTC()
	}
	if event.Component == "" {
		event.Component = l.component
	}
	if event.RunID == "" {
		event.RunID = l.runID
	}
	if event.Level == "" {
		event.Level = LevelInfo
	}
	for k, v := range event.Metadata {
		if f, ok := v.(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
			event.Metadata[k] = nil
		}
	}
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	return l.core.encoder.Encode(event)
}

// WithComponent returns a logger sharing destinations and run id under a
// different component name.
func (l *EventLogger) WithComponent(component string) *EventLogger {
	if l == nil || l.core == nil {
		return nil
	}
	return &EventLogger{
		component:   component,
		runID:       l.runID,
		core:        l.core,
		ownsClosers: false,
	}
}
