package logging

import (
	"context"
	"encoding/hex"

	"github.com/RowanDark/xorcrack/internal/crack"
	"github.com/RowanDark/xorcrack/internal/observability/tracing"
)

// BreakObserver records breaker progress as events. Column events are logged
// at debug level since there is one per key byte.
type BreakObserver struct {
	logger *EventLogger
}

var _ crack.Observer = (*BreakObserver)(nil)

func NewBreakObserver(logger *EventLogger) *BreakObserver {
	return &BreakObserver{logger: logger}
}

func (o *BreakObserver) emit(ctx context.Context, t EventType, level Level, meta map[string]any) {
	_ = o.logger.Emit(Event{
		EventType: t,
		Level:     level,
		TraceID:   tracing.TraceIDFromContext(ctx),
		Metadata:  meta,
	})
}

func (o *BreakObserver) LengthsEstimated(ctx context.Context, candidates []crack.KeyLengthCandidate) {
	lengths := make([]map[string]any, 0, len(candidates))
	for _, c := range candidates {
		lengths = append(lengths, map[string]any{"length": c.Length, "distance": c.Score})
	}
	o.emit(ctx, EventKeySizeEstimated, LevelInfo, map[string]any{"candidates": lengths})
}

func (o *BreakObserver) ColumnSolved(ctx context.Context, keyLength, column int, kb crack.KeyByte) {
	o.emit(ctx, EventColumnSolved, LevelDebug, map[string]any{
		"key_length": keyLength,
		"column":     column,
		"key_byte":   hex.EncodeToString([]byte{kb.Value}),
		"score":      kb.Score,
		"fast_path":  kb.FastPath,
	})
}

func (o *BreakObserver) CandidateScored(ctx context.Context, r crack.Result) {
	o.emit(ctx, EventCandidateScored, LevelInfo, resultMetadata(r))
}

func (o *BreakObserver) BestSelected(ctx context.Context, r crack.Result) {
	o.emit(ctx, EventBestSelected, LevelInfo, resultMetadata(r))
}

// DetectLine records one scored line from single-byte detection.
func (o *BreakObserver) DetectLine(ctx context.Context, c crack.LineCandidate) {
	o.emit(ctx, EventDetectLine, LevelDebug, map[string]any{
		"line":      c.Index,
		"key_byte":  hex.EncodeToString([]byte{c.Key}),
		"score":     c.Score,
		"printable": crack.Printable(c.Plaintext),
	})
}

func resultMetadata(r crack.Result) map[string]any {
	return map[string]any{
		"key_hex":      hex.EncodeToString(r.Key),
		"key_length":   r.KeyLength,
		"tried_length": r.TriedLength,
		"score":        r.Score,
		"printable":    crack.Printable(r.Plaintext),
	}
}
