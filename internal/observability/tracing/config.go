package tracing

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config selects how break runs are sampled and where finished spans go.
type Config struct {
	// ServiceName is stamped on every span. Defaults to "xorcrack".
	ServiceName string
	// SampleRatio is the share of runs traced, clamped to [0,1]. Zero leaves
	// tracing off.
	SampleRatio float64
	// FilePath receives one JSON object per finished span. Empty records
	// spans without writing them anywhere.
	FilePath string
}

const (
	defaultServiceName  = "xorcrack"
	instrumentationName = "github.com/RowanDark/xorcrack/internal/crack"
	shutdownTimeout     = 5 * time.Second
)

var noopTracer = noop.NewTracerProvider().Tracer(instrumentationName)

var (
	mu       sync.RWMutex
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer = noopTracer
	service  string
)

// Setup installs the process tracer provider. The returned function flushes
// buffered spans and puts the no-op tracer back; call it before exiting.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	ratio := math.Max(0, math.Min(1, cfg.SampleRatio))
	if ratio == 0 {
		return func(context.Context) error { return nil }, nil
	}
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = defaultServiceName
	}

	res, err := sdkresource.New(ctx,
		sdkresource.WithTelemetrySDK(),
		sdkresource.WithAttributes(semconv.ServiceName(name)),
	)
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	}
	if path := strings.TrimSpace(cfg.FilePath); path != "" {
		exp, err := newFileExporter(path)
		if err != nil {
			return nil, fmt.Errorf("open span file: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	tp := sdktrace.NewTracerProvider(opts...)

	mu.Lock()
	prev := provider
	provider, tracer, service = tp, tp.Tracer(instrumentationName), name
	mu.Unlock()
	if prev != nil {
		_ = shutdown(ctx, prev)
	}
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		mu.Lock()
		if provider == tp {
			provider, tracer, service = nil, noopTracer, ""
		}
		mu.Unlock()
		return shutdown(ctx, tp)
	}, nil
}

func shutdown(ctx context.Context, tp *sdktrace.TracerProvider) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return tp.Shutdown(ctx)
}

// Enabled reports whether a provider is installed.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return provider != nil
}

// ServiceName returns the installed provider's service name, or "".
func ServiceName() string {
	mu.RLock()
	defer mu.RUnlock()
	return service
}
