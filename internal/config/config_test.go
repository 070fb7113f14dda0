package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RowanDark/xorcrack/internal/crack"
	"github.com/RowanDark/xorcrack/internal/env"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(cwd) })
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadPrecedence(t *testing.T) {
	tempDir := t.TempDir()
	homeDir := filepath.Join(tempDir, "home")
	t.Setenv("HOME", homeDir)

	writeFile(t, filepath.Join(homeDir, ".xorcrack", "config.toml"), `# defaults for this machine
[breaker]
max_key_length = 24
candidates = 5   # try a few more
charset = "printable"

[telemetry]
log_file = "/var/log/xorcrack.jsonl"

[history]
database = '/var/lib/xorcrack/history.db'
`)

	workDir := filepath.Join(tempDir, "work")
	writeFile(t, filepath.Join(workDir, "xorcrack.yml"), `breaker:
  candidates: 4
  fast_path: true
  strategy: top-k
telemetry:
  trace_sample_ratio: 0.5
history:
  reuse: true
`)
	chdir(t, workDir)

	t.Setenv("XORCRACK_WORKERS", "6")
	t.Setenv("XORCRACK_CHARSET", "all")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	b := cfg.Breaker
	if b.MaxKeyLength != 24 {
		t.Fatalf("expected TOML max key length, got %d", b.MaxKeyLength)
	}
	if b.Candidates != 4 {
		t.Fatalf("expected YAML to override candidates, got %d", b.Candidates)
	}
	if !b.FastPath || b.Strategy != "top-k" {
		t.Fatalf("expected YAML fast path and strategy, got %+v", b)
	}
	if b.Workers != 6 {
		t.Fatalf("expected env workers, got %d", b.Workers)
	}
	if b.Charset != "all" {
		t.Fatalf("expected env charset to beat TOML, got %q", b.Charset)
	}
	if cfg.Telemetry.LogFile != "/var/log/xorcrack.jsonl" || cfg.Telemetry.TraceSampleRatio != 0.5 {
		t.Fatalf("unexpected telemetry %+v", cfg.Telemetry)
	}
	if cfg.History.Database != "/var/lib/xorcrack/history.db" || !cfg.History.Reuse {
		t.Fatalf("unexpected history %+v", cfg.History)
	}
	if b.MinKeyLength != Default().Breaker.MinKeyLength {
		t.Fatalf("unset keys must keep defaults, got min %d", b.MinKeyLength)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", filepath.Join(t.TempDir(), "home"))
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %#v", cfg)
	}

	bc, err := cfg.ToBreakConfig()
	if err != nil {
		t.Fatalf("ToBreakConfig: %v", err)
	}
	want := crack.DefaultConfig()
	if bc.MinKeyLength != want.MinKeyLength || bc.MaxKeyLength != want.MaxKeyLength ||
		bc.Candidates != want.Candidates || bc.Strategy != want.Strategy || bc.BlockPairs != want.BlockPairs {
		t.Fatalf("default break config %+v differs from crack defaults %+v", bc, want)
	}
}

func TestLoadLegacyHomeConfig(t *testing.T) {
	homeDir := filepath.Join(t.TempDir(), "home")
	t.Setenv("HOME", homeDir)
	chdir(t, t.TempDir())

	writeFile(t, filepath.Join(homeDir, ".xorbreak", "config.toml"), "[breaker]\ntop_k = 3\n")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Breaker.TopK != 3 {
		t.Fatalf("expected legacy config to apply, got top_k %d", cfg.Breaker.TopK)
	}

	writeFile(t, filepath.Join(homeDir, ".xorcrack", "config.toml"), "[breaker]\ntop_k = 7\n")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Breaker.TopK != 7 {
		t.Fatalf("expected current config to take precedence, got top_k %d", cfg.Breaker.TopK)
	}
}

func TestLoadLegacyEnvPrefix(t *testing.T) {
	t.Setenv("HOME", filepath.Join(t.TempDir(), "home"))
	chdir(t, t.TempDir())
	env.ResetWarningsForTesting()

	var warnings []string
	restore := env.SetWarnLoggerForTesting(func(format string, args ...any) {
		warnings = append(warnings, format)
	})
	defer restore()

	t.Setenv("XORBREAK_MAX_KEY_LENGTH", "12")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Breaker.MaxKeyLength != 12 {
		t.Fatalf("expected legacy env override, got %d", cfg.Breaker.MaxKeyLength)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one deprecation warning, got %d", len(warnings))
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		file  string
		body  string
		env   map[string]string
		match string
	}{
		{name: "bad toml int", file: "c.toml", body: "[breaker]\nworkers = many\n", match: "invalid integer"},
		{name: "bad toml line", file: "c.toml", body: "[breaker]\nworkers\n", match: "invalid toml line"},
		{name: "bad toml bool", file: "c.toml", body: "[breaker]\nfast_path = maybe\n", match: "invalid boolean"},
		{name: "bad history bool", file: "c.toml", body: "[history]\nreuse = sometimes\n", match: "invalid boolean"},
		{name: "bad env reuse", file: "c.yml", body: "", env: map[string]string{"XORCRACK_HISTORY_REUSE": "perhaps"}, match: "XORCRACK_HISTORY_REUSE"},
		{name: "bad yaml", file: "c.yml", body: "breaker: [1, 2\n", match: "parse config"},
		{name: "bad env int", file: "c.yml", body: "", env: map[string]string{"XORCRACK_CANDIDATES": "three"}, match: "XORCRACK_CANDIDATES"},
		{name: "bad env ratio", file: "c.yml", body: "", env: map[string]string{"XORCRACK_TRACE_SAMPLE_RATIO": "half"}, match: "TRACE_SAMPLE_RATIO"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := filepath.Join(t.TempDir(), tt.file)
			writeFile(t, path, tt.body)
			_, err := LoadFile(path)
			if err == nil || !strings.Contains(err.Error(), tt.match) {
				t.Fatalf("LoadFile error = %v, want mention of %q", err, tt.match)
			}
		})
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestToBreakConfig(t *testing.T) {
	cfg := Default()
	cfg.Breaker.Charset = "Printable"
	cfg.Breaker.Strategy = "topk"
	cfg.Breaker.ColumnStrategy = "chi2"
	cfg.Breaker.FastPath = true

	bc, err := cfg.ToBreakConfig()
	if err != nil {
		t.Fatalf("ToBreakConfig: %v", err)
	}
	if bc.Charset != crack.CharsetPrintable || bc.Strategy != crack.StrategyTopK ||
		bc.ColumnStrategy != crack.StrategyChiSquare || !bc.FastPath {
		t.Fatalf("unexpected break config %+v", bc)
	}

	cfg.Breaker.MaxKeyLength = 1
	if _, err := cfg.ToBreakConfig(); !errors.Is(err, crack.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	cfg = Default()
	cfg.Breaker.Strategy = "bigram"
	if _, err := cfg.ToBreakConfig(); !errors.Is(err, crack.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for unknown strategy, got %v", err)
	}
}
