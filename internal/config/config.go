package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/RowanDark/xorcrack/internal/crack"
	"github.com/RowanDark/xorcrack/internal/env"
)

// Config captures the xorcrack configuration resolved from defaults, optional
// files, and environment overrides.
type Config struct {
	Breaker   BreakerConfig   `yaml:"breaker" toml:"breaker"`
	Telemetry TelemetryConfig `yaml:"telemetry" toml:"telemetry"`
	History   HistoryConfig   `yaml:"history" toml:"history"`
}

// BreakerConfig mirrors crack.Config with names suited to files and flags.
type BreakerConfig struct {
	MinKeyLength   int    `yaml:"min_key_length" toml:"min_key_length"`
	MaxKeyLength   int    `yaml:"max_key_length" toml:"max_key_length"`
	Candidates     int    `yaml:"candidates" toml:"candidates"`
	Charset        string `yaml:"charset" toml:"charset"`
	Strategy       string `yaml:"strategy" toml:"strategy"`
	ColumnStrategy string `yaml:"column_strategy" toml:"column_strategy"`
	TopK           int    `yaml:"top_k" toml:"top_k"`
	BlockPairs     int    `yaml:"block_pairs" toml:"block_pairs"`
	Workers        int    `yaml:"workers" toml:"workers"`
	FastPath       bool   `yaml:"fast_path" toml:"fast_path"`
	MaxInputBytes  int    `yaml:"max_input_bytes" toml:"max_input_bytes"`
}

// TelemetryConfig says where events, spans and metrics are written. Empty
// paths disable the corresponding output.
type TelemetryConfig struct {
	LogFile          string  `yaml:"log_file" toml:"log_file"`
	TraceFile        string  `yaml:"trace_file" toml:"trace_file"`
	TraceSampleRatio float64 `yaml:"trace_sample_ratio" toml:"trace_sample_ratio"`
	MetricsFile      string  `yaml:"metrics_file" toml:"metrics_file"`
}

// HistoryConfig points at the SQLite database of solved ciphertexts. An
// empty Database turns recording off.
type HistoryConfig struct {
	Database string `yaml:"database" toml:"database"`
	// Reuse answers a break from the database when the same ciphertext was
	// solved before.
	Reuse bool `yaml:"reuse" toml:"reuse"`
}

// Default returns the built-in configuration, matching crack.DefaultConfig.
func Default() Config {
	d := crack.DefaultConfig()
	return Config{
		Breaker: BreakerConfig{
			MinKeyLength:   d.MinKeyLength,
			MaxKeyLength:   d.MaxKeyLength,
			Candidates:     d.Candidates,
			Charset:        string(d.Charset),
			Strategy:       string(d.Strategy),
			ColumnStrategy: string(d.ColumnStrategy),
			TopK:           d.TopK,
			BlockPairs:     d.BlockPairs,
			Workers:        d.Workers,
			FastPath:       d.FastPath,
			MaxInputBytes:  d.MaxInputBytes,
		},
		Telemetry: TelemetryConfig{
			TraceSampleRatio: 1,
		},
	}
}

// Load resolves the configuration using defaults, configuration files, and
// environment overrides. Files are applied in this order, later ones
// winning:
//  1. ~/.xorcrack/config.toml (TOML), or ~/.xorbreak/config.toml (legacy)
//  2. ./xorcrack.yml (YAML)
//
// Environment variables prefixed with XORCRACK_ have the highest precedence.
func Load() (Config, error) {
	cfg := Default()

	if err := loadHomeConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadLocalConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile applies defaults, the file at path, and environment overrides.
// The format follows the extension: .toml is TOML, anything else YAML.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		format = "toml"
	}
	if err := applyFileConfig(&cfg, data, format); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ToBreakConfig converts the settings into a validated crack.Config.
func (c Config) ToBreakConfig() (crack.Config, error) {
	b := c.Breaker
	charset, err := crack.ParseCharset(b.Charset)
	if err != nil {
		return crack.Config{}, err
	}
	strategy, err := crack.ParseStrategy(b.Strategy)
	if err != nil {
		return crack.Config{}, err
	}
	columnStrategy, err := crack.ParseStrategy(b.ColumnStrategy)
	if err != nil {
		return crack.Config{}, err
	}
	out := crack.Config{
		MinKeyLength:   b.MinKeyLength,
		MaxKeyLength:   b.MaxKeyLength,
		Candidates:     b.Candidates,
		Charset:        charset,
		Strategy:       strategy,
		ColumnStrategy: columnStrategy,
		TopK:           b.TopK,
		BlockPairs:     b.BlockPairs,
		Workers:        b.Workers,
		FastPath:       b.FastPath,
		MaxInputBytes:  b.MaxInputBytes,
	}
	if err := out.Validate(); err != nil {
		return crack.Config{}, err
	}
	return out, nil
}

func loadHomeConfig(cfg *Config) error {
	home, err := os.UserHomeDir()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("determine home directory: %w", err)
	}

	path := filepath.Join(home, ".xorcrack", "config.toml")
	data, err := os.ReadFile(path)
	if err == nil {
		if err := applyFileConfig(cfg, data, "toml"); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	legacyPath := filepath.Join(home, ".xorbreak", "config.toml")
	data, err = os.ReadFile(legacyPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", legacyPath, err)
	}
	log.Printf("using legacy config %s; move it to %s", legacyPath, path)
	if err := applyFileConfig(cfg, data, "toml"); err != nil {
		return fmt.Errorf("parse config %s: %w", legacyPath, err)
	}
	return nil
}

func loadLocalConfig(cfg *Config) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}
	path := filepath.Join(wd, "xorcrack.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := applyFileConfig(cfg, data, "yaml"); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// fileConfig uses pointers so that only keys present in a file override.
type fileConfig struct {
	Breaker   *fileBreakerConfig   `yaml:"breaker"`
	Telemetry *fileTelemetryConfig `yaml:"telemetry"`
	History   *fileHistoryConfig   `yaml:"history"`
}

type fileBreakerConfig struct {
	MinKeyLength   *int    `yaml:"min_key_length"`
	MaxKeyLength   *int    `yaml:"max_key_length"`
	Candidates     *int    `yaml:"candidates"`
	Charset        *string `yaml:"charset"`
	Strategy       *string `yaml:"strategy"`
	ColumnStrategy *string `yaml:"column_strategy"`
	TopK           *int    `yaml:"top_k"`
	BlockPairs     *int    `yaml:"block_pairs"`
	Workers        *int    `yaml:"workers"`
	FastPath       *bool   `yaml:"fast_path"`
	MaxInputBytes  *int    `yaml:"max_input_bytes"`
}

type fileTelemetryConfig struct {
	LogFile          *string  `yaml:"log_file"`
	TraceFile        *string  `yaml:"trace_file"`
	TraceSampleRatio *float64 `yaml:"trace_sample_ratio"`
	MetricsFile      *string  `yaml:"metrics_file"`
}

type fileHistoryConfig struct {
	Database *string `yaml:"database"`
	Reuse    *bool   `yaml:"reuse"`
}

func applyFileConfig(cfg *Config, data []byte, format string) error {
	var fc fileConfig
	var err error
	switch format {
	case "yaml":
		fc, err = parseYAML(data)
	case "toml":
		fc, err = parseTOML(data)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return err
	}

	if b := fc.Breaker; b != nil {
		setInt(&cfg.Breaker.MinKeyLength, b.MinKeyLength)
		setInt(&cfg.Breaker.MaxKeyLength, b.MaxKeyLength)
		setInt(&cfg.Breaker.Candidates, b.Candidates)
		setString(&cfg.Breaker.Charset, b.Charset)
		setString(&cfg.Breaker.Strategy, b.Strategy)
		setString(&cfg.Breaker.ColumnStrategy, b.ColumnStrategy)
		setInt(&cfg.Breaker.TopK, b.TopK)
		setInt(&cfg.Breaker.BlockPairs, b.BlockPairs)
		setInt(&cfg.Breaker.Workers, b.Workers)
		if b.FastPath != nil {
			cfg.Breaker.FastPath = *b.FastPath
		}
		setInt(&cfg.Breaker.MaxInputBytes, b.MaxInputBytes)
	}
	if tc := fc.Telemetry; tc != nil {
		setString(&cfg.Telemetry.LogFile, tc.LogFile)
		setString(&cfg.Telemetry.TraceFile, tc.TraceFile)
		if tc.TraceSampleRatio != nil {
			cfg.Telemetry.TraceSampleRatio = *tc.TraceSampleRatio
		}
		setString(&cfg.Telemetry.MetricsFile, tc.MetricsFile)
	}
	if hc := fc.History; hc != nil {
		setString(&cfg.History.Database, hc.Database)
		if hc.Reuse != nil {
			cfg.History.Reuse = *hc.Reuse
		}
	}
	return nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func applyEnvOverrides(cfg *Config) error {
	ints := []struct {
		name string
		dst  *int
	}{
		{"MIN_KEY_LENGTH", &cfg.Breaker.MinKeyLength},
		{"MAX_KEY_LENGTH", &cfg.Breaker.MaxKeyLength},
		{"CANDIDATES", &cfg.Breaker.Candidates},
		{"TOP_K", &cfg.Breaker.TopK},
		{"BLOCK_PAIRS", &cfg.Breaker.BlockPairs},
		{"WORKERS", &cfg.Breaker.Workers},
		{"MAX_INPUT_BYTES", &cfg.Breaker.MaxInputBytes},
	}
	for _, s := range ints {
		v, ok, err := env.Int(s.name)
		if err != nil {
			return err
		}
		if ok {
			*s.dst = v
		}
	}

	strs := []struct {
		name string
		dst  *string
	}{
		{"CHARSET", &cfg.Breaker.Charset},
		{"STRATEGY", &cfg.Breaker.Strategy},
		{"COLUMN_STRATEGY", &cfg.Breaker.ColumnStrategy},
		{"LOG_FILE", &cfg.Telemetry.LogFile},
		{"TRACE_FILE", &cfg.Telemetry.TraceFile},
		{"METRICS_FILE", &cfg.Telemetry.MetricsFile},
		{"HISTORY_DB", &cfg.History.Database},
	}
	for _, s := range strs {
		if v, ok := env.Get(s.name); ok && v != "" {
			*s.dst = v
		}
	}

	fast, ok, err := env.Bool("FAST_PATH")
	if err != nil {
		return err
	}
	if ok {
		cfg.Breaker.FastPath = fast
	}
	reuse, ok, err := env.Bool("HISTORY_REUSE")
	if err != nil {
		return err
	}
	if ok {
		cfg.History.Reuse = reuse
	}

	if v, ok := env.Get("TRACE_SAMPLE_RATIO"); ok && v != "" {
		ratio, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sTRACE_SAMPLE_RATIO: %w", env.Prefix, err)
		}
		cfg.Telemetry.TraceSampleRatio = ratio
	}
	return nil
}

func parseYAML(data []byte) (fileConfig, error) {
	var fc fileConfig
	if len(bytes.TrimSpace(data)) == 0 {
		return fc, nil
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fileConfig{}, err
	}
	return fc, nil
}

func parseTOML(data []byte) (fileConfig, error) {
	lines := strings.Split(string(data), "\n")
	var fc fileConfig
	section := ""
	for n, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			section = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(trimmed, "["), "]"))
			continue
		}
		parts := strings.SplitN(trimmed, "=", 2)
		if len(parts) != 2 {
			return fileConfig{}, fmt.Errorf("line %d: invalid toml line: %q", n+1, trimmed)
		}
		key := strings.TrimSpace(parts[0])
		value := trimQuotes(stripComment(strings.TrimSpace(parts[1])))
		var err error
		switch section {
		case "breaker":
			if fc.Breaker == nil {
				fc.Breaker = &fileBreakerConfig{}
			}
			err = setBreakerKey(fc.Breaker, key, value)
		case "telemetry":
			if fc.Telemetry == nil {
				fc.Telemetry = &fileTelemetryConfig{}
			}
			err = setTelemetryKey(fc.Telemetry, key, value)
		case "history":
			if fc.History == nil {
				fc.History = &fileHistoryConfig{}
			}
			err = setHistoryKey(fc.History, key, value)
		}
		if err != nil {
			return fileConfig{}, fmt.Errorf("line %d: %w", n+1, err)
		}
	}
	return fc, nil
}

func setBreakerKey(b *fileBreakerConfig, key, value string) error {
	intKeys := map[string]**int{
		"min_key_length":  &b.MinKeyLength,
		"max_key_length":  &b.MaxKeyLength,
		"candidates":      &b.Candidates,
		"top_k":           &b.TopK,
		"block_pairs":     &b.BlockPairs,
		"workers":         &b.Workers,
		"max_input_bytes": &b.MaxInputBytes,
	}
	if dst, ok := intKeys[key]; ok {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer for %s: %q", key, value)
		}
		*dst = &n
		return nil
	}
	switch key {
	case "charset":
		b.Charset = &value
	case "strategy":
		b.Strategy = &value
	case "column_strategy":
		b.ColumnStrategy = &value
	case "fast_path":
		parsed, err := parseBool(value)
		if err != nil {
			return err
		}
		b.FastPath = &parsed
	}
	return nil
}

func setTelemetryKey(tc *fileTelemetryConfig, key, value string) error {
	switch key {
	case "log_file":
		tc.LogFile = &value
	case "trace_file":
		tc.TraceFile = &value
	case "metrics_file":
		tc.MetricsFile = &value
	case "trace_sample_ratio":
		ratio, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number for %s: %q", key, value)
		}
		tc.TraceSampleRatio = &ratio
	}
	return nil
}

func setHistoryKey(hc *fileHistoryConfig, key, value string) error {
	switch key {
	case "database":
		hc.Database = &value
	case "reuse":
		parsed, err := parseBool(value)
		if err != nil {
			return err
		}
		hc.Reuse = &parsed
	}
	return nil
}

func parseBool(val string) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(val)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean: %s", val)
	}
}

// stripComment drops a trailing "# ..." outside quotes.
func stripComment(val string) string {
	quote := byte(0)
	for i := 0; i < len(val); i++ {
		switch c := val[i]; {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '#':
			return strings.TrimSpace(val[:i])
		}
	}
	return val
}

func trimQuotes(val string) string {
	if len(val) >= 2 {
		if (strings.HasPrefix(val, "\"") && strings.HasSuffix(val, "\"")) ||
			(strings.HasPrefix(val, "'") && strings.HasSuffix(val, "'")) {
			return val[1 : len(val)-1]
		}
	}
	return val
}
