package env

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
)

const (
	// Prefix is prepended to every setting name read from the environment.
	Prefix = "XORCRACK_"
	// LegacyPrefix is still honoured, with a one-time deprecation warning.
	LegacyPrefix = "XORBREAK_"
)

var (
	warnLogger func(format string, args ...any) = log.Printf
	warnMu     sync.Mutex
	warnedKeys sync.Map
)

// Lookup returns the value of newKey if it exists. When only the legacy
// oldKey is present its value is returned and a deprecation warning is logged
// once per key.
func Lookup(newKey, oldKey string) (string, bool) {
	if v, ok := os.LookupEnv(newKey); ok {
		return v, true
	}
	if oldKey == "" {
		return "", false
	}
	if v, ok := os.LookupEnv(oldKey); ok {
		logDeprecated(oldKey, newKey)
		return v, true
	}
	return "", false
}

// Get reads setting name under Prefix, falling back to LegacyPrefix.
func Get(name string) (string, bool) {
	v, ok := Lookup(Prefix+name, LegacyPrefix+name)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// Int reads an integer setting. A present but unparsable value is an error.
func Int(name string) (int, bool, error) {
	v, ok := Get(name)
	if !ok || v == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, true, fmt.Errorf("%s%s: %w", Prefix, name, err)
	}
	return n, true, nil
}

// Bool reads a boolean setting using strconv.ParseBool spellings plus
// yes/no and on/off.
func Bool(name string) (bool, bool, error) {
	v, ok := Get(name)
	if !ok || v == "" {
		return false, false, nil
	}
	switch strings.ToLower(v) {
	case "yes", "on":
		return true, true, nil
	case "no", "off":
		return false, true, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, true, fmt.Errorf("%s%s: %w", Prefix, name, err)
	}
	return b, true, nil
}

func logDeprecated(oldKey, newKey string) {
	onceIface, _ := warnedKeys.LoadOrStore(oldKey, &sync.Once{})
	once := onceIface.(*sync.Once)
	once.Do(func() {
		warnMu.Lock()
		logger := warnLogger
		warnMu.Unlock()
		logger("%s is deprecated; use %s", oldKey, newKey)
	})
}

// ResetWarningsForTesting clears the once guards so tests can observe the
// warning again.
func ResetWarningsForTesting() {
	warnMu.Lock()
	warnedKeys = sync.Map{}
	warnMu.Unlock()
}

// SetWarnLoggerForTesting swaps the warning logger. The returned function
// restores the previous one.
func SetWarnLoggerForTesting(fn func(format string, args ...any)) (restore func()) {
	warnMu.Lock()
	previous := warnLogger
	warnLogger = fn
	warnMu.Unlock()
	return func() {
		warnMu.Lock()
		warnLogger = previous
		warnMu.Unlock()
	}
}
