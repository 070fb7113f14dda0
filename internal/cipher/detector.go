package cipher

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Input encodings understood by Decode.
const (
	EncodingAuto      = "auto"
	EncodingHex       = "hex"
	EncodingBase64    = "base64"
	EncodingBase64URL = "base64url"
	EncodingRaw       = "raw"
)

// DetectionResult is one guess at how an input is encoded.
type DetectionResult struct {
	Encoding   string  `json:"encoding"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	Operation  string  `json:"operation"`
}

// Detector identifies the text encoding of an input.
type Detector interface {
	Detect(ctx context.Context, input []byte) ([]DetectionResult, error)
	SupportedEncodings() []string
}

var (
	hexPattern       = regexp.MustCompile(`^(0x)?[0-9a-fA-F]+$`)
	base64Pattern    = regexp.MustCompile(`^[A-Za-z0-9+/]+={0,2}$`)
	base64URLPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+={0,2}$`)
	encodedPattern   = regexp.MustCompile(`^[A-Za-z0-9+/_=-]+$`)
)

// SmartDetector recognises hex and base64 ciphertext files. Line breaks and
// other whitespace are ignored.
type SmartDetector struct{}

// NewSmartDetector returns a detector.
func NewSmartDetector() *SmartDetector {
	return &SmartDetector{}
}

// SupportedEncodings lists the encodings Detect can report.
func (d *SmartDetector) SupportedEncodings() []string {
	return []string{EncodingHex, EncodingBase64, EncodingBase64URL}
}

// Detect returns candidate encodings, most confident first. An input that is
// neither hex nor base64 yields no results.
func (d *SmartDetector) Detect(ctx context.Context, input []byte) ([]DetectionResult, error) {
	s := stripSpace(string(input))
	if s == "" {
		return nil, fmt.Errorf("empty input")
	}

	var results []DetectionResult
	isHex := hexPattern.MatchString(s) && len(strings.TrimPrefix(s, "0x"))%2 == 0
	if isHex {
		results = append(results, DetectionResult{
			Encoding:   EncodingHex,
			Confidence: 0.95,
			Reasoning:  "only hexadecimal digits, even length",
			Operation:  "hex_decode",
		})
	}

	// Hex digits are base64 characters too. An odd-length run of them is
	// broken hex, not unpadded base64, unless it fills whole base64 quanta.
	hexDigits := hexPattern.MatchString(s)
	if base64Pattern.MatchString(s) && (!hexDigits || isHex || len(s)%4 == 0) {
		if _, err := DecodeBase64(s); err == nil {
			confidence := 0.9
			reason := "matches base64 alphabet and decodes"
			if isHex {
				confidence = 0.6
				reason = "decodes as base64 but is also valid hex"
			}
			results = append(results, DetectionResult{
				Encoding:   EncodingBase64,
				Confidence: confidence,
				Reasoning:  reason,
				Operation:  "base64_decode",
			})
		}
	}

	if strings.ContainsAny(s, "-_") && base64URLPattern.MatchString(s) {
		if _, err := decodeBase64With(s, base64.URLEncoding, base64.RawURLEncoding, "base64url"); err == nil {
			results = append(results, DetectionResult{
				Encoding:   EncodingBase64URL,
				Confidence: 0.85,
				Reasoning:  "uses the URL-safe base64 alphabet",
				Operation:  "base64url_decode",
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	return results, nil
}

// Decode turns input into raw bytes according to encoding. EncodingAuto picks
// the detector's most confident guess. Input made only of hex or base64
// characters that no decoder accepts fails with ErrMalformedEncoding; any
// other undetectable input is taken as raw.
func Decode(ctx context.Context, input []byte, encoding string) ([]byte, error) {
	op := ""
	switch strings.ToLower(encoding) {
	case EncodingRaw:
		return append([]byte(nil), input...), nil
	case EncodingHex:
		op = "hex_decode"
	case EncodingBase64:
		op = "base64_decode"
	case EncodingBase64URL:
		op = "base64url_decode"
	case EncodingAuto, "":
		results, err := NewSmartDetector().Detect(ctx, input)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			if encodedPattern.MatchString(stripSpace(string(input))) {
				return nil, fmt.Errorf("%w: input looks hex or base64 encoded but does not decode as either", ErrMalformedEncoding)
			}
			return append([]byte(nil), input...), nil
		}
		op = results[0].Operation
	default:
		return nil, fmt.Errorf("unknown input encoding %q", encoding)
	}
	return (&Pipeline{Operations: []OperationConfig{{Name: op}}}).Execute(ctx, input)
}

// Encode renders raw bytes in the named encoding. EncodingAuto is not
// accepted.
func Encode(ctx context.Context, data []byte, encoding string) ([]byte, error) {
	switch strings.ToLower(encoding) {
	case EncodingRaw:
		return append([]byte(nil), data...), nil
	case EncodingHex, EncodingBase64, EncodingBase64URL:
		name := strings.ToLower(encoding) + "_encode"
		op, ok := GetOperation(name)
		if !ok {
			return nil, fmt.Errorf("unknown operation: %s", name)
		}
		return op.Execute(ctx, data, nil)
	default:
		return nil, fmt.Errorf("unknown output encoding %q", encoding)
	}
}
