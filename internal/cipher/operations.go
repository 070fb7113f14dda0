package cipher

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// HexEncodeOp encodes bytes as lower-case hexadecimal.
type HexEncodeOp struct {
	BaseOperation
}

func (op *HexEncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return []byte(hex.EncodeToString(input)), nil
}

// HexDecodeOp decodes hexadecimal text. Whitespace, line breaks and a leading
// 0x are ignored. Bytes may be delimited by ':' or '-', as in 1b:37:37, when
// one of them separates every digit pair.
type HexDecodeOp struct {
	BaseOperation
}

func (op *HexDecodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return DecodeHex(string(input))
}

// Base64EncodeOp encodes data as padded standard base64.
type Base64EncodeOp struct {
	BaseOperation
}

func (op *Base64EncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return []byte(base64.StdEncoding.EncodeToString(input)), nil
}

// Base64DecodeOp decodes standard base64, padded or not. Line breaks are
// ignored so wrapped files decode as one buffer.
type Base64DecodeOp struct {
	BaseOperation
}

func (op *Base64DecodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return DecodeBase64(string(input))
}

// Base64URLEncodeOp encodes data as padded URL-safe base64.
type Base64URLEncodeOp struct {
	BaseOperation
}

func (op *Base64URLEncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return []byte(base64.URLEncoding.EncodeToString(input)), nil
}

// Base64URLDecodeOp decodes URL-safe base64, padded or not.
type Base64URLDecodeOp struct {
	BaseOperation
}

func (op *Base64URLDecodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return decodeBase64With(string(input), base64.URLEncoding, base64.RawURLEncoding, "base64url")
}

// DecodeHex decodes hexadecimal text, failing with ErrMalformedEncoding on
// odd length or non-hex digits.
func DecodeHex(s string) ([]byte, error) {
	s = stripSpace(s)
	s = strings.TrimPrefix(s, "0x")
	s, err := joinHexPairs(s)
	if err != nil {
		return nil, err
	}
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("hex decode failed: %w: odd length %d", ErrMalformedEncoding, len(s))
	}
	out, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("hex decode failed: %w: %v", ErrMalformedEncoding, err)
	}
	return out, nil
}

// joinHexPairs removes a ':' or '-' byte delimiter. Mixed delimiters and
// groups other than two digits are malformed.
func joinHexPairs(s string) (string, error) {
	hasColon, hasDash := strings.Contains(s, ":"), strings.Contains(s, "-")
	sep := ":"
	switch {
	case hasColon && hasDash:
		return "", fmt.Errorf("hex decode failed: %w: mixed ':' and '-' delimiters", ErrMalformedEncoding)
	case hasDash:
		sep = "-"
	case !hasColon:
		return s, nil
	}
	pairs := strings.Split(s, sep)
	for i, p := range pairs {
		if len(p) != 2 {
			return "", fmt.Errorf("hex decode failed: %w: group %d is %q, want two digits per %q delimited byte", ErrMalformedEncoding, i+1, p, sep)
		}
	}
	return strings.Join(pairs, ""), nil
}

// DecodeBase64 decodes standard base64 text, failing with
// ErrMalformedEncoding on any invalid quantum.
func DecodeBase64(s string) ([]byte, error) {
	return decodeBase64With(s, base64.StdEncoding, base64.RawStdEncoding, "base64")
}

func decodeBase64With(s string, padded, raw *base64.Encoding, label string) ([]byte, error) {
	s = stripSpace(s)
	enc := padded
	if !strings.HasSuffix(s, "=") && len(s)%4 != 0 {
		enc = raw
	}
	out, err := enc.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%s decode failed: %w: %v", label, ErrMalformedEncoding, err)
	}
	return out, nil
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func init() {
	hexEncode := &HexEncodeOp{BaseOperation{
		NameValue:        "hex_encode",
		TypeValue:        OperationTypeEncode,
		DescriptionValue: "Encode bytes as hexadecimal",
	}}
	hexDecode := &HexDecodeOp{BaseOperation{
		NameValue:        "hex_decode",
		TypeValue:        OperationTypeDecode,
		DescriptionValue: "Decode hexadecimal to bytes",
	}}
	hexEncode.ReverseOp = hexDecode
	hexDecode.ReverseOp = hexEncode

	b64Encode := &Base64EncodeOp{BaseOperation{
		NameValue:        "base64_encode",
		TypeValue:        OperationTypeEncode,
		DescriptionValue: "Encode bytes as standard base64",
	}}
	b64Decode := &Base64DecodeOp{BaseOperation{
		NameValue:        "base64_decode",
		TypeValue:        OperationTypeDecode,
		DescriptionValue: "Decode standard base64 to bytes",
	}}
	b64Encode.ReverseOp = b64Decode
	b64Decode.ReverseOp = b64Encode

	b64URLEncode := &Base64URLEncodeOp{BaseOperation{
		NameValue:        "base64url_encode",
		TypeValue:        OperationTypeEncode,
		DescriptionValue: "Encode bytes as URL-safe base64",
	}}
	b64URLDecode := &Base64URLDecodeOp{BaseOperation{
		NameValue:        "base64url_decode",
		TypeValue:        OperationTypeDecode,
		DescriptionValue: "Decode URL-safe base64 to bytes",
	}}
	b64URLEncode.ReverseOp = b64URLDecode
	b64URLDecode.ReverseOp = b64URLEncode

	mustRegister(hexEncode, hexDecode, b64Encode, b64Decode, b64URLEncode, b64URLDecode)
}
