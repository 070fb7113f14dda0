package cipher

import (
	"context"
	stdcipher "crypto/cipher"
	"errors"
	"fmt"
)

var (
	// ErrLengthMismatch is returned by XORBytes for buffers of different size.
	ErrLengthMismatch = errors.New("length mismatch")
	// ErrEmptyKey is returned when a repeating-key operation gets no key.
	ErrEmptyKey = errors.New("empty key")
)

// XORBytes returns a XOR b. Both buffers must have the same length.
func XORBytes(a, b []byte) ([]byte, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: %d and %d bytes", ErrLengthMismatch, len(a), len(b))
	}
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out, nil
}

// RepeatingXOR XORs src with key repeated cyclically from offset zero. The
// transform is its own inverse.
func RepeatingXOR(src, key []byte) ([]byte, error) {
	stream, err := NewRepeatingStream(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(src))
	stream.XORKeyStream(out, src)
	return out, nil
}

type repeatingStream struct {
	key []byte
	pos int
}

// NewRepeatingStream returns a stream that cycles through key. The key is
// copied.
func NewRepeatingStream(key []byte) (stdcipher.Stream, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	return &repeatingStream{key: append([]byte(nil), key...)}, nil
}

func (s *repeatingStream) XORKeyStream(dst, src []byte) {
	if len(dst) < len(src) {
		panic("cipher: output smaller than input")
	}
	for i, c := range src {
		dst[i] = c ^ s.key[s.pos]
		s.pos++
		if s.pos == len(s.key) {
			s.pos = 0
		}
	}
}

// XORFixedOp XORs the input with a hex key of the same length.
type XORFixedOp struct {
	BaseOperation
}

func (op *XORFixedOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	raw, err := stringParam(params, "key")
	if err != nil {
		return nil, err
	}
	key, err := DecodeHex(raw)
	if err != nil {
		return nil, fmt.Errorf("xor key: %w", err)
	}
	return XORBytes(input, key)
}

// XORRepeatingOp XORs the input with a text key repeated over its length.
type XORRepeatingOp struct {
	BaseOperation
}

func (op *XORRepeatingOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	key, err := stringParam(params, "key")
	if err != nil {
		return nil, err
	}
	return RepeatingXOR(input, []byte(key))
}

func stringParam(params map[string]interface{}, name string) (string, error) {
	v, ok := params[name]
	if !ok {
		return "", fmt.Errorf("missing parameter %q", name)
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	default:
		return "", fmt.Errorf("parameter %q must be a string, got %T", name, v)
	}
}

func init() {
	fixed := &XORFixedOp{BaseOperation{
		NameValue:        "xor_fixed",
		TypeValue:        OperationTypeEncrypt,
		DescriptionValue: "XOR with an equal-length hex key",
	}}
	fixed.ReverseOp = fixed

	repeating := &XORRepeatingOp{BaseOperation{
		NameValue:        "xor_repeating",
		TypeValue:        OperationTypeEncrypt,
		DescriptionValue: "XOR with a repeating key",
	}}
	repeating.ReverseOp = repeating

	mustRegister(fixed, repeating)
}
