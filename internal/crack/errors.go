package crack

import "errors"

var (
	// ErrInvalidInput reports ciphertext that cannot be analysed: empty, too
	// short for any candidate key length, or larger than the configured bound.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsolvableColumn reports an empty column handed to the single-byte
	// solver. It only happens when the key length exceeds the ciphertext.
	ErrUnsolvableColumn = errors.New("unsolvable column")

	// ErrInvalidConfig reports option values outside their accepted range.
	ErrInvalidConfig = errors.New("invalid configuration")
)
