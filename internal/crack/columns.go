package crack

import "fmt"

// Transpose splits ct into keyLength columns where column i holds every byte
// whose index is congruent to i modulo keyLength. Columns are not padded, so
// their lengths differ by at most one.
func Transpose(ct []byte, keyLength int) ([][]byte, error) {
	if keyLength < 1 {
		return nil, fmt.Errorf("%w: key length must be at least 1, got %d", ErrInvalidConfig, keyLength)
	}
	cols := make([][]byte, keyLength)
	for i := range cols {
		cols[i] = make([]byte, 0, columnLength(len(ct), keyLength, i))
	}
	for i, c := range ct {
		cols[i%keyLength] = append(cols[i%keyLength], c)
	}
	return cols, nil
}

// Interleave reverses Transpose. cols must have the shape Transpose produces:
// leading columns at most one byte longer than trailing ones.
func Interleave(cols [][]byte) []byte {
	n := 0
	for _, col := range cols {
		n += len(col)
	}
	out := make([]byte, n)
	l := len(cols)
	for i, col := range cols {
		for j, c := range col {
			out[j*l+i] = c
		}
	}
	return out
}

func columnLength(n, keyLength, i int) int {
	if i >= n {
		return 0
	}
	return (n - i + keyLength - 1) / keyLength
}
