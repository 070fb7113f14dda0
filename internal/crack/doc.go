// Package crack recovers the key and plaintext of repeating-key XOR
// ciphertext without knowing either.
//
// Recovery runs in stages:
//
//	lengths, _ := crack.EstimateKeyLengths(ct, 2, 40)   // normalized Hamming distance
//	cols, _ := crack.Transpose(ct, lengths[0].Length)   // one column per key byte
//	kb, _ := crack.SolveSingleByte(cols[0], crack.ChiSquareScorer{})
//
// Breaker drives the stages for the few likeliest lengths on a bounded worker
// pool and keeps the decryption that reads most like English:
//
//	res, err := crack.Break(ctx, ct, crack.DefaultConfig())
//
// All transforms are pure; inputs are never modified. Given the same
// ciphertext and Config, Break returns the same Result regardless of worker
// count or scheduling.
package crack
