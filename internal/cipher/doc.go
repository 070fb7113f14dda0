// Package cipher holds the byte codecs and XOR transforms used around key
// recovery. It converts hex and base64, applies fixed and repeating-key XOR,
// and guesses how an input file is encoded.
//
// # Operations
//
// Every codec is a registered Operation looked up by name:
//
//	op, _ := cipher.GetOperation("hex_decode")
//	raw, err := op.Execute(ctx, []byte("1b37373331363f78"), nil)
//
// Registered names: hex_encode, hex_decode, base64_encode, base64_decode,
// base64url_encode, base64url_decode, xor_fixed and xor_repeating. The XOR
// operations read their key from the "key" parameter and are their own
// reverse.
//
// # Pipelines
//
// Operations chain through a Pipeline:
//
//	p := &cipher.Pipeline{Operations: []cipher.OperationConfig{
//		{Name: "xor_repeating", Parameters: map[string]interface{}{"key": "ICE"}},
//		{Name: "hex_encode"},
//	}}
//	ct, err := p.Execute(ctx, plaintext)
//
// Pipeline.Reverse builds the inverse chain.
//
// # Input detection
//
// Decode with EncodingAuto asks SmartDetector whether a file is hex or
// base64 and falls back to raw bytes when it is neither. Malformed input
// fails with ErrMalformedEncoding rather than being truncated.
package cipher
