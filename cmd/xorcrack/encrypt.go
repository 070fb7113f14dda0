package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/RowanDark/xorcrack/internal/cipher"
)

func runEncrypt(args []string) int {
	fs := flag.NewFlagSet("encrypt", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	key := fs.String("key", "", "repeating key as text")
	keyHex := fs.String("key-hex", "", "repeating key as hex")
	inEnc := fs.String("in", cipher.EncodingRaw, "input encoding: raw, hex, base64 or base64url")
	outEnc := fs.String("out", cipher.EncodingHex, "output encoding: hex, base64, base64url or raw")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	k := *key
	if *keyHex != "" {
		if k != "" {
			fmt.Fprintln(os.Stderr, "--key and --key-hex are mutually exclusive")
			return 2
		}
		decoded, err := cipher.DecodeHex(*keyHex)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --key-hex: %v\n", err)
			return 2
		}
		k = string(decoded)
	}
	if k == "" {
		fmt.Fprintln(os.Stderr, "--key or --key-hex is required")
		return 2
	}

	ctx := context.Background()
	raw, err := readInput(fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "encrypt: %v\n", err)
		return 1
	}
	plain, err := cipher.Decode(ctx, raw, *inEnc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode input: %v\n", err)
		return 1
	}

	enc := strings.ToLower(*outEnc)
	steps := []cipher.OperationConfig{{Name: "xor_repeating", Parameters: map[string]interface{}{"key": k}}}
	if enc != cipher.EncodingRaw {
		steps = append(steps, cipher.OperationConfig{Name: enc + "_encode"})
	}
	out, err := (&cipher.Pipeline{Operations: steps}).Execute(ctx, plain)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encrypt: %v\n", err)
		return 1
	}
	os.Stdout.Write(out)
	if enc != cipher.EncodingRaw {
		fmt.Fprintln(os.Stdout)
	}
	return 0
}
