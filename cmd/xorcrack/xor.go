package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/RowanDark/xorcrack/internal/cipher"
)

func runXOR(args []string) int {
	fs := flag.NewFlagSet("xor", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: xorcrack xor HEX HEX")
		return 2
	}

	a, err := cipher.DecodeHex(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "first operand: %v\n", err)
		return 1
	}
	b, err := cipher.DecodeHex(fs.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "second operand: %v\n", err)
		return 1
	}
	out, err := cipher.XORBytes(a, b)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xor: %v\n", err)
		return 1
	}
	fmt.Fprintln(os.Stdout, hex.EncodeToString(out))
	return 0
}
