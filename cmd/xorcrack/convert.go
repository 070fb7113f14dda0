package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/RowanDark/xorcrack/internal/cipher"
)

func runConvert(args []string) int {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	from := fs.String("from", cipher.EncodingAuto, "input encoding: auto, hex, base64, base64url or raw")
	to := fs.String("to", cipher.EncodingBase64, "output encoding: hex, base64, base64url or raw")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.EqualFold(*to, cipher.EncodingAuto) {
		fmt.Fprintln(os.Stderr, "--to must name an encoding")
		return 2
	}

	ctx := context.Background()
	raw, err := readInput(fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "convert: %v\n", err)
		return 1
	}
	data, err := cipher.Decode(ctx, raw, *from)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode input: %v\n", err)
		return 1
	}
	out, err := cipher.Encode(ctx, data, *to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode output: %v\n", err)
		return 1
	}
	os.Stdout.Write(out)
	if !strings.EqualFold(*to, cipher.EncodingRaw) {
		fmt.Fprintln(os.Stdout)
	}
	return 0
}
