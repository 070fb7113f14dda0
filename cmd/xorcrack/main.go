package main

import (
	"flag"
	"fmt"
	"os"
)

const cliBanner = "xorcrack: recover repeating-key XOR keys and plaintext"

var configPath = flag.String("config", "", "Path to a YAML or TOML config file (default: ~/.xorcrack/config.toml and ./xorcrack.yml)")

func init() {
	defaultUsage := flag.Usage
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintln(out, cliBanner)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Commands:")
		fmt.Fprintln(out, "  break     recover a repeating XOR key and the plaintext")
		fmt.Fprintln(out, "  single    recover a single-byte XOR key")
		fmt.Fprintln(out, "  detect    find the line encrypted with single-byte XOR")
		fmt.Fprintln(out, "  encrypt   apply repeating-key XOR")
		fmt.Fprintln(out, "  xor       XOR two equal-length hex buffers")
		fmt.Fprintln(out, "  convert   re-encode input between raw, hex and base64")
		fmt.Fprintln(out, "  score     score text as English")
		fmt.Fprintln(out, "  report    summarize an event log")
		fmt.Fprintln(out, "  history   list ciphertexts recorded by break --db")
		fmt.Fprintln(out, "  config    print the resolved configuration")
		fmt.Fprintln(out, "  version   print the version")
		fmt.Fprintln(out)
		if defaultUsage != nil {
			defaultUsage()
		}
	}
}

func main() {
	flag.Parse()
	if maybePrintVersion() {
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	switch args[0] {
	case "break":
		os.Exit(runBreak(args[1:]))
	case "single":
		os.Exit(runSingle(args[1:]))
	case "detect":
		os.Exit(runDetect(args[1:]))
	case "encrypt":
		os.Exit(runEncrypt(args[1:]))
	case "xor":
		os.Exit(runXOR(args[1:]))
	case "convert":
		os.Exit(runConvert(args[1:]))
	case "score":
		os.Exit(runScore(args[1:]))
	case "report":
		os.Exit(runReport(args[1:]))
	case "history":
		os.Exit(runHistory(args[1:]))
	case "config":
		os.Exit(runConfig(args[1:]))
	case "version":
		os.Exit(runVersion(args[1:]))
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		flag.Usage()
		os.Exit(2)
	}
}
