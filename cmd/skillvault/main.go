package main

import (
	"fmt"
	"io"
	"os"

	"github.com/daniel-p-green/skillvault/pkg/receipt"
)

// Dispatcher
func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint used directly by tests, so the dispatcher logic
// never depends on os.Args/os.Exit.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stdout)
		return 2
	}

	switch args[1] {
	case "scan":
		return runScanCmd(args[2:], stdout, stderr)
	case "receipt":
		return runReceiptCmd(args[2:], stdout, stderr)
	case "verify":
		return runVerifyCmd(args[2:], stdout, stderr)
	case "gate":
		return runGateCmd(args[2:], stdout, stderr)
	case "diff":
		return runDiffCmd(args[2:], stdout, stderr)
	case "export":
		return runExportCmd(args[2:], stdout, stderr)
	case "bench":
		return runBenchCmd(args[2:], stdout, stderr)
	case "serve":
		return runServeCmd(args[2:], stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "skillvault %s\n", toolVersion())
		return 0
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func toolVersion() string {
	return receipt.ScannerVersion
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "skillvault — trust pipeline for agent skill bundles")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  skillvault <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "COMMANDS:")
	fmt.Fprintln(w, "  scan     <bundle>                         Emit a ScanReport")
	fmt.Fprintln(w, "  receipt  <bundle>                         Scan, evaluate policy, sign, emit a Receipt")
	fmt.Fprintln(w, "  verify   <bundle> --receipt <path> [--pubkey|--keyring]  Independently re-verify a Receipt")
	fmt.Fprintln(w, "  gate     (--receipt <path> | <bundle>)    Emit a PolicyDecision")
	fmt.Fprintln(w, "  diff     <A> <B>                          Compare two bundles or receipts")
	fmt.Fprintln(w, "  export   <bundle> --out <zip>             Export a normalized strict_v0 ZIP")
	fmt.Fprintln(w, "  bench    <fixtures.json>                  Replay a fixture corpus")
	fmt.Fprintln(w, "  serve                                      Start the gate HTTP API")
	fmt.Fprintln(w, "  version                                   Show tool version")
	fmt.Fprintln(w, "  help                                      Show this help")
	fmt.Fprintln(w, "")
}
