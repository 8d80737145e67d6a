package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/daniel-p-green/skillvault/pkg/bundle"
	"github.com/daniel-p-green/skillvault/pkg/export"
	"github.com/daniel-p-green/skillvault/pkg/hashing"
	"github.com/daniel-p-green/skillvault/pkg/manifest"
)

// runExportCmd implements `skillvault export <bundle> --out <zip>`:
// produces a normalized strict_v0 ZIP archive.
//
// Exit codes:
//
//	0 = export completed
//	2 = runtime error (including: bundle contains symlinks, or does not
//	    have exactly one root manifest)
func runExportCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("export", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		outPath       string
		format        string
		deterministic bool
	)
	cmd.StringVar(&outPath, "out", "", "Output ZIP path (REQUIRED)")
	cmd.StringVar(&format, "profile", export.FormatStrictV0, "Export profile (only strict_v0 is supported)")
	cmd.BoolVar(&deterministic, "deterministic", false, "Fix per-entry metadata for byte-stable output")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if cmd.NArg() < 1 {
		fmt.Fprintln(stderr, "Error: <bundle> is required")
		return 2
	}
	if outPath == "" {
		fmt.Fprintln(stderr, "Error: --out is required")
		return 2
	}
	if format != export.FormatStrictV0 {
		fmt.Fprintf(stderr, "Error: unsupported export profile %q\n", format)
		return 2
	}

	b, err := bundle.Read(context.Background(), cmd.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	entries := hashing.HashBundleFiles(b.Files)
	if _, finding := manifest.Detect(entries); finding != nil {
		fmt.Fprintf(stderr, "Error: %s\n", finding.Message)
		return 2
	}

	f, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: create output file: %v\n", err)
		return 2
	}
	defer f.Close()

	if err := export.Write(f, b.Files, b.Symlinks, deterministic); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	fmt.Fprintf(stdout, "Exported %d files to %s\n", len(b.Files), outPath)
	return 0
}
