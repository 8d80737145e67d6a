package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/daniel-p-green/skillvault/pkg/contracts"
	"github.com/daniel-p-green/skillvault/pkg/diff"
	"github.com/daniel-p-green/skillvault/pkg/policy"
	"github.com/daniel-p-green/skillvault/pkg/scan"
)

// runDiffCmd implements `skillvault diff <A> <B>`: each of A and B is
// either a Receipt JSON file or a bundle path (scanned in-process).
//
// Exit codes:
//
//	0 = diff completed
//	2 = runtime error
func runDiffCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("diff", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		policyPath string
		profile    string
	)
	cmd.StringVar(&policyPath, "policy", "", "Path to policy v1 YAML (optional, used when scanning bundle inputs)")
	cmd.StringVar(&profile, "profile", "", "Named profile within the policy file (optional)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if cmd.NArg() < 2 {
		fmt.Fprintln(stderr, "Error: <A> and <B> are required")
		return 2
	}

	prof, err := loadPolicy(policyPath, profile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	a, err := diffSide(context.Background(), cmd.Arg(0), prof)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading %s: %v\n", cmd.Arg(0), err)
		return 2
	}
	b, err := diffSide(context.Background(), cmd.Arg(1), prof)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading %s: %v\n", cmd.Arg(1), err)
		return 2
	}

	report := diff.Compare(a, b)
	if err := writeJSON(report, stdout, ""); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

// diffSide loads one side of a diff: a Receipt JSON file if the path looks
// like one, otherwise a bundle scanned in-process.
func diffSide(ctx context.Context, path string, prof *policy.Profile) (diff.Side, error) {
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		data, err := os.ReadFile(path)
		if err == nil {
			var rec contracts.Receipt
			if json.Unmarshal(data, &rec) == nil && rec.ContractVersion != "" {
				return diff.Side{
					Files:        rec.Files,
					Capabilities: rec.Scan.Capabilities,
					Findings:     rec.Scan.Findings,
				}, nil
			}
		}
	}

	result, err := scan.Run(ctx, path, prof, nil)
	if err != nil {
		return diff.Side{}, err
	}
	return diff.Side{
		Files:        result.Report.Files,
		Capabilities: result.Report.Scan.Capabilities,
		Findings:     result.Report.Scan.Findings,
	}, nil
}
