package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/daniel-p-green/skillvault/pkg/contracts"
	"github.com/daniel-p-green/skillvault/pkg/scan"
)

// runScanCmd implements `skillvault scan <bundle>`: read, hash, infer
// capabilities, and score risk, with no policy evaluation or signing.
//
// Exit codes:
//
//	0 = scan completed (PASS/WARN-equivalent risk)
//	1 = scan completed with a FAIL-equivalent risk total or an
//	    error-severity finding
//	2 = runtime error
func runScanCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("scan", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		policyPath string
		profile    string
		outPath    string
	)
	cmd.StringVar(&policyPath, "policy", "", "Path to policy v1 YAML (optional)")
	cmd.StringVar(&profile, "profile", "", "Named profile within the policy file (optional)")
	cmd.StringVar(&outPath, "out", "", "Write the ScanReport to this file instead of stdout")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if cmd.NArg() < 1 {
		fmt.Fprintln(stderr, "Error: <bundle> is required")
		return 2
	}
	bundlePath := cmd.Arg(0)

	prof, err := loadPolicy(policyPath, profile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	result, err := scan.Run(context.Background(), bundlePath, prof, nil)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if err := writeJSON(result.Report, stdout, outPath); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	verdict := contracts.VerdictFromRiskScore(result.Report.Scan.RiskScore.Total)
	for _, f := range result.Report.Scan.Findings {
		if f.Severity == contracts.SeverityError {
			verdict = contracts.VerdictFail
		}
	}
	return exitForVerdict(verdict)
}
