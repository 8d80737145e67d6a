package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/daniel-p-green/skillvault/pkg/bench"
	"github.com/daniel-p-green/skillvault/pkg/contracts"
	"github.com/daniel-p-green/skillvault/pkg/scan"
)

// runBenchCmd implements `skillvault bench <fixtures.json>`: replays a
// fixture corpus through the scan pipeline (no policy file, no signing —
// bench measures the core pipeline's own pass/warn/fail distribution) and
// reports counts and timing.
//
// Exit codes:
//
//	0 = every non-skipped fixture matched its expected verdict
//	1 = at least one fixture mismatched
//	2 = runtime error
func runBenchCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("bench", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var toolVersion string
	cmd.StringVar(&toolVersion, "tool-version", "0.1.0", "Tool version to check fixture min_tool_version constraints against")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if cmd.NArg() < 1 {
		fmt.Fprintln(stderr, "Error: <fixtures.json> is required")
		return 2
	}

	data, err := os.ReadFile(cmd.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Error: read fixtures file: %v\n", err)
		return 2
	}
	var fixtures []bench.Fixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		fmt.Fprintf(stderr, "Error: parse fixtures file: %v\n", err)
		return 2
	}

	report, err := bench.Run(context.Background(), scannerFunc(scanVerdict), toolVersion, fixtures)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if err := writeJSON(report, stdout, ""); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if report.Failed > 0 {
		return 1
	}
	return 0
}

// scannerFunc adapts a plain function to bench.Scanner.
type scannerFunc func(ctx context.Context, bundlePath string) (contracts.Verdict, error)

func (f scannerFunc) Scan(ctx context.Context, bundlePath string) (contracts.Verdict, error) {
	return f(ctx, bundlePath)
}

// scanVerdict scans a bundle with no policy file and derives the verdict
// the same way receipt.Build would: risk-score thresholds, forced FAIL on
// any error-severity finding.
func scanVerdict(ctx context.Context, bundlePath string) (contracts.Verdict, error) {
	result, err := scan.Run(ctx, bundlePath, nil, nil)
	if err != nil {
		return "", err
	}
	verdict := contracts.VerdictFromRiskScore(result.Report.Scan.RiskScore.Total)
	for _, f := range result.Report.Scan.Findings {
		if f.Severity == contracts.SeverityError {
			verdict = contracts.VerdictFail
		}
	}
	return verdict, nil
}
