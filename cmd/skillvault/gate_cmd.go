package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/daniel-p-green/skillvault/pkg/contracts"
	"github.com/daniel-p-green/skillvault/pkg/policy"
	"github.com/daniel-p-green/skillvault/pkg/scan"
)

// runGateCmd implements `skillvault gate`: emit a PolicyDecision without
// signing anything. When --receipt is given, the embedded ScanReport is
// re-evaluated against the policy without rehashing the bundle; otherwise
// a bundle path is scanned in-process.
//
// Exit codes:
//
//	0 = PASS/WARN
//	1 = FAIL
//	2 = runtime error
func runGateCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("gate", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		policyPath    string
		profile       string
		receiptPath   string
		approvalToken string
	)
	cmd.StringVar(&policyPath, "policy", "", "Path to policy v1 YAML (optional)")
	cmd.StringVar(&profile, "profile", "", "Named profile within the policy file (optional)")
	cmd.StringVar(&receiptPath, "receipt", "", "Path to a Receipt JSON file (mutually exclusive with <bundle>)")
	cmd.StringVar(&approvalToken, "approval-token", "", "Approval token for require_approval capabilities")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	prof, err := loadPolicy(policyPath, profile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	var decision contracts.PolicyDecision
	switch {
	case receiptPath != "":
		data, err := os.ReadFile(receiptPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error: read receipt file: %v\n", err)
			return 2
		}
		var rec contracts.Receipt
		if err := json.Unmarshal(data, &rec); err != nil {
			fmt.Fprintf(stderr, "Error: parse receipt file: %v\n", err)
			return 2
		}
		decision = policy.Evaluate(prof, rec.Scan.RiskScore, policy.Input{
			Capabilities:  rec.Scan.Capabilities,
			ApprovalToken: approvalToken,
		})
	case cmd.NArg() >= 1:
		result, err := scan.Run(context.Background(), cmd.Arg(0), prof, nil)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		decision = scan.EvaluatePolicy(result, prof, approvalToken)
	default:
		fmt.Fprintln(stderr, "Error: either --receipt <path> or <bundle> is required")
		return 2
	}

	if err := writeJSON(decision, stdout, ""); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	return exitForVerdict(decision.Verdict)
}
