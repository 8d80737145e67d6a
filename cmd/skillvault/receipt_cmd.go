package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/daniel-p-green/skillvault/pkg/contracts"
	"github.com/daniel-p-green/skillvault/pkg/receipt"
	"github.com/daniel-p-green/skillvault/pkg/scan"
)

// runReceiptCmd implements `skillvault receipt <bundle>`: scan, evaluate
// policy, build and sign the Receipt.
//
// Exit codes:
//
//	0 = PASS/WARN
//	1 = FAIL
//	2 = runtime error
func runReceiptCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("receipt", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		policyPath    string
		profile       string
		signingKey    string
		keyID         string
		approvalToken string
		deterministic bool
		outPath       string
	)
	cmd.StringVar(&policyPath, "policy", "", "Path to policy v1 YAML (optional)")
	cmd.StringVar(&profile, "profile", "", "Named profile within the policy file (optional)")
	cmd.StringVar(&signingKey, "signing-key", "", "Path to an Ed25519 private key PEM (REQUIRED)")
	cmd.StringVar(&keyID, "key-id", "", "Key ID for the signing key (REQUIRED)")
	cmd.StringVar(&approvalToken, "approval-token", "", "Approval token for require_approval capabilities")
	cmd.BoolVar(&deterministic, "deterministic", false, "Freeze created_at to the epoch for byte-stable output")
	cmd.StringVar(&outPath, "out", "", "Write the Receipt to this file instead of stdout")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if cmd.NArg() < 1 {
		fmt.Fprintln(stderr, "Error: <bundle> is required")
		return 2
	}
	bundlePath := cmd.Arg(0)

	rec, _, err := scanAndSign(context.Background(), bundlePath, policyPath, profile, approvalToken, signingKey, keyID, deterministic)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if err := writeJSON(rec, stdout, outPath); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	return exitForVerdict(rec.Policy.Verdict)
}

// scanAndSign runs the full scan -> policy -> sign pipeline, shared by the
// receipt command and by the HTTP gate handler's Scanner adapter.
func scanAndSign(ctx context.Context, bundlePath, policyPath, profileName, approvalToken, signingKey, keyID string, deterministic bool) (contracts.Receipt, scan.Result, error) {
	prof, err := loadPolicy(policyPath, profileName)
	if err != nil {
		return contracts.Receipt{}, scan.Result{}, err
	}

	result, err := scan.Run(ctx, bundlePath, prof, nil)
	if err != nil {
		return contracts.Receipt{}, scan.Result{}, err
	}

	decision := scan.EvaluatePolicy(result, prof, approvalToken)

	signer, err := loadSigner(signingKey, keyID)
	if err != nil {
		return contracts.Receipt{}, result, err
	}

	unsigned := receipt.Build(result.Report, decision, deterministic)
	signed, err := receipt.Sign(unsigned, signer)
	if err != nil {
		return contracts.Receipt{}, result, fmt.Errorf("sign receipt: %w", err)
	}

	return signed, result, nil
}
