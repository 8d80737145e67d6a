package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/daniel-p-green/skillvault/pkg/contracts"
	"github.com/daniel-p-green/skillvault/pkg/verify"
)

// runVerifyCmd implements `skillvault verify <bundle> --receipt <path>`: an
// independent re-check trusting only cryptographic primitives and the
// receipt's own declared contents.
//
// Exit codes:
//
//	0 = verification passed
//	1 = verification failed
//	2 = runtime error
func runVerifyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		receiptPath string
		policyPath  string
		profile     string
		pubKeyHex   string
		keyringDir  string
		offline     bool
	)
	cmd.StringVar(&receiptPath, "receipt", "", "Path to the Receipt JSON to verify (REQUIRED)")
	cmd.StringVar(&policyPath, "policy", "", "Path to policy v1 YAML to re-evaluate against (optional)")
	cmd.StringVar(&profile, "profile", "", "Named profile within the policy file (optional)")
	cmd.StringVar(&pubKeyHex, "pubkey", "", "Hex-encoded Ed25519 public key to verify the signature against (optional)")
	cmd.StringVar(&keyringDir, "keyring", "", "Directory of *.pem keys to resolve the receipt's signature.key_id against (optional, mutually exclusive with --pubkey)")
	cmd.BoolVar(&offline, "offline", false, "Disable online trust lookups; signature verification still runs locally")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if receiptPath == "" {
		fmt.Fprintln(stderr, "Error: --receipt is required")
		return 2
	}
	if pubKeyHex != "" && keyringDir != "" {
		fmt.Fprintln(stderr, "Error: --pubkey and --keyring are mutually exclusive")
		return 2
	}
	if cmd.NArg() < 1 {
		fmt.Fprintln(stderr, "Error: <bundle> is required")
		return 2
	}
	bundlePath := cmd.Arg(0)

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

	opts := verify.Options{
		BundlePath:        bundlePath,
		PolicyProfileName: profile,
		Offline:           offline,
	}
	if policyPath != "" {
		doc, err := os.ReadFile(policyPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error: read policy file: %v\n", err)
			return 2
		}
		opts.PolicyDoc = doc
	}
	if pubKeyHex != "" {
		keyBytes, err := hex.DecodeString(pubKeyHex)
		if err != nil || len(keyBytes) != ed25519.PublicKeySize {
			fmt.Fprintln(stderr, "Error: --pubkey must be a hex-encoded 32-byte Ed25519 public key")
			return 2
		}
		opts.PublicKey = ed25519.PublicKey(keyBytes)
	}
	if keyringDir != "" {
		if rec.Signature == nil {
			fmt.Fprintln(stderr, "Error: --keyring given but receipt carries no signature")
			return 2
		}
		ring, err := loadKeyRing(keyringDir)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		signer, ok := ring.Get(rec.Signature.KeyID)
		if !ok {
			fmt.Fprintf(stderr, "Error: keyring has no key for key_id %q\n", rec.Signature.KeyID)
			return 2
		}
		opts.PublicKey = signer.PublicKey()
	}

	report, err := verify.Receipt(context.Background(), rec, opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if err := writeJSON(report, stdout, ""); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if !report.Verified {
		return 1
	}
	return 0
}
