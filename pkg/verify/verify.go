// Package verify independently re-checks a signed receipt against a bundle,
// a policy, and/or a public key, trusting only cryptographic primitives and
// the receipt's own declared contents — never the tool that produced it.
package verify

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/daniel-p-green/skillvault/pkg/bundle"
	"github.com/daniel-p-green/skillvault/pkg/canonjson"
	"github.com/daniel-p-green/skillvault/pkg/contracts"
	"github.com/daniel-p-green/skillvault/pkg/crypto"
	"github.com/daniel-p-green/skillvault/pkg/hashing"
	"github.com/daniel-p-green/skillvault/pkg/policy"
)

// CheckResult is one independent verification step.
type CheckResult struct {
	Name   string `json:"name"`
	Pass   bool   `json:"pass"`
	Detail string `json:"detail,omitempty"`
}

// Report is the structured output of verifying a single receipt.
type Report struct {
	Verified bool               `json:"verified"`
	Checks   []CheckResult      `json:"checks"`
	Findings []contracts.Finding `json:"findings"`
}

// Options controls which independent checks Receipt performs. Every
// populated field is checked; a nil/empty field simply skips that check
// rather than failing it, since not every invocation has a bundle, policy,
// and public key on hand simultaneously.
type Options struct {
	BundlePath   string
	PublicKey    ed25519.PublicKey
	PolicyDoc    []byte
	PolicyProfileName string
	ApprovalToken string
	// Offline disables any online trust lookup. Signature verification is
	// always local and always runs regardless of this flag.
	Offline bool
}

func (r *Report) add(name string, pass bool, detail string) {
	r.Checks = append(r.Checks, CheckResult{Name: name, Pass: pass, Detail: detail})
	if !pass {
		r.Verified = false
	}
}

func (r *Report) finding(f contracts.Finding) {
	r.Findings = append(r.Findings, f)
}

// Receipt independently re-verifies a receipt per the options supplied.
func Receipt(ctx context.Context, rec contracts.Receipt, opts Options) (*Report, error) {
	report := &Report{Verified: true}

	if opts.BundlePath != "" {
		if err := checkBundle(ctx, rec, opts.BundlePath, report); err != nil {
			return report, err
		}
	}

	if len(opts.PolicyDoc) > 0 {
		checkPolicy(rec, opts, report)
	}

	if rec.Signature != nil && opts.PublicKey != nil {
		if err := checkSignature(rec, opts.PublicKey, report); err != nil {
			return report, err
		}
	}

	return report, nil
}

func checkBundle(ctx context.Context, rec contracts.Receipt, path string, report *Report) error {
	b, err := bundle.Read(ctx, path)
	if err != nil {
		return err
	}

	actual := hashing.HashBundleFiles(b.Files)
	actualSha := hashing.ComputeBundleSha256(actual)
	if actualSha != rec.BundleSha256 {
		report.add("bundle_hash", false, fmt.Sprintf("expected %s, got %s", rec.BundleSha256, actualSha))
		report.finding(contracts.Finding{Code: contracts.ReasonBundleHashMismatch, Severity: contracts.SeverityError,
			Message: "bundle_sha256 does not match the rehashed bundle"})
	} else {
		report.add("bundle_hash", true, "bundle_sha256 matches")
	}

	actualByPath := make(map[string]contracts.FileEntry, len(actual))
	for _, f := range actual {
		actualByPath[f.Path] = f
	}
	seen := make(map[string]bool, len(rec.Files))

	fileChecksOK := true
	for _, want := range rec.Files {
		seen[want.Path] = true
		got, ok := actualByPath[want.Path]
		if !ok {
			fileChecksOK = false
			report.finding(contracts.Finding{Code: contracts.ReasonFileMissing, Severity: contracts.SeverityError,
				Path: want.Path, Message: "file present in receipt but missing from bundle"})
			continue
		}
		if got.Sha256 != want.Sha256 {
			fileChecksOK = false
			report.finding(contracts.Finding{Code: contracts.ReasonFileHashMismatch, Severity: contracts.SeverityError,
				Path: want.Path, Message: "file content does not match receipt hash"})
		}
	}
	for path := range actualByPath {
		if !seen[path] {
			fileChecksOK = false
			report.finding(contracts.Finding{Code: contracts.ReasonFileExtra, Severity: contracts.SeverityWarn,
				Path: path, Message: "file present in bundle but not recorded in receipt"})
		}
	}
	report.add("file_hashes", fileChecksOK, fmt.Sprintf("checked %d receipt files against %d bundle files", len(rec.Files), len(actual)))
	return nil
}

func checkPolicy(rec contracts.Receipt, opts Options, report *Report) {
	profile, err := policy.Parse(opts.PolicyDoc, opts.PolicyProfileName)
	if err != nil {
		report.add("policy_reevaluation", false, err.Error())
		return
	}

	// Re-derive the verdict from the receipt's own risk score and
	// capability set. Findings that depend on inputs the receipt doesn't
	// preserve verbatim (manifest token counts, approval tokens supplied at
	// scan time) are intentionally not compared here; the bundle-level
	// checks above already catch any tampering with the underlying files.
	decision := policy.Evaluate(profile, rec.Scan.RiskScore, policy.Input{
		Capabilities:  rec.Scan.Capabilities,
		ApprovalToken: opts.ApprovalToken,
	})

	if decision.Verdict != rec.Policy.Verdict {
		report.add("policy_reevaluation", false, fmt.Sprintf("re-evaluated verdict %s disagrees with embedded verdict %s", decision.Verdict, rec.Policy.Verdict))
		report.finding(contracts.Finding{Code: contracts.ReasonPolicyViolation, Severity: contracts.SeverityError,
			Message: "policy re-evaluation disagrees with the embedded PolicyDecision"})
		return
	}
	report.add("policy_reevaluation", true, "re-evaluated verdict matches the receipt")
}

func checkSignature(rec contracts.Receipt, pub ed25519.PublicKey, report *Report) error {
	sig := rec.Signature
	unsigned := rec
	unsigned.Signature = nil

	payload, err := canonjson.Marshal(unsigned)
	if err != nil {
		return err
	}
	recomputedSha := canonjson.HashBytes(payload)
	if recomputedSha != sig.PayloadSha256 {
		report.add("payload_hash", false, "recomputed payload_sha256 does not match the signature's declared hash")
		return nil
	}
	report.add("payload_hash", true, "payload_sha256 matches")

	ok, err := crypto.Verify(pub, payload, sig.Sig)
	if err != nil {
		return err
	}
	report.add("signature", ok, fmt.Sprintf("ed25519 signature verification (key_id=%s)", sig.KeyID))
	return nil
}
