// Package receipt builds and signs the final trust artifact for a bundle.
package receipt

import (
	"time"

	"github.com/daniel-p-green/skillvault/pkg/canonjson"
	"github.com/daniel-p-green/skillvault/pkg/contracts"
	"github.com/daniel-p-green/skillvault/pkg/crypto"
)

// DeterministicCreatedAt is the frozen timestamp used whenever deterministic
// mode is requested, so two runs over the same bundle produce byte-identical
// receipts.
const DeterministicCreatedAt = "1970-01-01T00:00:00.000Z"

// ScannerVersion is the packaged tool version embedded in every receipt. It
// is opaque to the core pipeline; only the CLI's build metadata sets it.
var ScannerVersion = "dev"

// Build assembles the unsigned receipt from a scan and policy decision. Any
// scan finding with severity error forces the final verdict to FAIL and
// appends POLICY_SCAN_ERROR_FINDING, superseding whatever verdict policy
// evaluation produced.
func Build(scan contracts.ScanReport, policyDecision contracts.PolicyDecision, deterministic bool) contracts.Receipt {
	for _, f := range scan.Scan.Findings {
		if f.Severity == contracts.SeverityError {
			policyDecision.Verdict = contracts.VerdictFail
			policyDecision.Findings = append(policyDecision.Findings, contracts.Finding{
				Code:     contracts.ReasonPolicyScanErrorFinding,
				Severity: contracts.SeverityError,
				Message:  "scan produced at least one error-severity finding",
			})
			break
		}
	}

	createdAt := DeterministicCreatedAt
	if !deterministic {
		createdAt = time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	}

	return contracts.Receipt{
		ContractVersion: contracts.ContractVersion,
		CreatedAt:       createdAt,
		Scanner:         contracts.ScannerInfo{Name: contracts.ScannerName, Version: ScannerVersion},
		BundleSha256:    scan.BundleSha256,
		Files:           scan.Files,
		Manifest:        scan.Manifest,
		Scan:            scan.Scan,
		Policy:          policyDecision,
	}
}

// Sign computes the canonical JSON of the unsigned receipt (signature
// field absent), hashes it, and signs the payload bytes with the given
// Ed25519 signer. The returned Receipt carries the populated Signature.
func Sign(r contracts.Receipt, signer crypto.Signer) (contracts.Receipt, error) {
	r.Signature = nil
	payload, err := canonjson.Marshal(r)
	if err != nil {
		return r, err
	}

	payloadSha256 := canonjson.HashBytes(payload)
	sig, err := signer.Sign(payload)
	if err != nil {
		return r, err
	}

	r.Signature = &contracts.Signature{
		Alg:           "ed25519",
		KeyID:         signer.KeyID(),
		PayloadSha256: payloadSha256,
		Sig:           sig,
	}
	return r, nil
}
