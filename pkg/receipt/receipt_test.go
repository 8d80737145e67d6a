package receipt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daniel-p-green/skillvault/pkg/canonjson"
	"github.com/daniel-p-green/skillvault/pkg/contracts"
	"github.com/daniel-p-green/skillvault/pkg/crypto"
	"github.com/daniel-p-green/skillvault/pkg/receipt"
)

func sampleScan() contracts.ScanReport {
	return contracts.ScanReport{
		ContractVersion: contracts.ContractVersion,
		BundleSha256:    "deadbeef",
		Manifest:        contracts.ManifestRef{Path: "SKILL.md"},
		Scan: contracts.ScanSummary{
			RiskScore: contracts.RiskScore{Total: 10},
		},
	}
}

func TestBuild_DeterministicUsesFrozenTimestamp(t *testing.T) {
	r := receipt.Build(sampleScan(), contracts.PolicyDecision{Verdict: contracts.VerdictPass}, true)
	assert.Equal(t, receipt.DeterministicCreatedAt, r.CreatedAt)
	assert.Equal(t, contracts.ScannerName, r.Scanner.Name)
}

func TestBuild_NonDeterministicStampsCurrentTime(t *testing.T) {
	r := receipt.Build(sampleScan(), contracts.PolicyDecision{Verdict: contracts.VerdictPass}, false)
	assert.NotEqual(t, receipt.DeterministicCreatedAt, r.CreatedAt)
}

func TestBuild_ScanErrorFindingForcesFail(t *testing.T) {
	scan := sampleScan()
	scan.Scan.Findings = []contracts.Finding{{Severity: contracts.SeverityError, Code: contracts.ReasonConstraintManifestCount}}

	r := receipt.Build(scan, contracts.PolicyDecision{Verdict: contracts.VerdictPass}, true)
	assert.Equal(t, contracts.VerdictFail, r.Policy.Verdict)

	found := false
	for _, f := range r.Policy.Findings {
		if f.Code == contracts.ReasonPolicyScanErrorFinding {
			found = true
		}
	}
	assert.True(t, found, "expected a POLICY_SCAN_ERROR_FINDING to be appended")
}

func TestBuild_WarnOnlyFindingDoesNotForceFail(t *testing.T) {
	scan := sampleScan()
	scan.Scan.Findings = []contracts.Finding{{Severity: contracts.SeverityWarn}}

	r := receipt.Build(scan, contracts.PolicyDecision{Verdict: contracts.VerdictWarn}, true)
	assert.Equal(t, contracts.VerdictWarn, r.Policy.Verdict)
}

func TestSign_ProducesVerifiableSignature(t *testing.T) {
	signer, err := crypto.NewEd25519Signer("test-key")
	require.NoError(t, err)

	unsigned := receipt.Build(sampleScan(), contracts.PolicyDecision{Verdict: contracts.VerdictPass}, true)
	signed, err := receipt.Sign(unsigned, signer)
	require.NoError(t, err)

	require.NotNil(t, signed.Signature)
	assert.Equal(t, "ed25519", signed.Signature.Alg)
	assert.Equal(t, "test-key", signed.Signature.KeyID)

	unsigned.Signature = nil
	payload, err := canonjson.Marshal(unsigned)
	require.NoError(t, err)
	assert.Equal(t, canonjson.HashBytes(payload), signed.Signature.PayloadSha256)

	ok, err := crypto.Verify(signer.PublicKey(), payload, signed.Signature.Sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSign_DeterministicReceiptsProduceSameSignature(t *testing.T) {
	signer, err := crypto.NewEd25519Signer("test-key")
	require.NoError(t, err)

	r1 := receipt.Build(sampleScan(), contracts.PolicyDecision{Verdict: contracts.VerdictPass}, true)
	r2 := receipt.Build(sampleScan(), contracts.PolicyDecision{Verdict: contracts.VerdictPass}, true)

	s1, err := receipt.Sign(r1, signer)
	require.NoError(t, err)
	s2, err := receipt.Sign(r2, signer)
	require.NoError(t, err)

	assert.Equal(t, s1.Signature.Sig, s2.Signature.Sig)
	assert.Equal(t, s1.Signature.PayloadSha256, s2.Signature.PayloadSha256)
}
