// Package contracts defines the wire types shared by every stage of the
// trust pipeline: bundle files, the capability set, risk scoring, policy
// decisions, and the signed receipt. Nothing in this package performs I/O;
// it is pure data plus the closed enums and reason codes from the public
// contract.
package contracts

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContractVersion is embedded in every public JSON output.
const ContractVersion = "0.1"

// ScannerName identifies this tool in receipts.
const ScannerName = "skillvault"

// Verdict is the policy outcome for a scanned bundle.
type Verdict string

const (
	VerdictPass Verdict = "PASS"
	VerdictWarn Verdict = "WARN"
	VerdictFail Verdict = "FAIL"
)

// Severity classifies a Finding.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// CapabilityMode is a policy gate mode for a single capability.
type CapabilityMode string

const (
	ModeAllow           CapabilityMode = "allow"
	ModeBlock           CapabilityMode = "block"
	ModeRequireApproval CapabilityMode = "require_approval"
)

// Capability is a coarse label for potentially sensitive bundle behavior.
type Capability string

const (
	CapabilityNetwork     Capability = "network"
	CapabilityExec        Capability = "exec"
	CapabilityWrites      Capability = "writes"
	CapabilityReads       Capability = "reads"
	CapabilitySecrets     Capability = "secrets"
	CapabilityDynamicCode Capability = "dynamic_code"
)

// AllCapabilities lists every known capability in rubric/table order.
var AllCapabilities = []Capability{
	CapabilityNetwork,
	CapabilityExec,
	CapabilityWrites,
	CapabilityReads,
	CapabilitySecrets,
	CapabilityDynamicCode,
}

// ReasonCode is a closed, additive-only enum. Listing order below is the
// canonical emission order for any API that enumerates all codes.
type ReasonCode string

const (
	ReasonBundleHashMismatch        ReasonCode = "BUNDLE_HASH_MISMATCH"
	ReasonFileHashMismatch          ReasonCode = "FILE_HASH_MISMATCH"
	ReasonFileMissing               ReasonCode = "FILE_MISSING"
	ReasonFileExtra                 ReasonCode = "FILE_EXTRA"
	// ReasonReceiptBundleHashMismatch is reserved for the case where a
	// receipt's embedded bundle_sha256 disagrees with a hash freshly
	// recomputed from the receipt's own file list (before ever touching a
	// live bundle). This module never performs that check: pkg/verify only
	// compares a receipt against a re-read bundle and reports
	// ReasonBundleHashMismatch there; this code is declared but unused so a future
	// verifier can distinguish "receipt is internally inconsistent" from
	// "receipt disagrees with the bundle on disk" without an enum break.
	ReasonReceiptBundleHashMismatch ReasonCode = "RECEIPT_BUNDLE_HASH_MISMATCH"
	ReasonReceiptParseError         ReasonCode = "RECEIPT_PARSE_ERROR"
	ReasonPolicyMaxRiskExceeded     ReasonCode = "POLICY_MAX_RISK_EXCEEDED"
	ReasonPolicyVerdictNotAllowed   ReasonCode = "POLICY_VERDICT_NOT_ALLOWED"
	ReasonPolicyCapabilityBlocked   ReasonCode = "POLICY_CAPABILITY_BLOCKED"
	ReasonPolicyApprovalRequired    ReasonCode = "POLICY_APPROVAL_REQUIRED"
	ReasonPolicyViolation           ReasonCode = "POLICY_VIOLATION"
	ReasonRequiredApprovalMissing   ReasonCode = "REQUIRED_APPROVAL_MISSING"
	ReasonPolicyParseError          ReasonCode = "POLICY_PARSE_ERROR"
	ReasonPolicySchemaInvalid       ReasonCode = "POLICY_SCHEMA_INVALID"
	ReasonConstraintManifestCount   ReasonCode = "CONSTRAINT_MANIFEST_COUNT"
	ReasonConstraintBundleSizeLimit ReasonCode = "CONSTRAINT_BUNDLE_SIZE_LIMIT"
	ReasonConstraintFileSizeLimit   ReasonCode = "CONSTRAINT_FILE_SIZE_LIMIT"
	ReasonConstraintTokenLimitWarn  ReasonCode = "CONSTRAINT_TOKEN_LIMIT_WARN"
	ReasonConstraintTokenLimitFail  ReasonCode = "CONSTRAINT_TOKEN_LIMIT_FAIL"
	ReasonConstraintUnsafePath      ReasonCode = "CONSTRAINT_UNSAFE_PATH"
	ReasonConstraintSymlinkForbidden ReasonCode = "CONSTRAINT_SYMLINK_FORBIDDEN"
	ReasonPolicyScanErrorFinding    ReasonCode = "POLICY_SCAN_ERROR_FINDING"
)

// AllReasonCodes is the canonical, ordered enumeration from the public contract.
var AllReasonCodes = []ReasonCode{
	ReasonBundleHashMismatch, ReasonFileHashMismatch, ReasonFileMissing, ReasonFileExtra,
	ReasonReceiptBundleHashMismatch, ReasonReceiptParseError,
	ReasonPolicyMaxRiskExceeded, ReasonPolicyVerdictNotAllowed,
	ReasonPolicyCapabilityBlocked, ReasonPolicyApprovalRequired,
	ReasonPolicyViolation, ReasonRequiredApprovalMissing,
	ReasonPolicyParseError, ReasonPolicySchemaInvalid,
	ReasonConstraintManifestCount, ReasonConstraintBundleSizeLimit,
	ReasonConstraintFileSizeLimit, ReasonConstraintTokenLimitWarn,
	ReasonConstraintTokenLimitFail, ReasonConstraintUnsafePath,
	ReasonConstraintSymlinkForbidden, ReasonPolicyScanErrorFinding,
}

// Thresholds are the canonical risk-to-verdict cut points.
type Thresholds struct {
	PassMax int `json:"pass_max"`
	WarnMax int `json:"warn_max"`
	FailMax int `json:"fail_max"`
}

// DefaultThresholds returns {29, 59, 100} per the published rubric.
func DefaultThresholds() Thresholds {
	return Thresholds{PassMax: 29, WarnMax: 59, FailMax: 100}
}

// VerdictFromRiskScore maps a total risk score to a Verdict using the
// canonical thresholds. Non-finite totals (NaN/±Inf, represented by the
// caller clamping upstream) must never reach here as such; RiskScore.Total
// is always an already-clamped integer, so this function is total and
// monotone non-decreasing on [0,100].
func VerdictFromRiskScore(total int) Verdict {
	switch {
	case total <= 29:
		return VerdictPass
	case total <= 59:
		return VerdictWarn
	default:
		return VerdictFail
	}
}

// FileEntry is one bundle file's content-addressed record.
type FileEntry struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Sha256 string `json:"sha256"`
}

// ManifestRef identifies the single root manifest file of a bundle.
type ManifestRef struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Sha256 string `json:"sha256"`
}

// EmptySha256Hex is SHA-256("") and is used as the manifest sentinel hash
// so the field is never left absent when no manifest file is present.
var EmptySha256Hex = func() string {
	sum := sha256.Sum256(nil)
	return hex.EncodeToString(sum[:])
}()

// SentinelManifest is the manifest value used when no single root manifest
// was found.
func SentinelManifest() ManifestRef {
	return ManifestRef{Path: "SKILL.md", Size: 0, Sha256: EmptySha256Hex}
}

// RiskScore is the rubric output: a clamped weighted sum.
type RiskScore struct {
	BaseRisk    int `json:"base_risk"`
	ChangeRisk  int `json:"change_risk"`
	PolicyDelta int `json:"policy_delta"`
	Total       int `json:"total"`
}

// Finding is one scan- or policy-level observation.
type Finding struct {
	Code     ReasonCode     `json:"code"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	Path     string         `json:"path,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// ScannerInfo identifies the tool that produced a receipt.
type ScannerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ScanSummary bundles the risk/capability/finding output of a scan.
type ScanSummary struct {
	Capabilities []Capability `json:"capabilities"`
	RiskScore    RiskScore    `json:"risk_score"`
	Summary      string       `json:"summary"`
	Findings     []Finding    `json:"findings"`
}

// ScanReport is the full output of scanning a single bundle.
type ScanReport struct {
	ContractVersion string        `json:"contract_version"`
	BundleSha256    string        `json:"bundle_sha256"`
	Files           []FileEntry   `json:"files"`
	Manifest        ManifestRef   `json:"manifest"`
	Scan            ScanSummary   `json:"scan"`
}

// PolicyGates is the subset of policy configuration relevant to a decision.
type PolicyGates struct {
	MaxRiskScore  *int      `json:"max_risk_score,omitempty"`
	AllowVerdicts []Verdict `json:"allow_verdicts,omitempty"`
}

// PolicyDecision is the policy evaluation output for a scan.
type PolicyDecision struct {
	ContractVersion string      `json:"contract_version"`
	Verdict         Verdict     `json:"verdict"`
	Thresholds      Thresholds  `json:"thresholds"`
	Gates           PolicyGates `json:"gates"`
	RiskScore       RiskScore   `json:"risk_score"`
	Findings        []Finding   `json:"findings"`
}

// Signature is an Ed25519 signature over the canonical JSON of a Receipt
// with the signature field itself absent.
type Signature struct {
	Alg           string `json:"alg"`
	KeyID         string `json:"key_id,omitempty"`
	PayloadSha256 string `json:"payload_sha256"`
	Sig           string `json:"sig"`
}

// Receipt is the signed, immutable trust artifact for a bundle.
type Receipt struct {
	ContractVersion string         `json:"contract_version"`
	CreatedAt       string         `json:"created_at"`
	Scanner         ScannerInfo    `json:"scanner"`
	BundleSha256    string         `json:"bundle_sha256"`
	Files           []FileEntry    `json:"files"`
	Manifest        ManifestRef    `json:"manifest"`
	Scan            ScanSummary    `json:"scan"`
	Policy          PolicyDecision `json:"policy"`
	Signature       *Signature     `json:"signature,omitempty"`
}
