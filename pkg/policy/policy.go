// Package policy loads the v1 YAML policy document and evaluates a scan
// against it, producing the final PolicyDecision.
package policy

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/daniel-p-green/skillvault/pkg/contracts"
	"github.com/daniel-p-green/skillvault/pkg/errs"
)

// CapabilityRule is one entry of the capabilities.* map.
type CapabilityRule struct {
	Mode contracts.CapabilityMode `yaml:"mode"`
	Note string                   `yaml:"note"`
}

// Constraints mirrors the constraints.* block.
type Constraints struct {
	ExactlyOneManifest   *bool `yaml:"exactly_one_manifest"`
	BundleSizeLimitBytes *int  `yaml:"bundle_size_limit_bytes"`
	FileSizeLimitBytes   *int  `yaml:"file_size_limit_bytes"`
	MaxManifestTokensWarn *int `yaml:"max_manifest_tokens_warn"`
	MaxManifestTokensFail *int `yaml:"max_manifest_tokens_fail"`
}

// Gates mirrors the gates.* block.
type Gates struct {
	MaxRiskScore  *int               `yaml:"max_risk_score"`
	AllowVerdicts []contracts.Verdict `yaml:"allow_verdicts"`
}

// Profile is the shape shared by the top-level document and each entry of
// the profiles map.
type Profile struct {
	Gates        Gates                      `yaml:"gates"`
	Capabilities map[string]CapabilityRule  `yaml:"capabilities"`
	Constraints  Constraints                `yaml:"constraints"`
}

// Document is the full parsed policy file.
type Document struct {
	PolicyVersion string             `yaml:"policy_version"`
	Gates         Gates              `yaml:"gates"`
	Capabilities  map[string]CapabilityRule `yaml:"capabilities"`
	Constraints   Constraints        `yaml:"constraints"`
	Profiles      map[string]Profile `yaml:"profiles"`
}

var allowedVerdicts = map[contracts.Verdict]bool{
	contracts.VerdictPass: true,
	contracts.VerdictWarn: true,
	contracts.VerdictFail: true,
}

var allowedModes = map[contracts.CapabilityMode]bool{
	contracts.ModeAllow:           true,
	contracts.ModeBlock:           true,
	contracts.ModeRequireApproval: true,
}

var recognizedCapabilityKeys = map[string]bool{
	"network": true,
	"exec":    true,
	"writes":  true,
}

// Parse decodes and validates a policy document, optionally selecting a
// named profile merged over the top-level document (the profile's own
// fields take precedence field-by-field; unset profile fields fall back to
// the top-level value).
func Parse(data []byte, profileName string) (*Profile, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errs.Policy(contracts.ReasonPolicyParseError, "", nil, "parse policy YAML: %v", err)
	}

	if doc.PolicyVersion != "" && doc.PolicyVersion != "v1" {
		return nil, errs.Policy(contracts.ReasonPolicySchemaInvalid, "policy_version", doc.PolicyVersion, "unsupported policy_version")
	}

	base := Profile{Gates: doc.Gates, Capabilities: doc.Capabilities, Constraints: doc.Constraints}
	if err := validateProfile(&base, "."); err != nil {
		return nil, err
	}

	if profileName == "" {
		return withDefaults(base), nil
	}

	prof, ok := doc.Profiles[profileName]
	if !ok {
		return nil, errs.Policy(contracts.ReasonPolicySchemaInvalid, "profiles", profileName, "unknown profile %q", profileName)
	}
	if err := validateProfile(&prof, fmt.Sprintf("profiles.%s", profileName)); err != nil {
		return nil, err
	}

	merged := mergeProfile(base, prof)
	return withDefaults(merged), nil
}

func validateProfile(p *Profile, path string) error {
	if p.Gates.MaxRiskScore != nil {
		v := *p.Gates.MaxRiskScore
		if v < 0 || v > 100 {
			return errs.Policy(contracts.ReasonPolicySchemaInvalid, path+".gates.max_risk_score", v, "max_risk_score out of range [0,100]")
		}
	}
	for _, v := range p.Gates.AllowVerdicts {
		if !allowedVerdicts[v] {
			return errs.Policy(contracts.ReasonPolicySchemaInvalid, path+".gates.allow_verdicts", v, "unknown verdict %q", v)
		}
	}
	for key, rule := range p.Capabilities {
		if !recognizedCapabilityKeys[key] {
			return errs.Policy(contracts.ReasonPolicySchemaInvalid, path+".capabilities."+key, key, "unrecognized capability key")
		}
		if !allowedModes[rule.Mode] {
			return errs.Policy(contracts.ReasonPolicySchemaInvalid, path+".capabilities."+key+".mode", rule.Mode, "unknown capability mode %q", rule.Mode)
		}
	}
	c := p.Constraints
	for name, v := range map[string]*int{
		"bundle_size_limit_bytes":  c.BundleSizeLimitBytes,
		"file_size_limit_bytes":    c.FileSizeLimitBytes,
		"max_manifest_tokens_warn": c.MaxManifestTokensWarn,
		"max_manifest_tokens_fail": c.MaxManifestTokensFail,
	} {
		if v != nil && *v < 0 {
			return errs.Policy(contracts.ReasonPolicySchemaInvalid, path+".constraints."+name, *v, "%s must be non-negative", name)
		}
	}
	if c.MaxManifestTokensWarn != nil && c.MaxManifestTokensFail != nil && *c.MaxManifestTokensWarn > *c.MaxManifestTokensFail {
		return errs.Policy(contracts.ReasonPolicySchemaInvalid, path+".constraints.max_manifest_tokens_warn", *c.MaxManifestTokensWarn, "max_manifest_tokens_warn must be <= max_manifest_tokens_fail")
	}
	return nil
}

// mergeProfile overlays prof's explicitly set fields onto base.
func mergeProfile(base, prof Profile) Profile {
	out := base
	if prof.Gates.MaxRiskScore != nil {
		out.Gates.MaxRiskScore = prof.Gates.MaxRiskScore
	}
	if prof.Gates.AllowVerdicts != nil {
		out.Gates.AllowVerdicts = prof.Gates.AllowVerdicts
	}
	if prof.Capabilities != nil {
		merged := make(map[string]CapabilityRule, len(base.Capabilities)+len(prof.Capabilities))
		for k, v := range base.Capabilities {
			merged[k] = v
		}
		for k, v := range prof.Capabilities {
			merged[k] = v
		}
		out.Capabilities = merged
	}
	if prof.Constraints.ExactlyOneManifest != nil {
		out.Constraints.ExactlyOneManifest = prof.Constraints.ExactlyOneManifest
	}
	if prof.Constraints.BundleSizeLimitBytes != nil {
		out.Constraints.BundleSizeLimitBytes = prof.Constraints.BundleSizeLimitBytes
	}
	if prof.Constraints.FileSizeLimitBytes != nil {
		out.Constraints.FileSizeLimitBytes = prof.Constraints.FileSizeLimitBytes
	}
	if prof.Constraints.MaxManifestTokensWarn != nil {
		out.Constraints.MaxManifestTokensWarn = prof.Constraints.MaxManifestTokensWarn
	}
	if prof.Constraints.MaxManifestTokensFail != nil {
		out.Constraints.MaxManifestTokensFail = prof.Constraints.MaxManifestTokensFail
	}
	return out
}

func withDefaults(p Profile) *Profile {
	if p.Gates.MaxRiskScore == nil {
		d := 100
		p.Gates.MaxRiskScore = &d
	}
	if p.Gates.AllowVerdicts == nil {
		p.Gates.AllowVerdicts = []contracts.Verdict{contracts.VerdictPass, contracts.VerdictWarn, contracts.VerdictFail}
	}
	if p.Constraints.ExactlyOneManifest == nil {
		d := true
		p.Constraints.ExactlyOneManifest = &d
	}
	for _, key := range []string{"network", "exec", "writes"} {
		if p.Capabilities == nil {
			p.Capabilities = map[string]CapabilityRule{}
		}
		if _, ok := p.Capabilities[key]; !ok {
			p.Capabilities[key] = CapabilityRule{Mode: contracts.ModeAllow}
		}
	}
	return &p
}

// Input is everything Evaluate needs beyond the policy document itself.
type Input struct {
	Capabilities     []contracts.Capability
	ManifestFindings []contracts.Finding
	ApprovalToken    string
	ManifestTokens   int
}

// Evaluate applies a parsed profile to a risk score and capability set,
// producing the final PolicyDecision. The verdict derived from the risk
// score's thresholds is the starting point; this function only ever forces
// a worse verdict, never a better one. A nil profile is evaluated as the
// default policy (an empty document).
func Evaluate(profile *Profile, score contracts.RiskScore, in Input) contracts.PolicyDecision {
	if profile == nil {
		profile = withDefaults(Profile{})
	}
	verdict := contracts.VerdictFromRiskScore(score.Total)
	var findings []contracts.Finding

	if profile.Gates.MaxRiskScore != nil && score.Total > *profile.Gates.MaxRiskScore {
		verdict = contracts.VerdictFail
		findings = append(findings, contracts.Finding{
			Code:     contracts.ReasonPolicyMaxRiskExceeded,
			Severity: contracts.SeverityError,
			Message:  fmt.Sprintf("risk score %d exceeds policy max_risk_score %d", score.Total, *profile.Gates.MaxRiskScore),
		})
	}

	if len(profile.Gates.AllowVerdicts) > 0 && !verdictAllowed(verdict, profile.Gates.AllowVerdicts) {
		findings = append(findings, contracts.Finding{
			Code:     contracts.ReasonPolicyVerdictNotAllowed,
			Severity: contracts.SeverityError,
			Message:  fmt.Sprintf("verdict %s is not in policy allow_verdicts", verdict),
		})
		verdict = contracts.VerdictFail
	}

	capSet := make(map[contracts.Capability]bool, len(in.Capabilities))
	for _, c := range in.Capabilities {
		capSet[c] = true
	}
	keys := make([]string, 0, len(profile.Capabilities))
	for key := range profile.Capabilities {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		rule := profile.Capabilities[key]
		if !capSet[contracts.Capability(key)] {
			continue
		}
		switch rule.Mode {
		case contracts.ModeBlock:
			verdict = contracts.VerdictFail
			findings = append(findings, contracts.Finding{
				Code:     contracts.ReasonPolicyCapabilityBlocked,
				Severity: contracts.SeverityError,
				Message:  fmt.Sprintf("capability %q is blocked by policy", key),
			})
		case contracts.ModeRequireApproval:
			if in.ApprovalToken == "" {
				verdict = contracts.VerdictFail
				findings = append(findings, contracts.Finding{
					Code:     contracts.ReasonPolicyApprovalRequired,
					Severity: contracts.SeverityError,
					Message:  fmt.Sprintf("capability %q requires approval", key),
				}, contracts.Finding{
					Code:     contracts.ReasonRequiredApprovalMissing,
					Severity: contracts.SeverityError,
					Message:  fmt.Sprintf("no approval token supplied for capability %q", key),
				})
			}
		}
	}

	findings = append(findings, in.ManifestFindings...)
	findings = append(findings, tokenFindings(profile, in.ManifestTokens)...)
	for _, f := range findings {
		if f.Severity == contracts.SeverityError {
			verdict = contracts.VerdictFail
		}
	}

	return contracts.PolicyDecision{
		ContractVersion: contracts.ContractVersion,
		Verdict:         verdict,
		Thresholds:      contracts.DefaultThresholds(),
		Gates: contracts.PolicyGates{
			MaxRiskScore:  profile.Gates.MaxRiskScore,
			AllowVerdicts: profile.Gates.AllowVerdicts,
		},
		RiskScore: score,
		Findings:  findings,
	}
}

func tokenFindings(profile *Profile, tokens int) []contracts.Finding {
	var out []contracts.Finding
	c := profile.Constraints
	if c.MaxManifestTokensFail != nil && tokens > *c.MaxManifestTokensFail {
		out = append(out, contracts.Finding{
			Code:     contracts.ReasonConstraintTokenLimitFail,
			Severity: contracts.SeverityError,
			Message:  fmt.Sprintf("manifest token count %d exceeds max_manifest_tokens_fail %d", tokens, *c.MaxManifestTokensFail),
		})
	} else if c.MaxManifestTokensWarn != nil && tokens > *c.MaxManifestTokensWarn {
		out = append(out, contracts.Finding{
			Code:     contracts.ReasonConstraintTokenLimitWarn,
			Severity: contracts.SeverityWarn,
			Message:  fmt.Sprintf("manifest token count %d exceeds max_manifest_tokens_warn %d", tokens, *c.MaxManifestTokensWarn),
		})
	}
	return out
}

func verdictAllowed(v contracts.Verdict, allowed []contracts.Verdict) bool {
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}
