// Package risk computes the weighted risk score for a scan: a clamped sum
// of capability weights and finding-severity weights.
package risk

import (
	"math"

	"github.com/daniel-p-green/skillvault/pkg/contracts"
)

var capabilityWeights = map[contracts.Capability]float64{
	contracts.CapabilityNetwork:     20,
	contracts.CapabilityExec:        25,
	contracts.CapabilityWrites:      15,
	contracts.CapabilityReads:       5,
	contracts.CapabilitySecrets:     20,
	contracts.CapabilityDynamicCode: 25,
}

var severityWeights = map[contracts.Severity]float64{
	contracts.SeverityInfo:  0,
	contracts.SeverityWarn:  4,
	contracts.SeverityError: 12,
}

// Score computes base_risk from a unique capability set and finding list,
// with change_risk and policy_delta defaulted to 0. Callers that track
// bundle deltas across versions may call ApplyDelta afterward.
func Score(capabilities []contracts.Capability, findings []contracts.Finding) contracts.RiskScore {
	sum := 0.0
	seen := make(map[contracts.Capability]bool)
	for _, c := range capabilities {
		if seen[c] {
			continue
		}
		seen[c] = true
		sum += capabilityWeights[c]
	}
	for _, f := range findings {
		sum += severityWeights[f.Severity]
	}

	base := clamp(math.Round(sum), 0, 100)
	return contracts.RiskScore{
		BaseRisk:    base,
		ChangeRisk:  0,
		PolicyDelta: 0,
		Total:       base,
	}
}

// ApplyDelta folds a change_risk and policy_delta into an existing score,
// each clamped to its own range before the total is recomputed.
func ApplyDelta(score contracts.RiskScore, changeRisk, policyDelta int) contracts.RiskScore {
	score.ChangeRisk = clamp(float64(changeRisk), 0, 100)
	score.PolicyDelta = clampSigned(float64(policyDelta), -100, 100)
	score.Total = clamp(float64(score.BaseRisk+score.ChangeRisk+score.PolicyDelta), 0, 100)
	return score
}

// clamp truncates x to an int and limits it to [lo, hi], treating NaN and +Inf as hi and -Inf as lo
// so a scoring bug never silently under-reports risk.
func clamp(x float64, lo, hi int) int {
	if math.IsNaN(x) || math.IsInf(x, 1) {
		return hi
	}
	if math.IsInf(x, -1) {
		return lo
	}
	v := int(x)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampSigned(x float64, lo, hi int) int {
	return clamp(x, lo, hi)
}
