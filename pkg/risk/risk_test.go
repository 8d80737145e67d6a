package risk_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/daniel-p-green/skillvault/pkg/contracts"
	"github.com/daniel-p-green/skillvault/pkg/risk"
)

func TestScore_NoCapabilitiesNoFindings(t *testing.T) {
	score := risk.Score(nil, nil)
	assert.Equal(t, 0, score.BaseRisk)
	assert.Equal(t, 0, score.Total)
}

func TestScore_SumsDistinctCapabilityWeights(t *testing.T) {
	score := risk.Score([]contracts.Capability{contracts.CapabilityNetwork, contracts.CapabilityExec}, nil)
	assert.Equal(t, 45, score.BaseRisk)
}

func TestScore_DuplicateCapabilitiesCountedOnce(t *testing.T) {
	score := risk.Score([]contracts.Capability{contracts.CapabilityNetwork, contracts.CapabilityNetwork}, nil)
	assert.Equal(t, 20, score.BaseRisk)
}

func TestScore_FindingsAddSeverityWeight(t *testing.T) {
	findings := []contracts.Finding{
		{Severity: contracts.SeverityWarn},
		{Severity: contracts.SeverityError},
	}
	score := risk.Score(nil, findings)
	assert.Equal(t, 16, score.BaseRisk)
}

func TestScore_ClampsAtMax(t *testing.T) {
	caps := contracts.AllCapabilities
	findings := make([]contracts.Finding, 10)
	for i := range findings {
		findings[i] = contracts.Finding{Severity: contracts.SeverityError}
	}
	score := risk.Score(caps, findings)
	assert.Equal(t, 100, score.BaseRisk)
	assert.Equal(t, 100, score.Total)
}

func TestApplyDelta_ClampsEachComponentIndependently(t *testing.T) {
	base := contracts.RiskScore{BaseRisk: 50, Total: 50}
	out := risk.ApplyDelta(base, 200, -500)
	assert.Equal(t, 100, out.ChangeRisk)
	assert.Equal(t, -100, out.PolicyDelta)
	assert.Equal(t, 50, out.Total)
}

func TestApplyDelta_CombinesWithinRange(t *testing.T) {
	base := contracts.RiskScore{BaseRisk: 30, Total: 30}
	out := risk.ApplyDelta(base, 10, 5)
	assert.Equal(t, 45, out.Total)
}

func TestScore_EmptyInputTotalIsNotNaN(t *testing.T) {
	// The clamp helper's NaN handling can't be reached through Score's
	// public inputs, so this only checks that an empty input yields a
	// well-defined total.
	score := risk.Score(nil, nil)
	assert.False(t, math.IsNaN(float64(score.Total)))
}
