package diff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/daniel-p-green/skillvault/pkg/contracts"
	"github.com/daniel-p-green/skillvault/pkg/diff"
)

func TestCompare_FileAddedRemovedModifiedUnchanged(t *testing.T) {
	a := diff.Side{
		Files: []contracts.FileEntry{
			{Path: "keep.txt", Size: 3, Sha256: "x"},
			{Path: "removed.txt", Size: 1, Sha256: "y"},
			{Path: "changed.txt", Size: 1, Sha256: "old"},
		},
	}
	b := diff.Side{
		Files: []contracts.FileEntry{
			{Path: "keep.txt", Size: 3, Sha256: "x"},
			{Path: "added.txt", Size: 2, Sha256: "z"},
			{Path: "changed.txt", Size: 2, Sha256: "new"},
		},
	}

	report := diff.Compare(a, b)
	assert.Equal(t, 1, report.Summary.Added)
	assert.Equal(t, 1, report.Summary.Removed)
	assert.Equal(t, 1, report.Summary.Modified)
	assert.Equal(t, 1, report.Summary.Unchanged)
}

func TestCompare_FileDiffsAreSortedByPath(t *testing.T) {
	a := diff.Side{Files: []contracts.FileEntry{{Path: "b.txt"}, {Path: "a.txt"}}}
	b := diff.Side{Files: []contracts.FileEntry{{Path: "b.txt"}, {Path: "a.txt"}}}

	report := diff.Compare(a, b)
	assert.Equal(t, "a.txt", report.FileDiffs[0].Path)
	assert.Equal(t, "b.txt", report.FileDiffs[1].Path)
}

func TestCompare_CapabilityDeltas(t *testing.T) {
	a := diff.Side{Capabilities: []contracts.Capability{contracts.CapabilityNetwork, contracts.CapabilityReads}}
	b := diff.Side{Capabilities: []contracts.Capability{contracts.CapabilityReads, contracts.CapabilityExec}}

	report := diff.Compare(a, b)
	assert.Equal(t, []contracts.Capability{contracts.CapabilityExec}, report.CapabilityDeltas.Added)
	assert.Equal(t, []contracts.Capability{contracts.CapabilityNetwork}, report.CapabilityDeltas.Removed)
}

func TestCompare_FindingDeltasByRuleID(t *testing.T) {
	a := diff.Side{Findings: []contracts.Finding{
		{Code: contracts.ReasonConstraintUnsafePath, Details: map[string]any{"rule_id": "r1"}},
	}}
	b := diff.Side{Findings: []contracts.Finding{
		{Code: contracts.ReasonConstraintUnsafePath, Details: map[string]any{"rule_id": "r2"}},
	}}

	report := diff.Compare(a, b)
	assert.Len(t, report.FindingDeltas.Added, 1)
	assert.Len(t, report.FindingDeltas.Removed, 1)
}

func TestCompare_FindingDeltasByCodeAndPathWhenNoRuleID(t *testing.T) {
	shared := contracts.Finding{Code: contracts.ReasonConstraintFileSizeLimit, Path: "big.bin"}
	a := diff.Side{Findings: []contracts.Finding{shared}}
	b := diff.Side{Findings: []contracts.Finding{shared}}

	report := diff.Compare(a, b)
	assert.Empty(t, report.FindingDeltas.Added)
	assert.Empty(t, report.FindingDeltas.Removed)
}

func TestCompare_EmptySidesProduceEmptyReport(t *testing.T) {
	report := diff.Compare(diff.Side{}, diff.Side{})
	assert.Empty(t, report.FileDiffs)
	assert.Empty(t, report.CapabilityDeltas.Added)
	assert.Empty(t, report.FindingDeltas.Added)
}
