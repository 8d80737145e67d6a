// Package diff compares two scanned sides (a bundle or a receipt) and
// reports file-level, capability, and finding-level deltas.
package diff

import (
	"sort"

	"github.com/daniel-p-green/skillvault/pkg/contracts"
)

// Change classifies one file's status between the two sides of a diff.
type Change string

const (
	ChangeAdded     Change = "added"
	ChangeRemoved   Change = "removed"
	ChangeModified  Change = "modified"
	ChangeUnchanged Change = "unchanged"
)

// FileDiff is one path's status across both sides.
type FileDiff struct {
	Path   string              `json:"path"`
	Change Change              `json:"change"`
	A      *contracts.FileEntry `json:"a,omitempty"`
	B      *contracts.FileEntry `json:"b,omitempty"`
}

// Summary counts each Change across all FileDiffs.
type Summary struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Modified  int `json:"modified"`
	Unchanged int `json:"unchanged"`
}

// CapabilityDeltas lists capabilities gained/lost between sides, each
// sorted bytewise.
type CapabilityDeltas struct {
	Added   []contracts.Capability `json:"added"`
	Removed []contracts.Capability `json:"removed"`
}

// FindingDeltas lists findings present on only one side, keyed by a stable
// identity derived from the finding (see findingKey).
type FindingDeltas struct {
	Added   []contracts.Finding `json:"added"`
	Removed []contracts.Finding `json:"removed"`
}

// Report is the full output of a diff between two scanned sides.
type Report struct {
	FileDiffs        []FileDiff       `json:"file_diffs"`
	Summary          Summary          `json:"summary"`
	CapabilityDeltas CapabilityDeltas `json:"capability_deltas"`
	FindingDeltas    FindingDeltas    `json:"finding_deltas"`
}

// Side is one half of a diff: its file list, capability set, and findings,
// regardless of whether it came from scanning a bundle in-process or
// reading a receipt.
type Side struct {
	Files        []contracts.FileEntry
	Capabilities []contracts.Capability
	Findings     []contracts.Finding
}

// Compare builds the full diff report between sides a and b.
func Compare(a, b Side) Report {
	files := diffFiles(a.Files, b.Files)
	return Report{
		FileDiffs:        files,
		Summary:          summarize(files),
		CapabilityDeltas: diffCapabilities(a.Capabilities, b.Capabilities),
		FindingDeltas:    diffFindings(a.Findings, b.Findings),
	}
}

func diffFiles(a, b []contracts.FileEntry) []FileDiff {
	aByPath := make(map[string]contracts.FileEntry, len(a))
	for _, f := range a {
		aByPath[f.Path] = f
	}
	bByPath := make(map[string]contracts.FileEntry, len(b))
	for _, f := range b {
		bByPath[f.Path] = f
	}

	pathSet := make(map[string]bool, len(a)+len(b))
	for p := range aByPath {
		pathSet[p] = true
	}
	for p := range bByPath {
		pathSet[p] = true
	}
	paths := make([]string, 0, len(pathSet))
	for p := range pathSet {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	diffs := make([]FileDiff, 0, len(paths))
	for _, p := range paths {
		af, aok := aByPath[p]
		bf, bok := bByPath[p]
		switch {
		case aok && !bok:
			diffs = append(diffs, FileDiff{Path: p, Change: ChangeRemoved, A: entryPtr(af)})
		case !aok && bok:
			diffs = append(diffs, FileDiff{Path: p, Change: ChangeAdded, B: entryPtr(bf)})
		case af.Size != bf.Size || af.Sha256 != bf.Sha256:
			diffs = append(diffs, FileDiff{Path: p, Change: ChangeModified, A: entryPtr(af), B: entryPtr(bf)})
		default:
			diffs = append(diffs, FileDiff{Path: p, Change: ChangeUnchanged, A: entryPtr(af), B: entryPtr(bf)})
		}
	}
	return diffs
}

func entryPtr(e contracts.FileEntry) *contracts.FileEntry { return &e }

func summarize(diffs []FileDiff) Summary {
	var s Summary
	for _, d := range diffs {
		switch d.Change {
		case ChangeAdded:
			s.Added++
		case ChangeRemoved:
			s.Removed++
		case ChangeModified:
			s.Modified++
		case ChangeUnchanged:
			s.Unchanged++
		}
	}
	return s
}

func diffCapabilities(a, b []contracts.Capability) CapabilityDeltas {
	aSet := make(map[contracts.Capability]bool, len(a))
	for _, c := range a {
		aSet[c] = true
	}
	bSet := make(map[contracts.Capability]bool, len(b))
	for _, c := range b {
		bSet[c] = true
	}

	var added, removed []contracts.Capability
	for c := range bSet {
		if !aSet[c] {
			added = append(added, c)
		}
	}
	for c := range aSet {
		if !bSet[c] {
			removed = append(removed, c)
		}
	}
	sort.Slice(added, func(i, j int) bool { return added[i] < added[j] })
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	return CapabilityDeltas{Added: added, Removed: removed}
}

// findingKey derives a stable identity for a finding: the rule id from
// Details["rule_id"] if present, else "${code}" or "${code}:${path}" when a
// path is set.
func findingKey(f contracts.Finding) string {
	if f.Details != nil {
		if id, ok := f.Details["rule_id"]; ok {
			if s, ok := id.(string); ok && s != "" {
				return s
			}
		}
	}
	if f.Path != "" {
		return string(f.Code) + ":" + f.Path
	}
	return string(f.Code)
}

func diffFindings(a, b []contracts.Finding) FindingDeltas {
	aKeys := make(map[string]bool, len(a))
	for _, f := range a {
		aKeys[findingKey(f)] = true
	}
	bKeys := make(map[string]bool, len(b))
	for _, f := range b {
		bKeys[findingKey(f)] = true
	}

	var added, removed []contracts.Finding
	for _, f := range b {
		if !aKeys[findingKey(f)] {
			added = append(added, f)
		}
	}
	for _, f := range a {
		if !bKeys[findingKey(f)] {
			removed = append(removed, f)
		}
	}
	sort.Slice(added, func(i, j int) bool { return findingKey(added[i]) < findingKey(added[j]) })
	sort.Slice(removed, func(i, j int) bool { return findingKey(removed[i]) < findingKey(removed[j]) })
	return FindingDeltas{Added: added, Removed: removed}
}
