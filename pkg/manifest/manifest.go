// Package manifest enforces the "exactly one root manifest" rule: a bundle
// must contain exactly one root-level SKILL.md or skill.md file.
package manifest

import (
	"fmt"
	"strings"

	"github.com/daniel-p-green/skillvault/pkg/contracts"
)

const (
	nameUpper = "SKILL.md"
	nameLower = "skill.md"
)

// Detect scans a path-sorted FileEntry list for the single root manifest.
// If exactly one root-level SKILL.md or skill.md exists, it is returned
// along with a nil Finding. Otherwise the sentinel manifest is returned
// together with a CONSTRAINT_MANIFEST_COUNT finding.
func Detect(files []contracts.FileEntry) (contracts.ManifestRef, *contracts.Finding) {
	var matches []contracts.FileEntry
	for _, f := range files {
		if strings.Contains(f.Path, "/") {
			continue // not root-level
		}
		if f.Path == nameUpper || f.Path == nameLower {
			matches = append(matches, f)
		}
	}

	if len(matches) == 1 {
		m := matches[0]
		return contracts.ManifestRef{Path: m.Path, Size: m.Size, Sha256: m.Sha256}, nil
	}

	finding := &contracts.Finding{
		Code:     contracts.ReasonConstraintManifestCount,
		Severity: contracts.SeverityError,
		Message:  fmt.Sprintf("Expected exactly one manifest (SKILL.md or skill.md) in bundle root; found %d", len(matches)),
	}
	return contracts.SentinelManifest(), finding
}

// EstimateTokens approximates the LLM token count of manifest content using
// the common four-bytes-per-token heuristic. It is an estimate only: the
// core never tokenizes with a real model vocabulary, so policy token limits
// are necessarily approximate gates, not exact counts.
func EstimateTokens(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := len(content) / 4
	if n == 0 {
		n = 1
	}
	return n
}
