// Package capability infers the coarse capability set a bundle exercises
// by matching a fixed rule table against file paths and normalized content.
// Rules are deliberately simple regexes rather than a parser: the goal is a
// stable, auditable signal, not language-aware analysis.
package capability

import (
	"regexp"
	"sort"

	"github.com/daniel-p-green/skillvault/pkg/contracts"
	"github.com/daniel-p-green/skillvault/pkg/hashing"
	"github.com/daniel-p-green/skillvault/pkg/normalize"
)

// rule pairs a capability with an optional path regex and an optional
// content regex. Either may be nil; a nil regex never matches on its own,
// so a rule with both nil would be inert (none are defined that way).
type rule struct {
	capability contracts.Capability
	pathRe     *regexp.Regexp
	contentRe  *regexp.Regexp
}

var rules = []rule{
	{
		capability: contracts.CapabilityNetwork,
		pathRe:     regexp.MustCompile(`(?i)(^|[/_.-])(curl|wget|http|net|network|socket)([/_.-]|$)`),
		contentRe:  regexp.MustCompile(`(?i)fetch\(|axios\.|https?://|websocket|socket\.|net\.|curl|wget|requests\.|httpx\.|urllib\.|aiohttp\.`),
	},
	{
		capability: contracts.CapabilityExec,
		pathRe:     regexp.MustCompile(`(?i)\.(sh|bash|zsh|command)$`),
		contentRe:  regexp.MustCompile(`(?i)execsync\(|spawn\(|fork\(|subprocess\.|os\.system\(|runtime\.exec\(|shell:\s*true`),
	},
	{
		capability: contracts.CapabilityWrites,
		pathRe:     regexp.MustCompile(`(?i)(^|[/_.-])(tmp|dist|build|output|cache|logs?)([/_.-]|$)`),
		contentRe:  regexp.MustCompile(`(?i)writefile|appendfile|createwritestream|mkdir|mkdtemp|\brm\b|unlink`),
	},
	{
		capability: contracts.CapabilityReads,
		pathRe:     regexp.MustCompile(`(?i)(^|[/_.-])(docs?|input|fixtures?|templates?)([/_.-]|$)`),
		contentRe:  regexp.MustCompile(`(?i)readfile|createreadstream|readdir|glob|cat\s|open\((['"]|\s)*r`),
	},
	{
		capability: contracts.CapabilitySecrets,
		pathRe:     regexp.MustCompile(`(?i)(^|[/_.-])(\.env|secrets?|credentials?|keys?)([/_.-]|$)`),
		contentRe:  regexp.MustCompile(`(?i)api_key|access_token|secret|password|private_key|client_secret|aws_secret_access_key|op://|bearer\s`),
	},
	{
		capability: contracts.CapabilityDynamicCode,
		pathRe:     nil,
		contentRe:  regexp.MustCompile(`(?i)eval\(|new\s+function\(|function\(|vm\.runin|import\(.*\+|require\(.*\+|exec\(`),
	},
}

// Infer evaluates the fixed rule set against the bundle's files, sorted
// bytewise by path before iteration so output never depends on input
// ordering. It returns the matched capabilities as a bytewise-sorted,
// deduplicated slice.
func Infer(files []hashing.RawFile) []contracts.Capability {
	sorted := make([]hashing.RawFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	matched := make(map[contracts.Capability]bool)
	for _, f := range sorted {
		content := normalize.Text(f.Bytes)
		for _, r := range rules {
			if matched[r.capability] {
				continue
			}
			if r.pathRe != nil && r.pathRe.MatchString(f.Path) {
				matched[r.capability] = true
				continue
			}
			if r.contentRe != nil && r.contentRe.MatchString(content) {
				matched[r.capability] = true
			}
		}
	}

	var result []contracts.Capability
	for _, c := range contracts.AllCapabilities {
		if matched[c] {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}
