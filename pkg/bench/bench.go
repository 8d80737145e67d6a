// Package bench replays a fixture corpus through the scan pipeline and
// reports pass/fail counts and wall-clock timing, the way a compatibility
// matrix checks a pack against a kernel version rather than the other way
// around: here a tool version is checked against a corpus of fixtures it
// claims to support.
package bench

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/daniel-p-green/skillvault/pkg/contracts"
)

// Fixture is one bundle path paired with the verdict a correct
// implementation must produce for it.
type Fixture struct {
	Name            string            `json:"name"`
	BundlePath      string            `json:"bundle_path"`
	ExpectedVerdict contracts.Verdict `json:"expected_verdict"`
	MinToolVersion  string            `json:"min_tool_version"` // semver constraint, e.g. ">=0.1.0"; empty means no constraint
}

// Scanner runs the full pipeline over a bundle path; bench doesn't import
// pkg/bundle/pkg/policy/pkg/receipt directly so it stays decoupled from
// wiring concerns (policy profile selection, deterministic mode) that are
// the CLI's job.
type Scanner interface {
	Scan(ctx context.Context, bundlePath string) (contracts.Verdict, error)
}

// FixtureResult is one fixture's outcome.
type FixtureResult struct {
	Name     string        `json:"name"`
	Pass     bool          `json:"pass"`
	Skipped  bool          `json:"skipped"`
	Got      contracts.Verdict `json:"got,omitempty"`
	Want     contracts.Verdict `json:"want"`
	Duration time.Duration `json:"duration_ns"`
	Error    string        `json:"error,omitempty"`
}

// Report is the full benchmark run output.
type Report struct {
	ToolVersion string          `json:"tool_version"`
	Results     []FixtureResult `json:"results"`
	Passed      int             `json:"passed"`
	Failed      int             `json:"failed"`
	Skipped     int             `json:"skipped"`
	TotalTime   time.Duration   `json:"total_time_ns"`
}

// Run replays every fixture through scanner, skipping fixtures whose
// MinToolVersion constraint the running toolVersion does not satisfy.
func Run(ctx context.Context, scanner Scanner, toolVersion string, fixtures []Fixture) (Report, error) {
	report := Report{ToolVersion: toolVersion}
	runningVersion, err := semver.NewVersion(toolVersion)
	if err != nil {
		return report, fmt.Errorf("bench: invalid tool version %q: %w", toolVersion, err)
	}

	start := time.Now()
	for _, f := range fixtures {
		if f.MinToolVersion != "" {
			constraint, err := semver.NewConstraint(f.MinToolVersion)
			if err != nil {
				return report, fmt.Errorf("bench: fixture %s has invalid version constraint %q: %w", f.Name, f.MinToolVersion, err)
			}
			if !constraint.Check(runningVersion) {
				report.Results = append(report.Results, FixtureResult{Name: f.Name, Skipped: true, Want: f.ExpectedVerdict})
				report.Skipped++
				continue
			}
		}

		fixtureStart := time.Now()
		got, err := scanner.Scan(ctx, f.BundlePath)
		elapsed := time.Since(fixtureStart)

		result := FixtureResult{Name: f.Name, Want: f.ExpectedVerdict, Got: got, Duration: elapsed}
		if err != nil {
			result.Error = err.Error()
		} else {
			result.Pass = got == f.ExpectedVerdict
		}
		if result.Pass {
			report.Passed++
		} else {
			report.Failed++
		}
		report.Results = append(report.Results, result)
	}
	report.TotalTime = time.Since(start)
	return report, nil
}
