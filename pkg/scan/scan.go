// Package scan wires the pipeline stages — bundle read, hashing, manifest
// detection, capability inference, risk scoring, and policy evaluation —
// into the two operations the CLI and HTTP gate both need: producing a
// ScanReport, and evaluating it against a policy into a PolicyDecision
// (building and signing the Receipt is pkg/receipt's job). No stage here performs
// I/O beyond what pkg/bundle and pkg/policy already do; this package is
// purely the glue that calls them in the right order with the right
// constraint checks folded in.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/daniel-p-green/skillvault/pkg/bundle"
	"github.com/daniel-p-green/skillvault/pkg/capability"
	"github.com/daniel-p-green/skillvault/pkg/contracts"
	"github.com/daniel-p-green/skillvault/pkg/hashing"
	"github.com/daniel-p-green/skillvault/pkg/manifest"
	"github.com/daniel-p-green/skillvault/pkg/policy"
	"github.com/daniel-p-green/skillvault/pkg/risk"
	"github.com/daniel-p-green/skillvault/pkg/tracing"
)

// Result bundles everything a caller of Run needs: the ScanReport, the
// read bundle (for export/signing callers that need the raw files again),
// and the set of constraint findings folded into the eventual policy
// evaluation.
type Result struct {
	Report             contracts.ScanReport
	Bundle             *bundle.Bundle
	ConstraintFindings []contracts.Finding
	ManifestTokens     int
}

// Run reads bundleLocation, hashes it, detects the manifest, infers
// capabilities, scores risk, and returns the assembled ScanReport plus the
// constraint findings a policy evaluation should fold in (manifest count,
// size limits, unsafe paths, symlinks). It does not evaluate policy itself;
// callers combine Result.ConstraintFindings with policy.Input and call
// policy.Evaluate.
func Run(ctx context.Context, bundleLocation string, profile *policy.Profile, logger *slog.Logger) (result Result, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, span := otel.Tracer(tracing.TracerName).Start(ctx, "scan.Run",
		trace.WithAttributes(attribute.String("bundle.location", bundleLocation)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	b, err := bundle.Read(ctx, bundleLocation)
	if err != nil {
		return Result{}, err
	}
	span.SetAttributes(attribute.Int("bundle.files", len(b.Files)))
	logger.Debug("bundle read", "source", b.Source, "kind", b.Kind, "files", len(b.Files))

	entries := hashing.HashBundleFiles(b.Files)
	bundleSha := hashing.ComputeBundleSha256(entries)

	var findings []contracts.Finding

	exactlyOne := profile == nil || profile.Constraints.ExactlyOneManifest == nil || *profile.Constraints.ExactlyOneManifest
	manifestRef, manifestFinding := manifest.Detect(entries)
	if manifestFinding != nil && exactlyOne {
		findings = append(findings, *manifestFinding)
	}

	var manifestTokens int
	for _, f := range b.Files {
		if f.Path == manifestRef.Path {
			manifestTokens = manifest.EstimateTokens(f.Bytes)
			break
		}
	}

	findings = append(findings, constraintFindings(b, entries, profile)...)

	caps := capability.Infer(b.Files)
	score := risk.Score(caps, findings)

	report := contracts.ScanReport{
		ContractVersion: contracts.ContractVersion,
		BundleSha256:    bundleSha,
		Files:           entries,
		Manifest:        manifestRef,
		Scan: contracts.ScanSummary{
			Capabilities: caps,
			RiskScore:    score,
			Summary:      summaryLine(caps, score),
			Findings:     findings,
		},
	}

	return Result{Report: report, Bundle: b, ConstraintFindings: findings, ManifestTokens: manifestTokens}, nil
}

// constraintFindings evaluates the size-limit, symlink, and unsafe-path
// constraints a policy profile may carry. Manifest-count is handled by the
// caller since it needs the detected ManifestRef, not just the profile.
func constraintFindings(b *bundle.Bundle, entries []contracts.FileEntry, profile *policy.Profile) []contracts.Finding {
	var out []contracts.Finding
	if len(b.Symlinks) > 0 {
		out = append(out, contracts.Finding{
			Code:     contracts.ReasonConstraintSymlinkForbidden,
			Severity: contracts.SeverityError,
			Message:  fmt.Sprintf("bundle contains %d symlink(s), not followed: %v", len(b.Symlinks), b.Symlinks),
		})
	}

	for _, f := range entries {
		if isUnsafePath(f.Path) {
			out = append(out, contracts.Finding{
				Code:     contracts.ReasonConstraintUnsafePath,
				Severity: contracts.SeverityError,
				Message:  fmt.Sprintf("unsafe path in bundle: %q", f.Path),
				Path:     f.Path,
			})
		}
	}

	if profile == nil {
		return out
	}

	if profile.Constraints.BundleSizeLimitBytes != nil {
		var total int64
		for _, f := range entries {
			total += f.Size
		}
		if limit := int64(*profile.Constraints.BundleSizeLimitBytes); total > limit {
			out = append(out, contracts.Finding{
				Code:     contracts.ReasonConstraintBundleSizeLimit,
				Severity: contracts.SeverityError,
				Message:  fmt.Sprintf("bundle size %d bytes exceeds limit %d", total, limit),
			})
		}
	}

	if profile.Constraints.FileSizeLimitBytes != nil {
		limit := int64(*profile.Constraints.FileSizeLimitBytes)
		for _, f := range entries {
			if f.Size > limit {
				out = append(out, contracts.Finding{
					Code:     contracts.ReasonConstraintFileSizeLimit,
					Severity: contracts.SeverityError,
					Message:  fmt.Sprintf("file %q size %d bytes exceeds limit %d", f.Path, f.Size, limit),
					Path:     f.Path,
				})
			}
		}
	}

	return out
}

// isUnsafePath flags absolute paths and paths containing a ".." segment.
// It runs over the entries of the bundle just read, so in practice it
// fires on archives or object listings whose entry names carry such
// segments.
func isUnsafePath(p string) bool {
	if strings.HasPrefix(p, "/") {
		return true
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

func summaryLine(caps []contracts.Capability, score contracts.RiskScore) string {
	if len(caps) == 0 {
		return fmt.Sprintf("no capabilities detected; risk %d", score.Total)
	}
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = string(c)
	}
	return fmt.Sprintf("capabilities [%s]; risk %d", strings.Join(names, ", "), score.Total)
}

// EvaluatePolicy builds the policy.Input from a Result and an approval
// token and evaluates it against profile, returning the final decision.
func EvaluatePolicy(result Result, profile *policy.Profile, approvalToken string) contracts.PolicyDecision {
	in := policy.Input{
		Capabilities:     result.Report.Scan.Capabilities,
		ManifestFindings: result.ConstraintFindings,
		ApprovalToken:    approvalToken,
		ManifestTokens:   result.ManifestTokens,
	}
	return policy.Evaluate(profile, result.Report.Scan.RiskScore, in)
}
