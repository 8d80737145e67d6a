// Package errs defines the small error taxonomy used at every pipeline
// boundary: input errors abort an invocation immediately, policy errors
// carry a reason code and field-path detail, and everything else the core
// can observe about a bundle becomes a contracts.Finding value instead of
// an error. Findings are values, not thrown, per the core's propagation
// policy.
package errs

import (
	"fmt"

	"github.com/daniel-p-green/skillvault/pkg/contracts"
)

// Kind classifies an Error for callers that need to branch on it (e.g. the
// CLI choosing an exit code).
type Kind string

const (
	KindInput  Kind = "input"
	KindPolicy Kind = "policy"
	KindIO     Kind = "io"
)

// Error is the sum type used at package boundaries that can fail input
// validation. It always carries a closed ReasonCode so machine consumers
// never have to string-match.
type Error struct {
	Kind    Kind
	Code    contracts.ReasonCode
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Input builds a KindInput error (bundle not found, unsupported input kind).
func Input(code contracts.ReasonCode, format string, args ...any) *Error {
	return &Error{Kind: KindInput, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Policy builds a KindPolicy error for malformed policy YAML, carrying the
// offending field path and value in Details so callers can report exactly
// which policy field was malformed.
func Policy(code contracts.ReasonCode, field string, value any, format string, args ...any) *Error {
	return &Error{
		Kind:    KindPolicy,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: map[string]any{"field": field, "value": value},
	}
}

// IO wraps an underlying I/O failure (reading a required file, writing an
// export) that aborts the invocation.
func IO(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindIO, Message: fmt.Sprintf(format, args...), cause: cause}
}

// BundleNotFound is the distinguished input error for a missing bundle path.
// It carries no ReasonCode: it aborts the invocation before any scan
// findings could be produced, so it is a hard runtime error, not a finding.
func BundleNotFound(path string) *Error {
	return &Error{Kind: KindInput, Message: fmt.Sprintf("bundle not found: %s", path)}
}

// UnsupportedBundleInput is the distinguished input error for a path that is
// neither a directory nor a .zip file.
func UnsupportedBundleInput(path string) *Error {
	return &Error{Kind: KindInput, Message: fmt.Sprintf("unsupported bundle input (not a directory or .zip file): %s", path)}
}
