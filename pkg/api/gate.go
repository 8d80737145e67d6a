package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/daniel-p-green/skillvault/pkg/contracts"
)

// gateRequestSchema validates the body of POST /v1/gate: a bundle location
// plus optional policy overrides. Scanning the bundle itself is the
// Scanner's job; this schema only guards the request shape.
const gateRequestSchemaJSON = `{
	"type": "object",
	"required": ["bundle"],
	"properties": {
		"bundle": {"type": "string", "minLength": 1},
		"policy_profile": {"type": "string"},
		"approval_token": {"type": "string"},
		"deterministic": {"type": "boolean"}
	},
	"additionalProperties": false
}`

// GateRequest is the decoded, schema-valid request body.
type GateRequest struct {
	Bundle        string `json:"bundle"`
	PolicyProfile string `json:"policy_profile"`
	ApprovalToken string `json:"approval_token"`
	Deterministic bool   `json:"deterministic"`
}

// Scanner runs the full scan/policy/receipt pipeline over a bundle
// location, isolating the HTTP handler from pkg/bundle, pkg/policy, and
// pkg/receipt directly.
type Scanner interface {
	ScanAndSign(ctx context.Context, bundleLocation, policyProfile, approvalToken string, deterministic bool) (contracts.Receipt, error)
}

// AuditLog records every gate decision for compliance review. It is
// optional: when NewHandler is given a nil AuditLog, Handler simply skips
// recording. The serve command always supplies one; only its Postgres part
// depends on DATABASE_URL being set.
type AuditLog interface {
	Record(ctx context.Context, rec contracts.Receipt, remoteAddr string) error
}

// PostgresAuditLog is the lib/pq-backed AuditLog, separate from the local
// SQLite skill inventory in pkg/store because audit trails belong in a
// shared, centrally queryable database rather than on each operator's disk.
type PostgresAuditLog struct {
	db *sql.DB
}

// NewPostgresAuditLog wraps an open *sql.DB (driver "postgres", lib/pq) and
// ensures its table exists.
func NewPostgresAuditLog(db *sql.DB) (*PostgresAuditLog, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS gate_audit_log (
			id            BIGSERIAL PRIMARY KEY,
			bundle_sha256 TEXT NOT NULL,
			verdict       TEXT NOT NULL,
			risk_total    INTEGER NOT NULL,
			remote_addr   TEXT NOT NULL,
			recorded_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("api: create gate_audit_log table: %w", err)
	}
	return &PostgresAuditLog{db: db}, nil
}

func (a *PostgresAuditLog) Record(ctx context.Context, rec contracts.Receipt, remoteAddr string) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO gate_audit_log (bundle_sha256, verdict, risk_total, remote_addr)
		VALUES ($1, $2, $3, $4)
	`, rec.BundleSha256, string(rec.Policy.Verdict), rec.Policy.RiskScore.Total, remoteAddr)
	if err != nil {
		return fmt.Errorf("api: record gate audit entry: %w", err)
	}
	return nil
}

// Handler serves POST /v1/gate.
type Handler struct {
	scanner  Scanner
	audit    AuditLog
	log      *slog.Logger
	validate *jsonschema.Schema
}

// NewHandler compiles the request schema once and wires the scanner/audit
// dependencies. audit may be nil.
func NewHandler(scanner Scanner, audit AuditLog, log *slog.Logger) (*Handler, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	const schemaURL = "https://skillvault.dev/schemas/gate_request.schema.json"
	if err := c.AddResource(schemaURL, strings.NewReader(gateRequestSchemaJSON)); err != nil {
		return nil, fmt.Errorf("api: load gate request schema: %w", err)
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("api: compile gate request schema: %w", err)
	}
	return &Handler{scanner: scanner, audit: audit, log: log, validate: compiled}, nil
}

// ServeHTTP implements the gate endpoint: scan, sign, optionally audit, and
// respond with the signed receipt. The HTTP status mirrors the verdict —
// 200 for PASS, 200 for WARN, 422 for FAIL — so callers can gate on status
// code alone without parsing the body if they choose to.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "Method Not Allowed", "only POST is supported")
		return
	}

	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		WriteBadRequest(w, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	if err := h.validate.Validate(raw); err != nil {
		WriteBadRequest(w, fmt.Sprintf("request failed schema validation: %v", err))
		return
	}

	blob, _ := json.Marshal(raw)
	var req GateRequest
	_ = json.Unmarshal(blob, &req)

	rec, err := h.scanner.ScanAndSign(r.Context(), req.Bundle, req.PolicyProfile, req.ApprovalToken, req.Deterministic)
	if err != nil {
		h.log.Error("gate scan failed", "bundle", req.Bundle, "error", err)
		WriteInternalError(w, "scan failed")
		return
	}

	if h.audit != nil {
		if err := h.audit.Record(r.Context(), rec, r.RemoteAddr); err != nil {
			h.log.Warn("gate audit record failed", "bundle_sha256", rec.BundleSha256, "error", err)
		}
	}

	status := http.StatusOK
	if rec.Policy.Verdict == contracts.VerdictFail {
		status = http.StatusUnprocessableEntity
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rec)
}
