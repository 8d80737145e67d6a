// Package store is the local skill inventory: a SQLite-backed record of
// every receipt produced for a bundle, queryable by verdict for the
// skill manager UI and CLI listing commands.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/daniel-p-green/skillvault/pkg/contracts"
)

// Store is the local skill inventory.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite database at dsn and runs
// migrations. dsn is a modernc.org/sqlite data source name, typically a
// file path or "file::memory:?cache=shared" for tests.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dsn, err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an already-open database handle, letting callers inject
// a sqlmock connection in tests without going through Open.
func NewWithDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle so callers that need to share the same
// SQLite file for a second table (the telemetry outbox) don't have to open
// a second connection to it.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) migrate() error {
	statements := []string{`
	CREATE TABLE IF NOT EXISTS receipts (
		bundle_sha256 TEXT PRIMARY KEY,
		created_at    TEXT NOT NULL,
		verdict       TEXT NOT NULL,
		risk_total    INTEGER NOT NULL,
		receipt_json  TEXT NOT NULL
	)`,
		`CREATE INDEX IF NOT EXISTS idx_receipts_verdict ON receipts(verdict)`,
	}
	for _, query := range statements {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

// Put inserts or replaces a receipt, keyed by its bundle hash.
func (s *Store) Put(ctx context.Context, r contracts.Receipt) error {
	blob, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("store: marshal receipt: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO receipts (bundle_sha256, created_at, verdict, risk_total, receipt_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(bundle_sha256) DO UPDATE SET
			created_at = excluded.created_at,
			verdict = excluded.verdict,
			risk_total = excluded.risk_total,
			receipt_json = excluded.receipt_json
	`, r.BundleSha256, r.CreatedAt, string(r.Policy.Verdict), r.Policy.RiskScore.Total, string(blob))
	if err != nil {
		return fmt.Errorf("store: put receipt %s: %w", r.BundleSha256, err)
	}
	return nil
}

// Get retrieves a receipt by bundle hash. It returns (nil, nil) if absent.
func (s *Store) Get(ctx context.Context, bundleSha256 string) (*contracts.Receipt, error) {
	var blob string
	err := s.db.QueryRowContext(ctx, `SELECT receipt_json FROM receipts WHERE bundle_sha256 = ?`, bundleSha256).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get receipt %s: %w", bundleSha256, err)
	}
	var r contracts.Receipt
	if err := json.Unmarshal([]byte(blob), &r); err != nil {
		return nil, fmt.Errorf("store: decode receipt %s: %w", bundleSha256, err)
	}
	return &r, nil
}

// ListByVerdict returns every stored receipt with the given verdict, most
// recently created first.
func (s *Store) ListByVerdict(ctx context.Context, verdict contracts.Verdict) ([]contracts.Receipt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT receipt_json FROM receipts WHERE verdict = ? ORDER BY created_at DESC
	`, string(verdict))
	if err != nil {
		return nil, fmt.Errorf("store: list by verdict %s: %w", verdict, err)
	}
	defer func() { _ = rows.Close() }()

	var out []contracts.Receipt
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("store: scan receipt row: %w", err)
		}
		var r contracts.Receipt
		if err := json.Unmarshal([]byte(blob), &r); err != nil {
			return nil, fmt.Errorf("store: decode receipt row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
