// Package telemetry is an at-least-once outbox for scan events: every
// completed scan is enqueued locally and drained to whatever sink the
// caller configures (a metrics endpoint, a log shipper), surviving process
// restarts between enqueue and ack.
package telemetry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/daniel-p-green/skillvault/pkg/contracts"
)

// Event is one outbox record: a scan's verdict and risk score, not the
// full receipt, to keep the telemetry sink's payload small.
type Event struct {
	BundleSha256 string            `json:"bundle_sha256"`
	Verdict      contracts.Verdict `json:"verdict"`
	RiskTotal    int               `json:"risk_total"`
	OccurredAt   string            `json:"occurred_at"`
}

// Record is one queued Event plus its outbox bookkeeping.
type Record struct {
	ID     string
	Event  Event
	Status string // "pending" or "done"
}

// Outbox is implemented by every telemetry driver: SQLite for production
// single-node use, and an in-memory driver for tests.
type Outbox interface {
	Enqueue(ctx context.Context, id string, ev Event) error
	Pending(ctx context.Context) ([]Record, error)
	Ack(ctx context.Context, id string) error
}

// SQLiteOutbox persists the outbox in the same database as the skill
// inventory (see pkg/store), so a single file backs both.
type SQLiteOutbox struct {
	db *sql.DB
}

// NewSQLiteOutbox wraps an open database handle and ensures its table
// exists.
func NewSQLiteOutbox(db *sql.DB) (*SQLiteOutbox, error) {
	o := &SQLiteOutbox{db: db}
	if err := o.migrate(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *SQLiteOutbox) migrate() error {
	_, err := o.db.Exec(`
		CREATE TABLE IF NOT EXISTS telemetry_outbox (
			id           TEXT PRIMARY KEY,
			event_json   TEXT NOT NULL,
			enqueued_at  TEXT NOT NULL,
			status       TEXT NOT NULL DEFAULT 'pending'
		);
	`)
	if err != nil {
		return fmt.Errorf("telemetry: migrate: %w", err)
	}
	return nil
}

func (o *SQLiteOutbox) Enqueue(ctx context.Context, id string, ev Event) error {
	blob, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("telemetry: marshal event: %w", err)
	}
	_, err = o.db.ExecContext(ctx, `
		INSERT INTO telemetry_outbox (id, event_json, enqueued_at, status)
		VALUES (?, ?, ?, 'pending')
		ON CONFLICT(id) DO NOTHING
	`, id, string(blob), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("telemetry: enqueue %s: %w", id, err)
	}
	return nil
}

func (o *SQLiteOutbox) Pending(ctx context.Context) ([]Record, error) {
	rows, err := o.db.QueryContext(ctx, `
		SELECT id, event_json, status FROM telemetry_outbox WHERE status = 'pending' ORDER BY enqueued_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("telemetry: query pending: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var id, blob, status string
		if err := rows.Scan(&id, &blob, &status); err != nil {
			return nil, fmt.Errorf("telemetry: scan pending row: %w", err)
		}
		var ev Event
		if err := json.Unmarshal([]byte(blob), &ev); err != nil {
			return nil, fmt.Errorf("telemetry: corrupt event %s: %w", id, err)
		}
		out = append(out, Record{ID: id, Event: ev, Status: status})
	}
	return out, rows.Err()
}

func (o *SQLiteOutbox) Ack(ctx context.Context, id string) error {
	_, err := o.db.ExecContext(ctx, `UPDATE telemetry_outbox SET status = 'done' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("telemetry: ack %s: %w", id, err)
	}
	return nil
}

// MemoryOutbox is an in-process Outbox for tests and single-shot CLI runs
// that don't want a database dependency.
type MemoryOutbox struct {
	records map[string]Record
}

func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{records: make(map[string]Record)}
}

func (m *MemoryOutbox) Enqueue(_ context.Context, id string, ev Event) error {
	if _, exists := m.records[id]; exists {
		return nil
	}
	m.records[id] = Record{ID: id, Event: ev, Status: "pending"}
	return nil
}

func (m *MemoryOutbox) Pending(_ context.Context) ([]Record, error) {
	var out []Record
	for _, r := range m.records {
		if r.Status == "pending" {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryOutbox) Ack(_ context.Context, id string) error {
	if r, ok := m.records[id]; ok {
		r.Status = "done"
		m.records[id] = r
	}
	return nil
}

// Sink delivers a batch of events to wherever telemetry is collected.
type Sink interface {
	Send(ctx context.Context, events []Event) error
}

// Drain pulls every pending record from the outbox, hands the batch to
// sink, and acks each record that was part of a successful send. A failed
// send leaves every record pending for the next Drain call, giving
// at-least-once delivery.
func Drain(ctx context.Context, outbox Outbox, sink Sink) (int, error) {
	pending, err := outbox.Pending(ctx)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	events := make([]Event, len(pending))
	for i, r := range pending {
		events[i] = r.Event
	}
	if err := sink.Send(ctx, events); err != nil {
		return 0, fmt.Errorf("telemetry: drain send: %w", err)
	}

	for _, r := range pending {
		if err := outbox.Ack(ctx, r.ID); err != nil {
			return 0, err
		}
	}
	return len(pending), nil
}
