package receipts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

const receiptsSchema = `
CREATE TABLE IF NOT EXISTS receipts (
	seq               BIGINT PRIMARY KEY,
	event_id          TEXT NOT NULL,
	op_name           TEXT NOT NULL,
	status            TEXT NOT NULL,
	receipt_hash      TEXT NOT NULL,
	prev_receipt_hash TEXT NOT NULL,
	record            TEXT NOT NULL
)`

// SQLLedger persists receipts in a relational table, one canonical record
// per row. Placeholders and schema are kept to the portable subset accepted
// by both SQLite and PostgreSQL drivers. Like FileLedger it assumes a single
// writer.
type SQLLedger struct {
	db   *sql.DB
	seq  int64
	tail string
}

// NewSQLLedger migrates the receipts table and recovers the chain tail from
// the highest-sequence row.
func NewSQLLedger(ctx context.Context, db *sql.DB) (*SQLLedger, error) {
	if _, err := db.ExecContext(ctx, receiptsSchema); err != nil {
		return nil, fmt.Errorf("migrate receipts table: %w", err)
	}

	l := &SQLLedger{db: db, tail: GenesisHash}
	row := db.QueryRowContext(ctx,
		`SELECT seq, receipt_hash FROM receipts ORDER BY seq DESC LIMIT 1`)
	var seq int64
	var hash string
	switch err := row.Scan(&seq, &hash); {
	case err == nil:
		l.seq = seq
		l.tail = hash
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, fmt.Errorf("read receipts tail: %w", err)
	}
	return l, nil
}

// Append validates the receipt against the chain tail and inserts its
// canonical record. Nothing is written when validation fails.
func (l *SQLLedger) Append(ctx context.Context, ev Event) error {
	if err := validateAppend(ev, l.tail); err != nil {
		return err
	}
	record, err := ev.Canonical()
	if err != nil {
		return err
	}

	_, err = l.db.ExecContext(ctx,
		`INSERT INTO receipts (seq, event_id, op_name, status, receipt_hash, prev_receipt_hash, record)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		l.seq+1, ev.EventID, ev.OpName, string(ev.Status),
		ev.ReceiptHash, ev.PrevReceiptHash, string(record))
	if err != nil {
		return fmt.Errorf("insert receipt %s: %w", ev.EventID, err)
	}
	l.seq++
	l.tail = ev.ReceiptHash
	return nil
}

// ReadAll returns every stored receipt in sequence order.
func (l *SQLLedger) ReadAll(ctx context.Context) ([]Event, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT record FROM receipts ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("scan receipt row: %w", err)
		}
		var ev Event
		if err := json.Unmarshal([]byte(record), &ev); err != nil {
			return nil, fmt.Errorf("decode receipt row %d: %w", len(events), err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receipts: %w", err)
	}
	return events, nil
}

// TailHash returns the hash the next receipt must chain to.
func (l *SQLLedger) TailHash() string { return l.tail }
