package receipts

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FileLedger persists receipts as one canonical JSON record per line in an
// append-only file. It assumes a single writer; callers serialize access.
type FileLedger struct {
	path string
	tail string
}

// NewFileLedger opens or creates a file ledger at path and recovers the tail
// hash from the last well-formed record. A missing file or an unreadable
// tail starts a fresh chain; tampering is surfaced later by verification,
// not at open time.
func NewFileLedger(path string) (*FileLedger, error) {
	l := &FileLedger{path: path, tail: GenesisHash}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	defer f.Close()

	var last []byte
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		last = append(last[:0], sc.Bytes()...)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan ledger %s: %w", path, err)
	}
	if len(last) > 0 {
		var ev Event
		if err := json.Unmarshal(last, &ev); err == nil && ev.ReceiptHash != "" {
			l.tail = ev.ReceiptHash
		}
	}
	return l, nil
}

// Append validates the receipt against the chain tail and writes its
// canonical record. Nothing is written when validation fails.
func (l *FileLedger) Append(_ context.Context, ev Event) error {
	if err := validateAppend(ev, l.tail); err != nil {
		return err
	}
	record, err := ev.Canonical()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger %s: %w", l.path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(record, '\n')); err != nil {
		return fmt.Errorf("append ledger %s: %w", l.path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync ledger %s: %w", l.path, err)
	}
	l.tail = ev.ReceiptHash
	return nil
}

// ReadAll returns every record in the file in append order.
func (l *FileLedger) ReadAll(_ context.Context) ([]Event, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ledger %s: %w", l.path, err)
	}
	defer f.Close()

	var events []Event
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, fmt.Errorf("decode ledger record %d: %w", len(events), err)
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan ledger %s: %w", l.path, err)
	}
	return events, nil
}

// TailHash returns the hash the next receipt must chain to.
func (l *FileLedger) TailHash() string { return l.tail }
