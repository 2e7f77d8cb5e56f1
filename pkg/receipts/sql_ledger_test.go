package receipts

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLLedgerSQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipts.db")
	ctx := context.Background()

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	ledger, err := NewSQLLedger(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, GenesisHash, ledger.TailHash())

	_, events := mintChain(t, 2)
	for _, ev := range events {
		require.NoError(t, ledger.Append(ctx, ev))
	}
	assert.Equal(t, events[1].ReceiptHash, ledger.TailHash())

	// A fresh ledger over the same database resumes the chain.
	reopened, err := NewSQLLedger(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, events[1].ReceiptHash, reopened.TailHash())

	stored, err := reopened.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for i, ev := range stored {
		assert.Equal(t, events[i].EventID, ev.EventID)
		assert.NoError(t, ev.Verify())
	}
}

func TestSQLLedgerAppendStatements(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS receipts").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT seq, receipt_hash FROM receipts").
		WillReturnError(sql.ErrNoRows)

	ledger, err := NewSQLLedger(ctx, db)
	require.NoError(t, err)

	_, events := mintChain(t, 1)
	ev := events[0]

	mock.ExpectExec("INSERT INTO receipts").
		WithArgs(int64(1), ev.EventID, ev.OpName, string(ev.Status),
			ev.ReceiptHash, ev.PrevReceiptHash, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, ledger.Append(ctx, ev))
	assert.Equal(t, ev.ReceiptHash, ledger.TailHash())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLedgerChainBreakWritesNothing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS receipts").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT seq, receipt_hash FROM receipts").
		WillReturnRows(sqlmock.NewRows([]string{"seq", "receipt_hash"}).
			AddRow(int64(4), "tailhash"))

	ledger, err := NewSQLLedger(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, "tailhash", ledger.TailHash())

	_, events := mintChain(t, 1)
	assert.ErrorIs(t, ledger.Append(ctx, events[0]), ErrChainBroken)

	// No INSERT was expected; a write would fail expectations.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLedgerRecoversTailAfterRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS receipts").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT seq, receipt_hash FROM receipts").
		WillReturnRows(sqlmock.NewRows([]string{"seq", "receipt_hash"}).
			AddRow(int64(7), "abc123"))

	ledger, err := NewSQLLedger(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, "abc123", ledger.TailHash())
	assert.NoError(t, mock.ExpectationsWereMet())
}
