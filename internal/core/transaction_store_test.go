package core

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bridge-pos-payments/internal/terminal"
)

func newTestStore(t *testing.T) *TransactionStore {
	t.Helper()
	store, err := NewTransactionStore(t.TempDir(), 16, time.Hour, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Failed to close store: %v", err)
		}
	})
	return store
}

func TestTransactionStore_SaveAndLast(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	require.NoError(t, store.SaveTransaction("payment", &terminal.TransactionResult{TransactionCode: "AAA", Amount: "10.00"}))
	require.NoError(t, store.SaveTransaction("payment", &terminal.TransactionResult{TransactionCode: "BBB", Amount: "20.00"}))
	require.NoError(t, store.SaveTransaction("void", &terminal.TransactionResult{TransactionCode: "CCC", Amount: "10.00"}))

	last, err := store.Last("payment")
	require.NoError(t, err)
	assert.Equal(t, "BBB", last.Transaction.TransactionCode)
	assert.NotEmpty(t, last.ID)

	all, err := store.List("", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "CCC", all[0].Transaction.TransactionCode)
	assert.Equal(t, "AAA", all[2].Transaction.TransactionCode)

	limited, err := store.List("", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	got, err := store.Get("AAA")
	require.NoError(t, err)
	assert.Equal(t, "10.00", got.Transaction.Amount)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestTransactionStore_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Last("payment")
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	_, err = store.Get("missing")
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	assert.Error(t, store.SaveTransaction("payment", nil))
}

func TestTransactionStore_CleanupByAge(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	store.now = func() time.Time { return now.Add(-2 * time.Hour) }
	require.NoError(t, store.SaveTransaction("payment", &terminal.TransactionResult{TransactionCode: "OLD"}))
	store.now = func() time.Time { return now }
	require.NoError(t, store.SaveTransaction("payment", &terminal.TransactionResult{TransactionCode: "NEW"}))

	assert.Equal(t, 1, store.cleanupByAge())

	records, err := store.List("", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "NEW", records[0].Transaction.TransactionCode)
}

func TestAuditLogger_Record(t *testing.T) {
	dir := t.TempDir()
	audit := NewAuditLogger(dir, 10, zap.NewNop().Sugar())
	audit.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }

	require.NoError(t, audit.Record(AuditEntry{Operation: "payment", Outcome: OutcomeApproved, Amount: 2000, TransactionCode: "AAA"}))
	require.NoError(t, audit.Record(AuditEntry{Operation: "void", Outcome: OutcomeRejected, Code: terminal.CodeInvalidArgument}))

	file, err := os.Open(filepath.Join(dir, "audit_20260301_10.jsonl"))
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "payment", lines[0]["operation"])
	assert.Equal(t, "AAA", lines[0]["transaction_code"])
	assert.NotEmpty(t, lines[0]["id"])
	assert.Equal(t, terminal.CodeInvalidArgument, lines[1]["code"])

	stats := audit.GetStats()
	assert.Equal(t, int64(10), stats["max_size_mb"])
}
