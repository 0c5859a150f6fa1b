package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"bridge-pos-payments/internal/terminal"
)

// DefaultRetention is how long approved transactions are kept for lookup and reprint.
const DefaultRetention = 30 * 24 * time.Hour

const transactionPrefix = "txn_"

// ErrTransactionNotFound is returned by lookups that match nothing.
var ErrTransactionNotFound = errors.New("transaction not found")

// TransactionRecord is an approved terminal result as the bridge stored it.
type TransactionRecord struct {
	ID          string                      `json:"id"`
	Operation   string                      `json:"operation"`
	Transaction *terminal.TransactionResult `json:"transaction"`
	CreatedAt   time.Time                   `json:"created_at"`
}

// TransactionStore keeps the history of approved payments and voids.
type TransactionStore struct {
	db        *badger.DB
	maxSize   int64
	retention time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *zap.SugaredLogger
	now       func() time.Time
}

func NewTransactionStore(dir string, maxSizeMB int, retention time.Duration, logger *zap.SugaredLogger) (*TransactionStore, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}

	if err := cleanupStaleLock(dir, logger); err != nil {
		logger.Warnf("Failed to cleanup potential stale lock: %v", err)
	}

	opts := badger.DefaultOptions(dir).
		WithValueLogFileSize(1 << 20).
		WithMemTableSize(8 << 20).
		WithNumMemtables(2).
		WithNumCompactors(2).
		WithSyncWrites(true).
		WithBlockCacheSize(8 << 20).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	store := &TransactionStore{
		db:        db,
		maxSize:   int64(maxSizeMB) * 1024 * 1024,
		retention: retention,
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
		now:       time.Now,
	}

	go store.maintenanceWorker()

	return store, nil
}

// SaveTransaction stores an approved result under a time-ordered key.
// Format: "txn_<unix nanos>_<transaction code>"
func (s *TransactionStore) SaveTransaction(operation string, tx *terminal.TransactionResult) error {
	if tx == nil {
		return fmt.Errorf("nil transaction")
	}

	rec := TransactionRecord{
		ID:          uuid.NewString(),
		Operation:   operation,
		Transaction: tx,
		CreatedAt:   s.now().UTC(),
	}
	key := fmt.Sprintf("%s%020d_%s", transactionPrefix, rec.CreatedAt.UnixNano(), tx.TransactionCode)

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store transaction: %w", err)
	}

	s.logger.Debugf("Stored %s transaction %s", operation, tx.TransactionCode)
	return nil
}

// List returns up to limit records, newest first. An empty operation matches all.
func (s *TransactionStore) List(operation string, limit int) ([]TransactionRecord, error) {
	var records []TransactionRecord

	err := s.db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.Reverse = true
		it := txn.NewIterator(itOpts)
		defer it.Close()

		prefix := []byte(transactionPrefix)
		// Reverse iteration seeks from just past the prefix range.
		for it.Seek(append(append([]byte{}, prefix...), 0xFF)); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}

			var rec TransactionRecord
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
				s.logger.Warnf("Skipping unreadable transaction record %s: %v", it.Item().Key(), err)
				continue
			}
			if operation != "" && rec.Operation != operation {
				continue
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Last returns the newest record of the given operation.
func (s *TransactionStore) Last(operation string) (*TransactionRecord, error) {
	records, err := s.List(operation, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrTransactionNotFound
	}
	return &records[0], nil
}

// Get finds a record by transaction code.
func (s *TransactionStore) Get(transactionCode string) (*TransactionRecord, error) {
	var found *TransactionRecord
	suffix := "_" + transactionCode

	err := s.db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.PrefetchValues = false
		it := txn.NewIterator(itOpts)
		defer it.Close()

		prefix := []byte(transactionPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			if len(key) < len(suffix) || key[len(key)-len(suffix):] != suffix {
				continue
			}
			var rec TransactionRecord
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
				return err
			}
			found = &rec
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrTransactionNotFound
	}
	return found, nil
}

// Count returns the number of stored records.
func (s *TransactionStore) Count() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.PrefetchValues = false
		it := txn.NewIterator(itOpts)
		defer it.Close()

		prefix := []byte(transactionPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func (s *TransactionStore) maintenanceWorker() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runMaintenance()
		}
	}
}

func (s *TransactionStore) runMaintenance() {
	s.cleanupByAge()
	s.warnOnSize()

	if err := s.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		s.logger.Errorf("Transaction store value log GC failed: %v", err)
	}
}

// cleanupByAge drops records older than the retention period. Keys are time-ordered, so
// the scan stops at the first record that is still fresh.
func (s *TransactionStore) cleanupByAge() int {
	cutoff := s.now().Add(-s.retention)
	var keysToDelete [][]byte

	if err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(transactionPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec TransactionRecord
			if it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &rec) }) != nil {
				continue
			}
			if !rec.CreatedAt.Before(cutoff) {
				break
			}
			keysToDelete = append(keysToDelete, it.Item().KeyCopy(nil))
		}
		return nil
	}); err != nil {
		s.logger.Errorf("Age cleanup scan failed: %v", err)
		return 0
	}

	if len(keysToDelete) == 0 {
		return 0
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keysToDelete {
			if err := txn.Delete(key); err != nil {
				s.logger.Errorf("Failed to delete key: %v", err)
			}
		}
		return nil
	}); err != nil {
		s.logger.Errorf("Age cleanup delete failed: %v", err)
		return 0
	}

	s.logger.Infof("Cleaned up %d transactions older than %v", len(keysToDelete), s.retention)
	return len(keysToDelete)
}

func (s *TransactionStore) warnOnSize() {
	if s.maxSize <= 0 {
		return
	}
	lsm, vlog := s.db.Size()
	if current := lsm + vlog; current > s.maxSize*80/100 {
		s.logger.Warnf("Transaction store at %d MB of %d MB", current/1024/1024, s.maxSize/1024/1024)
	}
}

func (s *TransactionStore) Close() error {
	s.cancel()
	return s.db.Close()
}

// cleanupStaleLock removes a badger LOCK file left behind by a killed process. Only one
// bridge instance runs per data directory.
func cleanupStaleLock(dir string, logger *zap.SugaredLogger) error {
	lockFile := filepath.Join(dir, "LOCK")

	if _, err := os.Stat(lockFile); os.IsNotExist(err) {
		return nil
	}

	logger.Infof("Found potential stale lock file, attempting cleanup: %s", lockFile)
	if err := os.Remove(lockFile); err != nil {
		return fmt.Errorf("failed to remove stale lock file: %w", err)
	}
	return nil
}
