package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditEntry describes one payment operation outcome. It never carries card data.
type AuditEntry struct {
	Operation       string `json:"operation"`
	Outcome         string `json:"outcome"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	Amount          int64  `json:"amount,omitempty"`
	UserReference   string `json:"user_reference,omitempty"`
	TransactionCode string `json:"transaction_code,omitempty"`
	SerialNumber    string `json:"serial_number,omitempty"`
}

// Audit outcomes.
const (
	OutcomeApproved = "approved"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
	OutcomeAborted  = "abort_requested"
)

// AuditLogger appends operation outcomes to hourly JSONL files and rotates them by size.
type AuditLogger struct {
	logDir    string
	maxSizeMB int64
	mutex     sync.Mutex
	logger    *zap.SugaredLogger
	now       func() time.Time
}

func NewAuditLogger(logDir string, maxSizeMB int64, logger *zap.SugaredLogger) *AuditLogger {
	_ = os.MkdirAll(logDir, 0o755)
	return &AuditLogger{
		logDir:    logDir,
		maxSizeMB: maxSizeMB,
		logger:    logger,
		now:       time.Now,
	}
}

func (a *AuditLogger) Record(entry AuditEntry) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	line := struct {
		ID        string `json:"id"`
		Timestamp string `json:"timestamp"`
		AuditEntry
	}{
		ID:         uuid.NewString(),
		Timestamp:  a.now().UTC().Format(time.RFC3339Nano),
		AuditEntry: entry,
	}

	entryBytes, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	entryBytes = append(entryBytes, '\n')

	filename := a.currentLogFile()
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer func() { _ = file.Close() }()

	if _, err = file.Write(entryBytes); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}

	if err := a.checkRotation(filename); err != nil {
		a.logger.Errorf("Audit rotation error: %v", err)
	}

	return nil
}

func (a *AuditLogger) currentLogFile() string {
	return filepath.Join(a.logDir, fmt.Sprintf("audit_%s.jsonl", a.now().Format("20060102_15")))
}

func (a *AuditLogger) checkRotation(filename string) error {
	if a.maxSizeMB <= 0 {
		return nil
	}
	stat, err := os.Stat(filename)
	if err != nil {
		return err
	}

	if stat.Size()/(1024*1024) >= a.maxSizeMB {
		rotatedFile := fmt.Sprintf("%s.rotated_%s", filename, a.now().Format("20060102_150405"))
		if err := os.Rename(filename, rotatedFile); err != nil {
			return fmt.Errorf("failed to rotate log file: %w", err)
		}
		a.logger.Infof("Rotated audit log: %s -> %s", filename, rotatedFile)
	}
	return nil
}

func (a *AuditLogger) GetStats() map[string]interface{} {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	currentFile := a.currentLogFile()
	var currentSize int64
	if stat, err := os.Stat(currentFile); err == nil {
		currentSize = stat.Size()
	}

	return map[string]interface{}{
		"current_file":    currentFile,
		"current_size_kb": currentSize / 1024,
		"max_size_mb":     a.maxSizeMB,
	}
}
