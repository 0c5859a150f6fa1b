package core

import (
	"os"
	"path/filepath"
)

// DataDirEnv overrides the data directory search.
const DataDirEnv = "POS_DATA_DIR"

// GetDataDirectory returns the best available data directory, trying production paths first,
// then falling back to user-accessible locations for development/testing
func GetDataDirectory() string {
	if dir := os.Getenv(DataDirEnv); dir != "" {
		if err := os.MkdirAll(dir, 0755); err == nil {
			return dir
		}
	}

	productionPaths := []string{
		"/var/lib/bridge-pos-payments",
		"/usr/local/var/bridge-pos-payments",
	}

	for _, path := range productionPaths {
		if writable(path) {
			return path
		}
	}

	fallbackPaths := []string{
		filepath.Join(os.TempDir(), "bridge-pos-payments"),
		"./data",
	}

	for _, path := range fallbackPaths {
		if err := os.MkdirAll(path, 0755); err == nil {
			return path
		}
	}

	return "."
}

// TransactionsDir and AuditDir are the subdirectories for the transaction store and
// the audit trail.
func TransactionsDir(base string) string {
	return filepath.Join(base, "transactions")
}

func AuditDir(base string) string {
	return filepath.Join(base, "audit")
}

func writable(path string) bool {
	if err := os.MkdirAll(path, 0755); err != nil {
		return false
	}
	testFile := filepath.Join(path, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		return false
	}
	_ = file.Close()
	_ = os.Remove(testFile)
	return true
}
