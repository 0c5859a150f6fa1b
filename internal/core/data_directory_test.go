package core

import (
	"path/filepath"
	"testing"
)

func TestGetDataDirectory(t *testing.T) {
	dir := GetDataDirectory()

	if dir == "" {
		t.Error("Expected non-empty data directory")
	}
}

func TestGetDataDirectory_EnvOverride(t *testing.T) {
	want := filepath.Join(t.TempDir(), "pos")
	t.Setenv(DataDirEnv, want)

	if got := GetDataDirectory(); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestSubdirectories(t *testing.T) {
	if got := TransactionsDir("/base"); got != filepath.Join("/base", "transactions") {
		t.Errorf("unexpected transactions dir %s", got)
	}
	if got := AuditDir("/base"); got != filepath.Join("/base", "audit") {
		t.Errorf("unexpected audit dir %s", got)
	}
}
