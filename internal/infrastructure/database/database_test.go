package database

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesFileAndDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "khanda.db")

	db, err := Open(Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if db.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
	}

	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(Config{Path: "/proc/invalid/khanda.db", BusyTimeout: 1})
	if err == nil {
		t.Error("Open() expected error for unwritable path, got nil")
	}
}

func TestClose_Idempotent(t *testing.T) {
	tmpDir := t.TempDir()
	db, err := Open(Config{Path: filepath.Join(tmpDir, "khanda.db"), BusyTimeout: 1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// database/sql tolerates closing twice.
	if err := db.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}
