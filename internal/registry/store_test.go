package registry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/khanda-io/khanda-hub/internal/infrastructure/database"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "khanda.db"),
		WALMode:     true,
		BusyTimeout: 1,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLiteStore(context.Background(), db.DB)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	return store
}

func TestSQLiteStore_UpsertAndLoad(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	reg := Registration{
		DeviceType:   "SENSOR",
		Address:      "10.0.0.5",
		Link:         "udp",
		RegisteredAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := store.Upsert(ctx, reg); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	regs, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(regs) != 1 {
		t.Fatalf("Load() returned %d registrations, want 1", len(regs))
	}
	if regs[0] != reg {
		t.Errorf("Load() = %+v, want %+v", regs[0], reg)
	}
}

func TestSQLiteStore_UpsertReplacesByAddress(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := Registration{
		DeviceType:   "SENSOR",
		Address:      "10.0.0.5",
		Link:         "udp",
		RegisteredAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	second := Registration{
		DeviceType:   "ACTUATOR",
		Address:      "10.0.0.5",
		Link:         "/dev/ttyUSB0",
		RegisteredAt: time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC),
	}

	if err := store.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert(first) error = %v", err)
	}
	if err := store.Upsert(ctx, second); err != nil {
		t.Fatalf("Upsert(second) error = %v", err)
	}

	regs, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(regs) != 1 {
		t.Fatalf("Load() returned %d registrations, want 1 (upsert)", len(regs))
	}
	if regs[0].DeviceType != "ACTUATOR" || regs[0].Link != "/dev/ttyUSB0" {
		t.Errorf("Load() = %+v, want replacement entry", regs[0])
	}
}

func TestSQLiteStore_LoadEmpty(t *testing.T) {
	store := openTestStore(t)

	regs, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(regs) != 0 {
		t.Errorf("Load() on empty store = %d entries, want 0", len(regs))
	}
}
