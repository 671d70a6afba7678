package registry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRegister_AndLookup(t *testing.T) {
	r := New(nil)
	ctx := context.Background()

	err := r.Register(ctx, Registration{DeviceType: "SENSOR", Address: "10.0.0.5", Link: "udp"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	reg, ok := r.Lookup("10.0.0.5")
	if !ok {
		t.Fatal("Lookup() did not find registered device")
	}
	if reg.DeviceType != "SENSOR" {
		t.Errorf("DeviceType = %q, want %q", reg.DeviceType, "SENSOR")
	}
	if reg.Link != "udp" {
		t.Errorf("Link = %q, want %q", reg.Link, "udp")
	}
	if reg.RegisteredAt.IsZero() {
		t.Error("RegisteredAt not defaulted")
	}
}

func TestRegister_UpsertNotDuplicate(t *testing.T) {
	r := New(nil)
	ctx := context.Background()

	if err := r.Register(ctx, Registration{DeviceType: "SENSOR", Address: "10.0.0.5"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(ctx, Registration{DeviceType: "ACTUATOR", Address: "10.0.0.5"}); err != nil {
		t.Fatalf("second Register() error = %v", err)
	}

	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1 (upsert, not append)", r.Count())
	}

	reg, _ := r.Lookup("10.0.0.5")
	if reg.DeviceType != "ACTUATOR" {
		t.Errorf("DeviceType = %q, want overwrite to %q", reg.DeviceType, "ACTUATOR")
	}
}

func TestRegister_RejectsEmptyFields(t *testing.T) {
	r := New(nil)
	ctx := context.Background()

	tests := []Registration{
		{DeviceType: "", Address: "10.0.0.5"},
		{DeviceType: "SENSOR", Address: ""},
	}

	for _, reg := range tests {
		if err := r.Register(ctx, reg); !errors.Is(err, ErrBadRegistration) {
			t.Errorf("Register(%+v) error = %v, want ErrBadRegistration", reg, err)
		}
	}
	if r.Count() != 0 {
		t.Errorf("Count() = %d after rejected registrations, want 0", r.Count())
	}
}

func TestLookup_Missing(t *testing.T) {
	r := New(nil)
	if _, ok := r.Lookup("10.0.0.99"); ok {
		t.Error("Lookup() found an entry in an empty registry")
	}
}

func TestSnapshot(t *testing.T) {
	r := New(nil)
	ctx := context.Background()

	devices := map[string]string{
		"10.0.0.5": "SENSOR",
		"10.0.0.6": "ACTUATOR",
		"node-7":   "RELAY",
	}
	for addr, typ := range devices {
		if err := r.Register(ctx, Registration{DeviceType: typ, Address: addr}); err != nil {
			t.Fatalf("Register(%s) error = %v", addr, err)
		}
	}

	snap := r.Snapshot()
	if len(snap) != len(devices) {
		t.Fatalf("Snapshot() returned %d entries, want %d", len(snap), len(devices))
	}
	for _, reg := range snap {
		if devices[reg.Address] != reg.DeviceType {
			t.Errorf("Snapshot entry %s = %q, want %q", reg.Address, reg.DeviceType, devices[reg.Address])
		}
	}
}

// fakeStore records upserts and serves a canned load result.
type fakeStore struct {
	loaded   []Registration
	upserts  []Registration
	loadErr  error
	upsertFn func(Registration) error
}

func (s *fakeStore) Load(context.Context) ([]Registration, error) {
	return s.loaded, s.loadErr
}

func (s *fakeStore) Upsert(_ context.Context, reg Registration) error {
	if s.upsertFn != nil {
		if err := s.upsertFn(reg); err != nil {
			return err
		}
	}
	s.upserts = append(s.upserts, reg)
	return nil
}

func TestLoad_PopulatesFromStore(t *testing.T) {
	store := &fakeStore{
		loaded: []Registration{
			{DeviceType: "SENSOR", Address: "10.0.0.5", RegisteredAt: time.Now()},
			{DeviceType: "RELAY", Address: "node-7", RegisteredAt: time.Now()},
		},
	}
	r := New(store)

	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if r.Count() != 2 {
		t.Errorf("Count() = %d, want 2", r.Count())
	}
	if _, ok := r.Lookup("node-7"); !ok {
		t.Error("Lookup(node-7) missing after Load()")
	}
}

func TestLoad_StoreError(t *testing.T) {
	store := &fakeStore{loadErr: errors.New("disk gone")}
	r := New(store)

	if err := r.Load(context.Background()); err == nil {
		t.Error("Load() error = nil, want store error")
	}
}

func TestRegister_WritesThroughToStore(t *testing.T) {
	store := &fakeStore{}
	r := New(store)

	reg := Registration{DeviceType: "SENSOR", Address: "10.0.0.5"}
	if err := r.Register(context.Background(), reg); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if len(store.upserts) != 1 {
		t.Fatalf("store received %d upserts, want 1", len(store.upserts))
	}
	if store.upserts[0].Address != "10.0.0.5" {
		t.Errorf("upserted address = %q, want %q", store.upserts[0].Address, "10.0.0.5")
	}
}

func TestRegister_StoreFailureLeavesMemoryUnchanged(t *testing.T) {
	store := &fakeStore{upsertFn: func(Registration) error { return errors.New("locked") }}
	r := New(store)

	err := r.Register(context.Background(), Registration{DeviceType: "SENSOR", Address: "10.0.0.5"})
	if err == nil {
		t.Fatal("Register() error = nil, want store error")
	}
	if r.Count() != 0 {
		t.Errorf("Count() = %d after failed persist, want 0", r.Count())
	}
}
