package registry

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registration is one device's current registry entry.
type Registration struct {
	// DeviceType is the self-reported device class (e.g. "SENSOR").
	DeviceType string

	// Address is the device's reply address: a unicast IP for UDP devices
	// or a logical identifier for serial-attached ones. The registry key.
	Address string

	// Link is the transport the registration arrived on: "udp" or the
	// serial device path. Used for per-device serial egress routing.
	Link string

	// RegisteredAt is when the hub last saw a DEVICE packet for Address.
	RegisteredAt time.Time
}

// Registry is the address→deviceType mapping built from DEVICE packets.
//
// Write discipline: the dispatch worker is the sole writer. Reads come from
// the egress worker (serial routing) and diagnostics, so the map is guarded
// by an RWMutex rather than relying on the single-writer property alone.
//
// An address holds at most one current entry; re-registration overwrites
// (upsert), it never accumulates.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Registration

	store  Store
	logger Logger
}

// New creates an in-memory registry. A nil store disables persistence.
func New(store Store) *Registry {
	return &Registry{
		entries: make(map[string]Registration),
		store:   store,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Load populates the registry from the persistence store.
// Call once at startup, before the router begins dispatching. A registry
// without a store loads nothing and returns nil.
func (r *Registry) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	regs, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading registrations: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make(map[string]Registration, len(regs))
	for _, reg := range regs {
		r.entries[reg.Address] = reg
	}

	r.logger.Info("device registry loaded", "count", len(regs))
	return nil
}

// Register upserts the entry for reg.Address.
//
// A repeated registration for the same address overwrites the previous
// entry, whatever its device type; the registry never holds history.
// When persistence is enabled the upsert is written through before the
// in-memory map changes, so a store failure leaves both sides consistent.
func (r *Registry) Register(ctx context.Context, reg Registration) error {
	if reg.Address == "" || reg.DeviceType == "" {
		return fmt.Errorf("%w: type=%q address=%q", ErrBadRegistration, reg.DeviceType, reg.Address)
	}
	if reg.RegisteredAt.IsZero() {
		reg.RegisteredAt = time.Now().UTC()
	}

	if r.store != nil {
		if err := r.store.Upsert(ctx, reg); err != nil {
			return fmt.Errorf("persisting registration for %s: %w", reg.Address, err)
		}
	}

	r.mu.Lock()
	previous, existed := r.entries[reg.Address]
	r.entries[reg.Address] = reg
	r.mu.Unlock()

	if existed && previous.DeviceType != reg.DeviceType {
		r.logger.Debug("device re-registered with new type",
			"address", reg.Address,
			"old_type", previous.DeviceType,
			"new_type", reg.DeviceType,
		)
	} else {
		r.logger.Info("device registered",
			"address", reg.Address,
			"type", reg.DeviceType,
			"link", reg.Link,
		)
	}
	return nil
}

// Lookup returns the current entry for address.
func (r *Registry) Lookup(address string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.entries[address]
	return reg, ok
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Snapshot returns a copy of every current registration.
func (r *Registry) Snapshot() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	regs := make([]Registration, 0, len(r.entries))
	for _, reg := range r.entries {
		regs = append(regs, reg)
	}
	return regs
}
