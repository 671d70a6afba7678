package registry

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Store defines the persistence interface for device registrations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Store interface {
	// Load retrieves all persisted registrations.
	Load(ctx context.Context) ([]Registration, error)

	// Upsert inserts or replaces the registration for reg.Address.
	Upsert(ctx context.Context, reg Registration) error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite-backed store and ensures its schema.
// The db parameter should be an open SQLite connection.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	schema := `
		CREATE TABLE IF NOT EXISTS registrations (
			address       TEXT PRIMARY KEY,
			device_type   TEXT NOT NULL,
			link          TEXT NOT NULL DEFAULT '',
			registered_at TEXT NOT NULL
		)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("creating registrations table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Load retrieves all persisted registrations.
func (s *SQLiteStore) Load(ctx context.Context) ([]Registration, error) {
	query := `
		SELECT address, device_type, link, registered_at
		FROM registrations
		ORDER BY address`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying registrations: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows

	var regs []Registration
	for rows.Next() {
		var reg Registration
		var registeredAt string
		if err := rows.Scan(&reg.Address, &reg.DeviceType, &reg.Link, &registeredAt); err != nil {
			return nil, fmt.Errorf("scanning registration: %w", err)
		}
		ts, err := time.Parse(time.RFC3339, registeredAt)
		if err != nil {
			return nil, fmt.Errorf("parsing registered_at for %s: %w", reg.Address, err)
		}
		reg.RegisteredAt = ts
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating registrations: %w", err)
	}
	return regs, nil
}

// Upsert inserts or replaces the registration for reg.Address.
func (s *SQLiteStore) Upsert(ctx context.Context, reg Registration) error {
	query := `
		INSERT INTO registrations (address, device_type, link, registered_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			device_type   = excluded.device_type,
			link          = excluded.link,
			registered_at = excluded.registered_at`

	_, err := s.db.ExecContext(ctx, query,
		reg.Address,
		reg.DeviceType,
		reg.Link,
		reg.RegisteredAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting registration for %s: %w", reg.Address, err)
	}
	return nil
}
