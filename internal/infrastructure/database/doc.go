// Package database provides SQLite connectivity for the device registry's
// optional persistence store.
//
// The hub keeps its authoritative registry in memory; SQLite only carries
// registrations across restarts. The connection is opened with WAL mode and
// a busy timeout, and the pool is pinned to a single connection because
// SQLite supports one writer.
package database
