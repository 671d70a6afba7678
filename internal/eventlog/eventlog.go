package eventlog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// filePermissions is the permission mode for the log file.
const filePermissions = 0600

// dirPermissions is the permission mode for the log directory.
const dirPermissions = 0750

// Record is one event-log entry.
type Record struct {
	Type      string
	Payload   string
	Timestamp string
}

// Sink is the append-only interface the dispatch worker writes through.
// The file implementation is the default; tests substitute in-memory sinks.
type Sink interface {
	Append(rec Record) error
	Flush() error
	Close() error
}

// Logfile is the file-backed Sink. Records are buffered and written in the
// fixed text form the downstream tooling parses:
//
//	type,payload,timestamp\r\n
//
// Thread Safety:
//   - All methods are safe for concurrent use, though in practice only the
//     dispatch worker appends and only the router closes.
type Logfile struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	closed bool
}

// Open opens (or creates) the log file in append mode.
//
// Parameters:
//   - path: Log file location; the directory is created if missing
//
// Returns:
//   - *Logfile: Sink ready for appends
//   - error: If the directory or file cannot be created
func Open(path string) (*Logfile, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating event log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePermissions)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}

	return &Logfile{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// Append writes one record.
func (l *Logfile) Append(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}

	if _, err := fmt.Fprintf(l.writer, "%s,%s,%s\r\n", rec.Type, rec.Payload, rec.Timestamp); err != nil {
		return fmt.Errorf("appending event record: %w", err)
	}
	return nil
}

// Flush forces buffered records to disk.
func (l *Logfile) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	if err := l.writer.Flush(); err != nil {
		return fmt.Errorf("flushing event log: %w", err)
	}
	return nil
}

// Close flushes and closes the file. Safe to call more than once.
func (l *Logfile) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	flushErr := l.writer.Flush()
	closeErr := l.file.Close()
	if flushErr != nil {
		return fmt.Errorf("flushing event log on close: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing event log: %w", closeErr)
	}
	return nil
}
