package transport

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Port is the minimal surface the hub needs from a serial device.
// go.bug.st/serial ports satisfy it; tests substitute in-memory fakes.
type Port interface {
	io.ReadWriteCloser

	// SetReadTimeout bounds the next Read. A Read that elapses without
	// data returns n == 0 with a nil error.
	SetReadTimeout(t time.Duration) error
}

// OpenPort opens a raw serial port at the given baud rate (8N1).
//
// Used both for slave device links (via OpenSerial) and for the dedicated
// power instrument connection.
func OpenPort(path string, baud int) (Port, error) {
	port, err := serial.Open(path, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenFailed, path, err)
	}
	return port, nil
}

// SerialLink is one point-to-point serial connection to a slave device.
//
// Access discipline: the serial ingress worker is the only reader, the
// egress worker the only concurrent writer. Writes are serialized by a
// per-link mutex so partial lines never interleave.
type SerialLink struct {
	path string
	port Port

	writeMu sync.Mutex

	mu       sync.RWMutex
	degraded bool
	closed   bool
}

// OpenSerial opens a serial link to a slave device.
//
// Open failures are not fatal to the router; callers log them and carry on.
//
// Parameters:
//   - path: Serial device path (e.g. "/dev/ttyUSB0")
//   - baud: Baud rate (the config default is 9600)
//
// Returns:
//   - *SerialLink: Open link ready for the transport set
//   - error: ErrOpenFailed on any open error
func OpenSerial(path string, baud int) (*SerialLink, error) {
	port, err := OpenPort(path, baud)
	if err != nil {
		return nil, err
	}
	return NewSerialLink(path, port), nil
}

// NewSerialLink wraps an already-open port. Exposed for tests and for
// callers that open ports themselves.
func NewSerialLink(path string, port Port) *SerialLink {
	return &SerialLink{
		path: path,
		port: port,
	}
}

// Path returns the device path the link was opened on.
func (l *SerialLink) Path() string {
	return l.path
}

// ReadChunk reads up to len(buf) bytes, waiting at most timeout.
//
// Returns ErrTimeout when the window elapses without data, so the ingress
// worker can re-check cancellation instead of blocking indefinitely.
func (l *SerialLink) ReadChunk(buf []byte, timeout time.Duration) (int, error) {
	l.mu.RLock()
	closed := l.closed
	l.mu.RUnlock()
	if closed {
		return 0, ErrClosed
	}

	if err := l.port.SetReadTimeout(timeout); err != nil {
		return 0, fmt.Errorf("setting read timeout on %s: %w", l.path, err)
	}

	n, err := l.port.Read(buf)
	if err != nil {
		if err == io.EOF {
			return 0, ErrClosed
		}
		return n, fmt.Errorf("reading %s: %w", l.path, err)
	}
	if n == 0 {
		// go.bug.st/serial signals an elapsed timeout as (0, nil).
		return 0, ErrTimeout
	}
	return n, nil
}

// WriteFrame writes an encoded message as one newline-terminated line.
// Concurrent callers are serialized per link.
func (l *SerialLink) WriteFrame(data []byte) error {
	l.mu.RLock()
	closed, degraded := l.closed, l.degraded
	l.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if degraded {
		return ErrPortDegraded
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	frame := data
	if len(frame) == 0 || frame[len(frame)-1] != '\n' {
		frame = append(append([]byte{}, data...), '\n')
	}

	if _, err := l.port.Write(frame); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, l.path, err)
	}
	return nil
}

// MarkDegraded flags the link after a transport-level read failure.
// Degraded links are skipped by ingestion but not torn down; an operator
// can detach and re-attach the device.
func (l *SerialLink) MarkDegraded() {
	l.mu.Lock()
	l.degraded = true
	l.mu.Unlock()
}

// Degraded reports whether the link has been marked degraded.
func (l *SerialLink) Degraded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.degraded
}

// Close releases the underlying port. Safe to call more than once.
func (l *SerialLink) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	if err := l.port.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", l.path, err)
	}
	return nil
}
