package psu

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"
)

// commandPacing is the minimum gap between commands. The TP3005P drops
// or garbles commands sent faster than this.
const commandPacing = 50 * time.Millisecond

// Conn is the byte stream to the instrument. The serial transport
// satisfies it; tests substitute in-memory fakes.
type Conn interface {
	io.ReadWriter
	Close() error
}

// Device is a TP3005P power supply attached over a serial line.
//
// All commands are serialized through an internal mutex and paced at
// commandPacing, so a Device is safe for concurrent use. Queries block
// until the instrument answers or the underlying connection errors.
type Device struct {
	mu       sync.Mutex
	conn     Conn
	reader   *bufio.Reader
	lastSend time.Time
}

// Attach wraps an open connection as a Device.
//
// Parameters:
//   - conn: Open byte stream to the instrument
//
// Returns:
//   - *Device: Ready for commands
func Attach(conn Conn) *Device {
	return &Device{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
}

// Detach closes the underlying connection. The Device is unusable
// afterwards; further commands return ErrNotAttached.
func (d *Device) Detach() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return ErrNotAttached
	}

	err := d.conn.Close()
	d.conn = nil
	d.reader = nil
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCloseFailed, err)
	}
	return nil
}

// SetOutput enables or disables the output stage.
func (d *Device) SetOutput(on bool) error {
	cmd := "OUTPUT0"
	if on {
		cmd = "OUTPUT1:"
	}
	return d.send(cmd)
}

// SetVoltageSetpoint programs the voltage setpoint in volts.
func (d *Device) SetVoltageSetpoint(volts float64) error {
	return d.send(fmt.Sprintf("VSET1:%05.2f", volts))
}

// GetVoltageSetpoint reads back the programmed voltage setpoint.
func (d *Device) GetVoltageSetpoint() (float64, error) {
	return d.queryFloat("VSET1?")
}

// GetMeasuredVoltage reads the live output voltage.
func (d *Device) GetMeasuredVoltage() (float64, error) {
	return d.queryFloat("VOUT1?")
}

// SetCurrentSetpoint programs the current limit in amps.
func (d *Device) SetCurrentSetpoint(amps float64) error {
	return d.send(fmt.Sprintf("ISET1:%05.3f", amps))
}

// GetCurrentSetpoint reads back the programmed current limit.
func (d *Device) GetCurrentSetpoint() (float64, error) {
	return d.queryFloat("ISET1?")
}

// GetMeasuredCurrent reads the live output current.
func (d *Device) GetMeasuredCurrent() (float64, error) {
	return d.queryFloat("IOUT1?")
}

// GetStatus reads the raw status byte string from the instrument.
func (d *Device) GetStatus() (string, error) {
	return d.query("STATUS?")
}

// send writes one command with pacing. Caller-facing commands that
// expect no reply go through here.
func (d *Device) send(cmd string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(cmd)
}

// query writes one command and reads a single line reply.
func (d *Device) query(cmd string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.write(cmd); err != nil {
		return "", err
	}

	line, err := d.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading reply to %q: %w", cmd, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// queryFloat runs a query and parses the reply as a float.
func (d *Device) queryFloat(cmd string) (float64, error) {
	reply, err := d.query(cmd)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q to %q", ErrBadResponse, reply, cmd)
	}
	return value, nil
}

// write appends CRLF and sends, honouring the pacing gap. Caller holds mu.
func (d *Device) write(cmd string) error {
	if d.conn == nil {
		return ErrNotAttached
	}

	if gap := time.Since(d.lastSend); gap < commandPacing {
		time.Sleep(commandPacing - gap)
	}

	if _, err := d.conn.Write([]byte(cmd + "\r\n")); err != nil {
		return fmt.Errorf("sending %q: %w", cmd, err)
	}
	d.lastSend = time.Now()
	return nil
}
