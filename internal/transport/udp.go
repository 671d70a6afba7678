package transport

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/net/ipv4"
)

// UDPSocket is the hub's primary transport: a UDP socket bound to the hub
// port and joined to the slave device multicast group.
//
// The socket is shared by exactly one reader (UDP ingress worker) and one
// writer (egress worker). Concurrent independent read/write on a UDP socket
// is safe; no additional locking is applied to the data path.
type UDPSocket struct {
	conn  net.PacketConn
	group net.IP
	port  int

	mu     sync.Mutex
	closed bool
}

// OpenNetwork binds a UDP socket to port and joins the multicast group.
//
// Failure here is fatal to startup: the router cannot run without its
// primary transport.
//
// Parameters:
//   - group: Multicast group address (e.g. "224.1.1.1")
//   - port: UDP port to bind and to address peers on
//
// Returns:
//   - *UDPSocket: Open socket joined to the group
//   - error: ErrBindFailed if the bind or group join fails
func OpenNetwork(group string, port int) (*UDPSocket, error) {
	ip := net.ParseIP(group)
	if ip == nil || !ip.IsMulticast() {
		return nil, fmt.Errorf("%w: %q is not a multicast address", ErrBindFailed, group)
	}

	conn, err := net.ListenPacket("udp4", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("%w: binding :%d: %w", ErrBindFailed, port, err)
	}

	// Join on the default interface; the kernel picks the route.
	pc := ipv4.NewPacketConn(conn)
	if err := pc.JoinGroup(nil, &net.UDPAddr{IP: ip}); err != nil {
		conn.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("%w: joining group %s: %w", ErrBindFailed, group, err)
	}

	return &UDPSocket{
		conn:  conn,
		group: ip,
		port:  port,
	}, nil
}

// Group returns the multicast group address the socket is joined to.
func (s *UDPSocket) Group() string {
	return s.group.String()
}

// Port returns the UDP port the socket is bound to.
func (s *UDPSocket) Port() int {
	return s.port
}

// Receive reads one datagram into buf, waiting at most timeout.
//
// Returns ErrTimeout when the deadline elapses without data; the caller
// treats that as the cancellation-check signal, not a failure.
//
// Returns:
//   - int: Number of bytes read
//   - error: nil, ErrTimeout, ErrClosed, or a wrapped read error
func (s *UDPSocket) Receive(buf []byte, timeout time.Duration) (int, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, fmt.Errorf("setting read deadline: %w", err)
	}

	n, _, err := s.conn.ReadFrom(buf)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return 0, ErrTimeout
		}
		if errors.Is(err, net.ErrClosed) {
			return 0, ErrClosed
		}
		return 0, fmt.Errorf("receiving datagram: %w", err)
	}
	return n, nil
}

// Send transmits payload to (host, socket port).
//
// Parameters:
//   - payload: Encoded message bytes
//   - host: Destination IP address
//
// Returns:
//   - error: ErrWriteFailed if host is not an IP address or the send fails
func (s *UDPSocket) Send(payload []byte, host string) error {
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("%w: %q is not an IP address", ErrWriteFailed, host)
	}

	if _, err := s.conn.WriteTo(payload, &net.UDPAddr{IP: ip, Port: s.port}); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return ErrClosed
		}
		return fmt.Errorf("%w: sending to %s: %w", ErrWriteFailed, host, err)
	}
	return nil
}

// Close releases the socket. Safe to call more than once.
func (s *UDPSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("closing socket: %w", err)
	}
	return nil
}
