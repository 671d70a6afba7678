package transport

import (
	"errors"
	"sync"
)

// Set owns every open transport handle: the UDP multicast socket and the
// serial link collection. Workers hold references obtained from the Set but
// never close handles themselves; CloseAll runs during coordinated shutdown
// and empties the set, so the same Set can be reused across router restarts.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Set struct {
	mu     sync.RWMutex
	socket *UDPSocket
	links  []*SerialLink
}

// NewSet creates an empty transport set.
func NewSet() *Set {
	return &Set{}
}

// OpenNetwork opens the primary UDP transport and stores it in the set.
// Fatal on failure; the router cannot run without it.
func (s *Set) OpenNetwork(group string, port int) error {
	socket, err := OpenNetwork(group, port)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.socket = socket
	s.mu.Unlock()
	return nil
}

// OpenSerial opens a serial link and appends it to the set on success.
// On failure the set is unchanged; the error is ErrOpenFailed-wrapped.
func (s *Set) OpenSerial(path string, baud int) (*SerialLink, error) {
	link, err := OpenSerial(path, baud)
	if err != nil {
		return nil, err
	}

	s.AddLink(link)
	return link, nil
}

// AddLink appends an already-open link to the set. Exposed for tests and
// runtime attachment of pre-opened ports.
func (s *Set) AddLink(link *SerialLink) {
	s.mu.Lock()
	s.links = append(s.links, link)
	s.mu.Unlock()
}

// Socket returns the UDP socket, or nil if the network is not open.
func (s *Set) Socket() *UDPSocket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.socket
}

// Links returns a snapshot of the current serial links. The returned slice
// is a copy; the set may grow while the caller iterates.
func (s *Set) Links() []*SerialLink {
	s.mu.RLock()
	defer s.mu.RUnlock()

	links := make([]*SerialLink, len(s.links))
	copy(links, s.links)
	return links
}

// LinkByPath returns the link opened on the given device path.
func (s *Set) LinkByPath(path string) (*SerialLink, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, link := range s.links {
		if link.Path() == path {
			return link, true
		}
	}
	return nil, false
}

// CloseAll releases every open handle and empties the set. Idempotent;
// errors from individual handles are joined rather than short-circuiting
// the rest. Handles stored after a CloseAll are closed by the next one.
func (s *Set) CloseAll() error {
	s.mu.Lock()
	socket := s.socket
	links := s.links
	s.socket = nil
	s.links = nil
	s.mu.Unlock()

	var errs []error
	if socket != nil {
		if err := socket.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, link := range links {
		if err := link.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
