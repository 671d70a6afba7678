package transport

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

// fakePort is an in-memory Port for tests.
type fakePort struct {
	mu      sync.Mutex
	readBuf bytes.Buffer
	written bytes.Buffer
	readErr error
	closed  bool
}

func (p *fakePort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readErr != nil {
		return 0, p.readErr
	}
	if p.readBuf.Len() == 0 {
		// Emulate an elapsed read timeout.
		return 0, nil
	}
	return p.readBuf.Read(buf)
}

func (p *fakePort) Write(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(buf)
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePort) SetReadTimeout(time.Duration) error { return nil }

func (p *fakePort) writtenBytes() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte{}, p.written.Bytes()...)
}

func TestSerialLink_ReadChunk(t *testing.T) {
	port := &fakePort{}
	port.readBuf.WriteString("hello")
	link := NewSerialLink("/dev/fake0", port)

	buf := make([]byte, 128)
	n, err := link.ReadChunk(buf, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("ReadChunk() error = %v", err)
	}
	if string(buf[:n]) != "hello" {
		t.Errorf("ReadChunk() = %q, want %q", buf[:n], "hello")
	}
}

func TestSerialLink_ReadChunk_Timeout(t *testing.T) {
	link := NewSerialLink("/dev/fake0", &fakePort{})

	buf := make([]byte, 128)
	_, err := link.ReadChunk(buf, time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("ReadChunk() error = %v, want ErrTimeout", err)
	}
}

func TestSerialLink_ReadChunk_EOFIsClosed(t *testing.T) {
	port := &fakePort{readErr: io.EOF}
	link := NewSerialLink("/dev/fake0", port)

	buf := make([]byte, 128)
	_, err := link.ReadChunk(buf, time.Millisecond)
	if !errors.Is(err, ErrClosed) {
		t.Errorf("ReadChunk() error = %v, want ErrClosed", err)
	}
}

func TestSerialLink_WriteFrame_AppendsNewline(t *testing.T) {
	port := &fakePort{}
	link := NewSerialLink("/dev/fake0", port)

	if err := link.WriteFrame([]byte(`{"type":"CMD"}`)); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}

	got := port.writtenBytes()
	want := "{\"type\":\"CMD\"}\n"
	if string(got) != want {
		t.Errorf("written = %q, want %q", got, want)
	}
}

func TestSerialLink_WriteFrame_KeepsExistingNewline(t *testing.T) {
	port := &fakePort{}
	link := NewSerialLink("/dev/fake0", port)

	if err := link.WriteFrame([]byte("data\n")); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}

	if got := port.writtenBytes(); string(got) != "data\n" {
		t.Errorf("written = %q, want %q", got, "data\n")
	}
}

func TestSerialLink_Degraded(t *testing.T) {
	link := NewSerialLink("/dev/fake0", &fakePort{})

	if link.Degraded() {
		t.Error("new link reports degraded")
	}

	link.MarkDegraded()
	if !link.Degraded() {
		t.Error("Degraded() = false after MarkDegraded()")
	}

	if err := link.WriteFrame([]byte("data")); !errors.Is(err, ErrPortDegraded) {
		t.Errorf("WriteFrame() on degraded link error = %v, want ErrPortDegraded", err)
	}
}

func TestSerialLink_Close_Idempotent(t *testing.T) {
	port := &fakePort{}
	link := NewSerialLink("/dev/fake0", port)

	if err := link.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := link.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if !port.closed {
		t.Error("underlying port not closed")
	}

	if err := link.WriteFrame([]byte("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("WriteFrame() after close error = %v, want ErrClosed", err)
	}
	if _, err := link.ReadChunk(make([]byte, 8), time.Millisecond); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadChunk() after close error = %v, want ErrClosed", err)
	}
}

func TestSet_LinksAndLookup(t *testing.T) {
	set := NewSet()
	a := NewSerialLink("/dev/fake0", &fakePort{})
	b := NewSerialLink("/dev/fake1", &fakePort{})
	set.AddLink(a)
	set.AddLink(b)

	links := set.Links()
	if len(links) != 2 {
		t.Fatalf("Links() returned %d links, want 2", len(links))
	}

	got, ok := set.LinkByPath("/dev/fake1")
	if !ok || got != b {
		t.Errorf("LinkByPath(/dev/fake1) = %v, %v; want link b", got, ok)
	}
	if _, ok := set.LinkByPath("/dev/missing"); ok {
		t.Error("LinkByPath() found a link that was never added")
	}

	// Snapshot semantics: mutating the returned slice must not affect the set.
	links[0] = nil
	if set.Links()[0] == nil {
		t.Error("Links() exposed internal state")
	}
}

func TestSet_CloseAll_Idempotent(t *testing.T) {
	set := NewSet()
	portA := &fakePort{}
	set.AddLink(NewSerialLink("/dev/fake0", portA))

	if err := set.CloseAll(); err != nil {
		t.Fatalf("CloseAll() error = %v", err)
	}
	if !portA.closed {
		t.Error("CloseAll() did not close serial port")
	}
	if err := set.CloseAll(); err != nil {
		t.Fatalf("second CloseAll() error = %v", err)
	}
	if got := set.Links(); len(got) != 0 {
		t.Errorf("Links() after CloseAll() = %d entries, want 0", len(got))
	}
}

func TestSet_CloseAll_ReleasesReopenedHandles(t *testing.T) {
	set := NewSet()
	portA := &fakePort{}
	set.AddLink(NewSerialLink("/dev/fake0", portA))

	if err := set.CloseAll(); err != nil {
		t.Fatalf("CloseAll() error = %v", err)
	}
	if !portA.closed {
		t.Fatal("first CloseAll() did not close serial port")
	}

	// The set is reusable across restarts: handles added after a CloseAll
	// must be released by the next one.
	portB := &fakePort{}
	set.AddLink(NewSerialLink("/dev/fake1", portB))

	if err := set.CloseAll(); err != nil {
		t.Fatalf("second CloseAll() error = %v", err)
	}
	if !portB.closed {
		t.Error("CloseAll() after reuse left the reopened link open")
	}
	if got := set.Links(); len(got) != 0 {
		t.Errorf("Links() after CloseAll() = %d entries, want 0", len(got))
	}
}
