package router

import (
	"time"

	"github.com/khanda-io/khanda-hub/internal/message"
	"github.com/khanda-io/khanda-hub/internal/registry"
)

// Default tuning values applied by normalize() when the caller leaves a
// Config field zero.
const (
	defaultPollInterval     = 250 * time.Millisecond
	defaultMaxFrameBytes    = 512
	defaultSerialChunkBytes = 128
	defaultQueueSize        = 256
)

// Config carries the router's tuning knobs. Zero fields are replaced
// with defaults; see normalize().
type Config struct {
	// Group is the multicast group joined on start and used to filter
	// inbound traffic: only messages addressed to the group are dispatched.
	Group string

	// Port is the UDP port for both receive and transmit.
	Port int

	// ControlAddress is where LED command envelopes are sent.
	ControlAddress string

	// MaxFrameBytes bounds accepted datagrams and buffered serial lines.
	MaxFrameBytes int

	// SerialChunkBytes is the read granularity on serial links.
	SerialChunkBytes int

	// PollInterval bounds every blocking transport read, and therefore the
	// per-worker shutdown latency.
	PollInterval time.Duration

	// InboundQueue and OutboundQueue are the channel capacities.
	InboundQueue  int
	OutboundQueue int
}

// normalize fills zero fields with defaults.
func (c Config) normalize() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.MaxFrameBytes <= 0 {
		c.MaxFrameBytes = defaultMaxFrameBytes
	}
	if c.SerialChunkBytes <= 0 {
		c.SerialChunkBytes = defaultSerialChunkBytes
	}
	if c.InboundQueue <= 0 {
		c.InboundQueue = defaultQueueSize
	}
	if c.OutboundQueue <= 0 {
		c.OutboundQueue = defaultQueueSize
	}
	return c
}

// Status is the router lifecycle state.
type Status int

// Lifecycle states. Transitions only ever move forward through
// Starting/Stopping; there are no shortcut edges.
const (
	StatusStopped Status = iota
	StatusStarting
	StatusRunning
	StatusStopping
)

// String returns the lowercase state name for logs.
func (s Status) String() string {
	switch s {
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusStopping:
		return "stopping"
	default:
		return "stopped"
	}
}

// Stats is a point-in-time snapshot of the router's counters.
type Stats struct {
	// Received counts frames that decoded and passed the group filter.
	Received uint64

	// Dispatched counts messages the dispatch worker handled successfully.
	Dispatched uint64

	// Dropped counts frames discarded: filter misses, unknown kinds,
	// dispatch failures, full queues.
	Dropped uint64

	// DecodeErrors counts frames that failed scrub/decode.
	DecodeErrors uint64

	// HealthReports counts HEALTH diagnostics received from devices.
	HealthReports uint64
}

// Strategy replaces the built-in dispatch rules entirely when injected.
//
// Dispatch interprets one inbound message and returns at most one reply
// envelope (nil means no reply). A returned error is logged and the
// message dropped; it never terminates the dispatch worker.
type Strategy interface {
	Dispatch(msg message.Message) (*message.Envelope, error)
}

// Hooks are optional observer callbacks fired by the built-in dispatch
// rules. Used to feed the event mirror and bus bridge without coupling
// the router to either. Callbacks run on the dispatch goroutine and
// must not block.
type Hooks struct {
	// OnEvent fires after an EVENT or LED record is appended to the log.
	OnEvent func(eventType, payload, timestamp string)

	// OnRegistration fires after a DEVICE registration is upserted.
	OnRegistration func(reg registry.Registration)
}

// Logger defines the logging interface used by the router.
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

// inbound pairs a decoded message with the transport it arrived on, so
// DEVICE registrations can record their link for per-device egress.
type inbound struct {
	msg    message.Message
	origin string
}
