package router

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/khanda-io/khanda-hub/internal/eventlog"
	"github.com/khanda-io/khanda-hub/internal/message"
	"github.com/khanda-io/khanda-hub/internal/psu"
	"github.com/khanda-io/khanda-hub/internal/registry"
	"github.com/khanda-io/khanda-hub/internal/transport"
)

// defaultBaud is used when a caller attaches a serial device or the
// power instrument without naming a rate.
const defaultBaud = 9600

// Router owns the worker pool and the queues between them.
//
// Construction wires in the collaborators; Start launches the workers
// and Stop winds them down. SetLogger, SetStrategy and SetHooks must be
// called before Start.
type Router struct {
	cfg        Config
	transports *transport.Set
	reg        *registry.Registry
	sink       eventlog.Sink

	custom Strategy
	hooks  Hooks
	logger Logger

	stateMu sync.Mutex
	state   Status
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	inbound  chan inbound
	outbound chan message.Envelope

	received      atomic.Uint64
	dispatched    atomic.Uint64
	dropped       atomic.Uint64
	decodeErrors  atomic.Uint64
	healthReports atomic.Uint64

	psuMu      sync.Mutex
	instrument *psu.Device
}

// New creates a stopped router.
//
// Parameters:
//   - cfg: Tuning knobs; zero fields take defaults
//   - transports: Transport set the router opens into and closes on stop
//   - reg: Device registry (the dispatch worker is its sole writer)
//   - sink: Event-log sink for EVENT/LED records
func New(cfg Config, transports *transport.Set, reg *registry.Registry, sink eventlog.Sink) *Router {
	return &Router{
		cfg:        cfg.normalize(),
		transports: transports,
		reg:        reg,
		sink:       sink,
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for the router and its workers.
func (r *Router) SetLogger(logger Logger) {
	r.logger = logger
}

// SetStrategy replaces the built-in dispatch rules entirely.
func (r *Router) SetStrategy(s Strategy) {
	r.custom = s
}

// SetHooks registers observer callbacks for the built-in dispatch rules.
func (r *Router) SetHooks(hooks Hooks) {
	r.hooks = hooks
}

// Start opens the primary transport and launches the worker pool.
//
// The UDP bind is the only fatal failure: without the primary network
// the router cannot run. Serial links are attached separately via
// AddSerialDevice and their failures are never fatal.
//
// Returns:
//   - error: ErrAlreadyRunning, or transport.ErrBindFailed (fatal)
func (r *Router) Start(ctx context.Context) error {
	r.stateMu.Lock()
	if r.state != StatusStopped {
		r.stateMu.Unlock()
		return ErrAlreadyRunning
	}
	r.state = StatusStarting
	r.stateMu.Unlock()

	if err := r.transports.OpenNetwork(r.cfg.Group, r.cfg.Port); err != nil {
		r.setState(StatusStopped)
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.inbound = make(chan inbound, r.cfg.InboundQueue)
	r.outbound = make(chan message.Envelope, r.cfg.OutboundQueue)

	r.wg.Add(4)
	go r.udpIngress(runCtx)
	go r.serialIngress(runCtx)
	go r.dispatchLoop(runCtx)
	go r.egressLoop(runCtx)

	r.setState(StatusRunning)
	r.logger.Info("router started",
		"group", r.cfg.Group,
		"port", r.cfg.Port,
		"poll_interval", r.cfg.PollInterval,
	)
	return nil
}

// Stop winds the worker pool down.
//
// Cancellation is cooperative: every worker observes it within one poll
// interval. Transports are closed only after the workers exit, then the
// event-log sink is flushed and closed. Safe to call when already
// stopped, and safe to call twice.
func (r *Router) Stop(ctx context.Context) error {
	r.stateMu.Lock()
	if r.state != StatusRunning {
		r.stateMu.Unlock()
		return nil
	}
	r.state = StatusStopping
	r.stateMu.Unlock()

	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warn("timed out waiting for workers to exit", "error", ctx.Err())
	}

	if err := r.detachInstrument(); err != nil && !errors.Is(err, psu.ErrNotAttached) {
		r.logger.Error("detaching power instrument on stop", "error", err)
	}

	err := r.transports.CloseAll()
	if err != nil {
		r.logger.Error("closing transports", "error", err)
	}

	if closeErr := r.sink.Close(); closeErr != nil {
		r.logger.Error("closing event log", "error", closeErr)
		if err == nil {
			err = closeErr
		}
	}

	r.setState(StatusStopped)
	r.logger.Info("router stopped")
	return err
}

// Status returns the current lifecycle state.
func (r *Router) Status() Status {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.state
}

func (r *Router) setState(s Status) {
	r.stateMu.Lock()
	r.state = s
	r.stateMu.Unlock()
}

// Stats returns a snapshot of the router's counters.
func (r *Router) Stats() Stats {
	return Stats{
		Received:      r.received.Load(),
		Dispatched:    r.dispatched.Load(),
		Dropped:       r.dropped.Load(),
		DecodeErrors:  r.decodeErrors.Load(),
		HealthReports: r.healthReports.Load(),
	}
}

// QueueCommand injects an operator command: a CMD message addressed to
// the multicast group, enqueued directly on the outbound queue.
//
// Returns:
//   - error: ErrNotRunning, or ErrDispatchFailed when the queue is full
func (r *Router) QueueCommand(payload string) error {
	if r.Status() != StatusRunning {
		return ErrNotRunning
	}

	msg := message.Message{
		Type:      message.KindCMD,
		Payload:   payload,
		Recipient: r.cfg.Group,
		Timestamp: strconv.FormatInt(time.Now().Unix(), 10),
	}
	env, err := message.NewEnvelope(r.cfg.Group, msg)
	if err != nil {
		return err
	}

	select {
	case r.outbound <- env:
		return nil
	default:
		return fmt.Errorf("%w: outbound queue full", ErrDispatchFailed)
	}
}

// AddSerialDevice opens a serial link and adds it to the transport set.
// The serial ingress worker picks new links up on its next cycle, so
// this is safe before or after Start.
func (r *Router) AddSerialDevice(path string, baud int) error {
	if baud <= 0 {
		baud = defaultBaud
	}

	link, err := r.transports.OpenSerial(path, baud)
	if err != nil {
		return err
	}

	r.logger.Info("serial device attached", "path", link.Path(), "baud", baud)
	return nil
}

// AttachPowerInstrument opens the bench power supply on its own serial
// handle. The handle is owned by the router and released on Detach or
// Stop; it is never part of the message transport set.
func (r *Router) AttachPowerInstrument(path string) error {
	r.psuMu.Lock()
	defer r.psuMu.Unlock()

	if r.instrument != nil {
		return fmt.Errorf("router: power instrument already attached")
	}

	port, err := transport.OpenPort(path, defaultBaud)
	if err != nil {
		return err
	}

	r.instrument = psu.Attach(port)
	r.logger.Info("power instrument attached", "path", path)
	return nil
}

// DetachPowerInstrument closes the power supply handle.
//
// Returns:
//   - error: psu.ErrNotAttached when nothing is attached, or
//     psu.ErrCloseFailed-wrapped close errors
func (r *Router) DetachPowerInstrument() error {
	return r.detachInstrument()
}

func (r *Router) detachInstrument() error {
	r.psuMu.Lock()
	defer r.psuMu.Unlock()

	if r.instrument == nil {
		return psu.ErrNotAttached
	}

	err := r.instrument.Detach()
	r.instrument = nil
	if err != nil {
		return err
	}

	r.logger.Info("power instrument detached")
	return nil
}

// PowerInstrument returns the attached power supply, or nil.
func (r *Router) PowerInstrument() *psu.Device {
	r.psuMu.Lock()
	defer r.psuMu.Unlock()
	return r.instrument
}
