package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/khanda-io/khanda-hub/internal/eventlog"
	"github.com/khanda-io/khanda-hub/internal/message"
	"github.com/khanda-io/khanda-hub/internal/registry"
)

// ledColors maps the accepted LED tokens to the colour forwarded in the
// control command. ON and OFF tokens both forward the bare colour; the
// control board infers the toggle from its own state.
var ledColors = map[string]string{
	"RED":      "RED",
	"REDOFF":   "RED",
	"GREEN":    "GREEN",
	"GREENOFF": "GREEN",
	"BLUE":     "BLUE",
	"BLUEOFF":  "BLUE",
}

// dispatchLoop is the sole consumer of the inbound queue and the sole
// writer of the device registry.
func (r *Router) dispatchLoop(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case in := <-r.inbound:
			r.dispatchOne(ctx, in)
		}
	}
}

// dispatchOne runs one message through the injected strategy, or the
// built-in rules when none is set. Errors are contained here: logged,
// counted, and the loop carries on.
func (r *Router) dispatchOne(ctx context.Context, in inbound) {
	var env *message.Envelope
	var err error
	if r.custom != nil {
		env, err = r.custom.Dispatch(in.msg)
	} else {
		env, err = r.dispatchBuiltin(ctx, in.msg, in.origin)
	}

	if err != nil {
		r.dropped.Add(1)
		r.logger.Error("dispatch failed",
			"type", in.msg.Type,
			"payload", in.msg.Payload,
			"error", err,
		)
		return
	}

	r.dispatched.Add(1)
	if env == nil {
		return
	}

	select {
	case r.outbound <- *env:
	case <-ctx.Done():
	}
}

// dispatchBuiltin applies the hub's standard rules for one message.
func (r *Router) dispatchBuiltin(ctx context.Context, msg message.Message, origin string) (*message.Envelope, error) {
	switch msg.Type {
	case message.KindEVENT:
		return nil, r.recordEvent(msg)

	case message.KindLED:
		return r.dispatchLED(msg)

	case message.KindHEALTH:
		r.healthReports.Add(1)
		r.logger.Error("device health report",
			"payload", msg.Payload,
			"timestamp", msg.Timestamp,
		)
		return nil, nil

	case message.KindDEVICE:
		return r.registerDevice(ctx, msg, origin)

	default:
		return nil, fmt.Errorf("%w: unrecognized kind %q", ErrDispatchFailed, msg.Type)
	}
}

// recordEvent appends the message to the event log and fires the event
// hook.
func (r *Router) recordEvent(msg message.Message) error {
	rec := eventlog.Record{
		Type:      msg.Type,
		Payload:   msg.Payload,
		Timestamp: msg.Timestamp,
	}
	if err := r.sink.Append(rec); err != nil {
		return fmt.Errorf("appending event record: %w", err)
	}

	if r.hooks.OnEvent != nil {
		r.hooks.OnEvent(msg.Type, msg.Payload, msg.Timestamp)
	}
	return nil
}

// dispatchLED validates the LED token, logs the event, and produces the
// control command for the control-plane address.
func (r *Router) dispatchLED(msg message.Message) (*message.Envelope, error) {
	color, ok := ledColors[msg.Payload]
	if !ok {
		return nil, fmt.Errorf("%w: unknown LED token %q", ErrDispatchFailed, msg.Payload)
	}

	if err := r.recordEvent(msg); err != nil {
		return nil, err
	}

	cmd := message.Message{
		Type:      message.KindCMD,
		Payload:   "LED+" + color,
		Recipient: r.cfg.ControlAddress,
		Timestamp: msg.Timestamp,
	}
	env, err := message.NewEnvelope(r.cfg.ControlAddress, cmd)
	if err != nil {
		return nil, err
	}
	return &env, nil
}

// registerDevice parses a DEVICE payload ("<deviceType>+<address>"),
// upserts the registry, and produces the ACKDEV reply for the device.
func (r *Router) registerDevice(ctx context.Context, msg message.Message, origin string) (*message.Envelope, error) {
	deviceType, address, ok := strings.Cut(msg.Payload, "+")
	if !ok || deviceType == "" || address == "" {
		return nil, fmt.Errorf("%w: payload %q", registry.ErrBadRegistration, msg.Payload)
	}

	reg := registry.Registration{
		DeviceType: deviceType,
		Address:    address,
		Link:       origin,
	}
	if err := r.reg.Register(ctx, reg); err != nil {
		return nil, err
	}

	if r.hooks.OnRegistration != nil {
		if current, found := r.reg.Lookup(address); found {
			r.hooks.OnRegistration(current)
		}
	}

	ack := message.Message{
		Type:      message.KindACKDEV,
		Payload:   "SUCCESS",
		Recipient: address,
		Timestamp: msg.Timestamp,
	}
	env, err := message.NewEnvelope(address, ack)
	if err != nil {
		return nil, err
	}
	return &env, nil
}
