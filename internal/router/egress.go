package router

import (
	"context"
	"net"

	"github.com/khanda-io/khanda-hub/internal/message"
)

// egressLoop is the sole consumer of the outbound queue.
func (r *Router) egressLoop(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case env := <-r.outbound:
			r.deliver(env)
		}
	}
}

// deliver sends one envelope to its recipient.
//
// IP-addressable recipients go out over UDP to (recipient, hub port).
// Anything else is a serial device: when the recipient is registered on
// a specific link the frame goes only there, otherwise it is written to
// every open serial port. A failure on any one sink is logged and never
// stops delivery to the rest, and never stops the loop.
func (r *Router) deliver(env message.Envelope) {
	if ip := net.ParseIP(env.Recipient); ip != nil {
		if err := r.transports.Socket().Send(env.Data, env.Recipient); err != nil {
			r.logger.Error("udp send failed",
				"recipient", env.Recipient,
				"error", err,
			)
		}
		return
	}

	if reg, ok := r.reg.Lookup(env.Recipient); ok && reg.Link != originUDP {
		if link, found := r.transports.LinkByPath(reg.Link); found {
			if err := link.WriteFrame(env.Data); err != nil {
				r.logger.Error("serial write failed",
					"path", link.Path(),
					"recipient", env.Recipient,
					"error", err,
				)
			}
			return
		}
	}

	// No registered link: broadcast to every open serial port.
	for _, link := range r.transports.Links() {
		if err := link.WriteFrame(env.Data); err != nil {
			r.logger.Error("serial write failed",
				"path", link.Path(),
				"recipient", env.Recipient,
				"error", err,
			)
		}
	}
}
