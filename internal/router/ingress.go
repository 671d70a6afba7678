package router

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/khanda-io/khanda-hub/internal/message"
	"github.com/khanda-io/khanda-hub/internal/transport"
)

// originUDP is the Link value recorded for devices that registered over
// the network. Serial origins carry the device path instead.
const originUDP = "udp"

// udpIngress reads datagrams from the multicast socket.
//
// Every read is bounded by the poll interval, so cancellation is
// observed within one interval without busy-polling.
func (r *Router) udpIngress(ctx context.Context) {
	defer r.wg.Done()

	socket := r.transports.Socket()
	buf := make([]byte, r.cfg.MaxFrameBytes+1)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := socket.Receive(buf, r.cfg.PollInterval)
		if err != nil {
			if errors.Is(err, transport.ErrTimeout) {
				continue
			}
			if errors.Is(err, transport.ErrClosed) {
				return
			}
			r.logger.Error("udp receive failed", "error", err)
			continue
		}

		if n > r.cfg.MaxFrameBytes {
			r.decodeErrors.Add(1)
			r.logger.Warn("oversized datagram dropped",
				"bytes", n,
				"error", message.ErrFrameTooLarge,
			)
			continue
		}

		r.ingestFrame(ctx, buf[:n], originUDP)
	}
}

// serialIngress services every open serial link from one goroutine.
//
// Reads accumulate into a per-link buffer and complete newline-terminated
// lines are decoded as they appear. The poll interval is divided across
// the links so the worker still observes cancellation within one interval
// regardless of how many devices are attached. One link's failure marks
// it degraded and never stops the others.
func (r *Router) serialIngress(ctx context.Context) {
	defer r.wg.Done()

	buffers := make(map[*transport.SerialLink][]byte)
	chunk := make([]byte, r.cfg.SerialChunkBytes)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		links := r.activeLinks()
		if len(links) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.cfg.PollInterval):
			}
			continue
		}

		window := r.cfg.PollInterval / time.Duration(len(links))
		if window < time.Millisecond {
			window = time.Millisecond
		}

		for _, link := range links {
			n, err := link.ReadChunk(chunk, window)
			if err != nil {
				if errors.Is(err, transport.ErrTimeout) {
					continue
				}
				if errors.Is(err, transport.ErrClosed) {
					delete(buffers, link)
					continue
				}
				r.logger.Error("serial read failed, link degraded",
					"path", link.Path(),
					"error", err,
				)
				link.MarkDegraded()
				delete(buffers, link)
				continue
			}

			buffers[link] = r.drainLines(ctx, link.Path(), append(buffers[link], chunk[:n]...))
		}
	}
}

// activeLinks returns the non-degraded serial links.
func (r *Router) activeLinks() []*transport.SerialLink {
	links := r.transports.Links()
	active := links[:0]
	for _, link := range links {
		if !link.Degraded() {
			active = append(active, link)
		}
	}
	return active
}

// drainLines decodes every complete line in buf and returns the
// unterminated remainder. A remainder that outgrows the frame limit
// without ever seeing a newline is discarded whole.
func (r *Router) drainLines(ctx context.Context, origin string, buf []byte) []byte {
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		line := buf[:i]
		buf = buf[i+1:]
		if len(line) == 0 {
			continue
		}
		r.ingestFrame(ctx, line, origin)
	}

	if len(buf) > r.cfg.MaxFrameBytes {
		r.decodeErrors.Add(1)
		r.logger.Warn("unterminated serial data dropped",
			"path", origin,
			"bytes", len(buf),
			"error", message.ErrFrameTooLarge,
		)
		return nil
	}
	return buf
}

// ingestFrame scrubs, decodes and filters one raw frame, then enqueues
// it for dispatch. Serial origins get quote normalization; slave
// firmware on serial links emits single-quoted JSON.
func (r *Router) ingestFrame(ctx context.Context, raw []byte, origin string) {
	frame := message.Scrub(raw)
	if origin != originUDP {
		frame = message.NormalizeQuotes(frame)
	}

	msg, err := message.Decode(frame)
	if err != nil {
		r.decodeErrors.Add(1)
		r.logger.Debug("frame dropped", "origin", origin, "error", err)
		return
	}

	// Only traffic addressed to the hub's group is dispatched.
	if msg.Recipient != r.cfg.Group {
		r.dropped.Add(1)
		return
	}

	r.received.Add(1)
	select {
	case r.inbound <- inbound{msg: msg, origin: origin}:
	case <-ctx.Done():
	}
}
