// Package transport owns the hub's open channels: one UDP multicast socket
// and a collection of point-to-point serial links.
//
// # Ownership
//
// The Set is created by the router at startup and torn down by CloseAll
// during shutdown. Workers borrow handles; they never close them. The UDP
// socket supports one concurrent reader and one concurrent writer without
// locking. Serial links serialize writes with a per-link mutex so an
// egress frame is never interleaved with another.
//
// # Failure policy
//
// Failing to open the network is fatal (ErrBindFailed). Failing to open a
// serial link is not: devices are optional and hot-attachable. A read
// failure on a link marks it degraded rather than tearing it down.
//
// # Blocking
//
// All reads are bounded (ErrTimeout on an elapsed window) so worker loops
// can observe cancellation within one poll interval instead of blocking
// indefinitely.
package transport
