// Package registry tracks which slave devices have announced themselves
// and how to reach them.
//
// The registry is an address→registration mapping with upsert semantics:
// an address holds exactly one current entry, and a repeated DEVICE packet
// overwrites rather than accumulates. The dispatch worker is the sole
// writer; the egress worker reads entries to route serial-bound replies.
//
// Persistence is optional. With a Store attached, upserts are written
// through to SQLite and reloaded at startup, so a hub restart does not
// lose the device population.
package registry
