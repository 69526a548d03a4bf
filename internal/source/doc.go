// Package source implements the terminal integration layer. It normalizes
// both upstream delivery modes (polling the terminal's "latest tick" call,
// or consuming a bridge WebSocket feed) into synchronous Enqueue calls on
// the persister.
//
// The terminal itself is opaque: sources only see a TickFetcher or a feed
// URL. Enqueue rejections (backpressure, shutdown) are counted and logged
// here; the sources never retry a rejected tick.
package source
