// Package persister implements the asynchronous tick persistence pipeline:
// a producer-facing non-blocking enqueue, a single background flush loop
// that assembles size-or-time bounded batches, and an idempotent batch
// writer with bounded retry against PostgreSQL.
//
// Concurrency model: Enqueue is pure in-memory and callable from any number
// of goroutines; all database I/O, retries, and backoff sleeps happen in the
// flush loop goroutine owned by the Supervisor. The bounded queue is the
// only structure shared between the two sides.
package persister
