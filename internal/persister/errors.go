package persister

import (
	"errors"
	"fmt"
)

// Producer-visible errors returned by Supervisor.Enqueue. Both are routine
// conditions under load and are returned, never panicked.
var (
	// ErrQueueFull signals capacity-based backpressure: the bounded queue
	// is saturated and the tick was rejected without blocking.
	ErrQueueFull = errors.New("tick queue full")

	// ErrNotRunning signals a terminal rejection: the supervisor has left
	// the Running state and ticks are undeliverable until a new instance
	// is started.
	ErrNotRunning = errors.New("persister not running")
)

// ErrAlreadyStarted is returned by Start on any state but the initial one.
// A supervisor is single-use; restarting means constructing a new instance.
var ErrAlreadyStarted = errors.New("persister already started")

// WriteError describes a failed batch write after classification.
type WriteError struct {
	Permanent bool  // true: data/constraint problem, do not retry
	Attempts  int   // attempts performed before giving up
	Err       error // last underlying error
}

func (e *WriteError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	return fmt.Sprintf("%s write error after %d attempt(s): %v", kind, e.Attempts, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
