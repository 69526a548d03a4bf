package persister

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gfduarte/mt5-tickdata/internal/model"
	"github.com/gfduarte/mt5-tickdata/internal/queue"
)

// Supervisor states.
const (
	stateStopped int32 = iota
	stateRunning
	stateDraining
	stateTerminated
)

func stateName(s int32) string {
	switch s {
	case stateRunning:
		return "running"
	case stateDraining:
		return "draining"
	case stateTerminated:
		return "terminated"
	default:
		return "stopped"
	}
}

// Config contains supervisor settings.
type Config struct {
	// QueueCapacity is the hard ceiling of the in-memory tick queue.
	QueueCapacity int

	// BatchSize caps how many ticks one write carries.
	BatchSize int

	// BatchAge bounds how long a partially filled batch may wait.
	BatchAge time.Duration

	// FlushInterval is the wake cadence of the flush loop.
	FlushInterval time.Duration

	// DrainTimeout bounds the best-effort flush of remaining ticks on
	// Stop; whatever is still queued afterwards is dropped and counted.
	DrainTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		QueueCapacity: 1000,
		BatchSize:     20,
		BatchAge:      5 * time.Second,
		FlushInterval: 250 * time.Millisecond,
		DrainTimeout:  10 * time.Second,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.QueueCapacity < 1 {
		c.QueueCapacity = def.QueueCapacity
	}
	if c.BatchSize < 1 {
		c.BatchSize = def.BatchSize
	}
	if c.BatchAge <= 0 {
		c.BatchAge = def.BatchAge
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = def.FlushInterval
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = def.DrainTimeout
	}
}

// Supervisor owns the bounded queue and the single background flush loop,
// and exposes the producer-facing Enqueue and Stats interface.
//
// A supervisor is single-use: Stopped -> Running -> Draining -> Terminated.
// Restarting means constructing a fresh instance and wiring it explicitly;
// there is no process-global registry.
type Supervisor struct {
	cfg    Config
	writer BatchWriter
	logger *slog.Logger

	buf   *queue.Bounded[model.Tick]
	state atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Counters: written by Enqueue (enqueued, rejected) and by the flush
	// loop (everything else); read by anyone via Stats.
	totalEnqueued  atomic.Int64
	totalRejected  atomic.Int64
	totalPersisted atomic.Int64
	totalConflicts atomic.Int64
	totalDropped   atomic.Int64
	totalBatches   atomic.Int64
	lastBatchMS    atomic.Int64

	lastMu      sync.Mutex
	lastBatchID string
	lastError   string
}

// NewSupervisor creates a stopped supervisor over the given batch writer.
func NewSupervisor(cfg Config, writer BatchWriter, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()
	return &Supervisor{
		cfg:    cfg,
		writer: writer,
		logger: logger,
		buf:    queue.NewBounded[model.Tick](cfg.QueueCapacity),
	}
}

// Start spawns the background flush loop. Only valid once, from the
// initial state.
func (s *Supervisor) Start(ctx context.Context) error {
	if !s.state.CompareAndSwap(stateStopped, stateRunning) {
		return ErrAlreadyStarted
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.flushLoop()

	s.logger.Info("tick persister started",
		"queue_capacity", s.cfg.QueueCapacity,
		"batch_size", s.cfg.BatchSize,
		"batch_age", s.cfg.BatchAge,
		"flush_interval", s.cfg.FlushInterval,
	)
	return nil
}

// Enqueue validates a raw tick and appends it to the bounded queue.
// Never blocks and performs no I/O. Returns ErrNotRunning outside the
// Running state, ErrQueueFull under backpressure, or a validation error
// for malformed payloads.
func (s *Supervisor) Enqueue(raw model.RawTick) error {
	if s.state.Load() != stateRunning {
		return ErrNotRunning
	}

	tick, err := model.NewTick(raw)
	if err != nil {
		return fmt.Errorf("invalid tick: %w", err)
	}

	if !s.buf.TryEnqueue(tick) {
		s.totalRejected.Add(1)
		return ErrQueueFull
	}

	s.totalEnqueued.Add(1)
	return nil
}

// Stop transitions to Draining, flushes whatever remains queued within the
// drain timeout, and terminates the loop. The passed context bounds how
// long Stop itself waits for the loop to finish.
func (s *Supervisor) Stop(ctx context.Context) error {
	if !s.state.CompareAndSwap(stateRunning, stateDraining) {
		return nil
	}

	s.logger.Info("stopping tick persister", "queue_depth", s.buf.Depth())
	s.buf.Close()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("tick persister stop timed out")
		err = ctx.Err()
	}

	s.state.Store(stateTerminated)
	s.logger.Info("tick persister stopped",
		"total_persisted", s.totalPersisted.Load(),
		"total_dropped", s.totalDropped.Load(),
		"total_batches", s.totalBatches.Load(),
	)
	return err
}

// Stats returns a snapshot of the pipeline counters.
func (s *Supervisor) Stats() Stats {
	s.lastMu.Lock()
	lastID, lastErr := s.lastBatchID, s.lastError
	s.lastMu.Unlock()

	return Stats{
		State:               stateName(s.state.Load()),
		QueueDepth:          s.buf.Depth(),
		QueueCapacity:       s.buf.Cap(),
		TotalEnqueued:       s.totalEnqueued.Load(),
		TotalRejected:       s.totalRejected.Load(),
		TotalPersisted:      s.totalPersisted.Load(),
		TotalConflicts:      s.totalConflicts.Load(),
		TotalDropped:        s.totalDropped.Load(),
		TotalBatches:        s.totalBatches.Load(),
		LastBatchDurationMS: s.lastBatchMS.Load(),
		LastBatchID:         lastID,
		LastError:           lastErr,
	}
}

// flushLoop is the single consumer goroutine. It drains the queue into a
// pending batch and writes when the batch reaches BatchSize or BatchAge has
// elapsed since the last flush.
//
// The age clock runs from the last flush (restarted on idle wakes), so it
// always starts at or before the next tick's enqueue. That keeps the
// enqueue-to-persist latency of a lone tick within BatchAge; measuring from
// the drain instead would add the tick's queue residence on top.
func (s *Supervisor) flushLoop() {
	defer s.wg.Done()

	var pending []model.Tick
	lastFlush := time.Now()

	for {
		// Sleep until the next poll, or exactly until the age deadline
		// if that lands sooner.
		wait := s.cfg.FlushInterval
		if until := time.Until(lastFlush.Add(s.cfg.BatchAge)); until < wait {
			wait = until
		}
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			s.drain(pending)
			return
		case <-timer.C:
		}

		if room := s.cfg.BatchSize - len(pending); room > 0 {
			pending = append(pending, s.buf.DrainUpTo(room)...)
		}

		if len(pending) == 0 {
			lastFlush = time.Now()
			continue
		}

		if len(pending) >= s.cfg.BatchSize || time.Since(lastFlush) >= s.cfg.BatchAge {
			if err := s.flush(s.ctx, pending); err != nil {
				// Shutdown interrupted the write, it did not fail.
				// Hand the batch to drain, which retries it on a
				// fresh context.
				s.drain(pending)
				return
			}
			pending = nil
			lastFlush = time.Now()
		}
	}
}

// drain performs the best-effort final flush after Stop. Remaining ticks
// past the drain timeout are dropped and counted.
func (s *Supervisor) drain(pending []model.Tick) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.DrainTimeout)
	defer cancel()

	for {
		if len(pending) == 0 {
			pending = s.buf.DrainUpTo(s.cfg.BatchSize)
		}
		if len(pending) == 0 {
			return
		}

		if ctx.Err() != nil {
			remaining := len(pending) + s.buf.Depth()
			s.buf.DrainUpTo(0)
			s.totalDropped.Add(int64(remaining))
			s.logger.Warn("drain timeout, dropping remaining ticks", "count", remaining)
			return
		}

		s.flush(ctx, pending)
		pending = nil
	}
}

// flush writes one batch and updates counters. Failures are contained
// here: the batch is dropped, the error recorded, and nil is returned so
// the loop goes on. The exception is a write cut short by context
// cancellation: the batch is neither counted nor dropped, and the non-nil
// return tells the caller it still owns it.
func (s *Supervisor) flush(ctx context.Context, batch []model.Tick) error {
	batchID := uuid.New().String()
	start := time.Now()

	inserted, err := s.writer.WriteBatch(ctx, batch)
	elapsed := time.Since(start)

	if err != nil && errors.Is(ctx.Err(), context.Canceled) {
		s.logger.Info("batch write interrupted by shutdown", "count", len(batch))
		return err
	}

	s.totalBatches.Add(1)
	s.lastBatchMS.Store(elapsed.Milliseconds())
	s.lastMu.Lock()
	s.lastBatchID = batchID
	if err != nil {
		s.lastError = err.Error()
	}
	s.lastMu.Unlock()

	if err != nil {
		s.totalDropped.Add(int64(len(batch)))
		s.logger.Error("batch dropped",
			"batch_id", batchID,
			"count", len(batch),
			"error", err,
		)
		return nil
	}

	s.totalPersisted.Add(int64(len(batch)))
	s.totalConflicts.Add(int64(len(batch) - inserted))
	s.logger.Debug("batch persisted",
		"batch_id", batchID,
		"count", len(batch),
		"inserted", inserted,
		"conflicts", len(batch)-inserted,
		"duration", elapsed,
		"queue_depth", s.buf.Depth(),
	)
	return nil
}
