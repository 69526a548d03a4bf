package persister

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gfduarte/mt5-tickdata/internal/model"
)

// BatchWriter durably stores one non-empty batch, or fails it terminally.
type BatchWriter interface {
	WriteBatch(ctx context.Context, ticks []model.Tick) (inserted int, err error)
}

// WriterConfig contains retry and timeout settings for batch writes.
type WriterConfig struct {
	// MaxAttempts is the total number of write attempts per batch
	// (first try included).
	MaxAttempts int

	// BackoffBase is the delay before the first retry; it doubles per
	// attempt up to BackoffCap. Jitter of 0.5x-1.5x is applied.
	BackoffBase time.Duration
	BackoffCap  time.Duration

	// WriteTimeout bounds each individual attempt, separate from the
	// backoff delay between attempts.
	WriteTimeout time.Duration
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		MaxAttempts:  3,
		BackoffBase:  time.Second,
		BackoffCap:   60 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Writer wraps a Sink with per-attempt timeouts and bounded retry on
// transient failures. Permanent failures (malformed data, constraint
// violations other than duplicates) fail the batch on the first attempt.
type Writer struct {
	sink   Sink
	cfg    WriterConfig
	logger *slog.Logger
}

// NewWriter creates a retrying batch writer over the given sink.
func NewWriter(sink Sink, cfg WriterConfig, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultWriterConfig()
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = def.BackoffBase
	}
	if cfg.BackoffCap < cfg.BackoffBase {
		cfg.BackoffCap = def.BackoffCap
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	return &Writer{
		sink:   sink,
		cfg:    cfg,
		logger: logger,
	}
}

// WriteBatch attempts the bulk insert, retrying transient failures with
// exponential backoff. On terminal failure it returns a *WriteError; the
// batch is the caller's to drop. Never called with an empty batch.
func (w *Writer) WriteBatch(ctx context.Context, ticks []model.Tick) (int, error) {
	var lastErr error
	backoff := w.cfg.BackoffBase

	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			// Jitter: backoff * (0.5 to 1.5)
			jitter := backoff/2 + time.Duration(rand.Int63n(int64(backoff)))
			w.logger.Debug("retrying batch write",
				"attempt", attempt,
				"backoff", jitter,
				"count", len(ticks),
			)

			select {
			case <-ctx.Done():
				return 0, &WriteError{Attempts: attempt - 1, Err: ctx.Err()}
			case <-time.After(jitter):
			}

			backoff *= 2
			if backoff > w.cfg.BackoffCap {
				backoff = w.cfg.BackoffCap
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, w.cfg.WriteTimeout)
		inserted, err := w.sink.InsertBatch(attemptCtx, ticks)
		cancel()

		if err == nil {
			return inserted, nil
		}
		lastErr = err

		if isPermanent(err) {
			w.logger.Error("permanent write failure, batch not retried",
				"error", err,
				"count", len(ticks),
				"symbols", symbolRange(ticks),
			)
			return 0, &WriteError{Permanent: true, Attempts: attempt, Err: err}
		}
		if ctx.Err() != nil {
			return 0, &WriteError{Attempts: attempt, Err: err}
		}

		w.logger.Warn("transient write failure",
			"error", err,
			"attempt", attempt,
			"max_attempts", w.cfg.MaxAttempts,
			"count", len(ticks),
		)
	}

	return 0, &WriteError{Attempts: w.cfg.MaxAttempts, Err: lastErr}
}

// isPermanent reports whether a sink error should not be retried.
// Duplicate keys never surface here (the insert skips them), so any
// integrity, data, or syntax error indicates a bug or bad payload that
// retrying cannot fix.
func isPermanent(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || len(pgErr.Code) < 2 {
		return false
	}
	switch pgErr.Code[:2] {
	case "22", "23", "42": // data exception, integrity violation, syntax/access
		return true
	}
	return false
}

// symbolRange summarizes the symbols in a batch for failure logs.
func symbolRange(ticks []model.Tick) string {
	seen := make(map[string]struct{}, 4)
	names := make([]string, 0, 4)
	for _, t := range ticks {
		if _, ok := seen[t.Symbol]; ok {
			continue
		}
		seen[t.Symbol] = struct{}{}
		names = append(names, t.Symbol)
		if len(names) == 4 {
			names = append(names, "...")
			break
		}
	}
	return strings.Join(names, ",")
}
