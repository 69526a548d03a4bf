package persister

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gfduarte/mt5-tickdata/internal/model"
)

// Sink performs one bulk, idempotent insert. Re-submitting rows whose
// (symbol, ts) key already exists must skip them silently and report only
// the newly inserted count.
type Sink interface {
	InsertBatch(ctx context.Context, ticks []model.Tick) (inserted int, err error)
}

// PGSink writes tick batches to a PostgreSQL table keyed by (symbol, ts).
type PGSink struct {
	db     *pgxpool.Pool
	logger *slog.Logger

	insertSQL string
}

// NewPGSink creates a sink writing to schema.table.
func NewPGSink(db *pgxpool.Pool, schema, table string, logger *slog.Logger) *PGSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &PGSink{
		db:     db,
		logger: logger,
		insertSQL: fmt.Sprintf(`
			INSERT INTO %s (symbol, ts, bid, ask, last, volume)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (symbol, ts) DO NOTHING
		`, pgx.Identifier{schema, table}.Sanitize()),
	}
}

// InsertBatch inserts rows using pgx.Batch in one round-trip.
// Conflicting rows report zero affected rows and are counted as skipped.
func (s *PGSink) InsertBatch(ctx context.Context, ticks []model.Tick) (inserted int, err error) {
	batch := &pgx.Batch{}
	for _, t := range ticks {
		batch.Queue(s.insertSQL, t.Symbol, t.TS, t.Bid, t.Ask, t.Last, t.Volume)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	for range ticks {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() > 0 {
			inserted++
		}
	}

	return inserted, nil
}
