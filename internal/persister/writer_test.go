package persister

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gfduarte/mt5-tickdata/internal/model"
)

// fakeSink is an in-memory Sink with scriptable failures and natural-key
// deduplication matching the real table's ON CONFLICT behavior.
type fakeSink struct {
	mu       sync.Mutex
	rows     map[string]model.Tick
	failures int   // fail this many calls before succeeding
	failErr  error // error to return while failing (default: generic)
	calls    int
	batches  [][]model.Tick
}

func newFakeSink() *fakeSink {
	return &fakeSink{rows: make(map[string]model.Tick)}
}

func (f *fakeSink) InsertBatch(ctx context.Context, ticks []model.Tick) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.failures != 0 {
		if f.failures > 0 {
			f.failures--
		}
		if f.failErr != nil {
			return 0, f.failErr
		}
		return 0, errors.New("connection refused")
	}

	inserted := 0
	for _, t := range ticks {
		if _, exists := f.rows[t.Key()]; exists {
			continue
		}
		f.rows[t.Key()] = t
		inserted++
	}
	f.batches = append(f.batches, append([]model.Tick(nil), ticks...))
	return inserted, nil
}

func (f *fakeSink) rowCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func (f *fakeSink) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fastWriterConfig() WriterConfig {
	return WriterConfig{
		MaxAttempts:  3,
		BackoffBase:  time.Millisecond,
		BackoffCap:   5 * time.Millisecond,
		WriteTimeout: time.Second,
	}
}

func makeTicks(t *testing.T, symbol string, baseMS int64, n int) []model.Tick {
	t.Helper()
	ticks := make([]model.Tick, 0, n)
	for i := 0; i < n; i++ {
		tick, err := model.NewTick(model.RawTick{
			Symbol: symbol,
			Time:   baseMS + int64(i)*1000,
			Bid:    8.51,
			Ask:    8.53,
			Last:   8.52,
			Volume: 10,
		})
		if err != nil {
			t.Fatalf("NewTick() error = %v", err)
		}
		ticks = append(ticks, tick)
	}
	return ticks
}

func TestWriter_SucceedsFirstAttempt(t *testing.T) {
	sink := newFakeSink()
	w := NewWriter(sink, fastWriterConfig(), nil)

	ticks := makeTicks(t, "ITSA3", 100_000, 5)
	inserted, err := w.WriteBatch(context.Background(), ticks)
	if err != nil {
		t.Fatalf("WriteBatch() error = %v", err)
	}
	if inserted != 5 {
		t.Errorf("inserted = %d, want 5", inserted)
	}
	if sink.callCount() != 1 {
		t.Errorf("sink calls = %d, want 1", sink.callCount())
	}
}

func TestWriter_RetriesTransientThenSucceeds(t *testing.T) {
	sink := newFakeSink()
	sink.failures = 2
	w := NewWriter(sink, fastWriterConfig(), nil)

	ticks := makeTicks(t, "ITSA3", 100_000, 4)
	inserted, err := w.WriteBatch(context.Background(), ticks)
	if err != nil {
		t.Fatalf("WriteBatch() error = %v, want success on 3rd attempt", err)
	}
	if inserted != 4 {
		t.Errorf("inserted = %d, want 4", inserted)
	}
	if sink.callCount() != 3 {
		t.Errorf("sink calls = %d, want 3", sink.callCount())
	}
}

func TestWriter_BoundedRetryThenFails(t *testing.T) {
	sink := newFakeSink()
	sink.failures = -1 // never succeed
	w := NewWriter(sink, fastWriterConfig(), nil)

	_, err := w.WriteBatch(context.Background(), makeTicks(t, "ITSA3", 100_000, 3))
	if err == nil {
		t.Fatal("WriteBatch() error = nil, want terminal failure")
	}

	var werr *WriteError
	if !errors.As(err, &werr) {
		t.Fatalf("error type = %T, want *WriteError", err)
	}
	if werr.Permanent {
		t.Error("Permanent = true, want false for transient exhaustion")
	}
	if werr.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", werr.Attempts)
	}
	if sink.callCount() != 3 {
		t.Errorf("sink calls = %d, want exactly 3", sink.callCount())
	}
	if sink.rowCount() != 0 {
		t.Errorf("rows = %d, want 0", sink.rowCount())
	}
}

func TestWriter_PermanentErrorNotRetried(t *testing.T) {
	sink := newFakeSink()
	sink.failures = -1
	sink.failErr = &pgconn.PgError{Code: "23502", Message: "null value in column"}
	w := NewWriter(sink, fastWriterConfig(), nil)

	_, err := w.WriteBatch(context.Background(), makeTicks(t, "ITSA3", 100_000, 2))

	var werr *WriteError
	if !errors.As(err, &werr) {
		t.Fatalf("error type = %T, want *WriteError", err)
	}
	if !werr.Permanent {
		t.Error("Permanent = false, want true")
	}
	if sink.callCount() != 1 {
		t.Errorf("sink calls = %d, want 1 (no retry)", sink.callCount())
	}
}

func TestWriter_ContextCancelAbortsRetry(t *testing.T) {
	sink := newFakeSink()
	sink.failures = -1
	cfg := fastWriterConfig()
	cfg.BackoffBase = time.Hour // cancel must interrupt the backoff sleep
	w := NewWriter(sink, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := w.WriteBatch(ctx, makeTicks(t, "ITSA3", 100_000, 1))
	if err == nil {
		t.Fatal("WriteBatch() error = nil, want cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want wrapped context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("WriteBatch blocked %v after cancel", elapsed)
	}
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"not-null violation", &pgconn.PgError{Code: "23502"}, true},
		{"invalid text representation", &pgconn.PgError{Code: "22P02"}, true},
		{"undefined table", &pgconn.PgError{Code: "42P01"}, true},
		{"connection failure", &pgconn.PgError{Code: "08006"}, false},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, false},
		{"plain error", errors.New("dial tcp: refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isPermanent(tt.err); got != tt.want {
				t.Errorf("isPermanent(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestSymbolRange(t *testing.T) {
	var ticks []model.Tick
	for _, sym := range []string{"ITSA3", "ITSA3", "PETR4", "VALE3", "WEGE3", "BBAS3", "ABEV3"} {
		ticks = append(ticks, model.Tick{Symbol: sym})
	}

	got := symbolRange(ticks)
	want := "ITSA3,PETR4,VALE3,WEGE3,..."
	if got != want {
		t.Errorf("symbolRange() = %q, want %q", got, want)
	}
}
