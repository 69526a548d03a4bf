package source

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gfduarte/mt5-tickdata/internal/model"
	"github.com/gfduarte/mt5-tickdata/internal/persister"
)

// TickFetcher returns the most recent tick for a symbol. Implementations
// wrap whatever call the terminal bridge exposes.
type TickFetcher interface {
	LatestTick(ctx context.Context, symbol string) (model.RawTick, error)
}

// TickFetcherFunc is a function adapter for TickFetcher.
type TickFetcherFunc func(ctx context.Context, symbol string) (model.RawTick, error)

func (f TickFetcherFunc) LatestTick(ctx context.Context, symbol string) (model.RawTick, error) {
	return f(ctx, symbol)
}

// TickSink receives normalized ticks. Satisfied by persister.Supervisor.
type TickSink interface {
	Enqueue(raw model.RawTick) error
}

// PollerConfig holds polling source configuration.
type PollerConfig struct {
	Symbols     []string
	Interval    time.Duration // Poll interval (default: 1s)
	Concurrency int           // Max concurrent fetches (default: 10)
	Timeout     time.Duration // Per-fetch timeout (default: 5s)
}

// DefaultPollerConfig returns sensible defaults.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval:    time.Second,
		Concurrency: 10,
		Timeout:     5 * time.Second,
	}
}

// Poller periodically fetches the latest tick for each configured symbol
// and feeds it to the sink. Consecutive fetches of an unchanged tick
// (same symbol, same millisecond timestamp) are skipped so that a quiet
// symbol does not flood the queue with duplicates.
type Poller struct {
	cfg     PollerConfig
	fetcher TickFetcher
	sink    TickSink
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	lastSeen map[string]int64 // symbol -> time_msc of last enqueued tick

	fetched  atomic.Int64
	skipped  atomic.Int64
	rejected atomic.Int64
	errors   atomic.Int64
}

// NewPoller creates a new Poller.
func NewPoller(cfg PollerConfig, fetcher TickFetcher, sink TickSink, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollerConfig().Interval
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultPollerConfig().Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultPollerConfig().Timeout
	}
	return &Poller{
		cfg:      cfg,
		fetcher:  fetcher,
		sink:     sink,
		logger:   logger,
		lastSeen: make(map[string]int64, len(cfg.Symbols)),
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("tick poller started",
		"symbols", len(p.cfg.Symbols),
		"interval", p.cfg.Interval,
		"concurrency", p.cfg.Concurrency,
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("tick poller stopped",
			"fetched", p.fetched.Load(),
			"skipped", p.skipped.Load(),
			"rejected", p.rejected.Load(),
			"errors", p.errors.Load(),
		)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.pollAll()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.pollAll()
		}
	}
}

// pollAll fetches the latest tick for every symbol concurrently.
func (p *Poller) pollAll() {
	if len(p.cfg.Symbols) == 0 {
		return
	}

	// Semaphore for bounded concurrency.
	sem := make(chan struct{}, p.cfg.Concurrency)
	var wg sync.WaitGroup

	for _, symbol := range p.cfg.Symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()

			// Acquire semaphore slot.
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-p.ctx.Done():
				return
			}

			if err := p.pollSymbol(symbol); err != nil {
				p.logger.Warn("failed to poll symbol",
					"symbol", symbol,
					"err", err,
				)
				p.errors.Add(1)
			}
		}(symbol)
	}

	wg.Wait()
}

// pollSymbol fetches and enqueues a single symbol's latest tick.
func (p *Poller) pollSymbol(symbol string) error {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	raw, err := p.fetcher.LatestTick(ctx, symbol)
	if err != nil {
		return err
	}

	if !p.advance(symbol, raw.Time) {
		p.skipped.Add(1)
		return nil
	}

	if err := p.sink.Enqueue(raw); err != nil {
		if errors.Is(err, persister.ErrQueueFull) {
			p.rejected.Add(1)
			p.logger.Warn("tick rejected by full queue", "symbol", symbol)
			return nil
		}
		return err
	}

	p.fetched.Add(1)
	return nil
}

// advance records the tick timestamp and reports whether it is newer than
// the last tick enqueued for the symbol.
func (p *Poller) advance(symbol string, timeMS int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if last, ok := p.lastSeen[symbol]; ok && timeMS <= last {
		return false
	}
	p.lastSeen[symbol] = timeMS
	return true
}
