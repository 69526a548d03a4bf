package source

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gfduarte/mt5-tickdata/internal/model"
	"github.com/gfduarte/mt5-tickdata/internal/persister"
)

// StreamConfig holds streaming source configuration.
type StreamConfig struct {
	URL           string
	ReconnectBase time.Duration // Initial reconnect delay (default: 1s)
	ReconnectMax  time.Duration // Reconnect delay cap (default: 60s)
	ReadTimeout   time.Duration // Per-message read deadline (default: 30s)
}

// DefaultStreamConfig returns sensible defaults.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectBase: time.Second,
		ReconnectMax:  60 * time.Second,
		ReadTimeout:   30 * time.Second,
	}
}

// StreamClient consumes a bridge WebSocket feed of JSON ticks and feeds
// them to the sink. Connection drops trigger reconnection with jittered
// exponential backoff; the backoff resets after each successful connect.
type StreamClient struct {
	cfg    StreamConfig
	sink   TickSink
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	conn *websocket.Conn

	received   atomic.Int64
	rejected   atomic.Int64
	malformed  atomic.Int64
	reconnects atomic.Int64
}

// NewStreamClient creates a new StreamClient.
func NewStreamClient(cfg StreamConfig, sink TickSink, logger *slog.Logger) *StreamClient {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultStreamConfig()
	if cfg.ReconnectBase <= 0 {
		cfg.ReconnectBase = def.ReconnectBase
	}
	if cfg.ReconnectMax <= 0 {
		cfg.ReconnectMax = def.ReconnectMax
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	return &StreamClient{
		cfg:    cfg,
		sink:   sink,
		logger: logger,
	}
}

// Start begins consuming the feed.
func (s *StreamClient) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("tick stream started", "url", s.cfg.URL)

	return nil
}

// Stop gracefully shuts down the stream client.
func (s *StreamClient) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	// Closing the connection unblocks a pending ReadMessage.
	s.mu.Lock()
	if s.conn != nil {
		s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("tick stream stopped",
			"received", s.received.Load(),
			"rejected", s.rejected.Load(),
			"malformed", s.malformed.Load(),
			"reconnects", s.reconnects.Load(),
		)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the connect/read/reconnect loop.
func (s *StreamClient) run() {
	defer s.wg.Done()

	backoff := s.cfg.ReconnectBase

	for {
		if s.ctx.Err() != nil {
			return
		}

		conn, err := s.connect()
		if err != nil {
			s.logger.Warn("stream connect failed",
				"url", s.cfg.URL,
				"retry_in", backoff,
				"err", err,
			)
			if !s.sleep(backoff) {
				return
			}
			backoff = min(backoff*2, s.cfg.ReconnectMax)
			continue
		}

		backoff = s.cfg.ReconnectBase

		err = s.readLoop(conn)
		if s.ctx.Err() != nil {
			return
		}

		s.reconnects.Add(1)
		s.logger.Warn("stream disconnected, reconnecting", "err", err)
	}
}

// connect dials the feed and records the connection for Stop.
func (s *StreamClient) connect() (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(s.ctx, s.cfg.URL, nil)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	s.logger.Debug("stream connected", "url", s.cfg.URL)

	return conn, nil
}

// readLoop reads and enqueues ticks until the connection fails.
func (s *StreamClient) readLoop(conn *websocket.Conn) error {
	defer conn.Close()

	for {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))

		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var raw model.RawTick
		if err := json.Unmarshal(data, &raw); err != nil {
			s.malformed.Add(1)
			s.logger.Warn("malformed tick message", "err", err)
			continue
		}

		if err := s.sink.Enqueue(raw); err != nil {
			switch {
			case errors.Is(err, persister.ErrQueueFull):
				s.rejected.Add(1)
			case errors.Is(err, persister.ErrNotRunning):
				return err
			default:
				s.malformed.Add(1)
				s.logger.Warn("tick rejected", "symbol", raw.Symbol, "err", err)
			}
			continue
		}

		s.received.Add(1)
	}
}

// sleep waits for d plus jitter, returning false if the client is stopping.
func (s *StreamClient) sleep(d time.Duration) bool {
	jittered := d/2 + time.Duration(rand.Int63n(int64(d)))

	select {
	case <-time.After(jittered):
		return true
	case <-s.ctx.Done():
		return false
	}
}
