package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultDBPort    = 5432
	DefaultDBSSLMode = "prefer"
	DefaultDBSchema  = "trading"
	DefaultDBTable   = "mt5_ticks"
	DefaultMaxConns  = 5
	DefaultMinConns  = 1

	DefaultQueueCapacity    = 1000
	DefaultBatchSize        = 20
	DefaultBatchAge         = 5 * time.Second
	DefaultFlushInterval    = 250 * time.Millisecond
	DefaultDrainTimeout     = 10 * time.Second
	DefaultMaxWriteAttempts = 3
	DefaultBackoffBase      = 1 * time.Second
	DefaultBackoffCap       = 60 * time.Second
	DefaultWriteTimeout     = 10 * time.Second

	DefaultSourceMode         = "poll"
	DefaultPollInterval       = 1 * time.Second
	DefaultPollConcurrency    = 10
	DefaultPollTimeout        = 5 * time.Second
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 60 * time.Second
	DefaultReadTimeout        = 30 * time.Second

	DefaultHealthPort = 8080
)

func (c *PersisterConfig) applyDefaults() {
	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.Schema == "" {
		c.Database.Schema = DefaultDBSchema
	}
	if c.Database.Table == "" {
		c.Database.Table = DefaultDBTable
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Pipeline defaults
	if c.Persister.QueueCapacity == 0 {
		c.Persister.QueueCapacity = DefaultQueueCapacity
	}
	if c.Persister.BatchSize == 0 {
		c.Persister.BatchSize = DefaultBatchSize
	}
	if c.Persister.BatchAge == 0 {
		c.Persister.BatchAge = DefaultBatchAge
	}
	if c.Persister.FlushInterval == 0 {
		c.Persister.FlushInterval = DefaultFlushInterval
	}
	if c.Persister.DrainTimeout == 0 {
		c.Persister.DrainTimeout = DefaultDrainTimeout
	}
	if c.Persister.MaxWriteAttempts == 0 {
		c.Persister.MaxWriteAttempts = DefaultMaxWriteAttempts
	}
	if c.Persister.BackoffBase == 0 {
		c.Persister.BackoffBase = DefaultBackoffBase
	}
	if c.Persister.BackoffCap == 0 {
		c.Persister.BackoffCap = DefaultBackoffCap
	}
	if c.Persister.WriteTimeout == 0 {
		c.Persister.WriteTimeout = DefaultWriteTimeout
	}

	// Source defaults
	if c.Source.Mode == "" {
		c.Source.Mode = DefaultSourceMode
	}
	if c.Source.PollInterval == 0 {
		c.Source.PollInterval = DefaultPollInterval
	}
	if c.Source.PollConcurrency == 0 {
		c.Source.PollConcurrency = DefaultPollConcurrency
	}
	if c.Source.PollTimeout == 0 {
		c.Source.PollTimeout = DefaultPollTimeout
	}
	if c.Source.ReconnectBaseDelay == 0 {
		c.Source.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Source.ReconnectMaxDelay == 0 {
		c.Source.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Source.ReadTimeout == 0 {
		c.Source.ReadTimeout = DefaultReadTimeout
	}

	// Health defaults
	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
}
