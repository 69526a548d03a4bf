package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *PersisterConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Database.Name == "" {
		return errors.New("database.name is required")
	}
	if c.Database.User == "" {
		return errors.New("database.user is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("database.port must be between 1 and 65535, got %d", c.Database.Port)
	}

	if c.Persister.QueueCapacity < 1 {
		return errors.New("persister.queue_capacity must be >= 1")
	}
	if c.Persister.BatchSize < 1 {
		return errors.New("persister.batch_size must be >= 1")
	}
	if c.Persister.BatchSize > c.Persister.QueueCapacity {
		return fmt.Errorf("persister.batch_size (%d) must not exceed queue_capacity (%d)",
			c.Persister.BatchSize, c.Persister.QueueCapacity)
	}
	if c.Persister.MaxWriteAttempts < 1 {
		return errors.New("persister.max_write_attempts must be >= 1")
	}
	if c.Persister.BackoffCap < c.Persister.BackoffBase {
		return errors.New("persister.backoff_cap must be >= backoff_base")
	}

	switch c.Source.Mode {
	case "poll":
		if c.Source.BridgeURL == "" {
			return errors.New("source.bridge_url is required in poll mode")
		}
		if len(c.Source.Symbols) == 0 {
			return errors.New("source.symbols is required in poll mode")
		}
		if c.Source.PollConcurrency < 1 {
			return errors.New("source.poll_concurrency must be >= 1")
		}
	case "stream":
		if c.Source.StreamURL == "" {
			return errors.New("source.stream_url is required in stream mode")
		}
	default:
		return fmt.Errorf("source.mode must be \"poll\" or \"stream\", got %q", c.Source.Mode)
	}

	if c.Health.Port < 1 || c.Health.Port > 65535 {
		return fmt.Errorf("health.port must be between 1 and 65535, got %d", c.Health.Port)
	}

	return nil
}
