package config

import "time"

// PersisterConfig is the root configuration for a persister instance.
type PersisterConfig struct {
	Instance  InstanceConfig `yaml:"instance"`
	Database  DBConfig       `yaml:"database"`
	Persister PipelineConfig `yaml:"persister"`
	Source    SourceConfig   `yaml:"source"`
	Health    HealthConfig   `yaml:"health"`
}

// InstanceConfig identifies this persister.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// DBConfig holds the PostgreSQL connection for the tick store.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
	Schema   string `yaml:"schema"`
	Table    string `yaml:"table"`
}

// PipelineConfig holds queue, batching, and retry settings.
type PipelineConfig struct {
	QueueCapacity    int           `yaml:"queue_capacity"`
	BatchSize        int           `yaml:"batch_size"`
	BatchAge         time.Duration `yaml:"batch_age"`
	FlushInterval    time.Duration `yaml:"flush_interval"`
	DrainTimeout     time.Duration `yaml:"drain_timeout"`
	MaxWriteAttempts int           `yaml:"max_write_attempts"`
	BackoffBase      time.Duration `yaml:"backoff_base"`
	BackoffCap       time.Duration `yaml:"backoff_cap"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
}

// SourceConfig holds tick source settings. Mode selects between polling
// the terminal ("poll") and a bridge WebSocket feed ("stream").
type SourceConfig struct {
	Mode    string   `yaml:"mode"`
	Symbols []string `yaml:"symbols"`

	BridgeURL       string        `yaml:"bridge_url"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	PollConcurrency int           `yaml:"poll_concurrency"`
	PollTimeout     time.Duration `yaml:"poll_timeout"`

	StreamURL          string        `yaml:"stream_url"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	ReadTimeout        time.Duration `yaml:"read_timeout"`
}

// HealthConfig holds the health/stats HTTP endpoint settings.
type HealthConfig struct {
	Port int `yaml:"port"`
}
