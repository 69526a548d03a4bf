package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load is the single entry point for configuration: it reads a YAML file,
// expands ${VAR} environment references, fills unset optional fields with
// defaults, and validates the result. A config that loads is ready to use.
func Load(path string) (*PersisterConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg PersisterConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
