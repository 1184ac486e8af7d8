package apool

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the service configuration.
// It can be populated from YAML or JSON. ParseConfig decodes on top of
// DefaultConfig, so fields absent from the input keep their defaults;
// values set explicitly, including zero, are used as given.
type Config struct {
	Pool    PoolConfig    `json:"pool" yaml:"pool"`
	Spawner SpawnerConfig `json:"spawner" yaml:"spawner"`
}

// PoolConfig configures the pool core.
type PoolConfig struct {
	// Max caps the total number of worker processes.
	Max int `json:"max" yaml:"max"`

	// MaxPerApp caps the workers of a single application; zero means
	// unbounded.
	MaxPerApp int `json:"maxPerApp" yaml:"maxPerApp"`

	// MaxIdleTimeSec is how long a worker may sit idle before it is
	// retired; zero disables idle retirement.
	MaxIdleTimeSec int `json:"maxIdleTimeSec" yaml:"maxIdleTimeSec"`
}

// MaxIdleTime returns the idle threshold as a duration.
func (c *PoolConfig) MaxIdleTime() time.Duration {
	return time.Duration(c.MaxIdleTimeSec) * time.Second
}

// SpawnerConfig configures the default command spawner used when no
// spawner is injected.
type SpawnerConfig struct {
	StartCommand  string            `json:"startCommand" yaml:"startCommand"`
	ReloadCommand string            `json:"reloadCommand,omitempty" yaml:"reloadCommand,omitempty"`
	Env           map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() *Config {
	return &Config{
		Pool: PoolConfig{
			Max:            20,
			MaxPerApp:      0,
			MaxIdleTimeSec: 120,
		},
	}
}

// ParseConfig decodes YAML data on top of the defaults.
func ParseConfig(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate returns an error describing invalid settings, or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Pool.Max <= 0 {
		return fmt.Errorf("pool.max must be > 0")
	}
	if c.Pool.MaxPerApp < 0 {
		return fmt.Errorf("pool.maxPerApp must be >= 0")
	}
	if c.Pool.MaxIdleTimeSec < 0 {
		return fmt.Errorf("pool.maxIdleTimeSec must be >= 0")
	}
	return nil
}
