// Package config loads and validates the inference server's configuration
// file using viper and mapstructure tags, with defaults for optional
// server settings.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// DefaultConfigPath is used when CONFIG_PATH is unset.
const DefaultConfigPath = "config.yaml"

// ConfigError wraps a configuration problem. Fatal at startup: the process
// should not attempt to run with an invalid or unreadable configuration.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("config: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ModelConfig describes one configured model. Immutable after Load.
type ModelConfig struct {
	Name string `mapstructure:"name"`
	Path string `mapstructure:"path"`
}

// ServerConfig holds transport and worker sizing. Immutable after Load.
type ServerConfig struct {
	HTTPPort       int           `mapstructure:"http_port"`
	GRPCPort       int           `mapstructure:"grpc_port"`
	BufferSize     int           `mapstructure:"buffer_size"`
	NumThreads     int           `mapstructure:"num_threads"`
	BindAddress    string        `mapstructure:"bind_address"`
	EnqueueTimeout time.Duration `mapstructure:"enqueue_timeout"`
}

// Config is the immutable, process-wide configuration snapshot.
type Config struct {
	LogLevel string        `mapstructure:"log_level"`
	Models   []ModelConfig `mapstructure:"models"`
	Server   ServerConfig  `mapstructure:"server"`
}

// Load reads and validates the configuration file at path. If path is
// empty, CONFIG_PATH is consulted, falling back to DefaultConfigPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = DefaultConfigPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("log_level", "info")
	v.SetDefault("server.bind_address", "0.0.0.0")
	v.SetDefault("server.buffer_size", 16)
	v.SetDefault("server.num_threads", 1)
	v.SetDefault("server.enqueue_timeout", 5*time.Second)

	if err := v.ReadInConfig(); err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("failed to read %s", path), Err: err}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Reason: "failed to decode configuration", Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Reason: "invalid configuration", Err: err}
	}

	return &cfg, nil
}

// Validate enforces: unique non-empty model names, distinct 16-bit ports,
// buffer_size >= 1, num_threads >= 1.
func (c *Config) Validate() error {
	if len(c.Models) == 0 {
		return fmt.Errorf("at least one model must be configured")
	}

	seen := make(map[string]struct{}, len(c.Models))
	for _, m := range c.Models {
		if m.Name == "" {
			return fmt.Errorf("model name must not be empty")
		}
		if m.Path == "" {
			return fmt.Errorf("model %q: path must not be empty", m.Name)
		}
		if _, dup := seen[m.Name]; dup {
			return fmt.Errorf("duplicate model name %q", m.Name)
		}
		seen[m.Name] = struct{}{}
	}

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port out of range: %d", c.Server.HTTPPort)
	}
	if c.Server.GRPCPort <= 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port out of range: %d", c.Server.GRPCPort)
	}
	if c.Server.HTTPPort == c.Server.GRPCPort {
		return fmt.Errorf("server.http_port and server.grpc_port must differ")
	}
	if c.Server.BufferSize < 1 {
		return fmt.Errorf("server.buffer_size must be >= 1")
	}
	if c.Server.NumThreads < 1 {
		return fmt.Errorf("server.num_threads must be >= 1")
	}

	return nil
}

// ModelNames returns the configured model names in config order.
func (c *Config) ModelNames() []string {
	names := make([]string, len(c.Models))
	for i, m := range c.Models {
		names[i] = m.Name
	}
	return names
}
