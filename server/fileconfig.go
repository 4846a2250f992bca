package server

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
)

// Defaults match the reference backend deployment.
const (
	DefaultListenAddr  = "127.0.0.1:12345"
	DefaultBufferSize  = 1024
	DefaultMaxSessions = 1
)

// Config represents the simd server configuration file structure.
// Designed for extensibility - new sections can be added without
// breaking existing configs.
type Config struct {
	// Listen is the host:port the TCP listener binds.
	Listen string `yaml:"listen" validate:"hostname_port"`

	// BufferSize is the maximum number of bytes read from a connection
	// in one chunk. Echoes preserve chunk boundaries, so this also caps
	// the size of a single echoed write.
	BufferSize int `yaml:"bufferSize" validate:"omitempty,min=1"`

	// MaxSessions bounds how many sessions run at once. 1 serves
	// strictly one connection at a time in accept order. Values above 1
	// allow that many concurrent sessions. Zero or negative means
	// unbounded.
	MaxSessions int `yaml:"maxSessions"`
}

// LoadConfig loads a YAML configuration file. Settings absent from the
// file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error decoding config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Listen:      DefaultListenAddr,
		BufferSize:  DefaultBufferSize,
		MaxSessions: DefaultMaxSessions,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
