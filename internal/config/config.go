// Package config holds the serve-mode configuration: defaults from struct
// tags, optional YAML file overrides, validation before anything starts.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config is the full serve configuration.
type Config struct {
	// Addr is the listen address.
	Addr string `yaml:"addr" default:":8080" validate:"required"`

	// DefinitionsDir is the content-store root holding the processes/ and
	// tasks/ namespaces.
	DefinitionsDir string `yaml:"definitions_dir" default:"./definitions" validate:"required"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" default:"info" validate:"oneof=debug info warn error"`

	Store StoreConfig `yaml:"store"`
}

// StoreConfig selects and configures the state store backend.
type StoreConfig struct {
	// Backend is one of memory, file, redis.
	Backend string `yaml:"backend" default:"file" validate:"oneof=memory file redis"`

	// Path is the session directory for the file backend.
	Path string `yaml:"path" default:".onramp/sessions"`

	// EncryptionKey, when set, enables AES-256-GCM encryption of session
	// records at rest. Base64-encoded 32-byte key.
	EncryptionKey string `yaml:"encryption_key"`

	// EncryptionFallbackKeys are previous keys tried during key rotation.
	EncryptionFallbackKeys []string `yaml:"encryption_fallback_keys"`

	// ScrubFields are patterns of input field names masked once a session
	// reaches the terminal step.
	ScrubFields []string `yaml:"scrub_fields"`

	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string        `yaml:"addr" default:"localhost:6379" validate:"hostname_port"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" default:"0" validate:"gte=0,lte=15"`
	TTL      time.Duration `yaml:"ttl"`

	// Lock enables the distributed per-subject locker.
	Lock bool `yaml:"lock"`
}

// Load builds a Config: defaults, then the YAML file when path is
// non-empty, then validation.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the config against its struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) {
			msgs := make([]string, 0, len(fields))
			for _, f := range fields {
				msgs = append(msgs, fmt.Sprintf("field %s failed rule %s", f.Namespace(), f.Tag()))
			}
			return fmt.Errorf("invalid config:\n  - %s", strings.Join(msgs, "\n  - "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
