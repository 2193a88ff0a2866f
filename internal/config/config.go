// Package config loads the rewind.yml file used by `rewind serve`.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// Version is the only supported config file version.
const Version = "1"

// Defaults applied before validation.
const (
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultAddr        = "127.0.0.1:7070"
	DefaultSendTimeout = 5 * time.Second
)

// Config is the top-level rewind.yml configuration.
type Config struct {
	Version   string          `yaml:"version" validate:"required,eq=1"`
	Log       LogConfig       `yaml:"log"`
	DevServer DevServerConfig `yaml:"devserver"`
	DevTools  DevToolsConfig  `yaml:"devtools"`
	Redis     *RedisConfig    `yaml:"redis,omitempty"`
	Journal   *JournalConfig  `yaml:"journal,omitempty"`
}

// LogConfig selects the slog handler installed by the CLI.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// DevServerConfig configures the devtools WebSocket server.
type DevServerConfig struct {
	Addr string `yaml:"addr" validate:"required,hostname_port"`
}

// DevToolsConfig tunes the devtools bridge.
type DevToolsConfig struct {
	SendTimeout time.Duration `yaml:"send_timeout" validate:"gte=0"`
}

// RedisConfig enables the Redis devtools relay.
type RedisConfig struct {
	Addr     string `yaml:"addr" validate:"required,hostname_port"`
	Instance string `yaml:"instance" validate:"required,excludesall=: "`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty" validate:"gte=0,lte=15"`
}

// JournalConfig enables the SQLite session journal.
type JournalConfig struct {
	Path    string `yaml:"path" validate:"required"`
	Session string `yaml:"session,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config, rejecting unknown fields, applies defaults,
// and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Default returns a valid configuration with every default applied.
func Default() *Config {
	cfg := &Config{Version: Version}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.DevServer.Addr == "" {
		c.DevServer.Addr = DefaultAddr
	}
	if c.DevTools.SendTimeout == 0 {
		c.DevTools.SendTimeout = DefaultSendTimeout
	}
}

// Validate checks struct tags and reports the first violation per field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "eq":
		return fmt.Sprintf("%s must be %q (got %v)", field, fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got %v)", field, fe.Param(), fe.Value())
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port (got %v)", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %q validation", field, fe.Tag())
	}
}

// SlogLevel maps Log.Level to a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Options converts the relay settings to go-redis client options.
func (r *RedisConfig) Options() *redis.Options {
	return &redis.Options{
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,
	}
}
