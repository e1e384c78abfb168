package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"saldo/internal/log"
)

type Config struct {
	// HTTP Server
	Host         string        `env:"HOST" envDefault:"localhost"`
	Port         string        `env:"PORT" envDefault:"5000"`
	IndexPath    string        `env:"INDEX_PATH" envDefault:"index.html"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Database
	DBPath string `env:"DB_PATH" envDefault:"expenses.db"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// AMQP (optional, events are disabled when the URL is empty)
	AMQPURL        string `env:"AMQP_URL"`
	AMQPExchange   string `env:"AMQP_EXCHANGE" envDefault:"saldo"`
	AMQPRoutingKey string `env:"AMQP_ROUTING_KEY" envDefault:"expense_events"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// .env is a local development convenience; absence is fine.
	_ = godotenv.Load()
	return parse(env.Options{})
}

// LoadFromMap builds a configuration from explicit key/value pairs instead of
// the process environment.
func LoadFromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// AMQPEnabled reports whether expense events should be published.
func (c *Config) AMQPEnabled() bool {
	return strings.TrimSpace(c.AMQPURL) != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.DBPath) == "" {
		errors = append(errors, "database path cannot be empty")
	} else if dir := filepath.Dir(c.DBPath); dir != "." && dir != "" {
		if info, err := os.Stat(dir); err == nil && !info.IsDir() {
			errors = append(errors, fmt.Sprintf("database directory '%s' is not a directory", dir))
		}
	}

	if strings.TrimSpace(c.IndexPath) == "" {
		errors = append(errors, "index path cannot be empty")
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		errors = append(errors, "read and write timeouts must be positive")
	}
	if c.ShutdownTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}

	if c.AMQPEnabled() {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRoutingKey == "" {
			errors = append(errors, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}
