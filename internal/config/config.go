// Package config provides layered configuration for the CLI and the HTTP
// server. Values come from struct tag defaults, an optional YAML file,
// environment variables and explicitly set command line flags, in that order
// of increasing precedence. The result is validated before use so
// misconfiguration fails fast.
package config

import (
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// DataDir holds the recipe's input and output files (default: data)
	DataDir string `koanf:"data_dir" env:"PARAPREP_DATA_DIR" default:"data"`

	// Recipe selects the preparation recipe (default: paralympics)
	Recipe string `koanf:"recipe" env:"PARAPREP_RECIPE" default:"paralympics"`

	// RawFile overrides the recipe's raw input path
	RawFile string `koanf:"raw_file" env:"PARAPREP_RAW_FILE"`

	// ReferenceFile overrides the recipe's reference table path
	ReferenceFile string `koanf:"reference_file" env:"PARAPREP_REFERENCE_FILE"`

	// OutputFile overrides the recipe's prepared CSV path
	OutputFile string `koanf:"output_file" env:"PARAPREP_OUTPUT_FILE"`

	// Inspect renders the table state after every step (default: false)
	Inspect bool `koanf:"inspect" env:"PARAPREP_INSPECT" default:"false"`

	Store   StoreConfig   `koanf:"store"`
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"log"`

	// File is the configuration file that was loaded, if any.
	File string `koanf:"-"`
}

// StoreConfig holds the optional database sinks.
type StoreConfig struct {
	// SQLite is a database file the prepared table is also written to
	SQLite string `koanf:"sqlite" env:"PARAPREP_SQLITE"`

	// PostgresURL is a connection string the prepared table is also copied to
	PostgresURL string `koanf:"postgres_url" env:"PARAPREP_POSTGRES_URL" envAlt:"DATABASE_URL"`

	// Table names the database table; empty means the output file's base name
	Table string `koanf:"table" env:"PARAPREP_TABLE"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `koanf:"host" env:"PARAPREP_SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `koanf:"port" env:"PARAPREP_SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `koanf:"read_timeout" env:"PARAPREP_SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 60s)
	WriteTimeout time.Duration `koanf:"write_timeout" env:"PARAPREP_SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `koanf:"idle_timeout" env:"PARAPREP_SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" env:"PARAPREP_SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `koanf:"request_timeout" env:"PARAPREP_SERVER_REQUEST_TIMEOUT" default:"60s"`

	// MaxUploadBytes caps multipart request bodies (default: 32MB)
	MaxUploadBytes int64 `koanf:"max_upload_bytes" env:"PARAPREP_SERVER_MAX_UPLOAD_BYTES" default:"33554432"`

	// MaxConcurrentRuns caps preparation runs executing at once (default: 4)
	MaxConcurrentRuns int `koanf:"max_concurrent_runs" env:"PARAPREP_SERVER_MAX_CONCURRENT_RUNS" default:"4"`

	// RunWait is how long a request waits for a free run slot (default: 10s)
	RunWait time.Duration `koanf:"run_wait" env:"PARAPREP_SERVER_RUN_WAIT" default:"10s"`

	// Metrics exposes /metrics (default: true)
	Metrics bool `koanf:"metrics" env:"PARAPREP_SERVER_METRICS" default:"true"`

	// RateLimit is requests per minute per client IP; 0 disables (default: 60)
	RateLimit int `koanf:"rate_limit" env:"PARAPREP_SERVER_RATE_LIMIT" default:"60"`

	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP and X-Forwarded-For headers are honored
	TrustedProxies []string `koanf:"trusted_proxies" env:"PARAPREP_SERVER_TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `koanf:"level" env:"PARAPREP_LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `koanf:"format" env:"PARAPREP_LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Path returns override when set, otherwise name inside the data directory.
func (c *Config) Path(override, name string) string {
	if override != "" {
		return override
	}
	if name == "" {
		return ""
	}
	return filepath.Join(c.DataDir, name)
}
