// Package config loads the server and CLI settings from environment variables.
// Defaults cover local use; Validate reports every bad setting at once so a
// misconfigured deployment fails on startup.
package config

import (
	"strconv"
	"time"
	"unicode/utf8"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Load     LoadConfig
	Session  SessionConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// RequestsPerMinute is the per-IP rate limit; 0 disables it (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`
}

// LoadConfig holds CSV loading settings.
type LoadConfig struct {
	// Delimiter is the default field separator (default: ",")
	Delimiter string `env:"LOAD_DELIMITER" default:","`

	// MaxFileSize is the maximum accepted input size in bytes (default: 100MB)
	MaxFileSize int64 `env:"LOAD_MAX_FILE_SIZE" envAlt:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent bounds parallel loads (default: 4)
	MaxConcurrent int `env:"LOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a load waits for a free slot (default: 30s)
	MaxWaitTime time.Duration `env:"LOAD_MAX_WAIT_TIME" default:"30s"`

	// DetectEncoding guesses the source encoding instead of assuming UTF-8.
	DetectEncoding bool `env:"LOAD_DETECT_ENCODING" default:"false"`

	// NAValues replaces the default null tokens when set.
	NAValues []string `env:"LOAD_NA_VALUES"`
}

// SessionConfig holds settings for tables held by the HTTP service.
type SessionConfig struct {
	// TTL is how long an untouched table is kept (default: 30m)
	TTL time.Duration `env:"SESSION_TTL" default:"30m"`

	// SweepInterval is how often expired tables are released (default: 1m)
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"1m"`

	// MaxSessions caps the number of held tables (default: 100)
	MaxSessions int `env:"SESSION_MAX" default:"100"`
}

// SecurityConfig holds settings for the API surface.
type SecurityConfig struct {
	// TrustedProxies lists proxy CIDRs whose X-Real-IP/X-Forwarded-For are honoured.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey rejects API requests without a valid X-API-Key header.
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is the comma-separated list of accepted keys.
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// DelimiterRune returns the configured delimiter as a rune.
// Validate guarantees it is a single character.
func (c *LoadConfig) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}
