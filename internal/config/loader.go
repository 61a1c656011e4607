package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// LookupFunc returns the value of a setting and whether it is set.
type LookupFunc func(name string) (string, bool)

// Load reads configuration from the process environment, applies defaults
// for unset values and validates the result.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom is Load with a custom source of settings.
func LoadFrom(lookup LookupFunc) (*Config, error) {
	cfg := &Config{}

	r := envReader{lookup: lookup}
	r.fill(reflect.ValueOf(cfg).Elem())
	if len(r.errs) > 0 {
		return nil, fmt.Errorf("config load: %w", errors.Join(r.errs...))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// MustLoad loads configuration and panics on error.
// Use this only in main() where early termination is desired.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// envReader fills tagged struct fields and collects every bad value.
//
// Tags: env names the variable, envAlt a fallback name, default the value
// used when neither is set, required="true" rejects a missing value.
type envReader struct {
	lookup LookupFunc
	errs   []error
}

func (r *envReader) fill(v reflect.Value) {
	t := v.Type()
	for i := range t.NumField() {
		field, fv := t.Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if field.Type.Kind() == reflect.Struct {
			r.fill(fv)
			continue
		}

		name := field.Tag.Get("env")
		if name == "" {
			continue
		}
		raw, ok := r.value(name, field.Tag.Get("envAlt"))
		if !ok {
			if field.Tag.Get("required") == "true" {
				r.errs = append(r.errs, fmt.Errorf("required environment variable %s is not set", name))
				continue
			}
			raw = field.Tag.Get("default")
		}
		if raw == "" {
			continue
		}
		if err := decode(fv, raw); err != nil {
			r.errs = append(r.errs, fmt.Errorf("invalid value for %s=%q: %w", name, raw, err))
		}
	}
}

// value returns the first non-empty setting among the given names.
func (r *envReader) value(names ...string) (string, bool) {
	for _, n := range names {
		if n == "" {
			continue
		}
		if s, ok := r.lookup(n); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

var durationType = reflect.TypeFor[time.Duration]()

func decode(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return errors.New("not an integer")
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return errors.New("not a boolean")
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice of %s", field.Type().Elem().Kind())
		}
		field.Set(reflect.ValueOf(splitList(raw)))
	default:
		return fmt.Errorf("unsupported field type %s", field.Kind())
	}
	return nil
}

// splitList splits a comma separated list and drops empty items.
func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// problems collects validation failures.
type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

// Validate checks every section and reports all failures in one error.
func (c *Config) Validate() error {
	var p problems
	c.Server.validate(&p)
	c.Load.validate(&p)
	c.Session.validate(&p)
	c.Security.validate(&p)
	c.Logging.validate(&p)

	if len(p) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(p, "\n  - "))
	}
	return nil
}

func (s *ServerConfig) validate(p *problems) {
	if s.Port <= 0 || s.Port > 65535 {
		p.addf("SERVER_PORT (%d) must be 1-65535", s.Port)
	}
	if s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.IdleTimeout < 0 {
		p.addf("SERVER_*_TIMEOUT values must be non-negative")
	}
	if s.ShutdownTimeout <= 0 {
		p.addf("SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if s.RequestTimeout <= 0 {
		p.addf("SERVER_REQUEST_TIMEOUT must be positive")
	}
	if s.RequestsPerMinute < 0 {
		p.addf("RATE_LIMIT_REQUESTS_PER_MINUTE must be non-negative")
	}
}

func (l *LoadConfig) validate(p *problems) {
	switch {
	case utf8.RuneCountInString(l.Delimiter) != 1:
		p.addf("LOAD_DELIMITER (%q) must be a single character", l.Delimiter)
	case slices.Contains([]rune{'"', '\r', '\n', utf8.RuneError}, l.DelimiterRune()):
		p.addf("LOAD_DELIMITER (%q) is not a usable separator", l.Delimiter)
	}
	if l.MaxFileSize <= 0 {
		p.addf("LOAD_MAX_FILE_SIZE must be positive")
	}
	if l.MaxConcurrent <= 0 {
		p.addf("LOAD_MAX_CONCURRENT must be positive")
	}
	if l.MaxWaitTime <= 0 {
		p.addf("LOAD_MAX_WAIT_TIME must be positive")
	}
}

func (s *SessionConfig) validate(p *problems) {
	if s.TTL <= 0 {
		p.addf("SESSION_TTL must be positive")
	}
	if s.SweepInterval <= 0 {
		p.addf("SESSION_SWEEP_INTERVAL must be positive")
	}
	if s.MaxSessions <= 0 {
		p.addf("SESSION_MAX must be positive")
	}
}

func (s *SecurityConfig) validate(p *problems) {
	if s.RequireAPIKey && len(s.APIKeys) == 0 {
		p.addf("REQUIRE_API_KEY is true but API_KEYS is empty")
	}
}

func (l *LoggingConfig) validate(p *problems) {
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(l.Level)) {
		p.addf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", l.Level)
	}
	if !slices.Contains([]string{"text", "json"}, strings.ToLower(l.Format)) {
		p.addf("LOG_FORMAT (%q) must be one of: text, json", l.Format)
	}
}

// String returns a one-line summary for startup logs. API keys are
// reported by count only.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Server: {Addr: %q, RequestTimeout: %s, RequestsPerMinute: %d}, "+
		"Load: {Delimiter: %q, MaxFileSize: %d, MaxConcurrent: %d, DetectEncoding: %v}, "+
		"Session: {TTL: %s, SweepInterval: %s, MaxSessions: %d}, "+
		"Security: {TrustedProxies: %v, RequireAPIKey: %v, APIKeys: [%d MASKED]}, "+
		"Logging: {Level: %q, Format: %q}}",
		c.Server.Addr(), c.Server.RequestTimeout, c.Server.RequestsPerMinute,
		c.Load.Delimiter, c.Load.MaxFileSize, c.Load.MaxConcurrent, c.Load.DetectEncoding,
		c.Session.TTL, c.Session.SweepInterval, c.Session.MaxSessions,
		c.Security.TrustedProxies, c.Security.RequireAPIKey, len(c.Security.APIKeys),
		c.Logging.Level, c.Logging.Format)
}
