package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for Config.
const (
	DefaultServerPort           = 8080
	DefaultKeepalive            = 15 * time.Second
	DefaultRateLimitPerSecond   = 2.0
	DefaultRateLimitBurst       = 10
	DefaultRedirectDelay        = 5 * time.Second
	DefaultReconnectInterval    = 3 * time.Second
	DefaultMaxReconnectAttempts = 0
)

// DefaultSteps mirrors the stages a real unidle reports.
func DefaultSteps() []Step {
	return []Step{
		{Message: "Pending", After: 500 * time.Millisecond},
		{Message: "Restoring app", After: time.Second},
		{Message: "Waiting for deployment", After: 2 * time.Second},
		{Message: "Enabling ingress", After: time.Second},
		{Message: "Removing from unidler", After: 500 * time.Millisecond},
		{Message: "Marking as unidled", After: 500 * time.Millisecond},
	}
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:      DefaultServerPort,
			Keepalive: DefaultKeepalive,
			RateLimit: RateLimitConfig{
				PerSecond: DefaultRateLimitPerSecond,
				Burst:     DefaultRateLimitBurst,
			},
		},
		Watch: WatchConfig{
			RedirectDelay:        DefaultRedirectDelay,
			ReconnectInterval:    DefaultReconnectInterval,
			MaxReconnectAttempts: DefaultMaxReconnectAttempts,
		},
		Demo: DemoConfig{
			Steps:          DefaultSteps(),
			Outcome:        OutcomeSuccess,
			OutcomeMessage: "Ready",
		},
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// LoadConfig reads and parses the YAML file at path. An empty path or a
// missing file yields the defaults. Fields absent from the file keep their
// defaults, then environment overrides are applied.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyEnv overrides config values from the environment. PORT accepts
// either "8080" or ":8080".
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(strings.TrimPrefix(v, ":"))
		if err != nil {
			return ValidationError{Field: "PORT", Message: fmt.Sprintf("not a port number: %q", v)}
		}
		cfg.Server.Port = port
	}
	if v, ok := lookup("REDIRECT_HOST"); ok && v != "" {
		cfg.Server.RedirectHost = v
	}
	return nil
}

// ValidateConfig checks that all config values are valid.
func ValidateConfig(cfg *Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return ValidationError{Field: "server.port", Message: "must be between 0 and 65535"}
	}
	if cfg.Server.Keepalive <= 0 {
		return ValidationError{Field: "server.keepalive", Message: "must be positive"}
	}
	if cfg.Server.RateLimit.PerSecond <= 0 {
		return ValidationError{Field: "server.rate_limit.per_second", Message: "must be positive"}
	}
	if cfg.Server.RateLimit.Burst <= 0 {
		return ValidationError{Field: "server.rate_limit.burst", Message: "must be positive"}
	}
	if strings.ContainsAny(cfg.Server.RedirectHost, "/ ") {
		return ValidationError{Field: "server.redirect_host", Message: "must be a bare host name"}
	}
	if cfg.Watch.RedirectDelay < 0 {
		return ValidationError{Field: "watch.redirect_delay", Message: "must not be negative"}
	}
	if cfg.Watch.ReconnectInterval <= 0 {
		return ValidationError{Field: "watch.reconnect_interval", Message: "must be positive"}
	}
	if cfg.Watch.MaxReconnectAttempts < 0 {
		return ValidationError{Field: "watch.max_reconnect_attempts", Message: "must not be negative"}
	}
	return ValidateDemo(&cfg.Demo)
}

// ValidateDemo checks the scripted backend.
func ValidateDemo(demo *DemoConfig) error {
	switch demo.Outcome {
	case OutcomeSuccess, OutcomeFailure:
	default:
		return ValidationError{Field: "demo.outcome", Message: fmt.Sprintf("must be %q or %q", OutcomeSuccess, OutcomeFailure)}
	}
	for i, step := range demo.Steps {
		if step.Message == "" {
			return ValidationError{Field: fmt.Sprintf("demo.steps[%d].message", i), Message: "required field is empty"}
		}
		if step.After < 0 {
			return ValidationError{Field: fmt.Sprintf("demo.steps[%d].after", i), Message: "must not be negative"}
		}
	}
	return nil
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
