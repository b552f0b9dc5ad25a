package config

import "time"

// Config represents the unidlewatch.yaml file.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Watch  WatchConfig  `yaml:"watch"`
	Demo   DemoConfig   `yaml:"demo"`
}

// ServerConfig configures the HTTP server hosting the waiting page.
type ServerConfig struct {
	Port int `yaml:"port"`
	// RedirectHost, when set, is baked into every page instead of the
	// requested host.
	RedirectHost string `yaml:"redirect_host,omitempty"`
	// StaticDir overrides the embedded static assets, e.g. to serve a
	// freshly built watcher.wasm.
	StaticDir string          `yaml:"static_dir,omitempty"`
	Keepalive time.Duration   `yaml:"keepalive"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig bounds how often one client IP may open event streams.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// WatchConfig configures the terminal watcher.
type WatchConfig struct {
	RedirectDelay        time.Duration `yaml:"redirect_delay"`
	ReconnectInterval    time.Duration `yaml:"reconnect_interval"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
}

// Step is one narrated stage of a scripted unidle.
type Step struct {
	Message string        `yaml:"message"`
	After   time.Duration `yaml:"after"`
}

// DemoConfig scripts the stand-in backend used by `unidlewatch serve`.
type DemoConfig struct {
	Steps          []Step `yaml:"steps"`
	Outcome        string `yaml:"outcome"`
	OutcomeMessage string `yaml:"outcome_message"`
}

// Demo outcome values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
