package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PORT", "")
	t.Setenv("REDIRECT_HOST", "")
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "unidlewatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_Default(t *testing.T) {
	clearEnv(t)

	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.yaml")} {
		cfg, err := LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, DefaultServerPort, cfg.Server.Port)
		assert.Equal(t, DefaultKeepalive, cfg.Server.Keepalive)
		assert.Equal(t, DefaultRedirectDelay, cfg.Watch.RedirectDelay)
		assert.Equal(t, DefaultReconnectInterval, cfg.Watch.ReconnectInterval)
		assert.Equal(t, OutcomeSuccess, cfg.Demo.Outcome)
		assert.Equal(t, "Ready", cfg.Demo.OutcomeMessage)
		assert.Len(t, cfg.Demo.Steps, 6)
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `server:
  port: 9000
  redirect_host: app.example.com
  keepalive: 30s
  rate_limit:
    per_second: 5
    burst: 20
watch:
  redirect_delay: 2s
  reconnect_interval: 500ms
  max_reconnect_attempts: 4
demo:
  steps:
    - message: Warming up
      after: 100ms
  outcome: failure
  outcome_message: deployment never became ready
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "app.example.com", cfg.Server.RedirectHost)
	assert.Equal(t, 30*time.Second, cfg.Server.Keepalive)
	assert.Equal(t, 5.0, cfg.Server.RateLimit.PerSecond)
	assert.Equal(t, 20, cfg.Server.RateLimit.Burst)
	assert.Equal(t, 2*time.Second, cfg.Watch.RedirectDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.ReconnectInterval)
	assert.Equal(t, 4, cfg.Watch.MaxReconnectAttempts)
	assert.Equal(t, []Step{{Message: "Warming up", After: 100 * time.Millisecond}}, cfg.Demo.Steps)
	assert.Equal(t, OutcomeFailure, cfg.Demo.Outcome)
}

func TestLoadConfig_PartialFile(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DefaultKeepalive, cfg.Server.Keepalive)
	assert.Equal(t, DefaultRateLimitBurst, cfg.Server.RateLimit.Burst)
	assert.Equal(t, DefaultRedirectDelay, cfg.Watch.RedirectDelay)
	assert.Equal(t, DefaultSteps(), cfg.Demo.Steps)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, "server: [not a map")

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, "watch:\n  reconnect_interval: 0s\n")

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "watch.reconnect_interval")
}

func TestLoadConfig_PortFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", ":4000")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Server.Port)
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		env      map[string]string
		wantPort int
		wantHost string
		wantErr  bool
	}{
		{name: "no overrides", env: nil, wantPort: DefaultServerPort},
		{name: "bare port", env: map[string]string{"PORT": "3000"}, wantPort: 3000},
		{name: "colon port", env: map[string]string{"PORT": ":3001"}, wantPort: 3001},
		{name: "empty port ignored", env: map[string]string{"PORT": ""}, wantPort: DefaultServerPort},
		{name: "redirect host", env: map[string]string{"REDIRECT_HOST": "app.example.com"}, wantPort: DefaultServerPort, wantHost: "app.example.com"},
		{name: "bad port", env: map[string]string{"PORT": "http"}, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			err := ApplyEnv(&cfg, func(key string) (string, bool) {
				v, ok := tt.env[key]
				return v, ok
			})
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPort, cfg.Server.Port)
			assert.Equal(t, tt.wantHost, cfg.Server.RedirectHost)
		})
	}
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "port out of range", mutate: func(c *Config) { c.Server.Port = 70000 }, wantField: "server.port"},
		{name: "zero keepalive", mutate: func(c *Config) { c.Server.Keepalive = 0 }, wantField: "server.keepalive"},
		{name: "zero rate", mutate: func(c *Config) { c.Server.RateLimit.PerSecond = 0 }, wantField: "server.rate_limit.per_second"},
		{name: "zero burst", mutate: func(c *Config) { c.Server.RateLimit.Burst = 0 }, wantField: "server.rate_limit.burst"},
		{name: "redirect host with path", mutate: func(c *Config) { c.Server.RedirectHost = "example.com/app" }, wantField: "server.redirect_host"},
		{name: "negative redirect delay", mutate: func(c *Config) { c.Watch.RedirectDelay = -time.Second }, wantField: "watch.redirect_delay"},
		{name: "zero redirect delay allowed", mutate: func(c *Config) { c.Watch.RedirectDelay = 0 }},
		{name: "negative attempts", mutate: func(c *Config) { c.Watch.MaxReconnectAttempts = -1 }, wantField: "watch.max_reconnect_attempts"},
		{name: "unknown outcome", mutate: func(c *Config) { c.Demo.Outcome = "maybe" }, wantField: "demo.outcome"},
		{name: "empty step message", mutate: func(c *Config) { c.Demo.Steps[1].Message = "" }, wantField: "demo.steps[1].message"},
		{name: "no steps allowed", mutate: func(c *Config) { c.Demo.Steps = nil }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(&cfg)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

func TestIsValidationError(t *testing.T) {
	t.Parallel()

	assert.True(t, IsValidationError(ValidationError{Field: "x", Message: "y"}))
	assert.False(t, IsValidationError(os.ErrNotExist))
	assert.Equal(t, "validation error: x: y", ValidationError{Field: "x", Message: "y"}.Error())
}
