package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/postal-lookup/pkg/logging"
	"github.com/entrhq/postal-lookup/pkg/lookup"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "postal-lookup.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ModeBrowser, cfg.Mode)
	assert.True(t, cfg.Headless)
	assert.Equal(t, lookup.DefaultOptions(), cfg.LookupOptions())
}

func TestLoad(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := writeConfig(t, `
mode: http
headless: false
max_retries: 4
timeouts:
  result: 45s
poll:
  attempts: 10
  interval: 250ms
pacing:
  suggest: 2s
selectors:
  result: "#codigo"
logging:
  verbosity: debug
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		require.NoError(t, cfg.Validate())

		assert.Equal(t, ModeHTTP, cfg.Mode)
		assert.False(t, cfg.Headless)
		assert.Equal(t, 45*time.Second, cfg.Timeouts.Result)
		assert.Equal(t, 30*time.Second, cfg.Timeouts.Navigation, "unset fields keep defaults")
		assert.Equal(t, logging.LogLevelDebug, cfg.LogLevel())

		opts := cfg.LookupOptions()
		assert.Equal(t, 4, opts.MaxRetries)
		assert.Equal(t, 10, opts.PollAttempts)
		assert.Equal(t, 250*time.Millisecond, opts.PollInterval)
		assert.Equal(t, 2*time.Second, opts.Pacing[lookup.StepSuggest])
		assert.Equal(t, 500*time.Millisecond, opts.Pacing[lookup.StepFocus])
		assert.Equal(t, "#codigo", opts.Selectors.Result)
		assert.Equal(t, lookup.DefaultSelectors().Commune, opts.Selectors.Commune)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "failed to read config file")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "timeouts: [oops"))
		assert.ErrorContains(t, err, "failed to parse config file")
	})
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"POSTAL_LOOKUP_MODE":            "HTTP",
		"POSTAL_LOOKUP_HEADLESS":        "false",
		"POSTAL_LOOKUP_MAX_RETRIES":     "5",
		"POSTAL_LOOKUP_POLL_INTERVAL":   "1s",
		"POSTAL_LOOKUP_VERBOSITY":       "quiet",
		"POSTAL_LOOKUP_HTTP_BASE_URL":   "http://127.0.0.1:8080/codigo-postal",
		"POSTAL_LOOKUP_SCREENSHOT_PATH": "",
	}
	lookupEnv := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := DefaultConfig()
	require.NoError(t, cfg.applyEnv(lookupEnv))

	assert.Equal(t, ModeHTTP, cfg.Mode)
	assert.False(t, cfg.Headless)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.Poll.Interval)
	assert.Equal(t, "quiet", cfg.Logging.Verbosity)
	assert.Equal(t, "http://127.0.0.1:8080/codigo-postal", cfg.HTTP.BaseURL)
	assert.Empty(t, cfg.ScreenshotPath)
	assert.Equal(t, lookup.DefaultURL, cfg.URL, "unset variables leave fields alone")
}

func TestApplyEnvReportsBadValues(t *testing.T) {
	env := map[string]string{
		"POSTAL_LOOKUP_HEADLESS":      "sometimes",
		"POSTAL_LOOKUP_POLL_ATTEMPTS": "many",
	}
	cfg := DefaultConfig()
	err := cfg.applyEnv(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTAL_LOOKUP_HEADLESS")
	assert.Contains(t, err.Error(), "POSTAL_LOOKUP_POLL_ATTEMPTS")
	assert.True(t, cfg.Headless)
	assert.Equal(t, 20, cfg.Poll.Attempts)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "bad mode", mutate: func(c *Config) { c.Mode = "carrier-pigeon" }, wantErr: "Config.Mode"},
		{name: "missing url", mutate: func(c *Config) { c.URL = "" }, wantErr: "Config.URL"},
		{name: "zero retries", mutate: func(c *Config) { c.MaxRetries = 0 }, wantErr: "Config.MaxRetries"},
		{name: "zero poll attempts", mutate: func(c *Config) { c.Poll.Attempts = 0 }, wantErr: "Config.Poll.Attempts"},
		{name: "zero result timeout", mutate: func(c *Config) { c.Timeouts.Result = 0 }, wantErr: "Config.Timeouts.Result"},
		{name: "empty selector", mutate: func(c *Config) { c.Selectors.SearchButton = "" }, wantErr: "Config.Selectors.SearchButton"},
		{name: "bad verbosity", mutate: func(c *Config) { c.Logging.Verbosity = "loud" }, wantErr: "invalid logging verbosity"},
		{name: "unknown pacing step", mutate: func(c *Config) { c.Pacing["nap"] = "1s" }, wantErr: "unknown pacing step: nap"},
		{name: "bad pacing duration", mutate: func(c *Config) { c.Pacing["fill"] = "soon" }, wantErr: "invalid pacing for fill"},
		{name: "negative pacing", mutate: func(c *Config) { c.Pacing["fill"] = "-1s" }, wantErr: "cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateDefaultsVerbosity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Verbosity = ""
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "normal", cfg.Logging.Verbosity)
}

func TestSessionOptions(t *testing.T) {
	cfg := DefaultConfig()
	opts := cfg.SessionOptions()
	assert.True(t, opts.Headless)
	require.NotNil(t, opts.Viewport)
	assert.Equal(t, 1280, opts.Viewport.Width)
	assert.Equal(t, cfg.Timeouts.Selector, opts.DefaultTimeout)

	cfg.Viewport.Width = 0
	assert.Nil(t, cfg.SessionOptions().Viewport)
}
