// Package config loads the postal lookup configuration.
//
// Values are resolved in order: built-in defaults, then an optional YAML file,
// then POSTAL_LOOKUP_* environment variables, then CLI flags (applied by the
// caller). Durations are written as Go duration strings ("500ms", "1.2s").
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/entrhq/postal-lookup/pkg/browser"
	"github.com/entrhq/postal-lookup/pkg/logging"
	"github.com/entrhq/postal-lookup/pkg/lookup"
)

// Mode selects the lookup strategy.
type Mode string

const (
	// ModeBrowser drives the public form in a headless browser
	ModeBrowser Mode = "browser"
	// ModeHTTP posts directly to the portlet resource endpoint
	ModeHTTP Mode = "http"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "POSTAL_LOOKUP_"

// Config is the full runtime configuration.
type Config struct {
	Mode           Mode              `yaml:"mode" json:"mode" validate:"oneof=browser http"`
	URL            string            `yaml:"url" json:"url" validate:"required,url"`
	Headless       bool              `yaml:"headless" json:"headless"`
	Viewport       ViewportConfig    `yaml:"viewport" json:"viewport"`
	Timeouts       TimeoutConfig     `yaml:"timeouts" json:"timeouts"`
	Poll           PollConfig        `yaml:"poll" json:"poll"`
	MaxRetries     int               `yaml:"max_retries" json:"max_retries" validate:"gte=1,lte=10"`
	ScreenshotPath string            `yaml:"screenshot_path" json:"screenshot_path"`
	Selectors      lookup.Selectors  `yaml:"selectors" json:"selectors"`
	Pacing         map[string]string `yaml:"pacing" json:"pacing"`
	HTTP           HTTPConfig        `yaml:"http" json:"http"`
	Logging        LoggingConfig     `yaml:"logging" json:"logging"`
}

// ViewportConfig sets the browser window size.
type ViewportConfig struct {
	Width  int `yaml:"width" json:"width" validate:"gte=0"`
	Height int `yaml:"height" json:"height" validate:"gte=0"`
}

// TimeoutConfig bounds the waits of the browser strategy.
type TimeoutConfig struct {
	Navigation time.Duration `yaml:"navigation" json:"navigation" validate:"gt=0"`
	Selector   time.Duration `yaml:"selector" json:"selector" validate:"gt=0"`
	Result     time.Duration `yaml:"result" json:"result" validate:"gt=0"`
}

// PollConfig controls how the search button readiness is polled.
type PollConfig struct {
	Attempts int           `yaml:"attempts" json:"attempts" validate:"gte=1"`
	Interval time.Duration `yaml:"interval" json:"interval" validate:"gte=0"`
}

// HTTPConfig configures the direct HTTP strategy.
type HTTPConfig struct {
	BaseURL        string        `yaml:"base_url" json:"base_url" validate:"required,url"`
	PortletID      string        `yaml:"portlet_id" json:"portlet_id" validate:"required"`
	SessionTimeout time.Duration `yaml:"session_timeout" json:"session_timeout" validate:"gt=0"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout" validate:"gt=0"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls logging level: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`
}

var validate = validator.New()

// DefaultConfig returns the configuration matching the live Correos page.
func DefaultConfig() *Config {
	opts := lookup.DefaultOptions()

	pacing := make(map[string]string, len(opts.Pacing))
	for step, d := range opts.Pacing {
		pacing[string(step)] = d.String()
	}

	return &Config{
		Mode:     ModeBrowser,
		URL:      opts.URL,
		Headless: true,
		Viewport: ViewportConfig{
			Width:  browser.DefaultViewportWidth,
			Height: browser.DefaultViewportHeight,
		},
		Timeouts: TimeoutConfig{
			Navigation: opts.Timeouts.Navigation,
			Selector:   opts.Timeouts.Selector,
			Result:     opts.Timeouts.Result,
		},
		Poll: PollConfig{
			Attempts: opts.PollAttempts,
			Interval: opts.PollInterval,
		},
		MaxRetries:     opts.MaxRetries,
		ScreenshotPath: opts.ScreenshotPath,
		Selectors:      opts.Selectors,
		Pacing:         pacing,
		HTTP: HTTPConfig{
			BaseURL:        lookup.DefaultURL,
			PortletID:      lookup.PortletID,
			SessionTimeout: 10 * time.Second,
			RequestTimeout: 15 * time.Second,
		},
		Logging: LoggingConfig{Verbosity: "normal"},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from POSTAL_LOOKUP_* variables.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookupEnv func(string) (string, bool)) error {
	var errs []error

	str := func(name string, dst *string) {
		if v, ok := lookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookupEnv(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := lookupEnv(EnvPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := lookupEnv(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	if v, ok := lookupEnv(EnvPrefix + "MODE"); ok {
		c.Mode = Mode(strings.ToLower(v))
	}
	str("URL", &c.URL)
	boolean("HEADLESS", &c.Headless)
	integer("MAX_RETRIES", &c.MaxRetries)
	str("SCREENSHOT_PATH", &c.ScreenshotPath)
	duration("NAVIGATION_TIMEOUT", &c.Timeouts.Navigation)
	duration("SELECTOR_TIMEOUT", &c.Timeouts.Selector)
	duration("RESULT_TIMEOUT", &c.Timeouts.Result)
	integer("POLL_ATTEMPTS", &c.Poll.Attempts)
	duration("POLL_INTERVAL", &c.Poll.Interval)
	str("HTTP_BASE_URL", &c.HTTP.BaseURL)
	str("VERBOSITY", &c.Logging.Verbosity)

	return errors.Join(errs...)
}

// Validate checks field constraints and the pacing table.
func (c *Config) Validate() error {
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}
	if _, err := logging.ParseLevel(c.Logging.Verbosity); err != nil {
		return err
	}

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid configuration: %s failed %q", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := c.pacing(); err != nil {
		return err
	}
	return nil
}

func (c *Config) pacing() (lookup.Pacing, error) {
	p := lookup.DefaultPacing()
	for name, raw := range c.Pacing {
		step := lookup.Step(name)
		if _, known := p[step]; !known {
			return nil, fmt.Errorf("unknown pacing step: %s", name)
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid pacing for %s: %w", name, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("pacing for %s cannot be negative", name)
		}
		p[step] = d
	}
	return p, nil
}

// LogLevel returns the parsed logging verbosity.
func (c *Config) LogLevel() logging.LogLevel {
	level, _ := logging.ParseLevel(c.Logging.Verbosity)
	return level
}

// LookupOptions converts the configuration for lookup.NewController.
// Validate must have succeeded first.
func (c *Config) LookupOptions() lookup.Options {
	pacing, err := c.pacing()
	if err != nil {
		pacing = lookup.DefaultPacing()
	}
	return lookup.Options{
		URL:       c.URL,
		Selectors: c.Selectors,
		Timeouts: lookup.Timeouts{
			Navigation: c.Timeouts.Navigation,
			Selector:   c.Timeouts.Selector,
			Result:     c.Timeouts.Result,
		},
		PollAttempts:   c.Poll.Attempts,
		PollInterval:   c.Poll.Interval,
		MaxRetries:     c.MaxRetries,
		ScreenshotPath: c.ScreenshotPath,
		Pacing:         pacing,
	}
}

// SessionOptions converts the configuration for browser.NewPlaywrightLauncher.
func (c *Config) SessionOptions() browser.SessionOptions {
	opts := browser.SessionOptions{
		Headless:       c.Headless,
		DefaultTimeout: c.Timeouts.Selector,
	}
	if c.Viewport.Width > 0 && c.Viewport.Height > 0 {
		opts.Viewport = &browser.Viewport{Width: c.Viewport.Width, Height: c.Viewport.Height}
	}
	return opts
}
