// Package main provides the postal-lookup CLI, which resolves a Chilean
// postal code from a commune, street and number using the Correos de Chile
// public lookup page.
//
// The result is printed to stdout as a single JSON object, either
// {"postalCode": "..."} or {"error": "..."}. Logs go to stderr.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/entrhq/postal-lookup/pkg/browser"
	"github.com/entrhq/postal-lookup/pkg/config"
	"github.com/entrhq/postal-lookup/pkg/correos"
	"github.com/entrhq/postal-lookup/pkg/logging"
	"github.com/entrhq/postal-lookup/pkg/lookup"
)

const (
	version = "0.1.0"

	usageMessage = "Invalid arguments. Usage: postal-lookup 'Commune' 'Street' 'Number'"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile  string
	Mode        string
	Headless    bool
	Verbosity   string
	Screenshot  string
	Timeout     time.Duration
	ShowVersion bool

	// set records which flags were given explicitly
	set map[string]bool
}

// deps are the collaborators run needs from the outside world.
type deps struct {
	envFile     string
	getenv      func(string) string
	newLauncher func(browser.SessionOptions) browser.Launcher
	httpClient  *http.Client
}

func defaultDeps() deps {
	return deps{
		envFile: ".env",
		getenv:  os.Getenv,
		newLauncher: func(opts browser.SessionOptions) browser.Launcher {
			return browser.NewPlaywrightLauncher(opts)
		},
		httpClient: http.DefaultClient,
	}
}

func main() {
	// Create context with signal handling
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "Shutting down, closing browser...")
		cancel()
	}()

	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, defaultDeps())
	cancel()
	os.Exit(code)
}

// run executes one lookup and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, d deps) int {
	// .env may supply POSTAL_LOOKUP_CONFIG, so it is read before flag defaults
	if err := godotenv.Load(d.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		writeError(stderr, fmt.Sprintf("failed to load %s: %v", d.envFile, err))
		return 1
	}

	cli, positional, err := parseFlags(args, stderr, d.getenv)
	if err != nil {
		writeError(stderr, usageMessage)
		return 1
	}

	if cli.ShowVersion {
		fmt.Fprintf(stdout, "postal-lookup v%s\n", version)
		return 0
	}

	req, ok := parseRequest(positional)
	if !ok {
		writeError(stderr, usageMessage)
		return 1
	}

	cfg, err := loadConfig(cli)
	if err != nil {
		writeError(stderr, err.Error())
		return 1
	}

	log := logging.NewLogger(cfg.LogLevel(), stderr)

	if cli.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cli.Timeout)
		defer cancel()
	}

	var result lookup.Result
	switch cfg.Mode {
	case config.ModeHTTP:
		client := correos.NewClient(
			correos.WithHTTPClient(d.httpClient),
			correos.WithBaseURL(cfg.HTTP.BaseURL),
			correos.WithPortletID(cfg.HTTP.PortletID),
			correos.WithTimeouts(cfg.HTTP.SessionTimeout, cfg.HTTP.RequestTimeout),
			correos.WithLogger(log),
		)
		result = client.Lookup(ctx, req)
	default:
		controller := lookup.NewController(d.newLauncher(cfg.SessionOptions()), cfg.LookupOptions(), log)
		result = controller.Lookup(ctx, req)
	}

	// Scraping failures are reported in the JSON body, not the exit code
	if err := json.NewEncoder(stdout).Encode(result); err != nil {
		log.Errorf("failed to write result: %v", err)
		return 1
	}
	return 0
}

// parseFlags parses command line flags
func parseFlags(args []string, stderr io.Writer, getenv func(string) string) (*CLIConfig, []string, error) {
	cli := &CLIConfig{set: make(map[string]bool)}

	flags := flag.NewFlagSet("postal-lookup", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&cli.ConfigFile, "config", getenv("POSTAL_LOOKUP_CONFIG"), "Path to configuration file (YAML)")
	flags.StringVar(&cli.Mode, "mode", string(config.ModeBrowser), "Lookup strategy: browser or http")
	flags.BoolVar(&cli.Headless, "headless", true, "Run the browser without a window")
	flags.StringVar(&cli.Verbosity, "verbosity", "normal", "Logging verbosity: quiet, normal, verbose or debug")
	flags.StringVar(&cli.Screenshot, "screenshot", "", "Path of the failure screenshot (default from config)")
	flags.DurationVar(&cli.Timeout, "timeout", 0, "Overall lookup timeout (0 for none)")
	flags.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")

	flags.Usage = func() {
		fmt.Fprintf(stderr, "postal-lookup - Correos de Chile postal code lookup\n\n")
		fmt.Fprintf(stderr, "Usage: postal-lookup [options] <commune> <street> <number>\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		flags.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  postal-lookup Providencia \"Av. 11 de Septiembre\" 2222\n")
		fmt.Fprintf(stderr, "  postal-lookup -mode http -verbosity debug Santiago Huerfanos 1400\n")
	}

	if err := flags.Parse(args); err != nil {
		return nil, nil, err
	}
	flags.Visit(func(f *flag.Flag) {
		cli.set[f.Name] = true
	})
	return cli, flags.Args(), nil
}

// parseRequest requires exactly three arguments that survive normalization.
func parseRequest(args []string) (lookup.Request, bool) {
	if len(args) != 3 {
		return lookup.Request{}, false
	}
	req := lookup.Request{Commune: args[0], Street: args[1], Number: args[2]}
	if err := req.Validate(); err != nil {
		return lookup.Request{}, false
	}
	return req, true
}

// loadConfig resolves defaults, file, environment and explicit flags, in that order.
func loadConfig(cli *CLIConfig) (*config.Config, error) {
	cfg, err := config.Load(cli.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if cli.set["mode"] {
		cfg.Mode = config.Mode(strings.ToLower(cli.Mode))
	}
	if cli.set["headless"] {
		cfg.Headless = cli.Headless
	}
	if cli.set["verbosity"] {
		cfg.Logging.Verbosity = cli.Verbosity
	}
	if cli.set["screenshot"] {
		cfg.ScreenshotPath = cli.Screenshot
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func writeError(w io.Writer, msg string) {
	_ = json.NewEncoder(w).Encode(lookup.Failure(msg))
}
