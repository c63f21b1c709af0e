package browser

import (
	"context"
	"fmt"
	"io"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightLauncher starts a Playwright driver and a Chromium browser for
// every Launch call. Each returned Session owns its own driver process, so
// closing it leaves nothing behind.
type PlaywrightLauncher struct {
	opts SessionOptions
}

var _ Launcher = (*PlaywrightLauncher)(nil)

// NewPlaywrightLauncher creates a launcher with the given session options.
// Unset options fall back to package defaults.
func NewPlaywrightLauncher(opts SessionOptions) *PlaywrightLauncher {
	return &PlaywrightLauncher{opts: withDefaults(opts)}
}

// Options returns the effective session options.
func (l *PlaywrightLauncher) Options() SessionOptions {
	return l.opts
}

// Launch installs (unless skipped) and runs Playwright, then opens a browser,
// a context and a page. Partially created resources are released on failure.
func (l *PlaywrightLauncher) Launch(ctx context.Context) (Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Discard driver output so it never mixes with the JSON result on stdout
	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if !l.opts.SkipInstall {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.opts.Headless),
	}
	if l.opts.Channel != "" {
		launchOpts.Channel = playwright.String(l.opts.Channel)
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  l.opts.Viewport.Width,
			Height: l.opts.Viewport.Height,
		},
	}
	browserCtx, err := browser.NewContext(contextOpts)
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		_ = browserCtx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	page.SetDefaultTimeout(float64(l.opts.DefaultTimeout.Milliseconds()))

	return &Session{
		Playwright: pw,
		Browser:    browser,
		Context:    browserCtx,
		Page:       page,
	}, nil
}

// withDefaults fills unset session options.
func withDefaults(opts SessionOptions) SessionOptions {
	if opts.Viewport == nil {
		opts.Viewport = &Viewport{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		}
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = DefaultTimeout
	}
	return opts
}
