package browser

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout matches any error caused by a bounded browser wait elapsing.
var ErrTimeout = errors.New("browser: timeout")

// Driver is the set of page operations the lookup flow performs against one
// browser session. Every blocking call is bounded either by its own timeout
// argument or by the session's default timeout.
type Driver interface {
	// Navigate loads url and waits for the DOM content to be ready.
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// WaitForSelector waits for an element matching selector to be attached.
	// A zero timeout uses the session default.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error

	// Click clicks the element matching selector.
	Click(ctx context.Context, selector string, opts ClickOptions) error

	// Fill replaces the value of the input matching selector.
	Fill(ctx context.Context, selector, value string) error

	// Press sends a key to the focused element, e.g. "ArrowDown" or "Enter".
	Press(ctx context.Context, key string) error

	// InputValue reads the current value of the input matching selector.
	InputValue(ctx context.Context, selector string) (string, error)

	// IsEnabled reports whether the control matching selector is enabled.
	IsEnabled(ctx context.Context, selector string) (bool, error)

	// WaitVisible waits for the element matching selector to become visible.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	// InnerText returns the rendered text of the element matching selector.
	InnerText(ctx context.Context, selector string) (string, error)

	// Screenshot writes a PNG of the current page to path.
	Screenshot(ctx context.Context, path string) error

	// Close releases the page and the browser. Safe to call multiple times.
	Close() error
}

// Launcher creates a fresh browser session for a single lookup.
type Launcher interface {
	Launch(ctx context.Context) (Driver, error)
}

// SessionOptions configures a new browser session.
type SessionOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Viewport sets the initial viewport size
	Viewport *Viewport

	// DefaultTimeout bounds operations that carry no explicit timeout
	DefaultTimeout time.Duration

	// SkipInstall skips downloading the driver and browsers before launch
	SkipInstall bool

	// Channel selects a branded Chromium build such as "chrome" (optional)
	Channel string
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// ClickOptions configures element clicking behavior.
type ClickOptions struct {
	// Force skips actionability checks, e.g. for labels partially covered
	// by an open suggestion panel
	Force bool
}

// Default values for sessions
const (
	DefaultTimeout        = 20 * time.Second
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)
