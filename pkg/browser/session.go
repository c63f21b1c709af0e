package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Session is a Playwright-backed Driver owning one browser, one context and
// one page.
type Session struct {
	Playwright *playwright.Playwright
	Browser    playwright.Browser
	Context    playwright.BrowserContext
	Page       playwright.Page

	closeOnce sync.Once
	closeErr  error
}

var _ Driver = (*Session)(nil)

// Navigate navigates the session's page to the specified URL.
func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.Page.Goto(url, playwright.PageGotoOptions{
		Timeout:   millis(timeout),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return fmt.Errorf("navigation failed: %w", classify(err))
	}
	return nil
}

// WaitForSelector waits until an element matching selector is attached.
func (s *Session) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.Page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: millis(timeout),
	})
	if err != nil {
		return fmt.Errorf("wait for %s failed: %w", selector, classify(err))
	}
	return nil
}

// Click clicks an element matching the selector.
func (s *Session) Click(ctx context.Context, selector string, opts ClickOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	playwrightOpts := playwright.LocatorClickOptions{}
	if opts.Force {
		playwrightOpts.Force = playwright.Bool(true)
	}

	if err := s.Page.Locator(selector).Click(playwrightOpts); err != nil {
		return fmt.Errorf("click failed: %w", classify(err))
	}
	return nil
}

// Fill fills an input element with the specified value.
func (s *Session) Fill(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.Page.Locator(selector).Fill(value); err != nil {
		return fmt.Errorf("fill failed: %w", classify(err))
	}
	return nil
}

// Press sends a key press to the focused element.
func (s *Session) Press(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.Page.Keyboard().Press(key); err != nil {
		return fmt.Errorf("key press %s failed: %w", key, classify(err))
	}
	return nil
}

// InputValue returns the current value of an input element.
func (s *Session) InputValue(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	value, err := s.Page.Locator(selector).InputValue()
	if err != nil {
		return "", fmt.Errorf("read value failed: %w", classify(err))
	}
	return value, nil
}

// IsEnabled reports whether the element is enabled.
func (s *Session) IsEnabled(ctx context.Context, selector string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	enabled, err := s.Page.Locator(selector).IsEnabled()
	if err != nil {
		return false, fmt.Errorf("enabled check failed: %w", classify(err))
	}
	return enabled, nil
}

// WaitVisible waits for the element to reach the visible state.
func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.Page.Locator(selector).WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: millis(timeout),
	})
	if err != nil {
		return fmt.Errorf("wait for visible failed: %w", classify(err))
	}
	return nil
}

// InnerText returns the rendered text of the element.
func (s *Session) InnerText(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text, err := s.Page.Locator(selector).InnerText()
	if err != nil {
		return "", fmt.Errorf("read text failed: %w", classify(err))
	}
	return text, nil
}

// Screenshot captures the current page into a PNG file.
func (s *Session) Screenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := s.Page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
	}); err != nil {
		return fmt.Errorf("screenshot failed: %w", classify(err))
	}
	return nil
}

// Close closes the page, the context, the browser and the Playwright driver.
// Only the first call does any work.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.Page != nil {
			if err := s.Page.Close(); err != nil && !errors.Is(err, playwright.ErrTargetClosed) {
				errs = append(errs, err)
			}
		}
		if s.Context != nil {
			if err := s.Context.Close(); err != nil && !errors.Is(err, playwright.ErrTargetClosed) {
				errs = append(errs, err)
			}
		}
		if s.Browser != nil {
			if err := s.Browser.Close(); err != nil && !errors.Is(err, playwright.ErrTargetClosed) {
				errs = append(errs, err)
			}
		}
		if s.Playwright != nil {
			if err := s.Playwright.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
			}
		}
		if len(errs) > 0 {
			s.closeErr = fmt.Errorf("errors closing session: %w", errors.Join(errs...))
		}
	})
	return s.closeErr
}

// timeoutError keeps the engine's message while matching ErrTimeout.
type timeoutError struct {
	err error
}

func (e *timeoutError) Error() string { return e.err.Error() }

func (e *timeoutError) Unwrap() []error { return []error{ErrTimeout, e.err} }

// classify tags Playwright timeouts so callers can detect them with
// errors.Is(err, ErrTimeout).
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) && !errors.Is(err, ErrTimeout) {
		return &timeoutError{err: err}
	}
	return err
}

// millis converts a duration into Playwright's millisecond timeout option.
// Zero leaves the option unset so the page default applies.
func millis(d time.Duration) *float64 {
	if d <= 0 {
		return nil
	}
	return playwright.Float(float64(d) / float64(time.Millisecond))
}
