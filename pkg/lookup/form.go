package lookup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/postal-lookup/pkg/browser"
	"github.com/entrhq/postal-lookup/pkg/normalize"
)

// Keys used to accept an autocomplete suggestion.
const (
	KeyArrowDown = "ArrowDown"
	KeyEnter     = "Enter"
)

// Form performs verified interactions against one page.
type Form struct {
	Driver browser.Driver
	Pacing Pacing
	Log    Logger
}

// NewForm returns a Form; a nil logger discards output.
func NewForm(drv browser.Driver, pacing Pacing, log Logger) *Form {
	if log == nil {
		log = NopLogger{}
	}
	return &Form{Driver: drv, Pacing: pacing, Log: log}
}

// SelectAutocomplete types expected into an autocomplete field, accepts the
// first suggestion and confirms the committed value contains expected. A
// mismatch is retried up to maxRetries attempts in total; driver errors
// abort immediately.
func (f *Form) SelectAutocomplete(ctx context.Context, field, expected, label string, maxRetries int) error {
	if maxRetries < 1 {
		maxRetries = 1
	}

	attempt := func(n int) (bool, string, error) {
		if err := f.autocomplete(ctx, field, expected); err != nil {
			return false, "", err
		}
		value, err := f.Driver.InputValue(ctx, field)
		if err != nil {
			return false, "", err
		}
		actual := strings.ToUpper(strings.TrimSpace(value))
		f.Log.Debugf("Verifying %s: attempt %d → '%s'", label, n, actual)
		return normalize.Contains(actual, expected), actual, nil
	}

	for n := 1; n <= maxRetries; n++ {
		confirmed, _, err := attempt(n)
		if err != nil {
			return err
		}
		if confirmed {
			return nil
		}
		f.Log.Warnf("%s value not correctly applied, retrying...", capitalize(label))
	}

	return &Error{
		Kind:    KindSelectionFailed,
		Label:   label,
		Message: fmt.Sprintf("Failed to select %s correctly after %d attempts.", label, maxRetries),
	}
}

// autocomplete runs one click, fill, ArrowDown, Enter sequence.
func (f *Form) autocomplete(ctx context.Context, field, value string) error {
	if err := f.Driver.Click(ctx, field, browser.ClickOptions{}); err != nil {
		return err
	}
	if err := f.Pacing.Wait(ctx, StepFocus); err != nil {
		return err
	}
	if err := f.Driver.Fill(ctx, field, value); err != nil {
		return err
	}
	if err := f.Pacing.Wait(ctx, StepSuggest); err != nil {
		return err
	}
	if err := f.Driver.Press(ctx, KeyArrowDown); err != nil {
		return err
	}
	if err := f.Pacing.Wait(ctx, StepHighlight); err != nil {
		return err
	}
	if err := f.Driver.Press(ctx, KeyEnter); err != nil {
		return err
	}
	return f.Pacing.Wait(ctx, StepSettle)
}

// FillVerified fills a plain input and requires the trimmed echo to equal the
// trimmed value. There is no retry: plain inputs fill reliably, so a mismatch
// means the page changed.
func (f *Form) FillVerified(ctx context.Context, field, value, label string) error {
	if err := f.Driver.Fill(ctx, field, value); err != nil {
		return err
	}
	if err := f.Pacing.Wait(ctx, StepFill); err != nil {
		return err
	}

	echoed, err := f.Driver.InputValue(ctx, field)
	if err != nil {
		return err
	}
	filled := strings.TrimSpace(echoed)
	if filled != strings.TrimSpace(value) {
		return &Error{
			Kind:    KindFillMismatch,
			Label:   label,
			Message: fmt.Sprintf("%s field not filled correctly: expected '%s', got '%s'", capitalize(label), value, filled),
		}
	}
	return nil
}

// PollEnabled checks control up to attempts times, interval apart, and
// returns as soon as it is enabled.
func (f *Form) PollEnabled(ctx context.Context, control, label string, attempts int, interval time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}

	for i := 1; i <= attempts; i++ {
		enabled, err := f.Driver.IsEnabled(ctx, control)
		if err != nil {
			return err
		}
		if enabled {
			f.Log.Debugf("%s enabled after %d check(s)", label, i)
			return nil
		}
		if i == attempts {
			break
		}
		if err := sleep(ctx, interval); err != nil {
			return err
		}
	}

	return &Error{
		Kind:    KindTimeout,
		Label:   label,
		Message: fmt.Sprintf("%s did not become enabled in time.", capitalize(label)),
	}
}

// ExtractResult waits for the result element to be visible and returns its
// trimmed text.
func (f *Form) ExtractResult(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	if err := f.Driver.WaitVisible(ctx, selector, timeout); err != nil {
		return "", err
	}
	text, err := f.Driver.InnerText(ctx, selector)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
