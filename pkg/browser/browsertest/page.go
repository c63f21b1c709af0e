// Package browsertest provides an in-memory browser.Driver driven by scripted
// element states, for exercising form flows without a real browser.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/postal-lookup/pkg/browser"
)

// Element is the scripted state of one DOM element.
type Element struct {
	Value   string
	Text    string
	Enabled bool
	Visible bool

	// Suggest returns the value committed when ArrowDown then Enter are
	// pressed in this field. attempt counts fills of the field, from 1.
	// Nil keeps whatever was typed.
	Suggest func(typed string, attempt int) string

	// EchoFill transforms a filled value before it is stored.
	EchoFill func(value string) string

	// EnableAfter makes IsEnabled report true from the Nth check on.
	// Zero means Enabled alone decides. Negative never enables.
	EnableAfter int

	fills       int
	checks      int
	highlighted bool
}

// Page is a scripted browser.Driver. Missing selectors behave like a page
// without that element: reads fail and waits time out.
type Page struct {
	mu sync.Mutex

	Elements map[string]*Element

	// OnClick runs after a click on selector, with the page lock released.
	OnClick func(p *Page, selector string)

	NavigateErr   error
	ScreenshotErr error

	// PanicOn makes the named operation panic, e.g. "Fill".
	PanicOn string

	calls       []string
	focused     string
	screenshots []string
	closeCount  int
	url         string
}

var _ browser.Driver = (*Page)(nil)

// NewPage returns an empty page.
func NewPage() *Page {
	return &Page{Elements: make(map[string]*Element)}
}

// Set registers or replaces the element behind selector and returns it.
func (p *Page) Set(selector string, el *Element) *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Elements[selector] = el
	return el
}

// Element returns the element behind selector, or nil.
func (p *Page) Element(selector string) *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Elements[selector]
}

// Calls returns the recorded operations in order, e.g. "Fill #a=X".
func (p *Page) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// CountCalls counts recorded operations with the given prefix.
func (p *Page) CountCalls(prefix string) int {
	n := 0
	for _, c := range p.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// Checks returns how many times IsEnabled was called for selector.
func (p *Page) Checks(selector string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if el, ok := p.Elements[selector]; ok {
		return el.checks
	}
	return 0
}

// Screenshots returns the paths passed to successful Screenshot calls.
func (p *Page) Screenshots() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.screenshots...)
}

// CloseCount returns how many times Close was called.
func (p *Page) CloseCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeCount
}

// URL returns the last navigated URL.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) record(op string, format string, args ...any) {
	if p.PanicOn == op {
		panic(fmt.Sprintf("browsertest: scripted panic in %s", op))
	}
	p.calls = append(p.calls, op+" "+fmt.Sprintf(format, args...))
}

func (p *Page) lookup(selector string) (*Element, error) {
	el, ok := p.Elements[selector]
	if !ok {
		return nil, fmt.Errorf("no element found matching selector: %s", selector)
	}
	return el, nil
}

// Navigate records the URL or returns NavigateErr.
func (p *Page) Navigate(ctx context.Context, url string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("Navigate", "%s", url)
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	p.url = url
	return nil
}

// WaitForSelector succeeds when the element exists.
func (p *Page) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("WaitForSelector", "%s", selector)
	if _, ok := p.Elements[selector]; !ok {
		return timeoutErr("waiting for selector %q", selector, timeout)
	}
	return nil
}

// Click focuses the element and runs OnClick.
func (p *Page) Click(ctx context.Context, selector string, opts browser.ClickOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	hook, err := p.click(selector, opts)
	if err != nil {
		return err
	}
	if hook != nil {
		hook(p, selector)
	}
	return nil
}

func (p *Page) click(selector string, opts browser.ClickOptions) (func(*Page, string), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("Click", "%s force=%t", selector, opts.Force)
	if _, err := p.lookup(selector); err != nil {
		return nil, err
	}
	p.focused = selector
	return p.OnClick, nil
}

// Fill stores value, through EchoFill when set, and focuses the element.
func (p *Page) Fill(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("Fill", "%s=%s", selector, value)
	el, err := p.lookup(selector)
	if err != nil {
		return err
	}
	el.fills++
	el.highlighted = false
	if el.EchoFill != nil {
		value = el.EchoFill(value)
	}
	el.Value = value
	p.focused = selector
	return nil
}

// Press handles ArrowDown and Enter on the focused element.
func (p *Page) Press(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("Press", "%s", key)
	el, ok := p.Elements[p.focused]
	if !ok {
		return nil
	}
	switch key {
	case "ArrowDown":
		el.highlighted = true
	case "Enter":
		if el.highlighted && el.Suggest != nil {
			el.Value = el.Suggest(el.Value, el.fills)
		}
		el.highlighted = false
	}
	return nil
}

// InputValue returns the element's value.
func (p *Page) InputValue(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("InputValue", "%s", selector)
	el, err := p.lookup(selector)
	if err != nil {
		return "", err
	}
	return el.Value, nil
}

// IsEnabled applies EnableAfter and counts checks.
func (p *Page) IsEnabled(ctx context.Context, selector string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("IsEnabled", "%s", selector)
	el, err := p.lookup(selector)
	if err != nil {
		return false, err
	}
	el.checks++
	switch {
	case el.EnableAfter < 0:
		return false, nil
	case el.EnableAfter > 0:
		return el.checks >= el.EnableAfter, nil
	default:
		return el.Enabled, nil
	}
}

// WaitVisible succeeds only if the element is already visible.
func (p *Page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("WaitVisible", "%s", selector)
	el, ok := p.Elements[selector]
	if !ok || !el.Visible {
		return timeoutErr("waiting for %q to be visible", selector, timeout)
	}
	return nil
}

// InnerText returns the element's text.
func (p *Page) InnerText(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("InnerText", "%s", selector)
	el, err := p.lookup(selector)
	if err != nil {
		return "", err
	}
	return el.Text, nil
}

// Screenshot records path or returns ScreenshotErr.
func (p *Page) Screenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("Screenshot", "%s", path)
	if p.ScreenshotErr != nil {
		return p.ScreenshotErr
	}
	p.screenshots = append(p.screenshots, path)
	return nil
}

// Close counts calls.
func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeCount++
	return nil
}

func timeoutErr(format, selector string, timeout time.Duration) error {
	return fmt.Errorf("%w: "+format+" (%s)", browser.ErrTimeout, selector, timeout)
}
