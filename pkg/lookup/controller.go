package lookup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/postal-lookup/pkg/browser"
)

// screenshotTimeout bounds the diagnostic capture, which runs even when the
// lookup context is already done.
const screenshotTimeout = 10 * time.Second

// Controller runs postal-code lookups, each in its own browser session.
type Controller struct {
	launcher browser.Launcher
	opts     Options
	log      Logger

	mu        sync.Mutex
	lastTrace []State
}

// NewController creates a controller. A nil logger discards output.
func NewController(launcher browser.Launcher, opts Options, log Logger) *Controller {
	if log == nil {
		log = NopLogger{}
	}
	return &Controller{
		launcher: launcher,
		opts:     opts,
		log:      log,
	}
}

// LastTrace returns the states visited by the most recent lookup.
func (c *Controller) LastTrace() []State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]State(nil), c.lastTrace...)
}

// run is the per-lookup state.
type run struct {
	opts  Options
	form  *Form
	req   Request
	trace []State
	code  string
	log   Logger
}

type step struct {
	state State
	do    func(ctx context.Context) error
}

// Lookup runs the full form flow for req. It never returns an error: every
// failure is reported through a Failure result. The browser session is
// closed before Lookup returns, whatever happened.
func (c *Controller) Lookup(ctx context.Context, req Request) Result {
	c.log.Infof("Lookup started for commune='%s', street='%s', number='%s'", req.Commune, req.Street, req.Number)

	trace := []State{StateInit}
	if err := req.Validate(); err != nil {
		c.setTrace(append(trace, StateFailed))
		return Failure(err.Error())
	}

	drv, err := c.launcher.Launch(ctx)
	if err != nil {
		c.log.Errorf("Could not start browser: %v", err)
		c.setTrace(append(trace, StateFailed))
		return Failure(fmt.Sprintf("Scraper failed: %v", err))
	}

	r := &run{
		opts:  c.opts,
		form:  NewForm(drv, c.opts.Pacing, c.log),
		req:   req.Normalized(),
		trace: trace,
		log:   c.log,
	}

	defer func() {
		c.log.Infof("Closing browser...")
		if closeErr := drv.Close(); closeErr != nil {
			c.log.Warnf("Could not close browser: %v", closeErr)
		}
		r.enter(StateClosed)
		c.setTrace(r.trace)
	}()

	code, err := r.execute(ctx)
	if err != nil {
		return c.fail(ctx, r, drv, err)
	}

	c.log.Infof("Postal code retrieved: %s", code)
	return Success(code)
}

func (c *Controller) fail(ctx context.Context, r *run, drv browser.Driver, err error) Result {
	r.enter(StateFailed)
	c.log.Errorf("Scraper failed (%s): %v", KindOf(err), err)

	if path := c.opts.ScreenshotPath; path != "" {
		if shotErr := capture(ctx, drv, path); shotErr != nil {
			c.log.Warnf("Could not capture screenshot: %v", shotErr)
		} else {
			c.log.Debugf("Screenshot saved as %s", path)
		}
	}

	return Failure(fmt.Sprintf("Scraper failed: %v", err))
}

// capture saves a screenshot on a context detached from ctx's cancellation.
// A driver panic is returned as an error.
func capture(ctx context.Context, drv browser.Driver, path string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("unexpected fault: %v", p)
		}
	}()

	shotCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), screenshotTimeout)
	defer cancel()
	return drv.Screenshot(shotCtx, path)
}

func (c *Controller) setTrace(trace []State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastTrace = trace
}

func (r *run) enter(s State) {
	r.trace = append(r.trace, s)
	verbosef(r.log, "→ %s", s)
}

// execute walks the steps in order. A panic from the driver is converted into
// an unknown fault so the caller still gets a result and a closed session.
func (r *run) execute(ctx context.Context) (code string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &Error{Kind: KindUnknownFault, Message: fmt.Sprintf("unexpected fault: %v", p)}
		}
	}()

	for _, s := range r.steps() {
		r.enter(s.state)
		if err := s.do(ctx); err != nil {
			return "", err
		}
	}
	r.enter(StateDone)
	return r.code, nil
}

func (r *run) steps() []step {
	sel := r.opts.Selectors
	drv := r.form.Driver

	return []step{
		{StateNavigate, func(ctx context.Context) error {
			r.log.Infof("Navigating to postal code page...")
			return drv.Navigate(ctx, r.opts.URL, r.opts.Timeouts.Navigation)
		}},
		{StateAwaitSearchInput, func(ctx context.Context) error {
			if err := drv.WaitForSelector(ctx, sel.Commune, r.opts.Timeouts.Selector); err != nil {
				return err
			}
			return r.opts.Pacing.Wait(ctx, StepPageReady)
		}},
		{StateSelectCommune, func(ctx context.Context) error {
			r.log.Infof("Selecting commune with verification...")
			return r.form.SelectAutocomplete(ctx, sel.Commune, r.req.Commune, "commune", r.opts.MaxRetries)
		}},
		{StateSelectStreet, func(ctx context.Context) error {
			r.log.Infof("Selecting street with verification...")
			return r.form.SelectAutocomplete(ctx, sel.Street, r.req.Street, "street", r.opts.MaxRetries)
		}},
		{StateFillNumber, func(ctx context.Context) error {
			r.log.Infof("Filling number with verification...")
			return r.form.FillVerified(ctx, sel.Number, r.req.Number, "number")
		}},
		{StateTriggerValidation, func(ctx context.Context) error {
			r.log.Infof("Triggering form validation by clicking outside...")
			if err := drv.Click(ctx, sel.ValidationLabel, browser.ClickOptions{Force: true}); err != nil {
				return err
			}
			return r.opts.Pacing.Wait(ctx, StepValidate)
		}},
		{StateAwaitSearchEnabled, func(ctx context.Context) error {
			r.log.Infof("Waiting for 'Search' button to be enabled...")
			return r.form.PollEnabled(ctx, sel.SearchButton, "search button", r.opts.PollAttempts, r.opts.PollInterval)
		}},
		{StateSubmit, func(ctx context.Context) error {
			r.log.Infof("Clicking 'Search'...")
			if err := drv.Click(ctx, sel.SearchButton, browser.ClickOptions{Force: true}); err != nil {
				return err
			}
			return r.opts.Pacing.Wait(ctx, StepSubmit)
		}},
		{StateAwaitResult, func(ctx context.Context) error {
			r.log.Infof("Waiting for postal code result...")
			code, err := r.form.ExtractResult(ctx, sel.Result, r.opts.Timeouts.Result)
			if err != nil {
				return err
			}
			r.code = code
			return nil
		}},
	}
}
