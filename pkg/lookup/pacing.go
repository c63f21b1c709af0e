package lookup

import (
	"context"
	"time"
)

// Step names a pacing point in the form flow.
type Step string

// Pacing points, in flow order.
const (
	StepPageReady Step = "page_ready" // after the search input appears
	StepFocus     Step = "focus"      // after clicking an autocomplete input
	StepSuggest   Step = "suggest"    // after typing, for the suggestion list
	StepHighlight Step = "highlight"  // after ArrowDown
	StepSettle    Step = "settle"     // after Enter commits a suggestion
	StepFill      Step = "fill"       // after filling a plain input
	StepValidate  Step = "validate"   // after clicking away to trigger validation
	StepSubmit    Step = "submit"     // after clicking search
)

// Steps lists every pacing point.
var Steps = []Step{
	StepPageReady, StepFocus, StepSuggest, StepHighlight,
	StepSettle, StepFill, StepValidate, StepSubmit,
}

// Pacing maps pacing points to delays. Missing steps do not wait.
type Pacing map[Step]time.Duration

// DefaultPacing returns delays tuned to the live page.
func DefaultPacing() Pacing {
	return Pacing{
		StepPageReady: 1 * time.Second,
		StepFocus:     500 * time.Millisecond,
		StepSuggest:   1200 * time.Millisecond,
		StepHighlight: 300 * time.Millisecond,
		StepSettle:    1 * time.Second,
		StepFill:      500 * time.Millisecond,
		StepValidate:  1 * time.Second,
		StepSubmit:    2 * time.Second,
	}
}

// NoPacing returns a policy where every step is immediate.
func NoPacing() Pacing {
	p := make(Pacing, len(Steps))
	for _, s := range Steps {
		p[s] = 0
	}
	return p
}

// Wait sleeps for the step's delay or until ctx is done.
func (p Pacing) Wait(ctx context.Context, step Step) error {
	return sleep(ctx, p[step])
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
