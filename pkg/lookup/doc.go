// Package lookup drives the Correos de Chile postal-code form through a
// browser.Driver and turns the outcome into a Result.
//
// The form loads and validates asynchronously and its state can only be
// observed by polling the DOM, so every interaction is paired with a check:
//
//   - Form.SelectAutocomplete types into an autocomplete widget, accepts the
//     first suggestion and confirms the committed value, retrying on mismatch
//   - Form.FillVerified fills a plain input and confirms the exact echo
//   - Form.PollEnabled waits, with a bounded number of checks, for a control
//     that the page enables only after validation
//   - Form.ExtractResult waits for the result element and reads its text
//
// Controller owns one browser session per lookup and runs these steps in a
// fixed order. Any failure, including a panic inside the sequence, becomes a
// Failure result after a best-effort screenshot, and the session is closed
// on every exit path.
//
// Sleeps between interactions are scheduling points for UI animations and
// debounces, not correctness gates. They are named Steps in a Pacing policy
// so tests can zero them.
package lookup
