// Package browser provides the browser capability set the postal lookup flow
// depends on, and its binding to Playwright.
//
// # Architecture
//
// The lookup flow never touches Playwright directly. It talks to a Driver,
// the small set of page operations it needs:
//
//   - Navigate and WaitForSelector to load the form
//   - Click, Fill and Press to interact with inputs
//   - InputValue, IsEnabled and InnerText to observe the DOM
//   - WaitVisible to gate on asynchronous rendering
//   - Screenshot for diagnostics
//
// A Launcher creates one Driver per lookup. The Driver owns a browser process
// and a single page, and Close releases both. Tests bind the same interfaces
// to the scripted fake in package browsertest.
//
// # Timeouts
//
// Engine timeouts are reported as errors matching ErrTimeout with errors.Is,
// while keeping the engine's own message as the error text.
//
// # Example Usage
//
//	launcher := browser.NewPlaywrightLauncher(browser.SessionOptions{Headless: true})
//	drv, err := launcher.Launch(ctx)
//	if err != nil {
//	    return err
//	}
//	defer drv.Close()
//
//	err = drv.Navigate(ctx, "https://www.correos.cl/codigo-postal", 30*time.Second)
package browser
