package browsertest

import (
	"context"
	"sync"

	"github.com/entrhq/postal-lookup/pkg/browser"
)

// Launcher hands out a prepared Page, or Err, and counts launches.
type Launcher struct {
	Page *Page
	Err  error

	mu       sync.Mutex
	launches int
}

var _ browser.Launcher = (*Launcher)(nil)

// NewLauncher returns a launcher serving page.
func NewLauncher(page *Page) *Launcher {
	return &Launcher{Page: page}
}

// Launch returns the prepared page.
func (l *Launcher) Launch(ctx context.Context) (browser.Driver, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launches++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.Err != nil {
		return nil, l.Err
	}
	return l.Page, nil
}

// Launches returns the number of Launch calls.
func (l *Launcher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches
}
