// Package logging provides the leveled logger used by the postal lookup CLI.
//
// Lines look like:
//
//	[2026-10-19 15:04:05.000] [3f2a9c1e] [INFO] Navigating to postal code page...
//
// The bracketed id is a per-process run id, so lines from concurrent runs
// sharing a log sink can be told apart. Level tags are colored only when the
// writer is a terminal.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
)

// LogLevel represents the logging verbosity level
type LogLevel int

const (
	// LogLevelQuiet shows only warnings and errors
	LogLevelQuiet LogLevel = iota
	// LogLevelNormal shows step progress (default)
	LogLevelNormal
	// LogLevelVerbose adds lookup state transitions
	LogLevelVerbose
	// LogLevelDebug adds verification attempts
	LogLevelDebug
)

var levelNames = map[string]LogLevel{
	"quiet":   LogLevelQuiet,
	"normal":  LogLevelNormal,
	"verbose": LogLevelVerbose,
	"debug":   LogLevelDebug,
}

// ParseLevel converts a verbosity name into a LogLevel.
func ParseLevel(name string) (LogLevel, error) {
	if name == "" {
		return LogLevelNormal, nil
	}
	level, ok := levelNames[strings.ToLower(name)]
	if !ok {
		return LogLevelNormal, fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", name)
	}
	return level, nil
}

var (
	runID     string
	runIDOnce sync.Once
)

// RunID returns the id shared by every logger in this process.
func RunID() string {
	runIDOnce.Do(func() {
		runID = uuid.New().String()[:8]
	})
	return runID
}

// Logger writes leveled, timestamped lines to a writer.
type Logger struct {
	mu     sync.Mutex
	level  LogLevel
	writer io.Writer
	runID  string
	now    func() time.Time

	debugTag   lipgloss.Style
	verboseTag lipgloss.Style
	infoTag    lipgloss.Style
	warnTag    lipgloss.Style
	errorTag   lipgloss.Style
	faint      lipgloss.Style
}

// NewLogger creates a logger at level writing to w. A nil writer means stderr:
// stdout is reserved for the lookup result.
func NewLogger(level LogLevel, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	r := lipgloss.NewRenderer(w)
	return &Logger{
		level:      level,
		writer:     w,
		runID:      RunID(),
		now:        time.Now,
		debugTag:   r.NewStyle().Foreground(lipgloss.Color("8")),
		verboseTag: r.NewStyle().Foreground(lipgloss.Color("5")),
		infoTag:    r.NewStyle().Foreground(lipgloss.Color("6")),
		warnTag:    r.NewStyle().Foreground(lipgloss.Color("3")),
		errorTag:   r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		faint:      r.NewStyle().Faint(true),
	}
}

// Level returns the configured level.
func (l *Logger) Level() LogLevel {
	return l.level
}

// formatLogEntry creates a log entry with timestamp, run id and level
func (l *Logger) formatLogEntry(tag lipgloss.Style, level, message string) string {
	timestamp := l.now().Format("2006-01-02 15:04:05.000")
	return fmt.Sprintf("%s %s %s %s",
		l.faint.Render("["+timestamp+"]"),
		l.faint.Render("["+l.runID+"]"),
		tag.Render("["+level+"]"),
		message,
	)
}

func (l *Logger) write(min LogLevel, tag lipgloss.Style, level, format string, v ...interface{}) {
	if l.level < min {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	message := fmt.Sprintf(format, v...)
	fmt.Fprintln(l.writer, l.formatLogEntry(tag, level, message))
}

// Debugf logs a debug-level message (debug only)
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.write(LogLevelDebug, l.debugTag, "DEBUG", format, v...)
}

// Infof logs an info-level message (normal and above)
func (l *Logger) Infof(format string, v ...interface{}) {
	l.write(LogLevelNormal, l.infoTag, "INFO", format, v...)
}

// Verbosef logs a verbose-level message (verbose and debug)
func (l *Logger) Verbosef(format string, v ...interface{}) {
	l.write(LogLevelVerbose, l.verboseTag, "VERBOSE", format, v...)
}

// Warnf logs a warning (always)
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.write(LogLevelQuiet, l.warnTag, "WARN", format, v...)
}

// Errorf logs an error (always)
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.write(LogLevelQuiet, l.errorTag, "ERROR", format, v...)
}
