package lookup

// Logger receives progress and diagnostics from the lookup flow.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...interface{}) {}
func (NopLogger) Infof(string, ...interface{})  {}
func (NopLogger) Warnf(string, ...interface{})  {}
func (NopLogger) Errorf(string, ...interface{}) {}

// VerboseLogger is a Logger with a level between info and debug. State
// transitions go there when the logger supports it, and to Debugf otherwise.
type VerboseLogger interface {
	Logger
	Verbosef(format string, v ...interface{})
}

func verbosef(l Logger, format string, v ...interface{}) {
	if vl, ok := l.(VerboseLogger); ok {
		vl.Verbosef(format, v...)
		return
	}
	l.Debugf(format, v...)
}
