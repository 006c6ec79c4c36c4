package grove

import "log/slog"

// Logger receives the container's diagnostics as structured key/value
// pairs:
//
//	logger.Debug("Service activated", "key", "*app.Database", "scope", id)
//
// It matches the method set of *slog.Logger, so [NewSlogLogger] is only a
// thin adapter.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogLogger adapts a *slog.Logger to [Logger].
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger returns a [Logger] writing to l, tagged with the grove
// component. A nil l uses slog.Default().
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{logger: l.With("component", "grove")}
}

func (a *SlogLogger) Debug(msg string, args ...any) { a.logger.Debug(msg, args...) }
func (a *SlogLogger) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *SlogLogger) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *SlogLogger) Error(msg string, args ...any) { a.logger.Error(msg, args...) }

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
