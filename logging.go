package variants

import (
	"context"
	"log/slog"
)

// ResolutionLogEvent describes one typed lookup for logging.
type ResolutionLogEvent struct {
	Group    string
	Key      Key
	Reason   Reason
	Revision uint64
	Err      error
}

// ResolutionLogger records resolution events.
type ResolutionLogger interface {
	LogResolution(ResolutionLogEvent)
}

// ResolutionLoggerFunc adapts a function to ResolutionLogger.
type ResolutionLoggerFunc func(ResolutionLogEvent)

// LogResolution implements ResolutionLogger.
func (f ResolutionLoggerFunc) LogResolution(event ResolutionLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopResolutionLogger struct{}

func (noopResolutionLogger) LogResolution(ResolutionLogEvent) {}

// SlogLogger logs data errors (type mismatches, invalid values) at warn level
// and every other outcome at debug level.
func SlogLogger(logger *slog.Logger) ResolutionLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return ResolutionLoggerFunc(func(event ResolutionLogEvent) {
		level := slog.LevelDebug
		if event.Err != nil && event.Reason != ReasonMissing {
			level = slog.LevelWarn
		}
		attrs := []slog.Attr{
			slog.String("key", string(event.Key)),
			slog.String("reason", string(event.Reason)),
			slog.Uint64("revision", event.Revision),
		}
		if event.Group != "" {
			attrs = append(attrs, slog.String("group", event.Group))
		}
		if event.Err != nil {
			attrs = append(attrs, slog.String("error", event.Err.Error()))
		}
		logger.LogAttrs(context.Background(), level, "variant resolved", attrs...)
	})
}
