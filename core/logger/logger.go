package logger

// Logger exposes logging methods for common severity levels.
type Logger interface {
	// Tracef is used for per-sample and per-device chatter that is normally
	// silenced, such as suppressed no-op commands.
	Tracef(format string, args ...any)
	Debugf(format string, args ...any)
	// Debugw logs a message with structured fields.
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// StructuredLogger can log structured debug information. It is implemented by
// ZerologLogger and other adapters.
type StructuredLogger interface {
	Debugw(msg string, fields map[string]any)
}
