package telemetry

import "time"

// ThrottledLogger wraps Logger with an OncePer keyed on the log message
// itself, so repeated Warn calls for the same condition (the canonical
// case being "router unavailable", logged at most once per minute) collapse to
// at most one line per interval while every call still returns its
// fallback value to the caller.
type ThrottledLogger struct {
	Logger
	limiter *OncePer
}

// NewThrottledLogger builds a ThrottledLogger with the given throttle
// interval.
func NewThrottledLogger(base Logger, interval time.Duration) ThrottledLogger {
	return ThrottledLogger{Logger: base, limiter: NewOncePer(interval)}
}

func (l ThrottledLogger) Warn(msg string, fields map[string]any) {
	if !l.limiter.Allow(msg) {
		return
	}
	l.Logger.Warn(msg, fields)
}
