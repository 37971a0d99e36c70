package telemetry

import (
	"sync"
	"time"
)

// OncePer throttles a repeating log line to at most once per interval per
// key. Safe for concurrent use.
type OncePer struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[string]time.Time
}

// NewOncePer constructs a rate limiter with the given interval.
func NewOncePer(interval time.Duration) *OncePer {
	return &OncePer{interval: interval, last: make(map[string]time.Time)}
}

// Allow reports whether key may fire now, recording the attempt's
// timestamp only when it does.
func (o *OncePer) Allow(key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now()
	if last, ok := o.last[key]; ok && now.Sub(last) < o.interval {
		return false
	}
	o.last[key] = now
	return true
}
