package delivery

import (
	"sync"
	"time"
)

// RateLimiter bounds sends per recipient using an in-memory sliding window.
// A throttled attempt resolves to a failed outcome like any other delivery
// problem; the notification record is already reserved by then.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*slidingWindow
	limit   int
	window  time.Duration
}

type slidingWindow struct {
	timestamps []time.Time
}

// NewRateLimiter allows limit sends per key per window. A limit of zero or
// below disables throttling.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*slidingWindow),
		limit:   limit,
		window:  window,
	}
}

// Allow reports whether another send for key fits in the window, counting
// it if so.
func (l *RateLimiter) Allow(key string, now time.Time) bool {
	if l.limit <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	sw := l.windows[key]
	if sw == nil {
		sw = &slidingWindow{}
		l.windows[key] = sw
	}
	sw.cleanup(now, l.window)

	if len(sw.timestamps) >= l.limit {
		return false
	}
	sw.timestamps = append(sw.timestamps, now)
	return true
}

func (sw *slidingWindow) cleanup(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}
