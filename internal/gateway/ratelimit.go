package gateway

import (
	"context"
	"sync"
	"time"
)

// waitBuffer is added on top of the oldest entry's expiry so a resumed
// caller does not land exactly on the window edge.
const waitBuffer = 50 * time.Millisecond

// WindowLimiter is a sliding-window rate limiter shared by every gateway
// caller. A full window defers the call until the oldest entry expires; it
// never rejects. Check-and-append happens under one mutex, and the window is
// re-checked after every sleep so a caller resumed from a wait cannot race a
// newly arrived one past the budget.
type WindowLimiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	stamps []time.Time

	// onWait, when set, is invoked once per deferred call.
	onWait func()
}

// NewWindowLimiter creates a limiter admitting max requests per window.
func NewWindowLimiter(max int, window time.Duration) *WindowLimiter {
	return &WindowLimiter{max: max, window: window}
}

// SetWaitHook registers a callback fired whenever a call is deferred.
func (l *WindowLimiter) SetWaitHook(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onWait = fn
}

// Wait blocks until the window has room, then records the request.
func (l *WindowLimiter) Wait(ctx context.Context) error {
	waited := false
	for {
		l.mu.Lock()
		now := time.Now()

		expired := 0
		for expired < len(l.stamps) && now.Sub(l.stamps[expired]) >= l.window {
			expired++
		}
		if expired > 0 {
			l.stamps = append(l.stamps[:0], l.stamps[expired:]...)
		}

		if len(l.stamps) < l.max {
			l.stamps = append(l.stamps, now)
			l.mu.Unlock()
			return nil
		}

		wait := l.stamps[0].Add(l.window).Sub(now) + waitBuffer
		hook := l.onWait
		l.mu.Unlock()

		if !waited && hook != nil {
			hook()
		}
		waited = true

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Pending reports the number of requests currently inside the window.
func (l *WindowLimiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	n := 0
	for _, ts := range l.stamps {
		if now.Sub(ts) < l.window {
			n++
		}
	}
	return n
}
