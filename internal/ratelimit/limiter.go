// Package ratelimit implements the per-user sliding window the bank
// engine applies separately to deposit and withdrawal intents. The
// dispatcher is single-writer, so no locking is needed here.
package ratelimit

import (
	"time"

	"bankengine/internal/ledger"
)

type window struct {
	counter     uint64
	windowStart time.Time
}

// Limiter tracks one window per user. Construct one Limiter per flow
// (deposit, withdrawal) — they must not share state since each flow's
// request_limit/replenishment_interval is configured independently.
type Limiter struct {
	requestLimit          uint64
	replenishmentInterval  time.Duration
	windows               map[ledger.UserID]*window
	now                   func() time.Time
}

// New builds a Limiter that allows at most requestLimit requests per
// replenishmentInterval per user.
func New(requestLimit uint64, replenishmentInterval time.Duration) *Limiter {
	return &Limiter{
		requestLimit:          requestLimit,
		replenishmentInterval: replenishmentInterval,
		windows:               make(map[ledger.UserID]*window),
		now:                   time.Now,
	}
}

// SetClock overrides the time source, for deterministic tests.
func (l *Limiter) SetClock(now func() time.Time) {
	l.now = now
}

// Allow reports whether uid's request is within the current window. If
// the elapsed time since the window started is still under the
// replenishment interval, the counter is incremented and the request
// is rejected once it exceeds the limit; otherwise the window resets.
func (l *Limiter) Allow(uid ledger.UserID) bool {
	now := l.now()
	w, ok := l.windows[uid]
	if !ok {
		l.windows[uid] = &window{counter: 1, windowStart: now}
		return true
	}

	if now.Sub(w.windowStart) < l.replenishmentInterval {
		w.counter++
		return w.counter <= l.requestLimit
	}

	w.counter = 1
	w.windowStart = now
	return true
}
