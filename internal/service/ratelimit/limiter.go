package ratelimit

import (
    "sync"
    "time"

    "golang.org/x/time/rate"
)

type entry struct {
    lim  *rate.Limiter
    seen time.Time
}

// Limiter keeps one token bucket per key. Every key shares the same burst and refill rate.
type Limiter struct {
    mu        sync.Mutex
    m         map[string]*entry
    limit     rate.Limit
    burst     int
    idle      time.Duration
    now       func() time.Time
    lastSweep time.Time
}

// New creates a limiter allowing bursts of capacity and refillPerSec sustained requests per key.
// Capacity below 1 is treated as 1.
func New(capacity, refillPerSec float64) *Limiter {
    if capacity < 1 {
        capacity = 1
    }
    if refillPerSec < 0 {
        refillPerSec = 0
    }
    return &Limiter{
        m:     make(map[string]*entry),
        limit: rate.Limit(refillPerSec),
        burst: int(capacity),
        idle:  10 * time.Minute,
        now:   time.Now,
    }
}

// Allow reports whether one request for key may proceed now.
func (l *Limiter) Allow(key string) bool {
    return l.allowAt(key, l.now())
}

func (l *Limiter) allowAt(key string, now time.Time) bool {
    l.mu.Lock()
    defer l.mu.Unlock()

    l.sweep(now)

    e, ok := l.m[key]
    if !ok {
        e = &entry{lim: rate.NewLimiter(l.limit, l.burst)}
        l.m[key] = e
    }
    e.seen = now
    return e.lim.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
    l.mu.Lock()
    defer l.mu.Unlock()
    return len(l.m)
}

// sweep drops keys untouched for longer than the idle window. Caller holds mu.
func (l *Limiter) sweep(now time.Time) {
    if l.lastSweep.IsZero() {
        l.lastSweep = now
    }
    if now.Sub(l.lastSweep) < l.idle {
        return
    }
    l.lastSweep = now
    for k, e := range l.m {
        if now.Sub(e.seen) >= l.idle {
            delete(l.m, k)
        }
    }
}
