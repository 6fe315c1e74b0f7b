package ws

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

const (
	limiterSweepEvery = 5 * time.Minute
	limiterIdleTTL    = 10 * time.Minute
)

// ConnectionRateLimiter is a token bucket per remote IP, consulted before a
// websocket upgrade. Buckets idle for limiterIdleTTL are swept.
type ConnectionRateLimiter struct {
	clock clockwork.Clock
	limit rate.Limit
	burst int

	mu        sync.Mutex
	buckets   map[string]*ipBucket
	nextSweep time.Time
}

type ipBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewConnectionRateLimiter(clock clockwork.Clock, perSecond float64, burst int) *ConnectionRateLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ConnectionRateLimiter{
		clock:     clock,
		limit:     rate.Limit(perSecond),
		burst:     max(burst, 1),
		buckets:   make(map[string]*ipBucket),
		nextSweep: clock.Now().Add(limiterSweepEvery),
	}
}

// Allow reports whether a new connection from ip may proceed.
func (l *ConnectionRateLimiter) Allow(ip string) bool {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if !now.Before(l.nextSweep) {
		l.sweep(now)
		l.nextSweep = now.Add(limiterSweepEvery)
	}

	b, ok := l.buckets[ip]
	if !ok {
		b = &ipBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// sweep drops idle buckets. l.mu must be held.
func (l *ConnectionRateLimiter) sweep(now time.Time) {
	for ip, b := range l.buckets {
		if now.Sub(b.lastSeen) > limiterIdleTTL {
			delete(l.buckets, ip)
		}
	}
}
