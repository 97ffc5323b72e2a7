package httpserver

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// defaultIdleTTL is how long a client's bucket survives without requests.
// A bucket idle that long has refilled anyway, so dropping it loses nothing.
const defaultIdleTTL = 10 * time.Minute

type visitor struct {
	lim      *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// RateLimiter keeps one token bucket per client IP. Buckets idle for longer
// than the idle TTL are swept out while serving requests.
type RateLimiter struct {
	visitors  sync.Map // ip -> *visitor
	rps       float64
	burst     int
	idleTTL   time.Duration
	lastSweep atomic.Int64
	now       func() time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 5
	}
	l := &RateLimiter{rps: rps, burst: burst, idleTTL: defaultIdleTTL, now: time.Now}
	l.lastSweep.Store(l.now().UnixNano())
	return l
}

// WithIdleTTL changes how long an unused bucket is kept.
func (l *RateLimiter) WithIdleTTL(d time.Duration) *RateLimiter {
	if d > 0 {
		l.idleTTL = d
	}
	return l
}

// WithClock replaces the clock used for idle tracking.
func (l *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	l.now = now
	l.lastSweep.Store(now().UnixNano())
	return l
}

func (l *RateLimiter) getLimiter(key string, now time.Time) *rate.Limiter {
	v, ok := l.visitors.Load(key)
	if !ok {
		v, _ = l.visitors.LoadOrStore(key, &visitor{lim: rate.NewLimiter(rate.Limit(l.rps), l.burst)})
	}
	vis := v.(*visitor)
	vis.lastSeen.Store(now.UnixNano())
	return vis.lim
}

// sweep drops idle buckets, at most once per half idle TTL. Only the caller
// that wins the CAS does the walk.
func (l *RateLimiter) sweep(now time.Time) {
	last := l.lastSweep.Load()
	if now.UnixNano()-last < int64(l.idleTTL/2) || !l.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	cutoff := now.Add(-l.idleTTL).UnixNano()
	l.visitors.Range(func(k, v any) bool {
		if v.(*visitor).lastSeen.Load() < cutoff {
			l.visitors.Delete(k)
		}
		return true
	})
}

// Clients is the number of buckets currently held.
func (l *RateLimiter) Clients() int {
	n := 0
	l.visitors.Range(func(_, _ any) bool { n++; return true })
	return n
}

// Middleware answers 429 once a client has used up its bucket.
// A non-positive rate disables limiting.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	if l == nil || l.rps <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := l.now()
		l.sweep(now)
		if !l.getLimiter(clientIP(r), now).AllowN(now, 1) {
			w.Header().Set("Retry-After", "1")
			writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}
