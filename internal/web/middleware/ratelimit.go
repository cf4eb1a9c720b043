package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiter keeps one token bucket per client IP.
type limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration // visitors unseen this long are evicted
	now      func() time.Time
}

type visitor struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// newLimiter allows n requests per window, refilled evenly across it.
func newLimiter(n int, window time.Duration) *limiter {
	return &limiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(window / time.Duration(n)),
		burst:    n,
		idle:     2 * window,
		now:      time.Now,
	}
}

// allow reports whether ip may make a request now and consumes a token if so.
// Idle visitors are evicted on the way.
func (l *limiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idle {
			delete(l.visitors, k)
		}
	}

	v, exists := l.visitors[ip]
	if !exists {
		v = &visitor{bucket: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.bucket.AllowN(now, 1)
}

// RateLimit allows n requests per window from each client IP. Requests
// over the limit are answered by reject. RemoteAddr is used as the client
// key, so TrustedRealIP must run first behind a proxy.
func RateLimit(n int, window time.Duration, reject http.HandlerFunc) func(http.Handler) http.Handler {
	l := newLimiter(n, window)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			if addr, ok := extractAddr(ip); ok {
				ip = addr.String()
			}
			if !l.allow(ip) {
				reject(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
