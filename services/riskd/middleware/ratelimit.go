package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"riskgate/observability"
)

type RateLimit struct {
	RequestsPerMinute float64
	Burst             int
}

type rateEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client address. Idle buckets are
// dropped after idleTTL.
type RateLimiter struct {
	limit    RateLimit
	mu       sync.Mutex
	visitors map[string]*rateEntry
	idleTTL  time.Duration
	lastScan time.Time
	clockNow func() time.Time
}

func NewRateLimiter(limit RateLimit) *RateLimiter {
	return &RateLimiter{
		limit:    limit,
		visitors: make(map[string]*rateEntry),
		idleTTL:  5 * time.Minute,
		clockNow: time.Now,
	}
}

// Middleware rejects requests over the client's budget with 429. module
// labels the throttle metric.
func (r *RateLimiter) Middleware(module string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if r == nil || r.limit.RequestsPerMinute <= 0 {
				next.ServeHTTP(w, req)
				return
			}
			if !r.allow(clientID(req)) {
				observability.HTTP().RecordThrottle(module, "rate_limit")
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

func (r *RateLimiter) allow(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clockNow()
	if now.Sub(r.lastScan) > r.idleTTL {
		for key, entry := range r.visitors {
			if now.Sub(entry.lastSeen) > r.idleTTL {
				delete(r.visitors, key)
			}
		}
		r.lastScan = now
	}
	entry, ok := r.visitors[id]
	if !ok {
		burst := r.limit.Burst
		if burst <= 0 {
			burst = 1
		}
		entry = &rateEntry{limiter: rate.NewLimiter(rate.Limit(r.limit.RequestsPerMinute/60.0), burst)}
		r.visitors[id] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func clientID(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if parsed := net.ParseIP(strings.TrimSpace(first)); parsed != nil {
			return parsed.String()
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
