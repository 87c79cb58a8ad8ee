package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimit is a token bucket budget per client.
type RateLimit struct {
	RequestsPerMinute float64
	Burst             int
}

const visitorIdleTTL = 5 * time.Minute

type rateEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client and route key.
type RateLimiter struct {
	logger     *slog.Logger
	limits     map[string]RateLimit
	onThrottle func(key string)

	mu        sync.Mutex
	visitors  map[string]*rateEntry
	lastSweep time.Time
	clockNow  func() time.Time
}

func NewRateLimiter(limits map[string]RateLimit, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		logger:   logger.With(slog.String("component", "ratelimit")),
		limits:   limits,
		visitors: make(map[string]*rateEntry),
		clockNow: time.Now,
	}
}

// OnThrottle registers a callback invoked for every rejected request.
func (r *RateLimiter) OnThrottle(fn func(key string)) {
	r.onThrottle = fn
}

func (r *RateLimiter) Middleware(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			limit, ok := r.limits[key]
			if !ok || limit.RequestsPerMinute <= 0 {
				next.ServeHTTP(w, req)
				return
			}
			client := clientID(req)
			if !r.allow(key+"|"+client, limit) {
				r.logger.Debug("request throttled", slog.String("route", key), slog.String("client", client))
				if r.onThrottle != nil {
					r.onThrottle(key)
				}
				writeError(w, http.StatusTooManyRequests, "rate_limited", http.StatusText(http.StatusTooManyRequests))
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

func (r *RateLimiter) allow(id string, cfg RateLimit) bool {
	now := r.clockNow()

	r.mu.Lock()
	defer r.mu.Unlock()
	if now.Sub(r.lastSweep) > visitorIdleTTL {
		for visitor, entry := range r.visitors {
			if now.Sub(entry.lastSeen) > visitorIdleTTL {
				delete(r.visitors, visitor)
			}
		}
		r.lastSweep = now
	}
	entry, ok := r.visitors[id]
	if !ok {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		entry = &rateEntry{limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60.0), burst)}
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
