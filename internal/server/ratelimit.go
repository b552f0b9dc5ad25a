package server

import (
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/thruflo/unidlewatch/internal/config"
	"golang.org/x/time/rate"
)

// visitorTTL is how long an idle IP keeps its token bucket.
const visitorTTL = 10 * time.Minute

// rateLimiter hands every client IP its own token bucket for opening
// event streams. Browsers reconnect on their own, so a misbehaving page
// could otherwise hammer the server.
type rateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	visitors map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// checkResult represents the result of a rate limit check.
type checkResult struct {
	Allowed    bool
	RetryAfter time.Duration
}

func newRateLimiter(cfg config.RateLimitConfig) *rateLimiter {
	if cfg.PerSecond <= 0 {
		cfg.PerSecond = config.DefaultRateLimitPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = config.DefaultRateLimitBurst
	}
	return &rateLimiter{
		limit:    rate.Limit(cfg.PerSecond),
		burst:    cfg.Burst,
		visitors: make(map[string]*visitor),
	}
}

// check takes a token from the IP's bucket at now.
func (rl *rateLimiter) check(ip string, now time.Time) checkResult {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now

	if v.limiter.AllowN(now, 1) {
		return checkResult{Allowed: true}
	}

	r := v.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	// Retry-After has whole second resolution.
	retry := time.Duration(math.Ceil(delay.Seconds())) * time.Second
	if retry < time.Second {
		retry = time.Second
	}
	return checkResult{Allowed: false, RetryAfter: retry}
}

// cleanup forgets IPs that have not been seen for visitorTTL.
func (rl *rateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > visitorTTL {
			delete(rl.visitors, ip)
		}
	}
}

func (rl *rateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// extractIP extracts the client IP from the request.
// It checks X-Forwarded-For and X-Real-IP headers first (for reverse proxy scenarios),
// then falls back to the remote address.
func extractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can be "client, proxy1, proxy2"
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr might not have a port
		return r.RemoteAddr
	}
	return ip
}
