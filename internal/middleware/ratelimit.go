package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/apines/go-travelcover/pkg/problem"
)

// RateLimiter is a per-client sliding-window limiter kept in process
// memory. Quote pricing is cheap but reference lookups hit the store,
// so we cap request bursts per source address.
type RateLimiter struct {
	mu     sync.Mutex
	seen   map[string][]time.Time
	limit  int
	window time.Duration
	stopCh chan struct{}
}

// NewRateLimiter allows up to limit requests per window per client.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		seen:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
		stopCh: make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// Stop terminates the background sweep goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// StartWithContext stops the limiter when ctx is cancelled.
func (rl *RateLimiter) StartWithContext(ctx context.Context) {
	go func() {
		<-ctx.Done()
		rl.Stop()
	}()
}

// sweep drops clients whose whole window has elapsed so the map does
// not grow without bound.
func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := time.Now().Add(-rl.window)
			for ip, stamps := range rl.seen {
				kept := stamps[:0]
				for _, t := range stamps {
					if t.After(cutoff) {
						kept = append(kept, t)
					}
				}
				if len(kept) == 0 {
					delete(rl.seen, ip)
				} else {
					rl.seen[ip] = kept
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	var live []time.Time
	for _, t := range rl.seen[ip] {
		if t.After(cutoff) {
			live = append(live, t)
		}
	}

	if len(live) >= rl.limit {
		rl.seen[ip] = live
		return false
	}

	rl.seen[ip] = append(live, now)
	return true
}

// Middleware enforces the limit. Mount after chi's RealIP middleware so
// RemoteAddr reflects the client behind trusted proxies; X-Forwarded-For
// is never read directly here because clients can forge it.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r.RemoteAddr)

		if !rl.allow(ip) {
			w.Header().Set("Retry-After", "60")
			problem.Write(w, http.StatusTooManyRequests, "Rate Limit Exceeded",
				"Too many requests. Please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from a RemoteAddr, handling the bracketed
// IPv6 form "[::1]:port".
func clientIP(addr string) string {
	if i := strings.LastIndex(addr, "]:"); i != -1 {
		return strings.TrimPrefix(addr[:i], "[")
	}
	if strings.Count(addr, ":") == 1 {
		return addr[:strings.Index(addr, ":")]
	}
	return addr
}
