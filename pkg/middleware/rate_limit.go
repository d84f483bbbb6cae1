package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	apperrors "appointments/pkg/errors"
	httputil "appointments/pkg/http"
	"appointments/pkg/logger"

	"golang.org/x/time/rate"
)

const (
	rateLimitCleanupInterval = time.Minute
	rateLimitStaleAfter      = 3 * time.Minute
)

type rateClient struct {
	limiter *rate.Limiter
	seen    time.Time
}

// ClientRateLimiter keeps one token bucket per client IP.
type ClientRateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*rateClient
	limit    rate.Limit
	burst    int
	log      *logger.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewClientRateLimiter(rps float64, burst int, log *logger.Logger) *ClientRateLimiter {
	rl := &ClientRateLimiter{
		clients: make(map[string]*rateClient),
		limit:   rate.Limit(rps),
		burst:   burst,
		log:     log,
		stopCh:  make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

func (rl *ClientRateLimiter) cleanup() {
	ticker := time.NewTicker(rateLimitCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for ip, c := range rl.clients {
				if time.Since(c.seen) > rateLimitStaleAfter {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *ClientRateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCh)
	})
}

func (rl *ClientRateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	c, ok := rl.clients[ip]
	if !ok {
		c = &rateClient{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[ip] = c
	}
	c.seen = time.Now()
	rl.mu.Unlock()

	return c.limiter.Allow()
}

// RateLimit throttles state-changing requests per client IP. Reads pass.
func RateLimit(rl *ClientRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			if !rl.Allow(ip) {
				rl.log.Warn("Rate limit exceeded",
					"request_id", RequestIDFromContext(r.Context()),
					"client_ip", ip,
					"path", r.URL.Path,
				)
				_ = httputil.WriteError(w, apperrors.RateLimited("Too many requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
