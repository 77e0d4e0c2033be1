package httpmiddleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// RateLimitConfig configures the per-client sliding window limiter.
type RateLimitConfig struct {
	// Max requests per Window. Zero disables limiting.
	Max    int
	Window time.Duration
	// Clients bounds the number of tracked clients. Defaults to 10000.
	Clients int
	// KeyFunc identifies the client. Defaults to the client IP.
	KeyFunc func(*http.Request) string
}

// window counts requests in the current and previous fixed windows. The
// sliding count weights the previous window by how much of it still
// overlaps the sliding window.
type window struct {
	mu        sync.Mutex
	prev      float64
	curr      float64
	currStart time.Time
}

func (w *window) take(now time.Time, size time.Duration, limit int) (remaining int, reset time.Time, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currStart.IsZero() {
		w.currStart = now.Truncate(size)
	}
	if elapsed := now.Sub(w.currStart); elapsed >= size {
		if elapsed >= 2*size {
			w.prev = 0
		} else {
			w.prev = w.curr
		}
		w.curr = 0
		w.currStart = now.Truncate(size)
	}

	overlap := 1 - now.Sub(w.currStart).Seconds()/size.Seconds()
	count := w.prev*math.Max(overlap, 0) + w.curr
	reset = w.currStart.Add(size)
	if count >= float64(limit) {
		return 0, reset, false
	}

	w.curr++
	return max(int(float64(limit)-count-1), 0), reset, true
}

type rateLimiter struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	clients *expirable.LRU[string, *window]
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientIP
	}
	if cfg.Clients <= 0 {
		cfg.Clients = 10000
	}
	return &rateLimiter{
		cfg: cfg,
		// A client idle for two windows has nothing left to count.
		clients: expirable.NewLRU[string, *window](cfg.Clients, nil, 2*cfg.Window),
	}
}

func (rl *rateLimiter) client(key string) *window {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.clients.Get(key)
	if !ok {
		w = &window{}
	}
	// Re-adding restarts the idle timer.
	rl.clients.Add(key, w)
	return w
}

// RateLimit limits each client to cfg.Max requests per sliding cfg.Window.
// Rejected requests get 429 with the API error body. Every response carries
// X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Max <= 0 || cfg.Window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	rl := newRateLimiter(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			remaining, reset, ok := rl.client(rl.cfg.KeyFunc(r)).take(now, rl.cfg.Window, rl.cfg.Max)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

			if !ok {
				retry := max(reset.Sub(now), 0)
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// peer address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
