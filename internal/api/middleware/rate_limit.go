package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// Reads get twice the write budget.
const (
	readMultiplier    = 2
	maxTrackedClients = 10000
)

type rateLimitTier int

const (
	tierRead rateLimitTier = iota
	tierWrite
)

// apiRateLimiter holds per-IP token buckets per tier. The least recently seen
// clients are dropped once maxTrackedClients is reached.
type apiRateLimiter struct {
	perMin int
	mu     sync.Mutex
	read   *lru.Cache[string, *rate.Limiter]
	write  *lru.Cache[string, *rate.Limiter]
}

func newAPIRateLimiter(perMin, size int) *apiRateLimiter {
	read, _ := lru.New[string, *rate.Limiter](size)
	write, _ := lru.New[string, *rate.Limiter](size)
	return &apiRateLimiter{perMin: perMin, read: read, write: write}
}

func (l *apiRateLimiter) limitPerMin(t rateLimitTier) int {
	if t == tierRead {
		return l.perMin * readMultiplier
	}
	return l.perMin
}

func (l *apiRateLimiter) getLimiter(ip string, t rateLimitTier) *rate.Limiter {
	table := l.write
	if t == tierRead {
		table = l.read
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := table.Get(ip); ok {
		return lim
	}
	perMin := l.limitPerMin(t)
	lim := rate.NewLimiter(rate.Limit(float64(perMin)/60.0), perMin)
	table.Add(ip, lim)
	return lim
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx >= 0 {
		addr = addr[:idx]
	}
	return addr
}

func isOpsPath(path string) bool {
	return path == "/health" || path == "/metrics" || strings.HasPrefix(path, "/healthz/")
}

func tierForRequest(r *http.Request) rateLimitTier {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return tierRead
	}
	return tierWrite
}

// RateLimit limits requests per client IP: perMin writes and twice that many reads per minute.
// perMin <= 0 disables limiting. Health checks and /metrics are never limited.
// Rejected requests get 429 with Retry-After; every response carries X-RateLimit-* headers.
func RateLimit(perMin int) func(http.Handler) http.Handler {
	if perMin <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiters := newAPIRateLimiter(perMin, maxTrackedClients)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isOpsPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			tier := tierForRequest(r)
			limit := strconv.Itoa(limiters.limitPerMin(tier))
			limiter := limiters.getLimiter(getClientIP(r), tier)

			reservation := limiter.Reserve()
			if delay := reservation.Delay(); !reservation.OK() || delay > 0 {
				reservation.Cancel()
				retryAfter := int(delay.Seconds()) + 1
				if !reservation.OK() || retryAfter > 60 {
					retryAfter = 60
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("X-RateLimit-Limit", limit)
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Duration(retryAfter)*time.Second).Unix(), 10))
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"Too many requests. Please retry later.","code":"RATE_LIMIT_EXCEEDED"}`))
				return
			}

			tokens := int(limiter.Tokens())
			if tokens < 0 {
				tokens = 0
			}
			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(tokens))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10))
			next.ServeHTTP(w, r)
		})
	}
}
