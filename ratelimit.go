package dashboard

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/oklahomer/go-kasumi/logger"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const limiterIdleExpiration = 10 * time.Minute

// loginLimiter throttles login attempts with a token bucket per client address.
// Buckets of addresses that stay quiet for limiterIdleExpiration are dropped.
type loginLimiter struct {
	mu       sync.Mutex
	limiters *cache.Cache
	interval time.Duration
	burst    int
}

// newLoginLimiter returns nil when perMinute is not positive.
func newLoginLimiter(perMinute int) *loginLimiter {
	if perMinute <= 0 {
		return nil
	}

	return &loginLimiter{
		limiters: cache.New(limiterIdleExpiration, limiterIdleExpiration),
		interval: time.Minute / time.Duration(perMinute),
		burst:    perMinute,
	}
}

func (l *loginLimiter) allow(addr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	var limiter *rate.Limiter
	if cached, ok := l.limiters.Get(addr); ok {
		limiter = cached.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(rate.Every(l.interval), l.burst)
	}

	// Refresh the expiration on every hit.
	l.limiters.SetDefault(addr, limiter)
	return limiter.Allow()
}

// middleware rejects requests over the limit with 429. A nil limiter lets everything through.
func (l *loginLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l == nil {
			next.ServeHTTP(w, r)
			return
		}

		addr := clientAddr(r)
		if !l.allow(addr) {
			logger.Warnf("Too many login attempts from %s", addr)
			w.Header().Set("Retry-After", strconv.Itoa(int(l.interval.Seconds())+1))
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
