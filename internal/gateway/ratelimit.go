package gateway

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter applies a fixed-window counter per client address and path.
// State lives in Redis so all gateway replicas share one window.
type RateLimiter struct {
	client  *redis.Client
	window  time.Duration
	limit   int
	logger  *slog.Logger
	enabled bool
}

func NewRateLimiter(client *redis.Client, window time.Duration, limit int, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		client:  client,
		window:  window,
		limit:   limit,
		logger:  logger,
		enabled: client != nil && limit > 0 && window > 0,
	}
}

// Middleware rejects requests over the window limit with 429. Redis outages
// fail open so the gateway keeps serving.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.enabled {
			next.ServeHTTP(w, r)
			return
		}

		key := fmt.Sprintf("gw:rl:%s:%s:%d", clientAddr(r), r.URL.Path, time.Now().Unix()/int64(rl.window.Seconds()))
		count, err := rl.client.Incr(r.Context(), key).Result()
		if err != nil {
			rl.logger.WarnContext(r.Context(), "rate limit counter unavailable",
				"module", "gateway",
				"operation", "rate_limit",
				"outcome", "skip",
				"error", err,
			)
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			_ = rl.client.Expire(r.Context(), key, rl.window).Err()
		}
		if count > int64(rl.limit) {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(rl.window.Seconds())))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"status":"error","code":"RATE_LIMITED","message":"too many requests"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
