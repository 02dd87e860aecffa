package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RateLimiter limits registration attempts per client IP using a fixed
// window counter in Redis. Redis being down must not block registrations,
// so errors fail open with a warning.
func RateLimiter(rdb *redis.Client, limit int, window time.Duration, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("ratelimit:%s:%d", r.RemoteAddr, time.Now().Unix()/int64(window.Seconds()))

			count, err := rdb.Incr(r.Context(), key).Result()
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				rdb.Expire(r.Context(), key, window)
			}
			if count > int64(limit) {
				logger.Warn("rate limit exceeded",
					zap.String("remote_addr", r.RemoteAddr),
					zap.Int64("count", count),
				)
				writeFailure(w, http.StatusTooManyRequests, "Limite de requisições excedido")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
