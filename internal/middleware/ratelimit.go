package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// RateLimiter считает запросы в фиксированном окне.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit ограничивает число запросов пользователя к маршруту в окне window.
// При недоступности хранилища счётчиков запрос пропускается.
func RateLimit(limiter RateLimiter, name string, limit int64, window time.Duration, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || limit <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, _ := GetUserIDFromContext(r.Context())
			scope := fmt.Sprintf("%s:%d", name, userID)

			allowed, _, err := limiter.FixedWindowAllow(r.Context(), scope, limit, window)
			if err != nil {
				logger.Warn("rate limiter unavailable", zap.String("scope", scope), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
