package middleware

import (
	"net/http"
	"strconv"
	"time"

	"heatgrid/pkg/apperror"
	"heatgrid/pkg/logger"
	"heatgrid/pkg/ratelimit"
)

// RateLimitConfig конфигурация rate limiting
type RateLimitConfig struct {
	Limiter      ratelimit.Limiter
	KeyExtractor ratelimit.KeyExtractor
	ExcludePaths map[string]bool
}

// RateLimit ограничивает частоту запросов.
// При ошибке лимитера запрос пропускается (fail open).
func RateLimit(cfg *RateLimitConfig) Middleware {
	if cfg.KeyExtractor == nil {
		cfg.KeyExtractor = ratelimit.IPKeyExtractor
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Пропускаем исключённые пути
			if cfg.ExcludePaths != nil && cfg.ExcludePaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			key := cfg.KeyExtractor(r)

			allowed, err := cfg.Limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Log.Warn("Rate limit check failed", "error", err, "key", key)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				limitInfo, infoErr := cfg.Limiter.GetInfo(r.Context(), key)
				if infoErr != nil {
					logger.Log.Warn("Failed to get rate limit info", "error", infoErr, "key", key)
					limitInfo = &ratelimit.LimitInfo{
						Limit:   0,
						ResetAt: time.Now().Add(time.Minute),
					}
				}

				logger.Log.Warn("Rate limit exceeded",
					"key", key,
					"limit", limitInfo.Limit,
				)

				// Заголовки с информацией о лимите
				retryAfter := int(time.Until(limitInfo.ResetAt).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limitInfo.Limit))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("X-RateLimit-Reset", limitInfo.ResetAt.Format(time.RFC3339))
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				writeError(w, http.StatusTooManyRequests,
					apperror.CodeRateLimited, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
