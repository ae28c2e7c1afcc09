package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"heatgrid/pkg/logger"
)

// Logging логирует HTTP запросы.
// Статус 5xx логируется уровнем Error, остальные Info.
func Logging() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			// Выполняем handler
			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			logFields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration_ms", duration.Milliseconds(),
				"bytes", ww.BytesWritten(),
			}

			if requestID := GetRequestID(r.Context()); requestID != "" {
				logFields = append(logFields, "request_id", requestID)
			}
			if clientID := GetClientID(r.Context()); clientID != "" {
				logFields = append(logFields, "client_id", clientID)
			}

			if status >= http.StatusInternalServerError {
				logger.Log.Error("HTTP request failed", logFields...)
			} else {
				logger.Log.Info("HTTP request completed", logFields...)
			}
		})
	}
}
