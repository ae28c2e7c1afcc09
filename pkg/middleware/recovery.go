package middleware

import (
	"net/http"
	"runtime/debug"

	"heatgrid/pkg/apperror"
	"heatgrid/pkg/logger"
)

// Recovery перехватывает panic в handler и возвращает 500.
// Stack trace пишется в лог, клиенту уходит стандартный конверт ошибки.
func Recovery() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Log.Error("Panic recovered",
						"panic", rec,
						"method", r.Method,
						"path", r.URL.Path,
						"request_id", GetRequestID(r.Context()),
						"stack", string(debug.Stack()),
					)

					writeError(w, http.StatusInternalServerError,
						apperror.CodeInternal, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
