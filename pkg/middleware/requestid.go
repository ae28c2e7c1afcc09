package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader заголовок с идентификатором запроса
const RequestIDHeader = "X-Request-ID"

// RequestID присваивает каждому запросу идентификатор.
// Если клиент прислал X-Request-ID, он сохраняется, иначе генерируется новый.
// Идентификатор кладётся в контекст и возвращается в заголовке ответа.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}

			w.Header().Set(RequestIDHeader, requestID)

			ctx := WithRequestID(r.Context(), requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
