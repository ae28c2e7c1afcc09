package middleware

import (
	"net/http"
	"strings"

	"heatgrid/pkg/apperror"
	"heatgrid/pkg/token"
)

// AuthConfig конфигурация аутентификации
type AuthConfig struct {
	Manager     *token.JWTManager
	PublicPaths map[string]bool
}

// PublicPaths возвращает пути, доступные без токена
func PublicPaths() map[string]bool {
	return map[string]bool{
		"/healthz":   true,
		"/readyz":    true,
		"/metrics":   true,
		"/v1/info":   true,
		"/v1/tokens": true,
	}
}

// Auth проверяет Bearer токен и кладёт claims клиента в контекст
func Auth(cfg *AuthConfig) Middleware {
	publicPaths := cfg.PublicPaths
	if publicPaths == nil {
		publicPaths = PublicPaths()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Пропускаем публичные пути
			if publicPaths[r.URL.Path] || strings.HasPrefix(r.URL.Path, "/swagger") {
				next.ServeHTTP(w, r)
				return
			}

			// Извлекаем токен
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized,
					apperror.CodeUnauthorized, "missing authorization header")
				return
			}

			tokenString := strings.TrimPrefix(header, "Bearer ")
			if tokenString == header {
				writeError(w, http.StatusUnauthorized,
					apperror.CodeUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			// Валидируем токен
			claims, err := cfg.Manager.Validate(tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized,
					apperror.CodeUnauthorized, "invalid token")
				return
			}

			// Добавляем claims в контекст
			ctx := WithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
