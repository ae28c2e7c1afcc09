package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"heatgrid/pkg/audit"
	"heatgrid/pkg/logger"
)

// AuditConfig конфигурация аудит middleware
type AuditConfig struct {
	ServiceName  string
	ExcludePaths map[string]bool
	Logger       audit.Logger
}

// Audit пишет аудит запись по каждому запросу.
// Запись отправляется асинхронно, чтобы не задерживать ответ.
func Audit(cfg *AuditConfig) Middleware {
	if cfg.Logger == nil {
		cfg.Logger = audit.Get()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Пропускаем исключённые пути
			if cfg.ExcludePaths != nil && cfg.ExcludePaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			// Выполняем handler
			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			// Извлекаем информацию о клиенте
			clientIP := extractClientIP(r)
			requestID := GetRequestID(r.Context())
			method := r.Method + " " + r.URL.Path

			builder := audit.NewEntry().
				Service(cfg.ServiceName).
				Method(method).
				Action(pathToAction(r.Method, r.URL.Path)).
				Client(clientIP, r.UserAgent()).
				RequestID(requestID).
				Duration(duration)

			if claims := GetClaims(r.Context()); claims != nil {
				builder.User(claims.ClientID, claims.Name)
			}

			switch {
			case status < http.StatusBadRequest:
				builder.Outcome(audit.OutcomeSuccess)
			case status == http.StatusUnauthorized || status == http.StatusForbidden:
				builder.Outcome(audit.OutcomeDenied).
					Error(strconv.Itoa(status), http.StatusText(status))
			default:
				builder.Outcome(audit.OutcomeFailure).
					Error(strconv.Itoa(status), http.StatusText(status))
			}

			entry := builder.Build()

			// Асинхронно логируем
			go func() {
				if logErr := cfg.Logger.Log(context.Background(), entry); logErr != nil {
					logger.Log.Warn("Failed to write audit log", "error", logErr)
				}
			}()
		})
	}
}

// extractClientIP извлекает IP клиента с учётом прокси-заголовков
func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Первый адрес в цепочке - исходный клиент
		if i := strings.Index(xff, ","); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// pathToAction определяет действие по методу и пути запроса
func pathToAction(method, path string) audit.Action {
	switch {
	case strings.Contains(path, "/export") || strings.Contains(path, "/geojson"):
		return audit.ActionExport
	case strings.Contains(path, "/tokens") || strings.Contains(path, "/login"):
		return audit.ActionLogin
	case method == http.MethodPost && strings.Contains(path, "/plans"):
		return audit.ActionPlan
	case method == http.MethodGet || method == http.MethodHead:
		return audit.ActionRead
	case method == http.MethodPost:
		return audit.ActionCreate
	case method == http.MethodPut || method == http.MethodPatch:
		return audit.ActionUpdate
	case method == http.MethodDelete:
		return audit.ActionDelete
	default:
		return audit.ActionRead
	}
}
