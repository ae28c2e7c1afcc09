package middleware

import (
	"encoding/json"
	"net/http"

	"heatgrid/pkg/apperror"
	"heatgrid/pkg/audit"
	"heatgrid/pkg/config"
	"heatgrid/pkg/ratelimit"
	"heatgrid/pkg/telemetry"
	"heatgrid/pkg/token"
)

// ServerConfig конфигурация серверных middleware
type ServerConfig struct {
	ServiceName   string
	EnableTracing bool
	EnableAudit   bool
	RateLimiter   ratelimit.Limiter
	AuditLogger   audit.Logger
	AuditExclude  map[string]bool
	KeyExtractor  ratelimit.KeyExtractor
	JWTManager    *token.JWTManager
	PublicPaths   map[string]bool
	CORS          *config.CORSConfig
}

// Stack возвращает цепочку middleware в каноническом порядке.
// Порядок: RequestID -> Recovery -> CORS -> RateLimit -> Tracing ->
// Metrics -> Logging -> Auth -> Audit. Audit стоит последним, чтобы
// фиксировать итоговый статус и видеть claims клиента из Auth.
func Stack(cfg *ServerConfig) []Middleware {
	mw := []Middleware{
		RequestID(),
		Recovery(),
	}

	if cfg.CORS != nil && cfg.CORS.Enabled {
		mw = append(mw, CORS(*cfg.CORS))
	}

	// Rate Limiting (первым после recovery и CORS)
	if cfg.RateLimiter != nil {
		mw = append(mw, RateLimit(&RateLimitConfig{
			Limiter:      cfg.RateLimiter,
			KeyExtractor: cfg.KeyExtractor,
			ExcludePaths: healthPaths(),
		}))
	}

	// Tracing
	if cfg.EnableTracing {
		mw = append(mw, telemetry.Middleware(cfg.ServiceName))
	}

	// Metrics и Logging
	mw = append(mw, Metrics(), Logging())

	// Auth (перед аудитом, чтобы claims клиента попали в записи)
	if cfg.JWTManager != nil {
		mw = append(mw, Auth(&AuthConfig{
			Manager:     cfg.JWTManager,
			PublicPaths: cfg.PublicPaths,
		}))
	}

	// Audit (последним, чтобы логировать результат)
	if cfg.EnableAudit && cfg.AuditLogger != nil {
		mw = append(mw, Audit(&AuditConfig{
			ServiceName:  cfg.ServiceName,
			ExcludePaths: cfg.AuditExclude,
			Logger:       cfg.AuditLogger,
		}))
	}

	return mw
}

// healthPaths возвращает служебные пути, не попадающие под rate limit
func healthPaths() map[string]bool {
	return map[string]bool{
		"/healthz": true,
		"/readyz":  true,
		"/metrics": true,
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// writeError пишет стандартный JSON-конверт ошибки
func writeError(w http.ResponseWriter, status int, code apperror.ErrorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // статус уже отправлен, ошибку записи тела не обработать
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: errorBody{Code: string(code), Message: message}})
}
