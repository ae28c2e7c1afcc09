package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"heatgrid/gen/openapi"
	"heatgrid/pkg/audit"
	"heatgrid/pkg/config"
	"heatgrid/pkg/logger"
	"heatgrid/pkg/metrics"
	"heatgrid/pkg/middleware"
	"heatgrid/pkg/ratelimit"
	"heatgrid/pkg/swagger"
	"heatgrid/pkg/telemetry"
	"heatgrid/pkg/token"
)

// HTTPServer обёртка над http.Server
type HTTPServer struct {
	server      *http.Server
	router      chi.Router
	serviceName string
	config      *config.Config
	telemetry   *telemetry.Provider
	rateLimiter ratelimit.Limiter
	auditLogger audit.Logger
	jwtManager  *token.JWTManager
	ready       atomic.Bool
}

// New создаёт новый HTTP сервер
func New(cfg *config.Config) *HTTPServer {
	return NewWithOptions(cfg, nil)
}

// ServerOptions дополнительные опции сервера
type ServerOptions struct {
	RateLimiter       ratelimit.Limiter
	AuditLogger       audit.Logger
	AuditExcludePaths []string
	KeyExtractor      ratelimit.KeyExtractor
}

// NewWithOptions создаёт сервер с дополнительными опциями
func NewWithOptions(cfg *config.Config, opts *ServerOptions) *HTTPServer {
	if opts == nil {
		opts = &ServerOptions{}
	}

	rateLimiter := opts.RateLimiter
	if rateLimiter == nil && cfg.RateLimit.Enabled {
		var err error
		rateLimiter, err = ratelimit.New(ratelimit.FromConfig(&cfg.RateLimit))
		if err != nil {
			logger.Log.Warn("Failed to create rate limiter, continuing without it", "error", err)
			rateLimiter = nil
		} else {
			logger.Log.Info("Rate limiter initialized",
				"requests", cfg.RateLimit.Requests,
				"window", cfg.RateLimit.Window,
				"backend", cfg.RateLimit.Backend,
			)
		}
	}

	auditLogger := opts.AuditLogger
	if auditLogger == nil && cfg.Audit.Enabled {
		var err error
		auditLogger, err = audit.New(&audit.Config{
			Enabled:      cfg.Audit.Enabled,
			Backend:      cfg.Audit.Backend,
			FilePath:     cfg.Audit.FilePath,
			BufferSize:   cfg.Audit.BufferSize,
			FlushPeriod:  cfg.Audit.FlushPeriod,
			ExcludePaths: cfg.Audit.ExcludePaths,
		})
		if err != nil {
			logger.Log.Warn("Failed to create audit logger, continuing without it", "error", err)
			auditLogger = nil
		} else {
			audit.SetGlobal(auditLogger)
			logger.Log.Info("Audit logger initialized", "backend", cfg.Audit.Backend)
		}
	}

	auditExclude := make(map[string]bool)
	for _, path := range opts.AuditExcludePaths {
		auditExclude[path] = true
	}
	for _, path := range cfg.Audit.ExcludePaths {
		auditExclude[path] = true
	}
	auditExclude["/healthz"] = true
	auditExclude["/readyz"] = true
	auditExclude["/metrics"] = true

	var jwtManager *token.JWTManager
	if cfg.Auth.Enabled {
		jwtManager = token.NewJWTManager(token.FromAuthConfig(&cfg.Auth))
		logger.Log.Info("JWT authentication enabled", "issuer", cfg.Auth.Issuer, "ttl", cfg.Auth.TokenTTL)
	}

	mwCfg := &middleware.ServerConfig{
		ServiceName:   cfg.App.Name,
		EnableTracing: cfg.Tracing.Enabled,
		EnableAudit:   cfg.Audit.Enabled && auditLogger != nil,
		RateLimiter:   rateLimiter,
		AuditLogger:   auditLogger,
		AuditExclude:  auditExclude,
		KeyExtractor:  opts.KeyExtractor,
		JWTManager:    jwtManager,
		CORS:          &cfg.HTTP.CORS,
	}

	router := chi.NewRouter()
	for _, mw := range middleware.Stack(mwCfg) {
		router.Use(mw)
	}
	if cfg.HTTP.MaxBodyBytes > 0 {
		router.Use(chimw.RequestSize(cfg.HTTP.MaxBodyBytes))
	}
	if cfg.HTTP.RequestTimeout > 0 {
		router.Use(chimw.Timeout(cfg.HTTP.RequestTimeout))
	}

	s := &HTTPServer{
		router:      router,
		serviceName: cfg.App.Name,
		config:      cfg,
		rateLimiter: rateLimiter,
		auditLogger: auditLogger,
		jwtManager:  jwtManager,
	}

	s.registerHealth()

	if cfg.Swagger.Enabled {
		s.mountSwagger()
	}

	return s
}

func (s *HTTPServer) registerHealth() {
	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.router.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !s.ready.Load() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
}

func (s *HTTPServer) mountSwagger() {
	spec, err := openapi.GetSpec()
	if err != nil {
		logger.Log.Error("Failed to load OpenAPI spec", "error", err)
		return
	}

	swaggerCfg := swagger.DefaultConfig()
	if s.config.Swagger.Path != "" {
		swaggerCfg.BasePath = s.config.Swagger.Path
	}
	if s.config.Swagger.Title != "" {
		swaggerCfg.Title = s.config.Swagger.Title
	}

	s.router.Mount(swaggerCfg.BasePath, swagger.NewHandler(swaggerCfg, spec))
	logger.Log.Info("Swagger UI mounted", "path", swaggerCfg.BasePath)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Log.Debug("Failed to write response", "error", err)
	}
}

// Router возвращает chi.Router для регистрации маршрутов
func (s *HTTPServer) Router() chi.Router {
	return s.router
}

// GetAuditLogger возвращает audit logger
func (s *HTTPServer) GetAuditLogger() audit.Logger {
	return s.auditLogger
}

// GetJWTManager возвращает менеджер токенов; nil, если auth выключен
func (s *HTTPServer) GetJWTManager() *token.JWTManager {
	return s.jwtManager
}

// Run запускает сервер
func (s *HTTPServer) Run() error {
	ctx := context.Background()

	if s.config.Tracing.Enabled {
		tp, err := telemetry.Init(ctx, telemetry.Config{
			Enabled:     s.config.Tracing.Enabled,
			Endpoint:    s.config.Tracing.Endpoint,
			ServiceName: s.config.Tracing.ServiceName,
			Version:     s.config.App.Version,
			Environment: s.config.App.Environment,
			SampleRate:  s.config.Tracing.SampleRate,
		})
		if err != nil {
			logger.Log.Warn("Failed to init telemetry", "error", err)
		} else {
			s.telemetry = tp
			logger.Log.Info("Telemetry initialized",
				"endpoint", s.config.Tracing.Endpoint,
				"sample_rate", s.config.Tracing.SampleRate,
			)
		}
	}

	if s.config.Metrics.Enabled {
		go func() {
			logger.Log.Info("Starting metrics server",
				"port", s.config.Metrics.Port,
				"path", s.config.Metrics.Path,
			)
			if err := metrics.StartMetricsServer(s.config.Metrics.Port); err != nil {
				logger.Log.Error("Metrics server failed", "error", err)
			}
		}()
	}

	var handler http.Handler = s.router
	if !s.config.HTTP.TLS.Enabled {
		// HTTP/2 без TLS (h2c); при включённом TLS http2 согласуется через ALPN
		handler = h2c.NewHandler(handler, &http2.Server{})
	}

	s.server = &http.Server{
		Handler:      handler,
		ReadTimeout:  s.config.HTTP.ReadTimeout,
		WriteTimeout: s.config.HTTP.WriteTimeout,
		IdleTimeout:  s.config.HTTP.IdleTimeout,
	}

	// Используем ListenConfig с контекстом вместо net.Listen
	lc := net.ListenConfig{}
	lis, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", s.config.HTTP.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.ready.Store(true)

	errCh := make(chan error, 1)

	go func() {
		logger.Log.Info("Starting HTTP server",
			"service", s.serviceName,
			"port", s.config.HTTP.Port,
			"environment", s.config.App.Environment,
			"version", s.config.App.Version,
		)
		var serveErr error
		if s.config.HTTP.TLS.Enabled {
			serveErr = s.server.ServeTLS(lis, s.config.HTTP.TLS.CertFile, s.config.HTTP.TLS.KeyFile)
		} else {
			serveErr = s.server.Serve(lis)
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	if m := metrics.Get(); m != nil {
		m.SetServiceInfo(s.config.App.Version, s.config.App.Environment)
	}

	// Логируем аудит событие старта сервиса
	if s.auditLogger != nil {
		entry := audit.NewEntry().
			Service(s.serviceName).
			Method("server.Start").
			Action(audit.ActionCreate).
			Outcome(audit.OutcomeSuccess).
			Meta("port", s.config.HTTP.Port).
			Meta("version", s.config.App.Version).
			Meta("environment", s.config.App.Environment).
			Build()
		if err := s.auditLogger.Log(ctx, entry); err != nil {
			logger.Log.Warn("Failed to log audit entry", "error", err)
		}
	}

	return s.waitForShutdown(errCh)
}

func (s *HTTPServer) waitForShutdown(errCh chan error) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Log.Info("Received shutdown signal", "signal", sig)
	}

	// Логируем аудит событие остановки
	if s.auditLogger != nil {
		entry := audit.NewEntry().
			Service(s.serviceName).
			Method("server.Shutdown").
			Action(audit.ActionUpdate).
			Outcome(audit.OutcomeSuccess).
			Meta("reason", "signal").
			Build()
		if err := s.auditLogger.Log(context.Background(), entry); err != nil {
			logger.Log.Warn("Failed to log audit entry", "error", err)
		}
	}

	timeout := s.config.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.ready.Store(false)

	time.Sleep(2 * time.Second)

	if err := s.server.Shutdown(ctx); err != nil {
		logger.Log.Warn("Forcing server stop", "error", err)
		if cerr := s.server.Close(); cerr != nil {
			logger.Log.Warn("Failed to close server", "error", cerr)
		}
	} else {
		logger.Log.Info("Server stopped gracefully")
	}

	if s.telemetry != nil {
		if err := s.telemetry.Shutdown(ctx); err != nil {
			logger.Log.Warn("Failed to shutdown telemetry", "error", err)
		}
	}

	if s.rateLimiter != nil {
		if err := s.rateLimiter.Close(); err != nil {
			logger.Log.Warn("Failed to close rate limiter", "error", err)
		}
	}

	if s.auditLogger != nil {
		if err := s.auditLogger.Close(); err != nil {
			logger.Log.Warn("Failed to close audit logger", "error", err)
		}
	}

	return nil
}

// SetReady управляет ответом readiness-пробы
func (s *HTTPServer) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Stop останавливает сервер немедленно
func (s *HTTPServer) Stop() {
	if s.server != nil {
		if err := s.server.Close(); err != nil {
			logger.Log.Warn("Failed to close server", "error", err)
		}
	}
}

// GracefulStop останавливает сервер, дожидаясь активных запросов
func (s *HTTPServer) GracefulStop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
