// Package main is the entry point for the topology-svc microservice.
//
// topology-svc builds dual-circuit district heating network topologies as an
// HTTP/JSON service. Given a street grid and a set of point assets (one heat
// source, many consumers), it produces a routed supply+return pipe network
// along the streets together with summary statistics and per-asset
// diagnostics.
//
// # Service Overview
//
// The service exposes the following capabilities via REST:
//   - Plan construction: street graph building with connectivity repair,
//     asset snapping, Dijkstra routing, dual-circuit synthesis
//   - Input validation without construction (dry run)
//   - Plan persistence: stored runs with listing, retrieval and deletion
//   - GeoJSON export of a stored plan (per circuit or both)
//   - Token issuing for API clients (JWT, HS256)
//
// # Architecture
//
// The service follows a clean architecture pattern with clear separation of
// concerns:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                    HTTP Transport Layer                     │
//	│  Middleware: recovery, logging, metrics, tracing,           │
//	│  auth (JWT), rate-limit, audit                              │
//	├─────────────────────────────────────────────────────────────┤
//	│                      Handlers Layer                         │
//	│  (internal/handlers) - JSON decode, structural validation,  │
//	│  error envelope                                             │
//	├─────────────────────────────────────────────────────────────┤
//	│                      Service Layer                          │
//	│  (internal/service - TopologyService)                       │
//	│  - Request limits and caching                               │
//	│  - Run persistence                                          │
//	│  - Metrics and tracing                                      │
//	├─────────────────────────────────────────────────────────────┤
//	│                      Pipeline Layer                         │
//	│  (internal/engine, builder, snapper, router, synth)         │
//	│  - Street graph construction with quantization              │
//	│  - Component bridging (connectivity repair)                 │
//	│  - Asset snapping to graph nodes                            │
//	│  - Dijkstra shortest-path routing                           │
//	│  - Dual-circuit topology synthesis and statistics           │
//	├─────────────────────────────────────────────────────────────┤
//	│                      Converter Layer                        │
//	│  (internal/converter)                                       │
//	│  - DTO ↔ domain type conversion                             │
//	│  - Option defaults resolution                               │
//	│  - GeoJSON serialization                                    │
//	└─────────────────────────────────────────────────────────────┘
//
// # Configuration
//
// Configuration is loaded with the following priority (highest to lowest):
//  1. Environment variables (prefix: HEATGRID_)
//  2. Config files (config.yaml, config/config.yaml, /etc/heatgrid/config.yaml)
//  3. Default values
//
// Key configuration options (environment variable format):
//
//	# Application
//	HEATGRID_APP_NAME           - Service name (default: topology-svc)
//	HEATGRID_APP_VERSION        - Service version (default: 1.0.0)
//	HEATGRID_APP_ENVIRONMENT    - Environment: development, staging, production
//
//	# HTTP Server
//	HEATGRID_HTTP_PORT          - HTTP server port (default: 8080)
//	HEATGRID_HTTP_READ_TIMEOUT  - Read timeout (default: 15s)
//	HEATGRID_HTTP_WRITE_TIMEOUT - Write timeout (default: 60s)
//
//	# Logging
//	HEATGRID_LOG_LEVEL    - Log level: debug, info, warn, error (default: info)
//	HEATGRID_LOG_FORMAT   - Log format: json, text (default: json)
//	HEATGRID_LOG_OUTPUT   - Output: stdout, stderr, file (default: stdout)
//
//	# Topology pipeline
//	HEATGRID_TOPOLOGY_QUANTIZE_TOLERANCE   - Node merge tolerance in meters
//	HEATGRID_TOPOLOGY_MAX_BRIDGE_DISTANCE  - Max component bridge length
//	HEATGRID_TOPOLOGY_MAX_SNAP_DISTANCE    - Max asset snap distance (0 = off)
//	HEATGRID_TOPOLOGY_MAX_STREETS          - Request size limit, streets
//	HEATGRID_TOPOLOGY_MAX_ASSETS           - Request size limit, assets
//	HEATGRID_TOPOLOGY_PERSIST_RESULTS      - Store runs in PostgreSQL
//
//	# Database (PostgreSQL, used when persist_results=true)
//	HEATGRID_DATABASE_HOST / _PORT / _DATABASE / _USERNAME / _PASSWORD
//	HEATGRID_DATABASE_AUTO_MIGRATE - Run embedded goose migrations on start
//
//	# Caching
//	HEATGRID_CACHE_ENABLED     - Enable plan result caching (default: false)
//	HEATGRID_CACHE_DRIVER      - Cache backend: memory, redis (default: memory)
//	HEATGRID_CACHE_DEFAULT_TTL - Cache TTL duration (default: 5m)
//
//	# Tracing (OpenTelemetry)
//	HEATGRID_TRACING_ENABLED  - Enable distributed tracing (default: false)
//	HEATGRID_TRACING_ENDPOINT - OTLP endpoint (default: localhost:4317)
//
//	# Metrics (Prometheus)
//	HEATGRID_METRICS_ENABLED - Enable Prometheus metrics (default: true)
//	HEATGRID_METRICS_PORT    - Metrics HTTP port (default: 9090)
//
//	# Auth / Rate limiting / Audit
//	HEATGRID_AUTH_ENABLED       - Require JWT on API routes (default: false)
//	HEATGRID_RATE_LIMIT_ENABLED - Per-client rate limiting (default: true)
//	HEATGRID_AUDIT_ENABLED      - Audit logging (default: true)
//
// # HTTP API
//
//	GET    /healthz                        - Liveness probe
//	GET    /readyz                         - Readiness probe
//	GET    /v1/info                        - Service info
//	POST   /v1/tokens                      - Issue an API token
//	POST   /v1/plans                       - Build a topology plan
//	POST   /v1/plans/validate              - Validate input without building
//	GET    /v1/plans                       - List stored plans (paginated)
//	GET    /v1/plans/{id}                  - Get a stored plan
//	DELETE /v1/plans/{id}                  - Delete a stored plan
//	GET    /v1/plans/{id}/export/geojson   - Export a plan as GeoJSON
//
// # Graceful Shutdown
//
// The service handles SIGINT and SIGTERM:
//  1. Readiness probe starts returning NOT_READY
//  2. In-flight requests complete (up to the shutdown timeout)
//  3. Telemetry, metrics and audit buffers are flushed
//  4. Cache and database connections are closed
package main

import (
	"context"
	"log"
	"time"

	"heatgrid/pkg/cache"
	"heatgrid/pkg/config"
	"heatgrid/pkg/database"
	"heatgrid/pkg/logger"
	"heatgrid/pkg/metrics"
	"heatgrid/pkg/server"
	"heatgrid/pkg/telemetry"
	"heatgrid/services/topology-svc/internal/handlers"
	"heatgrid/services/topology-svc/internal/repository"
	"heatgrid/services/topology-svc/internal/service"
)

func main() {
	// =========================================================================
	// Configuration Loading
	// =========================================================================
	//
	// LoadWithServiceDefaults loads configuration with the following priority:
	//   1. Environment variables (HEATGRID_* prefix)
	//   2. Config files (config.yaml in standard locations)
	//   3. Default values from pkg/config/loader.go
	//
	// The service name and default port are applied if not explicitly
	// configured, so a shared config.yaml can be overridden per service.
	cfg, err := config.LoadWithServiceDefaults("topology-svc", 8080)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// =========================================================================
	// Logger Initialization
	// =========================================================================
	//
	// Supported outputs: stdout, stderr and file with rotation (lumberjack).
	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	ctx := context.Background()

	// =========================================================================
	// Telemetry Initialization (OpenTelemetry)
	// =========================================================================
	//
	// When enabled, spans are exported to the configured OTLP endpoint.
	// Early initialization allows tracing of cache and database setup.
	if cfg.Tracing.Enabled {
		tp, err := telemetry.Init(ctx, telemetry.Config{
			Enabled:     cfg.Tracing.Enabled,
			Endpoint:    cfg.Tracing.Endpoint,
			ServiceName: cfg.App.Name,
			Version:     cfg.App.Version,
			Environment: cfg.App.Environment,
			SampleRate:  cfg.Tracing.SampleRate,
		})
		if err != nil {
			logger.Log.Warn("Failed to init telemetry", "error", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					logger.Log.Warn("Failed to shutdown telemetry", "error", err)
				}
			}()
			logger.Log.Info("Telemetry initialized", "endpoint", cfg.Tracing.Endpoint)
		}
	}

	// =========================================================================
	// Metrics Initialization (Prometheus)
	// =========================================================================
	metrics.InitMetrics(cfg.Metrics.Namespace, cfg.App.Name)

	// =========================================================================
	// Plan Cache Initialization
	// =========================================================================
	//
	// The plan cache stores construction results keyed by a canonical hash of
	// the request (streets, assets, resolved options). Identical requests are
	// answered without rerunning the pipeline.
	//
	// Supported backends:
	//   - memory: in-process LRU cache (fast, not shared between instances)
	//   - redis: distributed cache (shared, requires a Redis server)
	//
	// The cache is optional: the service works without it if initialization
	// fails.
	var planCache *cache.PlanCache
	if cfg.Cache.Enabled {
		baseCache, err := cache.New(cache.FromConfig(&cfg.Cache))
		if err != nil {
			logger.Log.Warn("Failed to create cache, continuing without cache", "error", err)
		} else {
			planCache = cache.NewPlanCache(baseCache, cfg.Cache.DefaultTTL)
			logger.Log.Info("Plan cache initialized",
				"driver", cfg.Cache.Driver,
				"ttl", cfg.Cache.DefaultTTL,
			)
		}
	}

	// =========================================================================
	// Database Initialization (PostgreSQL)
	// =========================================================================
	//
	// Run persistence is opt-in. When enabled, stored plans back the list,
	// get, delete and export endpoints. Without it the service is stateless
	// and only POST /v1/plans and /v1/plans/validate are meaningful.
	var repo repository.RunRepository
	if cfg.Topology.PersistResults {
		db, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			logger.Fatal("failed to connect to database", "error", err)
		}
		defer db.Close()

		// Миграции
		if cfg.Database.AutoMigrate {
			if err := database.RunMigrations(
				ctx,
				db.Pool(),
				&cfg.Database,
				repository.Migrations,
				repository.MigrationsDir,
			); err != nil {
				logger.Fatal("failed to run migrations", "error", err)
			}
		}

		repo = repository.NewPostgresRunRepository(db)
	}

	// =========================================================================
	// Service and Routes
	// =========================================================================
	//
	// server.New creates an HTTP server with the full middleware chain
	// (recovery, logging, metrics, tracing, auth, rate limiting, audit),
	// health probes and the optional Swagger UI.
	topologyService := service.NewTopologyService(cfg, planCache, repo)

	srv := server.New(cfg)
	handlers.New(topologyService, cfg, srv.GetJWTManager()).RegisterRoutes(srv.Router())

	logger.Info("Starting topology service",
		"port", cfg.HTTP.Port,
		"environment", cfg.App.Environment,
		"version", cfg.App.Version,
		"cache_enabled", planCache != nil,
		"persistence_enabled", repo != nil,
	)

	// =========================================================================
	// Run Server (Blocking)
	// =========================================================================
	//
	// srv.Run() starts the metrics server, binds the HTTP port, flips the
	// readiness probe and blocks until a shutdown signal arrives.
	if err := srv.Run(); err != nil {
		logger.Fatal("server failed", "error", err)
	}
}
