// services/topology-svc/factory.go
package topologysvc

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"heatgrid/pkg/cache"
	"heatgrid/pkg/config"
	"heatgrid/pkg/database"
	"heatgrid/pkg/domain"
	"heatgrid/pkg/server"
	"heatgrid/services/topology-svc/internal/handlers"
	"heatgrid/services/topology-svc/internal/repository"
	"heatgrid/services/topology-svc/internal/service"
)

// NewServer собирает полностью сконфигурированный HTTP-сервер сервиса:
// плановый кэш и PostgreSQL-хранилище включаются флагами конфигурации.
// Вторым значением возвращается функция освобождения ресурсов (пул БД,
// соединения кэша); она безопасна при любом исходе.
func NewServer(ctx context.Context, cfg *config.Config) (*server.HTTPServer, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var planCache *cache.PlanCache
	if cfg.Cache.Enabled {
		baseCache, err := cache.New(cache.FromConfig(&cfg.Cache))
		if err != nil {
			return nil, cleanup, err
		}
		cleanups = append(cleanups, func() { _ = baseCache.Close() })
		planCache = cache.NewPlanCache(baseCache, cfg.Cache.DefaultTTL)
	}

	var repo repository.RunRepository
	if cfg.Topology.PersistResults {
		db, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		cleanups = append(cleanups, db.Close)

		if cfg.Database.AutoMigrate {
			if err := database.RunMigrations(ctx, db.Pool(), &cfg.Database, repository.Migrations, repository.MigrationsDir); err != nil {
				cleanup()
				return nil, func() {}, err
			}
		}
		repo = repository.NewPostgresRunRepository(db)
	}

	svc := service.NewTopologyService(cfg, planCache, repo)

	srv := server.New(cfg)
	handlers.New(svc, cfg, srv.GetJWTManager()).RegisterRoutes(srv.Router())
	return srv, cleanup, nil
}

// NewBenchmarkHandler создаёт HTTP API сервиса для внешних бенчмарков:
// без кэша, хранилища и серверного middleware, с параметрами построения
// по умолчанию. Он возвращает http.Handler, скрывая внутренние пакеты.
func NewBenchmarkHandler() http.Handler {
	cfg := &config.Config{
		App: config.AppConfig{Name: "topology-svc", Version: "bench"},
		Topology: config.TopologyConfig{
			QuantizeTolerance:  domain.DefaultQuantizeTolerance,
			MaxBridgeDistance:  domain.DefaultMaxBridgeDistance,
			SupplyTemperatureC: domain.DefaultSupplyTemperatureC,
			ReturnTemperatureC: domain.DefaultReturnTemperatureC,
			DemandAttachment:   domain.DefaultDemandAttachment,
		},
	}

	// Здесь мы вызываем внутренний конструктор
	svc := service.NewTopologyService(cfg, nil, nil)

	router := chi.NewRouter()
	handlers.New(svc, cfg, nil).RegisterRoutes(router)
	return router
}
