//go:build integration

package v1_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"heatgrid/pkg/client"
	"heatgrid/pkg/config"
	"heatgrid/pkg/domain"
	topologysvc "heatgrid/services/topology-svc"
	"heatgrid/tests/integration/testutil"
)

// topologyConfig собирает конфигурацию сервиса для end-to-end прогона:
// auth и кэш включены, внешние подсистемы наблюдаемости выключены.
func topologyConfig(port int, persist bool) *config.Config {
	cfg := &config.Config{
		App: config.AppConfig{
			Name:        "topology-svc",
			Version:     "1.0.0",
			Environment: "test",
		},
		HTTP: config.HTTPConfig{
			Port:            port,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Auth: config.AuthConfig{
			Enabled:   true,
			JWTSecret: "integration-test-secret",
			TokenTTL:  time.Hour,
			Issuer:    "heatgrid-test",
		},
		Cache: config.CacheConfig{
			Enabled:    true,
			Driver:     "memory",
			DefaultTTL: time.Minute,
			MaxEntries: 128,
		},
		Topology: config.TopologyConfig{
			QuantizeTolerance:  domain.DefaultQuantizeTolerance,
			MaxBridgeDistance:  domain.DefaultMaxBridgeDistance,
			SupplyTemperatureC: domain.DefaultSupplyTemperatureC,
			ReturnTemperatureC: domain.DefaultReturnTemperatureC,
			DemandAttachment:   domain.DefaultDemandAttachment,
			MaxStreets:         10000,
			MaxAssets:          10000,
			PersistResults:     persist,
		},
		Metrics:   config.MetricsConfig{Enabled: false},
		Tracing:   config.TracingConfig{Enabled: false},
		Swagger:   config.SwaggerConfig{Enabled: false},
		Audit:     config.AuditConfig{Enabled: false},
		RateLimit: config.RateLimitConfig{Enabled: false},
	}

	if persist {
		cfg.Database = *testutil.PostgresConfig()
		cfg.Database.AutoMigrate = true
	}

	return cfg
}

// startTopologyService поднимает полный стек topology-svc на свободном порту
// и возвращает готового клиента. При persist=true подключается к тестовой
// PostgreSQL (пропуск, если она недоступна) и прогоняет миграции.
func startTopologyService(t *testing.T, persist bool) *client.TopologyClient {
	t.Helper()
	testutil.SkipIfNotIntegration(t)

	ctx, cancel := testutil.Context(t)
	defer cancel()

	port := testutil.FreePort(t)

	srv, cleanup, err := topologysvc.NewServer(ctx, topologyConfig(port, persist))
	if err != nil {
		if persist {
			t.Skipf("PostgreSQL not available: %v", err)
		}
		t.Fatalf("failed to build server: %v", err)
	}
	testutil.Cleanup(t, cleanup)

	go func() {
		_ = srv.Run()
	}()
	testutil.Cleanup(t, srv.Stop)

	// Wait for server to start
	time.Sleep(200 * time.Millisecond)

	cli := client.NewTopologyClient(&client.TopologyClientConfig{
		BaseURL: fmt.Sprintf("http://localhost:%d", port),
		Timeout: 30 * time.Second,
	})
	testutil.Cleanup(t, func() { _ = cli.Close() })

	return cli
}

// districtFixture возвращает Т-образный квартал: три улицы, котельная
// и два потребителя по разные стороны развилки.
func districtFixture(name string) *client.PlanRequest {
	return &client.PlanRequest{
		Name: name,
		Streets: []client.Street{
			{ID: "trunk", Name: "Main St", Category: "primary", Points: []orb.Point{{0, 0}, {200, 0}}},
			{ID: "east", Name: "East Ave", Category: "secondary", Points: []orb.Point{{200, 0}, {400, 0}}},
			{ID: "north", Name: "North Rd", Category: "residential", Points: []orb.Point{{200, 0}, {200, 150}}},
		},
		Assets: []client.Asset{
			{ID: "plant", Name: "Boiler Plant", Kind: "source", Point: orb.Point{5, 8}},
			{ID: "bldg-a", Name: "Building A", Kind: "consumer", Point: orb.Point{390, 6}, DemandKW: 40},
			{ID: "bldg-b", Name: "Building B", Kind: "consumer", Point: orb.Point{205, 140}, DemandKW: 25},
		},
	}
}
