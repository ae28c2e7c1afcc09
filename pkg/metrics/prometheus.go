package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics глобальный контейнер метрик
type Metrics struct {
	// HTTP метрики
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Бизнес-метрики построения топологии
	PlanRunsTotal    *prometheus.CounterVec
	PlanStageSeconds *prometheus.HistogramVec
	NetworkNodes     *prometheus.HistogramVec
	NetworkEdges     *prometheus.HistogramVec
	AssetFailures    *prometheus.CounterVec
	BridgesInserted  prometheus.Histogram
	TrenchLength     prometheus.Histogram

	// Кэш
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// База данных
	DBQueriesTotal  *prometheus.CounterVec
	DBQueryDuration *prometheus.HistogramVec

	// Системные метрики
	MemoryUsage *prometheus.GaugeVec
	Goroutines  prometheus.Gauge

	// Информация о сервисе
	ServiceInfo *prometheus.GaugeVec
}

var defaultMetrics *Metrics

// InitMetrics инициализирует метрики
func InitMetrics(namespace, subsystem string) *Metrics {
	m := &Metrics{
		// HTTP метрики
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		// Бизнес-метрики
		PlanRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "plan_runs_total",
				Help:      "Total number of topology plan runs",
			},
			[]string{"status"},
		),

		PlanStageSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "plan_stage_duration_seconds",
				Help:      "Duration of pipeline stages",
				Buckets:   []float64{.001, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),

		NetworkNodes: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "network_nodes",
				Help:      "Number of nodes in built networks",
				Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000},
			},
			[]string{"operation"},
		),

		NetworkEdges: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "network_edges",
				Help:      "Number of edges in built networks",
				Buckets:   []float64{20, 100, 500, 1000, 5000, 10000, 50000, 100000},
			},
			[]string{"operation"},
		),

		AssetFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "asset_failures_total",
				Help:      "Assets dropped from a run, by pipeline stage",
			},
			[]string{"stage"},
		),

		BridgesInserted: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "bridges_inserted",
				Help:      "Connectivity repair bridges inserted per run",
				Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
			},
		),

		TrenchLength: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "trench_length_meters",
				Help:      "Trench length of synthesized topologies",
				Buckets:   []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
			},
		),

		// Кэш
		CacheHitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"cache"},
		),

		CacheMissesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"cache"},
		),

		// База данных
		DBQueriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "db_queries_total",
				Help:      "Total number of database queries",
			},
			[]string{"operation", "status"},
		),

		DBQueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "db_query_duration_seconds",
				Help:      "Duration of database queries",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"operation"},
		),

		// Системные метрики
		MemoryUsage: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "memory_usage_bytes",
				Help:      "Current memory usage",
			},
			[]string{"type"},
		),

		Goroutines: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "goroutines",
				Help:      "Current number of goroutines",
			},
		),

		ServiceInfo: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "service_info",
				Help:      "Service information",
			},
			[]string{"version", "environment"},
		),
	}

	defaultMetrics = m
	return m
}

// Get возвращает глобальные метрики
func Get() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics("heatgrid", "")
	}
	return defaultMetrics
}

// RecordHTTPRequest записывает метрики HTTP запроса
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordPlanRun записывает итог одного построения топологии
func (m *Metrics) RecordPlanRun(status string, duration time.Duration) {
	m.PlanRunsTotal.WithLabelValues(status).Inc()
	m.PlanStageSeconds.WithLabelValues("total").Observe(duration.Seconds())
}

// RecordPlanStage записывает длительность этапа пайплайна
func (m *Metrics) RecordPlanStage(stage string, duration time.Duration) {
	m.PlanStageSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordNetworkSize записывает размер построенного графа
func (m *Metrics) RecordNetworkSize(operation string, nodes, edges int) {
	m.NetworkNodes.WithLabelValues(operation).Observe(float64(nodes))
	m.NetworkEdges.WithLabelValues(operation).Observe(float64(edges))
}

// RecordAssetFailures записывает количество отказов на этапе
func (m *Metrics) RecordAssetFailures(stage string, count int) {
	if count > 0 {
		m.AssetFailures.WithLabelValues(stage).Add(float64(count))
	}
}

// RecordTopology записывает параметры синтезированной топологии
func (m *Metrics) RecordTopology(bridges int, trenchLength float64) {
	m.BridgesInserted.Observe(float64(bridges))
	m.TrenchLength.Observe(trenchLength)
}

// RecordCacheHit записывает попадание в кэш
func (m *Metrics) RecordCacheHit(cache string) {
	m.CacheHitsTotal.WithLabelValues(cache).Inc()
}

// RecordCacheMiss записывает промах кэша
func (m *Metrics) RecordCacheMiss(cache string) {
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

// RecordDBQuery записывает метрики запроса к БД
func (m *Metrics) RecordDBQuery(operation string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}

	m.DBQueriesTotal.WithLabelValues(operation, status).Inc()
	m.DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetServiceInfo устанавливает информацию о сервисе
func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

// Handler возвращает HTTP handler для /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer запускает HTTP сервер для метрик
func StartMetricsServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		// Игнорируем ошибку записи - response уже отправлен
		_, _ = w.Write([]byte("OK")) //nolint:errcheck // health endpoint, ошибка записи не критична
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
