package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix    = "HEATGRID_"
	configEnvVar = "CONFIG_PATH"
)

// Loader загружает конфигурацию из разных источников
type Loader struct {
	k               *koanf.Koanf
	configPaths     []string
	envPrefix       string
	serviceDefaults map[string]any
}

// NewLoader создаёт новый загрузчик конфигурации
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k: koanf.New("."),
		configPaths: []string{
			"config.yaml",
			"config/config.yaml",
			"/etc/heatgrid/config.yaml",
		},
		envPrefix: envPrefix,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// LoaderOption - опция для конфигурации загрузчика
type LoaderOption func(*Loader)

// WithConfigPaths устанавливает пути поиска конфигурации
func WithConfigPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.configPaths = paths
	}
}

// WithEnvPrefix устанавливает префикс переменных окружения
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithServiceDefaults переопределяет имя сервиса и HTTP порт по умолчанию.
// Файл конфигурации и переменные окружения имеют приоритет над этими
// значениями.
func WithServiceDefaults(name string, port int) LoaderOption {
	return func(l *Loader) {
		l.serviceDefaults = map[string]any{}
		if name != "" {
			l.serviceDefaults["app.name"] = name
			l.serviceDefaults["tracing.service_name"] = name
		}
		if port > 0 {
			l.serviceDefaults["http.port"] = port
		}
	}
}

// Load загружает конфигурацию с приоритетом:
// 1. Defaults (самый низкий)
// 2. Config file (yaml)
// 3. Environment variables (самый высокий)
func (l *Loader) Load() (*Config, error) {
	// 1. Загружаем значения по умолчанию
	if err := l.loadDefaults(); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 1a. Сервисные значения поверх общих умолчаний
	if len(l.serviceDefaults) > 0 {
		if err := l.k.Load(confmap.Provider(l.serviceDefaults, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load service defaults: %w", err)
		}
	}

	// 2. Загружаем из файла конфигурации
	if err := l.loadConfigFile(); err != nil {
		// Файл не обязателен, логируем warning
		fmt.Printf("Warning: %v\n", err)
	}

	// 3. Загружаем из переменных окружения (перезаписывают файл)
	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}

	// 4. Распаковываем в структуру
	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 5. Валидируем
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDefaults загружает значения по умолчанию
func (l *Loader) loadDefaults() error {
	defaults := map[string]any{
		// App
		"app.name":        "heatgrid",
		"app.version":     "1.0.0",
		"app.environment": "development",
		"app.debug":       false,

		// HTTP
		"http.port":             8080,
		"http.read_timeout":     30 * time.Second,
		"http.write_timeout":    60 * time.Second,
		"http.idle_timeout":     120 * time.Second,
		"http.request_timeout":  120 * time.Second,
		"http.shutdown_timeout": 10 * time.Second,
		"http.max_body_bytes":   int64(64 * 1024 * 1024),
		"http.tls.enabled":      false,

		// CORS
		"http.cors.enabled":           true,
		"http.cors.allowed_origins":   []string{"*"},
		"http.cors.allowed_methods":   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		"http.cors.allowed_headers":   []string{"Content-Type", "Authorization", "Accept", "Origin", "X-Requested-With", "X-Request-Id", "X-Api-Key"},
		"http.cors.allow_credentials": false,
		"http.cors.max_age":           86400,

		// Log
		"log.level":       "info",
		"log.format":      "json",
		"log.output":      "stdout",
		"log.max_size":    100,
		"log.max_backups": 3,
		"log.max_age":     7,
		"log.compress":    true,

		// Metrics
		"metrics.enabled":   true,
		"metrics.port":      9090,
		"metrics.path":      "/metrics",
		"metrics.namespace": "heatgrid",
		"metrics.subsystem": "",

		// Tracing
		"tracing.enabled":      false,
		"tracing.endpoint":     "localhost:4317",
		"tracing.service_name": "heatgrid",
		"tracing.sample_rate":  0.1,

		// Database
		"database.host":               "localhost",
		"database.port":               5432,
		"database.database":           "heatgrid",
		"database.username":           "postgres",
		"database.password":           "",
		"database.ssl_mode":           "disable",
		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  5 * time.Minute,
		"database.conn_max_idle_time": 5 * time.Minute,
		"database.auto_migrate":       true,

		// Cache
		"cache.enabled":     false,
		"cache.driver":      "memory",
		"cache.host":        "localhost",
		"cache.port":        6379,
		"cache.db":          0,
		"cache.default_ttl": 15 * time.Minute,
		"cache.max_entries": 1000,

		// Rate Limit
		"rate_limit.enabled":          true,
		"rate_limit.requests":         60,
		"rate_limit.window":           time.Minute,
		"rate_limit.backend":          "memory",
		"rate_limit.burst_size":       10,
		"rate_limit.cleanup_interval": 5 * time.Minute,

		// Audit
		"audit.enabled":       true,
		"audit.backend":       "stdout",
		"audit.buffer_size":   1000,
		"audit.flush_period":  5 * time.Second,
		"audit.exclude_paths": []string{"/healthz", "/readyz", "/metrics"},

		// Auth
		"auth.enabled":         false,
		"auth.token_ttl":       24 * time.Hour,
		"auth.issuer":          "heatgrid",
		"auth.api_keys_enable": false,

		// Swagger
		"swagger.enabled": true,
		"swagger.path":    "/swagger",
		"swagger.title":   "Heatgrid Topology API",

		// Retry
		"retry.max_attempts":       3,
		"retry.initial_backoff":    100 * time.Millisecond,
		"retry.max_backoff":        10 * time.Second,
		"retry.backoff_multiplier": 2.0,

		// Topology
		"topology.quantize_tolerance":   1e-3,
		"topology.max_bridge_distance":  300.0,
		"topology.max_snap_distance":    0.0,
		"topology.supply_temperature_c": 80.0,
		"topology.return_temperature_c": 50.0,
		"topology.demand_attachment":    "terminal_segment",
		"topology.max_route_workers":    0,
		"topology.max_streets":          50000,
		"topology.max_assets":           20000,
		"topology.persist_results":      true,
	}

	return l.k.Load(confmap.Provider(defaults, "."), nil)
}

// loadConfigFile загружает конфигурацию из файла
func (l *Loader) loadConfigFile() error {
	if configPath := os.Getenv(configEnvVar); configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return l.k.Load(file.Provider(configPath), yaml.Parser())
		}
	}

	for _, path := range l.configPaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}

		if _, err := os.Stat(absPath); err == nil {
			return l.k.Load(file.Provider(absPath), yaml.Parser())
		}
	}

	return fmt.Errorf("config file not found in paths: %v", l.configPaths)
}

// loadEnv загружает конфигурацию из переменных окружения
// Использует явный маппинг для ключей с подчёркиваниями в именах
func (l *Loader) loadEnv() error {
	return l.k.Load(env.ProviderWithValue(l.envPrefix, ".", func(envKey string, value string) (string, interface{}) {
		// Убираем префикс и приводим к нижнему регистру
		key := strings.ToLower(strings.TrimPrefix(envKey, l.envPrefix))

		// Маппинг для полей с подчёркиванием в именах
		if mappedKey, ok := envKeyMappings[key]; ok {
			key = mappedKey
		} else {
			// По умолчанию заменяем все подчёркивания на точки
			key = strings.ReplaceAll(key, "_", ".")
		}

		// Для slice-полей разбиваем по запятой
		if isSliceField(key) {
			return key, splitAndTrim(value)
		}

		return key, value
	}), nil)
}

// envKeyMappings - маппинг переменных окружения на ключи конфига
// Необходим для полей, содержащих подчёркивания в именах
var envKeyMappings = map[string]string{
	// HTTP CORS
	"http_cors_enabled":           "http.cors.enabled",
	"http_cors_allowed_origins":   "http.cors.allowed_origins",
	"http_cors_allowed_methods":   "http.cors.allowed_methods",
	"http_cors_allowed_headers":   "http.cors.allowed_headers",
	"http_cors_allow_credentials": "http.cors.allow_credentials",
	"http_cors_max_age":           "http.cors.max_age",

	// HTTP
	"http_port":             "http.port",
	"http_read_timeout":     "http.read_timeout",
	"http_write_timeout":    "http.write_timeout",
	"http_idle_timeout":     "http.idle_timeout",
	"http_request_timeout":  "http.request_timeout",
	"http_shutdown_timeout": "http.shutdown_timeout",
	"http_max_body_bytes":   "http.max_body_bytes",
	"http_tls_enabled":      "http.tls.enabled",
	"http_tls_cert_file":    "http.tls.cert_file",
	"http_tls_key_file":     "http.tls.key_file",

	// Database
	"database_host":               "database.host",
	"database_port":               "database.port",
	"database_database":           "database.database",
	"database_username":           "database.username",
	"database_password":           "database.password",
	"database_ssl_mode":           "database.ssl_mode",
	"database_max_open_conns":     "database.max_open_conns",
	"database_max_idle_conns":     "database.max_idle_conns",
	"database_conn_max_lifetime":  "database.conn_max_lifetime",
	"database_conn_max_idle_time": "database.conn_max_idle_time",
	"database_auto_migrate":       "database.auto_migrate",

	// Cache
	"cache_enabled":     "cache.enabled",
	"cache_driver":      "cache.driver",
	"cache_host":        "cache.host",
	"cache_port":        "cache.port",
	"cache_password":    "cache.password",
	"cache_db":          "cache.db",
	"cache_default_ttl": "cache.default_ttl",
	"cache_max_entries": "cache.max_entries",

	// Rate limit
	"rate_limit_enabled":          "rate_limit.enabled",
	"rate_limit_requests":         "rate_limit.requests",
	"rate_limit_window":           "rate_limit.window",
	"rate_limit_backend":          "rate_limit.backend",
	"rate_limit_burst_size":       "rate_limit.burst_size",
	"rate_limit_cleanup_interval": "rate_limit.cleanup_interval",
	"rate_limit_redis_addr":       "rate_limit.redis_addr",

	// Audit
	"audit_enabled":       "audit.enabled",
	"audit_backend":       "audit.backend",
	"audit_file_path":     "audit.file_path",
	"audit_buffer_size":   "audit.buffer_size",
	"audit_flush_period":  "audit.flush_period",
	"audit_exclude_paths": "audit.exclude_paths",

	// Auth
	"auth_enabled":         "auth.enabled",
	"auth_jwt_secret":      "auth.jwt_secret",
	"auth_token_ttl":       "auth.token_ttl",
	"auth_issuer":          "auth.issuer",
	"auth_api_keys_enable": "auth.api_keys_enable",

	// Log
	"log_level":       "log.level",
	"log_format":      "log.format",
	"log_output":      "log.output",
	"log_file_path":   "log.file_path",
	"log_max_size":    "log.max_size",
	"log_max_backups": "log.max_backups",
	"log_max_age":     "log.max_age",
	"log_compress":    "log.compress",

	// Metrics
	"metrics_enabled":   "metrics.enabled",
	"metrics_port":      "metrics.port",
	"metrics_path":      "metrics.path",
	"metrics_namespace": "metrics.namespace",
	"metrics_subsystem": "metrics.subsystem",

	// Tracing
	"tracing_enabled":      "tracing.enabled",
	"tracing_endpoint":     "tracing.endpoint",
	"tracing_service_name": "tracing.service_name",
	"tracing_sample_rate":  "tracing.sample_rate",

	// Retry
	"retry_max_attempts":       "retry.max_attempts",
	"retry_initial_backoff":    "retry.initial_backoff",
	"retry_max_backoff":        "retry.max_backoff",
	"retry_backoff_multiplier": "retry.backoff_multiplier",

	// Swagger
	"swagger_enabled": "swagger.enabled",
	"swagger_path":    "swagger.path",
	"swagger_title":   "swagger.title",

	// Topology
	"topology_quantize_tolerance":   "topology.quantize_tolerance",
	"topology_max_bridge_distance":  "topology.max_bridge_distance",
	"topology_max_snap_distance":    "topology.max_snap_distance",
	"topology_supply_temperature_c": "topology.supply_temperature_c",
	"topology_return_temperature_c": "topology.return_temperature_c",
	"topology_demand_attachment":    "topology.demand_attachment",
	"topology_max_route_workers":    "topology.max_route_workers",
	"topology_max_streets":          "topology.max_streets",
	"topology_max_assets":           "topology.max_assets",
	"topology_persist_results":      "topology.persist_results",
}

// sliceFields - поля, которые должны парситься как слайсы
var sliceFields = map[string]bool{
	"http.cors.allowed_origins": true,
	"http.cors.allowed_methods": true,
	"http.cors.allowed_headers": true,
	"audit.exclude_paths":       true,
}

func isSliceField(key string) bool {
	return sliceFields[key]
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// MustLoad загружает конфигурацию или паникует
func MustLoad(opts ...LoaderOption) *Config {
	cfg, err := NewLoader(opts...).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Load - удобная функция для загрузки с дефолтными настройками
func Load() (*Config, error) {
	return NewLoader().Load()
}

// LoadWithServiceDefaults загружает конфигурацию, подставляя имя сервиса
// и порт по умолчанию
func LoadWithServiceDefaults(name string, port int) (*Config, error) {
	return NewLoader(WithServiceDefaults(name, port)).Load()
}
