// pkg/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config - главная структура конфигурации
type Config struct {
	App       AppConfig       `koanf:"app"`
	HTTP      HTTPConfig      `koanf:"http"`
	Log       LogConfig       `koanf:"log"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Tracing   TracingConfig   `koanf:"tracing"`
	Database  DatabaseConfig  `koanf:"database"`
	Cache     CacheConfig     `koanf:"cache"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Audit     AuditConfig     `koanf:"audit"`
	Auth      AuthConfig      `koanf:"auth"`
	Swagger   SwaggerConfig   `koanf:"swagger"`
	Retry     RetryConfig     `koanf:"retry"`
	Topology  TopologyConfig  `koanf:"topology"`
}

// AppConfig - общие настройки приложения
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// HTTPConfig - настройки HTTP сервера
type HTTPConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	RequestTimeout  time.Duration `koanf:"request_timeout"` // на один запрос построения
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
	CORS            CORSConfig    `koanf:"cors"`
	TLS             TLSConfig     `koanf:"tls"`
}

// CORSConfig - настройки CORS
type CORSConfig struct {
	Enabled          bool     `koanf:"enabled"`
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

// TLSConfig - настройки TLS
type TLSConfig struct {
	Enabled  bool   `koanf:"enabled"`
	CertFile string `koanf:"cert_file"`
	KeyFile  string `koanf:"key_file"`
}

// LogConfig - настройки логирования
type LogConfig struct {
	Level      string `koanf:"level"`       // debug, info, warn, error
	Format     string `koanf:"format"`      // json, text
	Output     string `koanf:"output"`      // stdout, stderr, file
	FilePath   string `koanf:"file_path"`   // путь к файлу логов
	MaxSize    int    `koanf:"max_size"`    // MB
	MaxBackups int    `koanf:"max_backups"` // количество бэкапов
	MaxAge     int    `koanf:"max_age"`     // дней
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig - настройки Prometheus метрик
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Port      int    `koanf:"port"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

// TracingConfig - настройки OpenTelemetry
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// DatabaseConfig - настройки базы данных
type DatabaseConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Database        string        `koanf:"database"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// DSN возвращает строку подключения PostgreSQL
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password, d.Database, d.SSLMode,
	)
}

// CacheConfig - настройки кэширования
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Driver     string        `koanf:"driver"` // redis, memory
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	DefaultTTL time.Duration `koanf:"default_ttl"`
	MaxEntries int           `koanf:"max_entries"` // для in-memory
}

// Address возвращает адрес кэша
func (c CacheConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RateLimitConfig конфигурация rate limiting
type RateLimitConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Requests        int           `koanf:"requests"`
	Window          time.Duration `koanf:"window"`
	Backend         string        `koanf:"backend"` // memory, redis
	BurstSize       int           `koanf:"burst_size"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
	RedisAddr       string        `koanf:"redis_addr"`
}

// AuditConfig конфигурация аудит лога
type AuditConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Backend      string        `koanf:"backend"` // stdout, file, postgres
	FilePath     string        `koanf:"file_path"`
	BufferSize   int           `koanf:"buffer_size"`
	FlushPeriod  time.Duration `koanf:"flush_period"`
	ExcludePaths []string      `koanf:"exclude_paths"`
}

// AuthConfig конфигурация аутентификации
type AuthConfig struct {
	Enabled       bool          `koanf:"enabled"`
	JWTSecret     string        `koanf:"jwt_secret"`
	TokenTTL      time.Duration `koanf:"token_ttl"`
	Issuer        string        `koanf:"issuer"`
	APIKeysEnable bool          `koanf:"api_keys_enable"`

	// APIKeys argon2id-хеши ключей по идентификатору клиента; при
	// включённом APIKeysEnable выпуск токена требует действительный ключ
	APIKeys map[string]string `koanf:"api_keys"`
}

// SwaggerConfig конфигурация Swagger UI
type SwaggerConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
	Title   string `koanf:"title"`
}

// RetryConfig конфигурация retry для исходящих запросов
type RetryConfig struct {
	MaxAttempts       int           `koanf:"max_attempts"`
	InitialBackoff    time.Duration `koanf:"initial_backoff"`
	MaxBackoff        time.Duration `koanf:"max_backoff"`
	BackoffMultiplier float64       `koanf:"backoff_multiplier"`
}

// TopologyConfig параметры построения топологии по умолчанию.
// Значения из запроса имеют приоритет над этими.
type TopologyConfig struct {
	QuantizeTolerance  float64 `koanf:"quantize_tolerance"`
	MaxBridgeDistance  float64 `koanf:"max_bridge_distance"`
	MaxSnapDistance    float64 `koanf:"max_snap_distance"`
	SupplyTemperatureC float64 `koanf:"supply_temperature_c"`
	ReturnTemperatureC float64 `koanf:"return_temperature_c"`
	DemandAttachment   string  `koanf:"demand_attachment"`
	MaxRouteWorkers    int     `koanf:"max_route_workers"`

	// Лимиты на размер запроса
	MaxStreets int `koanf:"max_streets"`
	MaxAssets  int `koanf:"max_assets"`

	// Сохранять ли результаты в БД
	PersistResults bool `koanf:"persist_results"`
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	var errs []string

	if c.App.Name == "" {
		errs = append(errs, "app.name is required")
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Sprintf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	if c.Topology.QuantizeTolerance <= 0 {
		errs = append(errs, fmt.Sprintf("topology.quantize_tolerance must be positive, got %g", c.Topology.QuantizeTolerance))
	}

	validAttachments := map[string]bool{"terminal_segment": true, "service_connection": true}
	if !validAttachments[c.Topology.DemandAttachment] {
		errs = append(errs, fmt.Sprintf("topology.demand_attachment must be terminal_segment or service_connection, got %s", c.Topology.DemandAttachment))
	}

	if c.Topology.MaxStreets <= 0 {
		errs = append(errs, "topology.max_streets must be positive")
	}
	if c.Topology.MaxAssets <= 0 {
		errs = append(errs, "topology.max_assets must be positive")
	}

	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		errs = append(errs, "auth.jwt_secret is required when auth is enabled")
	}
	if c.Auth.APIKeysEnable && len(c.Auth.APIKeys) == 0 {
		errs = append(errs, "auth.api_keys must not be empty when api_keys_enable is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsDevelopment проверяет режим разработки
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}

// IsProduction проверяет продакшн режим
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production" || c.App.Environment == "prod"
}
