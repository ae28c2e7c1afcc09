package ratelimit

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"heatgrid/pkg/config"
)

// Стандартные ошибки
var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrLimiterClosed     = errors.New("limiter is closed")
)

// Limiter интерфейс ограничителя запросов
type Limiter interface {
	// Allow проверяет, разрешён ли запрос
	Allow(ctx context.Context, key string) (bool, error)

	// AllowN проверяет, разрешены ли n запросов
	AllowN(ctx context.Context, key string, n int) (bool, error)

	// Wait блокирует до получения разрешения
	Wait(ctx context.Context, key string) error

	// Reset сбрасывает лимит для ключа
	Reset(ctx context.Context, key string) error

	// GetInfo возвращает информацию о текущем состоянии
	GetInfo(ctx context.Context, key string) (*LimitInfo, error)

	// Close закрывает лимитер
	Close() error
}

// LimitInfo информация о состоянии лимита
type LimitInfo struct {
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	ResetAt    time.Time     `json:"reset_at"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// Config конфигурация rate limiter
type Config struct {
	// Requests количество запросов
	Requests int `koanf:"requests"`

	// Window временное окно
	Window time.Duration `koanf:"window"`

	// Strategy стратегия (sliding_window, token_bucket)
	Strategy string `koanf:"strategy"`

	// Backend хранилище (memory, redis)
	Backend string `koanf:"backend"`

	// BurstSize размер burst для token bucket
	BurstSize int `koanf:"burst_size"`

	// CleanupInterval интервал очистки для in-memory
	CleanupInterval time.Duration `koanf:"cleanup_interval"`

	// Redis настройки Redis
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		Requests:        60,
		Window:          time.Minute,
		Strategy:        "sliding_window",
		Backend:         "memory",
		BurstSize:       10,
		CleanupInterval: 5 * time.Minute,
	}
}

// FromConfig строит конфигурацию лимитера из настроек приложения
func FromConfig(cfg *config.RateLimitConfig) *Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	if cfg.Requests > 0 {
		c.Requests = cfg.Requests
	}
	if cfg.Window > 0 {
		c.Window = cfg.Window
	}
	if cfg.Backend != "" {
		c.Backend = cfg.Backend
	}
	if cfg.BurstSize > 0 {
		c.BurstSize = cfg.BurstSize
	}
	if cfg.CleanupInterval > 0 {
		c.CleanupInterval = cfg.CleanupInterval
	}
	c.RedisAddr = cfg.RedisAddr
	return c
}

// New создаёт лимитер на основе конфигурации
func New(cfg *Config) (Limiter, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	switch cfg.Backend {
	case "redis":
		return NewRedisLimiter(cfg)
	case "memory", "":
		return NewMemoryLimiter(cfg), nil
	default:
		return NewMemoryLimiter(cfg), nil
	}
}

// KeyExtractor извлекает ключ лимита из HTTP-запроса
type KeyExtractor func(r *http.Request) string

// IPKeyExtractor извлекает ключ по IP клиента.
// Учитывает прокси-заголовки, иначе берёт адрес соединения.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Первый адрес в цепочке - исходный клиент
		if i := strings.Index(xff, ","); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// PathKeyExtractor извлекает ключ по методу и пути запроса
func PathKeyExtractor(r *http.Request) string {
	return r.Method + " " + r.URL.Path
}

// CompositeKeyExtractor комбинирует несколько ключей
func CompositeKeyExtractor(extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(extractors))
		for _, ext := range extractors {
			parts = append(parts, ext(r))
		}
		return strings.Join(parts, ":")
	}
}
