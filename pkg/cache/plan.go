package cache

import (
	"context"
	"encoding/json"
	"time"

	"heatgrid/pkg/domain"
)

// PlanCache специализированный кэш для результатов построения сети
type PlanCache struct {
	cache      Cache
	defaultTTL time.Duration
}

// CachedPlan кэшированный результат построения.
// Payload хранит сериализованный ответ сервиса как есть: пакет cache
// не знает о формате DTO и не должен зависеть от него.
type CachedPlan struct {
	Name       string          `json:"name,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	ComputedAt time.Time       `json:"computed_at"`
}

// NewPlanCache создаёт кэш для результатов построения
func NewPlanCache(cache Cache, defaultTTL time.Duration) *PlanCache {
	if defaultTTL <= 0 {
		defaultTTL = 15 * time.Minute
	}
	return &PlanCache{
		cache:      cache,
		defaultTTL: defaultTTL,
	}
}

// Get получает кэшированный результат для запроса
func (pc *PlanCache) Get(ctx context.Context, req *domain.PlanRequest) (*CachedPlan, bool, error) {
	key := BuildPlanKey(PlanHash(req))

	data, err := pc.cache.Get(ctx, key)
	if err != nil {
		if err == ErrKeyNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}

	var cached CachedPlan
	if err := json.Unmarshal(data, &cached); err != nil {
		// Повреждённый кэш — удаляем, ошибку удаления игнорируем намеренно
		_ = pc.cache.Delete(ctx, key) //nolint:errcheck // best effort cleanup
		return nil, false, nil
	}

	return &cached, true, nil
}

// Set сохраняет результат в кэш
func (pc *PlanCache) Set(ctx context.Context, req *domain.PlanRequest, payload json.RawMessage, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = pc.defaultTTL
	}

	key := BuildPlanKey(PlanHash(req))

	cached := CachedPlan{
		Name:       req.Name,
		Payload:    payload,
		ComputedAt: time.Now(),
	}

	data, err := json.Marshal(&cached)
	if err != nil {
		return err
	}

	return pc.cache.Set(ctx, key, data, ttl)
}

// Invalidate удаляет кэш для конкретного запроса
func (pc *PlanCache) Invalidate(ctx context.Context, req *domain.PlanRequest) error {
	key := BuildPlanKey(PlanHash(req))
	return pc.cache.Delete(ctx, key)
}

// InvalidateAll удаляет весь кэш результатов построения
func (pc *PlanCache) InvalidateAll(ctx context.Context) (int64, error) {
	return pc.cache.DeleteByPattern(ctx, "plan:*")
}
