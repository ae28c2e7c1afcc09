package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"heatgrid/pkg/apperror"
	"heatgrid/pkg/cache"
	"heatgrid/pkg/config"
	"heatgrid/pkg/domain"
	"heatgrid/pkg/logger"
	"heatgrid/pkg/metrics"
	"heatgrid/pkg/telemetry"
	"heatgrid/services/topology-svc/internal/converter"
	"heatgrid/services/topology-svc/internal/engine"
	"heatgrid/services/topology-svc/internal/repository"
	"heatgrid/services/topology-svc/internal/validators"
)

// TopologyService прикладной слой сервиса: кэш, персистентность, метрики
// и трассировка вокруг чистого конвейера построения. Кэш и репозиторий
// опциональны - без них сервис строит планы stateless.
type TopologyService struct {
	cfg       *config.Config
	engine    *engine.Engine
	planCache *cache.PlanCache
	repo      repository.RunRepository
	metrics   *metrics.Metrics
}

// NewTopologyService создаёт прикладной сервис
func NewTopologyService(cfg *config.Config, planCache *cache.PlanCache, repo repository.RunRepository) *TopologyService {
	return &TopologyService{
		cfg:       cfg,
		engine:    engine.New(),
		planCache: planCache,
		repo:      repo,
		metrics:   metrics.Get(),
	}
}

// CreatePlan строит план сети по запросу клиента
func (s *TopologyService) CreatePlan(ctx context.Context, dto *converter.PlanRequestDTO, createdBy string) (*converter.PlanResultDTO, error) {
	ctx, span := telemetry.StartSpan(ctx, "TopologyService.CreatePlan",
		trace.WithAttributes(
			attribute.Int("streets", len(dto.Streets)),
			attribute.Int("assets", len(dto.Assets)),
		),
	)
	defer span.End()

	if err := s.checkLimits(dto); err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	req := converter.ToDomainRequest(dto, &s.cfg.Topology)

	// Проверяем кэш
	if s.planCache != nil {
		if result, ok := s.cachedResult(ctx, req); ok {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			if s.metrics != nil {
				s.metrics.RecordCacheHit("plan")
			}
			return result, nil
		}
		if s.metrics != nil {
			s.metrics.RecordCacheMiss("plan")
		}
	}
	span.SetAttributes(attribute.Bool("cache_hit", false))

	res, err := s.engine.Run(ctx, req)
	if err != nil {
		telemetry.SetError(ctx, err)
		if s.metrics != nil {
			s.metrics.RecordPlanRun("error", 0)
		}
		return nil, err
	}

	result := converter.FromResult(uuid.NewString(), dto.Name, time.Now().UTC(), res)
	s.recordRunMetrics(res)
	telemetry.SetAttributes(ctx, telemetry.PlanAttributes(
		int(res.Stats.AssetsTotal), int(res.Stats.AssetsServed), int(res.Stats.AssetsFailed))...)

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to encode plan result")
	}

	// Сохраняем прогон; отказ хранилища деградирует до stateless-ответа
	if s.repo != nil && s.cfg.Topology.PersistResults {
		if err := s.persistRun(ctx, req, res, result, payload, createdBy); err != nil {
			logger.Log.Warn("Failed to persist topology run", "run_id", result.ID, "error", err)
		}
	}

	// Кладём в кэш
	if s.planCache != nil {
		if err := s.planCache.Set(ctx, req, payload, 0); err != nil {
			logger.Log.Warn("Failed to cache plan result", "error", err)
		}
	}

	return result, nil
}

// ValidatePlan проверяет входные данные без построения сети
func (s *TopologyService) ValidatePlan(ctx context.Context, dto *converter.PlanRequestDTO) (*converter.ValidationReportDTO, error) {
	_, span := telemetry.StartSpan(ctx, "TopologyService.ValidatePlan")
	defer span.End()

	if err := s.checkLimits(dto); err != nil {
		return nil, err
	}

	req := converter.ToDomainRequest(dto, &s.cfg.Topology)
	report := converter.FromValidation(validators.ValidatePlan(req))

	span.SetAttributes(
		attribute.Bool("valid", report.Valid),
		attribute.Int("errors", len(report.Errors)),
	)

	return report, nil
}

// GetPlan возвращает сохранённый план
func (s *TopologyService) GetPlan(ctx context.Context, id string) (*converter.PlanResultDTO, error) {
	ctx, span := telemetry.StartSpan(ctx, "TopologyService.GetPlan")
	defer span.End()

	run, err := s.getRun(ctx, id)
	if err != nil {
		return nil, err
	}

	var result converter.PlanResultDTO
	if err := json.Unmarshal(run.Result, &result); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "stored plan result is corrupted")
	}

	return &result, nil
}

// ListPlans возвращает страницу сохранённых планов, новые первыми
func (s *TopologyService) ListPlans(ctx context.Context, limit, offset int) (*converter.PlanListDTO, error) {
	ctx, span := telemetry.StartSpan(ctx, "TopologyService.ListPlans")
	defer span.End()

	if s.repo == nil {
		return nil, errPersistenceDisabled()
	}

	opts := &repository.ListOptions{Limit: limit, Offset: offset}
	runs, total, err := s.repo.List(ctx, opts)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	list := &converter.PlanListDTO{
		Plans:  make([]*converter.PlanSummaryDTO, 0, len(runs)),
		Total:  total,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	}
	for _, run := range runs {
		list.Plans = append(list.Plans, &converter.PlanSummaryDTO{
			ID:            run.ID,
			Name:          run.Name,
			CreatedAt:     run.CreatedAt,
			CreatedBy:     run.CreatedBy,
			DurationMs:    run.DurationMs,
			AssetsTotal:   int64(run.AssetCount),
			AssetsServed:  int64(run.AssetsServed),
			TrenchLength:  run.TrenchLength,
			TotalDemandKW: run.TotalDemandKW,
		})
	}

	return list, nil
}

// DeletePlan удаляет сохранённый план
func (s *TopologyService) DeletePlan(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "TopologyService.DeletePlan")
	defer span.End()

	if s.repo == nil {
		return errPersistenceDisabled()
	}

	return s.repo.Delete(ctx, id)
}

// ExportGeoJSON выгружает сохранённый план как GeoJSON FeatureCollection
func (s *TopologyService) ExportGeoJSON(ctx context.Context, id, circuit string) ([]byte, error) {
	ctx, span := telemetry.StartSpan(ctx, "TopologyService.ExportGeoJSON",
		trace.WithAttributes(attribute.String("circuit", circuit)),
	)
	defer span.End()

	result, err := s.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}

	fc, err := converter.ToGeoJSON(result, circuit)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to encode GeoJSON")
	}

	return data, nil
}

func (s *TopologyService) getRun(ctx context.Context, id string) (*repository.Run, error) {
	if s.repo == nil {
		return nil, errPersistenceDisabled()
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperror.NewWithField(apperror.CodeInvalidArgument, "run id must be a UUID", "id")
	}

	run, err := s.repo.GetByID(ctx, id)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}
	return run, nil
}

// cachedResult пытается достать готовый план из кэша. Идентификатор и время
// прогона остаются исходными: повторный запрос возвращает тот же план.
func (s *TopologyService) cachedResult(ctx context.Context, req *domain.PlanRequest) (*converter.PlanResultDTO, bool) {
	cached, found, err := s.planCache.Get(ctx, req)
	if err != nil {
		logger.Log.Warn("Plan cache lookup failed", "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	var result converter.PlanResultDTO
	if err := json.Unmarshal(cached.Payload, &result); err != nil {
		logger.Log.Warn("Cached plan payload is corrupted", "error", err)
		return nil, false
	}

	result.Cached = true
	return &result, true
}

func (s *TopologyService) persistRun(ctx context.Context, req *domain.PlanRequest, res *domain.TopologyResult, result *converter.PlanResultDTO, payload []byte, createdBy string) error {
	statsJSON, err := json.Marshal(result.Stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}

	return s.repo.Create(ctx, &repository.Run{
		ID:            result.ID,
		Name:          req.Name,
		CreatedBy:     createdBy,
		InputHash:     cache.PlanHash(req),
		StreetCount:   len(req.Streets),
		AssetCount:    int(res.Stats.AssetsTotal),
		AssetsServed:  int(res.Stats.AssetsServed),
		AssetsFailed:  int(res.Stats.AssetsFailed),
		Coverage:      res.Stats.Coverage,
		TrenchLength:  res.Stats.TrenchLength,
		TotalDemandKW: res.Stats.TotalDemandKW,
		DurationMs:    res.Duration.Milliseconds(),
		Stats:         statsJSON,
		Result:        payload,
	})
}

func (s *TopologyService) checkLimits(dto *converter.PlanRequestDTO) error {
	if max := s.cfg.Topology.MaxStreets; max > 0 && len(dto.Streets) > max {
		return apperror.NewWithField(apperror.CodeInvalidArgument,
			fmt.Sprintf("too many streets: %d exceeds limit %d", len(dto.Streets), max), "streets")
	}
	if max := s.cfg.Topology.MaxAssets; max > 0 && len(dto.Assets) > max {
		return apperror.NewWithField(apperror.CodeInvalidArgument,
			fmt.Sprintf("too many assets: %d exceeds limit %d", len(dto.Assets), max), "assets")
	}
	return nil
}

func (s *TopologyService) recordRunMetrics(res *domain.TopologyResult) {
	if s.metrics == nil {
		return
	}

	s.metrics.RecordPlanRun("success", res.Duration)
	s.metrics.RecordNetworkSize("plan", int(res.Stats.NodeCount), int(res.Stats.EdgeCount))
	s.metrics.RecordTopology(int(res.Stats.BridgeCount), res.Stats.TrenchLength)

	var snapFailures, routeFailures int
	for _, d := range res.Diagnostics {
		switch d.Code {
		case string(apperror.CodeSnapFailed):
			snapFailures++
		case string(apperror.CodeRoutingFailed):
			routeFailures++
		}
	}
	if snapFailures > 0 {
		s.metrics.RecordAssetFailures("snap", snapFailures)
	}
	if routeFailures > 0 {
		s.metrics.RecordAssetFailures("route", routeFailures)
	}
}

func errPersistenceDisabled() error {
	return apperror.New(apperror.CodeNotFound, "run persistence is disabled on this instance")
}
