// Package converter переводит DTO внешнего JSON-контракта в доменные типы
// и обратно. Подстановка значений по умолчанию из конфигурации происходит
// здесь: дальше по конвейеру параметры считаются окончательными.
package converter

import (
	"time"

	"github.com/paulmach/orb"

	"heatgrid/pkg/apperror"
	"heatgrid/pkg/config"
	"heatgrid/pkg/domain"
)

// ToDomainRequest собирает доменный запрос из DTO. Отсутствующие опции
// заполняются значениями из конфигурации сервиса.
func ToDomainRequest(dto *PlanRequestDTO, defaults *config.TopologyConfig) *domain.PlanRequest {
	req := &domain.PlanRequest{
		Name:    dto.Name,
		Streets: make([]domain.StreetSegment, 0, len(dto.Streets)),
		Assets:  make([]domain.Asset, 0, len(dto.Assets)),
		Options: resolveOptions(dto.Options, defaults),
	}

	for _, s := range dto.Streets {
		req.Streets = append(req.Streets, domain.StreetSegment{
			ID:       s.ID,
			Name:     s.Name,
			Category: domain.ParseStreetCategory(s.Category),
			Geometry: orb.LineString(append([]orb.Point(nil), s.Points...)),
		})
	}

	for _, a := range dto.Assets {
		kind := domain.AssetConsumer
		if a.Kind == "source" {
			kind = domain.AssetSource
		}
		req.Assets = append(req.Assets, domain.Asset{
			ID:       a.ID,
			Name:     a.Name,
			Kind:     kind,
			Point:    a.Point,
			DemandKW: a.DemandKW,
		})
	}

	return req
}

// resolveOptions накладывает заданные клиентом опции поверх конфигурации.
// Указатель nil означает "не задано"; явный ноль проходит как есть.
func resolveOptions(dto *PlanOptionsDTO, defaults *config.TopologyConfig) domain.PlanOptions {
	opts := domain.DefaultPlanOptions()
	if defaults != nil {
		opts = domain.PlanOptions{
			QuantizeTolerance:  defaults.QuantizeTolerance,
			MaxBridgeDistance:  defaults.MaxBridgeDistance,
			MaxSnapDistance:    defaults.MaxSnapDistance,
			SupplyTemperatureC: defaults.SupplyTemperatureC,
			ReturnTemperatureC: defaults.ReturnTemperatureC,
			DemandAttachment:   defaults.DemandAttachment,
			MaxRouteWorkers:    defaults.MaxRouteWorkers,
		}
	}
	if dto == nil {
		return opts
	}

	if dto.QuantizeTolerance != nil {
		opts.QuantizeTolerance = *dto.QuantizeTolerance
	}
	if dto.MaxBridgeDistance != nil {
		opts.MaxBridgeDistance = *dto.MaxBridgeDistance
	}
	if dto.MaxSnapDistance != nil {
		opts.MaxSnapDistance = *dto.MaxSnapDistance
	}
	if dto.SupplyTemperatureC != nil {
		opts.SupplyTemperatureC = *dto.SupplyTemperatureC
	}
	if dto.ReturnTemperatureC != nil {
		opts.ReturnTemperatureC = *dto.ReturnTemperatureC
	}
	if dto.DemandAttachment != "" {
		opts.DemandAttachment = dto.DemandAttachment
	}
	if dto.MaxRouteWorkers > 0 {
		opts.MaxRouteWorkers = dto.MaxRouteWorkers
	}

	return opts
}

// FromResult переводит доменный результат в DTO ответа
func FromResult(id, name string, createdAt time.Time, res *domain.TopologyResult) *PlanResultDTO {
	dto := &PlanResultDTO{
		ID:          id,
		Name:        name,
		CreatedAt:   createdAt,
		DurationMs:  res.Duration.Milliseconds(),
		Source:      fromConnection(res.Source),
		Connections: make([]*ServiceConnectionDTO, 0, len(res.Connections)),
		Paths:       make([]*RoutedPathDTO, 0, len(res.Paths)),
		Pipes:       make([]*PipeSegmentDTO, 0, len(res.Pipes)),
		Stats:       fromStats(res.Stats),
	}

	for _, c := range res.Connections {
		dto.Connections = append(dto.Connections, fromConnection(c))
	}
	for _, p := range res.Paths {
		dto.Paths = append(dto.Paths, &RoutedPathDTO{
			AssetID: p.AssetID,
			Nodes:   p.Nodes,
			Length:  p.Length,
		})
	}
	for _, seg := range res.Pipes {
		dto.Pipes = append(dto.Pipes, fromPipe(seg))
	}
	for _, d := range res.Diagnostics {
		dto.Diagnostics = append(dto.Diagnostics, &DiagnosticDTO{
			AssetID:  d.AssetID,
			Code:     d.Code,
			Message:  d.Message,
			Distance: d.Distance,
		})
	}

	return dto
}

func fromConnection(c *domain.ServiceConnection) *ServiceConnectionDTO {
	if c == nil {
		return nil
	}
	return &ServiceConnectionDTO{
		AssetID:   c.AssetID,
		NodeID:    c.NodeID,
		Point:     c.Point,
		Distance:  c.Distance,
		SegmentID: c.SegmentID,
		DemandKW:  c.DemandKW,
	}
}

func fromPipe(seg *domain.PipeSegment) *PipeSegmentDTO {
	return &PipeSegmentDTO{
		Circuit:      seg.Circuit.String(),
		FromID:       seg.FromID,
		ToID:         seg.ToID,
		From:         seg.From,
		To:           seg.To,
		Length:       seg.Length,
		SegmentID:    seg.SegmentID,
		Kind:         seg.Kind.String(),
		TemperatureC: seg.TemperatureC,
		ServedAssets: seg.ServedAssets,
		DemandKW:     seg.DemandKW,
	}
}

func fromStats(s *domain.NetworkStats) *NetworkStatsDTO {
	if s == nil {
		return nil
	}
	return &NetworkStatsDTO{
		NodeCount:            s.NodeCount,
		EdgeCount:            s.EdgeCount,
		ComponentCount:       s.ComponentCount,
		BridgeCount:          s.BridgeCount,
		AssetsTotal:          s.AssetsTotal,
		AssetsServed:         s.AssetsServed,
		AssetsFailed:         s.AssetsFailed,
		Coverage:             s.Coverage,
		SupplyLength:         s.SupplyLength,
		ReturnLength:         s.ReturnLength,
		TrenchLength:         s.TrenchLength,
		ServiceLength:        s.ServiceLength,
		TotalDemandKW:        s.TotalDemandKW,
		ServedDemandKW:       s.ServedDemandKW,
		PipeSegmentCount:     s.PipeSegmentCount,
		AverageSegmentLength: s.AverageSegmentLength,
		MaxPathLength:        s.MaxPathLength,
		AveragePathLength:    s.AveragePathLength,

		ConnectionCount:         s.ConnectionCount,
		AverageConnectionLength: s.AverageConnectionLength,
		MaxConnectionLength:     s.MaxConnectionLength,

		FailuresByCode: s.FailuresByCode,
	}
}

// FromValidation переводит накопленные проверки в отчёт для клиента
func FromValidation(verrs *apperror.ValidationErrors) *ValidationReportDTO {
	report := &ValidationReportDTO{Valid: verrs.IsValid()}

	for _, e := range verrs.Errors {
		report.Errors = append(report.Errors, &ValidationIssueDTO{
			Code:    string(e.Code),
			Message: e.Message,
			Field:   e.Field,
		})
	}
	for _, w := range verrs.Warnings {
		report.Warnings = append(report.Warnings, &ValidationIssueDTO{
			Code:    string(w.Code),
			Message: w.Message,
			Field:   w.Field,
		})
	}

	return report
}
