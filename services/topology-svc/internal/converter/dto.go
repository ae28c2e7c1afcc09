package converter

import (
	"time"

	"github.com/paulmach/orb"
)

// DTO внешнего JSON-контракта. Поле в поле совпадают с типами pkg/client:
// контрактом между ними служит сам JSON. Теги validator описывают
// структурные проверки; геометрическая валидация остаётся за
// internal/validators.

// StreetDTO улица в запросе плана
type StreetDTO struct {
	ID       string      `json:"id" validate:"required,max=128"`
	Name     string      `json:"name,omitempty" validate:"max=256"`
	Category string      `json:"category,omitempty" validate:"omitempty,oneof=primary secondary residential service footpath unspecified"`
	Points   []orb.Point `json:"points" validate:"required,min=2"`
}

// AssetDTO точечный объект: источник или потребитель
type AssetDTO struct {
	ID       string    `json:"id" validate:"required,max=128"`
	Name     string    `json:"name,omitempty" validate:"max=256"`
	Kind     string    `json:"kind" validate:"required,oneof=source consumer"`
	Point    orb.Point `json:"point"`
	DemandKW float64   `json:"demand_kw,omitempty" validate:"gte=0"`
}

// PlanOptionsDTO параметры построения. Числовые поля - указатели: так
// различаются явный ноль и отсутствие значения, вместо которого сервер
// подставляет значение из своей конфигурации.
type PlanOptionsDTO struct {
	QuantizeTolerance  *float64 `json:"quantize_tolerance,omitempty" validate:"omitempty,gt=0"`
	MaxBridgeDistance  *float64 `json:"max_bridge_distance,omitempty"`
	MaxSnapDistance    *float64 `json:"max_snap_distance,omitempty"`
	SupplyTemperatureC *float64 `json:"supply_temperature_c,omitempty"`
	ReturnTemperatureC *float64 `json:"return_temperature_c,omitempty"`
	DemandAttachment   string   `json:"demand_attachment,omitempty" validate:"omitempty,oneof=terminal_segment service_connection"`
	MaxRouteWorkers    int      `json:"max_route_workers,omitempty" validate:"gte=0,lte=256"`
}

// PlanRequestDTO запрос на построение плана сети
type PlanRequestDTO struct {
	Name    string          `json:"name,omitempty" validate:"max=256"`
	Streets []StreetDTO     `json:"streets" validate:"required,min=1,dive"`
	Assets  []AssetDTO      `json:"assets" validate:"required,min=2,dive"`
	Options *PlanOptionsDTO `json:"options,omitempty"`
}

// ServiceConnectionDTO точка подключения объекта к уличному графу
type ServiceConnectionDTO struct {
	AssetID   string    `json:"asset_id"`
	NodeID    int64     `json:"node_id"`
	Point     orb.Point `json:"point"`
	Distance  float64   `json:"distance"`
	SegmentID string    `json:"segment_id,omitempty"`
	DemandKW  float64   `json:"demand_kw,omitempty"`
}

// RoutedPathDTO путь от источника до объекта
type RoutedPathDTO struct {
	AssetID string  `json:"asset_id"`
	Nodes   []int64 `json:"nodes"`
	Length  float64 `json:"length"`
}

// PipeSegmentDTO сегмент трубопровода одного контура
type PipeSegmentDTO struct {
	Circuit      string    `json:"circuit"`
	FromID       int64     `json:"from_id"`
	ToID         int64     `json:"to_id"`
	From         orb.Point `json:"from"`
	To           orb.Point `json:"to"`
	Length       float64   `json:"length"`
	SegmentID    string    `json:"segment_id,omitempty"`
	Kind         string    `json:"kind"`
	TemperatureC float64   `json:"temperature_c"`
	ServedAssets []string  `json:"served_assets"`
	DemandKW     float64   `json:"demand_kw"`
}

// DiagnosticDTO нефатальный отказ обработки одного объекта
type DiagnosticDTO struct {
	AssetID  string  `json:"asset_id"`
	Code     string  `json:"code"`
	Message  string  `json:"message"`
	Distance float64 `json:"distance,omitempty"`
}

// NetworkStatsDTO сводная статистика плана
type NetworkStatsDTO struct {
	NodeCount            int64   `json:"node_count"`
	EdgeCount            int64   `json:"edge_count"`
	ComponentCount       int64   `json:"component_count"`
	BridgeCount          int64   `json:"bridge_count"`
	AssetsTotal          int64   `json:"assets_total"`
	AssetsServed         int64   `json:"assets_served"`
	AssetsFailed         int64   `json:"assets_failed"`
	Coverage             float64 `json:"coverage"`
	SupplyLength         float64 `json:"supply_length"`
	ReturnLength         float64 `json:"return_length"`
	TrenchLength         float64 `json:"trench_length"`
	ServiceLength        float64 `json:"service_length"`
	TotalDemandKW        float64 `json:"total_demand_kw"`
	ServedDemandKW       float64 `json:"served_demand_kw"`
	PipeSegmentCount     int64   `json:"pipe_segment_count"`
	AverageSegmentLength float64 `json:"average_segment_length"`
	MaxPathLength        float64 `json:"max_path_length"`
	AveragePathLength    float64 `json:"average_path_length"`

	ConnectionCount         int64   `json:"connection_count"`
	AverageConnectionLength float64 `json:"average_connection_length"`
	MaxConnectionLength     float64 `json:"max_connection_length"`

	FailuresByCode map[string]int64 `json:"failures_by_code,omitempty"`
}

// PlanResultDTO полный результат построения плана
type PlanResultDTO struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
	DurationMs  int64                   `json:"duration_ms"`
	Cached      bool                    `json:"cached,omitempty"`
	Source      *ServiceConnectionDTO   `json:"source"`
	Connections []*ServiceConnectionDTO `json:"connections"`
	Paths       []*RoutedPathDTO        `json:"paths"`
	Pipes       []*PipeSegmentDTO       `json:"pipes"`
	Stats       *NetworkStatsDTO        `json:"stats"`
	Diagnostics []*DiagnosticDTO        `json:"diagnostics,omitempty"`
}

// PlanSummaryDTO краткая запись плана в списке
type PlanSummaryDTO struct {
	ID            string    `json:"id"`
	Name          string    `json:"name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	CreatedBy     string    `json:"created_by,omitempty"`
	DurationMs    int64     `json:"duration_ms"`
	AssetsTotal   int64     `json:"assets_total"`
	AssetsServed  int64     `json:"assets_served"`
	TrenchLength  float64   `json:"trench_length"`
	TotalDemandKW float64   `json:"total_demand_kw"`
}

// PlanListDTO страница сохранённых планов
type PlanListDTO struct {
	Plans  []*PlanSummaryDTO `json:"plans"`
	Total  int64             `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// ValidationReportDTO отчёт проверки входных данных без построения
type ValidationReportDTO struct {
	Valid    bool                  `json:"valid"`
	Errors   []*ValidationIssueDTO `json:"errors,omitempty"`
	Warnings []*ValidationIssueDTO `json:"warnings,omitempty"`
}

// ValidationIssueDTO одна проблема входных данных
type ValidationIssueDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// TokenRequestDTO запрос на выпуск токена доступа
type TokenRequestDTO struct {
	ClientID string `json:"client_id" validate:"required,max=128"`
	Name     string `json:"name,omitempty" validate:"max=256"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=reader planner admin"`
	APIKey   string `json:"api_key,omitempty" validate:"max=256"`
}

// TokenResponseDTO выпущенный токен доступа
type TokenResponseDTO struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

// InfoResponseDTO информация о сервисе
type InfoResponseDTO struct {
	Service     string `json:"service"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}
