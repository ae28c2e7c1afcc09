package domain

// Значения параметров по умолчанию
const (
	DefaultQuantizeTolerance  = 1e-3
	DefaultMaxBridgeDistance  = 300.0
	DefaultSupplyTemperatureC = 80.0
	DefaultReturnTemperatureC = 50.0
	DefaultDemandAttachment   = "terminal_segment"
)

// PlanOptions параметры построения топологии. Значения считаются
// окончательными: подстановка умолчаний происходит на границе API.
type PlanOptions struct {
	QuantizeTolerance  float64 `json:"quantize_tolerance"`
	MaxBridgeDistance  float64 `json:"max_bridge_distance"` // <=0 отключает мосты
	MaxSnapDistance    float64 `json:"max_snap_distance"`   // <=0 снимает ограничение
	SupplyTemperatureC float64 `json:"supply_temperature_c"`
	ReturnTemperatureC float64 `json:"return_temperature_c"`
	DemandAttachment   string  `json:"demand_attachment"`
	MaxRouteWorkers    int     `json:"max_route_workers"` // <=0 означает по числу CPU
}

// DefaultPlanOptions возвращает параметры по умолчанию
func DefaultPlanOptions() PlanOptions {
	return PlanOptions{
		QuantizeTolerance:  DefaultQuantizeTolerance,
		MaxBridgeDistance:  DefaultMaxBridgeDistance,
		MaxSnapDistance:    0,
		SupplyTemperatureC: DefaultSupplyTemperatureC,
		ReturnTemperatureC: DefaultReturnTemperatureC,
		DemandAttachment:   DefaultDemandAttachment,
	}
}

// PlanRequest запрос на построение топологии сети
type PlanRequest struct {
	Name    string
	Streets []StreetSegment
	Assets  []Asset
	Options PlanOptions
}

// Source возвращает объект-источник запроса
func (r *PlanRequest) Source() (Asset, bool) {
	for _, asset := range r.Assets {
		if asset.IsSource() {
			return asset, true
		}
	}
	return Asset{}, false
}

// Consumers возвращает объекты-потребители запроса
func (r *PlanRequest) Consumers() []Asset {
	consumers := make([]Asset, 0, len(r.Assets))
	for _, asset := range r.Assets {
		if !asset.IsSource() {
			consumers = append(consumers, asset)
		}
	}
	return consumers
}
