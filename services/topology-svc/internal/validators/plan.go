package validators

import (
	"fmt"
	"math"

	"heatgrid/pkg/apperror"
	"heatgrid/pkg/domain"
	"heatgrid/pkg/geometry"
)

// ValidatePlan проверяет запрос до начала построения графа.
// Все проблемы собираются и возвращаются разом, а не по одной.
func ValidatePlan(req *domain.PlanRequest) *apperror.ValidationErrors {
	verrs := apperror.NewValidationErrors()

	if req == nil {
		verrs.AddErrorWithField(apperror.CodeNilInput, "запрос отсутствует", "request")
		return verrs
	}

	validateStreets(req.Streets, verrs)
	validateAssets(req.Assets, verrs)
	validateOptions(req.Options, verrs)

	return verrs
}

// validateStreets проверяет уличную геометрию
func validateStreets(streets []domain.StreetSegment, verrs *apperror.ValidationErrors) {
	// 1. Пустой список улиц
	if len(streets) == 0 {
		verrs.AddErrorWithField(apperror.CodeEmptyStreets, "список улиц пуст", "streets")
		return
	}

	seen := make(map[string]bool, len(streets))
	for i, street := range streets {
		field := fmt.Sprintf("streets[%d]", i)

		// 2. Дубликаты идентификаторов
		if street.ID == "" {
			verrs.AddErrorWithField(apperror.CodeValidationFailed,
				"идентификатор улицы пуст", field+".id")
		} else if seen[street.ID] {
			verrs.AddErrorWithField(apperror.CodeDuplicateStreet,
				fmt.Sprintf("дубликат идентификатора улицы: %s", street.ID), field+".id")
		}
		seen[street.ID] = true

		// 3. Минимум две вершины
		if len(street.Geometry) < 2 {
			verrs.AddErrorWithField(apperror.CodeInvalidGeometry,
				fmt.Sprintf("улица %s содержит %d вершин, требуется не меньше двух",
					street.ID, len(street.Geometry)), field+".geometry")
			continue
		}

		// 4. Конечные координаты
		for vi, p := range street.Geometry {
			if !geometry.IsFinite(p) {
				verrs.AddErrorWithField(apperror.CodeInvalidCoordinate,
					fmt.Sprintf("улица %s: вершина %d содержит NaN или Inf", street.ID, vi),
					fmt.Sprintf("%s.geometry[%d]", field, vi))
			}
		}
	}
}

// validateAssets проверяет объекты и единственность источника
func validateAssets(assets []domain.Asset, verrs *apperror.ValidationErrors) {
	seen := make(map[string]bool, len(assets))
	sourceCount := 0
	consumerCount := 0

	for i, asset := range assets {
		field := fmt.Sprintf("assets[%d]", i)

		// 1. Идентификаторы
		if asset.ID == "" {
			verrs.AddErrorWithField(apperror.CodeValidationFailed,
				"идентификатор объекта пуст", field+".id")
		} else if seen[asset.ID] {
			verrs.AddErrorWithField(apperror.CodeDuplicateAsset,
				fmt.Sprintf("дубликат идентификатора объекта: %s", asset.ID), field+".id")
		}
		seen[asset.ID] = true

		// 2. Координаты
		if !geometry.IsFinite(asset.Point) {
			verrs.AddErrorWithField(apperror.CodeInvalidCoordinate,
				fmt.Sprintf("объект %s: координата содержит NaN или Inf", asset.ID), field+".point")
		}

		// 3. Спрос
		if asset.DemandKW < 0 || math.IsNaN(asset.DemandKW) || math.IsInf(asset.DemandKW, 0) {
			verrs.AddErrorWithField(apperror.CodeInvalidDemand,
				fmt.Sprintf("объект %s: недопустимый спрос %v", asset.ID, asset.DemandKW),
				field+".demand_kw")
		}

		if asset.IsSource() {
			sourceCount++
			if asset.DemandKW != 0 {
				verrs.AddWarning(apperror.CodeInvalidDemand,
					fmt.Sprintf("источник %s: спрос игнорируется", asset.ID))
			}
		} else {
			consumerCount++
		}
	}

	// 4. Ровно один источник
	switch {
	case sourceCount == 0:
		verrs.AddErrorWithField(apperror.CodeMissingSource,
			"в запросе нет объекта-источника", "assets")
	case sourceCount > 1:
		verrs.AddErrorWithField(apperror.CodeDuplicateSource,
			fmt.Sprintf("в запросе %d источника, допускается один", sourceCount), "assets")
	}

	// 5. Запрос без потребителей допустим, но почти наверняка ошибка данных
	if consumerCount == 0 {
		verrs.AddWarning(apperror.CodeValidationFailed, "в запросе нет потребителей")
	}
}

// validateOptions проверяет параметры построения
func validateOptions(opts domain.PlanOptions, verrs *apperror.ValidationErrors) {
	if opts.QuantizeTolerance <= 0 || math.IsNaN(opts.QuantizeTolerance) || math.IsInf(opts.QuantizeTolerance, 0) {
		verrs.AddErrorWithField(apperror.CodeInvalidOption,
			fmt.Sprintf("допуск квантования должен быть положительным, получен %v", opts.QuantizeTolerance),
			"options.quantize_tolerance")
	}

	thresholds := []struct {
		field string
		value float64
	}{
		{"options.max_bridge_distance", opts.MaxBridgeDistance},
		{"options.max_snap_distance", opts.MaxSnapDistance},
		{"options.supply_temperature_c", opts.SupplyTemperatureC},
		{"options.return_temperature_c", opts.ReturnTemperatureC},
	}
	for _, th := range thresholds {
		if math.IsNaN(th.value) || math.IsInf(th.value, 0) {
			verrs.AddErrorWithField(apperror.CodeInvalidOption,
				fmt.Sprintf("параметр содержит NaN или Inf: %v", th.value), th.field)
		}
	}

	switch opts.DemandAttachment {
	case "", domain.DefaultDemandAttachment, "service_connection":
	default:
		verrs.AddErrorWithField(apperror.CodeInvalidOption,
			fmt.Sprintf("неизвестный способ привязки спроса: %q", opts.DemandAttachment),
			"options.demand_attachment")
	}

	if opts.SupplyTemperatureC <= opts.ReturnTemperatureC &&
		!math.IsNaN(opts.SupplyTemperatureC) && !math.IsNaN(opts.ReturnTemperatureC) {
		verrs.AddWarning(apperror.CodeInvalidOption,
			fmt.Sprintf("подающая температура %.1f не выше обратной %.1f",
				opts.SupplyTemperatureC, opts.ReturnTemperatureC))
	}
}
