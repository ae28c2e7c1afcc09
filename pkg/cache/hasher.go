package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"heatgrid/pkg/domain"
)

// PlanHash вычисляет хеш запроса построения сети для использования как ключ кэша.
// Имя запроса и количество воркеров не входят в хеш: они не влияют на результат.
func PlanHash(req *domain.PlanRequest) string {
	if req == nil {
		return ""
	}

	data := planToCanonical(req)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

// planToCanonical создаёт детерминированное представление запроса
func planToCanonical(req *domain.PlanRequest) []byte {
	// Сортируем улицы по ID
	streets := make([]domain.StreetSegment, len(req.Streets))
	copy(streets, req.Streets)
	sort.Slice(streets, func(i, j int) bool {
		return streets[i].ID < streets[j].ID
	})

	// Сортируем объекты по ID
	assets := make([]domain.Asset, len(req.Assets))
	copy(assets, req.Assets)
	sort.Slice(assets, func(i, j int) bool {
		return assets[i].ID < assets[j].ID
	})

	// Строим каноническую строку
	var result []byte

	// Опции, влияющие на топологию
	o := req.Options
	result = append(result, []byte(fmt.Sprintf("o:%.9f:%.6f:%.6f:%.3f:%.3f:%s;",
		o.QuantizeTolerance, o.MaxBridgeDistance, o.MaxSnapDistance,
		o.SupplyTemperatureC, o.ReturnTemperatureC, o.DemandAttachment))...)

	// Улицы с геометрией
	for _, s := range streets {
		result = append(result, []byte(fmt.Sprintf("s:%s:%d:", s.ID, s.Category))...)
		for _, pt := range s.Geometry {
			result = append(result, []byte(fmt.Sprintf("%.6f,%.6f|", pt[0], pt[1]))...)
		}
		result = append(result, ';')
	}

	// Объекты
	for _, a := range assets {
		result = append(result, []byte(fmt.Sprintf("a:%s:%d:%.6f:%.6f:%.6f;",
			a.ID, a.Kind, a.Point[0], a.Point[1], a.DemandKW))...)
	}

	return result
}

// BuildPlanKey строит ключ кэша для результата построения
func BuildPlanKey(planHash string) string {
	return fmt.Sprintf("plan:%s", planHash)
}

// QuickHash быстрый хеш для произвольных данных
func QuickHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ShortHash короткий хеш (16 символов)
func ShortHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}
