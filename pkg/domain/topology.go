package domain

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"
)

// ServiceConnection точка подключения объекта к уличному графу
type ServiceConnection struct {
	AssetID   string
	NodeID    int64     // узел графа, к которому привязан объект
	Point     orb.Point // точка на улице (проекция объекта)
	Distance  float64   // расстояние от объекта до точки привязки
	SegmentID string    // улица, выигравшая привязку
	DemandKW  float64
}

// PipeKey ключ дедупликации сегмента трубопровода: неупорядоченная пара
// узлов плюс контур
type PipeKey struct {
	Edge    EdgeKey
	Circuit Circuit
}

// PipeSegment сегмент трубопровода одного контура.
//
// Пара (FromID, ToID) направлена по ходу потока: для подающего контура от
// источника к объекту, для обратного — от объекта к источнику.
type PipeSegment struct {
	Circuit      Circuit
	FromID       int64
	ToID         int64
	From         orb.Point
	To           orb.Point
	Length       float64
	SegmentID    string // исходная улица; пусто для мостов и подводов
	Kind         EdgeKind
	TemperatureC float64
	ServedAssets []string // отсортированы по возрастанию
	DemandKW     float64  // суммарная нагрузка, закреплённая за сегментом
}

// Key возвращает ключ дедупликации сегмента
func (p *PipeSegment) Key() PipeKey {
	return PipeKey{Edge: NewEdgeKey(p.FromID, p.ToID), Circuit: p.Circuit}
}

// Diagnostic нефатальный отказ обработки одного объекта. Накопленные
// диагностики всегда возвращаются вместе с результатом.
type Diagnostic struct {
	AssetID  string
	Code     string
	Message  string
	Distance float64 // фактическое расстояние, превысившее порог; 0 если неприменимо
}

// String возвращает строковое представление диагностики
func (d *Diagnostic) String() string {
	return fmt.Sprintf("%s [%s]: %s", d.AssetID, d.Code, d.Message)
}

// NetworkStats сводная статистика построенной топологии
type NetworkStats struct {
	NodeCount      int64
	EdgeCount      int64
	ComponentCount int64 // компоненты до ремонта связности
	BridgeCount    int64 // добавленные мосты

	AssetsTotal  int64
	AssetsServed int64
	AssetsFailed int64
	Coverage     float64 // доля обслуженных объектов: served / total

	FailuresByCode map[string]int64 // диагностики, сгруппированные по коду

	SupplyLength  float64 // длина труб подающего контура
	ReturnLength  float64 // длина труб обратного контура
	TrenchLength  float64 // длина траншеи (уникальная геометрия, оба контура в одной)
	ServiceLength float64 // суммарная длина подводов к объектам

	ConnectionCount         int64   // подводы обслуженных объектов
	AverageConnectionLength float64 // средняя длина подвода
	MaxConnectionLength     float64 // максимальная длина подвода

	TotalDemandKW  float64
	ServedDemandKW float64

	PipeSegmentCount     int64
	AverageSegmentLength float64
	MaxPathLength        float64
	AveragePathLength    float64
}

// TopologyResult полный результат построения топологии
type TopologyResult struct {
	Network     *Network
	Source      *ServiceConnection
	Connections []*ServiceConnection // отсортированы по AssetID
	Paths       []*RoutedPath        // отсортированы по AssetID
	Pipes       []*PipeSegment       // детерминированный порядок
	Stats       *NetworkStats
	Diagnostics []*Diagnostic // отсортированы по AssetID

	Duration time.Duration // полное время построения
}

// HasDiagnostics сообщает, были ли нефатальные отказы
func (r *TopologyResult) HasDiagnostics() bool {
	return len(r.Diagnostics) > 0
}

// FailedAssetIDs возвращает идентификаторы объектов с отказами
func (r *TopologyResult) FailedAssetIDs() []string {
	ids := make([]string, 0, len(r.Diagnostics))
	seen := make(map[string]bool, len(r.Diagnostics))
	for _, d := range r.Diagnostics {
		if !seen[d.AssetID] {
			seen[d.AssetID] = true
			ids = append(ids, d.AssetID)
		}
	}
	return ids
}
