package domain

import (
	"github.com/paulmach/orb"
)

// StreetCategory категория улицы
type StreetCategory int

const (
	StreetCategoryUnspecified StreetCategory = iota
	StreetCategoryPrimary
	StreetCategorySecondary
	StreetCategoryResidential
	StreetCategoryService
	StreetCategoryFootpath
)

// String возвращает строковое представление категории улицы
func (c StreetCategory) String() string {
	switch c {
	case StreetCategoryPrimary:
		return "primary"
	case StreetCategorySecondary:
		return "secondary"
	case StreetCategoryResidential:
		return "residential"
	case StreetCategoryService:
		return "service"
	case StreetCategoryFootpath:
		return "footpath"
	default:
		return "unspecified"
	}
}

// ParseStreetCategory разбирает категорию улицы из строки
func ParseStreetCategory(s string) StreetCategory {
	switch s {
	case "primary":
		return StreetCategoryPrimary
	case "secondary":
		return StreetCategorySecondary
	case "residential":
		return StreetCategoryResidential
	case "service":
		return StreetCategoryService
	case "footpath":
		return StreetCategoryFootpath
	default:
		return StreetCategoryUnspecified
	}
}

// NodeType тип узла сети
type NodeType int

const (
	NodeTypeUnspecified NodeType = iota
	NodeTypeStreet
	NodeTypeSource
	NodeTypeServiceConnection
	NodeTypeVirtual
)

// String возвращает строковое представление типа узла
func (n NodeType) String() string {
	switch n {
	case NodeTypeStreet:
		return "street"
	case NodeTypeSource:
		return "source"
	case NodeTypeServiceConnection:
		return "service_connection"
	case NodeTypeVirtual:
		return "virtual"
	default:
		return "unspecified"
	}
}

// EdgeKind происхождение ребра
type EdgeKind int

const (
	EdgeStreet EdgeKind = iota
	EdgeBridge
)

// String возвращает строковое представление происхождения ребра
func (k EdgeKind) String() string {
	switch k {
	case EdgeBridge:
		return "bridge"
	default:
		return "street"
	}
}

// Circuit направление контура
type Circuit int

const (
	CircuitSupply Circuit = iota
	CircuitReturn
)

// String возвращает строковое представление контура
func (c Circuit) String() string {
	switch c {
	case CircuitReturn:
		return "return"
	default:
		return "supply"
	}
}

// AssetKind тип объекта
type AssetKind int

const (
	AssetConsumer AssetKind = iota
	AssetSource
)

// String возвращает строковое представление типа объекта
func (k AssetKind) String() string {
	switch k {
	case AssetSource:
		return "source"
	default:
		return "consumer"
	}
}

// StreetSegment входная полилиния улицы. Неизменяема, поступает извне.
type StreetSegment struct {
	ID       string
	Name     string
	Category StreetCategory
	Geometry orb.LineString
}

// Asset точечный объект: источник (котельная) или потребитель (здание).
// DemandKW рассчитывается внешним модулем; у источника спрос равен нулю.
type Asset struct {
	ID       string
	Name     string
	Kind     AssetKind
	Point    orb.Point
	DemandKW float64
}

// IsSource проверяет, является ли объект источником
func (a *Asset) IsSource() bool {
	return a.Kind == AssetSource
}
