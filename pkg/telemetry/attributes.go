package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Стандартные ключи атрибутов
const (
	// Граф
	AttrGraphNodes      = "graph.nodes"
	AttrGraphEdges      = "graph.edges"
	AttrGraphComponents = "graph.components"
	AttrGraphBridges    = "graph.bridges"

	// План
	AttrPlanAssets   = "plan.assets"
	AttrPlanServed   = "plan.served"
	AttrPlanFailures = "plan.failures"
	AttrPlanStage    = "plan.stage"

	// Топология
	AttrTopologyPipes    = "topology.pipes"
	AttrTopologyTrench   = "topology.trench_meters"
	AttrTopologyDemandKW = "topology.demand_kw"
)

// GraphAttributes возвращает атрибуты построенного графа
func GraphAttributes(nodes, edges, components, bridges int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrGraphNodes, nodes),
		attribute.Int(AttrGraphEdges, edges),
		attribute.Int(AttrGraphComponents, components),
		attribute.Int(AttrGraphBridges, bridges),
	}
}

// PlanAttributes возвращает атрибуты прогона плана
func PlanAttributes(assets, served, failures int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrPlanAssets, assets),
		attribute.Int(AttrPlanServed, served),
		attribute.Int(AttrPlanFailures, failures),
	}
}

// TopologyAttributes возвращает атрибуты синтезированной топологии
func TopologyAttributes(pipes int, trenchMeters, demandKW float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrTopologyPipes, pipes),
		attribute.Float64(AttrTopologyTrench, trenchMeters),
		attribute.Float64(AttrTopologyDemandKW, demandKW),
	}
}
