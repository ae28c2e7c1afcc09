package builder

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb/planar"

	"heatgrid/pkg/apperror"
	"heatgrid/pkg/domain"
	"heatgrid/pkg/geometry"
)

// =============================================================================
// Street Graph Builder
// =============================================================================
//
// The builder turns a flat list of street polylines into a connected routing
// graph. Street datasets are almost never topologically clean: endpoints that
// should meet are off by centimeters, whole districts are digitized as
// separate islands. Construction therefore runs in two phases:
//
//  1. Decomposition: every polyline is split into consecutive vertex pairs.
//     Vertices are identified by their quantized coordinate, so two streets
//     ending within the quantization tolerance share a node.
//
//  2. Connectivity repair: remaining islands are merged into the largest
//     component by inserting bridge edges between the globally closest node
//     pair, closest island first, as long as the gap does not exceed
//     MaxBridgeDistance.
//
// Repair is deliberately conservative: a bridge longer than the threshold is
// more likely a data error than a missing street, so the build fails with a
// ConnectivityError naming the unmerged islands instead of silently routing
// through a phantom link.
// =============================================================================

// Options configures graph construction.
type Options struct {
	// QuantizeTolerance is the coordinate tolerance used for node identity.
	QuantizeTolerance float64

	// MaxBridgeDistance is the longest allowed repair bridge. Zero or
	// negative disables bridging, making any disconnection fatal.
	MaxBridgeDistance float64
}

// Bridge is a repair edge inserted between two components.
type Bridge struct {
	FromID int64
	ToID   int64
	Length float64
}

// Result is the outcome of a successful build.
type Result struct {
	Network *domain.Network

	// ComponentCount is the number of connected components before repair.
	ComponentCount int

	// Bridges lists the repair edges that were inserted, in insertion order.
	Bridges []Bridge
}

// Builder constructs routing graphs from street geometry.
type Builder struct {
	opts  Options
	quant geometry.Quantizer
}

// New creates a builder, validating the quantization tolerance.
func New(opts Options) (*Builder, error) {
	quant, err := geometry.NewQuantizer(opts.QuantizeTolerance)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInvalidOption, "invalid quantize tolerance")
	}
	return &Builder{opts: opts, quant: quant}, nil
}

// Build decomposes the streets into a graph and repairs its connectivity.
// The returned network is not frozen; the snapper still mutates it.
func (b *Builder) Build(streets []domain.StreetSegment) (*Result, error) {
	if len(streets) == 0 {
		return nil, apperror.ErrEmptyStreets
	}

	net := domain.NewNetwork(b.quant)

	for _, street := range streets {
		b.addStreet(net, street)
	}

	if net.NodeCount() == 0 {
		return nil, apperror.New(apperror.CodeInvalidGeometry,
			"no usable street geometry: all segments degenerate")
	}

	components := domain.ConnectedComponents(net)
	result := &Result{
		Network:        net,
		ComponentCount: len(components),
	}

	if len(components) > 1 {
		bridges, err := b.repair(net, components)
		if err != nil {
			return nil, err
		}
		result.Bridges = bridges
	}

	return result, nil
}

// addStreet inserts one polyline as a chain of nodes and edges.
// Vertex pairs that collapse to a single quantized node are skipped.
func (b *Builder) addStreet(net *domain.Network, street domain.StreetSegment) {
	if len(street.Geometry) < 2 {
		return
	}

	prev, _ := net.EnsureNode(street.Geometry[0], domain.NodeTypeStreet, "")
	for i := 1; i < len(street.Geometry); i++ {
		cur, _ := net.EnsureNode(street.Geometry[i], domain.NodeTypeStreet, "")
		if cur.ID == prev.ID {
			continue
		}

		length := planar.Distance(prev.Point, cur.Point)
		net.AddEdge(prev.ID, cur.ID, length, street.ID, street.Category, domain.EdgeStreet)
		prev = cur
	}
}

// repair merges disconnected components into the largest one. Components are
// connected closest-first; each bridge joins the globally closest pair of
// nodes between the merged anchor and the remaining islands.
func (b *Builder) repair(net *domain.Network, components []*domain.Component) ([]Bridge, error) {
	// components is sorted by size descending, the first one anchors the merge
	anchor := append([]int64(nil), components[0].Nodes...)
	remaining := components[1:]

	var bridges []Bridge

	for len(remaining) > 0 {
		best := b.closestToAnchor(net, anchor, remaining)

		if best.comp < 0 || (b.opts.MaxBridgeDistance <= 0 || best.dist > b.opts.MaxBridgeDistance) {
			return nil, disconnectedError(remaining, best.dist, b.opts.MaxBridgeDistance)
		}

		net.AddEdge(best.anchorID, best.islandID, best.dist, "", domain.StreetCategoryUnspecified, domain.EdgeBridge)
		bridges = append(bridges, Bridge{FromID: best.anchorID, ToID: best.islandID, Length: best.dist})

		// Merge the island into the anchor, keeping the id list sorted for
		// deterministic scans.
		anchor = append(anchor, remaining[best.comp].Nodes...)
		sort.Slice(anchor, func(i, j int) bool { return anchor[i] < anchor[j] })
		remaining = append(remaining[:best.comp], remaining[best.comp+1:]...)
	}

	return bridges, nil
}

type candidate struct {
	comp     int
	anchorID int64
	islandID int64
	dist     float64
}

// closestToAnchor scans every remaining component for the node pair closest
// to the anchor set. Scans run in ascending id order with a strict less
// comparison, so equal distances resolve to the lowest node pair.
func (b *Builder) closestToAnchor(net *domain.Network, anchor []int64, remaining []*domain.Component) candidate {
	best := candidate{comp: -1, dist: domain.Infinity}

	for ci, comp := range remaining {
		for _, islandID := range comp.Nodes {
			for _, anchorID := range anchor {
				d := net.Distance(anchorID, islandID)
				if d < best.dist {
					best = candidate{comp: ci, anchorID: anchorID, islandID: islandID, dist: d}
				}
			}
		}
	}

	return best
}

// IslandInfo describes one unmerged component in a connectivity error.
type IslandInfo struct {
	Size  int     `json:"size"`
	Nodes []int64 `json:"nodes"`
}

// disconnectedError builds the fatal connectivity error, naming each
// surviving island by size and up to five representative node ids.
func disconnectedError(remaining []*domain.Component, closestGap, maxBridge float64) error {
	islands := make([]IslandInfo, 0, len(remaining))
	for _, comp := range remaining {
		info := IslandInfo{Size: comp.Size()}
		limit := len(comp.Nodes)
		if limit > 5 {
			limit = 5
		}
		info.Nodes = append(info.Nodes, comp.Nodes[:limit]...)
		islands = append(islands, info)
	}

	msg := fmt.Sprintf("street graph has %d unmerged components", len(remaining))
	if maxBridge <= 0 {
		msg += "; bridging is disabled"
	} else {
		msg += fmt.Sprintf("; closest gap %.2f exceeds max bridge distance %.2f", closestGap, maxBridge)
	}

	return apperror.New(apperror.CodeGraphDisconnected, msg).
		WithDetails("component_count", len(remaining)).
		WithDetails("components", islands).
		WithDetails("closest_gap", closestGap).
		WithDetails("max_bridge_distance", maxBridge)
}
