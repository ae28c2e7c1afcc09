package snapper

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"heatgrid/pkg/apperror"
	"heatgrid/pkg/domain"
	"heatgrid/pkg/geometry"
)

// =============================================================================
// Asset Snapper
// =============================================================================
//
// The snapper attaches point assets (the plant and the consumer buildings) to
// the street graph. Each asset is projected onto every street polyline and the
// globally closest projection wins; ties resolve to the street that appears
// first in the input, then to the earliest vertex pair within it.
//
// The projection point becomes a graph node. When its quantized coordinate
// already names an existing node the asset reuses it, so a building sitting
// exactly on a street vertex never duplicates that vertex. Otherwise the node
// is inserted mid-segment and the covering edge is split in two.
//
// Splits must compose: a second snap landing on an already-split edge has to
// cut the correct half. The snapper therefore keeps an ordered split chain per
// original edge, positioned by distance from the lower endpoint, and rewires
// only the sub-edge the new projection falls into.
//
// A consumer whose nearest street exceeds MaxSnapDistance is recorded as a
// snap failure and excluded from routing; the run continues. The source asset
// is the exception: without it there is nothing to route from, so its snap
// failure aborts the run.
// =============================================================================

// Options configures asset snapping.
type Options struct {
	// MaxSnapDistance is the longest allowed asset-to-street distance.
	// Zero or negative disables the limit.
	MaxSnapDistance float64
}

// Result holds the snapped connections and per-asset failures.
type Result struct {
	Source      *domain.ServiceConnection
	Connections []*domain.ServiceConnection // consumers, sorted by asset id
	Diagnostics []*domain.Diagnostic
}

// Snapper attaches assets to a street graph.
type Snapper struct {
	opts Options
}

// New creates a snapper.
func New(opts Options) *Snapper {
	return &Snapper{opts: opts}
}

// snapTarget is the winning projection for one asset.
type snapTarget struct {
	proj      geometry.Projection
	streetIdx int
}

// splitEntry is a node inserted into an edge, positioned by its straight-line
// distance from the edge's From endpoint.
type splitEntry struct {
	pos    float64
	nodeID int64
}

// Snap projects the source and every consumer onto the street graph.
// The network must still be mutable. Consumers are processed in ascending
// asset id order so the resulting node layout does not depend on input order.
func (s *Snapper) Snap(net *domain.Network, streets []domain.StreetSegment, source domain.Asset, consumers []domain.Asset) (*Result, error) {
	chains := make(map[domain.EdgeKey][]splitEntry)
	result := &Result{}

	target, ok := s.findTarget(source.Point, streets)
	if !ok || s.exceedsLimit(target.proj.Distance) {
		return nil, sourceSnapError(source, target, ok, s.opts.MaxSnapDistance)
	}

	node := s.insertNode(net, streets, chains, target, domain.NodeTypeSource, source.ID)
	result.Source = &domain.ServiceConnection{
		AssetID:   source.ID,
		NodeID:    node.ID,
		Point:     node.Point,
		Distance:  target.proj.Distance,
		SegmentID: streets[target.streetIdx].ID,
	}

	ordered := append([]domain.Asset(nil), consumers...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	for _, consumer := range ordered {
		target, ok := s.findTarget(consumer.Point, streets)
		if !ok {
			result.Diagnostics = append(result.Diagnostics, &domain.Diagnostic{
				AssetID: consumer.ID,
				Code:    string(apperror.CodeSnapFailed),
				Message: "no street geometry to snap onto",
			})
			continue
		}
		if s.exceedsLimit(target.proj.Distance) {
			result.Diagnostics = append(result.Diagnostics, &domain.Diagnostic{
				AssetID: consumer.ID,
				Code:    string(apperror.CodeSnapFailed),
				Message: fmt.Sprintf("nearest street is %.2f away, limit is %.2f",
					target.proj.Distance, s.opts.MaxSnapDistance),
				Distance: target.proj.Distance,
			})
			continue
		}

		node := s.insertNode(net, streets, chains, target, domain.NodeTypeServiceConnection, consumer.ID)
		result.Connections = append(result.Connections, &domain.ServiceConnection{
			AssetID:   consumer.ID,
			NodeID:    node.ID,
			Point:     node.Point,
			Distance:  target.proj.Distance,
			SegmentID: streets[target.streetIdx].ID,
			DemandKW:  consumer.DemandKW,
		})
	}

	return result, nil
}

// findTarget scans every street for the globally closest projection.
// Strict less keeps the first street on equal distances.
func (s *Snapper) findTarget(p orb.Point, streets []domain.StreetSegment) (snapTarget, bool) {
	best := snapTarget{streetIdx: -1}
	bestDist := domain.Infinity

	for si, street := range streets {
		proj, ok := geometry.ProjectOntoPolyline(p, street.Geometry)
		if !ok {
			continue
		}
		if proj.Distance < bestDist {
			bestDist = proj.Distance
			best = snapTarget{proj: proj, streetIdx: si}
		}
	}

	return best, best.streetIdx >= 0
}

func (s *Snapper) exceedsLimit(dist float64) bool {
	return s.opts.MaxSnapDistance > 0 && dist > s.opts.MaxSnapDistance
}

// insertNode materializes the projection as a graph node, splitting the
// covering edge when the node is new.
func (s *Snapper) insertNode(net *domain.Network, streets []domain.StreetSegment, chains map[domain.EdgeKey][]splitEntry, target snapTarget, nodeType domain.NodeType, assetID string) *domain.Node {
	street := streets[target.streetIdx]
	geom := street.Geometry
	pairIdx := target.proj.SegmentIndex

	endA, okA := net.NodeAt(geom[pairIdx])
	endB, okB := net.NodeAt(geom[pairIdx+1])
	if !okA || !okB {
		// The builder materialized every street vertex; missing endpoints
		// mean the projection hit geometry the graph never saw.
		panic(fmt.Sprintf("snapper: street %s pair %d has no graph endpoints", street.ID, pairIdx))
	}

	node, created := net.EnsureNode(target.proj.Point, nodeType, assetID)
	if !created {
		return node
	}

	// Degenerate pair collapsed to one node: no edge to split, just attach
	if endA.ID == endB.ID {
		net.AddEdge(node.ID, endA.ID, planar.Distance(node.Point, endA.Point), street.ID, street.Category, domain.EdgeStreet)
		return node
	}

	key := domain.NewEdgeKey(endA.ID, endB.ID)
	refNode := endA
	farNode := endB
	if key.From != endA.ID {
		refNode, farNode = endB, endA
	}
	pos := planar.Distance(refNode.Point, node.Point)

	// Walk the existing split chain to find the sub-edge covering pos
	prevID := refNode.ID
	nextID := farNode.ID
	chain := chains[key]
	idx := len(chain)
	for i, entry := range chain {
		if entry.pos > pos {
			nextID = entry.nodeID
			idx = i
			break
		}
		prevID = entry.nodeID
	}

	covering, ok := net.Edge(prevID, nextID)
	segID, cat, kind := street.ID, street.Category, domain.EdgeStreet
	if ok {
		segID, cat, kind = covering.SegmentID, covering.Category, covering.Kind
	}

	net.RemoveEdge(prevID, nextID)

	prevNode, _ := net.Node(prevID)
	nextNode, _ := net.Node(nextID)
	net.AddEdge(prevID, node.ID, planar.Distance(prevNode.Point, node.Point), segID, cat, kind)
	net.AddEdge(node.ID, nextID, planar.Distance(node.Point, nextNode.Point), segID, cat, kind)

	chain = append(chain, splitEntry{})
	copy(chain[idx+1:], chain[idx:])
	chain[idx] = splitEntry{pos: pos, nodeID: node.ID}
	chains[key] = chain

	return node
}

// sourceSnapError builds the fatal error for an unsnappable source.
func sourceSnapError(source domain.Asset, target snapTarget, found bool, limit float64) error {
	if !found {
		return apperror.New(apperror.CodeSnapFailed,
			fmt.Sprintf("source %s: no street geometry to snap onto", source.ID)).
			WithField("source")
	}
	return apperror.New(apperror.CodeSnapFailed,
		fmt.Sprintf("source %s: nearest street is %.2f away, limit is %.2f",
			source.ID, target.proj.Distance, limit)).
		WithField("source").
		WithDetails("distance", target.proj.Distance).
		WithDetails("limit", limit)
}
