package synth

import (
	"fmt"
	"sort"

	"heatgrid/pkg/apperror"
	"heatgrid/pkg/domain"
)

// =============================================================================
// Dual-Circuit Topology Synthesizer
// =============================================================================
//
// District heating runs two parallel circuits in the same trench: supply
// pipes carry hot water from the plant to the buildings, return pipes carry
// it back. The synthesizer turns the per-asset shortest paths into that pipe
// topology.
//
// Each routed path is walked twice: forward (source to asset) emitting supply
// segments, then backward emitting return segments. Paths overlap heavily
// near the plant, so segments deduplicate through a registry keyed by the
// unordered endpoint pair plus the circuit. A registry hit only adds the
// asset to the existing segment's served set; the segment itself is emitted
// exactly once per circuit.
//
// Assets are processed in ascending id order no matter how the caller orders
// them. Together with the deterministic router this makes the output
// byte-identical across runs and input permutations.
// =============================================================================

// DemandAttachment selects where an asset's demand lands in the output.
type DemandAttachment string

const (
	// DemandTerminalSegment adds the demand to the asset's last supply and
	// first return segment.
	DemandTerminalSegment DemandAttachment = "terminal_segment"

	// DemandServiceConnection keeps segments at zero; demand is reported on
	// the service connection records only.
	DemandServiceConnection DemandAttachment = "service_connection"
)

// Options configures the synthesizer.
type Options struct {
	SupplyTemperatureC float64
	ReturnTemperatureC float64
	DemandAttachment   DemandAttachment
}

// Synthesizer builds the dual-circuit pipe topology.
type Synthesizer struct {
	opts Options
}

// New creates a synthesizer. An empty demand attachment defaults to
// terminal_segment.
func New(opts Options) (*Synthesizer, error) {
	switch opts.DemandAttachment {
	case "":
		opts.DemandAttachment = DemandTerminalSegment
	case DemandTerminalSegment, DemandServiceConnection:
	default:
		return nil, apperror.New(apperror.CodeInvalidOption,
			fmt.Sprintf("unknown demand attachment %q", opts.DemandAttachment))
	}
	return &Synthesizer{opts: opts}, nil
}

// Synthesize emits the deduplicated pipe segments for the routed paths.
// Segments appear in first-registration order under the sorted-asset walk.
func (s *Synthesizer) Synthesize(net *domain.Network, connections []*domain.ServiceConnection, paths []*domain.RoutedPath) ([]*domain.PipeSegment, error) {
	if net == nil {
		return nil, apperror.ErrNilNetwork
	}

	demand := make(map[string]float64, len(connections))
	for _, conn := range connections {
		demand[conn.AssetID] = conn.DemandKW
	}

	ordered := append([]*domain.RoutedPath(nil), paths...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].AssetID < ordered[j].AssetID })

	registry := make(map[domain.PipeKey]*domain.PipeSegment)
	var segments []*domain.PipeSegment

	for _, path := range ordered {
		if len(path.Nodes) < 2 {
			// Asset sits on the source node: no trunk pipes to emit
			continue
		}

		supplyTerminal, err := s.walk(net, registry, &segments, path.Nodes, domain.CircuitSupply, s.opts.SupplyTemperatureC, path.AssetID)
		if err != nil {
			return nil, err
		}

		reversed := reverseNodes(path.Nodes)
		returnTerminal, err := s.walk(net, registry, &segments, reversed, domain.CircuitReturn, s.opts.ReturnTemperatureC, path.AssetID)
		if err != nil {
			return nil, err
		}

		if s.opts.DemandAttachment == DemandTerminalSegment {
			supplyTerminal.DemandKW += demand[path.AssetID]
			returnTerminal.DemandKW += demand[path.AssetID]
		}
	}

	return segments, nil
}

// walk emits one circuit's segments along a node sequence and returns the
// terminal segment: the last one for supply (next to the asset), the first
// one for return (the reversed walk starts at the asset).
func (s *Synthesizer) walk(net *domain.Network, registry map[domain.PipeKey]*domain.PipeSegment, segments *[]*domain.PipeSegment, nodes []int64, circuit domain.Circuit, temperature float64, assetID string) (*domain.PipeSegment, error) {
	var terminal *domain.PipeSegment

	for i := 0; i < len(nodes)-1; i++ {
		from, to := nodes[i], nodes[i+1]
		key := domain.PipeKey{Edge: domain.NewEdgeKey(from, to), Circuit: circuit}

		seg, ok := registry[key]
		if !ok {
			edge, found := net.Edge(from, to)
			if !found {
				return nil, apperror.New(apperror.CodeInternal,
					fmt.Sprintf("path for %s references missing edge %d-%d", assetID, from, to))
			}
			fromNode, _ := net.Node(from)
			toNode, _ := net.Node(to)

			seg = &domain.PipeSegment{
				Circuit:      circuit,
				FromID:       from,
				ToID:         to,
				From:         fromNode.Point,
				To:           toNode.Point,
				Length:       edge.Length,
				SegmentID:    edge.SegmentID,
				Kind:         edge.Kind,
				TemperatureC: temperature,
			}
			registry[key] = seg
			*segments = append(*segments, seg)
		}

		addServedAsset(seg, assetID)

		if circuit == domain.CircuitSupply || terminal == nil {
			terminal = seg
		}
	}

	return terminal, nil
}

// addServedAsset inserts the asset into the segment's sorted served set.
func addServedAsset(seg *domain.PipeSegment, assetID string) {
	idx := sort.SearchStrings(seg.ServedAssets, assetID)
	if idx < len(seg.ServedAssets) && seg.ServedAssets[idx] == assetID {
		return
	}
	seg.ServedAssets = append(seg.ServedAssets, "")
	copy(seg.ServedAssets[idx+1:], seg.ServedAssets[idx:])
	seg.ServedAssets[idx] = assetID
}

func reverseNodes(nodes []int64) []int64 {
	reversed := make([]int64, len(nodes))
	for i, id := range nodes {
		reversed[len(nodes)-1-i] = id
	}
	return reversed
}
