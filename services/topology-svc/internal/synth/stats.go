package synth

import (
	"heatgrid/pkg/domain"
)

// StatsInput carries everything the aggregator reduces over.
type StatsInput struct {
	Network     *domain.Network
	Assets      []domain.Asset // consumers as validated, including failed ones
	Connections []*domain.ServiceConnection
	Paths       []*domain.RoutedPath
	Pipes       []*domain.PipeSegment
	Diagnostics []*domain.Diagnostic

	ComponentCount int
	BridgeCount    int
}

// CalculateStats reduces a finished run into summary numbers. Pure: no part
// of the input is modified.
func CalculateStats(in StatsInput) *domain.NetworkStats {
	stats := &domain.NetworkStats{
		ComponentCount: int64(in.ComponentCount),
		BridgeCount:    int64(in.BridgeCount),
		AssetsTotal:    int64(len(in.Assets)),
	}

	if in.Network != nil {
		stats.NodeCount = int64(in.Network.NodeCount())
		stats.EdgeCount = int64(in.Network.EdgeCount())
	}

	// Per-circuit pipe length and unique trench length
	trench := make(map[domain.EdgeKey]float64)
	for _, pipe := range in.Pipes {
		switch pipe.Circuit {
		case domain.CircuitSupply:
			stats.SupplyLength += pipe.Length
		case domain.CircuitReturn:
			stats.ReturnLength += pipe.Length
		}
		trench[domain.NewEdgeKey(pipe.FromID, pipe.ToID)] = pipe.Length
	}
	for _, length := range trench {
		stats.TrenchLength += length
	}

	stats.PipeSegmentCount = int64(len(in.Pipes))
	if len(in.Pipes) > 0 {
		stats.AverageSegmentLength = (stats.SupplyLength + stats.ReturnLength) / float64(len(in.Pipes))
	}

	// Connections and service stubs
	routed := make(map[string]bool, len(in.Paths))
	for _, path := range in.Paths {
		routed[path.AssetID] = true

		if path.Length > stats.MaxPathLength {
			stats.MaxPathLength = path.Length
		}
		stats.AveragePathLength += path.Length
	}
	if len(in.Paths) > 0 {
		stats.AveragePathLength /= float64(len(in.Paths))
	}
	stats.AssetsServed = int64(len(in.Paths))
	if stats.AssetsTotal > 0 {
		stats.Coverage = float64(stats.AssetsServed) / float64(stats.AssetsTotal)
	}

	for _, conn := range in.Connections {
		if routed[conn.AssetID] {
			stats.ConnectionCount++
			stats.ServiceLength += conn.Distance
			stats.ServedDemandKW += conn.DemandKW
			if conn.Distance > stats.MaxConnectionLength {
				stats.MaxConnectionLength = conn.Distance
			}
		}
	}
	if stats.ConnectionCount > 0 {
		stats.AverageConnectionLength = stats.ServiceLength / float64(stats.ConnectionCount)
	}

	for _, asset := range in.Assets {
		stats.TotalDemandKW += asset.DemandKW
	}

	// A failed asset counts once even with several diagnostics; the per-code
	// breakdown counts every diagnostic
	failed := make(map[string]bool)
	for _, diag := range in.Diagnostics {
		failed[diag.AssetID] = true
		if stats.FailuresByCode == nil {
			stats.FailuresByCode = make(map[string]int64)
		}
		stats.FailuresByCode[diag.Code]++
	}
	stats.AssetsFailed = int64(len(failed))

	return stats
}
