package builder

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"

	"heatgrid/pkg/apperror"
	"heatgrid/pkg/domain"
)

func defaultOptions() Options {
	return Options{
		QuantizeTolerance: 0.001,
		MaxBridgeDistance: 300,
	}
}

func street(id string, points ...orb.Point) domain.StreetSegment {
	return domain.StreetSegment{
		ID:       id,
		Category: domain.StreetCategoryResidential,
		Geometry: orb.LineString(points),
	}
}

func TestNew_InvalidTolerance(t *testing.T) {
	if _, err := New(Options{QuantizeTolerance: 0}); err == nil {
		t.Fatal("expected error for zero tolerance")
	}
	if _, err := New(Options{QuantizeTolerance: -1}); err == nil {
		t.Fatal("expected error for negative tolerance")
	}
}

func TestBuild_EmptyStreets(t *testing.T) {
	b, err := New(defaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = b.Build(nil)
	if !errors.Is(err, apperror.ErrEmptyStreets) {
		t.Errorf("expected ErrEmptyStreets, got %v", err)
	}
}

func TestBuild_SingleStreet(t *testing.T) {
	b, _ := New(defaultOptions())

	result, err := b.Build([]domain.StreetSegment{
		street("s1", orb.Point{0, 0}, orb.Point{100, 0}, orb.Point{200, 0}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Network.NodeCount() != 3 {
		t.Errorf("expected 3 nodes, got %d", result.Network.NodeCount())
	}
	if result.Network.EdgeCount() != 2 {
		t.Errorf("expected 2 edges, got %d", result.Network.EdgeCount())
	}
	if result.ComponentCount != 1 {
		t.Errorf("expected 1 component, got %d", result.ComponentCount)
	}
	if len(result.Bridges) != 0 {
		t.Errorf("expected no bridges, got %d", len(result.Bridges))
	}
}

func TestBuild_SharedEndpointMergesNodes(t *testing.T) {
	b, _ := New(defaultOptions())

	// Two streets meet at (100, 0); the second endpoint is off by less than
	// the quantization tolerance and must land on the same node.
	result, err := b.Build([]domain.StreetSegment{
		street("s1", orb.Point{0, 0}, orb.Point{100, 0}),
		street("s2", orb.Point{100.0000004, -0.0000003}, orb.Point{100, 100}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Network.NodeCount() != 3 {
		t.Errorf("expected 3 nodes after merge, got %d", result.Network.NodeCount())
	}
	if result.ComponentCount != 1 {
		t.Errorf("expected 1 component, got %d", result.ComponentCount)
	}

	// The shared node has degree 2
	shared, ok := result.Network.NodeAt(orb.Point{100, 0})
	if !ok {
		t.Fatal("expected node at shared endpoint")
	}
	if deg := len(result.Network.Neighbors(shared.ID)); deg != 2 {
		t.Errorf("expected degree 2 at junction, got %d", deg)
	}
}

func TestBuild_DegenerateVertexPairSkipped(t *testing.T) {
	b, _ := New(defaultOptions())

	// Middle vertex repeats within tolerance: the zero-length pair is dropped
	result, err := b.Build([]domain.StreetSegment{
		street("s1", orb.Point{0, 0}, orb.Point{100, 0}, orb.Point{100.0000002, 0}, orb.Point{200, 0}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Network.NodeCount() != 3 {
		t.Errorf("expected 3 nodes, got %d", result.Network.NodeCount())
	}
	if result.Network.EdgeCount() != 2 {
		t.Errorf("expected 2 edges, got %d", result.Network.EdgeCount())
	}
}

func TestBuild_AllDegenerate(t *testing.T) {
	b, _ := New(defaultOptions())

	_, err := b.Build([]domain.StreetSegment{
		street("s1", orb.Point{5, 5}),
	})
	if err == nil {
		t.Fatal("expected error for degenerate-only geometry")
	}
	if apperror.Code(err) != apperror.CodeInvalidGeometry {
		t.Errorf("expected CodeInvalidGeometry, got %s", apperror.Code(err))
	}
}

func TestBuild_BridgesIsolatedCluster(t *testing.T) {
	b, _ := New(defaultOptions())

	// Main grid plus an island 50 apart: must be bridged, not reported
	result, err := b.Build([]domain.StreetSegment{
		street("main", orb.Point{0, 0}, orb.Point{100, 0}, orb.Point{200, 0}),
		street("island", orb.Point{250, 0}, orb.Point{350, 0}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ComponentCount != 2 {
		t.Errorf("expected 2 components before repair, got %d", result.ComponentCount)
	}
	if len(result.Bridges) != 1 {
		t.Fatalf("expected 1 bridge, got %d", len(result.Bridges))
	}

	bridge := result.Bridges[0]
	if !domain.FloatEquals(bridge.Length, 50) {
		t.Errorf("expected bridge length 50, got %f", bridge.Length)
	}

	// The bridge joins the closest pair: (200,0) and (250,0)
	from, _ := result.Network.Node(bridge.FromID)
	to, _ := result.Network.Node(bridge.ToID)
	if from.Point[0] != 200 || to.Point[0] != 250 {
		t.Errorf("expected bridge 200->250, got %v -> %v", from.Point, to.Point)
	}

	// The repaired graph is a single component
	if comps := domain.ConnectedComponents(result.Network); len(comps) != 1 {
		t.Errorf("expected 1 component after repair, got %d", len(comps))
	}

	// Bridge edge carries the bridge kind
	edge, ok := result.Network.Edge(bridge.FromID, bridge.ToID)
	if !ok {
		t.Fatal("expected bridge edge in network")
	}
	if edge.Kind != domain.EdgeBridge {
		t.Errorf("expected bridge kind, got %s", edge.Kind)
	}
	if edge.SegmentID != "" {
		t.Errorf("expected empty segment id on bridge, got %q", edge.SegmentID)
	}
}

func TestBuild_ClosestIslandFirst(t *testing.T) {
	opts := defaultOptions()
	opts.MaxBridgeDistance = 60
	b, _ := New(opts)

	// Island B is 120 from the grid but only 40 from island A. Merging A
	// first (gap 50) brings B within reach (gap 40): both must merge even
	// though B alone exceeds the threshold.
	result, err := b.Build([]domain.StreetSegment{
		street("main", orb.Point{0, 0}, orb.Point{100, 0}),
		street("islandA", orb.Point{150, 0}, orb.Point{180, 0}),
		street("islandB", orb.Point{220, 0}, orb.Point{260, 0}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Bridges) != 2 {
		t.Fatalf("expected 2 bridges, got %d", len(result.Bridges))
	}
	if !domain.FloatEquals(result.Bridges[0].Length, 50) {
		t.Errorf("expected first bridge length 50, got %f", result.Bridges[0].Length)
	}
	if !domain.FloatEquals(result.Bridges[1].Length, 40) {
		t.Errorf("expected second bridge length 40, got %f", result.Bridges[1].Length)
	}

	if comps := domain.ConnectedComponents(result.Network); len(comps) != 1 {
		t.Errorf("expected 1 component after repair, got %d", len(comps))
	}
}

func TestBuild_GapExceedsMaxBridge(t *testing.T) {
	opts := defaultOptions()
	opts.MaxBridgeDistance = 30
	b, _ := New(opts)

	_, err := b.Build([]domain.StreetSegment{
		street("main", orb.Point{0, 0}, orb.Point{100, 0}),
		street("island", orb.Point{150, 0}, orb.Point{250, 0}),
	})
	if err == nil {
		t.Fatal("expected connectivity error")
	}
	if apperror.Code(err) != apperror.CodeGraphDisconnected {
		t.Fatalf("expected CodeGraphDisconnected, got %s", apperror.Code(err))
	}

	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		t.Fatal("expected *apperror.Error")
	}
	if appErr.Details["component_count"] != 1 {
		t.Errorf("expected 1 surviving island, got %v", appErr.Details["component_count"])
	}
	if gap, ok := appErr.Details["closest_gap"].(float64); !ok || !domain.FloatEquals(gap, 50) {
		t.Errorf("expected closest_gap 50, got %v", appErr.Details["closest_gap"])
	}
}

func TestBuild_BridgingDisabled(t *testing.T) {
	opts := defaultOptions()
	opts.MaxBridgeDistance = 0
	b, _ := New(opts)

	// Gap of 1: trivially bridgeable, but bridging is off
	_, err := b.Build([]domain.StreetSegment{
		street("main", orb.Point{0, 0}, orb.Point{100, 0}),
		street("island", orb.Point{101, 0}, orb.Point{200, 0}),
	})
	if err == nil {
		t.Fatal("expected connectivity error with bridging disabled")
	}
	if apperror.Code(err) != apperror.CodeGraphDisconnected {
		t.Errorf("expected CodeGraphDisconnected, got %s", apperror.Code(err))
	}
}

func TestBuild_ManyIslandsRepresentativeNodes(t *testing.T) {
	opts := defaultOptions()
	opts.MaxBridgeDistance = 1
	b, _ := New(opts)

	// A long island far from the grid: the error must cap representative
	// nodes at five while reporting the true size. The grid is larger so it
	// anchors the merge.
	_, err := b.Build([]domain.StreetSegment{
		street("main", orb.Point{0, 0}, orb.Point{100, 0}, orb.Point{200, 0}, orb.Point{300, 0},
			orb.Point{400, 0}, orb.Point{500, 0}, orb.Point{600, 0}, orb.Point{700, 0}, orb.Point{800, 0}),
		street("island", orb.Point{10000, 0}, orb.Point{10100, 0}, orb.Point{10200, 0},
			orb.Point{10300, 0}, orb.Point{10400, 0}, orb.Point{10500, 0}, orb.Point{10600, 0}),
	})
	if err == nil {
		t.Fatal("expected connectivity error")
	}

	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		t.Fatal("expected *apperror.Error")
	}

	islands, ok := appErr.Details["components"]
	if !ok {
		t.Fatal("expected components detail")
	}
	list, ok := islands.([]IslandInfo)
	if !ok {
		t.Fatalf("unexpected components type %T", islands)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 island, got %d", len(list))
	}
	if list[0].Size != 7 {
		t.Errorf("expected island size 7, got %d", list[0].Size)
	}
	if len(list[0].Nodes) != 5 {
		t.Errorf("expected 5 representative nodes, got %d", len(list[0].Nodes))
	}
}

func TestBuild_Deterministic(t *testing.T) {
	b, _ := New(defaultOptions())

	streets := []domain.StreetSegment{
		street("s1", orb.Point{0, 0}, orb.Point{100, 0}),
		street("s2", orb.Point{100, 0}, orb.Point{100, 100}),
		street("island", orb.Point{150, 100}, orb.Point{250, 100}),
	}

	first, err := b.Build(streets)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := b.Build(streets)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Network.NodeCount() != second.Network.NodeCount() {
		t.Error("node counts differ between runs")
	}
	firstEdges := first.Network.EdgeList()
	secondEdges := second.Network.EdgeList()
	if len(firstEdges) != len(secondEdges) {
		t.Fatal("edge counts differ between runs")
	}
	for i := range firstEdges {
		if firstEdges[i].Key() != secondEdges[i].Key() {
			t.Errorf("edge order differs at %d: %s vs %s", i, firstEdges[i].Key(), secondEdges[i].Key())
		}
	}
}
