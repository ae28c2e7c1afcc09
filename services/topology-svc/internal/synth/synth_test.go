package synth

import (
	"testing"

	"github.com/paulmach/orb"

	"heatgrid/pkg/apperror"
	"heatgrid/pkg/domain"
	"heatgrid/pkg/geometry"
)

// tNetwork builds a T-shaped network:
//
//	S(0,0) -- J(100,0) -- A(200,0)
//	               |
//	               B(100,100)
func tNetwork(t *testing.T) (net *domain.Network, s, j, a, b int64) {
	t.Helper()

	q, err := geometry.NewQuantizer(geometry.DefaultTolerance)
	if err != nil {
		t.Fatalf("quantizer: %v", err)
	}
	net = domain.NewNetwork(q)

	sn, _ := net.EnsureNode(orb.Point{0, 0}, domain.NodeTypeSource, "plant-1")
	jn, _ := net.EnsureNode(orb.Point{100, 0}, domain.NodeTypeStreet, "")
	an, _ := net.EnsureNode(orb.Point{200, 0}, domain.NodeTypeServiceConnection, "bldg-a")
	bn, _ := net.EnsureNode(orb.Point{100, 100}, domain.NodeTypeServiceConnection, "bldg-b")

	net.AddEdge(sn.ID, jn.ID, 100, "trunk", domain.StreetCategoryPrimary, domain.EdgeStreet)
	net.AddEdge(jn.ID, an.ID, 100, "east", domain.StreetCategoryResidential, domain.EdgeStreet)
	net.AddEdge(jn.ID, bn.ID, 100, "north", domain.StreetCategoryResidential, domain.EdgeStreet)
	net.Freeze()

	return net, sn.ID, jn.ID, an.ID, bn.ID
}

func defaultOptions() Options {
	return Options{
		SupplyTemperatureC: 80,
		ReturnTemperatureC: 50,
		DemandAttachment:   DemandTerminalSegment,
	}
}

func path(assetID string, length float64, nodes ...int64) *domain.RoutedPath {
	return &domain.RoutedPath{AssetID: assetID, Nodes: nodes, Length: length}
}

func connection(assetID string, nodeID int64, demand float64) *domain.ServiceConnection {
	return &domain.ServiceConnection{AssetID: assetID, NodeID: nodeID, DemandKW: demand}
}

func findSegment(segments []*domain.PipeSegment, circuit domain.Circuit, from, to int64) *domain.PipeSegment {
	key := domain.PipeKey{Edge: domain.NewEdgeKey(from, to), Circuit: circuit}
	for _, seg := range segments {
		if seg.Key() == key {
			return seg
		}
	}
	return nil
}

func TestNew_UnknownAttachment(t *testing.T) {
	if _, err := New(Options{DemandAttachment: "somewhere"}); err == nil {
		t.Fatal("expected error for unknown demand attachment")
	}
}

func TestNew_DefaultAttachment(t *testing.T) {
	s, err := New(Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.opts.DemandAttachment != DemandTerminalSegment {
		t.Errorf("expected terminal_segment default, got %s", s.opts.DemandAttachment)
	}
}

func TestSynthesize_TJunctionTrunkOncePerCircuit(t *testing.T) {
	net, s, j, a, b := tNetwork(t)
	syn, _ := New(defaultOptions())

	segments, err := syn.Synthesize(net,
		[]*domain.ServiceConnection{connection("bldg-a", a, 30), connection("bldg-b", b, 20)},
		[]*domain.RoutedPath{
			path("bldg-a", 200, s, j, a),
			path("bldg-b", 200, s, j, b),
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 3 physical edges, both circuits: exactly 6 segments
	if len(segments) != 6 {
		t.Fatalf("expected 6 segments, got %d", len(segments))
	}

	// The shared trunk appears once per circuit and serves both assets
	for _, circuit := range []domain.Circuit{domain.CircuitSupply, domain.CircuitReturn} {
		count := 0
		for _, seg := range segments {
			if seg.Circuit == circuit && domain.NewEdgeKey(seg.FromID, seg.ToID) == domain.NewEdgeKey(s, j) {
				count++
			}
		}
		if count != 1 {
			t.Errorf("circuit %s: trunk emitted %d times, want 1", circuit, count)
		}
	}

	trunk := findSegment(segments, domain.CircuitSupply, s, j)
	if trunk == nil {
		t.Fatal("supply trunk missing")
	}
	if len(trunk.ServedAssets) != 2 || trunk.ServedAssets[0] != "bldg-a" || trunk.ServedAssets[1] != "bldg-b" {
		t.Errorf("expected trunk to serve [bldg-a bldg-b], got %v", trunk.ServedAssets)
	}
	if trunk.SegmentID != "trunk" {
		t.Errorf("expected street id trunk, got %s", trunk.SegmentID)
	}

	// Branch segments serve only their asset
	east := findSegment(segments, domain.CircuitSupply, j, a)
	if east == nil || len(east.ServedAssets) != 1 || east.ServedAssets[0] != "bldg-a" {
		t.Errorf("unexpected east branch served set: %+v", east)
	}
}

func TestSynthesize_TemperaturesAndDirections(t *testing.T) {
	net, s, j, a, _ := tNetwork(t)
	syn, _ := New(defaultOptions())

	segments, err := syn.Synthesize(net,
		[]*domain.ServiceConnection{connection("bldg-a", a, 30)},
		[]*domain.RoutedPath{path("bldg-a", 200, s, j, a)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	supply := findSegment(segments, domain.CircuitSupply, s, j)
	ret := findSegment(segments, domain.CircuitReturn, s, j)
	if supply == nil || ret == nil {
		t.Fatal("expected both circuits on the trunk")
	}

	if supply.TemperatureC != 80 {
		t.Errorf("expected supply at 80, got %f", supply.TemperatureC)
	}
	if ret.TemperatureC != 50 {
		t.Errorf("expected return at 50, got %f", ret.TemperatureC)
	}

	// Supply flows source->asset, return flows asset->source
	if supply.FromID != s || supply.ToID != j {
		t.Errorf("supply trunk direction %d->%d, want %d->%d", supply.FromID, supply.ToID, s, j)
	}
	if ret.FromID != j || ret.ToID != s {
		t.Errorf("return trunk direction %d->%d, want %d->%d", ret.FromID, ret.ToID, j, s)
	}

	// Points follow the direction
	if supply.From != (orb.Point{0, 0}) || supply.To != (orb.Point{100, 0}) {
		t.Errorf("supply trunk points %v -> %v", supply.From, supply.To)
	}
}

func TestSynthesize_ReverseSymmetry(t *testing.T) {
	net, s, j, a, b := tNetwork(t)
	syn, _ := New(defaultOptions())

	segments, err := syn.Synthesize(net, nil, []*domain.RoutedPath{
		path("bldg-a", 200, s, j, a),
		path("bldg-b", 200, s, j, b),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, seg := range segments {
		if seg.Circuit != domain.CircuitSupply {
			continue
		}
		mirror := findSegment(segments, domain.CircuitReturn, seg.FromID, seg.ToID)
		if mirror == nil {
			t.Fatalf("supply segment %d->%d has no return mirror", seg.FromID, seg.ToID)
		}
		if mirror.FromID != seg.ToID || mirror.ToID != seg.FromID {
			t.Errorf("return %d->%d is not the reverse of supply %d->%d",
				mirror.FromID, mirror.ToID, seg.FromID, seg.ToID)
		}
		if !domain.FloatEquals(mirror.Length, seg.Length) {
			t.Errorf("mirror length %f differs from supply %f", mirror.Length, seg.Length)
		}
	}
}

func TestSynthesize_OrderIndependence(t *testing.T) {
	net, s, j, a, b := tNetwork(t)
	syn, _ := New(defaultOptions())

	conns := []*domain.ServiceConnection{
		connection("bldg-a", a, 30),
		connection("bldg-b", b, 20),
	}
	forward := []*domain.RoutedPath{
		path("bldg-a", 200, s, j, a),
		path("bldg-b", 200, s, j, b),
	}
	backward := []*domain.RoutedPath{forward[1], forward[0]}

	first, err := syn.Synthesize(net, conns, forward)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := syn.Synthesize(net, conns, backward)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertSegmentsEqual(t, first, second)
}

func TestSynthesize_Idempotent(t *testing.T) {
	net, s, j, a, b := tNetwork(t)
	syn, _ := New(defaultOptions())

	conns := []*domain.ServiceConnection{
		connection("bldg-a", a, 30),
		connection("bldg-b", b, 20),
	}
	paths := []*domain.RoutedPath{
		path("bldg-a", 200, s, j, a),
		path("bldg-b", 200, s, j, b),
	}

	first, err := syn.Synthesize(net, conns, paths)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := syn.Synthesize(net, conns, paths)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertSegmentsEqual(t, first, second)
}

func assertSegmentsEqual(t *testing.T, first, second []*domain.PipeSegment) {
	t.Helper()

	if len(first) != len(second) {
		t.Fatalf("segment counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		f, s := first[i], second[i]
		if f.Key() != s.Key() || f.FromID != s.FromID || f.ToID != s.ToID {
			t.Errorf("segment %d identity differs: %+v vs %+v", i, f, s)
		}
		if !domain.FloatEquals(f.Length, s.Length) || !domain.FloatEquals(f.DemandKW, s.DemandKW) {
			t.Errorf("segment %d numbers differ: %+v vs %+v", i, f, s)
		}
		if len(f.ServedAssets) != len(s.ServedAssets) {
			t.Errorf("segment %d served sets differ: %v vs %v", i, f.ServedAssets, s.ServedAssets)
			continue
		}
		for k := range f.ServedAssets {
			if f.ServedAssets[k] != s.ServedAssets[k] {
				t.Errorf("segment %d served sets differ: %v vs %v", i, f.ServedAssets, s.ServedAssets)
				break
			}
		}
	}
}

func TestSynthesize_TerminalSegmentDemand(t *testing.T) {
	net, s, j, a, b := tNetwork(t)
	syn, _ := New(defaultOptions())

	segments, err := syn.Synthesize(net,
		[]*domain.ServiceConnection{connection("bldg-a", a, 30), connection("bldg-b", b, 20)},
		[]*domain.RoutedPath{
			path("bldg-a", 200, s, j, a),
			path("bldg-b", 200, s, j, b),
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Demand lands on the terminal pair of each asset, both circuits
	eastSupply := findSegment(segments, domain.CircuitSupply, j, a)
	eastReturn := findSegment(segments, domain.CircuitReturn, j, a)
	if eastSupply.DemandKW != 30 || eastReturn.DemandKW != 30 {
		t.Errorf("expected demand 30 on both east terminals, got %f/%f",
			eastSupply.DemandKW, eastReturn.DemandKW)
	}

	// The shared trunk carries no attached demand
	trunkSupply := findSegment(segments, domain.CircuitSupply, s, j)
	if trunkSupply.DemandKW != 0 {
		t.Errorf("expected zero demand on trunk, got %f", trunkSupply.DemandKW)
	}
}

func TestSynthesize_ServiceConnectionDemand(t *testing.T) {
	net, s, j, a, _ := tNetwork(t)

	opts := defaultOptions()
	opts.DemandAttachment = DemandServiceConnection
	syn, _ := New(opts)

	segments, err := syn.Synthesize(net,
		[]*domain.ServiceConnection{connection("bldg-a", a, 30)},
		[]*domain.RoutedPath{path("bldg-a", 200, s, j, a)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, seg := range segments {
		if seg.DemandKW != 0 {
			t.Errorf("segment %d->%d carries demand %f in service_connection mode",
				seg.FromID, seg.ToID, seg.DemandKW)
		}
	}
}

func TestSynthesize_SharedTerminalAccumulatesDemand(t *testing.T) {
	// Both assets connect through the same terminal edge
	net, s, j, a, _ := tNetwork(t)
	syn, _ := New(defaultOptions())

	segments, err := syn.Synthesize(net,
		[]*domain.ServiceConnection{connection("bldg-a", a, 30), connection("bldg-c", a, 15)},
		[]*domain.RoutedPath{
			path("bldg-a", 200, s, j, a),
			path("bldg-c", 200, s, j, a),
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	east := findSegment(segments, domain.CircuitSupply, j, a)
	if !domain.FloatEquals(east.DemandKW, 45) {
		t.Errorf("expected accumulated demand 45, got %f", east.DemandKW)
	}
	if len(east.ServedAssets) != 2 {
		t.Errorf("expected 2 served assets, got %v", east.ServedAssets)
	}
}

func TestSynthesize_SingleNodePathSkipped(t *testing.T) {
	net, s, j, a, _ := tNetwork(t)
	syn, _ := New(defaultOptions())

	segments, err := syn.Synthesize(net,
		[]*domain.ServiceConnection{connection("bldg-at-plant", s, 10), connection("bldg-a", a, 30)},
		[]*domain.RoutedPath{
			path("bldg-a", 200, s, j, a),
			path("bldg-at-plant", 0, s),
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Only bldg-a contributes pipes
	if len(segments) != 4 {
		t.Fatalf("expected 4 segments, got %d", len(segments))
	}
	for _, seg := range segments {
		for _, served := range seg.ServedAssets {
			if served == "bldg-at-plant" {
				t.Errorf("single-node path must not serve segments, found on %d->%d", seg.FromID, seg.ToID)
			}
		}
	}
}

func TestSynthesize_MissingEdgeFails(t *testing.T) {
	net, s, _, _, _ := tNetwork(t)
	syn, _ := New(defaultOptions())

	_, err := syn.Synthesize(net, nil, []*domain.RoutedPath{path("bldg-x", 100, s, 999)})
	if err == nil {
		t.Fatal("expected error for path over missing edge")
	}
	if apperror.Code(err) != apperror.CodeInternal {
		t.Errorf("expected CodeInternal, got %s", apperror.Code(err))
	}
}

func TestSynthesize_NilNetwork(t *testing.T) {
	syn, _ := New(defaultOptions())
	if _, err := syn.Synthesize(nil, nil, nil); err == nil {
		t.Fatal("expected error for nil network")
	}
}
