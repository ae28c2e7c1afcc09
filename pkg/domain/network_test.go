package domain

import (
	"sync"
	"testing"

	"github.com/paulmach/orb"

	"heatgrid/pkg/geometry"
)

func testQuantizer(t *testing.T) geometry.Quantizer {
	t.Helper()
	q, err := geometry.NewQuantizer(geometry.DefaultTolerance)
	if err != nil {
		t.Fatalf("failed to create quantizer: %v", err)
	}
	return q
}

func TestNewNetwork(t *testing.T) {
	n := NewNetwork(testQuantizer(t))

	if n == nil {
		t.Fatal("expected non-nil network")
	}
	if n.NodeCount() != 0 {
		t.Errorf("expected 0 nodes, got %d", n.NodeCount())
	}
	if n.EdgeCount() != 0 {
		t.Errorf("expected 0 edges, got %d", n.EdgeCount())
	}
	if n.Frozen() {
		t.Error("new network must not be frozen")
	}
}

func TestNetwork_EnsureNode(t *testing.T) {
	n := NewNetwork(testQuantizer(t))

	node, created := n.EnsureNode(orb.Point{10.5, 20.5}, NodeTypeStreet, "")
	if !created {
		t.Fatal("expected node to be created")
	}
	if node.ID != 1 {
		t.Errorf("expected first node id 1, got %d", node.ID)
	}
	if node.Type != NodeTypeStreet {
		t.Errorf("expected street node, got %s", node.Type)
	}

	// Same quantized coordinate must reuse the node
	again, created := n.EnsureNode(orb.Point{10.5000004, 20.4999996}, NodeTypeStreet, "")
	if created {
		t.Error("expected existing node to be reused")
	}
	if again.ID != node.ID {
		t.Errorf("expected node %d, got %d", node.ID, again.ID)
	}
	if n.NodeCount() != 1 {
		t.Errorf("expected 1 node, got %d", n.NodeCount())
	}
}

func TestNetwork_EnsureNode_Upgrade(t *testing.T) {
	n := NewNetwork(testQuantizer(t))

	node, _ := n.EnsureNode(orb.Point{1, 1}, NodeTypeStreet, "")
	if node.Type != NodeTypeStreet {
		t.Fatalf("expected street node, got %s", node.Type)
	}

	// Snapping an asset onto a street vertex upgrades its role
	upgraded, created := n.EnsureNode(orb.Point{1, 1}, NodeTypeServiceConnection, "bldg-1")
	if created {
		t.Fatal("expected node reuse")
	}
	if upgraded.Type != NodeTypeServiceConnection {
		t.Errorf("expected service connection, got %s", upgraded.Type)
	}
	if upgraded.AssetID != "bldg-1" {
		t.Errorf("expected asset id bldg-1, got %q", upgraded.AssetID)
	}

	// Source wins over service connection
	src, _ := n.EnsureNode(orb.Point{1, 1}, NodeTypeSource, "plant-1")
	if src.Type != NodeTypeSource {
		t.Errorf("expected source, got %s", src.Type)
	}
	if src.AssetID != "plant-1" {
		t.Errorf("expected asset id plant-1, got %q", src.AssetID)
	}

	// Source is never downgraded
	same, _ := n.EnsureNode(orb.Point{1, 1}, NodeTypeStreet, "")
	if same.Type != NodeTypeSource {
		t.Errorf("source node downgraded to %s", same.Type)
	}
}

func TestNetwork_NodeAt(t *testing.T) {
	n := NewNetwork(testQuantizer(t))

	n.EnsureNode(orb.Point{5, 5}, NodeTypeStreet, "")

	if _, ok := n.NodeAt(orb.Point{5, 5}); !ok {
		t.Error("expected to find node at exact coordinate")
	}
	if _, ok := n.NodeAt(orb.Point{5.0000003, 5}); !ok {
		t.Error("expected to find node within quantization tolerance")
	}
	if _, ok := n.NodeAt(orb.Point{6, 5}); ok {
		t.Error("did not expect node at distant coordinate")
	}
}

func TestNetwork_AddEdge(t *testing.T) {
	n := NewNetwork(testQuantizer(t))

	a, _ := n.EnsureNode(orb.Point{0, 0}, NodeTypeStreet, "")
	b, _ := n.EnsureNode(orb.Point{100, 0}, NodeTypeStreet, "")

	edge, created := n.AddEdge(b.ID, a.ID, 100, "street-1", StreetCategoryResidential, EdgeStreet)
	if !created {
		t.Fatal("expected edge to be created")
	}
	if edge.From != a.ID || edge.To != b.ID {
		t.Errorf("expected normalized endpoints (%d,%d), got (%d,%d)", a.ID, b.ID, edge.From, edge.To)
	}

	// Both directions resolve to the same edge
	got, ok := n.Edge(b.ID, a.ID)
	if !ok {
		t.Fatal("expected to find edge by reversed endpoints")
	}
	if got != edge {
		t.Error("expected the same edge object")
	}

	// Adjacency is symmetric
	if nb := n.Neighbors(a.ID); len(nb) != 1 || nb[0] != b.ID {
		t.Errorf("expected neighbor %d for node %d, got %v", b.ID, a.ID, nb)
	}
	if nb := n.Neighbors(b.ID); len(nb) != 1 || nb[0] != a.ID {
		t.Errorf("expected neighbor %d for node %d, got %v", a.ID, b.ID, nb)
	}
}

func TestNetwork_AddEdge_SelfLoop(t *testing.T) {
	n := NewNetwork(testQuantizer(t))

	a, _ := n.EnsureNode(orb.Point{0, 0}, NodeTypeStreet, "")

	edge, created := n.AddEdge(a.ID, a.ID, 0, "street-1", StreetCategoryResidential, EdgeStreet)
	if created || edge != nil {
		t.Error("expected self-loop to be rejected")
	}
	if n.EdgeCount() != 0 {
		t.Errorf("expected 0 edges, got %d", n.EdgeCount())
	}
}

func TestNetwork_AddEdge_DuplicateKeepsShorter(t *testing.T) {
	n := NewNetwork(testQuantizer(t))

	a, _ := n.EnsureNode(orb.Point{0, 0}, NodeTypeStreet, "")
	b, _ := n.EnsureNode(orb.Point{100, 0}, NodeTypeStreet, "")

	n.AddEdge(a.ID, b.ID, 120, "street-long", StreetCategoryResidential, EdgeStreet)
	_, created := n.AddEdge(a.ID, b.ID, 100, "street-short", StreetCategoryPrimary, EdgeStreet)
	if created {
		t.Error("duplicate edge must not create a second entry")
	}

	edge, _ := n.Edge(a.ID, b.ID)
	if edge.Length != 100 {
		t.Errorf("expected shorter length 100, got %f", edge.Length)
	}
	if edge.SegmentID != "street-short" {
		t.Errorf("expected segment street-short, got %s", edge.SegmentID)
	}

	// Longer duplicate does not replace the kept edge
	n.AddEdge(a.ID, b.ID, 150, "street-longer", StreetCategoryService, EdgeStreet)
	edge, _ = n.Edge(a.ID, b.ID)
	if edge.Length != 100 {
		t.Errorf("expected length 100 after longer duplicate, got %f", edge.Length)
	}
	if n.EdgeCount() != 1 {
		t.Errorf("expected 1 edge, got %d", n.EdgeCount())
	}
}

func TestNetwork_RemoveEdge(t *testing.T) {
	n := NewNetwork(testQuantizer(t))

	a, _ := n.EnsureNode(orb.Point{0, 0}, NodeTypeStreet, "")
	b, _ := n.EnsureNode(orb.Point{100, 0}, NodeTypeStreet, "")
	c, _ := n.EnsureNode(orb.Point{200, 0}, NodeTypeStreet, "")

	n.AddEdge(a.ID, b.ID, 100, "s1", StreetCategoryResidential, EdgeStreet)
	n.AddEdge(b.ID, c.ID, 100, "s1", StreetCategoryResidential, EdgeStreet)

	if !n.RemoveEdge(b.ID, a.ID) {
		t.Fatal("expected edge removal to succeed")
	}
	if n.EdgeCount() != 1 {
		t.Errorf("expected 1 edge after removal, got %d", n.EdgeCount())
	}
	if _, ok := n.Edge(a.ID, b.ID); ok {
		t.Error("removed edge still present")
	}
	if nb := n.Neighbors(a.ID); len(nb) != 0 {
		t.Errorf("expected no neighbors for node %d, got %v", a.ID, nb)
	}
	if nb := n.Neighbors(b.ID); len(nb) != 1 || nb[0] != c.ID {
		t.Errorf("expected neighbor %d for node %d, got %v", c.ID, b.ID, nb)
	}

	if n.RemoveEdge(a.ID, b.ID) {
		t.Error("removing a missing edge must return false")
	}
}

func TestNetwork_SortedNodeIDs(t *testing.T) {
	n := NewNetwork(testQuantizer(t))

	n.EnsureNode(orb.Point{0, 0}, NodeTypeStreet, "")
	n.EnsureNode(orb.Point{1, 0}, NodeTypeStreet, "")
	n.EnsureNode(orb.Point{2, 0}, NodeTypeStreet, "")

	ids := n.SortedNodeIDs()
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %d", len(ids))
	}
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Errorf("ids not strictly increasing: %v", ids)
		}
	}

	// Cache is invalidated by a new node
	n.EnsureNode(orb.Point{3, 0}, NodeTypeStreet, "")
	if got := len(n.SortedNodeIDs()); got != 4 {
		t.Errorf("expected 4 ids after insert, got %d", got)
	}
}

func TestNetwork_EdgeList_Deterministic(t *testing.T) {
	n := NewNetwork(testQuantizer(t))

	var prev int64
	for i := 0; i < 5; i++ {
		node, _ := n.EnsureNode(orb.Point{float64(i * 100), 0}, NodeTypeStreet, "")
		if i > 0 {
			n.AddEdge(node.ID, prev, 100, "s1", StreetCategoryResidential, EdgeStreet)
		}
		prev = node.ID
	}

	first := n.EdgeList()
	second := n.EdgeList()
	if len(first) != 4 || len(second) != 4 {
		t.Fatalf("expected 4 edges, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Key() != second[i].Key() {
			t.Errorf("edge order not stable at index %d: %s vs %s", i, first[i].Key(), second[i].Key())
		}
	}
	for i := 1; i < len(first); i++ {
		a, b := first[i-1], first[i]
		if a.From > b.From || (a.From == b.From && a.To >= b.To) {
			t.Errorf("edges not sorted at index %d", i)
		}
	}
}

func TestNetwork_Freeze(t *testing.T) {
	n := NewNetwork(testQuantizer(t))

	a, _ := n.EnsureNode(orb.Point{0, 0}, NodeTypeStreet, "")
	b, _ := n.EnsureNode(orb.Point{100, 0}, NodeTypeStreet, "")
	c, _ := n.EnsureNode(orb.Point{0, 100}, NodeTypeStreet, "")
	n.AddEdge(a.ID, c.ID, 100, "s1", StreetCategoryResidential, EdgeStreet)
	n.AddEdge(a.ID, b.ID, 100, "s2", StreetCategoryResidential, EdgeStreet)

	n.Freeze()
	if !n.Frozen() {
		t.Fatal("expected frozen network")
	}

	// Adjacency is sorted after freeze
	nb := n.Neighbors(a.ID)
	if len(nb) != 2 || nb[0] != b.ID || nb[1] != c.ID {
		t.Errorf("expected sorted neighbors [%d %d], got %v", b.ID, c.ID, nb)
	}

	// Mutation after freeze panics
	defer func() {
		if recover() == nil {
			t.Error("expected panic on mutation after freeze")
		}
	}()
	n.EnsureNode(orb.Point{500, 500}, NodeTypeStreet, "")
}

func TestNetwork_Clone(t *testing.T) {
	n := NewNetwork(testQuantizer(t))

	a, _ := n.EnsureNode(orb.Point{0, 0}, NodeTypeSource, "plant-1")
	b, _ := n.EnsureNode(orb.Point{100, 0}, NodeTypeStreet, "")
	n.AddEdge(a.ID, b.ID, 100, "s1", StreetCategoryResidential, EdgeStreet)
	n.Freeze()

	clone := n.Clone()

	if clone.Frozen() {
		t.Error("clone must be mutable")
	}
	if clone.NodeCount() != n.NodeCount() {
		t.Errorf("expected %d nodes in clone, got %d", n.NodeCount(), clone.NodeCount())
	}
	if clone.EdgeCount() != n.EdgeCount() {
		t.Errorf("expected %d edges in clone, got %d", n.EdgeCount(), clone.EdgeCount())
	}

	// Mutating the clone leaves the original untouched
	c, _ := clone.EnsureNode(orb.Point{200, 0}, NodeTypeStreet, "")
	clone.AddEdge(b.ID, c.ID, 100, "s2", StreetCategoryResidential, EdgeStreet)
	if n.NodeCount() != 2 {
		t.Errorf("original node count changed: %d", n.NodeCount())
	}
	if n.EdgeCount() != 1 {
		t.Errorf("original edge count changed: %d", n.EdgeCount())
	}

	// Cloned node is a deep copy
	cloned, _ := clone.Node(a.ID)
	cloned.AssetID = "mutated"
	original, _ := n.Node(a.ID)
	if original.AssetID != "plant-1" {
		t.Error("clone shares node objects with the original")
	}

	// ID sequence continues without collisions
	if c.ID <= b.ID {
		t.Errorf("expected fresh id above %d, got %d", b.ID, c.ID)
	}
}

func TestNetwork_Distance(t *testing.T) {
	n := NewNetwork(testQuantizer(t))

	a, _ := n.EnsureNode(orb.Point{0, 0}, NodeTypeStreet, "")
	b, _ := n.EnsureNode(orb.Point{3, 4}, NodeTypeStreet, "")

	if d := n.Distance(a.ID, b.ID); !FloatEquals(d, 5) {
		t.Errorf("expected distance 5, got %f", d)
	}
	if d := n.Distance(a.ID, 999); d != Infinity {
		t.Errorf("expected Infinity for missing node, got %f", d)
	}
}

func TestNetwork_Validate(t *testing.T) {
	n := NewNetwork(testQuantizer(t))

	a, _ := n.EnsureNode(orb.Point{0, 0}, NodeTypeStreet, "")
	b, _ := n.EnsureNode(orb.Point{100, 0}, NodeTypeStreet, "")
	n.AddEdge(a.ID, b.ID, 100, "s1", StreetCategoryResidential, EdgeStreet)

	if errs := n.Validate(); len(errs) != 0 {
		t.Errorf("expected valid network, got %v", errs)
	}
}

func TestNetwork_ConcurrentReads(t *testing.T) {
	n := NewNetwork(testQuantizer(t))

	var prev int64
	for i := 0; i < 100; i++ {
		node, _ := n.EnsureNode(orb.Point{float64(i), 0}, NodeTypeStreet, "")
		if i > 0 {
			n.AddEdge(prev, node.ID, 1, "s1", StreetCategoryResidential, EdgeStreet)
		}
		prev = node.ID
	}
	n.Freeze()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, id := range n.SortedNodeIDs() {
				n.Neighbors(id)
				n.Node(id)
			}
			n.EdgeList()
		}()
	}
	wg.Wait()
}
