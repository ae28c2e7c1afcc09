package geometry

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestProjectOntoSegment_PerpendicularFoot(t *testing.T) {
	a := orb.Point{0, 0}
	b := orb.Point{10, 0}
	p := orb.Point{4, 3}

	closest, dist, param := ProjectOntoSegment(p, a, b)

	if math.Abs(closest[0]-4) > 1e-9 || math.Abs(closest[1]) > 1e-9 {
		t.Errorf("Expected projection (4,0), got %v", closest)
	}
	if math.Abs(dist-3) > 1e-9 {
		t.Errorf("Expected distance 3, got %f", dist)
	}
	if math.Abs(param-0.4) > 1e-9 {
		t.Errorf("Expected t=0.4, got %f", param)
	}
}

func TestProjectOntoSegment_ClampsToEndpoints(t *testing.T) {
	a := orb.Point{0, 0}
	b := orb.Point{10, 0}

	tests := []struct {
		name     string
		p        orb.Point
		expected orb.Point
		dist     float64
		t        float64
	}{
		{"before start", orb.Point{-3, 4}, a, 5, 0},
		{"past end", orb.Point{13, -4}, b, 5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			closest, dist, param := ProjectOntoSegment(tt.p, a, b)
			assert.InDelta(t, tt.expected[0], closest[0], 1e-9)
			assert.InDelta(t, tt.expected[1], closest[1], 1e-9)
			assert.InDelta(t, tt.dist, dist, 1e-9)
			assert.InDelta(t, tt.t, param, 1e-9)
		})
	}
}

func TestProjectOntoSegment_Degenerate(t *testing.T) {
	a := orb.Point{5, 5}
	p := orb.Point{8, 9}

	// A zero-length segment must not panic and collapses to point distance.
	closest, dist, param := ProjectOntoSegment(p, a, a)

	if closest != a {
		t.Errorf("Expected projection onto the point itself, got %v", closest)
	}
	if math.Abs(dist-5) > 1e-9 {
		t.Errorf("Expected distance 5, got %f", dist)
	}
	if param != 0 {
		t.Errorf("Expected t=0 for degenerate segment, got %f", param)
	}
}

func TestProjectOntoPolyline_PicksClosestPair(t *testing.T) {
	// L-shaped polyline: (0,0)->(10,0)->(10,10)
	ls := orb.LineString{{0, 0}, {10, 0}, {10, 10}}
	p := orb.Point{12, 7}

	proj, ok := ProjectOntoPolyline(p, ls)
	if !ok {
		t.Fatal("Expected a projection onto a two-segment polyline")
	}

	assert.Equal(t, 1, proj.SegmentIndex)
	assert.InDelta(t, 10.0, proj.Point[0], 1e-9)
	assert.InDelta(t, 7.0, proj.Point[1], 1e-9)
	assert.InDelta(t, 2.0, proj.Distance, 1e-9)
	assert.InDelta(t, 0.7, proj.T, 1e-9)
	// Arc = full first segment (10) + 7 along the second.
	assert.InDelta(t, 17.0, proj.Arc, 1e-9)
}

func TestProjectOntoPolyline_TieBreaksToEarliestSegment(t *testing.T) {
	// Symmetric V: both segments are equally far from the apex query point.
	ls := orb.LineString{{-10, 0}, {0, 0}, {10, 0}}
	p := orb.Point{0, 5}

	proj, ok := ProjectOntoPolyline(p, ls)
	if !ok {
		t.Fatal("Expected a projection")
	}

	// The shared vertex is reachable through both pairs; the scan must keep
	// the first one it saw.
	if proj.SegmentIndex != 0 {
		t.Errorf("Expected tie to resolve to segment 0, got %d", proj.SegmentIndex)
	}
	assert.InDelta(t, 5.0, proj.Distance, 1e-9)
}

func TestProjectOntoPolyline_TooShort(t *testing.T) {
	if _, ok := ProjectOntoPolyline(orb.Point{0, 0}, orb.LineString{{1, 1}}); ok {
		t.Error("Expected ok=false for a single-vertex polyline")
	}
	if _, ok := ProjectOntoPolyline(orb.Point{0, 0}, orb.LineString{}); ok {
		t.Error("Expected ok=false for an empty polyline")
	}
}

func TestProjectOntoPolyline_BruteForceAgreement(t *testing.T) {
	// The polyline scan must agree with an exhaustive per-pair minimum.
	ls := orb.LineString{{0, 0}, {3, 1}, {5, 4}, {9, 2}, {12, 6}}
	queries := []orb.Point{{1, 3}, {4, 0}, {7, 7}, {-2, -2}, {12, 0}, {5, 4}}

	for _, p := range queries {
		proj, ok := ProjectOntoPolyline(p, ls)
		if !ok {
			t.Fatalf("Projection failed for %v", p)
		}

		best := math.Inf(1)
		for i := 0; i < len(ls)-1; i++ {
			_, d, _ := ProjectOntoSegment(p, ls[i], ls[i+1])
			if d < best {
				best = d
			}
		}

		if math.Abs(proj.Distance-best) > 1e-9 {
			t.Errorf("Polyline projection for %v = %f, brute force = %f", p, proj.Distance, best)
		}
	}
}

func TestIsFinite(t *testing.T) {
	tests := []struct {
		name     string
		p        orb.Point
		expected bool
	}{
		{"finite", orb.Point{1.5, -2.5}, true},
		{"zero", orb.Point{0, 0}, true},
		{"nan x", orb.Point{math.NaN(), 0}, false},
		{"nan y", orb.Point{0, math.NaN()}, false},
		{"positive inf", orb.Point{math.Inf(1), 0}, false},
		{"negative inf", orb.Point{0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFinite(tt.p); got != tt.expected {
				t.Errorf("IsFinite(%v) = %v, want %v", tt.p, got, tt.expected)
			}
		})
	}
}
