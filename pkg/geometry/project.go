// Package geometry provides the planar primitives the topology pipeline is
// built on: point-onto-segment projection and coordinate quantization.
//
// All coordinates are planar 2D (projected meters). orb.Point is the value
// type throughout; distances are Euclidean via orb/planar.
package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Projection is the result of projecting a point onto a polyline.
type Projection struct {
	Point        orb.Point // closest point on the polyline
	Distance     float64   // Euclidean distance from the query point
	SegmentIndex int       // index of the vertex pair containing the projection
	T            float64   // normalized position within that vertex pair, in [0,1]
	Arc          float64   // distance along the polyline from its start to the projection
}

// ProjectOntoSegment returns the closest point on segment [a,b] to p, the
// Euclidean distance to it, and the normalized parameter t in [0,1] locating
// the projection along a→b.
//
// Degenerate segments (a == b) collapse to point distance with t = 0; they
// never cause a division by zero.
func ProjectOntoSegment(p, a, b orb.Point) (orb.Point, float64, float64) {
	dx := b[0] - a[0]
	dy := b[1] - a[1]

	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return a, planar.Distance(p, a), 0
	}

	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / lenSq
	switch {
	case t < 0:
		t = 0
	case t > 1:
		t = 1
	}

	closest := orb.Point{a[0] + t*dx, a[1] + t*dy}
	return closest, planar.Distance(p, closest), t
}

// ProjectOntoPolyline projects p onto every consecutive vertex pair of ls and
// returns the minimum-distance projection. Ties resolve to the earliest
// vertex pair, which keeps results stable across runs.
//
// Returns false when ls has fewer than two vertices.
func ProjectOntoPolyline(p orb.Point, ls orb.LineString) (Projection, bool) {
	if len(ls) < 2 {
		return Projection{}, false
	}

	best := Projection{Distance: math.Inf(1)}
	arc := 0.0

	for i := 0; i < len(ls)-1; i++ {
		a, b := ls[i], ls[i+1]
		closest, dist, t := ProjectOntoSegment(p, a, b)

		if dist < best.Distance {
			best = Projection{
				Point:        closest,
				Distance:     dist,
				SegmentIndex: i,
				T:            t,
				Arc:          arc + t*planar.Distance(a, b),
			}
		}

		arc += planar.Distance(a, b)
	}

	return best, true
}

// IsFinite reports whether both coordinates of p are finite numbers.
func IsFinite(p orb.Point) bool {
	return !math.IsNaN(p[0]) && !math.IsInf(p[0], 0) &&
		!math.IsNaN(p[1]) && !math.IsInf(p[1], 0)
}
