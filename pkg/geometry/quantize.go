package geometry

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// DefaultTolerance is the node-identity quantization step used when the
// caller does not configure one: one millimeter at meter scale.
const DefaultTolerance = 1e-3

// Key is a quantized coordinate usable as a map key. Two points closer than
// half a tolerance step in each axis produce the same Key.
type Key struct {
	X int64
	Y int64
}

// String returns a compact representation, useful in diagnostics.
func (k Key) String() string {
	return fmt.Sprintf("(%d,%d)", k.X, k.Y)
}

// Quantizer turns floating-point coordinates into stable node identities.
//
// Floating-point coordinates cannot be used as exact map keys: the same
// physical location reached through two different computations differs in the
// last bits. The quantizer rounds each axis to a fixed step before using the
// result as identity, and the step is an explicit, testable configuration
// value rather than an implicit side effect.
type Quantizer struct {
	tolerance float64
}

// NewQuantizer creates a quantizer with the given step. A non-positive step
// is an error; use DefaultTolerance when no preference exists.
func NewQuantizer(tolerance float64) (Quantizer, error) {
	if tolerance <= 0 || math.IsNaN(tolerance) || math.IsInf(tolerance, 0) {
		return Quantizer{}, fmt.Errorf("quantization tolerance must be a positive finite number, got %v", tolerance)
	}
	return Quantizer{tolerance: tolerance}, nil
}

// MustQuantizer is like NewQuantizer but panics on an invalid step.
// Intended for tests and constants.
func MustQuantizer(tolerance float64) Quantizer {
	q, err := NewQuantizer(tolerance)
	if err != nil {
		panic(err)
	}
	return q
}

// Tolerance returns the configured step.
func (q Quantizer) Tolerance() float64 {
	return q.tolerance
}

// Key returns the quantized identity of p.
func (q Quantizer) Key(p orb.Point) Key {
	return Key{
		X: int64(math.Round(p[0] / q.tolerance)),
		Y: int64(math.Round(p[1] / q.tolerance)),
	}
}

// Snap returns the quantized coordinate of p, the canonical point all
// locations sharing p's Key collapse to.
func (q Quantizer) Snap(p orb.Point) orb.Point {
	k := q.Key(p)
	return q.Point(k)
}

// Point converts a Key back into its canonical coordinate.
func (q Quantizer) Point(k Key) orb.Point {
	return orb.Point{float64(k.X) * q.tolerance, float64(k.Y) * q.tolerance}
}
