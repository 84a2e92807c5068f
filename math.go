package ascent

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

const (
	deg2rad = math.Pi / 180
)

// norm returns the norm of a given planar vector.
func norm(v []float64) float64 {
	return floats.Norm(v, 2)
}

// unit returns the unit vector of a given vector.
func unit(a []float64) (b []float64) {
	n := norm(a)
	b = make([]float64, len(a))
	if scalar.EqualWithinAbs(n, 0, 1e-12) || math.IsNaN(n) || math.IsInf(n, 0) {
		return
	}
	floats.ScaleTo(b, 1/n, a)
	return
}

// sign returns the sign of a given number.
func sign(v float64) float64 {
	if scalar.EqualWithinAbs(v, 0, 1e-12) {
		return 1
	}
	return v / math.Abs(v)
}

// dot performs the inner product.
func dot(a, b []float64) float64 {
	return floats.Dot(a, b)
}

// cross returns the z component of the cross product of two planar vectors, e.g. the
// specific angular momentum for R x V.
func cross(a, b []float64) float64 {
	return a[0]*b[1] - a[1]*b[0]
}

// scaled returns s*a without altering a.
func scaled(s float64, a []float64) []float64 {
	b := make([]float64, len(a))
	floats.ScaleTo(b, s, a)
	return b
}

// finite returns whether all the provided values are finite.
func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
