package ascent

import (
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func assertPanic(t *testing.T, f func()) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("code did not panic")
		}
	}()
	f()
}

func vectorsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := len(a) - 1; i >= 0; i-- {
		if !scalar.EqualWithinAbs(a[i], b[i], 1e-9) && !scalar.EqualWithinRel(a[i], b[i], 1e-6) {
			return false
		}
	}
	return true
}

// radii2ae returns the semi major axis and the eccentricity from the apoapsis and periapsis radii.
func radii2ae(rA, rP float64) (a, e float64) {
	return (rP + rA) / 2, (rA - rP) / (rA + rP)
}
