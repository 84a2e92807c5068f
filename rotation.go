package ascent

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// R3 rotation about the axis normal to the plane of motion (passive convention, as for ECI2ECEF).
func R3(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(2, 2, []float64{c, s, -s, c})
}

// MxV22 multiplies a matrix with a vector. Note that there is no dimension check!
func MxV22(m mat.Matrix, v []float64) (o []float64) {
	var rVec mat.VecDense
	rVec.MulVec(m, mat.NewVecDense(len(v), v))
	return []float64{rVec.AtVec(0), rVec.AtVec(1)}
}

// LocalFrame returns the local vertical (radial) and local horizontal unit vectors at R.
// The horizontal points toward the direction of rotation of the body, i.e. downrange for an
// eastward launch.
func LocalFrame(R []float64) (up, horizontal []float64) {
	up = unit(R)
	horizontal = []float64{-up[1], up[0]}
	return
}

// local2inertial returns the rotation matrix from the (horizontal, up) frame at R to inertial.
func local2inertial(R []float64) *mat.Dense {
	up, hz := LocalFrame(R)
	return mat.NewDense(2, 2, []float64{hz[0], up[0], hz[1], up[1]})
}

// Local2Inertial converts a (horizontal, vertical) vector at R to the inertial frame.
func Local2Inertial(R, local []float64) []float64 {
	return MxV22(local2inertial(R), local)
}

// Inertial2Local converts an inertial vector to its (horizontal, vertical) components at R.
func Inertial2Local(R, v []float64) []float64 {
	return MxV22(local2inertial(R).T(), v)
}

// ElevationAngle returns the angle in degrees of v above the local horizontal at R, measured
// in the downrange sense. A null vector is considered vertical.
func ElevationAngle(R, v []float64) float64 {
	l := Inertial2Local(R, v)
	if norm(l) < 1e-9 {
		return 90
	}
	return math.Atan2(l[1], l[0]) / deg2rad
}

// ThrustDirection returns the inertial unit vector for a pitch (in degrees) above the local
// horizontal at R. A retrograde orientation flips the along track component only, so that
// pitch remains the elevation above the horizon.
func ThrustDirection(R []float64, pitch float64, o Orientation) []float64 {
	s, c := math.Sincos(pitch * deg2rad)
	if o == Retrograde {
		c = -c
	}
	return Local2Inertial(R, []float64{c, s})
}

// ECI2ECEF converts the provided inertial vector to the body fixed frame for the rotation angle θ
// in radians.
func ECI2ECEF(R []float64, θ float64) []float64 {
	return MxV22(R3(θ), R)
}

// ECEF2ECI converts the provided body fixed vector to the inertial frame for the rotation angle θ.
func ECEF2ECI(R []float64, θ float64) []float64 {
	return ECI2ECEF(R, -θ)
}

// Downrange returns the surface distance between the launch pad and the sub-vehicle point at
// the simulation time t, accounting for the rotation of the body.
func Downrange(R []float64, t float64, c CelestialObject) float64 {
	fixed := ECI2ECEF(R, c.ω*t)
	return c.Radius * math.Atan2(fixed[1], fixed[0])
}
