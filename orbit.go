package ascent

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

const (
	eccentricityε = 1e-4 // Below this, the orbit is considered circular
)

// OrbitalElements defines the planar osculating orbit of the vehicle.
// Apoapsis and periapsis are altitudes above the mean radius of the body, angles are in degrees.
type OrbitalElements struct {
	Valid           bool    // False when the state is degenerate
	Bounded         bool    // True for elliptical orbits
	Apoapsis        float64 // m, +Inf if unbounded
	Periapsis       float64 // m
	SemiMajorAxis   float64 // m, negative for hyperbolic trajectories
	Eccentricity    float64
	Period          float64 // s, +Inf if unbounded
	Energyξ         float64 // Specific mechanical energy, J/kg
	H               float64 // Specific angular momentum, m^2/s (positive for prograde)
	FlightPathAngle float64 // deg
	TrueAnomaly     float64 // deg, in [0, 360)
	TimeToApoapsis  float64 // s, +Inf if unbounded
	TimeToPeriapsis float64 // s, +Inf if unbounded
	Ascending       bool    // Radial velocity is positive or null
}

// ElementsFromRV returns the orbital elements from the R and V vectors.
func ElementsFromRV(R, V []float64, c CelestialObject) (o OrbitalElements) {
	if len(R) < 2 || len(V) < 2 || !finite(R[0], R[1], V[0], V[1]) || c.μ <= 0 {
		return
	}
	r := norm(R)
	if r < 1 {
		return
	}
	// From Vallado's RV2COE, restricted to the plane.
	μ := c.μ
	v := norm(V)
	rDotV := dot(R, V)
	o.Valid = true
	o.H = cross(R, V)
	o.Energyξ = v*v/2 - μ/r
	o.SemiMajorAxis = -μ / (2 * o.Energyξ)
	eVec := make([]float64, 2)
	for i := 0; i < 2; i++ {
		eVec[i] = ((v*v-μ/r)*R[i] - rDotV*V[i]) / μ
	}
	e := norm(eVec)
	o.Eccentricity = e
	o.Ascending = rDotV >= 0
	vr := rDotV / r
	vh := o.H / r
	o.FlightPathAngle = math.Atan2(vr, vh) / deg2rad

	var ν float64
	if e >= eccentricityε {
		cosν := dot(eVec, R) / (e * r)
		if abscosν := math.Abs(cosν); abscosν > 1 && scalar.EqualWithinAbs(abscosν, 1, 1e-9) {
			cosν = sign(cosν)
		}
		ν = math.Acos(cosν)
		if rDotV < 0 {
			ν = 2*math.Pi - ν
		}
		o.TrueAnomaly = math.Mod(ν/deg2rad, 360)
	}

	if o.Energyξ >= 0 || e >= 1 {
		p := o.H * o.H / μ
		o.Periapsis = p/(1+e) - c.Radius
		o.Apoapsis = math.Inf(1)
		o.Period = math.Inf(1)
		o.TimeToApoapsis = math.Inf(1)
		o.TimeToPeriapsis = math.Inf(1)
		return
	}
	a := o.SemiMajorAxis
	o.Bounded = true
	o.Apoapsis = a*(1+e) - c.Radius
	o.Periapsis = a*(1-e) - c.Radius
	o.Period = 2 * math.Pi * math.Sqrt(a*a*a/μ)
	if e >= eccentricityε {
		o.TimeToPeriapsis, o.TimeToApoapsis = timesToApsides(ν, e, o.Period)
	}
	return
}

// timesToApsides solves Kepler's equation for the time from the true anomaly ν to the next
// periapsis and apoapsis passages.
func timesToApsides(ν, e, period float64) (toPeri, toApo float64) {
	sinν, cosν := math.Sincos(ν)
	E := math.Atan2(math.Sqrt(1-e*e)*sinν, e+cosν)
	if E < 0 {
		E += 2 * math.Pi
	}
	M := E - e*math.Sin(E)
	n := 2 * math.Pi / period
	toPeri = math.Mod(2*math.Pi-M, 2*math.Pi) / n
	toApo = (math.Pi - M) / n
	if toApo < 0 {
		toApo += period
	}
	return
}

// String implements the Stringer interface.
func (o OrbitalElements) String() string {
	if !o.Valid {
		return "undefined orbit"
	}
	return fmt.Sprintf("Ap=%.1f km Pe=%.1f km e=%.5f a=%.1f km γ=%.3f", o.Apoapsis/1e3, o.Periapsis/1e3, o.Eccentricity, o.SemiMajorAxis/1e3, o.FlightPathAngle)
}

// MarshalJSON implements the json.Marshaler interface. Non finite values are encoded as null.
func (o OrbitalElements) MarshalJSON() ([]byte, error) {
	num := func(v float64) *float64 {
		if !finite(v) {
			return nil
		}
		return &v
	}
	return json.Marshal(struct {
		Valid           bool     `json:"valid"`
		Bounded         bool     `json:"bounded"`
		Apoapsis        *float64 `json:"apoapsis"`
		Periapsis       *float64 `json:"periapsis"`
		SemiMajorAxis   *float64 `json:"semi_major_axis"`
		Eccentricity    *float64 `json:"eccentricity"`
		Period          *float64 `json:"period"`
		Energy          *float64 `json:"energy"`
		H               *float64 `json:"angular_momentum"`
		FlightPathAngle *float64 `json:"flight_path_angle"`
		TrueAnomaly     *float64 `json:"true_anomaly"`
		TimeToApoapsis  *float64 `json:"time_to_apoapsis"`
		TimeToPeriapsis *float64 `json:"time_to_periapsis"`
		Ascending       bool     `json:"ascending"`
	}{o.Valid, o.Bounded, num(o.Apoapsis), num(o.Periapsis), num(o.SemiMajorAxis), num(o.Eccentricity),
		num(o.Period), num(o.Energyξ), num(o.H), num(o.FlightPathAngle), num(o.TrueAnomaly),
		num(o.TimeToApoapsis), num(o.TimeToPeriapsis), o.Ascending})
}

// NewStateFromOE returns the planar R and V vectors of a prograde orbit.
// WARNING: Angles must be in degrees not radian.
func NewStateFromOE(a, e, ω, ν float64, c CelestialObject) (R, V []float64) {
	p := a * (1 - e*e)
	sinν, cosν := math.Sincos(ν * deg2rad)
	rPQW := []float64{p * cosν / (1 + e*cosν), p * sinν / (1 + e*cosν)}
	vPQW := []float64{-math.Sqrt(c.μ/p) * sinν, math.Sqrt(c.μ/p) * (e + cosν)}
	θ := ω * deg2rad
	return ECEF2ECI(rPQW, θ), ECEF2ECI(vPQW, θ)
}
