package ascent

import "math"

const (
	// referenceFineness is the length to diameter ratio for which the baseline Cd curve holds.
	referenceFineness = 11.0
)

// Airframe is the aerodynamic geometry of the vehicle.
type Airframe struct {
	Length   float64 // m
	Diameter float64 // m, of the active stage
}

// Area returns the cross sectional area.
func (a Airframe) Area() float64 {
	if !finite(a.Diameter) || a.Diameter <= 0 {
		return 0
	}
	return math.Pi * a.Diameter * a.Diameter / 4
}

// FinenessCorrection returns the factor applied to the baseline drag coefficient. Slender
// vehicles have less drag; degenerate geometries are not corrected.
func (a Airframe) FinenessCorrection() float64 {
	if !finite(a.Length, a.Diameter) || a.Length <= 0 || a.Diameter <= 0 {
		return 1
	}
	return math.Min(1, referenceFineness/(a.Length/a.Diameter))
}

// DragCoefficient returns the corrected drag coefficient for this airframe.
func (a Airframe) DragCoefficient(mach float64) float64 {
	return BaseDragCoefficient(mach) * a.FinenessCorrection()
}

// lerp interpolates linearly between y0 and y1 for x in [x0, x1].
func lerp(x, x0, x1, y0, y1 float64) float64 {
	return y0 + (y1-y0)*(x-x0)/(x1-x0)
}

// BaseDragCoefficient returns the baseline Cd of a slender launch vehicle as a function of the
// Mach number. The transonic rise uses a smoothstep.
func BaseDragCoefficient(mach float64) float64 {
	switch {
	case !finite(mach) || mach < 0:
		return 0
	case mach < 0.6:
		return 0.30
	case mach < 0.8:
		return lerp(mach, 0.6, 0.8, 0.30, 0.32)
	case mach < 1.0:
		t := (mach - 0.8) / 0.2
		return 0.32 + 0.18*t*t*(3-2*t)
	case mach < 1.05:
		return lerp(mach, 1.0, 1.05, 0.50, 0.52)
	case mach < 1.2:
		return lerp(mach, 1.05, 1.2, 0.52, 0.46)
	case mach < 2.0:
		return lerp(mach, 1.2, 2.0, 0.46, 0.36)
	case mach < 3.0:
		return lerp(mach, 2.0, 3.0, 0.36, 0.30)
	case mach < 5.0:
		return lerp(mach, 3.0, 5.0, 0.30, 0.25)
	default:
		return 0.22 + 0.03*math.Exp(-(mach-5)/2)
	}
}

// Mach returns the Mach number, or zero for degenerate inputs.
func Mach(airspeed, speedOfSound float64) float64 {
	if !finite(airspeed, speedOfSound) || airspeed < 0 || speedOfSound <= 0 {
		return 0
	}
	return airspeed / speedOfSound
}

// AirRelativeVelocity returns the velocity with respect to the co-rotating atmosphere.
func AirRelativeVelocity(c CelestialObject, R, V []float64) []float64 {
	w := c.SurfaceVelocity(R)
	return []float64{V[0] - w[0], V[1] - w[1]}
}

// AeroSample stores the aerodynamic state of the vehicle.
type AeroSample struct {
	Atmosphere      AtmosphericSample `json:"atmosphere"`
	Airspeed        float64           `json:"airspeed"` // m/s
	Mach            float64           `json:"mach"`
	Cd              float64           `json:"cd"`
	DynamicPressure float64           `json:"dynamic_pressure"` // Pa
}

// Aerodynamics returns the drag force in Newtons and the aerodynamic state at R, V.
func Aerodynamics(c CelestialObject, R, V []float64, a Airframe) (drag []float64, s AeroSample) {
	drag = []float64{0, 0}
	s.Atmosphere = Atmosphere(c.Altitude(R))
	rel := AirRelativeVelocity(c, R, V)
	s.Airspeed = norm(rel)
	if !finite(s.Airspeed) {
		s.Airspeed = 0
		return
	}
	s.Mach = Mach(s.Airspeed, s.Atmosphere.SpeedOfSound)
	s.Cd = a.DragCoefficient(s.Mach)
	s.DynamicPressure = 0.5 * s.Atmosphere.Density * s.Airspeed * s.Airspeed
	if s.Airspeed < 1e-9 {
		return
	}
	mag := s.DynamicPressure * s.Cd * a.Area()
	drag[0] = -mag * rel[0] / s.Airspeed
	drag[1] = -mag * rel[1] / s.Airspeed
	return
}
