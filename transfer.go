package ascent

import (
	"math"
	"time"
)

// Hohmann returns the Δv of both burns and the time of flight of a Hohmann transfer between
// two circular orbits of radii rI and rF. The Δv are negative when lowering the orbit.
func Hohmann(rI, rF float64, c CelestialObject) (Δv1, Δv2 float64, tof time.Duration) {
	aTransfer := 0.5 * (rI + rF)
	vDeparture := math.Sqrt((2 * c.GM() / rI) - (c.GM() / aTransfer))
	vArrival := math.Sqrt((2 * c.GM() / rF) - (c.GM() / aTransfer))
	Δv1 = vDeparture - math.Sqrt(c.GM()/rI)
	Δv2 = math.Sqrt(c.GM()/rF) - vArrival
	tof = time.Duration(math.Pi * math.Sqrt(math.Pow(aTransfer, 3)/c.GM()) * float64(time.Second))
	return
}

// CircularizationΔv returns the prograde Δv needed at apoapsis to circularize the orbit.
// It is not defined for unbounded or degenerate orbits, and for apoapsides below the surface.
func CircularizationΔv(o OrbitalElements, c CelestialObject) (Δv float64, ok bool) {
	if !o.Valid || !o.Bounded || o.Apoapsis < 0 {
		return 0, false
	}
	rA := o.Apoapsis + c.Radius
	vA := math.Sqrt(c.GM() * (2/rA - 1/o.SemiMajorAxis))
	Δv = math.Sqrt(c.GM()/rA) - vA
	return Δv, finite(Δv)
}

// TransferΔv returns the Δv of a Hohmann transfer from a circular orbit at the periapsis of o
// to a circular orbit at the provided altitude.
func TransferΔv(o OrbitalElements, altitude float64, c CelestialObject) (Δv float64, ok bool) {
	if !o.Valid || !o.Bounded || o.Periapsis < 0 {
		return 0, false
	}
	Δv1, Δv2, _ := Hohmann(o.Periapsis+c.Radius, altitude+c.Radius, c)
	Δv = math.Abs(Δv1) + math.Abs(Δv2)
	return Δv, finite(Δv)
}
