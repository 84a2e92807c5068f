package ascent

// Perturbations defines the non gravitational forces applied during the propagation, in
// addition to the thrust.
type Perturbations struct {
	DisableDrag bool // Vacuum propagation, e.g. for bodies without an atmosphere model
}

// Perturb returns the perturbing acceleration in m/s^2 on a vehicle of the provided mass and
// airframe, and the aerodynamic state used to compute it.
func (p Perturbations) Perturb(c CelestialObject, R, V []float64, a Airframe, mass float64) (acc []float64, aero AeroSample) {
	acc = []float64{0, 0}
	if p.DisableDrag {
		aero.Airspeed = norm(AirRelativeVelocity(c, R, V))
		return
	}
	var drag []float64
	drag, aero = Aerodynamics(c, R, V, a)
	if mass > 0 {
		acc[0] += drag[0] / mass
		acc[1] += drag[1] / mass
	}
	return
}
