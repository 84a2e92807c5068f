package ascent

import (
	"fmt"
	"strings"
)

const (
	// g0 is the standard gravity in m/s^2, used for Isp conversions and geopotential heights.
	g0 = 9.80665
)

// CelestialObject defines the body the vehicle launches from.
// All quantities are SI: the radius is in meters, μ in m^3/s^2 and the rotation rate in rad/s.
type CelestialObject struct {
	Name   string
	Radius float64
	μ      float64
	ω      float64 // Sidereal rotation rate
}

// GM returns μ (which is unexported because it's a lowercase letter)
func (c CelestialObject) GM() float64 {
	return c.μ
}

// RotationRate returns the sidereal rotation rate of the body, which the atmosphere shares.
func (c CelestialObject) RotationRate() float64 {
	return c.ω
}

// String implements the Stringer interface.
func (c CelestialObject) String() string {
	return c.Name + " body"
}

// Equals returns whether the provided celestial object is the same.
func (c CelestialObject) Equals(b CelestialObject) bool {
	return c.Name == b.Name && c.Radius == b.Radius && c.μ == b.μ && c.ω == b.ω
}

// Altitude returns the geometric altitude above the mean radius of the position R.
func (c CelestialObject) Altitude(R []float64) float64 {
	return norm(R) - c.Radius
}

// SurfaceVelocity returns the velocity of the co-rotating atmosphere at R, i.e. ω×R.
func (c CelestialObject) SurfaceVelocity(R []float64) []float64 {
	ω := c.RotationRate()
	return []float64{-ω * R[1], ω * R[0]}
}

// Gravity returns the point mass gravitational acceleration at R.
// A radius of zero yields a zero acceleration instead of an infinite one.
func (c CelestialObject) Gravity(R []float64) []float64 {
	r := norm(R)
	if r < 1 {
		return []float64{0, 0}
	}
	acc := -c.GM() / (r * r * r)
	return []float64{acc * R[0], acc * R[1]}
}

// PadState returns the inertial position and velocity of a vehicle resting on the equator at
// zero longitude, i.e. at rest in the rotating frame.
func (c CelestialObject) PadState() (R, V []float64) {
	R = []float64{c.Radius, 0}
	return R, c.SurfaceVelocity(R)
}

// CelestialObjectFromString returns the object from its name
func CelestialObjectFromString(name string) (CelestialObject, error) {
	switch strings.ToLower(name) {
	case "earth":
		return Earth, nil
	case "mars":
		return Mars, nil
	default:
		return CelestialObject{}, fmt.Errorf("undefined planet '%s'", name)
	}
}

/* Definitions */

// Earth is home.
var Earth = CelestialObject{"Earth", 6371000, 3.986004418e14, 7.2921159e-5}

// Mars is the vacation place. There is no Martian atmosphere model, so ascents from Mars
// must disable drag.
var Mars = CelestialObject{"Mars", 3389500, 4.282837e13, 7.088218e-5}
