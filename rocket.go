package ascent

import (
	"errors"
	"fmt"
)

var (
	// ErrNoStages is returned when a rocket has no stage.
	ErrNoStages = errors.New("rocket has no stages")
	// ErrInvalidStage is returned when a stage has a non physical definition.
	ErrInvalidStage = errors.New("invalid stage")
	// ErrInvalidGeometry is returned when the vehicle length or a stage diameter is not positive.
	ErrInvalidGeometry = errors.New("invalid geometry")
	// ErrInvalidTarget is returned when the target orbit cannot be reached by the guidance.
	ErrInvalidTarget = errors.New("invalid target orbit")
)

// RocketConfig defines a launch vehicle. It is never modified during a mission.
type RocketConfig struct {
	Name                    string  `mapstructure:"name" json:"name"`
	Stages                  []Stage `mapstructure:"stages" json:"stages"`
	Length                  float64 `mapstructure:"length" json:"length"`                                       // m
	PayloadMass             float64 `mapstructure:"payload_mass" json:"payload_mass"`                           // kg
	FairingMass             float64 `mapstructure:"fairing_mass" json:"fairing_mass"`                           // kg
	FairingJettisonAltitude float64 `mapstructure:"fairing_jettison_altitude" json:"fairing_jettison_altitude"` // m
}

// String implements the Stringer interface.
func (r RocketConfig) String() string {
	return fmt.Sprintf("%s (%d stages, %.1f t)", r.Name, len(r.Stages), r.LiftoffMass()/1e3)
}

// Validate returns an error if the configuration cannot be flown.
func (r RocketConfig) Validate() error {
	if len(r.Stages) == 0 {
		return ErrNoStages
	}
	if !finite(r.Length) || r.Length <= 0 {
		return fmt.Errorf("%w: length of %f m", ErrInvalidGeometry, r.Length)
	}
	if !finite(r.PayloadMass, r.FairingMass, r.FairingJettisonAltitude) || r.PayloadMass < 0 || r.FairingMass < 0 {
		return fmt.Errorf("%w: payload or fairing", ErrInvalidStage)
	}
	for i, s := range r.Stages {
		if !finite(s.Diameter) || s.Diameter <= 0 {
			return fmt.Errorf("%w: stage %d diameter of %f m", ErrInvalidGeometry, i, s.Diameter)
		}
		if !finite(s.ThrustSL, s.ThrustVac, s.IspSL, s.IspVac, s.PropellantMass, s.DryMass) {
			return fmt.Errorf("%w: stage %d has non finite values", ErrInvalidStage, i)
		}
		if s.ThrustSL < 0 || s.ThrustVac <= 0 || s.IspSL < 0 || s.IspVac <= 0 || s.PropellantMass < 0 || s.DryMass < 0 {
			return fmt.Errorf("%w: stage %d (%s)", ErrInvalidStage, i, s.Name)
		}
	}
	return nil
}

// Airframe returns the aerodynamic geometry when the provided stage is active.
func (r RocketConfig) Airframe(stage int) Airframe {
	a := Airframe{Length: r.Length}
	if stage >= 0 && stage < len(r.Stages) {
		a.Diameter = r.Stages[stage].Diameter
	}
	return a
}

// Mass returns the total mass of the vehicle: payload, fairing until its jettison, and the
// dry and remaining propellant mass of the active and all later stages.
func (r RocketConfig) Mass(stage int, propellant []float64, fairingJettisoned bool) float64 {
	mass := r.PayloadMass
	if !fairingJettisoned {
		mass += r.FairingMass
	}
	if stage < 0 {
		stage = 0
	}
	for i := stage; i < len(r.Stages); i++ {
		mass += r.Stages[i].DryMass
		if i < len(propellant) && propellant[i] > 0 {
			mass += propellant[i]
		}
	}
	return mass
}

// LiftoffMass returns the fully fueled mass of the vehicle.
func (r RocketConfig) LiftoffMass() float64 {
	return r.Mass(0, r.InitialPropellant(), false)
}

// InitialPropellant returns the loaded propellant of each stage.
func (r RocketConfig) InitialPropellant() []float64 {
	prop := make([]float64, len(r.Stages))
	for i, s := range r.Stages {
		prop[i] = s.PropellantMass
	}
	return prop
}

// DefaultRocket returns a two stage kerolox medium lift launcher.
func DefaultRocket() RocketConfig {
	return RocketConfig{
		Name: "Medium lifter",
		Stages: []Stage{
			{Name: "Booster", ThrustSL: 7607e3, ThrustVac: 8227e3, IspSL: 282, IspVac: 311,
				PropellantMass: 411e3, DryMass: 22.2e3, Diameter: 3.7},
			{Name: "Upper stage", ThrustSL: 850e3, ThrustVac: 981e3, IspSL: 300, IspVac: 348,
				PropellantMass: 107.5e3, DryMass: 4e3, Diameter: 3.7},
		},
		Length:                  70,
		PayloadMass:             15e3,
		FairingMass:             1.7e3,
		FairingJettisonAltitude: 110e3,
	}
}
