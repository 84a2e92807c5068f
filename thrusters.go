package ascent

// Thruster defines the interface of a chemical engine whose performance depends on the
// ambient pressure.
type Thruster interface {
	// Returns the thrust in Newtons and isp in seconds for the ambient to sea level pressure
	// ratio and the throttle.
	Thrust(pressureRatio, throttle float64) (thrust, isp float64)
}

// Stage is a single stage of the launch vehicle. It implements the Thruster interface.
type Stage struct {
	Name           string  `mapstructure:"name" json:"name"`
	ThrustSL       float64 `mapstructure:"thrust_sl" json:"thrust_sl"`             // N
	ThrustVac      float64 `mapstructure:"thrust_vac" json:"thrust_vac"`           // N
	IspSL          float64 `mapstructure:"isp_sl" json:"isp_sl"`                   // s
	IspVac         float64 `mapstructure:"isp_vac" json:"isp_vac"`                 // s
	PropellantMass float64 `mapstructure:"propellant_mass" json:"propellant_mass"` // kg
	DryMass        float64 `mapstructure:"dry_mass" json:"dry_mass"`               // kg
	Diameter       float64 `mapstructure:"diameter" json:"diameter"`               // m
}

// Thrust implements the Thruster interface.
func (s Stage) Thrust(pressureRatio, throttle float64) (thrust, isp float64) {
	ratio := pressureRatio
	if !finite(ratio) {
		ratio = 0
	}
	ratio = clamp(ratio, 0, 1)
	if !finite(throttle) {
		throttle = 0
	}
	throttle = clamp(throttle, 0, 1)
	thrust = (s.ThrustVac + (s.ThrustSL-s.ThrustVac)*ratio) * throttle
	isp = s.IspVac + (s.IspSL-s.IspVac)*ratio
	return
}

// MassFlow returns the propellant mass flow rate in kg/s for a given thrust and isp.
func MassFlow(thrust, isp float64) float64 {
	if thrust <= 0 || isp <= 0 {
		return 0
	}
	return thrust / (isp * g0)
}

// Propulsion returns the thrust in Newtons and the mass flow rate in kg/s of the active stage
// at the provided ambient pressure. There is no thrust if the engine is off, if the stage does
// not exist, or if the stage has no propellant left.
func Propulsion(r RocketConfig, stage int, propellant float64, engineOn bool, pressure, throttle float64) (thrust, mdot float64) {
	if !engineOn || stage < 0 || stage >= len(r.Stages) || propellant <= 0 {
		return 0, 0
	}
	thrust, isp := r.Stages[stage].Thrust(pressure/SeaLevelPressure(), throttle)
	return thrust, MassFlow(thrust, isp)
}
