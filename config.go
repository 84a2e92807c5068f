package ascent

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// envPrefix prefixes the environment overrides, e.g. ASCENT_GUIDANCE_TARGET_ALTITUDE.
	envPrefix = "ASCENT"
	// envConfig is the environment variable of the default scenario file.
	envConfig = "ASCENT_CONFIG"
)

var (
	// ErrInvalidSimulation is returned for non physical integration settings.
	ErrInvalidSimulation = errors.New("invalid simulation settings")
	// ErrNoAtmosphere is returned when drag is enabled on a body without an atmosphere model.
	ErrNoAtmosphere = errors.New("no atmosphere model for this body")
)

// SimConfig defines the integration and pacing of the simulation.
type SimConfig struct {
	Body             string        `mapstructure:"body"`
	TimeAcceleration float64       `mapstructure:"time_acceleration"`
	MaxStep          float64       `mapstructure:"max_step"`       // s of simulated time per Advance
	PoweredStep      float64       `mapstructure:"powered_step"`   // s
	CoastStep        float64       `mapstructure:"coast_step"`     // s
	CoastAltitude    float64       `mapstructure:"coast_altitude"` // m, above which CoastStep applies
	MaxSubSteps      int           `mapstructure:"max_sub_steps"`
	LiftoffGrace     float64       `mapstructure:"liftoff_grace"`  // s
	TrailInterval    float64       `mapstructure:"trail_interval"` // s
	TrailLength      int           `mapstructure:"trail_length"`
	DisableDrag      bool          `mapstructure:"disable_drag"`
	Duration         time.Duration `mapstructure:"duration"` // Batch runs only
	Tick             time.Duration `mapstructure:"tick"`     // Wall clock period of the frame loop
}

// DefaultSimConfig returns the simulation settings of a real time Earth launch.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Body:             "earth",
		TimeAcceleration: 1,
		MaxStep:          1,
		PoweredStep:      0.05,
		CoastStep:        0.01,
		CoastAltitude:    150e3,
		MaxSubSteps:      1000,
		LiftoffGrace:     1,
		TrailInterval:    1,
		TrailLength:      600,
		Duration:         15 * time.Minute,
		Tick:             50 * time.Millisecond,
	}
}

// Validate returns an error if the settings cannot be integrated.
func (s SimConfig) Validate() error {
	if !finite(s.TimeAcceleration, s.MaxStep, s.PoweredStep, s.CoastStep, s.CoastAltitude, s.LiftoffGrace, s.TrailInterval) {
		return fmt.Errorf("%w: non finite values", ErrInvalidSimulation)
	}
	if s.TimeAcceleration <= 0 {
		return fmt.Errorf("%w: time acceleration of %f", ErrInvalidSimulation, s.TimeAcceleration)
	}
	if s.MaxStep <= 0 || s.PoweredStep <= 0 || s.CoastStep <= 0 || s.MaxSubSteps < 1 {
		return fmt.Errorf("%w: steps must be positive", ErrInvalidSimulation)
	}
	if s.TrailInterval <= 0 || s.TrailLength < 1 {
		return fmt.Errorf("%w: trail of %d points every %f s", ErrInvalidSimulation, s.TrailLength, s.TrailInterval)
	}
	return nil
}

// Scenario is a complete mission definition.
type Scenario struct {
	Name     string         `mapstructure:"name"`
	Rocket   RocketConfig   `mapstructure:"rocket"`
	Guidance GuidanceConfig `mapstructure:"guidance"`
	Sim      SimConfig      `mapstructure:"sim"`
	Export   ExportConfig   `mapstructure:"export"`
}

// DefaultScenario returns a two stage ascent to a 400 km circular orbit.
func DefaultScenario() Scenario {
	return Scenario{
		Name:     "ascent",
		Rocket:   DefaultRocket(),
		Guidance: DefaultGuidance(),
		Sim:      DefaultSimConfig(),
		Export:   ExportConfig{Filename: "ascent", Epoch: time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)},
	}
}

// Validate returns the first configuration error of this scenario.
func (s Scenario) Validate() error {
	if err := s.Rocket.Validate(); err != nil {
		return err
	}
	if err := s.Guidance.Validate(); err != nil {
		return err
	}
	if err := s.Sim.Validate(); err != nil {
		return err
	}
	body, err := CelestialObjectFromString(s.Sim.Body)
	if err != nil {
		return err
	}
	if !body.Equals(Earth) && !s.Sim.DisableDrag {
		return fmt.Errorf("%w: %s", ErrNoAtmosphere, body.Name)
	}
	return nil
}

// DefaultScenarioPath returns the scenario file from the environment, or scenario.toml.
func DefaultScenarioPath() string {
	if path := os.Getenv(envConfig); path != "" {
		return path
	}
	return "scenario.toml"
}

// LoadScenario reads the scenario file (TOML unless its extension says otherwise) on top of
// the default scenario. Every key may be overridden by an ASCENT_ prefixed environment
// variable. The default stages are only used if the file defines none.
func LoadScenario(path string) (Scenario, error) {
	def := DefaultScenario()
	v := viper.New()
	setDefaults(v, def)
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("toml")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return Scenario{}, fmt.Errorf("%s: %w", path, err)
	}

	s := def
	s.Rocket.Stages = nil
	if err := v.Unmarshal(&s); err != nil {
		return Scenario{}, fmt.Errorf("%s: %w", path, err)
	}
	if !v.IsSet("rocket.stages") {
		s.Rocket.Stages = def.Rocket.Stages
	}
	if v.IsSet("export.epoch") {
		s.Export.Epoch = v.GetTime("export.epoch")
	}
	return s, s.Validate()
}

// setDefaults registers every scalar key so that environment variables can override them.
func setDefaults(v *viper.Viper, s Scenario) {
	v.SetDefault("name", s.Name)

	r := s.Rocket
	v.SetDefault("rocket.name", r.Name)
	v.SetDefault("rocket.length", r.Length)
	v.SetDefault("rocket.payload_mass", r.PayloadMass)
	v.SetDefault("rocket.fairing_mass", r.FairingMass)
	v.SetDefault("rocket.fairing_jettison_altitude", r.FairingJettisonAltitude)

	g := s.Guidance
	v.SetDefault("guidance.target_altitude", g.TargetAltitude)
	v.SetDefault("guidance.tolerance", g.Tolerance)
	v.SetDefault("guidance.safe_periapsis", g.SafePeriapsis)
	v.SetDefault("guidance.kick_start", g.KickStart)
	v.SetDefault("guidance.kick_end", g.KickEnd)
	v.SetDefault("guidance.kick_angle", g.KickAngle)
	v.SetDefault("guidance.max_q_fraction", g.MaxQFraction)
	v.SetDefault("guidance.max_q_floor", g.MaxQFloor)
	v.SetDefault("guidance.min_vertical_speed", g.MinVerticalSpeed)
	v.SetDefault("guidance.vertical_speed_gain", g.VerticalSpeedGain)
	v.SetDefault("guidance.initial_fpa", g.InitialFPA)
	v.SetDefault("guidance.fpa_gain", g.FPAGain)
	v.SetDefault("guidance.throttle_band", g.ThrottleBand)
	v.SetDefault("guidance.min_throttle", g.MinThrottle)
	v.SetDefault("guidance.apsis_lead", g.ApsisLead)
	v.SetDefault("guidance.direct_ascent", g.DirectAscent)
	v.SetDefault("guidance.insertion_pitch_min", g.InsertionPitchMin)
	v.SetDefault("guidance.insertion_pitch_max", g.InsertionPitchMax)
	v.SetDefault("guidance.circular_eccentricity", g.CircularEccentricity)

	c := s.Sim
	v.SetDefault("sim.body", c.Body)
	v.SetDefault("sim.time_acceleration", c.TimeAcceleration)
	v.SetDefault("sim.max_step", c.MaxStep)
	v.SetDefault("sim.powered_step", c.PoweredStep)
	v.SetDefault("sim.coast_step", c.CoastStep)
	v.SetDefault("sim.coast_altitude", c.CoastAltitude)
	v.SetDefault("sim.max_sub_steps", c.MaxSubSteps)
	v.SetDefault("sim.liftoff_grace", c.LiftoffGrace)
	v.SetDefault("sim.trail_interval", c.TrailInterval)
	v.SetDefault("sim.trail_length", c.TrailLength)
	v.SetDefault("sim.disable_drag", c.DisableDrag)
	v.SetDefault("sim.duration", c.Duration)
	v.SetDefault("sim.tick", c.Tick)

	e := s.Export
	v.SetDefault("export.filename", e.Filename)
	v.SetDefault("export.output_dir", e.OutputDir)
	v.SetDefault("export.cosmo", e.Cosmo)
	v.SetDefault("export.csv", e.AsCSV)
	v.SetDefault("export.timestamp", e.Timestamp)
}
