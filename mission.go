package ascent

import (
	"errors"
	"fmt"
	"math"

	kitlog "github.com/go-kit/log"
)

const (
	// KarmanLine is the conventional boundary of space in meters.
	KarmanLine = 100e3
	// maxQDrop is the fraction of the peak dynamic pressure below which max-Q is announced.
	maxQDrop = 0.95
)

// ErrInvalidWarp is returned for a time acceleration which is not strictly positive.
var ErrInvalidWarp = errors.New("time acceleration must be strictly positive")

// VehicleState is the dynamic state of the launch vehicle. It is only modified by Advance.
type VehicleState struct {
	R                  []float64 `json:"position"` // m, body centered inertial
	V                  []float64 `json:"velocity"` // m/s
	Time               float64   `json:"time"`     // s since the start of the mission
	Stage              int       `json:"stage"`
	Propellant         []float64 `json:"propellant"` // kg, per stage
	EngineOn           bool      `json:"engine_on"`
	BurnMode           BurnMode  `json:"burn_mode"`
	FairingJettisoned  bool      `json:"fairing_jettisoned"`
	MaxDynamicPressure float64   `json:"max_dynamic_pressure"` // Pa
	LiftedOff          bool      `json:"lifted_off"`
	Running            bool      `json:"running"`
	Impacted           bool      `json:"impacted"`
}

func (s VehicleState) clone() VehicleState {
	c := s
	c.R = append([]float64(nil), s.R...)
	c.V = append([]float64(nil), s.V...)
	c.Propellant = append([]float64(nil), s.Propellant...)
	return c
}

// Snapshot is a read only copy of the mission state.
type Snapshot struct {
	Mission   string          `json:"mission"`
	Body      string          `json:"body"`
	State     VehicleState    `json:"state"`
	Command   GuidanceCommand `json:"command"`
	Elements  OrbitalElements `json:"elements"`
	Aero      AeroSample      `json:"aero"`
	Altitude  float64         `json:"altitude"` // m
	Speed     float64         `json:"speed"`    // m/s, inertial
	Mass      float64         `json:"mass"`     // kg
	Thrust    float64         `json:"thrust"`   // N
	Downrange float64         `json:"downrange"`
	Warp      float64         `json:"time_acceleration"`
	Trail     [][]float64     `json:"trail"`

	// CircularizationΔv is the Δv needed at apoapsis to circularize, zero if undefined.
	CircularizationΔv float64 `json:"circularization_dv"`
	// TransferΔv is the Δv of a Hohmann transfer from the periapsis to the target, zero if undefined.
	TransferΔv float64 `json:"transfer_dv"`
}

// Mission flies a launch vehicle from the pad to orbit.
type Mission struct {
	Name     string
	Rocket   RocketConfig
	Guidance GuidanceConfig
	Sim      SimConfig
	Body     CelestialObject
	Perts    Perturbations
	State    VehicleState

	logger        kitlog.Logger
	limiter       *PitchLimiter
	triggers      BurnTriggers
	command       GuidanceCommand
	elements      OrbitalElements
	aero          AeroSample
	thrust        float64
	burn          burnTracker
	trail         *Trail
	sinceTrail    float64
	events        []Event
	pending       []Event
	maxQ, karman  bool
	orbitAchieved bool
}

// NewMission returns a new mission on the pad for the provided scenario.
func NewMission(s Scenario, logger kitlog.Logger) (*Mission, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	body, err := CelestialObjectFromString(s.Sim.Body)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	m := &Mission{
		Name:     s.Name,
		Rocket:   s.Rocket,
		Guidance: s.Guidance,
		Sim:      s.Sim,
		Body:     body,
		Perts:    Perturbations{DisableDrag: s.Sim.DisableDrag},
		logger:   kitlog.With(logger, "mission", s.Name),
		limiter:  NewPitchLimiter(),
		trail:    NewTrail(s.Sim.TrailLength),
	}
	m.Reset()
	return m, nil
}

// Reset restores the vehicle on the pad and clears the flight history.
func (m *Mission) Reset() {
	R, V := m.Body.PadState()
	m.State = VehicleState{
		R:          R,
		V:          V,
		Propellant: m.Rocket.InitialPropellant(),
		EngineOn:   true,
		Running:    true,
	}
	m.limiter.Reset()
	m.triggers = BurnTriggers{}
	m.command = GuidanceCommand{Direction: unit(R), Throttle: 1, Phase: VerticalAscent, Pitch: 90, Reason: "on the pad"}
	m.elements = ElementsFromRV(R, V, m.Body)
	m.aero = AeroSample{Atmosphere: Atmosphere(0)}
	m.thrust = 0
	m.burn = burnTracker{}
	m.trail.Reset()
	m.sinceTrail = 0
	m.events = nil
	m.pending = nil
	m.maxQ, m.karman, m.orbitAchieved = false, false, false
	m.logger.Log("level", "notice", "subsys", "astro", "status", "reset", "rocket", m.Rocket, "target(km)", m.Guidance.TargetAltitude/1e3)
}

// SetBurnMode selects a manual burn mode, or BurnNone to return to the closed loop guidance.
func (m *Mission) SetBurnMode(mode BurnMode) {
	if mode > BurnAntiRadial {
		mode = BurnNone
	}
	if mode != m.State.BurnMode {
		m.logger.Log("level", "info", "subsys", "guidance", "t", m.State.Time, "burn", mode)
	}
	m.State.BurnMode = mode
}

// SetTimeAcceleration sets the ratio of simulated to wall clock time.
func (m *Mission) SetTimeAcceleration(warp float64) error {
	if !finite(warp) || warp <= 0 {
		return fmt.Errorf("%w: %f", ErrInvalidWarp, warp)
	}
	m.Sim.TimeAcceleration = warp
	return nil
}

// Events returns a copy of all the events since the start of the mission.
func (m *Mission) Events() []Event {
	return append([]Event(nil), m.events...)
}

// Running returns whether the simulation can still be advanced.
func (m *Mission) Running() bool {
	return m.State.Running
}

// Elements returns the latest orbital elements.
func (m *Mission) Elements() OrbitalElements {
	return m.elements
}

// Command returns the latest guidance command.
func (m *Mission) Command() GuidanceCommand {
	return m.command
}

// Mass returns the current mass of the vehicle.
func (m *Mission) Mass() float64 {
	return m.Rocket.Mass(m.State.Stage, m.State.Propellant, m.State.FairingJettisoned)
}

// Snapshot returns a copy of the state of the mission.
func (m *Mission) Snapshot() Snapshot {
	cmd := m.command
	cmd.Direction = append([]float64(nil), cmd.Direction...)
	circΔv, _ := CircularizationΔv(m.elements, m.Body)
	transferΔv, _ := TransferΔv(m.elements, m.Guidance.TargetAltitude, m.Body)
	return Snapshot{
		Mission:   m.Name,
		Body:      m.Body.Name,
		State:     m.State.clone(),
		Command:   cmd,
		Elements:  m.elements,
		Aero:      m.aero,
		Altitude:  m.Body.Altitude(m.State.R),
		Speed:     norm(m.State.V),
		Mass:      m.Mass(),
		Thrust:    m.thrust,
		Downrange: Downrange(m.State.R, m.State.Time, m.Body),
		Warp:      m.Sim.TimeAcceleration,
		Trail:     m.trail.Points(),

		CircularizationΔv: circΔv,
		TransferΔv:        transferΔv,
	}
}

// SubStepPlan returns the number of sub-steps and their duration to integrate dt seconds with
// sub-steps of at most size seconds, bounded to max sub-steps.
func SubStepPlan(dt, size float64, max int) (n int, h float64) {
	if !finite(dt, size) || dt <= 0 || size <= 0 || max < 1 {
		return 0, 0
	}
	steps := math.Ceil(dt / size)
	if steps > float64(max) {
		steps = float64(max)
	}
	n = int(math.Max(1, steps))
	return n, dt / float64(n)
}

// Advance propagates the mission by the wall clock duration (in seconds) scaled by the time
// acceleration and returns the events which occurred.
func (m *Mission) Advance(wallDt float64) []Event {
	if !m.State.Running {
		return nil
	}
	dt := wallDt * m.Sim.TimeAcceleration
	if !finite(dt) || dt <= 0 {
		return nil
	}
	dt = math.Min(dt, m.Sim.MaxStep)
	m.pending = nil

	var steer steering = closedLoop{}
	if m.State.BurnMode != BurnNone {
		steer = newFixedBurn(m.State.BurnMode, m.State.R, m.State.V)
	}
	size := m.Sim.PoweredStep
	if steer.coasting(m) && m.Body.Altitude(m.State.R) > m.Sim.CoastAltitude {
		size = m.Sim.CoastStep
	}
	n, h := SubStepPlan(dt, size, m.Sim.MaxSubSteps)
	for i := 0; i < n && m.State.Running; i++ {
		m.step(steer, h)
	}
	if m.State.Running {
		m.postStep(dt)
	}
	m.elements = ElementsFromRV(m.State.R, m.State.V, m.Body)
	return m.pending
}

// canThrust returns whether the engine of the active stage can produce thrust.
func (m *Mission) canThrust() bool {
	st := m.State
	return st.EngineOn && st.Stage >= 0 && st.Stage < len(st.Propellant) && st.Propellant[st.Stage] > 0
}

// step integrates a single sub-step of h seconds with a symplectic Euler scheme.
func (m *Mission) step(steer steering, h float64) {
	st := &m.State
	cmd := steer.command(m, h)
	m.command = cmd

	mass := m.Mass()
	var prop float64
	if st.Stage >= 0 && st.Stage < len(st.Propellant) {
		prop = st.Propellant[st.Stage]
	}
	ambient := Atmosphere(m.Body.Altitude(st.R)).Pressure
	if m.Perts.DisableDrag {
		ambient = 0
	}
	thrust, mdot := Propulsion(m.Rocket, st.Stage, prop, st.EngineOn, ambient, cmd.Throttle)
	m.thrust = thrust

	acc := m.Body.Gravity(st.R)
	var thrustAcc float64
	if thrust > 0 && mass > 0 {
		thrustAcc = thrust / mass
		acc[0] += thrustAcc * cmd.Direction[0]
		acc[1] += thrustAcc * cmd.Direction[1]
	}
	pert, aero := m.Perts.Perturb(m.Body, st.R, st.V, m.Rocket.Airframe(st.Stage), mass)
	m.aero = aero
	for i := 0; i < 2; i++ {
		st.V[i] += (acc[i] + pert[i]) * h
		st.R[i] += st.V[i] * h
	}
	if mdot > 0 {
		st.Propellant[st.Stage] = math.Max(0, prop-mdot*h)
	}
	st.Time += h
	if e, ok := m.burn.track(st.Time, thrust > 0, thrustAcc*norm(cmd.Direction)*h); ok {
		m.record(e, "prop")
	}

	r := norm(st.R)
	switch {
	case r < m.Body.Radius && (!st.LiftedOff || st.Time <= m.Sim.LiftoffGrace):
		// Held by the pad: back on the surface, at rest with the ground.
		st.R = scaled(m.Body.Radius, unit(st.R))
		if norm(st.R) == 0 {
			st.R, _ = m.Body.PadState()
		}
		st.V = m.Body.SurfaceVelocity(st.R)
	case r < m.Body.Radius:
		st.Running = false
		st.Impacted = true
		m.emit("astro", EventGroundImpact, fmt.Sprintf("impact at %.1f m/s", norm(AirRelativeVelocity(m.Body, st.R, st.V))))
	case !st.LiftedOff && r > m.Body.Radius:
		st.LiftedOff = true
		m.emit("astro", EventLiftoff, fmt.Sprintf("thrust %.0f kN, mass %.1f t", thrust/1e3, mass/1e3))
	}
}

// postStep handles the staging and the one shot events after all the sub-steps of dt seconds.
func (m *Mission) postStep(dt float64) {
	st := &m.State
	if st.EngineOn && st.Stage >= 0 && st.Stage < len(st.Propellant) && st.Propellant[st.Stage] <= 0 {
		if st.Stage < len(m.Rocket.Stages)-1 {
			m.emit("prop", EventMECO, m.Rocket.Stages[st.Stage].Name)
			st.Stage++
			m.emit("prop", EventStageSeparation, fmt.Sprintf("%s active", m.Rocket.Stages[st.Stage].Name))
		} else {
			st.EngineOn = false
			m.emit("prop", EventEngineCutoff, "propellant depleted")
		}
		if st.BurnMode != BurnNone {
			m.logger.Log("level", "info", "subsys", "guidance", "t", st.Time, "burn", BurnNone, "reason", "staging")
			st.BurnMode = BurnNone
		}
	}

	altitude := m.Body.Altitude(st.R)
	q := m.aero.DynamicPressure
	if q > st.MaxDynamicPressure {
		st.MaxDynamicPressure = q
	}
	if !m.maxQ && st.MaxDynamicPressure > m.Guidance.MaxQFloor && q < maxQDrop*st.MaxDynamicPressure {
		m.maxQ = true
		m.emit("aero", EventMaxQ, fmt.Sprintf("%.1f kPa", st.MaxDynamicPressure/1e3))
	}
	if !st.FairingJettisoned && altitude >= m.Rocket.FairingJettisonAltitude {
		st.FairingJettisoned = true
		m.emit("prop", EventFairing, fmt.Sprintf("%.1f km", altitude/1e3))
	}
	if !m.karman && altitude >= KarmanLine {
		m.karman = true
		m.emit("astro", EventKarman, "")
	}
	m.sinceTrail += dt
	if m.sinceTrail >= m.Sim.TrailInterval {
		m.trail.Add(st.R)
		m.sinceTrail = math.Mod(m.sinceTrail, m.Sim.TrailInterval)
	}
}

// emit records and logs a new event at the current time.
func (m *Mission) emit(subsys, name, message string) {
	m.record(Event{Time: m.State.Time, Name: name, Message: message}, subsys)
}

func (m *Mission) record(e Event, subsys string) {
	m.events = append(m.events, e)
	m.pending = append(m.pending, e)
	kv := []interface{}{"level", "notice", "subsys", subsys, "t", e.Time, "event", e.Name}
	if e.Message != "" {
		kv = append(kv, "message", e.Message)
	}
	if e.Name == EventBurnEnd {
		kv = append(kv, "Δv(m/s)", e.Δv, "duration(s)", e.Duration)
	}
	if e.Name == EventGroundImpact {
		kv[1] = "critical"
	}
	m.logger.Log(kv...)
}
