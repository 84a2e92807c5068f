package ascent

import (
	"fmt"
	"math"
)

// Phase defines an enum of guidance phases.
type Phase uint8

// InsertionCase defines an enum of the orbit insertion cases of the vacuum phase.
type InsertionCase uint8

// Orientation is the along track sense of the thrust.
type Orientation uint8

const (
	// VerticalAscent is the initial straight up climb.
	VerticalAscent Phase = iota + 1
	// PitchKick tilts the vehicle off the vertical to start the gravity turn.
	PitchKick
	// MaxQHold holds the prograde attitude during the peak aerodynamic load.
	MaxQHold
	// GravityTurn follows the air relative velocity.
	GravityTurn
	// Insertion is the vacuum phase, cf. InsertionCase.
	Insertion
	// Manual is a fixed direction burn requested by the operator.
	Manual
)

const (
	// NoInsertion is the insertion case while in the atmosphere.
	NoInsertion InsertionCase = iota
	// CaseEmergencyHorizontal is a periapsis below the surface with the apoapsis at target.
	CaseEmergencyHorizontal
	// CaseRaiseApoapsis raises the apoapsis with flight path angle guidance.
	CaseRaiseApoapsis
	// CaseEmergencyPrograde is an unsafe periapsis while falling back.
	CaseEmergencyPrograde
	// CaseRaisePeriapsis is an unsafe periapsis while still climbing.
	CaseRaisePeriapsis
	// CaseLowerApoapsis is an apoapsis overshoot.
	CaseLowerApoapsis
	// CaseCircularize is a low periapsis near the apoapsis.
	CaseCircularize
	// CaseCoastToApoapsis is a low periapsis away from the apoapsis.
	CaseCoastToApoapsis
	// CaseOrbitAchieved is when both apsides are within tolerance of the target.
	CaseOrbitAchieved
)

const (
	// Prograde thrusts along the direction of motion.
	Prograde Orientation = iota
	// Retrograde thrusts against the direction of motion.
	Retrograde
)

func (p Phase) String() string {
	switch p {
	case VerticalAscent:
		return "vertical ascent"
	case PitchKick:
		return "pitch kick"
	case MaxQHold:
		return "max-Q hold"
	case GravityTurn:
		return "gravity turn"
	case Insertion:
		return "orbit insertion"
	case Manual:
		return "manual"
	}
	panic("cannot stringify unknown phase")
}

func (c InsertionCase) String() string {
	switch c {
	case NoInsertion:
		return "-"
	case CaseEmergencyHorizontal:
		return "0"
	case CaseRaiseApoapsis:
		return "1"
	case CaseEmergencyPrograde:
		return "2a"
	case CaseRaisePeriapsis:
		return "2b"
	case CaseLowerApoapsis:
		return "3"
	case CaseCircularize:
		return "4a"
	case CaseCoastToApoapsis:
		return "4b"
	case CaseOrbitAchieved:
		return "5"
	}
	panic("cannot stringify unknown insertion case")
}

func (o Orientation) String() string {
	switch o {
	case Prograde:
		return "prograde"
	case Retrograde:
		return "retrograde"
	}
	panic("cannot stringify unknown orientation")
}

// MarshalText implements the encoding.TextMarshaler interface.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// MarshalText implements the encoding.TextMarshaler interface.
func (c InsertionCase) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// MarshalText implements the encoding.TextMarshaler interface.
func (o Orientation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// GuidanceConfig defines the closed loop guidance parameters. Angles are in degrees.
type GuidanceConfig struct {
	TargetAltitude       float64 `mapstructure:"target_altitude"`       // m
	Tolerance            float64 `mapstructure:"tolerance"`             // m
	SafePeriapsis        float64 `mapstructure:"safe_periapsis"`        // m
	KickStart            float64 `mapstructure:"kick_start"`            // s
	KickEnd              float64 `mapstructure:"kick_end"`              // s
	KickAngle            float64 `mapstructure:"kick_angle"`            // deg
	MaxQFraction         float64 `mapstructure:"max_q_fraction"`        // of the max dynamic pressure
	MaxQFloor            float64 `mapstructure:"max_q_floor"`           // Pa
	MinVerticalSpeed     float64 `mapstructure:"min_vertical_speed"`    // m/s
	VerticalSpeedGain    float64 `mapstructure:"vertical_speed_gain"`   // deg/(m/s)
	InitialFPA           float64 `mapstructure:"initial_fpa"`           // deg
	FPAGain              float64 `mapstructure:"fpa_gain"`              // deg/deg
	ThrottleBand         float64 `mapstructure:"throttle_band"`         // m
	MinThrottle          float64 `mapstructure:"min_throttle"`
	ApsisLead            float64 `mapstructure:"apsis_lead"`            // s
	DirectAscent         bool    `mapstructure:"direct_ascent"`
	InsertionPitchMin    float64 `mapstructure:"insertion_pitch_min"`   // deg
	InsertionPitchMax    float64 `mapstructure:"insertion_pitch_max"`   // deg
	CircularEccentricity float64 `mapstructure:"circular_eccentricity"`
}

// DefaultGuidance returns the guidance parameters for a 400 km circular orbit.
func DefaultGuidance() GuidanceConfig {
	return GuidanceConfig{
		TargetAltitude:       400e3,
		Tolerance:            10e3,
		SafePeriapsis:        100e3,
		KickStart:            10,
		KickEnd:              13,
		KickAngle:            2,
		MaxQFraction:         0.8,
		MaxQFloor:            1e3,
		MinVerticalSpeed:     50,
		VerticalSpeedGain:    0.2,
		InitialFPA:           10,
		FPAGain:              1,
		ThrottleBand:         25e3,
		MinThrottle:          0.1,
		ApsisLead:            20,
		InsertionPitchMin:    -5,
		InsertionPitchMax:    45,
		CircularEccentricity: eccentricityε,
	}
}

// Validate returns an error if the target orbit cannot be flown by this guidance.
func (g GuidanceConfig) Validate() error {
	if !finite(g.TargetAltitude, g.Tolerance, g.SafePeriapsis) || g.TargetAltitude <= AtmosphereLimit {
		return fmt.Errorf("%w: target altitude of %.0f m must be above %.0f m", ErrInvalidTarget, g.TargetAltitude, AtmosphereLimit)
	}
	if g.Tolerance < 0 || g.Tolerance >= g.TargetAltitude-AtmosphereLimit {
		return fmt.Errorf("%w: tolerance of %.0f m", ErrInvalidTarget, g.Tolerance)
	}
	if g.SafePeriapsis > g.TargetAltitude-g.Tolerance {
		return fmt.Errorf("%w: safe periapsis of %.0f m above the target", ErrInvalidTarget, g.SafePeriapsis)
	}
	if g.KickEnd < g.KickStart {
		return fmt.Errorf("%w: pitch kick ends before it starts", ErrInvalidTarget)
	}
	return nil
}

// BurnTriggers are the one shot burn announcements. In a GuidanceCommand, they flag which burns
// started with this command. Owned by the mission, they latch which burns were announced.
type BurnTriggers struct {
	PeriapsisRaise  bool
	Circularization bool
	Retrograde      bool
}

// Any returns whether any trigger is set.
func (b BurnTriggers) Any() bool {
	return b.PeriapsisRaise || b.Circularization || b.Retrograde
}

// Latch sets the provided triggers and returns those which were not already set.
func (b *BurnTriggers) Latch(fired BurnTriggers) (fresh BurnTriggers) {
	fresh.PeriapsisRaise = fired.PeriapsisRaise && !b.PeriapsisRaise
	fresh.Circularization = fired.Circularization && !b.Circularization
	fresh.Retrograde = fired.Retrograde && !b.Retrograde
	b.PeriapsisRaise = b.PeriapsisRaise || fired.PeriapsisRaise
	b.Circularization = b.Circularization || fired.Circularization
	b.Retrograde = b.Retrograde || fired.Retrograde
	return
}

// GuidanceCommand is the output of the guidance, and after the constraint layer, of the steering.
type GuidanceCommand struct {
	Direction   []float64     `json:"direction"` // Inertial unit vector of the commanded attitude
	Throttle    float64       `json:"throttle"`
	Phase       Phase         `json:"phase"`
	Case        InsertionCase `json:"case"`
	Pitch       float64       `json:"pitch"` // deg above the local horizontal
	Orientation Orientation   `json:"orientation"`
	Reason      string        `json:"reason"`
	Triggers    BurnTriggers  `json:"triggers"`
}

// Thrusting returns whether this command requests thrust.
func (cmd GuidanceCommand) Thrusting() bool {
	return cmd.Throttle > 0
}

// GuidanceInput is the vehicle state seen by the guidance.
type GuidanceInput struct {
	Time               float64 // s since the start of the flight
	R, V               []float64
	Elements           OrbitalElements
	DynamicPressure    float64       // Pa
	MaxDynamicPressure float64       // Pa, so far during this flight
	Thrusting          bool          // Engine on with propellant in the active stage
	Burn               InsertionBurn // Burn commanded at the previous step, carried on until its goal
}

// InsertionBurn is an insertion burn in progress.
type InsertionBurn uint8

const (
	// NoInsertionBurn is any other command.
	NoInsertionBurn InsertionBurn = iota
	// ApoapsisRaise is the case 1 burn. It carries on to the middle of the tolerance band above
	// the target.
	ApoapsisRaise
	// ApoapsisBurn is the prograde burn of the cases 2b and 4a. It carries on while in these cases,
	// and a circularization carries on until the periapsis is in the upper half of the band.
	ApoapsisBurn
	// PeriapsisBurn is the retrograde burn of the case 3. It carries on while in this case.
	PeriapsisBurn
)

// InsertionBurn returns the insertion burn performed by this command, if any.
func (cmd GuidanceCommand) InsertionBurn() InsertionBurn {
	if cmd.Phase != Insertion || !cmd.Thrusting() {
		return NoInsertionBurn
	}
	switch cmd.Case {
	case CaseRaiseApoapsis:
		return ApoapsisRaise
	case CaseRaisePeriapsis, CaseCircularize:
		return ApoapsisBurn
	case CaseLowerApoapsis:
		return PeriapsisBurn
	}
	return NoInsertionBurn
}

// insertionInput is the state on which the insertion case is classified.
type insertionInput struct {
	pe, ap, target, safePe, tol float64
	nearApoapsis, descending    bool
}

// insertionRule associates an insertion case with its condition.
type insertionRule struct {
	c    InsertionCase
	when func(in insertionInput) bool
}

// insertionTable is ordered by priority: the first matching rule wins.
var insertionTable = []insertionRule{
	{CaseEmergencyHorizontal, func(in insertionInput) bool { return in.pe < 0 && in.ap >= in.target }},
	{CaseRaiseApoapsis, func(in insertionInput) bool { return in.ap < in.target }},
	{CaseEmergencyPrograde, func(in insertionInput) bool { return in.pe < in.safePe && in.descending }},
	{CaseRaisePeriapsis, func(in insertionInput) bool { return in.pe < in.safePe }},
	{CaseLowerApoapsis, func(in insertionInput) bool { return in.ap > in.target+in.tol }},
	{CaseCircularize, func(in insertionInput) bool { return in.pe < in.target-in.tol && in.nearApoapsis }},
	{CaseCoastToApoapsis, func(in insertionInput) bool { return in.pe < in.target-in.tol }},
}

// ClassifyInsertion returns the insertion case from the apsides altitudes (in meters).
func ClassifyInsertion(pe, ap, target, safePe, tol float64, nearApoapsis, descending bool) InsertionCase {
	in := insertionInput{pe, ap, target, safePe, tol, nearApoapsis, descending}
	for _, rule := range insertionTable {
		if rule.when(in) {
			return rule.c
		}
	}
	return CaseOrbitAchieved
}

// NearApoapsis returns whether a burn at apoapsis should start.
func (g GuidanceConfig) NearApoapsis(o OrbitalElements) bool {
	return o.Eccentricity < g.CircularEccentricity || o.TimeToApoapsis <= g.ApsisLead
}

// NearPeriapsis returns whether a burn at periapsis should start.
func (g GuidanceConfig) NearPeriapsis(o OrbitalElements) bool {
	return o.Eccentricity < g.CircularEccentricity || o.TimeToPeriapsis <= g.ApsisLead
}

// TargetFPA returns the target flight path angle in degrees during the vacuum phase: it
// decreases linearly from the initial FPA at the atmosphere limit to zero at the target.
func (g GuidanceConfig) TargetFPA(altitude float64) float64 {
	progress := clamp((altitude-AtmosphereLimit)/(g.TargetAltitude-AtmosphereLimit), 0, 1)
	if !finite(progress) {
		progress = 1
	}
	return g.InitialFPA * (1 - progress)
}

// Guide returns the guidance command for the provided state. Triggers are only reported for
// the burns which are not latched in the provided triggers.
func Guide(g GuidanceConfig, c CelestialObject, in GuidanceInput, latched BurnTriggers) GuidanceCommand {
	var cmd GuidanceCommand
	altitude := c.Altitude(in.R)
	if altitude < AtmosphereLimit {
		cmd = g.atmospheric(c, in)
	} else {
		cmd = g.vacuum(altitude, in)
	}
	if !in.Thrusting || !cmd.Thrusting() {
		cmd.Triggers = BurnTriggers{}
	}
	cmd.Triggers.PeriapsisRaise = cmd.Triggers.PeriapsisRaise && !latched.PeriapsisRaise
	cmd.Triggers.Circularization = cmd.Triggers.Circularization && !latched.Circularization
	cmd.Triggers.Retrograde = cmd.Triggers.Retrograde && !latched.Retrograde
	cmd.Direction = ThrustDirection(in.R, cmd.Pitch, cmd.Orientation)
	return cmd
}

// atmospheric returns the command of the ascent through the atmosphere.
func (g GuidanceConfig) atmospheric(c CelestialObject, in GuidanceInput) GuidanceCommand {
	cmd := GuidanceCommand{Throttle: 1, Orientation: Prograde}
	prograde := ElevationAngle(in.R, AirRelativeVelocity(c, in.R, in.V))
	switch {
	case in.Time < g.KickStart:
		cmd.Phase = VerticalAscent
		cmd.Pitch = 90
		cmd.Reason = "vertical ascent"
	case in.Time < g.KickEnd:
		cmd.Phase = PitchKick
		cmd.Pitch = 90 - g.KickAngle*(in.Time-g.KickStart)/(g.KickEnd-g.KickStart)
		cmd.Reason = "pitch kick"
	case in.MaxDynamicPressure > g.MaxQFloor && in.DynamicPressure > g.MaxQFraction*in.MaxDynamicPressure:
		cmd.Phase = MaxQHold
		cmd.Pitch = prograde
		cmd.Reason = fmt.Sprintf("max-Q hold (q=%.1f kPa)", in.DynamicPressure/1e3)
	default:
		cmd.Phase = GravityTurn
		cmd.Pitch = prograde
		cmd.Reason = "prograde following"
		up, _ := LocalFrame(in.R)
		if vr := dot(in.V, up); vr < g.MinVerticalSpeed {
			cmd.Pitch = math.Min(90, cmd.Pitch+g.VerticalSpeedGain*(g.MinVerticalSpeed-vr))
			cmd.Reason = fmt.Sprintf("prograde following, vertical speed %.1f m/s too low", vr)
		}
	}
	return cmd
}

// vacuum returns the command of the orbit insertion.
func (g GuidanceConfig) vacuum(altitude float64, in GuidanceInput) GuidanceCommand {
	o := in.Elements
	cmd := GuidanceCommand{Phase: Insertion, Orientation: Prograde}
	if !o.Valid {
		cmd.Pitch = ElevationAngle(in.R, in.V)
		cmd.Reason = "orbit undefined"
		return cmd
	}
	γ := o.FlightPathAngle
	nearApo := in.Burn == ApoapsisBurn || g.NearApoapsis(o)
	cmd.Case = ClassifyInsertion(o.Periapsis, o.Apoapsis, g.TargetAltitude, g.SafePeriapsis, g.Tolerance, nearApo, !o.Ascending)
	aim := g.TargetAltitude + g.Tolerance/2
	if in.Burn == ApoapsisRaise && cmd.Case != CaseEmergencyHorizontal && o.Apoapsis < aim {
		cmd.Case = CaseRaiseApoapsis
	}
	if in.Burn == ApoapsisBurn && cmd.Case == CaseOrbitAchieved && o.Periapsis < g.TargetAltitude-g.Tolerance/2 {
		cmd.Case = CaseCircularize
	}
	cmd.Pitch = γ
	switch cmd.Case {
	case CaseEmergencyHorizontal:
		cmd.Pitch = 0
		cmd.Throttle = 1
		cmd.Reason = "periapsis below surface, horizontal burn"
	case CaseRaiseApoapsis:
		γt := g.TargetFPA(altitude)
		cmd.Pitch = clamp(γt+g.FPAGain*(γt-γ), g.InsertionPitchMin, g.InsertionPitchMax)
		cmd.Throttle = 1
		if remaining := aim - o.Apoapsis; remaining < g.ThrottleBand {
			cmd.Throttle = math.Max(g.MinThrottle, remaining/g.ThrottleBand)
		}
		cmd.Reason = fmt.Sprintf("raising apoapsis (target FPA %.2f deg)", γt)
	case CaseEmergencyPrograde:
		cmd.Throttle = 1
		cmd.Triggers.PeriapsisRaise = true
		cmd.Reason = "unsafe periapsis while descending, prograde burn"
	case CaseRaisePeriapsis:
		if nearApo {
			cmd.Throttle = 1
			cmd.Triggers.PeriapsisRaise = true
			cmd.Reason = "raising periapsis at apoapsis"
		} else {
			cmd.Reason = "unsafe periapsis, coasting to apoapsis"
		}
	case CaseLowerApoapsis:
		cmd.Orientation = Retrograde
		cmd.Pitch = -γ
		if in.Burn == PeriapsisBurn || g.NearPeriapsis(o) {
			cmd.Throttle = 1
			cmd.Triggers.Retrograde = true
			cmd.Reason = "lowering apoapsis at periapsis"
		} else {
			cmd.Reason = "apoapsis overshoot, coasting to periapsis"
		}
	case CaseCircularize:
		cmd.Throttle = 1
		cmd.Triggers.Circularization = true
		cmd.Reason = "circularizing at apoapsis"
	case CaseCoastToApoapsis:
		if g.DirectAscent {
			cmd.Throttle = 1
			cmd.Triggers.Circularization = true
			cmd.Reason = "direct insertion burn"
		} else {
			cmd.Reason = "coasting to apoapsis"
		}
	case CaseOrbitAchieved:
		cmd.Reason = "orbit achieved"
	}
	return cmd
}
