package ascent

import (
	"fmt"
	"math"
	"strings"
)

// BurnMode defines an enum of the manual burn directions.
type BurnMode uint8

const (
	// BurnNone leaves the steering to the closed loop guidance.
	BurnNone BurnMode = iota
	// BurnPrograde thrusts along the inertial velocity.
	BurnPrograde
	// BurnRetrograde thrusts against the inertial velocity.
	BurnRetrograde
	// BurnNormal thrusts along the orbit normal, out of the plane of motion.
	BurnNormal
	// BurnAntiNormal thrusts against the orbit normal, out of the plane of motion.
	BurnAntiNormal
	// BurnRadial thrusts away from the body.
	BurnRadial
	// BurnAntiRadial thrusts towards the body.
	BurnAntiRadial
)

func (b BurnMode) String() string {
	switch b {
	case BurnNone:
		return "none"
	case BurnPrograde:
		return "prograde"
	case BurnRetrograde:
		return "retrograde"
	case BurnNormal:
		return "normal"
	case BurnAntiNormal:
		return "anti-normal"
	case BurnRadial:
		return "radial"
	case BurnAntiRadial:
		return "anti-radial"
	}
	panic("cannot stringify unknown burn mode")
}

// MarshalText implements the encoding.TextMarshaler interface.
func (b BurnMode) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// ParseBurnMode returns the burn mode from its name.
func ParseBurnMode(name string) (BurnMode, error) {
	for b := BurnNone; b <= BurnAntiRadial; b++ {
		if strings.EqualFold(name, b.String()) {
			return b, nil
		}
	}
	return BurnNone, fmt.Errorf("unknown burn mode '%s'", name)
}

// Direction returns the inertial thrust unit vector of this burn mode at R, V. The planar model
// has no out of plane component, so the (anti-)normal directions are null.
func (b BurnMode) Direction(R, V []float64) []float64 {
	switch b {
	case BurnPrograde:
		return unit(V)
	case BurnRetrograde:
		return scaled(-1, unit(V))
	case BurnRadial:
		return unit(R)
	case BurnAntiRadial:
		return scaled(-1, unit(R))
	}
	return []float64{0, 0}
}

// steering provides the command of each sub-step. It is selected once per Advance.
type steering interface {
	command(m *Mission, h float64) GuidanceCommand
	coasting(m *Mission) bool
}

// closedLoop runs the guidance and the constraint layer at every sub-step.
type closedLoop struct{}

func (closedLoop) command(m *Mission, h float64) GuidanceCommand {
	st := &m.State
	in := GuidanceInput{
		Time:               st.Time,
		R:                  st.R,
		V:                  st.V,
		Elements:           ElementsFromRV(st.R, st.V, m.Body),
		DynamicPressure:    m.aero.DynamicPressure,
		MaxDynamicPressure: st.MaxDynamicPressure,
		Thrusting:          m.canThrust(),
		Burn:               m.command.InsertionBurn(),
	}
	cmd := m.limiter.Constrain(Guide(m.Guidance, m.Body, in, m.triggers), st.R, h)
	if fresh := m.triggers.Latch(cmd.Triggers); fresh.Any() {
		for _, trig := range []struct {
			fired bool
			name  string
		}{
			{fresh.PeriapsisRaise, EventPeriapsisRaise},
			{fresh.Circularization, EventCircularization},
			{fresh.Retrograde, EventRetrograde},
		} {
			if trig.fired {
				m.emit("guidance", trig.name, cmd.Reason)
			}
		}
	}
	if cmd.Case == CaseOrbitAchieved && !m.orbitAchieved {
		m.orbitAchieved = true
		m.emit("guidance", EventOrbitAchieved, in.Elements.String())
	}
	if cmd.Phase != m.command.Phase || cmd.Case != m.command.Case {
		m.logger.Log("level", "info", "subsys", "guidance", "t", st.Time, "phase", cmd.Phase, "case", cmd.Case, "reason", cmd.Reason)
	}
	return cmd
}

func (closedLoop) coasting(m *Mission) bool {
	return !m.canThrust() || !m.command.Thrusting()
}

// fixedBurn thrusts at full throttle in a direction selected when the steering is chosen.
type fixedBurn struct {
	mode      BurnMode
	direction []float64
}

func newFixedBurn(mode BurnMode, R, V []float64) fixedBurn {
	return fixedBurn{mode, mode.Direction(R, V)}
}

func (s fixedBurn) command(m *Mission, h float64) GuidanceCommand {
	cmd := GuidanceCommand{
		Direction: s.direction,
		Throttle:  1,
		Phase:     Manual,
		Pitch:     m.limiter.Last(),
		Reason:    "manual " + s.mode.String() + " burn",
	}
	if norm(s.direction) > 0 {
		l := Inertial2Local(m.State.R, s.direction)
		if l[0] < 0 {
			cmd.Orientation = Retrograde
			l[0] = -l[0]
		}
		cmd.Pitch = math.Atan2(l[1], l[0]) / deg2rad
		m.limiter.Hold(cmd.Pitch)
	}
	return cmd
}

func (fixedBurn) coasting(m *Mission) bool {
	return !m.canThrust()
}
