package ascent

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func newTestMission(t *testing.T, mutate func(s *Scenario)) *Mission {
	s := DefaultScenario()
	if mutate != nil {
		mutate(&s)
	}
	m, err := NewMission(s, nil)
	if err != nil {
		t.Fatalf("could not create mission: %s", err)
	}
	return m
}

// inOrbit places the vehicle on a circular orbit at the provided altitude, engine off.
func inOrbit(m *Mission, altitude float64) {
	r := m.Body.Radius + altitude
	m.State.R = []float64{r, 0}
	m.State.V = []float64{0, math.Sqrt(m.Body.GM() / r)}
	m.State.Time = 600
	m.State.LiftedOff = true
	m.State.EngineOn = false
}

func countEvents(events []Event, name string) (n int) {
	for _, e := range events {
		if e.Name == name {
			n++
		}
	}
	return
}

func TestSubStepPlan(t *testing.T) {
	for _, tc := range []struct {
		dt, size float64
		max      int
		n        int
		h        float64
	}{
		{1, 0.25, 1000, 4, 0.25},
		{0.1, 0.25, 1000, 1, 0.1},
		{1, 1e-6, 1000, 1000, 1e-3},
		{0, 0.05, 1000, 0, 0},
		{-1, 0.05, 1000, 0, 0},
		{math.NaN(), 0.05, 1000, 0, 0},
		{1, 0, 1000, 0, 0},
	} {
		n, h := SubStepPlan(tc.dt, tc.size, tc.max)
		if n != tc.n || !scalar.EqualWithinAbs(h, tc.h, 1e-15) {
			t.Fatalf("SubStepPlan(%f, %f, %d) = (%d, %f), expected (%d, %f)", tc.dt, tc.size, tc.max, n, h, tc.n, tc.h)
		}
		if n > tc.max {
			t.Fatalf("%d sub-steps exceeds the maximum", n)
		}
	}
	n, h := SubStepPlan(1, 0.05, 1000)
	if n < 20 || n > 21 || !scalar.EqualWithinAbs(float64(n)*h, 1, 1e-12) {
		t.Fatalf("1 s in steps of 0.05 s: got %d x %f", n, h)
	}
}

func TestNewMissionErrors(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(s *Scenario)
		err    error
	}{
		{"no stages", func(s *Scenario) { s.Rocket.Stages = nil }, ErrNoStages},
		{"low target", func(s *Scenario) { s.Guidance.TargetAltitude = 50e3 }, ErrInvalidTarget},
		{"no steps", func(s *Scenario) { s.Sim.PoweredStep = 0 }, ErrInvalidSimulation},
		{"mars with drag", func(s *Scenario) { s.Sim.Body = "mars" }, ErrNoAtmosphere},
	} {
		s := DefaultScenario()
		tc.mutate(&s)
		if _, err := NewMission(s, nil); !errors.Is(err, tc.err) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.err, err)
		}
	}
	s := DefaultScenario()
	s.Sim.Body = "pluto"
	if _, err := NewMission(s, nil); err == nil {
		t.Fatal("unknown body should fail")
	}
	s.Sim.Body = "mars"
	s.Sim.DisableDrag = true
	if _, err := NewMission(s, nil); err != nil {
		t.Fatalf("vacuum launch from Mars failed: %s", err)
	}
}

func TestMissionOnPad(t *testing.T) {
	m := newTestMission(t, nil)
	if !m.State.Running || m.State.LiftedOff || m.State.Time != 0 {
		t.Fatalf("invalid initial state: %+v", m.State)
	}
	if !vectorsEqual(m.State.V, Earth.SurfaceVelocity(m.State.R)) {
		t.Fatal("vehicle must be at rest in the rotating frame")
	}
	if m.Command().Phase != VerticalAscent || m.Command().Pitch != 90 {
		t.Fatalf("invalid initial command: %+v", m.Command())
	}
	if !scalar.EqualWithinAbs(m.Mass(), m.Rocket.LiftoffMass(), 1e-6) {
		t.Fatalf("mass %f != liftoff mass %f", m.Mass(), m.Rocket.LiftoffMass())
	}
	for _, wall := range []float64{0, -1, math.NaN()} {
		if events := m.Advance(wall); events != nil || m.State.Time != 0 {
			t.Fatalf("Advance(%f) must be a no-op", wall)
		}
	}
}

func TestMissionLiftoff(t *testing.T) {
	m := newTestMission(t, nil)
	events := m.Advance(1)
	if !m.State.LiftedOff {
		t.Fatal("vehicle did not lift off")
	}
	if countEvents(events, EventLiftoff) != 1 || countEvents(events, EventBurnStart) != 1 {
		t.Fatalf("expected liftoff and burn start events, got %v", events)
	}
	if !scalar.EqualWithinAbs(m.State.Time, 1, 1e-9) {
		t.Fatalf("expected 1 s of flight, got %f", m.State.Time)
	}
	for i := 0; i < 9; i++ {
		m.Advance(1)
	}
	snap := m.Snapshot()
	if snap.Altitude <= 0 || m.State.Propellant[0] >= m.Rocket.Stages[0].PropellantMass {
		t.Fatalf("vehicle should be climbing and burning propellant: %+v", snap)
	}
	up, _ := LocalFrame(m.State.R)
	if dot(AirRelativeVelocity(Earth, m.State.R, m.State.V), up) <= 0 {
		t.Fatal("vehicle should be ascending")
	}
	if countEvents(m.Events(), EventLiftoff) != 1 {
		t.Fatal("liftoff must only be announced once")
	}
}

func TestMissionTimeAcceleration(t *testing.T) {
	m := newTestMission(t, nil)
	for _, warp := range []float64{0, -2, math.NaN(), math.Inf(1)} {
		if err := m.SetTimeAcceleration(warp); !errors.Is(err, ErrInvalidWarp) {
			t.Fatalf("warp of %f should fail", warp)
		}
	}
	if err := m.SetTimeAcceleration(0.5); err != nil {
		t.Fatal(err)
	}
	m.Advance(1)
	if !scalar.EqualWithinAbs(m.State.Time, 0.5, 1e-9) {
		t.Fatalf("expected 0.5 s, got %f", m.State.Time)
	}
	if err := m.SetTimeAcceleration(100); err != nil {
		t.Fatal(err)
	}
	m.Advance(1)
	if !scalar.EqualWithinAbs(m.State.Time, 1.5, 1e-9) {
		t.Fatalf("simulated time per Advance must be capped to 1 s, got %f", m.State.Time)
	}
}

func TestMissionConservation(t *testing.T) {
	m := newTestMission(t, func(s *Scenario) { s.Sim.DisableDrag = true })
	inOrbit(m, 405e3)
	o0 := ElementsFromRV(m.State.R, m.State.V, m.Body)
	for elapsed := 0.0; elapsed < o0.Period; elapsed++ {
		m.Advance(1)
	}
	o1 := m.Elements()
	if !scalar.EqualWithinRel(o0.Energyξ, o1.Energyξ, 1e-5) {
		t.Fatalf("energy not conserved: %f -> %f", o0.Energyξ, o1.Energyξ)
	}
	if !scalar.EqualWithinRel(o0.H, o1.H, 1e-8) {
		t.Fatalf("angular momentum not conserved: %f -> %f", o0.H, o1.H)
	}
	if !scalar.EqualWithinAbs(m.Body.Altitude(m.State.R), 405e3, 1e3) {
		t.Fatalf("altitude drifted to %f", m.Body.Altitude(m.State.R))
	}
	if countEvents(m.Events(), EventOrbitAchieved) != 1 {
		t.Fatal("orbit achieved must be announced once")
	}
	if m.State.Propellant[0] != m.Rocket.Stages[0].PropellantMass {
		t.Fatal("propellant used while coasting")
	}
}

func TestMissionGroundImpact(t *testing.T) {
	m := newTestMission(t, nil)
	m.State.EngineOn = false
	R := []float64{m.Body.Radius + 2000, 0}
	m.State.R = R
	m.State.V = m.Body.SurfaceVelocity(R)
	m.State.V[0] -= 100
	var impacts int
	for i := 0; i < 60 && m.State.Running; i++ {
		impacts += countEvents(m.Advance(1), EventGroundImpact)
	}
	if m.State.Running || !m.State.Impacted {
		t.Fatalf("vehicle did not impact: %+v", m.State)
	}
	if impacts != 1 {
		t.Fatalf("expected one impact event, got %d", impacts)
	}
	if m.State.Time < 10 || m.State.Time > 20 {
		t.Fatalf("unexpected impact time %f", m.State.Time)
	}
	time := m.State.Time
	if events := m.Advance(1); events != nil || m.State.Time != time {
		t.Fatal("a halted simulation must not be advanced")
	}
	m.SetBurnMode(BurnRadial)
	m.Advance(1)
	if m.State.Running || countEvents(m.Events(), EventGroundImpact) != 1 {
		t.Fatal("ground impact is terminal")
	}
}

func TestMissionPadHold(t *testing.T) {
	m := newTestMission(t, nil)
	m.State.EngineOn = false
	m.Advance(1)
	m.Advance(1)
	if !m.State.Running || m.State.LiftedOff {
		t.Fatal("vehicle should be held by the pad")
	}
	if !scalar.EqualWithinAbs(norm(m.State.R), m.Body.Radius, 1e-6) {
		t.Fatalf("vehicle moved off the surface: %f", norm(m.State.R)-m.Body.Radius)
	}
	if !vectorsEqual(m.State.V, m.Body.SurfaceVelocity(m.State.R)) {
		t.Fatal("vehicle should co-rotate with the pad")
	}
}

func TestMissionStaging(t *testing.T) {
	// The depleted booster falls back on the pad during the grace period.
	m := newTestMission(t, func(s *Scenario) { s.Sim.LiftoffGrace = 5 })
	m.State.Propellant[0] = 100
	events := m.Advance(1)
	if m.State.Stage != 1 || !m.State.EngineOn {
		t.Fatalf("expected the upper stage to be active: %+v", m.State)
	}
	if countEvents(events, EventMECO) != 1 || countEvents(events, EventStageSeparation) != 1 {
		t.Fatalf("expected MECO and stage separation, got %v", events)
	}
	if !scalar.EqualWithinAbs(m.Mass(), m.Rocket.Mass(1, m.State.Propellant, false), 1e-9) {
		t.Fatal("the spent stage is still attached")
	}

	// Last stage depletion cuts the engine off and ends the manual burn.
	m = newTestMission(t, nil)
	inOrbit(m, 300e3)
	m.State.EngineOn = true
	m.State.Stage = 1
	m.State.Propellant[1] = 50
	m.SetBurnMode(BurnPrograde)
	events = m.Advance(1)
	if m.State.EngineOn || countEvents(events, EventEngineCutoff) != 1 {
		t.Fatalf("expected engine cutoff, got %v", events)
	}
	if m.State.BurnMode != BurnNone {
		t.Fatal("manual burn must end with the propellant")
	}
	if m.State.Propellant[1] != 0 {
		t.Fatalf("propellant should be depleted to zero, got %f", m.State.Propellant[1])
	}
}

func TestMissionManualBurns(t *testing.T) {
	setup := func(mode BurnMode) *Mission {
		m := newTestMission(t, func(s *Scenario) { s.Sim.DisableDrag = true })
		inOrbit(m, 405e3)
		m.State.EngineOn = true
		m.State.Stage = 1
		m.SetBurnMode(mode)
		return m
	}

	m := setup(BurnPrograde)
	v0, ap0 := norm(m.State.V), ElementsFromRV(m.State.R, m.State.V, m.Body).Apoapsis
	m.Advance(1)
	if Δv := norm(m.State.V) - v0; Δv < 5 || Δv > 10 {
		t.Fatalf("prograde burn yielded Δv=%f", Δv)
	}
	if m.Elements().Apoapsis <= ap0 {
		t.Fatal("prograde burn must raise the apoapsis")
	}
	if m.Snapshot().CircularizationΔv <= 0 {
		t.Fatal("an elliptical orbit needs a circularization burn")
	}
	if m.Command().Phase != Manual || m.Command().Throttle != 1 {
		t.Fatalf("invalid manual command: %+v", m.Command())
	}
	// The closed loop guidance resumes from the attitude of the manual burn.
	if pitch := m.limiter.Last(); math.Abs(pitch) > 1 || pitch != m.Command().Pitch {
		t.Fatalf("limiter holds %f after a prograde burn at %f", pitch, m.Command().Pitch)
	}
	m.SetBurnMode(BurnNone)
	m.Advance(1)
	if cmd := m.Command(); cmd.Phase != Insertion || math.Abs(cmd.Pitch) > 1+m.limiter.Rate {
		t.Fatalf("closed loop pitch jumped after a manual burn: %+v", cmd)
	}

	m = setup(BurnRetrograde)
	m.Advance(1)
	if Δv := norm(m.State.V) - v0; Δv > -5 {
		t.Fatalf("retrograde burn yielded Δv=%f", Δv)
	}
	if m.Command().Orientation != Retrograde {
		t.Fatal("retrograde burn must be flagged as such")
	}

	m = setup(BurnRadial)
	m.Advance(1)
	up, _ := LocalFrame(m.State.R)
	if dot(m.State.V, up) < 5 {
		t.Fatal("radial burn must increase the radial velocity")
	}

	// No in plane thrust, but the propellant is consumed.
	m = setup(BurnNormal)
	m.Advance(1)
	if Δv := norm(m.State.V) - v0; math.Abs(Δv) > 0.5 {
		t.Fatalf("normal burn changed the speed by %f", Δv)
	}
	if m.State.Propellant[1] >= m.Rocket.Stages[1].PropellantMass {
		t.Fatal("normal burn must consume propellant")
	}

	m.SetBurnMode(BurnNone)
	events := m.Advance(1)
	if m.Command().Phase != Insertion {
		t.Fatalf("closed loop guidance should resume, got %s", m.Command().Phase)
	}
	if countEvents(events, EventBurnEnd) != 1 {
		t.Fatalf("expected the normal burn to end: %v", events)
	}
	for _, e := range events {
		if e.Name == EventBurnEnd && e.Δv != 0 {
			t.Fatalf("a normal burn has no in plane Δv: %s", e)
		}
	}
}

func TestMissionDefaultAscent(t *testing.T) {
	m := newTestMission(t, nil)
	g := m.Guidance
	for i := 0; i < 6000 && m.Command().Case != CaseOrbitAchieved; i++ {
		if !m.Running() {
			t.Fatalf("flight ended at T+%.0f s: %v", m.State.Time, m.Events())
		}
		m.Advance(1)
	}
	if m.Command().Case != CaseOrbitAchieved {
		t.Fatalf("orbit not achieved after %.0f s: %s", m.State.Time, m.Elements())
	}
	o := m.Elements()
	if !scalar.EqualWithinAbs(o.Apoapsis, g.TargetAltitude, g.Tolerance) || !scalar.EqualWithinAbs(o.Periapsis, g.TargetAltitude, g.Tolerance) {
		t.Fatalf("apsides out of tolerance: %s", o)
	}
	if m.State.Stage != 1 || m.State.Propellant[1] <= 0 {
		t.Fatalf("upper stage exhausted: %+v", m.State)
	}
	events := m.Events()
	if n := countEvents(events, EventBurnStart); n < 2 || n > 4 {
		t.Fatalf("%d burns to orbit: %v", n, events)
	}
	for _, name := range []string{EventPeriapsisRaise, EventCircularization, EventOrbitAchieved} {
		if n := countEvents(events, name); n > 1 {
			t.Fatalf("%d %s events", n, name)
		}
	}
	if countEvents(events, EventRetrograde) != 0 {
		t.Fatal("the default ascent should not overshoot the target")
	}
	if snap := m.Snapshot(); snap.TransferΔv > 10 {
		t.Fatalf("transfer Δv in orbit = %f", snap.TransferΔv)
	}
}

func TestMissionEvents(t *testing.T) {
	m := newTestMission(t, func(s *Scenario) { s.Sim.DisableDrag = true })
	inOrbit(m, 405e3)
	m.State.MaxDynamicPressure = 30e3
	events := m.Advance(1)
	for _, name := range []string{EventMaxQ, EventFairing, EventKarman, EventOrbitAchieved} {
		if countEvents(events, name) != 1 {
			t.Fatalf("expected one %s event, got %v", name, events)
		}
	}
	if !m.State.FairingJettisoned {
		t.Fatal("fairing not jettisoned")
	}
	if events = m.Advance(1); len(events) != 0 {
		t.Fatalf("one shot events fired again: %v", events)
	}
	all := m.Events()
	for i := 1; i < len(all); i++ {
		if all[i].Time < all[i-1].Time {
			t.Fatalf("events out of order: %v", all)
		}
	}
	all[0].Name = "modified"
	if m.Events()[0].Name == "modified" {
		t.Fatal("Events must return a copy")
	}
}

func TestMissionTrail(t *testing.T) {
	m := newTestMission(t, func(s *Scenario) {
		s.Sim.DisableDrag = true
		s.Sim.TrailLength = 5
	})
	inOrbit(m, 405e3)
	for i := 0; i < 3; i++ {
		m.Advance(1)
	}
	if l := len(m.Snapshot().Trail); l != 3 {
		t.Fatalf("expected 3 trail points, got %d", l)
	}
	for i := 0; i < 10; i++ {
		m.Advance(1)
	}
	trail := m.Snapshot().Trail
	if len(trail) != 5 {
		t.Fatalf("expected 5 trail points, got %d", len(trail))
	}
	if !vectorsEqual(trail[4], m.State.R) {
		t.Fatal("the newest trail point should be the current position")
	}
}

func TestMissionSnapshotAndReset(t *testing.T) {
	m := newTestMission(t, nil)
	for i := 0; i < 5; i++ {
		m.Advance(1)
	}
	snap := m.Snapshot()
	snap.State.R[0] = 0
	snap.State.Propellant[0] = 0
	snap.Command.Direction[0] = 42
	if m.State.R[0] == 0 || m.State.Propellant[0] == 0 || m.Command().Direction[0] == 42 {
		t.Fatal("Snapshot must return a deep copy")
	}
	if snap.Mission != "ascent" || snap.Body != "Earth" || snap.Warp != 1 {
		t.Fatalf("invalid snapshot metadata: %+v", snap)
	}

	m.SetBurnMode(BurnPrograde)
	m.Reset()
	R, V := Earth.PadState()
	if m.State.Time != 0 || m.State.LiftedOff || !m.State.Running || m.State.BurnMode != BurnNone {
		t.Fatalf("invalid state after reset: %+v", m.State)
	}
	if !vectorsEqual(m.State.R, R) || !vectorsEqual(m.State.V, V) {
		t.Fatal("vehicle not back on the pad")
	}
	if len(m.Events()) != 0 || len(m.Snapshot().Trail) != 0 {
		t.Fatal("history not cleared")
	}
	if m.State.Propellant[0] != m.Rocket.Stages[0].PropellantMass {
		t.Fatal("propellant not refilled")
	}
	events := m.Advance(1)
	if countEvents(events, EventLiftoff) != 1 {
		t.Fatal("a reset mission must lift off again")
	}
}
