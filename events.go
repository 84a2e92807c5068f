package ascent

import "fmt"

// Names of the mission events.
const (
	EventLiftoff         = "Liftoff"
	EventMaxQ            = "Max-Q"
	EventMECO            = "MECO"
	EventStageSeparation = "Stage separation"
	EventEngineCutoff    = "Engine cutoff"
	EventFairing         = "Fairing jettison"
	EventKarman          = "Kármán line"
	EventPeriapsisRaise  = "Periapsis raise burn"
	EventCircularization = "Circularization burn"
	EventRetrograde      = "Retrograde burn"
	EventBurnStart       = "Burn start"
	EventBurnEnd         = "Burn end"
	EventOrbitAchieved   = "Orbit achieved"
	EventGroundImpact    = "Ground impact"
)

// Event is a discrete occurrence during the flight.
type Event struct {
	Time     float64 `json:"time"` // s since the start of the mission
	Name     string  `json:"name"`
	Message  string  `json:"message,omitempty"`
	Δv       float64 `json:"delta_v,omitempty"`  // m/s, for burn ends
	Duration float64 `json:"duration,omitempty"` // s, for burn ends
}

// String implements the Stringer interface.
func (e Event) String() string {
	s := fmt.Sprintf("T+%07.1fs %s", e.Time, e.Name)
	if e.Name == EventBurnEnd {
		s += fmt.Sprintf(" (Δv=%.1f m/s in %.1f s)", e.Δv, e.Duration)
	}
	if e.Message != "" {
		s += ": " + e.Message
	}
	return s
}

// burnTracker integrates the Δv of the current thrusting period.
type burnTracker struct {
	active bool
	start  float64
	Δv     float64
}

// track accumulates the Δv of the sub-step and returns the burn start or end event, if any.
func (b *burnTracker) track(t float64, thrusting bool, Δv float64) (Event, bool) {
	switch {
	case thrusting && !b.active:
		b.active = true
		b.start = t
		b.Δv = Δv
		return Event{Time: t, Name: EventBurnStart}, true
	case thrusting:
		b.Δv += Δv
	case b.active:
		b.active = false
		return Event{Time: t, Name: EventBurnEnd, Δv: b.Δv, Duration: t - b.start}, true
	}
	return Event{}, false
}
