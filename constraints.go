package ascent

import "math"

// PitchLimiter clamps and rate limits the commanded pitch, whatever the phase which produced it.
type PitchLimiter struct {
	Min, Max float64 // deg
	Rate     float64 // deg/s
	last     float64
}

// NewPitchLimiter returns a limiter for a vehicle standing vertically on the pad.
func NewPitchLimiter() *PitchLimiter {
	return &PitchLimiter{Min: -5, Max: 90, Rate: 3, last: 90}
}

// Reset restores a vertical attitude.
func (l *PitchLimiter) Reset() {
	l.last = math.Min(90, l.Max)
}

// Last returns the last constrained pitch in degrees.
func (l *PitchLimiter) Last() float64 {
	return l.last
}

// Hold sets the pitch of an attitude flown without the limiter, clamped to the allowed range,
// from which the next limited commands start.
func (l *PitchLimiter) Hold(pitch float64) {
	if finite(pitch) {
		l.last = clamp(pitch, l.Min, l.Max)
	}
}

// Limit returns the constrained pitch for the requested one after dt seconds since the
// previous command. A non finite request holds the previous pitch.
func (l *PitchLimiter) Limit(pitch, dt float64) float64 {
	if !finite(pitch) {
		return l.last
	}
	pitch = clamp(pitch, l.Min, l.Max)
	maxΔ := 0.0
	if finite(dt) && dt > 0 {
		maxΔ = l.Rate * dt
	}
	l.last = clamp(pitch, l.last-maxΔ, l.last+maxΔ)
	return l.last
}

// Constrain applies the limiter to the command and recomputes its thrust direction at R.
func (l *PitchLimiter) Constrain(cmd GuidanceCommand, R []float64, dt float64) GuidanceCommand {
	cmd.Pitch = l.Limit(cmd.Pitch, dt)
	cmd.Direction = ThrustDirection(R, cmd.Pitch, cmd.Orientation)
	return cmd
}
