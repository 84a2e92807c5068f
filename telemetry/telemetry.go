// Package telemetry exports the state of an ascent as prometheus metrics.
package telemetry

import (
	"strconv"

	"github.com/ChristopherRabotin/ascent"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the gauges of a single mission.
type Collector struct {
	time            prometheus.Gauge
	altitude        prometheus.Gauge
	velocity        prometheus.Gauge
	downrange       prometheus.Gauge
	mass            prometheus.Gauge
	thrust          prometheus.Gauge
	dynamicPressure prometheus.Gauge
	mach            prometheus.Gauge
	airDensity      prometheus.Gauge
	pitch           prometheus.Gauge
	throttle        prometheus.Gauge
	stage           prometheus.Gauge
	engineStatus    prometheus.Gauge
	running         prometheus.Gauge
	apoapsis        prometheus.Gauge
	periapsis       prometheus.Gauge
	eccentricity    prometheus.Gauge
	circularization prometheus.Gauge
	transfer        prometheus.Gauge
	warp            prometheus.Gauge
	propellant      *prometheus.GaugeVec
	phase           *prometheus.GaugeVec
	events          *prometheus.CounterVec
}

func gauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "ascent", Name: name, Help: help})
}

// NewCollector returns a collector whose metrics are registered on reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		time:            gauge("mission_time_seconds", "Simulated time since the start of the mission"),
		altitude:        gauge("altitude_meters", "Altitude above the mean radius"),
		velocity:        gauge("velocity_mps", "Inertial speed"),
		downrange:       gauge("downrange_meters", "Surface distance from the launch pad"),
		mass:            gauge("mass_kg", "Current vehicle mass"),
		thrust:          gauge("thrust_newton", "Current thrust"),
		dynamicPressure: gauge("dynamic_pressure_pascal", "Current dynamic pressure"),
		mach:            gauge("mach", "Current Mach number"),
		airDensity:      gauge("air_density_kg_per_m3", "Ambient air density"),
		pitch:           gauge("pitch_degrees", "Commanded pitch above the local horizontal"),
		throttle:        gauge("throttle", "Commanded throttle"),
		stage:           gauge("stage", "Index of the active stage"),
		engineStatus:    gauge("engine_status", "1 if the engine is on"),
		running:         gauge("running", "1 while the simulation is running"),
		apoapsis:        gauge("apoapsis_meters", "Apoapsis altitude, +Inf if unbounded"),
		periapsis:       gauge("periapsis_meters", "Periapsis altitude"),
		eccentricity:    gauge("eccentricity", "Orbit eccentricity"),
		circularization: gauge("circularization_dv_mps", "Δv needed at apoapsis to circularize"),
		transfer:        gauge("transfer_dv_mps", "Δv of a Hohmann transfer from the periapsis to the target orbit"),
		warp:            gauge("time_acceleration", "Ratio of simulated to wall clock time"),
		propellant: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ascent",
			Name:      "propellant_kg",
			Help:      "Remaining propellant of each stage",
		}, []string{"stage"}),
		phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ascent",
			Name:      "guidance_phase",
			Help:      "1 for the active guidance phase and insertion case",
		}, []string{"phase", "case"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ascent",
			Name:      "events_total",
			Help:      "Number of mission events",
		}, []string{"event"}),
	}
	for _, col := range []prometheus.Collector{
		c.time, c.altitude, c.velocity, c.downrange, c.mass, c.thrust,
		c.dynamicPressure, c.mach, c.airDensity, c.pitch, c.throttle,
		c.stage, c.engineStatus, c.running, c.apoapsis, c.periapsis,
		c.eccentricity, c.circularization, c.transfer, c.warp, c.propellant, c.phase, c.events,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Observe updates the gauges from the snapshot.
func (c *Collector) Observe(s ascent.Snapshot) {
	c.time.Set(s.State.Time)
	c.altitude.Set(s.Altitude)
	c.velocity.Set(s.Speed)
	c.downrange.Set(s.Downrange)
	c.mass.Set(s.Mass)
	c.thrust.Set(s.Thrust)
	c.dynamicPressure.Set(s.Aero.DynamicPressure)
	c.mach.Set(s.Aero.Mach)
	c.airDensity.Set(s.Aero.Atmosphere.Density)
	c.pitch.Set(s.Command.Pitch)
	c.throttle.Set(s.Command.Throttle)
	c.stage.Set(float64(s.State.Stage))
	c.engineStatus.Set(boolGauge(s.State.EngineOn))
	c.running.Set(boolGauge(s.State.Running))
	c.apoapsis.Set(s.Elements.Apoapsis)
	c.periapsis.Set(s.Elements.Periapsis)
	c.eccentricity.Set(s.Elements.Eccentricity)
	c.circularization.Set(s.CircularizationΔv)
	c.transfer.Set(s.TransferΔv)
	c.warp.Set(s.Warp)
	for i, prop := range s.State.Propellant {
		c.propellant.WithLabelValues(strconv.Itoa(i)).Set(prop)
	}
	c.phase.Reset()
	c.phase.WithLabelValues(s.Command.Phase.String(), s.Command.Case.String()).Set(1)
}

// Count increments the event counters.
func (c *Collector) Count(events []ascent.Event) {
	for _, e := range events {
		c.events.WithLabelValues(e.Name).Inc()
	}
}
