package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ChristopherRabotin/ascent"
	kitlog "github.com/go-kit/log"
)

// This command flies a scenario as fast as possible and exports the trajectory.

var (
	scenario string
	verbose  bool
)

func init() {
	flag.StringVar(&scenario, "scenario", ascent.DefaultScenarioPath(), "scenario TOML file")
	flag.BoolVar(&verbose, "verbose", false, "log every guidance transition")
}

func main() {
	flag.Parse()
	conf, err := ascent.LoadScenario(scenario)
	if err != nil {
		log.Fatalf("%s: %s", scenario, err)
	}
	var logger kitlog.Logger = kitlog.NewNopLogger()
	if verbose {
		logger = kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	}
	m, err := ascent.NewMission(conf, logger)
	if err != nil {
		log.Fatal(err)
	}
	// The batch run is not paced by a wall clock: every Advance flies the maximum step.
	if err := m.SetTimeAcceleration(m.Sim.MaxStep); err != nil {
		log.Fatal(err)
	}

	snapshots := make(chan ascent.Snapshot, 100)
	done := make(chan error, 1)
	go func() {
		done <- ascent.StreamStates(conf.Export, snapshots)
	}()

	snapshots <- m.Snapshot()
	for m.Running() && m.State.Time < conf.Sim.Duration.Seconds() {
		for _, e := range m.Advance(1) {
			fmt.Println(e)
		}
		snapshots <- m.Snapshot()
		if m.Command().Case == ascent.CaseOrbitAchieved && !m.Command().Thrusting() {
			break
		}
	}
	close(snapshots)
	if err := <-done; err != nil {
		log.Fatalf("export failed: %s", err)
	}

	snap := m.Snapshot()
	fmt.Printf("\nT+%s %s\n", time.Duration(snap.State.Time*float64(time.Second)).Round(time.Second), snap.Elements)
	fmt.Printf("altitude: %.1f km\tspeed: %.1f m/s\tdownrange: %.1f km\n", snap.Altitude/1e3, snap.Speed, snap.Downrange/1e3)
	fmt.Printf("circularization: %.1f m/s\ttransfer to target: %.1f m/s\n", snap.CircularizationΔv, snap.TransferΔv)
	for i, prop := range snap.State.Propellant {
		fmt.Printf("stage %d (%s): %.1f kg of propellant left\n", i, m.Rocket.Stages[i].Name, prop)
	}
	if snap.State.Impacted {
		os.Exit(1)
	}
}
