package ascent

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestDefaultScenario(t *testing.T) {
	s := DefaultScenario()
	require.NoError(t, s.Validate())
	assert.Equal(t, "earth", s.Sim.Body)
	assert.Equal(t, 400e3, s.Guidance.TargetAltitude)
	assert.Len(t, s.Rocket.Stages, 2)
	assert.True(t, s.Export.IsUseless())
}

func TestLoadScenario(t *testing.T) {
	path := writeScenario(t, `
name = "leo"

[guidance]
target_altitude = 300e3
direct_ascent = true

[sim]
time_acceleration = 4
duration = "10m"

[export]
filename = "leo"
csv = true
epoch = 2024-03-01T12:00:00Z
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "leo", s.Name)
	assert.Equal(t, 300e3, s.Guidance.TargetAltitude)
	assert.True(t, s.Guidance.DirectAscent)
	assert.Equal(t, DefaultGuidance().Tolerance, s.Guidance.Tolerance, "unset keys keep their default")
	assert.Equal(t, 4.0, s.Sim.TimeAcceleration)
	assert.Equal(t, 10*time.Minute, s.Sim.Duration)
	assert.Equal(t, DefaultSimConfig().Tick, s.Sim.Tick)
	assert.True(t, s.Export.AsCSV)
	assert.False(t, s.Export.Cosmo)
	assert.True(t, s.Export.Epoch.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, DefaultRocket().Stages, s.Rocket.Stages, "default stages are used when none are defined")
}

func TestLoadScenarioStages(t *testing.T) {
	path := writeScenario(t, `
[rocket]
name = "single"
length = 30

[[rocket.stages]]
name = "core"
thrust_sl = 2.0e6
thrust_vac = 2.2e6
isp_sl = 290
isp_vac = 320
propellant_mass = 100e3
dry_mass = 8e3
diameter = 2.5
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)
	require.Len(t, s.Rocket.Stages, 1)
	assert.Equal(t, Stage{Name: "core", ThrustSL: 2e6, ThrustVac: 2.2e6, IspSL: 290, IspVac: 320, PropellantMass: 100e3, DryMass: 8e3, Diameter: 2.5}, s.Rocket.Stages[0])
	assert.Equal(t, "single", s.Rocket.Name)
	assert.Equal(t, 30.0, s.Rocket.Length)
	assert.Equal(t, DefaultRocket().PayloadMass, s.Rocket.PayloadMass)
}

func TestLoadScenarioEnvironment(t *testing.T) {
	path := writeScenario(t, "[guidance]\ntarget_altitude = 300e3\n")
	t.Setenv("ASCENT_GUIDANCE_TARGET_ALTITUDE", "500000")
	t.Setenv("ASCENT_SIM_DISABLE_DRAG", "true")
	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, 500e3, s.Guidance.TargetAltitude)
	assert.True(t, s.Sim.DisableDrag)
}

func TestLoadScenarioErrors(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = LoadScenario(writeScenario(t, "[guidance]\ntarget_altitude = 50e3\n"))
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = LoadScenario(writeScenario(t, "[sim]\nbody = \"mars\"\n"))
	assert.ErrorIs(t, err, ErrNoAtmosphere)

	_, err = LoadScenario(writeScenario(t, "[sim]\nmax_sub_steps = 0\n"))
	assert.ErrorIs(t, err, ErrInvalidSimulation)

	_, err = LoadScenario(writeScenario(t, "not toml at all ["))
	assert.Error(t, err)
}

func TestDefaultScenarioPath(t *testing.T) {
	t.Setenv("ASCENT_CONFIG", "")
	assert.Equal(t, "scenario.toml", DefaultScenarioPath())
	t.Setenv("ASCENT_CONFIG", "/etc/ascent/leo.toml")
	assert.Equal(t, "/etc/ascent/leo.toml", DefaultScenarioPath())
}
