package ascent

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

const (
	// exportInterval is the minimum simulated time between two exported states, in seconds.
	exportInterval = 1.0
	stampFormat    = "2006-01-02T15.04.05"
)

// CgCatalog definition.
type CgCatalog struct {
	Version string     `json:"version"`
	Name    string     `json:"name"`
	Items   []*CgItems `json:"items"`
	Require []string   `json:"require,omitempty"`
}

func (c *CgCatalog) String() string {
	return c.Name + "(" + c.Version + ")"
}

// CgItems definition.
type CgItems struct {
	Class           string            `json:"class"`
	Name            string            `json:"name"`
	StartTime       string            `json:"startTime"`
	EndTime         string            `json:"endTime"`
	Center          string            `json:"center"`
	TrajectoryFrame string            `json:"trajectoryFrame"`
	Trajectory      *CgTrajectory     `json:"trajectory,omitempty"`
	Label           *CgLabel          `json:"label,omitempty"`
	TrajectoryPlot  *CgTrajectoryPlot `json:"trajectoryPlot,omitempty"`
}

// CgTrajectory definition.
type CgTrajectory struct {
	Type   string `json:"type,omitempty"`
	Source string `json:"source,omitempty"`
}

// Validate validates a CgTrajectory.
func (t *CgTrajectory) Validate() error {
	if t.Type != "InterpolatedStates" || !strings.HasSuffix(t.Source, "xyzv") {
		return errors.New("only InterpolatedStates are currently supported in Cosmographia trajectory types")
	}
	return nil
}

// CgLabel definition.
type CgLabel struct {
	Color    []float64 `json:"color,omitempty"`
	FadeSize int       `json:"fadeSize,omitempty"`
	ShowText bool      `json:"showText,omitempty"`
}

// CgTrajectoryPlot definition.
type CgTrajectoryPlot struct {
	Color       []float64 `json:"color,omitempty"`
	LineWidth   int       `json:"lineWidth,omitempty"`
	Duration    string    `json:"duration,omitempty"`
	Lead        string    `json:"lead,omitempty"`
	Fade        int       `json:"fade,omitempty"`
	SampleCount int       `json:"sampleCount,omitempty"`
}

// CgInterpolatedState is a record of an xyzv file. The planar states are written in the
// equatorial plane, with a null Z component.
type CgInterpolatedState struct {
	JD       float64
	Position []float64 // km
	Velocity []float64 // km/s
}

// NewCgInterpolatedState returns the record of the snapshot, dated from the epoch of the launch.
func NewCgInterpolatedState(s Snapshot, epoch time.Time) CgInterpolatedState {
	R, V := s.State.R, s.State.V
	return CgInterpolatedState{
		JD:       julian.TimeToJD(missionTime(epoch, s.State.Time)),
		Position: []float64{R[0] / 1e3, R[1] / 1e3, 0},
		Velocity: []float64{V[0] / 1e3, V[1] / 1e3, 0},
	}
}

// ToText converts to text for written output.
func (i *CgInterpolatedState) ToText() string {
	return fmt.Sprintf("%f %f %f %f %f %f %f", i.JD, i.Position[0], i.Position[1], i.Position[2], i.Velocity[0], i.Velocity[1], i.Velocity[2])
}

// ExportConfig configures the exporting of the simulation.
type ExportConfig struct {
	Filename     string                  `mapstructure:"filename"`
	OutputDir    string                  `mapstructure:"output_dir"`
	Cosmo        bool                    `mapstructure:"cosmo"`
	AsCSV        bool                    `mapstructure:"csv"`
	Timestamp    bool                    `mapstructure:"timestamp"`
	Epoch        time.Time               `mapstructure:"-"` // UTC date of the liftoff
	CSVAppend    func(s Snapshot) string `mapstructure:"-"` // Custom export (do not include leading comma)
	CSVAppendHdr func() string           `mapstructure:"-"` // Header for the custom export
}

// IsUseless returns whether this config doesn't actually do anything.
func (c ExportConfig) IsUseless() bool {
	return !c.Cosmo && !c.AsCSV
}

// path returns the path of an exported file.
func (c ExportConfig) path(prefix, ext string) string {
	name := prefix + "-" + c.Filename
	if c.Timestamp {
		name += "-" + time.Now().UTC().Format(stampFormat)
	}
	return filepath.Join(c.OutputDir, name+"."+ext)
}

func missionTime(epoch time.Time, t float64) time.Time {
	return epoch.Add(time.Duration(t * float64(time.Second)))
}

// WriteInterpolatedHeader writes the header of a Cosmographia xyzv file.
func WriteInterpolatedHeader(w io.Writer, epoch time.Time) error {
	_, err := fmt.Fprintf(w, `# Creation date (UTC): %s
# Records are <jd> <x> <y> <z> <vel x> <vel y> <vel z>
#   Time is a TDB Julian date
#   Position in km
#   Velocity in km/sec
#   Simulation time start (UTC): %s`, time.Now().UTC(), epoch.UTC())
	return err
}

// CSVHeader returns the columns of the flight CSV export.
func CSVHeader(conf ExportConfig) []string {
	hdr := []string{"jd", "time", "x", "y", "vx", "vy", "altitude", "speed", "mass", "thrust", "pitch", "phase", "case", "apoapsis", "periapsis", "eccentricity"}
	if conf.CSVAppendHdr != nil {
		hdr = append(hdr, conf.CSVAppendHdr())
	}
	return hdr
}

// CSVRecord returns the CSV record of the snapshot.
func CSVRecord(conf ExportConfig, s Snapshot) []string {
	f := func(v float64, prec int) string {
		return strconv.FormatFloat(v, 'f', prec, 64)
	}
	o := s.Elements
	rec := []string{
		f(julian.TimeToJD(missionTime(conf.Epoch, s.State.Time)), 6), f(s.State.Time, 3),
		f(s.State.R[0], 3), f(s.State.R[1], 3), f(s.State.V[0], 3), f(s.State.V[1], 3),
		f(s.Altitude, 3), f(s.Speed, 3), f(s.Mass, 3), f(s.Thrust, 1), f(s.Command.Pitch, 3),
		s.Command.Phase.String(), s.Command.Case.String(),
		f(o.Apoapsis, 1), f(o.Periapsis, 1), f(o.Eccentricity, 6),
	}
	if conf.CSVAppend != nil {
		rec = append(rec, conf.CSVAppend(s))
	}
	return rec
}

// exporter writes the streamed snapshots to the configured files.
type exporter struct {
	conf        ExportConfig
	xyzv        *os.File
	csvF        *os.File
	csvW        *csv.Writer
	first, last *Snapshot
}

func (e *exporter) open(s Snapshot) error {
	if e.conf.Cosmo {
		f, err := os.Create(e.conf.path("prop", "xyzv"))
		if err != nil {
			return err
		}
		e.xyzv = f
		if err := WriteInterpolatedHeader(f, missionTime(e.conf.Epoch, s.State.Time)); err != nil {
			return err
		}
	}
	if e.conf.AsCSV {
		f, err := os.Create(e.conf.path("flight", "csv"))
		if err != nil {
			return err
		}
		e.csvF = f
		e.csvW = csv.NewWriter(f)
		if err := e.csvW.Write(CSVHeader(e.conf)); err != nil {
			return err
		}
	}
	return nil
}

func (e *exporter) write(s Snapshot) error {
	if e.first == nil {
		e.first, e.last = &s, &s
		if err := e.open(s); err != nil {
			return err
		}
	} else if s.State.Time-e.last.State.Time < exportInterval {
		// Only write one point per simulated second.
		return nil
	}
	e.last = &s
	if e.xyzv != nil {
		rec := NewCgInterpolatedState(s, e.conf.Epoch)
		if _, err := e.xyzv.WriteString("\n" + rec.ToText()); err != nil {
			return err
		}
	}
	if e.csvW != nil {
		return e.csvW.Write(CSVRecord(e.conf, s))
	}
	return nil
}

// close finalizes the files and writes the Cosmographia catalog.
func (e *exporter) close() error {
	var errs []error
	if e.xyzv != nil {
		end := missionTime(e.conf.Epoch, e.last.State.Time).UTC()
		_, err := fmt.Fprintf(e.xyzv, "\n# Simulation time end (UTC): %s\n", end)
		errs = append(errs, err, e.xyzv.Close(), e.writeCatalog())
	}
	if e.csvW != nil {
		e.csvW.Flush()
		errs = append(errs, e.csvW.Error(), e.csvF.Close())
	}
	return errors.Join(errs...)
}

func (e *exporter) writeCatalog() error {
	color := []float64{0.6, 1, 1}
	start := missionTime(e.conf.Epoch, e.first.State.Time).UTC()
	end := missionTime(e.conf.Epoch, e.last.State.Time).Add(time.Hour).UTC()
	traj := CgTrajectory{Type: "InterpolatedStates", Source: filepath.Base(e.xyzv.Name())}
	if err := traj.Validate(); err != nil {
		return err
	}
	item := &CgItems{
		Class:           "spacecraft",
		Name:            e.first.Mission,
		StartTime:       start.String(),
		EndTime:         end.String(),
		Center:          e.first.Body,
		TrajectoryFrame: "ICRF",
		Trajectory:      &traj,
		Label:           &CgLabel{Color: color, FadeSize: 1000000, ShowText: true},
		TrajectoryPlot:  &CgTrajectoryPlot{Color: color, LineWidth: 1, Duration: fmt.Sprintf("%d h", int(end.Sub(start).Hours())+1), Lead: "0 d", SampleCount: 10},
	}
	c := CgCatalog{Version: "1.0", Name: e.first.Mission, Items: []*CgItems{item}}
	marsh, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(e.conf.path("catalog", "json"), marsh, 0644)
}

// StreamStates streams the snapshots of the channel to the configured files until the channel
// is closed. The channel is always drained, even after a write error.
func StreamStates(conf ExportConfig, snapshots <-chan Snapshot) error {
	e := exporter{conf: conf}
	var err error
	for s := range snapshots {
		if conf.IsUseless() || err != nil {
			continue
		}
		err = e.write(s)
	}
	if e.first == nil {
		return err
	}
	return errors.Join(err, e.close())
}
