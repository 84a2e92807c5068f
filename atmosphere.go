package ascent

import "math"

const (
	atmoRadius  = 6356766.0 // Effective Earth radius for geopotential altitudes (m)
	atmoM0      = 0.0289644 // Molar mass of air (kg/mol)
	atmoRstar   = 8.31432   // Universal gas constant (J/(mol·K))
	atmoGamma   = 1.4
	atmoP0      = 101325.0 // Sea level pressure (Pa)
	sutherlandβ = 1.458e-6
	sutherlandS = 110.4
	// AtmosphereLimit is the altitude above which guidance considers the vehicle in vacuum.
	AtmosphereLimit = 70e3
)

// atmoLayer is a layer of the US Standard Atmosphere 1976.
type atmoLayer struct {
	base  float64 // Base geopotential altitude (m)
	temp  float64 // Base temperature (K)
	lapse float64 // Lapse rate (K/m)
	press float64 // Base pressure (Pa), chained from sea level
}

var (
	atmoLayers = chainLayers([]atmoLayer{
		{0, 288.15, -6.5e-3, 0},
		{11000, 216.65, 0, 0},
		{20000, 216.65, 1.0e-3, 0},
		{32000, 228.65, 2.8e-3, 0},
		{47000, 270.65, 0, 0},
		{51000, 270.65, -2.8e-3, 0},
		{71000, 214.65, -2.0e-3, 0},
	})
	atmoTop            = 84852.0 // Top of the data in geopotential altitude (m)
	atmoTopTemperature = atmoLayers[6].temperature(atmoTop)
	atmoTopPressure    = atmoLayers[6].pressure(atmoTop)
	atmoScaleHeight    = atmoRstar * atmoTopTemperature / (atmoM0 * g0)
)

// chainLayers sets each base pressure to the pressure at the top of the layer below.
func chainLayers(layers []atmoLayer) []atmoLayer {
	layers[0].press = atmoP0
	for i := 1; i < len(layers); i++ {
		layers[i].press = layers[i-1].pressure(layers[i].base)
	}
	return layers
}

func (l atmoLayer) temperature(h float64) float64 {
	return l.temp + l.lapse*(h-l.base)
}

func (l atmoLayer) pressure(h float64) float64 {
	if math.Abs(l.lapse) < 1e-10 {
		return l.press * math.Exp(-g0*atmoM0*(h-l.base)/(atmoRstar*l.temp))
	}
	return l.press * math.Pow(l.temp/l.temperature(h), g0*atmoM0/(atmoRstar*l.lapse))
}

// AtmosphericSample stores the state of the atmosphere at a given altitude.
type AtmosphericSample struct {
	Temperature  float64 `json:"temperature"`    // K
	Pressure     float64 `json:"pressure"`       // Pa
	Density      float64 `json:"density"`        // kg/m^3
	SpeedOfSound float64 `json:"speed_of_sound"` // m/s
	Viscosity    float64 `json:"viscosity"`      // Dynamic viscosity, Pa·s
	Geopotential float64 `json:"geopotential"`   // m
	Layer        int     `json:"layer"`
	Extrapolated bool    `json:"extrapolated"`
}

// SeaLevelPressure is the reference pressure of the atmosphere model in Pa.
func SeaLevelPressure() float64 {
	return atmoP0
}

// GeopotentialAltitude converts a geometric altitude into a geopotential one.
func GeopotentialAltitude(z float64) float64 {
	return atmoRadius * z / (atmoRadius + z)
}

// Atmosphere returns the atmospheric sample at the geometric altitude z in meters.
// Altitudes below zero or non finite are clamped to sea level. Above 86 km, the
// temperature is held and the pressure decays exponentially.
func Atmosphere(z float64) AtmosphericSample {
	if !finite(z) || z < 0 {
		z = 0
	}
	h := GeopotentialAltitude(z)
	var s AtmosphericSample
	s.Geopotential = h
	if h > atmoTop {
		s.Layer = len(atmoLayers) - 1
		s.Extrapolated = true
		s.Temperature = atmoTopTemperature
		s.Pressure = atmoTopPressure * math.Exp(-(h-atmoTop)/atmoScaleHeight)
	} else {
		for i := len(atmoLayers) - 1; i >= 0; i-- {
			if atmoLayers[i].base <= h {
				s.Layer = i
				break
			}
		}
		layer := atmoLayers[s.Layer]
		s.Temperature = layer.temperature(h)
		s.Pressure = layer.pressure(h)
	}
	s.Density = s.Pressure * atmoM0 / (atmoRstar * s.Temperature)
	s.SpeedOfSound = math.Sqrt(atmoGamma * atmoRstar * s.Temperature / atmoM0)
	s.Viscosity = sutherlandβ * math.Pow(s.Temperature, 1.5) / (s.Temperature + sutherlandS)
	return s
}
