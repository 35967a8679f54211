// Package flight defines the records shared between the instrument links, the
// blackboard and its consumers.
package flight

import (
	"time"

	"glidelink/internal/fresh"
	"glidelink/internal/geo"
)

// Field timeouts in seconds of GPS time.
const (
	GPSAltitudeTimeout      = 30
	BaroAltitudeTimeout     = 30
	PressureAltitudeTimeout = 30
	AirspeedTimeout         = 30
	TotalEnergyVarioTimeout = 5
	NettoVarioTimeout       = 5
	ExternalWindTimeout     = 600
	GLoadTimeout            = 5
	WindTimeout             = 600

	EstimatedWindTimeout = 600
	TerrainTimeout       = 30

	// ConnectedTimeout is measured on the monotonic clock.
	ConnectedTimeout = 10
)

// GPSStatus describes the positioning link.
type GPSStatus struct {
	NavWarning       bool `json:"nav_warning"`
	FixQuality       int  `json:"fix_quality"`
	SatellitesUsed   int  `json:"satellites_used"`
	Simulator        bool `json:"simulator"`
	Replay           bool `json:"replay"`
	MovementDetected bool `json:"movement_detected"`
}

// Observed is what the instruments (or a replay/simulator) told us.
type Observed struct {
	// Connected is stamped on the monotonic clock by every ingest.
	Connected fresh.Stamp

	DateTime time.Time
	// Time is GPS seconds since midnight UTC; the time base of all other stamps.
	// It keeps counting past 86400 after a midnight rollover.
	Time float64

	GPS GPSStatus

	Location     geo.Point
	GroundSpeed  float64 // m/s
	TrackBearing float64 // degrees true

	GPSAltitude      fresh.Value[float64]
	BaroAltitude     fresh.Value[float64]
	PressureAltitude fresh.Value[float64]

	IndicatedAirspeed float64
	TrueAirspeed      float64
	AirspeedAvailable fresh.Stamp

	GLoad fresh.Value[float64]

	TotalEnergyVario fresh.Value[float64]
	NettoVario       fresh.Value[float64]

	ExternalWind fresh.Value[geo.SpeedVector]
	ManualWind   fresh.Value[geo.SpeedVector]

	QNH       fresh.Value[float64] // hPa
	MacCready float64              // m/s
}

// Computed is rewritten by every blackboard sweep from Observed and the
// previous sample.
type Computed struct {
	Wind       fresh.Value[geo.SpeedVector]
	WindSource WindSource

	Heading float64

	NavAltitude  float64
	EnergyHeight float64
	TEAltitude   float64

	// BaroFromQNH marks BaroAltitude as derived from pressure altitude and QNH.
	BaroFromQNH bool

	GPSVario    float64
	GPSVarioTE  float64
	BruttoVario float64
	// Netto is the instrument netto when current, else brutto corrected by
	// the polar sink rate.
	Netto          float64
	GliderSinkRate float64

	TurnRate     float64 // deg/s over track
	TurnRateWind float64 // deg/s over heading

	BankAngle  float64 // degrees
	PitchAngle float64 // degrees
	// GLoadEstimate is the balanced-turn load factor; GLoad wins when current.
	GLoadEstimate float64
}

// Observation is one sample of the flight state. Observed and Computed share
// a record only so a snapshot is a single copy.
type Observation struct {
	Observed
	Computed
}

// Reset clears the observation back to its startup state.
func (o *Observation) Reset() {
	*o = Observation{}
	o.GPS.NavWarning = true
	o.GLoadEstimate = 1
}

// Expire drops every sensed field whose stamp is older than its timeout.
// It does not touch Connected, which lives on a different clock.
func (o *Observation) Expire() {
	now := o.Time
	o.GPSAltitude.Expire(now, GPSAltitudeTimeout)
	o.BaroAltitude.Expire(now, BaroAltitudeTimeout)
	o.PressureAltitude.Expire(now, PressureAltitudeTimeout)
	o.AirspeedAvailable.Expire(now, AirspeedTimeout)
	o.GLoad.Expire(now, GLoadTimeout)
	o.TotalEnergyVario.Expire(now, TotalEnergyVarioTimeout)
	o.NettoVario.Expire(now, NettoVarioTimeout)
	o.ExternalWind.Expire(now, ExternalWindTimeout)
	o.Wind.Expire(now, WindTimeout)
}

// CurrentGLoad returns the measured load factor if current, else the estimate.
func (o *Observation) CurrentGLoad() float64 {
	if o.GLoad.IsValid() {
		return o.GLoad.Get()
	}
	return o.GLoadEstimate
}
