package sim

import (
	"math"
	"time"

	"glidelink/internal/geo"
)

// State is one simulated ownship sample.
type State struct {
	Location      geo.Point
	GroundSpeedMS float64
	TrackDeg      float64
	AltitudeM     float64
}

// Thermal flies circles in a rising thermal that drifts with the wind.
type Thermal struct {
	Center     geo.Point
	BaseAltM   float64
	AirspeedMS float64
	RadiusM    float64
	ClimbMS    float64
	// CycleTime is how long one climb lasts before the altitude resets.
	CycleTime time.Duration
	// Wind is the direction the wind blows from and its speed.
	Wind geo.SpeedVector
}

func (s Thermal) withDefaults() Thermal {
	if s.BaseAltM == 0 {
		s.BaseAltM = 1000
	}
	if s.AirspeedMS <= 0 {
		s.AirspeedMS = 25
	}
	if s.RadiusM <= 0 {
		s.RadiusM = 150
	}
	if s.ClimbMS == 0 {
		s.ClimbMS = 1.5
	}
	if s.CycleTime <= 0 {
		s.CycleTime = 10 * time.Minute
	}
	return s
}

// StateAt returns the deterministic state at elapsed since the start.
func (s Thermal) StateAt(elapsed time.Duration) State {
	s = s.withDefaults()
	t := elapsed.Seconds()

	// Angular rate of a circle flown at constant airspeed.
	omega := s.AirspeedMS / s.RadiusM
	theta := omega * t

	// Air-relative position and velocity, clockwise seen from above.
	airE := s.RadiusM * math.Sin(theta)
	airN := s.RadiusM * math.Cos(theta)
	vE := s.AirspeedMS * math.Cos(theta)
	vN := -s.AirspeedMS * math.Sin(theta)

	// The wind blows towards Wind.BearingDeg+180.
	wb := s.Wind.BearingDeg * geo.DegToRad
	wE := -s.Wind.NormMS * math.Sin(wb)
	wN := -s.Wind.NormMS * math.Cos(wb)

	dE := airE + wE*t
	dN := airN + wN*t
	gE := vE + wE
	gN := vN + wN

	lat := s.Center.LatDeg + dN/geo.EarthRadiusM*geo.RadToDeg
	lon := s.Center.LonDeg + dE/(geo.EarthRadiusM*math.Cos(s.Center.LatDeg*geo.DegToRad))*geo.RadToDeg

	cycle := math.Mod(t, s.CycleTime.Seconds())
	return State{
		Location:      geo.Point{LatDeg: lat, LonDeg: lon},
		GroundSpeedMS: math.Hypot(gE, gN),
		TrackDeg:      geo.NormalizeBearing(math.Atan2(gE, gN) * geo.RadToDeg),
		AltitudeM:     s.BaseAltM + s.ClimbMS*cycle,
	}
}
