// Package glide is a minimal glide computer: it decides whether the aircraft
// is flying or on the ground, detects circling, estimates wind from circling
// drift and supplies the result to the blackboard as DerivedState.
package glide

import (
	"math"

	"glidelink/internal/flight"
	"glidelink/internal/geo"
)

const (
	// TakeoffSpeedMS is the speed above which the aircraft counts as moving
	// under its own lift.
	TakeoffSpeedMS = 10.0
	// LandedSpeedMS is the speed below which the aircraft may be on ground.
	LandedSpeedMS = 5.0

	takeoffDwell = 10.0 // s
	landedDwell  = 30.0 // s

	circlingRate   = 4.0 // deg/s
	circlingEnter  = 5.0 // s
	circlingExit   = 10.0
	windMinSamples = 8
)

// Result is one update of the glide computer.
type Result struct {
	Derived  flight.DerivedState
	Circling bool
	// VOpt is the MacCready speed to fly in m/s.
	VOpt float64
}

// Computer keeps the hysteresis state between updates. It is not safe for
// concurrent use.
type Computer struct {
	last   float64
	primed bool

	flying   bool
	fastFor  float64
	slowFor  float64
	onGround bool

	circling  bool
	turnFor   float64
	cruiseFor float64

	circle   []windSample
	turned   float64
	estimate flight.DerivedState
}

type windSample struct {
	track float64
	gs    float64
}

func New() *Computer {
	return &Computer{}
}

// Update consumes the latest observation. Calls with a time not after the
// previous one only refresh the pass-through fields.
func (c *Computer) Update(o flight.Observation, s flight.Settings) Result {
	// GPS time going backwards (midnight, replay restart) contributes no
	// elapsed time.
	dt := 0.0
	if c.primed && o.Time > c.last {
		dt = o.Time - c.last
	}
	c.primed = true
	c.last = o.Time

	speed := o.GroundSpeed
	if o.AirspeedAvailable.IsValid() {
		speed = o.IndicatedAirspeed
	}
	c.updateFlying(speed, dt, !o.GPS.NavWarning)
	c.updateCircling(o.TurnRate, dt)
	c.updateWind(o, dt)

	d := flight.DerivedState{
		Flying:          c.flying,
		OnGround:        c.onGround,
		EstimatedWind:   c.estimate.EstimatedWind,
		TerrainAltitude: c.estimate.TerrainAltitude,
	}
	if o.AirspeedAvailable.IsValid() {
		d.AirspeedAvailable = o.AirspeedAvailable
		d.IndicatedAirspeed = o.IndicatedAirspeed
		d.TrueAirspeed = o.TrueAirspeed
	}

	return Result{
		Derived:  d,
		Circling: c.circling,
		VOpt:     s.Computer.Polar.SpeedToFly(o.MacCready),
	}
}

// SetTerrain supplies a terrain elevation sample at GPS time t.
func (c *Computer) SetTerrain(elevationM, t float64) {
	c.estimate.TerrainAltitude.Update(elevationM, t)
}

func (c *Computer) updateFlying(speed, dt float64, fix bool) {
	if speed > TakeoffSpeedMS {
		c.fastFor += dt
		c.slowFor = 0
	} else if speed < LandedSpeedMS {
		c.slowFor += dt
		c.fastFor = 0
	}

	switch {
	case !c.flying && c.fastFor >= takeoffDwell:
		c.flying = true
	case c.flying && c.slowFor >= landedDwell:
		c.flying = false
	}
	c.onGround = fix && !c.flying && speed < LandedSpeedMS && c.slowFor >= takeoffDwell
}

func (c *Computer) updateCircling(turnRate, dt float64) {
	if !c.flying {
		c.circling = false
		c.turnFor, c.cruiseFor = 0, 0
		return
	}
	if math.Abs(turnRate) >= circlingRate {
		c.turnFor += dt
		c.cruiseFor = 0
	} else {
		c.cruiseFor += dt
		c.turnFor = 0
	}
	switch {
	case !c.circling && c.turnFor >= circlingEnter:
		c.circling = true
	case c.circling && c.cruiseFor >= circlingExit:
		c.circling = false
	}
}

// updateWind collects ground speed around one full circle. The wind blows
// from the track flown at minimum ground speed; its strength is half the
// ground speed spread.
func (c *Computer) updateWind(o flight.Observation, dt float64) {
	if !c.circling || dt <= 0 {
		c.circle = c.circle[:0]
		c.turned = 0
		return
	}
	c.circle = append(c.circle, windSample{track: o.TrackBearing, gs: o.GroundSpeed})
	c.turned += math.Abs(o.TurnRate * dt)
	if c.turned < 360 || len(c.circle) < windMinSamples {
		return
	}

	lo, hi := c.circle[0], c.circle[0]
	for _, s := range c.circle[1:] {
		if s.gs < lo.gs {
			lo = s
		}
		if s.gs > hi.gs {
			hi = s
		}
	}
	w := geo.SpeedVector{BearingDeg: geo.NormalizeBearing(lo.track), NormMS: (hi.gs - lo.gs) / 2}
	c.estimate.EstimatedWind.Update(w, o.Time)

	c.circle = c.circle[:0]
	c.turned = 0
}
