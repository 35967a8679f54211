package blackboard

import (
	"math"

	"glidelink/internal/atmos"
	"glidelink/internal/flight"
	"glidelink/internal/geo"
)

const (
	gravity = 9.81
	// minCosBank caps the load factor estimate in very steep banks.
	minCosBank = 0.001
)

// Tick runs the full recomputation sweep. It is driven by an external
// scheduler and never fails: missing inputs degrade to zero or unavailable.
func (b *Blackboard) Tick() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.basic.Expire()
	b.calculated.Expire(b.basic.Time)

	b.syncSystemTime()

	b.selectWind()
	b.computeHeading()
	b.computeNavAltitude()
	b.autoQNH()

	b.tickFast()

	b.computeTurnRate()

	if !b.haveLast || b.basic.Time > b.last.Time {
		b.computeDynamics()
		b.last = b.basic
		b.haveLast = true
	}
}

// TickFast recomputes energy height and the varios only. It may run more
// often than Tick.
func (b *Blackboard) TickFast() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tickFast()
}

func (b *Blackboard) tickFast() {
	b.computeEnergyHeight()
	b.computeVario()
	b.computeNetto()
}

// elapsed returns the time since the history sample, ok only when positive.
func (b *Blackboard) elapsed() (float64, bool) {
	if !b.haveLast {
		return 0, false
	}
	dt := b.basic.Time - b.last.Time
	return dt, dt > 0
}

func (b *Blackboard) currentWind() geo.SpeedVector {
	if b.basic.Wind.IsValid() {
		return b.basic.Wind.Get()
	}
	return geo.SpeedVector{}
}

// selectWind picks the wind source. The order is pilot-facing behaviour and
// must not be rearranged.
func (b *Blackboard) selectWind() {
	o := &b.basic
	s := b.settings.Computer

	switch {
	case o.ExternalWind.IsValid() && s.ExternalWind:
		o.Wind = o.ExternalWind
		o.WindSource = flight.WindSourceExternal

	case o.ManualWind.IsValid() && !s.AutoWindMode.Auto():
		o.Wind.Update(o.ManualWind.Get(), o.Time)
		o.WindSource = flight.WindSourceManual

	case b.calculated.EstimatedWind.Modified(o.ManualWind.Stamp) && s.AutoWindMode.Auto():
		// A newer estimate supersedes the manual entry for good.
		o.Wind = b.calculated.EstimatedWind
		o.WindSource = flight.WindSourceEstimated
		o.ManualWind.Clear()

	case o.ManualWind.IsValid() && s.AutoWindMode.Auto():
		o.Wind = o.ManualWind
		o.WindSource = flight.WindSourceManual

	default:
		o.Wind.Clear()
		o.WindSource = flight.WindSourceNone
	}
}

func (b *Blackboard) computeHeading() {
	o := &b.basic
	wind := b.currentWind()

	if (o.GroundSpeed > 0 || wind.IsNonZero()) && b.calculated.Flying {
		trk := o.TrackBearing * geo.DegToRad
		wb := wind.BearingDeg * geo.DegToRad
		x := math.Sin(trk)*o.GroundSpeed + math.Sin(wb)*wind.NormMS
		y := math.Cos(trk)*o.GroundSpeed + math.Cos(wb)*wind.NormMS
		o.Heading = geo.NormalizeBearing(math.Atan2(x, y) * geo.RadToDeg)
		return
	}
	o.Heading = o.TrackBearing
}

func (b *Blackboard) computeNavAltitude() {
	o := &b.basic

	if o.PressureAltitude.IsValid() && o.QNH.IsValid() && (!o.BaroAltitude.IsValid() || o.BaroFromQNH) {
		alt := atmos.BaroAltitude(o.PressureAltitude.Get(), o.QNH.Get())
		o.BaroAltitude.Update(alt, o.PressureAltitude.At())
		o.BaroFromQNH = true
	}

	if b.settings.Computer.EnableNavBaroAltitude && o.BaroAltitude.IsValid() {
		o.NavAltitude = o.BaroAltitude.Get()
	} else {
		o.NavAltitude = o.GPSAltitude.Get()
	}
}

// computeEnergyHeight uses h = v²/2g. Unknown airspeed counts as zero kinetic
// energy.
func (b *Blackboard) computeEnergyHeight() {
	o := &b.basic
	if b.calculated.AirspeedAvailable.IsValid() {
		tas := b.calculated.TrueAirspeed
		o.EnergyHeight = tas * tas / (2 * gravity)
	} else {
		o.EnergyHeight = 0
	}
	o.TEAltitude = o.NavAltitude + o.EnergyHeight
}

func (b *Blackboard) computeVario() {
	o := &b.basic
	if dt, ok := b.elapsed(); ok {
		o.GPSVario = (o.GPSAltitude.Get() - b.last.GPSAltitude.Get()) / dt
		o.GPSVarioTE = (o.TEAltitude - b.last.TEAltitude) / dt
	}

	if o.TotalEnergyVario.IsValid() {
		o.BruttoVario = o.TotalEnergyVario.Get()
	} else {
		o.BruttoVario = o.GPSVarioTE
	}
}

func (b *Blackboard) computeNetto() {
	o := &b.basic

	o.GliderSinkRate = 0
	if b.calculated.Flying && b.calculated.AirspeedAvailable.IsValid() {
		o.GliderSinkRate = -b.settings.Computer.Polar.SinkRate(b.calculated.IndicatedAirspeed, o.CurrentGLoad())
	}

	if o.NettoVario.IsValid() {
		o.Netto = o.NettoVario.Get()
	} else {
		o.Netto = o.BruttoVario - o.GliderSinkRate
	}
}

func (b *Blackboard) computeTurnRate() {
	o := &b.basic
	if !b.calculated.Flying {
		o.TurnRate = 0
		return
	}
	dt, ok := b.elapsed()
	if !ok {
		return
	}
	o.TurnRate = geo.DeltaBearing(b.last.TrackBearing, o.TrackBearing) / dt
}

// computeDynamics estimates bank, pitch and load factor assuming a balanced
// turn.
func (b *Blackboard) computeDynamics() {
	o := &b.basic
	c := &b.calculated

	if !c.Flying || (o.GroundSpeed <= 0 && !b.currentWind().IsNonZero()) {
		o.BankAngle = 0
		o.PitchAngle = 0
		o.TurnRateWind = 0
		o.GLoadEstimate = 1
		return
	}

	if dt, ok := b.elapsed(); ok {
		o.TurnRateWind = geo.DeltaBearing(b.last.Heading, o.Heading) / dt
	}

	if c.AirspeedAvailable.IsValid() {
		bank := math.Atan(o.TurnRateWind * geo.DegToRad * c.TrueAirspeed / gravity)
		o.BankAngle = bank * geo.RadToDeg
		o.GLoadEstimate = 1 / math.Max(minCosBank, math.Abs(math.Cos(bank)))
	} else {
		o.BankAngle = 0
		o.GLoadEstimate = 1
	}

	if c.AirspeedAvailable.IsValid() && o.TotalEnergyVario.IsValid() {
		o.PitchAngle = math.Atan2(o.GPSVario-o.TotalEnergyVario.Get(), c.TrueAirspeed) * geo.RadToDeg
	} else {
		o.PitchAngle = 0
	}
}
