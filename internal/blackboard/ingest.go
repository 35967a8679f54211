package blackboard

import (
	"time"

	"glidelink/internal/geo"
)

// FixUpdate carries one decoded position report.
type FixUpdate struct {
	// Time is GPS seconds since midnight UTC. Values past 86400 are taken as
	// the following day; a plain time of day that wraps is unwrapped here.
	Time     float64
	DateTime time.Time
	Valid    bool

	Location     geo.Point
	GroundSpeed  float64 // m/s
	TrackBearing float64
	// TrackOK is false when the receiver left the course field empty.
	TrackOK bool
}

// ProvideFix applies a position report from a live receiver.
func (b *Blackboard) ProvideFix(u FixUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touch()

	o := &b.basic
	o.Time = b.gpsTime(u.Time)
	if !u.DateTime.IsZero() {
		o.DateTime = u.DateTime
	}
	o.GPS.NavWarning = !u.Valid
	if u.Valid {
		o.Location = u.Location
		o.GroundSpeed = u.GroundSpeed
		if u.TrackOK {
			o.TrackBearing = geo.NormalizeBearing(u.TrackBearing)
		}
		o.GPS.MovementDetected = u.GroundSpeed > 2
	}
	b.notify()
}

// ProvideGPSAltitude applies altitude and constellation data (GGA).
func (b *Blackboard) ProvideGPSAltitude(altM float64, fixQuality, satellites int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touch()

	b.basic.GPSAltitude.Update(altM, b.basic.Time)
	b.basic.GPS.FixQuality = fixQuality
	b.basic.GPS.SatellitesUsed = satellites
}

// ProvidePressureAltitude applies a standard-atmosphere altitude.
func (b *Blackboard) ProvidePressureAltitude(altM float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touch()
	b.basic.PressureAltitude.Update(altM, b.basic.Time)
}

// ProvideBaroAltitude applies an instrument's QNH-corrected altitude.
func (b *Blackboard) ProvideBaroAltitude(altM float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touch()
	b.basic.BaroAltitude.Update(altM, b.basic.Time)
	b.basic.BaroFromQNH = false
}

// ProvideAirspeed applies indicated and true airspeed in m/s.
func (b *Blackboard) ProvideAirspeed(ias, tas float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touch()
	b.basic.IndicatedAirspeed = ias
	b.basic.TrueAirspeed = tas
	b.basic.AirspeedAvailable.Update(b.basic.Time)
}

// ProvideTotalEnergyVario applies the instrument's total-energy vario.
func (b *Blackboard) ProvideTotalEnergyVario(v float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touch()
	b.basic.TotalEnergyVario.Update(v, b.basic.Time)
}

// ProvideNettoVario applies the instrument's netto vario.
func (b *Blackboard) ProvideNettoVario(v float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touch()
	b.basic.NettoVario.Update(v, b.basic.Time)
}

// ProvideExternalWind applies a wind computed by the instrument.
func (b *Blackboard) ProvideExternalWind(w geo.SpeedVector) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touch()
	w.BearingDeg = geo.NormalizeBearing(w.BearingDeg)
	b.basic.ExternalWind.Update(w, b.basic.Time)
}

// ProvideGLoad applies an accelerometer load factor.
func (b *Blackboard) ProvideGLoad(g float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touch()
	b.basic.GLoad.Update(g, b.basic.Time)
}

// LocationUpdate is one replayed or simulated sample.
type LocationUpdate struct {
	Location     geo.Point
	GroundSpeed  float64
	TrackBearing float64
	Altitude     float64
	// BaroAltitude is a pressure altitude; ignored unless BaroOK.
	BaroAltitude float64
	BaroOK       bool
	Time         float64
	DateTime     time.Time
}

// SetLocationFromReplay injects a replayed sample.
func (b *Blackboard) SetLocationFromReplay(u LocationUpdate) {
	b.setLocation(u, true)
}

// SetLocationFromSimulation injects a simulated sample.
func (b *Blackboard) SetLocationFromSimulation(u LocationUpdate) {
	b.setLocation(u, false)
}

func (b *Blackboard) setLocation(u LocationUpdate, replay bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touch()

	o := &b.basic
	o.GPS.NavWarning = false
	o.GPS.SatellitesUsed = 6
	o.GPS.Replay = replay
	o.GPS.Simulator = !replay
	o.GPS.MovementDetected = false

	o.Location = u.Location
	o.GroundSpeed = u.GroundSpeed
	o.TrackBearing = geo.NormalizeBearing(u.TrackBearing)
	o.Time = b.gpsTime(u.Time)
	if !u.DateTime.IsZero() {
		o.DateTime = u.DateTime
	}
	o.GPSAltitude.Update(u.Altitude, o.Time)
	if u.BaroOK {
		o.PressureAltitude.Update(u.BaroAltitude, o.Time)
	}

	// Not independently known in replay or simulation.
	o.AirspeedAvailable.Clear()
	o.GLoad.Clear()
	o.TotalEnergyVario.Clear()
	o.NettoVario.Clear()
	o.ExternalWind.Clear()
	o.Wind.Clear()

	b.notify()
}

// gpsTime maps a feed's time onto the running time base. A step back of more
// than half a day is a rollover at midnight UTC and moves the base on by a
// day, so history keeps advancing.
func (b *Blackboard) gpsTime(t float64) float64 {
	if !b.haveFeedTime {
		b.haveFeedTime = true
		b.dayOffset = 0
		return t
	}
	t += b.dayOffset
	for t < b.basic.Time-secondsPerDay/2 {
		b.dayOffset += secondsPerDay
		t += secondsPerDay
	}
	return t
}

// SetStartupLocation seeds a position before any receiver reported one. The
// fix stays flagged invalid.
func (b *Blackboard) SetStartupLocation(p geo.Point, altM float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.basic.Location = p
	b.basic.GPSAltitude.Stamp.Clear()
	b.basic.GPSAltitude.Set(altM)
	b.basic.GPS.NavWarning = true
}

// StopReplay ends replay mode. The history sample and the time base are
// dropped so live data is not differenced against replay time.
func (b *Blackboard) StopReplay() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.basic.GroundSpeed = 0
	b.basic.GPS.Replay = false
	b.haveLast = false
	b.haveFeedTime = false
}

// SetQNH sets QNH (hPa) and uplinks it to the instruments.
func (b *Blackboard) SetQNH(qnh float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.basic.QNH.Update(qnh, b.basic.Time)
	if b.devices != nil {
		b.devices.BroadcastQNH(qnh)
	}
}

// SetMacCready sets the MacCready value (m/s) and uplinks it.
func (b *Blackboard) SetMacCready(mc float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.basic.MacCready = mc
	if b.devices != nil {
		b.devices.BroadcastMacCready(mc)
	}
}

// SetManualWind records a pilot-entered wind.
func (b *Blackboard) SetManualWind(w geo.SpeedVector) {
	b.mu.Lock()
	defer b.mu.Unlock()

	w.BearingDeg = geo.NormalizeBearing(w.BearingDeg)
	b.basic.ManualWind.Update(w, b.basic.Time)
}

func (b *Blackboard) touch() {
	b.basic.Connected.Update(b.monotonic())
}
