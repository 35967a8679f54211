package blackboard

import (
	"log"

	"glidelink/internal/airport"
	"glidelink/internal/atmos"
)

// qnhDebounceTicks is the number of consecutive qualifying sweeps before
// AutoQNH acts, so a brief ground contact does not calibrate.
const qnhDebounceTicks = 10

type qnhCalibration struct {
	countdown int
	done      bool
}

func (q *qnhCalibration) reset() {
	q.countdown = qnhDebounceTicks
	q.done = false
}

func (b *Blackboard) qnhGateOpen() bool {
	o := &b.basic
	return b.settings.Computer.AutoQNH &&
		b.calculated.OnGround &&
		!o.GPS.Replay &&
		!o.GPS.Simulator &&
		!o.GPS.NavWarning &&
		o.PressureAltitude.IsValid() &&
		!o.QNH.IsValid()
}

// autoQNH calibrates QNH once per session while standing on a known field.
func (b *Blackboard) autoQNH() {
	if b.qnh.done {
		return
	}
	if !b.qnhGateOpen() {
		b.qnh.countdown = qnhDebounceTicks
		return
	}

	if b.qnh.countdown > 0 {
		b.qnh.countdown--
	}
	if b.qnh.countdown > 0 {
		return
	}

	o := &b.basic
	var elevation float64
	var reference string
	if wp, ok := b.nearestAirport(); ok {
		elevation = wp.ElevationM
		reference = "airport " + wp.Name
	} else if b.calculated.TerrainAltitude.IsValid() {
		elevation = b.calculated.TerrainAltitude.Get()
		reference = "terrain"
	} else {
		// No elevation reference yet; retry on the next qualifying sweep.
		return
	}

	qnh := atmos.QNHFromPressureAltitude(o.PressureAltitude.Get(), elevation)
	o.QNH.Update(qnh, o.Time)
	b.qnh.done = true
	log.Printf("autoqnh calibrated qnh=%.1f reference=%q elevation_m=%.0f", qnh, reference, elevation)

	if b.devices != nil {
		b.devices.BroadcastQNH(qnh)
	}
}

func (b *Blackboard) nearestAirport() (airport.Airport, bool) {
	if b.airports == nil {
		return airport.Airport{}, false
	}
	a, ok := b.airports.Nearest(b.basic.Location, b.airportRadiusM)
	if !ok || !a.IsAirport {
		return airport.Airport{}, false
	}
	return a, true
}
