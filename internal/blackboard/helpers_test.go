package blackboard

import (
	"errors"
	"time"

	"glidelink/internal/airport"
	"glidelink/internal/flight"
	"glidelink/internal/geo"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fakeDevices struct {
	qnh []float64
	mc  []float64
}

func (d *fakeDevices) BroadcastQNH(q float64) { d.qnh = append(d.qnh, q) }
func (d *fakeDevices) BroadcastMacCready(m float64) { d.mc = append(d.mc, m) }

type fakeAirports struct {
	a  airport.Airport
	ok bool
}

func (f fakeAirports) Nearest(geo.Point, float64) (airport.Airport, bool) { return f.a, f.ok }

type harness struct {
	bb      *Blackboard
	clock   *fakeClock
	devices *fakeDevices
	clockTo []time.Time
}

func newHarness(settings flight.Settings, airports AirportFinder) *harness {
	h := &harness{
		clock:   &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)},
		devices: &fakeDevices{},
	}
	h.bb = New(Config{
		Airports: airports,
		Devices:  h.devices,
		Settings: settings,
		Now:      h.clock.Now,
		SetSystemClock: func(t time.Time) error {
			h.clockTo = append(h.clockTo, t)
			return nil
		},
	})
	return h
}

// fix reports a valid live position at GPS time t.
func (h *harness) fix(t float64) {
	h.bb.ProvideFix(FixUpdate{
		Time:         t,
		DateTime:     time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(t * float64(time.Second))),
		Valid:        true,
		Location:     geo.Point{LatDeg: 47, LonDeg: 8},
		GroundSpeed:  0,
		TrackBearing: 0,
		TrackOK:      true,
	})
}

func (h *harness) sim(t, alt, track, gs float64) {
	h.bb.SetLocationFromSimulation(LocationUpdate{
		Location:     geo.Point{LatDeg: 47, LonDeg: 8},
		GroundSpeed:  gs,
		TrackBearing: track,
		Altitude:     alt,
		Time:         t,
	})
}

var errClock = errors.New("clock not settable")
