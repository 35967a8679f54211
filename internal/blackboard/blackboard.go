// Package blackboard aggregates instrument observations into one consistent
// flight state.
//
// All state lives behind a single mutex. Every setter and the whole Tick sweep
// hold it for their full duration, so readers never see a half-updated sample.
// Update rates are tens of Hz at most; a coarse lock is cheap at that rate.
package blackboard

import (
	"sync"
	"time"

	"glidelink/internal/airport"
	"glidelink/internal/flight"
	"glidelink/internal/geo"
)

// AirportFinder looks up the nearest waypoint within a radius.
type AirportFinder interface {
	Nearest(p geo.Point, radiusM float64) (airport.Airport, bool)
}

// DeviceBroadcaster fans settings out to attached instruments. Implementations
// must not block: they are called with the blackboard lock held.
type DeviceBroadcaster interface {
	BroadcastQNH(qnh float64)
	BroadcastMacCready(mc float64)
}

// Config wires the blackboard's collaborators. Zero values are usable.
type Config struct {
	Airports       AirportFinder
	AirportRadiusM float64
	Devices        DeviceBroadcaster
	Settings       flight.Settings

	// Now defaults to time.Now.
	Now func() time.Time
	// SetSystemClock defaults to the platform implementation.
	SetSystemClock func(time.Time) error
}

// DefaultAirportRadiusM bounds the AutoQNH airport search.
const DefaultAirportRadiusM = 1000.0

type Blackboard struct {
	mu sync.Mutex

	basic      flight.Observation
	last       flight.Observation
	haveLast   bool
	calculated flight.DerivedState
	settings   flight.Settings

	qnh qnhCalibration

	sysTimeSet bool
	// dayOffset is added to feed times after each midnight rollover. Until
	// haveFeedTime is set the next feed time is taken as is.
	dayOffset    float64
	haveFeedTime bool

	airports       AirportFinder
	airportRadiusM float64
	devices        DeviceBroadcaster
	now            func() time.Time
	setSystemClock func(time.Time) error
	start          time.Time

	updates chan struct{}
}

// Snapshot is a copy of the whole state taken under the lock.
type Snapshot struct {
	Basic      flight.Observation
	Last       flight.Observation
	HaveLast   bool
	Calculated flight.DerivedState
	Settings   flight.Settings
	QNHDone    bool
}

func New(cfg Config) *Blackboard {
	b := &Blackboard{
		airports:       cfg.Airports,
		airportRadiusM: cfg.AirportRadiusM,
		devices:        cfg.Devices,
		settings:       cfg.Settings,
		now:            cfg.Now,
		setSystemClock: cfg.SetSystemClock,
		updates:        make(chan struct{}, 1),
	}
	if b.airportRadiusM <= 0 {
		b.airportRadiusM = DefaultAirportRadiusM
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.setSystemClock == nil {
		b.setSystemClock = setSystemClock
	}
	b.start = b.now()
	b.Reset()
	return b
}

// Reset clears the observation and derived state and seeds GPS time from the
// system clock. Called once at startup.
func (b *Blackboard) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.basic.Reset()
	b.last = flight.Observation{}
	b.haveLast = false
	b.calculated = flight.DerivedState{}
	b.qnh.reset()
	b.dayOffset = 0
	b.haveFeedTime = false

	now := b.now().UTC()
	b.basic.DateTime = now
	b.basic.Time = secondsOfDay(now)
}

// ReplaceSettings swaps the settings snapshot as a whole.
func (b *Blackboard) ReplaceSettings(s flight.Settings) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.settings = s
}

// ReadDerived stores the glide computer's latest conclusions.
func (b *Blackboard) ReadDerived(d flight.DerivedState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calculated = d
}

// Snapshot returns a consistent copy of the current state.
func (b *Blackboard) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		Basic:      b.basic,
		Last:       b.last,
		HaveLast:   b.haveLast,
		Calculated: b.calculated,
		Settings:   b.settings,
		QNHDone:    b.qnh.done,
	}
}

// Updates signals (coalesced) whenever a new position sample arrived. The
// scheduler may use it to run Tick early.
func (b *Blackboard) Updates() <-chan struct{} {
	return b.updates
}

// ExpireWallClock expires the link liveness stamp on the monotonic clock. It
// returns true exactly when the connection was just lost; instrument-supplied
// fields are dropped at that point.
func (b *Blackboard) ExpireWallClock() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.basic.Connected.IsValid() {
		return false
	}
	if !b.basic.Connected.Expire(b.monotonic(), flight.ConnectedTimeout) {
		return false
	}

	o := &b.basic
	o.GPS.NavWarning = true
	o.GPS.SatellitesUsed = 0
	o.GroundSpeed = 0
	o.GPSAltitude.Clear()
	o.BaroAltitude.Clear()
	o.PressureAltitude.Clear()
	o.AirspeedAvailable.Clear()
	o.GLoad.Clear()
	o.TotalEnergyVario.Clear()
	o.NettoVario.Clear()
	o.ExternalWind.Clear()
	return true
}

func (b *Blackboard) monotonic() float64 {
	return b.now().Sub(b.start).Seconds()
}

func (b *Blackboard) notify() {
	select {
	case b.updates <- struct{}{}:
	default:
	}
}

const secondsPerDay = 86400

func secondsOfDay(t time.Time) float64 {
	return float64(t.Hour()*3600+t.Minute()*60+t.Second()) + float64(t.Nanosecond())/1e9
}
