package nmea

import (
	"strings"
	"time"

	"glidelink/internal/atmos"
	"glidelink/internal/blackboard"
	"glidelink/internal/geo"
)

const (
	knotsToMS = 0.514444
	kphToMS   = 1 / 3.6
	feetToM   = 0.3048

	secondsPerDay = 86400
)

// Sink receives decoded values. *blackboard.Blackboard implements it.
type Sink interface {
	ProvideFix(blackboard.FixUpdate)
	ProvideGPSAltitude(altM float64, fixQuality, satellites int)
	ProvidePressureAltitude(altM float64)
	ProvideAirspeed(ias, tas float64)
	ProvideTotalEnergyVario(v float64)
	ProvideExternalWind(w geo.SpeedVector)
}

// Decoder turns lines from one link into setter calls. It is not safe for
// concurrent use; each link owns one.
type Decoder struct {
	sink Sink

	// date is the last RMC date, used to complete GGA-only time stamps.
	date time.Time

	// lastTOD and dayOffset keep Time increasing across midnight UTC.
	lastTOD   float64
	dayOffset float64
	haveTOD   bool

	Sentences uint64
	Errors    uint64
	Ignored   uint64
}

func NewDecoder(sink Sink) *Decoder {
	return &Decoder{sink: sink}
}

// HandleLine decodes one line. Sentences the decoder does not understand are
// counted and dropped without error.
func (d *Decoder) HandleLine(line string) error {
	s, err := Parse(line)
	if err != nil {
		d.Errors++
		return err
	}
	d.Sentences++

	handled := false
	switch s.Type {
	case "RMC":
		handled = d.rmc(s)
	case "GGA":
		handled = d.gga(s)
	case "PGRMZ":
		handled = d.pgrmz(s)
	case "LXWP0":
		handled = d.lxwp0(s)
	}
	if !handled {
		d.Ignored++
	}
	return nil
}

// rmc: time, status, lat, N/S, lon, E/W, speed kt, course, ddmmyy.
func (d *Decoder) rmc(s Sentence) bool {
	if len(s.Fields) < 10 {
		return false
	}
	tod, ok := parseTimeOfDay(s.Field(1))
	if !ok {
		return false
	}
	if date, err := time.Parse("020106", s.Field(9)); err == nil {
		d.date = date
	}

	u := blackboard.FixUpdate{Time: d.gpsTime(tod), Valid: s.Field(2) == "A"}
	if !d.date.IsZero() {
		u.DateTime = d.date.Add(time.Duration(tod * float64(time.Second)))
	}

	lat, latOK := parseLatLon(s.Field(3), s.Field(4))
	lon, lonOK := parseLatLon(s.Field(5), s.Field(6))
	if !latOK || !lonOK {
		u.Valid = false
	}
	u.Location = geo.Point{LatDeg: lat, LonDeg: lon}
	if gs, ok := parseFloat(s.Field(7)); ok {
		u.GroundSpeed = gs * knotsToMS
	}
	if trk, ok := parseFloat(s.Field(8)); ok {
		u.TrackBearing = trk
		u.TrackOK = true
	}

	d.sink.ProvideFix(u)
	return true
}

// gpsTime turns a time of day into seconds since midnight UTC of the first
// decoded sentence. A step back of more than half a day is a rollover; smaller
// steps are out-of-order sentences and are passed through.
func (d *Decoder) gpsTime(tod float64) float64 {
	if d.haveTOD && tod < d.lastTOD-secondsPerDay/2 {
		d.dayOffset += secondsPerDay
	}
	d.lastTOD = tod
	d.haveTOD = true
	return tod + d.dayOffset
}

// gga: time, lat, N/S, lon, E/W, quality, satellites, hdop, altitude, M.
func (d *Decoder) gga(s Sentence) bool {
	if len(s.Fields) < 11 {
		return false
	}
	q, ok := parseInt(s.Field(6))
	if !ok || q == 0 {
		return false
	}
	alt, ok := parseFloat(s.Field(9))
	if !ok {
		return false
	}
	sats, _ := parseInt(s.Field(7))
	d.sink.ProvideGPSAltitude(alt, q, sats)
	return true
}

// pgrmz: altitude, unit (f|m), fix dimension. Garmin altimeters report
// pressure altitude here.
func (d *Decoder) pgrmz(s Sentence) bool {
	alt, ok := parseFloat(s.Field(1))
	if !ok {
		return false
	}
	if strings.EqualFold(s.Field(2), "f") {
		alt *= feetToM
	}
	d.sink.ProvidePressureAltitude(alt)
	return true
}

// lxwp0: logger, IAS km/h, baro altitude m, vario m/s ×6, heading, wind
// direction, wind speed km/h.
func (d *Decoder) lxwp0(s Sentence) bool {
	if len(s.Fields) < 4 {
		return false
	}
	got := false

	alt, altOK := parseFloat(s.Field(3))
	if altOK {
		d.sink.ProvidePressureAltitude(alt)
		got = true
	}
	if kph, ok := parseFloat(s.Field(2)); ok {
		ias := kph * kphToMS
		tas := ias
		if altOK {
			tas = atmos.TrueAirspeed(ias, alt)
		}
		d.sink.ProvideAirspeed(ias, tas)
		got = true
	}
	if v, ok := parseFloat(s.Field(4)); ok {
		d.sink.ProvideTotalEnergyVario(v)
		got = true
	}
	dir, dirOK := parseFloat(s.Field(11))
	spd, spdOK := parseFloat(s.Field(12))
	if dirOK && spdOK {
		d.sink.ProvideExternalWind(geo.SpeedVector{BearingDeg: dir, NormMS: spd * kphToMS})
		got = true
	}
	return got
}
