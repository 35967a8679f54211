package web

import (
	"time"

	"glidelink/internal/blackboard"
	"glidelink/internal/flight"
	"glidelink/internal/fresh"
	"glidelink/internal/geo"
	"glidelink/internal/transport"
)

const serviceName = "glidelink"

// StatusSnapshot is the JSON view of the blackboard. Fields whose source is
// not currently available are null.
type StatusSnapshot struct {
	Service string `json:"service"`
	NowUTC  string `json:"now_utc"`

	Connected bool             `json:"connected"`
	GPS       flight.GPSStatus `json:"gps"`
	GPSTime   float64          `json:"gps_time_s"`
	GPSDate   string           `json:"gps_datetime_utc,omitempty"`

	LatDeg        float64 `json:"lat_deg"`
	LonDeg        float64 `json:"lon_deg"`
	GroundSpeedMS float64 `json:"ground_speed_ms"`
	TrackDeg      float64 `json:"track_deg"`
	HeadingDeg    float64 `json:"heading_deg"`

	GPSAltitudeM      *float64 `json:"gps_altitude_m"`
	BaroAltitudeM     *float64 `json:"baro_altitude_m"`
	PressureAltitudeM *float64 `json:"pressure_altitude_m"`
	NavAltitudeM      float64  `json:"nav_altitude_m"`
	EnergyHeightM     float64  `json:"energy_height_m"`

	IndicatedAirspeedMS *float64 `json:"ias_ms"`
	TrueAirspeedMS      *float64 `json:"tas_ms"`

	TotalEnergyVarioMS *float64 `json:"te_vario_ms"`
	GPSVarioMS         float64  `json:"gps_vario_ms"`
	BruttoVarioMS      float64  `json:"brutto_vario_ms"`
	NettoVarioMS       float64  `json:"netto_vario_ms"`

	Wind       *geo.SpeedVector `json:"wind"`
	WindSource string           `json:"wind_source"`

	TurnRateDegS float64 `json:"turn_rate_deg_s"`
	BankDeg      float64 `json:"bank_deg"`
	GLoad        float64 `json:"g_load"`

	QNHHPa      *float64 `json:"qnh_hpa"`
	QNHAutoDone bool     `json:"qnh_auto_done"`
	MacCreadyMS float64  `json:"maccready_ms"`

	Flying   bool `json:"flying"`
	OnGround bool `json:"on_ground"`

	Links   []transport.Stats `json:"links"`
	Devices []string          `json:"devices"`
}

func NewStatusSnapshot(nowUTC time.Time, s blackboard.Snapshot) StatusSnapshot {
	o := s.Basic
	out := StatusSnapshot{
		Service:   serviceName,
		NowUTC:    nowUTC.Format(time.RFC3339Nano),
		Connected: o.Connected.IsValid(),
		GPS:       o.GPS,
		GPSTime:   o.Time,

		LatDeg:        o.Location.LatDeg,
		LonDeg:        o.Location.LonDeg,
		GroundSpeedMS: o.GroundSpeed,
		TrackDeg:      o.TrackBearing,
		HeadingDeg:    o.Heading,

		GPSAltitudeM:      optional(o.GPSAltitude),
		BaroAltitudeM:     optional(o.BaroAltitude),
		PressureAltitudeM: optional(o.PressureAltitude),
		NavAltitudeM:      o.NavAltitude,
		EnergyHeightM:     o.EnergyHeight,

		TotalEnergyVarioMS: optional(o.TotalEnergyVario),
		GPSVarioMS:         o.GPSVario,
		BruttoVarioMS:      o.BruttoVario,
		NettoVarioMS:       o.Netto,

		WindSource: o.WindSource.String(),

		TurnRateDegS: o.TurnRate,
		BankDeg:      o.BankAngle,
		GLoad:        o.CurrentGLoad(),

		QNHHPa:      optional(o.QNH),
		QNHAutoDone: s.QNHDone,
		MacCreadyMS: o.MacCready,

		Flying:   s.Calculated.Flying,
		OnGround: s.Calculated.OnGround,

		Links:   []transport.Stats{},
		Devices: []string{},
	}
	if !o.DateTime.IsZero() {
		out.GPSDate = o.DateTime.UTC().Format(time.RFC3339)
	}
	if o.AirspeedAvailable.IsValid() {
		ias, tas := o.IndicatedAirspeed, o.TrueAirspeed
		out.IndicatedAirspeedMS = &ias
		out.TrueAirspeedMS = &tas
	}
	if o.Wind.IsValid() {
		w := o.Wind.Get()
		out.Wind = &w
	}
	return out
}

func optional(v fresh.Value[float64]) *float64 {
	if !v.IsValid() {
		return nil
	}
	x := v.Get()
	return &x
}
