package flight

import (
	"glidelink/internal/fresh"
	"glidelink/internal/geo"
)

// DerivedState is supplied by the glide computer. The blackboard stores it
// and gates on it but never computes it.
type DerivedState struct {
	Flying   bool `json:"flying"`
	OnGround bool `json:"on_ground"`

	AirspeedAvailable fresh.Stamp
	IndicatedAirspeed float64
	TrueAirspeed      float64

	EstimatedWind fresh.Value[geo.SpeedVector]

	TerrainAltitude fresh.Value[float64]
}

// Expire drops derived fields that are too old at GPS time now.
func (d *DerivedState) Expire(now float64) {
	d.AirspeedAvailable.Expire(now, AirspeedTimeout)
	d.EstimatedWind.Expire(now, EstimatedWindTimeout)
	d.TerrainAltitude.Expire(now, TerrainTimeout)
}
