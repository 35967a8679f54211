// Package atmos converts between pressure and altitude in the ICAO standard
// atmosphere.
package atmos

import "math"

const (
	// StandardQNH is sea-level pressure in hPa.
	StandardQNH = 1013.25

	scaleHeightM = 44330.8
	exponent     = 5.25588
)

// StaticPressure returns the static pressure (hPa) at a pressure altitude (m).
func StaticPressure(pressureAltM float64) float64 {
	return StandardQNH * math.Pow(1-pressureAltM/scaleHeightM, exponent)
}

// PressureAltitude returns the pressure altitude (m) for a static pressure (hPa).
func PressureAltitude(staticHPa float64) float64 {
	return scaleHeightM * (1 - math.Pow(staticHPa/StandardQNH, 1/exponent))
}

// QNHFromPressureAltitude returns the QNH (hPa) that makes pressureAltM read
// as knownAltM, e.g. an airfield elevation.
func QNHFromPressureAltitude(pressureAltM, knownAltM float64) float64 {
	return StaticPressure(pressureAltM) / math.Pow(1-knownAltM/scaleHeightM, exponent)
}

// BaroAltitude returns the altitude above sea level (m) for a pressure
// altitude under the given QNH.
func BaroAltitude(pressureAltM, qnhHPa float64) float64 {
	if qnhHPa <= 0 {
		return pressureAltM
	}
	return scaleHeightM * (1 - math.Pow(StaticPressure(pressureAltM)/qnhHPa, 1/exponent))
}

// DensityRatio returns ρ/ρ0 at a pressure altitude, assuming ISA temperature.
func DensityRatio(pressureAltM float64) float64 {
	return math.Pow(1-2.25577e-5*pressureAltM, 4.2559)
}

// TrueAirspeed converts an indicated airspeed at a pressure altitude.
func TrueAirspeed(ias, pressureAltM float64) float64 {
	r := DensityRatio(pressureAltM)
	if r <= 0 {
		return ias
	}
	return ias / math.Sqrt(r)
}
