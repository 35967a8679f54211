// Package geo holds the small amount of spherical geometry the flight state
// needs: bearings, speed vectors and great-circle distances.
package geo

import "math"

const (
	EarthRadiusM = 6371000.0

	DegToRad = math.Pi / 180.0
	RadToDeg = 180.0 / math.Pi
)

// Point is a WGS84 position in degrees.
type Point struct {
	LatDeg float64 `json:"lat_deg"`
	LonDeg float64 `json:"lon_deg"`
}

// NormalizeBearing maps deg into [0, 360).
func NormalizeBearing(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// DeltaBearing returns to-from normalized into (-180, 180].
func DeltaBearing(from, to float64) float64 {
	d := NormalizeBearing(to - from)
	if d > 180 {
		d -= 360
	}
	return d
}

// SpeedVector is a horizontal vector given as bearing and magnitude.
//
// For wind, Bearing is the direction the wind blows from.
type SpeedVector struct {
	BearingDeg float64 `json:"bearing_deg"`
	NormMS     float64 `json:"speed_ms"`
}

// IsNonZero reports whether the vector has any magnitude.
func (v SpeedVector) IsNonZero() bool {
	return v.NormMS != 0
}

// Distance returns the great-circle distance in metres (haversine).
func Distance(from, to Point) float64 {
	lat1 := from.LatDeg * DegToRad
	lat2 := to.LatDeg * DegToRad
	dLat := lat2 - lat1
	dLon := (to.LonDeg - from.LonDeg) * DegToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusM * c
}

// Bearing returns the initial great-circle bearing from one point to another.
func Bearing(from, to Point) float64 {
	lat1 := from.LatDeg * DegToRad
	lat2 := to.LatDeg * DegToRad
	dLon := (to.LonDeg - from.LonDeg) * DegToRad

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	return NormalizeBearing(math.Atan2(y, x) * RadToDeg)
}

// Destination moves distM metres from p along bearingDeg.
func Destination(p Point, bearingDeg, distM float64) Point {
	if distM == 0 {
		return p
	}
	lat1 := p.LatDeg * DegToRad
	lon1 := p.LonDeg * DegToRad
	brg := bearingDeg * DegToRad
	ang := distM / EarthRadiusM

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(ang) + math.Cos(lat1)*math.Sin(ang)*math.Cos(brg))
	lon2 := lon1 + math.Atan2(math.Sin(brg)*math.Sin(ang)*math.Cos(lat1), math.Cos(ang)-math.Sin(lat1)*math.Sin(lat2))

	lon := math.Mod(lon2*RadToDeg+540, 360) - 180
	return Point{LatDeg: lat2 * RadToDeg, LonDeg: lon}
}
