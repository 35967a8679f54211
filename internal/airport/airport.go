// Package airport provides the one waypoint query the flight core needs:
// the nearest known field within a radius.
package airport

import (
	"sort"

	"glidelink/internal/geo"
)

// Airport is a waypoint with a known elevation. IsAirport is false for plain
// turnpoints and outlanding fields.
type Airport struct {
	Ident      string    `yaml:"ident"`
	Name       string    `yaml:"name"`
	Location   geo.Point `yaml:"-"`
	ElevationM float64   `yaml:"elevation_m"`
	IsAirport  bool      `yaml:"airport"`
}

// Index answers proximity lookups over a fixed waypoint set. It is read-only
// after construction and safe for concurrent use.
type Index struct {
	items []Airport
}

// NewIndex builds an index sorted by latitude so a lookup only scans a band.
func NewIndex(items []Airport) *Index {
	cp := append([]Airport(nil), items...)
	sort.Slice(cp, func(i, j int) bool { return cp[i].Location.LatDeg < cp[j].Location.LatDeg })
	return &Index{items: cp}
}

// Len returns the number of indexed waypoints.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.items)
}

// Nearest returns the closest waypoint within radiusM of p.
func (x *Index) Nearest(p geo.Point, radiusM float64) (Airport, bool) {
	if x == nil || len(x.items) == 0 || radiusM <= 0 {
		return Airport{}, false
	}
	band := radiusM / geo.EarthRadiusM * geo.RadToDeg
	lo := sort.Search(len(x.items), func(i int) bool { return x.items[i].Location.LatDeg >= p.LatDeg-band })

	best := -1
	bestD := radiusM
	for i := lo; i < len(x.items) && x.items[i].Location.LatDeg <= p.LatDeg+band; i++ {
		d := geo.Distance(p, x.items[i].Location)
		if d <= bestD {
			best, bestD = i, d
		}
	}
	if best < 0 {
		return Airport{}, false
	}
	return x.items[best], true
}
