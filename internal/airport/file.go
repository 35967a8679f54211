package airport

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type fileEntry struct {
	Airport `yaml:",inline"`
	LatDeg  float64 `yaml:"lat_deg"`
	LonDeg  float64 `yaml:"lon_deg"`
}

type fileDoc struct {
	Waypoints []fileEntry `yaml:"waypoints"`
}

// LoadFile reads a YAML waypoint list:
//
//	waypoints:
//	  - ident: LSZH
//	    name: Zurich
//	    lat_deg: 47.4647
//	    lon_deg: 8.5492
//	    elevation_m: 432
//	    airport: true
func LoadFile(path string) ([]Airport, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc fileDoc
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("airport: parse %s: %w", path, err)
	}
	out := make([]Airport, 0, len(doc.Waypoints))
	for i, e := range doc.Waypoints {
		if e.LatDeg < -90 || e.LatDeg > 90 || e.LonDeg < -180 || e.LonDeg > 180 {
			return nil, fmt.Errorf("airport: waypoints[%d] (%s) has invalid position", i, e.Ident)
		}
		a := e.Airport
		a.Location.LatDeg = e.LatDeg
		a.Location.LonDeg = e.LonDeg
		out = append(out, a)
	}
	return out, nil
}
