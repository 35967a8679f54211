package flight

import (
	"fmt"
	"strings"

	"glidelink/internal/polar"
)

// WindMode selects how the wind estimate is obtained.
type WindMode int

const (
	WindManual WindMode = iota
	WindCircling
	WindZigZag
	WindBoth
)

// Auto reports whether any automatic estimator is enabled.
func (m WindMode) Auto() bool {
	return m != WindManual
}

func (m WindMode) String() string {
	switch m {
	case WindManual:
		return "manual"
	case WindCircling:
		return "circling"
	case WindZigZag:
		return "zigzag"
	case WindBoth:
		return "both"
	default:
		return fmt.Sprintf("WindMode(%d)", int(m))
	}
}

// ParseWindMode accepts the names produced by String.
func ParseWindMode(s string) (WindMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "manual":
		return WindManual, nil
	case "circling", "":
		return WindCircling, nil
	case "zigzag":
		return WindZigZag, nil
	case "both":
		return WindBoth, nil
	default:
		return 0, fmt.Errorf("unknown wind mode %q", s)
	}
}

// WindSource records which input the sweep selected.
type WindSource int

const (
	WindSourceNone WindSource = iota
	WindSourceExternal
	WindSourceManual
	WindSourceEstimated
)

func (s WindSource) String() string {
	switch s {
	case WindSourceExternal:
		return "external"
	case WindSourceManual:
		return "manual"
	case WindSourceEstimated:
		return "estimated"
	default:
		return "none"
	}
}

// ComputerSettings drive the blackboard sweep.
type ComputerSettings struct {
	AutoQNH               bool
	ExternalWind          bool
	AutoWindMode          WindMode
	EnableNavBaroAltitude bool
	Polar                 polar.Polar
}

// MapSettings carry the display-side preferences the sweep honours.
type MapSettings struct {
	SetSystemTimeFromGPS bool
}

// Settings is an immutable snapshot. Replace it wholesale; never mutate a
// snapshot that has been handed to the blackboard.
type Settings struct {
	Computer ComputerSettings
	Map      MapSettings
}

// DefaultSettings returns the settings used before any profile is applied.
func DefaultSettings() Settings {
	return Settings{
		Computer: ComputerSettings{
			AutoQNH:      true,
			ExternalWind: true,
			AutoWindMode: WindCircling,
			Polar:        polar.Default,
		},
	}
}
