// Package config loads the daemon's YAML configuration, applying defaults
// and rejecting inconsistent settings.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"glidelink/internal/flight"
	"glidelink/internal/polar"
	"glidelink/internal/transport"
)

type Config struct {
	Links     []LinkConfig    `yaml:"links"`
	Outputs   OutputsConfig   `yaml:"outputs"`
	Tick      TickConfig      `yaml:"tick"`
	Settings  SettingsConfig  `yaml:"settings"`
	Airports  AirportsConfig  `yaml:"airports"`
	Sim       SimConfig       `yaml:"sim"`
	Replay    ReplayConfig    `yaml:"replay"`
	Web       WebConfig       `yaml:"web"`
	Indicator IndicatorConfig `yaml:"indicator"`
}

type LinkConfig struct {
	Name        string        `yaml:"name"`
	Device      string        `yaml:"device"`
	Baud        int           `yaml:"baud"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	StopGrace   time.Duration `yaml:"stop_grace"`
}

type OutputsConfig struct {
	UDP []string `yaml:"udp"`
}

type TickConfig struct {
	Interval          time.Duration `yaml:"interval"`
	FastInterval      time.Duration `yaml:"fast_interval"`
	WallClockInterval time.Duration `yaml:"wall_clock_interval"`
}

type SettingsConfig struct {
	AutoQNH              *bool       `yaml:"auto_qnh"`
	ExternalWind         *bool       `yaml:"external_wind"`
	WindMode             string      `yaml:"wind_mode"`
	NavBaroAltitude      bool        `yaml:"nav_baro_altitude"`
	SetSystemTimeFromGPS bool        `yaml:"set_system_time_from_gps"`
	QNH                  float64     `yaml:"qnh"`
	MacCready            float64     `yaml:"maccready"`
	Polar                PolarConfig `yaml:"polar"`
}

// PolarConfig holds three [speed m/s, sink m/s] pairs.
type PolarConfig struct {
	Points [][2]float64 `yaml:"points"`
}

type AirportsConfig struct {
	File        string  `yaml:"file"`
	PostgresDSN string  `yaml:"postgres_dsn"`
	RadiusM     float64 `yaml:"radius_m"`
}

type SimConfig struct {
	Enable       bool          `yaml:"enable"`
	CenterLatDeg float64       `yaml:"center_lat_deg"`
	CenterLonDeg float64       `yaml:"center_lon_deg"`
	AltM         float64       `yaml:"alt_m"`
	AirspeedMS   float64       `yaml:"airspeed_ms"`
	RadiusM      float64       `yaml:"radius_m"`
	ClimbMS      float64       `yaml:"climb_ms"`
	Cycle        time.Duration `yaml:"cycle"`
	WindFromDeg  float64       `yaml:"wind_from_deg"`
	WindMS       float64       `yaml:"wind_ms"`
	Script       string        `yaml:"script"`
	Loop         bool          `yaml:"loop"`
	Interval     time.Duration `yaml:"interval"`
}

type ReplayConfig struct {
	Enable bool    `yaml:"enable"`
	Path   string  `yaml:"path"`
	Speed  float64 `yaml:"speed"`
	Loop   bool    `yaml:"loop"`
}

type WebConfig struct {
	Listen string `yaml:"listen"`
}

type IndicatorConfig struct {
	GPIOPin int `yaml:"gpio_pin"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultAndValidate fills unset fields and rejects invalid combinations.
func DefaultAndValidate(cfg *Config) error {
	names := make(map[string]bool, len(cfg.Links))
	for i := range cfg.Links {
		l := &cfg.Links[i]
		l.Device = strings.TrimSpace(l.Device)
		if l.Device == "" {
			return fmt.Errorf("links[%d].device is required", i)
		}
		if l.Name == "" {
			l.Name = fmt.Sprintf("link%d", i)
		}
		if names[l.Name] {
			return fmt.Errorf("links[%d].name %q is duplicated", i, l.Name)
		}
		names[l.Name] = true
		if l.Baud == 0 {
			l.Baud = 9600
		}
		if !transport.ValidBaudRate(l.Baud) {
			return fmt.Errorf("links[%d].baud %d is not a supported rate", i, l.Baud)
		}
		if l.ReadTimeout <= 0 {
			l.ReadTimeout = 100 * time.Millisecond
		}
		if l.StopGrace <= 0 {
			l.StopGrace = time.Second
		}
	}

	for i, dest := range cfg.Outputs.UDP {
		if strings.TrimSpace(dest) == "" {
			return fmt.Errorf("outputs.udp[%d] must be non-empty", i)
		}
	}

	if cfg.Tick.Interval <= 0 {
		cfg.Tick.Interval = time.Second
	}
	if cfg.Tick.FastInterval <= 0 {
		cfg.Tick.FastInterval = 250 * time.Millisecond
	}
	if cfg.Tick.WallClockInterval <= 0 {
		cfg.Tick.WallClockInterval = time.Second
	}

	if _, err := flight.ParseWindMode(cfg.Settings.WindMode); err != nil {
		return fmt.Errorf("settings.wind_mode: %w", err)
	}
	if cfg.Settings.QNH != 0 && (cfg.Settings.QNH < 850 || cfg.Settings.QNH > 1100) {
		return fmt.Errorf("settings.qnh must be in [850,1100] hPa")
	}
	if cfg.Settings.MacCready < 0 {
		return fmt.Errorf("settings.maccready must be >= 0")
	}
	if n := len(cfg.Settings.Polar.Points); n != 0 && n != 3 {
		return fmt.Errorf("settings.polar.points needs exactly 3 pairs, got %d", n)
	}
	if _, err := cfg.Settings.polar(); err != nil {
		return fmt.Errorf("settings.polar: %w", err)
	}

	if cfg.Airports.RadiusM <= 0 {
		cfg.Airports.RadiusM = 1000
	}

	if cfg.Sim.Enable && cfg.Replay.Enable {
		return fmt.Errorf("sim and replay cannot both be enabled")
	}
	if cfg.Sim.Interval <= 0 {
		cfg.Sim.Interval = time.Second
	}
	if cfg.Sim.CenterLatDeg < -90 || cfg.Sim.CenterLatDeg > 90 {
		return fmt.Errorf("sim.center_lat_deg out of range")
	}
	if cfg.Sim.CenterLonDeg < -180 || cfg.Sim.CenterLonDeg > 180 {
		return fmt.Errorf("sim.center_lon_deg out of range")
	}

	if cfg.Replay.Enable {
		if cfg.Replay.Path == "" {
			return fmt.Errorf("replay.path is required when replay.enable is true")
		}
		if cfg.Replay.Speed == 0 {
			cfg.Replay.Speed = 1
		}
		if cfg.Replay.Speed < 0 {
			return fmt.Errorf("replay.speed must be > 0")
		}
	}

	if cfg.Indicator.GPIOPin < 0 {
		return fmt.Errorf("indicator.gpio_pin must be >= 0")
	}
	return nil
}

func (s SettingsConfig) polar() (polar.Polar, error) {
	if len(s.Polar.Points) == 0 {
		return polar.Default, nil
	}
	pts := s.Polar.Points
	return polar.FromPoints(
		polar.Point{SpeedMS: pts[0][0], SinkMS: pts[0][1]},
		polar.Point{SpeedMS: pts[1][0], SinkMS: pts[1][1]},
		polar.Point{SpeedMS: pts[2][0], SinkMS: pts[2][1]},
	)
}

// FlightSettings builds the blackboard's initial settings snapshot.
func (c Config) FlightSettings() flight.Settings {
	s := flight.DefaultSettings()
	if c.Settings.AutoQNH != nil {
		s.Computer.AutoQNH = *c.Settings.AutoQNH
	}
	if c.Settings.ExternalWind != nil {
		s.Computer.ExternalWind = *c.Settings.ExternalWind
	}
	// Validated by Load.
	s.Computer.AutoWindMode, _ = flight.ParseWindMode(c.Settings.WindMode)
	s.Computer.EnableNavBaroAltitude = c.Settings.NavBaroAltitude
	if p, err := c.Settings.polar(); err == nil {
		s.Computer.Polar = p
	}
	s.Map.SetSystemTimeFromGPS = c.Settings.SetSystemTimeFromGPS
	return s
}
