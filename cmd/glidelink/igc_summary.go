package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"glidelink/internal/geo"
	"glidelink/internal/replay"
)

type igcSummary struct {
	Fixes       int
	Invalid     int
	Duration    time.Duration
	DistanceM   float64
	MaxGPSAltM  float64
	MaxBaroAltM float64
	Start       time.Time
}

func summarizeIGC(fixes []replay.Fix) igcSummary {
	s := igcSummary{Fixes: len(fixes)}
	if len(fixes) == 0 {
		return s
	}
	s.Start = fixes[0].DateTime
	s.Duration = fixes[len(fixes)-1].At
	for i, f := range fixes {
		if !f.Valid {
			s.Invalid++
		}
		s.MaxGPSAltM = max(s.MaxGPSAltM, f.GPSAltM)
		s.MaxBaroAltM = max(s.MaxBaroAltM, f.PressureAltM)
		if i > 0 {
			s.DistanceM += geo.Distance(fixes[i-1].Location, f.Location)
		}
	}
	return s
}

func printIGCSummary(w io.Writer, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}
	fixes, err := replay.LoadIGC(path)
	if err != nil {
		return err
	}
	s := summarizeIGC(fixes)

	fmt.Fprintf(w, "path: %s\n", path)
	if !s.Start.IsZero() {
		fmt.Fprintf(w, "start_utc: %s\n", s.Start.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "fixes: %d\n", s.Fixes)
	fmt.Fprintf(w, "invalid_fixes: %d\n", s.Invalid)
	fmt.Fprintf(w, "duration: %s\n", s.Duration)
	fmt.Fprintf(w, "distance_km: %.1f\n", s.DistanceM/1000)
	fmt.Fprintf(w, "max_gps_alt_m: %.0f\n", s.MaxGPSAltM)
	fmt.Fprintf(w, "max_pressure_alt_m: %.0f\n", s.MaxBaroAltM)
	return nil
}
