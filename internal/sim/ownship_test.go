package sim

import (
	"math"
	"testing"
	"time"

	"glidelink/internal/geo"
)

func TestThermal_StaysOnCircleWithoutWind(t *testing.T) {
	s := Thermal{Center: geo.Point{LatDeg: 47, LonDeg: 8}, RadiusM: 200, AirspeedMS: 25}

	for _, d := range []time.Duration{0, 3 * time.Second, 17 * time.Second, 95 * time.Second} {
		st := s.StateAt(d)
		if dist := geo.Distance(s.Center, st.Location); math.Abs(dist-200) > 1 {
			t.Fatalf("t=%s distance=%v want 200", d, dist)
		}
		if math.Abs(st.GroundSpeedMS-25) > 1e-9 {
			t.Fatalf("t=%s gs=%v want 25", d, st.GroundSpeedMS)
		}
		if st.TrackDeg < 0 || st.TrackDeg >= 360 {
			t.Fatalf("track out of range: %v", st.TrackDeg)
		}
	}
}

func TestThermal_WindSpreadsGroundSpeed(t *testing.T) {
	s := Thermal{Center: geo.Point{LatDeg: 47, LonDeg: 8}, Wind: geo.SpeedVector{BearingDeg: 270, NormMS: 5}}
	lo, hi := math.Inf(1), math.Inf(-1)
	var loTrack float64
	for i := 0; i < 400; i++ {
		st := s.StateAt(time.Duration(i) * 100 * time.Millisecond)
		if st.GroundSpeedMS < lo {
			lo, loTrack = st.GroundSpeedMS, st.TrackDeg
		}
		hi = math.Max(hi, st.GroundSpeedMS)
	}
	if math.Abs((hi-lo)/2-5) > 0.1 {
		t.Fatalf("spread=%v want 5", (hi-lo)/2)
	}
	if math.Abs(geo.DeltaBearing(270, loTrack)) > 5 {
		t.Fatalf("slowest track=%v want ~270", loTrack)
	}
}

func TestThermal_ClimbCycles(t *testing.T) {
	s := Thermal{BaseAltM: 500, ClimbMS: 2, CycleTime: time.Minute}
	if alt := s.StateAt(30 * time.Second).AltitudeM; alt != 560 {
		t.Fatalf("alt=%v want 560", alt)
	}
	if alt := s.StateAt(70 * time.Second).AltitudeM; math.Abs(alt-520) > 1e-9 {
		t.Fatalf("alt=%v want 520 after reset", alt)
	}
}

func TestThermal_Deterministic(t *testing.T) {
	s := Thermal{Center: geo.Point{LatDeg: 1, LonDeg: 2}}
	a := s.StateAt(1234 * time.Millisecond)
	b := s.StateAt(1234 * time.Millisecond)
	if a != b {
		t.Fatalf("expected deterministic result")
	}
}
