package atmos

import (
	"math"
	"testing"
)

func TestStaticPressure_SeaLevel(t *testing.T) {
	if p := StaticPressure(0); math.Abs(p-StandardQNH) > 1e-9 {
		t.Fatalf("p=%v want %v", p, StandardQNH)
	}
	if h := PressureAltitude(StandardQNH); math.Abs(h) > 1e-6 {
		t.Fatalf("h=%v want 0", h)
	}
}

func TestQNHFromPressureAltitude_RoundTrip(t *testing.T) {
	const pressureAlt = 420.0
	const elevation = 350.0
	qnh := QNHFromPressureAltitude(pressureAlt, elevation)
	if qnh <= StandardQNH {
		t.Fatalf("qnh=%v want > standard when field reads high", qnh)
	}
	if got := BaroAltitude(pressureAlt, qnh); math.Abs(got-elevation) > 0.01 {
		t.Fatalf("baro altitude=%v want %v", got, elevation)
	}
}

func TestQNHFromPressureAltitude_StandardDay(t *testing.T) {
	if qnh := QNHFromPressureAltitude(600, 600); math.Abs(qnh-StandardQNH) > 1e-6 {
		t.Fatalf("qnh=%v want %v", qnh, StandardQNH)
	}
}

func TestTrueAirspeed(t *testing.T) {
	if tas := TrueAirspeed(30, 0); math.Abs(tas-30) > 1e-9 {
		t.Fatalf("tas at sea level=%v want 30", tas)
	}
	// Roughly +2% per 1000 ft.
	tas := TrueAirspeed(30, 3000)
	if tas < 34 || tas > 35.5 {
		t.Fatalf("tas at 3000 m=%v want ~34.7", tas)
	}
}
