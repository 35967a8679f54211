package polar

import (
	"math"
	"testing"
)

func TestFromPoints_PassesThroughPoints(t *testing.T) {
	pts := []Point{{25, 0.62}, {33.3, 0.85}, {44.4, 1.55}}
	p, err := FromPoints(pts[0], pts[1], pts[2])
	if err != nil {
		t.Fatalf("FromPoints: %v", err)
	}
	for _, pt := range pts {
		if got := p.Sink(pt.SpeedMS); math.Abs(got-pt.SinkMS) > 1e-9 {
			t.Fatalf("sink(%v)=%v want %v", pt.SpeedMS, got, pt.SinkMS)
		}
	}
}

func TestFromPoints_RejectsDuplicateSpeeds(t *testing.T) {
	if _, err := FromPoints(Point{20, 1}, Point{20, 2}, Point{30, 3}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDefault_BestLD(t *testing.T) {
	ld := Default.BestLD()
	if ld < 35 || ld > 50 {
		t.Fatalf("best L/D=%v out of plausible range", ld)
	}
}

func TestSinkRate_OneGMatchesSink(t *testing.T) {
	v := 30.0
	if got, want := Default.SinkRate(v, 1), Default.Sink(v); math.Abs(got-want) > 1e-12 {
		t.Fatalf("SinkRate(v,1)=%v want %v", got, want)
	}
	if Default.SinkRate(v, 2) <= Default.Sink(v) {
		t.Fatalf("expected higher sink at 2 g")
	}
}

func TestSpeedToFly_IncreasesWithMacCready(t *testing.T) {
	if Default.SpeedToFly(0) != Default.BestLDSpeed() {
		t.Fatalf("MC 0 should fly best L/D")
	}
	if Default.SpeedToFly(2) <= Default.SpeedToFly(1) {
		t.Fatalf("expected faster cruise at higher MC")
	}
}
