package sim

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"glidelink/internal/blackboard"
	"glidelink/internal/geo"
)

type recordingTarget struct {
	mu      sync.Mutex
	updates []blackboard.LocationUpdate
}

func (r *recordingTarget) SetLocationFromSimulation(u blackboard.LocationUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recordingTarget) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func TestService_StepStampsTimeOfDay(t *testing.T) {
	target := &recordingTarget{}
	s, err := New(Config{Enable: true, Thermal: Thermal{Center: geo.Point{LatDeg: 47, LonDeg: 8}}}, target)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.start = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	s.step(s.start.Add(1500 * time.Millisecond))

	u := target.updates[0]
	if u.Time != 10*3600+1.5 {
		t.Fatalf("time=%v", u.Time)
	}
	if !u.BaroOK || u.BaroAltitude != u.Altitude {
		t.Fatalf("baro=%v ok=%v alt=%v", u.BaroAltitude, u.BaroOK, u.Altitude)
	}
	if u.GroundSpeed <= 0 {
		t.Fatalf("gs=%v", u.GroundSpeed)
	}
}

func TestService_StartEmitsUntilClosed(t *testing.T) {
	target := &recordingTarget{}
	s, err := New(Config{Enable: true, Interval: 5 * time.Millisecond}, target)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for target.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Close()
	n := target.count()
	if n < 3 {
		t.Fatalf("updates=%d want >= 3", n)
	}
	time.Sleep(20 * time.Millisecond)
	if target.count() != n {
		t.Fatalf("updates continued after Close")
	}
}

func TestService_DisabledDoesNothing(t *testing.T) {
	target := &recordingTarget{}
	s, err := New(Config{}, target)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Close()
	if target.count() != 0 {
		t.Fatalf("disabled sim emitted samples")
	}
}

func TestService_ScriptSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	script := "keyframes:\n  - t: 0s\n    alt_m: 100\n  - t: 10s\n    alt_m: 200\n"
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	target := &recordingTarget{}
	s, err := New(Config{Enable: true, ScriptPath: path}, target)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.start = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	s.step(s.start.Add(5 * time.Second))
	if alt := target.updates[0].Altitude; alt != 150 {
		t.Fatalf("alt=%v want 150", alt)
	}

	if _, err := New(Config{ScriptPath: filepath.Join(t.TempDir(), "missing.yaml")}, target); err == nil {
		t.Fatalf("expected error for missing script")
	}
}
