// Package sim drives the blackboard with a deterministic simulated flight,
// either a thermal circling pattern or a keyframe script.
package sim

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"glidelink/internal/blackboard"
)

// Target receives simulated samples. *blackboard.Blackboard implements it.
type Target interface {
	SetLocationFromSimulation(blackboard.LocationUpdate)
}

type Config struct {
	Enable bool

	Thermal Thermal
	// ScriptPath, when set, replaces the thermal pattern with a scenario.
	ScriptPath string
	Loop       bool

	// Interval between samples; defaults to 1s.
	Interval time.Duration
}

type Service struct {
	cfg    Config
	target Target
	source func(elapsed time.Duration) State
	now    func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
	start  time.Time
}

func New(cfg Config, target Target) (*Service, error) {
	if target == nil {
		return nil, fmt.Errorf("sim: target is nil")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	s := &Service{cfg: cfg, target: target, now: time.Now, source: cfg.Thermal.StateAt}
	if cfg.ScriptPath != "" {
		script, err := LoadScenarioScript(cfg.ScriptPath)
		if err != nil {
			return nil, fmt.Errorf("sim: load script: %w", err)
		}
		scn, err := NewScenario(script)
		if err != nil {
			return nil, fmt.Errorf("sim: %s: %w", cfg.ScriptPath, err)
		}
		s.source = func(d time.Duration) State { return scn.StateAt(d, cfg.Loop) }
	}
	return s, nil
}

// Start emits samples until ctx is done or Close is called.
func (s *Service) Start(ctx context.Context) error {
	if !s.cfg.Enable {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.start = s.now()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Printf("sim enabled interval=%s script=%q", s.cfg.Interval, s.cfg.ScriptPath)

		t := time.NewTicker(s.cfg.Interval)
		defer t.Stop()
		s.step(s.start)
		for {
			select {
			case <-childCtx.Done():
				return
			case now := <-t.C:
				s.step(now)
			}
		}
	}()
	return nil
}

func (s *Service) step(now time.Time) {
	st := s.source(now.Sub(s.start))
	utc := now.UTC()
	s.target.SetLocationFromSimulation(blackboard.LocationUpdate{
		Location:     st.Location,
		GroundSpeed:  st.GroundSpeedMS,
		TrackBearing: st.TrackDeg,
		Altitude:     st.AltitudeM,
		// Standard day: pressure altitude equals true altitude.
		BaroAltitude: st.AltitudeM,
		BaroOK:       true,
		Time:         secondsOfDay(utc),
		DateTime:     utc,
	})
}

func (s *Service) Close() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func secondsOfDay(t time.Time) float64 {
	return float64(t.Hour()*3600+t.Minute()*60+t.Second()) + float64(t.Nanosecond())/1e9
}
