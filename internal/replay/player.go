package replay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"glidelink/internal/blackboard"
	"glidelink/internal/geo"
)

// Sleeper waits between fixes. It returns early with ctx's error.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Play replays fixes with their relative timing, deriving ground speed and
// track from consecutive positions.
//
// speedMultiplier: 1.0 = real time, 2.0 = 2x speed (half waits), 0.5 = half speed.
func Play(ctx context.Context, fixes []Fix, speedMultiplier float64, loop bool, sleeper Sleeper, cb func(blackboard.LocationUpdate)) error {
	if speedMultiplier <= 0 {
		return fmt.Errorf("speedMultiplier must be > 0")
	}
	if sleeper == nil {
		sleeper = realSleeper{}
	}
	if cb == nil {
		return errors.New("callback is nil")
	}
	if len(fixes) == 0 {
		return errors.New("no fixes")
	}

	for {
		var prev Fix
		var gs, track float64
		for i, fx := range fixes {
			if i > 0 {
				wait := fx.At - prev.At
				if wait > 0 {
					if err := sleeper.Sleep(ctx, time.Duration(float64(wait)/speedMultiplier)); err != nil {
						return err
					}
					dt := wait.Seconds()
					gs = geo.Distance(prev.Location, fx.Location) / dt
					if gs > 0 {
						track = geo.Bearing(prev.Location, fx.Location)
					}
				}
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			cb(blackboard.LocationUpdate{
				Location:     fx.Location,
				GroundSpeed:  gs,
				TrackBearing: track,
				Altitude:     fx.GPSAltM,
				BaroAltitude: fx.PressureAltM,
				BaroOK:       fx.PressureAltM != 0,
				Time:         fx.Time,
				DateTime:     fx.DateTime,
			})
			prev = fx
		}

		if !loop {
			return nil
		}
	}
}

// Target receives replayed fixes. *blackboard.Blackboard implements it.
type Target interface {
	SetLocationFromReplay(blackboard.LocationUpdate)
	StopReplay()
}

type Config struct {
	Enable bool
	Path   string
	Speed  float64
	Loop   bool
}

// Service plays one IGC file in the background.
type Service struct {
	cfg     Config
	target  Target
	sleeper Sleeper

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
	err    error
}

func New(cfg Config, target Target) *Service {
	if cfg.Speed <= 0 {
		cfg.Speed = 1
	}
	return &Service{cfg: cfg, target: target, sleeper: realSleeper{}}
}

// Start loads the file synchronously so a bad path is reported to the
// caller, then plays it in the background.
func (s *Service) Start(ctx context.Context) error {
	if !s.cfg.Enable {
		return nil
	}
	if s.target == nil {
		return fmt.Errorf("replay: target is nil")
	}
	fixes, err := LoadIGC(s.cfg.Path)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}
	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Printf("replay started path=%s fixes=%d speed=%.1fx loop=%v", s.cfg.Path, len(fixes), s.cfg.Speed, s.cfg.Loop)
		err := Play(childCtx, fixes, s.cfg.Speed, s.cfg.Loop, s.sleeper, s.target.SetLocationFromReplay)
		s.target.StopReplay()

		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("replay stopped: %v", err)
			return
		}
		log.Printf("replay finished path=%s", s.cfg.Path)
	}()
	return nil
}

// Err returns the error that ended playback, if any.
func (s *Service) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Wait blocks until playback ends.
func (s *Service) Wait() {
	s.wg.Wait()
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
