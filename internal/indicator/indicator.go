// Package indicator drives a status LED from link liveness: solid while
// instrument data is flowing, blinking while the links are silent.
package indicator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

type line interface {
	SetValue(v int) error
	Close() error
}

var openLineFn = openLine

type Config struct {
	// Pin is BCM GPIO numbering; 0 disables the indicator.
	Pin int
	// Interval is the blink half-period and poll interval.
	Interval time.Duration
}

// Service polls alive and mirrors it on the GPIO line.
type Service struct {
	cfg   Config
	alive func() bool

	mu  sync.Mutex
	ln  line
	on  bool
	err error

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

func New(cfg Config, alive func() bool) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = 500 * time.Millisecond
	}
	return &Service{cfg: cfg, alive: alive, stopCh: make(chan struct{})}
}

func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("indicator: service is nil")
	}
	if s.cfg.Pin == 0 {
		return nil
	}
	if s.alive == nil {
		return fmt.Errorf("indicator: alive func is nil")
	}
	ln, err := openLineFn(s.cfg.Pin)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
	log.Printf("indicator started gpio=%d", s.cfg.Pin)
	return nil
}

func (s *Service) run(ctx context.Context) {
	t := time.NewTicker(s.cfg.Interval)
	defer t.Stop()
	for {
		s.step()
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-t.C:
		}
	}
}

// step sets the line for one interval: on when alive, toggled otherwise.
func (s *Service) step() {
	want := true
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive() {
		want = !s.on
	}
	if s.ln == nil {
		return
	}
	v := 0
	if want {
		v = 1
	}
	if err := s.ln.SetValue(v); err != nil {
		if s.err == nil {
			log.Printf("indicator: set gpio=%d failed: %v", s.cfg.Pin, err)
		}
		s.err = err
		return
	}
	s.err = nil
	s.on = want
}

// Close turns the line off and releases it.
func (s *Service) Close() error {
	if s == nil {
		return nil
	}
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	_ = s.ln.SetValue(0)
	err := s.ln.Close()
	s.ln = nil
	return err
}
