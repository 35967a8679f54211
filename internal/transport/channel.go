package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"glidelink/internal/nmea"
)

const (
	DefaultReadTimeout = 100 * time.Millisecond
	DefaultStopGrace   = time.Second
	DefaultRetryDelay  = 200 * time.Millisecond

	maxLineLen = 512
)

// Config controls one link.
type Config struct {
	// Name labels the link in logs and status.
	Name string

	ReadTimeout time.Duration
	StopGrace   time.Duration
	// RetryDelay paces reads after a transient read error.
	RetryDelay time.Duration

	// Open defaults to OpenSerial.
	Open Opener
	// Handler receives each complete line without its terminator. It runs on
	// the reader goroutine.
	Handler func(line string)
}

// Stats is a point-in-time view of a link.
type Stats struct {
	Name        string `json:"name"`
	Device      string `json:"device,omitempty"`
	Baud        int    `json:"baud,omitempty"`
	State       string `json:"state"`
	Lines       uint64 `json:"lines"`
	Bytes       uint64 `json:"bytes"`
	ReadErrors  uint64 `json:"read_errors"`
	WriteErrors uint64 `json:"write_errors"`
	WriteDrops  uint64 `json:"write_drops"`
	ForcedStops uint64 `json:"forced_stops"`
	LastError   string `json:"last_error,omitempty"`
}

// session is one Open..Close cycle.
type session struct {
	port   Port
	cancel context.CancelFunc
	done   chan struct{}

	// abandoned is set when Close gave up waiting; the reader must not
	// dispatch anything afterwards.
	abandoned atomic.Bool
	// closed is set once the port has been released. Releasing does not take
	// Channel.wmu, so a writer stuck in port.Write cannot hold up Close.
	closed    atomic.Bool
	closeOnce sync.Once
}

// Channel is one instrument link.
type Channel struct {
	cfg Config

	mu     sync.Mutex
	state  State
	sess   *session
	device string
	baud   int

	// wmu serializes writers and reconfiguration on the open port.
	wmu sync.Mutex

	lines       atomic.Uint64
	bytes       atomic.Uint64
	readErrors  atomic.Uint64
	writeErrors atomic.Uint64
	writeDrops  atomic.Uint64
	forcedStops atomic.Uint64
	lastErr     atomic.Value // string

	readLog  *rate.Limiter
	writeLog *rate.Limiter
}

func New(cfg Config) *Channel {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = DefaultStopGrace
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Open == nil {
		cfg.Open = OpenSerial
	}
	if cfg.Name == "" {
		cfg.Name = "link"
	}
	return &Channel{
		cfg:      cfg,
		readLog:  rate.NewLimiter(rate.Every(10*time.Second), 1),
		writeLog: rate.NewLimiter(rate.Every(10*time.Second), 1),
	}
}

func (c *Channel) Name() string { return c.cfg.Name }

// State returns the current lifecycle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Open acquires device at baud and starts the reader. Errors wrap
// ErrDeviceUnavailable, ErrConfigurationRejected or ErrReaderStartFailed; on
// any error the link is left Closed.
func (c *Channel) Open(device string, baud int) error {
	if !ValidBaudRate(baud) {
		return fmt.Errorf("%w: %s baud %d", ErrConfigurationRejected, c.cfg.Name, baud)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateClosed {
		return fmt.Errorf("transport: %s is %s", c.cfg.Name, c.state)
	}
	c.state = StateOpening

	port, err := c.cfg.Open(device, baud)
	if err != nil {
		c.state = StateClosed
		c.setError(err)
		if !errors.Is(err, ErrConfigurationRejected) && !errors.Is(err, ErrDeviceUnavailable) {
			err = fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, device, err)
		}
		return err
	}
	if err := port.SetReadTimeout(c.cfg.ReadTimeout); err != nil {
		_ = port.Close()
		c.state = StateClosed
		c.setError(err)
		return fmt.Errorf("%w: %s read timeout: %v", ErrConfigurationRejected, device, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{port: port, cancel: cancel, done: make(chan struct{})}
	ready := make(chan error, 1)
	go c.run(ctx, s, ready)

	var startErr error
	select {
	case startErr = <-ready:
	case <-time.After(c.cfg.StopGrace):
		startErr = fmt.Errorf("reader did not report ready within %s", c.cfg.StopGrace)
		s.abandoned.Store(true)
	}
	if startErr != nil {
		cancel()
		c.closePort(s)
		c.state = StateClosed
		c.setError(startErr)
		return fmt.Errorf("%w: %s: %v", ErrReaderStartFailed, device, startErr)
	}

	c.sess = s
	c.device = device
	c.baud = baud
	c.state = StateRunning
	log.Printf("link %s open device=%s baud=%d", c.cfg.Name, device, baud)
	return nil
}

// Close stops the reader and releases the device. If the reader does not exit
// within the grace period the device is closed underneath it, a warning is
// logged and ErrStopTimeout is returned. The link is Closed either way.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return nil
	}
	s := c.sess
	c.state = StateClosing
	c.mu.Unlock()

	s.cancel()

	var err error
	select {
	case <-s.done:
	case <-time.After(c.cfg.StopGrace):
		s.abandoned.Store(true)
		c.forcedStops.Add(1)
		log.Printf("link %s reader ignored stop for %s; forcing close, link state may be inconsistent", c.cfg.Name, c.cfg.StopGrace)
		err = fmt.Errorf("%w: %s", ErrStopTimeout, c.cfg.Name)
		c.setError(err)
	}
	c.closePort(s)

	c.mu.Lock()
	c.sess = nil
	c.state = StateClosed
	c.mu.Unlock()
	log.Printf("link %s closed", c.cfg.Name)
	return err
}

func (c *Channel) closePort(s *session) {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if err := s.port.Close(); err != nil {
			log.Printf("link %s close failed: %v", c.cfg.Name, err)
		}
	})
}

// Write sends p as-is. It never fails from the caller's point of view:
// errors are counted and logged.
func (c *Channel) Write(p []byte) {
	c.mu.Lock()
	s := c.sess
	running := c.state == StateRunning
	c.mu.Unlock()
	if !running {
		c.writeDrops.Add(1)
		return
	}

	c.wmu.Lock()
	if s.closed.Load() {
		c.wmu.Unlock()
		c.writeDrops.Add(1)
		return
	}
	_, err := s.port.Write(p)
	c.wmu.Unlock()

	if err != nil && s.closed.Load() {
		c.writeDrops.Add(1)
		return
	}
	if err != nil {
		c.writeErrors.Add(1)
		c.setError(err)
		if c.writeLog.Allow() {
			log.Printf("link %s write failed: %v", c.cfg.Name, err)
		}
	}
}

// WriteSentence frames payload as an NMEA sentence and writes it.
func (c *Channel) WriteSentence(payload string) {
	c.Write([]byte(nmea.Frame(payload)))
}

// SetBaudRate changes the line speed of the running link after draining
// pending output.
func (c *Channel) SetBaudRate(baud int) error {
	if !ValidBaudRate(baud) {
		return fmt.Errorf("%w: %s baud %d", ErrConfigurationRejected, c.cfg.Name, baud)
	}
	err := c.reconfigure(func(p Port) error { return p.SetBaudRate(baud) })
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.baud = baud
	c.mu.Unlock()
	log.Printf("link %s baud=%d", c.cfg.Name, baud)
	return nil
}

// SetReadTimeout changes the reader's bounded wait after draining pending
// output.
func (c *Channel) SetReadTimeout(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: %s read timeout %s", ErrConfigurationRejected, c.cfg.Name, d)
	}
	return c.reconfigure(func(p Port) error { return p.SetReadTimeout(d) })
}

func (c *Channel) reconfigure(apply func(Port) error) error {
	c.mu.Lock()
	s := c.sess
	running := c.state == StateRunning
	c.mu.Unlock()
	if !running {
		return fmt.Errorf("%w: %s", ErrNotRunning, c.cfg.Name)
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if s.closed.Load() {
		return fmt.Errorf("%w: %s", ErrNotRunning, c.cfg.Name)
	}
	if err := s.port.Drain(); err != nil {
		c.setError(err)
		return fmt.Errorf("%w: %s drain: %v", ErrConfigurationRejected, c.cfg.Name, err)
	}
	if err := apply(s.port); err != nil {
		c.setError(err)
		return fmt.Errorf("%w: %s: %v", ErrConfigurationRejected, c.cfg.Name, err)
	}
	return nil
}

// Stats returns counters and the current state.
func (c *Channel) Stats() Stats {
	c.mu.Lock()
	st := Stats{Name: c.cfg.Name, Device: c.device, Baud: c.baud, State: c.state.String()}
	c.mu.Unlock()
	st.Lines = c.lines.Load()
	st.Bytes = c.bytes.Load()
	st.ReadErrors = c.readErrors.Load()
	st.WriteErrors = c.writeErrors.Load()
	st.WriteDrops = c.writeDrops.Load()
	st.ForcedStops = c.forcedStops.Load()
	if v, ok := c.lastErr.Load().(string); ok {
		st.LastError = v
	}
	return st
}

func (c *Channel) setError(err error) {
	c.lastErr.Store(err.Error())
}

// run is the reader goroutine.
func (c *Channel) run(ctx context.Context, s *session, ready chan<- error) {
	defer close(s.done)

	if err := s.port.Purge(); err != nil {
		ready <- fmt.Errorf("purge: %w", err)
		return
	}
	ready <- nil

	retry := rate.NewLimiter(rate.Every(c.cfg.RetryDelay), 1)
	retry.Allow() // start empty so the first error waits a full delay
	buf := make([]byte, 256)
	var line []byte

	for {
		if ctx.Err() != nil {
			// One last pass for bytes that arrived with the stop request.
			if n, err := s.port.Read(buf); n > 0 && err == nil {
				c.consume(s, buf[:n], line)
			}
			return
		}

		n, err := s.port.Read(buf)
		if n > 0 {
			line = c.consume(s, buf[:n], line)
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil || s.abandoned.Load() {
			return
		}
		c.readErrors.Add(1)
		c.setError(err)
		if c.readLog.Allow() {
			log.Printf("link %s read failed, retrying: %v", c.cfg.Name, err)
		}
		_ = retry.Wait(ctx)
	}
}

// consume splits data into lines and hands complete ones to the handler.
func (c *Channel) consume(s *session, data []byte, line []byte) []byte {
	c.bytes.Add(uint64(len(data)))
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			line = append(line, data...)
			if len(line) > maxLineLen {
				line = line[:0]
			}
			return line
		}
		line = append(line, data[:i]...)
		data = data[i+1:]

		text := string(bytes.TrimRight(line, "\r"))
		line = line[:0]
		if text == "" || s.abandoned.Load() {
			continue
		}
		c.lines.Add(1)
		if c.cfg.Handler != nil {
			c.cfg.Handler(text)
		}
	}
	return line
}
