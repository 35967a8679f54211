//go:build !linux

package transport

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tarm/serial"
)

var errPortClosed = errors.New("port closed")

// tarmPort wraps a tarm/serial port. Speed and timeout are fixed at open
// time there, so changing them reopens the device.
type tarmPort struct {
	// mu serializes reopening. Read, Write and Close only touch cur, so a
	// stuck transfer never holds up Close.
	mu      sync.Mutex
	name    string
	baud    int
	timeout time.Duration
	cur     atomic.Pointer[serial.Port]
	closed  atomic.Bool
}

// OpenSerial opens device in 8N1 mode.
func OpenSerial(device string, baud int) (Port, error) {
	if !ValidBaudRate(baud) {
		return nil, fmt.Errorf("%w: unsupported baud %d", ErrConfigurationRejected, baud)
	}
	tp := &tarmPort{name: device, baud: baud, timeout: DefaultReadTimeout}
	p, err := tp.open(baud, tp.timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, device, err)
	}
	tp.cur.Store(p)
	return tp, nil
}

func (t *tarmPort) open(baud int, timeout time.Duration) (*serial.Port, error) {
	return serial.OpenPort(&serial.Config{Name: t.name, Baud: baud, ReadTimeout: timeout})
}

// Read returns (0, nil) on timeout; tarm/serial reports that as io.EOF.
func (t *tarmPort) Read(b []byte) (int, error) {
	p := t.cur.Load()
	if p == nil {
		return 0, errPortClosed
	}
	n, err := p.Read(b)
	if errors.Is(err, io.EOF) {
		return n, nil
	}
	return n, err
}

func (t *tarmPort) Write(b []byte) (int, error) {
	p := t.cur.Load()
	if p == nil {
		return 0, errPortClosed
	}
	return p.Write(b)
}

func (t *tarmPort) Close() error {
	t.closed.Store(true)
	p := t.cur.Swap(nil)
	if p == nil {
		return nil
	}
	return p.Close()
}

func (t *tarmPort) SetReadTimeout(d time.Duration) error {
	return t.reopen(0, d)
}

func (t *tarmPort) SetBaudRate(baud int) error {
	return t.reopen(baud, 0)
}

// Drain is a no-op: tarm/serial writes are synchronous.
func (t *tarmPort) Drain() error {
	return nil
}

func (t *tarmPort) Purge() error {
	p := t.cur.Load()
	if p == nil {
		return errPortClosed
	}
	return p.Flush()
}

// reopen applies a new speed or timeout; zero keeps the current value.
func (t *tarmPort) reopen(baud int, timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if baud == 0 {
		baud = t.baud
	}
	if timeout == 0 {
		timeout = t.timeout
	}
	old := t.cur.Load()
	if old == nil {
		return errPortClosed
	}
	if baud == t.baud && timeout == t.timeout {
		return nil
	}
	_ = old.Close()
	p, err := t.open(baud, timeout)
	if err != nil {
		t.cur.CompareAndSwap(old, nil)
		return err
	}
	if !t.cur.CompareAndSwap(old, p) || t.closed.Load() {
		// Closed while reopening.
		t.cur.Store(nil)
		_ = p.Close()
		return errPortClosed
	}
	t.baud, t.timeout = baud, timeout
	return nil
}
