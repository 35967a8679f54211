// Package transport owns the physical links to external instruments: one
// reader goroutine per link, a serialized write path and a bounded shutdown.
package transport

import (
	"errors"
	"time"
)

var (
	// ErrDeviceUnavailable means the device could not be acquired.
	ErrDeviceUnavailable = errors.New("transport: device unavailable")
	// ErrConfigurationRejected means the requested framing or speed could
	// not be applied.
	ErrConfigurationRejected = errors.New("transport: configuration rejected")
	// ErrReaderStartFailed means the link opened but its reader never came up.
	ErrReaderStartFailed = errors.New("transport: reader start failed")
	// ErrStopTimeout means the reader ignored the stop request and the link
	// was closed underneath it.
	ErrStopTimeout = errors.New("transport: reader stop timed out")
	// ErrNotRunning is returned by reconfiguration calls on a closed link.
	ErrNotRunning = errors.New("transport: link not running")
)

// State is the link lifecycle state.
type State int32

const (
	StateClosed State = iota
	StateOpening
	StateRunning
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateRunning:
		return "running"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Port is an opened physical link.
//
// Read must return within the configured read timeout; a timeout with no data
// is (0, nil). SetBaudRate and SetReadTimeout apply to the open handle.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error

	SetReadTimeout(d time.Duration) error
	SetBaudRate(baud int) error
	// Drain blocks until queued output has been transmitted.
	Drain() error
	// Purge discards unread input and unsent output.
	Purge() error
}

// Opener acquires a device. Errors wrap ErrDeviceUnavailable or
// ErrConfigurationRejected.
type Opener func(device string, baud int) (Port, error)

var baudRates = map[int]bool{
	1200: true, 2400: true, 4800: true, 9600: true, 19200: true,
	38400: true, 57600: true, 115200: true, 230400: true,
}

// ValidBaudRate reports whether baud is a supported line speed.
func ValidBaudRate(baud int) bool {
	return baudRates[baud]
}
