//go:build linux

package transport

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// termiosPort is a tty in raw mode with a VTIME-bounded read.
type termiosPort struct {
	f    *os.File
	path string
}

// OpenSerial opens a tty in raw 8N1 mode without flow control.
func OpenSerial(path string, baud int) (Port, error) {
	spd, err := baudToUnix(baud)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigurationRejected, err)
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, path, err)
	}

	// Best-effort: if anything below fails, close fd.
	ok := false
	defer func() {
		if !ok {
			_ = unix.Close(fd)
		}
	}()

	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a tty: %v", ErrDeviceUnavailable, path, err)
	}

	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF | unix.IXANY
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB | unix.CRTSCTS
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL

	// Return whatever is there after at most VTIME deciseconds.
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = vtime(DefaultReadTimeout)

	setSpeed(t, spd)

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigurationRejected, path, err)
	}

	f := os.NewFile(uintptr(fd), path)
	if f == nil {
		return nil, fmt.Errorf("%w: os.NewFile failed", ErrDeviceUnavailable)
	}
	ok = true
	return &termiosPort{f: f, path: path}, nil
}

// Read returns (0, nil) when VTIME expires without data.
func (p *termiosPort) Read(b []byte) (int, error) {
	n, err := p.f.Read(b)
	if errors.Is(err, io.EOF) {
		return n, nil
	}
	return n, err
}

func (p *termiosPort) Write(b []byte) (int, error) {
	return p.f.Write(b)
}

func (p *termiosPort) Close() error {
	return p.f.Close()
}

// SetReadTimeout is applied with TCSETSW, which waits for pending output.
func (p *termiosPort) SetReadTimeout(d time.Duration) error {
	return p.modify(func(t *unix.Termios) error {
		t.Cc[unix.VTIME] = vtime(d)
		return nil
	})
}

func (p *termiosPort) SetBaudRate(baud int) error {
	spd, err := baudToUnix(baud)
	if err != nil {
		return err
	}
	return p.modify(func(t *unix.Termios) error {
		setSpeed(t, spd)
		return nil
	})
}

// Drain is tcdrain(3).
func (p *termiosPort) Drain() error {
	return p.control(func(fd int) error {
		return unix.IoctlSetInt(fd, unix.TCSBRK, 1)
	})
}

// Purge is tcflush(3) on both queues.
func (p *termiosPort) Purge() error {
	return p.control(func(fd int) error {
		return unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIOFLUSH)
	})
}

func (p *termiosPort) modify(edit func(*unix.Termios) error) error {
	return p.control(func(fd int) error {
		t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
		if err != nil {
			return err
		}
		if err := edit(t); err != nil {
			return err
		}
		return unix.IoctlSetTermios(fd, unix.TCSETSW, t)
	})
}

func (p *termiosPort) control(fn func(fd int) error) error {
	rc, err := p.f.SyscallConn()
	if err != nil {
		return err
	}
	var opErr error
	if err := rc.Control(func(fd uintptr) { opErr = fn(int(fd)) }); err != nil {
		return err
	}
	return opErr
}

func setSpeed(t *unix.Termios, spd uint32) {
	t.Cflag &^= unix.CBAUD
	t.Cflag |= spd
	t.Ispeed = spd
	t.Ospeed = spd
}

// vtime converts d to deciseconds, clamped to what VTIME can hold.
func vtime(d time.Duration) uint8 {
	ds := (d + 99*time.Millisecond) / (100 * time.Millisecond)
	if ds < 1 {
		ds = 1
	}
	if ds > 255 {
		ds = 255
	}
	return uint8(ds)
}

func baudToUnix(baud int) (uint32, error) {
	switch baud {
	case 1200:
		return unix.B1200, nil
	case 2400:
		return unix.B2400, nil
	case 4800:
		return unix.B4800, nil
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	default:
		return 0, fmt.Errorf("unsupported baud %d", baud)
	}
}
