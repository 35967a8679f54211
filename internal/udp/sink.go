// Package udp sends NMEA to network consumers such as a glide computer
// listening on a UDP port.
package udp

import (
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"glidelink/internal/nmea"
)

type udpConn interface {
	Write(p []byte) (int, error)
	Close() error
}

type resolveFunc func(network, address string) (*net.UDPAddr, error)
type dialFunc func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)

func dialUDP(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
	return net.DialUDP(network, laddr, raddr)
}

// Sink writes each sentence as one datagram.
type Sink struct {
	dest string

	mu   sync.Mutex
	conn udpConn

	errors atomic.Uint64
	sent   atomic.Uint64
	errLog *rate.Limiter
}

func New(dest string) (*Sink, error) {
	return newSink(dest, net.ResolveUDPAddr, dialUDP)
}

func newSink(dest string, resolve resolveFunc, dial dialFunc) (*Sink, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}

	// DialUDP selects a suitable local address automatically.
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}

	return &Sink{
		dest:   dest,
		conn:   conn,
		errLog: rate.NewLimiter(rate.Every(10*time.Second), 1),
	}, nil
}

func (s *Sink) Name() string { return "udp:" + s.dest }

// Send writes one datagram. Empty payloads are skipped.
func (s *Sink) Send(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("udp: %s closed", s.dest)
	}
	_, err := s.conn.Write(payload)
	return err
}

// WriteSentence frames payload and sends it. Errors are counted and logged,
// never returned: network output is best-effort.
func (s *Sink) WriteSentence(payload string) {
	s.forward(nmea.Frame(payload))
}

// WriteLine forwards an already framed line, adding the terminator.
func (s *Sink) WriteLine(line string) {
	s.forward(line + "\r\n")
}

func (s *Sink) forward(text string) {
	if err := s.Send([]byte(text)); err != nil {
		s.errors.Add(1)
		if s.errLog.Allow() {
			log.Printf("udp output %s failed: %v", s.dest, err)
		}
		return
	}
	s.sent.Add(1)
}

// Counters returns datagrams sent and failed.
func (s *Sink) Counters() (sent, failed uint64) {
	return s.sent.Load(), s.errors.Load()
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
