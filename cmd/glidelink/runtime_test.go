package main

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"glidelink/internal/blackboard"
	"glidelink/internal/config"
	"glidelink/internal/nmea"
	"glidelink/internal/transport"
)

type recordingWriter struct {
	lines []string
}

func (w *recordingWriter) WriteLine(line string) {
	w.lines = append(w.lines, line)
}

func unframed(payload string) string {
	return strings.TrimRight(nmea.Frame(payload), "\r\n")
}

func TestLineHandler_DecodesAndForwardsValidLines(t *testing.T) {
	bb := blackboard.New(blackboard.Config{})
	out := &recordingWriter{}
	h := lineHandler(nmea.NewDecoder(bb), []lineWriter{out})

	good := unframed("PGRMZ,1500,F,2")
	h(good)
	h("$PGRMZ,1500,F,2*00")

	if len(out.lines) != 1 || out.lines[0] != good {
		t.Fatalf("forwarded=%v", out.lines)
	}
	pa := bb.Snapshot().Basic.PressureAltitude
	if !pa.IsValid() || pa.Get() < 457 || pa.Get() > 458 {
		t.Fatalf("pressure altitude=%v valid=%v", pa.Get(), pa.IsValid())
	}
}

func TestLoadAirports(t *testing.T) {
	finder, err := loadAirports(context.Background(), config.AirportsConfig{})
	if err != nil || finder != nil {
		t.Fatalf("no source: finder=%v err=%v", finder, err)
	}

	p := filepath.Join(t.TempDir(), "wp.yaml")
	doc := "waypoints:\n  - ident: LSZH\n    lat_deg: 47.4647\n    lon_deg: 8.5492\n    elevation_m: 432\n    airport: true\n"
	if err := os.WriteFile(p, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	finder, err = loadAirports(context.Background(), config.AirportsConfig{File: p})
	if err != nil {
		t.Fatalf("loadAirports: %v", err)
	}
	if finder == nil {
		t.Fatalf("expected a finder")
	}

	if _, err := loadAirports(context.Background(), config.AirportsConfig{File: p + ".missing"}); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSuperviseLink_RetriesUntilOpen(t *testing.T) {
	var attempts atomic.Int32
	ch := transport.New(transport.Config{
		Name: "vario",
		Open: func(string, int) (transport.Port, error) {
			attempts.Add(1)
			return nil, transport.ErrDeviceUnavailable
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		superviseLink(ctx, ch, "/dev/missing", 9600, time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for attempts.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("attempts=%d", attempts.Load())
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("supervisor did not stop")
	}
	if ch.State() != transport.StateClosed {
		t.Fatalf("state=%v", ch.State())
	}
}

type idlePort struct{}

func (idlePort) Read([]byte) (int, error) {
	time.Sleep(time.Millisecond)
	return 0, nil
}
func (idlePort) Write(b []byte) (int, error) { return len(b), nil }
func (idlePort) Close() error { return nil }
func (idlePort) SetReadTimeout(time.Duration) error { return nil }
func (idlePort) SetBaudRate(int) error { return nil }
func (idlePort) Drain() error { return nil }
func (idlePort) Purge() error { return nil }

type lockedBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func (l *lockedBuffer) count(s string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Count(l.b.String(), s)
}

func TestSuperviseLink_ReportsEachOutageOnce(t *testing.T) {
	var logs lockedBuffer
	log.SetOutput(&logs)
	defer log.SetOutput(os.Stderr)

	var attempts atomic.Int32
	var failing atomic.Bool
	failing.Store(true)
	ch := transport.New(transport.Config{
		Name: "flarm",
		Open: func(string, int) (transport.Port, error) {
			attempts.Add(1)
			if failing.Load() {
				return nil, transport.ErrDeviceUnavailable
			}
			return idlePort{}, nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		superviseLink(ctx, ch, "/dev/ttyUSB0", 19200, time.Millisecond)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
		ch.Close()
	}()

	waitFor := func(what string, cond func() bool) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for !cond() {
			if time.Now().After(deadline) {
				t.Fatalf("timed out waiting for %s", what)
			}
			time.Sleep(time.Millisecond)
		}
	}

	waitFor("failed attempts", func() bool { return attempts.Load() >= 5 })
	if n := logs.count("link open failed"); n != 1 {
		t.Fatalf("first outage reported %d times", n)
	}

	failing.Store(false)
	waitFor("open", func() bool { return ch.State() == transport.StateRunning })

	failing.Store(true)
	before := attempts.Load()
	if err := ch.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	waitFor("second outage", func() bool { return attempts.Load() >= before+5 })
	if n := logs.count("link open failed"); n != 2 {
		t.Fatalf("two outages reported %d times", n)
	}
}

func TestRuntime_SimFeedsSweepAndUplink(t *testing.T) {
	cfg := config.Config{
		Settings: config.SettingsConfig{QNH: 1020, MacCready: 2},
		Sim: config.SimConfig{
			Enable:       true,
			CenterLatDeg: 47,
			CenterLonDeg: 8,
			AltM:         1200,
		},
	}
	if err := config.DefaultAndValidate(&cfg); err != nil {
		t.Fatalf("DefaultAndValidate: %v", err)
	}
	cfg.Sim.Interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		t.Fatalf("newRuntime: %v", err)
	}
	if err := rt.start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() {
		cancel()
		rt.close()
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !rt.board.Snapshot().Basic.GPS.Simulator {
		if time.Now().After(deadline) {
			t.Fatalf("simulator never fed the blackboard")
		}
		time.Sleep(5 * time.Millisecond)
	}
	rt.tickOnce()

	snap := rt.board.Snapshot()
	if snap.Basic.QNH.Get() != 1020 || snap.Basic.MacCready != 2 {
		t.Fatalf("initial settings qnh=%v mc=%v", snap.Basic.QNH.Get(), snap.Basic.MacCready)
	}
	p := rt.devices.Params()
	if p.QNH != 1020 || p.MacCready != 2 || p.VOpt <= 0 {
		t.Fatalf("uplink params=%+v", p)
	}
	if !rt.connected() {
		t.Fatalf("expected connected while simulating")
	}
	if got := rt.linkStats(); len(got) != 0 {
		t.Fatalf("links=%v", got)
	}
}

func TestRuntime_ReplayMissingFileFailsStart(t *testing.T) {
	cfg := config.Config{Replay: config.ReplayConfig{Enable: true, Path: filepath.Join(t.TempDir(), "none.igc")}}
	if err := config.DefaultAndValidate(&cfg); err != nil {
		t.Fatalf("DefaultAndValidate: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		t.Fatalf("newRuntime: %v", err)
	}
	err = rt.start(ctx)
	cancel()
	rt.close()
	if err == nil {
		t.Fatalf("expected start error")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err=%v", err)
	}
}
