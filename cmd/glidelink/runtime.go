package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"glidelink/internal/airport"
	"glidelink/internal/blackboard"
	"glidelink/internal/config"
	"glidelink/internal/device"
	"glidelink/internal/flight"
	"glidelink/internal/geo"
	"glidelink/internal/glide"
	"glidelink/internal/indicator"
	"glidelink/internal/nmea"
	"glidelink/internal/replay"
	"glidelink/internal/sim"
	"glidelink/internal/transport"
	"glidelink/internal/udp"
)

const linkRetryInterval = 5 * time.Second

type lineWriter interface {
	WriteLine(line string)
}

type runtime struct {
	cfg config.Config

	board   *blackboard.Blackboard
	devices *device.Registry
	glide   *glide.Computer

	links   []*transport.Channel
	outputs []*udp.Sink

	simSvc       *sim.Service
	replaySvc    *replay.Service
	indicatorSvc *indicator.Service

	wg sync.WaitGroup
}

func newRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	airports, err := loadAirports(ctx, cfg.Airports)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:     cfg,
		devices: device.NewRegistry(device.DefaultQueueLen),
		glide:   glide.New(),
	}
	rt.board = blackboard.New(blackboard.Config{
		Airports:       airports,
		AirportRadiusM: cfg.Airports.RadiusM,
		Devices:        rt.devices,
		Settings:       cfg.FlightSettings(),
	})

	for _, dest := range cfg.Outputs.UDP {
		s, err := udp.New(dest)
		if err != nil {
			rt.close()
			return nil, fmt.Errorf("udp output %s: %w", dest, err)
		}
		rt.outputs = append(rt.outputs, s)
		rt.devices.Attach(s)
	}

	writers := make([]lineWriter, 0, len(rt.outputs))
	for _, s := range rt.outputs {
		writers = append(writers, s)
	}
	for _, lc := range cfg.Links {
		ch := transport.New(transport.Config{
			Name:        lc.Name,
			ReadTimeout: lc.ReadTimeout,
			StopGrace:   lc.StopGrace,
			Handler:     lineHandler(nmea.NewDecoder(rt.board), writers),
		})
		rt.links = append(rt.links, ch)
	}

	if cfg.Sim.Enable {
		rt.simSvc, err = sim.New(simConfig(cfg.Sim), rt.board)
		if err != nil {
			rt.close()
			return nil, err
		}
	}
	if cfg.Replay.Enable {
		rt.replaySvc = replay.New(replay.Config{
			Enable: true,
			Path:   cfg.Replay.Path,
			Speed:  cfg.Replay.Speed,
			Loop:   cfg.Replay.Loop,
		}, rt.board)
	}
	rt.indicatorSvc = indicator.New(indicator.Config{Pin: cfg.Indicator.GPIOPin}, rt.connected)
	return rt, nil
}

func simConfig(c config.SimConfig) sim.Config {
	return sim.Config{
		Enable: c.Enable,
		Thermal: sim.Thermal{
			Center:     geo.Point{LatDeg: c.CenterLatDeg, LonDeg: c.CenterLonDeg},
			BaseAltM:   c.AltM,
			AirspeedMS: c.AirspeedMS,
			RadiusM:    c.RadiusM,
			ClimbMS:    c.ClimbMS,
			CycleTime:  c.Cycle,
			Wind:       geo.SpeedVector{BearingDeg: c.WindFromDeg, NormMS: c.WindMS},
		},
		ScriptPath: c.Script,
		Loop:       c.Loop,
		Interval:   c.Interval,
	}
}

// loadAirports returns nil (no AutoQNH lookups) when no source is configured.
func loadAirports(ctx context.Context, c config.AirportsConfig) (blackboard.AirportFinder, error) {
	var items []airport.Airport
	if c.File != "" {
		fromFile, err := airport.LoadFile(c.File)
		if err != nil {
			return nil, err
		}
		items = append(items, fromFile...)
	}
	if c.PostgresDSN != "" {
		qctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		fromDB, err := airport.LoadPostgres(qctx, c.PostgresDSN)
		cancel()
		if err != nil {
			return nil, err
		}
		items = append(items, fromDB...)
	}
	if len(items) == 0 {
		return nil, nil
	}
	log.Printf("airports loaded count=%d", len(items))
	return airport.NewIndex(items), nil
}

// lineHandler decodes a link's lines into the blackboard and repeats the
// valid ones to the network outputs.
func lineHandler(dec *nmea.Decoder, outputs []lineWriter) func(string) {
	return func(line string) {
		if err := dec.HandleLine(line); err != nil {
			return
		}
		for _, w := range outputs {
			w.WriteLine(line)
		}
	}
}

func (rt *runtime) start(ctx context.Context) error {
	if rt.cfg.Settings.QNH != 0 {
		rt.board.SetQNH(rt.cfg.Settings.QNH)
	}
	if rt.cfg.Settings.MacCready != 0 {
		rt.board.SetMacCready(rt.cfg.Settings.MacCready)
	}

	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		rt.devices.Run(ctx)
	}()

	for i, ch := range rt.links {
		ch := ch
		lc := rt.cfg.Links[i]
		rt.devices.Attach(ch)
		rt.wg.Add(1)
		go func() {
			defer rt.wg.Done()
			superviseLink(ctx, ch, lc.Device, lc.Baud, linkRetryInterval)
		}()
	}

	if rt.simSvc != nil {
		c := rt.cfg.Sim
		rt.board.SetStartupLocation(geo.Point{LatDeg: c.CenterLatDeg, LonDeg: c.CenterLonDeg}, c.AltM)
		if err := rt.simSvc.Start(ctx); err != nil {
			return err
		}
	}
	if rt.replaySvc != nil {
		if err := rt.replaySvc.Start(ctx); err != nil {
			return err
		}
	}
	if err := rt.indicatorSvc.Start(ctx); err != nil {
		// The indicator is optional hardware.
		log.Printf("indicator unavailable: %v", err)
	}
	return nil
}

// superviseLink keeps a link open, reopening it after failures or a forced
// stop until ctx is done. A failure is reported once per outage; the next
// report waits until an open has succeeded.
func superviseLink(ctx context.Context, ch *transport.Channel, dev string, baud int, retry time.Duration) {
	reported := false
	t := time.NewTicker(retry)
	defer t.Stop()
	for {
		if ch.State() == transport.StateClosed {
			if err := ch.Open(dev, baud); err != nil {
				if !reported {
					log.Printf("link open failed name=%s device=%s baud=%d: %v", ch.Name(), dev, baud, err)
					reported = true
				}
			} else {
				log.Printf("link open name=%s device=%s baud=%d", ch.Name(), dev, baud)
				reported = false
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (rt *runtime) runTicks(ctx context.Context) {
	tick := time.NewTicker(rt.cfg.Tick.Interval)
	defer tick.Stop()
	fast := time.NewTicker(rt.cfg.Tick.FastInterval)
	defer fast.Stop()
	wall := time.NewTicker(rt.cfg.Tick.WallClockInterval)
	defer wall.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-rt.board.Updates():
			rt.tickOnce()
		case <-tick.C:
			rt.tickOnce()
		case <-fast.C:
			rt.board.TickFast()
		case <-wall.C:
			if rt.board.ExpireWallClock() {
				log.Printf("instrument data lost: no input for %ds", flight.ConnectedTimeout)
			}
		}
	}
}

// tickOnce runs the sweep, then feeds the glide computer's conclusions back
// into the blackboard and the vario uplink.
func (rt *runtime) tickOnce() {
	rt.board.Tick()
	snap := rt.board.Snapshot()
	res := rt.glide.Update(snap.Basic, snap.Settings)
	rt.board.ReadDerived(res.Derived)

	terrain := 0.0
	if res.Derived.TerrainAltitude.IsValid() {
		terrain = res.Derived.TerrainAltitude.Get()
	}
	rt.devices.UpdateFlightState(res.VOpt, res.Circling, terrain)
}

func (rt *runtime) connected() bool {
	return rt.board.Snapshot().Basic.Connected.IsValid()
}

func (rt *runtime) linkStats() []transport.Stats {
	out := make([]transport.Stats, 0, len(rt.links))
	for _, ch := range rt.links {
		out = append(out, ch.Stats())
	}
	return out
}

// close stops producers first so nothing writes to a closing link. The
// context passed to start must already be done.
func (rt *runtime) close() {
	rt.wg.Wait()
	if rt.replaySvc != nil {
		rt.replaySvc.Close()
	}
	if rt.simSvc != nil {
		rt.simSvc.Close()
	}
	if rt.indicatorSvc != nil {
		_ = rt.indicatorSvc.Close()
	}
	for _, ch := range rt.links {
		rt.devices.Detach(ch.Name())
		// Close logs a forced stop itself.
		_ = ch.Close()
	}
	for _, s := range rt.outputs {
		rt.devices.Detach(s.Name())
		_ = s.Close()
	}
}
