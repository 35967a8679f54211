// Package device fans settings out to every attached instrument link.
//
// Broadcasts are called with the blackboard lock held, so they only record
// the new value and queue a sentence; Run performs the writes.
package device

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Sink is an attached output. transport.Channel and udp.Sink implement it.
type Sink interface {
	Name() string
	WriteSentence(payload string)
}

// VarioParams is the state carried by the PDVMC sentence.
type VarioParams struct {
	MacCready float64 // m/s
	VOpt      float64 // m/s
	Circling  bool
	TerrainM  float64
	QNH       float64 // hPa
}

// PDVMC formats the vario parameter sentence payload: MacCready and optimal
// speed in tenths, circling flag, terrain in whole metres, QNH in tenths.
func PDVMC(p VarioParams) string {
	circling := 0
	if p.Circling {
		circling = 1
	}
	return fmt.Sprintf("PDVMC,%d,%d,%d,%d,%d",
		iround(p.MacCready*10),
		iround(p.VOpt*10),
		circling,
		iround(p.TerrainM),
		iround(p.QNH*10))
}

func iround(v float64) int {
	return int(math.Round(v))
}

const DefaultQueueLen = 32

type Registry struct {
	mu     sync.Mutex
	sinks  map[string]Sink
	params VarioParams

	queue   chan string
	dropped atomic.Uint64
	sent    atomic.Uint64
	dropLog *rate.Limiter
}

func NewRegistry(queueLen int) *Registry {
	if queueLen <= 0 {
		queueLen = DefaultQueueLen
	}
	return &Registry{
		sinks:   make(map[string]Sink),
		queue:   make(chan string, queueLen),
		dropLog: rate.NewLimiter(rate.Every(10*time.Second), 1),
	}
}

// Attach adds s, replacing any sink with the same name.
func (r *Registry) Attach(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[s.Name()] = s
}

func (r *Registry) Detach(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sinks, name)
}

// Names lists attached sinks in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sinks))
	for n := range r.sinks {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Params returns the last values sent.
func (r *Registry) Params() VarioParams {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params
}

// BroadcastQNH records qnh and queues a parameter sentence.
func (r *Registry) BroadcastQNH(qnh float64) {
	r.update(func(p *VarioParams) { p.QNH = qnh })
}

// BroadcastMacCready records mc and queues a parameter sentence.
func (r *Registry) BroadcastMacCready(mc float64) {
	r.update(func(p *VarioParams) { p.MacCready = mc })
}

// UpdateFlightState refreshes the glide computer's values and queues a
// parameter sentence.
func (r *Registry) UpdateFlightState(vopt float64, circling bool, terrainM float64) {
	r.update(func(p *VarioParams) {
		p.VOpt = vopt
		p.Circling = circling
		p.TerrainM = terrainM
	})
}

func (r *Registry) update(edit func(*VarioParams)) {
	r.mu.Lock()
	edit(&r.params)
	payload := PDVMC(r.params)
	r.mu.Unlock()
	r.enqueue(payload)
}

// enqueue never blocks; a full queue drops the sentence.
func (r *Registry) enqueue(payload string) {
	select {
	case r.queue <- payload:
	default:
		r.dropped.Add(1)
		if r.dropLog.Allow() {
			log.Printf("device uplink queue full; dropped %q", payload)
		}
	}
}

// Run writes queued sentences to every attached sink until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-r.queue:
			r.send(payload)
		}
	}
}

func (r *Registry) send(payload string) {
	r.mu.Lock()
	sinks := make([]Sink, 0, len(r.sinks))
	for _, s := range r.sinks {
		sinks = append(sinks, s)
	}
	r.mu.Unlock()

	for _, s := range sinks {
		s.WriteSentence(payload)
	}
	r.sent.Add(1)
}

// Counters returns sentences sent and dropped.
func (r *Registry) Counters() (sent, dropped uint64) {
	return r.sent.Load(), r.dropped.Load()
}
