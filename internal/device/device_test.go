package device

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	name string

	mu   sync.Mutex
	sent []string
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) WriteSentence(payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, payload)
}

func (s *recordingSink) get() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func TestPDVMC(t *testing.T) {
	got := PDVMC(VarioParams{MacCready: 1.5, VOpt: 27.84, Circling: true, TerrainM: 432.4, QNH: 1013.25})
	require.Equal(t, "PDVMC,15,278,1,432,10133", got)
	require.Equal(t, "PDVMC,0,0,0,0,0", PDVMC(VarioParams{}))
}

func TestRegistry_BroadcastReachesAllSinks(t *testing.T) {
	r := NewRegistry(0)
	a := &recordingSink{name: "vario"}
	b := &recordingSink{name: "udp:127.0.0.1:4353"}
	r.Attach(a)
	r.Attach(b)
	require.Equal(t, []string{"udp:127.0.0.1:4353", "vario"}, r.Names())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	r.BroadcastQNH(1020)
	r.BroadcastMacCready(2)

	want := []string{"PDVMC,0,0,0,0,10200", "PDVMC,20,0,0,0,10200"}
	require.Eventually(t, func() bool { return len(a.get()) == 2 && len(b.get()) == 2 }, time.Second, 5*time.Millisecond)
	require.Equal(t, want, a.get())
	require.Equal(t, want, b.get())
	require.Equal(t, VarioParams{MacCready: 2, QNH: 1020}, r.Params())
}

func TestRegistry_DetachStopsDelivery(t *testing.T) {
	r := NewRegistry(4)
	a := &recordingSink{name: "vario"}
	r.Attach(a)
	r.Detach("vario")

	r.UpdateFlightState(30, false, 500)
	r.send(<-r.queue)
	require.Empty(t, a.get())
}

func TestRegistry_FullQueueDropsWithoutBlocking(t *testing.T) {
	r := NewRegistry(2)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			r.BroadcastMacCready(float64(i))
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("broadcast blocked on a full queue")
	}

	_, dropped := r.Counters()
	require.Equal(t, uint64(8), dropped)
	require.Equal(t, 9.0, r.Params().MacCready)
}
