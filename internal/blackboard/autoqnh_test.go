package blackboard

import (
	"testing"

	"github.com/stretchr/testify/require"

	"glidelink/internal/airport"
	"glidelink/internal/atmos"
	"glidelink/internal/flight"
	"glidelink/internal/geo"
)

func groundHarness(t *testing.T, airports AirportFinder) *harness {
	t.Helper()
	h := newHarness(flight.DefaultSettings(), airports)
	h.fix(100)
	h.bb.ProvidePressureAltitude(500)
	h.bb.ReadDerived(flight.DerivedState{OnGround: true})
	return h
}

var homeField = fakeAirports{
	a:  airport.Airport{Ident: "HOME", Name: "Home", Location: geo.Point{LatDeg: 47, LonDeg: 8}, ElevationM: 450, IsAirport: true},
	ok: true,
}

func TestAutoQNH_CalibratesAfterDebounce(t *testing.T) {
	h := groundHarness(t, homeField)

	for i := 0; i < qnhDebounceTicks-1; i++ {
		h.bb.Tick()
	}
	require.False(t, h.bb.Snapshot().Basic.QNH.IsValid())
	require.Empty(t, h.devices.qnh)

	h.bb.Tick()
	s := h.bb.Snapshot()
	want := atmos.QNHFromPressureAltitude(500, 450)
	require.True(t, s.QNHDone)
	require.True(t, s.Basic.QNH.IsValid())
	require.InDelta(t, want, s.Basic.QNH.Get(), 1e-9)
	require.Equal(t, []float64{want}, h.devices.qnh)

	for i := 0; i < 3*qnhDebounceTicks; i++ {
		h.bb.Tick()
	}
	require.Len(t, h.devices.qnh, 1, "calibration is one-shot")
}

func TestAutoQNH_InterruptionRestartsDebounce(t *testing.T) {
	h := groundHarness(t, homeField)

	for i := 0; i < 5; i++ {
		h.bb.Tick()
	}
	h.bb.ReadDerived(flight.DerivedState{OnGround: false})
	h.bb.Tick()
	h.bb.ReadDerived(flight.DerivedState{OnGround: true})

	for i := 0; i < qnhDebounceTicks-1; i++ {
		h.bb.Tick()
	}
	require.False(t, h.bb.Snapshot().QNHDone)
	h.bb.Tick()
	require.True(t, h.bb.Snapshot().QNHDone)
}

func TestAutoQNH_DefersWithoutReference(t *testing.T) {
	h := groundHarness(t, fakeAirports{})

	for i := 0; i < 2*qnhDebounceTicks; i++ {
		h.bb.Tick()
	}
	require.False(t, h.bb.Snapshot().QNHDone)

	d := flight.DerivedState{OnGround: true}
	d.TerrainAltitude.Update(300, 100)
	h.bb.ReadDerived(d)
	h.bb.Tick()

	s := h.bb.Snapshot()
	require.True(t, s.QNHDone)
	require.InDelta(t, atmos.QNHFromPressureAltitude(500, 300), s.Basic.QNH.Get(), 1e-9)
}

func TestAutoQNH_IgnoresOutlandingFields(t *testing.T) {
	tp := fakeAirports{a: airport.Airport{Ident: "TP", ElevationM: 450}, ok: true}
	h := groundHarness(t, tp)
	for i := 0; i < 2*qnhDebounceTicks; i++ {
		h.bb.Tick()
	}
	require.False(t, h.bb.Snapshot().QNHDone)
}

func TestAutoQNH_Gates(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
	}{
		{"disabled", func(h *harness) {
			s := flight.DefaultSettings()
			s.Computer.AutoQNH = false
			h.bb.ReplaceSettings(s)
		}},
		{"replay", func(h *harness) {
			h.bb.SetLocationFromReplay(LocationUpdate{Time: 100, BaroAltitude: 500, BaroOK: true})
		}},
		{"simulation", func(h *harness) {
			h.bb.SetLocationFromSimulation(LocationUpdate{Time: 100, BaroAltitude: 500, BaroOK: true})
		}},
		{"no fix", func(h *harness) {
			h.bb.ProvideFix(FixUpdate{Time: 100, Valid: false})
		}},
		{"qnh already known", func(h *harness) {
			h.bb.SetQNH(1000)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := groundHarness(t, homeField)
			tt.setup(h)
			for i := 0; i < 2*qnhDebounceTicks; i++ {
				h.bb.Tick()
			}
			require.False(t, h.bb.Snapshot().QNHDone)
		})
	}
}
