package nmea

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"glidelink/internal/blackboard"
	"glidelink/internal/geo"
)

func TestFrame_KnownSentence(t *testing.T) {
	got := Frame("PDVMC,15,278,0,0,10132")
	want := "$PDVMC,15,278,0,0,10132*"
	if !strings.HasPrefix(got, want) || !strings.HasSuffix(got, "\r\n") {
		t.Fatalf("frame=%q", got)
	}
	hh := got[len(want) : len(want)+2]
	if strings.ToUpper(hh) != hh {
		t.Fatalf("checksum %q not upper case", hh)
	}
}

func TestFrame_ParseRoundTrip(t *testing.T) {
	payloads := []string{
		"GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W",
		"PDVMC,0,0,0,0,0",
		"PGRMZ,1234,f,3",
		"ABC",
		"XYZ,,,",
	}
	for _, p := range payloads {
		s, err := Parse(Frame(p))
		if err != nil {
			t.Fatalf("parse(frame(%q)): %v", p, err)
		}
		if got := strings.Join(s.Fields, ","); got != p {
			t.Fatalf("fields=%q want %q", got, p)
		}
	}
}

func TestChecksum_XOR(t *testing.T) {
	if ck := Checksum(""); ck != 0 {
		t.Fatalf("empty checksum=%02X", ck)
	}
	if ck := Checksum("AB"); ck != 'A'^'B' {
		t.Fatalf("checksum=%02X", ck)
	}
}

func TestParse_Errors(t *testing.T) {
	good := strings.TrimSpace(Frame("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W"))
	tests := []struct {
		name string
		line string
		want error
	}{
		{"mismatch", good[:len(good)-2] + "00", ErrChecksum},
		{"no dollar", good[1:], ErrFraming},
		{"no star", "$GPRMC,1,2", ErrFraming},
		{"bad digits", "$GPRMC,1*ZZ", ErrFraming},
		{"short checksum", "$GPRMC,1*4", ErrFraming},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.line)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err=%v want %v", err, tt.want)
			}
		})
	}
}

func TestParse_TypeNormalization(t *testing.T) {
	tests := map[string]string{
		"GNGGA,1": "GGA",
		"GPRMC,1": "RMC",
		"PGRMZ,1": "PGRMZ",
		"LXWP0,Y": "LXWP0",
		"PFLAU,0": "PFLAU",
		"gprmc,1": "RMC",
	}
	for payload, want := range tests {
		s, err := Parse(Frame(payload))
		if err != nil {
			t.Fatalf("parse %q: %v", payload, err)
		}
		if s.Type != want {
			t.Fatalf("type(%q)=%q want %q", payload, s.Type, want)
		}
	}
}

func TestParseLatLon(t *testing.T) {
	lat, ok := parseLatLon("4807.038", "N")
	if !ok || math.Abs(lat-48.1173) > 1e-4 {
		t.Fatalf("lat=%v ok=%v", lat, ok)
	}
	lon, ok := parseLatLon("01131.000", "W")
	if !ok || math.Abs(lon+11.516667) > 1e-5 {
		t.Fatalf("lon=%v ok=%v", lon, ok)
	}
	if _, ok := parseLatLon("4807.038", "X"); ok {
		t.Fatalf("expected bad hemisphere to fail")
	}
	if _, ok := parseLatLon("", "N"); ok {
		t.Fatalf("expected empty to fail")
	}
}

type recordingSink struct {
	fixes    []blackboard.FixUpdate
	gpsAlt   []float64
	sats     []int
	pressure []float64
	ias, tas []float64
	te       []float64
	wind     []geo.SpeedVector
}

func (r *recordingSink) ProvideFix(u blackboard.FixUpdate) { r.fixes = append(r.fixes, u) }
func (r *recordingSink) ProvideGPSAltitude(alt float64, _, sats int) {
	r.gpsAlt = append(r.gpsAlt, alt)
	r.sats = append(r.sats, sats)
}
func (r *recordingSink) ProvidePressureAltitude(alt float64) { r.pressure = append(r.pressure, alt) }
func (r *recordingSink) ProvideAirspeed(ias, tas float64) {
	r.ias = append(r.ias, ias)
	r.tas = append(r.tas, tas)
}
func (r *recordingSink) ProvideTotalEnergyVario(v float64) { r.te = append(r.te, v) }
func (r *recordingSink) ProvideExternalWind(w geo.SpeedVector) { r.wind = append(r.wind, w) }

func TestDecoder_RMC(t *testing.T) {
	var sink recordingSink
	d := NewDecoder(&sink)
	if err := d.HandleLine(Frame("GPRMC,123519.50,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sink.fixes) != 1 {
		t.Fatalf("fixes=%d", len(sink.fixes))
	}
	u := sink.fixes[0]
	if !u.Valid || !u.TrackOK {
		t.Fatalf("fix=%+v", u)
	}
	if math.Abs(u.Time-(12*3600+35*60+19.5)) > 1e-9 {
		t.Fatalf("time=%v", u.Time)
	}
	if math.Abs(u.GroundSpeed-22.4*knotsToMS) > 1e-9 {
		t.Fatalf("gs=%v", u.GroundSpeed)
	}
	want := time.Date(1994, 3, 23, 12, 35, 19, 500_000_000, time.UTC)
	if !u.DateTime.Equal(want) {
		t.Fatalf("datetime=%v want %v", u.DateTime, want)
	}
}

func TestDecoder_RMCVoid(t *testing.T) {
	var sink recordingSink
	d := NewDecoder(&sink)
	if err := d.HandleLine(Frame("GPRMC,123519,V,,,,,,,230394,,")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sink.fixes) != 1 || sink.fixes[0].Valid {
		t.Fatalf("expected one invalid fix, got %+v", sink.fixes)
	}
}

func TestDecoder_RMCTimeCountsPastMidnight(t *testing.T) {
	var sink recordingSink
	d := NewDecoder(&sink)
	for _, line := range []string{
		"GPRMC,235958,A,4807.038,N,01131.000,E,022.4,084.4,230394,,",
		"GPRMC,235959,A,4807.038,N,01131.000,E,022.4,084.4,230394,,",
		"GPRMC,000001,A,4807.038,N,01131.000,E,022.4,084.4,240394,,",
		"GPRMC,000000.5,A,4807.038,N,01131.000,E,022.4,084.4,240394,,",
		"GPRMC,000002,A,4807.038,N,01131.000,E,022.4,084.4,240394,,",
	} {
		if err := d.HandleLine(Frame(line)); err != nil {
			t.Fatalf("handle %q: %v", line, err)
		}
	}
	var got []float64
	for _, u := range sink.fixes {
		got = append(got, u.Time)
	}
	// A small step back is an out-of-order sentence, not another day.
	want := []float64{86398, 86399, 86401, 86400.5, 86402}
	if len(got) != len(want) {
		t.Fatalf("times=%v want %v", got, want)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("times=%v want %v", got, want)
		}
	}
	wantDate := time.Date(1994, 3, 24, 0, 0, 2, 0, time.UTC)
	if dt := sink.fixes[4].DateTime; !dt.Equal(wantDate) {
		t.Fatalf("datetime=%v want %v", dt, wantDate)
	}
}

func TestDecoder_GGA(t *testing.T) {
	var sink recordingSink
	d := NewDecoder(&sink)
	_ = d.HandleLine(Frame("GNGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"))
	_ = d.HandleLine(Frame("GNGGA,123520,,,,,0,00,,,M,,M,,"))
	if len(sink.gpsAlt) != 1 || sink.gpsAlt[0] != 545.4 || sink.sats[0] != 8 {
		t.Fatalf("alt=%v sats=%v", sink.gpsAlt, sink.sats)
	}
	if d.Ignored != 1 {
		t.Fatalf("ignored=%d want 1", d.Ignored)
	}
}

func TestDecoder_PGRMZFeet(t *testing.T) {
	var sink recordingSink
	d := NewDecoder(&sink)
	_ = d.HandleLine(Frame("PGRMZ,1000,f,3"))
	_ = d.HandleLine(Frame("PGRMZ,500,m,3"))
	if len(sink.pressure) != 2 || math.Abs(sink.pressure[0]-304.8) > 1e-9 || sink.pressure[1] != 500 {
		t.Fatalf("pressure=%v", sink.pressure)
	}
}

func TestDecoder_LXWP0(t *testing.T) {
	var sink recordingSink
	d := NewDecoder(&sink)
	if err := d.HandleLine(Frame("LXWP0,Y,108,1500.0,1.25,,,,,,239,270,36")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sink.ias) != 1 || math.Abs(sink.ias[0]-30) > 1e-9 {
		t.Fatalf("ias=%v", sink.ias)
	}
	if sink.tas[0] <= sink.ias[0] {
		t.Fatalf("tas=%v should exceed ias at altitude", sink.tas[0])
	}
	if len(sink.te) != 1 || sink.te[0] != 1.25 {
		t.Fatalf("te=%v", sink.te)
	}
	if len(sink.wind) != 1 || sink.wind[0].BearingDeg != 270 || math.Abs(sink.wind[0].NormMS-10) > 1e-9 {
		t.Fatalf("wind=%v", sink.wind)
	}
	if len(sink.pressure) != 1 || sink.pressure[0] != 1500 {
		t.Fatalf("pressure=%v", sink.pressure)
	}
}

func TestDecoder_CountsErrors(t *testing.T) {
	d := NewDecoder(&recordingSink{})
	if err := d.HandleLine("$GPRMC,garbage*00"); err == nil {
		t.Fatalf("expected error")
	}
	_ = d.HandleLine(Frame("PFLAU,0,0,0,1,0,,0,,"))
	if d.Errors != 1 || d.Sentences != 1 || d.Ignored != 1 {
		t.Fatalf("errors=%d sentences=%d ignored=%d", d.Errors, d.Sentences, d.Ignored)
	}
}
