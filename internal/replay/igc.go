// Package replay plays back recorded flights (IGC files) into the blackboard.
package replay

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"glidelink/internal/geo"
)

// Fix is one IGC B record.
//
//	B HHMMSS DDMMmmm N DDDMMmmm E V PPPPP GGGGG
type Fix struct {
	// At is the offset from the first fix; it keeps increasing across
	// midnight.
	At time.Duration
	// Time is the UTC time of day in seconds.
	Time     float64
	DateTime time.Time

	Location     geo.Point
	PressureAltM float64
	GPSAltM      float64
	// Valid is false for 2D fixes ('V'), whose altitude is not to be trusted.
	Valid bool
}

// LoadIGC reads all B records from path.
func LoadIGC(path string) ([]Fix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseIGC(f)
}

// ParseIGC reads all B records. The flight date comes from the HFDTE header
// when present.
func ParseIGC(r io.Reader) ([]Fix, error) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), 64*1024)

	var date time.Time
	var fixes []Fix
	var first, prev float64
	var dayOffset float64
	lineNo := 0

	for s.Scan() {
		lineNo++
		line := strings.TrimRight(s.Text(), "\r ")
		switch {
		case strings.HasPrefix(line, "HFDTE"):
			if d, ok := parseHFDTE(line); ok {
				date = d
			}
		case strings.HasPrefix(line, "B"):
			fx, err := parseB(line)
			if err != nil {
				return nil, fmt.Errorf("igc line %d: %w", lineNo, err)
			}
			if len(fixes) == 0 {
				first, prev = fx.Time, fx.Time
			}
			if fx.Time < prev {
				// Crossed midnight UTC.
				dayOffset += 86400
			}
			prev = fx.Time
			fx.At = time.Duration((fx.Time + dayOffset - first) * float64(time.Second))
			if !date.IsZero() {
				fx.DateTime = date.Add(time.Duration((fx.Time + dayOffset) * float64(time.Second)))
			}
			fixes = append(fixes, fx)
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if len(fixes) == 0 {
		return nil, fmt.Errorf("igc: no B records")
	}
	return fixes, nil
}

// parseHFDTE accepts "HFDTE150726" and "HFDTEDATE:150726,01".
func parseHFDTE(line string) (time.Time, bool) {
	v := strings.TrimPrefix(line, "HFDTE")
	v = strings.TrimPrefix(v, "DATE:")
	if len(v) < 6 {
		return time.Time{}, false
	}
	d, err := time.Parse("020106", v[:6])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

func parseB(line string) (Fix, error) {
	if len(line) < 35 {
		return Fix{}, fmt.Errorf("short B record %q", line)
	}
	hh, err1 := strconv.Atoi(line[1:3])
	mm, err2 := strconv.Atoi(line[3:5])
	ss, err3 := strconv.Atoi(line[5:7])
	if err1 != nil || err2 != nil || err3 != nil || hh > 23 || mm > 59 || ss > 59 {
		return Fix{}, fmt.Errorf("bad time in %q", line)
	}

	lat, err := parseCoord(line[7:14], line[14], 2)
	if err != nil {
		return Fix{}, err
	}
	lon, err := parseCoord(line[15:23], line[23], 3)
	if err != nil {
		return Fix{}, err
	}
	pAlt, err1 := strconv.Atoi(line[25:30])
	gAlt, err2 := strconv.Atoi(line[30:35])
	if err1 != nil || err2 != nil {
		return Fix{}, fmt.Errorf("bad altitude in %q", line)
	}

	return Fix{
		Time:         float64(hh*3600 + mm*60 + ss),
		Location:     geo.Point{LatDeg: lat, LonDeg: lon},
		PressureAltM: float64(pAlt),
		GPSAltM:      float64(gAlt),
		Valid:        line[24] == 'A',
	}, nil
}

// parseCoord parses DDMMmmm / DDDMMmmm (minutes with three implied decimals).
func parseCoord(v string, hemi byte, degDigits int) (float64, error) {
	deg, err := strconv.Atoi(v[:degDigits])
	if err != nil {
		return 0, fmt.Errorf("bad coordinate %q", v)
	}
	milliMin, err := strconv.Atoi(v[degDigits:])
	if err != nil || milliMin >= 60000 {
		return 0, fmt.Errorf("bad coordinate %q", v)
	}
	out := float64(deg) + float64(milliMin)/60000.0
	switch hemi {
	case 'N', 'E':
	case 'S', 'W':
		out = -out
	default:
		return 0, fmt.Errorf("bad hemisphere %q", hemi)
	}
	return out, nil
}
