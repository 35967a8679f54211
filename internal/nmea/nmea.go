// Package nmea frames outbound sentences and decodes the inbound sentences the
// flight core understands.
package nmea

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrFraming  = errors.New("nmea: bad framing")
	ErrChecksum = errors.New("nmea: checksum mismatch")
)

// Checksum returns the XOR of every byte of payload (the text between '$'
// and '*').
func Checksum(payload string) byte {
	var ck byte
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return ck
}

// Frame wraps payload as "$payload*HH\r\n" with an upper-case hex checksum.
func Frame(payload string) string {
	return fmt.Sprintf("$%s*%02X\r\n", payload, Checksum(payload))
}

// Sentence is a verified, comma-split sentence.
type Sentence struct {
	// Type is the sentence type with standard talker IDs stripped ("RMC"),
	// or the full tag for proprietary sentences ("PGRMZ", "LXWP0").
	Type string
	// Fields holds the comma-split payload; Fields[0] is the raw tag.
	Fields []string
}

// Field returns field i trimmed, or "" if absent.
func (s Sentence) Field(i int) string {
	if i < 0 || i >= len(s.Fields) {
		return ""
	}
	return strings.TrimSpace(s.Fields[i])
}

var talkers = map[string]bool{
	"GP": true, "GN": true, "GL": true, "GA": true, "GB": true, "BD": true, "GQ": true,
}

// Parse verifies the checksum of one line and splits it. A trailing CR/LF is
// ignored.
func Parse(line string) (Sentence, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return Sentence{}, fmt.Errorf("%w: missing '$'", ErrFraming)
	}
	star := strings.LastIndexByte(line, '*')
	if star == -1 {
		return Sentence{}, fmt.Errorf("%w: missing checksum", ErrFraming)
	}
	payload := line[1:star]
	ck := strings.TrimSpace(line[star+1:])
	if len(ck) < 2 {
		return Sentence{}, fmt.Errorf("%w: short checksum", ErrFraming)
	}
	want, err := hex.DecodeString(ck[:2])
	if err != nil || len(want) != 1 {
		return Sentence{}, fmt.Errorf("%w: bad checksum digits %q", ErrFraming, ck[:2])
	}
	if got := Checksum(payload); got != want[0] {
		return Sentence{}, fmt.Errorf("%w: got %02X want %02X", ErrChecksum, got, want[0])
	}

	parts := strings.Split(payload, ",")
	tag := strings.ToUpper(parts[0])
	if len(tag) < 3 {
		return Sentence{}, fmt.Errorf("%w: short type %q", ErrFraming, tag)
	}
	typ := tag
	if len(tag) == 5 && talkers[tag[:2]] {
		typ = tag[2:]
	}
	return Sentence{Type: typ, Fields: parts}, nil
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseInt(s string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseLatLon parses ddmm.mmmm / dddmm.mmmm plus hemisphere.
func parseLatLon(v, hemi string) (float64, bool) {
	v = strings.TrimSpace(v)
	hemi = strings.ToUpper(strings.TrimSpace(hemi))
	if v == "" || (hemi != "N" && hemi != "S" && hemi != "E" && hemi != "W") {
		return 0, false
	}

	dot := strings.IndexByte(v, '.')
	intPart := v
	if dot != -1 {
		intPart = v[:dot]
	}
	if len(intPart) < 3 {
		return 0, false
	}

	deg, err := strconv.Atoi(intPart[:len(intPart)-2])
	if err != nil {
		return 0, false
	}
	mins, err := strconv.ParseFloat(v[len(intPart)-2:], 64)
	if err != nil || mins >= 60 {
		return 0, false
	}

	dec := float64(deg) + mins/60.0
	if hemi == "S" || hemi == "W" {
		dec = -dec
	}
	return dec, true
}

// parseTimeOfDay parses hhmmss[.sss] into seconds since midnight.
func parseTimeOfDay(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 6 {
		return 0, false
	}
	hh, err1 := strconv.Atoi(s[0:2])
	mm, err2 := strconv.Atoi(s[2:4])
	ss, err3 := strconv.ParseFloat(s[4:], 64)
	if err1 != nil || err2 != nil || err3 != nil || hh > 23 || mm > 59 || ss >= 61 {
		return 0, false
	}
	return float64(hh*3600+mm*60) + ss, true
}
