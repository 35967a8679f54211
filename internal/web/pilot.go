package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"glidelink/internal/geo"
)

const maxBodyBytes = 4 << 10

type qnhIn struct {
	QNH *float64 `json:"qnh"`
}

type macCreadyIn struct {
	MacCready *float64 `json:"maccready"`
}

type windIn struct {
	BearingDeg *float64 `json:"bearing_deg"`
	SpeedMS    *float64 `json:"speed_ms"`
}

func (d Deps) handleQNH(w http.ResponseWriter, r *http.Request) {
	var in qnhIn
	if !decodeBody(w, r, []string{"qnh"}, &in) {
		return
	}
	if err := checkRange("qnh", *in.QNH, 850, 1100); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	d.Board.SetQNH(*in.QNH)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "qnh": *in.QNH})
}

func (d Deps) handleMacCready(w http.ResponseWriter, r *http.Request) {
	var in macCreadyIn
	if !decodeBody(w, r, []string{"maccready"}, &in) {
		return
	}
	if err := checkRange("maccready", *in.MacCready, 0, 10); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	d.Board.SetMacCready(*in.MacCready)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "maccready": *in.MacCready})
}

func (d Deps) handleWind(w http.ResponseWriter, r *http.Request) {
	var in windIn
	if !decodeBody(w, r, []string{"bearing_deg", "speed_ms"}, &in) {
		return
	}
	if err := checkRange("bearing_deg", *in.BearingDeg, -360, 360); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := checkRange("speed_ms", *in.SpeedMS, 0, 60); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	wind := geo.SpeedVector{BearingDeg: geo.NormalizeBearing(*in.BearingDeg), NormMS: *in.SpeedMS}
	d.Board.SetManualWind(wind)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "wind": wind})
}

func checkRange(key string, v, lo, hi float64) error {
	if math.IsNaN(v) || v < lo || v > hi {
		return fmt.Errorf("%s must be in [%g,%g]", key, lo, hi)
	}
	return nil
}

// decodeBody reads a strict JSON object into out and writes a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, keys []string, out any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		http.Error(w, "read body failed", http.StatusBadRequest)
		return false
	}
	if len(body) > maxBodyBytes {
		http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
		return false
	}
	if err := decodeStrict(body, keys, out); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// decodeStrict requires a single JSON object carrying exactly keys, none of
// them null and none repeated.
func decodeStrict(body []byte, keys []string, out any) error {
	dec := json.NewDecoder(bytes.NewReader(body))

	allowed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		allowed[k] = struct{}{}
	}
	seen := make(map[string]struct{}, len(keys))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return errors.New("invalid json: expected object")
	}

	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return fmt.Errorf("invalid json: %w", err)
		}
		key, ok := kt.(string)
		if !ok {
			return errors.New("invalid json: expected string key")
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid json: unknown key %q", key)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("invalid json: duplicate key %q", key)
		}
		seen[key] = struct{}{}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("invalid json: %w", err)
		}
		if strings.TrimSpace(string(raw)) == "null" {
			return fmt.Errorf("invalid json: %q cannot be null", key)
		}
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("invalid json: trailing data")
	}
	for _, k := range keys {
		if _, ok := seen[k]; !ok {
			return fmt.Errorf("invalid json: missing required key %q", k)
		}
	}

	dec2 := json.NewDecoder(bytes.NewReader(body))
	dec2.DisallowUnknownFields()
	if err := dec2.Decode(out); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}
