// Package polar models a glider's still-air sink rate as a quadratic in
// airspeed.
package polar

import (
	"fmt"
	"math"
)

// Polar is sink(v) = A*v² + B*v + C with v in m/s and sink positive down.
type Polar struct {
	A float64 `yaml:"a" json:"a"`
	B float64 `yaml:"b" json:"b"`
	C float64 `yaml:"c" json:"c"`
}

// Point is one measured (airspeed, sink) pair in m/s.
type Point struct {
	SpeedMS float64
	SinkMS  float64
}

// Default is a 15 m standard-class polar (best L/D ≈ 41 at 28 m/s).
var Default = mustFromPoints(Point{25.0, 0.62}, Point{33.3, 0.85}, Point{44.4, 1.55})

func mustFromPoints(p1, p2, p3 Point) Polar {
	p, err := FromPoints(p1, p2, p3)
	if err != nil {
		panic(err)
	}
	return p
}

// FromPoints fits the quadratic through three measured points.
func FromPoints(p1, p2, p3 Point) (Polar, error) {
	if p1.SpeedMS == p2.SpeedMS || p1.SpeedMS == p3.SpeedMS || p2.SpeedMS == p3.SpeedMS {
		return Polar{}, fmt.Errorf("polar: speeds must be distinct")
	}
	d1 := (p2.SinkMS - p1.SinkMS) / (p2.SpeedMS - p1.SpeedMS)
	d2 := (p3.SinkMS - p1.SinkMS) / (p3.SpeedMS - p1.SpeedMS)
	a := (d1 - d2) / (p2.SpeedMS - p3.SpeedMS)
	b := d1 - a*(p1.SpeedMS+p2.SpeedMS)
	c := p1.SinkMS - a*p1.SpeedMS*p1.SpeedMS - b*p1.SpeedMS

	p := Polar{A: a, B: b, C: c}
	if err := p.Validate(); err != nil {
		return Polar{}, err
	}
	return p, nil
}

// Validate rejects polars without a best-glide speed.
func (p Polar) Validate() error {
	if p.A <= 0 || p.C <= 0 {
		return fmt.Errorf("polar: coefficients a=%g c=%g must be positive", p.A, p.C)
	}
	return nil
}

// Sink returns the 1 g still-air sink rate at airspeed v.
func (p Polar) Sink(v float64) float64 {
	return p.A*v*v + p.B*v + p.C
}

// BestLDSpeed returns the airspeed of best glide ratio.
func (p Polar) BestLDSpeed() float64 {
	return math.Sqrt(p.C / p.A)
}

// BestLD returns the best glide ratio.
func (p Polar) BestLD() float64 {
	v := p.BestLDSpeed()
	return v / p.Sink(v)
}

// SpeedToFly returns the MacCready cruise speed for an expected climb of mc.
func (p Polar) SpeedToFly(mc float64) float64 {
	if mc < 0 {
		mc = 0
	}
	return math.Sqrt((p.C + mc) / p.A)
}

// SinkRate returns the sink rate at airspeed v under load factor gload.
// Induced drag grows with the square of the load factor and dominates at low
// speed, so the correction is scaled by (v_bestLD/v)².
func (p Polar) SinkRate(v, gload float64) float64 {
	w0 := p.Sink(v)
	if v <= 0 {
		return w0
	}
	n := math.Abs(gload)
	r := p.BestLDSpeed() / v
	return w0 + v/(2*p.BestLD())*(n*n-1)*r*r
}
