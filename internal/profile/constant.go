package profile

import "math"

// Constant draws a fixed current regardless of terminal voltage.
type Constant struct {
	Amps float64
}

func NewConstant(amps float64) *Constant {
	return &Constant{Amps: amps}
}

func (c *Constant) Current(voltage, t float64) float64 {
	return c.Amps
}

// Pulse alternates between a discharge current and a rest (or trickle)
// current, exercising the recovery effect of the kinetic charge model.
type Pulse struct {
	High    float64
	Low     float64
	OnSec   float64
	RestSec float64
}

func NewPulse(high, low, onSec, restSec float64) *Pulse {
	return &Pulse{High: high, Low: low, OnSec: onSec, RestSec: restSec}
}

func (p *Pulse) Current(voltage, t float64) float64 {
	period := p.OnSec + p.RestSec
	if period <= 0 {
		return p.High
	}
	if math.Mod(t, period) < p.OnSec {
		return p.High
	}
	return p.Low
}
