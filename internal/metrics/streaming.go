package metrics

import (
	"math"

	"github.com/san-kum/cellsim/internal/battery"
	"github.com/san-kum/cellsim/internal/dynamo"
)

// PeakTemperature tracks the hottest cell temperature seen during a run.
type PeakTemperature struct {
	name string
	peak float64
}

func NewPeakTemperature() *PeakTemperature {
	return &PeakTemperature{name: "peak_temp_k"}
}

func (p *PeakTemperature) Name() string { return p.name }

func (p *PeakTemperature) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(x) <= battery.IdxTemp {
		return
	}
	p.peak = math.Max(p.peak, x[battery.IdxTemp])
}

func (p *PeakTemperature) Value() float64 { return p.peak }
func (p *PeakTemperature) Reset()         { p.peak = 0 }

// Throughput accumulates the charge drawn from the cell in amp-hours,
// counting discharge only. Each observed current applies forward, over the
// interval until the next observation, matching how the engine holds a
// sample's current across its step.
type Throughput struct {
	name     string
	ampSec   float64
	lastTime float64
	lastAmps float64
	started  bool
}

func NewThroughput() *Throughput {
	return &Throughput{name: "throughput_ah"}
}

func (c *Throughput) Name() string { return c.name }

func (c *Throughput) Observe(x dynamo.State, u dynamo.Control, t float64) {
	amps := 0.0
	if len(u) > 0 {
		amps = u[0]
	}
	if !c.started {
		c.started = true
		c.lastTime = t
		c.lastAmps = amps
		return
	}
	if dt := t - c.lastTime; dt > 0 && c.lastAmps > 0 {
		c.ampSec += c.lastAmps * dt
	}
	c.lastTime = t
	c.lastAmps = amps
}

func (c *Throughput) Value() float64 { return c.ampSec / 3600.0 }

func (c *Throughput) Reset() {
	c.ampSec = 0
	c.lastTime = 0
	c.lastAmps = 0
	c.started = false
}
