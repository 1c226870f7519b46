package profile

import "github.com/san-kum/cellsim/internal/dynamo"

// Replay feeds the current trace of a recorded cycle back into a simulation.
// Lookup is a forward-moving cursor, so repeated queries with increasing t
// are O(1); seeking backwards rewinds linearly.
type Replay struct {
	samples []dynamo.Measurement
	cursor  int
}

func NewReplay(samples []dynamo.Measurement) *Replay {
	return &Replay{samples: samples}
}

func (r *Replay) Current(voltage, t float64) float64 {
	if len(r.samples) == 0 {
		return 0
	}
	if r.cursor > 0 && r.samples[r.cursor].Time > t {
		r.cursor = 0
	}
	for r.cursor+1 < len(r.samples) && r.samples[r.cursor+1].Time <= t {
		r.cursor++
	}
	return r.samples[r.cursor].Current
}
