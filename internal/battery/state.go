package battery

import (
	"math"

	"github.com/san-kum/cellsim/internal/dynamo"
)

// State vector layout used by the integrators.
const (
	IdxY1    = 0 // available charge, coulombs
	IdxY2    = 1 // bound charge, coulombs
	IdxTemp  = 2 // cell temperature, kelvin
	IdxSEI   = 3 // SEI film thickness, meters
	IdxQLoss = 4 // accumulated capacity loss, coulombs

	StateDim = 5
)

// CellState is the typed view over the integration vector. Y1+Y2 is the
// remaining charge; QLoss only ever grows.
type CellState struct {
	Y1    float64
	Y2    float64
	TempK float64
	LSei  float64
	QLoss float64
}

const initialSEIThickness = 5e-9

// NewCellState seeds a state at the given SOC with reservoirs split per the
// capacity fraction c, at the given ambient temperature.
func NewCellState(p *Params, soc, tempC float64) CellState {
	q := p.CapacityC() * soc
	return CellState{
		Y1:    q * p.C,
		Y2:    q * (1 - p.C),
		TempK: tempC + 273.15,
		LSei:  initialSEIThickness,
	}
}

// CapacityC is the actual (aged) capacity in coulombs, floored to avoid a
// collapsing denominator as the loss term grows.
func (s CellState) CapacityC(p *Params) float64 {
	return math.Max(p.CapacityC()-s.QLoss, 1.0)
}

func (s CellState) SOC(p *Params) float64 {
	return (s.Y1 + s.Y2) / (s.CapacityC(p) + 1e-9)
}

// SOH is the remaining fraction of design capacity.
func (s CellState) SOH(p *Params) float64 {
	return s.CapacityC(p) / p.CapacityC()
}

// DischargedAh is the charge drawn from the design capacity, in amp-hours.
func (s CellState) DischargedAh(p *Params) float64 {
	return p.CapacityAh - (s.Y1+s.Y2)/3600.0
}

// WithSOC returns a copy rescaled to the target SOC. Both reservoirs scale
// by the same ratio so their split survives the correction; this is how the
// fast loop and voltage calibration write SOC back into the kinetic state.
func (s CellState) WithSOC(p *Params, soc float64) CellState {
	soc = clamp(soc, 0, 1)
	total := s.Y1 + s.Y2
	target := s.CapacityC(p) * soc
	out := s
	if total <= 0 {
		out.Y1 = target * p.C
		out.Y2 = target * (1 - p.C)
		return out
	}
	ratio := target / total
	out.Y1 *= ratio
	out.Y2 *= ratio
	return out
}

func (s CellState) Vector() dynamo.State {
	return dynamo.State{s.Y1, s.Y2, s.TempK, s.LSei, s.QLoss}
}

func CellStateFromVector(x dynamo.State) CellState {
	return CellState{
		Y1:    x[IdxY1],
		Y2:    x[IdxY2],
		TempK: x[IdxTemp],
		LSei:  x[IdxSEI],
		QLoss: x[IdxQLoss],
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
