package battery

import (
	"github.com/san-kum/cellsim/internal/dynamo"
)

// Cell couples the kinetic charge model, the SEI aging model and the thermal
// model into one ODE system over the five-element state vector. The terminal
// voltage is not part of the state; it is an output computed from state and
// current (see shepherd.go).
type Cell struct {
	P *Params
}

func New(p *Params) *Cell {
	return &Cell{P: p}
}

func (c *Cell) StateDim() int { return StateDim }

// ControlDim is 2: discharge current (A) and ambient temperature (K).
func (c *Cell) ControlDim() int { return 2 }

func (c *Cell) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	s := CellStateFromVector(x)
	current := 0.0
	ambientK := c.P.TRef
	if len(u) > 0 {
		current = u[0]
	}
	if len(u) > 1 {
		ambientK = u[1]
	}

	dy1, dy2 := c.chargeDerivatives(s, current)
	dL, dQLoss := c.agingDerivatives(s)
	dT := c.temperatureDerivative(s, current, ambientK)

	return dynamo.State{dy1, dy2, dT, dL, dQLoss}
}

func (c *Cell) GetParams() map[string]float64      { return c.P.GetParams() }
func (c *Cell) SetParam(name string, v float64) error { return c.P.SetParam(name, v) }

// Energy is the remaining electrochemical energy estimate in joules,
// approximated as remaining charge at the nominal plateau voltage.
func (c *Cell) Energy(x dynamo.State) float64 {
	s := CellStateFromVector(x)
	return (s.Y1 + s.Y2) * c.P.E0
}

// TotalResistance is the temperature-corrected ohmic resistance plus the SEI
// film contribution. The slow estimation loop adjusts P.RBase; the aging
// model grows the film term. The two are additive and never double-count.
func (c *Cell) TotalResistance(s CellState) float64 {
	return c.P.RBase*c.P.TempFactor(s.TempK) + c.RSei(s)
}

func (c *Cell) RSei(s CellState) float64 {
	return s.LSei / (c.P.KappaSei * c.P.ASurf)
}
