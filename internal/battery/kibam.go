package battery

import "math"

// chargeDerivatives implements the two-reservoir kinetic law. Charge leaves
// the available reservoir at the external current; charge flows from the
// bound to the available reservoir at a rate proportional to the difference
// of their head heights h2-h1. At zero current the equations reduce to pure
// diffusion: total charge is conserved and the available reservoir recovers
// toward equilibrium.
func (c *Cell) chargeDerivatives(s CellState, current float64) (dy1, dy2 float64) {
	iDiff := c.DiffusionCurrent(s)
	dy1 = -(current - iDiff)
	dy2 = -iDiff
	return dy1, dy2
}

// DiffusionCurrent is the internal flow from the bound reservoir into the
// available one, positive when the bound head is higher. The rate constant
// follows an Arrhenius law in cell temperature.
func (c *Cell) DiffusionCurrent(s CellState) float64 {
	p := c.P
	cap := s.CapacityC(p)
	kDiff := p.KDiffRef * p.ArrheniusFactor(p.EaDiff, s.TempK)

	h1 := s.Y1 / (p.C*cap + 1e-9)
	h2 := s.Y2 / ((1-p.C)*cap + 1e-9)

	return kDiff * (h2 - h1) * cap
}

// MaxDischargeCurrent is the sustained draw that would empty the available
// reservoir within dt, ignoring diffusion replenishment. Used to detect
// over-draw before it produces negative charge.
func (c *Cell) MaxDischargeCurrent(s CellState, dt float64) float64 {
	if dt <= 0 {
		return math.Inf(1)
	}
	return s.Y1 / dt
}
