package battery

import (
	"fmt"
	"math"
)

// voltageFloor keeps the Shepherd curve from going non-physical below full
// discharge; the curve is allowed to collapse toward it so that calibration
// fits retain a usable gradient.
const voltageFloor = 0.1

// OCV evaluates the Shepherd open-circuit curve at the state's discharged
// capacity: a polarization term that blows up near full discharge plus an
// exponential term dominant near full charge.
func (c *Cell) OCV(s CellState) float64 {
	p := c.P
	qd := s.DischargedAh(p)
	remaining := math.Max(1e-4, p.CapacityAh-qd)

	return p.E0 - p.K*(p.CapacityAh/remaining) + p.A*math.Exp(-p.B*qd)
}

// Voltage is the instantaneous terminal voltage under the given current:
// OCV minus the ohmic drop through the temperature- and aging-corrected
// resistance.
func (c *Cell) Voltage(s CellState, current float64) float64 {
	v := c.OCV(s) - current*c.TotalResistance(s)
	if v < voltageFloor {
		v = voltageFloor
	}
	return v
}

// SOCSensitivity is the analytic dV/dSOC at fixed current and resistance,
// used by the fast correction loop to convert a voltage residual into an SOC
// nudge. It is strictly positive but becomes small on the mid-SOC plateau
// (the polarization and exponential terms both flatten there), where
// residual-driven correction is ill-conditioned; callers must guard against
// near-zero values.
func (c *Cell) SOCSensitivity(s CellState) float64 {
	p := c.P
	qd := s.DischargedAh(p)
	remaining := math.Max(1e-4, p.CapacityAh-qd)
	capAh := s.CapacityC(p) / 3600.0

	dOCVdQd := -p.K*p.CapacityAh/(remaining*remaining) - p.A*p.B*math.Exp(-p.B*qd)
	return -capAh * dOCVdQd
}

// CalibrateVoltage inverts the terminal-voltage curve for a measured voltage
// by bisection over SOC in [0.01, 0.99] and returns the state rescaled to
// the recovered SOC. Errors when the observed voltage is outside the curve's
// reachable range at this temperature and current.
func (c *Cell) CalibrateVoltage(s CellState, vMeas, current float64) (CellState, error) {
	residual := func(soc float64) float64 {
		return c.Voltage(s.WithSOC(c.P, soc), current) - vMeas
	}

	lo, hi := 0.01, 0.99
	fLo := residual(lo)
	if fLo*residual(hi) > 0 {
		return s, fmt.Errorf("voltage %.3fV outside reachable range [%.3f, %.3f]",
			vMeas, c.Voltage(s.WithSOC(c.P, lo), current), c.Voltage(s.WithSOC(c.P, hi), current))
	}

	for i := 0; i < 60; i++ {
		mid := 0.5 * (lo + hi)
		fMid := residual(mid)
		if math.Abs(fMid) < 1e-9 {
			return s.WithSOC(c.P, mid), nil
		}
		if fLo*fMid < 0 {
			hi = mid
		} else {
			lo, fLo = mid, fMid
		}
	}

	return s.WithSOC(c.P, 0.5*(lo+hi)), nil
}

// DisplayedSOC mimics a consumer BMS gauge: a linear map of terminal voltage
// onto [0,1] between an empty and a full reference voltage.
func DisplayedSOC(v float64) float64 {
	const vMin, vMax = 3.4, 4.2
	return clamp((v-vMin)/(vMax-vMin), 0, 1)
}
