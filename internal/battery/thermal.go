package battery

import "math"

// agingDerivatives gives the SEI film growth rate and the associated
// capacity-loss current. The side-reaction flux is limited by solvent
// diffusion through the existing film, so growth slows as the film thickens;
// the growth rate is clipped to keep the stiff early transient bounded.
func (c *Cell) agingDerivatives(s CellState) (dL, dQLoss float64) {
	p := c.P

	dSol := p.DSolRef * p.ArrheniusFactor(p.EaSol, s.TempK)
	jSide := (FaradayConst * dSol * p.CSolBulk) / math.Max(s.LSei, 1e-12)

	dL = clamp((jSide*p.MSei)/(p.RhoSei*FaradayConst), 0, 1e-10)
	dQLoss = jSide * p.ASurf
	return dL, dQLoss
}

// temperatureDerivative balances irreversible I^2R heating, reversible
// entropic heat and Newton cooling against ambient.
func (c *Cell) temperatureDerivative(s CellState, current, ambientK float64) float64 {
	p := c.P

	rTotal := c.TotalResistance(s)
	qIrr := current * current * rTotal
	qRev := current * s.TempK * EntropicCoefficient(s.SOC(p))
	qDiss := p.HConv * p.ACool * (s.TempK - ambientK)

	return (qIrr + qRev - qDiss) / (p.Mass * p.Cp)
}

// EntropicCoefficient is the empirical dU/dT polynomial in SOC, clipped to
// +-50 mV/K to keep outliers from the fit out of the heat balance.
func EntropicCoefficient(soc float64) float64 {
	duDt := -0.0004 + 0.0040*soc - 0.0150*soc*soc +
		0.0250*math.Pow(soc, 3) - 0.0180*math.Pow(soc, 4) + 0.0044*math.Pow(soc, 5)
	return clamp(duDt, -0.05, 0.05)
}
