package battery

import (
	"fmt"
	"math"
)

const (
	FaradayConst = 96485.3329 // s A / mol
	GasConst     = 8.31446    // J / (mol K)
)

// Params holds the calibration constants of a cell. RBase is the only field
// mutated at runtime (by the slow estimation loop); everything else is fixed
// at construction. Each run owns its own instance.
type Params struct {
	CapacityAh float64 // design capacity

	// Shepherd curve coefficients
	E0 float64 // open-circuit base voltage
	K  float64 // polarization constant
	A  float64 // exponential amplitude
	B  float64 // exponential decay per Ah discharged

	RBase float64 // base internal resistance, ohm
	RMin  float64 // slow-loop lower bound on RBase
	RMax  float64 // slow-loop upper bound on RBase

	// Kinetic (two-reservoir) parameters
	C        float64 // available-charge split fraction
	KDiffRef float64 // diffusion rate constant at TRef
	EaDiff   float64 // diffusion activation energy, J/mol

	// SEI growth and aging
	MSei     float64 // molar mass of SEI product, kg/mol
	RhoSei   float64 // SEI density, kg/m^3
	KappaSei float64 // SEI ionic conductivity, S/m
	DSolRef  float64 // solvent diffusivity at TRef, m^2/s
	EaSol    float64 // solvent diffusion activation energy, J/mol
	CSolBulk float64 // bulk solvent concentration, mol/m^3
	ASurf    float64 // active surface area, m^2

	// Thermal parameters
	Mass  float64 // cell mass, kg
	Cp    float64 // specific heat, J/(kg K)
	HConv float64 // convective coefficient, W/(m^2 K)
	ACool float64 // cooling surface, m^2
	TRef  float64 // reference temperature, K

	VCutoff float64 // discharge cutoff voltage
}

// DefaultParams returns the 18650-class calibration fitted against the NASA
// aging archive.
func DefaultParams() *Params {
	return &Params{
		CapacityAh: 2.02706564,

		E0: 3.95445374,
		K:  0.11498637,
		A:  0.60987048,
		B:  3.18761375,

		RBase: 0.20222941,
		RMin:  0.01,
		RMax:  2.0,

		C:        0.65,
		KDiffRef: 0.05,
		EaDiff:   20000.0,

		MSei:     0.162,
		RhoSei:   1690.0,
		KappaSei: 5e-6,
		DSolRef:  2.5e-22,
		EaSol:    50000.0,
		CSolBulk: 4500.0,
		ASurf:    0.15,

		Mass:  0.045,
		Cp:    1100.0,
		HConv: 5.0,
		ACool: 0.008,
		TRef:  298.15,

		VCutoff: 2.0,
	}
}

func (p *Params) Validate() error {
	if p.CapacityAh <= 0 {
		return fmt.Errorf("capacity must be positive, got %f", p.CapacityAh)
	}
	if p.C <= 0 || p.C >= 1 {
		return fmt.Errorf("split fraction must be in (0,1), got %f", p.C)
	}
	if p.RBase <= 0 {
		return fmt.Errorf("base resistance must be positive, got %f", p.RBase)
	}
	if p.RMin <= 0 || p.RMax <= p.RMin {
		return fmt.Errorf("resistance bounds invalid: [%f, %f]", p.RMin, p.RMax)
	}
	if p.RBase < p.RMin || p.RBase > p.RMax {
		return fmt.Errorf("base resistance %f outside bounds [%f, %f]", p.RBase, p.RMin, p.RMax)
	}
	if p.Mass <= 0 || p.Cp <= 0 {
		return fmt.Errorf("thermal mass parameters must be positive")
	}
	return nil
}

// CapacityC is the design capacity in coulombs.
func (p *Params) CapacityC() float64 {
	return p.CapacityAh * 3600.0
}

// ArrheniusFactor scales a rate constant from TRef to tempK for the given
// activation energy.
func (p *Params) ArrheniusFactor(ea, tempK float64) float64 {
	return math.Exp((ea / GasConst) * (1.0/p.TRef - 1.0/tempK))
}

// TempFactor is the empirical resistance multiplier: resistance rises as the
// cell cools below TRef.
func (p *Params) TempFactor(tempK float64) float64 {
	return math.Exp(1000.0 * (1.0/tempK - 1.0/p.TRef))
}

func (p *Params) GetParams() map[string]float64 {
	return map[string]float64{
		"capacity_ah": p.CapacityAh,
		"e0":          p.E0,
		"k_pol":       p.K,
		"a_exp":       p.A,
		"b_exp":       p.B,
		"r_base":      p.RBase,
		"split_c":     p.C,
		"k_diff":      p.KDiffRef,
	}
}

func (p *Params) SetParam(name string, value float64) error {
	switch name {
	case "capacity_ah":
		p.CapacityAh = value
	case "e0":
		p.E0 = value
	case "k_pol":
		p.K = value
	case "a_exp":
		p.A = value
	case "b_exp":
		p.B = value
	case "r_base":
		p.RBase = value
	case "split_c":
		p.C = value
	case "k_diff":
		p.KDiffRef = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
