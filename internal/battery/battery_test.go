package battery

import (
	"math"
	"testing"
)

func TestDefaultParamsValid(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("default params invalid: %v", err)
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero capacity", func(p *Params) { p.CapacityAh = 0 }},
		{"split at 1", func(p *Params) { p.C = 1.0 }},
		{"negative resistance", func(p *Params) { p.RBase = -0.1 }},
		{"inverted bounds", func(p *Params) { p.RMin = 1.0; p.RMax = 0.5 }},
		{"resistance above max", func(p *Params) { p.RBase = 5.0 }},
		{"zero mass", func(p *Params) { p.Mass = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(p)
			if err := p.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestNewCellState(t *testing.T) {
	p := DefaultParams()
	s := NewCellState(p, 1.0, 25.0)

	if math.Abs(s.SOC(p)-1.0) > 1e-6 {
		t.Errorf("expected SOC 1.0, got %f", s.SOC(p))
	}
	if math.Abs(s.Y1/(s.Y1+s.Y2)-p.C) > 1e-9 {
		t.Errorf("reservoir split %f does not match c=%f", s.Y1/(s.Y1+s.Y2), p.C)
	}
	if math.Abs(s.TempK-298.15) > 1e-9 {
		t.Errorf("expected 298.15K, got %f", s.TempK)
	}
}

func TestDiffusionConservesCharge(t *testing.T) {
	p := DefaultParams()
	c := New(p)

	// Drained available reservoir: diffusion must flow bound -> available.
	s := NewCellState(p, 0.6, 25.0)
	s.Y1 *= 0.5

	dx := c.Derive(s.Vector(), dynControl(0, 298.15), 0)
	if dx[IdxY1] <= 0 {
		t.Errorf("available reservoir should recover at rest, dy1=%e", dx[IdxY1])
	}
	if math.Abs(dx[IdxY1]+dx[IdxY2]) > 1e-9 {
		t.Errorf("diffusion alone must conserve total charge, dy1+dy2=%e", dx[IdxY1]+dx[IdxY2])
	}
}

func TestDiffusionEquilibrium(t *testing.T) {
	p := DefaultParams()
	c := New(p)

	// At the nominal split the head heights are equal and diffusion stops.
	s := NewCellState(p, 0.7, 25.0)
	if got := c.DiffusionCurrent(s); math.Abs(got) > 1e-9 {
		t.Errorf("expected zero diffusion at equilibrium split, got %e", got)
	}
}

func TestOCVMonotoneInDischarge(t *testing.T) {
	p := DefaultParams()
	c := New(p)

	prev := math.Inf(1)
	for soc := 0.99; soc > 0.05; soc -= 0.01 {
		v := c.OCV(NewCellState(p, soc, 25.0))
		if v > prev+1e-9 {
			t.Fatalf("OCV rose from %.5f to %.5f at soc=%.2f", prev, v, soc)
		}
		prev = v
	}
}

func TestVoltageOhmicDrop(t *testing.T) {
	p := DefaultParams()
	c := New(p)
	s := NewCellState(p, 0.8, 25.0)

	vRest := c.Voltage(s, 0)
	vLoad := c.Voltage(s, 2.0)
	if vLoad >= vRest {
		t.Errorf("loaded voltage %.4f should be below rest voltage %.4f", vLoad, vRest)
	}

	drop := vRest - vLoad
	want := 2.0 * c.TotalResistance(s)
	if math.Abs(drop-want) > 1e-9 {
		t.Errorf("ohmic drop %.6f, want %.6f", drop, want)
	}
}

func TestVoltageFloor(t *testing.T) {
	p := DefaultParams()
	c := New(p)
	s := NewCellState(p, 0.001, 25.0)

	if v := c.Voltage(s, 50.0); v < voltageFloor {
		t.Errorf("voltage %.4f below floor", v)
	}
}

func TestSOCSensitivityPositive(t *testing.T) {
	p := DefaultParams()
	c := New(p)

	for _, soc := range []float64{0.05, 0.2, 0.5, 0.8, 0.95} {
		s := NewCellState(p, soc, 25.0)
		if sens := c.SOCSensitivity(s); sens <= 0 {
			t.Errorf("sensitivity at soc=%.2f should be positive, got %e", soc, sens)
		}
	}
}

func TestSOCSensitivityMatchesFiniteDifference(t *testing.T) {
	p := DefaultParams()
	c := New(p)

	for _, soc := range []float64{0.2, 0.5, 0.8} {
		s := NewCellState(p, soc, 25.0)
		const h = 1e-5
		numeric := (c.Voltage(s.WithSOC(p, soc+h), 0) - c.Voltage(s.WithSOC(p, soc-h), 0)) / (2 * h)
		analytic := c.SOCSensitivity(s)
		if math.Abs(numeric-analytic) > 1e-3*math.Abs(numeric) {
			t.Errorf("soc=%.1f: analytic %e vs numeric %e", soc, analytic, numeric)
		}
	}
}

func TestWithSOCPreservesSplit(t *testing.T) {
	p := DefaultParams()
	s := NewCellState(p, 0.9, 25.0)
	s.Y1 *= 0.8 // skewed split

	ratioBefore := s.Y1 / s.Y2
	s2 := s.WithSOC(p, 0.5)

	if math.Abs(s2.SOC(p)-0.5) > 1e-9 {
		t.Errorf("rescale missed target SOC: %f", s2.SOC(p))
	}
	if math.Abs(s2.Y1/s2.Y2-ratioBefore) > 1e-9 {
		t.Error("rescale should preserve the reservoir ratio")
	}
}

func TestWithSOCClamps(t *testing.T) {
	p := DefaultParams()
	s := NewCellState(p, 0.5, 25.0)

	if got := s.WithSOC(p, 1.7).SOC(p); got > 1.0+1e-9 {
		t.Errorf("SOC should clamp to 1, got %f", got)
	}
	if got := s.WithSOC(p, -0.3).SOC(p); got < 0 {
		t.Errorf("SOC should clamp to 0, got %f", got)
	}
}

func TestEntropicCoefficientClipped(t *testing.T) {
	for soc := 0.0; soc <= 1.0; soc += 0.05 {
		if v := EntropicCoefficient(soc); math.Abs(v) > 0.05 {
			t.Errorf("entropic coefficient %.4f exceeds clip at soc=%.2f", v, soc)
		}
	}
}

func TestHeatingRaisesTemperature(t *testing.T) {
	p := DefaultParams()
	c := New(p)
	s := NewCellState(p, 0.8, 25.0)

	dx := c.Derive(s.Vector(), dynControl(2.0, 298.15), 0)
	if dx[IdxTemp] <= 0 {
		t.Errorf("discharge at ambient temperature should heat the cell, dT=%e", dx[IdxTemp])
	}
}

func TestCoolingTowardAmbient(t *testing.T) {
	p := DefaultParams()
	c := New(p)
	s := NewCellState(p, 0.8, 45.0) // hot cell, no load

	dx := c.Derive(s.Vector(), dynControl(0, 298.15), 0)
	if dx[IdxTemp] >= 0 {
		t.Errorf("hot idle cell should cool, dT=%e", dx[IdxTemp])
	}
}

func TestAgingMonotone(t *testing.T) {
	p := DefaultParams()
	c := New(p)
	s := NewCellState(p, 0.8, 25.0)

	dL, dQ := c.agingDerivatives(s)
	if dL < 0 {
		t.Errorf("SEI growth rate must be non-negative, got %e", dL)
	}
	if dQ < 0 {
		t.Errorf("capacity loss rate must be non-negative, got %e", dQ)
	}
}

func TestCalibrateVoltageRoundtrip(t *testing.T) {
	p := DefaultParams()
	c := New(p)

	truth := NewCellState(p, 0.63, 25.0)
	vMeas := c.Voltage(truth, 1.0)

	start := NewCellState(p, 0.9, 25.0)
	cal, err := c.CalibrateVoltage(start, vMeas, 1.0)
	if err != nil {
		t.Fatalf("calibration failed: %v", err)
	}
	if math.Abs(cal.SOC(p)-0.63) > 1e-3 {
		t.Errorf("calibrated SOC %.4f, want 0.63", cal.SOC(p))
	}
}

func TestCalibrateVoltageUnreachable(t *testing.T) {
	p := DefaultParams()
	c := New(p)
	s := NewCellState(p, 0.5, 25.0)

	if _, err := c.CalibrateVoltage(s, 9.5, 0); err == nil {
		t.Error("expected error for unreachable voltage")
	}
}

func TestDisplayedSOC(t *testing.T) {
	tests := []struct {
		v    float64
		want float64
	}{
		{3.4, 0.0},
		{4.2, 1.0},
		{3.8, 0.5},
		{2.5, 0.0},
		{4.5, 1.0},
	}

	for _, tt := range tests {
		if got := DisplayedSOC(tt.v); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("DisplayedSOC(%.1f) = %f, want %f", tt.v, got, tt.want)
		}
	}
}

func TestVectorRoundtrip(t *testing.T) {
	s := CellState{Y1: 100, Y2: 50, TempK: 300, LSei: 1e-8, QLoss: 12}
	got := CellStateFromVector(s.Vector())
	if got != s {
		t.Errorf("roundtrip mismatch: %+v vs %+v", got, s)
	}
}

func dynControl(current, ambientK float64) []float64 {
	return []float64{current, ambientK}
}

func TestEnergyTracksRemainingCharge(t *testing.T) {
	p := DefaultParams()
	c := New(p)

	full := NewCellState(p, 1.0, 25.0)
	half := NewCellState(p, 0.5, 25.0)

	if c.Energy(full.Vector()) <= c.Energy(half.Vector()) {
		t.Error("fuller cell should hold more energy")
	}

	want := (half.Y1 + half.Y2) * p.E0
	if got := c.Energy(half.Vector()); math.Abs(got-want) > 1e-9 {
		t.Errorf("energy = %f J, want %f", got, want)
	}
}
