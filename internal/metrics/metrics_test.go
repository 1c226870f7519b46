package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/cellsim/internal/dynamo"
)

func TestPeakTemperature(t *testing.T) {
	m := NewPeakTemperature()

	states := []dynamo.State{
		{100, 50, 298.15, 0, 0},
		{99, 50, 305.0, 0, 0},
		{98, 50, 301.0, 0, 0},
	}
	for i, x := range states {
		m.Observe(x, dynamo.Control{1.0, 298.15}, float64(i))
	}

	if m.Value() != 305.0 {
		t.Errorf("peak = %f, want 305.0", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("reset should clear peak")
	}
}

func TestThroughput(t *testing.T) {
	m := NewThroughput()

	// 2A for 1800s = 1 Ah; charging interval must not count.
	m.Observe(nil, dynamo.Control{2.0}, 0)
	m.Observe(nil, dynamo.Control{2.0}, 900)
	m.Observe(nil, dynamo.Control{-1.0}, 1800)
	m.Observe(nil, dynamo.Control{2.0}, 2700)
	m.Observe(nil, dynamo.Control{0}, 3600)

	want := (2.0*1800 + 2.0*900) / 3600.0
	if math.Abs(m.Value()-want) > 1e-9 {
		t.Errorf("throughput = %f Ah, want %f", m.Value(), want)
	}
}

func TestVoltageRMSE(t *testing.T) {
	records := []dynamo.Record{
		{Residual: 0.1},
		{Residual: -0.1},
		{Residual: math.NaN()}, // skipped sample
	}

	if got := VoltageRMSE(records); math.Abs(got-0.1) > 1e-12 {
		t.Errorf("rmse = %f, want 0.1", got)
	}
}

func TestVoltageRMSEEmpty(t *testing.T) {
	if !math.IsNaN(VoltageRMSE(nil)) {
		t.Error("rmse of no records should be NaN")
	}
}

func TestVoltageMAE(t *testing.T) {
	records := []dynamo.Record{
		{Residual: 0.2},
		{Residual: -0.4},
	}
	if got := VoltageMAE(records); math.Abs(got-0.3) > 1e-12 {
		t.Errorf("mae = %f, want 0.3", got)
	}
}

func TestMovingRMSE(t *testing.T) {
	records := make([]dynamo.Record, 40)
	for i := range records {
		// residual shrinks over the run
		records[i].Residual = 0.2 / float64(i+1)
	}

	windows := MovingRMSE(records, 10)
	if len(windows) != 4 {
		t.Fatalf("expected 4 windows, got %d", len(windows))
	}
	for i := 1; i < len(windows); i++ {
		if windows[i] >= windows[i-1] {
			t.Errorf("window %d rmse %f should be below %f", i, windows[i], windows[i-1])
		}
	}
}

func TestMovingRMSETooShort(t *testing.T) {
	if got := MovingRMSE(make([]dynamo.Record, 5), 10); got != nil {
		t.Errorf("expected nil for short input, got %v", got)
	}
}

func TestSOCRMSE(t *testing.T) {
	records := []dynamo.Record{{SOC: 0.9}, {SOC: 0.8}}
	truth := []float64{1.0, 0.8}

	want := math.Sqrt((0.01 + 0) / 2)
	if got := SOCRMSE(records, truth); math.Abs(got-want) > 1e-12 {
		t.Errorf("soc rmse = %f, want %f", got, want)
	}
}
