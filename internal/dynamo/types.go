package dynamo

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Control carries the exogenous inputs of a step. For cell models the
// convention is u[0] = current in amperes (discharge positive) and
// u[1] = ambient temperature in kelvin.
type Control []float64

type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(dyn System, x State, u Control, t, dt, tol float64) (State, float64, error)
}

type Metric interface {
	Name() string
	Observe(x State, u Control, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, u Control, t float64)
}

// Load supplies the demanded discharge current (amperes, discharge positive)
// given the present terminal voltage and elapsed time. Voltage feedback
// matters for constant-power loads, where demand rises as voltage sags.
type Load interface {
	Current(voltage, t float64) float64
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Measurement is one sample of a logged or synthetic discharge cycle.
// Current is signed with discharge positive; TempC may be NaN when the
// logger did not record temperature.
type Measurement struct {
	Time    float64
	Current float64
	Voltage float64
	TempC   float64
}

// Valid reports whether current and voltage are finite and inside a loose
// physical envelope. Temperature is optional and not checked here.
func (m Measurement) Valid() bool {
	if math.IsNaN(m.Current) || math.IsInf(m.Current, 0) {
		return false
	}
	if math.IsNaN(m.Voltage) || math.IsInf(m.Voltage, 0) {
		return false
	}
	return m.Voltage >= 0 && m.Voltage < 10 && math.Abs(m.Current) < 1000
}

// Record is the per-sample output contract: everything a reporting
// collaborator needs to compute error metrics and plot trajectories.
// VMeas and Residual are NaN in pure simulation runs.
type Record struct {
	Time     float64
	Current  float64
	Voltage  float64
	VMeas    float64
	Residual float64
	SOC      float64
	RBase    float64
	TempK    float64
}

// Config drives a run. Substeps controls how finely the engine slices each
// dt for invariant enforcement; zero keeps the engine's default.
type Config struct {
	Dt            float64
	Duration      float64
	Substeps      int
	AmbientC      float64
	CutoffVoltage float64
	CutoffSOC     float64
}

func DefaultConfig() Config {
	return Config{
		Dt:            1.0,
		Duration:      3600.0,
		Substeps:      10,
		AmbientC:      25.0,
		CutoffVoltage: 2.0,
		CutoffSOC:     0.0,
	}
}

type Result struct {
	Records    []Record
	Metrics    map[string]float64
	StepsTaken int
	Skipped    int
	Warnings   []error
	Errors     []error
}
