package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/cellsim/internal/battery"
	"github.com/san-kum/cellsim/internal/dynamo"
	"github.com/san-kum/cellsim/internal/integrators"
)

// overdraw beyond this fraction of actual capacity is treated as a physical
// impossibility rather than integration noise.
const overdrawTol = 1e-6

// defaultSubsteps slices each Step into ten invariant-checked slices; at
// one-second sample rates that keeps the reservoir exchange stable through
// the stiff region near full discharge.
const defaultSubsteps = 10

// adaptiveTol is the per-slice error tolerance handed to embedded
// error-estimating integrators.
const adaptiveTol = 1e-6

// Engine advances one cell through time: it integrates the coupled charge,
// thermal and aging ODEs over a step and evaluates the terminal voltage for
// the resulting state. One Engine owns one cell and its parameters for the
// duration of a run.
type Engine struct {
	cell      *battery.Cell
	integ     dynamo.Integrator
	substeps  int
	metrics   []dynamo.Metric
	observers []dynamo.Observer
}

// New builds an engine around the given parameters. A nil integrator selects
// plain explicit Euler per substep slice.
func New(p *battery.Params, integ dynamo.Integrator) *Engine {
	if integ == nil {
		integ = integrators.NewEuler()
	}
	return &Engine{
		cell:     battery.New(p),
		integ:    integ,
		substeps: defaultSubsteps,
	}
}

func (e *Engine) Cell() *battery.Cell       { return e.cell }
func (e *Engine) Params() *battery.Params   { return e.cell.P }
func (e *Engine) AddMetric(m dynamo.Metric) { e.metrics = append(e.metrics, m) }
func (e *Engine) AddObserver(o dynamo.Observer) {
	e.observers = append(e.observers, o)
}

// SetSubsteps overrides how finely Step slices dt. More slices mean tighter
// invariant enforcement and a smaller effective integrator step.
func (e *Engine) SetSubsteps(n int) {
	if n < 1 {
		n = 1
	}
	e.substeps = n
}

// StepOutput carries the derived quantities of one integration step.
type StepOutput struct {
	Voltage float64
	OCV     float64
	SOC     float64
	RTotal  float64
}

// Step integrates the cell over dt under the given current and ambient
// temperature and computes the terminal voltage of the new state. The step
// is sliced into substeps and the state invariants are enforced per slice,
// before the next slice sees the state; a blown-up intermediate never feeds
// back into the diffusion and heating terms.
//
// Recoverable boundary crossings (slightly negative reservoirs, total charge
// marginally above capacity) are clamped. Unresolvable ones return errors:
// ErrNumericalInstability for non-finite states, ErrStateInvariant when the
// requested current exhausts more charge than the cell holds.
func (e *Engine) Step(s battery.CellState, current, ambientK, dt float64) (battery.CellState, StepOutput, error) {
	if dt <= 0 {
		return s, StepOutput{}, fmt.Errorf("dt must be positive, got %f", dt)
	}

	p := e.cell.P
	u := dynamo.Control{current, ambientK}
	adaptive, _ := e.integ.(dynamo.AdaptiveIntegrator)

	sub := dt / float64(e.substeps)
	ns := s
	for i := 0; i < e.substeps; i++ {
		// A draw the available reservoir cannot supply within the slice,
		// even with the full diffusion inflow, has no physical solution;
		// surface it before the integrator produces negative charge.
		if limit := e.cell.MaxDischargeCurrent(ns, sub) + e.cell.DiffusionCurrent(ns); current > 0 && current > limit {
			return s, StepOutput{}, fmt.Errorf("current %.3fA exhausts available charge (y1=%.3fC over %.3fs): %w",
				current, ns.Y1, sub, dynamo.ErrStateInvariant)
		}

		var x dynamo.State
		if adaptive != nil {
			stepped, _, err := adaptive.StepAdaptive(e.cell, ns.Vector(), u, 0, sub, adaptiveTol)
			if err != nil {
				return s, StepOutput{}, fmt.Errorf("adaptive step dt=%.3f at I=%.3fA: %w",
					sub, current, dynamo.ErrNumericalInstability)
			}
			x = stepped
		} else {
			x = e.integ.Step(e.cell, ns.Vector(), u, 0, sub)
		}
		if !x.IsValid() {
			return s, StepOutput{}, fmt.Errorf("integrating dt=%.3f at I=%.3fA: %w",
				sub, current, dynamo.ErrNumericalInstability)
		}

		c := battery.CellStateFromVector(x)
		cap := c.CapacityC(p)

		// Backstop for higher-order kernels whose internal stages the
		// pre-check cannot see.
		if c.Y1 < -overdrawTol*cap {
			return s, StepOutput{}, fmt.Errorf("current %.3fA exhausts available charge (y1=%.3fC): %w",
				current, c.Y1, dynamo.ErrStateInvariant)
		}

		c.Y1 = math.Max(c.Y1, 0)
		c.Y2 = math.Max(c.Y2, 0)

		// Cap the total but let the reservoir ratio drift freely.
		if total := c.Y1 + c.Y2; total > cap {
			factor := cap / total
			c.Y1 *= factor
			c.Y2 *= factor
		}

		// Aging is irreversible regardless of what the integrator did.
		c.QLoss = math.Max(c.QLoss, ns.QLoss)
		c.LSei = math.Max(c.LSei, ns.LSei)

		ns = c
	}

	out := StepOutput{
		Voltage: e.cell.Voltage(ns, current),
		OCV:     e.cell.OCV(ns),
		SOC:     ns.SOC(p),
		RTotal:  e.cell.TotalResistance(ns),
	}
	return ns, out, nil
}

// Run simulates a discharge from the initial state under the given load
// until the configured duration, the cutoff voltage/SOC, or reservoir
// exhaustion. The returned result holds one record per completed step.
func (e *Engine) Run(ctx context.Context, initial battery.CellState, load dynamo.Load, cfg dynamo.Config) (*dynamo.Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.Substeps > 0 {
		e.SetSubsteps(cfg.Substeps)
	}

	steps := int(cfg.Duration / cfg.Dt)
	result := &dynamo.Result{
		Records: make([]dynamo.Record, 0, steps),
		Metrics: make(map[string]float64),
	}

	for _, m := range e.metrics {
		m.Reset()
	}

	p := e.cell.P
	ambientK := cfg.AmbientC + 273.15
	s := initial
	t := 0.0
	voltage := e.cell.Voltage(s, 0)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		current := load.Current(voltage, t)
		u := dynamo.Control{current, ambientK}

		for _, m := range e.metrics {
			m.Observe(s.Vector(), u, t)
		}
		for _, obs := range e.observers {
			obs.OnStep(s.Vector(), u, t)
		}

		ns, out, err := e.Step(s, current, ambientK, cfg.Dt)
		if err != nil {
			stepErr := &dynamo.StepError{Step: i, Time: t, State: s.Vector(), Wrapped: err}
			result.Errors = append(result.Errors, stepErr)
			finishMetrics(e.metrics, result)
			return result, stepErr
		}

		s = ns
		t += cfg.Dt
		voltage = out.Voltage
		result.StepsTaken++

		result.Records = append(result.Records, dynamo.Record{
			Time:     t,
			Current:  current,
			Voltage:  out.Voltage,
			VMeas:    math.NaN(),
			Residual: math.NaN(),
			SOC:      out.SOC,
			RBase:    p.RBase,
			TempK:    s.TempK,
		})

		if out.Voltage <= cfg.CutoffVoltage || out.SOC <= cfg.CutoffSOC || s.Y1 <= 0 {
			break
		}
	}

	finishMetrics(e.metrics, result)
	return result, nil
}

func validateConfig(cfg dynamo.Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	return nil
}

func finishMetrics(metrics []dynamo.Metric, result *dynamo.Result) {
	for _, m := range metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}
