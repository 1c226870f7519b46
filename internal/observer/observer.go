package observer

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/cellsim/internal/battery"
	"github.com/san-kum/cellsim/internal/dynamo"
	"github.com/san-kum/cellsim/internal/engine"
)

// Observer corrects a simulated cell against measured terminal voltage with
// two loops on separate timescales. The fast loop nudges estimated SOC each
// sample using the innovation scaled by the voltage-SOC sensitivity; the
// slow loop learns the base internal resistance by gradient descent on the
// squared innovation, using the closed-form gradient available because the
// terminal voltage is affine in RBase.
//
// The observer owns its engine, cell state and parameters for the duration
// of a run; nothing here is safe for concurrent use.
type Observer struct {
	eng   *engine.Engine
	gains Gains
	state battery.CellState
	log   logrus.FieldLogger

	step     int
	gradSum  float64
	gradN    int
	socClamp int
	rClamp   int
	warnings []error
}

func New(eng *engine.Engine, initial battery.CellState, gains Gains) (*Observer, error) {
	if err := gains.Validate(); err != nil {
		return nil, err
	}
	return &Observer{
		eng:   eng,
		gains: gains,
		state: initial,
	}, nil
}

// SetLogger enables warning output for divergence conditions.
func (o *Observer) SetLogger(l logrus.FieldLogger) { o.log = l }

func (o *Observer) State() battery.CellState { return o.state }
func (o *Observer) Engine() *engine.Engine   { return o.eng }
func (o *Observer) Warnings() []error        { return o.warnings }

// Update advances the model one sample and applies both correction loops.
//
// An invalid measurement returns a record built from the physics-only
// prediction together with ErrInvalidMeasurement; the caller decides whether
// to count or surface it. Integration failures propagate unchanged.
func (o *Observer) Update(m dynamo.Measurement, ambientK, dt float64) (dynamo.Record, error) {
	valid := m.Valid()
	current := m.Current
	if math.IsNaN(current) || math.IsInf(current, 0) {
		current = 0
	}

	ns, out, err := o.eng.Step(o.state, current, ambientK, dt)
	if err != nil {
		return dynamo.Record{}, err
	}

	p := o.eng.Params()
	rec := dynamo.Record{
		Time:     m.Time,
		Current:  current,
		Voltage:  out.Voltage,
		VMeas:    m.Voltage,
		Residual: math.NaN(),
		SOC:      out.SOC,
		RBase:    p.RBase,
		TempK:    ns.TempK,
	}

	if !valid {
		o.state = ns
		o.step++
		return rec, fmt.Errorf("sample at t=%.1f: %w", m.Time, dynamo.ErrInvalidMeasurement)
	}

	innovation := m.Voltage - out.Voltage
	rec.Residual = innovation

	ns = o.correctSOC(ns, out, innovation, current)
	o.learnResistance(ns, innovation, current)

	o.state = ns
	o.step++

	rec.SOC = ns.SOC(p)
	rec.RBase = p.RBase
	return rec, nil
}

// correctSOC is the fast loop: invert the innovation through dV/dSOC and
// rescale the reservoirs to the corrected SOC. Skipped at rest (voltage
// carries no SOC information) and on sensitivity plateaus (ill-conditioned
// inversion).
func (o *Observer) correctSOC(ns battery.CellState, out engine.StepOutput, innovation, current float64) battery.CellState {
	if math.Abs(current) < o.gains.MinCurrentFast {
		return ns
	}

	sens := o.eng.Cell().SOCSensitivity(ns)
	if sens < o.gains.MinSensitivity {
		return ns
	}

	target := out.SOC + o.gains.FastGain*innovation/sens
	clamped := target < 0 || target > 1
	o.trackClamp(&o.socClamp, clamped, "soc")

	return ns.WithSOC(o.eng.Params(), target)
}

// learnResistance is the slow loop. The cost is the squared innovation and
// d(e^2)/dR = 2 e dE/dR = 2 e I f(T) since V = OCV - I (RBase f(T) + Rsei).
// Gradients are averaged over the update window, the step is clipped, and
// RBase stays inside its physical band.
func (o *Observer) learnResistance(ns battery.CellState, innovation, current float64) {
	p := o.eng.Params()

	if current > o.gains.MinCurrentSlow {
		o.gradSum += 2 * innovation * current * p.TempFactor(ns.TempK)
		o.gradN++
	}

	if o.step%o.gains.UpdateEvery != 0 || o.gradN == 0 {
		return
	}

	dR := -o.gains.LearnRate * o.gradSum / float64(o.gradN)
	o.gradSum = 0
	o.gradN = 0

	if dR > o.gains.ClipR {
		dR = o.gains.ClipR
	} else if dR < -o.gains.ClipR {
		dR = -o.gains.ClipR
	}

	target := p.RBase + dR
	clamped := target < p.RMin || target > p.RMax
	o.trackClamp(&o.rClamp, clamped, "r_base")

	p.RBase = math.Min(math.Max(target, p.RMin), p.RMax)
}

// trackClamp counts consecutive clamped corrections and flags divergence
// exactly once per streak. The run keeps going: bounded corrections cannot
// damage the state, and later portions of the sequence may still be usable.
func (o *Observer) trackClamp(streak *int, clamped bool, which string) {
	if !clamped {
		*streak = 0
		return
	}
	*streak++
	if *streak == o.gains.DivergenceWindow {
		warn := fmt.Errorf("%s clamped for %d consecutive samples (step %d): %w",
			which, *streak, o.step, dynamo.ErrEstimatorDivergence)
		o.warnings = append(o.warnings, warn)
		if o.log != nil {
			o.log.WithFields(logrus.Fields{
				"quantity": which,
				"step":     o.step,
				"window":   o.gains.DivergenceWindow,
			}).Warn("estimator divergence: check gain tuning or model mismatch")
		}
	}
}

// Run replays an ordered measurement sequence through the observer. Per-
// sample dt is derived from consecutive timestamps (cfg.Dt seeds the first
// sample); non-increasing timestamps and invalid samples are skipped with
// physics carried forward. Ends at the sequence end or at the configured
// cutoff.
func (o *Observer) Run(ctx context.Context, samples []dynamo.Measurement, cfg dynamo.Config) (*dynamo.Result, error) {
	if cfg.Dt <= 0 {
		return nil, fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Substeps > 0 {
		o.eng.SetSubsteps(cfg.Substeps)
	}

	result := &dynamo.Result{
		Records: make([]dynamo.Record, 0, len(samples)),
		Metrics: make(map[string]float64),
	}
	ambientK := cfg.AmbientC + 273.15

	prevTime := math.NaN()
	for i, m := range samples {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		dt := cfg.Dt
		if !math.IsNaN(prevTime) {
			dt = m.Time - prevTime
		}
		if dt <= 0 {
			result.Skipped++
			continue
		}

		rec, err := o.Update(m, ambientK, dt)
		prevTime = m.Time

		switch {
		case err == nil:
		case isInvalidMeasurement(err):
			result.Skipped++
		default:
			stepErr := &dynamo.StepError{Step: i, Time: m.Time, State: o.state.Vector(), Wrapped: err}
			result.Errors = append(result.Errors, stepErr)
			result.Warnings = append(result.Warnings, o.warnings...)
			return result, stepErr
		}

		result.Records = append(result.Records, rec)
		result.StepsTaken++

		if rec.SOC <= cfg.CutoffSOC || rec.Voltage <= cfg.CutoffVoltage {
			break
		}
	}

	result.Warnings = append(result.Warnings, o.warnings...)
	return result, nil
}

func isInvalidMeasurement(err error) bool {
	return errors.Is(err, dynamo.ErrInvalidMeasurement)
}
