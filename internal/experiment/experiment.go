package experiment

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/cellsim/internal/battery"
	"github.com/san-kum/cellsim/internal/dynamo"
	"github.com/san-kum/cellsim/internal/engine"
	"github.com/san-kum/cellsim/internal/metrics"
	"github.com/san-kum/cellsim/internal/observer"
	"github.com/san-kum/cellsim/internal/profile"
)

// Config assembles one run from names and numbers, the way config files and
// flags describe it. Params overrides cell parameters by the names accepted
// by battery.Params.SetParam. Replay turns a measurement trace into a pure
// simulation: the recorded currents drive the model and the recorded
// voltages are ignored.
type Config struct {
	Integrator    string
	Profile       string
	ProfileParams map[string]float64
	InitialSOC    float64
	AmbientC      float64
	Dt            float64
	Duration      float64
	Replay        bool
	Gains         observer.Gains
	Params        map[string]float64
}

// Experiment is one assembled run: a cell, an engine and either a load
// profile (simulation) or a measurement trace (estimation).
type Experiment struct {
	cfg     Config
	params  *battery.Params
	eng     *engine.Engine
	load    dynamo.Load
	samples []dynamo.Measurement
	log     logrus.FieldLogger
}

// New resolves the config against the registry and builds the run.
// A non-empty samples slice selects estimation mode, unless Replay is set,
// in which case the samples' current trace is played back through the
// physics alone; otherwise the named profile drives a pure simulation.
func New(reg *Registry, cfg Config, samples []dynamo.Measurement) (*Experiment, error) {
	p := battery.DefaultParams()
	for name, v := range cfg.Params {
		if err := p.SetParam(name, v); err != nil {
			return nil, err
		}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	integ, err := reg.Integrator(cfg.Integrator)
	if err != nil {
		return nil, err
	}

	e := &Experiment{
		cfg:     cfg,
		params:  p,
		eng:     engine.New(p, integ),
		samples: samples,
	}
	for _, m := range DefaultMetrics() {
		e.eng.AddMetric(m)
	}

	switch {
	case cfg.Replay && len(samples) > 0:
		e.load = profile.NewReplay(samples)
	case len(samples) == 0:
		load, err := reg.Profile(cfg.Profile, cfg.ProfileParams)
		if err != nil {
			return nil, err
		}
		e.load = load
	}
	return e, nil
}

func (e *Experiment) SetLogger(l logrus.FieldLogger) { e.log = l }
func (e *Experiment) Params() *battery.Params        { return e.params }
func (e *Experiment) Engine() *engine.Engine         { return e.eng }

func (e *Experiment) simConfig() dynamo.Config {
	cfg := dynamo.DefaultConfig()
	if e.cfg.Dt > 0 {
		cfg.Dt = e.cfg.Dt
	}
	if e.cfg.Duration > 0 {
		cfg.Duration = e.cfg.Duration
	}
	cfg.AmbientC = e.cfg.AmbientC
	return cfg
}

// Run executes the experiment. Estimation runs attach the residual metrics
// the streaming set cannot provide.
func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	soc := e.cfg.InitialSOC
	if soc <= 0 {
		soc = 1.0
	}
	initial := battery.NewCellState(e.params, soc, e.cfg.AmbientC)
	cfg := e.simConfig()

	if e.load != nil {
		// Replayed traces default to the span of the recording.
		if e.cfg.Replay && e.cfg.Duration <= 0 && len(e.samples) > 0 {
			cfg.Duration = e.samples[len(e.samples)-1].Time
		}
		return e.eng.Run(ctx, initial, e.load, cfg)
	}
	if len(e.samples) == 0 {
		return nil, fmt.Errorf("experiment has neither profile nor samples")
	}

	obs, err := observer.New(e.eng, initial, e.cfg.Gains)
	if err != nil {
		return nil, err
	}
	if e.log != nil {
		obs.SetLogger(e.log)
	}

	result, err := obs.Run(ctx, e.samples, cfg)
	if result != nil && len(result.Records) > 0 {
		result.Metrics["voltage_rmse"] = metrics.VoltageRMSE(result.Records)
		result.Metrics["voltage_mae"] = metrics.VoltageMAE(result.Records)
		result.Metrics["r_base_final"] = e.params.RBase
	}
	return result, err
}
