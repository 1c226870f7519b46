package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/cellsim/internal/dynamo"
	"github.com/san-kum/cellsim/internal/integrators"
	"github.com/san-kum/cellsim/internal/metrics"
	"github.com/san-kum/cellsim/internal/profile"
)

// Registry maps the names used in config files and on the command line to
// integrator and load-profile constructors. Profile constructors take the
// free parameters of the profile (current levels, duty cycle timing).
type Registry struct {
	integrators map[string]func() dynamo.Integrator
	profiles    map[string]func(map[string]float64) dynamo.Load
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() dynamo.Integrator),
		profiles:    make(map[string]func(map[string]float64) dynamo.Load),
	}

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["substep-euler"] = func() dynamo.Integrator { return integrators.NewSubstepEuler(10) }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }
	r.integrators["rk45"] = func() dynamo.Integrator { return integrators.NewRK45() }

	r.profiles["constant"] = func(p map[string]float64) dynamo.Load {
		amps := p["amps"]
		if amps == 0 {
			amps = 1.0
		}
		return profile.NewConstant(amps)
	}
	r.profiles["pulse"] = func(p map[string]float64) dynamo.Load {
		high, low, onSec, restSec := p["high"], p["low"], p["on_sec"], p["rest_sec"]
		if high == 0 {
			high = 2.0
		}
		if onSec == 0 {
			onSec = 60
		}
		if restSec == 0 {
			restSec = 30
		}
		return profile.NewPulse(high, low, onSec, restSec)
	}
	r.profiles["smartphone"] = func(p map[string]float64) dynamo.Load {
		return profile.NewSmartphone(profile.MixedUseSchedule)
	}

	return r
}

func (r *Registry) Integrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) Profile(name string, params map[string]float64) (dynamo.Load, error) {
	fn, ok := r.profiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown profile: %s", name)
	}
	return fn(params), nil
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListProfiles() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics is the streaming metric set attached to every simulation.
func DefaultMetrics() []dynamo.Metric {
	return []dynamo.Metric{
		metrics.NewPeakTemperature(),
		metrics.NewThroughput(),
	}
}
