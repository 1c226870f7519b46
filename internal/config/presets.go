package config

import "sort"

// Presets are ready-made run configurations for the common scenarios.
var Presets = map[string]*Config{
	"1c-discharge": {
		Integrator: "euler", Dt: 1.0, Duration: 4000, AmbientC: 25.0, InitialSOC: 1.0,
		Profile: ProfileConfig{Name: "constant", Amps: 2.0},
	},
	"gentle": {
		Integrator: "euler", Dt: 1.0, Duration: 8 * 3600, AmbientC: 25.0, InitialSOC: 1.0,
		Profile: ProfileConfig{Name: "constant", Amps: 0.4},
	},
	"pulse": {
		Integrator: "euler", Dt: 1.0, Duration: 2 * 3600, AmbientC: 25.0, InitialSOC: 1.0,
		Profile: ProfileConfig{Name: "pulse", High: 2.5, Low: 0.1, OnSec: 120, RestSec: 60},
	},
	"smartphone-day": {
		Integrator: "euler", Dt: 1.0, Duration: 16 * 3600, AmbientC: 22.0, InitialSOC: 1.0,
		Profile: ProfileConfig{Name: "smartphone"},
	},
	"hot-discharge": {
		Integrator: "euler", Dt: 1.0, Duration: 4000, AmbientC: 45.0, InitialSOC: 1.0,
		Profile: ProfileConfig{Name: "constant", Amps: 2.0},
	},
	"nasa-estimate": {
		Integrator: "euler", Dt: 1.0, Duration: 4 * 3600, AmbientC: 24.0, InitialSOC: 1.0,
		Dataset: DatasetConfig{Battery: "B0005", Cycle: 1},
		Gains:   GainsConfig{FastGain: 0.02, LearnRate: 5e-5},
	},
}

func GetPreset(name string) *Config {
	return Presets[name]
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
