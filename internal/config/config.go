package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/cellsim/internal/experiment"
	"github.com/san-kum/cellsim/internal/observer"
)

const (
	DefaultDt       = 1.0
	DefaultDuration = 3600.0
	DefaultAmbientC = 25.0
)

// Config is the file-level description of a run. Zero values fall back to
// the defaults, so partial files work.
type Config struct {
	Integrator string        `yaml:"integrator"`
	Dt         float64       `yaml:"dt"`
	Duration   float64       `yaml:"duration"`
	AmbientC   float64       `yaml:"ambient_c"`
	InitialSOC float64       `yaml:"initial_soc"`
	Profile    ProfileConfig `yaml:"profile"`
	Cell       CellConfig    `yaml:"cell"`
	Gains      GainsConfig   `yaml:"gains"`
	Dataset    DatasetConfig `yaml:"dataset"`
}

type ProfileConfig struct {
	Name    string  `yaml:"name"`
	Amps    float64 `yaml:"amps"`
	High    float64 `yaml:"high"`
	Low     float64 `yaml:"low"`
	OnSec   float64 `yaml:"on_sec"`
	RestSec float64 `yaml:"rest_sec"`
}

// CellConfig overrides individual cell parameters; zero means "keep the
// nominal value".
type CellConfig struct {
	CapacityAh float64 `yaml:"capacity_ah"`
	RBase      float64 `yaml:"r_base"`
	SplitC     float64 `yaml:"split_c"`
	KDiff      float64 `yaml:"k_diff"`
}

type GainsConfig struct {
	FastGain         float64 `yaml:"fast_gain"`
	LearnRate        float64 `yaml:"learn_rate"`
	ClipR            float64 `yaml:"clip_r"`
	UpdateEvery      int     `yaml:"update_every"`
	DivergenceWindow int     `yaml:"divergence_window"`
}

type DatasetConfig struct {
	Dir     string `yaml:"dir"`
	Battery string `yaml:"battery"`
	Cycle   int    `yaml:"cycle"`
}

func DefaultConfig() *Config {
	return &Config{
		Integrator: "euler",
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		AmbientC:   DefaultAmbientC,
		InitialSOC: 1.0,
		Profile:    ProfileConfig{Name: "constant", Amps: 1.0},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Experiment translates the file representation into an experiment config.
func (c *Config) Experiment() experiment.Config {
	return experiment.Config{
		Integrator:    c.Integrator,
		Profile:       c.Profile.Name,
		ProfileParams: c.profileParams(),
		InitialSOC:    c.InitialSOC,
		AmbientC:      c.AmbientC,
		Dt:            c.Dt,
		Duration:      c.Duration,
		Gains:         c.ObserverGains(),
		Params:        c.cellParams(),
	}
}

func (c *Config) profileParams() map[string]float64 {
	return map[string]float64{
		"amps":     c.Profile.Amps,
		"high":     c.Profile.High,
		"low":      c.Profile.Low,
		"on_sec":   c.Profile.OnSec,
		"rest_sec": c.Profile.RestSec,
	}
}

func (c *Config) cellParams() map[string]float64 {
	params := make(map[string]float64)
	if c.Cell.CapacityAh > 0 {
		params["capacity_ah"] = c.Cell.CapacityAh
	}
	if c.Cell.RBase > 0 {
		params["r_base"] = c.Cell.RBase
	}
	if c.Cell.SplitC > 0 {
		params["split_c"] = c.Cell.SplitC
	}
	if c.Cell.KDiff > 0 {
		params["k_diff"] = c.Cell.KDiff
	}
	return params
}

// ObserverGains merges the file overrides onto the defaults.
func (c *Config) ObserverGains() observer.Gains {
	g := observer.DefaultGains()
	if c.Gains.FastGain > 0 {
		g.FastGain = c.Gains.FastGain
	}
	if c.Gains.LearnRate > 0 {
		g.LearnRate = c.Gains.LearnRate
	}
	if c.Gains.ClipR > 0 {
		g.ClipR = c.Gains.ClipR
	}
	if c.Gains.UpdateEvery > 0 {
		g.UpdateEvery = c.Gains.UpdateEvery
	}
	if c.Gains.DivergenceWindow > 0 {
		g.DivergenceWindow = c.Gains.DivergenceWindow
	}
	return g
}
