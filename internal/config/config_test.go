package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Duration <= 0 {
		t.Error("duration should be positive")
	}
	if cfg.Profile.Name != "constant" {
		t.Errorf("expected constant profile, got %s", cfg.Profile.Name)
	}
	if cfg.InitialSOC != 1.0 {
		t.Errorf("expected full initial SOC, got %f", cfg.InitialSOC)
	}
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	body := `
duration: 1200
profile:
  name: pulse
  high: 3.0
  on_sec: 90
cell:
  r_base: 0.25
gains:
  fast_gain: 0.01
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Duration != 1200 {
		t.Errorf("duration = %f, want 1200", cfg.Duration)
	}
	// unspecified fields keep their defaults
	if cfg.Dt != DefaultDt {
		t.Errorf("dt = %f, want default %f", cfg.Dt, DefaultDt)
	}
	if cfg.Profile.Name != "pulse" || cfg.Profile.High != 3.0 {
		t.Errorf("profile not applied: %+v", cfg.Profile)
	}

	ec := cfg.Experiment()
	if ec.Params["r_base"] != 0.25 {
		t.Errorf("cell override missing: %v", ec.Params)
	}
	if _, ok := ec.Params["capacity_ah"]; ok {
		t.Error("unset cell fields must not override")
	}

	g := cfg.ObserverGains()
	if g.FastGain != 0.01 {
		t.Errorf("fast gain = %f, want 0.01", g.FastGain)
	}
	if g.LearnRate <= 0 {
		t.Error("unset gains should keep defaults")
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("dt: [not a number"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := DefaultConfig()
	cfg.Profile.Amps = 1.5

	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if back.Profile.Amps != 1.5 {
		t.Errorf("amps = %f, want 1.5", back.Profile.Amps)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("pulse")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Profile.Name != "pulse" {
		t.Errorf("expected pulse profile, got %s", cfg.Profile.Name)
	}

	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for unknown preset")
	}
}

func TestListPresets(t *testing.T) {
	names := ListPresets()
	if len(names) == 0 {
		t.Fatal("expected presets")
	}
	for i := 1; i < len(names); i++ {
		if names[i] < names[i-1] {
			t.Error("presets should be sorted")
		}
	}
}
