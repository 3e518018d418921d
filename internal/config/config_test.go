package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jrana/ibvs/internal/servo"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ControlMode != "2xz" {
		t.Errorf("expected control mode 2xz, got %s", cfg.ControlMode)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.MaxIters <= 0 {
		t.Error("max_iters should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
	if len(cfg.Gains) != 2 {
		t.Errorf("expected 2 gains for 2xz, got %d", len(cfg.Gains))
	}
}

func TestModes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ControlMode = "4xyzy"
	cfg.InteractionMode = "mean"

	cm, im, err := cfg.Modes()
	if err != nil {
		t.Fatal(err)
	}
	if cm != servo.ModeXYZY {
		t.Errorf("expected ModeXYZY, got %v", cm)
	}
	if im != servo.InteractionMean {
		t.Errorf("expected InteractionMean, got %v", im)
	}

	cfg.ControlMode = "bogus"
	if _, _, err := cfg.Modes(); err == nil {
		t.Error("expected error for unknown control mode")
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scene = nil
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty scene")
	}

	cfg = DefaultConfig()
	cfg.Dt = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero dt")
	}

	cfg = DefaultConfig()
	cfg.MaxIters = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative max_iters")
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")

	cfg := DefaultConfig()
	cfg.ControlMode = "2zy"
	cfg.InteractionMode = "desired"
	cfg.Gains = []float64{0.5, 0.7}
	cfg.Camera = PoseConfig{Yaw: 0.2}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.ControlMode != "2zy" {
		t.Errorf("expected control mode 2zy, got %s", loaded.ControlMode)
	}
	if loaded.InteractionMode != "desired" {
		t.Errorf("expected interaction mode desired, got %s", loaded.InteractionMode)
	}
	if len(loaded.Gains) != 2 || loaded.Gains[1] != 0.7 {
		t.Errorf("gains did not round-trip: %v", loaded.Gains)
	}
	if loaded.Camera.Yaw != 0.2 {
		t.Errorf("camera yaw did not round-trip: %f", loaded.Camera.Yaw)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("2xz", "approach")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Camera.X != 0.3 {
		t.Errorf("expected camera x 0.3, got %f", cfg.Camera.X)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("preset should validate: %v", err)
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("2xz", "nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if cfg := GetPreset("nonexistent", "approach"); cfg != nil {
		t.Error("expected nil for nonexistent mode")
	}
}

func TestListPresets(t *testing.T) {
	if presets := ListPresets("2xz"); len(presets) == 0 {
		t.Error("expected presets for 2xz")
	}
	if presets := ListPresets("nonexistent"); presets != nil {
		t.Error("expected nil for nonexistent mode")
	}
}

func TestAllPresetsValidate(t *testing.T) {
	for mode, presets := range Presets {
		for name, cfg := range presets {
			if err := cfg.Validate(); err != nil {
				t.Errorf("%s/%s: %v", mode, name, err)
			}
			cm, _, err := cfg.Modes()
			if err != nil {
				t.Fatalf("%s/%s: %v", mode, name, err)
			}
			if len(cfg.Gains) != cm.DOF() {
				t.Errorf("%s/%s: %d gains for %d dof", mode, name, len(cfg.Gains), cm.DOF())
			}
		}
	}
}
