// Package config loads and saves YAML run configurations for the servo CLI.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jrana/ibvs/internal/camera"
	"github.com/jrana/ibvs/internal/servo"
)

const (
	DefaultDt        = 0.05
	DefaultMaxIters  = 500
	DefaultTolerance = 0.01
)

// Config describes one simulated servo run.
type Config struct {
	ControlMode     string       `yaml:"control_mode"`
	InteractionMode string       `yaml:"interaction_mode"`
	Gains           []float64    `yaml:"gains"`
	Dt              float64      `yaml:"dt"`
	MaxIters        int          `yaml:"max_iters"`
	Tolerance       float64      `yaml:"tolerance"`
	Scene           []ScenePoint `yaml:"scene"`
	Camera          PoseConfig   `yaml:"camera"`
	Target          PoseConfig   `yaml:"target"`
}

// ScenePoint is a world-frame feature point.
type ScenePoint struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// PoseConfig is a camera pose in the world frame.
type PoseConfig struct {
	X   float64 `yaml:"x"`
	Y   float64 `yaml:"y"`
	Z   float64 `yaml:"z"`
	Yaw float64 `yaml:"yaw"`
}

// DefaultConfig is a 2xz approach toward a four-point square.
func DefaultConfig() *Config {
	return &Config{
		ControlMode:     "2xz",
		InteractionMode: "curr",
		Gains:           []float64{1.0, 1.0},
		Dt:              DefaultDt,
		MaxIters:        DefaultMaxIters,
		Tolerance:       DefaultTolerance,
		Scene: []ScenePoint{
			{X: -0.5, Y: -0.5, Z: 3},
			{X: 0.5, Y: -0.5, Z: 3},
			{X: 0.5, Y: 0.5, Z: 3},
			{X: -0.5, Y: 0.5, Z: 3},
		},
		Camera: PoseConfig{X: 0.3},
		Target: PoseConfig{Z: 1},
	}
}

// Load reads a YAML config, layered over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Modes parses the configured control and interaction mode names.
func (c *Config) Modes() (servo.ControlMode, servo.InteractionMode, error) {
	cm, err := servo.ParseControlMode(c.ControlMode)
	if err != nil {
		return 0, 0, err
	}
	im, err := servo.ParseInteractionMode(c.InteractionMode)
	if err != nil {
		return 0, 0, err
	}
	return cm, im, nil
}

// ScenePoints converts the scene to camera world points.
func (c *Config) ScenePoints() []camera.Vec3 {
	pts := make([]camera.Vec3, len(c.Scene))
	for i, p := range c.Scene {
		pts[i] = camera.Vec3{X: p.X, Y: p.Y, Z: p.Z}
	}
	return pts
}

// CameraPose returns the start pose.
func (c *Config) CameraPose() camera.Pose {
	return camera.Pose{X: c.Camera.X, Y: c.Camera.Y, Z: c.Camera.Z, Yaw: c.Camera.Yaw}
}

// TargetPose returns the pose whose projected features are the goal.
func (c *Config) TargetPose() camera.Pose {
	return camera.Pose{X: c.Target.X, Y: c.Target.Y, Z: c.Target.Z, Yaw: c.Target.Yaw}
}

// Validate checks the run parameters that the loop and controller would
// reject later, so the CLI can fail before building anything.
func (c *Config) Validate() error {
	if _, _, err := c.Modes(); err != nil {
		return err
	}
	if len(c.Scene) == 0 {
		return fmt.Errorf("config: scene must contain at least one point")
	}
	if c.Dt <= 0 {
		return fmt.Errorf("config: dt must be positive, got %f", c.Dt)
	}
	if c.MaxIters <= 0 {
		return fmt.Errorf("config: max_iters must be positive, got %d", c.MaxIters)
	}
	return nil
}
