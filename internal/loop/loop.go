// Package loop closes the visual servoing loop in simulation: each iteration
// it projects the scene through the camera, feeds the observations to the
// controller, and integrates the camera pose under the commanded velocities.
package loop

import (
	"context"
	"fmt"

	"github.com/jrana/ibvs/internal/camera"
	"github.com/jrana/ibvs/internal/servo"
)

// Loop drives one servo.Controller against a synthetic scene.
type Loop struct {
	ctrl      *servo.Controller
	cam       *camera.Camera
	scene     []camera.Vec3
	desired   []servo.Point
	metrics   []Metric
	observers []Observer
}

// New builds a loop for a controller, a camera at its start pose, a world
// scene, and the target camera pose. The desired features are projected once
// from the target pose; they stay fixed for the whole run.
func New(ctrl *servo.Controller, cam *camera.Camera, scene []camera.Vec3, target camera.Pose) (*Loop, error) {
	if len(scene) != ctrl.NumPoints() {
		return nil, fmt.Errorf("loop: scene has %d points, controller expects %d", len(scene), ctrl.NumPoints())
	}

	desired, err := camera.New(target).Project(scene)
	if err != nil {
		return nil, fmt.Errorf("loop: projecting desired features: %w", err)
	}

	return &Loop{
		ctrl:    ctrl,
		cam:     cam,
		scene:   scene,
		desired: desired,
	}, nil
}

func (l *Loop) AddMetric(m Metric)     { l.metrics = append(l.metrics, m) }
func (l *Loop) AddObserver(o Observer) { l.observers = append(l.observers, o) }

// Run iterates the servo loop until the feature error norm drops below
// cfg.Tolerance or cfg.MaxIters is reached. The returned Result always holds
// the trajectory recorded so far, including on context cancellation.
func (l *Loop) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	result := &Result{
		Poses:      make([]camera.Pose, 0, cfg.MaxIters),
		Velocities: make([][]float64, 0, cfg.MaxIters),
		ErrorNorms: make([]float64, 0, cfg.MaxIters),
		Times:      make([]float64, 0, cfg.MaxIters),
		Metrics:    make(map[string]float64),
	}

	for _, m := range l.metrics {
		m.Reset()
	}

	if err := l.ctrl.SetDesiredPoints(l.desired); err != nil {
		return nil, fmt.Errorf("loop: %w", err)
	}

	t := 0.0
	for i := 0; i < cfg.MaxIters; i++ {
		select {
		case <-ctx.Done():
			l.finish(result)
			return result, ctx.Err()
		default:
		}

		vels, errNorm, err := l.step(t)
		if err != nil {
			l.finish(result)
			return result, err
		}

		result.Poses = append(result.Poses, l.cam.Pose)
		result.Velocities = append(result.Velocities, vels)
		result.ErrorNorms = append(result.ErrorNorms, errNorm)
		result.Times = append(result.Times, t)
		result.Iterations++

		if cfg.Tolerance > 0 && errNorm < cfg.Tolerance {
			result.Converged = true
			break
		}

		l.cam.Apply(vels, l.ctrl.Mode(), cfg.Dt)
		t += cfg.Dt
	}

	l.finish(result)
	return result, nil
}

// RunWithCallback iterates like Run but hands each iteration to fn instead of
// recording a Result. Returning false from fn stops the run.
func (l *Loop) RunWithCallback(ctx context.Context, cfg Config, fn func(pose camera.Pose, vels []float64, errNorm float64, t float64) bool) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}
	if err := l.ctrl.SetDesiredPoints(l.desired); err != nil {
		return fmt.Errorf("loop: %w", err)
	}

	t := 0.0
	for i := 0; i < cfg.MaxIters; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		vels, errNorm, err := l.step(t)
		if err != nil {
			return err
		}
		if !fn(l.cam.Pose, vels, errNorm, t) {
			return nil
		}
		if cfg.Tolerance > 0 && errNorm < cfg.Tolerance {
			return nil
		}

		l.cam.Apply(vels, l.ctrl.Mode(), cfg.Dt)
		t += cfg.Dt
	}
	return nil
}

// step runs one control iteration without moving the camera.
func (l *Loop) step(t float64) (vels []float64, errNorm float64, err error) {
	current, err := l.cam.Project(l.scene)
	if err != nil {
		return nil, 0, err
	}
	if err := l.ctrl.SetCurrentPoints(current); err != nil {
		return nil, 0, fmt.Errorf("loop: %w", err)
	}
	if err := l.ctrl.UpdateInteractionMatrix(); err != nil {
		return nil, 0, fmt.Errorf("loop: %w", err)
	}
	vels, err = l.ctrl.Velocities()
	if err != nil {
		return nil, 0, fmt.Errorf("loop: %w", err)
	}
	errNorm, err = l.ctrl.ErrorNorm()
	if err != nil {
		return nil, 0, fmt.Errorf("loop: %w", err)
	}

	for _, m := range l.metrics {
		m.Observe(vels, errNorm, t)
	}
	for _, o := range l.observers {
		o.OnIteration(l.cam.Pose, vels, errNorm, t)
	}
	return vels, errNorm, nil
}

func (l *Loop) finish(result *Result) {
	for _, m := range l.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

func validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("loop: dt must be positive, got %f", cfg.Dt)
	}
	if cfg.MaxIters <= 0 {
		return fmt.Errorf("loop: max iterations must be positive, got %d", cfg.MaxIters)
	}
	return nil
}
