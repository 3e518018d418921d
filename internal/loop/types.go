package loop

import (
	"github.com/jrana/ibvs/internal/camera"
)

// Config holds the per-run iteration parameters.
type Config struct {
	// Dt is the integration timestep in seconds.
	Dt float64
	// MaxIters bounds the number of control iterations.
	MaxIters int
	// Tolerance stops the run once the feature error norm falls below it.
	// Zero disables early stopping.
	Tolerance float64
}

// DefaultConfig returns the iteration parameters used by the CLI defaults.
func DefaultConfig() Config {
	return Config{
		Dt:        0.05,
		MaxIters:  500,
		Tolerance: 0.01,
	}
}

// Metric accumulates a scalar over a run.
type Metric interface {
	Name() string
	Observe(vels []float64, errNorm float64, t float64)
	Value() float64
	Reset()
}

// Observer is notified after every control iteration.
type Observer interface {
	OnIteration(pose camera.Pose, vels []float64, errNorm float64, t float64)
}

// Result is the recorded trajectory of one servo run.
type Result struct {
	Poses      []camera.Pose
	Velocities [][]float64
	ErrorNorms []float64
	Times      []float64
	Metrics    map[string]float64
	Converged  bool
	Iterations int
}
