package loop

import "math"

// ControlEffort tracks the mean absolute commanded velocity over a run.
type ControlEffort struct {
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{}
}

func (c *ControlEffort) Name() string { return "control_effort" }

func (c *ControlEffort) Observe(vels []float64, errNorm float64, t float64) {
	for _, v := range vels {
		c.sum += math.Abs(v)
	}
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// SettlingIterations reports the first iteration at which the feature error
// norm dropped below the threshold, or -1 if it never did.
type SettlingIterations struct {
	threshold float64
	settled   int
	samples   int
}

func NewSettlingIterations(threshold float64) *SettlingIterations {
	return &SettlingIterations{threshold: threshold, settled: -1}
}

func (s *SettlingIterations) Name() string { return "settling_iterations" }

func (s *SettlingIterations) Observe(vels []float64, errNorm float64, t float64) {
	if s.settled < 0 && errNorm < s.threshold {
		s.settled = s.samples
	}
	s.samples++
}

func (s *SettlingIterations) Value() float64 {
	return float64(s.settled)
}

func (s *SettlingIterations) Reset() {
	s.settled = -1
	s.samples = 0
}
