package servo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// float64 machine epsilon, for the singular-value cutoff.
const eps = 2.220446049250313e-16

// Controller is an image-based visual servoing control-law evaluator. It is
// configured once with a control mode, an interaction-matrix mode, and a
// fixed number of tracked points. Each iteration the caller pushes current
// and desired point observations, refreshes the interaction matrix estimate,
// and reads back a velocity command in camera-frame axes.
//
// A Controller is not safe for concurrent use; run one per control loop.
type Controller struct {
	mode        ControlMode
	interaction InteractionMode
	numPts      int
	dof         int

	gain    *mat.DiagDense
	pinv    *mat.Dense
	errVec  *mat.VecDense
	current []Point
	desired []Point
}

// New builds a Controller for numPts tracked points. It returns
// ErrInvalidConfig if either mode is unknown or numPts is not positive.
func New(mode ControlMode, interaction InteractionMode, numPts int) (*Controller, error) {
	if !mode.valid() {
		return nil, fmt.Errorf("%w: unknown control mode %d", ErrInvalidConfig, int(mode))
	}
	if !interaction.valid() {
		return nil, fmt.Errorf("%w: unknown interaction mode %d", ErrInvalidConfig, int(interaction))
	}
	if numPts <= 0 {
		return nil, fmt.Errorf("%w: need at least one tracked point, got %d", ErrInvalidConfig, numPts)
	}
	return &Controller{
		mode:        mode,
		interaction: interaction,
		numPts:      numPts,
		dof:         mode.DOF(),
	}, nil
}

// Mode returns the control mode fixed at construction.
func (c *Controller) Mode() ControlMode { return c.mode }

// Interaction returns the interaction-matrix mode fixed at construction.
func (c *Controller) Interaction() InteractionMode { return c.interaction }

// DOF returns the number of velocity components the controller outputs.
func (c *Controller) DOF() int { return c.dof }

// NumPoints returns the number of tracked points fixed at construction.
func (c *Controller) NumPoints() int { return c.numPts }

// SetGains stores one scalar per degree of freedom as a diagonal gain matrix,
// in control-mode axis order. It returns ErrInvalidArgument if the slice
// length differs from DOF(). Gain signs and magnitudes are not checked;
// non-positive gains are atypical but permitted.
func (c *Controller) SetGains(gains []float64) error {
	if len(gains) != c.dof {
		return fmt.Errorf("%w: need %d gains, got %d", ErrInvalidArgument, c.dof, len(gains))
	}
	d := make([]float64, c.dof)
	copy(d, gains)
	c.gain = mat.NewDiagDense(c.dof, d)
	return nil
}

// SetCurrentPoints stores the current image positions of the tracked points.
// Depths are validated only when the interaction mode reads them from this
// set. Once both sets are present the feature error vector is recomputed, and
// again on every later update of either set. On failure the previously stored
// set is left untouched.
func (c *Controller) SetCurrentPoints(pts []Point) error {
	if err := c.validatePoints(pts, c.interaction.needsCurrentDepth(), "current"); err != nil {
		return err
	}
	c.current = clonePoints(pts)
	if c.desired != nil {
		c.computeErrorVector()
	}
	return nil
}

// SetDesiredPoints stores the desired image positions of the tracked points.
// Validation and error-vector recomputation mirror SetCurrentPoints.
func (c *Controller) SetDesiredPoints(pts []Point) error {
	if err := c.validatePoints(pts, c.interaction.needsDesiredDepth(), "desired"); err != nil {
		return err
	}
	c.desired = clonePoints(pts)
	if c.current != nil {
		c.computeErrorVector()
	}
	return nil
}

func (c *Controller) validatePoints(pts []Point, needDepth bool, which string) error {
	if len(pts) != c.numPts {
		return fmt.Errorf("%w: need %d %s points, got %d", ErrInvalidArgument, c.numPts, which, len(pts))
	}
	for i, p := range pts {
		if !(p.X > -1 && p.X < 1) || !(p.Y > -1 && p.Y < 1) {
			return fmt.Errorf("%w: %s point %d coordinates (%v, %v) outside (-1, 1)",
				ErrInvalidArgument, which, i, p.X, p.Y)
		}
		if needDepth && !(p.Depth > 0) {
			return fmt.Errorf("%w: %s point %d depth %v must be positive in %s interaction mode",
				ErrInvalidArgument, which, i, p.Depth, c.interaction)
		}
	}
	return nil
}

func clonePoints(pts []Point) []Point {
	out := make([]Point, len(pts))
	copy(out, pts)
	return out
}

// computeErrorVector interleaves per-point (x, y) differences current−desired
// into a 2·numPts column vector. Both sets are present when this is called.
func (c *Controller) computeErrorVector() {
	e := make([]float64, 2*c.numPts)
	for i := range c.current {
		e[2*i] = c.current[i].X - c.desired[i].X
		e[2*i+1] = c.current[i].Y - c.desired[i].Y
	}
	c.errVec = mat.NewVecDense(2*c.numPts, e)
}

// FeatureError returns the interleaved (x, y) error per point, current−desired.
// It returns ErrNotReady until both point sets have been stored.
func (c *Controller) FeatureError() ([]float64, error) {
	if c.errVec == nil {
		return nil, fmt.Errorf("%w: set both current and desired points first", ErrNotReady)
	}
	out := make([]float64, c.errVec.Len())
	copy(out, c.errVec.RawVector().Data)
	return out, nil
}

// ErrorNorm returns the Euclidean norm of the feature error vector. It
// returns ErrNotReady until both point sets have been stored.
func (c *Controller) ErrorNorm() (float64, error) {
	if c.errVec == nil {
		return 0, fmt.Errorf("%w: set both current and desired points first", ErrNotReady)
	}
	return mat.Norm(c.errVec, 2), nil
}

// UpdateInteractionMatrix rebuilds the interaction matrix estimate from the
// point set(s) selected by the interaction mode and stores its Moore–Penrose
// pseudoinverse. In mean mode the arithmetic mean of the current and desired
// matrices is inverted, not the mean of the two pseudoinverses. It returns
// ErrNotReady if a required point set has not been stored.
//
// Near-degenerate point configurations yield near-singular interaction
// matrices; the pseudoinverse stays defined but amplifies numerical error.
func (c *Controller) UpdateInteractionMatrix() error {
	if c.interaction != InteractionDesired && c.current == nil {
		return fmt.Errorf("%w: set current points first", ErrNotReady)
	}
	if c.interaction != InteractionCurrent && c.desired == nil {
		return fmt.Errorf("%w: set desired points first", ErrNotReady)
	}

	var l *mat.Dense
	switch c.interaction {
	case InteractionCurrent:
		l = c.buildInteraction(c.current)
	case InteractionDesired:
		l = c.buildInteraction(c.desired)
	case InteractionMean:
		l = c.buildInteraction(c.current)
		l.Add(l, c.buildInteraction(c.desired))
		l.Scale(0.5, l)
	}

	pinv, err := pseudoInverse(l)
	if err != nil {
		return err
	}
	c.pinv = pinv
	return nil
}

// InteractionPinv returns a copy of the stored pseudoinverse, d × 2·numPts.
// It returns ErrNotReady until UpdateInteractionMatrix has succeeded.
func (c *Controller) InteractionPinv() (*mat.Dense, error) {
	if c.pinv == nil {
		return nil, fmt.Errorf("%w: call UpdateInteractionMatrix first", ErrNotReady)
	}
	return mat.DenseCopyOf(c.pinv), nil
}

// buildInteraction assembles the 2·numPts × dof interaction matrix, two rows
// per point in point order.
func (c *Controller) buildInteraction(pts []Point) *mat.Dense {
	l := mat.NewDense(2*c.numPts, c.dof, nil)
	for i, p := range pts {
		rx, ry := interactionRows(c.mode, p)
		l.SetRow(2*i, rx)
		l.SetRow(2*i+1, ry)
	}
	return l
}

// interactionRows returns one point's row pair of the first-order
// perspective-projection image Jacobian, restricted to the mode's velocity
// axes. Column order matches the control-mode axis order.
func interactionRows(mode ControlMode, p Point) (xRow, yRow []float64) {
	switch mode {
	case ModeXZ:
		return []float64{-1 / p.Depth, p.X / p.Depth},
			[]float64{0, p.Y / p.Depth}
	case ModeZY:
		return []float64{p.X / p.Depth, -(1 + p.X*p.X)},
			[]float64{p.Y / p.Depth, -p.X * p.Y}
	default: // ModeXYZY
		return []float64{-1 / p.Depth, 0, p.X / p.Depth, -(1 + p.X*p.X)},
			[]float64{0, -1 / p.Depth, p.Y / p.Depth, -p.X * p.Y}
	}
}

// Velocities evaluates the control law v = −Λ · L⁺ · e and returns the result
// in control-mode axis order. It returns ErrNotReady unless the gains, the
// interaction matrix estimate, and the feature error are all populated.
func (c *Controller) Velocities() ([]float64, error) {
	if c.gain == nil {
		return nil, fmt.Errorf("%w: set gains first", ErrNotReady)
	}
	if c.pinv == nil {
		return nil, fmt.Errorf("%w: call UpdateInteractionMatrix first", ErrNotReady)
	}
	if c.errVec == nil {
		return nil, fmt.Errorf("%w: set both current and desired points first", ErrNotReady)
	}

	var le mat.VecDense
	le.MulVec(c.pinv, c.errVec)
	var v mat.VecDense
	v.MulVec(c.gain, &le)
	v.ScaleVec(-1, &v)

	out := make([]float64, c.dof)
	copy(out, v.RawVector().Data)
	return out, nil
}

// pseudoInverse computes the Moore–Penrose pseudoinverse via thin SVD,
// zeroing singular values below the numpy-compatible cutoff
// max(m, n)·eps·σmax.
func pseudoInverse(a *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, ErrNumerical
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)

	m, n := a.Dims()
	tol := float64(max(m, n)) * eps * s[0]
	inv := make([]float64, len(s))
	for i, sv := range s {
		if sv > tol && !math.IsNaN(sv) {
			inv[i] = 1 / sv
		}
	}

	var vs mat.Dense
	vs.Mul(&v, mat.NewDiagDense(len(s), inv))
	var pinv mat.Dense
	pinv.Mul(&vs, u.T())
	return &pinv, nil
}
