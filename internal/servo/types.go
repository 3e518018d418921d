package servo

import "fmt"

// ControlMode selects which subset of the velocity screw the controller
// commands. The mode fixes the number of degrees of freedom and the order of
// the output velocity components.
type ControlMode int

const (
	// ModeXZ commands x velocity and z velocity.
	ModeXZ ControlMode = iota
	// ModeZY commands z velocity and y angular velocity.
	ModeZY
	// ModeXYZY commands x, y, z velocity and y angular velocity.
	ModeXYZY
)

var controlModeNames = map[ControlMode]string{
	ModeXZ:   "2xz",
	ModeZY:   "2zy",
	ModeXYZY: "4xyzy",
}

func (m ControlMode) String() string {
	if name, ok := controlModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("ControlMode(%d)", int(m))
}

// DOF returns the number of velocity components the mode commands.
func (m ControlMode) DOF() int {
	if m == ModeXYZY {
		return 4
	}
	return 2
}

func (m ControlMode) valid() bool {
	_, ok := controlModeNames[m]
	return ok
}

// ParseControlMode maps a mode name ("2xz", "2zy", "4xyzy") to its ControlMode.
func ParseControlMode(name string) (ControlMode, error) {
	for m, n := range controlModeNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown control mode %q", ErrInvalidConfig, name)
}

// InteractionMode selects which point set(s) parametrize the interaction
// matrix estimate.
type InteractionMode int

const (
	// InteractionCurrent builds the estimate from the current points only.
	InteractionCurrent InteractionMode = iota
	// InteractionDesired builds the estimate from the desired points only.
	InteractionDesired
	// InteractionMean pseudoinverts the arithmetic mean of the current and
	// desired interaction matrices.
	InteractionMean
)

var interactionModeNames = map[InteractionMode]string{
	InteractionCurrent: "curr",
	InteractionDesired: "desired",
	InteractionMean:    "mean",
}

func (m InteractionMode) String() string {
	if name, ok := interactionModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("InteractionMode(%d)", int(m))
}

func (m InteractionMode) valid() bool {
	_, ok := interactionModeNames[m]
	return ok
}

// needsCurrentDepth reports whether the mode reads depths from the current set.
func (m InteractionMode) needsCurrentDepth() bool {
	return m == InteractionCurrent || m == InteractionMean
}

// needsDesiredDepth reports whether the mode reads depths from the desired set.
func (m InteractionMode) needsDesiredDepth() bool {
	return m == InteractionDesired || m == InteractionMean
}

// ParseInteractionMode maps a mode name ("curr", "desired", "mean") to its
// InteractionMode.
func ParseInteractionMode(name string) (InteractionMode, error) {
	for m, n := range interactionModeNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown interaction mode %q", ErrInvalidConfig, name)
}

// Point is one tracked image feature. X and Y are normalized image-plane
// coordinates in the open interval (-1, 1) relative to the camera frame
// (origin at image center, +x right, +y down). Depth is the distance along
// the optical axis in meters; it must be positive when the active
// InteractionMode reads depths from the point's set, and may be left zero
// otherwise.
type Point struct {
	X     float64
	Y     float64
	Depth float64
}
