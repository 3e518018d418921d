// Package servo implements an image-based visual servoing (IBVS) control law.
//
// Given the current and desired normalized image-plane positions (and depths)
// of a fixed set of tracked points, a [Controller] derives a feature error
// vector, estimates the interaction matrix (image Jacobian) from point
// geometry, pseudoinverts it, and produces the velocity command
//
//	v = −Λ · L⁺ · e
//
// in camera-frame axes (origin at image center, +x right, +y down, +z into
// the scene).
//
// # Per-iteration protocol
//
//	ctrl, _ := servo.New(servo.ModeXZ, servo.InteractionCurrent, 4)
//	ctrl.SetGains([]float64{1, 1})
//	for {
//		ctrl.SetCurrentPoints(tracked)   // from the vision front end
//		ctrl.SetDesiredPoints(goal)
//		ctrl.UpdateInteractionMatrix()
//		v, _ := ctrl.Velocities()        // to the actuation back end
//	}
//
// Point tracking and actuation are external collaborators; this package only
// evaluates the control law.
//
// # Thread Safety
//
// Controller instances are NOT thread-safe. Concurrent control loops must
// each own a Controller.
package servo
