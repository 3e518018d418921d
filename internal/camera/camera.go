// Package camera provides the pinhole camera model used to close the servo
// loop in simulation: it projects world points into normalized image
// coordinates with depth, and integrates the camera pose under a camera-frame
// velocity command.
package camera

import (
	"fmt"
	"math"

	"github.com/jrana/ibvs/internal/servo"
)

// Vec3 is a point in the world frame.
type Vec3 struct {
	X, Y, Z float64
}

// Pose is the camera position and yaw in the world frame. Yaw is the rotation
// about the camera y axis in radians; at zero yaw the camera axes coincide
// with world axes (+x right, +y down, +z forward).
type Pose struct {
	X   float64
	Y   float64
	Z   float64
	Yaw float64
}

// Camera is a normalized pinhole camera at a pose.
type Camera struct {
	Pose Pose
}

// New returns a camera at the given pose.
func New(pose Pose) *Camera {
	return &Camera{Pose: pose}
}

// Project maps world points into normalized image coordinates and depth. It
// fails if any point lies on or behind the image plane.
func (c *Camera) Project(world []Vec3) ([]servo.Point, error) {
	sin, cos := math.Sincos(c.Pose.Yaw)
	pts := make([]servo.Point, len(world))
	for i, w := range world {
		dx := w.X - c.Pose.X
		dz := w.Z - c.Pose.Z

		xc := cos*dx - sin*dz
		yc := w.Y - c.Pose.Y
		zc := sin*dx + cos*dz
		if zc <= 0 {
			return nil, fmt.Errorf("camera: point %d behind the image plane (depth %f)", i, zc)
		}

		pts[i] = servo.Point{X: xc / zc, Y: yc / zc, Depth: zc}
	}
	return pts, nil
}

// Apply integrates the pose over dt under a camera-frame velocity command in
// the axis order of the control mode. Translation is rotated into the world
// frame; the angular component turns the yaw.
func (c *Camera) Apply(vels []float64, mode servo.ControlMode, dt float64) {
	var vx, vy, vz, wy float64
	switch mode {
	case servo.ModeXZ:
		vx, vz = vels[0], vels[1]
	case servo.ModeZY:
		vz, wy = vels[0], vels[1]
	case servo.ModeXYZY:
		vx, vy, vz, wy = vels[0], vels[1], vels[2], vels[3]
	}

	sin, cos := math.Sincos(c.Pose.Yaw)
	c.Pose.X += dt * (cos*vx + sin*vz)
	c.Pose.Y += dt * vy
	c.Pose.Z += dt * (-sin*vx + cos*vz)
	c.Pose.Yaw += dt * wy
}
