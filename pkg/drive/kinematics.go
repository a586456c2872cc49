package drive

import (
	"math"

	"github.com/quartercastle/vector"
)

// MotionVector is a joystick-style request: X/Y translation and a turn rate.  It doesn't need to
// be normalised.
type MotionVector struct {
	X, Y, Turn float64
}

// RobotCentric maps a motion request in the robot's own frame to wheel powers.  The powers are
// not clamped to [-1, 1].
func RobotCentric(v MotionVector) PerWheel[float64] {
	return mecanum(v, 0)
}

// FieldCentric is RobotCentric with the direction of travel rotated by heading (radians), so that
// the request is interpreted relative to the field.
func FieldCentric(v MotionVector, heading float64) PerWheel[float64] {
	return mecanum(v, heading)
}

func mecanum(v MotionVector, heading float64) PerWheel[float64] {
	// Negative so that pushing the stick forwards (negative Y) drives the wheels forwards.
	magnitude := -vector.Vector{v.X, v.Y}.Magnitude()
	phi := math.Atan2(v.Y, v.X) - heading

	var p PerWheel[float64]
	p[BackLeft] = magnitude*math.Sin(phi+math.Pi/4) + v.Turn
	p[FrontLeft] = magnitude*math.Sin(phi-math.Pi/4) + v.Turn
	p[BackRight] = magnitude*math.Sin(phi+math.Pi/4) - v.Turn
	p[FrontRight] = magnitude*math.Sin(phi-math.Pi/4) - v.Turn
	return p
}
