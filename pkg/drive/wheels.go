package drive

import "fmt"

// Wheel identifies one corner of the drivetrain.
type Wheel int

const (
	FrontLeft Wheel = iota
	FrontRight
	BackLeft
	BackRight

	NumWheels = 4
)

var AllWheels = []Wheel{FrontLeft, FrontRight, BackLeft, BackRight}

// Wheel subsets that the position-seek engine can watch for convergence.
var (
	LeftWheels  = []Wheel{FrontLeft, BackLeft}
	RightWheels = []Wheel{FrontRight, BackRight}
)

func (w Wheel) String() string {
	switch w {
	case FrontLeft:
		return "fL"
	case FrontRight:
		return "fR"
	case BackLeft:
		return "bL"
	case BackRight:
		return "bR"
	default:
		return fmt.Sprintf("wheel(%d)", int(w))
	}
}

// PerWheel holds one value per wheel, indexed by Wheel.
type PerWheel[T any] [NumWheels]T

// Pose is a snapshot of the four encoder positions.
type Pose PerWheel[int]

func (p Pose) String() string {
	return fmt.Sprintf("fL=%d fR=%d bL=%d bR=%d", p[FrontLeft], p[FrontRight], p[BackLeft], p[BackRight])
}
