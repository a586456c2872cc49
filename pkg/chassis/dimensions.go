package chassis

import "math"

const (
	// Drive motors report 384.5 ticks per output shaft rotation.
	MotorTicksPerRev = 384.5
	WheelDiameterMM  = 96.0
	WheelCircumMM    = WheelDiameterMM * math.Pi

	// TicksPerInch is measured on the field mat rather than derived from the wheel size; the
	// mecanum rollers slip.
	TicksPerInch = 40.88721

	RobotLengthIn = 11.75
	RobotWidthIn  = 15.25
)

// Encoder ticks per 90 degrees of in-place rotation, per wheel, in front-left, front-right,
// back-left, back-right order.  Signs give the wheel direction.  The two directions differ;
// they were tuned on the robot.
var (
	RotateRightTicksPer90 = [4]int{754, -605, 605, -724}
	RotateLeftTicksPer90  = [4]int{-698, 629, -611, 732}
)

