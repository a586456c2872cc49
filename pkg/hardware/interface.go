package hardware

import (
	"fmt"
	"time"
)

// RunMode is the encoder mode of a drive motor.
type RunMode int

const (
	// RunWithoutEncoder is free-run: power goes straight to the motor.
	RunWithoutEncoder RunMode = iota
	// StopAndResetEncoder stops the motor and re-zeros its encoder count.
	StopAndResetEncoder
	// RunToPosition has the motor controller seek the target position at the set power.
	RunToPosition
)

func (m RunMode) String() string {
	switch m {
	case RunWithoutEncoder:
		return "run-without-encoder"
	case StopAndResetEncoder:
		return "stop-and-reset-encoder"
	case RunToPosition:
		return "run-to-position"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ZeroPowerBehavior is what a motor does when it is commanded zero power.
type ZeroPowerBehavior int

const (
	Float ZeroPowerBehavior = iota
	Brake
)

func (b ZeroPowerBehavior) String() string {
	switch b {
	case Float:
		return "float"
	case Brake:
		return "brake"
	default:
		return fmt.Sprintf("unknown(%d)", int(b))
	}
}

// Motor is one drive motor with an encoder.  Power is in the range [-1, 1].
type Motor interface {
	SetPower(power float64)
	SetTargetPosition(ticks int)
	CurrentPosition() int
	SetMode(mode RunMode)
	SetZeroPowerBehavior(b ZeroPowerBehavior)
}

// IMU reports the robot's heading.
type IMU interface {
	// Yaw in degrees.
	Yaw() float64
	// AngularVelocityZ is the yaw rate in degrees per second.
	AngularVelocityZ() float64
}

type TouchSensor interface {
	IsPressed() bool
}

type DistanceSensor interface {
	DistanceCM() float64
}

// Clock is the time source for timeouts and timed holds.
type Clock interface {
	// Elapsed returns the time since an arbitrary epoch.
	Elapsed() time.Duration
	Sleep(d time.Duration)
}
