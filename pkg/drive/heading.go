package drive

import (
	"context"
	"fmt"
	"math"

	"github.com/felixge/pidctrl"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/angle"
)

// Clip raises the magnitude of v to at least floor, keeping its sign, so that a small correction
// still overcomes friction in the drivetrain.  Zero stays zero.
func Clip(v, floor float64) float64 {
	if v == 0 {
		return 0
	}
	if math.Abs(v) < floor {
		return math.Copysign(floor, v)
	}
	return v
}

// headingError is the error between the target heading and the current yaw, both in degrees,
// using the configured wrap.
func (d *Drive) headingError(target, yaw float64) float64 {
	if d.cfg.HeadingWrap == SymmetricWrap {
		return angle.SymmetricError(target, yaw)
	}
	return angle.LegacyError(target, yaw)
}

// onTarget is the distance from target used by the turn exit checks.
func (d *Drive) onTarget(target, yaw, tolerance float64) bool {
	if d.cfg.HeadingWrap == SymmetricWrap {
		return math.Abs(angle.SymmetricError(target, yaw)) < tolerance
	}
	return math.Abs(target-yaw) < tolerance
}

// GyroStabilised sets the pending powers for translation (x, y) while turning towards target
// with the gentle proportional correction.
func (d *Drive) GyroStabilised(x, y, target float64) {
	err := d.headingError(target, d.imu.Yaw())
	d.CalculateDirections(x, y, Clip(err/d.cfg.SlowDivisor, d.cfg.ClipMinimum))
}

// GyroStabilisedFast is GyroStabilised with a more aggressive correction.
func (d *Drive) GyroStabilisedFast(x, y, target float64) {
	err := d.headingError(target, d.imu.Yaw())
	d.CalculateDirections(x, y, Clip(err/d.cfg.FastDivisor, d.cfg.ClipMinimum))
}

// Heading returns the current IMU yaw in degrees.
func (d *Drive) Heading() float64 {
	return d.imu.Yaw()
}

// settled reports whether the robot is within tolerance of target and has (nearly) stopped
// turning.
func (d *Drive) settled(target, yaw float64) bool {
	return d.onTarget(target, yaw, d.cfg.TurnTolerance) &&
		math.Abs(d.imu.AngularVelocityZ()) < d.cfg.TurnRateTolerance
}

// Turn turns by degrees relative to the current heading; positive is clockwise.  It returns once
// the robot is on the new heading and has stopped turning, which with no TurnTimeout may be
// never.
func (d *Drive) Turn(ctx context.Context, degrees float64) error {
	target := d.imu.Yaw() - degrees
	fmt.Printf("Drive: turn %.1f to %.1f\n", degrees, target)
	defer d.Off()
	return Poll(ctx, d.clock, d.cfg.TurnTimeout, d.cfg.PollInterval, func() bool {
		d.GyroStabilised(0, 0, target)
		d.ApplyPower()
		return d.settled(target, d.imu.Yaw())
	})
}

// TurnPID is Turn driven by a PID controller instead of the clipped proportional correction.
func (d *Drive) TurnPID(ctx context.Context, degrees float64) error {
	pid := pidctrl.NewPIDController(d.cfg.PID.P, d.cfg.PID.I, d.cfg.PID.D)
	pid.Set(degrees)
	pid.SetOutputLimits(-1, 1)

	target := d.imu.Yaw() - degrees
	fmt.Printf("Drive: PID turn %.1f to %.1f\n", degrees, target)
	defer d.Off()

	last := d.clock.Elapsed()
	return Poll(ctx, d.clock, d.cfg.TurnTimeout, d.cfg.PollInterval, func() bool {
		yaw := d.imu.Yaw()
		now := d.clock.Elapsed()
		dt := now - last
		last = now
		if dt <= 0 {
			// The controller divides by dt.
			return false
		}

		correction := pid.UpdateDuration(d.headingError(degrees, yaw), dt)
		d.CalculateDirections(0, 0, correction)
		d.ApplyPower()
		return d.settled(target, yaw)
	})
}

// TurnAbsolute turns to the given heading, corrected by GyroModifier, and stops within a couple
// of degrees of it.
func (d *Drive) TurnAbsolute(ctx context.Context, heading float64) error {
	fmt.Printf("Drive: turn to %.1f\n", heading)
	defer d.Off()
	return Poll(ctx, d.clock, d.cfg.TurnTimeout, d.cfg.PollInterval, func() bool {
		if d.onTarget(heading, d.imu.Yaw()-d.GyroModifier, d.cfg.TurnAbsoluteTolerance) {
			return true
		}
		d.GyroStabilised(0, 0, heading)
		d.ApplyPower()
		return false
	})
}

// RotateGyro rotates left by degrees on the encoders, lets the robot settle, then bangs the turn
// power on and off until the IMU agrees that we're facing heading.  The whole maneuver is time
// limited; running out of time is not an error.
func (d *Drive) RotateGyro(ctx context.Context, degrees int, heading float64) error {
	cfg := d.cfg.RotateGyro
	start := d.clock.Elapsed()
	defer d.Off()

	if err := d.RotateLeftEncoder(ctx, degrees); err != nil {
		return err
	}
	if err := d.Hold(ctx, cfg.Settle); err != nil {
		return err
	}

	remaining := cfg.Timeout - (d.clock.Elapsed() - start)
	if remaining <= 0 {
		fmt.Println("Drive: no time left to correct rotation")
		return nil
	}
	err := Poll(ctx, d.clock, remaining, d.cfg.PollInterval, func() bool {
		yaw := d.imu.Yaw()
		if math.Abs(yaw-heading) < cfg.ToleranceDegrees {
			return true
		}
		switch {
		case yaw < heading:
			d.CalculateDirections(0, 0, -cfg.Power)
		case yaw > heading:
			d.CalculateDirections(0, 0, cfg.Power)
		default:
			d.CalculateDirections(0, 0, 0)
		}
		d.ApplyPower()
		return false
	})
	if IsTimeout(err) {
		fmt.Printf("Drive: rotation correction gave up at %.1f, wanted %.1f\n", d.imu.Yaw(), heading)
		return nil
	}
	return err
}
