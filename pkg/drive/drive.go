package drive

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/hardware"
)

// Drive owns the four drive motors and the IMU.  It is not safe for concurrent use; one goroutine
// (the active mode) drives the robot at a time.
type Drive struct {
	cfg    Config
	motors PerWheel[hardware.Motor]
	imu    hardware.IMU
	clock  hardware.Clock

	// Powers computed by the last CalculateDirections*, not yet scaled by speed.
	pending PerWheel[float64]

	speed      float64
	savedSpeed []float64

	recorded Pose

	// GyroModifier is subtracted from the IMU yaw by TurnAbsolute, to allow for an IMU that was
	// zeroed at some other heading.
	GyroModifier float64
}

// New takes ownership of the motors.  It re-zeros their encoders and leaves them running without
// encoder feedback.
func New(cfg Config, motors PerWheel[hardware.Motor], imu hardware.IMU, clock hardware.Clock) (*Drive, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid drive config")
	}
	for w, m := range motors {
		if m == nil {
			return nil, errors.Errorf("no motor for wheel %v", Wheel(w))
		}
	}
	if imu == nil {
		return nil, errors.New("no IMU")
	}
	if clock == nil {
		clock = hardware.NewSystemClock()
	}
	d := &Drive{
		cfg:    cfg,
		motors: motors,
		imu:    imu,
		clock:  clock,
		speed:  1,
	}
	d.setModes(hardware.StopAndResetEncoder)
	d.setModes(hardware.RunWithoutEncoder)
	fmt.Printf("Drive: initialised, convergence=%v wrap=%v\n", cfg.Convergence, cfg.HeadingWrap)
	return d, nil
}

func (d *Drive) Config() Config {
	return d.cfg
}

func (d *Drive) Clock() hardware.Clock {
	return d.clock
}

// CalculateDirections sets the pending wheel powers for a robot-centric motion request.  Nothing
// is sent to the motors until ApplyPower.
func (d *Drive) CalculateDirections(x, y, turn float64) {
	d.pending = RobotCentric(MotionVector{X: x, Y: y, Turn: turn})
}

// CalculateDirectionsFieldCentric is CalculateDirections relative to the field; heading is in
// radians.
func (d *Drive) CalculateDirectionsFieldCentric(x, y, turn, heading float64) {
	d.pending = FieldCentric(MotionVector{X: x, Y: y, Turn: turn}, heading)
}

// PendingPowers returns the powers that the next ApplyPower will send, before speed scaling.
func (d *Drive) PendingPowers() PerWheel[float64] {
	return d.pending
}

// ApplyPower sends the pending powers, scaled by the current speed, to the motors.
func (d *Drive) ApplyPower() {
	for w, m := range d.motors {
		m.SetPower(d.pending[w] * d.speed)
	}
}

// Off clears the pending powers and stops the motors.
func (d *Drive) Off() {
	d.pending = PerWheel[float64]{}
	for _, m := range d.motors {
		m.SetPower(0)
	}
}

func (d *Drive) Forward() {
	d.CalculateDirections(0, -1, 0)
	d.ApplyPower()
}

func (d *Drive) Backward() {
	d.CalculateDirections(0, 1, 0)
	d.ApplyPower()
}

func (d *Drive) Left() {
	d.CalculateDirections(-1, 0, 0)
	d.ApplyPower()
}

func (d *Drive) Right() {
	d.CalculateDirections(1, 0, 0)
	d.ApplyPower()
}

// Hold waits for duration on the drive's clock without touching the motors.
func (d *Drive) Hold(ctx context.Context, duration time.Duration) error {
	start := d.clock.Elapsed()
	return Poll(ctx, d.clock, 0, d.cfg.PollInterval, func() bool {
		return d.clock.Elapsed()-start >= duration
	})
}

// GoFor applies the pending powers for duration and then stops.
func (d *Drive) GoFor(ctx context.Context, duration time.Duration) error {
	d.ApplyPower()
	err := d.Hold(ctx, duration)
	d.Off()
	return err
}

// distanceTargets converts a distance into per-wheel tick targets, taking each wheel's direction
// from the sign of its pending power.
func (d *Drive) distanceTargets(inches float64) Pose {
	var targets Pose
	for w, p := range d.pending {
		sign := 1.0
		if p < 0 {
			sign = -1
		}
		targets[w] = int(sign * inches * d.cfg.TicksPerInch)
	}
	return targets
}

// GoDist moves the given distance in the direction of the pending powers.
func (d *Drive) GoDist(ctx context.Context, inches float64) error {
	return d.RunToPosition(ctx, d.distanceTargets(inches))
}

func (d *Drive) GoDistSmooth(ctx context.Context, inches float64) error {
	return d.RunToPositionSmooth(ctx, d.distanceTargets(inches))
}

func (d *Drive) VariableGoDist(ctx context.Context, inches, power float64) error {
	return d.VariableRunToPosition(ctx, d.distanceTargets(inches), power)
}

// InterruptableGoDist moves the given distance but stops early if sensor sees something closer
// than the configured pole trigger distance.
func (d *Drive) InterruptableGoDist(ctx context.Context, inches float64, sensor hardware.DistanceSensor) error {
	return d.InterruptableGoTarget(ctx, d.distanceTargets(inches), sensor)
}

// BumperGoDist moves the given distance but stops early once both bumpers are pressed.
func (d *Drive) BumperGoDist(ctx context.Context, inches float64, left, right hardware.TouchSensor) error {
	return d.BumperGoTarget(ctx, d.distanceTargets(inches), left, right)
}

func rotateTargets(ticksPer90 []int, degrees int) Pose {
	var targets Pose
	for w := range targets {
		targets[w] = int(float64(degrees) * float64(ticksPer90[w]) / 90)
	}
	return targets
}

// RotateRightEncoder turns on the spot by counting encoder ticks, using the measured per-wheel
// ratios.
func (d *Drive) RotateRightEncoder(ctx context.Context, degrees int) error {
	return d.RunToPosition(ctx, rotateTargets(d.cfg.RotateRightTicksPer90, degrees))
}

func (d *Drive) RotateLeftEncoder(ctx context.Context, degrees int) error {
	return d.RunToPosition(ctx, rotateTargets(d.cfg.RotateLeftTicksPer90, degrees))
}

func (d *Drive) setModes(mode hardware.RunMode) {
	for _, m := range d.motors {
		m.SetMode(mode)
	}
}

func (d *Drive) setZeroPowerBehaviors(b hardware.ZeroPowerBehavior) {
	for _, m := range d.motors {
		m.SetZeroPowerBehavior(b)
	}
}

func (d *Drive) setPowers(power float64) {
	for _, m := range d.motors {
		m.SetPower(power)
	}
}

func (d *Drive) setTargets(targets Pose) {
	for w, m := range d.motors {
		m.SetTargetPosition(targets[w])
	}
}

// Positions reads all four encoders.
func (d *Drive) Positions() Pose {
	var p Pose
	for w, m := range d.motors {
		p[w] = m.CurrentPosition()
	}
	return p
}
