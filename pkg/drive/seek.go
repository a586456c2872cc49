package drive

import (
	"context"
	"fmt"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/hardware"
)

// seekOptions describes one run-to-position move.
type seekOptions struct {
	power float64
	// Wheels whose convergence ends the move.
	watch []Wheel
	// Re-apply the smoothing curve on every poll.
	smooth bool
	// If set, checked before convergence on every poll; returning true ends the move early and
	// the wheels are re-targeted to wherever they are.
	interrupt func() bool
	// Record the pose straight after the encoder reset.
	record bool
}

// seek runs the full position-seek sequence: re-zero the encoders, arm the brakes, drive to
// targets under the motor controllers' position loop, then release everything.  The motors are
// always left stopped, in free-run and coasting, even if the wait fails.
func (d *Drive) seek(ctx context.Context, targets Pose, o seekOptions) error {
	d.setModes(hardware.StopAndResetEncoder)
	d.setZeroPowerBehaviors(hardware.Brake)
	if o.record {
		d.RecordPosition()
	}
	d.setPowers(o.power)
	d.setTargets(targets)
	d.setModes(hardware.RunToPosition)

	err := d.waitForTargets(ctx, targets, o)
	if err == nil && o.interrupt != nil {
		// Stop where we are, and let the controllers settle there.
		here := d.Positions()
		d.setTargets(here)
		err = d.waitForTargets(ctx, here, seekOptions{watch: o.watch})
	}

	d.setModes(hardware.RunWithoutEncoder)
	d.setZeroPowerBehaviors(hardware.Float)
	d.Off()
	if err != nil {
		fmt.Printf("Seek: abandoned move to %v: %v\n", targets, err)
	}
	return err
}

func (d *Drive) waitForTargets(ctx context.Context, targets Pose, o seekOptions) error {
	watch := o.watch
	if watch == nil {
		watch = AllWheels
	}
	return Poll(ctx, d.clock, d.cfg.SeekTimeout, d.cfg.PollInterval, func() bool {
		if o.interrupt != nil && o.interrupt() {
			fmt.Println("Seek: interrupted")
			return true
		}
		if d.converged(targets, watch) {
			return true
		}
		if o.smooth {
			for w, m := range d.motors {
				m.SetPower(d.PowerSmoothingPiecewise(progress(m.CurrentPosition(), targets[w])))
			}
		}
		return false
	})
}

// converged applies the convergence policy to the watched wheels.  With AnyConverged the wheels
// are checked in order and checking stops at the first one within tolerance.
func (d *Drive) converged(targets Pose, watch []Wheel) bool {
	tol := d.cfg.ConvergenceTolerance
	for _, w := range watch {
		near := abs(targets[w]-d.motors[w].CurrentPosition()) < tol
		switch d.cfg.Convergence {
		case AllConverged:
			if !near {
				return false
			}
		default:
			if near {
				return true
			}
		}
	}
	return d.cfg.Convergence == AllConverged
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// RunToPosition drives each wheel to its target tick count at the current speed.
func (d *Drive) RunToPosition(ctx context.Context, targets Pose) error {
	return d.seek(ctx, targets, seekOptions{power: d.speed})
}

// RunToPositionSmooth is RunToPosition with the power shaped by the smoothing curve as the
// wheels progress.
func (d *Drive) RunToPositionSmooth(ctx context.Context, targets Pose) error {
	return d.seek(ctx, targets, seekOptions{power: d.speed, smooth: true})
}

// RunToPositionIgnoreRight only watches the left wheels for convergence.
func (d *Drive) RunToPositionIgnoreRight(ctx context.Context, targets Pose) error {
	return d.seek(ctx, targets, seekOptions{power: d.speed, watch: LeftWheels})
}

// RunToPositionIgnoreLeft only watches the right wheels for convergence.
func (d *Drive) RunToPositionIgnoreLeft(ctx context.Context, targets Pose) error {
	return d.seek(ctx, targets, seekOptions{power: d.speed, watch: RightWheels})
}

// InterruptableGoTarget creeps towards targets at the interrupt power, stopping early if sensor
// reads closer than the pole trigger distance.  The pose before the move is recorded so that
// RestorePosition can back out again.
func (d *Drive) InterruptableGoTarget(ctx context.Context, targets Pose, sensor hardware.DistanceSensor) error {
	trigger := d.cfg.PoleTriggerCM
	return d.seek(ctx, targets, seekOptions{
		power:     d.cfg.InterruptPower,
		record:    true,
		interrupt: func() bool { return sensor.DistanceCM() < trigger },
	})
}

// BumperGoTarget creeps towards targets at the interrupt power, stopping early once both bumpers
// are pressed.
func (d *Drive) BumperGoTarget(ctx context.Context, targets Pose, left, right hardware.TouchSensor) error {
	return d.seek(ctx, targets, seekOptions{
		power:     d.cfg.InterruptPower,
		record:    true,
		interrupt: func() bool { return left.IsPressed() && right.IsPressed() },
	})
}

// VariableRunToPosition drives to targets at power, then makes a second, slow pass to the same
// targets to take up any overshoot.  The brakes are left alone.
func (d *Drive) VariableRunToPosition(ctx context.Context, targets Pose, power float64) error {
	d.setModes(hardware.StopAndResetEncoder)
	err := d.runPass(ctx, targets, power)
	if err == nil {
		err = d.runPass(ctx, targets, d.cfg.SettlePower)
	}
	d.Off()
	if err != nil {
		fmt.Printf("Seek: abandoned variable move to %v: %v\n", targets, err)
	}
	return err
}

// runPass is one run-to-position pass without an encoder reset, ending in free-run.
func (d *Drive) runPass(ctx context.Context, targets Pose, power float64) error {
	d.setPowers(power)
	d.setTargets(targets)
	d.setModes(hardware.RunToPosition)
	err := d.waitForTargets(ctx, targets, seekOptions{})
	d.setModes(hardware.RunWithoutEncoder)
	return err
}

// RecordPosition snapshots the four encoder positions, replacing any earlier snapshot.
func (d *Drive) RecordPosition() {
	d.recorded = d.Positions()
}

// Recorded returns the last snapshot; the zero pose if nothing has been recorded.
func (d *Drive) Recorded() Pose {
	return d.recorded
}

// RestorePosition drives back to the recorded pose at the restore power.  The encoders are not
// reset, so the pose must have been recorded in the current encoder frame.
func (d *Drive) RestorePosition(ctx context.Context) error {
	err := d.runPass(ctx, d.recorded, d.cfg.RestorePower)
	d.Off()
	if err != nil {
		fmt.Printf("Seek: abandoned restore to %v: %v\n", d.recorded, err)
	}
	return err
}
