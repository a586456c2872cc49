package drive

import (
	"context"
	"testing"
	"time"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/chassis"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/hardware"
)

func newSimDrive(t *testing.T, cfg Config) (*Drive, *hardware.SimRobot) {
	t.Helper()
	sim := hardware.NewSimRobot(false)
	var motors PerWheel[hardware.Motor]
	for w, m := range sim.Motors {
		motors[w] = m
	}
	d, err := New(cfg, motors, sim.IMU, sim.Clock)
	if err != nil {
		t.Fatalf("Failed to create drive: %v", err)
	}
	for _, m := range sim.Motors {
		m.Calls()
	}
	return d, sim
}

func TestNewResetsEncoders(t *testing.T) {
	sim := hardware.NewSimRobot(false)
	sim.Motors[BackRight].SetPosition(1234)
	motors := PerWheel[hardware.Motor]{sim.Motors[0], sim.Motors[1], sim.Motors[2], sim.Motors[3]}
	if _, err := New(DefaultConfig(), motors, sim.IMU, sim.Clock); err != nil {
		t.Fatal(err)
	}
	for _, m := range sim.Motors {
		calls := m.Calls()
		if len(calls) != 2 ||
			calls[0] != (hardware.Call{Op: "mode", Value: float64(hardware.StopAndResetEncoder)}) ||
			calls[1] != (hardware.Call{Op: "mode", Value: float64(hardware.RunWithoutEncoder)}) {
			t.Errorf("%s: unexpected calls %v", m.Name, calls)
		}
	}
	if p := sim.Motors[BackRight].CurrentPosition(); p != 0 {
		t.Errorf("Encoder not re-zeroed: %d", p)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	sim := hardware.NewSimRobot(false)
	motors := PerWheel[hardware.Motor]{sim.Motors[0], sim.Motors[1], sim.Motors[2], sim.Motors[3]}
	cfg := DefaultConfig()
	cfg.RotateLeftTicksPer90 = []int{1, 2, 3}
	if _, err := New(cfg, motors, sim.IMU, sim.Clock); err == nil {
		t.Fatal("Expected an error for a short rotation table")
	}
	motors[FrontRight] = nil
	if _, err := New(DefaultConfig(), motors, sim.IMU, sim.Clock); err == nil {
		t.Fatal("Expected an error for a missing motor")
	}
}

func TestDefaultConfigOwnsItsTables(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RotateRightTicksPer90[0] = 1
	cfg.RotateLeftTicksPer90[3] = 1

	fresh := DefaultConfig()
	if fresh.RotateRightTicksPer90[0] != chassis.RotateRightTicksPer90[0] || chassis.RotateRightTicksPer90[0] == 1 {
		t.Errorf("Right rotation table shared: %v", fresh.RotateRightTicksPer90)
	}
	if fresh.RotateLeftTicksPer90[3] != chassis.RotateLeftTicksPer90[3] || chassis.RotateLeftTicksPer90[3] == 1 {
		t.Errorf("Left rotation table shared: %v", fresh.RotateLeftTicksPer90)
	}
}

func TestApplyPowerScalesBySpeed(t *testing.T) {
	d, sim := newSimDrive(t, DefaultConfig())
	d.SetSpeed(0.5)
	d.CalculateDirections(0, 0, 0.8)
	if sim.Motors[FrontLeft].Power() != 0 {
		t.Fatal("CalculateDirections should not touch the motors")
	}
	d.ApplyPower()
	expectPowers(t, "scaled", PerWheel[float64]{
		sim.Motors[0].Power(), sim.Motors[1].Power(), sim.Motors[2].Power(), sim.Motors[3].Power(),
	}, PerWheel[float64]{0.4, -0.4, 0.4, -0.4})

	d.Off()
	for _, m := range sim.Motors {
		if m.Power() != 0 {
			t.Errorf("%s still powered after Off", m.Name)
		}
	}
	if d.PendingPowers() != (PerWheel[float64]{}) {
		t.Errorf("Pending powers not cleared: %v", d.PendingPowers())
	}
}

func TestGoFor(t *testing.T) {
	d, sim := newSimDrive(t, DefaultConfig())
	d.CalculateDirections(0, -1, 0)
	start := sim.Clock.Peek()
	if err := d.GoFor(context.Background(), 500*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if elapsed := sim.Clock.Peek() - start; elapsed < 500*time.Millisecond {
		t.Errorf("Only held for %v", elapsed)
	}
	calls := sim.Motors[FrontLeft].Calls()
	if len(calls) != 2 || calls[0].Op != "power" || calls[0].Value <= 0 || calls[1] != (hardware.Call{Op: "power", Value: 0}) {
		t.Errorf("Unexpected calls %v", calls)
	}
}

func TestGoDistTargets(t *testing.T) {
	d, sim := newSimDrive(t, DefaultConfig())
	ctx := context.Background()

	d.Forward()
	if err := d.GoDist(ctx, 10); err != nil {
		t.Fatal(err)
	}
	expectTargets(t, sim, Pose{408, 408, 408, 408})

	d.Backward()
	if err := d.GoDist(ctx, 10); err != nil {
		t.Fatal(err)
	}
	expectTargets(t, sim, Pose{-408, -408, -408, -408})

	d.Left()
	if err := d.GoDist(ctx, 2); err != nil {
		t.Fatal(err)
	}
	expectTargets(t, sim, Pose{-81, -81, 81, 81})
}

func TestRotateEncoderTargets(t *testing.T) {
	d, sim := newSimDrive(t, DefaultConfig())
	ctx := context.Background()

	if err := d.RotateRightEncoder(ctx, 90); err != nil {
		t.Fatal(err)
	}
	expectTargets(t, sim, Pose{754, -605, 605, -724})

	if err := d.RotateLeftEncoder(ctx, 45); err != nil {
		t.Fatal(err)
	}
	expectTargets(t, sim, Pose{-349, 314, -305, 366})
}

func expectTargets(t *testing.T, sim *hardware.SimRobot, expected Pose) {
	t.Helper()
	var actual Pose
	for w, m := range sim.Motors {
		actual[w] = m.Target()
	}
	if actual != expected {
		t.Errorf("Targets were %v, expected %v", actual, expected)
	}
}

func TestSpeedStack(t *testing.T) {
	d, _ := newSimDrive(t, DefaultConfig())
	if d.Speed() != 1 {
		t.Fatalf("Default speed should be 1, not %v", d.Speed())
	}
	d.VariableSpeedMode(0.5)
	d.VariableSpeedMode(0.25)
	if d.Speed() != 0.25 {
		t.Fatalf("Speed %v", d.Speed())
	}
	d.EndVariableSpeedMode()
	if d.Speed() != 0.5 {
		t.Fatalf("Inner scope should restore 0.5, got %v", d.Speed())
	}
	d.EndVariableSpeedMode()
	if d.Speed() != 1 {
		t.Fatalf("Outer scope should restore 1, got %v", d.Speed())
	}
	d.EndVariableSpeedMode()
	if d.Speed() != 1 {
		t.Fatalf("Unbalanced end should do nothing, got %v", d.Speed())
	}
}

func TestSmoothingClampsSpeed(t *testing.T) {
	d, _ := newSimDrive(t, DefaultConfig())
	d.SetSpeed(3)
	if p := d.PowerSmoothingPiecewise(0.5); p != 1 {
		t.Errorf("Smoothed power %v, expected the clamped speed", p)
	}
	if d.Speed() != 1 {
		t.Errorf("Speed should have been clamped to 1, is %v", d.Speed())
	}
	d.SetSpeed(-1)
	d.PowerSmoothingPiecewise(0.5)
	if d.Speed() != 0 {
		t.Errorf("Speed should have been clamped to 0, is %v", d.Speed())
	}
}
