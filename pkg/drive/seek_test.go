package drive

import (
	"context"
	"testing"
	"time"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/hardware"
)

func TestSeekStopsOnFirstWheel(t *testing.T) {
	d, sim := newSimDrive(t, DefaultConfig())
	for _, m := range sim.Motors {
		m.TicksPerPoll = 5
	}
	sim.Motors[BackLeft].TicksPerPoll = 50

	if err := d.RunToPosition(context.Background(), Pose{100, 100, 100, 100}); err != nil {
		t.Fatal(err)
	}

	if p := sim.Motors[BackLeft].CurrentPosition(); p != 100 {
		t.Errorf("Back left should have arrived, is at %d", p)
	}
	for _, w := range []Wheel{FrontLeft, FrontRight, BackRight} {
		if p := sim.Motors[w].CurrentPosition(); p > 20 {
			t.Errorf("%v should have been stopped well short of its target, is at %d", w, p)
		}
	}
}

func TestSeekAllConverged(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Convergence = AllConverged
	d, sim := newSimDrive(t, cfg)
	for _, m := range sim.Motors {
		m.TicksPerPoll = 5
	}
	sim.Motors[BackLeft].TicksPerPoll = 50

	if err := d.RunToPosition(context.Background(), Pose{100, -100, 100, -100}); err != nil {
		t.Fatal(err)
	}
	for w, m := range sim.Motors {
		target := []int{100, -100, 100, -100}[w]
		if p := m.CurrentPosition(); abs(target-p) >= 10 {
			t.Errorf("%v stopped at %d, short of %d", Wheel(w), p, target)
		}
	}
}

func TestSeekIgnoresUnwatchedWheels(t *testing.T) {
	d, sim := newSimDrive(t, DefaultConfig())
	for _, m := range sim.Motors {
		m.TicksPerPoll = 5
	}
	sim.Motors[FrontRight].TicksPerPoll = 100
	sim.Motors[BackRight].TicksPerPoll = 100

	if err := d.RunToPositionIgnoreRight(context.Background(), Pose{100, 100, 100, 100}); err != nil {
		t.Fatal(err)
	}
	fl := sim.Motors[FrontLeft].CurrentPosition()
	bl := sim.Motors[BackLeft].CurrentPosition()
	if abs(100-fl) >= 10 && abs(100-bl) >= 10 {
		t.Errorf("Right wheels ended the move: left wheels at %d, %d", fl, bl)
	}

	d, sim = newSimDrive(t, DefaultConfig())
	for _, m := range sim.Motors {
		m.TicksPerPoll = 5
	}
	sim.Motors[FrontLeft].TicksPerPoll = 100
	sim.Motors[BackLeft].TicksPerPoll = 100

	if err := d.RunToPositionIgnoreLeft(context.Background(), Pose{100, 100, 100, 100}); err != nil {
		t.Fatal(err)
	}
	fr := sim.Motors[FrontRight].CurrentPosition()
	br := sim.Motors[BackRight].CurrentPosition()
	if abs(100-fr) >= 10 && abs(100-br) >= 10 {
		t.Errorf("Left wheels ended the move: right wheels at %d, %d", fr, br)
	}
}

func TestSeekModeSequence(t *testing.T) {
	d, sim := newSimDrive(t, DefaultConfig())
	d.SetSpeed(0.75)
	if err := d.RunToPosition(context.Background(), Pose{40, 40, 40, 40}); err != nil {
		t.Fatal(err)
	}

	expected := []hardware.Call{
		{Op: "mode", Value: float64(hardware.StopAndResetEncoder)},
		{Op: "zpb", Value: float64(hardware.Brake)},
		{Op: "power", Value: 0.75},
		{Op: "target", Value: 40},
		{Op: "mode", Value: float64(hardware.RunToPosition)},
		{Op: "mode", Value: float64(hardware.RunWithoutEncoder)},
		{Op: "zpb", Value: float64(hardware.Float)},
		{Op: "power", Value: 0},
	}
	for _, m := range sim.Motors {
		expectCalls(t, m.Name, m.Calls(), expected)
	}
}

func TestVariableRunToPosition(t *testing.T) {
	d, sim := newSimDrive(t, DefaultConfig())
	if err := d.VariableRunToPosition(context.Background(), Pose{60, 60, 60, 60}, 0.6); err != nil {
		t.Fatal(err)
	}
	expected := []hardware.Call{
		{Op: "mode", Value: float64(hardware.StopAndResetEncoder)},
		{Op: "power", Value: 0.6},
		{Op: "target", Value: 60},
		{Op: "mode", Value: float64(hardware.RunToPosition)},
		{Op: "mode", Value: float64(hardware.RunWithoutEncoder)},
		{Op: "power", Value: 0.1},
		{Op: "target", Value: 60},
		{Op: "mode", Value: float64(hardware.RunToPosition)},
		{Op: "mode", Value: float64(hardware.RunWithoutEncoder)},
		{Op: "power", Value: 0},
	}
	for _, m := range sim.Motors {
		expectCalls(t, m.Name, m.Calls(), expected)
	}
}

func expectCalls(t *testing.T, name string, actual, expected []hardware.Call) {
	t.Helper()
	if len(actual) != len(expected) {
		t.Errorf("%s: got calls %v, expected %v", name, actual, expected)
		return
	}
	for i := range actual {
		if actual[i] != expected[i] {
			t.Errorf("%s: call %d was %v, expected %v", name, i, actual[i], expected[i])
		}
	}
}

func TestSmoothSeekReshapesPower(t *testing.T) {
	d, sim := newSimDrive(t, DefaultConfig())
	d.SetSpeed(0.8)
	if err := d.RunToPositionSmooth(context.Background(), Pose{400, 400, 400, 400}); err != nil {
		t.Fatal(err)
	}
	var powers []float64
	for _, c := range sim.Motors[FrontLeft].Calls() {
		if c.Op == "power" {
			powers = append(powers, c.Value)
		}
	}
	// Initial power, at least one smoothed update, then off.
	if len(powers) < 3 {
		t.Fatalf("Expected smoothed power updates, got %v", powers)
	}
	if powers[0] != 0.8 || powers[len(powers)-1] != 0 {
		t.Errorf("Unexpected first/last powers %v", powers)
	}
	for _, p := range powers[1 : len(powers)-1] {
		if p <= 0 || p > 0.8 {
			t.Errorf("Smoothed power %v out of range (all: %v)", p, powers)
		}
	}
}

func TestRecordRestoreRoundTrip(t *testing.T) {
	d, sim := newSimDrive(t, DefaultConfig())
	pose := Pose{120, -40, 300, 7}
	for w, m := range sim.Motors {
		m.SetPosition(pose[w])
	}
	d.RecordPosition()
	if d.Recorded() != pose {
		t.Fatalf("Recorded %v, expected %v", d.Recorded(), pose)
	}
	if err := d.RestorePosition(context.Background()); err != nil {
		t.Fatal(err)
	}
	expectTargets(t, sim, pose)
	for _, m := range sim.Motors {
		calls := m.Calls()
		for _, c := range calls {
			if c.Op == "mode" && c.Value == float64(hardware.StopAndResetEncoder) {
				t.Errorf("%s: restore must not reset the encoders: %v", m.Name, calls)
			}
		}
		if len(calls) == 0 || calls[0] != (hardware.Call{Op: "power", Value: 0.2}) {
			t.Errorf("%s: restore should run at 0.2: %v", m.Name, calls)
		}
	}
}

func TestRestoreWithoutRecordTargetsZero(t *testing.T) {
	d, sim := newSimDrive(t, DefaultConfig())
	if err := d.RestorePosition(context.Background()); err != nil {
		t.Fatal(err)
	}
	expectTargets(t, sim, Pose{})
}

func TestInterruptableGoTargetStopsAtSensor(t *testing.T) {
	d, sim := newSimDrive(t, DefaultConfig())
	reads := 0
	sensor := hardware.DistanceFunc(func() float64 {
		reads++
		if reads > 5 {
			return 10
		}
		return 100
	})

	if err := d.InterruptableGoTarget(context.Background(), Pose{1000, 1000, 1000, 1000}, sensor); err != nil {
		t.Fatal(err)
	}
	if d.Recorded() != (Pose{}) {
		t.Errorf("Pose should have been recorded straight after the reset, got %v", d.Recorded())
	}

	for _, m := range sim.Motors {
		var targets []float64
		var firstPower float64 = -1
		for _, c := range m.Calls() {
			switch c.Op {
			case "target":
				targets = append(targets, c.Value)
			case "power":
				if firstPower < 0 {
					firstPower = c.Value
				}
			}
		}
		if firstPower != 0.1 {
			t.Errorf("%s: creep power was %v", m.Name, firstPower)
		}
		if len(targets) != 2 || targets[0] != 1000 || targets[1] <= 0 || targets[1] >= 1000 {
			t.Errorf("%s: expected to be re-targeted where it stopped: %v", m.Name, targets)
		}
	}

	// And back out again.
	if err := d.RestorePosition(context.Background()); err != nil {
		t.Fatal(err)
	}
	expectTargets(t, sim, Pose{})
}

func TestBumperGoTarget(t *testing.T) {
	d, sim := newSimDrive(t, DefaultConfig())
	sim.BumpL.Set(true)

	polls := 0
	right := hardware.TouchFunc(func() bool {
		polls++
		return polls > 3
	})
	if err := d.BumperGoTarget(context.Background(), Pose{1000, 1000, 1000, 1000}, sim.BumpL, right); err != nil {
		t.Fatal(err)
	}
	for _, m := range sim.Motors {
		if tgt := m.Target(); tgt <= 0 || tgt >= 1000 {
			t.Errorf("%s: expected the bumpers to stop the move early, target is %d", m.Name, tgt)
		}
	}
}

func TestSeekTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SeekTimeout = 200 * time.Millisecond
	d, sim := newSimDrive(t, cfg)
	for _, m := range sim.Motors {
		m.TicksPerPoll = 0
	}
	err := d.RunToPosition(context.Background(), Pose{100, 100, 100, 100})
	if !IsTimeout(err) {
		t.Fatalf("Expected a timeout, got %v", err)
	}
	for _, m := range sim.Motors {
		if m.Power() != 0 || m.Mode() != hardware.RunWithoutEncoder || m.ZeroPowerBehavior() != hardware.Float {
			t.Errorf("%s not released after timeout: power %v mode %v zpb %v", m.Name, m.Power(), m.Mode(), m.ZeroPowerBehavior())
		}
	}
}

func TestSeekCancelled(t *testing.T) {
	d, sim := newSimDrive(t, DefaultConfig())
	for _, m := range sim.Motors {
		m.TicksPerPoll = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := d.RunToPosition(ctx, Pose{100, 100, 100, 100})
	if err != context.Canceled {
		t.Fatalf("Expected cancellation, got %v", err)
	}
	if sim.Motors[FrontLeft].Power() != 0 {
		t.Error("Motors left running after cancellation")
	}
}
