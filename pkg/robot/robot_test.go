package robot

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/drive"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/hardware"
)

func newSimRobot(t *testing.T, parts Parts) (*Robot, *hardware.SimRobot) {
	t.Helper()
	sim := hardware.NewSimRobot(false)
	var motors drive.PerWheel[hardware.Motor]
	for w, m := range sim.Motors {
		motors[w] = m
	}
	d, err := drive.New(drive.DefaultConfig(), motors, sim.IMU, sim.Clock)
	if err != nil {
		t.Fatalf("Failed to create drive: %v", err)
	}
	if parts.BumpL == nil {
		parts.BumpL = sim.BumpL
		parts.BumpR = sim.BumpR
	}
	if parts.Pole == nil {
		parts.Pole = sim.PoleSensor()
	}
	r, err := New(DefaultConfig(), d, parts)
	if err != nil {
		t.Fatalf("Failed to create robot: %v", err)
	}
	return r, sim
}

func expectPowers(t *testing.T, sim *hardware.SimRobot, expected [4]float64) {
	t.Helper()
	for i, m := range sim.Motors {
		if math.Abs(m.Power()-expected[i]) > 1e-9 {
			t.Errorf("%s power %v, expected %v", m.Name, m.Power(), expected[i])
		}
	}
}

func TestNewNeedsDrive(t *testing.T) {
	if _, err := New(DefaultConfig(), nil, Parts{}); err == nil {
		t.Fatal("Expected an error with no drive")
	}
}

func TestHandleGamepadTurnsWithRightStick(t *testing.T) {
	r, sim := newSimRobot(t, Parts{})
	r.HandleGamepad(0, 0, 1)
	expectPowers(t, sim, [4]float64{-0.7, 0.7, -0.7, 0.7})

	r.HandleGamepad(0, 0, 0)
	expectPowers(t, sim, [4]float64{0, 0, 0, 0})
}

func TestBumperPressedIsDebounced(t *testing.T) {
	r, sim := newSimRobot(t, Parts{})

	sim.BumpL.Set(true)
	if r.BumperPressed() {
		t.Fatal("One bumper shouldn't count")
	}
	sim.BumpR.Set(true)
	if !r.BumperPressed() {
		t.Fatal("Both bumpers should count")
	}
	if r.BumperPressed() {
		t.Fatal("Held bumpers should only fire once")
	}
	r.ResetBumper()
	if !r.BumperPressed() {
		t.Fatal("Reset should re-arm the latch")
	}
	sim.BumpL.Set(false)
	r.BumperPressed()
	sim.BumpL.Set(true)
	if !r.BumperPressed() {
		t.Fatal("Second press should fire")
	}
}

func TestPoleHarmonizationTurnsTowardPole(t *testing.T) {
	var seen []float64
	pos := 100.0
	var sim *hardware.SimRobot
	vision := VisionFunc(func() float64 {
		if sim != nil {
			seen = append(seen, sim.Motors[drive.FrontLeft].Power())
		}
		p := pos
		pos -= 10
		return p
	})
	r, s := newSimRobot(t, Parts{Vision: vision})
	sim = s

	if err := r.PoleHarmonization(context.Background()); err != nil {
		t.Fatal(err)
	}
	// 100, 90, 80 are off centre; 70 is on it.
	if len(seen) != 4 {
		t.Fatalf("Expected 4 camera reads, got %d", len(seen))
	}
	for _, p := range seen[1:] {
		if p != 0.5 {
			t.Errorf("Expected to turn at 0.5 while off centre, saw %v", p)
		}
	}
	expectPowers(t, sim, [4]float64{0, 0, 0, 0})
}

func TestPoleHarmonizationGivesUp(t *testing.T) {
	r, sim := newSimRobot(t, Parts{Vision: FixedVision(20)})

	start := sim.Clock.Peek()
	if err := r.PoleHarmonization(context.Background()); err != nil {
		t.Fatalf("Running out of time shouldn't be an error: %v", err)
	}
	if took := sim.Clock.Peek() - start; took < 2*time.Second || took > 3*time.Second {
		t.Errorf("Expected to give up after 2s, took %v", took)
	}
	expectPowers(t, sim, [4]float64{0, 0, 0, 0})
}

func TestPoleHarmonizationCancelled(t *testing.T) {
	r, _ := newSimRobot(t, Parts{Vision: FixedVision(20)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.PoleHarmonization(ctx); err != context.Canceled {
		t.Fatalf("Expected cancellation, got %v", err)
	}
}

func TestDeliver(t *testing.T) {
	reads := 0
	pole := hardware.DistanceFunc(func() float64 {
		reads++
		if reads > 10 {
			return 12
		}
		return 80
	})
	lift := &SimLift{}
	lift.SetPosition(500)
	grabber := &SimGrabber{}
	r, sim := newSimRobot(t, Parts{Pole: pole, Lift: lift, Grabber: grabber})

	if err := r.Deliver(context.Background()); err != nil {
		t.Fatal(err)
	}
	if lift.Position() != 280 {
		t.Errorf("Lift at %d, expected 280", lift.Position())
	}
	if !grabber.IsOpen() {
		t.Error("Grabber should have been opened")
	}
	for _, m := range sim.Motors {
		if m.Target() != 0 {
			t.Errorf("%s should have been sent back to the start, target %d", m.Name, m.Target())
		}
		if m.Power() != 0 {
			t.Errorf("%s left running at %v", m.Name, m.Power())
		}
	}
}

func TestMotorLift(t *testing.T) {
	m := hardware.NewSimMotor("lift", 1000)
	l := NewMotorLift(m, 0.8)
	l.SetPosition(-220)
	if m.Mode() != hardware.RunToPosition || m.Target() != -220 || m.Power() != 0.8 {
		t.Fatalf("Lift motor not seeking: mode %v target %d power %v", m.Mode(), m.Target(), m.Power())
	}
	if p := l.Position(); p != -220 {
		t.Errorf("Lift at %d", p)
	}
}

type recordingServos struct {
	port  int
	value float64
}

func (r *recordingServos) SetServo(port int, value float64) error {
	r.port, r.value = port, value
	return nil
}

func TestServoGrabber(t *testing.T) {
	servos := &recordingServos{}
	g := &ServoGrabber{Servos: servos, Port: 3, OpenPosition: 0.9, ClosedPosition: 0.2}
	g.Open()
	if servos.port != 3 || servos.value != 0.9 {
		t.Errorf("Open moved port %d to %v", servos.port, servos.value)
	}
	g.Close()
	if servos.value != 0.2 {
		t.Errorf("Close moved to %v", servos.value)
	}
}
