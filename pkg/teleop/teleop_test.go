package teleop

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/config"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/hw"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/joystick"
)

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", desc)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestTeleopDrivesAndSlowMode(t *testing.T) {
	h := hw.Simulated(false)
	r, err := h.NewRobot(config.Default())
	if err != nil {
		t.Fatal(err)
	}
	m := New(r)
	m.Start(context.Background())

	allAt := func(p float64) func() bool {
		return func() bool {
			for _, motor := range h.Sim.Motors {
				if math.Abs(motor.Power()-p) > 1e-6 {
					return false
				}
			}
			return true
		}
	}

	// Stick fully up drives straight forwards.
	m.OnJoystickEvent(&joystick.Event{Type: joystick.EventTypeAxis, Number: joystick.AxisLStickY, Value: -32767})
	waitFor(t, "full speed forwards", allAt(math.Sqrt2/2))

	m.OnJoystickEvent(&joystick.Event{Type: joystick.EventTypeButton, Number: joystick.ButtonL2, Value: 1})
	waitFor(t, "slow mode", allAt(0.4*math.Sqrt2/2))

	m.OnJoystickEvent(&joystick.Event{Type: joystick.EventTypeButton, Number: joystick.ButtonL2, Value: 0})
	waitFor(t, "normal speed", allAt(math.Sqrt2/2))

	// D-pad up bumps the selected tunable.
	m.OnJoystickEvent(&joystick.Event{Type: joystick.EventTypeAxis, Number: joystick.AxisDPadY, Value: -32767})
	waitFor(t, "tunable change", func() bool { return m.slowSpeed.Get() == 45 })

	m.Stop()
	if !allAt(0)() {
		t.Error("Motors should be stopped when the mode stops")
	}
	if r.Drive.Speed() != 1 {
		t.Errorf("Speed left at %v", r.Drive.Speed())
	}
}

func TestTeleopBumperStops(t *testing.T) {
	h := hw.Simulated(false)
	r, err := h.NewRobot(config.Default())
	if err != nil {
		t.Fatal(err)
	}
	m := New(r)
	m.Start(context.Background())
	defer m.Stop()

	m.OnJoystickEvent(&joystick.Event{Type: joystick.EventTypeAxis, Number: joystick.AxisRStickX, Value: 32767})
	waitFor(t, "turning", func() bool { return h.Sim.Motors[0].Power() != 0 })

	h.Sim.BumpL.Set(true)
	h.Sim.BumpR.Set(true)
	waitFor(t, "bumper stop", func() bool { return h.Sim.Motors[0].Power() == 0 })
}
