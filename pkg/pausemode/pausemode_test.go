package pausemode

import (
	"context"
	"testing"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/drive"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/hardware"
)

func TestPauseStopsDrive(t *testing.T) {
	sim := hardware.NewSimRobot(false)
	var motors drive.PerWheel[hardware.Motor]
	for w, m := range sim.Motors {
		motors[w] = m
	}
	d, err := drive.New(drive.DefaultConfig(), motors, sim.IMU, sim.Clock)
	if err != nil {
		t.Fatal(err)
	}
	d.Forward()

	p := &PauseMode{Drive: d}
	p.Start(context.Background())
	defer p.Stop()
	for _, m := range sim.Motors {
		if m.Power() != 0 {
			t.Errorf("%s still at %v", m.Name, m.Power())
		}
	}
	if d.PendingPowers() != (drive.PerWheel[float64]{}) {
		t.Errorf("Pending powers not cleared: %v", d.PendingPowers())
	}
}
