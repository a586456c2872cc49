package teleop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/joystick"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/robot"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/tunable"
)

const (
	BumperPollInterval = 50 * time.Millisecond
	TunableStep        = 5
)

// TeleopMode drives the robot from the gamepad: left stick translates, right stick turns.
// Holding L2 drops to the slow-mode speed; Cross delivers onto the pole and Triangle lines up on
// it.  The D-pad selects and adjusts the tunables.
type TeleopMode struct {
	robot *robot.Robot

	tunables  tunable.Tunables
	slowSpeed *tunable.Tunable
	turnScale *tunable.Tunable

	cancel         context.CancelFunc
	stopWG         sync.WaitGroup
	joystickEvents chan *joystick.Event
}

func New(r *robot.Robot) *TeleopMode {
	m := &TeleopMode{
		robot:          r,
		joystickEvents: make(chan *joystick.Event, 16),
	}
	m.slowSpeed = m.tunables.Create("slow-speed-percent", 40, 5, 100)
	m.turnScale = m.tunables.Create("turn-percent", 100, 10, 200)
	return m
}

func (m *TeleopMode) Name() string {
	return "Teleop mode"
}

func (m *TeleopMode) Start(ctx context.Context) {
	m.stopWG.Add(1)
	var loopCtx context.Context
	loopCtx, m.cancel = context.WithCancel(ctx)
	go m.loop(loopCtx)
}

func (m *TeleopMode) Stop() {
	m.cancel()
	m.stopWG.Wait()
}

// OnJoystickEvent queues an event for the mode's loop.  Events are dropped while a maneuver is
// running and the queue is full; the next stick event brings the state back up to date.
func (m *TeleopMode) OnJoystickEvent(event *joystick.Event) {
	select {
	case m.joystickEvents <- event:
	default:
		fmt.Println("Teleop: busy, dropped", event)
	}
}

func (m *TeleopMode) loop(ctx context.Context) {
	defer m.stopWG.Done()
	d := m.robot.Drive
	defer d.Off()

	var gamepad joystick.Gamepad
	gamepad.Deadzone = 0.05
	gamepad.Expo = 1.6
	slow := false
	defer func() {
		if slow {
			d.EndVariableSpeedMode()
		}
	}()

	bumperTicker := time.NewTicker(BumperPollInterval)
	defer bumperTicker.Stop()

	drive := func() {
		// The robot takes stick Y with up negative.
		m.robot.HandleGamepad(gamepad.LStickX, -gamepad.LStickY, gamepad.RStickX*m.turnScale.Percent())
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-bumperTicker.C:
			if m.robot.BumperPressed() {
				fmt.Println("Teleop: bumped, stopping")
				d.Off()
			}
		case event := <-m.joystickEvents:
			if gamepad.Update(event) {
				drive()
				continue
			}
			if event.Type == joystick.EventTypeButton {
				if event.Number == joystick.ButtonL2 && gamepad.L2 != slow {
					slow = gamepad.L2
					if slow {
						fmt.Println("Teleop: slow mode")
						d.VariableSpeedMode(m.slowSpeed.Percent())
					} else {
						fmt.Println("Teleop: normal speed")
						d.EndVariableSpeedMode()
					}
					drive()
					continue
				}
				if event.Value != 1 {
					continue
				}
				switch event.Number {
				case joystick.ButtonCross:
					fmt.Println("Teleop: delivering")
					if err := m.robot.Deliver(ctx); err != nil {
						fmt.Println("Teleop: deliver failed:", err)
					}
					drive()
				case joystick.ButtonTriangle:
					fmt.Println("Teleop: lining up on pole")
					if err := m.robot.PoleHarmonization(ctx); err != nil {
						fmt.Println("Teleop: pole alignment failed:", err)
					}
					drive()
				}
				continue
			}
			if event.Type == joystick.EventTypeAxis && event.Value != 0 {
				switch event.Number {
				case joystick.AxisDPadX:
					if event.Value > 0 {
						m.tunables.SelectNext()
					} else {
						m.tunables.SelectPrev()
					}
				case joystick.AxisDPadY:
					// D-pad up is negative.
					if event.Value < 0 {
						m.tunables.Current().Add(TunableStep)
					} else {
						m.tunables.Current().Add(-TunableStep)
					}
				}
			}
		}
	}
}
