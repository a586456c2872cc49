package hw

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/bno08x"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/config"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/drive"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/pca9685"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/picobldc"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/robot"
)

// Hardware is everything the robot is built from, real or simulated.
type Hardware struct {
	Motors drive.PerWheel[hardware.Motor]
	IMU    hardware.IMU
	Clock  hardware.Clock
	Parts  robot.Parts

	// Sim is set when the hardware is simulated.
	Sim *hardware.SimRobot

	start   []func(ctx context.Context)
	closers []func() error
}

// Open brings up the hardware described by cfg.
func Open(cfg config.Hardware) (*Hardware, error) {
	if cfg.Simulate {
		return Simulated(cfg.SimVerbose), nil
	}

	h := &Hardware{
		Clock: hardware.NewSystemClock(),
	}

	pico, err := picobldc.New(cfg.I2CBus)
	if err != nil {
		return nil, err
	}
	h.closers = append(h.closers, pico.Close)
	if err := pico.SetWatchdog(cfg.MotorWatchdog); err != nil {
		h.Close()
		return nil, errors.Wrap(err, "failed to set motor watchdog")
	}
	h.Motors = WheelMotors(pico, cfg.ReverseLeft)
	h.Parts.Pole = pico.PoleSensor()

	imu := bno08x.New(cfg.IMUSerialPort)
	h.IMU = imu
	h.start = append(h.start, func(ctx context.Context) {
		go imu.LoopReadingReports(ctx)
		go waitForIMU(ctx, imu)
	})

	// The robot can still drive without bumpers or a grabber.
	if l, err := hardware.NewGPIOTouch(cfg.BumperLeftPin); err != nil {
		fmt.Println("HW: left bumper unavailable:", err)
	} else {
		h.Parts.BumpL = l
	}
	if r, err := hardware.NewGPIOTouch(cfg.BumperRightPin); err != nil {
		fmt.Println("HW: right bumper unavailable:", err)
	} else {
		h.Parts.BumpR = r
	}
	if cfg.ServoBus != "" {
		servos, err := pca9685.New(cfg.ServoBus)
		if err != nil {
			fmt.Println("HW: grabber unavailable:", err)
		} else {
			h.closers = append(h.closers, servos.Close)
			h.Parts.Grabber = &robot.ServoGrabber{
				Servos:         servos,
				Port:           cfg.GrabberPort,
				OpenPosition:   cfg.GrabberOpen,
				ClosedPosition: cfg.GrabberClosed,
			}
		}
	}
	if lift, closer := openLift(cfg, openPicoMotor); lift != nil {
		h.closers = append(h.closers, closer)
		h.Parts.Lift = lift
	}
	return h, nil
}

// openLift runs the lift from one channel of a second motor board.  It returns nil, and the
// robot falls back to a simulated lift, if there's no board configured or it fails to open.
func openLift(
	cfg config.Hardware,
	openMotor func(bus string, channel int) (hardware.Motor, func() error, error),
) (robot.Lift, func() error) {
	if cfg.LiftBus == "" {
		fmt.Println("HW: no lift board configured, lift is simulated")
		return nil, nil
	}
	m, closer, err := openMotor(cfg.LiftBus, cfg.LiftChannel)
	if err != nil {
		fmt.Println("HW: lift unavailable, lift is simulated:", err)
		return nil, nil
	}
	return robot.NewMotorLift(m, cfg.LiftPower), closer
}

func openPicoMotor(bus string, channel int) (hardware.Motor, func() error, error) {
	if channel < 0 || channel >= picobldc.NumChannels {
		return nil, nil, errors.Errorf("no motor channel %d", channel)
	}
	pico, err := picobldc.New(bus)
	if err != nil {
		return nil, nil, err
	}
	return pico.Motor(channel), pico.Close, nil
}

const IMUStartTimeout = 2 * time.Second

// waitForIMU reports whether the IMU came up.  Headings read as zero until it does.
func waitForIMU(ctx context.Context, imu *bno08x.BNO08X) {
	ctx, cancel := context.WithTimeout(ctx, IMUStartTimeout)
	defer cancel()
	report, err := imu.WaitForReportAfter(ctx, time.Time{})
	if err != nil {
		fmt.Println("HW: IMU not reporting:", err)
		return
	}
	fmt.Println("HW: IMU online:", report)
}

// WheelMotors maps the board's channels onto the wheels.
func WheelMotors(pico *picobldc.PicoBLDC, reverseLeft bool) drive.PerWheel[hardware.Motor] {
	var motors drive.PerWheel[hardware.Motor]
	motors[drive.FrontLeft] = pico.Motor(picobldc.ChanFrontLeft)
	motors[drive.FrontRight] = pico.Motor(picobldc.ChanFrontRight)
	motors[drive.BackLeft] = pico.Motor(picobldc.ChanBackLeft)
	motors[drive.BackRight] = pico.Motor(picobldc.ChanBackRight)
	if reverseLeft {
		for _, w := range drive.LeftWheels {
			motors[w] = hardware.Reverse(motors[w])
		}
	}
	return motors
}

// Simulated returns a full set of simulated hardware.
func Simulated(verbose bool) *Hardware {
	sim := hardware.NewSimRobot(verbose)
	h := &Hardware{
		Clock: sim.Clock,
		IMU:   sim.IMU,
		Sim:   sim,
		Parts: robot.Parts{
			BumpL:   sim.BumpL,
			BumpR:   sim.BumpR,
			Pole:    sim.PoleSensor(),
			Lift:    &robot.SimLift{},
			Grabber: &robot.SimGrabber{},
		},
	}
	for w, m := range sim.Motors {
		h.Motors[w] = m
	}
	return h
}

// Start kicks off any background readers (the IMU).
func (h *Hardware) Start(ctx context.Context) {
	for _, s := range h.start {
		s(ctx)
	}
}

// NewRobot builds the drive and the robot on top of this hardware.
func (h *Hardware) NewRobot(cfg config.Config) (*robot.Robot, error) {
	d, err := drive.New(cfg.Drive, h.Motors, h.IMU, h.Clock)
	if err != nil {
		return nil, err
	}
	return robot.New(cfg.Robot, d, h.Parts)
}

// Close stops the motors and releases the hardware.
func (h *Hardware) Close() {
	fmt.Println("HW: Zeroing motors")
	for _, m := range h.Motors {
		if m != nil {
			m.SetPower(0)
		}
	}
	for _, c := range h.closers {
		if err := c(); err != nil {
			fmt.Println("HW: close failed:", err)
		}
	}
}
