package robot

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/debounce"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/drive"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/hardware"
)

// Lift raises and lowers the cone lift, in encoder ticks.
type Lift interface {
	Position() int
	SetPosition(ticks int)
}

type Grabber interface {
	Open()
	Close()
}

// Vision reports where the pole is in the camera image, in pixels from the left edge.
type Vision interface {
	PolePosition() float64
}

type Config struct {
	InchesPerBox    float64 `yaml:"inchesPerBox"`
	DeliverFraction float64 `yaml:"deliverFraction"`
	LiftDrop        int     `yaml:"liftDrop"`
	// PoleCentre is the pixel column where the pole appears when the robot is lined up.
	PoleCentre     float64       `yaml:"poleCentre"`
	PoleDeadband   float64       `yaml:"poleDeadband"`
	PoleTurnPower  float64       `yaml:"poleTurnPower"`
	PoleTimeout    time.Duration `yaml:"poleTimeout"`
	DeliverPause   time.Duration `yaml:"deliverPause"`
	StickTurnScale float64       `yaml:"stickTurnScale"`
}

func DefaultConfig() Config {
	return Config{
		InchesPerBox:    23.3,
		DeliverFraction: 0.3,
		LiftDrop:        220,
		PoleCentre:      70,
		PoleDeadband:    5,
		PoleTurnPower:   0.5,
		PoleTimeout:     2 * time.Second,
		DeliverPause:    100 * time.Millisecond,
		StickTurnScale:  -0.7,
	}
}

// Parts are the robot's collaborators other than the drivetrain.  Anything left nil is replaced
// by a stand-in that does nothing.
type Parts struct {
	BumpL   hardware.TouchSensor
	BumpR   hardware.TouchSensor
	Pole    hardware.DistanceSensor
	Lift    Lift
	Grabber Grabber
	Vision  Vision
}

type Robot struct {
	Drive *drive.Drive
	Parts

	cfg    Config
	bumper debounce.Debouncer
}

func New(cfg Config, d *drive.Drive, parts Parts) (*Robot, error) {
	if d == nil {
		return nil, errors.New("robot needs a drive")
	}
	if parts.BumpL == nil || parts.BumpR == nil {
		fmt.Println("Robot: no bumpers fitted")
		unpressed := hardware.TouchFunc(func() bool { return false })
		if parts.BumpL == nil {
			parts.BumpL = unpressed
		}
		if parts.BumpR == nil {
			parts.BumpR = unpressed
		}
	}
	if parts.Pole == nil {
		fmt.Println("Robot: no pole sensor fitted")
		parts.Pole = hardware.FarAway
	}
	if parts.Lift == nil {
		fmt.Println("Robot: no lift fitted, using a simulated one")
		parts.Lift = &SimLift{}
	}
	if parts.Grabber == nil {
		fmt.Println("Robot: no grabber fitted")
		parts.Grabber = &SimGrabber{}
	}
	if parts.Vision == nil {
		fmt.Println("Robot: no camera fitted")
		parts.Vision = FixedVision(cfg.PoleCentre)
	}
	return &Robot{
		Drive: d,
		Parts: parts,
		cfg:   cfg,
	}, nil
}

func (r *Robot) Config() Config {
	return r.cfg
}

// HandleGamepad drives robot-centric from the left stick, turning with the right stick.
func (r *Robot) HandleGamepad(lx, ly, rx float64) {
	r.Drive.CalculateDirections(lx, ly, r.cfg.StickTurnScale*rx)
	r.Drive.ApplyPower()
}

// BumperPressed is true once each time both bumpers become pressed together.
func (r *Robot) BumperPressed() bool {
	return r.bumper.IsPressed(r.BumpL.IsPressed() && r.BumpR.IsPressed())
}

func (r *Robot) ResetBumper() {
	r.bumper.Reset()
}

// PoleHarmonization turns on the spot until the camera sees the pole in the centre of the image,
// or until PoleTimeout.  Running out of time is not an error.
func (r *Robot) PoleHarmonization(ctx context.Context) error {
	clock := r.Drive.Clock()
	offset := r.Vision.PolePosition() - r.cfg.PoleCentre
	err := drive.Poll(ctx, clock, r.cfg.PoleTimeout, r.Drive.Config().PollInterval, func() bool {
		if math.Abs(offset) < r.cfg.PoleDeadband {
			return true
		}
		r.Drive.CalculateDirections(0, 0, math.Copysign(r.cfg.PoleTurnPower, offset))
		r.Drive.ApplyPower()
		offset = r.Vision.PolePosition() - r.cfg.PoleCentre
		return false
	})
	r.Drive.CalculateDirections(0, 0, 0)
	r.Drive.ApplyPower()
	if drive.IsTimeout(err) {
		fmt.Printf("Robot: pole still %.1f off centre, carrying on\n", offset)
		return nil
	}
	return err
}

// Deliver creeps toward the pole until the pole sensor triggers, drops the lift, lets go of the
// cone and backs off to where it started.
func (r *Robot) Deliver(ctx context.Context) error {
	r.Drive.Forward()
	if err := r.Drive.InterruptableGoDist(ctx, r.cfg.InchesPerBox*r.cfg.DeliverFraction, r.Pole); err != nil {
		return errors.Wrap(err, "approaching pole")
	}
	if err := r.Sleep(ctx, r.cfg.DeliverPause); err != nil {
		return err
	}
	r.Lift.SetPosition(r.Lift.Position() - r.cfg.LiftDrop)
	r.Grabber.Open()
	if err := r.Sleep(ctx, r.cfg.DeliverPause); err != nil {
		return err
	}
	if err := r.Drive.RestorePosition(ctx); err != nil {
		return errors.Wrap(err, "backing off pole")
	}
	return nil
}

// Sleep waits without touching the motors.
func (r *Robot) Sleep(ctx context.Context, d time.Duration) error {
	return r.Drive.Hold(ctx, d)
}

func (r *Robot) Heading() float64 {
	return r.Drive.Heading()
}
