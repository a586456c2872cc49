package main

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/config"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/drive"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/hw"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/robot"
)

// Flags are parsed once from the command line.
var Flags struct {
	Config string `help:"Config file." default:"${config_path}"`
	Sim    bool   `help:"Use simulated hardware."`
}

// CLI is the grammar of the interactive shell.
var CLI struct {
	Quit QuitCmd `cmd:"" help:"Quit"`

	Dist     DistCmd     `cmd:"" help:"Drive a distance in inches."`
	For      ForCmd      `cmd:"" help:"Drive for a time."`
	Seek     SeekCmd     `cmd:"" help:"Run each wheel to an encoder target."`
	Turn     TurnCmd     `cmd:"" help:"Turn by degrees on the IMU."`
	TurnAbs  TurnAbsCmd  `cmd:"" name:"turn-abs" help:"Turn to an absolute heading."`
	Rotate   RotateCmd   `cmd:"" help:"Rotate by degrees on the encoders."`
	Record   RecordCmd   `cmd:"" help:"Record the current encoder positions."`
	Restore  RestoreCmd  `cmd:"" help:"Drive back to the recorded positions."`
	Speed    SpeedCmd    `cmd:"" help:"Push a speed scale."`
	EndSpeed EndSpeedCmd `cmd:"" name:"end-speed" help:"Pop the speed scale."`
	Status   StatusCmd   `cmd:"" help:"Show heading, encoders and speed."`
	Pole     PoleCmd     `cmd:"" help:"Line up on the pole with the camera."`
	Deliver  DeliverCmd  `cmd:"" help:"Deliver onto the pole."`
	Sim      SimCmd      `cmd:"" help:"Poke the simulated sensors."`
}

type Context struct {
	ctx   context.Context
	hw    *hw.Hardware
	robot *robot.Robot
}

func (c *Context) drive() *drive.Drive {
	return c.robot.Drive
}

func pending(direction string) (x, y, turn float64) {
	switch direction {
	case "forward":
		return 0, -1, 0
	case "backward":
		return 0, 1, 0
	case "left":
		return -1, 0, 0
	default:
		return 1, 0, 0
	}
}

type DistCmd struct {
	Direction string  `arg:"" enum:"forward,backward,left,right"`
	Inches    float64 `arg:""`
	Smooth    bool    `help:"Use the power smoothing curve."`
	Power     float64 `help:"Run at this power with a slow settle pass."`
	Pole      bool    `help:"Stop early if the pole sensor triggers."`
	Bumper    bool    `help:"Stop early if both bumpers are pressed."`
}

func (c *DistCmd) Run(ctx *Context) error {
	d := ctx.drive()
	d.CalculateDirections(pending(c.Direction))
	switch {
	case c.Pole:
		return d.InterruptableGoDist(ctx.ctx, c.Inches, ctx.robot.Pole)
	case c.Bumper:
		return d.BumperGoDist(ctx.ctx, c.Inches, ctx.robot.BumpL, ctx.robot.BumpR)
	case c.Power != 0:
		return d.VariableGoDist(ctx.ctx, c.Inches, c.Power)
	case c.Smooth:
		return d.GoDistSmooth(ctx.ctx, c.Inches)
	default:
		return d.GoDist(ctx.ctx, c.Inches)
	}
}

type ForCmd struct {
	Direction string        `arg:"" enum:"forward,backward,left,right"`
	Duration  time.Duration `arg:""`
}

func (c *ForCmd) Run(ctx *Context) error {
	d := ctx.drive()
	d.CalculateDirections(pending(c.Direction))
	return d.GoFor(ctx.ctx, c.Duration)
}

type SeekCmd struct {
	Targets []int  `arg:"" help:"fL fR bL bR"`
	Watch   string `enum:"all,left,right" default:"all" help:"Which wheels to watch for convergence."`
	Smooth  bool   `help:"Use the power smoothing curve."`
}

func (c *SeekCmd) Run(ctx *Context) error {
	if len(c.Targets) != drive.NumWheels {
		return errors.Errorf("need %d targets, got %d", drive.NumWheels, len(c.Targets))
	}
	var targets drive.Pose
	copy(targets[:], c.Targets)
	d := ctx.drive()
	switch {
	case c.Smooth:
		return d.RunToPositionSmooth(ctx.ctx, targets)
	case c.Watch == "left":
		return d.RunToPositionIgnoreRight(ctx.ctx, targets)
	case c.Watch == "right":
		return d.RunToPositionIgnoreLeft(ctx.ctx, targets)
	default:
		return d.RunToPosition(ctx.ctx, targets)
	}
}

type TurnCmd struct {
	Degrees float64 `arg:""`
	PID     bool    `name:"pid" help:"Use the PID controller."`
}

func (c *TurnCmd) Run(ctx *Context) error {
	if c.PID {
		return ctx.drive().TurnPID(ctx.ctx, c.Degrees)
	}
	return ctx.drive().Turn(ctx.ctx, c.Degrees)
}

type TurnAbsCmd struct {
	Heading float64 `arg:""`
}

func (c *TurnAbsCmd) Run(ctx *Context) error {
	return ctx.drive().TurnAbsolute(ctx.ctx, c.Heading)
}

type RotateCmd struct {
	Degrees int     `arg:""`
	Left    bool    `help:"Rotate left instead of right."`
	Gyro    bool    `help:"Rotate left, then correct onto --heading with the IMU."`
	Heading float64 `help:"Heading for --gyro."`
}

func (c *RotateCmd) Run(ctx *Context) error {
	d := ctx.drive()
	switch {
	case c.Gyro:
		return d.RotateGyro(ctx.ctx, c.Degrees, c.Heading)
	case c.Left:
		return d.RotateLeftEncoder(ctx.ctx, c.Degrees)
	default:
		return d.RotateRightEncoder(ctx.ctx, c.Degrees)
	}
}

type RecordCmd struct{}

func (c *RecordCmd) Run(ctx *Context) error {
	ctx.drive().RecordPosition()
	fmt.Println("Recorded", ctx.drive().Recorded())
	return nil
}

type RestoreCmd struct{}

func (c *RestoreCmd) Run(ctx *Context) error {
	return ctx.drive().RestorePosition(ctx.ctx)
}

type SpeedCmd struct {
	Speed float64 `arg:""`
}

func (c *SpeedCmd) Run(ctx *Context) error {
	ctx.drive().VariableSpeedMode(c.Speed)
	return nil
}

type EndSpeedCmd struct{}

func (c *EndSpeedCmd) Run(ctx *Context) error {
	ctx.drive().EndVariableSpeedMode()
	return nil
}

type StatusCmd struct{}

func (c *StatusCmd) Run(ctx *Context) error {
	d := ctx.drive()
	fmt.Printf("Heading: %.2f\n", ctx.robot.Heading())
	fmt.Printf("Encoders: %v\n", d.Positions())
	fmt.Printf("Recorded: %v\n", d.Recorded())
	fmt.Printf("Speed: %.2f\n", d.Speed())
	fmt.Printf("Pole: %.1fcm\n", ctx.robot.Pole.DistanceCM())
	return nil
}

type PoleCmd struct{}

func (c *PoleCmd) Run(ctx *Context) error {
	return ctx.robot.PoleHarmonization(ctx.ctx)
}

type DeliverCmd struct{}

func (c *DeliverCmd) Run(ctx *Context) error {
	return ctx.robot.Deliver(ctx.ctx)
}

type SimCmd struct {
	Pole SimPoleCmd `cmd:"" help:"Set the pole distance in cm (0 for nothing in range)."`
	Bump SimBumpCmd `cmd:"" help:"Press or release both bumpers."`
	Yaw  SimYawCmd  `cmd:"" help:"Set the yaw."`
}

func simulator(ctx *Context) (*hardware.SimRobot, error) {
	if ctx.hw.Sim == nil {
		return nil, errors.New("not running on simulated hardware")
	}
	return ctx.hw.Sim, nil
}

type SimPoleCmd struct {
	CM float64 `arg:"" name:"cm"`
}

func (c *SimPoleCmd) Run(ctx *Context) error {
	sim, err := simulator(ctx)
	if err != nil {
		return err
	}
	if c.CM > 0 {
		sim.PoleCM = c.CM
	} else {
		sim.PoleCM = math.Inf(1)
	}
	return nil
}

type SimBumpCmd struct {
	Pressed bool `arg:"" optional:"" default:"true"`
}

func (c *SimBumpCmd) Run(ctx *Context) error {
	sim, err := simulator(ctx)
	if err != nil {
		return err
	}
	sim.BumpL.Set(c.Pressed)
	sim.BumpR.Set(c.Pressed)
	return nil
}

type SimYawCmd struct {
	Degrees float64 `arg:""`
}

func (c *SimYawCmd) Run(ctx *Context) error {
	sim, err := simulator(ctx)
	if err != nil {
		return err
	}
	sim.IMU.SetYaw(c.Degrees)
	return nil
}

type QuitCmd struct{}

func (q *QuitCmd) Run(ctx *Context) error {
	return Quit
}

var Quit = errors.New("Quit")

func main() {
	fmt.Println("---- drivectl ----")
	fmt.Println("GOMAXPROCS", runtime.GOMAXPROCS(0))

	kong.Parse(&Flags, kong.Vars{"config_path": config.Path()})
	cfg := config.Load(Flags.Config)
	if Flags.Sim {
		cfg.Hardware.Simulate = true
	}

	h, err := hw.Open(cfg.Hardware)
	if err != nil {
		fmt.Println("Failed to open hardware:", err)
		os.Exit(1)
	}
	defer h.Close()
	bgCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(bgCtx)

	r, err := h.NewRobot(cfg)
	if err != nil {
		fmt.Println("Failed to create robot:", err)
		return
	}

	k, err := kong.New(&CLI,
		kong.Name("drivectl"),
		kong.Exit(func(int) {}),
	)
	if err != nil {
		panic(err)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Println("Enter a command:")
		if !scanner.Scan() {
			break
		}
		command := strings.Fields(scanner.Text())
		if len(command) == 0 {
			continue
		}
		parsed, err := k.Parse(command)
		if err != nil {
			fmt.Println("parse error:", err)
			continue
		}

		// Ctrl-C abandons the current maneuver rather than the whole program.
		cmdCtx, stop := signal.NotifyContext(bgCtx, syscall.SIGINT)
		start := time.Now()
		err = parsed.Run(&Context{ctx: cmdCtx, hw: h, robot: r})
		stop()
		if err == Quit {
			break
		} else if err != nil {
			r.Drive.Off()
			fmt.Println("ERROR:", err)
			continue
		}
		fmt.Printf("OK (%v)\n", time.Since(start).Round(time.Millisecond))
	}
}
