package robot

import (
	"fmt"
	"sync"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/hardware"
)

// MotorLift runs a lift motor to position at a fixed power.
type MotorLift struct {
	Motor hardware.Motor
	Power float64
}

func NewMotorLift(m hardware.Motor, power float64) *MotorLift {
	m.SetMode(hardware.StopAndResetEncoder)
	m.SetZeroPowerBehavior(hardware.Brake)
	return &MotorLift{Motor: m, Power: power}
}

func (l *MotorLift) Position() int {
	return l.Motor.CurrentPosition()
}

func (l *MotorLift) SetPosition(ticks int) {
	l.Motor.SetTargetPosition(ticks)
	l.Motor.SetMode(hardware.RunToPosition)
	l.Motor.SetPower(l.Power)
}

// ServoSetter is satisfied by the PCA9685 servo board.
type ServoSetter interface {
	SetServo(port int, value float64) error
}

// ServoGrabber is a claw on one servo channel.
type ServoGrabber struct {
	Servos ServoSetter
	Port   int
	// Servo positions in [0, 1].
	OpenPosition   float64
	ClosedPosition float64
}

func (g *ServoGrabber) Open() {
	g.set(g.OpenPosition)
}

func (g *ServoGrabber) Close() {
	g.set(g.ClosedPosition)
}

func (g *ServoGrabber) set(v float64) {
	if err := g.Servos.SetServo(g.Port, v); err != nil {
		fmt.Println("Robot: failed to move grabber:", err)
	}
}

// SimLift jumps straight to whatever position it is given.
type SimLift struct {
	lock     sync.Mutex
	position int
}

func (l *SimLift) Position() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.position
}

func (l *SimLift) SetPosition(ticks int) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.position = ticks
}

type SimGrabber struct {
	lock   sync.Mutex
	isOpen bool
}

func (g *SimGrabber) Open() {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.isOpen = true
}

func (g *SimGrabber) Close() {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.isOpen = false
}

func (g *SimGrabber) IsOpen() bool {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.isOpen
}

// FixedVision always sees the pole at the same pixel column.
type FixedVision float64

func (v FixedVision) PolePosition() float64 {
	return float64(v)
}

// VisionFunc adapts a function to a Vision.
type VisionFunc func() float64

func (f VisionFunc) PolePosition() float64 {
	return f()
}
