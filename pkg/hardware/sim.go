package hardware

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/angle"
)

// Call is one recorded call on a SimMotor.
type Call struct {
	Op    string
	Value float64
}

func (c Call) String() string {
	return fmt.Sprintf("%s(%v)", c.Op, c.Value)
}

// SimMotor is a simulated drive motor.  Its encoder only moves when the position is read, by
// TicksPerPoll at full power, so a polling loop drives the simulation forward.
type SimMotor struct {
	Name         string
	TicksPerPoll float64
	Verbose      bool

	lock     sync.Mutex
	power    float64
	target   int
	position float64
	mode     RunMode
	zpb      ZeroPowerBehavior
	calls    []Call
}

var _ Motor = (*SimMotor)(nil)

func NewSimMotor(name string, ticksPerPoll float64) *SimMotor {
	return &SimMotor{
		Name:         name,
		TicksPerPoll: ticksPerPoll,
	}
}

func (s *SimMotor) record(op string, v float64) {
	s.calls = append(s.calls, Call{Op: op, Value: v})
	if s.Verbose {
		fmt.Printf("SIM: %s %s(%v)\n", s.Name, op, v)
	}
}

func (s *SimMotor) SetPower(power float64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.power = power
	s.record("power", power)
}

func (s *SimMotor) SetTargetPosition(ticks int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.target = ticks
	s.record("target", float64(ticks))
}

func (s *SimMotor) SetMode(mode RunMode) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.mode = mode
	if mode == StopAndResetEncoder {
		s.position = 0
	}
	s.record("mode", float64(mode))
}

func (s *SimMotor) SetZeroPowerBehavior(b ZeroPowerBehavior) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.zpb = b
	s.record("zpb", float64(b))
}

func (s *SimMotor) CurrentPosition() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	switch s.mode {
	case RunToPosition:
		step := math.Abs(s.power) * s.TicksPerPoll
		delta := float64(s.target) - s.position
		if math.Abs(delta) <= step {
			s.position = float64(s.target)
		} else {
			s.position += math.Copysign(step, delta)
		}
	case RunWithoutEncoder:
		s.position += s.power * s.TicksPerPoll
	}
	return int(math.Round(s.position))
}

// Power returns the last commanded power.
func (s *SimMotor) Power() float64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.power
}

func (s *SimMotor) Target() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.target
}

func (s *SimMotor) Mode() RunMode {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.mode
}

func (s *SimMotor) ZeroPowerBehavior() ZeroPowerBehavior {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.zpb
}

// SetPosition moves the simulated encoder without any other side effects.
func (s *SimMotor) SetPosition(ticks int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.position = float64(ticks)
}

// Calls returns the calls made so far and clears the record.
func (s *SimMotor) Calls() []Call {
	s.lock.Lock()
	defer s.lock.Unlock()
	c := s.calls
	s.calls = nil
	return c
}

// SimIMU integrates the turn component of four simulated motors' powers into a yaw.  Positive
// turn power (left wheels forwards, right wheels backwards) turns the robot clockwise, which
// decreases yaw.
type SimIMU struct {
	// Motors in front-left, front-right, back-left, back-right order.
	Motors           [4]*SimMotor
	Clock            Clock
	DegreesPerSecond float64
	// Turn power below this doesn't overcome static friction.
	Deadband float64

	lock    sync.Mutex
	yaw     angle.PlusMinus180
	rate    float64
	last    time.Duration
	started bool
}

var _ IMU = (*SimIMU)(nil)

func (s *SimIMU) update() {
	now := s.Clock.Elapsed()
	if !s.started {
		s.started = true
		s.last = now
	}
	dt := (now - s.last).Seconds()
	s.last = now

	fl, fr, bl, br := s.Motors[0].Power(), s.Motors[1].Power(), s.Motors[2].Power(), s.Motors[3].Power()
	turn := (fl + bl - fr - br) / 4
	if math.Abs(turn) < s.Deadband {
		turn = 0
	}
	s.rate = -turn * s.DegreesPerSecond
	s.yaw = s.yaw.AddFloat(s.rate * dt)
}

func (s *SimIMU) Yaw() float64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.update()
	return s.yaw.Float()
}

func (s *SimIMU) AngularVelocityZ() float64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.update()
	return s.rate
}

func (s *SimIMU) SetYaw(yaw float64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.yaw = angle.FromFloat(yaw)
}

// SimTouch is a touch sensor that reports whatever Pressed is set to.
type SimTouch struct {
	lock    sync.Mutex
	pressed bool
}

func (s *SimTouch) Set(pressed bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.pressed = pressed
}

func (s *SimTouch) IsPressed() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.pressed
}

// TouchFunc adapts a function to a TouchSensor.
type TouchFunc func() bool

func (f TouchFunc) IsPressed() bool {
	return f()
}

// DistanceFunc adapts a function to a DistanceSensor.
type DistanceFunc func() float64

func (f DistanceFunc) DistanceCM() float64 {
	return f()
}

// FarAway is a DistanceSensor that never sees anything.
var FarAway DistanceSensor = DistanceFunc(func() float64 { return math.Inf(1) })

// SimRobot bundles a complete set of simulated drive hardware.
type SimRobot struct {
	Clock   *StepClock
	Motors  [4]*SimMotor
	IMU     *SimIMU
	BumpL   *SimTouch
	BumpR   *SimTouch
	PoleCM  float64
	Verbose bool
}

// NewSimRobot creates simulated hardware that steps the clock 10ms per reading.
func NewSimRobot(verbose bool) *SimRobot {
	fmt.Println("SIM: Creating simulated hardware")
	clock := NewStepClock(10 * time.Millisecond)
	r := &SimRobot{
		Clock:   clock,
		BumpL:   &SimTouch{},
		BumpR:   &SimTouch{},
		PoleCM:  math.Inf(1),
		Verbose: verbose,
	}
	for i, name := range []string{"fL", "fR", "bL", "bR"} {
		r.Motors[i] = NewSimMotor(name, 20)
		r.Motors[i].Verbose = verbose
	}
	r.IMU = &SimIMU{
		Motors:           r.Motors,
		Clock:            clock,
		DegreesPerSecond: 180,
		Deadband:         0.05,
	}
	return r
}

func (r *SimRobot) PoleSensor() DistanceSensor {
	return DistanceFunc(func() float64 { return r.PoleCM })
}
