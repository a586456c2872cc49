package joystick

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Button and pad mappings:
//
// Buttons
//
//    Square    = 0
//    Cross     = 1
//    Circle    = 2
//    Triangle  = 3
//    L1        = 4
//    R1        = 5
//    L2        = 6 (also an axis)
//    R2        = 7 (also an axis)
//    Share     = 8
//    Options   = 9
//    L stick   = 10
//    R stick   = 11
//    PS        = 12
//    Pad click = 13
//
// Axes
//
//    D-pad   u/d = 7 (up = -32767; down = +32767)
//            l/r = 6 (left = -32767; right = +32767)
//    L stick u/d = 1 (up = -32767; down = +32767)
//            l/r = 0 (left = -32767; right = +32767)
//    R stick u/d = 4 (up = -32767; down = +32767)
//            l/r = 3 (left = -32767; right = +32767)
//    L2          = 2 (unpressed = -32767; fully-pressed = 32767)
//    R2          = 5 (unpressed = -32767; fully-pressed = 32767)

type EventType uint8

const (
	EventTypeButton = 1
	EventTypeAxis   = 2
)

const (
	ButtonSquare   = 3
	ButtonCross    = 0
	ButtonCircle   = 1
	ButtonTriangle = 2
	ButtonL1       = 4
	ButtonR1       = 5
	ButtonL2       = 6
	ButtonR2       = 7
	ButtonShare    = 8
	ButtonOptions  = 9
	ButtonLStick   = 11
	ButtonRStick   = 12
	ButtonPS       = 10
	//ButtonPadClick =

	AxisLStickX = 0
	AxisLStickY = 1
	AxisRStickX = 3
	AxisRStickY = 4
	AxisDPadX   = 6
	AxisDPadY   = 7
)

func (e EventType) String() string {
	switch e {
	case EventTypeAxis:
		return "axis"
	case EventTypeButton:
		return "button"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(e))
	}
}

// Gamepad tracks the latest stick positions from a stream of events, normalised to [-1, 1] with
// up and right positive.
type Gamepad struct {
	LStickX, LStickY float64
	RStickX, RStickY float64
	L2, R2           bool
	// Deadzone is the stick travel, as a fraction of full scale, that reads as zero.
	Deadzone float64
	// Expo softens the centre of the stick travel; values above 1 give finer control at low
	// speed.  0 or 1 is linear.
	Expo float64
}

// Normalise maps a raw axis value to [-1, 1].
func Normalise(v int16) float64 {
	n := float64(v) / 32767.0
	if n < -1 {
		n = -1
	}
	return n
}

func (g *Gamepad) axis(v int16) float64 {
	n := Normalise(v)
	if n > -g.Deadzone && n < g.Deadzone {
		return 0
	}
	if g.Expo > 0 {
		n = applyExpo(n, g.Expo)
	}
	return n
}

func applyExpo(value float64, expo float64) float64 {
	absVal := math.Abs(value)
	absExpo := math.Pow(absVal, expo)
	signedExpo := math.Copysign(absExpo, value)
	return signedExpo
}

// Update applies an event and reports whether a stick moved.
func (g *Gamepad) Update(event *Event) bool {
	switch event.Type {
	case EventTypeAxis:
		switch event.Number {
		case AxisLStickX:
			g.LStickX = g.axis(event.Value)
		case AxisLStickY:
			g.LStickY = -g.axis(event.Value)
		case AxisRStickX:
			g.RStickX = g.axis(event.Value)
		case AxisRStickY:
			g.RStickY = -g.axis(event.Value)
		default:
			return false
		}
		return true
	case EventTypeButton:
		switch event.Number {
		case ButtonL2:
			g.L2 = event.Value == 1
		case ButtonR2:
			g.R2 = event.Value == 1
		}
	}
	return false
}

type Joystick struct {
	device  io.ReadCloser
	readBuf [8]byte

	deviceEpoch    uint32
	wallclockEpoch time.Time
}

type rawEvent struct {
	Time   uint32
	Value  int16
	Type   uint8
	Number uint8
}

type Event struct {
	Time   time.Time
	Value  int16
	Type   EventType
	Number uint8
}

func (e *Event) String() string {
	return fmt.Sprintf("%v(%v)=%v", e.Type, e.Number, e.Value)
}

func NewJoystick(device string) (*Joystick, error) {
	f, err := os.Open(device)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open joystick %s", device)
	}
	return newJoystick(f), nil
}

func newJoystick(r io.ReadCloser) *Joystick {
	return &Joystick{device: r}
}

func (j *Joystick) ReadEvent() (*Event, error) {
	var rawEvent rawEvent
	err := binary.Read(j.device, binary.LittleEndian, &rawEvent)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read joystick event")
	}

	if j.deviceEpoch == 0 {
		j.deviceEpoch = rawEvent.Time
		j.wallclockEpoch = time.Now()
	}

	return &Event{
		Time:   j.wallclockEpoch.Add(time.Duration(rawEvent.Time-j.deviceEpoch) * time.Millisecond),
		Value:  rawEvent.Value,
		Type:   EventType(rawEvent.Type & 0x7f),
		Number: rawEvent.Number,
	}, nil
}

func (j *Joystick) Close() error {
	return j.device.Close()
}
