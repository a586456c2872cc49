package picobldc

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/hardware"
)

const (
	PicoAddr = 0x42
)

type Register byte

const (
	RegCtrl Register = iota
	RegStatus
	RegWatchdogTimeout
	RegFaultCount

	// Signed power, full scale is MaxPower.
	RegMot0V
	RegMot1V
	RegMot2V
	RegMot3V

	RegMot0Calib
	RegMot1Calib
	RegMot2Calib
	RegMot3Calib

	RegBattV // LSB=4mV
	RegCurrent
	RegPower

	RegTemperature // LSB = 0.01C

	// Run mode and brake flag, see ModeWord.
	RegMot0Mode
	RegMot1Mode
	RegMot2Mode
	RegMot3Mode

	// Signed target position for run-to-position mode, in encoder ticks.
	RegMot0Target
	RegMot1Target
	RegMot2Target
	RegMot3Target

	// Signed, wrapping, encoder count.  Zeroed by the reset mode.
	RegMot0Pos
	RegMot1Pos
	RegMot2Pos
	RegMot3Pos

	RegRangeMM // Pole sensor, LSB = 1mm, 0xffff = nothing in range.
)

const (
	BattVLSB       = 0.004
	CurrentLSB     = 0.0001831054688
	PowerLSB       = CurrentLSB * 20
	TemperatureLSB = 0.01

	MaxPower     = math.MaxInt16
	RangeNothing = 0xffff
)

const (
	RegCtrlEnableI2CControl uint16 = 1 << iota
	RegCtrlRun
	RegCtrlDoCalib
	RegCtrlReset
	RegCtrlWatchdogEnable
)

type StatusFlag uint16

const (
	RegStatusFault StatusFlag = 1 << iota
	RegStatusCalibDone
	RegStatusWatchdogExpired
)

// Channel wiring on the robot.
const (
	ChanBackRight = iota
	ChanFrontRight
	ChanFrontLeft
	ChanBackLeft

	NumChannels
)

const (
	modeFreeRun uint16 = iota
	modeResetEncoder
	modeRunToPosition

	modeBrakeFlag uint16 = 0x100
)

// ModeWord encodes a run mode and zero-power behaviour for a RegMotNMode register.
func ModeWord(mode hardware.RunMode, zpb hardware.ZeroPowerBehavior) uint16 {
	var w uint16
	switch mode {
	case hardware.StopAndResetEncoder:
		w = modeResetEncoder
	case hardware.RunToPosition:
		w = modeRunToPosition
	default:
		w = modeFreeRun
	}
	if zpb == hardware.Brake {
		w |= modeBrakeFlag
	}
	return w
}

// regDevice is the subset of *i2c.Device that we use.
type regDevice interface {
	Write(buf []byte) error
	ReadReg(reg byte, buf []byte) error
	Close() error
}

type PicoBLDC struct {
	lock sync.Mutex
	dev  regDevice
	open func() (regDevice, error)

	lastConfigWord  uint16
	lastConfigTime  time.Time
	watchdogEnabled bool

	channels [NumChannels]*Channel
}

const DefaultBus = "/dev/i2c-1"

func New(bus string) (*PicoBLDC, error) {
	if bus == "" {
		bus = DefaultBus
	}
	i2cBus := &i2c.Devfs{Dev: bus}
	open := func() (regDevice, error) {
		return i2c.Open(i2cBus, PicoAddr)
	}
	dev, err := open()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open Pico-BLDC on %s", i2cBus.Dev)
	}
	return newWithDevice(dev, open), nil
}

func newWithDevice(dev regDevice, open func() (regDevice, error)) *PicoBLDC {
	pico := &PicoBLDC{
		dev:  dev,
		open: open,
	}
	for n := range pico.channels {
		pico.channels[n] = &Channel{pico: pico, n: Register(n)}
	}
	return pico
}

// Motor returns the hardware.Motor for one channel of the board.
func (p *PicoBLDC) Motor(channel int) *Channel {
	return p.channels[channel]
}

func (p *PicoBLDC) Reset() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.maybeConfigure(true, false)
}

func (p *PicoBLDC) SetWatchdog(timeout time.Duration) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if timeout == 0 {
		// Disable.
		p.watchdogEnabled = false
		return p.maybeConfigure(false, false)
	}

	ms := timeout.Milliseconds()
	if ms > math.MaxUint16 {
		ms = math.MaxUint16
	}
	err := p.writeReg(RegWatchdogTimeout, uint16(ms))
	if err != nil {
		return err
	}

	p.watchdogEnabled = true
	return p.maybeConfigure(false, false)
}

func (p *PicoBLDC) Close() error {
	_ = p.Reset()
	return p.dev.Close()
}

const writeRetries = 20

// writeWithRetries reopens the device between attempts.  It gives up with the last error after
// writeRetries attempts.
func (p *PicoBLDC) writeWithRetries(data []byte) error {
	var err error
	for tries := 0; tries < writeRetries; tries++ {
		err = p.dev.Write(data)
		if err == nil {
			if tries > 0 {
				fmt.Println("Pico: successfully programmed Pico-BLDC after retries")
			}
			return nil
		}
		fmt.Println("Pico: failed to write to Pico-BLDC:", err)
		time.Sleep(1 * time.Millisecond)
		_ = p.dev.Close()
		dev, openErr := p.open()
		if openErr != nil {
			fmt.Println("Pico: failed to reopen Pico-BLDC:", openErr)
			continue
		}
		p.dev = dev
	}
	return errors.Wrapf(err, "failed to write to Pico-BLDC after %d attempts", writeRetries)
}

func (p *PicoBLDC) maybeConfigure(resetMotorSpeeds bool, enableMotors bool) error {
	// Figure out if the config word has changed.
	var configWord uint16 = RegCtrlEnableI2CControl
	if resetMotorSpeeds {
		configWord |= RegCtrlReset
	}
	if enableMotors {
		configWord |= RegCtrlRun
	}
	if p.watchdogEnabled {
		configWord |= RegCtrlWatchdogEnable
	}

	if configWord == p.lastConfigWord && time.Since(p.lastConfigTime) < 100*time.Millisecond {
		// Skip writing config if we've done it recently.
		return nil
	}

	if p.lastConfigWord == 0 {
		// First time.  Figure out calibration...
		calib, err := p.readReg(RegMot3Calib)
		if err != nil {
			return err
		}
		if calib == 0 {
			// Calibration register empty, do a calibration.  The robot needs to be on blocks.
			fmt.Println("Pico: not calibrated, running calibration...")
			configWord |= RegCtrlDoCalib
		}
	}

	if err := p.writeReg(RegCtrl, configWord); err != nil {
		return err
	}

	if configWord&RegCtrlDoCalib != 0 {
		// Wait for calibration to finish.
		var lastPrint time.Time
		for {
			status, err := p.readReg(RegStatus)
			if err != nil {
				fmt.Printf("Pico: failed to read status register: %v\n", err)
			}
			if status&uint16(RegStatusCalibDone) != 0 {
				break
			}
			if time.Since(lastPrint) > time.Second {
				fmt.Printf("Pico: waiting for calibration to finish... Status=%x\n", status)
				lastPrint = time.Now()
			}
		}
	}

	if err := p.writeReg(RegStatus, uint16(RegStatusCalibDone)); err != nil {
		return err
	}

	p.lastConfigTime = time.Now()
	p.lastConfigWord = configWord & (^RegCtrlReset) /* Reset flag is not persistent */
	return nil
}

func (p *PicoBLDC) BattVolts() (float32, error) {
	raw, err := p.lockedReadReg(RegBattV)
	if err != nil {
		return 0, err
	}
	return float32(raw) * BattVLSB, nil
}

func (p *PicoBLDC) TemperatureC() (float32, error) {
	raw, err := p.lockedReadReg(RegTemperature)
	if err != nil {
		return 0, err
	}
	return float32(raw) * TemperatureLSB, nil
}

func (p *PicoBLDC) Status() (StatusFlag, error) {
	raw, err := p.lockedReadReg(RegStatus)
	if err != nil {
		return 0, err
	}
	return StatusFlag(raw), nil
}

// RangeCM reads the pole sensor.  Nothing in range reads as +Inf.
func (p *PicoBLDC) RangeCM() (float64, error) {
	raw, err := p.lockedReadReg(RegRangeMM)
	if err != nil {
		return math.Inf(1), err
	}
	if raw == RangeNothing {
		return math.Inf(1), nil
	}
	return float64(raw) / 10, nil
}

// PoleSensor adapts RangeCM to a hardware.DistanceSensor.  Read failures are logged and read as
// nothing in range.
func (p *PicoBLDC) PoleSensor() hardware.DistanceSensor {
	return hardware.DistanceFunc(func() float64 {
		cm, err := p.RangeCM()
		if err != nil {
			fmt.Println("Pico: failed to read range:", err)
		}
		return cm
	})
}

func (p *PicoBLDC) lockedReadReg(reg Register) (uint16, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.readReg(reg)
}

func (p *PicoBLDC) writeReg(reg Register, value uint16) error {
	return p.writeWithRetries([]byte{byte(reg), byte(value >> 8), byte(value)})
}

func (p *PicoBLDC) readReg(reg Register) (uint16, error) {
	var buf [2]byte
	err := p.dev.ReadReg(byte(reg), buf[:])
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

// Channel is one motor on the board.  The hardware.Motor interface has no errors, so I/O failures
// are logged and the motor carries on with its last known state.
type Channel struct {
	pico *PicoBLDC
	n    Register

	mode     hardware.RunMode
	zpb      hardware.ZeroPowerBehavior
	encoder  EncoderTracker
	position int
}

var _ hardware.Motor = (*Channel)(nil)

func (c *Channel) SetPower(power float64) {
	p := c.pico
	p.lock.Lock()
	defer p.lock.Unlock()

	if err := p.maybeConfigure(false, true); err != nil {
		fmt.Printf("Pico: failed to enable motors: %v\n", err)
		return
	}
	if err := p.writeReg(RegMot0V+c.n, uint16(PowerToRaw(power))); err != nil {
		fmt.Printf("Pico: failed to set power on channel %d: %v\n", c.n, err)
	}
}

func (c *Channel) SetTargetPosition(ticks int) {
	p := c.pico
	p.lock.Lock()
	defer p.lock.Unlock()

	if ticks > math.MaxInt16 || ticks < math.MinInt16 {
		fmt.Printf("Pico: target %d out of range on channel %d, clamping\n", ticks, c.n)
	}
	if err := p.writeReg(RegMot0Target+c.n, uint16(clampInt16(ticks))); err != nil {
		fmt.Printf("Pico: failed to set target on channel %d: %v\n", c.n, err)
	}
}

func (c *Channel) CurrentPosition() int {
	p := c.pico
	p.lock.Lock()
	defer p.lock.Unlock()

	raw, err := p.readReg(RegMot0Pos + c.n)
	if err != nil {
		fmt.Printf("Pico: failed to read position on channel %d: %v\n", c.n, err)
		return c.position
	}
	c.position = int(c.encoder.Update(int16(raw)))
	return c.position
}

func (c *Channel) SetMode(mode hardware.RunMode) {
	p := c.pico
	p.lock.Lock()
	defer p.lock.Unlock()

	c.mode = mode
	if mode == hardware.StopAndResetEncoder {
		c.encoder.Zero()
		c.position = 0
	}
	c.writeMode()
}

func (c *Channel) SetZeroPowerBehavior(zpb hardware.ZeroPowerBehavior) {
	p := c.pico
	p.lock.Lock()
	defer p.lock.Unlock()

	c.zpb = zpb
	c.writeMode()
}

func (c *Channel) writeMode() {
	if err := c.pico.writeReg(RegMot0Mode+c.n, ModeWord(c.mode, c.zpb)); err != nil {
		fmt.Printf("Pico: failed to set mode on channel %d: %v\n", c.n, err)
	}
}

// PowerToRaw converts a power in [-1, 1] to the board's signed scale, clamping out of range
// values.
func PowerToRaw(power float64) int16 {
	if power > 1 {
		power = 1
	} else if power < -1 {
		power = -1
	}
	return int16(math.Round(power * MaxPower))
}

func clampInt16(v int) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
