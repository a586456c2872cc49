package pca9685

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
)

const (
	DefaultAddr = 0x40

	RegMode1 = 0x00
	RegMode2 = 0x01

	// Each PWM output has two 16-bit (low byte first) registers.
	// First register is the on time, second is the off time.
	RegLEDBase = 0x06

	RegPreScale = 0xfe // Pre-scaler for PWM frequency.

	NumPorts = 16

	PWMPeriod = 20 * time.Millisecond

	ServoMinPulseDuration = 1000 * time.Microsecond
	ServoMaxPulseDuration = 2000 * time.Microsecond

	PWMMax = 4095

	ServoMinPWM = float64(PWMMax * ServoMinPulseDuration / PWMPeriod)
	ServoMaxPWM = float64(PWMMax * ServoMaxPulseDuration / PWMPeriod)
)

// regDevice is the subset of *i2c.Device that we use.
type regDevice interface {
	WriteReg(reg byte, buf []byte) error
	Close() error
}

// PCA9685 is the 16-channel servo board.  Servo positions are in [0, 1], mapping to 1-2ms pulses.
type PCA9685 struct {
	lock sync.Mutex
	dev  regDevice
}

func New(bus string) (*PCA9685, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: bus}, DefaultAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open PCA9685 on %s", bus)
	}
	p := &PCA9685{dev: dev}
	if err := p.Configure(); err != nil {
		_ = dev.Close()
		return nil, err
	}
	return p, nil
}

// Configure sets the PWM frequency to 50Hz and enables the outputs.
func (p *PCA9685) Configure() (err error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	defer func() {
		err = errors.Wrap(err, "failed to configure PCA9685")
	}()

	// Put device to sleep.
	if err = p.dev.WriteReg(RegMode1, []byte{0x11}); err != nil {
		return
	}
	// Update pre-scaler for 50Hz.
	if err = p.dev.WriteReg(RegPreScale, []byte{0x79}); err != nil {
		return
	}
	// Trigger a reset
	if err = p.dev.WriteReg(RegMode1, []byte{0x01}); err != nil {
		return
	}
	// Required delay after reset.
	time.Sleep(1 * time.Millisecond)
	// Enable.
	err = p.dev.WriteReg(RegMode1, []byte{0x81})
	return
}

// ServoToPWM converts a servo position in [0, 1] to an off count.
func ServoToPWM(value float64) uint16 {
	if value < 0 {
		value = 0
	} else if value > 1 {
		value = 1
	}
	return uint16(ServoMinPWM + value*(ServoMaxPWM-ServoMinPWM))
}

func (p *PCA9685) SetServo(port int, value float64) error {
	if port < 0 || port >= NumPorts {
		fmt.Println("PCA9685: servo port out of range:", port)
		return errors.Errorf("no servo port %d", port)
	}
	pwmValue := ServoToPWM(value)
	addr := RegLEDBase + port*4

	p.lock.Lock()
	defer p.lock.Unlock()
	return p.dev.WriteReg(byte(addr), []byte{0, 0, byte(pwmValue & 0xff), byte(pwmValue >> 8)})
}

func (p *PCA9685) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.dev.Close()
}
