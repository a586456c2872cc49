package hardware

import (
	"fmt"

	"github.com/pkg/errors"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

// GPIOTouch is a bumper microswitch wired between a GPIO pin and ground.
type GPIOTouch struct {
	pin gpio.PinIO
}

var _ TouchSensor = (*GPIOTouch)(nil)

// NewGPIOTouch opens the named pin (for example "GPIO17") as a pulled-up input.
func NewGPIOTouch(name string) (*GPIOTouch, error) {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialise periph")
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, errors.Errorf("no such GPIO pin %q", name)
	}
	if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, errors.Wrapf(err, "failed to configure %s as input", name)
	}
	fmt.Printf("HW: bumper on %s\n", pin)
	return &GPIOTouch{pin: pin}, nil
}

// IsPressed is true when the switch pulls the pin low.
func (g *GPIOTouch) IsPressed() bool {
	return g.pin.Read() == gpio.Low
}
