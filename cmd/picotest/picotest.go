package main

import (
	"fmt"
	"os"
	"time"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/picobldc"
)

// Spins each channel of the motor board in turn and prints what the board reports, to check the
// wiring against the channel map.
func main() {
	fmt.Println("Pico-BLDC test program")
	pico, err := picobldc.New(os.Getenv("I2C_BUS"))
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer pico.Close()
	fmt.Println("Created PicoBLDC object. Enabling watchdog...")

	if err := pico.SetWatchdog(time.Second); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	fmt.Println("Watchdog enabled.")

	names := map[int]string{
		picobldc.ChanFrontLeft:  "front left",
		picobldc.ChanFrontRight: "front right",
		picobldc.ChanBackLeft:   "back left",
		picobldc.ChanBackRight:  "back right",
	}
	for {
		for ch := 0; ch < picobldc.NumChannels; ch++ {
			m := pico.Motor(ch)
			m.SetMode(hardware.StopAndResetEncoder)
			m.SetMode(hardware.RunWithoutEncoder)
			m.SetPower(0.2)
			time.Sleep(500 * time.Millisecond)
			m.SetPower(0)

			battV, _ := pico.BattVolts()
			tempC, _ := pico.TemperatureC()
			status, _ := pico.Status()
			rangeCM, _ := pico.RangeCM()
			fmt.Printf("ch%d (%s): moved %d ticks; %.1fC %.2fV Status=%x Range=%.1fcm\n",
				ch, names[ch], m.CurrentPosition(), tempC, battV, status, rangeCM)
		}
		time.Sleep(2 * time.Second)
	}
}
