package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/config"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/hw"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/joystick"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/pausemode"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/teleop"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/testmode"
)

type Mode interface {
	Name() string
	Start(ctx context.Context)
	Stop()
}

type JoystickUser interface {
	OnJoystickEvent(event *joystick.Event)
}

func main() {
	fmt.Println("---- Mecanum ----")
	fmt.Println("GOMAXPROCS", runtime.GOMAXPROCS(0))

	cfg := config.Load(config.Path())

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())

	// Hook Ctrl-C etc.
	registerSignalHandlers(cancel)

	// Initialise the hardware.
	h, err := hw.Open(cfg.Hardware)
	if err != nil {
		fmt.Println("Failed to open hardware:", err)
		os.Exit(1)
	}
	defer func() {
		fmt.Println("Zeroing motors for shut down")
		h.Close()
		time.Sleep(100 * time.Millisecond)
	}()
	h.Start(ctx)

	r, err := h.NewRobot(cfg)
	if err != nil {
		fmt.Println("Failed to create robot:", err)
		return
	}

	// Wait for the joystick and kick off a background thread to read from it.
	joystickEvents := initJoystick(ctx, cancel, cfg.Hardware.JoystickDevice)
	if joystickEvents == nil {
		return
	}

	allModes := []Mode{
		teleop.New(r),
		testmode.New(r.Drive),
		&pausemode.PauseMode{Drive: r.Drive},
	}
	var activeMode Mode = allModes[0]
	fmt.Printf("----- %s -----\n", activeMode.Name())
	activeMode.Start(ctx)
	activeModeIdx := 0

	switchMode := func(delta int) {
		fmt.Println("Mode switch", delta)
		activeMode.Stop()
		r.Drive.Off()
		activeModeIdx += delta
		activeModeIdx = (activeModeIdx + len(allModes)) % len(allModes)
		activeMode = allModes[activeModeIdx]
		fmt.Printf("----- %s -----\n", activeMode.Name())
		activeMode.Start(ctx)
	}

	watchdog := time.NewTicker(5 * time.Second)
	defer watchdog.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("Context done, stopping active mode and shutting down")
			activeMode.Stop()
			return
		case event, ok := <-joystickEvents:
			if !ok {
				fmt.Println("Joystick events channel closed!")
				activeMode.Stop()
				cancel()
				return
			}
			// Intercept Options and Share to implement mode switching.
			if event.Type == joystick.EventTypeButton && event.Value == 1 {
				if event.Number == joystick.ButtonOptions {
					fmt.Printf("Options pressed: switching modes >>\n")
					switchMode(1)
					continue
				} else if event.Number == joystick.ButtonShare {
					fmt.Printf("Share pressed: switching modes <<\n")
					switchMode(-1)
					continue
				}
			}
			// Pass other joystick events through if this mode requires them.
			if ju, ok := activeMode.(JoystickUser); ok {
				ju.OnJoystickEvent(event)
			}
		case <-watchdog.C:
			fmt.Println("Main loop still running")
		}
	}
}

// initJoystick waits for the joystick to appear.  It returns nil if ctx is cancelled first.
func initJoystick(ctx context.Context, cancel context.CancelFunc, jDev string) chan *joystick.Event {
	joystickEvents := make(chan *joystick.Event, 1)
	firstLog := true
	for ctx.Err() == nil {
		j, err := joystick.NewJoystick(jDev)
		if err != nil {
			if firstLog {
				fmt.Printf("Waiting for joystick: %v.\n", err)
				firstLog = false
			}
			time.Sleep(1 * time.Second)
			continue
		}

		fmt.Printf("Opened joystick\n")
		go func() {
			defer cancel()
			err := loopReadingJoystickEvents(ctx, j, joystickEvents)
			fmt.Printf("Joystick failed: %v\n", err)
		}()
		return joystickEvents
	}
	return nil
}

func registerSignalHandlers(cancelFunc context.CancelFunc) {
	// Hook Ctrl-C to cause shut down.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		log.Println("Signal: ", s)
		cancelFunc()
		time.Sleep(2 * time.Second)
		os.Exit(0)
	}()
}

func loopReadingJoystickEvents(ctx context.Context, j *joystick.Joystick, events chan *joystick.Event) error {
	defer close(events)
	defer j.Close()
	for ctx.Err() == nil {
		event, err := j.ReadEvent()
		if err != nil {
			return err
		}
		events <- event
	}
	return ctx.Err()
}
