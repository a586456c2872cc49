package testmode

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/drive"
)

const (
	SideInches = 24
	LapPause   = 2 * time.Second
)

// TestMode drives a square over and over on the encoders, checking the heading at each corner, to
// show up calibration drift in the rotation ratios and ticks per inch.
type TestMode struct {
	drive  *drive.Drive
	cancel context.CancelFunc
	stopWG sync.WaitGroup

	lock sync.Mutex
	laps int
}

func New(d *drive.Drive) *TestMode {
	return &TestMode{
		drive: d,
	}
}

func (t *TestMode) Name() string {
	return "Test mode"
}

func (t *TestMode) Start(ctx context.Context) {
	t.stopWG.Add(1)
	var loopCtx context.Context
	loopCtx, t.cancel = context.WithCancel(ctx)
	go t.loop(loopCtx)
}

func (t *TestMode) Stop() {
	t.cancel()
	t.stopWG.Wait()
}

// Laps returns the number of complete squares driven.
func (t *TestMode) Laps() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.laps
}

func (t *TestMode) loop(ctx context.Context) {
	defer t.stopWG.Done()
	defer t.drive.Off()

	for ctx.Err() == nil {
		startHeading := t.drive.Heading()
		for side := 0; side < 4; side++ {
			if err := t.side(ctx); err != nil {
				fmt.Println("TestMode: stopped:", err)
				return
			}
			fmt.Printf("TestMode: corner %d heading %.1f\n", side, t.drive.Heading())
		}
		fmt.Printf("TestMode: lap done, heading drifted %.1f\n", t.drive.Heading()-startHeading)
		t.lock.Lock()
		t.laps++
		t.lock.Unlock()
		if err := t.drive.Hold(ctx, LapPause); err != nil {
			return
		}
	}
}

func (t *TestMode) side(ctx context.Context) error {
	t.drive.CalculateDirections(0, -1, 0)
	if err := t.drive.GoDist(ctx, SideInches); err != nil {
		return err
	}
	return t.drive.RotateRightEncoder(ctx, 90)
}
