package drive

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/hardware"
)

// ErrTimeout is returned (wrapped) when a wait gives up before its condition holds.
var ErrTimeout = errors.New("timed out waiting for condition")

// Poll calls cond until it returns true.  It gives up with the context's error if ctx is done, or
// with ErrTimeout once timeout has elapsed on clock.  A zero timeout waits forever: a motor that
// never reaches its target or an IMU that stops updating will block the caller until ctx is
// cancelled.  interval is slept between polls; zero spins.
func Poll(ctx context.Context, clock hardware.Clock, timeout, interval time.Duration, cond func() bool) error {
	start := clock.Elapsed()
	for {
		if cond() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if timeout > 0 && clock.Elapsed()-start >= timeout {
			return errors.Wrapf(ErrTimeout, "after %v", timeout)
		}
		if interval > 0 {
			clock.Sleep(interval)
		}
	}
}

// IsTimeout reports whether err came from a Poll timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
