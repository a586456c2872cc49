package drive

// Speed is the multiplier applied to every power sent by ApplyPower, and the power used by the
// position-seek moves.
func (d *Drive) Speed() float64 {
	return d.speed
}

func (d *Drive) SetSpeed(speed float64) {
	d.speed = speed
}

// VariableSpeedMode saves the current speed and switches to speed until the matching
// EndVariableSpeedMode.  Calls nest.
func (d *Drive) VariableSpeedMode(speed float64) {
	d.savedSpeed = append(d.savedSpeed, d.speed)
	d.speed = speed
}

// EndVariableSpeedMode restores the speed saved by the most recent VariableSpeedMode.  With
// nothing saved it does nothing.
func (d *Drive) EndVariableSpeedMode() {
	n := len(d.savedSpeed)
	if n == 0 {
		return
	}
	d.speed = d.savedSpeed[n-1]
	d.savedSpeed = d.savedSpeed[:n-1]
}

// PowerSmoothingPiecewise returns the smoothed power for progress x through a move, peaking at
// the current speed.  As a side effect the speed is clamped into [0, 1].
func (d *Drive) PowerSmoothingPiecewise(x float64) float64 {
	if d.speed > 1 {
		d.speed = 1
	} else if d.speed < 0 {
		d.speed = 0
	}
	return d.cfg.Smoothing.Power(x, d.speed)
}
