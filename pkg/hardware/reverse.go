package hardware

// Reverse wraps a motor that is mounted the other way round.  Power, targets and positions are all
// negated so that callers see positive as "forwards" on every wheel.
func Reverse(m Motor) Motor {
	if r, ok := m.(*reversed); ok {
		return r.Motor
	}
	return &reversed{Motor: m}
}

type reversed struct {
	Motor
}

func (r *reversed) SetPower(power float64) {
	r.Motor.SetPower(-power)
}

func (r *reversed) SetTargetPosition(ticks int) {
	r.Motor.SetTargetPosition(-ticks)
}

func (r *reversed) CurrentPosition() int {
	return -r.Motor.CurrentPosition()
}
