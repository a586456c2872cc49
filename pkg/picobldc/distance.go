package picobldc

// EncoderTracker extends the board's wrapping 16-bit encoder count to a full-width position.
type EncoderTracker struct {
	doneFirstPoll bool
	lastRawValue  int16

	accumulator int64
}

// Update feeds in a new raw reading and returns the accumulated position.  The raw count must be
// polled at least once per half wrap (32767 ticks) for the result to be right.
func (d *EncoderTracker) Update(raw int16) int64 {
	if d.doneFirstPoll {
		delta := raw - d.lastRawValue
		d.accumulator += int64(delta)
	} else {
		d.accumulator = int64(raw)
	}

	d.lastRawValue = raw
	d.doneFirstPoll = true
	return d.accumulator
}

func (d *EncoderTracker) Position() int64 {
	return d.accumulator
}

// Zero restarts counting from a freshly reset encoder.
func (d *EncoderTracker) Zero() {
	d.accumulator = 0
	d.lastRawValue = 0
	d.doneFirstPoll = true
}
