package debounce

// Debouncer turns a level (a switch that reads true for as long as it is held) into a single
// "pressed" event per press.
type Debouncer struct {
	latched bool
}

// IsPressed returns true only on the call where input goes from false to true.  The latch is
// released when input is seen false again.
func (d *Debouncer) IsPressed(input bool) bool {
	if !input {
		d.latched = false
		return false
	}
	if d.latched {
		return false
	}
	d.latched = true
	return true
}

// Reset releases the latch so that a held input fires again on the next call.
func (d *Debouncer) Reset() {
	d.latched = false
}
