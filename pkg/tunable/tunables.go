package tunable

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Tunable is an integer knob that can be adjusted from the gamepad while the robot runs.  Values
// are clamped to [Min, Max].
type Tunable struct {
	Name     string
	Min, Max int64
	value    int64
}

func (t *Tunable) Add(delta int) {
	for {
		old := atomic.LoadInt64(&t.value)
		newV := old + int64(delta)
		if newV < t.Min {
			newV = t.Min
		}
		if newV > t.Max {
			newV = t.Max
		}
		if atomic.CompareAndSwapInt64(&t.value, old, newV) {
			fmt.Println("Tunable", t.Name, "=", newV)
			return
		}
	}
}

func (t *Tunable) Get() int {
	return int(atomic.LoadInt64(&t.value))
}

// Percent returns the value as a fraction, for tunables measured in percent.
func (t *Tunable) Percent() float64 {
	return float64(t.Get()) / 100
}

type Tunables struct {
	lock     sync.Mutex
	all      []*Tunable
	selected int
}

func (t *Tunables) Create(name string, value, lo, hi int) *Tunable {
	t.lock.Lock()
	defer t.lock.Unlock()
	newTunable := &Tunable{
		Name:  name,
		Min:   int64(lo),
		Max:   int64(hi),
		value: int64(value),
	}
	t.all = append(t.all, newTunable)
	return newTunable
}

func (t *Tunables) SelectNext() {
	t.lock.Lock()
	defer t.lock.Unlock()
	if len(t.all) == 0 {
		return
	}
	t.selected = (t.selected + 1) % len(t.all)
	cur := t.all[t.selected]
	fmt.Println("Tunable", cur.Name, "selected, value:", cur.Get())
}

func (t *Tunables) SelectPrev() {
	t.lock.Lock()
	defer t.lock.Unlock()
	if len(t.all) == 0 {
		return
	}
	t.selected = (t.selected - 1 + len(t.all)) % len(t.all)
	cur := t.all[t.selected]
	fmt.Println("Tunable", cur.Name, "selected, value:", cur.Get())
}

// Current returns the selected tunable, or nil if there are none.
func (t *Tunables) Current() *Tunable {
	t.lock.Lock()
	defer t.lock.Unlock()
	if len(t.all) == 0 {
		return nil
	}
	return t.all[t.selected]
}
