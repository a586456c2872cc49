package drive

import "math"

// SmoothingCurve shapes wheel power over the course of a position seek, as a function of
// progress x = current/target:
//
//	[0, rampEnd)          power ramps up to max along a curve of degree RampExponent
//	[rampEnd, tailStart]  max
//	(tailStart, 1]        max easing towards FinalPower at x = 1 with degree TailExponent;
//	                      a TailExponent of 0 holds max all the way
//
// where rampEnd and tailStart are MidPoint -/+ MidLength/2.  Progress outside [0, 1] gives 0.
type SmoothingCurve struct {
	StartPower   float64 `yaml:"startPower"`
	FinalPower   float64 `yaml:"finalPower"`
	MidPoint     float64 `yaml:"midPoint"`
	MidLength    float64 `yaml:"midLength"`
	RampExponent float64 `yaml:"rampExponent"`
	TailExponent float64 `yaml:"tailExponent"`
}

func DefaultSmoothingCurve() SmoothingCurve {
	return SmoothingCurve{
		StartPower:   0.5,
		FinalPower:   0.35,
		MidPoint:     0.35,
		MidLength:    0.5,
		RampExponent: 2,
		TailExponent: 0,
	}
}

func (c SmoothingCurve) RampEnd() float64 {
	return c.MidPoint - c.MidLength/2
}

func (c SmoothingCurve) TailStart() float64 {
	return c.MidPoint + c.MidLength/2
}

// Power returns the power for progress x, peaking at maxPower.
func (c SmoothingCurve) Power(x, maxPower float64) float64 {
	rampEnd := c.RampEnd()
	tailStart := c.TailStart()

	switch {
	case x >= 0 && x < rampEnd:
		a := (c.FinalPower - c.StartPower) / math.Pow(rampEnd, c.RampExponent)
		return a*math.Pow(math.Abs(x-rampEnd), c.RampExponent) + maxPower
	case x >= rampEnd && x <= tailStart:
		return maxPower
	case x > tailStart && x <= 1:
		if c.TailExponent == 0 {
			// Flat tail: no drop to FinalPower at the end of the move.  A large TailExponent
			// approximates the old step down to FinalPower at x = 1.
			return maxPower
		}
		frac := (x - tailStart) / (1 - tailStart)
		return maxPower + (c.FinalPower-maxPower)*math.Pow(frac, c.TailExponent)
	}
	return 0
}

// progress is how far a wheel is through its move.  A zero target counts as already there.
func progress(current, target int) float64 {
	if target == 0 {
		return 1
	}
	return float64(current) / float64(target)
}
