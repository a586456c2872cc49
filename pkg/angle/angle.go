package angle

import "math"

// PlusMinus180 is an angle in degrees, stored as a value in range (-180, 180].
// All operations clamp their output into range.
type PlusMinus180 struct {
	float64
}

func (a PlusMinus180) Sub(b PlusMinus180) PlusMinus180 {
	return FromFloat(a.float64 - b.float64)
}

func (a PlusMinus180) AddFloat(f float64) PlusMinus180 {
	return FromFloat(a.float64 + f)
}

// Float returns the angle in degrees, range (-180, 180].
func (a PlusMinus180) Float() float64 {
	return a.float64
}

// FromFloat converts a float of any magnitude to a PlusMinus180 by calculating
// f mod 360 and shifting into range.
func FromFloat(f float64) PlusMinus180 {
	d := math.Mod(f, 360)
	if d <= -180 {
		d += 360
	} else if d > 180 {
		d -= 360
	}
	return PlusMinus180{d}
}

// LegacyError is the heading error the drive has always used: ((target - yaw) mod 360) - 180,
// with a truncated (sign-of-dividend) remainder.  It is NOT centred on zero: target == yaw gives
// -180, and the result ranges over (-540, 180) depending on the sign of target - yaw.
func LegacyError(target, yaw float64) float64 {
	return math.Mod(target-yaw, 360) - 180
}

// SymmetricError is target - yaw wrapped into (-180, 180].
func SymmetricError(target, yaw float64) float64 {
	return FromFloat(target).Sub(FromFloat(yaw)).Float()
}
