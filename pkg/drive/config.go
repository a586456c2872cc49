package drive

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/chassis"
)

// ConvergencePolicy decides when a position-seek is finished.
type ConvergencePolicy int

const (
	// AnyConverged stops as soon as one watched wheel is within tolerance of its target.  This is
	// how the robot has always behaved.
	AnyConverged ConvergencePolicy = iota
	// AllConverged waits for every watched wheel.
	AllConverged
)

func (p ConvergencePolicy) String() string {
	switch p {
	case AnyConverged:
		return "any"
	case AllConverged:
		return "all"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

func (p ConvergencePolicy) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}

func (p *ConvergencePolicy) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	switch s {
	case "any":
		*p = AnyConverged
	case "all":
		*p = AllConverged
	default:
		return errors.Errorf("unknown convergence policy %q (want any or all)", s)
	}
	return nil
}

// HeadingWrap selects how heading error is computed from target and yaw.
type HeadingWrap int

const (
	// LegacyWrap is ((target - yaw) mod 360) - 180; see angle.LegacyError.
	LegacyWrap HeadingWrap = iota
	// SymmetricWrap is target - yaw wrapped into (-180, 180].
	SymmetricWrap
)

func (w HeadingWrap) String() string {
	switch w {
	case LegacyWrap:
		return "legacy"
	case SymmetricWrap:
		return "symmetric"
	default:
		return fmt.Sprintf("unknown(%d)", int(w))
	}
}

func (w HeadingWrap) MarshalYAML() (interface{}, error) {
	return w.String(), nil
}

func (w *HeadingWrap) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	switch s {
	case "legacy":
		*w = LegacyWrap
	case "symmetric":
		*w = SymmetricWrap
	default:
		return errors.Errorf("unknown heading wrap %q (want legacy or symmetric)", s)
	}
	return nil
}

type PIDGains struct {
	P float64 `yaml:"p"`
	I float64 `yaml:"i"`
	D float64 `yaml:"d"`
}

type RotateGyroConfig struct {
	Power            float64       `yaml:"power"`
	Settle           time.Duration `yaml:"settle"`
	Timeout          time.Duration `yaml:"timeout"`
	ToleranceDegrees float64       `yaml:"toleranceDegrees"`
}

type Config struct {
	TicksPerInch float64 `yaml:"ticksPerInch"`

	// Position seek.
	ConvergenceTolerance int               `yaml:"convergenceTolerance"`
	Convergence          ConvergencePolicy `yaml:"convergence"`
	InterruptPower       float64           `yaml:"interruptPower"`
	RestorePower         float64           `yaml:"restorePower"`
	SettlePower          float64           `yaml:"settlePower"`
	PoleTriggerCM        float64           `yaml:"poleTriggerCM"`
	SeekTimeout          time.Duration     `yaml:"seekTimeout"`
	Smoothing            SmoothingCurve    `yaml:"smoothing"`

	// Ticks per 90 degrees of rotation, fL, fR, bL, bR.
	RotateRightTicksPer90 []int `yaml:"rotateRightTicksPer90"`
	RotateLeftTicksPer90  []int `yaml:"rotateLeftTicksPer90"`

	// Heading.
	HeadingWrap           HeadingWrap      `yaml:"headingWrap"`
	ClipMinimum           float64          `yaml:"clipMinimum"`
	FastDivisor           float64          `yaml:"fastDivisor"`
	SlowDivisor           float64          `yaml:"slowDivisor"`
	TurnTolerance         float64          `yaml:"turnToleranceDegrees"`
	TurnRateTolerance     float64          `yaml:"turnRateToleranceDPS"`
	TurnAbsoluteTolerance float64          `yaml:"turnAbsoluteToleranceDegrees"`
	TurnTimeout           time.Duration    `yaml:"turnTimeout"`
	PID                   PIDGains         `yaml:"pid"`
	RotateGyro            RotateGyroConfig `yaml:"rotateGyro"`

	// PollInterval is slept between hardware polls; zero spins.
	PollInterval time.Duration `yaml:"pollInterval"`
}

func DefaultConfig() Config {
	return Config{
		TicksPerInch: chassis.TicksPerInch,

		ConvergenceTolerance: 10,
		Convergence:          AnyConverged,
		InterruptPower:       0.1,
		RestorePower:         0.2,
		SettlePower:          0.1,
		PoleTriggerCM:        15,
		Smoothing:            DefaultSmoothingCurve(),

		RotateRightTicksPer90: append([]int(nil), chassis.RotateRightTicksPer90[:]...),
		RotateLeftTicksPer90:  append([]int(nil), chassis.RotateLeftTicksPer90[:]...),

		HeadingWrap:           LegacyWrap,
		ClipMinimum:           0.15,
		FastDivisor:           -5,
		SlowDivisor:           -20,
		TurnTolerance:         0.5,
		TurnRateTolerance:     1,
		TurnAbsoluteTolerance: 2,
		PID:                   PIDGains{P: 0.002},
		RotateGyro: RotateGyroConfig{
			Power:            0.45,
			Settle:           250 * time.Millisecond,
			Timeout:          2 * time.Second,
			ToleranceDegrees: 0.5,
		},
	}
}

func (c Config) Validate() error {
	if c.TicksPerInch <= 0 {
		return errors.Errorf("ticksPerInch must be positive, not %v", c.TicksPerInch)
	}
	if c.ConvergenceTolerance <= 0 {
		return errors.Errorf("convergenceTolerance must be positive, not %v", c.ConvergenceTolerance)
	}
	if len(c.RotateRightTicksPer90) != NumWheels {
		return errors.Errorf("rotateRightTicksPer90 needs %d values, has %d", NumWheels, len(c.RotateRightTicksPer90))
	}
	if len(c.RotateLeftTicksPer90) != NumWheels {
		return errors.Errorf("rotateLeftTicksPer90 needs %d values, has %d", NumWheels, len(c.RotateLeftTicksPer90))
	}
	if c.FastDivisor == 0 || c.SlowDivisor == 0 {
		return errors.New("heading divisors must be non-zero")
	}
	return nil
}
