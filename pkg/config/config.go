package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/bno08x"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/drive"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/picobldc"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/robot"
)

const DefaultPath = "/cfg/mecanum.yaml"

type Hardware struct {
	// Simulate replaces all the hardware with the simulator.
	Simulate   bool `yaml:"simulate"`
	SimVerbose bool `yaml:"simVerbose"`

	I2CBus string `yaml:"i2cBus"`
	// MotorWatchdog stops the motors if the board hears nothing for this long; zero disables it.
	// Position seeks only read from the board while they wait, so keep it longer than any seek.
	MotorWatchdog time.Duration `yaml:"motorWatchdog"`
	// ReverseLeft flips the left-hand motors, which are mounted facing the other way.
	ReverseLeft bool `yaml:"reverseLeft"`

	IMUSerialPort string `yaml:"imuSerialPort"`

	BumperLeftPin  string `yaml:"bumperLeftPin"`
	BumperRightPin string `yaml:"bumperRightPin"`

	// ServoBus is the I2C bus of the PCA9685 servo board driving the grabber; empty if there isn't one.
	ServoBus       string  `yaml:"servoBus"`
	GrabberPort    int     `yaml:"grabberPort"`
	GrabberOpen    float64 `yaml:"grabberOpen"`
	GrabberClosed  float64 `yaml:"grabberClosed"`

	// LiftBus is the I2C bus of the motor board driving the lift; empty simulates the lift.
	LiftBus     string  `yaml:"liftBus"`
	LiftChannel int     `yaml:"liftChannel"`
	LiftPower   float64 `yaml:"liftPower"`

	JoystickDevice string `yaml:"joystickDevice"`
}

type Config struct {
	Drive    drive.Config `yaml:"drive"`
	Robot    robot.Config `yaml:"robot"`
	Hardware Hardware     `yaml:"hardware"`
}

func Default() Config {
	return Config{
		Drive: drive.DefaultConfig(),
		Robot: robot.DefaultConfig(),
		Hardware: Hardware{
			I2CBus:         picobldc.DefaultBus,
			ReverseLeft:    true,
			IMUSerialPort:  bno08x.DefaultSerialDevice,
			BumperLeftPin:  "GPIO17",
			BumperRightPin: "GPIO27",
			GrabberOpen:    0.8,
			GrabberClosed:  0.2,
			LiftPower:      0.8,
			JoystickDevice: "/dev/input/js0",
		},
	}
}

// Path returns the config file to use: $CONFIG_FILE if set, otherwise DefaultPath.
func Path() string {
	if p := os.Getenv("CONFIG_FILE"); p != "" {
		return p
	}
	return DefaultPath
}

// InUsePath is where the config actually in use gets written, next to the source file.
func InUsePath(path string) string {
	return strings.TrimSuffix(path, ".yaml") + "-in-use.yaml"
}

// Parse overlays the YAML in data on top of the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to parse config")
	}
	if err := cfg.Drive.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Load reads the config file at path.  A missing or broken file isn't fatal: we log it and carry
// on with the defaults.  Environment overrides are applied last and the result is written out
// to the in-use file.
func Load(path string) Config {
	cfg := Default()
	data, err := ioutil.ReadFile(path)
	if err != nil {
		fmt.Println(err)
	} else {
		parsed, err := Parse(data)
		if err != nil {
			fmt.Println(err)
		} else {
			cfg = parsed
		}
	}
	ApplyEnv(&cfg)

	fmt.Printf("Using config: %#v\n", cfg)
	if err := Save(cfg, InUsePath(path)); err != nil {
		fmt.Println(err)
	}
	return cfg
}

// ApplyEnv applies $SIMULATE_HARDWARE and $JOYSTICK_DEVICE.
func ApplyEnv(cfg *Config) {
	if os.Getenv("SIMULATE_HARDWARE") == "true" {
		cfg.Hardware.Simulate = true
	}
	if j := os.Getenv("JOYSTICK_DEVICE"); j != "" {
		cfg.Hardware.JoystickDevice = j
	}
}

func Save(cfg Config, path string) error {
	cfgBytes, err := yaml.Marshal(&cfg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := ioutil.WriteFile(path, cfgBytes, 0666); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
