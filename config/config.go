// Package config reads mechanism config files and turns them into motor controller and mechanism
// configs.
package config

import (
	"strings"

	"go.uber.org/multierr"

	"go.viam.com/yams/components/motorcontroller"
	"go.viam.com/yams/control"
	"go.viam.com/yams/gearing"
	"go.viam.com/yams/sim"
	"go.viam.com/yams/telemetry"
	"go.viam.com/yams/utils"
)

// Mechanism types.
const (
	TypeElevator = "elevator"
	TypeArm      = "arm"
)

// Motor controller types.
const (
	ControllerFake = "fake"
	// ControllerGPIO is a host side controller. Without hardware it runs on simulated measurements.
	ControllerGPIO = "gpio"
)

// File is a mechanism config file.
type File struct {
	Mechanism MechanismConfig       `json:"mechanism"`
	Motor     MotorControllerConfig `json:"motor"`
}

// MechanismConfig describes the mechanism. Positions are meters for elevators and degrees for arms.
type MechanismConfig struct {
	Type             string  `json:"type"`
	Name             string  `json:"name"`
	StartingPosition float64 `json:"starting_position"`
	HardLowerLimit   float64 `json:"hard_lower_limit"`
	HardUpperLimit   float64 `json:"hard_upper_limit"`
	Mass             float64 `json:"mass"`
	Length           float64 `json:"length"`
	Simulate         bool    `json:"simulate"`
}

// TelemetryConfig selects the published fields by verbosity or by name.
type TelemetryConfig struct {
	Name      string   `json:"name"`
	Verbosity string   `json:"verbosity"`
	Fields    []string `json:"fields"`
}

// FeedforwardConfig is a feedforward model.
type FeedforwardConfig struct {
	Type string  `json:"type"`
	KS   float64 `json:"ks"`
	KV   float64 `json:"kv"`
	KA   float64 `json:"ka"`
	KG   float64 `json:"kg"`
}

// SoftLimitsConfig are soft limits in mechanism rotations, or meters when Linear is set.
type SoftLimitsConfig struct {
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
	Linear bool    `json:"linear"`
}

// MotorControllerConfig describes the motor controller driving the mechanism.
type MotorControllerConfig struct {
	Name      string           `json:"name"`
	Type      string           `json:"type"`
	DCMotor   string           `json:"dc_motor"`
	NumMotors int              `json:"num_motors"`
	Telemetry *TelemetryConfig `json:"telemetry"`

	PID           *control.PIDGains             `json:"pid"`
	MotionProfile *control.TrapezoidConstraints `json:"motion_profile"`
	Feedforward   *FeedforwardConfig            `json:"feedforward"`
	SoftLimits    *SoftLimitsConfig             `json:"soft_limits"`

	StatorCurrentLimit *float64 `json:"stator_current_limit"`
	SupplyCurrentLimit *float64 `json:"supply_current_limit"`
	OpenLoopRampRate   *float64 `json:"open_loop_ramp_rate"`
	ClosedLoopRampRate *float64 `json:"closed_loop_ramp_rate"`
	TemperatureCutoff  *float64 `json:"temperature_cutoff"`

	GearStages      []float64 `json:"gear_stages"`
	Circumference   *float64  `json:"circumference"`
	IdleMode        string    `json:"idle_mode"`
	MotorInverted   bool      `json:"motor_inverted"`
	EncoderInverted bool      `json:"encoder_inverted"`
	ControlMode     string    `json:"control_mode"`

	// PWMPin and DirectionPin drive real hardware from a gpio controller.
	PWMPin       string `json:"pwm_pin"`
	DirectionPin string `json:"direction_pin"`
	PWMFreqHz    uint   `json:"pwm_freq_hz"`
}

// Validate checks the parts of the file that are not checked when the configs are built.
func (f *File) Validate() error {
	var errs error
	switch f.Mechanism.Type {
	case TypeElevator, TypeArm:
	default:
		errs = multierr.Append(errs, utils.NewInvalidConfigurationError(
			"mechanism type %q must be %q or %q", f.Mechanism.Type, TypeElevator, TypeArm))
	}
	if f.Mechanism.Name == "" {
		errs = multierr.Append(errs, utils.NewInvalidConfigurationError("mechanism needs a name"))
	}
	switch f.Motor.Type {
	case "", ControllerFake, ControllerGPIO:
	default:
		errs = multierr.Append(errs, utils.NewInvalidConfigurationError(
			"motor controller type %q must be %q or %q", f.Motor.Type, ControllerFake, ControllerGPIO))
	}
	if _, err := f.Motor.Motor(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if (f.Motor.PWMPin == "") != (f.Motor.DirectionPin == "") {
		errs = multierr.Append(errs, utils.NewInvalidConfigurationError("pwm_pin and direction_pin must be set together"))
	}
	if f.Motor.PWMPin != "" && f.Motor.Type != ControllerGPIO {
		errs = multierr.Append(errs, utils.NewInvalidConfigurationError("pins need a %q motor controller", ControllerGPIO))
	}
	return errs
}

// Motor returns the simulated DC motor, a single NEO by default.
func (c MotorControllerConfig) Motor() (sim.DCMotor, error) {
	n := c.NumMotors
	if n == 0 {
		n = 1
	}
	switch strings.ToLower(c.DCMotor) {
	case "", "neo":
		return sim.NEO(n), nil
	case "falcon500", "falcon":
		return sim.Falcon500(n), nil
	case "krakenx60", "kraken":
		return sim.KrakenX60(n), nil
	default:
		return sim.DCMotor{}, utils.NewInvalidConfigurationError("unknown dc motor %q", c.DCMotor)
	}
}

// ToConfig builds the motor controller config.
func (c MotorControllerConfig) ToConfig() (motorcontroller.Config, error) {
	cfg := motorcontroller.NewConfig(c.Name)
	var errs error

	if t := c.Telemetry; t != nil {
		name := t.Name
		if name == "" {
			name = c.Name
		}
		if len(t.Fields) > 0 {
			selection, err := parseSelection(t.Fields)
			errs = multierr.Append(errs, err)
			cfg = cfg.WithSpecificTelemetry(name, selection)
		}
		if t.Verbosity != "" || len(t.Fields) == 0 {
			verbosity := telemetry.VerbosityHigh
			if t.Verbosity != "" {
				v, err := telemetry.VerbosityFromString(t.Verbosity)
				errs = multierr.Append(errs, err)
				verbosity = v
			}
			cfg = cfg.WithTelemetry(name, verbosity)
		}
	}
	if c.PID != nil {
		cfg = cfg.WithClosedLoopController(c.PID.P, c.PID.I, c.PID.D)
	}
	if c.MotionProfile != nil {
		cfg = cfg.WithMotionProfile(c.MotionProfile.MaxVelocity, c.MotionProfile.MaxAcceleration)
	}
	if ff := c.Feedforward; ff != nil {
		switch strings.ToLower(ff.Type) {
		case "simple":
			cfg = cfg.WithFeedforward(control.NewSimpleFeedforward(ff.KS, ff.KV, ff.KA))
		case "arm":
			cfg = cfg.WithFeedforward(control.NewArmFeedforward(ff.KS, ff.KG, ff.KV, ff.KA))
		case "elevator":
			cfg = cfg.WithFeedforward(control.NewElevatorFeedforward(ff.KS, ff.KG, ff.KV, ff.KA))
		default:
			errs = multierr.Append(errs, utils.NewInvalidConfigurationError("unknown feedforward type %q", ff.Type))
		}
	}
	if l := c.SoftLimits; l != nil {
		if l.Linear {
			cfg = cfg.WithLinearSoftLimits(l.Lower, l.Upper)
		} else {
			cfg = cfg.WithSoftLimits(l.Lower, l.Upper)
		}
	}
	if c.StatorCurrentLimit != nil {
		cfg = cfg.WithStatorCurrentLimit(*c.StatorCurrentLimit)
	}
	if c.SupplyCurrentLimit != nil {
		cfg = cfg.WithSupplyCurrentLimit(*c.SupplyCurrentLimit)
	}
	if c.OpenLoopRampRate != nil {
		cfg = cfg.WithOpenLoopRampRate(*c.OpenLoopRampRate)
	}
	if c.ClosedLoopRampRate != nil {
		cfg = cfg.WithClosedLoopRampRate(*c.ClosedLoopRampRate)
	}
	if c.TemperatureCutoff != nil {
		cfg = cfg.WithTemperatureCutoff(*c.TemperatureCutoff)
	}
	if len(c.GearStages) > 0 {
		gb, err := gearing.FromReductionStages(c.GearStages...)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else {
			cfg = cfg.WithGearing(gearing.NewMechanismGearing(gb))
		}
	}
	if c.Circumference != nil {
		cfg = cfg.WithMechanismCircumference(*c.Circumference)
	}
	switch strings.ToLower(c.IdleMode) {
	case "", "coast":
	case "brake":
		cfg = cfg.WithIdleMode(motorcontroller.Brake)
	default:
		errs = multierr.Append(errs, utils.NewInvalidConfigurationError("unknown idle mode %q", c.IdleMode))
	}
	switch strings.ToLower(c.ControlMode) {
	case "", "open_loop":
	case "closed_loop":
		cfg = cfg.WithControlMode(motorcontroller.ClosedLoop)
	default:
		errs = multierr.Append(errs, utils.NewInvalidConfigurationError("unknown control mode %q", c.ControlMode))
	}
	cfg = cfg.WithMotorInverted(c.MotorInverted).WithEncoderInverted(c.EncoderInverted)

	if errs != nil {
		return motorcontroller.Config{}, errs
	}
	return cfg, cfg.Validate()
}

func parseSelection(names []string) (telemetry.Selection, error) {
	var selection telemetry.Selection
	var errs error
	for _, name := range names {
		if f, err := telemetry.DoubleFieldFromString(name); err == nil {
			selection.Doubles = append(selection.Doubles, f)
			continue
		}
		f, err := telemetry.BooleanFieldFromString(name)
		if err != nil {
			errs = multierr.Append(errs, utils.NewInvalidConfigurationError("unknown telemetry field %q", name))
			continue
		}
		selection.Booleans = append(selection.Booleans, f)
	}
	return selection, errs
}
