package motorcontroller

import (
	"go.uber.org/multierr"

	"go.viam.com/yams/control"
	"go.viam.com/yams/gearing"
	"go.viam.com/yams/telemetry"
	"go.viam.com/yams/utils"
)

// ControlMode selects whether setpoints are tracked by a closed loop. The zero value is open loop.
type ControlMode int

// Control modes.
const (
	OpenLoop ControlMode = iota
	ClosedLoop
)

func (m ControlMode) String() string {
	if m == ClosedLoop {
		return "closed_loop"
	}
	return "open_loop"
}

// IdleMode is what the controller does with the motor leads when no output is commanded.
type IdleMode int

// Idle modes.
const (
	Coast IdleMode = iota
	Brake
)

func (m IdleMode) String() string {
	if m == Brake {
		return "brake"
	}
	return "coast"
}

// Config describes a smart motor controller. It is a value type; every With method returns an
// updated copy and leaves the receiver untouched. Setters are independent of each other.
//
// Every optional field has an accessor returning the value and whether it was configured.
// Validation is deferred to Validate so that partial configs can be built up freely.
type Config struct {
	name string

	telemetryName *string
	verbosity     *telemetry.Verbosity
	selection     telemetry.Selection

	gains       *control.PIDGains
	profile     *control.TrapezoidConstraints
	feedforward control.Feedforward

	lowerLimit       *float64
	upperLimit       *float64
	linearLimits     bool
	statorLimit      *float64
	supplyLimit      *float64
	openLoopRamp     *float64
	closedLoopRamp   *float64
	temperatureLimit *float64

	gearing       *gearing.MechanismGearing
	circumference *float64

	idleMode        IdleMode
	motorInverted   bool
	encoderInverted bool
	controlMode     ControlMode
}

// NewConfig returns an empty config for the controller called name.
func NewConfig(name string) Config {
	return Config{name: name}
}

// Name returns the controller name.
func (c Config) Name() string {
	return c.name
}

func ptr[T any](v T) *T {
	return &v
}

// WithTelemetry publishes every field of the given verbosity tier and below under name.
func (c Config) WithTelemetry(name string, verbosity telemetry.Verbosity) Config {
	c.telemetryName = ptr(name)
	c.verbosity = ptr(verbosity)
	return c
}

// WithSpecificTelemetry publishes exactly the selected fields under name.
func (c Config) WithSpecificTelemetry(name string, selection telemetry.Selection) Config {
	c.telemetryName = ptr(name)
	c.selection = telemetry.Selection{
		Booleans: append([]telemetry.BooleanField(nil), selection.Booleans...),
		Doubles:  append([]telemetry.DoubleField(nil), selection.Doubles...),
	}
	return c
}

// TelemetryName is the telemetry table name. Absent means the controller publishes nothing.
func (c Config) TelemetryName() (string, bool) {
	if c.telemetryName == nil {
		return "", false
	}
	return *c.telemetryName, true
}

// TelemetryVerbosity is the configured verbosity. Absent means only selected fields publish.
func (c Config) TelemetryVerbosity() (telemetry.Verbosity, bool) {
	if c.verbosity == nil {
		return 0, false
	}
	return *c.verbosity, true
}

// TelemetrySelection returns the explicitly selected fields.
func (c Config) TelemetrySelection() telemetry.Selection {
	return c.selection
}

// WithClosedLoopController sets the closed loop gains.
func (c Config) WithClosedLoopController(p, i, d float64) Config {
	c.gains = &control.PIDGains{P: p, I: i, D: d}
	return c
}

// ClosedLoopGains are the closed loop gains. Absent means no closed loop control is possible.
func (c Config) ClosedLoopGains() (control.PIDGains, bool) {
	if c.gains == nil {
		return control.PIDGains{}, false
	}
	return *c.gains, true
}

// WithMotionProfile limits closed loop setpoints to a trapezoid profile with the given maximum
// velocity and acceleration in measurement units.
func (c Config) WithMotionProfile(maxVelocity, maxAcceleration float64) Config {
	c.profile = &control.TrapezoidConstraints{MaxVelocity: maxVelocity, MaxAcceleration: maxAcceleration}
	return c
}

// MotionProfile returns the profile constraints. Absent means setpoints step straight to the goal.
func (c Config) MotionProfile() (control.TrapezoidConstraints, bool) {
	if c.profile == nil {
		return control.TrapezoidConstraints{}, false
	}
	return *c.profile, true
}

// WithFeedforward replaces any configured feedforward model.
func (c Config) WithFeedforward(ff control.Feedforward) Config {
	c.feedforward = ff
	return c
}

// Feedforward returns the feedforward model. Its kind is FeedforwardNone when none is configured.
func (c Config) Feedforward() control.Feedforward {
	return c.feedforward
}

// WithSoftLimits sets the mechanism travel limits in mechanism rotations.
func (c Config) WithSoftLimits(lower, upper float64) Config {
	c.lowerLimit, c.upperLimit = ptr(lower), ptr(upper)
	c.linearLimits = false
	return c
}

// WithLinearSoftLimits sets the mechanism travel limits in meters. They are converted through the
// mechanism circumference when read.
func (c Config) WithLinearSoftLimits(lower, upper float64) Config {
	c.lowerLimit, c.upperLimit = ptr(lower), ptr(upper)
	c.linearLimits = true
	return c
}

// SoftLimits returns the travel limits in mechanism rotations. Absent means unlimited travel, or
// linear limits without a circumference to convert them.
func (c Config) SoftLimits() (lower, upper float64, ok bool) {
	if c.lowerLimit == nil || c.upperLimit == nil {
		return 0, 0, false
	}
	if !c.linearLimits {
		return *c.lowerLimit, *c.upperLimit, true
	}
	circ, ok := c.MechanismCircumference()
	if !ok || !(circ > 0) {
		return 0, 0, false
	}
	return *c.lowerLimit / circ, *c.upperLimit / circ, true
}

// LinearSoftLimits returns the travel limits in meters. Absent without limits or a circumference.
func (c Config) LinearSoftLimits() (lower, upper float64, ok bool) {
	if c.lowerLimit == nil || c.upperLimit == nil {
		return 0, 0, false
	}
	if c.linearLimits {
		return *c.lowerLimit, *c.upperLimit, true
	}
	circ, ok := c.MechanismCircumference()
	if !ok {
		return 0, 0, false
	}
	return *c.lowerLimit * circ, *c.upperLimit * circ, true
}

// WithStatorCurrentLimit limits motor winding current in amps.
func (c Config) WithStatorCurrentLimit(amps float64) Config {
	c.statorLimit = ptr(amps)
	return c
}

// StatorCurrentLimit is the stator current limit. Absent means the controller default.
func (c Config) StatorCurrentLimit() (float64, bool) {
	return optional(c.statorLimit)
}

// WithSupplyCurrentLimit limits current drawn from the supply in amps.
func (c Config) WithSupplyCurrentLimit(amps float64) Config {
	c.supplyLimit = ptr(amps)
	return c
}

// SupplyCurrentLimit is the supply current limit. Absent means the controller default.
func (c Config) SupplyCurrentLimit() (float64, bool) {
	return optional(c.supplyLimit)
}

// WithOpenLoopRampRate sets the time in seconds for open loop output to go from 0 to full.
func (c Config) WithOpenLoopRampRate(seconds float64) Config {
	c.openLoopRamp = ptr(seconds)
	return c
}

// OpenLoopRampRate is the open loop ramp. Absent means no ramp.
func (c Config) OpenLoopRampRate() (float64, bool) {
	return optional(c.openLoopRamp)
}

// WithClosedLoopRampRate sets the time in seconds for closed loop output to go from 0 to full.
func (c Config) WithClosedLoopRampRate(seconds float64) Config {
	c.closedLoopRamp = ptr(seconds)
	return c
}

// ClosedLoopRampRate is the closed loop ramp. Absent means no ramp.
func (c Config) ClosedLoopRampRate() (float64, bool) {
	return optional(c.closedLoopRamp)
}

// WithTemperatureCutoff sets the motor temperature in °C above which output is cut.
func (c Config) WithTemperatureCutoff(celsius float64) Config {
	c.temperatureLimit = ptr(celsius)
	return c
}

// TemperatureCutoff is the temperature cutoff. Absent means no cutoff.
func (c Config) TemperatureCutoff() (float64, bool) {
	return optional(c.temperatureLimit)
}

// WithGearing sets the reduction between rotor and mechanism.
func (c Config) WithGearing(mg gearing.MechanismGearing) Config {
	c.gearing = &mg
	return c
}

// Gearing is the rotor to mechanism gearing. Absent means direct drive.
func (c Config) Gearing() gearing.MechanismGearing {
	if c.gearing == nil {
		return gearing.MechanismGearing{}
	}
	return *c.gearing
}

// WithMechanismCircumference sets the linear distance in meters travelled per mechanism rotation.
func (c Config) WithMechanismCircumference(meters float64) Config {
	c.circumference = ptr(meters)
	return c
}

// MechanismCircumference is the distance per mechanism rotation. Absent means a purely rotational
// mechanism.
func (c Config) MechanismCircumference() (float64, bool) {
	return optional(c.circumference)
}

// WithIdleMode sets the idle behaviour.
func (c Config) WithIdleMode(mode IdleMode) Config {
	c.idleMode = mode
	return c
}

// IdleMode returns the idle behaviour. Default Coast.
func (c Config) IdleMode() IdleMode {
	return c.idleMode
}

// WithMotorInverted flips the motor output direction.
func (c Config) WithMotorInverted(inverted bool) Config {
	c.motorInverted = inverted
	return c
}

// MotorInverted reports whether the motor output is inverted.
func (c Config) MotorInverted() bool {
	return c.motorInverted
}

// WithEncoderInverted flips the encoder direction.
func (c Config) WithEncoderInverted(inverted bool) Config {
	c.encoderInverted = inverted
	return c
}

// EncoderInverted reports whether the encoder is inverted.
func (c Config) EncoderInverted() bool {
	return c.encoderInverted
}

// WithControlMode sets open or closed loop control.
func (c Config) WithControlMode(mode ControlMode) Config {
	c.controlMode = mode
	return c
}

// ControlMode returns the control mode. Default OpenLoop.
func (c Config) ControlMode() ControlMode {
	return c.controlMode
}

// Converter returns the unit converter for this config. The circumference is only applied when
// it is valid; Validate reports invalid ones.
func (c Config) Converter() gearing.Converter {
	conv := gearing.NewConverter(c.Gearing())
	if circ, ok := c.MechanismCircumference(); ok {
		if linear, err := conv.WithCircumference(circ); err == nil {
			return linear
		}
	}
	return conv
}

// Validate reports every inconsistency in the config.
func (c Config) Validate() error {
	var errs error
	if c.gearing != nil && !(c.gearing.RotorToMechanismRatio() > 0) {
		errs = multierr.Append(errs, utils.NewInvalidConfigurationError(
			"%s: gear ratio %v must be positive", c.name, c.gearing.RotorToMechanismRatio()))
	}
	if circ, ok := c.MechanismCircumference(); ok && !(circ > 0) {
		errs = multierr.Append(errs, utils.NewInvalidConfigurationError(
			"%s: mechanism circumference %v must be positive", c.name, circ))
	}
	if c.lowerLimit != nil && c.upperLimit != nil {
		if *c.lowerLimit > *c.upperLimit {
			errs = multierr.Append(errs, utils.NewInvalidConfigurationError(
				"%s: soft limit lower %v is above upper %v", c.name, *c.lowerLimit, *c.upperLimit))
		}
		if _, ok := c.MechanismCircumference(); c.linearLimits && !ok {
			errs = multierr.Append(errs, utils.NewInvalidConfigurationError(
				"%s: linear soft limits need a mechanism circumference", c.name))
		}
	}
	for _, limit := range []struct {
		name  string
		value *float64
	}{
		{"stator current limit", c.statorLimit},
		{"supply current limit", c.supplyLimit},
		{"open loop ramp rate", c.openLoopRamp},
		{"closed loop ramp rate", c.closedLoopRamp},
	} {
		if limit.value != nil && *limit.value < 0 {
			errs = multierr.Append(errs, utils.NewInvalidConfigurationError(
				"%s: %s %v must not be negative", c.name, limit.name, *limit.value))
		}
	}
	if c.controlMode == ClosedLoop && c.gains == nil {
		errs = multierr.Append(errs, utils.NewInvalidConfigurationError(
			"%s: closed loop control needs closed loop gains", c.name))
	}
	if c.profile != nil {
		if err := c.profile.Validate(); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// TelemetryDefaults returns the configured values telemetry fields start from.
func (c Config) TelemetryDefaults() telemetry.Defaults {
	d := telemetry.Defaults{
		Feedforward:        c.feedforward,
		StatorCurrentLimit: c.statorLimit,
		SupplyCurrentLimit: c.supplyLimit,
		OpenLoopRampRate:   c.openLoopRamp,
		ClosedLoopRampRate: c.closedLoopRamp,
		MotorInverted:      c.motorInverted,
		EncoderInverted:    c.encoderInverted,
	}
	if gains, ok := c.ClosedLoopGains(); ok {
		d.Gains = &gains
	}
	if profile, ok := c.MotionProfile(); ok {
		d.Profile = &profile
	}
	_, d.HasCircumference = c.MechanismCircumference()
	if lower, upper, ok := c.SoftLimits(); ok {
		d.LowerLimit, d.UpperLimit = &lower, &upper
	}
	if lower, upper, ok := c.LinearSoftLimits(); ok {
		d.MeasurementLowerLimit, d.MeasurementUpperLimit = &lower, &upper
	}
	return d
}

func optional(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}
