// Package mechanism drives single axis mechanisms (elevators, arms) through a smart motor
// controller. A Mechanism is ticked serially by its owner: Periodic issues the current command,
// reads the controller back, checks soft limits and synchronizes telemetry; SimulationPeriodic
// advances an optional physics model and feeds it to the controller as if it were hardware.
package mechanism

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/yams/components/motorcontroller"
	"go.viam.com/yams/control"
	"go.viam.com/yams/gearing"
	"go.viam.com/yams/logging"
	"go.viam.com/yams/sim"
	"go.viam.com/yams/telemetry"
	"go.viam.com/yams/utils"
)

// DefaultPeriod is the nominal tick period.
const DefaultPeriod = 20 * time.Millisecond

// State is what a mechanism is currently being asked to do.
type State int

// Mechanism states.
const (
	Idle State = iota
	OpenLoopCommand
	ClosedLoopPositionCommand
	SelfTest
)

func (s State) String() string {
	switch s {
	case OpenLoopCommand:
		return "open_loop"
	case ClosedLoopPositionCommand:
		return "closed_loop_position"
	case SelfTest:
		return "self_test"
	default:
		return "idle"
	}
}

// Gravity is how gravity loads a mechanism.
type Gravity int

// Gravity models.
const (
	NoGravity Gravity = iota
	// ConstantGravity loads the mechanism the same everywhere, as on an elevator.
	ConstantGravity
	// CosineGravity loads the mechanism with the cosine of its angle from horizontal, as on an arm.
	CosineGravity
)

// Units map a mechanism's measurement unit onto mechanism rotations.
type Units struct {
	Name string
	// PerRotation is measurement units per mechanism rotation.
	PerRotation float64
	// PlantPerRotation is physics units (meters or radians) per mechanism rotation. Feedforward
	// models and simulations work in physics units.
	PlantPerRotation float64
}

// RotationUnits measure a mechanism in mechanism rotations.
var RotationUnits = Units{Name: "rot", PerRotation: 1, PlantPerRotation: 2 * math.Pi}

// Limits describe a mechanism's travel in measurement units.
type Limits struct {
	SoftLower float64
	SoftUpper float64
	HasSoft   bool
	HardLower float64
	HardUpper float64
	Start     float64
	// Mass is the moving mass in kilograms.
	Mass float64
}

// Config configures a Mechanism.
type Config struct {
	Name string
	// Telemetry is the root telemetry table. Measurements are published under
	// Mechanisms/<telemetry name> and tuning overrides are read from Tuning/<telemetry name>. Nil
	// disables telemetry.
	Telemetry telemetry.Table
	// Period is the tick period, DefaultPeriod when zero.
	Period  time.Duration
	Units   Units
	Gravity Gravity
	// HardLowerLimit and HardUpperLimit bound the physical travel in measurement units. Both zero
	// means no hard limits.
	HardLowerLimit float64
	HardUpperLimit float64
	Start          float64
	Mass           float64
	// Plant is stepped by SimulationPeriodic. Nil means real hardware.
	Plant sim.Stepper
}

// Mechanism is a single axis mechanism driven by an exclusively owned SmartMotorController. It is
// not safe for concurrent use.
type Mechanism struct {
	name      string
	smc       motorcontroller.SmartMotorController
	logger    logging.Logger
	period    time.Duration
	units     Units
	gravity   Gravity
	limits    Limits
	converter gearing.Converter
	plant     sim.Stepper
	registry  *telemetry.Registry

	feedforward control.Feedforward
	gains       control.PIDGains
	profile     *control.TrapezoidProfile
	statorLimit float64
	supplyLimit float64
	openRamp    float64
	closedRamp  float64

	state        State
	duty         float64
	goal         float64
	setpoint     control.ProfileState
	clampedLower bool
	clampedUpper bool
	selfTest     *selfTestRun
	result       *SelfTestResult

	rotorPosition float64
	rotorVelocity float64
	position      float64
	velocity      float64
	atLower       bool
	atUpper       bool
}

// New validates cfg and the controller's config, wires telemetry and returns an idle mechanism.
func New(cfg Config, smc motorcontroller.SmartMotorController, logger logging.Logger) (*Mechanism, error) {
	if smc == nil {
		return nil, utils.NewInvalidConfigurationError("%s: mechanism needs a motor controller", cfg.Name)
	}
	smcCfg := smc.Config()
	errs := smcCfg.Validate()
	if cfg.Units.PerRotation == 0 {
		cfg.Units = RotationUnits
	}
	if !(cfg.Units.PerRotation > 0) || !(cfg.Units.PlantPerRotation > 0) {
		errs = multierr.Append(errs, utils.NewInvalidConfigurationError(
			"%s: units %q must have positive scale", cfg.Name, cfg.Units.Name))
	}
	if cfg.HardLowerLimit > cfg.HardUpperLimit {
		errs = multierr.Append(errs, utils.NewInvalidConfigurationError(
			"%s: hard lower limit %v is above upper %v", cfg.Name, cfg.HardLowerLimit, cfg.HardUpperLimit))
	}
	if cfg.Mass < 0 {
		errs = multierr.Append(errs, utils.NewInvalidConfigurationError("%s: mass %v must not be negative", cfg.Name, cfg.Mass))
	}
	if errs != nil {
		return nil, errs
	}
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}

	m := &Mechanism{
		name:        cfg.Name,
		smc:         smc,
		logger:      logger,
		period:      cfg.Period,
		units:       cfg.Units,
		gravity:     cfg.Gravity,
		converter:   smcCfg.Converter(),
		plant:       cfg.Plant,
		registry:    telemetry.NewRegistry(logger.Sublogger("telemetry")),
		feedforward: smcCfg.Feedforward(),
		limits: Limits{
			HardLower: cfg.HardLowerLimit,
			HardUpper: cfg.HardUpperLimit,
			Start:     cfg.Start,
			Mass:      cfg.Mass,
		},
	}
	if lower, upper, ok := smcCfg.SoftLimits(); ok {
		m.limits.SoftLower = lower * cfg.Units.PerRotation
		m.limits.SoftUpper = upper * cfg.Units.PerRotation
		m.limits.HasSoft = true
	}
	m.gains, _ = smcCfg.ClosedLoopGains()
	if constraints, ok := smcCfg.MotionProfile(); ok {
		profile, err := control.NewTrapezoidProfile(constraints)
		if err != nil {
			return nil, err
		}
		m.profile = profile
	}
	m.statorLimit, _ = smcCfg.StatorCurrentLimit()
	m.supplyLimit, _ = smcCfg.SupplyCurrentLimit()
	m.openRamp, _ = smcCfg.OpenLoopRampRate()
	m.closedRamp, _ = smcCfg.ClosedLoopRampRate()

	guard := utils.NewGuard(m.registry.Close)
	defer guard.OnFail()
	if err := m.wireTelemetry(cfg.Telemetry, smcCfg); err != nil {
		return nil, err
	}
	if m.plant != nil {
		m.resetSimulation(cfg.Start)
	}
	if err := smc.Stop(); err != nil {
		return nil, errors.Wrapf(err, "%s: stopping motor controller", m.name)
	}
	m.measure()
	m.setpoint = control.ProfileState{Position: m.position}
	guard.Success()
	return m, nil
}

func (m *Mechanism) wireTelemetry(root telemetry.Table, smcCfg motorcontroller.Config) error {
	name, ok := smcCfg.TelemetryName()
	if !ok || root == nil {
		return nil
	}
	if verbosity, ok := smcCfg.TelemetryVerbosity(); ok {
		m.registry.ApplyVerbosity(verbosity)
	}
	m.registry.ApplySelection(smcCfg.TelemetrySelection())
	m.registry.Gate(motorcontroller.Capabilities(m.smc), smcCfg.TelemetryDefaults())
	m.registry.Double(telemetry.TunableSetpointPosition).SetDefault(m.limits.Start / m.units.PerRotation)
	return m.registry.Wire(root.Sub("Mechanisms").Sub(name), root.Sub("Tuning").Sub(name))
}

func (m *Mechanism) resetSimulation(position float64) {
	m.plant.SetState(sim.State{Position: position / m.units.PerRotation * m.units.PlantPerRotation})
	m.smc.SetSimulatedState(motorcontroller.SimState{Position: m.toRotor(position)})
}

// Name returns the mechanism name.
func (m *Mechanism) Name() string {
	return m.name
}

// State returns the current state.
func (m *Mechanism) State() State {
	return m.state
}

// Limits returns the travel limits in measurement units, including any tuned soft limits.
func (m *Mechanism) Limits() Limits {
	return m.limits
}

// Period returns the tick period.
func (m *Mechanism) Period() time.Duration {
	return m.period
}

// Units returns the measurement units.
func (m *Mechanism) Units() Units {
	return m.units
}

// Registry returns the telemetry registry.
func (m *Mechanism) Registry() *telemetry.Registry {
	return m.registry
}

// MotorController returns the owned motor controller.
func (m *Mechanism) MotorController() motorcontroller.SmartMotorController {
	return m.smc
}

// Position returns the last measured position in measurement units.
func (m *Mechanism) Position() float64 {
	return m.position
}

// Velocity returns the last measured velocity in measurement units per second.
func (m *Mechanism) Velocity() float64 {
	return m.velocity
}

// Setpoint returns the closed loop setpoint in measurement units. It follows the motion profile
// toward Goal when one is configured.
func (m *Mechanism) Setpoint() control.ProfileState {
	return m.setpoint
}

// Goal returns the closed loop goal in measurement units, after soft limit clamping.
func (m *Mechanism) Goal() float64 {
	return m.goal
}

// SetDutyCycle runs the motor open loop, superseding any other command. Output pushing past a
// soft limit is zeroed.
func (m *Mechanism) SetDutyCycle(duty float64) error {
	m.state = OpenLoopCommand
	m.selfTest = nil
	m.duty = utils.ClampPower(duty)
	m.clampedLower, m.clampedUpper = false, false
	return nil
}

// SetPosition holds the mechanism at position, in measurement units. A position outside the soft
// limits is clamped to the nearest limit and the matching limit field is raised. It supersedes
// any other command.
func (m *Mechanism) SetPosition(position float64) error {
	if mode := m.smc.Config().ControlMode(); mode != motorcontroller.ClosedLoop {
		return utils.NewUnsupportedControlModeError(m.name, mode)
	}
	m.clampedLower, m.clampedUpper = false, false
	if m.limits.HasSoft {
		switch {
		case position < m.limits.SoftLower:
			m.logger.Warnw("setpoint below soft limit, clamping",
				"mechanism", m.name, "setpoint", position, "limit", m.limits.SoftLower, "units", m.units.Name)
			position = m.limits.SoftLower
			m.clampedLower = true
		case position > m.limits.SoftUpper:
			m.logger.Warnw("setpoint above soft limit, clamping",
				"mechanism", m.name, "setpoint", position, "limit", m.limits.SoftUpper, "units", m.units.Name)
			position = m.limits.SoftUpper
			m.clampedUpper = true
		}
	}
	if m.state != ClosedLoopPositionCommand {
		m.setpoint = control.ProfileState{Position: m.position, Velocity: m.velocity}
	}
	m.goal = position
	m.state = ClosedLoopPositionCommand
	m.selfTest = nil
	m.publishLimits()
	return nil
}

// Idle stops the motor and drops any command, including a running self-test.
func (m *Mechanism) Idle() error {
	m.state = Idle
	m.duty = 0
	m.selfTest = nil
	m.clampedLower, m.clampedUpper = false, false
	return m.smc.Stop()
}

// Periodic runs one control tick.
func (m *Mechanism) Periodic() error {
	var errs error
	errs = multierr.Append(errs, m.issue())
	if err := m.smc.Update(m.period); err != nil {
		errs = multierr.Append(errs, errors.Wrapf(err, "%s: updating motor controller", m.name))
	}
	m.measure()
	m.checkLimits()
	if m.state == SelfTest {
		errs = multierr.Append(errs, m.advanceSelfTest())
	}
	errs = multierr.Append(errs, m.applyTuning())
	m.publish()
	return errs
}

// SimulationPeriodic steps the simulation with the controller's output voltage and feeds the
// resulting rotor state back to the controller. It does nothing without a plant.
func (m *Mechanism) SimulationPeriodic() {
	if m.plant == nil {
		return
	}
	state := m.plant.Step(m.smc.OutputVoltage(), m.period)
	toMeasurement := m.units.PerRotation / m.units.PlantPerRotation
	m.smc.SetSimulatedState(motorcontroller.SimState{
		Position: m.toRotor(state.Position * toMeasurement),
		Velocity: m.toRotor(state.Velocity * toMeasurement),
		Current:  state.Current,
	})
}

// Close unpublishes telemetry and stops the motor.
func (m *Mechanism) Close() error {
	m.registry.Close()
	m.state = Idle
	m.selfTest = nil
	return m.smc.Stop()
}

func (m *Mechanism) issue() error {
	switch m.state {
	case OpenLoopCommand:
		duty := m.duty
		if (duty > 0 && m.atUpper) || (duty < 0 && m.atLower) {
			duty = 0
		}
		return m.smc.ApplyDutyCycle(duty)
	case ClosedLoopPositionCommand:
		next := control.ProfileState{Position: m.goal}
		if m.profile != nil {
			next = m.profile.Next(m.period, m.setpoint, control.ProfileState{Position: m.goal})
		}
		acceleration := (next.Velocity - m.setpoint.Velocity) / m.period.Seconds()
		m.setpoint = next
		ff := m.feedforward.Calculate(m.toPlant(next.Position), m.toPlant(next.Velocity), m.toPlant(acceleration))
		return m.smc.ApplyClosedLoopSetpoint(
			motorcontroller.Setpoint{Kind: motorcontroller.PositionSetpoint, Value: m.toRotor(next.Position)}, ff)
	case SelfTest:
		return m.smc.ApplyVoltage(m.selfTest.voltage())
	default:
		return nil
	}
}

func (m *Mechanism) measure() {
	m.rotorPosition = m.smc.MeasuredPosition()
	m.rotorVelocity = m.smc.MeasuredVelocity()
	m.position = m.fromRotor(m.rotorPosition)
	m.velocity = m.fromRotor(m.rotorVelocity)
}

func (m *Mechanism) checkLimits() {
	if !m.limits.HasSoft {
		m.atLower, m.atUpper = false, false
		return
	}
	m.atLower = m.position <= m.limits.SoftLower
	m.atUpper = m.position >= m.limits.SoftUpper
}

func (m *Mechanism) toRotor(measurement float64) float64 {
	return m.converter.ToRotor(measurement / m.units.PerRotation)
}

func (m *Mechanism) fromRotor(rotor float64) float64 {
	return m.converter.ToMechanism(rotor) * m.units.PerRotation
}

func (m *Mechanism) toPlant(measurement float64) float64 {
	return measurement / m.units.PerRotation * m.units.PlantPerRotation
}

func (m *Mechanism) gravityTerm(plantPosition float64) (float64, bool) {
	switch m.gravity {
	case ConstantGravity:
		return 1, true
	case CosineGravity:
		return math.Cos(plantPosition), true
	default:
		return 0, false
	}
}
