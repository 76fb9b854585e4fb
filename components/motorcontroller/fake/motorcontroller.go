// Package fake implements a simulated vendor smart motor controller. It runs its closed loop
// onboard with the live gains and senses current and temperature from a DC motor model.
package fake

import (
	"math"
	"sync"
	"time"

	"go.viam.com/yams/components/motorcontroller"
	"go.viam.com/yams/control"
	"go.viam.com/yams/logging"
	"go.viam.com/yams/sim"
	"go.viam.com/yams/telemetry"
	"go.viam.com/yams/utils"
)

const (
	ambientTemperature = 25.0
	// thermal model of the motor windings: heating per watt and cooling per degree above ambient
	heatingPerJoule = 0.002
	coolingPerSec   = 0.01
	rotorInertia    = 0.0005
)

type outputMode int

const (
	modeIdle outputMode = iota
	modeDutyCycle
	modeVoltage
	modeClosedLoop
)

var _ motorcontroller.SmartMotorController = &MotorController{}

// MotorController is a simulated smart motor controller. Without a simulation feeding it through
// SetSimulatedState it drives a small internal rotor inertia.
type MotorController struct {
	mu     sync.Mutex
	cfg    motorcontroller.Config
	motor  sim.DCMotor
	logger logging.Logger

	pid            *control.PID
	statorLimit    float64
	supplyLimit    float64
	openLoopRamp   float64
	closedLoopRamp float64

	mode        outputMode
	command     float64
	setpoint    motorcontroller.Setpoint
	feedforward float64

	voltage     float64
	position    float64
	velocity    float64
	stator      float64
	temperature float64

	internal    *sim.FlywheelPlant
	externalSim bool
}

// NewMotorController returns a simulated controller for cfg driving motor.
func NewMotorController(cfg motorcontroller.Config, motor sim.DCMotor, logger logging.Logger) (*MotorController, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	gains, _ := cfg.ClosedLoopGains()
	pid := control.NewPID(gains)
	pid.SetOutputRange(-motor.NominalVoltage, motor.NominalVoltage)
	m := &MotorController{
		cfg:         cfg,
		motor:       motor,
		logger:      logger,
		pid:         pid,
		temperature: ambientTemperature,
		internal:    sim.NewFlywheelPlant(motor, 1, rotorInertia),
	}
	m.statorLimit, _ = cfg.StatorCurrentLimit()
	m.supplyLimit, _ = cfg.SupplyCurrentLimit()
	m.openLoopRamp, _ = cfg.OpenLoopRampRate()
	m.closedLoopRamp, _ = cfg.ClosedLoopRampRate()
	return m, nil
}

// Name returns the controller name.
func (m *MotorController) Name() string {
	return m.cfg.Name()
}

// Config returns the controller config.
func (m *MotorController) Config() motorcontroller.Config {
	return m.cfg
}

// ApplyDutyCycle commands an open loop output fraction.
func (m *MotorController) ApplyDutyCycle(fraction float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = modeDutyCycle
	m.command = utils.ClampPower(fraction)
	return nil
}

// ApplyVoltage commands an open loop voltage.
func (m *MotorController) ApplyVoltage(volts float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = modeVoltage
	m.command = utils.Clamp(volts, -m.motor.NominalVoltage, m.motor.NominalVoltage)
	return nil
}

// ApplyClosedLoopSetpoint hands a setpoint to the onboard closed loop.
func (m *MotorController) ApplyClosedLoopSetpoint(setpoint motorcontroller.Setpoint, feedforwardVolts float64) error {
	if m.cfg.ControlMode() != motorcontroller.ClosedLoop {
		return utils.NewUnsupportedControlModeError(m.Name(), m.cfg.ControlMode())
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode != modeClosedLoop || m.setpoint.Kind != setpoint.Kind {
		m.pid.Reset()
	}
	m.mode = modeClosedLoop
	m.setpoint = setpoint
	m.feedforward = feedforwardVolts
	return nil
}

// Update runs one step of the onboard loop and the motor model.
func (m *MotorController) Update(dt time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	target := m.targetVoltage(dt)
	target = m.limitRamp(target, dt)
	target = m.limitCurrent(target)
	if cutoff, ok := m.cfg.TemperatureCutoff(); ok && m.temperature >= cutoff {
		target = 0
	}
	m.voltage = target

	if !m.externalSim {
		state := m.internal.Step(m.motorVoltage(), dt)
		m.position = m.fromRotor(state.Position / (2 * math.Pi))
		m.velocity = m.fromRotor(state.Velocity / (2 * math.Pi))
		m.stator = math.Abs(m.motor.Current(m.velocity*2*math.Pi, m.voltage))
		if m.voltage == 0 {
			m.stator = 0
		}
	}
	power := m.stator * m.stator * m.motor.Resistance
	m.temperature += (power*heatingPerJoule - (m.temperature-ambientTemperature)*coolingPerSec) * dt.Seconds()
	return nil
}

func (m *MotorController) targetVoltage(dt time.Duration) float64 {
	switch m.mode {
	case modeDutyCycle:
		return m.command * m.motor.NominalVoltage
	case modeVoltage:
		return m.command
	case modeClosedLoop:
		measured := m.position
		if m.setpoint.Kind == motorcontroller.VelocitySetpoint {
			measured = m.velocity
		}
		out := m.pid.Next(m.setpoint.Value, measured, dt) + m.feedforward
		return utils.Clamp(out, -m.motor.NominalVoltage, m.motor.NominalVoltage)
	default:
		return 0
	}
}

func (m *MotorController) limitRamp(target float64, dt time.Duration) float64 {
	ramp := m.openLoopRamp
	if m.mode == modeClosedLoop {
		ramp = m.closedLoopRamp
	}
	if ramp <= 0 {
		return target
	}
	maxStep := m.motor.NominalVoltage / ramp * dt.Seconds()
	return utils.Clamp(target, m.voltage-maxStep, m.voltage+maxStep)
}

func (m *MotorController) limitCurrent(target float64) float64 {
	speed := m.velocity * 2 * math.Pi
	if m.statorLimit > 0 {
		current := m.motor.Current(speed, target)
		if math.Abs(current) > m.statorLimit {
			target = m.statorLimit*utils.Sign(current)*m.motor.Resistance + speed/m.motor.Kv
		}
	}
	if m.supplyLimit > 0 {
		duty := math.Abs(target) / m.motor.NominalVoltage
		supply := math.Abs(m.motor.Current(speed, target)) * duty
		if supply > m.supplyLimit {
			target *= m.supplyLimit / supply
		}
	}
	return target
}

func (m *MotorController) motorVoltage() float64 {
	if m.cfg.MotorInverted() {
		return -m.voltage
	}
	return m.voltage
}

func (m *MotorController) fromRotor(x float64) float64 {
	if m.cfg.MotorInverted() {
		x = -x
	}
	if m.cfg.EncoderInverted() {
		x = -x
	}
	return x
}

// MeasuredPosition returns the rotor position in rotations.
func (m *MotorController) MeasuredPosition() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// MeasuredVelocity returns the rotor velocity in rotations per second.
func (m *MotorController) MeasuredVelocity() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.velocity
}

// OutputVoltage returns the applied voltage.
func (m *MotorController) OutputVoltage() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.voltage
}

// SupplyCurrent returns the current drawn from the supply.
func (m *MotorController) SupplyCurrent() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stator * math.Abs(m.voltage) / m.motor.NominalVoltage, true
}

// StatorCurrent returns the winding current.
func (m *MotorController) StatorCurrent() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stator, true
}

// Temperature returns the estimated winding temperature.
func (m *MotorController) Temperature() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.temperature, true
}

// UnsupportedTelemetryFields reports nothing; the simulated controller senses everything.
func (m *MotorController) UnsupportedTelemetryFields() ([]telemetry.BooleanField, []telemetry.DoubleField) {
	return nil, nil
}

// SetClosedLoopGains replaces the onboard gains.
func (m *MotorController) SetClosedLoopGains(gains control.PIDGains) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pid.SetGains(gains)
	return nil
}

// SetCurrentLimits replaces the current limits.
func (m *MotorController) SetCurrentLimits(statorAmps, supplyAmps float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statorLimit, m.supplyLimit = statorAmps, supplyAmps
	return nil
}

// SetRampRates replaces the ramp rates.
func (m *MotorController) SetRampRates(openLoopSeconds, closedLoopSeconds float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openLoopRamp, m.closedLoopRamp = openLoopSeconds, closedLoopSeconds
	return nil
}

// SetSimulatedState takes rotor measurements from an external simulation from now on.
func (m *MotorController) SetSimulatedState(state motorcontroller.SimState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.externalSim = true
	m.position = state.Position
	m.velocity = state.Velocity
	m.stator = math.Abs(state.Current)
}

// Stop idles the motor.
func (m *MotorController) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = modeIdle
	m.command = 0
	m.voltage = 0
	return nil
}
