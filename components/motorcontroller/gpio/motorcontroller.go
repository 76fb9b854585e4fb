// Package gpio implements a smart motor controller on top of a plain PWM motor driver and a
// quadrature encoder. The closed loop runs on the host each Update, and there is no current or
// temperature sensing.
package gpio

import (
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/yams/components/motorcontroller"
	"go.viam.com/yams/control"
	"go.viam.com/yams/logging"
	"go.viam.com/yams/telemetry"
	"go.viam.com/yams/utils"
)

// Output is a PWM motor driver.
type Output interface {
	// SetPower sets the output power in [-1, 1].
	SetPower(power float64) error
}

// Encoder is a rotor encoder.
type Encoder interface {
	// Position returns the accumulated encoder ticks.
	Position() (float64, error)
}

// Options describe the hardware behind the controller.
type Options struct {
	TicksPerRotation float64
	SupplyVoltage    float64
	// MaxPower caps the output power, default 1.
	MaxPower float64
	// VelocityWindow is the number of samples averaged for the velocity estimate, default 5.
	VelocityWindow int
}

var _ motorcontroller.SmartMotorController = &MotorController{}

// MotorController runs a host side PID on encoder ticks and drives a PWM output.
type MotorController struct {
	mu     sync.Mutex
	cfg    motorcontroller.Config
	out    Output
	enc    Encoder
	opts   Options
	logger logging.Logger

	pid            *control.PID
	velocityFilter *control.MovingAverage
	openLoopRamp   float64
	closedLoopRamp float64

	closedLoop  bool
	power       float64
	command     float64
	setpoint    motorcontroller.Setpoint
	feedforward float64

	position    float64
	velocity    float64
	lastReading float64
	hasReading  bool
}

// NewMotorController returns a controller driving out and reading enc.
func NewMotorController(
	cfg motorcontroller.Config,
	out Output,
	enc Encoder,
	opts Options,
	logger logging.Logger,
) (*MotorController, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.Errorf("%s: gpio motor controller needs an output", cfg.Name())
	}
	if opts.TicksPerRotation == 0 {
		opts.TicksPerRotation = 1
	}
	if opts.SupplyVoltage <= 0 {
		opts.SupplyVoltage = 12
	}
	if opts.MaxPower <= 0 || opts.MaxPower > 1 {
		opts.MaxPower = 1
	}
	if opts.VelocityWindow <= 0 {
		opts.VelocityWindow = 5
	}
	gains, _ := cfg.ClosedLoopGains()
	pid := control.NewPID(gains)
	pid.SetOutputRange(-opts.SupplyVoltage, opts.SupplyVoltage)
	m := &MotorController{
		cfg:            cfg,
		out:            out,
		enc:            enc,
		opts:           opts,
		logger:         logger,
		pid:            pid,
		velocityFilter: control.NewMovingAverage(opts.VelocityWindow),
	}
	m.openLoopRamp, _ = cfg.OpenLoopRampRate()
	m.closedLoopRamp, _ = cfg.ClosedLoopRampRate()
	return m, nil
}

func fixPowerPct(powerPct, max float64) float64 {
	return math.Max(math.Min(powerPct, max), -max)
}

// Name returns the controller name.
func (m *MotorController) Name() string {
	return m.cfg.Name()
}

// Config returns the controller config.
func (m *MotorController) Config() motorcontroller.Config {
	return m.cfg
}

// ApplyDutyCycle commands an open loop power.
func (m *MotorController) ApplyDutyCycle(fraction float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closedLoop = false
	m.command = fixPowerPct(fraction, m.opts.MaxPower)
	return nil
}

// ApplyVoltage commands an open loop voltage, converted to power against the supply voltage.
func (m *MotorController) ApplyVoltage(volts float64) error {
	return m.ApplyDutyCycle(volts / m.opts.SupplyVoltage)
}

// ApplyClosedLoopSetpoint sets the host side loop target.
func (m *MotorController) ApplyClosedLoopSetpoint(setpoint motorcontroller.Setpoint, feedforwardVolts float64) error {
	if m.cfg.ControlMode() != motorcontroller.ClosedLoop {
		return utils.NewUnsupportedControlModeError(m.Name(), m.cfg.ControlMode())
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closedLoop || m.setpoint.Kind != setpoint.Kind {
		m.pid.Reset()
	}
	m.closedLoop = true
	m.setpoint = setpoint
	m.feedforward = feedforwardVolts
	return nil
}

// Update reads the encoder, runs the loop and writes the output.
func (m *MotorController) Update(dt time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.readEncoder(dt); err != nil {
		return err
	}

	target := m.command
	ramp := m.openLoopRamp
	if m.closedLoop {
		measured := m.position
		if m.setpoint.Kind == motorcontroller.VelocitySetpoint {
			measured = m.velocity
		}
		volts := m.pid.Next(m.setpoint.Value, measured, dt) + m.feedforward
		target = volts / m.opts.SupplyVoltage
		ramp = m.closedLoopRamp
	}
	target = fixPowerPct(target, m.opts.MaxPower)
	if ramp > 0 {
		maxStep := dt.Seconds() / ramp
		target = utils.Clamp(target, m.power-maxStep, m.power+maxStep)
	}
	return m.setPower(target)
}

func (m *MotorController) readEncoder(dt time.Duration) error {
	if m.enc == nil {
		return nil
	}
	ticks, err := m.enc.Position()
	if err != nil {
		return errors.Wrapf(err, "%s: reading encoder", m.Name())
	}
	rotations := ticks / m.opts.TicksPerRotation
	if m.cfg.EncoderInverted() {
		rotations = -rotations
	}
	if m.hasReading && dt > 0 {
		m.velocity = m.velocityFilter.Next((rotations - m.lastReading) / dt.Seconds())
	}
	m.lastReading = rotations
	m.hasReading = true
	m.position = rotations
	return nil
}

func (m *MotorController) setPower(power float64) error {
	m.power = power
	if m.cfg.MotorInverted() {
		power = -power
	}
	return m.out.SetPower(power)
}

// MeasuredPosition returns the rotor position in rotations.
func (m *MotorController) MeasuredPosition() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// MeasuredVelocity returns the filtered rotor velocity in rotations per second.
func (m *MotorController) MeasuredVelocity() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.velocity
}

// OutputVoltage returns the output power scaled by the supply voltage.
func (m *MotorController) OutputVoltage() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.power * m.opts.SupplyVoltage
}

// SupplyCurrent is not sensed.
func (m *MotorController) SupplyCurrent() (float64, bool) {
	return 0, false
}

// StatorCurrent is not sensed.
func (m *MotorController) StatorCurrent() (float64, bool) {
	return 0, false
}

// Temperature is not sensed.
func (m *MotorController) Temperature() (float64, bool) {
	return 0, false
}

// UnsupportedTelemetryFields lists the current and temperature fields along with their limits.
func (m *MotorController) UnsupportedTelemetryFields() ([]telemetry.BooleanField, []telemetry.DoubleField) {
	return []telemetry.BooleanField{telemetry.BoolTemperatureLimit},
		[]telemetry.DoubleField{
			telemetry.StatorCurrent,
			telemetry.SupplyCurrent,
			telemetry.StatorCurrentLimit,
			telemetry.SupplyCurrentLimit,
			telemetry.MotorTemperature,
		}
}

// SetClosedLoopGains replaces the host loop gains.
func (m *MotorController) SetClosedLoopGains(gains control.PIDGains) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pid.SetGains(gains)
	return nil
}

// SetCurrentLimits is not supported without current sensing.
func (m *MotorController) SetCurrentLimits(statorAmps, supplyAmps float64) error {
	return errors.Errorf("%s: gpio motor controller cannot limit current", m.Name())
}

// SetRampRates replaces the ramp rates.
func (m *MotorController) SetRampRates(openLoopSeconds, closedLoopSeconds float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openLoopRamp, m.closedLoopRamp = openLoopSeconds, closedLoopSeconds
	return nil
}

// SetSimulatedState stands in for the encoder when the controller has none.
func (m *MotorController) SetSimulatedState(state motorcontroller.SimState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enc != nil {
		return
	}
	m.position = state.Position
	m.velocity = state.Velocity
}

// Stop sets the output power to zero.
func (m *MotorController) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closedLoop = false
	m.command = 0
	return m.setPower(0)
}
