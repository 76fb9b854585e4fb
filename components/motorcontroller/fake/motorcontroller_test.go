package fake

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/yams/components/motorcontroller"
	"go.viam.com/yams/control"
	"go.viam.com/yams/logging"
	"go.viam.com/yams/sim"
	"go.viam.com/yams/utils"
)

const dt = 20 * time.Millisecond

func newController(t *testing.T, cfg motorcontroller.Config) *MotorController {
	t.Helper()
	m, err := NewMotorController(cfg, sim.NEO(1), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return m
}

func run(t *testing.T, m *MotorController, ticks int) {
	t.Helper()
	for i := 0; i < ticks; i++ {
		test.That(t, m.Update(dt), test.ShouldBeNil)
	}
}

func TestInvalidConfig(t *testing.T) {
	_, err := NewMotorController(motorcontroller.NewConfig("bad").WithControlMode(motorcontroller.ClosedLoop),
		sim.NEO(1), logging.NewTestLogger(t))
	test.That(t, errors.Is(err, utils.ErrInvalidConfiguration), test.ShouldBeTrue)
}

func TestClosedLoopNeedsClosedLoopMode(t *testing.T) {
	m := newController(t, motorcontroller.NewConfig("open").WithClosedLoopController(1, 0, 0))
	err := m.ApplyClosedLoopSetpoint(motorcontroller.Setpoint{Value: 1}, 0)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, utils.ErrUnsupportedControlMode), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "open_loop")
}

func TestClosedLoopPosition(t *testing.T) {
	cfg := motorcontroller.NewConfig("wheel").
		WithClosedLoopController(2, 0, 0).
		WithControlMode(motorcontroller.ClosedLoop)
	m := newController(t, cfg)
	test.That(t, m.ApplyClosedLoopSetpoint(motorcontroller.Setpoint{Value: 10}, 0), test.ShouldBeNil)
	run(t, m, 200)
	test.That(t, m.MeasuredPosition(), test.ShouldAlmostEqual, 10.0, 0.05)
	test.That(t, m.MeasuredVelocity(), test.ShouldAlmostEqual, 0.0, 0.05)
	test.That(t, m.Config().ControlMode(), test.ShouldEqual, motorcontroller.ClosedLoop)

	test.That(t, m.SetClosedLoopGains(control.PIDGains{P: 0}), test.ShouldBeNil)
	test.That(t, m.ApplyClosedLoopSetpoint(motorcontroller.Setpoint{Value: 20}, 0), test.ShouldBeNil)
	run(t, m, 1)
	test.That(t, m.OutputVoltage(), test.ShouldAlmostEqual, 0.0)
	gains, _ := m.Config().ClosedLoopGains()
	test.That(t, gains.P, test.ShouldEqual, 2.0)
}

func TestClosedLoopVelocity(t *testing.T) {
	cfg := motorcontroller.NewConfig("wheel").
		WithClosedLoopController(0.5, 2, 0).
		WithControlMode(motorcontroller.ClosedLoop)
	m := newController(t, cfg)
	test.That(t, m.ApplyClosedLoopSetpoint(motorcontroller.Setpoint{Kind: motorcontroller.VelocitySetpoint, Value: 30}, 0), test.ShouldBeNil)
	run(t, m, 300)
	test.That(t, m.MeasuredVelocity(), test.ShouldAlmostEqual, 30.0, 0.5)
}

func TestStatorCurrentLimit(t *testing.T) {
	m := newController(t, motorcontroller.NewConfig("limited").WithStatorCurrentLimit(40))
	test.That(t, m.ApplyDutyCycle(1), test.ShouldBeNil)
	run(t, m, 1)
	stator, ok := m.StatorCurrent()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, stator, test.ShouldBeLessThanOrEqualTo, 40.0)
	test.That(t, m.OutputVoltage(), test.ShouldBeLessThan, 12.0)

	test.That(t, m.SetCurrentLimits(0, 0), test.ShouldBeNil)
	run(t, m, 1)
	test.That(t, m.OutputVoltage(), test.ShouldEqual, 12.0)
	supply, ok := m.SupplyCurrent()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, supply, test.ShouldBeGreaterThan, 0.0)
}

func TestRampRate(t *testing.T) {
	m := newController(t, motorcontroller.NewConfig("ramped").WithOpenLoopRampRate(1))
	test.That(t, m.ApplyDutyCycle(1), test.ShouldBeNil)
	run(t, m, 1)
	test.That(t, m.OutputVoltage(), test.ShouldAlmostEqual, 0.24)
	run(t, m, 1)
	test.That(t, m.OutputVoltage(), test.ShouldAlmostEqual, 0.48)

	test.That(t, m.SetRampRates(0, 0), test.ShouldBeNil)
	run(t, m, 1)
	test.That(t, m.OutputVoltage(), test.ShouldEqual, 12.0)
}

func TestTemperatureCutoff(t *testing.T) {
	m := newController(t, motorcontroller.NewConfig("hot").WithTemperatureCutoff(ambientTemperature))
	test.That(t, m.ApplyVoltage(6), test.ShouldBeNil)
	run(t, m, 1)
	test.That(t, m.OutputVoltage(), test.ShouldEqual, 0.0)
	temp, ok := m.Temperature()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, temp, test.ShouldEqual, ambientTemperature)
}

func TestInversion(t *testing.T) {
	motorInverted := newController(t, motorcontroller.NewConfig("m").WithMotorInverted(true))
	test.That(t, motorInverted.ApplyDutyCycle(0.5), test.ShouldBeNil)
	run(t, motorInverted, 10)
	test.That(t, motorInverted.MeasuredPosition(), test.ShouldBeGreaterThan, 0.0)

	encoderInverted := newController(t, motorcontroller.NewConfig("e").WithEncoderInverted(true))
	test.That(t, encoderInverted.ApplyDutyCycle(0.5), test.ShouldBeNil)
	run(t, encoderInverted, 10)
	test.That(t, encoderInverted.MeasuredPosition(), test.ShouldBeLessThan, 0.0)
}

func TestSimulatedState(t *testing.T) {
	m := newController(t, motorcontroller.NewConfig("simulated"))
	m.SetSimulatedState(motorcontroller.SimState{Position: 3, Velocity: 1.5, Current: -2})
	run(t, m, 5)
	test.That(t, m.MeasuredPosition(), test.ShouldEqual, 3.0)
	test.That(t, m.MeasuredVelocity(), test.ShouldEqual, 1.5)
	current, ok := m.StatorCurrent()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, current, test.ShouldEqual, 2.0)

	test.That(t, m.ApplyVoltage(3), test.ShouldBeNil)
	m.SetSimulatedState(motorcontroller.SimState{Position: 3, Velocity: 1.5, Current: 17})
	run(t, m, 1)
	test.That(t, m.OutputVoltage(), test.ShouldEqual, 3.0)
	current, _ = m.StatorCurrent()
	test.That(t, current, test.ShouldEqual, 17.0)
	test.That(t, m.Stop(), test.ShouldBeNil)
	test.That(t, m.OutputVoltage(), test.ShouldEqual, 0.0)
	booleans, doubles := m.UnsupportedTelemetryFields()
	test.That(t, booleans, test.ShouldBeEmpty)
	test.That(t, doubles, test.ShouldBeEmpty)
}
