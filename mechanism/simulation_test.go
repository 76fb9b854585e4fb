package mechanism_test

import (
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/yams/components/motorcontroller"
	"go.viam.com/yams/components/motorcontroller/fake"
	"go.viam.com/yams/control"
	"go.viam.com/yams/gearing"
	"go.viam.com/yams/logging"
	"go.viam.com/yams/mechanism"
	"go.viam.com/yams/sim"
	"go.viam.com/yams/telemetry/networktables"
)

const carriageMass = 16 * 0.45359237

type ticker interface {
	Periodic() error
	SimulationPeriodic()
}

func run(t *testing.T, m ticker, ticks int) {
	t.Helper()
	for i := 0; i < ticks; i++ {
		test.That(t, m.Periodic(), test.ShouldBeNil)
		m.SimulationPeriodic()
	}
}

func simulatedElevator(t *testing.T, cfg motorcontroller.Config, inst *networktables.Instance) *mechanism.Elevator {
	t.Helper()
	return simulatedElevatorWithin(t, cfg, inst, 0, 3)
}

func simulatedElevatorWithin(
	t *testing.T,
	cfg motorcontroller.Config,
	inst *networktables.Instance,
	hardLower, hardUpper float64,
) *mechanism.Elevator {
	t.Helper()
	logger := logging.NewTestLogger(t)
	motor := sim.NEO(1)
	smc, err := fake.NewMotorController(cfg, motor, logger)
	test.That(t, err, test.ShouldBeNil)
	ecfg := mechanism.ElevatorConfig{
		Name:           "elevator",
		StartingHeight: 0.5,
		HardLowerLimit: hardLower,
		HardUpperLimit: hardUpper,
		Mass:           carriageMass,
		Motor:          &motor,
	}
	if inst != nil {
		ecfg.Telemetry = inst.Table("")
	}
	elevator, err := mechanism.NewElevator(ecfg, smc, logger)
	test.That(t, err, test.ShouldBeNil)
	return elevator
}

func TestSimulatedElevatorTracksClampedSetpoint(t *testing.T) {
	inst := networktables.NewInstance()
	cfg := elevatorMotorConfig().WithMotionProfile(0.5, 0.5).WithStatorCurrentLimit(40)
	elevator := simulatedElevator(t, cfg, inst)
	test.That(t, elevator.Height(), test.ShouldAlmostEqual, 0.5, 1e-9)

	test.That(t, elevator.SetHeight(3.0), test.ShouldBeNil)
	run(t, elevator, 1)
	// the profile limits the first step
	test.That(t, elevator.Setpoint().Position, test.ShouldBeLessThan, 0.51)
	run(t, elevator, 400)
	test.That(t, elevator.Height(), test.ShouldAlmostEqual, 2.0, 0.05)
	test.That(t, elevator.Setpoint().Position, test.ShouldAlmostEqual, 2.0, 1e-9)

	data := inst.Table("Mechanisms/ElevatorMotor")
	upper, _ := data.Get("Mechanism Upper Limit Reached")
	test.That(t, upper, test.ShouldEqual, true)
	stator, ok := data.Get("Stator Current")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, stator.(float64), test.ShouldBeLessThanOrEqualTo, 40.0+1e-6)
}

func TestSimulatedElevatorWithoutHardLimits(t *testing.T) {
	cfg := elevatorMotorConfig().WithMotionProfile(0.5, 0.5)
	elevator := simulatedElevatorWithin(t, cfg, nil, 0, 0)
	test.That(t, elevator.Height(), test.ShouldAlmostEqual, 0.5, 1e-9)
	test.That(t, elevator.SetHeight(1.0), test.ShouldBeNil)
	run(t, elevator, 300)
	test.That(t, elevator.Height(), test.ShouldAlmostEqual, 1.0, 0.05)
}

func TestSimulatedElevatorFallsWhenIdle(t *testing.T) {
	elevator := simulatedElevator(t, elevatorMotorConfig(), nil)
	run(t, elevator, 500)
	test.That(t, elevator.Height(), test.ShouldBeLessThan, 0.5)
	test.That(t, elevator.Height(), test.ShouldBeGreaterThanOrEqualTo, 0.0)
}

func TestSimulatedArmHoldsAngle(t *testing.T) {
	logger := logging.NewTestLogger(t)
	motor := sim.NEO(1)
	cfg := motorcontroller.NewConfig("arm").
		WithGearing(gearing.NewMechanismGearing(gearing.MustFromReductionStages(5, 10))).
		WithClosedLoopController(2, 0, 0).
		WithFeedforward(control.NewArmFeedforward(0, 0.45, 0, 0)).
		WithSoftLimits(-0.2, 0.2).
		WithControlMode(motorcontroller.ClosedLoop)
	smc, err := fake.NewMotorController(cfg, motor, logger)
	test.That(t, err, test.ShouldBeNil)
	arm, err := mechanism.NewArm(mechanism.ArmConfig{
		Name:           "arm",
		HardLowerLimit: -90,
		HardUpperLimit: 90,
		Length:         0.5,
		Mass:           2,
		Motor:          &motor,
	}, smc, logger)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, arm.SetAngle(30), test.ShouldBeNil)
	run(t, arm, 250)
	test.That(t, arm.Angle(), test.ShouldAlmostEqual, 30.0, 1.5)

	test.That(t, arm.SetAngle(100), test.ShouldBeNil)
	test.That(t, arm.Goal(), test.ShouldAlmostEqual, 72.0, 1e-9)
}

func TestSelfTestCharacterizesElevator(t *testing.T) {
	cfg := elevatorMotorConfig().WithLinearSoftLimits(0.2, 2)
	elevator := simulatedElevator(t, cfg, nil)
	test.That(t, elevator.StartSelfTest(mechanism.SelfTestConfig{PhaseTimeout: 10 * time.Second}), test.ShouldBeNil)

	ticks := 0
	for elevator.State() == mechanism.SelfTest && ticks < 3000 {
		test.That(t, elevator.Periodic(), test.ShouldBeNil)
		elevator.SimulationPeriodic()
		ticks++
	}
	test.That(t, elevator.State(), test.ShouldEqual, mechanism.Idle)
	result, ok := elevator.SelfTestResult()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, result.Samples, test.ShouldBeGreaterThan, 100)

	motor := sim.NEO(1)
	radius := circumference / (2 * 3.141592653589793)
	kV := 12 / (radius * motor.Kv)
	kA := motor.Resistance * radius * carriageMass / (12 * motor.Kt)
	kG := kA * 9.80665
	test.That(t, result.Coefficients.KV, test.ShouldAlmostEqual, kV, 0.1*kV)
	test.That(t, result.Coefficients.KG, test.ShouldAlmostEqual, kG, 0.2)
	test.That(t, result.Coefficients.KS, test.ShouldAlmostEqual, 0.0, 0.2)
	test.That(t, result.RMSE, test.ShouldBeLessThan, 0.3)
}
