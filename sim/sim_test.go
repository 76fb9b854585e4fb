package sim

import (
	"math"
	"testing"
	"time"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestDCMotor(t *testing.T) {
	neo := NEO(1)
	test.That(t, neo.Resistance, test.ShouldAlmostEqual, 12.0/105)
	test.That(t, neo.Kt, test.ShouldAlmostEqual, 2.6/105)
	// stalled motor draws stall current at nominal voltage
	test.That(t, neo.Current(0, 12), test.ShouldAlmostEqual, 105.0)
	// at free speed only the free current flows
	test.That(t, neo.Current(neo.FreeSpeed, 12), test.ShouldAlmostEqual, 1.8, 1e-6)
	test.That(t, neo.Voltage(neo.Torque(10), 100), test.ShouldAlmostEqual, 100/neo.Kv+10*neo.Resistance)

	two := KrakenX60(2)
	test.That(t, two.StallCurrent, test.ShouldEqual, 732.0)
	test.That(t, Falcon500(1).FreeSpeed, test.ShouldAlmostEqual, 6380*2*math.Pi/60)
}

func TestLinearPlantDimensions(t *testing.T) {
	_, err := NewLinearPlant(mat.NewDense(2, 3, nil), mat.NewDense(2, 1, nil), []float64{0, 0})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewLinearPlant(mat.NewDense(2, 2, nil), mat.NewDense(3, 1, nil), []float64{0, 0})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewLinearPlant(mat.NewDense(2, 2, nil), mat.NewDense(2, 1, nil), []float64{0})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLinearPlantIntegrates(t *testing.T) {
	// double integrator
	p, err := NewLinearPlant(mat.NewDense(2, 2, []float64{0, 1, 0, 0}), mat.NewDense(2, 1, []float64{0, 1}), []float64{0, 0})
	test.That(t, err, test.ShouldBeNil)
	p.Step([]float64{2}, time.Second)
	x := p.State()
	test.That(t, x[1], test.ShouldAlmostEqual, 2.0, 1e-9)
	test.That(t, x[0], test.ShouldAlmostEqual, 1.0, 1e-2)
}

func elevatorConfig() ElevatorConfig {
	return ElevatorConfig{
		Motor:           NEO(2),
		Gearing:         12,
		CarriageMass:    16 * 0.45359237,
		DrumRadius:      0.1397 / (2 * math.Pi),
		MinHeight:       0,
		MaxHeight:       3,
		StartHeight:     0.5,
		SimulateGravity: true,
	}
}

func TestElevatorFallsToHardLimit(t *testing.T) {
	e, err := NewElevatorPlant(elevatorConfig())
	test.That(t, err, test.ShouldBeNil)
	// back EMF limits the fall to a few centimeters per second
	for i := 0; i < 2000; i++ {
		e.Step(0, 20*time.Millisecond)
	}
	test.That(t, e.State().Position, test.ShouldEqual, 0.0)
	test.That(t, e.State().Velocity, test.ShouldEqual, 0.0)
}

func TestElevatorWithoutHardLimits(t *testing.T) {
	cfg := elevatorConfig()
	cfg.MinHeight, cfg.MaxHeight = 0, 0
	e, err := NewElevatorPlant(cfg)
	test.That(t, err, test.ShouldBeNil)
	for i := 0; i < 50; i++ {
		e.Step(0, 20*time.Millisecond)
	}
	test.That(t, e.State().Position, test.ShouldBeLessThan, 0.5)
	test.That(t, e.State().Velocity, test.ShouldBeLessThan, 0.0)

	e.SetState(State{Position: -1})
	e.Step(0, 20*time.Millisecond)
	test.That(t, e.State().Position, test.ShouldBeLessThan, -1.0)
}

func TestElevatorHoldsWithGravityVoltage(t *testing.T) {
	cfg := elevatorConfig()
	e, err := NewElevatorPlant(cfg)
	test.That(t, err, test.ShouldBeNil)
	m := cfg.Motor
	kG := gravity * m.Resistance * cfg.DrumRadius * cfg.CarriageMass / (cfg.Gearing * m.Kt)
	for i := 0; i < 50; i++ {
		e.Step(kG, 20*time.Millisecond)
	}
	test.That(t, e.State().Position, test.ShouldAlmostEqual, 0.5, 1e-6)
	test.That(t, e.State().Current, test.ShouldBeGreaterThan, 0.0)

	for i := 0; i < 50; i++ {
		e.Step(12, 20*time.Millisecond)
	}
	test.That(t, e.State().Position, test.ShouldBeGreaterThan, 0.5)

	_, err = NewElevatorPlant(ElevatorConfig{Motor: NEO(1), Gearing: 1, CarriageMass: 1, DrumRadius: 1, MinHeight: 2, MaxHeight: 1})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestArm(t *testing.T) {
	arm, err := NewArmPlant(ArmConfig{
		Motor:           Falcon500(1),
		Gearing:         10,
		Length:          0.5,
		Mass:            2,
		MinAngle:        -math.Pi / 2,
		MaxAngle:        math.Pi / 2,
		StartAngle:      0,
		SimulateGravity: true,
	})
	test.That(t, err, test.ShouldBeNil)
	for i := 0; i < 500; i++ {
		arm.Step(0, 20*time.Millisecond)
	}
	test.That(t, arm.State().Position, test.ShouldAlmostEqual, -math.Pi/2, 1e-2)

	arm.SetState(State{Position: 0})
	for i := 0; i < 50; i++ {
		arm.Step(6, 20*time.Millisecond)
	}
	test.That(t, arm.State().Position, test.ShouldBeGreaterThan, 0.0)
}

func TestArmWithoutHardLimits(t *testing.T) {
	arm, err := NewArmPlant(ArmConfig{
		Motor:           Falcon500(1),
		Gearing:         10,
		Length:          0.5,
		Mass:            2,
		StartAngle:      0.3,
		SimulateGravity: true,
	})
	test.That(t, err, test.ShouldBeNil)
	arm.Step(0, 20*time.Millisecond)
	test.That(t, arm.State().Position, test.ShouldBeLessThan, 0.3)
	test.That(t, arm.State().Position, test.ShouldBeGreaterThan, 0.0)
}

func TestFlywheel(t *testing.T) {
	f := NewFlywheelPlant(NEO(1), 1, 0.001)
	for i := 0; i < 200; i++ {
		f.Step(12, 20*time.Millisecond)
	}
	// no friction, so the wheel settles where back EMF cancels the supply
	test.That(t, f.State().Velocity, test.ShouldAlmostEqual, 12*NEO(1).Kv, 1)
	test.That(t, f.State().Current, test.ShouldBeLessThan, 5.0)
}
