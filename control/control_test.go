package control

import (
	"math"
	"testing"
	"time"

	"go.viam.com/test"
)

func TestPIDProportional(t *testing.T) {
	pid := NewPID(PIDGains{P: 4})
	test.That(t, pid.Next(1, 0.25, 20*time.Millisecond), test.ShouldAlmostEqual, 3.0)
	test.That(t, pid.Gains(), test.ShouldResemble, PIDGains{P: 4})
}

func TestPIDIntegratorWindup(t *testing.T) {
	pid := NewPID(PIDGains{I: 10})
	pid.SetOutputRange(-1, 1)
	for i := 0; i < 100; i++ {
		test.That(t, pid.Next(1, 0, 20*time.Millisecond), test.ShouldBeLessThanOrEqualTo, 1.0)
	}
	// integrator is held at 1.2 while saturated
	test.That(t, pid.Next(-1, 0, 20*time.Millisecond), test.ShouldAlmostEqual, 1.0)
	test.That(t, pid.Next(-1, 0, 20*time.Millisecond), test.ShouldAlmostEqual, 0.8)

	pid.Reset()
	test.That(t, pid.Next(0, 0, 20*time.Millisecond), test.ShouldEqual, 0.0)
}

func TestPIDDerivative(t *testing.T) {
	pid := NewPID(PIDGains{D: 1})
	test.That(t, pid.Next(1, 0, time.Second), test.ShouldEqual, 0.0)
	test.That(t, pid.Next(2, 0, time.Second), test.ShouldAlmostEqual, 1.0)
}

func TestFeedforward(t *testing.T) {
	var none Feedforward
	test.That(t, none.Calculate(1, 1, 1), test.ShouldEqual, 0.0)
	test.That(t, none.WithCoefficients(FeedforwardCoefficients{KS: 1}).Kind(), test.ShouldEqual, FeedforwardNone)

	simple := NewSimpleFeedforward(0.1, 2, 0.5)
	test.That(t, simple.Calculate(0, 1, 2), test.ShouldAlmostEqual, 3.1)
	test.That(t, simple.Calculate(0, -1, 0), test.ShouldAlmostEqual, -2.1)
	test.That(t, simple.WithCoefficients(FeedforwardCoefficients{KG: 3}).Coefficients().KG, test.ShouldEqual, 0.0)

	elevator := NewElevatorFeedforward(0, 0.8, 1, 0)
	test.That(t, elevator.Calculate(0, 0, 0), test.ShouldAlmostEqual, 0.8)
	test.That(t, elevator.Kind().HasGravity(), test.ShouldBeTrue)

	arm := NewArmFeedforward(0, 1, 0, 0)
	test.That(t, arm.Calculate(0, 0, 0), test.ShouldAlmostEqual, 1.0)
	test.That(t, arm.Calculate(math.Pi/2, 0, 0), test.ShouldAlmostEqual, 0.0)
	test.That(t, arm.Kind().String(), test.ShouldEqual, "arm")
}

func TestTrapezoidProfile(t *testing.T) {
	_, err := NewTrapezoidProfile(TrapezoidConstraints{MaxVelocity: 0, MaxAcceleration: 1})
	test.That(t, err, test.ShouldNotBeNil)

	profile, err := NewTrapezoidProfile(TrapezoidConstraints{MaxVelocity: 0.5, MaxAcceleration: 0.5})
	test.That(t, err, test.ShouldBeNil)

	goal := ProfileState{Position: 1.0}
	state := ProfileState{Position: 0.5}
	dt := 20 * time.Millisecond
	for i := 0; i < 500; i++ {
		next := profile.Next(dt, state, goal)
		test.That(t, math.Abs(next.Velocity), test.ShouldBeLessThanOrEqualTo, 0.5+1e-9)
		test.That(t, math.Abs(next.Velocity-state.Velocity), test.ShouldBeLessThanOrEqualTo, 0.5*dt.Seconds()+1e-9)
		state = next
	}
	test.That(t, state.Position, test.ShouldAlmostEqual, 1.0)
	test.That(t, state.Velocity, test.ShouldAlmostEqual, 0.0)

	// reverse direction
	state = profile.Next(dt, ProfileState{Position: 1}, ProfileState{Position: 0})
	test.That(t, state.Velocity, test.ShouldBeLessThan, 0.0)

	test.That(t, profile.SetConstraints(TrapezoidConstraints{MaxVelocity: -1, MaxAcceleration: 1}), test.ShouldBeFalse)
	test.That(t, profile.Constraints().MaxVelocity, test.ShouldEqual, 0.5)
}

func TestMovingAverage(t *testing.T) {
	f := NewMovingAverage(3)
	test.That(t, f.Next(3), test.ShouldEqual, 3.0)
	test.That(t, f.Next(6), test.ShouldEqual, 4.5)
	test.That(t, f.Next(9), test.ShouldEqual, 6.0)
	test.That(t, f.Next(12), test.ShouldEqual, 9.0)
}
