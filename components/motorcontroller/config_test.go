package motorcontroller

import (
	"testing"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/test"

	"go.viam.com/yams/control"
	"go.viam.com/yams/gearing"
	"go.viam.com/yams/telemetry"
	"go.viam.com/yams/utils"
)

const elevatorCircumference = 0.0254 * 0.25 * 22

func elevatorConfig() Config {
	return NewConfig("elevator").
		WithMechanismCircumference(elevatorCircumference).
		WithClosedLoopController(4, 0, 0).
		WithMotionProfile(0.5, 0.5).
		WithLinearSoftLimits(0, 2).
		WithGearing(gearing.NewMechanismGearing(gearing.MustFromReductionStages(3, 4))).
		WithIdleMode(Brake).
		WithTelemetry("elevator", telemetry.VerbosityHigh).
		WithStatorCurrentLimit(40).
		WithFeedforward(control.NewElevatorFeedforward(0, 0, 0, 0)).
		WithControlMode(ClosedLoop)
}

func TestConfigSettersAreIndependent(t *testing.T) {
	base := NewConfig("arm").WithClosedLoopController(1, 2, 3)
	geared := base.WithGearing(gearing.NewMechanismGearing(gearing.MustFromReductionStages(5)))

	gains, ok := geared.ClosedLoopGains()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, gains, test.ShouldResemble, control.PIDGains{P: 1, I: 2, D: 3})

	test.That(t, base.Gearing().RotorToMechanismRatio(), test.ShouldEqual, 1.0)
	test.That(t, geared.Gearing().RotorToMechanismRatio(), test.ShouldEqual, 5.0)

	again := geared.WithGearing(gearing.NewMechanismGearing(gearing.MustFromReductionStages(5)))
	test.That(t, again.Gearing().RotorToMechanismRatio(), test.ShouldEqual, 5.0)

	simple := base.WithFeedforward(control.NewSimpleFeedforward(1, 2, 3))
	arm := simple.WithFeedforward(control.NewArmFeedforward(0, 1, 0, 0))
	test.That(t, simple.Feedforward().Kind(), test.ShouldEqual, control.FeedforwardSimple)
	test.That(t, arm.Feedforward().Kind(), test.ShouldEqual, control.FeedforwardArm)
}

func TestConfigAbsentFields(t *testing.T) {
	cfg := NewConfig("bare")
	_, ok := cfg.ClosedLoopGains()
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = cfg.MechanismCircumference()
	test.That(t, ok, test.ShouldBeFalse)
	_, _, ok = cfg.SoftLimits()
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = cfg.TelemetryName()
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, cfg.ControlMode(), test.ShouldEqual, OpenLoop)
	test.That(t, cfg.IdleMode(), test.ShouldEqual, Coast)
	test.That(t, cfg.Feedforward().Kind(), test.ShouldEqual, control.FeedforwardNone)
	test.That(t, cfg.Converter().IsLinear(), test.ShouldBeFalse)
	test.That(t, cfg.Validate(), test.ShouldBeNil)
}

func TestSoftLimitUnits(t *testing.T) {
	cfg := elevatorConfig()
	lower, upper, ok := cfg.SoftLimits()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, lower, test.ShouldEqual, 0.0)
	test.That(t, upper, test.ShouldAlmostEqual, 2/elevatorCircumference)

	lowerM, upperM, ok := cfg.LinearSoftLimits()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, lowerM, test.ShouldEqual, 0.0)
	test.That(t, upperM, test.ShouldEqual, 2.0)

	rot := NewConfig("arm").WithSoftLimits(-0.25, 0.25)
	_, _, ok = rot.LinearSoftLimits()
	test.That(t, ok, test.ShouldBeFalse)
	_, upperM, ok = rot.WithMechanismCircumference(2).LinearSoftLimits()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, upperM, test.ShouldEqual, 0.5)
}

func TestValidate(t *testing.T) {
	test.That(t, elevatorConfig().Validate(), test.ShouldBeNil)

	bad := NewConfig("bad").
		WithMechanismCircumference(-1).
		WithSoftLimits(2, 1).
		WithStatorCurrentLimit(-5).
		WithControlMode(ClosedLoop).
		WithMotionProfile(0, 1)
	err := bad.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, utils.ErrInvalidConfiguration), test.ShouldBeTrue)
	test.That(t, len(multierr.Errors(err)), test.ShouldEqual, 5)
	test.That(t, err.Error(), test.ShouldContainSubstring, "closed loop control needs closed loop gains")

	linear := NewConfig("linear").WithLinearSoftLimits(0, 1)
	err = linear.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "need a mechanism circumference")
}

func TestElevatorConversion(t *testing.T) {
	rotor, err := elevatorConfig().Converter().FromDistance(1.0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rotor, test.ShouldAlmostEqual, 85.89835361488905, 1e-9)
}

func TestTelemetryDefaults(t *testing.T) {
	d := elevatorConfig().TelemetryDefaults()
	test.That(t, d.HasCircumference, test.ShouldBeTrue)
	test.That(t, *d.Gains, test.ShouldResemble, control.PIDGains{P: 4})
	test.That(t, *d.Profile, test.ShouldResemble, control.TrapezoidConstraints{MaxVelocity: 0.5, MaxAcceleration: 0.5})
	test.That(t, *d.UpperLimit, test.ShouldAlmostEqual, 2/elevatorCircumference)
	test.That(t, *d.MeasurementUpperLimit, test.ShouldEqual, 2.0)
	test.That(t, *d.StatorCurrentLimit, test.ShouldEqual, 40.0)
	test.That(t, d.SupplyCurrentLimit, test.ShouldBeNil)
	test.That(t, d.Feedforward.Kind(), test.ShouldEqual, control.FeedforwardElevator)
}
