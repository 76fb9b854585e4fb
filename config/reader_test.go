package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/yams/components/motorcontroller"
	"go.viam.com/yams/control"
	"go.viam.com/yams/logging"
	"go.viam.com/yams/telemetry"
	"go.viam.com/yams/telemetry/networktables"
	"go.viam.com/yams/utils"
)

func TestFromReaderValidate(t *testing.T) {
	logger := logging.NewTestLogger(t)
	_, err := FromReader("somepath", strings.NewReader(""), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot parse config somepath")

	_, err = FromReader("somepath", strings.NewReader(`{mechanism: {type: "turret", name: "t"}}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, utils.ErrInvalidConfiguration), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "turret")

	_, err = FromReader("somepath", strings.NewReader(`{mechanism: {type: "arm"}}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "needs a name")

	_, err = FromReader("somepath", strings.NewReader(`{mechanism: {type: "arm", name: "a"}, motor: {dc_motor: "cim"}}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cim")
}

func TestUnknownAttributesAreReported(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	_, err := FromReader("somepath", strings.NewReader(`{mechanism: {type: "arm", name: "a", colour: "red"}}`), logger)
	test.That(t, err, test.ShouldBeNil)
	entries := logs.FilterMessage("ignoring unknown config attribute").All()
	test.That(t, entries, test.ShouldHaveLength, 1)
	test.That(t, entries[0].ContextMap()["attribute"], test.ShouldEqual, "mechanism.colour")
}

func TestReadElevator(t *testing.T) {
	logger := logging.NewTestLogger(t)
	f, err := Read(filepath.Join("data", "elevator.json5"), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.Mechanism, test.ShouldResemble, MechanismConfig{
		Type:             TypeElevator,
		Name:             "elevator",
		StartingPosition: 0.5,
		HardUpperLimit:   3,
		Mass:             7.257,
		Simulate:         true,
	})

	cfg, err := f.Motor.ToConfig()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Name(), test.ShouldEqual, "ElevatorMotor")
	name, _ := cfg.TelemetryName()
	test.That(t, name, test.ShouldEqual, "ElevatorMotor")
	verbosity, _ := cfg.TelemetryVerbosity()
	test.That(t, verbosity, test.ShouldEqual, telemetry.VerbosityHigh)
	gains, _ := cfg.ClosedLoopGains()
	test.That(t, gains, test.ShouldResemble, control.PIDGains{P: 4})
	test.That(t, cfg.Gearing().RotorToMechanismRatio(), test.ShouldEqual, 12.0)
	test.That(t, cfg.Feedforward().Kind(), test.ShouldEqual, control.FeedforwardElevator)
	lower, upper, ok := cfg.LinearSoftLimits()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, lower, test.ShouldEqual, 0.0)
	test.That(t, upper, test.ShouldEqual, 2.0)
	test.That(t, cfg.IdleMode(), test.ShouldEqual, motorcontroller.Brake)
	test.That(t, cfg.ControlMode(), test.ShouldEqual, motorcontroller.ClosedLoop)

	smc, err := f.NewMotorController(logger)
	test.That(t, err, test.ShouldBeNil)
	inst := networktables.NewInstance()
	m, err := f.NewMechanism(smc, inst.Table(""), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Units().Name, test.ShouldEqual, "m")
	test.That(t, m.Position(), test.ShouldAlmostEqual, 0.5, 1e-9)
	_, ok = inst.Table("Tuning/ElevatorMotor").Get("kP")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, m.Close(), test.ShouldBeNil)
}

func TestReadArmWithEnvironment(t *testing.T) {
	logger := logging.NewTestLogger(t)
	t.Setenv("ARM_CONTROLLER", "gpio")
	f, err := Read(filepath.Join("data", "arm.json5"), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.Motor.Type, test.ShouldEqual, ControllerGPIO)

	cfg, err := f.Motor.ToConfig()
	test.That(t, err, test.ShouldBeNil)
	_, ok := cfg.TelemetryVerbosity()
	test.That(t, ok, test.ShouldBeFalse)
	selection := cfg.TelemetrySelection()
	test.That(t, selection.Doubles, test.ShouldResemble,
		[]telemetry.DoubleField{telemetry.RotorPosition, telemetry.MechanismPosition, telemetry.KP})
	test.That(t, selection.Booleans, test.ShouldResemble, []telemetry.BooleanField{telemetry.BoolMechanismUpperLimit})

	smc, err := f.NewMotorController(logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, motorcontroller.Capabilities(smc).StatorCurrent, test.ShouldBeFalse)
	m, err := f.NewMechanism(smc, nil, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Units().Name, test.ShouldEqual, "deg")
	test.That(t, m.SetPosition(30), test.ShouldBeNil)
	for i := 0; i < 250; i++ {
		test.That(t, m.Periodic(), test.ShouldBeNil)
		m.SimulationPeriodic()
	}
	test.That(t, m.Position(), test.ShouldAlmostEqual, 30.0, 1.5)
}

func TestBadMotorConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json5")
	test.That(t, os.WriteFile(path, []byte(`{
		mechanism: {type: "arm", name: "arm"},
		motor: {name: "m", idle_mode: "float", control_mode: "closed_loop", gear_stages: [0], telemetry: {fields: ["Bogus"]}},
	}`), 0o600), test.ShouldBeNil)
	f, err := Read(path, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	_, err = f.Motor.ToConfig()
	test.That(t, err, test.ShouldNotBeNil)
	for _, want := range []string{"float", "Bogus", "stage"} {
		test.That(t, err.Error(), test.ShouldContainSubstring, want)
	}
	test.That(t, errors.Is(err, utils.ErrInvalidConfiguration), test.ShouldBeTrue)
}

func TestPinsNeedGPIOController(t *testing.T) {
	logger := logging.NewTestLogger(t)
	_, err := FromReader("somepath", strings.NewReader(
		`{mechanism: {type: "arm", name: "a"}, motor: {type: "fake", pwm_pin: "GPIO12"}}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "set together")
	test.That(t, err.Error(), test.ShouldContainSubstring, "need a \"gpio\" motor controller")
}
