package config

import (
	"periph.io/x/conn/v3/physic"

	"go.viam.com/yams/components/motorcontroller"
	"go.viam.com/yams/components/motorcontroller/fake"
	"go.viam.com/yams/components/motorcontroller/gpio"
	"go.viam.com/yams/logging"
	"go.viam.com/yams/mechanism"
	"go.viam.com/yams/telemetry"
)

// discardOutput stands in for a PWM output when a gpio controller runs without hardware.
type discardOutput struct{}

func (discardOutput) SetPower(float64) error { return nil }

// NewMotorController builds the configured controller. A gpio controller drives the configured pins,
// or nothing when there are none, and takes its measurements from the simulation.
func (f *File) NewMotorController(logger logging.Logger) (motorcontroller.SmartMotorController, error) {
	cfg, err := f.Motor.ToConfig()
	if err != nil {
		return nil, err
	}
	motor, err := f.Motor.Motor()
	if err != nil {
		return nil, err
	}
	if f.Motor.Type == ControllerGPIO {
		var out gpio.Output = discardOutput{}
		if f.Motor.PWMPin != "" {
			pins, err := gpio.NewPinOutput(gpio.PinConfig{
				PWM:          f.Motor.PWMPin,
				Direction:    f.Motor.DirectionPin,
				PWMFrequency: physic.Hertz * physic.Frequency(f.Motor.PWMFreqHz),
			})
			if err != nil {
				return nil, err
			}
			out = pins
		}
		return gpio.NewMotorController(cfg, out, nil,
			gpio.Options{SupplyVoltage: motor.NominalVoltage}, logger)
	}
	return fake.NewMotorController(cfg, motor, logger)
}

// NewMechanism builds the configured mechanism around smc, publishing telemetry under root.
func (f *File) NewMechanism(
	smc motorcontroller.SmartMotorController,
	root telemetry.Table,
	logger logging.Logger,
) (*mechanism.Mechanism, error) {
	m := f.Mechanism
	if m.Type == TypeArm {
		acfg := mechanism.ArmConfig{
			Name:           m.Name,
			Telemetry:      root,
			StartingAngle:  m.StartingPosition,
			HardLowerLimit: m.HardLowerLimit,
			HardUpperLimit: m.HardUpperLimit,
			Length:         m.Length,
			Mass:           m.Mass,
		}
		if m.Simulate {
			motor, err := f.Motor.Motor()
			if err != nil {
				return nil, err
			}
			acfg.Motor = &motor
		}
		arm, err := mechanism.NewArm(acfg, smc, logger)
		if err != nil {
			return nil, err
		}
		return arm.Mechanism, nil
	}

	ecfg := mechanism.ElevatorConfig{
		Name:           m.Name,
		Telemetry:      root,
		StartingHeight: m.StartingPosition,
		HardLowerLimit: m.HardLowerLimit,
		HardUpperLimit: m.HardUpperLimit,
		Mass:           m.Mass,
	}
	if m.Simulate {
		motor, err := f.Motor.Motor()
		if err != nil {
			return nil, err
		}
		ecfg.Motor = &motor
	}
	elevator, err := mechanism.NewElevator(ecfg, smc, logger)
	if err != nil {
		return nil, err
	}
	return elevator.Mechanism, nil
}
