// Package motorcontroller defines smart motor controllers: vendor controllers that run their own
// closed loop on the rotor and report rotor-space measurements.
//
// All positions exchanged with a SmartMotorController are rotor rotations and all velocities rotor
// rotations per second. Mechanisms convert to and from physical units with the config's Converter.
package motorcontroller

import (
	"time"

	"github.com/samber/lo"

	"go.viam.com/yams/control"
	"go.viam.com/yams/telemetry"
)

// SetpointKind selects what a closed loop setpoint controls.
type SetpointKind int

// Setpoint kinds.
const (
	PositionSetpoint SetpointKind = iota
	VelocitySetpoint
)

func (k SetpointKind) String() string {
	if k == VelocitySetpoint {
		return "velocity"
	}
	return "position"
}

// Setpoint is a closed loop target in rotor rotations or rotor rotations per second.
type Setpoint struct {
	Kind  SetpointKind
	Value float64
}

// SimState is the rotor state reported by a physics simulation.
type SimState struct {
	Position float64
	Velocity float64
	Current  float64
}

// A SmartMotorController drives one motor.
//
// ApplyClosedLoopSetpoint example:
//
//	rotor, err := cfg.Converter().FromDistance(1.0)
//	// Hold the elevator at one meter with 0.7 V of gravity compensation.
//	err = smc.ApplyClosedLoopSetpoint(motorcontroller.Setpoint{Value: rotor}, 0.7)
//
// Applying a setpoint never changes the controller's Config.
type SmartMotorController interface {
	Name() string
	Config() Config

	// ApplyDutyCycle commands an open loop output fraction in [-1, 1].
	ApplyDutyCycle(fraction float64) error
	// ApplyVoltage commands an open loop output voltage.
	ApplyVoltage(volts float64) error
	// ApplyClosedLoopSetpoint commands the closed loop with an additional feedforward voltage.
	// It fails with an UnsupportedControlMode error when the controller is configured open loop.
	ApplyClosedLoopSetpoint(setpoint Setpoint, feedforwardVolts float64) error

	// Update advances the controller by dt: refreshes measurements and runs any host side loop.
	Update(dt time.Duration) error

	// MeasuredPosition is the rotor position in rotations.
	MeasuredPosition() float64
	// MeasuredVelocity is the rotor velocity in rotations per second.
	MeasuredVelocity() float64
	// OutputVoltage is the voltage currently applied to the motor.
	OutputVoltage() float64
	// SupplyCurrent is the current drawn from the supply, if the controller can sense it.
	SupplyCurrent() (float64, bool)
	// StatorCurrent is the motor winding current, if the controller can sense it.
	StatorCurrent() (float64, bool)
	// Temperature is the motor temperature in °C, if the controller can sense it.
	Temperature() (float64, bool)

	// UnsupportedTelemetryFields lists fields this controller can never back.
	UnsupportedTelemetryFields() ([]telemetry.BooleanField, []telemetry.DoubleField)

	// SetClosedLoopGains replaces the live gains without touching Config.
	SetClosedLoopGains(gains control.PIDGains) error
	// SetCurrentLimits replaces the live current limits; zero means unlimited.
	SetCurrentLimits(statorAmps, supplyAmps float64) error
	// SetRampRates replaces the live ramp rates in seconds from zero to full output.
	SetRampRates(openLoopSeconds, closedLoopSeconds float64) error

	// SetSimulatedState feeds the rotor state computed by a physics simulation.
	SetSimulatedState(state SimState)

	// Stop removes output and lets the motor idle.
	Stop() error
}

// Capabilities queries the optional sensors of smc and merges them with its declared unsupported
// fields.
func Capabilities(smc SmartMotorController) telemetry.Capabilities {
	booleans, doubles := smc.UnsupportedTelemetryFields()
	_, supply := smc.SupplyCurrent()
	_, stator := smc.StatorCurrent()
	_, temperature := smc.Temperature()
	return telemetry.Capabilities{
		UnsupportedBooleans: booleans,
		UnsupportedDoubles:  doubles,
		SupplyCurrent:       supply && !lo.Contains(doubles, telemetry.SupplyCurrent),
		StatorCurrent:       stator && !lo.Contains(doubles, telemetry.StatorCurrent),
		Temperature:         temperature && !lo.Contains(doubles, telemetry.MotorTemperature),
	}
}
