package inject

import (
	"time"

	"go.viam.com/yams/components/motorcontroller"
	"go.viam.com/yams/control"
	"go.viam.com/yams/telemetry"
)

// MotorController is an injected smart motor controller.
type MotorController struct {
	motorcontroller.SmartMotorController
	name                           string
	ConfigFunc                     func() motorcontroller.Config
	ApplyDutyCycleFunc             func(fraction float64) error
	ApplyVoltageFunc               func(volts float64) error
	ApplyClosedLoopSetpointFunc    func(setpoint motorcontroller.Setpoint, feedforwardVolts float64) error
	UpdateFunc                     func(dt time.Duration) error
	MeasuredPositionFunc           func() float64
	MeasuredVelocityFunc           func() float64
	OutputVoltageFunc              func() float64
	SupplyCurrentFunc              func() (float64, bool)
	StatorCurrentFunc              func() (float64, bool)
	TemperatureFunc                func() (float64, bool)
	UnsupportedTelemetryFieldsFunc func() ([]telemetry.BooleanField, []telemetry.DoubleField)
	SetClosedLoopGainsFunc         func(gains control.PIDGains) error
	SetCurrentLimitsFunc           func(statorAmps, supplyAmps float64) error
	SetRampRatesFunc               func(openLoopSeconds, closedLoopSeconds float64) error
	SetSimulatedStateFunc          func(state motorcontroller.SimState)
	StopFunc                       func() error
}

// NewMotorController returns a new injected motor controller.
func NewMotorController(name string) *MotorController {
	return &MotorController{name: name}
}

// Name returns the name of the controller.
func (m *MotorController) Name() string {
	return m.name
}

// Config calls the injected Config or the real version.
func (m *MotorController) Config() motorcontroller.Config {
	if m.ConfigFunc == nil {
		return m.SmartMotorController.Config()
	}
	return m.ConfigFunc()
}

// ApplyDutyCycle calls the injected ApplyDutyCycle or the real version.
func (m *MotorController) ApplyDutyCycle(fraction float64) error {
	if m.ApplyDutyCycleFunc == nil {
		return m.SmartMotorController.ApplyDutyCycle(fraction)
	}
	return m.ApplyDutyCycleFunc(fraction)
}

// ApplyVoltage calls the injected ApplyVoltage or the real version.
func (m *MotorController) ApplyVoltage(volts float64) error {
	if m.ApplyVoltageFunc == nil {
		return m.SmartMotorController.ApplyVoltage(volts)
	}
	return m.ApplyVoltageFunc(volts)
}

// ApplyClosedLoopSetpoint calls the injected ApplyClosedLoopSetpoint or the real version.
func (m *MotorController) ApplyClosedLoopSetpoint(setpoint motorcontroller.Setpoint, feedforwardVolts float64) error {
	if m.ApplyClosedLoopSetpointFunc == nil {
		return m.SmartMotorController.ApplyClosedLoopSetpoint(setpoint, feedforwardVolts)
	}
	return m.ApplyClosedLoopSetpointFunc(setpoint, feedforwardVolts)
}

// Update calls the injected Update or the real version.
func (m *MotorController) Update(dt time.Duration) error {
	if m.UpdateFunc == nil {
		return m.SmartMotorController.Update(dt)
	}
	return m.UpdateFunc(dt)
}

// MeasuredPosition calls the injected MeasuredPosition or the real version.
func (m *MotorController) MeasuredPosition() float64 {
	if m.MeasuredPositionFunc == nil {
		return m.SmartMotorController.MeasuredPosition()
	}
	return m.MeasuredPositionFunc()
}

// MeasuredVelocity calls the injected MeasuredVelocity or the real version.
func (m *MotorController) MeasuredVelocity() float64 {
	if m.MeasuredVelocityFunc == nil {
		return m.SmartMotorController.MeasuredVelocity()
	}
	return m.MeasuredVelocityFunc()
}

// OutputVoltage calls the injected OutputVoltage or the real version.
func (m *MotorController) OutputVoltage() float64 {
	if m.OutputVoltageFunc == nil {
		return m.SmartMotorController.OutputVoltage()
	}
	return m.OutputVoltageFunc()
}

// SupplyCurrent calls the injected SupplyCurrent or the real version.
func (m *MotorController) SupplyCurrent() (float64, bool) {
	if m.SupplyCurrentFunc == nil {
		return m.SmartMotorController.SupplyCurrent()
	}
	return m.SupplyCurrentFunc()
}

// StatorCurrent calls the injected StatorCurrent or the real version.
func (m *MotorController) StatorCurrent() (float64, bool) {
	if m.StatorCurrentFunc == nil {
		return m.SmartMotorController.StatorCurrent()
	}
	return m.StatorCurrentFunc()
}

// Temperature calls the injected Temperature or the real version.
func (m *MotorController) Temperature() (float64, bool) {
	if m.TemperatureFunc == nil {
		return m.SmartMotorController.Temperature()
	}
	return m.TemperatureFunc()
}

// UnsupportedTelemetryFields calls the injected UnsupportedTelemetryFields or the real version.
func (m *MotorController) UnsupportedTelemetryFields() ([]telemetry.BooleanField, []telemetry.DoubleField) {
	if m.UnsupportedTelemetryFieldsFunc == nil {
		return m.SmartMotorController.UnsupportedTelemetryFields()
	}
	return m.UnsupportedTelemetryFieldsFunc()
}

// SetClosedLoopGains calls the injected SetClosedLoopGains or the real version.
func (m *MotorController) SetClosedLoopGains(gains control.PIDGains) error {
	if m.SetClosedLoopGainsFunc == nil {
		return m.SmartMotorController.SetClosedLoopGains(gains)
	}
	return m.SetClosedLoopGainsFunc(gains)
}

// SetCurrentLimits calls the injected SetCurrentLimits or the real version.
func (m *MotorController) SetCurrentLimits(statorAmps, supplyAmps float64) error {
	if m.SetCurrentLimitsFunc == nil {
		return m.SmartMotorController.SetCurrentLimits(statorAmps, supplyAmps)
	}
	return m.SetCurrentLimitsFunc(statorAmps, supplyAmps)
}

// SetRampRates calls the injected SetRampRates or the real version.
func (m *MotorController) SetRampRates(openLoopSeconds, closedLoopSeconds float64) error {
	if m.SetRampRatesFunc == nil {
		return m.SmartMotorController.SetRampRates(openLoopSeconds, closedLoopSeconds)
	}
	return m.SetRampRatesFunc(openLoopSeconds, closedLoopSeconds)
}

// SetSimulatedState calls the injected SetSimulatedState or the real version.
func (m *MotorController) SetSimulatedState(state motorcontroller.SimState) {
	if m.SetSimulatedStateFunc == nil {
		m.SmartMotorController.SetSimulatedState(state)
		return
	}
	m.SetSimulatedStateFunc(state)
}

// Stop calls the injected Stop or the real version.
func (m *MotorController) Stop() error {
	if m.StopFunc == nil {
		return m.SmartMotorController.Stop()
	}
	return m.StopFunc()
}
