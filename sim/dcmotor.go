// Package sim contains DC motor models and reference physics plants for simulating mechanisms.
package sim

import "math"

func rpmToRadPerSec(rpm float64) float64 {
	return rpm * 2 * math.Pi / 60
}

// DCMotor is a brushed or brushless DC motor described by its datasheet curve. Quantities are SI:
// newton meters, amps, radians per second.
type DCMotor struct {
	NominalVoltage float64
	StallTorque    float64
	StallCurrent   float64
	FreeCurrent    float64
	FreeSpeed      float64

	// Resistance in ohms, Kv in rad/s per volt and Kt in N·m per amp, derived from the curve.
	Resistance float64
	Kv         float64
	Kt         float64
}

// NewDCMotor derives a motor model for numMotors identical motors geared together.
func NewDCMotor(nominalVoltage, stallTorque, stallCurrent, freeCurrent, freeSpeed float64, numMotors int) DCMotor {
	n := float64(numMotors)
	if n < 1 {
		n = 1
	}
	m := DCMotor{
		NominalVoltage: nominalVoltage,
		StallTorque:    stallTorque * n,
		StallCurrent:   stallCurrent * n,
		FreeCurrent:    freeCurrent * n,
		FreeSpeed:      freeSpeed,
	}
	m.Resistance = nominalVoltage / m.StallCurrent
	m.Kv = freeSpeed / (nominalVoltage - m.Resistance*m.FreeCurrent)
	m.Kt = m.StallTorque / m.StallCurrent
	return m
}

// NEO is a REV NEO brushless motor.
func NEO(numMotors int) DCMotor {
	return NewDCMotor(12, 2.6, 105, 1.8, rpmToRadPerSec(5676), numMotors)
}

// Falcon500 is a CTRE Falcon 500.
func Falcon500(numMotors int) DCMotor {
	return NewDCMotor(12, 4.69, 257, 1.5, rpmToRadPerSec(6380), numMotors)
}

// KrakenX60 is a WCP Kraken X60.
func KrakenX60(numMotors int) DCMotor {
	return NewDCMotor(12, 7.09, 366, 2, rpmToRadPerSec(6000), numMotors)
}

// Current returns the winding current at the given rotor speed and applied voltage.
func (m DCMotor) Current(speed, voltage float64) float64 {
	return -1.0/m.Kv/m.Resistance*speed + voltage/m.Resistance
}

// Torque returns the torque produced by current.
func (m DCMotor) Torque(current float64) float64 {
	return current * m.Kt
}

// Voltage returns the voltage needed to produce torque at speed.
func (m DCMotor) Voltage(torque, speed float64) float64 {
	return 1.0/m.Kv*speed + 1.0/m.Kt*m.Resistance*torque
}

// Speed returns the rotor speed at which the motor produces torque with voltage applied.
func (m DCMotor) Speed(torque, voltage float64) float64 {
	return voltage*m.Kv - 1.0/m.Kt*torque*m.Resistance*m.Kv
}
