// Package telemetry implements the per-mechanism telemetry field registry: the fixed set of boolean
// and numeric fields a smart motor controller can publish, verbosity tiers, capability gating and
// the tuning synchronization protocol between a data table and an operator-writable tuning table.
package telemetry

import (
	"strings"

	"github.com/pkg/errors"
)

// BooleanField identifies a boolean telemetry field.
type BooleanField int

// Boolean fields.
const (
	BoolMechanismLowerLimit BooleanField = iota
	BoolMechanismUpperLimit
	BoolTemperatureLimit
	BoolVelocityControl
	BoolElevatorFeedforward
	BoolArmFeedforward
	BoolSimpleMotorFeedforward
	BoolMotionProfile
	BoolMotorInversion
	BoolEncoderInversion
	numBooleanFields
)

// DoubleField identifies a numeric telemetry field.
type DoubleField int

// Numeric fields. Positions are in rotations unless the name says Measurement, which is meters.
const (
	SetpointPosition DoubleField = iota
	SetpointVelocity
	MeasurementPosition
	MeasurementVelocity
	MechanismPosition
	MechanismVelocity
	RotorPosition
	RotorVelocity
	OutputVoltage
	StatorCurrent
	SupplyCurrent
	TunableSetpointPosition
	TunableSetpointVelocity
	MotorTemperature
	MechanismLowerLimit
	MechanismUpperLimit
	StatorCurrentLimit
	SupplyCurrentLimit
	OpenLoopRampRate
	ClosedLoopRampRate
	MeasurementLowerLimit
	MeasurementUpperLimit
	MotionProfileMaxAcceleration
	MotionProfileMaxVelocity
	KS
	KV
	KG
	KA
	KP
	KI
	KD
	numDoubleFields
)

type fieldInfo struct {
	name    string
	key     string
	tier    Verbosity
	tunable bool
}

var booleanFieldInfo = [numBooleanFields]fieldInfo{
	BoolMechanismLowerLimit:    {"MechanismLowerLimit", "Mechanism Lower Limit Reached", VerbosityHigh, false},
	BoolMechanismUpperLimit:    {"MechanismUpperLimit", "Mechanism Upper Limit Reached", VerbosityHigh, false},
	BoolTemperatureLimit:       {"TemperatureLimit", "Temperature Limit Reached", VerbosityHigh, false},
	BoolVelocityControl:        {"VelocityControl", "Velocity Control", VerbosityHigh, false},
	BoolElevatorFeedforward:    {"ElevatorFeedForward", "Elevator Feedforward", VerbosityHigh, false},
	BoolArmFeedforward:         {"ArmFeedForward", "Arm Feedforward", VerbosityHigh, false},
	BoolSimpleMotorFeedforward: {"SimpleMotorFeedForward", "Simple Motor Feedforward", VerbosityHigh, false},
	BoolMotionProfile:          {"MotionProfile", "Motion Profile", VerbosityHigh, false},
	BoolMotorInversion:         {"MotorInversion", "Motor Inverted", VerbosityHigh, false},
	BoolEncoderInversion:       {"EncoderInversion", "Encoder Inverted", VerbosityHigh, false},
}

var doubleFieldInfo = [numDoubleFields]fieldInfo{
	SetpointPosition:             {"SetpointPosition", "Setpoint Position", VerbosityLow, false},
	SetpointVelocity:             {"SetpointVelocity", "Setpoint Velocity", VerbosityLow, false},
	MeasurementPosition:          {"MeasurementPosition", "Measurement Position", VerbosityLow, false},
	MeasurementVelocity:          {"MeasurementVelocity", "Measurement Velocity", VerbosityLow, false},
	MechanismPosition:            {"MechanismPosition", "Mechanism Position", VerbosityLow, false},
	MechanismVelocity:            {"MechanismVelocity", "Mechanism Velocity", VerbosityLow, false},
	RotorPosition:                {"RotorPosition", "Rotor Position", VerbosityLow, false},
	RotorVelocity:                {"RotorVelocity", "Rotor Velocity", VerbosityLow, false},
	OutputVoltage:                {"OutputVoltage", "Output Voltage", VerbosityMid, false},
	StatorCurrent:                {"StatorCurrent", "Stator Current", VerbosityMid, false},
	SupplyCurrent:                {"SupplyCurrent", "Supply Current", VerbosityMid, false},
	TunableSetpointPosition:      {"TunableSetpointPosition", "Tunable Setpoint Position", VerbosityHigh, true},
	TunableSetpointVelocity:      {"TunableSetpointVelocity", "Tunable Setpoint Velocity", VerbosityHigh, true},
	MotorTemperature:             {"MotorTemperature", "Motor Temperature", VerbosityHigh, false},
	MechanismLowerLimit:          {"MechanismLowerLimit", "Mechanism Lower Limit", VerbosityHigh, true},
	MechanismUpperLimit:          {"MechanismUpperLimit", "Mechanism Upper Limit", VerbosityHigh, true},
	StatorCurrentLimit:           {"StatorCurrentLimit", "Stator Current Limit", VerbosityHigh, true},
	SupplyCurrentLimit:           {"SupplyCurrentLimit", "Supply Current Limit", VerbosityHigh, true},
	OpenLoopRampRate:             {"OpenloopRampRate", "Open Loop Ramp Rate", VerbosityHigh, true},
	ClosedLoopRampRate:           {"ClosedloopRampRate", "Closed Loop Ramp Rate", VerbosityHigh, true},
	MeasurementLowerLimit:        {"MeasurementLowerLimit", "Measurement Lower Limit", VerbosityHigh, true},
	MeasurementUpperLimit:        {"MeasurementUpperLimit", "Measurement Upper Limit", VerbosityHigh, true},
	MotionProfileMaxAcceleration: {"MotionProfileMaxAcceleration", "Motion Profile Max Acceleration", VerbosityHigh, true},
	MotionProfileMaxVelocity:     {"MotionProfileMaxVelocity", "Motion Profile Max Velocity", VerbosityHigh, true},
	KS:                           {"kS", "kS", VerbosityHigh, true},
	KV:                           {"kV", "kV", VerbosityHigh, true},
	KG:                           {"kG", "kG", VerbosityHigh, true},
	KA:                           {"kA", "kA", VerbosityHigh, true},
	KP:                           {"kP", "kP", VerbosityHigh, true},
	KI:                           {"kI", "kI", VerbosityHigh, true},
	KD:                           {"kD", "kD", VerbosityHigh, true},
}

// AllBooleanFields returns every boolean field in declaration order.
func AllBooleanFields() []BooleanField {
	fields := make([]BooleanField, 0, numBooleanFields)
	for f := BooleanField(0); f < numBooleanFields; f++ {
		fields = append(fields, f)
	}
	return fields
}

// AllDoubleFields returns every numeric field in declaration order.
func AllDoubleFields() []DoubleField {
	fields := make([]DoubleField, 0, numDoubleFields)
	for f := DoubleField(0); f < numDoubleFields; f++ {
		fields = append(fields, f)
	}
	return fields
}

func (f BooleanField) valid() bool { return f >= 0 && f < numBooleanFields }
func (f DoubleField) valid() bool  { return f >= 0 && f < numDoubleFields }

func (f BooleanField) String() string {
	if !f.valid() {
		return "UnknownBooleanField"
	}
	return booleanFieldInfo[f].name
}

// Key is the table key the field is published under.
func (f BooleanField) Key() string {
	if !f.valid() {
		return ""
	}
	return booleanFieldInfo[f].key
}

// Tunable reports whether operators may override the field from the tuning table.
func (f BooleanField) Tunable() bool {
	return f.valid() && booleanFieldInfo[f].tunable
}

// Tier is the lowest verbosity that enables the field.
func (f BooleanField) Tier() Verbosity {
	return booleanFieldInfo[f].tier
}

func (f DoubleField) String() string {
	if !f.valid() {
		return "UnknownDoubleField"
	}
	return doubleFieldInfo[f].name
}

// Key is the table key the field is published under.
func (f DoubleField) Key() string {
	if !f.valid() {
		return ""
	}
	return doubleFieldInfo[f].key
}

// Tunable reports whether operators may override the field from the tuning table.
func (f DoubleField) Tunable() bool {
	return f.valid() && doubleFieldInfo[f].tunable
}

// Tier is the lowest verbosity that enables the field.
func (f DoubleField) Tier() Verbosity {
	return doubleFieldInfo[f].tier
}

// BooleanFieldFromString parses a field by name or key, ignoring case.
func BooleanFieldFromString(s string) (BooleanField, error) {
	for f, info := range booleanFieldInfo {
		if strings.EqualFold(s, info.name) || strings.EqualFold(s, info.key) {
			return BooleanField(f), nil
		}
	}
	return 0, errors.Errorf("unknown boolean telemetry field %q", s)
}

// DoubleFieldFromString parses a field by name or key, ignoring case.
func DoubleFieldFromString(s string) (DoubleField, error) {
	for f, info := range doubleFieldInfo {
		if strings.EqualFold(s, info.name) || strings.EqualFold(s, info.key) {
			return DoubleField(f), nil
		}
	}
	return 0, errors.Errorf("unknown double telemetry field %q", s)
}
