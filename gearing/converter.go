package gearing

import (
	"go.viam.com/yams/utils"
)

// Converter converts rotor quantities to mechanism rotations and, when a circumference is
// configured, to linear distance travelled by the mechanism.
type Converter struct {
	gearing       MechanismGearing
	circumference float64
	linear        bool
}

// NewConverter returns a rotational converter.
func NewConverter(mg MechanismGearing) Converter {
	return Converter{gearing: mg}
}

// WithCircumference returns a copy converting to distance with the given circumference in meters
// per mechanism rotation.
func (c Converter) WithCircumference(meters float64) (Converter, error) {
	if !(meters > 0) {
		return Converter{}, utils.NewInvalidConfigurationError("mechanism circumference %v must be positive", meters)
	}
	c.circumference = meters
	c.linear = true
	return c, nil
}

// Gearing returns the underlying gearing.
func (c Converter) Gearing() MechanismGearing {
	return c.gearing
}

// Circumference returns the distance per mechanism rotation, if configured.
func (c Converter) Circumference() (float64, bool) {
	return c.circumference, c.linear
}

// IsLinear reports whether distance conversions are available.
func (c Converter) IsLinear() bool {
	return c.linear
}

// ToMechanism converts rotor rotations to mechanism rotations.
func (c Converter) ToMechanism(rotor float64) float64 {
	return c.gearing.RotorToMechanism(rotor)
}

// ToRotor converts mechanism rotations to rotor rotations.
func (c Converter) ToRotor(mechanism float64) float64 {
	return c.gearing.MechanismToRotor(mechanism)
}

// RotationsToDistance converts mechanism rotations to meters.
func (c Converter) RotationsToDistance(rotations float64) (float64, error) {
	if !c.linear {
		return 0, utils.NewInvalidConfigurationError("no mechanism circumference configured")
	}
	return rotations * c.circumference, nil
}

// DistanceToRotations converts meters to mechanism rotations.
func (c Converter) DistanceToRotations(meters float64) (float64, error) {
	if !c.linear {
		return 0, utils.NewInvalidConfigurationError("no mechanism circumference configured")
	}
	return meters / c.circumference, nil
}

// ToDistance converts rotor rotations to meters travelled by the mechanism.
func (c Converter) ToDistance(rotor float64) (float64, error) {
	return c.RotationsToDistance(c.ToMechanism(rotor))
}

// FromDistance converts meters travelled by the mechanism to rotor rotations.
func (c Converter) FromDistance(meters float64) (float64, error) {
	rotations, err := c.DistanceToRotations(meters)
	if err != nil {
		return 0, err
	}
	return c.ToRotor(rotations), nil
}
