// Package gearing converts between motor rotor space and mechanism space.
//
// Rotor and mechanism angular quantities are in rotations (position), rotations per second
// (velocity) and rotations per second squared (acceleration). The conversions are pure scaling, so
// the same functions serve all three derivatives.
package gearing

import (
	"fmt"
	"strings"

	"go.viam.com/yams/utils"
)

// GearBox is an ordered chain of reduction stages. A stage of 3 means the input turns three times
// per output rotation.
type GearBox struct {
	stages []float64
	ratio  float64
}

// FromReductionStages builds a GearBox from one or more reduction stages.
func FromReductionStages(stages ...float64) (GearBox, error) {
	if len(stages) == 0 {
		return GearBox{}, utils.NewInvalidConfigurationError("gearbox needs at least one stage")
	}
	ratio := 1.0
	for i, s := range stages {
		if !(s > 0) {
			return GearBox{}, utils.NewInvalidConfigurationError("gearbox stage %d ratio %v must be positive", i, s)
		}
		ratio *= s
	}
	return GearBox{stages: append([]float64(nil), stages...), ratio: ratio}, nil
}

// MustFromReductionStages is FromReductionStages that panics on an invalid stage.
func MustFromReductionStages(stages ...float64) GearBox {
	gb, err := FromReductionStages(stages...)
	if err != nil {
		panic(err)
	}
	return gb
}

// Ratio is the composite reduction: rotor rotations per output rotation.
func (gb GearBox) Ratio() float64 {
	if gb.ratio == 0 {
		return 1
	}
	return gb.ratio
}

// Stages returns a copy of the reduction stages.
func (gb GearBox) Stages() []float64 {
	return append([]float64(nil), gb.stages...)
}

func (gb GearBox) String() string {
	if len(gb.stages) == 0 {
		return "1:1"
	}
	parts := make([]string, len(gb.stages))
	for i, s := range gb.stages {
		parts[i] = fmt.Sprintf("%g:1", s)
	}
	return strings.Join(parts, " x ")
}

// MechanismGearing is the gearing between a rotor and the mechanism it drives. The zero value is
// a direct drive.
type MechanismGearing struct {
	gearBox GearBox
}

// NewMechanismGearing wraps a gearbox.
func NewMechanismGearing(gb GearBox) MechanismGearing {
	return MechanismGearing{gearBox: gb}
}

// GearBox returns the underlying gearbox.
func (mg MechanismGearing) GearBox() GearBox {
	return mg.gearBox
}

// RotorToMechanismRatio is the number of rotor rotations per mechanism rotation.
func (mg MechanismGearing) RotorToMechanismRatio() float64 {
	return mg.gearBox.Ratio()
}

// RotorToMechanism converts a rotor quantity to the mechanism.
func (mg MechanismGearing) RotorToMechanism(rotor float64) float64 {
	return rotor / mg.gearBox.Ratio()
}

// MechanismToRotor converts a mechanism quantity to the rotor.
func (mg MechanismGearing) MechanismToRotor(mechanism float64) float64 {
	return mechanism * mg.gearBox.Ratio()
}
