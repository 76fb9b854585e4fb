package mechanism

import (
	"math"
	"time"

	"go.viam.com/yams/components/motorcontroller"
	"go.viam.com/yams/logging"
	"go.viam.com/yams/sim"
	"go.viam.com/yams/telemetry"
	"go.viam.com/yams/utils"
)

// ArmConfig configures an Arm. Angles are degrees from horizontal.
type ArmConfig struct {
	Name           string
	Telemetry      telemetry.Table
	Period         time.Duration
	StartingAngle  float64
	HardLowerLimit float64
	HardUpperLimit float64
	// Length in meters and Mass in kilograms of the arm, treated as a uniform rod.
	Length float64
	Mass   float64
	// Motor, when set, simulates the arm with gravity.
	Motor *sim.DCMotor
}

// DegreeUnits measure a rotational mechanism in degrees.
var DegreeUnits = Units{Name: "deg", PerRotation: 360, PlantPerRotation: 2 * math.Pi}

// Arm is a rotational mechanism measured in degrees from horizontal.
type Arm struct {
	*Mechanism
	length float64
}

// NewArm returns an arm.
func NewArm(cfg ArmConfig, smc motorcontroller.SmartMotorController, logger logging.Logger) (*Arm, error) {
	if smc == nil {
		return nil, utils.NewInvalidConfigurationError("%s: arm needs a motor controller", cfg.Name)
	}
	base := Config{
		Name:           cfg.Name,
		Telemetry:      cfg.Telemetry,
		Period:         cfg.Period,
		Units:          DegreeUnits,
		Gravity:        CosineGravity,
		HardLowerLimit: cfg.HardLowerLimit,
		HardUpperLimit: cfg.HardUpperLimit,
		Start:          cfg.StartingAngle,
		Mass:           cfg.Mass,
	}
	if cfg.Motor != nil {
		plant, err := sim.NewArmPlant(sim.ArmConfig{
			Motor:           *cfg.Motor,
			Gearing:         smc.Config().Gearing().RotorToMechanismRatio(),
			Length:          cfg.Length,
			Mass:            cfg.Mass,
			MinAngle:        utils.DegToRad(cfg.HardLowerLimit),
			MaxAngle:        utils.DegToRad(cfg.HardUpperLimit),
			StartAngle:      utils.DegToRad(cfg.StartingAngle),
			SimulateGravity: true,
		})
		if err != nil {
			return nil, utils.NewInvalidConfigurationError("%s: %v", cfg.Name, err)
		}
		base.Plant = plant
	}
	m, err := New(base, smc, logger)
	if err != nil {
		return nil, err
	}
	return &Arm{Mechanism: m, length: cfg.Length}, nil
}

// SetAngle holds the arm at degrees.
func (a *Arm) SetAngle(degrees float64) error {
	return a.SetPosition(degrees)
}

// Angle returns the measured arm angle in degrees.
func (a *Arm) Angle() float64 {
	return a.Position()
}

// Length returns the arm length in meters.
func (a *Arm) Length() float64 {
	return a.length
}
