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

// ElevatorConfig configures an Elevator. Heights are in meters.
type ElevatorConfig struct {
	Name           string
	Telemetry      telemetry.Table
	Period         time.Duration
	StartingHeight float64
	HardLowerLimit float64
	HardUpperLimit float64
	// Mass is the carriage mass in kilograms.
	Mass float64
	// Motor, when set, simulates the elevator with gravity.
	Motor *sim.DCMotor
}

// Elevator is a linear mechanism measured in meters.
type Elevator struct {
	*Mechanism
}

// NewElevator returns an elevator. The controller config must set a mechanism circumference.
func NewElevator(cfg ElevatorConfig, smc motorcontroller.SmartMotorController, logger logging.Logger) (*Elevator, error) {
	if smc == nil {
		return nil, utils.NewInvalidConfigurationError("%s: elevator needs a motor controller", cfg.Name)
	}
	smcCfg := smc.Config()
	circumference, ok := smcCfg.MechanismCircumference()
	if !ok || !(circumference > 0) {
		return nil, utils.NewInvalidConfigurationError("%s: elevator needs a mechanism circumference", cfg.Name)
	}
	base := Config{
		Name:           cfg.Name,
		Telemetry:      cfg.Telemetry,
		Period:         cfg.Period,
		Units:          Units{Name: "m", PerRotation: circumference, PlantPerRotation: circumference},
		Gravity:        ConstantGravity,
		HardLowerLimit: cfg.HardLowerLimit,
		HardUpperLimit: cfg.HardUpperLimit,
		Start:          cfg.StartingHeight,
		Mass:           cfg.Mass,
	}
	if cfg.Motor != nil {
		plant, err := sim.NewElevatorPlant(sim.ElevatorConfig{
			Motor:           *cfg.Motor,
			Gearing:         smcCfg.Gearing().RotorToMechanismRatio(),
			CarriageMass:    cfg.Mass,
			DrumRadius:      circumference / (2 * math.Pi),
			MinHeight:       cfg.HardLowerLimit,
			MaxHeight:       cfg.HardUpperLimit,
			StartHeight:     cfg.StartingHeight,
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
	return &Elevator{m}, nil
}

// SetHeight holds the carriage at meters.
func (e *Elevator) SetHeight(meters float64) error {
	return e.SetPosition(meters)
}

// Height returns the measured carriage height in meters.
func (e *Elevator) Height() float64 {
	return e.Position()
}
