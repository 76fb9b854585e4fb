package sim

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const gravity = 9.80665

// ElevatorConfig describes a carriage lifted by a drum.
type ElevatorConfig struct {
	Motor        DCMotor
	Gearing      float64
	CarriageMass float64
	DrumRadius   float64
	// MinHeight and MaxHeight are hard stops. Both zero means the carriage travels freely.
	MinHeight       float64
	MaxHeight       float64
	StartHeight     float64
	SimulateGravity bool
}

// ElevatorPlant simulates an elevator in meters. The carriage stops at its hard limits, if any.
type ElevatorPlant struct {
	cfg     ElevatorConfig
	plant   *LinearPlant
	current float64
}

// NewElevatorPlant returns an elevator at its start height.
func NewElevatorPlant(cfg ElevatorConfig) (*ElevatorPlant, error) {
	if !(cfg.Gearing > 0) || !(cfg.CarriageMass > 0) || !(cfg.DrumRadius > 0) {
		return nil, errors.Errorf("elevator gearing %v, mass %v and drum radius %v must be positive",
			cfg.Gearing, cfg.CarriageMass, cfg.DrumRadius)
	}
	if cfg.MinHeight > cfg.MaxHeight {
		return nil, errors.Errorf("elevator min height %v is above max height %v", cfg.MinHeight, cfg.MaxHeight)
	}
	m := cfg.Motor
	g, r, mass := cfg.Gearing, cfg.DrumRadius, cfg.CarriageMass
	a := mat.NewDense(2, 2, []float64{
		0, 1,
		0, -g * g * m.Kt / (m.Resistance * r * r * mass * m.Kv),
	})
	b := mat.NewDense(2, 2, []float64{
		0, 0,
		g * m.Kt / (m.Resistance * r * mass), -1,
	})
	plant, err := NewLinearPlant(a, b, []float64{cfg.StartHeight, 0})
	if err != nil {
		return nil, err
	}
	return &ElevatorPlant{cfg: cfg, plant: plant}, nil
}

// Step applies voltage for dt.
func (e *ElevatorPlant) Step(voltage float64, dt time.Duration) State {
	g := 0.0
	if e.cfg.SimulateGravity {
		g = gravity
	}
	e.plant.Step([]float64{voltage, g}, dt)
	x := e.plant.State()
	switch {
	case e.cfg.MinHeight == 0 && e.cfg.MaxHeight == 0:
	case x[0] < e.cfg.MinHeight:
		e.plant.SetState([]float64{e.cfg.MinHeight, 0})
	case x[0] > e.cfg.MaxHeight:
		e.plant.SetState([]float64{e.cfg.MaxHeight, 0})
	}
	motorSpeed := e.plant.State()[1] / e.cfg.DrumRadius * e.cfg.Gearing
	e.current = math.Abs(e.cfg.Motor.Current(motorSpeed, voltage))
	return e.State()
}

// State returns the carriage height, velocity and motor current.
func (e *ElevatorPlant) State() State {
	x := e.plant.State()
	return State{Position: x[0], Velocity: x[1], Current: e.current}
}

// SetState teleports the carriage.
func (e *ElevatorPlant) SetState(s State) {
	e.plant.SetState([]float64{s.Position, s.Velocity})
	e.current = s.Current
}
