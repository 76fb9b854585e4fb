package sim

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
)

// FlywheelPlant is a geared inertia with no gravity or limits, in radians.
type FlywheelPlant struct {
	motor   DCMotor
	gearing float64
	plant   *LinearPlant
	current float64
}

// NewFlywheelPlant returns a stationary flywheel with moment of inertia moi in kg·m².
func NewFlywheelPlant(motor DCMotor, gearing, moi float64) *FlywheelPlant {
	a := mat.NewDense(2, 2, []float64{
		0, 1,
		0, -gearing * gearing * motor.Kt / (motor.Resistance * moi * motor.Kv),
	})
	b := mat.NewDense(2, 1, []float64{
		0,
		gearing * motor.Kt / (motor.Resistance * moi),
	})
	// dimensions are fixed above so construction cannot fail
	plant, _ := NewLinearPlant(a, b, []float64{0, 0})
	return &FlywheelPlant{motor: motor, gearing: gearing, plant: plant}
}

// Step applies voltage for dt.
func (f *FlywheelPlant) Step(voltage float64, dt time.Duration) State {
	f.plant.Step([]float64{voltage}, dt)
	f.current = math.Abs(f.motor.Current(f.plant.State()[1]*f.gearing, voltage))
	return f.State()
}

// State returns the flywheel angle, angular velocity and motor current.
func (f *FlywheelPlant) State() State {
	x := f.plant.State()
	return State{Position: x[0], Velocity: x[1], Current: f.current}
}

// SetState overwrites the flywheel state.
func (f *FlywheelPlant) SetState(s State) {
	f.plant.SetState([]float64{s.Position, s.Velocity})
	f.current = s.Current
}
