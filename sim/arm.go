package sim

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ArmConfig describes a single jointed arm. Angles are radians from horizontal.
type ArmConfig struct {
	Motor   DCMotor
	Gearing float64
	Length  float64
	Mass    float64
	// MinAngle and MaxAngle are hard stops. Both zero means the arm swings freely.
	MinAngle        float64
	MaxAngle        float64
	StartAngle      float64
	SimulateGravity bool
}

// ArmPlant simulates an arm in radians. The arm stops at its hard limits, if any.
type ArmPlant struct {
	cfg     ArmConfig
	plant   *LinearPlant
	gravity float64
	current float64
}

// NewArmPlant returns an arm at its start angle.
func NewArmPlant(cfg ArmConfig) (*ArmPlant, error) {
	if !(cfg.Gearing > 0) || !(cfg.Mass > 0) || !(cfg.Length > 0) {
		return nil, errors.Errorf("arm gearing %v, mass %v and length %v must be positive", cfg.Gearing, cfg.Mass, cfg.Length)
	}
	if cfg.MinAngle > cfg.MaxAngle {
		return nil, errors.Errorf("arm min angle %v is above max angle %v", cfg.MinAngle, cfg.MaxAngle)
	}
	m := cfg.Motor
	moi := cfg.Mass * cfg.Length * cfg.Length / 3
	g := cfg.Gearing
	a := mat.NewDense(2, 2, []float64{
		0, 1,
		0, -g * g * m.Kt / (m.Resistance * moi * m.Kv),
	})
	b := mat.NewDense(2, 2, []float64{
		0, 0,
		g * m.Kt / (m.Resistance * moi), -1,
	})
	plant, err := NewLinearPlant(a, b, []float64{cfg.StartAngle, 0})
	if err != nil {
		return nil, err
	}
	arm := &ArmPlant{cfg: cfg, plant: plant}
	if cfg.SimulateGravity {
		// torque from a uniform rod about its pivot, divided by the moment of inertia
		arm.gravity = cfg.Mass * gravity * cfg.Length / 2 / moi
	}
	return arm, nil
}

// Step applies voltage for dt. Gravity is re-evaluated every substep.
func (a *ArmPlant) Step(voltage float64, dt time.Duration) State {
	remaining := dt
	for remaining > 0 {
		h := defaultSubstep
		if remaining < h {
			h = remaining
		}
		angle := a.plant.State()[0]
		a.plant.Step([]float64{voltage, a.gravity * math.Cos(angle)}, h)
		remaining -= h
	}
	x := a.plant.State()
	switch {
	case a.cfg.MinAngle == 0 && a.cfg.MaxAngle == 0:
	case x[0] < a.cfg.MinAngle:
		a.plant.SetState([]float64{a.cfg.MinAngle, 0})
	case x[0] > a.cfg.MaxAngle:
		a.plant.SetState([]float64{a.cfg.MaxAngle, 0})
	}
	motorSpeed := a.plant.State()[1] * a.cfg.Gearing
	a.current = math.Abs(a.cfg.Motor.Current(motorSpeed, voltage))
	return a.State()
}

// State returns the arm angle, angular velocity and motor current.
func (a *ArmPlant) State() State {
	x := a.plant.State()
	return State{Position: x[0], Velocity: x[1], Current: a.current}
}

// SetState teleports the arm.
func (a *ArmPlant) SetState(s State) {
	a.plant.SetState([]float64{s.Position, s.Velocity})
	a.current = s.Current
}
