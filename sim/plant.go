package sim

import (
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// State is the state of a simulated mechanism in its physical units (meters or radians) along with
// the current its motors draw.
type State struct {
	Position float64
	Velocity float64
	Current  float64
}

// A Stepper advances a physics model. Real physics engines plug in here.
type Stepper interface {
	// Step applies voltage for dt and returns the new state.
	Step(voltage float64, dt time.Duration) State
	State() State
	SetState(state State)
}

const defaultSubstep = time.Millisecond

// LinearPlant integrates ẋ = Ax + Bu with fixed size Euler substeps.
type LinearPlant struct {
	a       *mat.Dense
	b       *mat.Dense
	x       *mat.VecDense
	substep time.Duration
}

// NewLinearPlant returns a plant with n states and m inputs starting at x0.
func NewLinearPlant(a, b *mat.Dense, x0 []float64) (*LinearPlant, error) {
	ar, ac := a.Dims()
	br, _ := b.Dims()
	if ar != ac {
		return nil, errors.Errorf("system matrix must be square, got %dx%d", ar, ac)
	}
	if br != ar {
		return nil, errors.Errorf("input matrix has %d rows, want %d", br, ar)
	}
	if len(x0) != ar {
		return nil, errors.Errorf("initial state has %d entries, want %d", len(x0), ar)
	}
	return &LinearPlant{
		a:       mat.DenseCopyOf(a),
		b:       mat.DenseCopyOf(b),
		x:       mat.NewVecDense(ar, append([]float64(nil), x0...)),
		substep: defaultSubstep,
	}, nil
}

// Step applies input u for dt.
func (p *LinearPlant) Step(u []float64, dt time.Duration) {
	remaining := dt
	for remaining > 0 {
		h := p.substep
		if remaining < h {
			h = remaining
		}
		p.euler(u, h.Seconds())
		remaining -= h
	}
}

func (p *LinearPlant) euler(u []float64, h float64) {
	n, _ := p.a.Dims()
	var ax, bu mat.VecDense
	ax.MulVec(p.a, p.x)
	bu.MulVec(p.b, mat.NewVecDense(len(u), u))
	dx := mat.NewVecDense(n, nil)
	dx.AddVec(&ax, &bu)
	p.x.AddScaledVec(p.x, h, dx)
}

// State returns a copy of the state vector.
func (p *LinearPlant) State() []float64 {
	n := p.x.Len()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = p.x.AtVec(i)
	}
	return out
}

// SetState overwrites the state vector.
func (p *LinearPlant) SetState(x []float64) {
	for i := 0; i < p.x.Len() && i < len(x); i++ {
		p.x.SetVec(i, x[i])
	}
}
