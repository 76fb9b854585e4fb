// Package control contains the closed loop building blocks used by motor controllers and
// mechanisms: PID, feedforward models, trapezoid motion profiles and filters.
package control

import (
	"math"
	"time"
)

// PIDGains are closed loop gains.
type PIDGains struct {
	P float64 `json:"p"`
	I float64 `json:"i"`
	D float64 `json:"d"`
}

// IsZero reports whether every gain is zero.
func (g PIDGains) IsZero() bool {
	return g.P == 0 && g.I == 0 && g.D == 0
}

// PID is a discrete PID controller stepped once per control tick. It is not safe for concurrent use.
type PID struct {
	gains  PIDGains
	outMin float64
	outMax float64

	int     float64
	error   float64
	sat     int
	hasPrev bool
}

// NewPID returns a PID with an unbounded output.
func NewPID(gains PIDGains) *PID {
	return &PID{gains: gains, outMin: math.Inf(-1), outMax: math.Inf(1)}
}

// Gains returns the current gains.
func (p *PID) Gains() PIDGains {
	return p.gains
}

// SetGains replaces the gains without resetting accumulated state.
func (p *PID) SetGains(gains PIDGains) {
	p.gains = gains
}

// SetOutputRange bounds the controller output. The integrator stops accumulating while the
// output is saturated in the direction of the error.
func (p *PID) SetOutputRange(lower, upper float64) {
	p.outMin, p.outMax = lower, upper
}

// Reset clears the integrator and derivative history.
func (p *PID) Reset() {
	p.int = 0
	p.error = 0
	p.sat = 0
	p.hasPrev = false
}

// Next returns the controller output for one step of length dt.
func (p *PID) Next(setPoint, measured float64, dt time.Duration) float64 {
	dtS := dt.Seconds()
	if dtS <= 0 {
		return p.clamp(p.gains.P*(setPoint-measured) + p.int)
	}
	err := setPoint - measured
	if !((p.sat > 0 && err > 0) || (p.sat < 0 && err < 0)) {
		p.int += p.gains.I * err * dtS
	}
	var deriv float64
	if p.hasPrev {
		deriv = (err - p.error) / dtS
	}
	p.error = err
	p.hasPrev = true

	output := p.gains.P*err + p.int + p.gains.D*deriv
	switch {
	case output > p.outMax:
		p.sat = 1
	case output < p.outMin:
		p.sat = -1
	default:
		p.sat = 0
	}
	return p.clamp(output)
}

func (p *PID) clamp(x float64) float64 {
	return math.Max(p.outMin, math.Min(p.outMax, x))
}
