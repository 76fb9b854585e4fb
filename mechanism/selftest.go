package mechanism

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/yams/control"
	"go.viam.com/yams/utils"
)

// SelfTestConfig configures the characterization routine.
type SelfTestConfig struct {
	// RampRate is the quasistatic voltage ramp in volts per second, default 1.
	RampRate float64
	// StepVoltage is the dynamic step voltage, default 7.
	StepVoltage float64
	// MaxVoltage caps the quasistatic ramp, default 12.
	MaxVoltage float64
	// PhaseTimeout ends each of the four phases, default 10s.
	PhaseTimeout time.Duration
}

func (c SelfTestConfig) withDefaults() SelfTestConfig {
	if c.RampRate <= 0 {
		c.RampRate = 1
	}
	if c.StepVoltage <= 0 {
		c.StepVoltage = 7
	}
	if c.MaxVoltage <= 0 {
		c.MaxVoltage = 12
	}
	if c.PhaseTimeout <= 0 {
		c.PhaseTimeout = 10 * time.Second
	}
	return c
}

type selfTestPhase int

const (
	quasistaticForward selfTestPhase = iota
	quasistaticReverse
	dynamicForward
	dynamicReverse
	numSelfTestPhases
)

func (p selfTestPhase) String() string {
	return [...]string{"quasistatic_forward", "quasistatic_reverse", "dynamic_forward", "dynamic_reverse"}[p]
}

func (p selfTestPhase) direction() float64 {
	if p == quasistaticReverse || p == dynamicReverse {
		return -1
	}
	return 1
}

// SelfTestResult is the fitted feedforward model of a characterization run, in physics units
// (meters or radians).
type SelfTestResult struct {
	Coefficients control.FeedforwardCoefficients
	// RMSE is the root mean square voltage residual of the fit.
	RMSE    float64
	Samples int
}

type selfTestSample struct {
	voltage      float64
	position     float64
	velocity     float64
	acceleration float64
}

type selfTestRun struct {
	cfg     SelfTestConfig
	phase   selfTestPhase
	elapsed time.Duration
	samples []selfTestSample

	hasPrev      bool
	prevVoltage  float64
	prevPosition float64
	prevVelocity float64
}

func (r *selfTestRun) voltage() float64 {
	dir := r.phase.direction()
	if r.phase == dynamicForward || r.phase == dynamicReverse {
		return dir * r.cfg.StepVoltage
	}
	return dir * math.Min(r.cfg.RampRate*r.elapsed.Seconds(), r.cfg.MaxVoltage)
}

// StartSelfTest starts characterizing the mechanism: a quasistatic voltage ramp forward and in
// reverse, then a voltage step forward and in reverse. Each phase stops at its timeout or at a
// soft limit. It fails with a MechanismBusy error unless the mechanism is idle.
func (m *Mechanism) StartSelfTest(cfg SelfTestConfig) error {
	if m.state != Idle {
		return utils.NewMechanismBusyError(m.name, m.state)
	}
	m.selfTest = &selfTestRun{cfg: cfg.withDefaults()}
	m.result = nil
	m.state = SelfTest
	m.logger.Infow("self test started", "mechanism", m.name)
	return nil
}

// SelfTestResult returns the result of the last completed self-test.
func (m *Mechanism) SelfTestResult() (SelfTestResult, bool) {
	if m.result == nil {
		return SelfTestResult{}, false
	}
	return *m.result, true
}

// advanceSelfTest records the interval that just ended and moves to the next phase when due.
// Each sample pairs the voltage applied over an interval with the mean motion across it.
func (m *Mechanism) advanceSelfTest() error {
	run := m.selfTest
	position, velocity := m.toPlant(m.position), m.toPlant(m.velocity)
	if run.hasPrev {
		run.samples = append(run.samples, selfTestSample{
			voltage:      run.prevVoltage,
			position:     (position + run.prevPosition) / 2,
			velocity:     (velocity + run.prevVelocity) / 2,
			acceleration: (velocity - run.prevVelocity) / m.period.Seconds(),
		})
	}
	run.hasPrev = true
	run.prevVoltage = m.smc.OutputVoltage()
	run.prevPosition, run.prevVelocity = position, velocity

	run.elapsed += m.period
	atLimit := (run.phase.direction() > 0 && m.atUpper) || (run.phase.direction() < 0 && m.atLower)
	if run.elapsed < run.cfg.PhaseTimeout && !atLimit {
		return nil
	}
	m.logger.Debugw("self test phase done", "mechanism", m.name, "phase", run.phase.String(),
		"elapsed", run.elapsed, "at_limit", atLimit)
	run.phase++
	run.elapsed = 0
	if run.phase < numSelfTestPhases {
		return nil
	}

	m.selfTest = nil
	m.state = Idle
	stopErr := m.smc.Stop()
	result, err := m.fit(run.samples)
	if err != nil {
		m.logger.Warnw("self test fit failed", "mechanism", m.name, "error", err)
		return errors.Wrapf(err, "%s: self test", m.name)
	}
	m.result = &result
	m.logger.Infow("self test complete", "mechanism", m.name,
		"kS", result.Coefficients.KS, "kV", result.Coefficients.KV,
		"kA", result.Coefficients.KA, "kG", result.Coefficients.KG,
		"rmse", result.RMSE, "samples", result.Samples)
	return stopErr
}

// minSelfTestSpeed excludes samples whose direction of motion, and so the sign of kS, is unclear.
const minSelfTestSpeed = 1e-3

// fit solves V = kS·sign(v) + kV·v + kA·a (+ kG·g(x)) in the least squares sense.
func (m *Mechanism) fit(samples []selfTestSample) (SelfTestResult, error) {
	_, withGravity := m.gravityTerm(0)
	cols := 3
	if withGravity {
		cols = 4
	}
	var rows [][]float64
	var volts []float64
	for _, s := range samples {
		if math.Abs(s.velocity) < minSelfTestSpeed {
			continue
		}
		row := []float64{utils.Sign(s.velocity), s.velocity, s.acceleration}
		if g, ok := m.gravityTerm(s.position); ok {
			row = append(row, g)
		}
		rows = append(rows, row)
		volts = append(volts, s.voltage)
	}
	if len(rows) <= cols {
		return SelfTestResult{}, errors.Errorf("only %d usable samples, need more than %d", len(rows), cols)
	}

	x := mat.NewDense(len(rows), cols, nil)
	for i, row := range rows {
		x.SetRow(i, row)
	}
	y := mat.NewVecDense(len(volts), volts)
	var beta mat.VecDense
	if err := beta.SolveVec(x, y); err != nil {
		return SelfTestResult{}, errors.Wrap(err, "least squares fit")
	}

	var predicted mat.VecDense
	predicted.MulVec(x, &beta)
	squared := make([]float64, len(volts))
	for i := range volts {
		r := volts[i] - predicted.AtVec(i)
		squared[i] = r * r
	}
	mse, err := stats.Mean(squared)
	if err != nil {
		return SelfTestResult{}, errors.Wrap(err, "fit residuals")
	}

	coeffs := control.FeedforwardCoefficients{KS: beta.AtVec(0), KV: beta.AtVec(1), KA: beta.AtVec(2)}
	if withGravity {
		coeffs.KG = beta.AtVec(3)
	}
	return SelfTestResult{Coefficients: coeffs, RMSE: math.Sqrt(mse), Samples: len(rows)}, nil
}
