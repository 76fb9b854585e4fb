package mechanism

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/yams/control"
	"go.viam.com/yams/telemetry"
)

// applyTuning applies every tuning value that changed since the last tick.
func (m *Mechanism) applyTuning() error {
	_, changed := m.registry.Poll()
	if len(changed) == 0 {
		return nil
	}
	var (
		errs               error
		gains, ff, profile bool
		currents, ramps    bool
		limits             bool
	)
	coeffs := m.feedforward.Coefficients()
	constraints := control.TrapezoidConstraints{}
	if m.profile != nil {
		constraints = m.profile.Constraints()
	}
	lower, upper := math.Inf(-1), math.Inf(1)
	if m.limits.HasSoft {
		lower, upper = m.limits.SoftLower, m.limits.SoftUpper
	}
	for _, f := range changed {
		v, err := m.registry.Double(f).Get()
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		m.logger.Debugw("applying tuning value", "mechanism", m.name, "field", f.String(), "value", v)
		switch f {
		case telemetry.KP:
			m.gains.P, gains = v, true
		case telemetry.KI:
			m.gains.I, gains = v, true
		case telemetry.KD:
			m.gains.D, gains = v, true
		case telemetry.KS:
			coeffs.KS, ff = v, true
		case telemetry.KV:
			coeffs.KV, ff = v, true
		case telemetry.KA:
			coeffs.KA, ff = v, true
		case telemetry.KG:
			coeffs.KG, ff = v, true
		case telemetry.MotionProfileMaxVelocity:
			constraints.MaxVelocity, profile = v, true
		case telemetry.MotionProfileMaxAcceleration:
			constraints.MaxAcceleration, profile = v, true
		case telemetry.StatorCurrentLimit:
			m.statorLimit, currents = v, true
		case telemetry.SupplyCurrentLimit:
			m.supplyLimit, currents = v, true
		case telemetry.OpenLoopRampRate:
			m.openRamp, ramps = v, true
		case telemetry.ClosedLoopRampRate:
			m.closedRamp, ramps = v, true
		case telemetry.MechanismLowerLimit:
			lower, limits = v*m.units.PerRotation, true
		case telemetry.MechanismUpperLimit:
			upper, limits = v*m.units.PerRotation, true
		case telemetry.MeasurementLowerLimit:
			lower, limits = m.fromDistance(v), true
		case telemetry.MeasurementUpperLimit:
			upper, limits = m.fromDistance(v), true
		case telemetry.TunableSetpointPosition:
			errs = multierr.Append(errs, m.SetPosition(v*m.units.PerRotation))
		default:
			m.logger.Debugw("tuning value has no effect", "mechanism", m.name, "field", f.String())
		}
	}
	if gains {
		errs = multierr.Append(errs, errors.Wrap(m.smc.SetClosedLoopGains(m.gains), "applying tuned gains"))
	}
	if ff {
		m.feedforward = m.feedforward.WithCoefficients(coeffs)
	}
	if profile && m.profile != nil && !m.profile.SetConstraints(constraints) {
		m.logger.Warnw("ignoring invalid motion profile constraints", "mechanism", m.name,
			"max_velocity", constraints.MaxVelocity, "max_acceleration", constraints.MaxAcceleration)
	}
	if currents {
		errs = multierr.Append(errs, errors.Wrap(m.smc.SetCurrentLimits(m.statorLimit, m.supplyLimit), "applying tuned current limits"))
	}
	if ramps {
		errs = multierr.Append(errs, errors.Wrap(m.smc.SetRampRates(m.openRamp, m.closedRamp), "applying tuned ramp rates"))
	}
	if limits {
		errs = multierr.Append(errs, m.setSoftLimits(lower, upper))
	}
	return errs
}

// setSoftLimits replaces the soft limits, in measurement units, and re-clamps an active position
// goal. An unset bound is infinite. Limits with lower above upper are ignored.
func (m *Mechanism) setSoftLimits(lower, upper float64) error {
	if math.IsNaN(lower) || math.IsNaN(upper) || lower > upper {
		m.logger.Warnw("ignoring tuned soft limits", "mechanism", m.name,
			"lower", lower, "upper", upper, "units", m.units.Name)
		return nil
	}
	m.limits.SoftLower, m.limits.SoftUpper, m.limits.HasSoft = lower, upper, true
	m.checkLimits()
	if m.state == ClosedLoopPositionCommand {
		return m.SetPosition(m.goal)
	}
	return nil
}

// fromDistance converts meters to measurement units.
func (m *Mechanism) fromDistance(meters float64) float64 {
	rotations, err := m.converter.DistanceToRotations(meters)
	if err != nil {
		return meters
	}
	return rotations * m.units.PerRotation
}

func (m *Mechanism) publishLimits() {
	m.registry.SetBoolean(telemetry.BoolMechanismLowerLimit, m.atLower || m.clampedLower)
	m.registry.SetBoolean(telemetry.BoolMechanismUpperLimit, m.atUpper || m.clampedUpper)
}

// publish writes this tick's measurements. It runs after the command is issued and the controller
// is read back.
func (m *Mechanism) publish() {
	r := m.registry
	mechanismPosition := m.converter.ToMechanism(m.rotorPosition)
	mechanismVelocity := m.converter.ToMechanism(m.rotorVelocity)
	r.SetDouble(telemetry.RotorPosition, m.rotorPosition)
	r.SetDouble(telemetry.RotorVelocity, m.rotorVelocity)
	r.SetDouble(telemetry.MechanismPosition, mechanismPosition)
	r.SetDouble(telemetry.MechanismVelocity, mechanismVelocity)
	if m.converter.IsLinear() {
		if meters, err := m.converter.RotationsToDistance(mechanismPosition); err == nil {
			r.SetDouble(telemetry.MeasurementPosition, meters)
		}
		if meters, err := m.converter.RotationsToDistance(mechanismVelocity); err == nil {
			r.SetDouble(telemetry.MeasurementVelocity, meters)
		}
	}
	if m.state == ClosedLoopPositionCommand {
		r.SetDouble(telemetry.SetpointPosition, m.setpoint.Position/m.units.PerRotation)
		r.SetDouble(telemetry.SetpointVelocity, m.setpoint.Velocity/m.units.PerRotation)
	}
	r.SetDouble(telemetry.OutputVoltage, m.smc.OutputVoltage())
	if amps, ok := m.smc.StatorCurrent(); ok {
		r.SetDouble(telemetry.StatorCurrent, amps)
	}
	if amps, ok := m.smc.SupplyCurrent(); ok {
		r.SetDouble(telemetry.SupplyCurrent, amps)
	}
	if celsius, ok := m.smc.Temperature(); ok {
		r.SetDouble(telemetry.MotorTemperature, celsius)
		cutoff, hasCutoff := m.smc.Config().TemperatureCutoff()
		r.SetBoolean(telemetry.BoolTemperatureLimit, hasCutoff && celsius >= cutoff)
	}
	m.publishLimits()
}
