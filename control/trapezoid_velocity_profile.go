package control

import (
	"math"
	"time"

	"go.viam.com/yams/utils"
)

// TrapezoidConstraints bound a trapezoid profile, in measurement units.
type TrapezoidConstraints struct {
	MaxVelocity     float64 `json:"max_velocity"`
	MaxAcceleration float64 `json:"max_acceleration"`
}

// Validate checks that both constraints are positive.
func (c TrapezoidConstraints) Validate() error {
	if !(c.MaxVelocity > 0) || !(c.MaxAcceleration > 0) {
		return utils.NewInvalidConfigurationError(
			"motion profile max velocity %v and max acceleration %v must be positive", c.MaxVelocity, c.MaxAcceleration)
	}
	return nil
}

// ProfileState is a position and velocity along a profile.
type ProfileState struct {
	Position float64
	Velocity float64
}

// TrapezoidProfile generates position/velocity setpoints that accelerate at most MaxAcceleration
// up to MaxVelocity, cruise, then decelerate into the goal.
type TrapezoidProfile struct {
	constraints TrapezoidConstraints
}

// NewTrapezoidProfile returns a profile with the given constraints.
func NewTrapezoidProfile(constraints TrapezoidConstraints) (*TrapezoidProfile, error) {
	if err := constraints.Validate(); err != nil {
		return nil, err
	}
	return &TrapezoidProfile{constraints: constraints}, nil
}

// Constraints returns the profile constraints.
func (t *TrapezoidProfile) Constraints() TrapezoidConstraints {
	return t.constraints
}

// SetConstraints replaces the constraints, ignoring invalid ones.
func (t *TrapezoidProfile) SetConstraints(c TrapezoidConstraints) bool {
	if c.Validate() != nil {
		return false
	}
	t.constraints = c
	return true
}

// Next returns the state dt after current when travelling toward goal.
func (t *TrapezoidProfile) Next(dt time.Duration, current, goal ProfileState) ProfileState {
	dir := 1.0
	if current.Position > goal.Position {
		dir = -1.0
	}
	cur := direct(current, dir)
	g := direct(goal, dir)
	maxV := t.constraints.MaxVelocity
	maxA := t.constraints.MaxAcceleration
	if cur.Velocity > maxV {
		cur.Velocity = maxV
	}

	// Distances that would be covered if the profile started or ended at rest.
	cutoffBegin := cur.Velocity / maxA
	cutoffDistBegin := cutoffBegin * cutoffBegin * maxA / 2.0
	cutoffEnd := g.Velocity / maxA
	cutoffDistEnd := cutoffEnd * cutoffEnd * maxA / 2.0

	fullTrapezoidDist := cutoffDistBegin + (g.Position - cur.Position) + cutoffDistEnd
	accelerationTime := maxV / maxA
	fullSpeedDist := fullTrapezoidDist - accelerationTime*accelerationTime*maxA
	if fullSpeedDist < 0 {
		accelerationTime = math.Sqrt(fullTrapezoidDist / maxA)
		fullSpeedDist = 0
	}

	endAccel := accelerationTime - cutoffBegin
	endFullSpeed := endAccel + fullSpeedDist/maxV
	endDecel := endFullSpeed + accelerationTime - cutoffEnd

	s := dt.Seconds()
	result := cur
	switch {
	case s < endAccel:
		result.Velocity += s * maxA
		result.Position += (cur.Velocity + s*maxA/2.0) * s
	case s < endFullSpeed:
		result.Velocity = maxV
		result.Position += (cur.Velocity+endAccel*maxA/2.0)*endAccel + maxV*(s-endAccel)
	case s <= endDecel:
		timeLeft := endDecel - s
		result.Velocity = g.Velocity + timeLeft*maxA
		result.Position = g.Position - (g.Velocity+timeLeft*maxA/2.0)*timeLeft
	default:
		result = g
	}
	return direct(result, dir)
}

func direct(s ProfileState, dir float64) ProfileState {
	return ProfileState{Position: s.Position * dir, Velocity: s.Velocity * dir}
}
