package control

import (
	"math"

	"go.viam.com/yams/utils"
)

// FeedforwardKind identifies which feedforward model, if any, is configured.
type FeedforwardKind int

// Feedforward models.
const (
	FeedforwardNone FeedforwardKind = iota
	FeedforwardSimple
	FeedforwardArm
	FeedforwardElevator
)

func (k FeedforwardKind) String() string {
	switch k {
	case FeedforwardNone:
		return "none"
	case FeedforwardSimple:
		return "simple"
	case FeedforwardArm:
		return "arm"
	case FeedforwardElevator:
		return "elevator"
	}
	return "unknown"
}

// HasGravity reports whether the model carries a kG term.
func (k FeedforwardKind) HasGravity() bool {
	return k == FeedforwardArm || k == FeedforwardElevator
}

// FeedforwardCoefficients are the model coefficients in volts per measurement unit. KG is ignored
// by the simple model.
type FeedforwardCoefficients struct {
	KS float64 `json:"ks"`
	KV float64 `json:"kv"`
	KA float64 `json:"ka"`
	KG float64 `json:"kg"`
}

// Feedforward is one of the supported feedforward models. The zero value is FeedforwardNone and
// always produces zero volts.
type Feedforward struct {
	kind   FeedforwardKind
	coeffs FeedforwardCoefficients
}

// NewSimpleFeedforward returns V = kS*sgn(v) + kV*v + kA*a.
func NewSimpleFeedforward(ks, kv, ka float64) Feedforward {
	return Feedforward{kind: FeedforwardSimple, coeffs: FeedforwardCoefficients{KS: ks, KV: kv, KA: ka}}
}

// NewArmFeedforward returns V = kS*sgn(v) + kG*cos(angle) + kV*v + kA*a with the angle in
// radians from horizontal.
func NewArmFeedforward(ks, kg, kv, ka float64) Feedforward {
	return Feedforward{kind: FeedforwardArm, coeffs: FeedforwardCoefficients{KS: ks, KV: kv, KA: ka, KG: kg}}
}

// NewElevatorFeedforward returns V = kS*sgn(v) + kG + kV*v + kA*a.
func NewElevatorFeedforward(ks, kg, kv, ka float64) Feedforward {
	return Feedforward{kind: FeedforwardElevator, coeffs: FeedforwardCoefficients{KS: ks, KV: kv, KA: ka, KG: kg}}
}

// Kind returns the model kind.
func (ff Feedforward) Kind() FeedforwardKind {
	return ff.kind
}

// Coefficients returns the model coefficients.
func (ff Feedforward) Coefficients() FeedforwardCoefficients {
	return ff.coeffs
}

// WithCoefficients returns the same model with new coefficients.
func (ff Feedforward) WithCoefficients(c FeedforwardCoefficients) Feedforward {
	if !ff.kind.HasGravity() {
		c.KG = 0
	}
	if ff.kind == FeedforwardNone {
		return ff
	}
	ff.coeffs = c
	return ff
}

// Calculate returns the feedforward voltage. Position is only used by the arm model, in radians.
func (ff Feedforward) Calculate(position, velocity, acceleration float64) float64 {
	c := ff.coeffs
	base := c.KS*utils.Sign(velocity) + c.KV*velocity + c.KA*acceleration
	switch ff.kind {
	case FeedforwardSimple:
		return base
	case FeedforwardArm:
		return base + c.KG*math.Cos(position)
	case FeedforwardElevator:
		return base + c.KG
	default:
		return 0
	}
}
