package utils

import "math"

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// RotationsToRad converts whole rotations to radians.
func RotationsToRad(rotations float64) float64 {
	return rotations * 2 * math.Pi
}

// Sign returns -1, 0 or 1 following the sign of x.
func Sign(x float64) float64 {
	if x == 0 {
		return 0
	}
	if math.Signbit(x) {
		return -1.0
	}
	return 1.0
}

// Clamp limits x to [lower, upper].
func Clamp(x, lower, upper float64) float64 {
	return math.Max(lower, math.Min(upper, x))
}

// ClampPower clamps a percentage power to 1.0 or -1.0.
func ClampPower(pwr float64) float64 {
	return Clamp(pwr, -1.0, 1.0)
}

// Float64AlmostEqual compares a and b with the given absolute epsilon.
func Float64AlmostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}
