package inject

// Encoder is an injected rotor encoder.
type Encoder struct {
	PositionFunc func() (float64, error)
}

// Position calls the injected Position, reporting zero if none is set.
func (e *Encoder) Position() (float64, error) {
	if e.PositionFunc == nil {
		return 0, nil
	}
	return e.PositionFunc()
}

// Output is an injected PWM motor output that records the last power written.
type Output struct {
	SetPowerFunc func(power float64) error
	Power        float64
}

// SetPower calls the injected SetPower after recording power.
func (o *Output) SetPower(power float64) error {
	o.Power = power
	if o.SetPowerFunc == nil {
		return nil
	}
	return o.SetPowerFunc(power)
}
