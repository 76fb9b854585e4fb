package gpio

import (
	"math"
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// DefaultPWMFrequency is used when PinConfig.PWMFrequency is zero.
const DefaultPWMFrequency = 20 * physic.KiloHertz

// PinConfig names the host pins of a PWM and direction motor driver.
type PinConfig struct {
	PWM          string
	Direction    string
	PWMFrequency physic.Frequency
}

type pwmPin interface {
	PWM(duty gpio.Duty, f physic.Frequency) error
}

type digitalPin interface {
	Out(l gpio.Level) error
}

// PinOutput drives a motor driver with a PWM pin for magnitude and a digital pin for direction.
type PinOutput struct {
	mu   sync.Mutex
	pwm  pwmPin
	dir  digitalPin
	freq physic.Frequency
}

var hostInit sync.Once

// NewPinOutput looks up the configured pins on the host.
func NewPinOutput(cfg PinConfig) (*PinOutput, error) {
	var initErr error
	hostInit.Do(func() {
		_, initErr = host.Init()
	})
	if initErr != nil {
		return nil, errors.Wrap(initErr, "initializing host gpio")
	}
	pwm := gpioreg.ByName(cfg.PWM)
	if pwm == nil {
		return nil, errors.Errorf("no pwm pin found for %q", cfg.PWM)
	}
	dir := gpioreg.ByName(cfg.Direction)
	if dir == nil {
		return nil, errors.Errorf("no direction pin found for %q", cfg.Direction)
	}
	return newPinOutput(pwm, dir, cfg.PWMFrequency), nil
}

func newPinOutput(pwm pwmPin, dir digitalPin, freq physic.Frequency) *PinOutput {
	if freq == 0 {
		freq = DefaultPWMFrequency
	}
	return &PinOutput{pwm: pwm, dir: dir, freq: freq}
}

// SetPower sets direction from the sign of power and duty from its magnitude.
func (o *PinOutput) SetPower(power float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	level := gpio.High
	if power < 0 {
		level = gpio.Low
	}
	if err := o.dir.Out(level); err != nil {
		return errors.Wrap(err, "setting direction pin")
	}
	duty := gpio.Duty(math.Min(math.Abs(power), 1) * float64(gpio.DutyMax))
	if err := o.pwm.PWM(duty, o.freq); err != nil {
		return errors.Wrap(err, "setting pwm duty")
	}
	return nil
}
