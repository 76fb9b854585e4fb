// Package utils contains the error taxonomy and small numeric helpers shared across packages.
package utils

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidConfiguration is returned when gearing, limits or feedforward settings cannot be combined.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrNotConfigured is returned when a tuning read is requested on a field without a tuning channel.
	ErrNotConfigured = errors.New("not configured")

	// ErrUnsupportedControlMode is returned when a closed loop request reaches an open loop controller.
	ErrUnsupportedControlMode = errors.New("unsupported control mode")

	// ErrMechanismBusy is returned when a self test is requested while a mechanism is not idle.
	ErrMechanismBusy = errors.New("mechanism busy")
)

// NewInvalidConfigurationError wraps ErrInvalidConfiguration with a formatted reason.
func NewInvalidConfigurationError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidConfiguration, format, args...)
}

// NewNotConfiguredError is used when key has no tuning channel.
func NewNotConfiguredError(key string) error {
	return errors.Wrapf(ErrNotConfigured, "tuning table not configured for %q", key)
}

// NewUnsupportedControlModeError is used when a motor controller named name is asked for a
// control request its configured mode cannot serve.
func NewUnsupportedControlModeError(name string, mode interface{}) error {
	return errors.Wrapf(ErrUnsupportedControlMode, "motor controller %s is configured for %v", name, mode)
}

// NewMechanismBusyError is used when a self test cannot start because the mechanism is in state.
func NewMechanismBusyError(name string, state interface{}) error {
	return errors.Wrapf(ErrMechanismBusy, "mechanism %s is in state %v", name, state)
}
