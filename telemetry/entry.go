package telemetry

import (
	"math"

	"go.viam.com/yams/utils"
)

// FieldValue is the set of types a telemetry field may carry.
type FieldValue interface {
	bool | float64
}

// Entry is a single telemetry field. It owns one key in the data table and, when tunable and a
// tuning table is wired, a mirrored key in the tuning table whose value always wins over
// programmatic writes.
//
// Entry is not safe for concurrent use; it is driven from the control loop tick.
type Entry[T FieldValue] struct {
	key          string
	tunable      bool
	enabled      bool
	defaultValue T
	cached       T

	data   Table
	tuning Table
}

func newEntry[T FieldValue](key string, tunable bool) *Entry[T] {
	return &Entry[T]{key: key, tunable: tunable}
}

// Key returns the table key.
func (e *Entry[T]) Key() string {
	return e.key
}

// Tunable reports whether the field is operator tunable.
func (e *Entry[T]) Tunable() bool {
	return e.tunable
}

// Enable makes the field participate in wiring and change polling.
func (e *Entry[T]) Enable() {
	e.enabled = true
}

// Disable stops change polling. A wired field stays published.
func (e *Entry[T]) Disable() {
	e.enabled = false
}

// Enabled reports whether the field is enabled.
func (e *Entry[T]) Enabled() bool {
	return e.enabled
}

// Default returns the value published when the field is first wired.
func (e *Entry[T]) Default() T {
	return e.defaultValue
}

// SetDefault sets the default and resets the change detection cache to it.
func (e *Entry[T]) SetDefault(value T) {
	e.defaultValue = value
	e.cached = value
}

// Wired reports whether the field has been published.
func (e *Entry[T]) Wired() bool {
	return e.data != nil
}

// Wire publishes the default under the field's key in data and, for tunable fields, in tuning.
// tuning may be nil.
func (e *Entry[T]) Wire(data, tuning Table) error {
	if err := data.SetDefault(e.key, e.defaultValue); err != nil {
		return err
	}
	e.data = data
	if e.tunable && tuning != nil {
		if err := tuning.SetDefault(e.key, e.defaultValue); err != nil {
			return err
		}
		e.tuning = tuning
	}
	return nil
}

// Set publishes value to the data table. It returns false without writing when the tuning table
// holds a different value. Setting an unwired field is a no-op that succeeds.
func (e *Entry[T]) Set(value T) bool {
	if e.tuning != nil && e.tuningValue() != value {
		return false
	}
	if e.data == nil {
		return true
	}
	return e.data.Put(e.key, value) == nil
}

// Get returns the tuning table value. It fails with a NotConfigured error when no tuning table
// is wired for this field.
func (e *Entry[T]) Get() (T, error) {
	if e.tuning == nil {
		var zero T
		return zero, utils.NewNotConfiguredError(e.key)
	}
	return e.tuningValue(), nil
}

// PollForChange reports true exactly once for each new tuning table value. Disabled, untunable and
// unwired fields never report a change.
func (e *Entry[T]) PollForChange() bool {
	if e.tuning == nil || !e.tunable || !e.enabled {
		return false
	}
	value := e.tuningValue()
	if same(value, e.cached) {
		return false
	}
	e.cached = value
	return true
}

// same is == except that NaN equals NaN.
func same[T FieldValue](a, b T) bool {
	if a == b {
		return true
	}
	x, xok := any(a).(float64)
	y, yok := any(b).(float64)
	return xok && yok && math.IsNaN(x) && math.IsNaN(y)
}

// Close unpublishes the field from both tables.
func (e *Entry[T]) Close() {
	if e.data != nil {
		e.data.Unpublish(e.key)
		e.data = nil
	}
	if e.tuning != nil {
		e.tuning.Unpublish(e.key)
		e.tuning = nil
	}
}

func (e *Entry[T]) tuningValue() T {
	raw, ok := e.tuning.Get(e.key)
	if !ok {
		return e.defaultValue
	}
	value, ok := raw.(T)
	if !ok {
		return e.defaultValue
	}
	return value
}
