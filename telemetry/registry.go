package telemetry

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/yams/control"
	"go.viam.com/yams/logging"
)

// Capabilities describe what a motor controller can sense. Fields the controller declares
// unsupported are never published.
type Capabilities struct {
	UnsupportedBooleans []BooleanField
	UnsupportedDoubles  []DoubleField
	SupplyCurrent       bool
	StatorCurrent       bool
	Temperature         bool
}

// Defaults are the configured values fields start from. Nil means not configured. Limits are in
// mechanism rotations, measurement limits in meters.
type Defaults struct {
	Gains                 *control.PIDGains
	Feedforward           control.Feedforward
	Profile               *control.TrapezoidConstraints
	HasCircumference      bool
	LowerLimit            *float64
	UpperLimit            *float64
	MeasurementLowerLimit *float64
	MeasurementUpperLimit *float64
	StatorCurrentLimit    *float64
	SupplyCurrentLimit    *float64
	OpenLoopRampRate      *float64
	ClosedLoopRampRate    *float64
	VelocityControl       bool
	MotorInverted         bool
	EncoderInverted       bool
}

// Selection is an explicit list of fields to enable in addition to any verbosity tier.
type Selection struct {
	Booleans []BooleanField
	Doubles  []DoubleField
}

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool {
	return len(s.Booleans) == 0 && len(s.Doubles) == 0
}

// Registry holds one entry per telemetry field for a single mechanism. Every field is created
// disabled; verbosity and selections enable them, capability gating disables them again and
// wiring publishes whatever is enabled at that moment.
type Registry struct {
	logger   logging.Logger
	booleans [numBooleanFields]*Entry[bool]
	doubles  [numDoubleFields]*Entry[float64]
	wired    bool
}

// NewRegistry returns a registry with every field disabled.
func NewRegistry(logger logging.Logger) *Registry {
	r := &Registry{logger: logger}
	for _, f := range AllBooleanFields() {
		r.booleans[f] = newEntry[bool](f.Key(), f.Tunable())
	}
	for _, f := range AllDoubleFields() {
		r.doubles[f] = newEntry[float64](f.Key(), f.Tunable())
	}
	return r
}

// Boolean returns the entry for f.
func (r *Registry) Boolean(f BooleanField) *Entry[bool] {
	return r.booleans[f]
}

// Double returns the entry for f.
func (r *Registry) Double(f DoubleField) *Entry[float64] {
	return r.doubles[f]
}

// ApplyVerbosity enables every field whose tier is at or below v. At VerbosityHigh any field
// still disabled is reported, since that indicates a field missing from every tier.
func (r *Registry) ApplyVerbosity(v Verbosity) {
	for _, f := range AllBooleanFields() {
		if v.includes(f.Tier()) {
			r.booleans[f].Enable()
		}
	}
	for _, f := range AllDoubleFields() {
		if v.includes(f.Tier()) {
			r.doubles[f].Enable()
		}
	}
	if v != VerbosityHigh {
		return
	}
	for _, f := range r.disabledDoubles() {
		r.logger.Warnw("telemetry field disabled", "field", f.String(), "kind", "double")
	}
	for _, f := range r.disabledBooleans() {
		r.logger.Warnw("telemetry field disabled", "field", f.String(), "kind", "boolean")
	}
}

// ApplySelection enables every selected field.
func (r *Registry) ApplySelection(s Selection) {
	for _, f := range s.Booleans {
		if f.valid() {
			r.booleans[f].Enable()
		}
	}
	for _, f := range s.Doubles {
		if f.valid() {
			r.doubles[f].Enable()
		}
	}
}

// Gate disables fields the controller or configuration cannot back and loads defaults from the
// configuration. It only ever disables fields. Gate must run before Wire.
func (r *Registry) Gate(c Capabilities, d Defaults) {
	disableB := func(fields ...BooleanField) {
		for _, f := range fields {
			if f.valid() {
				r.booleans[f].Disable()
			}
		}
	}
	disableD := func(fields ...DoubleField) {
		for _, f := range fields {
			if f.valid() {
				r.doubles[f].Disable()
			}
		}
	}

	disableB(c.UnsupportedBooleans...)
	disableD(c.UnsupportedDoubles...)
	if !c.SupplyCurrent {
		disableD(SupplyCurrent, SupplyCurrentLimit)
	}
	if !c.StatorCurrent {
		disableD(StatorCurrent, StatorCurrentLimit)
	}
	if !c.Temperature {
		disableD(MotorTemperature)
		disableB(BoolTemperatureLimit)
	}

	kind := d.Feedforward.Kind()
	if kind != control.FeedforwardArm {
		disableB(BoolArmFeedforward)
	}
	if kind != control.FeedforwardElevator {
		disableB(BoolElevatorFeedforward)
	}
	if kind != control.FeedforwardSimple {
		disableB(BoolSimpleMotorFeedforward)
	}
	if kind == control.FeedforwardNone {
		disableD(KS, KV, KA)
	}
	if !kind.HasGravity() {
		disableD(KG)
	}
	if d.Profile == nil {
		disableD(MotionProfileMaxVelocity, MotionProfileMaxAcceleration)
	}
	if !d.HasCircumference {
		disableD(MeasurementLowerLimit, MeasurementUpperLimit, MeasurementPosition, MeasurementVelocity)
	}

	r.booleans[BoolVelocityControl].SetDefault(d.VelocityControl)
	r.booleans[BoolMotionProfile].SetDefault(d.Profile != nil)
	r.booleans[BoolMotorInversion].SetDefault(d.MotorInverted)
	r.booleans[BoolEncoderInversion].SetDefault(d.EncoderInverted)
	r.booleans[BoolArmFeedforward].SetDefault(kind == control.FeedforwardArm)
	r.booleans[BoolElevatorFeedforward].SetDefault(kind == control.FeedforwardElevator)
	r.booleans[BoolSimpleMotorFeedforward].SetDefault(kind == control.FeedforwardSimple)

	setDefault := func(f DoubleField, v *float64) {
		if v != nil {
			r.doubles[f].SetDefault(*v)
		}
	}
	setDefault(MechanismLowerLimit, d.LowerLimit)
	setDefault(MechanismUpperLimit, d.UpperLimit)
	setDefault(StatorCurrentLimit, d.StatorCurrentLimit)
	setDefault(SupplyCurrentLimit, d.SupplyCurrentLimit)
	setDefault(OpenLoopRampRate, d.OpenLoopRampRate)
	setDefault(ClosedLoopRampRate, d.ClosedLoopRampRate)
	if d.HasCircumference {
		setDefault(MeasurementLowerLimit, d.MeasurementLowerLimit)
		setDefault(MeasurementUpperLimit, d.MeasurementUpperLimit)
	}
	if d.Gains != nil {
		r.doubles[KP].SetDefault(d.Gains.P)
		r.doubles[KI].SetDefault(d.Gains.I)
		r.doubles[KD].SetDefault(d.Gains.D)
	}
	if d.Profile != nil {
		r.doubles[MotionProfileMaxVelocity].SetDefault(d.Profile.MaxVelocity)
		r.doubles[MotionProfileMaxAcceleration].SetDefault(d.Profile.MaxAcceleration)
	}
	if kind != control.FeedforwardNone {
		coeffs := d.Feedforward.Coefficients()
		r.doubles[KS].SetDefault(coeffs.KS)
		r.doubles[KV].SetDefault(coeffs.KV)
		r.doubles[KA].SetDefault(coeffs.KA)
		r.doubles[KG].SetDefault(coeffs.KG)
	}
}

// EnabledBooleans returns the enabled boolean fields in declaration order.
func (r *Registry) EnabledBooleans() []BooleanField {
	return lo.Filter(AllBooleanFields(), func(f BooleanField, _ int) bool { return r.booleans[f].Enabled() })
}

// EnabledDoubles returns the enabled numeric fields in declaration order.
func (r *Registry) EnabledDoubles() []DoubleField {
	return lo.Filter(AllDoubleFields(), func(f DoubleField, _ int) bool { return r.doubles[f].Enabled() })
}

func (r *Registry) disabledBooleans() []BooleanField {
	return lo.Reject(AllBooleanFields(), func(f BooleanField, _ int) bool { return r.booleans[f].Enabled() })
}

func (r *Registry) disabledDoubles() []DoubleField {
	return lo.Reject(AllDoubleFields(), func(f DoubleField, _ int) bool { return r.doubles[f].Enabled() })
}

// Wire publishes every enabled field. It may only be called once. tuning may be nil, in which
// case tunable fields are published to data only and cannot be read back.
func (r *Registry) Wire(data, tuning Table) error {
	if r.wired {
		return errors.New("telemetry registry already wired")
	}
	if data == nil {
		return errors.New("telemetry registry needs a data table")
	}
	r.wired = true
	var errs error
	for _, f := range r.EnabledBooleans() {
		errs = multierr.Append(errs, errors.Wrapf(r.booleans[f].Wire(data, tuning), "wiring %s", f))
	}
	for _, f := range r.EnabledDoubles() {
		errs = multierr.Append(errs, errors.Wrapf(r.doubles[f].Wire(data, tuning), "wiring %s", f))
	}
	if tuning != nil {
		r.logger.Debugw("telemetry wired", "data", data.Path(), "tuning", tuning.Path(),
			"booleans", len(r.EnabledBooleans()), "doubles", len(r.EnabledDoubles()))
	}
	return errs
}

// Poll checks every enabled tunable field for a new tuning value and returns those that changed.
func (r *Registry) Poll() ([]BooleanField, []DoubleField) {
	var changedB []BooleanField
	var changedD []DoubleField
	for _, f := range AllBooleanFields() {
		if r.booleans[f].PollForChange() {
			changedB = append(changedB, f)
		}
	}
	for _, f := range AllDoubleFields() {
		if r.doubles[f].PollForChange() {
			changedD = append(changedD, f)
		}
	}
	return changedB, changedD
}

// SetBoolean publishes a wired field. Unwired fields are skipped and report success.
func (r *Registry) SetBoolean(f BooleanField, value bool) bool {
	e := r.booleans[f]
	ok := e.Set(value)
	if !ok {
		r.logger.Debugw("telemetry write rejected by tuning value", "field", f.String(), "value", value)
	}
	return ok
}

// SetDouble publishes a wired field. Unwired fields are skipped and report success.
func (r *Registry) SetDouble(f DoubleField, value float64) bool {
	e := r.doubles[f]
	ok := e.Set(value)
	if !ok {
		r.logger.Debugw("telemetry write rejected by tuning value", "field", f.String(), "value", value)
	}
	return ok
}

// Close unpublishes every field.
func (r *Registry) Close() {
	for _, e := range r.booleans {
		e.Close()
	}
	for _, e := range r.doubles {
		e.Close()
	}
}

// String renders the fields as a table.
func (r *Registry) String() string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Field", "Key", "Kind", "Enabled", "Tunable", "Default"})
	for _, f := range AllBooleanFields() {
		e := r.booleans[f]
		t.AppendRow(table.Row{f.String(), e.Key(), "boolean", e.Enabled(), e.Tunable(), strconv.FormatBool(e.Default())})
	}
	for _, f := range AllDoubleFields() {
		e := r.doubles[f]
		t.AppendRow(table.Row{f.String(), e.Key(), "double", e.Enabled(), e.Tunable(), formatFloat(e.Default())})
	}
	return t.Render()
}

// Summary is a one line description of how many fields are enabled.
func (r *Registry) Summary() string {
	names := lo.Map(r.EnabledDoubles(), func(f DoubleField, _ int) string { return f.String() })
	return fmt.Sprintf("%d boolean, %d double fields enabled: %s",
		len(r.EnabledBooleans()), len(names), strings.Join(names, ","))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
