package telemetry

import (
	"strings"

	"github.com/pkg/errors"
)

// Verbosity selects how many fields a mechanism publishes. Each tier includes every lower tier.
type Verbosity int

// Verbosity tiers, lowest first.
const (
	VerbosityLow Verbosity = iota
	VerbosityMid
	VerbosityHigh
)

// tiers lists the verbosity levels in the order they cascade.
var tiers = []Verbosity{VerbosityLow, VerbosityMid, VerbosityHigh}

func (v Verbosity) String() string {
	switch v {
	case VerbosityLow:
		return "LOW"
	case VerbosityMid:
		return "MID"
	case VerbosityHigh:
		return "HIGH"
	}
	return "UNKNOWN"
}

// VerbosityFromString parses LOW, MID or HIGH, ignoring case.
func VerbosityFromString(s string) (Verbosity, error) {
	for _, v := range tiers {
		if strings.EqualFold(s, v.String()) {
			return v, nil
		}
	}
	return 0, errors.Errorf("unknown telemetry verbosity %q", s)
}

// includes reports whether tier t is enabled at verbosity v.
func (v Verbosity) includes(t Verbosity) bool {
	for _, tier := range tiers {
		if tier == t {
			return true
		}
		if tier == v {
			return false
		}
	}
	return false
}
