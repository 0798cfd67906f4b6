package polygon

import "fmt"

// PolicyClass distinguishes the three tolerance policies for cache-key
// and algorithm-hash purposes (§4.8 "algorithm_hash is a content hash
// over {polygonizer_version, tolerance_policy_class, ...}").
type PolicyClass uint8

const (
	PolicyStrict PolicyClass = iota
	PolicyLenient
	PolicyDefault
)

func (c PolicyClass) String() string {
	switch c {
	case PolicyStrict:
		return "Strict"
	case PolicyLenient:
		return "Lenient"
	case PolicyDefault:
		return "Default"
	default:
		return "Unknown"
	}
}

// TolerancePolicy is the shared interface §9 specifies for all three
// policies: polygonize(state, options) -> polygon_set and
// validate(state, options) -> diagnostics are modeled by Polygonize and
// the diagnostics it returns alongside a result or error.
type TolerancePolicy struct {
	Class   PolicyClass
	Epsilon float64 // radians; meaningful for Lenient only
}

// Strict polygonizes with epsilon 0: it rejects a boundary endpoint that
// does not sit exactly on a junction listing that boundary, and a junction
// with fewer than two incident boundary ends. Overlapping regions are not
// detected, and a boundary that no junction lists is not checked.
func Strict() TolerancePolicy { return TolerancePolicy{Class: PolicyStrict} }

// Lenient snaps/resolves within epsilon (great-circle radians). epsilon
// must be >= 0; epsilon == 0 behaves like Strict (§4.7).
func Lenient(epsilon float64) (TolerancePolicy, error) {
	if epsilon < 0 {
		return TolerancePolicy{}, fmt.Errorf("polygon: lenient epsilon must be >= 0, got %v", epsilon)
	}
	return TolerancePolicy{Class: PolicyLenient, Epsilon: epsilon}, nil
}

// Default retries with a growing epsilon: it starts at Options.EpsilonMin
// (1e-12 when unset), multiplies by 10 after each failed attempt, and
// stops at Options.EpsilonMax (1 radian when unset). The starting epsilon
// does not depend on the topology's geometry (see Polygonize).
func Default() TolerancePolicy { return TolerancePolicy{Class: PolicyDefault} }

// effectiveEpsilon returns the epsilon Polygonize should apply for a
// given attempt: 0 for Strict, the fixed value for Lenient, and the
// caller-supplied candidate for Default (escalation loop owns that).
func (p TolerancePolicy) effectiveEpsilon(candidate float64) float64 {
	switch p.Class {
	case PolicyStrict:
		return 0
	case PolicyLenient:
		return p.Epsilon
	default:
		return candidate
	}
}
