package topology

import (
	"errors"
	"fmt"
)

// Sentinel errors for each kind in the §7 taxonomy. Callers use errors.Is
// against these, never string matching, mirroring a production repo's
// internal/storage/sqlite/errors.go sentinel-plus-wrap pattern.
var (
	ErrInput                  = errors.New("input error")
	ErrNonMonotonicSequence   = errors.New("non-monotonic sequence")
	ErrStreamIdentityMismatch = errors.New("stream identity mismatch")
	ErrDuplicateSequence      = errors.New("duplicate sequence")
	ErrChainIntegrity         = errors.New("chain integrity error")
	ErrInvariantViolation     = errors.New("invariant violation")
	ErrPolygonization         = errors.New("polygonization error")
	ErrCancelled              = errors.New("cancelled")
	ErrInternal               = errors.New("internal error")
)

// StreamError wraps one of the three append-time rejections (§7 StreamError).
type StreamError struct {
	Sentinel error
	Detail   string
}

func (e *StreamError) Error() string { return fmt.Sprintf("%s: %s", e.Sentinel, e.Detail) }
func (e *StreamError) Unwrap() error { return e.Sentinel }

func NewNonMonotonicSequence(detail string) error {
	return &StreamError{Sentinel: ErrNonMonotonicSequence, Detail: detail}
}

func NewStreamIdentityMismatch(detail string) error {
	return &StreamError{Sentinel: ErrStreamIdentityMismatch, Detail: detail}
}

func NewDuplicateSequence(detail string) error {
	return &StreamError{Sentinel: ErrDuplicateSequence, Detail: detail}
}

// ChainIntegrityError carries the sequence at which hash verification
// failed (§7, §8 S1).
type ChainIntegrityError struct {
	Sequence int64
}

func (e *ChainIntegrityError) Error() string {
	return fmt.Sprintf("chain integrity error at sequence %d", e.Sequence)
}
func (e *ChainIntegrityError) Unwrap() error { return ErrChainIntegrity }

// InvariantViolation carries the structural invariant that failed during
// fold (§3.5, §7).
type InvariantViolation struct {
	InvariantName string
	Sequence      int64
	EntityIDs     []string
	Detail        string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation %s at sequence %d (%v): %s", e.InvariantName, e.Sequence, e.EntityIDs, e.Detail)
}
func (e *InvariantViolation) Unwrap() error { return ErrInvariantViolation }

// PolygonizationException carries diagnostics about an open boundary,
// non-manifold junction, or unresolved overlap (§7, §4.7).
type PolygonizationException struct {
	Diagnostics []Diagnostic
}

func (e *PolygonizationException) Error() string {
	return fmt.Sprintf("polygonization failed with %d diagnostic(s)", len(e.Diagnostics))
}
func (e *PolygonizationException) Unwrap() error { return ErrPolygonization }

// InputError reports a malformed request (§7).
type InputError struct {
	Detail string
}

func (e *InputError) Error() string { return fmt.Sprintf("input error: %s", e.Detail) }
func (e *InputError) Unwrap() error { return ErrInput }
