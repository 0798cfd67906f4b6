// Package materializer implements C4: folding an event stream into a
// topology.State while enforcing the structural invariants of spec.md
// §3.5, with cutoff and non-monotone-tick semantics from §4.4.
package materializer

import "github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/topology"

// CutoffKind selects how Materialize bounds its fold.
type CutoffKind uint8

const (
	CutoffAll CutoffKind = iota
	CutoffAtSequence
	CutoffAtTick
)

// Cutoff bounds a materialization: the whole stream, up to and including
// a sequence, or up to and including a tick (with non-monotone-tick
// skip-but-continue semantics — see Materialize).
type Cutoff struct {
	Kind     CutoffKind
	Sequence int64
	Tick     topology.CanonicalTick
}

// All materializes the entire stream.
func All() Cutoff { return Cutoff{Kind: CutoffAll} }

// AtSequence stops folding once an event's sequence exceeds s.
func AtSequence(s int64) Cutoff { return Cutoff{Kind: CutoffAtSequence, Sequence: s} }

// AtTick folds every event whose tick is <= t, regardless of sequence
// order; events with tick > t are skipped, not a stopping point, since
// ticks are not assumed monotone across sequence (§3.4, §4.4 FR4).
func AtTick(t topology.CanonicalTick) Cutoff { return Cutoff{Kind: CutoffAtTick, Tick: t} }
