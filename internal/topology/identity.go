package topology

import "fmt"

// CanonicalTick is the 64-bit simulation time carried by every event. It is
// not assumed monotone across a stream's sequence order (§3.1, §3.4).
type CanonicalTick int64

// TruthStreamIdentity uniquely identifies one append-only log (§3.1).
type TruthStreamIdentity struct {
	Variant string
	Branch  string
	LLevel  string
	Domain  string
	Model   string
}

// String renders the identity in the same shape used to build the KV key
// prefix in §4.3, minus the trailing ":E:" and sequence suffix.
func (id TruthStreamIdentity) String() string {
	return fmt.Sprintf("S:%s:%s:L%s:%s:M%s", id.Variant, id.Branch, id.LLevel, id.Domain, id.Model)
}

func (id TruthStreamIdentity) Equal(o TruthStreamIdentity) bool { return id == o }
