// Package eventlog implements the append-only, hash-chained event log
// (spec.md §4.3, C3) over the ordered KV substrate in internal/kv.
package eventlog

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/topology"
)

// streamPrefix returns the key prefix identifying all records of one
// stream, per spec.md §4.3's key layout:
//
//	"S:" || variant || ":" || branch || ":L" || l_level || ":" || domain || ":M" || model || ":E:"
func streamPrefix(id topology.TruthStreamIdentity) []byte {
	var b strings.Builder
	b.WriteString("S:")
	b.WriteString(id.Variant)
	b.WriteString(":")
	b.WriteString(id.Branch)
	b.WriteString(":L")
	b.WriteString(id.LLevel)
	b.WriteString(":")
	b.WriteString(id.Domain)
	b.WriteString(":M")
	b.WriteString(id.Model)
	b.WriteString(":E:")
	return []byte(b.String())
}

// recordKey returns the full key for one event: the stream prefix plus
// the big-endian u64 sequence suffix, which is what makes lexicographic
// KV iteration equal sequence order for a given stream.
func recordKey(id topology.TruthStreamIdentity, sequence int64) []byte {
	prefix := streamPrefix(id)
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], uint64(sequence))
	return key
}

// sequenceFromKey extracts the trailing big-endian u64 sequence from a
// record key built by recordKey, used when validating that a decoded
// record's KV key matches its payload-encoded sequence.
func sequenceFromKey(key []byte) (int64, error) {
	if len(key) < 8 {
		return 0, fmt.Errorf("eventlog: key too short to contain a sequence: %q", key)
	}
	return int64(binary.BigEndian.Uint64(key[len(key)-8:])), nil
}
