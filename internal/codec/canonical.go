// Package codec implements the canonical byte encoding and hash-chain
// construction of spec.md §4.2 (C2): a deterministic, locale-free,
// platform-independent encoding of each event, and the
// previous-hash-mixed-with-payload hash function that chains records
// together.
//
// Grounded on a production repo's internal/idgen/hash.go (sha256 over a stable
// byte string) and the pack's ledger/hash_chain.go example (canonical
// sorted encoding + prev||payload hashStep), generalized here to a binary
// encoding because spec.md §4.2 explicitly rules out text/JSON formatting
// for floats ("IEEE-754 bit pattern; no locale, no text formatting").
package codec

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/topology"
)

// HashSize is the width of every hash/previous-hash field; sha256 gives
// the >=128-bit collision resistance spec.md §4.2 requires.
const HashSize = sha256.Size

// encoder is a small append-only byte builder with fixed-width helpers,
// used instead of encoding/gob or JSON so every field's width is explicit
// and stable across Go versions and platforms.
type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) u16(v uint16) { _ = binary.Write(&e.buf, binary.BigEndian, v) }
func (e *encoder) u64(v uint64) { _ = binary.Write(&e.buf, binary.BigEndian, v) }
func (e *encoder) i64(v int64)  { _ = binary.Write(&e.buf, binary.BigEndian, v) }
func (e *encoder) f64(v float64) { _ = binary.Write(&e.buf, binary.BigEndian, math.Float64bits(v)) }
func (e *encoder) bytesField(b []byte) {
	e.u64(uint64(len(b)))
	e.buf.Write(b)
}
func (e *encoder) str(s string) { e.bytesField([]byte(s)) }
func (e *encoder) id16(b []byte) {
	if len(b) != 16 {
		panic("codec: id must be 16 bytes")
	}
	e.buf.Write(b)
}
func (e *encoder) point(p topology.SurfacePoint) {
	e.f64(p.X)
	e.f64(p.Y)
	e.f64(p.Z)
}
func (e *encoder) polyline(p topology.Polyline3) {
	e.u64(uint64(len(p)))
	for _, pt := range p {
		e.point(pt)
	}
}

// CanonicalPayloadBytes returns the deterministic encoding of everything
// about an event except its hash and previous-hash fields: header plus
// payload, per spec.md §4.2's "canonical_encoding(event(n) without hash
// fields)".
func CanonicalPayloadBytes(ev topology.Event) ([]byte, error) {
	e := &encoder{}
	e.str(ev.Stream.Variant)
	e.str(ev.Stream.Branch)
	e.str(ev.Stream.LLevel)
	e.str(ev.Stream.Domain)
	e.str(ev.Stream.Model)
	e.u16(uint16(ev.Payload.Kind()))
	e.i64(int64(ev.Sequence))
	e.i64(int64(ev.Tick))
	e.str(ev.EventID)

	if err := encodePayload(e, ev.Payload); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

func encodePayload(e *encoder, p topology.Payload) error {
	switch v := p.(type) {
	case topology.PlateCreated:
		e.id16(v.PlateID.Bytes())
	case topology.PlateRetired:
		e.id16(v.PlateID.Bytes())
		e.str(v.Reason)
	case topology.BoundaryCreated:
		e.id16(v.BoundaryID.Bytes())
		e.id16(v.Left.Bytes())
		e.id16(v.Right.Bytes())
		e.u16(uint16(v.Kind_))
		e.polyline(v.Geometry)
	case topology.BoundaryTypeChanged:
		e.id16(v.BoundaryID.Bytes())
		e.u16(uint16(v.OldKind))
		e.u16(uint16(v.NewKind))
	case topology.BoundaryGeometryUpdated:
		e.id16(v.BoundaryID.Bytes())
		e.polyline(v.NewGeometry)
	case topology.BoundaryRetired:
		e.id16(v.BoundaryID.Bytes())
		e.str(v.Reason)
	case topology.JunctionCreated:
		e.id16(v.JunctionID.Bytes())
		encodeBoundaryIDSetSorted(e, v.BoundaryIDs)
		e.point(v.Location)
	case topology.JunctionUpdated:
		e.id16(v.JunctionID.Bytes())
		encodeBoundaryIDSetSorted(e, v.NewBoundaryIDs)
		if v.NewLocation != nil {
			e.u16(1)
			e.point(*v.NewLocation)
		} else {
			e.u16(0)
		}
	case topology.JunctionRetired:
		e.id16(v.JunctionID.Bytes())
		e.str(v.Reason)
	default:
		return fmt.Errorf("codec: unknown payload type %T", p)
	}
	return nil
}

// encodeBoundaryIDSetSorted encodes boundary ids sorted by binary id, per
// spec.md §4.2: "Fields with undefined order ... are serialized sorted by
// their binary id."
func encodeBoundaryIDSetSorted(e *encoder, in []ids.BoundaryId) {
	sorted := ids.SortBoundaryIds(in)
	e.u64(uint64(len(sorted)))
	for _, id := range sorted {
		e.id16(id.Bytes())
	}
}

// HashStep computes hash(n) = H(previousHash || canonicalPayload), per
// spec.md §4.2.
func HashStep(previousHash []byte, canonicalPayload []byte) []byte {
	h := sha256.New()
	h.Write(previousHash)
	h.Write(canonicalPayload)
	return h.Sum(nil)
}

// HashEvent computes the hash for ev given the hash of the preceding
// record in its stream (empty for sequence 0).
func HashEvent(ev topology.Event, previousHash []byte) ([]byte, error) {
	payload, err := CanonicalPayloadBytes(ev)
	if err != nil {
		return nil, err
	}
	return HashStep(previousHash, payload), nil
}
