// Package ids defines the opaque 128-bit identifier types shared by the
// topology data model: PlateId, BoundaryId, JunctionId.
//
// Each is backed by uuid.UUID (itself a [16]byte), which gives us
// the 128-bit width, raw-bit equality, and a stable total order for
// free — exactly the properties spec.md §3.1 asks for. Ordering is on
// the raw bytes, not on any textual rendering, so it is stable across
// runs regardless of how a given ID was minted (random v4 vs.
// deterministic test fixtures).
package ids

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// PlateId identifies one tectonic plate.
type PlateId uuid.UUID

// BoundaryId identifies one boundary separating exactly two plates.
type BoundaryId uuid.UUID

// JunctionId identifies one junction where boundaries meet.
type JunctionId uuid.UUID

// NewPlateId mints a fresh random PlateId.
func NewPlateId() PlateId { return PlateId(uuid.New()) }

// NewBoundaryId mints a fresh random BoundaryId.
func NewBoundaryId() BoundaryId { return BoundaryId(uuid.New()) }

// NewJunctionId mints a fresh random JunctionId.
func NewJunctionId() JunctionId { return JunctionId(uuid.New()) }

// Compare returns -1, 0, or 1 comparing raw bytes, never the string form.
func (a PlateId) Compare(b PlateId) int { return bytes.Compare(a[:], b[:]) }
func (a BoundaryId) Compare(b BoundaryId) int { return bytes.Compare(a[:], b[:]) }
func (a JunctionId) Compare(b JunctionId) int { return bytes.Compare(a[:], b[:]) }

func (a PlateId) Less(b PlateId) bool       { return a.Compare(b) < 0 }
func (a BoundaryId) Less(b BoundaryId) bool { return a.Compare(b) < 0 }
func (a JunctionId) Less(b JunctionId) bool { return a.Compare(b) < 0 }

func (a PlateId) String() string    { return uuid.UUID(a).String() }
func (a BoundaryId) String() string { return uuid.UUID(a).String() }
func (a JunctionId) String() string { return uuid.UUID(a).String() }

// Bytes returns the raw 16 bytes, used by the codec for canonical encoding.
func (a PlateId) Bytes() []byte    { b := uuid.UUID(a); return b[:] }
func (a BoundaryId) Bytes() []byte { b := uuid.UUID(a); return b[:] }
func (a JunctionId) Bytes() []byte { b := uuid.UUID(a); return b[:] }

// ParsePlateId parses a canonical UUID string into a PlateId.
func ParsePlateId(s string) (PlateId, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return PlateId{}, fmt.Errorf("ids: parse plate id %q: %w", s, err)
	}
	return PlateId(u), nil
}

// ParseBoundaryId parses a canonical UUID string into a BoundaryId.
func ParseBoundaryId(s string) (BoundaryId, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return BoundaryId{}, fmt.Errorf("ids: parse boundary id %q: %w", s, err)
	}
	return BoundaryId(u), nil
}

// ParseJunctionId parses a canonical UUID string into a JunctionId.
func ParseJunctionId(s string) (JunctionId, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return JunctionId{}, fmt.Errorf("ids: parse junction id %q: %w", s, err)
	}
	return JunctionId(u), nil
}

func (a PlateId) MarshalJSON() ([]byte, error)    { return json.Marshal(a.String()) }
func (a BoundaryId) MarshalJSON() ([]byte, error) { return json.Marshal(a.String()) }
func (a JunctionId) MarshalJSON() ([]byte, error) { return json.Marshal(a.String()) }

func (a *PlateId) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	id, err := ParsePlateId(s)
	if err != nil {
		return err
	}
	*a = id
	return nil
}

func (a *BoundaryId) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	id, err := ParseBoundaryId(s)
	if err != nil {
		return err
	}
	*a = id
	return nil
}

func (a *JunctionId) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	id, err := ParseJunctionId(s)
	if err != nil {
		return err
	}
	*a = id
	return nil
}

// SortPlateIds returns a freshly sorted copy in ascending raw-bit order.
func SortPlateIds(in []PlateId) []PlateId {
	out := append([]PlateId(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// SortBoundaryIds returns a freshly sorted copy in ascending raw-bit order.
func SortBoundaryIds(in []BoundaryId) []BoundaryId {
	out := append([]BoundaryId(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// SortJunctionIds returns a freshly sorted copy in ascending raw-bit order.
func SortJunctionIds(in []JunctionId) []JunctionId {
	out := append([]JunctionId(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
