package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/topology"
)

// Magic and version identify the record layout of spec.md §6's
// "Event-store wire contract" table.
var Magic = [4]byte{'P', 'T', 'E', 'V'}

const RecordVersion uint16 = 1

// EncodeRecord serializes ev (including its already-computed
// PreviousHash/Hash) into the fixed-layout-header-plus-payload record
// described in §6. The event log calls this only after it has itself
// computed PreviousHash/Hash — callers never get to pick those bytes.
func EncodeRecord(ev topology.Event) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(Magic[:])
	_ = binary.Write(&buf, binary.BigEndian, RecordVersion)
	_ = binary.Write(&buf, binary.BigEndian, uint16(ev.Payload.Kind()))
	_ = binary.Write(&buf, binary.BigEndian, uint64(ev.Sequence))
	_ = binary.Write(&buf, binary.BigEndian, int64(ev.Tick))

	if len(ev.PreviousHash) > 255 || len(ev.Hash) > 255 {
		return nil, fmt.Errorf("codec: hash field too wide (%d/%d bytes)", len(ev.PreviousHash), len(ev.Hash))
	}
	buf.WriteByte(byte(len(ev.PreviousHash)))
	buf.Write(ev.PreviousHash)
	buf.WriteByte(byte(len(ev.Hash)))
	buf.Write(ev.Hash)

	payload, err := encodeSelfDescribingPayload(ev)
	if err != nil {
		return nil, err
	}
	_ = binary.Write(&buf, binary.BigEndian, uint64(len(payload)))
	buf.Write(payload)

	return buf.Bytes(), nil
}

// encodeSelfDescribingPayload encodes the event-id, stream identity, and
// kind-specific payload so a record can be fully reconstructed from KV
// bytes alone (the KV key's stream prefix is not strictly needed on read,
// though §4.3 uses it for the scan).
func encodeSelfDescribingPayload(ev topology.Event) ([]byte, error) {
	e := &encoder{}
	e.str(ev.EventID)
	e.str(ev.Stream.Variant)
	e.str(ev.Stream.Branch)
	e.str(ev.Stream.LLevel)
	e.str(ev.Stream.Domain)
	e.str(ev.Stream.Model)
	if err := encodePayload(e, ev.Payload); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

// decoder mirrors encoder, reading fixed-width fields back out in the
// same order they were written.
type decoder struct {
	r   *bytes.Reader
	err error
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *decoder) u16() uint16 {
	var v uint16
	if d.err != nil {
		return 0
	}
	if err := binary.Read(d.r, binary.BigEndian, &v); err != nil {
		d.fail(err)
	}
	return v
}

func (d *decoder) u64() uint64 {
	var v uint64
	if d.err != nil {
		return 0
	}
	if err := binary.Read(d.r, binary.BigEndian, &v); err != nil {
		d.fail(err)
	}
	return v
}

func (d *decoder) i64() int64 {
	var v int64
	if d.err != nil {
		return 0
	}
	if err := binary.Read(d.r, binary.BigEndian, &v); err != nil {
		d.fail(err)
	}
	return v
}

func (d *decoder) f64() float64 {
	var bits uint64
	if d.err != nil {
		return 0
	}
	if err := binary.Read(d.r, binary.BigEndian, &bits); err != nil {
		d.fail(err)
	}
	return math.Float64frombits(bits)
}

func (d *decoder) bytesField() []byte {
	n := d.u64()
	if d.err != nil {
		return nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		d.fail(err)
		return nil
	}
	return buf
}

func (d *decoder) str() string { return string(d.bytesField()) }

func (d *decoder) id16() [16]byte {
	var out [16]byte
	if d.err != nil {
		return out
	}
	if _, err := io.ReadFull(d.r, out[:]); err != nil {
		d.fail(err)
	}
	return out
}

func (d *decoder) point() topology.SurfacePoint {
	return topology.SurfacePoint{X: d.f64(), Y: d.f64(), Z: d.f64()}
}

func (d *decoder) polyline() topology.Polyline3 {
	n := d.u64()
	out := make(topology.Polyline3, 0, n)
	for i := uint64(0); i < n && d.err == nil; i++ {
		out = append(out, d.point())
	}
	return out
}

func (d *decoder) boundaryIDSet() []ids.BoundaryId {
	n := d.u64()
	out := make([]ids.BoundaryId, 0, n)
	for i := uint64(0); i < n && d.err == nil; i++ {
		out = append(out, ids.BoundaryId(d.id16()))
	}
	return out
}

// DecodeRecord parses the wire format written by EncodeRecord back into
// an Event. It does not verify the hash chain; that is the event log's
// job (spec.md §4.3).
func DecodeRecord(raw []byte) (topology.Event, error) {
	var ev topology.Event
	if len(raw) < 4 || [4]byte(raw[:4]) != Magic {
		return ev, fmt.Errorf("codec: bad magic")
	}
	r := bytes.NewReader(raw[4:])
	d := &decoder{r: r}

	version := d.u16()
	if d.err == nil && version != RecordVersion {
		return ev, fmt.Errorf("codec: unsupported record version %d", version)
	}
	kind := topology.EventKind(d.u16())
	seq := d.u64()
	tick := d.i64()

	prevLen := readByte(r, &d.err)
	prevHash := make([]byte, prevLen)
	readFull(r, prevHash, &d.err)
	hashLen := readByte(r, &d.err)
	hash := make([]byte, hashLen)
	readFull(r, hash, &d.err)

	payloadLen := d.u64()
	if d.err != nil {
		return ev, fmt.Errorf("codec: decode record header: %w", d.err)
	}
	payload := make([]byte, payloadLen)
	readFull(r, payload, &d.err)
	if d.err != nil {
		return ev, fmt.Errorf("codec: decode record payload: %w", d.err)
	}

	pd := &decoder{r: bytes.NewReader(payload)}
	eventID := pd.str()
	stream := topology.TruthStreamIdentity{
		Variant: pd.str(),
		Branch:  pd.str(),
		LLevel:  pd.str(),
		Domain:  pd.str(),
		Model:   pd.str(),
	}
	body, err := decodePayload(pd, kind)
	if err != nil {
		return ev, err
	}
	if pd.err != nil {
		return ev, fmt.Errorf("codec: decode payload body: %w", pd.err)
	}

	ev = topology.Event{
		EventID:      eventID,
		Sequence:     int64(seq),
		Tick:         topology.CanonicalTick(tick),
		Stream:       stream,
		PreviousHash: prevHash,
		Hash:         hash,
		Payload:      body,
	}
	return ev, nil
}

func readByte(r *bytes.Reader, errp *error) int {
	if *errp != nil {
		return 0
	}
	b, err := r.ReadByte()
	if err != nil {
		*errp = err
		return 0
	}
	return int(b)
}

func readFull(r *bytes.Reader, buf []byte, errp *error) {
	if *errp != nil || len(buf) == 0 {
		return
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		*errp = err
	}
}

func decodePayload(d *decoder, kind topology.EventKind) (topology.Payload, error) {
	switch kind {
	case topology.EventKindPlateCreated:
		return topology.PlateCreated{PlateID: ids.PlateId(d.id16())}, nil
	case topology.EventKindPlateRetired:
		return topology.PlateRetired{PlateID: ids.PlateId(d.id16()), Reason: d.str()}, nil
	case topology.EventKindBoundaryCreated:
		id := ids.BoundaryId(d.id16())
		left := ids.PlateId(d.id16())
		right := ids.PlateId(d.id16())
		k := topology.BoundaryKind(d.u16())
		geom := d.polyline()
		return topology.BoundaryCreated{BoundaryID: id, Left: left, Right: right, Kind_: k, Geometry: geom}, nil
	case topology.EventKindBoundaryTypeChanged:
		id := ids.BoundaryId(d.id16())
		oldK := topology.BoundaryKind(d.u16())
		newK := topology.BoundaryKind(d.u16())
		return topology.BoundaryTypeChanged{BoundaryID: id, OldKind: oldK, NewKind: newK}, nil
	case topology.EventKindBoundaryGeometryUpdated:
		id := ids.BoundaryId(d.id16())
		geom := d.polyline()
		return topology.BoundaryGeometryUpdated{BoundaryID: id, NewGeometry: geom}, nil
	case topology.EventKindBoundaryRetired:
		id := ids.BoundaryId(d.id16())
		return topology.BoundaryRetired{BoundaryID: id, Reason: d.str()}, nil
	case topology.EventKindJunctionCreated:
		id := ids.JunctionId(d.id16())
		bids := d.boundaryIDSet()
		loc := d.point()
		return topology.JunctionCreated{JunctionID: id, BoundaryIDs: bids, Location: loc}, nil
	case topology.EventKindJunctionUpdated:
		id := ids.JunctionId(d.id16())
		bids := d.boundaryIDSet()
		hasLoc := d.u16()
		var loc *topology.SurfacePoint
		if hasLoc == 1 {
			p := d.point()
			loc = &p
		}
		return topology.JunctionUpdated{JunctionID: id, NewBoundaryIDs: bids, NewLocation: loc}, nil
	case topology.EventKindJunctionRetired:
		id := ids.JunctionId(d.id16())
		return topology.JunctionRetired{JunctionID: id, Reason: d.str()}, nil
	default:
		return nil, fmt.Errorf("codec: unknown event kind %d", kind)
	}
}
