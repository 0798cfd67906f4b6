package topology

import "github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/ids"

// EventKind tags the closed sum type of event payloads (§3.4, §9
// "Polymorphism": events are a closed sum type, not an open class
// hierarchy).
type EventKind uint16

const (
	EventKindUnspecified EventKind = iota
	EventKindPlateCreated
	EventKindPlateRetired
	EventKindBoundaryCreated
	EventKindBoundaryTypeChanged
	EventKindBoundaryGeometryUpdated
	EventKindBoundaryRetired
	EventKindJunctionCreated
	EventKindJunctionUpdated
	EventKindJunctionRetired
)

func (k EventKind) String() string {
	switch k {
	case EventKindPlateCreated:
		return "PlateCreated"
	case EventKindPlateRetired:
		return "PlateRetired"
	case EventKindBoundaryCreated:
		return "BoundaryCreated"
	case EventKindBoundaryTypeChanged:
		return "BoundaryTypeChanged"
	case EventKindBoundaryGeometryUpdated:
		return "BoundaryGeometryUpdated"
	case EventKindBoundaryRetired:
		return "BoundaryRetired"
	case EventKindJunctionCreated:
		return "JunctionCreated"
	case EventKindJunctionUpdated:
		return "JunctionUpdated"
	case EventKindJunctionRetired:
		return "JunctionRetired"
	default:
		return "Unspecified"
	}
}

// Payload is implemented by each event's typed body. It is a closed set;
// the switch in materializer.apply is exhaustive over it.
type Payload interface {
	Kind() EventKind
	isPayload()
}

type PlateCreated struct{ PlateID ids.PlateId }

func (PlateCreated) Kind() EventKind { return EventKindPlateCreated }
func (PlateCreated) isPayload()      {}

type PlateRetired struct {
	PlateID ids.PlateId
	Reason  string
}

func (PlateRetired) Kind() EventKind { return EventKindPlateRetired }
func (PlateRetired) isPayload()      {}

type BoundaryCreated struct {
	BoundaryID ids.BoundaryId
	Left       ids.PlateId
	Right      ids.PlateId
	Kind_      BoundaryKind
	Geometry   Polyline3
}

func (BoundaryCreated) Kind() EventKind { return EventKindBoundaryCreated }
func (BoundaryCreated) isPayload()      {}

type BoundaryTypeChanged struct {
	BoundaryID ids.BoundaryId
	OldKind    BoundaryKind
	NewKind    BoundaryKind
}

func (BoundaryTypeChanged) Kind() EventKind { return EventKindBoundaryTypeChanged }
func (BoundaryTypeChanged) isPayload()      {}

type BoundaryGeometryUpdated struct {
	BoundaryID  ids.BoundaryId
	NewGeometry Polyline3
}

func (BoundaryGeometryUpdated) Kind() EventKind { return EventKindBoundaryGeometryUpdated }
func (BoundaryGeometryUpdated) isPayload()      {}

type BoundaryRetired struct {
	BoundaryID ids.BoundaryId
	Reason     string
}

func (BoundaryRetired) Kind() EventKind { return EventKindBoundaryRetired }
func (BoundaryRetired) isPayload()      {}

type JunctionCreated struct {
	JunctionID  ids.JunctionId
	BoundaryIDs []ids.BoundaryId
	Location    SurfacePoint
}

func (JunctionCreated) Kind() EventKind { return EventKindJunctionCreated }
func (JunctionCreated) isPayload()      {}

type JunctionUpdated struct {
	JunctionID     ids.JunctionId
	NewBoundaryIDs []ids.BoundaryId
	NewLocation    *SurfacePoint // nil means "unchanged"
}

func (JunctionUpdated) Kind() EventKind { return EventKindJunctionUpdated }
func (JunctionUpdated) isPayload()      {}

type JunctionRetired struct {
	JunctionID ids.JunctionId
	Reason     string
}

func (JunctionRetired) Kind() EventKind { return EventKindJunctionRetired }
func (JunctionRetired) isPayload()      {}

// Event is one hash-chained record in a stream (§3.4). Sequence is set by
// the caller and checked by the event log on append; PreviousHash and Hash
// are computed by the log on append and verified on read, never trusted
// from a caller-supplied value (§4.3).
type Event struct {
	EventID      string
	Sequence     int64
	Tick         CanonicalTick
	Stream       TruthStreamIdentity
	PreviousHash []byte
	Hash         []byte
	Payload      Payload
}
