// Package extension reimplements the classic Extension/Segment
// Loader: discovery, load, init, and activation of INIT/CDEF/DRVR/FKEY
// /WDEF/LDEF/MDEF code resources in priority order.
package extension

import (
	"github.com/paleotech/toolbox7/pkg/memmgr"
	"github.com/paleotech/toolbox7/pkg/resource"
	"github.com/paleotech/toolbox7/pkg/toolboxerr"
)

// Kind is the code-resource kind a loader handles.
type Kind int

const (
	KindINIT Kind = iota
	KindCDEF
	KindDRVR
	KindFKEY
	KindWDEF
	KindLDEF
	KindMDEF
)

func (k Kind) String() string {
	switch k {
	case KindINIT:
		return "INIT"
	case KindCDEF:
		return "CDEF"
	case KindDRVR:
		return "DRVR"
	case KindFKEY:
		return "FKEY"
	case KindWDEF:
		return "WDEF"
	case KindLDEF:
		return "LDEF"
	case KindMDEF:
		return "MDEF"
	default:
		return "?"
	}
}

// ResourceTypeFor returns the resource type code a kind is discovered
// under.
func (k Kind) ResourceTypeFor() resource.Type {
	return resource.NewType(k.String())
}

// State is the per-extension lifecycle state.
type State int

const (
	StateDiscovered State = iota
	StateLoaded
	StateInitialized
	StateActive
	StateDisabled
	StateSuspended
	StateError
)

func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "Discovered"
	case StateLoaded:
		return "Loaded"
	case StateInitialized:
		return "Initialized"
	case StateActive:
		return "Active"
	case StateDisabled:
		return "Disabled"
	case StateSuspended:
		return "Suspended"
	case StateError:
		return "Error"
	default:
		return "?"
	}
}

// Priority bands reserved for well-known extension classes.
const (
	PriorityCritical = 1
	PriorityDrivers  = 50
	PriorityPatches  = 100
	PriorityNormal   = 500
	PriorityUtilities = 800
	PriorityLast     = 999
)

// RefNum identifies an extension record, monotonically assigned and
// never reused within a run.
type RefNum int

// InitProc is the INIT entry signature: () -> OSErr.
type InitProc func() toolboxerr.OSErr

// CDEFProc is the CDEF entry signature.
type CDEFProc func(varCode int16, controlRef uintptr, message int16, param int32) int16

// DRVRProc is the DRVR entry signature.
type DRVRProc func(unitNumber int, controlCode int16, paramBlock []byte) toolboxerr.OSErr

// OpaqueProc is the FKEY/WDEF/LDEF/MDEF entry signature: an opaque
// code pointer handed to the owning manager on demand.
type OpaqueProc func(args ...any) any

// Record is one extension's full lifecycle record.
type Record struct {
	RefNum       RefNum
	Name         string
	Kind         Kind
	State        State
	ResourceType resource.Type
	ResourceID   resource.ID
	CodeHandle   memmgr.Handle
	CodeSize     int
	MajorVer     uint8
	MinorVer     uint8
	Priority     int
	Flags        uint32
	RefCon       int64
	LoadTime     uint64
	InitTime     uint64
	LastError    toolboxerr.OSErr
	Required     bool
	Unit         int // DRVR unit number, -1 if unassigned

	entry any // the registered entry proc, typed per Kind
}
