package extension

import (
	"fmt"
	"sync"

	"github.com/paleotech/toolbox7/pkg/resource"
	"golang.org/x/crypto/blake2b"
)

const maxDRVRUnits = 32

// Registry is the ordered set of extension records, indexed by
// RefNum, by (ResourceType, ResourceID), and by Name: one
// RWMutex-guarded struct exposing Register/Get/List method families.
type Registry struct {
	mu      sync.RWMutex
	records []*Record
	byRef   map[RefNum]*Record
	byType  map[resource.Type]map[resource.ID]*Record
	byName  map[string]*Record
	units   [maxDRVRUnits]*Record
	nextRef RefNum

	activeCount     int
	autoLoadEnabled bool
	debugMode       bool

	// skipNames holds names to exclude from future scans, modeling the
	// classic resource-level disable list independent of per-record
	// Disabled state.
	skipNames map[string]bool

	// reserveUnitsUntilReboot disables immediate DRVR unit reuse when
	// set, the alternative to immediate-reuse-after-unload.
	reserveUnitsUntilReboot bool
	reservedUnits           map[int]bool
}

// SetReserveUnitsUntilReboot toggles whether freeUnit immediately
// returns a DRVR unit number to the free pool (default) or reserves
// it for the remainder of the process lifetime.
func (r *Registry) SetReserveUnitsUntilReboot(b bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reserveUnitsUntilReboot = b
	if b && r.reservedUnits == nil {
		r.reservedUnits = make(map[int]bool)
	}
}

// NewRegistry creates an empty registry with auto-load enabled.
func NewRegistry() *Registry {
	return &Registry{
		byRef:           make(map[RefNum]*Record),
		byType:          make(map[resource.Type]map[resource.ID]*Record),
		byName:          make(map[string]*Record),
		autoLoadEnabled: true,
		skipNames:       make(map[string]bool),
	}
}

// SkipNames adds names to be excluded from future Scan calls.
func (r *Registry) SkipNames(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		r.skipNames[n] = true
	}
}

func (r *Registry) isSkipped(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.skipNames[name]
}

// register assigns a new RefNum to rec, indexes it, and appends it to
// records. Callers must already hold r.mu.
func (r *Registry) register(rec *Record) {
	r.nextRef++
	rec.RefNum = r.nextRef
	r.records = append(r.records, rec)
	r.byRef[rec.RefNum] = rec

	if r.byType[rec.ResourceType] == nil {
		r.byType[rec.ResourceType] = make(map[resource.ID]*Record)
	}
	r.byType[rec.ResourceType][rec.ResourceID] = rec
	if rec.Name != "" {
		r.byName[rec.Name] = rec
	}
}

// GetByRefNum returns the record for refNum, if any.
func (r *Registry) GetByRefNum(refNum RefNum) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byRef[refNum]
	return rec, ok
}

// GetByName returns the record registered under name, if any.
func (r *Registry) GetByName(name string) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byName[name]
	return rec, ok
}

// GetByType returns the record for (t, id), if any.
func (r *Registry) GetByType(t resource.Type, id resource.ID) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byType[t]
	if !ok {
		return nil, false
	}
	rec, ok := m[id]
	return rec, ok
}

// List returns a snapshot of every record, in registration order.
func (r *Registry) List() []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Record, len(r.records))
	copy(out, r.records)
	return out
}

// ActiveCount returns the number of records currently Active.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeCount
}

// SetAutoLoadEnabled sets the registry's auto-load flag. Nothing in
// this package reads it: ScanForExtensions only discovers records and
// never loads them, whatever its value.
func (r *Registry) SetAutoLoadEnabled(b bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.autoLoadEnabled = b
}

// SetDebugMode sets the debug-mode flag reported by DebugMode. The
// loader does not read it: a panic from an entry point is always
// recovered.
func (r *Registry) SetDebugMode(b bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.debugMode = b
}

// DebugMode reports the current debug-mode flag.
func (r *Registry) DebugMode() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.debugMode
}

// SetEnabled(false) moves rec to Disabled from any state;
// SetEnabled(true) moves a Disabled record to Loaded, from where
// LoadByName or LoadByID initializes it again. LoadAllExtensions picks
// up only Discovered records, so it does not re-initialize it.
func (r *Registry) SetEnabled(refNum RefNum, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byRef[refNum]
	if !ok {
		return false
	}
	if enabled {
		if rec.State == StateDisabled {
			rec.State = StateLoaded
		}
	} else {
		if rec.State == StateActive {
			r.activeCount--
		}
		rec.State = StateDisabled
	}
	return true
}

// allocUnit assigns the lowest free DRVR unit slot to rec, or returns
// false if all 32 are taken (ExtMaxExtensions).
func (r *Registry) allocUnit(rec *Record) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < maxDRVRUnits; i++ {
		if r.units[i] == nil && !r.reservedUnits[i] {
			r.units[i] = rec
			rec.Unit = i
			return true
		}
	}
	return false
}

// freeUnit reclaims rec's DRVR unit slot, if any. Under the default
// policy the slot is immediately available for reuse; with
// reserveUnitsUntilReboot set it is marked reserved instead.
func (r *Registry) freeUnit(rec *Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.Unit >= 0 && rec.Unit < maxDRVRUnits && r.units[rec.Unit] == rec {
		r.units[rec.Unit] = nil
		if r.reserveUnitsUntilReboot {
			if r.reservedUnits == nil {
				r.reservedUnits = make(map[int]bool)
			}
			r.reservedUnits[rec.Unit] = true
		}
		rec.Unit = -1
	}
}

// activate transitions rec to Active and increments the active count.
func (r *Registry) activate(rec *Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.State = StateActive
	r.activeCount++
}

// deactivate transitions rec out of Active, decrementing the count if
// it was counted.
func (r *Registry) deactivate(rec *Record, newState State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.State == StateActive {
		r.activeCount--
	}
	rec.State = newState
}

// Signature computes a blake2b digest over every record (RefNum, name,
// kind, state, priority), an integrity sentinel computed afresh on
// each call.
func (r *Registry) Signature() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, err := blake2b.New256(nil)
	if err != nil {
		return nil, err
	}
	for _, rec := range r.records {
		fmt.Fprintf(h, "%d|%s|%s|%s|%d\n", rec.RefNum, rec.Name, rec.Kind, rec.State, rec.Priority)
	}
	return h.Sum(nil), nil
}

// Dump returns a snapshot of every record alongside the current
// integrity signature. It does not compare the signature with any
// earlier one.
func (r *Registry) Dump() ([]*Record, []byte, error) {
	records := r.List()
	sig, err := r.Signature()
	return records, sig, err
}
