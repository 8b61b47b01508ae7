package extension

import (
	"sort"
	"sync"

	"github.com/paleotech/toolbox7/pkg/memmgr"
	"github.com/paleotech/toolbox7/pkg/platform"
	"github.com/paleotech/toolbox7/pkg/resource"
	"github.com/paleotech/toolbox7/pkg/toolboxerr"
)

// EntryResolver supplies the Go function standing in for a code
// resource's machine-code entry point, keyed by the resource that
// would have held it. The host registers these ahead of a scan,
// simulating "derive entry point (offset 0 by default)" in a
// memory-safe, single-address-space Go runtime.
type EntryResolver interface {
	ResolveEntry(kind Kind, t resource.Type, id resource.ID) (entry any, priority int, required bool, majorVer, minorVer uint8, ok bool)
}

// Loader runs the common discovery/load/init/activate cycle shared by
// all five code-resource kinds.
type Loader struct {
	mu       sync.Mutex
	reg      *Registry
	res      *resource.Manager
	zone     *memmgr.Zone
	ticks    platform.TickSource
	resolver EntryResolver
	seq      int

	// onInitDuration, if set, observes the number of ticks spent in
	// each extension's Initialize step, keyed by kind. core.New wires
	// it to a Debug-level log line.
	onInitDuration func(kind Kind, ticks uint64)

	// strictMode additionally unloads already-activated records of the
	// same kind, in LIFO order, when a Required record fails to load
	// or initialize. Off by default.
	strictMode bool
}

// NewLoader constructs a Loader over reg, reading code resources
// through res and allocating code handles from zone.
func NewLoader(reg *Registry, res *resource.Manager, zone *memmgr.Zone, ticks platform.TickSource, resolver EntryResolver) *Loader {
	return &Loader{reg: reg, res: res, zone: zone, ticks: ticks, resolver: resolver}
}

// SetInitDurationObserver installs a callback invoked after every
// Initialize step.
func (l *Loader) SetInitDurationObserver(f func(kind Kind, ticks uint64)) {
	l.onInitDuration = f
}

// SetStrictMode toggles the rollback-on-required-failure behavior.
func (l *Loader) SetStrictMode(b bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.strictMode = b
}

func (l *Loader) now() uint64 {
	if l.ticks == nil {
		return 0
	}
	return l.ticks.Ticks()
}

// ScanForExtensions iterates every resource of kind's type across the
// resource chain, creating a Discovered record for each one not
// already registered and not in the registry's skip-name list.
func (l *Loader) ScanForExtensions(kind Kind) []*Record {
	t := kind.ResourceTypeFor()
	count := l.res.CountResources(t)

	var discovered []*Record
	for i := 1; i <= count; i++ {
		h, oerr := l.res.GetIndResource(t, i)
		if oerr != toolboxerr.NoErr {
			continue
		}
		info, oerr := l.res.GetResInfo(h)
		if oerr != toolboxerr.NoErr {
			continue
		}
		if l.reg.isSkipped(info.Name) {
			continue
		}
		if _, ok := l.reg.GetByType(t, info.ID); ok {
			continue
		}

		entry, priority, required, major, minor, ok := l.resolver.ResolveEntry(kind, t, info.ID)
		if !ok {
			continue
		}

		l.mu.Lock()
		l.seq++
		l.mu.Unlock()

		rec := &Record{
			Name:         info.Name,
			Kind:         kind,
			State:        StateDiscovered,
			ResourceType: t,
			ResourceID:   info.ID,
			CodeHandle:   h,
			CodeSize:     l.zone.GetHandleSize(h),
			Priority:     priority,
			Required:     required,
			MajorVer:     major,
			MinorVer:     minor,
			Unit:         -1,
			entry:        entry,
		}
		l.reg.mu.Lock()
		l.reg.register(rec)
		l.reg.mu.Unlock()
		discovered = append(discovered, rec)
	}
	return discovered
}

// sortForLoad orders discovered records for kind: ascending priority
// for INIT (ties by discovery/registration order, which RefNum
// reflects since RefNums are monotonic), ascending resource ID for
// everything else.
func sortForLoad(kind Kind, recs []*Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		if kind == KindINIT {
			if recs[i].Priority != recs[j].Priority {
				return recs[i].Priority < recs[j].Priority
			}
			return recs[i].RefNum < recs[j].RefNum
		}
		return recs[i].ResourceID < recs[j].ResourceID
	})
}

// LoadAllExtensions runs load -> initialize -> activate over every
// Discovered record of kind, in sorted order. A Required record that
// fails initialization stops the remaining load for this call and
// returns its error; already-activated records are not rolled back
// by default (see Loader.strictMode).
func (l *Loader) LoadAllExtensions(kind Kind) toolboxerr.OSErr {
	var pending []*Record
	for _, rec := range l.reg.List() {
		if rec.Kind == kind && rec.State == StateDiscovered {
			pending = append(pending, rec)
		}
	}
	sortForLoad(kind, pending)

	for _, rec := range pending {
		if err := l.loadOne(rec); err != toolboxerr.NoErr {
			l.reg.deactivate(rec, StateError)
			rec.LastError = err
			if rec.Required {
				l.rollbackIfStrict(kind)
				return err
			}
			continue
		}
		if err := l.initOne(rec); err != toolboxerr.NoErr {
			l.reg.deactivate(rec, StateError)
			rec.LastError = err
			if rec.Required {
				l.rollbackIfStrict(kind)
				return err
			}
			continue
		}
		l.activateOne(rec)
	}
	return toolboxerr.NoErr
}

// rollbackIfStrict unloads every already-activated record of kind, in
// LIFO order, when strictMode is enabled.
func (l *Loader) rollbackIfStrict(kind Kind) {
	l.mu.Lock()
	strict := l.strictMode
	l.mu.Unlock()
	if strict {
		l.UnloadAll(kind)
	}
}

func (l *Loader) loadOne(rec *Record) toolboxerr.OSErr {
	l.zone.HLock(rec.CodeHandle)
	rec.LoadTime = l.now()
	rec.State = StateLoaded
	return toolboxerr.NoErr
}

func (l *Loader) initOne(rec *Record) (result toolboxerr.OSErr) {
	start := l.now()
	defer func() {
		elapsed := l.now() - start
		rec.InitTime = elapsed
		if l.onInitDuration != nil {
			l.onInitDuration(rec.Kind, elapsed)
		}
		if r := recover(); r != nil {
			result = toolboxerr.ExtInitFailed
		}
	}()

	switch rec.Kind {
	case KindINIT:
		proc, ok := rec.entry.(InitProc)
		if !ok {
			return toolboxerr.ExtBadResource
		}
		if err := proc(); err != toolboxerr.NoErr {
			return toolboxerr.ExtInitFailed
		}
	case KindDRVR:
		if _, ok := rec.entry.(DRVRProc); !ok {
			return toolboxerr.ExtBadResource
		}
	case KindCDEF:
		if _, ok := rec.entry.(CDEFProc); !ok {
			return toolboxerr.ExtBadResource
		}
	default:
		if _, ok := rec.entry.(OpaqueProc); !ok {
			return toolboxerr.ExtBadResource
		}
	}
	rec.State = StateInitialized
	return toolboxerr.NoErr
}

func (l *Loader) activateOne(rec *Record) {
	if rec.Kind == KindDRVR {
		if !l.reg.allocUnit(rec) {
			l.reg.deactivate(rec, StateError)
			rec.LastError = toolboxerr.ExtMaxExtensions
			return
		}
	}
	l.reg.activate(rec)
}

// LoadByName loads, initializes, and activates a single already-
// discovered record by name.
func (l *Loader) LoadByName(name string) toolboxerr.OSErr {
	rec, ok := l.reg.GetByName(name)
	if !ok {
		return toolboxerr.ExtNotFound
	}
	return l.loadSingle(rec)
}

// LoadByID loads a single already-discovered record by (type, id).
func (l *Loader) LoadByID(t resource.Type, id resource.ID) toolboxerr.OSErr {
	rec, ok := l.reg.GetByType(t, id)
	if !ok {
		return toolboxerr.ExtNotFound
	}
	return l.loadSingle(rec)
}

func (l *Loader) loadSingle(rec *Record) toolboxerr.OSErr {
	if rec.State == StateActive {
		return toolboxerr.ExtAlreadyLoaded
	}
	if rec.State == StateDisabled {
		return toolboxerr.ExtDisabled
	}
	if err := l.loadOne(rec); err != toolboxerr.NoErr {
		return err
	}
	if err := l.initOne(rec); err != toolboxerr.NoErr {
		return err
	}
	l.activateOne(rec)
	return toolboxerr.NoErr
}

// Unload transitions rec out of Active/Initialized/Loaded, unlocking
// its code handle (the handle is not disposed) and reclaiming any DRVR
// unit.
func (l *Loader) Unload(refNum RefNum) toolboxerr.OSErr {
	rec, ok := l.reg.GetByRefNum(refNum)
	if !ok {
		return toolboxerr.ExtNotFound
	}
	if rec.Kind == KindDRVR {
		l.reg.freeUnit(rec)
	}
	l.reg.deactivate(rec, StateDiscovered)
	l.zone.HUnlock(rec.CodeHandle)
	return toolboxerr.NoErr
}

// UnloadAll unloads every record of kind in LIFO order relative to
// load.
func (l *Loader) UnloadAll(kind Kind) {
	recs := l.reg.List()
	for i := len(recs) - 1; i >= 0; i-- {
		if recs[i].Kind == kind && recs[i].State != StateDiscovered {
			l.Unload(recs[i].RefNum)
		}
	}
}

// Reload unloads then re-runs load/init/activate for refNum. A
// Disabled record is left as it is and ExtDisabled is returned.
func (l *Loader) Reload(refNum RefNum) toolboxerr.OSErr {
	rec, ok := l.reg.GetByRefNum(refNum)
	if !ok {
		return toolboxerr.ExtNotFound
	}
	if rec.State == StateDisabled {
		return toolboxerr.ExtDisabled
	}
	l.Unload(refNum)
	return l.loadSingle(rec)
}
