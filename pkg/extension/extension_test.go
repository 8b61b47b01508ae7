package extension

import (
	"sync/atomic"
	"testing"

	"github.com/paleotech/toolbox7/pkg/memmgr"
	"github.com/paleotech/toolbox7/pkg/resource"
	"github.com/paleotech/toolbox7/pkg/toolboxerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTicks struct{ n atomic.Uint64 }

func (f *fakeTicks) Ticks() uint64 { return f.n.Add(1) }

type staticResolver struct {
	priority map[resource.ID]int
	required map[resource.ID]bool
}

func (r *staticResolver) ResolveEntry(kind Kind, t resource.Type, id resource.ID) (any, int, bool, uint8, uint8, bool) {
	var entry any
	switch kind {
	case KindINIT:
		entry = InitProc(func() toolboxerr.OSErr { return toolboxerr.NoErr })
	case KindDRVR:
		entry = DRVRProc(func(unit int, code int16, pb []byte) toolboxerr.OSErr { return toolboxerr.NoErr })
	default:
		entry = OpaqueProc(func(args ...any) any { return nil })
	}
	return entry, r.priority[id], r.required[id], 1, 0, true
}

func setupResFile(t *testing.T, typeName string, ids []resource.ID) (*resource.Manager, *memmgr.Zone) {
	t.Helper()
	dev := resource.NewMemoryBlockDevice(64 * 1024)
	zone := memmgr.NewZone("ext", 0)
	mgr := resource.NewManager(zone, 0)
	ref, err := mgr.CreateResFile("f", dev, 0, false)
	require.Equal(t, toolboxerr.NoErr, err)
	mgr.UseResFile(ref)

	for _, id := range ids {
		h, _ := zone.NewHandle(4)
		zone.SetBytes(h, []byte{0, 0, 0, 0})
		require.Equal(t, toolboxerr.NoErr, mgr.AddResource(h, resource.NewType(typeName), id, ""))
	}
	return mgr, zone
}

func TestBootSequencePriorityOrdering(t *testing.T) {
	mgr, zone := setupResFile(t, "INIT", []resource.ID{1, 2, 3})
	reg := NewRegistry()
	resolver := &staticResolver{priority: map[resource.ID]int{1: 999, 2: 50, 3: 500}}
	ticks := &fakeTicks{}
	loader := NewLoader(reg, mgr, zone, ticks, resolver)

	loader.ScanForExtensions(KindINIT)
	require.Equal(t, toolboxerr.NoErr, loader.LoadAllExtensions(KindINIT))

	assert.Equal(t, 3, reg.ActiveCount())

	recs := reg.List()
	byID := map[resource.ID]*Record{}
	for _, r := range recs {
		byID[r.ResourceID] = r
		assert.Equal(t, StateActive, r.State)
	}
	assert.LessOrEqual(t, byID[2].LoadTime, byID[3].LoadTime)
	assert.LessOrEqual(t, byID[3].LoadTime, byID[1].LoadTime)
}

func TestRequiredExtensionFailureAbortsWithoutRollback(t *testing.T) {
	mgr, zone := setupResFile(t, "INIT", []resource.ID{1, 2})
	reg := NewRegistry()
	ticks := &fakeTicks{}

	resolver := &failingResolver{failID: 2, priorities: map[resource.ID]int{1: 50, 2: 100}, required: map[resource.ID]bool{2: true}}
	loader := NewLoader(reg, mgr, zone, ticks, resolver)
	loader.ScanForExtensions(KindINIT)

	err := loader.LoadAllExtensions(KindINIT)
	assert.Equal(t, toolboxerr.ExtInitFailed, err)

	rec1, _ := reg.GetByType(resource.NewType("INIT"), 1)
	assert.Equal(t, StateActive, rec1.State) // not rolled back
	rec2, _ := reg.GetByType(resource.NewType("INIT"), 2)
	assert.Equal(t, StateError, rec2.State)
}

type failingResolver struct {
	failID     resource.ID
	priorities map[resource.ID]int
	required   map[resource.ID]bool
}

func (r *failingResolver) ResolveEntry(kind Kind, t resource.Type, id resource.ID) (any, int, bool, uint8, uint8, bool) {
	failID := r.failID
	entry := InitProc(func() toolboxerr.OSErr {
		if id == failID {
			return toolboxerr.ExtInitFailed
		}
		return toolboxerr.NoErr
	})
	return entry, r.priorities[id], r.required[id], 1, 0, true
}

func TestDRVRUnitExhaustionAt32(t *testing.T) {
	ids := make([]resource.ID, 33)
	priorities := map[resource.ID]int{}
	for i := range ids {
		ids[i] = resource.ID(i + 1)
		priorities[ids[i]] = i
	}
	mgr, zone := setupResFile(t, "DRVR", ids)
	reg := NewRegistry()
	ticks := &fakeTicks{}
	resolver := &staticResolver{priority: priorities}
	loader := NewLoader(reg, mgr, zone, ticks, resolver)

	loader.ScanForExtensions(KindDRVR)
	loader.LoadAllExtensions(KindDRVR)

	assert.Equal(t, 32, reg.ActiveCount())

	recs := reg.List()
	var errored int
	for _, r := range recs {
		if r.State == StateError {
			errored++
			assert.Equal(t, toolboxerr.ExtMaxExtensions, r.LastError)
		}
	}
	assert.Equal(t, 1, errored)
}

func TestUnloadAllIsLIFO(t *testing.T) {
	mgr, zone := setupResFile(t, "INIT", []resource.ID{1, 2, 3})
	reg := NewRegistry()
	ticks := &fakeTicks{}
	resolver := &staticResolver{priority: map[resource.ID]int{1: 1, 2: 2, 3: 3}}
	loader := NewLoader(reg, mgr, zone, ticks, resolver)

	loader.ScanForExtensions(KindINIT)
	loader.LoadAllExtensions(KindINIT)
	loader.UnloadAll(KindINIT)

	for _, r := range reg.List() {
		assert.Equal(t, StateDiscovered, r.State)
	}
	assert.Equal(t, 0, reg.ActiveCount())
}

func TestSetEnabledSkipsDisabledOnReload(t *testing.T) {
	mgr, zone := setupResFile(t, "INIT", []resource.ID{1})
	reg := NewRegistry()
	ticks := &fakeTicks{}
	resolver := &staticResolver{priority: map[resource.ID]int{1: 1}}
	loader := NewLoader(reg, mgr, zone, ticks, resolver)

	loader.ScanForExtensions(KindINIT)
	loader.LoadAllExtensions(KindINIT)

	rec, _ := reg.GetByType(resource.NewType("INIT"), 1)
	require.True(t, reg.SetEnabled(rec.RefNum, false))
	assert.Equal(t, StateDisabled, rec.State)
	assert.Equal(t, 0, reg.ActiveCount())

	assert.Equal(t, toolboxerr.ExtDisabled, loader.Reload(rec.RefNum))
	assert.Equal(t, StateDisabled, rec.State)
	assert.Equal(t, 0, reg.ActiveCount())
}
