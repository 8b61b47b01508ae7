package resource

import (
	"sync"

	"github.com/paleotech/toolbox7/pkg/memmgr"
	"github.com/paleotech/toolbox7/pkg/platform"
	"github.com/paleotech/toolbox7/pkg/toolboxerr"
)

// Manager is the Resource Manager: a chain of open files, a shared
// zone for loaded resource data, a decompressor registry, and the
// bounded decompression cache.
type Manager struct {
	mu           sync.Mutex
	zone         *memmgr.Zone
	chain        *chain
	nextRefNum   RefNum
	resLoad      bool
	oneDeep      bool
	lastErr      toolboxerr.OSErr
	decompressors map[byte]Decompressor
	cache        *decompressCache
	errHook      func(toolboxerr.OSErr)
}

// NewManager creates a Resource Manager using zone for all loaded
// resource Handles, with a decompression cache of the given capacity
// (0 selects the default of 256).
func NewManager(zone *memmgr.Zone, cacheCapacity int) *Manager {
	m := &Manager{
		zone:          zone,
		chain:         newChain(),
		resLoad:       true,
		decompressors: map[byte]Decompressor{1: klauspostFlateDecompressor},
		cache:         newDecompressCache(cacheCapacity),
	}
	return m
}

// SetErrorHook installs a callback invoked whenever ResError
// transitions to non-zero, supplementing the classic Resource
// Manager's internal-retry-before-surfacing behavior.
func (m *Manager) SetErrorHook(f func(toolboxerr.OSErr)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errHook = f
}

func (m *Manager) setErr(e toolboxerr.OSErr) toolboxerr.OSErr {
	m.lastErr = e
	if e != toolboxerr.NoErr && m.errHook != nil {
		m.errHook(e)
	}
	return e
}

// ResError returns the last error of the most recent operation.
// Successful operations reset it to NoErr.
func (m *Manager) ResError() toolboxerr.OSErr {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// SetResLoad toggles auto-load on Get*Resource.
func (m *Manager) SetResLoad(b bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resLoad = b
}

// SetResOneDeep clamps every ordinary Get* to Get1* semantics when b
// is true.
func (m *Manager) SetResOneDeep(b bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.oneDeep = b
}

// OpenResFile opens the resource file image held on dev and pushes it
// onto the chain. It fails with ResFNotFound when the image cannot be
// decoded; it never creates a file (see CreateResFile).
// asSystem designates it the bottom-of-chain system file.
func (m *Manager) OpenResFile(name string, dev platform.BlockDevice, driveIndex int, perm Perm, asSystem bool) (RefNum, toolboxerr.OSErr) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextRefNum++
	refNum := m.nextRefNum

	rf, err := openResFileFromImage(refNum, name, perm, dev, driveIndex)
	if err != toolboxerr.NoErr {
		m.nextRefNum--
		return 0, m.setErr(toolboxerr.ResFNotFound)
	}
	m.chain.push(rf, asSystem)
	return refNum, m.setErr(toolboxerr.NoErr)
}

// CreateResFile creates a brand-new, empty resource file backed by
// dev and pushes it onto the chain.
func (m *Manager) CreateResFile(name string, dev platform.BlockDevice, driveIndex int, asSystem bool) (RefNum, toolboxerr.OSErr) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextRefNum++
	refNum := m.nextRefNum
	rf := newEmptyResFile(refNum, name, ReadWrite, dev, driveIndex)
	m.chain.push(rf, asSystem)
	return refNum, m.setErr(toolboxerr.NoErr)
}

// CloseResFile removes ref from the chain, disposing all loaded
// handles it owns and writing it back first if dirty and writable.
// Closing the system file is refused.
func (m *Manager) CloseResFile(ref RefNum) toolboxerr.OSErr {
	m.mu.Lock()
	defer m.mu.Unlock()

	rf := m.chain.byRefNum(ref)
	if rf == nil {
		return m.setErr(toolboxerr.ResFNotFound)
	}
	if rf.isSystem {
		return m.setErr(toolboxerr.ResIOErr)
	}
	if rf.dirty && rf.perm == ReadWrite {
		if err := rf.flush(); err != toolboxerr.NoErr {
			return m.setErr(err)
		}
	}
	for _, e := range rf.entries {
		if e.loaded() && !e.detached {
			m.zone.DisposeHandle(e.handle)
		}
	}
	m.cache.invalidateFile(ref)
	m.chain.remove(ref)
	return m.setErr(toolboxerr.NoErr)
}

// UseResFile sets the current file.
func (m *Manager) UseResFile(ref RefNum) toolboxerr.OSErr {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.chain.byRefNum(ref) == nil {
		return m.setErr(toolboxerr.ResFNotFound)
	}
	m.chain.setCurrent(ref)
	return m.setErr(toolboxerr.NoErr)
}

// CurResFile returns the current file's RefNum.
func (m *Manager) CurResFile() RefNum {
	if rf := m.chain.currentFile(); rf != nil {
		return rf.refNum
	}
	return 0
}

// HomeResFile returns the owning file's RefNum of a loaded handle, or
// 0 if none owns it.
func (m *Manager) HomeResFile(h memmgr.Handle) RefNum {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rf := range m.chain.files {
		for _, e := range rf.entries {
			if e.loaded() && e.handle == h {
				return rf.refNum
			}
		}
	}
	return 0
}

// checkLoad loads e's data into a Handle if not already loaded,
// decompressing first if its compressed attribute bit is set.
func (m *Manager) checkLoad(rf *ResFile, e *resourceEntry) toolboxerr.OSErr {
	if e.loaded() {
		return toolboxerr.NoErr
	}
	if !m.resLoad {
		return toolboxerr.NoErr
	}

	key := cacheKey{refNum: rf.refNum, typ: e.typ, id: e.id}
	if h, ok := m.cache.get(key); ok {
		e.handle = h
		return toolboxerr.NoErr
	}

	payload := e.rawData
	if e.attrs&AttrCompressed != 0 {
		if len(payload) < 1 {
			return toolboxerr.ExtBadResource
		}
		defProcID := payload[0]
		dec, ok := m.decompressors[defProcID]
		if !ok {
			return toolboxerr.ResIOErr
		}
		out, err := dec(payload[1:])
		if err != nil {
			return toolboxerr.ResIOErr
		}
		payload = out
	}

	h, oerr := m.zone.NewHandle(len(payload))
	if oerr != toolboxerr.NoErr {
		return toolboxerr.MemFull
	}
	m.zone.SetBytes(h, payload)
	m.zone.MarkResource(h, true)
	e.handle = h
	m.cache.put(key, h, m.zone)
	return toolboxerr.NoErr
}

// GetResource searches the chain top-down (or the current file only,
// if OneDeep is set) for (t, id).
func (m *Manager) GetResource(t Type, id ID) (memmgr.Handle, toolboxerr.OSErr) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.oneDeep {
		return m.get1Locked(t, id)
	}
	for _, rf := range m.chain.topDown() {
		if e := rf.find(t, id); e != nil {
			if err := m.checkLoad(rf, e); err != toolboxerr.NoErr {
				return memmgr.Handle{}, m.setErr(err)
			}
			m.zone.Touch(e.handle)
			return e.handle, m.setErr(toolboxerr.NoErr)
		}
	}
	return memmgr.Handle{}, m.setErr(toolboxerr.ResNotFound)
}

// Get1Resource restricts the search to the current file.
func (m *Manager) Get1Resource(t Type, id ID) (memmgr.Handle, toolboxerr.OSErr) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get1Locked(t, id)
}

func (m *Manager) get1Locked(t Type, id ID) (memmgr.Handle, toolboxerr.OSErr) {
	rf := m.chain.currentFile()
	if rf == nil {
		return memmgr.Handle{}, m.setErr(toolboxerr.ResFNotFound)
	}
	e := rf.find(t, id)
	if e == nil {
		return memmgr.Handle{}, m.setErr(toolboxerr.ResNotFound)
	}
	if err := m.checkLoad(rf, e); err != toolboxerr.NoErr {
		return memmgr.Handle{}, m.setErr(err)
	}
	m.zone.Touch(e.handle)
	return e.handle, m.setErr(toolboxerr.NoErr)
}

// GetNamedResource searches the chain by (Type, Name).
func (m *Manager) GetNamedResource(t Type, name string) (memmgr.Handle, toolboxerr.OSErr) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.oneDeep {
		return m.get1NamedLocked(t, name)
	}
	for _, rf := range m.chain.topDown() {
		if e := rf.findNamed(t, name); e != nil {
			if err := m.checkLoad(rf, e); err != toolboxerr.NoErr {
				return memmgr.Handle{}, m.setErr(err)
			}
			return e.handle, m.setErr(toolboxerr.NoErr)
		}
	}
	return memmgr.Handle{}, m.setErr(toolboxerr.ResNotFound)
}

// Get1NamedResource restricts the named search to the current file.
func (m *Manager) Get1NamedResource(t Type, name string) (memmgr.Handle, toolboxerr.OSErr) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get1NamedLocked(t, name)
}

func (m *Manager) get1NamedLocked(t Type, name string) (memmgr.Handle, toolboxerr.OSErr) {
	rf := m.chain.currentFile()
	if rf == nil {
		return memmgr.Handle{}, m.setErr(toolboxerr.ResFNotFound)
	}
	e := rf.findNamed(t, name)
	if e == nil {
		return memmgr.Handle{}, m.setErr(toolboxerr.ResNotFound)
	}
	if err := m.checkLoad(rf, e); err != toolboxerr.NoErr {
		return memmgr.Handle{}, m.setErr(err)
	}
	return e.handle, m.setErr(toolboxerr.NoErr)
}

// LoadResource re-reads data for an empty (purged) resource handle.
func (m *Manager) LoadResource(h memmgr.Handle) toolboxerr.OSErr {
	m.mu.Lock()
	defer m.mu.Unlock()
	rf, e := m.findOwning(h)
	if e == nil {
		return m.setErr(toolboxerr.ResNotFound)
	}
	if !m.zone.IsEmpty(h) {
		return m.setErr(toolboxerr.NoErr)
	}
	e.handle = memmgr.Handle{}
	return m.setErr(m.checkLoad(rf, e))
}

// ReleaseResource disposes h and drops its cached copy, so the next
// Get*Resource call reads the data again into a new handle. h is not
// left as an empty handle: it is invalid afterwards. A no-op on a
// locked handle, matching documented classic behavior.
func (m *Manager) ReleaseResource(h memmgr.Handle) toolboxerr.OSErr {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.zone.IsLocked(h) {
		return m.setErr(toolboxerr.NoErr)
	}
	m.zone.HPurge(h)
	rf, e := m.findOwning(h)
	if e != nil {
		e.handle = memmgr.Handle{}
		m.cache.mu.Lock()
		delete(m.cache.entries, cacheKey{refNum: rf.refNum, typ: e.typ, id: e.id})
		m.cache.mu.Unlock()
	}
	m.zone.DisposeHandle(h)
	return m.setErr(toolboxerr.NoErr)
}

// DetachResource breaks Resource Manager ownership of h; the caller
// now owns the handle's lifetime.
func (m *Manager) DetachResource(h memmgr.Handle) toolboxerr.OSErr {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, e := m.findOwning(h)
	if e == nil {
		return m.setErr(toolboxerr.ResNotFound)
	}
	e.detached = true
	return m.setErr(toolboxerr.NoErr)
}

func (m *Manager) findOwning(h memmgr.Handle) (*ResFile, *resourceEntry) {
	for _, rf := range m.chain.files {
		for _, e := range rf.entries {
			if e.loaded() && e.handle == h {
				return rf, e
			}
		}
	}
	return nil, nil
}

// CountResources counts matching type across the whole chain.
func (m *Manager) CountResources(t Type) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rf := range m.chain.files {
		n += rf.countType(t)
	}
	return n
}

// Count1Resources counts matching type in the current file only.
func (m *Manager) Count1Resources(t Type) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	rf := m.chain.currentFile()
	if rf == nil {
		return 0
	}
	return rf.countType(t)
}

// GetIndResource returns the i-th (1-based) resource of type t, chain
// order (top to bottom).
func (m *Manager) GetIndResource(t Type, i int) (memmgr.Handle, toolboxerr.OSErr) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rf := range m.chain.topDown() {
		count := rf.countType(t)
		if i <= n+count {
			e := rf.indexed(t, i-n)
			if err := m.checkLoad(rf, e); err != toolboxerr.NoErr {
				return memmgr.Handle{}, m.setErr(err)
			}
			return e.handle, m.setErr(toolboxerr.NoErr)
		}
		n += count
	}
	return memmgr.Handle{}, m.setErr(toolboxerr.ResNotFound)
}

// Get1IndResource restricts indexed lookup to the current file.
func (m *Manager) Get1IndResource(t Type, i int) (memmgr.Handle, toolboxerr.OSErr) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rf := m.chain.currentFile()
	if rf == nil {
		return memmgr.Handle{}, m.setErr(toolboxerr.ResFNotFound)
	}
	e := rf.indexed(t, i)
	if e == nil {
		return memmgr.Handle{}, m.setErr(toolboxerr.ResNotFound)
	}
	if err := m.checkLoad(rf, e); err != toolboxerr.NoErr {
		return memmgr.Handle{}, m.setErr(err)
	}
	return e.handle, m.setErr(toolboxerr.NoErr)
}

// CountTypes returns the number of distinct resource types across the
// chain.
func (m *Manager) CountTypes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[Type]bool{}
	for _, rf := range m.chain.files {
		for _, t := range rf.types() {
			seen[t] = true
		}
	}
	return len(seen)
}

// Count1Types restricts CountTypes to the current file.
func (m *Manager) Count1Types() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	rf := m.chain.currentFile()
	if rf == nil {
		return 0
	}
	return len(rf.types())
}

// GetIndType returns the i-th (1-based) distinct type across the
// chain.
func (m *Manager) GetIndType(i int) (Type, toolboxerr.OSErr) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[Type]bool{}
	var all []Type
	for _, rf := range m.chain.files {
		for _, t := range rf.types() {
			if !seen[t] {
				seen[t] = true
				all = append(all, t)
			}
		}
	}
	if i < 1 || i > len(all) {
		return Type{}, m.setErr(toolboxerr.ResNotFound)
	}
	return all[i-1], m.setErr(toolboxerr.NoErr)
}

// Get1IndType restricts GetIndType to the current file.
func (m *Manager) Get1IndType(i int) (Type, toolboxerr.OSErr) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rf := m.chain.currentFile()
	if rf == nil {
		return Type{}, m.setErr(toolboxerr.ResFNotFound)
	}
	types := rf.types()
	if i < 1 || i > len(types) {
		return Type{}, m.setErr(toolboxerr.ResNotFound)
	}
	return types[i-1], m.setErr(toolboxerr.NoErr)
}

// UniqueID returns an ID not in use for type t anywhere in the chain.
func (m *Manager) UniqueID(t Type) ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	used := map[ID]bool{}
	for _, rf := range m.chain.files {
		for _, e := range rf.entries {
			if e.typ == t && !e.detached {
				used[e.id] = true
			}
		}
	}
	for id := ID(128); ; id++ {
		if !used[id] {
			return id
		}
	}
}

// Unique1ID restricts UniqueID to the current file.
func (m *Manager) Unique1ID(t Type) ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	rf := m.chain.currentFile()
	if rf == nil {
		return ID(128)
	}
	return rf.uniqueID(t)
}

// AddResource attaches a caller-owned handle to the current file.
func (m *Manager) AddResource(h memmgr.Handle, t Type, id ID, name string) toolboxerr.OSErr {
	m.mu.Lock()
	defer m.mu.Unlock()
	rf := m.chain.currentFile()
	if rf == nil {
		return m.setErr(toolboxerr.ResFNotFound)
	}
	if rf.perm == ReadOnly {
		return m.setErr(toolboxerr.MapReadOnly)
	}
	if rf.find(t, id) != nil {
		return m.setErr(toolboxerr.AddResFailed)
	}
	m.zone.MarkResource(h, true)
	rf.entries = append(rf.entries, &resourceEntry{
		typ: t, id: id, name: name, hasName: name != "",
		rawData: append([]byte(nil), m.zone.Bytes(h)...),
		handle:  h,
	})
	rf.dirty = true
	return m.setErr(toolboxerr.NoErr)
}

// RemoveResource detaches h's entry from its file (write-path
// counterpart of DetachResource: the entry disappears from the map on
// next UpdateResFile).
func (m *Manager) RemoveResource(h memmgr.Handle) toolboxerr.OSErr {
	m.mu.Lock()
	defer m.mu.Unlock()
	rf, e := m.findOwning(h)
	if e == nil {
		return m.setErr(toolboxerr.ResNotFound)
	}
	if rf.perm == ReadOnly {
		return m.setErr(toolboxerr.MapReadOnly)
	}
	e.detached = true
	rf.dirty = true
	return m.setErr(toolboxerr.NoErr)
}

// ChangedResource marks h's owning entry dirty and (if locked/
// protected) fails.
func (m *Manager) ChangedResource(h memmgr.Handle) toolboxerr.OSErr {
	m.mu.Lock()
	defer m.mu.Unlock()
	rf, e := m.findOwning(h)
	if e == nil {
		return m.setErr(toolboxerr.ResNotFound)
	}
	if e.attrs&AttrLocked != 0 || e.attrs&AttrProtected != 0 {
		return m.setErr(toolboxerr.ResAttrErr)
	}
	e.attrs |= AttrChanged
	rf.dirty = true
	return m.setErr(toolboxerr.NoErr)
}

// WriteResource flushes h's current bytes back into its entry's raw
// data, ready for the next UpdateResFile.
func (m *Manager) WriteResource(h memmgr.Handle) toolboxerr.OSErr {
	m.mu.Lock()
	defer m.mu.Unlock()
	rf, e := m.findOwning(h)
	if e == nil {
		return m.setErr(toolboxerr.ResNotFound)
	}
	if rf.perm == ReadOnly {
		return m.setErr(toolboxerr.MapReadOnly)
	}
	e.rawData = append([]byte(nil), m.zone.Bytes(h)...)
	e.attrs |= AttrChanged
	rf.dirty = true
	return m.setErr(toolboxerr.NoErr)
}

// UpdateResFile flushes all dirty entries of ref to disk.
func (m *Manager) UpdateResFile(ref RefNum) toolboxerr.OSErr {
	m.mu.Lock()
	defer m.mu.Unlock()
	rf := m.chain.byRefNum(ref)
	if rf == nil {
		return m.setErr(toolboxerr.ResFNotFound)
	}
	if !rf.dirty {
		return m.setErr(toolboxerr.NoErr)
	}
	return m.setErr(rf.flush())
}

// GetResAttrs/SetResAttrs, GetResInfo/SetResInfo — metadata access.

func (m *Manager) GetResAttrs(h memmgr.Handle) (Attr, toolboxerr.OSErr) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, e := m.findOwning(h)
	if e == nil {
		return 0, m.setErr(toolboxerr.ResNotFound)
	}
	return e.attrs, m.setErr(toolboxerr.NoErr)
}

func (m *Manager) SetResAttrs(h memmgr.Handle, attrs Attr) toolboxerr.OSErr {
	m.mu.Lock()
	defer m.mu.Unlock()
	rf, e := m.findOwning(h)
	if e == nil {
		return m.setErr(toolboxerr.ResNotFound)
	}
	e.attrs = attrs
	rf.dirty = true
	return m.setErr(toolboxerr.NoErr)
}

// ResInfo is the (Type, ID, Name) triple classic GetResInfo returns.
type ResInfo struct {
	Type Type
	ID   ID
	Name string
}

func (m *Manager) GetResInfo(h memmgr.Handle) (ResInfo, toolboxerr.OSErr) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, e := m.findOwning(h)
	if e == nil {
		return ResInfo{}, m.setErr(toolboxerr.ResNotFound)
	}
	return ResInfo{Type: e.typ, ID: e.id, Name: e.name}, m.setErr(toolboxerr.NoErr)
}

func (m *Manager) SetResInfo(h memmgr.Handle, id ID, name string) toolboxerr.OSErr {
	m.mu.Lock()
	defer m.mu.Unlock()
	rf, e := m.findOwning(h)
	if e == nil {
		return m.setErr(toolboxerr.ResNotFound)
	}
	e.id = id
	e.name = name
	e.hasName = name != ""
	rf.dirty = true
	return m.setErr(toolboxerr.NoErr)
}
