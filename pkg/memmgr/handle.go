package memmgr

import "github.com/paleotech/toolbox7/pkg/toolboxerr"

// Handle is an indirect reference to a relocatable block: a stable
// index into its owning zone's master-pointer arena. It is a value
// type, matching classic Handle-as-value-passed-around semantics.
type Handle struct {
	z  *Zone
	id int
}

// Zero reports whether h is the NULL handle.
func (h Handle) Zero() bool { return h.z == nil }

// Zone returns the zone owning h (HandleZone in the classic API).
func (h Handle) Zone() *Zone { return h.z }

// NewHandle allocates a new relocatable block of size bytes from z. A
// size of zero returns a non-NULL, empty (size-0) handle. Fails with
// MemFull if the zone cannot satisfy the request after compaction and
// purging.
func (z *Zone) NewHandle(size int) (Handle, toolboxerr.OSErr) {
	z.mu.Lock()
	defer z.mu.Unlock()

	if size < 0 {
		return Handle{}, z.setErr(toolboxerr.MemFull)
	}
	if !z.ensureRoom(size) {
		return Handle{}, z.setErr(toolboxerr.MemFull)
	}

	var data []byte
	if size > 0 {
		data = make([]byte, size)
	}
	z.touch++
	m := master{data: data, live: true, touch: z.touch}

	idx := z.allocSlot(m)
	z.used += size
	z.setErr(toolboxerr.NoErr)
	return Handle{z: z, id: idx}, toolboxerr.NoErr
}

func (z *Zone) allocSlot(m master) int {
	if n := len(z.free); n > 0 {
		idx := z.free[n-1]
		z.free = z.free[:n-1]
		z.masters[idx] = m
		return idx
	}
	z.masters = append(z.masters, m)
	return len(z.masters) - 1
}

// DisposeHandle releases h. Disposing the NULL handle is a no-op;
// disposing an already-disposed handle is fatal (classic double-free
// semantics), reported by panic.
func (z *Zone) DisposeHandle(h Handle) {
	if h.Zero() {
		return
	}
	if h.z != z {
		panic("memmgr: DisposeHandle across zones")
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	m := &z.masters[h.id]
	if !m.live {
		panic("memmgr: double free of handle")
	}
	z.used -= len(m.data)
	m.data = nil
	m.live = false
	z.free = append(z.free, h.id)
}

// SetHandleSize resizes h to n bytes. On failure the old size and
// contents are left intact.
func (z *Zone) SetHandleSize(h Handle, n int) toolboxerr.OSErr {
	if h.Zero() || h.z != z {
		return toolboxerr.MemFull
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	m := &z.masters[h.id]
	if !m.live {
		return toolboxerr.MemFull
	}
	old := len(m.data)
	delta := n - old
	if delta > 0 && !z.ensureRoom(delta) {
		return z.setErr(toolboxerr.MemFull)
	}
	grown := make([]byte, n)
	copy(grown, m.data)
	m.data = grown
	z.used += delta
	z.touch++
	m.touch = z.touch
	return z.setErr(toolboxerr.NoErr)
}

// GetHandleSize returns h's current byte length. A purged (empty)
// handle reports size 0.
func (z *Zone) GetHandleSize(h Handle) int {
	if h.Zero() {
		return 0
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	m := &z.masters[h.id]
	if !m.live {
		return 0
	}
	return len(m.data)
}

// HLock increments h's lock count, pinning its block through
// compaction.
func (z *Zone) HLock(h Handle) {
	if h.Zero() {
		return
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	z.masters[h.id].locked++
}

// HUnlock decrements h's lock count. Unbalanced Unlock is ignored.
func (z *Zone) HUnlock(h Handle) {
	if h.Zero() {
		return
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	m := &z.masters[h.id]
	if m.locked > 0 {
		m.locked--
	}
}

// IsLocked reports whether h currently has a positive lock count.
func (z *Zone) IsLocked(h Handle) bool {
	if h.Zero() {
		return false
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.masters[h.id].locked > 0
}

// HPurge marks h purgeable under memory pressure.
func (z *Zone) HPurge(h Handle) {
	if h.Zero() {
		return
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	z.masters[h.id].purgeable = true
}

// HNoPurge clears h's purgeable flag.
func (z *Zone) HNoPurge(h Handle) {
	if h.Zero() {
		return
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	z.masters[h.id].purgeable = false
}

// IsPurgeable reports h's purgeable flag.
func (z *Zone) IsPurgeable(h Handle) bool {
	if h.Zero() {
		return false
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.masters[h.id].purgeable
}

// IsEmpty reports whether h is live but has no data block
// (data == nil): a purged handle, or a handle allocated with size
// zero. The two cases are not told apart.
func (z *Zone) IsEmpty(h Handle) bool {
	if h.Zero() {
		return false
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	m := &z.masters[h.id]
	return m.live && m.data == nil
}

// MarkResource flags h as owned by the Resource Manager. The flag is
// only stored: no operation here or in pkg/resource reads it.
func (z *Zone) MarkResource(h Handle, resource bool) {
	if h.Zero() {
		return
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	z.masters[h.id].resource = resource
}

// Touch records that h was accessed "now", for the zone's
// least-recently-touched purge ordering.
func (z *Zone) Touch(h Handle) {
	if h.Zero() {
		return
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	z.touch++
	z.masters[h.id].touch = z.touch
}

// Bytes returns a read/write view of h's current bytes. The slice is
// invalidated by any subsequent call that can resize or purge h.
func (z *Zone) Bytes(h Handle) []byte {
	if h.Zero() {
		return nil
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.masters[h.id].data
}

// SetBytes replaces h's contents with a copy of b, resizing as
// needed.
func (z *Zone) SetBytes(h Handle, b []byte) toolboxerr.OSErr {
	if err := z.SetHandleSize(h, len(b)); err != toolboxerr.NoErr {
		return err
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	copy(z.masters[h.id].data, b)
	return toolboxerr.NoErr
}

// BlockMove copies n bytes from src to dst with defined overlap
// semantics (memmove-equivalent).
func BlockMove(dst, src []byte, n int) {
	copy(dst[:n], src[:n])
}
