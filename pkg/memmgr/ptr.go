package memmgr

import "github.com/paleotech/toolbox7/pkg/toolboxerr"

// ptrBlock is a non-relocatable allocation. Unlike a master record its
// slice address never changes and the zone never compacts it.
type ptrBlock struct {
	data []byte
	live bool
}

// Ptr is a non-relocatable block: no indirection, contents never move.
type Ptr struct {
	z  *Zone
	id int
}

// Zero reports whether p is the NULL pointer.
func (p Ptr) Zero() bool { return p.z == nil }

// NewPtr allocates a non-relocatable block of size bytes. Fails with
// MemFull under the same budget rules as NewHandle.
func (z *Zone) NewPtr(size int) (Ptr, toolboxerr.OSErr) {
	z.mu.Lock()
	defer z.mu.Unlock()

	if size < 0 {
		return Ptr{}, z.setErr(toolboxerr.MemFull)
	}
	if !z.ensureRoom(size) {
		return Ptr{}, z.setErr(toolboxerr.MemFull)
	}
	var data []byte
	if size > 0 {
		data = make([]byte, size)
	}
	blk := ptrBlock{data: data, live: true}

	var idx int
	if n := len(z.ptrFree); n > 0 {
		idx = z.ptrFree[n-1]
		z.ptrFree = z.ptrFree[:n-1]
		z.ptrs[idx] = blk
	} else {
		z.ptrs = append(z.ptrs, blk)
		idx = len(z.ptrs) - 1
	}
	z.used += size
	z.setErr(toolboxerr.NoErr)
	return Ptr{z: z, id: idx}, toolboxerr.NoErr
}

// DisposePtr releases p. Disposing NULL is a no-op; double-free is
// fatal.
func (z *Zone) DisposePtr(p Ptr) {
	if p.Zero() {
		return
	}
	if p.z != z {
		panic("memmgr: DisposePtr across zones")
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	blk := &z.ptrs[p.id]
	if !blk.live {
		panic("memmgr: double free of ptr")
	}
	z.used -= len(blk.data)
	blk.data = nil
	blk.live = false
	z.ptrFree = append(z.ptrFree, p.id)
}

// GetPtrSize returns p's current byte length.
func (z *Zone) GetPtrSize(p Ptr) int {
	if p.Zero() {
		return 0
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	return len(z.ptrs[p.id].data)
}

// SetPtrSize resizes p in place (contents beyond the old length are
// zeroed, the block itself never moves from the caller's perspective
// since Ptr carries no raw address to invalidate).
func (z *Zone) SetPtrSize(p Ptr, n int) toolboxerr.OSErr {
	if p.Zero() || p.z != z {
		return toolboxerr.MemFull
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	blk := &z.ptrs[p.id]
	if !blk.live {
		return toolboxerr.MemFull
	}
	delta := n - len(blk.data)
	if delta > 0 && !z.ensureRoom(delta) {
		return z.setErr(toolboxerr.MemFull)
	}
	grown := make([]byte, n)
	copy(grown, blk.data)
	blk.data = grown
	z.used += delta
	return z.setErr(toolboxerr.NoErr)
}

// PtrBytes returns a read/write view of p's bytes.
func (z *Zone) PtrBytes(p Ptr) []byte {
	if p.Zero() {
		return nil
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.ptrs[p.id].data
}
