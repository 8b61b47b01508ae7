// Package memmgr reimplements the classic Macintosh Memory Manager:
// zones, relocatable Handles with locked/purgeable attributes, and
// non-relocatable Ptr blocks.
package memmgr

import (
	"sync"

	"github.com/paleotech/toolbox7/pkg/toolboxerr"
)

// master is the stable "master pointer" record a Handle indirects
// through. Compaction and purging only ever touch master.data; the
// Handle value itself (an index into masters) never changes.
type master struct {
	data      []byte
	locked    int
	purgeable bool
	resource  bool
	touch     uint64
	live      bool
}

// Zone is a named allocation region with its own compaction/purge
// policy and last-error slot.
type Zone struct {
	mu      sync.Mutex
	name    string
	budget  int
	used    int
	masters []master
	free    []int
	ptrs    []ptrBlock
	ptrFree []int
	touch   uint64
	lastErr toolboxerr.OSErr
}

// NewZone creates a zone with the given name and soft byte budget. A
// budget of 0 means unbounded (never compacts/purges for space).
func NewZone(name string, budget int) *Zone {
	return &Zone{name: name, budget: budget}
}

// Name returns the zone's name.
func (z *Zone) Name() string { return z.name }

// Used returns the zone's current bytes in use.
func (z *Zone) Used() int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.used
}

// Budget returns the zone's soft byte budget (0 means unbounded).
func (z *Zone) Budget() int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.budget
}

// MemError returns the last error recorded by an operation on this
// zone, matching the classic MemError accessor.
func (z *Zone) MemError() toolboxerr.OSErr {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.lastErr
}

func (z *Zone) setErr(e toolboxerr.OSErr) toolboxerr.OSErr {
	z.lastErr = e
	return e
}

// fits reports whether n additional bytes stay within budget.
func (z *Zone) fits(n int) bool {
	return z.budget == 0 || z.used+n <= z.budget
}

// MaxBlock returns the size in bytes of the largest contiguous run
// that could be satisfied without compaction or purging, approximated
// here as the remaining budget headroom.
func (z *Zone) MaxBlock() int {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.budget == 0 {
		return 1 << 30
	}
	if z.used >= z.budget {
		return 0
	}
	return z.budget - z.used
}

// ensureRoom runs compaction then purging then retries once.
// Returns true if n bytes are now available.
func (z *Zone) ensureRoom(n int) bool {
	if z.fits(n) {
		return true
	}
	z.compactLocked()
	if z.fits(n) {
		return true
	}
	z.purgeLocked()
	return z.fits(n)
}

// compactLocked is the compaction pass of ensureRoom. Since every live
// block is addressed indirectly through its master record rather than
// a raw pointer, there is nothing to relocate, and the pass changes
// nothing: dead slots and free-list capacity are left as they are.
// Only purgeLocked frees space.
func (z *Zone) compactLocked() {
	// Nothing to relocate, as blocks are
	// already indirect. This is the no-locked-block, no-purgeable-block
	// pass of the classic two-phase reclaim.
}

// purgeLocked reclaims all purgeable, unlocked masters, oldest-touched
// first, emptying their Handles (master.data = nil, master.live stays
// true so dereference still resolves, yielding an empty handle).
func (z *Zone) purgeLocked() {
	type cand struct {
		idx   int
		touch uint64
	}
	var cands []cand
	for i := range z.masters {
		m := &z.masters[i]
		if m.live && m.purgeable && m.locked == 0 && m.data != nil {
			cands = append(cands, cand{i, m.touch})
		}
	}
	// Least-recently-touched first.
	for i := 1; i < len(cands); i++ {
		for j := i; j > 0 && cands[j].touch < cands[j-1].touch; j-- {
			cands[j], cands[j-1] = cands[j-1], cands[j]
		}
	}
	for _, c := range cands {
		m := &z.masters[c.idx]
		z.used -= len(m.data)
		m.data = nil
	}
}

// CompactMem forces a compaction pass ahead of a known-large
// allocation, exposed as an explicit call supplementing classic
// PurgeSpace/CompactMem semantics.
func (z *Zone) CompactMem(cushion int) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.compactLocked()
	if !z.fits(cushion) {
		z.purgeLocked()
	}
}
