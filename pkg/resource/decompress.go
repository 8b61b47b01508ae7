package resource

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/paleotech/toolbox7/pkg/memmgr"
)

// Decompressor turns compressed on-disk bytes back into the original
// resource payload. Registered by defProc ID, read from the leading
// byte of a compressed resource's payload.
type Decompressor func(raw []byte) ([]byte, error)

// klauspostFlateDecompressor is decompressor ID 1, the only
// decompressor registered by default. It wires klauspost/compress's
// flate reader against the payload that follows the leading
// defProc-ID byte.
func klauspostFlateDecompressor(raw []byte) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(raw))
	defer fr.Close()
	out, err := io.ReadAll(fr)
	if err != nil {
		return nil, fmt.Errorf("resource: flate decompress: %w", err)
	}
	return out, nil
}

// cacheKey identifies a decompressed resource across repeated loads.
type cacheKey struct {
	refNum RefNum
	typ    Type
	id     ID
}

type cacheEntry struct {
	handle   memmgr.Handle
	refCount int
	touch    uint64
}

// decompressCache is the bounded, LRU-evicted store mapping (file,
// Type, ID) to a live decompressed Handle. Eviction only considers
// entries whose reference count is 1 (an entry still referenced by a
// locked handle is never evicted), breaking ties by oldest
// insertion/touch: snapshot candidates, sort ascending by last-touch,
// evict oldest first.
type decompressCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[cacheKey]*cacheEntry
	touch    uint64
}

func newDecompressCache(capacity int) *decompressCache {
	if capacity <= 0 {
		capacity = 256
	}
	return &decompressCache{capacity: capacity, entries: make(map[cacheKey]*cacheEntry)}
}

func (c *decompressCache) get(k cacheKey) (memmgr.Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	if !ok {
		return memmgr.Handle{}, false
	}
	c.touch++
	e.touch = c.touch
	e.refCount++
	return e.handle, true
}

func (c *decompressCache) put(k cacheKey, h memmgr.Handle, zone *memmgr.Zone) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.capacity {
		c.evictLocked(zone)
	}
	c.touch++
	c.entries[k] = &cacheEntry{handle: h, refCount: 1, touch: c.touch}
}

func (c *decompressCache) release(k cacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[k]; ok && e.refCount > 0 {
		e.refCount--
	}
}

func (c *decompressCache) evictLocked(zone *memmgr.Zone) {
	type cand struct {
		key   cacheKey
		touch uint64
	}
	var cands []cand
	for k, e := range c.entries {
		if e.refCount <= 1 && (zone == nil || !zone.IsLocked(e.handle)) {
			cands = append(cands, cand{k, e.touch})
		}
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].touch < cands[j].touch })
	if len(cands) == 0 {
		return
	}
	victim := cands[0].key
	if zone != nil {
		zone.DisposeHandle(c.entries[victim].handle)
	}
	delete(c.entries, victim)
}

func (c *decompressCache) invalidateFile(refNum RefNum) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.refNum == refNum {
			delete(c.entries, k)
		}
	}
}
