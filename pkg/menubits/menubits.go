// Package menubits implements the classic Menu Manager's Save/Restore
// primitive for rectangular framebuffer patches: an illustrative
// client of pkg/memmgr and pkg/bitspool.
package menubits

import (
	"github.com/paleotech/toolbox7/pkg/bitspool"
	"github.com/paleotech/toolbox7/pkg/memmgr"
	"github.com/paleotech/toolbox7/pkg/platform"
	"github.com/paleotech/toolbox7/pkg/toolboxerr"
)

// Saved identifies a saved framebuffer patch: either a bitspool Token
// or a memmgr Ptr, never both.
type Saved struct {
	fromPool bool
	tok      bitspool.Token
	ptr      memmgr.Ptr
	bounds   bitspool.Rect
	pixelSize int
	width    int
}

// Manager ties a bits pool, a memory zone, and a framebuffer together
// for Save/Restore/Discard.
type Manager struct {
	pool *bitspool.Pool
	zone *memmgr.Zone
	fb   *platform.FrameBuffer
}

// New constructs a Manager. pool may be nil, in which case Save always
// falls back to the Memory Manager.
func New(pool *bitspool.Pool, zone *memmgr.Zone, fb *platform.FrameBuffer) *Manager {
	return &Manager{pool: pool, zone: zone, fb: fb}
}

// Save copies the rect out of the framebuffer. It tries the bits pool
// first; on a miss (pool nil, exhausted, or region too large for a
// slot) it falls back to a NewPtr allocation of width*height*pixelSize
// bytes.
func (m *Manager) Save(rect bitspool.Rect, mode int) (Saved, toolboxerr.OSErr) {
	width := rect.Right - rect.Left
	height := rect.Bottom - rect.Top
	if width <= 0 || height <= 0 {
		return Saved{}, toolboxerr.MemFull
	}
	size := width * height * m.fb.PixelSize
	payload := m.capture(rect)

	if m.pool != nil {
		if tok, err := m.pool.Allocate(rect, mode, size); err == nil {
			copy(m.pool.Bytes(tok), payload)
			return Saved{fromPool: true, tok: tok, bounds: rect, pixelSize: m.fb.PixelSize, width: width}, toolboxerr.NoErr
		}
	}

	ptr, oerr := m.zone.NewPtr(size)
	if oerr != toolboxerr.NoErr {
		return Saved{}, oerr
	}
	copy(m.zone.PtrBytes(ptr), payload)
	return Saved{fromPool: false, ptr: ptr, bounds: rect, pixelSize: m.fb.PixelSize, width: width}, toolboxerr.NoErr
}

// capture reads the raw bytes of rect out of the framebuffer, row by
// row according to pitch.
func (m *Manager) capture(rect bitspool.Rect) []byte {
	width := rect.Right - rect.Left
	height := rect.Bottom - rect.Top
	rowBytes := width * m.fb.PixelSize
	out := make([]byte, 0, rowBytes*height)
	for row := rect.Top; row < rect.Bottom; row++ {
		start := row*m.fb.Pitch + rect.Left*m.fb.PixelSize
		out = append(out, m.fb.Base[start:start+rowBytes]...)
	}
	return out
}

// Restore rewrites the framebuffer region from the saved bytes and
// releases s via the correct path (pool or Memory Manager).
func (m *Manager) Restore(s Saved) toolboxerr.OSErr {
	var payload []byte
	if s.fromPool {
		payload = m.pool.Bytes(s.tok)
	} else {
		payload = m.zone.PtrBytes(s.ptr)
	}
	if payload == nil {
		return toolboxerr.NilHandleErr
	}

	rowBytes := s.width * s.pixelSize
	row := s.bounds.Top
	for off := 0; off+rowBytes <= len(payload); off += rowBytes {
		dstStart := row*m.fb.Pitch + s.bounds.Left*s.pixelSize
		copy(m.fb.Base[dstStart:dstStart+rowBytes], payload[off:off+rowBytes])
		row++
	}

	m.release(s)
	return toolboxerr.NoErr
}

// Discard releases s without restoring the framebuffer.
func (m *Manager) Discard(s Saved) {
	m.release(s)
}

func (m *Manager) release(s Saved) {
	if s.fromPool {
		m.pool.Free(s.tok)
		return
	}
	m.zone.DisposePtr(s.ptr)
}
