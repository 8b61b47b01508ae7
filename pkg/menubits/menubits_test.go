package menubits

import (
	"testing"

	"github.com/paleotech/toolbox7/pkg/bitspool"
	"github.com/paleotech/toolbox7/pkg/memmgr"
	"github.com/paleotech/toolbox7/pkg/platform"
	"github.com/paleotech/toolbox7/pkg/toolboxerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFB(w, h int) *platform.FrameBuffer {
	return &platform.FrameBuffer{
		Base:      make([]byte, w*h),
		Width:     w,
		Height:    h,
		Pitch:     w,
		PixelSize: 1,
	}
}

func TestSaveRestoreUsesPoolFirst(t *testing.T) {
	fb := newFB(20, 20)
	for i := range fb.Base {
		fb.Base[i] = byte(i % 7)
	}
	pool := bitspool.New(2, 64)
	zone := memmgr.NewZone("ui", 0)
	m := New(pool, zone, fb)

	rect := bitspool.Rect{Top: 2, Left: 2, Bottom: 6, Right: 6}
	saved, err := m.Save(rect, 0)
	require.Equal(t, toolboxerr.NoErr, err)
	assert.True(t, saved.fromPool)

	for row := rect.Top; row < rect.Bottom; row++ {
		for col := rect.Left; col < rect.Right; col++ {
			fb.Base[row*fb.Pitch+col] = 0xFF
		}
	}

	require.Equal(t, toolboxerr.NoErr, m.Restore(saved))
	assert.Equal(t, byte((2*fb.Pitch+2)%7), fb.Base[2*fb.Pitch+2])
}

func TestSaveFallsBackToMemoryManagerWhenPoolExhausted(t *testing.T) {
	fb := newFB(10, 10)
	pool := bitspool.New(1, 4) // too small for any real rect
	zone := memmgr.NewZone("ui", 0)
	m := New(pool, zone, fb)

	rect := bitspool.Rect{Top: 0, Left: 0, Bottom: 4, Right: 4}
	saved, err := m.Save(rect, 0)
	require.Equal(t, toolboxerr.NoErr, err)
	assert.False(t, saved.fromPool)
}

func TestDiscardReleasesWithoutRestoring(t *testing.T) {
	fb := newFB(10, 10)
	pool := bitspool.New(1, 64)
	zone := memmgr.NewZone("ui", 0)
	m := New(pool, zone, fb)

	rect := bitspool.Rect{Top: 0, Left: 0, Bottom: 2, Right: 2}
	saved, err := m.Save(rect, 0)
	require.Equal(t, toolboxerr.NoErr, err)

	m.Discard(saved)
	assert.Equal(t, 0, pool.InUse())
}
